package savedata

import (
	"encoding/csv"
	"errors"
	"io"
	"strconv"
	"time"

	"gonum.org/v1/plot/plotter"

	"streamtrace/evaluation"
	"streamtrace/report"
)

var ErrClosed = errors.New("savedata: csv already closed")

//SaveCSV buffers rows and writes them on close
type SaveCSV struct {
	w      *csv.Writer
	Data   [][]string
	closed bool
}

func NewCSV(w io.Writer, header ...string) *SaveCSV {
	mycsv := &SaveCSV{w: csv.NewWriter(w), Data: make([][]string, 0)}
	if len(header) > 0 {
		mycsv.Data = append(mycsv.Data, header)
	}
	return mycsv
}

//Append one element to csv data, no actual write
func (mycsv *SaveCSV) AddOneToCSV(data []string) {
	mycsv.Data = append(mycsv.Data, data)
}

func (mycsv *SaveCSV) CloseCSV() error {
	if mycsv.closed {
		return ErrClosed
	}
	mycsv.closed = true
	if err := mycsv.w.WriteAll(mycsv.Data); err != nil {
		return err
	}
	return mycsv.w.Error()
}

func fmtFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func (mycsv *SaveCSV) addPoints(prefix []string, pts plotter.XYs) {
	for _, p := range pts {
		row := append(append([]string{}, prefix...), fmtFloat(p.X), fmtFloat(p.Y))
		mycsv.AddOneToCSV(row)
	}
}

var ComparisonHeader = []string{"protocol", "view", "metric", "category", "rate", "label", "x", "y"}

func (mycsv *SaveCSV) addSeries(proto, category string, series []evaluation.Series) {
	for _, s := range series {
		mycsv.addPoints([]string{proto, "trend", s.Metric, category, string(s.Rate), s.Rate.Label()}, s.Points)
	}
}

//quantile rows carry the probability in x and the value in y
func (mycsv *SaveCSV) addSummaries(proto, metric, category string, sums []evaluation.Summary) {
	for _, q := range sums {
		mycsv.addPoints([]string{proto, "quantile", metric, category, string(q.Rate), q.Rate.Label()},
			plotter.XYs{{X: 0.5, Y: q.P50}, {X: 0.95, Y: q.P95}})
	}
}

func (mycsv *SaveCSV) addDistributions(proto, category string, dists []evaluation.Distribution) {
	for _, d := range dists {
		mycsv.addPoints([]string{proto, "cdf", d.Metric, category, string(d.Rate), d.Rate.Label()}, d.Points)
	}
}

//SaveComparison writes one row per point of every series, distribution and point set,
//then two quantile rows per distribution summary
func SaveComparison(w io.Writer, cmp *report.Comparison) error {
	mycsv := NewCSV(w, ComparisonHeader...)
	for _, sec := range cmp.Sections {
		for _, tp := range []report.TrendPair{sec.ServerBytes, sec.ClientBytes, sec.VideoRate, sec.AudioRate} {
			mycsv.addSeries(sec.Protocol, "media", tp.Media)
			mycsv.addSeries(sec.Protocol, "noise", tp.Noise)
		}
		for _, dp := range []report.DistributionPair{sec.ServerBytesCDF, sec.ClientBytesCDF, sec.BinsSpanCDF} {
			mycsv.addDistributions(sec.Protocol, "media", dp.Media)
			mycsv.addDistributions(sec.Protocol, "noise", dp.Noise)
			mycsv.addSummaries(sec.Protocol, dp.Metric, "media", dp.MediaSummary)
			mycsv.addSummaries(sec.Protocol, dp.Metric, "noise", dp.NoiseSummary)
		}
		for _, ps := range sec.BytesVsVideo {
			mycsv.addPoints([]string{sec.Protocol, "scatter", ps.X + "/" + ps.Y, "media", string(ps.Rate), ps.Rate.Label()}, ps.Finite())
		}
	}
	return mycsv.CloseCSV()
}

var TimelineHeader = []string{"experiment", "kind", "id", "category", "start", "end"}

//SaveTimelines writes one row per interval, then one row per period region
func SaveTimelines(w io.Writer, views []*report.ExperimentView) error {
	mycsv := NewCSV(w, TimelineHeader...)
	for _, v := range views {
		if v == nil {
			continue
		}
		for _, tl := range v.Timelines {
			for _, iv := range tl.Intervals {
				mycsv.AddOneToCSV([]string{v.Name, tl.Kind, iv.ID, iv.Category,
					iv.Start.Format(time.RFC3339Nano), iv.End.Format(time.RFC3339Nano)})
			}
		}
		for _, p := range v.Periods {
			mycsv.AddOneToCSV([]string{v.Name, "period", p.Name, "",
				strconv.FormatInt(p.Start, 10), strconv.FormatInt(p.End, 10)})
		}
	}
	return mycsv.CloseCSV()
}

var CnameHeader = []string{"protocol", "cname", "abs", "probability"}

func SaveCnames(w io.Writer, rep *report.CnameReport) error {
	mycsv := NewCSV(w, CnameHeader...)
	for _, s := range rep.TCP {
		mycsv.AddOneToCSV([]string{"tcp", s.Cname, fmtFloat(s.Abs), fmtFloat(s.Probability)})
	}
	for _, s := range rep.UDP {
		mycsv.AddOneToCSV([]string{"udp", s.Cname, fmtFloat(s.Abs), fmtFloat(s.Probability)})
	}
	return mycsv.CloseCSV()
}
