// Package timeline turns flow and transaction records into per-entity display
// intervals, overlaid with the streaming periods of the session.
package timeline

import (
	"fmt"
	"time"

	"streamtrace/common"
	"streamtrace/httplog"
	"streamtrace/session"
	"streamtrace/tracelog"
	"streamtrace/tstat"
)

// TickEvery is the spacing of the time axis ticks.
const TickEvery = 10 * time.Second

type Interval struct {
	ID          string    `json:"id"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
}

// Region shades one streaming period.
type Region struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Label string    `json:"label"`
}

type Tick struct {
	At    time.Time `json:"at"`
	Label string    `json:"label"`
}

type Timeline struct {
	Document  common.Document `json:"-"`
	Protocol  common.Protocol `json:"-"`
	Kind      string          `json:"kind"`
	Intervals []Interval      `json:"intervals"`
	Regions   []Region        `json:"regions,omitempty"`
	Axis      []Tick          `json:"axis"`
}

type Request struct {
	Records  *tracelog.Table
	Document common.Document
	Protocol common.Protocol
	// Filter holds cnames for flow documents and MIME substrings otherwise.
	Filter []string
	// Session is optional; when set its periods become regions and the axis
	// runs from 0 to its last event.
	Session *session.Segmentation
}

func msTime(ms float64) time.Time {
	return time.UnixMilli(int64(ms)).UTC()
}

// Annotate builds the timeline of one log. An empty selection gives an empty
// timeline, not an error.
func Annotate(req Request) (*Timeline, error) {
	tl := &Timeline{
		Document:  req.Document,
		Protocol:  req.Protocol,
		Kind:      fmt.Sprintf("%s %s", req.Protocol, req.Document),
		Intervals: []Interval{},
	}
	if req.Session != nil {
		for _, p := range req.Session.Periods {
			tl.Regions = append(tl.Regions, Region{Start: msTime(float64(p.Start)), End: msTime(float64(p.End)), Label: p.Name})
		}
	}
	records, err := selectRecords(req)
	if err != nil {
		return nil, err
	}
	if records.Len() > 0 {
		ts, err := records.Floats(tstat.Start)
		if err != nil {
			return nil, err
		}
		te, err := records.Floats(tstat.End)
		if err != nil {
			return nil, err
		}
		for i := 0; i < records.Len(); i++ {
			iv := Interval{
				Start:       msTime(ts[i]),
				End:         msTime(te[i]),
				Description: describe(req.Document, req.Protocol, row{records: records, i: i}),
			}
			if req.Document.IsFlow() {
				iv.ID = tstat.FlowAt(records, i).ID()
				iv.Category = records.Text(tstat.Cname, i)
			} else {
				iv.ID = records.Text(httplog.Mime, i)
				iv.Category = iv.ID
			}
			tl.Intervals = append(tl.Intervals, iv)
		}
	}
	tl.Axis = axis(tl.Intervals, req.Session)
	return tl, nil
}

func selectRecords(req Request) (*tracelog.Table, error) {
	switch req.Document {
	case common.FlowComplete, common.FlowPeriodic:
		records, err := tstat.SelectCnames(req.Records, req.Filter)
		if err != nil {
			return nil, err
		}
		if req.Document == common.FlowPeriodic && req.Protocol == common.TCP {
			if records, err = tstat.ActivePeriodic(records); err != nil {
				return nil, err
			}
		}
		return tstat.SortByClientPort(records)
	case common.Transaction, common.MediaComplete:
		return httplog.SelectMimes(req.Records, req.Filter)
	}
	return nil, fmt.Errorf("unsupported document %s", req.Document)
}

func axis(intervals []Interval, seg *session.Segmentation) []Tick {
	var from, to time.Time
	switch {
	case seg != nil:
		from = time.UnixMilli(0).UTC()
		to = from
		for _, e := range seg.Events {
			if t := msTime(float64(e.Rel)); t.After(to) {
				to = t
			}
		}
	case len(intervals) > 0:
		from, to = intervals[0].Start, intervals[0].End
		for _, iv := range intervals[1:] {
			if iv.Start.Before(from) {
				from = iv.Start
			}
			if iv.End.After(to) {
				to = iv.End
			}
		}
	default:
		return []Tick{}
	}
	return Ticks(from, to, TickEvery)
}

// Ticks places a tick every step from from to to, both included when aligned,
// labelled mm:ss.
func Ticks(from, to time.Time, step time.Duration) []Tick {
	ticks := []Tick{}
	if step <= 0 {
		return ticks
	}
	for t := from; !t.After(to); t = t.Add(step) {
		ticks = append(ticks, Tick{At: t, Label: t.Format("04:05")})
	}
	return ticks
}
