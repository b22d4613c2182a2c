package savedata

import (
	"bytes"
	"encoding/csv"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/plot/plotter"

	"streamtrace/common"
	"streamtrace/evaluation"
	"streamtrace/report"
	"streamtrace/session"
	"streamtrace/timeline"
)

func TestSaveJSONDropsNaNPoints(t *testing.T) {
	ps := evaluation.PointSet{Rate: "1500", X: "s_tcp_bytes", Y: "avg_video_rate",
		Points: plotter.XYs{{X: 1, Y: 2}, {X: math.NaN(), Y: 3}}}
	var buf bytes.Buffer
	require.NoError(t, SaveJSON(&buf, ps))

	var back evaluation.PointSet
	require.NoError(t, common.UnMarshalResult(&buf, &back))
	assert.Equal(t, plotter.XYs{{X: 1, Y: 2}}, back.Points)
	assert.Equal(t, common.RateCondition("1500"), back.Rate)
	assert.Len(t, ps.Points, 2, "in-memory set is unchanged")
}

func readCSV(t *testing.T, s string) [][]string {
	t.Helper()
	rows, err := csv.NewReader(strings.NewReader(s)).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestSaveComparison(t *testing.T) {
	cmp := &report.Comparison{Sections: []report.ProtocolSection{{
		Protocol: "tcp",
		ServerBytes: report.TrendPair{Metric: "s_tcp_bytes",
			Media: []evaluation.Series{{Rate: "1500", Metric: "s_tcp_bytes", Points: plotter.XYs{{X: 1, Y: 400}}}}},
		BinsSpanCDF: report.DistributionPair{Metric: "avg_bins_span",
			Noise: []evaluation.Distribution{{Rate: common.Unlimited, Metric: "avg_bins_span", Points: plotter.XYs{{X: 5, Y: 0.5}, {X: 6, Y: 1}}}}},
		BytesVsVideo: []evaluation.PointSet{{Rate: "1500", X: "s_tcp_bytes", Y: "avg_video_rate",
			Points: plotter.XYs{{X: 10, Y: 1000}, {X: math.NaN(), Y: 1}}}},
	}}}
	var buf bytes.Buffer
	require.NoError(t, SaveComparison(&buf, cmp))

	rows := readCSV(t, buf.String())
	require.Len(t, rows, 7)
	assert.Equal(t, ComparisonHeader, rows[0])
	assert.Equal(t, []string{"tcp", "trend", "s_tcp_bytes", "media", "1500", "1500 kbits", "1", "400"}, rows[1])
	assert.Equal(t, []string{"tcp", "cdf", "avg_bins_span", "noise", "infi", "no-limits", "6", "1"}, rows[3])
	assert.Equal(t, []string{"tcp", "quantile", "avg_bins_span", "noise", "infi", "no-limits", "0.5", "5"}, rows[4])
	assert.Equal(t, []string{"tcp", "quantile", "avg_bins_span", "noise", "infi", "no-limits", "0.95", "6"}, rows[5])
	assert.Equal(t, []string{"tcp", "scatter", "s_tcp_bytes/avg_video_rate", "media", "1500", "1500 kbits", "10", "1000"}, rows[6])
}

func TestSaveTimelines(t *testing.T) {
	start := time.UnixMilli(1000).UTC()
	views := []*report.ExperimentView{
		{Name: "test-1",
			Periods: []session.Period{{Start: 1000, End: 3000, Name: "play"}},
			Timelines: []*timeline.Timeline{{Kind: "tcp complete", Intervals: []timeline.Interval{
				{ID: "a:1-b:2", Category: "live.net", Start: start, End: start.Add(time.Second)},
			}}}},
		nil,
	}
	var buf bytes.Buffer
	require.NoError(t, SaveTimelines(&buf, views))
	rows := readCSV(t, buf.String())
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"test-1", "tcp complete", "a:1-b:2", "live.net", "1970-01-01T00:00:01Z", "1970-01-01T00:00:02Z"}, rows[1])
	assert.Equal(t, []string{"test-1", "period", "play", "", "1000", "3000"}, rows[2])
}

func TestSaveCnames(t *testing.T) {
	var buf bytes.Buffer
	rep := &report.CnameReport{TCP: []report.CnameShare{{Cname: "live", Abs: 3, Probability: 75}}}
	require.NoError(t, SaveCnames(&buf, rep))
	assert.Equal(t, "protocol,cname,abs,probability\ntcp,live,3,75\n", buf.String())
}

func TestCloseCSVTwice(t *testing.T) {
	var buf bytes.Buffer
	mycsv := NewCSV(&buf)
	mycsv.AddOneToCSV([]string{"a", "b"})
	require.NoError(t, mycsv.CloseCSV())
	assert.ErrorIs(t, mycsv.CloseCSV(), ErrClosed)
	assert.Equal(t, "a,b\n", buf.String())
}
