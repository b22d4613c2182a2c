package timeline

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streamtrace/common"
	"streamtrace/httplog"
	"streamtrace/session"
	"streamtrace/tracelog"
)

const tcpComplete = `c_ip c_port s_ip s_port cname c_pkts_all s_pkts_all c_bytes_all s_bytes_all c_pkts_data s_pkts_data c_ack_cnt_p s_ack_cnt_p c_ack_cnt s_ack_cnt c_pkts_retx s_pkts_retx c_first s_first ts te
10.0.0.1 50000 1.1.1.1 443 live.dazn.com 10 20 1024 2097152 4 16 5 3 9 19 0 1 35 60 1000 31000
10.0.0.1 50100 1.1.1.2 443 live.dazn.com 1 2 10 20 0 1 1 1 1 2 0 0 12 13 2000 3000
10.0.0.1 50200 1.1.1.3 443 ads.example.net 1 2 10 20 0 1 1 1 1 2 0 0 12 13 2000 3000
`

const udpPeriodic = `c_ip c_port s_ip s_port cname c_pkts_all s_pkts_all c_bytes_all s_bytes_all ts te
10.0.0.1 40000 2.2.2.2 443 live.dazn.com 3 4 300 4000 5000 6500
`

const har = `ts te method url connection mime
1000 1200 GET http://cdn/seg1.mp4 7 video/mp4
1300 1400 GET http://cdn/index.html 7 text/html
1500 1600 GET http://cdn/manifest.mpd 8 application/dash+xml
`

func parse(t *testing.T, body string) *tracelog.Table {
	t.Helper()
	tab, err := tracelog.ParseTable(strings.NewReader(body), "log")
	require.NoError(t, err)
	return tab
}

func TestAnnotateTCPComplete(t *testing.T) {
	tl, err := Annotate(Request{
		Records:  parse(t, tcpComplete),
		Document: common.FlowComplete,
		Protocol: common.TCP,
		Filter:   []string{"live.dazn.com"},
	})
	require.NoError(t, err)
	require.Len(t, tl.Intervals, 2)
	assert.Equal(t, "tcp complete", tl.Kind)

	// highest client port first
	first := tl.Intervals[0]
	assert.Equal(t, "10.0.0.1:50100-1.1.1.2:443", first.ID)
	assert.Equal(t, "live.dazn.com", first.Category)

	iv := tl.Intervals[1]
	assert.Equal(t, time.UnixMilli(1000).UTC(), iv.Start)
	assert.Equal(t, time.UnixMilli(31000).UTC(), iv.End)
	assert.Contains(t, iv.Description, "server name\nlive.dazn.com\n")
	assert.Contains(t, iv.Description, "  app 4 / 16\n")
	assert.Contains(t, iv.Description, "  rxt 0 / 1\n")
	assert.Contains(t, iv.Description, "  all 1.00 KiB / 2.00 MiB\n")
	assert.Contains(t, iv.Description, "lasting 30.00s 0.00ms\n")
	assert.Contains(t, iv.Description, "first pack data (server) 1.00s 60.00ms\n")
	assert.Contains(t, iv.Description, "handshake lasting 0.00s 35.00ms\n")

	assert.Nil(t, tl.Regions)
	require.Len(t, tl.Axis, 4)
	assert.Equal(t, "00:01", tl.Axis[0].Label)
	assert.Equal(t, "00:31", tl.Axis[3].Label)
}

func TestAnnotateTCPPeriodicKeepsActiveFlows(t *testing.T) {
	tl, err := Annotate(Request{
		Records:  parse(t, tcpComplete),
		Document: common.FlowPeriodic,
		Protocol: common.TCP,
		Filter:   []string{"live.dazn.com", "ads.example.net"},
	})
	require.NoError(t, err)
	require.Len(t, tl.Intervals, 1)
	assert.NotContains(t, tl.Intervals[0].Description, "handshake")
}

func TestAnnotateUDPWithSession(t *testing.T) {
	seg := &session.Segmentation{
		Events:  []tracelog.Event{{Rel: 4000, Name: "play"}, {Rel: 25000, Name: "stop"}},
		Periods: []session.Period{{Start: 4000, End: 25000, Name: "play"}},
	}
	tl, err := Annotate(Request{
		Records:  parse(t, udpPeriodic),
		Document: common.FlowPeriodic,
		Protocol: common.UDP,
		Filter:   []string{"live.dazn.com"},
		Session:  seg,
	})
	require.NoError(t, err)
	require.Len(t, tl.Intervals, 1)
	assert.Contains(t, tl.Intervals[0].Description, "te 6.00s 500.00ms\n")
	assert.Equal(t, []Region{{Start: time.UnixMilli(4000).UTC(), End: time.UnixMilli(25000).UTC(), Label: "play"}}, tl.Regions)
	require.Len(t, tl.Axis, 3)
	assert.Equal(t, "00:00", tl.Axis[0].Label)
	assert.Equal(t, "00:20", tl.Axis[2].Label)
}

func TestAnnotateTransactions(t *testing.T) {
	tl, err := Annotate(Request{
		Records:  parse(t, har),
		Document: common.Transaction,
		Protocol: common.HTTP,
		Filter:   httplog.MediaMimes,
	})
	require.NoError(t, err)
	require.Len(t, tl.Intervals, 2)
	assert.Equal(t, "video/mp4", tl.Intervals[0].ID)
	assert.Equal(t, "video/mp4", tl.Intervals[0].Category)
	assert.Equal(t, "transaction\nGET http://cdn/seg1.mp4\n\nts 1.00s 0.00ms\nte 1.00s 200.00ms\nconnection 7\n", tl.Intervals[0].Description)
	assert.Equal(t, "application/dash+xml", tl.Intervals[1].ID)
}

func TestAnnotateMedia(t *testing.T) {
	media := parse(t, "ts te method url connection mime size video_bitrate\n0 2000 GET http://cdn/v1 3 video/mp4 2048 4500\n")
	tl, err := Annotate(Request{Records: media, Document: common.MediaComplete, Protocol: common.HTTP, Filter: []string{"video"}})
	require.NoError(t, err)
	require.Len(t, tl.Intervals, 1)
	assert.Contains(t, tl.Intervals[0].Description, "size 2.00 KiB\n")
	assert.Contains(t, tl.Intervals[0].Description, "bitrate 4.50 Mbps\n")
}

func TestAnnotateEmptySelection(t *testing.T) {
	tl, err := Annotate(Request{
		Records:  parse(t, tcpComplete),
		Document: common.FlowComplete,
		Protocol: common.TCP,
		Filter:   []string{"nobody.example"},
	})
	require.NoError(t, err)
	assert.Empty(t, tl.Intervals)
	assert.Empty(t, tl.Axis)

	_, err = Annotate(Request{Records: parse(t, har), Document: common.FlowComplete, Protocol: common.TCP, Filter: []string{"x"}})
	assert.Error(t, err)
}

func TestTicks(t *testing.T) {
	from := time.UnixMilli(0).UTC()
	ticks := Ticks(from, from.Add(65*time.Second), TickEvery)
	require.Len(t, ticks, 7)
	assert.Equal(t, "01:00", ticks[6].Label)
	assert.Empty(t, Ticks(from, from.Add(-time.Second), TickEvery))
}
