package timeline

import (
	"fmt"
	"strings"

	"streamtrace/common"
	"streamtrace/httplog"
	"streamtrace/tracelog"
	"streamtrace/tstat"
)

type row struct {
	records *tracelog.Table
	i       int
}

func (r row) text(col string) string { return r.records.Text(col, r.i) }

func (r row) float(col string) float64 {
	v, _ := r.records.Float(col, r.i)
	return v
}

func (r row) pair(client, server string) string {
	return r.text(client) + " / " + r.text(server)
}

// describe renders the summary shown next to one interval.
func describe(doc common.Document, proto common.Protocol, r row) string {
	var b strings.Builder
	switch doc {
	case common.FlowComplete, common.FlowPeriodic:
		switch proto {
		case common.TCP:
			describeTCP(&b, doc, r)
		case common.UDP:
			describeUDP(&b, r)
		}
	case common.Transaction:
		describeTransaction(&b, r)
	case common.MediaComplete:
		describeTransaction(&b, r)
		describeMedia(&b, r)
	}
	return b.String()
}

func describeTCP(b *strings.Builder, doc common.Document, r row) {
	ts, te := r.float(tstat.Start), r.float(tstat.End)
	fmt.Fprintf(b, "server name\n%s\n\n", r.text(tstat.Cname))
	fmt.Fprintf(b, "packs (client/server)\n")
	fmt.Fprintf(b, "  app %s\n", r.pair(tstat.ClientPktsData, tstat.ServerPktsData))
	fmt.Fprintf(b, "  acks (pure) %s\n", r.pair(tstat.ClientAckPure, tstat.ServerAckPure))
	fmt.Fprintf(b, "  acks (data) %s\n", r.pair(tstat.ClientAckData, tstat.ServerAckData))
	fmt.Fprintf(b, "  all %s\n", r.pair(tstat.ClientPktsAll, tstat.ServerPktsAll))
	fmt.Fprintf(b, "  rxt %s\n\n", r.pair(tstat.ClientRetx, tstat.ServerRetx))
	fmt.Fprintf(b, "bytes (client/server)\n")
	fmt.Fprintf(b, "  all %s / %s\n\n", common.FmtVolume(r.float(tstat.ClientBytesAll)), common.FmtVolume(r.float(tstat.ServerBytesAll)))
	fmt.Fprintf(b, "timings\n")
	fmt.Fprintf(b, "ts %s\n", common.FmtTimestamp(ts))
	fmt.Fprintf(b, "te %s\n", common.FmtTimestamp(te))
	fmt.Fprintf(b, "lasting %s\n", common.FmtTimestamp(te-ts))
	if doc == common.FlowComplete {
		cfirst, sfirst := r.float(tstat.ClientFirst), r.float(tstat.ServerFirst)
		fmt.Fprintf(b, "first pack data (client) %s\n", common.FmtTimestamp(ts+cfirst))
		fmt.Fprintf(b, "first pack data (server) %s\n", common.FmtTimestamp(ts+sfirst))
		fmt.Fprintf(b, "handshake lasting %s\n", common.FmtTimestamp(cfirst))
	}
}

func describeUDP(b *strings.Builder, r row) {
	fmt.Fprintf(b, "server name\n%s\n\n", r.text(tstat.Cname))
	fmt.Fprintf(b, "packs (client/server)\n")
	fmt.Fprintf(b, "  all %s\n\n", r.pair(tstat.ClientPktsAll, tstat.ServerPktsAll))
	fmt.Fprintf(b, "bytes (client/server)\n")
	fmt.Fprintf(b, "  all %s / %s\n\n", common.FmtVolume(r.float(tstat.ClientBytesAll)), common.FmtVolume(r.float(tstat.ServerBytesAll)))
	fmt.Fprintf(b, "timings\n")
	fmt.Fprintf(b, "ts %s\n", common.FmtTimestamp(r.float(tstat.Start)))
	fmt.Fprintf(b, "te %s\n", common.FmtTimestamp(r.float(tstat.End)))
}

func describeTransaction(b *strings.Builder, r row) {
	fmt.Fprintf(b, "transaction\n%s %s\n\n", r.text(httplog.Method), r.text(httplog.URL))
	fmt.Fprintf(b, "ts %s\n", common.FmtTimestamp(r.float(httplog.Start)))
	fmt.Fprintf(b, "te %s\n", common.FmtTimestamp(r.float(httplog.End)))
	fmt.Fprintf(b, "connection %s\n", r.text(httplog.Connection))
}

func describeMedia(b *strings.Builder, r row) {
	if r.records.Has(httplog.Size) {
		fmt.Fprintf(b, "size %s\n", common.FmtVolume(r.float(httplog.Size)))
	}
	for _, col := range []string{httplog.VideoBitrate, httplog.AudioBitrate} {
		if r.records.Has(col) {
			fmt.Fprintf(b, "bitrate %s\n", common.FmtBitrate(r.float(col)*1000))
		}
	}
}
