package tstat

import (
	"fmt"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"streamtrace/common"
	"streamtrace/tracelog"
)

//Tstat log fields used by the engine
const (
	ClientIP   = "c_ip"
	ClientPort = "c_port"
	ServerIP   = "s_ip"
	ServerPort = "s_port"
	Cname      = "cname"
	Start      = "ts"
	End        = "te"

	ClientPktsAll  = "c_pkts_all"
	ServerPktsAll  = "s_pkts_all"
	ClientBytesAll = "c_bytes_all"
	ServerBytesAll = "s_bytes_all"
	ClientPktsData = "c_pkts_data"
	ServerPktsData = "s_pkts_data"
	ClientAckPure  = "c_ack_cnt_p"
	ServerAckPure  = "s_ack_cnt_p"
	ClientAckData  = "c_ack_cnt"
	ServerAckData  = "s_ack_cnt"
	ClientRetx     = "c_pkts_retx"
	ServerRetx     = "s_pkts_retx"
	ClientFirst    = "c_first"
	ServerFirst    = "s_first"

	//fields of the aggregated samples
	AvgBinsSpan  = "avg_bins_span"
	AvgVideoRate = "avg_video_rate"
	AvgAudioRate = "avg_audio_rate"
)

//server side byte counter of the aggregated samples, e.g. s_tcp_bytes
func ServerBytes(p common.Protocol) string {
	return fmt.Sprintf("s_%s_bytes", p)
}

func ClientBytes(p common.Protocol) string {
	return fmt.Sprintf("c_%s_bytes", p)
}

//Flow is the endpoint identity of one Tstat record
type Flow struct {
	ClientIP   string `json:"c_ip"`
	ClientPort string `json:"c_port"`
	ServerIP   string `json:"s_ip"`
	ServerPort string `json:"s_port"`
}

func (f Flow) ID() string {
	return f.ClientIP + ":" + f.ClientPort + "-" + f.ServerIP + ":" + f.ServerPort
}

func FlowAt(records *tracelog.Table, i int) Flow {
	return Flow{
		ClientIP:   records.Text(ClientIP, i),
		ClientPort: records.Text(ClientPort, i),
		ServerIP:   records.Text(ServerIP, i),
		ServerPort: records.Text(ServerPort, i),
	}
}

//Cnames lists the distinct server names of a log, sorted
func Cnames(records *tracelog.Table) ([]string, error) {
	names, err := records.Strings(Cname)
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	out := maps.Keys(set)
	slices.Sort(out)
	return out, nil
}

//SelectCnames keeps the records whose cname is one of cnames
func SelectCnames(records *tracelog.Table, cnames []string) (*tracelog.Table, error) {
	names, err := records.Strings(Cname)
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(cnames))
	for _, c := range cnames {
		set[c] = struct{}{}
	}
	return records.Filter(func(i int) bool {
		_, ok := set[names[i]]
		return ok
	}), nil
}

//ActivePeriodic keeps the periodic records in which the client sent data.
//When the client sent data in none of them, every record is kept.
func ActivePeriodic(records *tracelog.Table) (*tracelog.Table, error) {
	pkts, err := records.Floats(ClientPktsData)
	if err != nil {
		return nil, err
	}
	active := records.Filter(func(i int) bool { return pkts[i] > 0 })
	if active.Len() == 0 {
		return records, nil
	}
	return active, nil
}

//SortByClientPort orders records by client port, highest first; equal ports keep their order
func SortByClientPort(records *tracelog.Table) (*tracelog.Table, error) {
	ports, err := records.Floats(ClientPort)
	if err != nil {
		return nil, err
	}
	idx := make([]int, len(ports))
	for i := range idx {
		idx[i] = i
	}
	slices.SortStableFunc(idx, func(a, b int) int {
		switch {
		case ports[a] > ports[b]:
			return -1
		case ports[a] < ports[b]:
			return 1
		}
		return 0
	})
	return records.Take(idx), nil
}
