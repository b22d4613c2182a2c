package common

import (
	"fmt"
	"strings"
)

//bandwidth cap under which one testbed run was conducted, e.g. "1500" or "infi"
type RateCondition string

const Unlimited RateCondition = "infi"

//testbed bitrate conditions, in legend order
var TestbedRates = []RateCondition{"1500", "3000", "4500", "6000", "7500", Unlimited}

func (r RateCondition) Unlimited() bool {
	return r == Unlimited
}

//directory name of the rate under the server root
func (r RateCondition) Dir() string {
	return string(r) + "kbits"
}

func (r RateCondition) Label() string {
	if r.Unlimited() {
		return "no-limits"
	}
	return string(r) + " kbits"
}

//accepts both "1500" and "1500kbits"
func ParseRates(s string) ([]RateCondition, error) {
	var rates []RateCondition
	for _, f := range strings.Split(s, ",") {
		f = strings.TrimSuffix(strings.TrimSpace(f), "kbits")
		if len(f) == 0 {
			continue
		}
		rates = append(rates, RateCondition(f))
	}
	if len(rates) == 0 {
		return nil, fmt.Errorf("no rate conditions in %q", s)
	}
	return rates, nil
}

type Protocol int

const (
	TCP Protocol = iota + 1
	UDP
	HTTP
)

func (p Protocol) String() string {
	switch p {
	case TCP:
		return "tcp"
	case UDP:
		return "udp"
	case HTTP:
		return "http"
	}
	return fmt.Sprintf("protocol(%d)", int(p))
}

func ParseProtocol(s string) (Protocol, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "tcp":
		return TCP, nil
	case "udp":
		return UDP, nil
	case "http":
		return HTTP, nil
	}
	return 0, fmt.Errorf("unknown protocol %q", s)
}

//Document is the kind of a log file. It selects the file name, the description
//template and the row pre-filter applied to the records.
type Document int

const (
	FlowComplete Document = iota + 1
	FlowPeriodic
	Transaction
	MediaComplete
)

func (d Document) String() string {
	switch d {
	case FlowComplete:
		return "complete"
	case FlowPeriodic:
		return "periodic"
	case Transaction:
		return "transaction"
	case MediaComplete:
		return "media"
	}
	return fmt.Sprintf("document(%d)", int(d))
}

func (d Document) IsFlow() bool {
	return d == FlowComplete || d == FlowPeriodic
}

//media logs are split per stream kind
type MediaKind string

const (
	Video MediaKind = "video"
	Audio MediaKind = "audio"
)

//Log identifies one log file of an experiment
type Log struct {
	Doc   Document
	Proto Protocol
	Media MediaKind
}

var (
	LogTCPComplete   = Log{Doc: FlowComplete, Proto: TCP}
	LogTCPPeriodic   = Log{Doc: FlowPeriodic, Proto: TCP}
	LogUDPComplete   = Log{Doc: FlowComplete, Proto: UDP}
	LogUDPPeriodic   = Log{Doc: FlowPeriodic, Proto: UDP}
	LogHARComplete   = Log{Doc: Transaction, Proto: HTTP}
	LogVideoComplete = Log{Doc: MediaComplete, Proto: HTTP, Media: Video}
	LogAudioComplete = Log{Doc: MediaComplete, Proto: HTTP, Media: Audio}
)

const LogBotComplete = "log_bot_complete"

//file name of the log inside an experiment directory
func (l Log) FileName() string {
	switch l.Doc {
	case FlowComplete, FlowPeriodic:
		return "log_" + l.Proto.String() + "_" + l.Doc.String()
	case Transaction:
		return "log_har_complete"
	case MediaComplete:
		return "log_" + string(l.Media) + "_complete"
	}
	return ""
}

func (l Log) String() string {
	return l.FileName()
}
