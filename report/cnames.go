package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"streamtrace/common"
	"streamtrace/tracelog"
	"streamtrace/tstat"
)

const (
	numSamplesFile = "num_samples.txt"
	numTCPFlows    = "num_tcp_flows.txt"
	numUDPFlows    = "num_udp_flows.txt"
)

type CnameShare struct {
	Cname       string  `json:"cname"`
	Abs         float64 `json:"abs"`
	Probability float64 `json:"probability"`
}

//CnameReport is the share of streaming intervals in which each server name appeared
type CnameReport struct {
	Server   string       `json:"server"`
	Samples  int          `json:"samples"`
	TCPFlows int          `json:"tcp_flows"`
	UDPFlows int          `json:"udp_flows"`
	TCP      []CnameShare `json:"tcp"`
	UDP      []CnameShare `json:"udp"`
}

func readCount(path string) (int, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", tracelog.ErrDataUnavailable, err)
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil {
		return 0, &tracelog.MalformedRecordError{Path: path, Line: 1, Reason: err.Error()}
	}
	return n, nil
}

func cnameShares(path string, samples int) ([]CnameShare, error) {
	t, err := tracelog.ReadTable(path)
	if err != nil {
		return nil, err
	}
	names, err := t.Strings(tstat.Cname)
	if err != nil {
		return nil, err
	}
	abs, err := t.Floats("abs")
	if err != nil {
		return nil, err
	}
	shares := make([]CnameShare, len(names))
	for i := range names {
		shares[i] = CnameShare{Cname: names[i], Abs: abs[i], Probability: abs[i] / float64(samples) * 100}
	}
	return shares, nil
}

//CnameFrequency reads the precomputed cname counts of a server under resDir
func CnameFrequency(resDir, server string) (*CnameReport, error) {
	dir := filepath.Join(resDir, server)
	rep := &CnameReport{Server: server}
	var err error
	if rep.Samples, err = readCount(filepath.Join(dir, numSamplesFile)); err != nil {
		return nil, err
	}
	if rep.Samples <= 0 {
		return nil, fmt.Errorf("%s: no streaming intervals analyzed", filepath.Join(dir, numSamplesFile))
	}
	if rep.TCPFlows, err = readCount(filepath.Join(dir, numTCPFlows)); err != nil {
		return nil, err
	}
	if rep.UDPFlows, err = readCount(filepath.Join(dir, numUDPFlows)); err != nil {
		return nil, err
	}
	for _, p := range []common.Protocol{common.TCP, common.UDP} {
		shares, err := cnameShares(filepath.Join(dir, "cnames_"+p.String()+".txt"), rep.Samples)
		if err != nil {
			return nil, err
		}
		if p == common.TCP {
			rep.TCP = shares
		} else {
			rep.UDP = shares
		}
	}
	return rep, nil
}
