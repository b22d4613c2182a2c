package session

import (
	"fmt"
	"log/slog"

	"streamtrace/common"
	"streamtrace/tracelog"
)

// Experiment holds the logs of one supervised run. A log missing on disk is nil.
type Experiment struct {
	Rate   common.RateCondition
	Name   string
	Dir    string
	Events []tracelog.Event
	Logs   map[common.Log]*tracelog.Table
}

func (e *Experiment) Table(l common.Log) *tracelog.Table {
	return e.Logs[l]
}

// LoadExperiment reads every log of layout/<rate>/<name>. Absent logs are
// skipped, an unreadable or malformed one fails the load.
func LoadExperiment(layout common.Layout, rate common.RateCondition, name string, logger *slog.Logger) (*Experiment, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dir := layout.ExperimentDir(rate, name)
	files, err := common.CheckDataFiles(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", tracelog.ErrDataUnavailable, err)
	}
	exp := &Experiment{Rate: rate, Name: name, Dir: dir, Logs: make(map[common.Log]*tracelog.Table)}
	if files.Bot.Exist {
		exp.Events, err = tracelog.ReadEvents(files.Bot.Path)
		if err != nil {
			return nil, err
		}
	}
	for _, l := range files.Order {
		lf := files.Logs[l]
		if !lf.Exist {
			logger.Debug("log absent", "experiment", name, "log", l.FileName())
			continue
		}
		t, err := tracelog.ReadTable(lf.Path)
		if err != nil {
			return nil, err
		}
		exp.Logs[l] = t
	}
	return exp, nil
}
