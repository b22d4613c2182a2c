package common

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

//Layout resolves the on-disk conventions of one service dataset:
//
//	root/server/<rate>kbits/{media|noise}/<proto>/<step>/*
//	root/server/<rate>kbits/test-N/log_*
type Layout struct {
	Root   string
	Server string
}

func Category(media bool) string {
	if media {
		return "media"
	}
	return "noise"
}

func (l Layout) RateDir(rate RateCondition) string {
	return filepath.Join(l.Root, l.Server, rate.Dir())
}

func (l Layout) SampleDir(rate RateCondition, proto Protocol, media bool, step string) string {
	return filepath.Join(l.RateDir(rate), Category(media), proto.String(), step)
}

func (l Layout) ExperimentDir(rate RateCondition, experiment string) string {
	return filepath.Join(l.RateDir(rate), experiment)
}

//number suffix of a "test-N" directory, 0 when absent
func ExperimentNumber(name string) int {
	i := strings.Index(name, "-")
	if i < 0 {
		return 0
	}
	n, err := strconv.Atoi(name[i+1:])
	if err != nil {
		return 0
	}
	return n
}

//ListExperiments returns the test-N directories of a rate ordered by N, at most limit of them
func (l Layout) ListExperiments(rate RateCondition, limit int) ([]string, error) {
	entries, err := os.ReadDir(l.RateDir(rate))
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), "test") {
			names = append(names, e.Name())
		}
	}
	sort.SliceStable(names, func(i, j int) bool {
		return ExperimentNumber(names[i]) < ExperimentNumber(names[j])
	})
	if limit > 0 && len(names) > limit {
		names = names[:limit]
	}
	return names, nil
}

type LogFile struct {
	Path  string
	Exist bool
}

//ExperimentFiles is the set of log files of one supervised experiment
type ExperimentFiles struct {
	Dir   string
	Bot   LogFile
	Logs  map[Log]LogFile
	Order []Log
}

var ExperimentLogs = []Log{
	LogTCPComplete, LogTCPPeriodic,
	LogUDPComplete, LogUDPPeriodic,
	LogHARComplete, LogVideoComplete, LogAudioComplete,
}

func checkfile(path string) LogFile {
	st, err := os.Stat(path)
	return LogFile{Path: path, Exist: err == nil && st.Mode().IsRegular()}
}

//CheckDataFiles reports which log files exist in an experiment directory
func CheckDataFiles(dir string) (*ExperimentFiles, error) {
	st, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}
	ef := &ExperimentFiles{Dir: dir, Logs: make(map[Log]LogFile), Order: ExperimentLogs}
	ef.Bot = checkfile(filepath.Join(dir, LogBotComplete))
	for _, lg := range ExperimentLogs {
		ef.Logs[lg] = checkfile(filepath.Join(dir, lg.FileName()))
	}
	return ef, nil
}
