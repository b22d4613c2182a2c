package report

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"gonum.org/v1/plot/plotter"

	"streamtrace/common"
	"streamtrace/evaluation"
	"streamtrace/httplog"
	"streamtrace/session"
	"streamtrace/timeline"
	"streamtrace/tracelog"
	"streamtrace/tstat"
)

//ExperimentView is everything shown for one supervised experiment
type ExperimentView struct {
	RequestID string                 `json:"request_id"`
	Rate      common.RateCondition   `json:"rate"`
	Name      string                 `json:"name"`
	Periods   []session.Period       `json:"periods"`
	Unpaired  *tracelog.Event        `json:"unpaired,omitempty"`
	Timelines []*timeline.Timeline   `json:"timelines"`
	Briefing  []session.Briefing     `json:"briefing"`
	Mimes     []string               `json:"mimes,omitempty"`
	Bitrates  map[string]plotter.XYs `json:"bitrates,omitempty"`
	Missing   []string               `json:"missing,omitempty"`
}

//Selection holds the cnames picked per transport protocol; a nil list picks
//every cname of the complete log
type Selection struct {
	TCP []string
	UDP []string
}

func (s Selection) cnames(p common.Protocol) []string {
	if p == common.UDP {
		return s.UDP
	}
	return s.TCP
}

//Experiment loads one test-N directory and annotates all of its logs
func (a *Analyzer) Experiment(rate common.RateCondition, name string, sel Selection) (*ExperimentView, error) {
	id := NewRequestID()
	log := a.logger(id).With("rate", string(rate), "experiment", name)
	exp, err := session.LoadExperiment(a.Layout, rate, name, log)
	if err != nil {
		return nil, err
	}
	view := &ExperimentView{RequestID: id, Rate: rate, Name: name, Timelines: []*timeline.Timeline{}}

	var seg *session.Segmentation
	if exp.Events != nil {
		segmenter := a.Segmenter
		if segmenter == nil {
			if segmenter, err = session.NewSegmenter(session.DefaultExclude, log); err != nil {
				return nil, err
			}
		}
		s := segmenter.Segment(exp.Events)
		seg = &s
		view.Periods = s.Periods
		view.Unpaired = s.Unpaired
	} else {
		view.Missing = append(view.Missing, common.LogBotComplete)
	}

	for _, p := range []common.Protocol{common.TCP, common.UDP} {
		complete := common.Log{Doc: common.FlowComplete, Proto: p}
		periodic := common.Log{Doc: common.FlowPeriodic, Proto: p}
		cnames := sel.cnames(p)
		if cnames == nil && exp.Table(complete) != nil {
			if cnames, err = tstat.Cnames(exp.Table(complete)); err != nil {
				return nil, fmt.Errorf("%s: %w", complete, err)
			}
		}
		for _, l := range []common.Log{complete, periodic} {
			if err := view.annotate(exp, l, cnames, seg); err != nil {
				return nil, err
			}
		}
	}
	if err := view.annotate(exp, common.LogHARComplete, httplog.MediaMimes, seg); err != nil {
		return nil, err
	}
	for _, l := range []common.Log{common.LogVideoComplete, common.LogAudioComplete} {
		if t := exp.Table(l); t != nil && t.Has(httplog.Mime) {
			if err := view.annotate(exp, l, []string{string(l.Media)}, seg); err != nil {
				return nil, err
			}
		}
	}

	har := exp.Table(common.LogHARComplete)
	if har != nil && har.Has(httplog.Mime) {
		//offered as mime filter choices
		if view.Mimes, err = httplog.Mimes(har); err != nil {
			return nil, err
		}
	}
	if har != nil && seg != nil {
		media, err := httplog.SelectMimes(har, httplog.MediaMimes)
		if err != nil {
			return nil, err
		}
		if view.Briefing, err = session.Brief(seg.Periods, media, httplog.Start, httplog.Mime, session.DefaultCategories); err != nil {
			return nil, err
		}
	}
	view.bitrates(exp, log)
	log.Info("experiment annotated", "timelines", len(view.Timelines), "periods", len(view.Periods), "missing", len(view.Missing))
	return view, nil
}

func (v *ExperimentView) annotate(exp *session.Experiment, l common.Log, filter []string, seg *session.Segmentation) error {
	records := exp.Table(l)
	if records == nil {
		v.Missing = append(v.Missing, l.FileName())
		return nil
	}
	tl, err := timeline.Annotate(timeline.Request{
		Records:  records,
		Document: l.Doc,
		Protocol: l.Proto,
		Filter:   filter,
		Session:  seg,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", l, err)
	}
	v.Timelines = append(v.Timelines, tl)
	return nil
}

//bitrates traces the per response bitrate steps of the media logs
func (v *ExperimentView) bitrates(exp *session.Experiment, log *slog.Logger) {
	for l, col := range map[common.Log]string{
		common.LogVideoComplete: httplog.VideoBitrate,
		common.LogAudioComplete: httplog.AudioBitrate,
	} {
		t := exp.Table(l)
		if t == nil {
			continue
		}
		steps, err := evaluation.StepTrend(t, httplog.Start, httplog.End, col)
		if err != nil {
			log.Warn("no bitrate trend", "log", l.FileName(), "error", err)
			continue
		}
		if v.Bitrates == nil {
			v.Bitrates = make(map[string]plotter.XYs)
		}
		v.Bitrates[string(l.Media)] = steps
	}
}

//Experiments analyzes several experiments of one rate, at most workers at a time.
//Views keep the order of names; failed experiments are nil and their errors joined.
func (a *Analyzer) Experiments(rate common.RateCondition, names []string, sel Selection) ([]*ExperimentView, error) {
	nworkers := a.Workers
	if nworkers <= 0 {
		nworkers = 1
	}
	workerchan := make(chan int, nworkers)
	var wg sync.WaitGroup
	views := make([]*ExperimentView, len(names))
	errs := make([]error, len(names))
	for i, name := range names {
		workerchan <- 1
		wg.Add(1)
		go func(i int, name string) {
			defer func() {
				<-workerchan
				wg.Done()
			}()
			views[i], errs[i] = a.Experiment(rate, name, sel)
			if errs[i] != nil {
				errs[i] = fmt.Errorf("%s: %w", name, errs[i])
			}
		}(i, name)
	}
	wg.Wait()
	return views, errors.Join(errs...)
}
