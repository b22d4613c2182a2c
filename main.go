package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"streamtrace/common"
	"streamtrace/config"
	"streamtrace/logger"
	"streamtrace/report"
	"streamtrace/samples"
	"streamtrace/savedata"
	"streamtrace/session"
)

func main() {
	var configpath, datapath, step, protos, mode, rate, experiment, cnames, format string
	nworkers := 0
	flag.StringVar(&configpath, "config", "", "ini configuration file")
	flag.StringVar(&datapath, "path", "", "data path, overrides data_root")
	flag.IntVar(&nworkers, "worker", nworkers, "number of workers, overrides workers")
	flag.StringVar(&step, "step", "", "sample step directory, overrides step")
	flag.StringVar(&protos, "proto", "tcp,udp", "comma separated transport protocols to compare")
	flag.StringVar(&mode, "mode", "compare", "compare, experiment or cnames")
	flag.StringVar(&rate, "rate", "1500", "rate condition of the experiment")
	flag.StringVar(&experiment, "experiment", "test-1", "experiment name, or all")
	flag.StringVar(&cnames, "cnames", "", "comma separated cnames to annotate, empty for all")
	flag.StringVar(&format, "format", "json", "json or csv")
	flag.Parse()

	cfg, err := config.New(configpath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if datapath != "" {
		cfg.DataRoot = datapath
	}
	if nworkers > 0 {
		cfg.Workers = nworkers
	}
	if step != "" {
		cfg.Step = step
	}
	log := logger.New(os.Stderr, "streamtrace", cfg.LogLevel)

	reg := prometheus.NewRegistry()
	analyzer, err := newAnalyzer(cfg, log, reg)
	if err != nil {
		log.Error("setup failed", "err", err)
		os.Exit(2)
	}

	switch mode {
	case "compare":
		err = runCompare(analyzer, protos, format)
	case "experiment":
		err = runExperiment(analyzer, common.RateCondition(strings.TrimSuffix(rate, "kbits")), experiment, cnames, format)
	case "cnames":
		err = runCnames(cfg, format)
	default:
		err = fmt.Errorf("unknown mode %q", mode)
	}
	logMetrics(log, reg)
	if err != nil {
		log.Error("analysis failed", "mode", mode, "err", err)
		os.Exit(1)
	}
	log.Info("Complete", "mode", mode)
}

func newAnalyzer(cfg config.Config, log *slog.Logger, reg prometheus.Registerer) (*report.Analyzer, error) {
	seg, err := session.NewSegmenter(cfg.ExcludeEvents, log)
	if err != nil {
		return nil, err
	}
	loader := samples.NewLoader(samples.LoaderConfig{
		Layout:   cfg.Layout(),
		Rates:    cfg.Rates,
		MaxFiles: cfg.MaxFiles,
		Workers:  cfg.Workers,
	}, log, reg)
	cache := samples.NewCache(loader, cfg.CacheTTL, samples.WithLogger(log), samples.WithRegisterer(reg))
	return &report.Analyzer{
		Samples:   cache,
		Layout:    cfg.Layout(),
		ResDir:    cfg.ResDir,
		Step:      cfg.Step,
		Bucket:    cfg.Bucket,
		Segmenter: seg,
		Workers:   cfg.Workers,
		MaxFiles:  cfg.MaxFiles,
		Logger:    log,
	}, nil
}

func splitList(s string) []string {
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

func runCompare(a *report.Analyzer, protos string, format string) error {
	var ps []common.Protocol
	for _, s := range splitList(protos) {
		p, err := common.ParseProtocol(s)
		if err != nil {
			return err
		}
		ps = append(ps, p)
	}
	cmp, err := a.Compare(ps)
	if err != nil {
		return err
	}
	if format == "csv" {
		return savedata.SaveComparison(os.Stdout, cmp)
	}
	return savedata.SaveJSON(os.Stdout, cmp)
}

func runExperiment(a *report.Analyzer, rate common.RateCondition, experiment, cnames, format string) error {
	var sel report.Selection
	if picked := splitList(cnames); len(picked) > 0 {
		sel = report.Selection{TCP: picked, UDP: picked}
	}
	names := []string{experiment}
	if experiment == "all" {
		var err error
		if names, err = a.ListExperiments(rate); err != nil {
			return err
		}
	}
	views, err := a.Experiments(rate, names, sel)
	if err != nil && len(names) == 1 {
		return err
	}
	if err != nil {
		//keep the experiments that could be read
		a.Logger.Warn("some experiments failed", "rate", rate, "err", err)
	}
	if format == "csv" {
		return savedata.SaveTimelines(os.Stdout, views)
	}
	return savedata.SaveJSON(os.Stdout, views)
}

func runCnames(cfg config.Config, format string) error {
	rep, err := report.CnameFrequency(cfg.ResDir, cfg.Server)
	if err != nil {
		return err
	}
	if format == "csv" {
		return savedata.SaveCnames(os.Stdout, rep)
	}
	return savedata.SaveJSON(os.Stdout, rep)
}

func logMetrics(log *slog.Logger, g prometheus.Gatherer) {
	mfs, err := g.Gather()
	if err != nil {
		log.Warn("gather metrics", "err", err)
		return
	}
	for _, mf := range mfs {
		var total float64
		for _, m := range mf.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				total += m.GetCounter().GetValue()
			case m.GetHistogram() != nil:
				total += float64(m.GetHistogram().GetSampleCount())
			}
		}
		log.Debug("metric", "name", mf.GetName(), "total", total)
	}
}
