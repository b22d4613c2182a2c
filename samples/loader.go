package samples

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"streamtrace/common"
	"streamtrace/tracelog"
)

// RateSample is the sample set of one rate condition.
type RateSample struct {
	Rate    common.RateCondition
	Samples *tracelog.Table
	Files   []string
}

type LoaderConfig struct {
	Layout   common.Layout
	Rates    []common.RateCondition
	MaxFiles int
	Workers  int
}

// Loader reads the per-rate sample files of a service dataset.
type Loader struct {
	cfg     LoaderConfig
	logger  *slog.Logger
	metrics *loaderMetrics
}

func NewLoader(cfg LoaderConfig, logger *slog.Logger, reg prometheus.Registerer) *Loader {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{cfg: cfg, logger: logger, metrics: newLoaderMetrics(reg)}
}

// SampleFiles lists the sample files of one selection in file name order and
// keeps the first MaxFiles of them.
func (l *Loader) SampleFiles(rate common.RateCondition, proto common.Protocol, media bool, step string) ([]string, error) {
	dir := l.cfg.Layout.SampleDir(rate, proto, media, step)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", tracelog.ErrDataUnavailable, err)
	}
	var files []string
	for _, e := range entries {
		if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no sample files in %s", tracelog.ErrDataUnavailable, dir)
	}
	if l.cfg.MaxFiles > 0 && len(files) > l.cfg.MaxFiles {
		files = files[:l.cfg.MaxFiles]
	}
	return files, nil
}

// Load parses the sample files of one rate condition concurrently and returns
// their concatenation in listing order. Any failing file fails the whole load.
func (l *Loader) Load(rate common.RateCondition, proto common.Protocol, media bool, step string) (RateSample, error) {
	files, err := l.SampleFiles(rate, proto, media, step)
	if err != nil {
		return RateSample{}, err
	}
	start := time.Now()
	tables := make([]*tracelog.Table, len(files))
	var g errgroup.Group
	g.SetLimit(l.cfg.Workers)
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			t, err := tracelog.ReadTable(f)
			if err != nil {
				return err
			}
			tables[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return RateSample{}, err
	}
	labels := prometheus.Labels{"protocol": proto.String(), "category": common.Category(media)}
	l.metrics.filesLoaded.With(labels).Add(float64(len(files)))
	l.metrics.loadDuration.With(labels).Observe(time.Since(start).Seconds())
	return RateSample{Rate: rate, Samples: tracelog.Concat(tables...), Files: files}, nil
}

// LoadRates loads every configured rate condition in order. A rate without
// data is left out of the result; a malformed file fails the call.
func (l *Loader) LoadRates(step string, proto common.Protocol, media bool) ([]RateSample, error) {
	out := make([]RateSample, 0, len(l.cfg.Rates))
	for _, rate := range l.cfg.Rates {
		rs, err := l.Load(rate, proto, media, step)
		if errors.Is(err, tracelog.ErrDataUnavailable) {
			l.logger.Warn("no samples for rate condition",
				"rate", string(rate), "protocol", proto.String(), "category", common.Category(media), "step", step, "error", err)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("rate %s: %w", rate, err)
		}
		l.logger.Debug("samples loaded", "rate", string(rate), "protocol", proto.String(),
			"category", common.Category(media), "files", len(rs.Files), "rows", rs.Samples.Len())
		out = append(out, rs)
	}
	return out, nil
}
