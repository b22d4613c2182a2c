package evaluation

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot/plotter"

	"streamtrace/common"
	"streamtrace/samples"
	"streamtrace/tracelog"
)

//Distribution is the empirical CDF of one metric under one rate condition,
//X the value and Y the cumulative probability.
type Distribution struct {
	Rate   common.RateCondition `json:"rate"`
	Label  string               `json:"label"`
	Metric string               `json:"metric"`
	Points plotter.XYs          `json:"points"`
}

//Summary holds the median and the 95th percentile of a distribution
type Summary struct {
	Rate  common.RateCondition `json:"rate"`
	Label string               `json:"label"`
	P50   float64              `json:"p50"`
	P95   float64              `json:"p95"`
}

func (d Distribution) Len() int { return len(d.Points) }

//Quantile returns the value at cumulative probability p, NaN for an empty distribution.
func (d Distribution) Quantile(p float64) float64 {
	if len(d.Points) == 0 {
		return math.NaN()
	}
	xs := make([]float64, len(d.Points))
	for i, pt := range d.Points {
		xs[i] = pt.X
	}
	return stat.Quantile(p, stat.Empirical, xs, nil)
}

//Summary is false for an empty distribution
func (d Distribution) Summary() (Summary, bool) {
	if len(d.Points) == 0 {
		return Summary{}, false
	}
	return Summary{Rate: d.Rate, Label: d.Rate.Label(), P50: d.Quantile(0.5), P95: d.Quantile(0.95)}, true
}

//Summaries keeps the order of dists and skips the empty ones
func Summaries(dists []Distribution) []Summary {
	out := make([]Summary, 0, len(dists))
	for _, d := range dists {
		if s, ok := d.Summary(); ok {
			out = append(out, s)
		}
	}
	return out
}

func CDF(rate common.RateCondition, records *tracelog.Table, metric string) (Distribution, error) {
	values, err := records.Floats(metric)
	if err != nil {
		return Distribution{}, err
	}
	return Distribution{Rate: rate, Label: rate.Label(), Metric: metric, Points: common.ECDF(values)}, nil
}

//CDFs builds one distribution per rate sample, keeping rate order.
//A rate whose samples lack the metric is left out.
func CDFs(rates []samples.RateSample, metric string, logger *slog.Logger) ([]Distribution, error) {
	if logger == nil {
		logger = slog.Default()
	}
	out := make([]Distribution, 0, len(rates))
	for _, rs := range rates {
		d, err := CDF(rs.Rate, rs.Samples, metric)
		if errors.Is(err, tracelog.ErrUnknownColumn) {
			logger.Warn("metric missing for rate", "rate", string(rs.Rate), "metric", metric, "error", err)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("rate %s: %w", rs.Rate, err)
		}
		out = append(out, d)
	}
	return out, nil
}
