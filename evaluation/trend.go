package evaluation

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"gonum.org/v1/plot/plotter"

	"streamtrace/common"
	"streamtrace/samples"
	"streamtrace/tracelog"
)

var ErrInvalidStep = errors.New("evaluation: bucket step must be at least 1ms")

//Series is the aggregated trend of one metric under one rate condition.
//X is the bucket start in Unix seconds, Y the aggregated value.
type Series struct {
	Rate   common.RateCondition `json:"rate"`
	Label  string               `json:"label"`
	Metric string               `json:"metric"`
	Step   time.Duration        `json:"step"`
	Points plotter.XYs          `json:"points"`
}

func (s Series) Len() int { return len(s.Points) }

func (s Series) Time(i int) time.Time {
	return time.UnixMilli(int64(math.Round(s.Points[i].X * 1000))).UTC()
}

type bucket struct {
	sum float64
	n   int
}

//MeanTrend groups the records into buckets of step width on timeCol
//(milliseconds since the epoch) and averages metricCol in each bucket.
//Zero values do not contribute, neither do NaN values or rows without a timestamp.
//A bucket nothing contributed to is not emitted.
func MeanTrend(rate common.RateCondition, records *tracelog.Table, timeCol, metricCol string, step time.Duration) (Series, error) {
	if step < time.Millisecond {
		return Series{}, ErrInvalidStep
	}
	ts, err := records.Floats(timeCol)
	if err != nil {
		return Series{}, err
	}
	values, err := records.Floats(metricCol)
	if err != nil {
		return Series{}, err
	}
	stepms := float64(step.Milliseconds())
	buckets := make(map[int64]*bucket)
	for i, v := range values {
		if v == 0 || math.IsNaN(v) || math.IsNaN(ts[i]) || math.IsInf(ts[i], 0) {
			continue
		}
		k := int64(math.Floor(ts[i] / stepms))
		b, ok := buckets[k]
		if !ok {
			b = &bucket{}
			buckets[k] = b
		}
		b.sum += v
		b.n++
	}
	keys := maps.Keys(buckets)
	slices.Sort(keys)
	points := make(plotter.XYs, 0, len(keys))
	for _, k := range keys {
		b := buckets[k]
		mean := b.sum / float64(b.n)
		if math.IsNaN(mean) || math.IsInf(mean, 0) {
			continue
		}
		points = append(points, plotter.XY{X: float64(k) * stepms / 1000, Y: mean})
	}
	return Series{Rate: rate, Label: rate.Label(), Metric: metricCol, Step: step, Points: points}, nil
}

//MeanTrends runs MeanTrend on every rate sample, keeping rate order.
//A rate whose samples lack the metric is left out.
func MeanTrends(rates []samples.RateSample, timeCol, metricCol string, step time.Duration, logger *slog.Logger) ([]Series, error) {
	if logger == nil {
		logger = slog.Default()
	}
	out := make([]Series, 0, len(rates))
	for _, rs := range rates {
		s, err := MeanTrend(rs.Rate, rs.Samples, timeCol, metricCol, step)
		if errors.Is(err, tracelog.ErrUnknownColumn) {
			logger.Warn("metric missing for rate", "rate", string(rs.Rate), "metric", metricCol, "error", err)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("rate %s: %w", rs.Rate, err)
		}
		out = append(out, s)
	}
	return out, nil
}

//StepTrend draws one horizontal segment per row, (start, v) to (end, v),
//in row order. Times are converted from milliseconds to seconds.
//Rows with a non-finite time or value are left out.
func StepTrend(records *tracelog.Table, startCol, endCol, valueCol string) (plotter.XYs, error) {
	xs, err := records.Floats(startCol)
	if err != nil {
		return nil, err
	}
	xe, err := records.Floats(endCol)
	if err != nil {
		return nil, err
	}
	ys, err := records.Floats(valueCol)
	if err != nil {
		return nil, err
	}
	steps := make(plotter.XYs, 0, 2*len(ys))
	for i, y := range ys {
		if !finite(y) || !finite(xs[i]) || !finite(xe[i]) {
			continue
		}
		steps = append(steps,
			plotter.XY{X: xs[i] / 1000, Y: y},
			plotter.XY{X: xe[i] / 1000, Y: y})
	}
	return steps, nil
}
