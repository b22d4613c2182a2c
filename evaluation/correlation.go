package evaluation

import (
	"encoding/json"
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

//PointSet pairs two metrics of the same records, one point per record.
type PointSet struct {
	Rate   common.RateCondition `json:"rate"`
	Label  string               `json:"label"`
	X      string               `json:"x"`
	Y      string               `json:"y"`
	Points plotter.XYs          `json:"points"`
}

func (p PointSet) Len() int { return len(p.Points) }

//Pearson returns the correlation coefficient over the points whose coordinates
//are both finite, NaN when fewer than two remain.
func (p PointSet) Pearson() float64 {
	xs := make([]float64, 0, len(p.Points))
	ys := make([]float64, 0, len(p.Points))
	for _, pt := range p.Points {
		if finite(pt.X) && finite(pt.Y) {
			xs = append(xs, pt.X)
			ys = append(ys, pt.Y)
		}
	}
	if len(xs) < 2 {
		return math.NaN()
	}
	return stat.Correlation(xs, ys, nil)
}

//Finite returns the points whose coordinates are both finite.
func (p PointSet) Finite() plotter.XYs {
	pts := make(plotter.XYs, 0, len(p.Points))
	for _, pt := range p.Points {
		if finite(pt.X) && finite(pt.Y) {
			pts = append(pts, pt)
		}
	}
	return pts
}

//MarshalJSON leaves out the points JSON cannot represent
func (p PointSet) MarshalJSON() ([]byte, error) {
	type pointSet PointSet
	out := pointSet(p)
	out.Points = p.Finite()
	return json.Marshal(out)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

//Correlate projects every record onto (xCol, yCol), no filtering.
func Correlate(rate common.RateCondition, records *tracelog.Table, xCol, yCol string) (PointSet, error) {
	xs, err := records.Floats(xCol)
	if err != nil {
		return PointSet{}, err
	}
	ys, err := records.Floats(yCol)
	if err != nil {
		return PointSet{}, err
	}
	pts := make(plotter.XYs, len(xs))
	for i := range xs {
		pts[i].X = xs[i]
		pts[i].Y = ys[i]
	}
	return PointSet{Rate: rate, Label: rate.Label(), X: xCol, Y: yCol, Points: pts}, nil
}

func Correlations(rates []samples.RateSample, xCol, yCol string, logger *slog.Logger) ([]PointSet, error) {
	if logger == nil {
		logger = slog.Default()
	}
	out := make([]PointSet, 0, len(rates))
	for _, rs := range rates {
		p, err := Correlate(rs.Rate, rs.Samples, xCol, yCol)
		if errors.Is(err, tracelog.ErrUnknownColumn) {
			logger.Warn("metric missing for rate", "rate", string(rs.Rate), "x", xCol, "y", yCol, "error", err)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("rate %s: %w", rs.Rate, err)
		}
		out = append(out, p)
	}
	return out, nil
}
