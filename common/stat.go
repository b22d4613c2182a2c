package common

import (
	"cmp"
	"math"

	"golang.org/x/exp/slices"
	"gonum.org/v1/plot/plotter"
)

//ECDF returns the empirical cumulative distribution of samples: the i-th smallest
//value (1-indexed) gets probability i/n. Ties keep distinct, increasing probabilities.
//Non-finite samples do not belong to the distribution and are left out of n.
//The input slice is not modified.
func ECDF(samples []float64) plotter.XYs {
	values := make([]float64, 0, len(samples))
	for _, s := range samples {
		if !math.IsNaN(s) && !math.IsInf(s, 0) {
			values = append(values, s)
		}
	}
	slices.SortStableFunc(values, cmp.Compare[float64])
	n := len(values)
	ecdfs := make(plotter.XYs, n)
	for i := 0; i < n; i++ {
		ecdfs[i].X = values[i]
		ecdfs[i].Y = float64(i+1) / float64(n)
	}
	return ecdfs
}
