package qc

import (
	"gonum.org/v1/gonum/stat"

	"github.com/studymetab/metaboqc/matrix"
)

// finite returns the non-missing values of xs.
func finite(xs []float64) []float64 {
	out := make([]float64, 0, len(xs))
	for _, v := range xs {
		if !matrix.IsMissing(v) {
			out = append(out, v)
		}
	}
	return out
}

// missingFraction is the proportion of missing cells in xs.
func missingFraction(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	n := 0
	for _, v := range xs {
		if matrix.IsMissing(v) {
			n++
		}
	}
	return float64(n) / float64(len(xs))
}

// meanStdDev is stat.MeanStdDev over the non-missing values. With fewer
// than two observations the standard deviation is reported as 0.
func meanStdDev(xs []float64) (mean, sd float64, n int) {
	obs := finite(xs)
	if len(obs) == 0 {
		return 0, 0, 0
	}
	if len(obs) == 1 {
		return obs[0], 0, 1
	}
	mean, sd = stat.MeanStdDev(obs, nil)
	return mean, sd, len(obs)
}
