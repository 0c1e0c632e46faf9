package qc

import (
	"fmt"
	"log"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/studymetab/metaboqc/matrix"
)

// Winsorize caps every value sitting more than nSD standard deviations from
// its column mean to exactly the nSD boundary, in both tails. The mean and
// standard deviation are computed once, on the pre-winsorize non-missing
// values. No values become missing.
func Winsorize(d *matrix.Dataset, nSD float64) (*matrix.Dataset, error) {
	log.Println("=== Winsorizing values beyond", nSD, "standard deviations ===")

	out := d.Clone()
	capped := 0
	for _, name := range out.MetaboliteNames() {
		col, err := out.Column(name)
		if err != nil {
			return nil, err
		}
		mean, sd, n := meanStdDev(col)
		if n < 2 || sd == 0 {
			continue
		}
		lo, hi := mean-nSD*sd, mean+nSD*sd

		changed := false
		for i, v := range col {
			if matrix.IsMissing(v) {
				continue
			}
			if v < lo {
				col[i] = lo
				capped++
				changed = true
			} else if v > hi {
				col[i] = hi
				capped++
				changed = true
			}
		}
		if changed {
			if err := out.SetColumn(name, col); err != nil {
				return nil, err
			}
		}
	}
	log.Println("Capped", capped, "values")

	return out, nil
}

// RemoveMultivariateOutliers drops participants whose squared Mahalanobis
// distance from the metabolite-space centroid exceeds the chi-squared
// critical value at tail probability alpha, with degrees of freedom equal
// to the metabolite count.
//
// Policy choices, stated explicitly:
//   - Participants with any missing cell cannot be placed in metabolite
//     space; they are excluded from the distance computation and retained.
//   - A singular covariance matrix is an error, not a pseudo-inverse
//     fallback: with a pseudo-inverse the distances no longer follow the
//     chi-squared reference distribution the threshold comes from. Mild
//     ill-conditioning is absorbed by one ridge-regularization retry first.
func RemoveMultivariateOutliers(d *matrix.Dataset, alpha float64) (*matrix.Dataset, error) {
	p := d.NMetabolites()
	if p == 0 || d.NSamples() == 0 {
		return nil, ComputationError{Op: "outlier removal", Reason: "empty input"}
	}

	log.Println("=== Removing multivariate outliers at alpha", alpha, "===")

	keys := d.SampleKeys()
	complete := []int{}
	rows := make([][]float64, 0, len(keys))
	for i, key := range keys {
		row, err := d.Row(key)
		if err != nil {
			return nil, err
		}
		if len(finite(row)) == len(row) {
			complete = append(complete, i)
			rows = append(rows, row)
		}
	}

	n := len(rows)
	if skipped := len(keys) - n; skipped > 0 {
		log.Println("Excluding", skipped, "participants with incomplete profiles from distance computation")
	}
	if p > n-1 {
		return nil, ComputationError{
			Op:     "outlier removal",
			Reason: fmt.Sprintf("covariance not invertible with %d metabolites and %d complete participants (need metabolites <= participants-1)", p, n),
		}
	}

	x := mat.NewDense(n, p, nil)
	for i, row := range rows {
		x.SetRow(i, row)
	}

	centroid := make([]float64, p)
	for j := 0; j < p; j++ {
		centroid[j] = stat.Mean(mat.Col(nil, j, x), nil)
	}

	var cov mat.SymDense
	stat.CovarianceMatrix(&cov, x, nil)

	var chol mat.Cholesky
	if ok := chol.Factorize(&cov); !ok {
		// Ridge retry for near-singular covariance.
		tr := 0.0
		for j := 0; j < p; j++ {
			tr += cov.At(j, j)
		}
		ridge := 1e-8 * tr / float64(p)
		for j := 0; j < p; j++ {
			cov.SetSym(j, j, cov.At(j, j)+ridge)
		}
		if ok := chol.Factorize(&cov); !ok {
			return nil, ComputationError{Op: "outlier removal", Reason: "singular covariance matrix"}
		}
		log.Println("Covariance near-singular; applied ridge regularization", ridge)
	}

	threshold := distuv.ChiSquared{K: float64(p)}.Quantile(1 - alpha)

	mu := mat.NewVecDense(p, centroid)
	drop := []matrix.SampleKey{}
	for i, rowIdx := range complete {
		dist := stat.Mahalanobis(mat.NewVecDense(p, rows[i]), mu, &chol)
		if d2 := dist * dist; d2 > threshold {
			drop = append(drop, keys[rowIdx])
			log.Printf("Dropping participant %v (squared distance %.2f > %.2f)\n", keys[rowIdx], d2, threshold)
		}
	}
	log.Println("Dropped", len(drop), "of", d.NSamples(), "participants")

	return d.DropSamples(drop), nil
}
