package qc

import (
	"fmt"
	"log"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/studymetab/metaboqc/matrix"
)

// Residualize regresses every metabolite on the medication-class indicator
// covariates by ordinary least squares and replaces its values with the
// regression residuals scaled to unit variance. Participants with missing
// covariate data are excluded from each fit and left missing in the output,
// but stay in the matrix. A rank-deficient design, such as every fitted
// participant sharing the same indicator value, is a fatal
// ComputationError.
func Residualize(d *matrix.Dataset) (*matrix.Dataset, error) {
	classes := covariateClasses(d)
	if len(classes) == 0 {
		return nil, ComputationError{Op: "residualize", Reason: "no medication covariate data loaded"}
	}

	log.Println("=== Residualizing against", len(classes), "medication classes ===")

	out := d.Clone()
	samples := out.Samples()

	for _, name := range out.MetaboliteNames() {
		col, err := out.Column(name)
		if err != nil {
			return nil, err
		}

		// Fit rows: value observed and covariates present.
		fit := []int{}
		for i, v := range col {
			if !matrix.IsMissing(v) && samples[i].Meds != nil {
				fit = append(fit, i)
			}
		}
		if len(fit) <= len(classes)+1 {
			return nil, ComputationError{
				Op:     "residualize",
				Reason: fmt.Sprintf("metabolite %s: %d usable participants for %d covariates", name, len(fit), len(classes)),
			}
		}

		x := mat.NewDense(len(fit), len(classes)+1, nil)
		y := mat.NewVecDense(len(fit), nil)
		for r, i := range fit {
			x.Set(r, 0, 1)
			for c, class := range classes {
				x.Set(r, c+1, float64(samples[i].Meds[class]))
			}
			y.SetVec(r, col[i])
		}

		for c, class := range classes {
			if constantColumn(x, c+1) {
				return nil, ComputationError{
					Op:     "residualize",
					Reason: fmt.Sprintf("metabolite %s: covariate %s is constant across fitted participants", name, class),
				}
			}
		}

		var beta mat.VecDense
		if err := beta.SolveVec(x, y); err != nil {
			return nil, ComputationError{
				Op:     "residualize",
				Reason: fmt.Sprintf("metabolite %s: design matrix is rank deficient: %v", name, err),
			}
		}

		var fitted mat.VecDense
		fitted.MulVec(x, &beta)

		resid := make([]float64, len(fit))
		for r := range fit {
			resid[r] = y.AtVec(r) - fitted.AtVec(r)
		}

		sd := stat.StdDev(resid, nil)
		if sd == 0 {
			log.Println("Metabolite", name, "is fully explained by covariates; residuals left unscaled")
			sd = 1
		}

		// Rows excluded from the fit become missing: a value that cannot
		// have its covariate effect removed is not comparable to the
		// residualized ones.
		for i := range col {
			col[i] = matrix.Missing
		}
		for r, i := range fit {
			col[i] = resid[r] / sd
		}

		if err := out.SetColumn(name, col); err != nil {
			return nil, err
		}
	}

	return out, nil
}

// covariateClasses returns the union of medication-class names across all
// samples, sorted for a deterministic design-matrix column order.
func covariateClasses(d *matrix.Dataset) []string {
	set := make(map[string]struct{})
	for _, s := range d.Samples() {
		for class := range s.Meds {
			set[class] = struct{}{}
		}
	}
	classes := make([]string, 0, len(set))
	for class := range set {
		classes = append(classes, class)
	}
	sort.Strings(classes)
	return classes
}

func constantColumn(x *mat.Dense, col int) bool {
	rows, _ := x.Dims()
	first := x.At(0, col)
	for r := 1; r < rows; r++ {
		if x.At(r, col) != first {
			return false
		}
	}
	return true
}
