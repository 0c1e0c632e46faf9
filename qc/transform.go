package qc

import (
	"log"
	"math"

	"github.com/studymetab/metaboqc/matrix"
)

// Log2 replaces every positive concentration with its base-2 logarithm.
// Non-positive values can only occur through sentinel substitution upstream
// and become missing rather than an error.
func Log2(d *matrix.Dataset) (*matrix.Dataset, error) {
	log.Println("=== Applying log2 transform ===")

	out := d.Clone()
	nonpositive := 0
	for _, name := range out.MetaboliteNames() {
		col, err := out.Column(name)
		if err != nil {
			return nil, err
		}
		for i, v := range col {
			if matrix.IsMissing(v) {
				continue
			}
			if v <= 0 {
				col[i] = matrix.Missing
				nonpositive++
				continue
			}
			col[i] = math.Log2(v)
		}
		if err := out.SetColumn(name, col); err != nil {
			return nil, err
		}
	}
	if nonpositive > 0 {
		log.Println("Marked", nonpositive, "non-positive values as missing")
	}

	return out, nil
}

// ZScore standardizes every metabolite column to mean 0 and standard
// deviation 1 over its non-missing cells. A zero-variance column is left
// unchanged and flagged in the metabolite metadata instead of dividing
// by zero.
func ZScore(d *matrix.Dataset) (*matrix.Dataset, error) {
	log.Println("=== Applying z-score standardization ===")

	out := d.Clone()
	flagged := 0
	for _, name := range out.MetaboliteNames() {
		col, err := out.Column(name)
		if err != nil {
			return nil, err
		}
		mean, sd, n := meanStdDev(col)
		if n == 0 {
			continue
		}
		if sd == 0 {
			flagged++
			if err := out.UpdateMetabolite(name, func(m *matrix.Metabolite) {
				m.ZeroVariance = true
			}); err != nil {
				return nil, err
			}
			log.Println("Metabolite", name, "has zero variance; left unstandardized")
			continue
		}
		for i, v := range col {
			if matrix.IsMissing(v) {
				continue
			}
			col[i] = (v - mean) / sd
		}
		if err := out.SetColumn(name, col); err != nil {
			return nil, err
		}
	}
	if flagged > 0 {
		log.Println("Flagged", flagged, "zero-variance metabolites")
	}

	return out, nil
}
