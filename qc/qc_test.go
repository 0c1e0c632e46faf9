package qc

import (
	"testing"

	"github.com/studymetab/metaboqc/matrix"
)

// newDataset builds a cohort-"T" dataset from column-major values:
// values[j][i] is metabolite j's concentration for participant i.
func newDataset(t *testing.T, ids []string, mets []string, values [][]float64) *matrix.Dataset {
	t.Helper()

	seen := map[string]int{}
	samples := make([]matrix.Sample, len(ids))
	for i, id := range ids {
		samples[i] = matrix.Sample{
			Key:     matrix.SampleKey{ID: id, Cohort: "T", Rep: seen[id]},
			Fasting: -1,
		}
		seen[id]++
	}

	metabolites := make([]matrix.Metabolite, len(mets))
	for j, name := range mets {
		metabolites[j] = matrix.Metabolite{Name: name, Method: "UPLC", LOD: matrix.Missing}
	}

	d, err := matrix.New(samples, metabolites)
	if err != nil {
		t.Fatal(err)
	}

	for j, name := range mets {
		if err := d.SetColumn(name, values[j]); err != nil {
			t.Fatal(err)
		}
	}

	return d
}

// ids returns n distinct participant identifiers.
func idList(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = string(rune('A' + i%26))
		if i >= 26 {
			out[i] += string(rune('0' + i/26))
		}
	}
	return out
}
