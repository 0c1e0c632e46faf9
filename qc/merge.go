package qc

import (
	"log"

	"github.com/carbocation/pfx"

	"github.com/studymetab/metaboqc/matrix"
)

// Merge outer-joins datasets from multiple cohorts or platforms on the
// canonical metabolite names and participant keys. Metabolites present in
// only some inputs are retained, with missing cells for the participants of
// the other inputs. The same participant key appearing in more than one
// input is an identity conflict: participants are only mergeable when a
// cohort qualifier tells their rows apart.
func Merge(inputs ...*matrix.Dataset) (*matrix.Dataset, error) {
	if len(inputs) == 0 {
		return nil, AlignmentError{Key: "(none)", Reason: "no inputs"}
	}
	if len(inputs) == 1 {
		return inputs[0].Clone(), nil
	}

	log.Println("=== Merging", len(inputs), "matrices ===")

	metabolites := []matrix.Metabolite{}
	colSeen := make(map[string]struct{})
	for _, in := range inputs {
		for _, m := range in.Metabolites() {
			if _, seen := colSeen[m.Name]; seen {
				continue
			}
			colSeen[m.Name] = struct{}{}
			metabolites = append(metabolites, m)
		}
	}

	samples := []matrix.Sample{}
	rowSeen := make(map[matrix.SampleKey]struct{})
	for _, in := range inputs {
		for _, s := range in.Samples() {
			if _, seen := rowSeen[s.Key]; seen {
				return nil, AlignmentError{
					Key:    s.Key.String(),
					Reason: "participant appears in more than one input without a distinguishing cohort qualifier",
				}
			}
			rowSeen[s.Key] = struct{}{}
			samples = append(samples, s)
		}
	}

	out, err := matrix.New(samples, metabolites)
	if err != nil {
		return nil, pfx.Err(err)
	}

	for _, in := range inputs {
		names := in.MetaboliteNames()
		for _, key := range in.SampleKeys() {
			row, err := in.Row(key)
			if err != nil {
				return nil, pfx.Err(err)
			}
			for j, name := range names {
				if err := out.Set(key, name, row[j]); err != nil {
					return nil, pfx.Err(err)
				}
			}
		}
	}

	log.Println("Merged into", out.NSamples(), "participants by", out.NMetabolites(), "metabolites")
	return out, nil
}
