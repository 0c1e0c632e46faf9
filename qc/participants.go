package qc

import (
	"log"

	"gonum.org/v1/gonum/stat"

	"github.com/studymetab/metaboqc/matrix"
)

// ConsolidateReplicates collapses every replicate group to a single row per
// participant by averaging the non-missing runs of each metabolite. The
// first run's metadata is kept. Runs only happen per cohort, so merged
// multi-cohort matrices are consolidated per cohort implicitly.
func ConsolidateReplicates(d *matrix.Dataset) (*matrix.Dataset, error) {
	groups, members := d.ReplicateGroups()
	if len(groups) == 0 {
		return d.Clone(), nil
	}

	log.Println("=== Consolidating", len(groups), "replicate groups ===")

	out := d.Clone()
	extra := []matrix.SampleKey{}
	for _, g := range groups {
		runs := members[g]
		first := runs[0]
		for _, name := range out.MetaboliteNames() {
			vals := make([]float64, 0, len(runs))
			for _, key := range runs {
				vals = append(vals, out.Get(key, name))
			}
			obs := finite(vals)
			avg := matrix.Missing
			if len(obs) > 0 {
				avg = stat.Mean(obs, nil)
			}
			if err := out.Set(first, name, avg); err != nil {
				return nil, err
			}
		}
		extra = append(extra, runs[1:]...)
	}

	return out.DropSamples(extra), nil
}

// FilterNonFasting drops participants whose fasting indicator is not 1.
// Participants with unknown fasting status are dropped too: a sample that
// cannot be shown to be fasted cannot be compared against fasted ones.
func FilterNonFasting(d *matrix.Dataset) (*matrix.Dataset, error) {
	log.Println("=== Removing non-fasting participants ===")

	drop := []matrix.SampleKey{}
	for _, s := range d.Samples() {
		if s.Fasting != 1 {
			drop = append(drop, s.Key)
		}
	}
	log.Println("Dropped", len(drop), "of", d.NSamples(), "participants")

	return d.DropSamples(drop), nil
}
