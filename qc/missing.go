package qc

import (
	"fmt"
	"log"

	"github.com/studymetab/metaboqc/matrix"
)

// FilterMissingMetabolites drops every metabolite whose proportion of
// missing cells exceeds cutoff.
func FilterMissingMetabolites(d *matrix.Dataset, cutoff float64) (*matrix.Dataset, error) {
	if d.NSamples() == 0 || d.NMetabolites() == 0 {
		return nil, fmt.Errorf("filter missing metabolites: empty input")
	}

	log.Println("=== Removing metabolites with missing data greater than", cutoff, "===")

	drop := []string{}
	for _, name := range d.MetaboliteNames() {
		col, err := d.Column(name)
		if err != nil {
			return nil, err
		}
		if frac := missingFraction(col); frac > cutoff {
			drop = append(drop, name)
			log.Printf("Dropping metabolite %s (%.1f%% missing)\n", name, 100*frac)
		}
	}
	log.Println("Dropped", len(drop), "of", d.NMetabolites(), "metabolites")

	return d.DropMetabolites(drop), nil
}

// FilterMissingParticipants drops every participant whose proportion of
// missing cells, over the metabolites still present, exceeds cutoff.
func FilterMissingParticipants(d *matrix.Dataset, cutoff float64) (*matrix.Dataset, error) {
	if d.NSamples() == 0 || d.NMetabolites() == 0 {
		return nil, fmt.Errorf("filter missing participants: empty input")
	}

	log.Println("=== Removing participants with missing data greater than", cutoff, "===")

	drop := []matrix.SampleKey{}
	for _, key := range d.SampleKeys() {
		row, err := d.Row(key)
		if err != nil {
			return nil, err
		}
		if frac := missingFraction(row); frac > cutoff {
			drop = append(drop, key)
			log.Printf("Dropping participant %v (%.1f%% missing)\n", key, 100*frac)
		}
	}
	log.Println("Dropped", len(drop), "of", d.NSamples(), "participants")

	return d.DropSamples(drop), nil
}

// FilterMissing applies the metabolite filter and then the participant
// filter. The order is deliberate: a near-empty metabolite column would
// otherwise count against every participant.
func FilterMissing(d *matrix.Dataset, metaboliteCutoff, participantCutoff float64) (*matrix.Dataset, error) {
	d, err := FilterMissingMetabolites(d, metaboliteCutoff)
	if err != nil {
		return nil, err
	}
	return FilterMissingParticipants(d, participantCutoff)
}
