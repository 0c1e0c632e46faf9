// Package qc implements the statistical cleaning stages: missingness and
// reliability filters, transforms, outlier handling, residualization,
// plate correction, and the cross-cohort merge. Every stage takes a Dataset
// and returns a new one; no stage mutates its input.
package qc

import "fmt"

// ComputationError reports a numerically degenerate computation that the
// pipeline cannot recover from, such as a singular covariance matrix or a
// rank-deficient regression design.
type ComputationError struct {
	Op     string
	Reason string
}

func (e ComputationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

// AlignmentError reports a participant or metabolite identity conflict
// while merging cohorts.
type AlignmentError struct {
	Key    string
	Reason string
}

func (e AlignmentError) Error() string {
	return fmt.Sprintf("merge %s: %s", e.Key, e.Reason)
}
