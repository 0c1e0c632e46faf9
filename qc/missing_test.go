package qc

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/studymetab/metaboqc/matrix"
)

func TestFilterMissingMetabolitesCutoff(t *testing.T) {
	n := 20
	ids := idList(n)

	// X: 25% missing, Y: 15% missing, Z: complete.
	x := make([]float64, n)
	y := make([]float64, n)
	z := make([]float64, n)
	for i := 0; i < n; i++ {
		x[i], y[i], z[i] = 1.0, 2.0, 3.0
	}
	for i := 0; i < 5; i++ {
		x[i] = matrix.Missing
	}
	for i := 0; i < 3; i++ {
		y[i] = matrix.Missing
	}

	d := newDataset(t, ids, []string{"X", "Y", "Z"}, [][]float64{x, y, z})

	out, err := FilterMissingMetabolites(d, 0.2)
	require.NoError(t, err)

	require.False(t, out.HasMetabolite("X"), "25%% missing with cutoff 0.2 must drop X")
	require.True(t, out.HasMetabolite("Y"), "15%% missing with cutoff 0.2 must retain Y")
	require.True(t, out.HasMetabolite("Z"))
	require.Equal(t, n, out.NSamples())
}

func TestFilterMissingParticipantsCutoff(t *testing.T) {
	// Participant A misses 2 of 3 metabolites; B misses none.
	d := newDataset(t, []string{"A", "B", "C"}, []string{"X", "Y", "Z"}, [][]float64{
		{matrix.Missing, 1, 1},
		{matrix.Missing, 2, 2},
		{3, 3, matrix.Missing},
	})

	out, err := FilterMissingParticipants(d, 0.5)
	require.NoError(t, err)

	require.False(t, out.HasSample(matrix.SampleKey{ID: "A", Cohort: "T"}))
	require.True(t, out.HasSample(matrix.SampleKey{ID: "B", Cohort: "T"}))
	require.True(t, out.HasSample(matrix.SampleKey{ID: "C", Cohort: "T"}), "33%% missing stays under cutoff 0.5")
}

// A metabolite with near-total missingness must not drag participants down
// with it: the metabolite filter runs first.
func TestFilterMissingOrder(t *testing.T) {
	n := 10
	ids := idList(n)

	junk := make([]float64, n) // 90% missing
	good1 := make([]float64, n)
	good2 := make([]float64, n)
	for i := 0; i < n; i++ {
		junk[i] = matrix.Missing
		good1[i], good2[i] = 1.0, 2.0
	}
	junk[0] = 1.0

	d := newDataset(t, ids, []string{"Junk", "G1", "G2"}, [][]float64{junk, good1, good2})

	out, err := FilterMissing(d, 0.2, 0.25)
	require.NoError(t, err)

	require.False(t, out.HasMetabolite("Junk"))
	// With Junk gone, no participant has any missing cells left.
	require.Equal(t, n, out.NSamples())

	// Property check: every survivor satisfies both cutoffs.
	for _, name := range out.MetaboliteNames() {
		col, err := out.Column(name)
		require.NoError(t, err)
		require.LessOrEqual(t, missingFraction(col), 0.2)
	}
	for _, key := range out.SampleKeys() {
		row, err := out.Row(key)
		require.NoError(t, err)
		require.LessOrEqual(t, missingFraction(row), 0.25)
	}
}

func TestFilterMissingEmptyInput(t *testing.T) {
	d, err := matrix.New(nil, nil)
	require.NoError(t, err)

	_, err = FilterMissingMetabolites(d, 0.2)
	require.Error(t, err)

	_, err = FilterMissingParticipants(d, 0.2)
	require.Error(t, err)
}

// Stage outputs must always be keyset subsets of their inputs.
func TestFilterMissingSubsetInvariant(t *testing.T) {
	d := newDataset(t, []string{"A", "B"}, []string{"X", "Y"}, [][]float64{
		{1, matrix.Missing},
		{2, 2},
	})

	out, err := FilterMissing(d, 0.4, 0.4)
	require.NoError(t, err)

	for _, name := range out.MetaboliteNames() {
		require.True(t, d.HasMetabolite(name))
	}
	for _, key := range out.SampleKeys() {
		require.True(t, d.HasSample(key))
	}
}
