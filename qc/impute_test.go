package qc

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/studymetab/metaboqc/matrix"
)

func TestImputeLODHalfMinimum(t *testing.T) {
	d := newDataset(t, []string{"A", "B", "C"}, []string{"X", "Empty"}, [][]float64{
		{4, matrix.Missing, 10},
		{matrix.Missing, matrix.Missing, matrix.Missing},
	})

	out, err := ImputeLOD(d, nil)
	require.NoError(t, err)

	// Half the minimum observed value stands in without LOD data.
	require.Equal(t, 2.0, out.Get(matrix.SampleKey{ID: "B", Cohort: "T"}, "X"))

	// A column with no observations at all stays missing.
	require.True(t, matrix.IsMissing(out.Get(matrix.SampleKey{ID: "A", Cohort: "T"}, "Empty")))
}

func TestImputeLODPlateExact(t *testing.T) {
	d := newDataset(t, []string{"A", "B"}, []string{"X"}, [][]float64{
		{4, matrix.Missing},
	})
	require.NoError(t, d.UpdateSample(matrix.SampleKey{ID: "B", Cohort: "T"}, func(s *matrix.Sample) {
		s.Plates = map[string]string{"UPLC": "P7"}
	}))

	lods := map[string][]matrix.PlateLOD{
		"UPLC": {{Plate: "P7", LOD: map[string]float64{"X": 1.0}}},
	}

	out, err := ImputeLOD(d, lods)
	require.NoError(t, err)

	// Half the plate LOD wins over half the minimum observed.
	require.Equal(t, 0.5, out.Get(matrix.SampleKey{ID: "B", Cohort: "T"}, "X"))

	// Observed values are never overwritten.
	require.Equal(t, 4.0, out.Get(matrix.SampleKey{ID: "A", Cohort: "T"}, "X"))
}

func TestCorrectPlates(t *testing.T) {
	d := newDataset(t, []string{"A", "B"}, []string{"X"}, [][]float64{
		{10, 10},
	})
	require.NoError(t, d.UpdateSample(matrix.SampleKey{ID: "A", Cohort: "T"}, func(s *matrix.Sample) {
		s.Plates = map[string]string{"UPLC": "P1"}
	}))
	require.NoError(t, d.UpdateSample(matrix.SampleKey{ID: "B", Cohort: "T"}, func(s *matrix.Sample) {
		s.Plates = map[string]string{"UPLC": "P2"}
	}))

	// Pool reads 2x too high on P1 and spot-on for P2: the global pool
	// mean is 15, so P1 values divide by 20/15 and P2 by 10/15.
	pools := []matrix.PoolSample{
		{Method: "UPLC", Plate: "P1", Values: map[string]float64{"X": 20}},
		{Method: "UPLC", Plate: "P2", Values: map[string]float64{"X": 10}},
	}

	out, err := CorrectPlates(d, pools)
	require.NoError(t, err)

	require.InDelta(t, 10*15.0/20.0, out.Get(matrix.SampleKey{ID: "A", Cohort: "T"}, "X"), 1e-12)
	require.InDelta(t, 10*15.0/10.0, out.Get(matrix.SampleKey{ID: "B", Cohort: "T"}, "X"), 1e-12)
}

func TestCorrectPlatesNoPools(t *testing.T) {
	d := newDataset(t, []string{"A"}, []string{"X"}, [][]float64{{10}})

	out, err := CorrectPlates(d, nil)
	require.NoError(t, err)
	require.Equal(t, 10.0, out.Get(matrix.SampleKey{ID: "A", Cohort: "T"}, "X"))
}

func TestConsolidateReplicates(t *testing.T) {
	d := newDataset(t, []string{"A", "A", "B"}, []string{"X", "Y"}, [][]float64{
		{10, 20, 5},
		{7, matrix.Missing, 3},
	})

	out, err := ConsolidateReplicates(d)
	require.NoError(t, err)

	require.Equal(t, 2, out.NSamples())
	a := matrix.SampleKey{ID: "A", Cohort: "T"}
	require.Equal(t, 15.0, out.Get(a, "X"), "replicate runs averaged")
	require.Equal(t, 7.0, out.Get(a, "Y"), "missing runs excluded from the average")
	require.False(t, out.HasSample(matrix.SampleKey{ID: "A", Cohort: "T", Rep: 1}))
	require.Equal(t, 5.0, out.Get(matrix.SampleKey{ID: "B", Cohort: "T"}, "X"))
}

func TestFilterNonFasting(t *testing.T) {
	d := newDataset(t, []string{"A", "B", "C"}, []string{"X"}, [][]float64{{1, 2, 3}})
	require.NoError(t, d.UpdateSample(matrix.SampleKey{ID: "A", Cohort: "T"}, func(s *matrix.Sample) {
		s.Fasting = 1
	}))
	require.NoError(t, d.UpdateSample(matrix.SampleKey{ID: "B", Cohort: "T"}, func(s *matrix.Sample) {
		s.Fasting = 0
	}))
	// C keeps the unknown status (-1).

	out, err := FilterNonFasting(d)
	require.NoError(t, err)

	require.True(t, out.HasSample(matrix.SampleKey{ID: "A", Cohort: "T"}))
	require.False(t, out.HasSample(matrix.SampleKey{ID: "B", Cohort: "T"}))
	require.False(t, out.HasSample(matrix.SampleKey{ID: "C", Cohort: "T"}), "unknown fasting status is dropped")
}
