package qc

import (
	"log"

	"gonum.org/v1/gonum/stat"

	"github.com/studymetab/metaboqc/matrix"
)

// CorrectPlates applies a cross-plate correction from QC-pool samples: for
// each assay method and plate, the pool mean on that plate over the global
// pool mean gives a per-metabolite correction ratio, and every participant
// value measured on that plate is divided by it. Metabolites whose pools
// are missing or whose global pool mean is zero are left uncorrected.
func CorrectPlates(d *matrix.Dataset, pools []matrix.PoolSample) (*matrix.Dataset, error) {
	if len(pools) == 0 {
		log.Println("=== No QC-pool samples present; skipping plate correction ===")
		return d.Clone(), nil
	}

	log.Println("=== Applying cross-plate correction from", len(pools), "pool samples ===")

	// method -> plate -> pool measurements on that plate.
	byPlate := make(map[string]map[string][]matrix.PoolSample)
	for _, p := range pools {
		if byPlate[p.Method] == nil {
			byPlate[p.Method] = make(map[string][]matrix.PoolSample)
		}
		byPlate[p.Method][p.Plate] = append(byPlate[p.Method][p.Plate], p)
	}

	poolMean := func(ps []matrix.PoolSample, name string) (float64, bool) {
		vals := []float64{}
		for _, p := range ps {
			if v, ok := p.Values[name]; ok && !matrix.IsMissing(v) {
				vals = append(vals, v)
			}
		}
		if len(vals) == 0 {
			return 0, false
		}
		return stat.Mean(vals, nil), true
	}

	out := d.Clone()
	samples := out.Samples()
	corrected := 0

	for _, met := range out.Metabolites() {
		methodPools, ok := byPlate[met.Method]
		if !ok {
			continue
		}

		all := []matrix.PoolSample{}
		for _, ps := range methodPools {
			all = append(all, ps...)
		}
		global, ok := poolMean(all, met.Name)
		if !ok || global == 0 {
			continue
		}

		ratios := make(map[string]float64, len(methodPools))
		for plate, ps := range methodPools {
			m, ok := poolMean(ps, met.Name)
			if !ok || m == 0 {
				continue
			}
			ratios[plate] = m / global
		}

		col, err := out.Column(met.Name)
		if err != nil {
			return nil, err
		}
		changed := false
		for i, v := range col {
			if matrix.IsMissing(v) || samples[i].Plates == nil {
				continue
			}
			plate, ok := samples[i].Plates[met.Method]
			if !ok {
				continue
			}
			ratio, ok := ratios[plate]
			if !ok {
				continue
			}
			col[i] = v / ratio
			corrected++
			changed = true
		}
		if changed {
			if err := out.SetColumn(met.Name, col); err != nil {
				return nil, err
			}
		}
	}
	log.Println("Corrected", corrected, "data points")

	return out, nil
}
