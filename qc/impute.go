package qc

import (
	"log"

	"github.com/montanaflynn/stats"

	"github.com/studymetab/metaboqc/matrix"
)

// ImputeLOD fills missing cells with half the limit of detection. The
// plate-exact LOD is used when the sample's plate appears in lods;
// otherwise half the smallest observed concentration stands in, which is
// also the behavior for platforms without LOD spreadsheets (lods nil).
// Cells in columns with no observed values at all stay missing.
func ImputeLOD(d *matrix.Dataset, lods map[string][]matrix.PlateLOD) (*matrix.Dataset, error) {
	log.Println("=== Imputing missing concentrations ===")

	out := d.Clone()
	keys := out.SampleKeys()
	samples := out.Samples()
	imputed := 0

	for _, met := range out.Metabolites() {
		col, err := out.Column(met.Name)
		if err != nil {
			return nil, err
		}

		obs := finite(col)
		halfMin := matrix.Missing
		if len(obs) > 0 {
			min, err := stats.Min(obs)
			if err != nil {
				return nil, err
			}
			halfMin = min / 2
		}

		changed := false
		for i, v := range col {
			if !matrix.IsMissing(v) {
				continue
			}

			fill := halfMin
			if plateLOD, ok := lookupLOD(lods, met, samples[i]); ok {
				fill = plateLOD / 2
			}
			if matrix.IsMissing(fill) {
				continue
			}

			col[i] = fill
			imputed++
			changed = true
		}
		if changed {
			if err := out.SetColumn(met.Name, col); err != nil {
				return nil, err
			}
		}
	}
	log.Println("Imputed", imputed, "data points across", len(keys), "samples")

	return out, nil
}

func lookupLOD(lods map[string][]matrix.PlateLOD, met matrix.Metabolite, s matrix.Sample) (float64, bool) {
	if lods == nil || s.Plates == nil {
		return 0, false
	}
	plate, ok := s.Plates[met.Method]
	if !ok {
		return 0, false
	}
	for _, p := range lods[met.Method] {
		if p.Plate != plate {
			continue
		}
		if v, ok := p.LOD[met.Name]; ok {
			return v, true
		}
	}
	return 0, false
}
