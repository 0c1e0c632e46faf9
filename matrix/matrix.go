// Package matrix holds the participant-by-metabolite concentration table and
// the metadata that must stay aligned with it across every cleaning stage.
package matrix

import (
	"fmt"
	"math"
	"sort"
)

// Missing is the sentinel stored in cells with no usable measurement
// (absent from the source file, below the limit of detection, or removed
// by a transform).
var Missing = math.NaN()

// IsMissing reports whether v is the missing sentinel.
func IsMissing(v float64) bool {
	return math.IsNaN(v)
}

// SampleKey uniquely identifies one row of the matrix. Cohort disambiguates
// the same participant ID measured in different cohorts; Rep disambiguates
// technical replicate runs of the same participant.
type SampleKey struct {
	ID     string
	Cohort string
	Rep    int
}

func (k SampleKey) String() string {
	s := k.ID
	if k.Cohort != "" {
		s += ":" + k.Cohort
	}
	if k.Rep > 0 {
		s += fmt.Sprintf(".rep%d", k.Rep)
	}
	return s
}

// GroupKey is the replicate-group identity: all runs of one participant in
// one cohort share it.
func (k SampleKey) GroupKey() SampleKey {
	return SampleKey{ID: k.ID, Cohort: k.Cohort}
}

// Sample carries per-participant metadata.
type Sample struct {
	Key     SampleKey
	Fasting int // 1 fasting, 0 not fasting, -1 unknown
	// Plates maps assay method to the plate barcode this sample ran on.
	Plates map[string]string
	// Meds maps medication-class name to a 0/1 indicator. Nil means no
	// covariate data was loaded for this participant.
	Meds map[string]int
}

// Metabolite carries per-metabolite metadata.
type Metabolite struct {
	Name   string
	Method string  // sub-file or assay method of origin, e.g. "UPLC"
	LOD    float64 // limit of detection; Missing when not provided
	// ZeroVariance is set by the z-score transform when a column could not
	// be standardized.
	ZeroVariance bool
}

// PlateLOD is one plate's limits of detection, keyed by canonical
// metabolite name.
type PlateLOD struct {
	Plate string
	LOD   map[string]float64
}

// PoolSample is one QC-pool measurement, used for cross-plate correction.
// Pool rows never enter the participant matrix.
type PoolSample struct {
	Method string
	Plate  string
	Values map[string]float64
}

// Dataset couples the concentration matrix with its metadata so that
// dropping a participant or metabolite can never leave the two out of sync.
type Dataset struct {
	samples     []Sample
	metabolites []Metabolite
	data        [][]float64 // data[row][col]
	rowIndex    map[SampleKey]int
	colIndex    map[string]int
}

// New builds an all-missing Dataset with the given row and column metadata.
// Duplicate sample keys or metabolite names are an error.
func New(samples []Sample, metabolites []Metabolite) (*Dataset, error) {
	d := &Dataset{
		samples:     make([]Sample, len(samples)),
		metabolites: append([]Metabolite(nil), metabolites...),
		rowIndex:    make(map[SampleKey]int, len(samples)),
		colIndex:    make(map[string]int, len(metabolites)),
	}
	for i, s := range samples {
		d.samples[i] = copySample(s)
	}

	for i, s := range d.samples {
		if _, seen := d.rowIndex[s.Key]; seen {
			return nil, fmt.Errorf("matrix: duplicate sample key %v", s.Key)
		}
		d.rowIndex[s.Key] = i
	}

	for j, m := range d.metabolites {
		if _, seen := d.colIndex[m.Name]; seen {
			return nil, fmt.Errorf("matrix: duplicate metabolite %s", m.Name)
		}
		d.colIndex[m.Name] = j
	}

	d.data = make([][]float64, len(d.samples))
	for i := range d.data {
		row := make([]float64, len(d.metabolites))
		for j := range row {
			row[j] = Missing
		}
		d.data[i] = row
	}

	return d, nil
}

func (d *Dataset) NSamples() int     { return len(d.samples) }
func (d *Dataset) NMetabolites() int { return len(d.metabolites) }

// Samples returns the row metadata in row order. The caller must not modify
// the returned slice.
func (d *Dataset) Samples() []Sample { return d.samples }

// Metabolites returns the column metadata in column order. The caller must
// not modify the returned slice.
func (d *Dataset) Metabolites() []Metabolite { return d.metabolites }

// MetaboliteNames returns the column names in column order.
func (d *Dataset) MetaboliteNames() []string {
	names := make([]string, len(d.metabolites))
	for j, m := range d.metabolites {
		names[j] = m.Name
	}
	return names
}

// SampleKeys returns the row keys in row order.
func (d *Dataset) SampleKeys() []SampleKey {
	keys := make([]SampleKey, len(d.samples))
	for i, s := range d.samples {
		keys[i] = s.Key
	}
	return keys
}

// HasSample reports whether the row key is present.
func (d *Dataset) HasSample(key SampleKey) bool {
	_, ok := d.rowIndex[key]
	return ok
}

// HasMetabolite reports whether the column is present.
func (d *Dataset) HasMetabolite(name string) bool {
	_, ok := d.colIndex[name]
	return ok
}

// Get returns the cell value, or Missing if the row or column is absent.
func (d *Dataset) Get(key SampleKey, name string) float64 {
	i, ok := d.rowIndex[key]
	if !ok {
		return Missing
	}
	j, ok := d.colIndex[name]
	if !ok {
		return Missing
	}
	return d.data[i][j]
}

// Set stores a cell value. Unknown rows or columns are an error.
func (d *Dataset) Set(key SampleKey, name string, v float64) error {
	i, ok := d.rowIndex[key]
	if !ok {
		return fmt.Errorf("matrix: unknown sample %v", key)
	}
	j, ok := d.colIndex[name]
	if !ok {
		return fmt.Errorf("matrix: unknown metabolite %s", name)
	}
	d.data[i][j] = v
	return nil
}

// Column returns a copy of the named column in row order.
func (d *Dataset) Column(name string) ([]float64, error) {
	j, ok := d.colIndex[name]
	if !ok {
		return nil, fmt.Errorf("matrix: unknown metabolite %s", name)
	}
	col := make([]float64, len(d.samples))
	for i := range d.samples {
		col[i] = d.data[i][j]
	}
	return col, nil
}

// SetColumn replaces the named column. The replacement must have one value
// per row.
func (d *Dataset) SetColumn(name string, col []float64) error {
	j, ok := d.colIndex[name]
	if !ok {
		return fmt.Errorf("matrix: unknown metabolite %s", name)
	}
	if len(col) != len(d.samples) {
		return fmt.Errorf("matrix: column %s has %d values for %d samples", name, len(col), len(d.samples))
	}
	for i := range d.samples {
		d.data[i][j] = col[i]
	}
	return nil
}

// Row returns a copy of the row in column order.
func (d *Dataset) Row(key SampleKey) ([]float64, error) {
	i, ok := d.rowIndex[key]
	if !ok {
		return nil, fmt.Errorf("matrix: unknown sample %v", key)
	}
	return append([]float64(nil), d.data[i]...), nil
}

// UpdateMetabolite applies fn to the named column's metadata.
func (d *Dataset) UpdateMetabolite(name string, fn func(*Metabolite)) error {
	j, ok := d.colIndex[name]
	if !ok {
		return fmt.Errorf("matrix: unknown metabolite %s", name)
	}
	fn(&d.metabolites[j])
	return nil
}

// UpdateSample applies fn to the keyed row's metadata.
func (d *Dataset) UpdateSample(key SampleKey, fn func(*Sample)) error {
	i, ok := d.rowIndex[key]
	if !ok {
		return fmt.Errorf("matrix: unknown sample %v", key)
	}
	fn(&d.samples[i])
	return nil
}

func copySample(s Sample) Sample {
	cp := s
	if s.Plates != nil {
		cp.Plates = make(map[string]string, len(s.Plates))
		for k, v := range s.Plates {
			cp.Plates[k] = v
		}
	}
	if s.Meds != nil {
		cp.Meds = make(map[string]int, len(s.Meds))
		for k, v := range s.Meds {
			cp.Meds[k] = v
		}
	}
	return cp
}

// Clone returns a deep copy. Stages clone their input before modifying
// anything, so no stage ever observes another stage's mutations.
func (d *Dataset) Clone() *Dataset {
	out := &Dataset{
		samples:     make([]Sample, len(d.samples)),
		metabolites: append([]Metabolite(nil), d.metabolites...),
		data:        make([][]float64, len(d.data)),
		rowIndex:    make(map[SampleKey]int, len(d.rowIndex)),
		colIndex:    make(map[string]int, len(d.colIndex)),
	}
	for i, s := range d.samples {
		out.samples[i] = copySample(s)
	}
	for i, row := range d.data {
		out.data[i] = append([]float64(nil), row...)
	}
	for k, v := range d.rowIndex {
		out.rowIndex[k] = v
	}
	for k, v := range d.colIndex {
		out.colIndex[k] = v
	}
	return out
}

// DropMetabolites returns a new Dataset without the named columns. Names not
// present are ignored. Column metadata is dropped along with the column.
func (d *Dataset) DropMetabolites(names []string) *Dataset {
	drop := make(map[string]struct{}, len(names))
	for _, n := range names {
		drop[n] = struct{}{}
	}

	keep := make([]int, 0, len(d.metabolites))
	for j, m := range d.metabolites {
		if _, gone := drop[m.Name]; !gone {
			keep = append(keep, j)
		}
	}

	out := &Dataset{
		samples:     make([]Sample, len(d.samples)),
		metabolites: make([]Metabolite, len(keep)),
		data:        make([][]float64, len(d.samples)),
		rowIndex:    make(map[SampleKey]int, len(d.samples)),
		colIndex:    make(map[string]int, len(keep)),
	}
	for jj, j := range keep {
		out.metabolites[jj] = d.metabolites[j]
		out.colIndex[d.metabolites[j].Name] = jj
	}
	for i, s := range d.samples {
		out.samples[i] = copySample(s)
		out.rowIndex[s.Key] = i
		row := make([]float64, len(keep))
		for jj, j := range keep {
			row[jj] = d.data[i][j]
		}
		out.data[i] = row
	}
	return out
}

// DropSamples returns a new Dataset without the keyed rows. Keys not present
// are ignored. Row metadata is dropped along with the row.
func (d *Dataset) DropSamples(keys []SampleKey) *Dataset {
	drop := make(map[SampleKey]struct{}, len(keys))
	for _, k := range keys {
		drop[k] = struct{}{}
	}

	out := &Dataset{
		metabolites: append([]Metabolite(nil), d.metabolites...),
		rowIndex:    make(map[SampleKey]int),
		colIndex:    make(map[string]int, len(d.colIndex)),
	}
	for k, v := range d.colIndex {
		out.colIndex[k] = v
	}
	for i, s := range d.samples {
		if _, gone := drop[s.Key]; gone {
			continue
		}
		out.rowIndex[s.Key] = len(out.samples)
		out.samples = append(out.samples, copySample(s))
		out.data = append(out.data, append([]float64(nil), d.data[i]...))
	}
	return out
}

// ReplicateGroups returns the keys of every replicate group with more than
// one run, sorted for deterministic iteration, mapped to the member rows in
// row order.
func (d *Dataset) ReplicateGroups() ([]SampleKey, map[SampleKey][]SampleKey) {
	members := make(map[SampleKey][]SampleKey)
	for _, s := range d.samples {
		g := s.Key.GroupKey()
		members[g] = append(members[g], s.Key)
	}

	groups := make([]SampleKey, 0)
	for g, runs := range members {
		if len(runs) > 1 {
			groups = append(groups, g)
		} else {
			delete(members, g)
		}
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].ID != groups[j].ID {
			return groups[i].ID < groups[j].ID
		}
		return groups[i].Cohort < groups[j].Cohort
	})

	return groups, members
}
