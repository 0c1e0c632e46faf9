package platform

import (
	"encoding/csv"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/carbocation/pfx"

	"github.com/studymetab/metaboqc/matrix"
)

// CohortData is one cohort's wide matrix: all of the cohort's method files
// outer-joined on participant ID, plus the QC-pool measurements and
// per-plate detection limits that some stages need.
type CohortData struct {
	Cohort string
	Data   *matrix.Dataset
	Pools  []matrix.PoolSample
	// LODs maps assay method to its per-plate limits of detection. Empty
	// when the platform ships no LOD spreadsheets.
	LODs map[string][]matrix.PlateLOD
}

// Load reads every export file of the named platform from dir and returns
// one CohortData per cohort. Within a cohort, method files are joined wide
// on participant ID: a participant absent from one method file keeps their
// row with all-missing cells for that method's metabolites.
func Load(dir, platformName string) ([]CohortData, error) {
	layouts, ok := Platforms[platformName]
	if !ok {
		return nil, loadErrf(platformName, "unknown platform (want one of: %s)", PlatformNames())
	}

	// Parse each file, bucketed by cohort in layout order.
	byCohort := make(map[string][]*table)
	cohortOrder := []string{}
	for _, l := range layouts {
		t, err := readTable(dir, l)
		if err != nil {
			return nil, err
		}
		log.Println("Loaded", l.File, "with", len(t.rows), "rows and", len(t.cols), "metabolites")

		if _, seen := byCohort[l.Cohort]; !seen {
			cohortOrder = append(cohortOrder, l.Cohort)
		}
		byCohort[l.Cohort] = append(byCohort[l.Cohort], t)
	}

	out := make([]CohortData, 0, len(cohortOrder))
	for _, cohort := range cohortOrder {
		cd, err := joinCohort(cohort, byCohort[cohort])
		if err != nil {
			return nil, err
		}

		for _, t := range byCohort[cohort] {
			if t.layout.LODFile == "" {
				continue
			}
			plates, err := ReadLOD(filepath.Join(dir, t.layout.LODFile))
			if err != nil {
				return nil, err
			}
			if cd.LODs == nil {
				cd.LODs = make(map[string][]matrix.PlateLOD)
			}
			cd.LODs[t.layout.Method] = plates
			annotateLOD(cd.Data, t.cols, plates)
		}

		out = append(out, cd)
	}

	return out, nil
}

// table is one parsed export file.
type table struct {
	layout Layout
	cols   []string // canonical metabolite names, file order
	rows   []tableRow
	pools  []matrix.PoolSample
}

type tableRow struct {
	id     string
	rep    int // replicate index within this file, 0 for the first run
	plate  string
	values []float64
}

func readTable(dir string, l Layout) (*table, error) {
	path := filepath.Join(dir, l.File)
	f, err := os.Open(path)
	if err != nil {
		return nil, loadErrf(l.File, "required file not found in %s", dir)
	}
	defer f.Close()

	r := csv.NewReader(f)

	header, err := r.Read()
	if err != nil {
		return nil, loadErrf(l.File, "cannot read header: %v", err)
	}

	names := make([]string, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if l.Canonicalize {
			h = CanonicalName(h)
		}
		if fixed, ok := l.Renames[h]; ok {
			h = fixed
		}
		names[i] = h
	}

	colID, colPlate := -1, -1
	first, last := -1, -1
	for i, h := range names {
		switch h {
		case l.IDColumn:
			colID = i
		case l.PlateColumn:
			if l.PlateColumn != "" {
				colPlate = i
			}
		case l.FirstMetabolite:
			first = i
		case l.LastMetabolite:
			last = i
		}
	}
	if colID < 0 {
		return nil, loadErrf(l.File, "header lacks identifier column %q", l.IDColumn)
	}
	if first < 0 || last < 0 || last < first {
		return nil, loadErrf(l.File, "header lacks metabolite span %q..%q", l.FirstMetabolite, l.LastMetabolite)
	}

	t := &table{layout: l, cols: names[first : last+1]}
	seen := make(map[string]struct{}, len(t.cols))
	for _, c := range t.cols {
		if _, dup := seen[c]; dup {
			return nil, loadErrf(l.File, "duplicate metabolite column %q", c)
		}
		seen[c] = struct{}{}
	}

	na := make(map[string]struct{}, len(l.NAValues))
	for _, v := range l.NAValues {
		na[v] = struct{}{}
	}

	repCount := make(map[string]int)
	for line := 2; ; line++ {
		record, err := r.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, loadErrf(l.File, "line %d: %v", line, err)
		}

		values := make([]float64, len(t.cols))
		for j := range t.cols {
			cell := strings.TrimSpace(record[first+j])
			if cell == "" {
				values[j] = matrix.Missing
				continue
			}
			if _, censored := na[cell]; censored {
				values[j] = matrix.Missing
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, loadErrf(l.File, "line %d: metabolite %s: bad value %q", line, t.cols[j], cell)
			}
			values[j] = v
		}

		id := strings.TrimSpace(record[colID])
		plate := ""
		if colPlate >= 0 {
			plate = strings.TrimSpace(record[colPlate])
		}

		if l.PoolIDFloor > 0 {
			if n, err := strconv.Atoi(id); err == nil && n >= l.PoolIDFloor {
				pool := matrix.PoolSample{
					Method: l.Method,
					Plate:  plate,
					Values: make(map[string]float64, len(t.cols)),
				}
				for j, c := range t.cols {
					pool.Values[c] = values[j]
				}
				t.pools = append(t.pools, pool)
				continue
			}
		}

		t.rows = append(t.rows, tableRow{
			id:     id,
			rep:    repCount[id],
			plate:  plate,
			values: values,
		})
		repCount[id]++
	}

	return t, nil
}

// joinCohort outer-joins one cohort's method tables on (participant, rep)
// into a single wide Dataset.
func joinCohort(cohort string, tables []*table) (CohortData, error) {
	cd := CohortData{Cohort: cohort}

	metabolites := []matrix.Metabolite{}
	colSeen := make(map[string]string) // canonical name -> file it came from
	for _, t := range tables {
		for _, c := range t.cols {
			if from, dup := colSeen[c]; dup {
				return cd, loadErrf(t.layout.File, "metabolite %q already provided by %s", c, from)
			}
			colSeen[c] = t.layout.File
			metabolites = append(metabolites, matrix.Metabolite{
				Name:   c,
				Method: t.layout.Method,
				LOD:    matrix.Missing,
			})
		}
	}

	type rowKey struct {
		id  string
		rep int
	}
	keySet := make(map[rowKey]struct{})
	order := []rowKey{}
	for _, t := range tables {
		for _, row := range t.rows {
			k := rowKey{row.id, row.rep}
			if _, seen := keySet[k]; !seen {
				keySet[k] = struct{}{}
				order = append(order, k)
			}
		}
	}
	sort.Slice(order, func(i, j int) bool {
		a, b := order[i], order[j]
		if a.id != b.id {
			ai, aerr := strconv.Atoi(a.id)
			bi, berr := strconv.Atoi(b.id)
			if aerr == nil && berr == nil {
				return ai < bi
			}
			return a.id < b.id
		}
		return a.rep < b.rep
	})

	samples := make([]matrix.Sample, len(order))
	for i, k := range order {
		samples[i] = matrix.Sample{
			Key:     matrix.SampleKey{ID: k.id, Cohort: cohort, Rep: k.rep},
			Fasting: -1,
		}
	}

	d, err := matrix.New(samples, metabolites)
	if err != nil {
		return cd, pfx.Err(err)
	}

	for _, t := range tables {
		for _, row := range t.rows {
			key := matrix.SampleKey{ID: row.id, Cohort: cohort, Rep: row.rep}
			for j, c := range t.cols {
				if err := d.Set(key, c, row.values[j]); err != nil {
					return cd, pfx.Err(err)
				}
			}
			if row.plate != "" {
				method := t.layout.Method
				plate := row.plate
				if err := d.UpdateSample(key, func(s *matrix.Sample) {
					if s.Plates == nil {
						s.Plates = make(map[string]string)
					}
					s.Plates[method] = plate
				}); err != nil {
					return cd, pfx.Err(err)
				}
			}
		}
		cd.Pools = append(cd.Pools, t.pools...)
	}

	cd.Data = d
	return cd, nil
}
