package platform

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gocarina/gocsv"

	"github.com/studymetab/metaboqc/matrix"
)

const baselineVisit = "bl"

type fastingRow struct {
	RID     string `csv:"RID"`
	Viscode string `csv:"VISCODE2"`
	Fasting string `csv:"BIFAST"`
}

// ReadFasting reads the participant fasting table and returns participant ID
// mapped to a 0/1 fasting indicator. Only baseline-visit rows are used; a
// participant recorded more than once keeps their largest observed value.
// The vendor encodes unknown as -4, which is treated as absent.
func ReadFasting(path string) (map[string]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, loadErrf(filepath.Base(path), "cannot open: %v", err)
	}
	defer f.Close()

	rows := []*fastingRow{}
	if err := gocsv.Unmarshal(f, &rows); err != nil {
		return nil, loadErrf(filepath.Base(path), "cannot parse: %v", err)
	}

	out := make(map[string]int)
	for _, row := range rows {
		if row.Viscode != baselineVisit {
			continue
		}
		var v int
		switch strings.TrimSpace(row.Fasting) {
		case "1":
			v = 1
		case "0":
			v = 0
		default:
			// Unknown (-4 or empty).
			continue
		}
		if prev, seen := out[row.RID]; !seen || v > prev {
			out[row.RID] = v
		}
	}

	return out, nil
}

// Meds holds the medication-class covariates: per participant, a 0/1
// indicator per medication class.
type Meds struct {
	Classes    []string
	ByID       map[string]map[string]int
}

// ReadMeds reads the medication-class table. Beyond the identifier and visit
// columns the file's columns are the medication classes themselves, so the
// class set is taken from the header rather than fixed here. A non-empty
// cell means the participant takes that class.
func ReadMeds(path string) (*Meds, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, loadErrf(filepath.Base(path), "cannot open: %v", err)
	}
	defer f.Close()

	r := csv.NewReader(f)

	header, err := r.Read()
	if err != nil {
		return nil, loadErrf(filepath.Base(path), "cannot read header: %v", err)
	}

	colID, colViscode := -1, -1
	skip := make(map[int]struct{})
	classes := []string{}
	classCols := []int{}
	for i, h := range header {
		switch strings.TrimSpace(h) {
		case "RID":
			colID = i
			skip[i] = struct{}{}
		case "VISCODE2":
			colViscode = i
			skip[i] = struct{}{}
		case "Phase", "NA", "":
			skip[i] = struct{}{}
		}
	}
	if colID < 0 || colViscode < 0 {
		return nil, loadErrf(filepath.Base(path), "header lacks RID/VISCODE2 columns")
	}
	for i, h := range header {
		if _, drop := skip[i]; drop {
			continue
		}
		classes = append(classes, strings.TrimSpace(h))
		classCols = append(classCols, i)
	}

	out := &Meds{Classes: classes, ByID: make(map[string]map[string]int)}
	for line := 2; ; line++ {
		record, err := r.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, loadErrf(filepath.Base(path), "line %d: %v", line, err)
		}
		if record[colViscode] != baselineVisit {
			continue
		}

		id := strings.TrimSpace(record[colID])
		flags := make(map[string]int, len(classes))
		for k, col := range classCols {
			if strings.TrimSpace(record[col]) != "" {
				flags[classes[k]] = 1
			} else {
				flags[classes[k]] = 0
			}
		}
		out.ByID[id] = flags
	}

	return out, nil
}

// ApplyCovariates attaches fasting and medication covariates to every sample
// whose participant ID is covered. Either argument may be nil.
func ApplyCovariates(d *matrix.Dataset, fasting map[string]int, meds *Meds) {
	for _, key := range d.SampleKeys() {
		id := key.ID
		_ = d.UpdateSample(key, func(s *matrix.Sample) {
			if fasting != nil {
				if v, ok := fasting[id]; ok {
					s.Fasting = v
				}
			}
			if meds != nil {
				if flags, ok := meds.ByID[id]; ok {
					cp := make(map[string]int, len(flags))
					for k, v := range flags {
						cp[k] = v
					}
					s.Meds = cp
				}
			}
		})
	}
}
