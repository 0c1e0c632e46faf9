// Package platform reads vendor metabolomics exports and reshapes them into
// the canonical participant-by-metabolite Dataset consumed by the qc stages.
package platform

import (
	"regexp"
	"strings"
)

// Layout describes one vendor export file: where its metabolite columns sit,
// which strings encode a censored or missing measurement, and how its column
// names map onto the canonical naming scheme shared by every cohort.
type Layout struct {
	Cohort string // e.g. "ADNI1"
	Method string // assay method, e.g. "UPLC", "FIA", "NMR"
	File   string // expected file name inside the data directory

	// IDColumn is the participant identifier column and the join key used
	// when merging method files of the same cohort.
	IDColumn string

	// FirstMetabolite and LastMetabolite bound the metabolite column span
	// inside the header (inclusive). Both must be present in the header
	// after canonicalization or the file is rejected.
	FirstMetabolite string
	LastMetabolite  string

	// NAValues are the vendor's sentinel strings for censored cells
	// (below limit of detection, above highest calibration standard, ...).
	NAValues []string

	// Canonicalize rewrites header names through CanonicalName before the
	// span is located. Some exports already use canonical names.
	Canonicalize bool

	// Renames fixes per-file misspellings after canonicalization.
	Renames map[string]string

	// PlateColumn, when nonempty, names the column holding the plate
	// barcode used for cross-plate correction and LOD lookup.
	PlateColumn string

	// PoolIDFloor: rows whose numeric participant ID is at or above this
	// value are QC-pool measurements, not participants. Zero means the
	// platform ships no pool rows.
	PoolIDFloor int

	// LODFile, when nonempty, names the spreadsheet with per-plate limits
	// of detection for this cohort+method.
	LODFile string
}

// Key returns the conventional "Cohort-Method" label used in log output.
func (l Layout) Key() string {
	return l.Cohort + "-" + l.Method
}

var p180NA = []string{"< LOD", "No Interception", ">Highest CS"}

// Platforms maps a platform selector to the layouts of its export files.
// Every listed file is required: a platform load fails if any is absent.
var Platforms = map[string][]Layout{
	"p180": {
		{
			Cohort:          "ADNI1",
			Method:          "UPLC",
			File:            "ADMCDUKEP180UPLC_01_15_16.csv",
			IDColumn:        "RID",
			FirstMetabolite: "Ala",
			LastMetabolite:  "SDMA",
			NAValues:        p180NA,
			PlateColumn:     "Plate.Bar.Code",
			PoolIDFloor:     99999,
			LODFile:         "4097_UPLC_p180_Data.xlsx",
		},
		{
			Cohort:          "ADNI1",
			Method:          "FIA",
			File:            "ADMCDUKEP180FIA_01_15_16.csv",
			IDColumn:        "RID",
			FirstMetabolite: "C0",
			LastMetabolite:  "SM.C26.1",
			NAValues:        p180NA,
			PlateColumn:     "Plate.Bar.Code",
			PoolIDFloor:     99999,
			LODFile:         "4097_FIA_p180_Data.xlsx",
		},
		{
			Cohort:          "ADNI2GO",
			Method:          "UPLC",
			File:            "ADMCDUKEP180UPLCADNI2GO.csv",
			IDColumn:        "RID",
			FirstMetabolite: "Ala",
			LastMetabolite:  "SDMA",
			NAValues:        p180NA,
			Canonicalize:    true,
			Renames:         map[string]string{"canosine": "Carnosine"},
			PlateColumn:     "Plate.Bar.Code",
			PoolIDFloor:     99999,
			LODFile:         "4610 UPLC p180 Data.xlsx",
		},
		{
			Cohort:          "ADNI2GO",
			Method:          "FIA",
			File:            "ADMCDUKEP180FIAADNI2GO.csv",
			IDColumn:        "RID",
			FirstMetabolite: "C0",
			LastMetabolite:  "SM.C26.1",
			NAValues:        p180NA,
			Canonicalize:    true,
			PlateColumn:     "Plate.Bar.Code",
			PoolIDFloor:     99999,
			LODFile:         "4610 FIA p180 Data.xlsx",
		},
	},
	"nmr": {
		{
			Cohort:          "ADNI",
			Method:          "NMR",
			File:            "ADNINIGHTINGALE2.csv",
			IDColumn:        "RID",
			FirstMetabolite: "TOTAL_C",
			LastMetabolite:  "S_HDL_TG_PCT",
			NAValues:        []string{"TAG"},
		},
	},
}

// PlatformNames returns the recognized platform selectors.
func PlatformNames() string {
	names := make([]string, 0, len(Platforms))
	for name := range Platforms {
		names = append(names, name)
	}

	b := strings.Builder{}
	for i, name := range names {
		if i != 0 {
			b.WriteString(", ")
		}
		b.WriteString(name)
	}
	return b.String()
}

var badNameChars = regexp.MustCompile(`[-:() ]`)

// CanonicalName maps a vendor column name onto the canonical scheme: the
// characters `-:()` and space all become `.`, matching the convention the
// oldest cohort export already uses.
func CanonicalName(name string) string {
	return badNameChars.ReplaceAllString(name, ".")
}
