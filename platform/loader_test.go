package platform

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/studymetab/metaboqc/matrix"
)

func writeFile(t *testing.T, dir, name, contents string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
}

var testLayout = Layout{
	Cohort:          "T1",
	Method:          "UPLC",
	File:            "t1_uplc.csv",
	IDColumn:        "RID",
	FirstMetabolite: "Ala",
	LastMetabolite:  "Gly",
	NAValues:        []string{"< LOD", ">Highest CS"},
	PlateColumn:     "Plate.Bar.Code",
	PoolIDFloor:     99999,
}

func TestReadTableSentinelsReplicatesPools(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "t1_uplc.csv",
		"RID,VISCODE,Plate.Bar.Code,Ala,Ser,Gly\n"+
			"2,bl,P1,1.5,< LOD,3.0\n"+
			"5,bl,P1,2.5,0.9,>Highest CS\n"+
			"5,bl,P2,2.7,1.1,4.1\n"+
			"999999,bl,P1,2.0,1.0,3.5\n")

	tab, err := readTable(dir, testLayout)
	if err != nil {
		t.Fatal(err)
	}

	if want := []string{"Ala", "Ser", "Gly"}; !cmp.Equal(tab.cols, want) {
		t.Fatalf("cols: %v", cmp.Diff(want, tab.cols))
	}
	if got := len(tab.rows); got != 3 {
		t.Fatalf("rows = %d, want 3 (pool row must be segregated)", got)
	}
	if got := len(tab.pools); got != 1 {
		t.Fatalf("pools = %d, want 1", got)
	}
	if got := tab.pools[0].Values["Gly"]; got != 3.5 {
		t.Fatalf("pool Gly = %v, want 3.5", got)
	}

	// Sentinels become missing.
	if !matrix.IsMissing(tab.rows[0].values[1]) {
		t.Fatalf("'< LOD' cell = %v, want missing", tab.rows[0].values[1])
	}
	if !matrix.IsMissing(tab.rows[1].values[2]) {
		t.Fatalf("'>Highest CS' cell = %v, want missing", tab.rows[1].values[2])
	}

	// The second run of participant 5 is replicate 1.
	if tab.rows[1].rep != 0 || tab.rows[2].rep != 1 {
		t.Fatalf("replicate numbering: got %d,%d want 0,1", tab.rows[1].rep, tab.rows[2].rep)
	}
	if tab.rows[2].plate != "P2" {
		t.Fatalf("plate = %q, want P2", tab.rows[2].plate)
	}
}

func TestReadTableRejectsBadHeader(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "t1_uplc.csv", "RID,Ala,Ser\n1,1.0,2.0\n")

	_, err := readTable(dir, testLayout)

	var le LoadError
	if !errors.As(err, &le) {
		t.Fatalf("expected LoadError for truncated metabolite span, got %v", err)
	}
}

func TestReadTableMissingFile(t *testing.T) {
	_, err := readTable(t.TempDir(), testLayout)

	var le LoadError
	if !errors.As(err, &le) {
		t.Fatalf("expected LoadError for absent file, got %v", err)
	}
}

func TestReadTableRejectsBadValue(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "t1_uplc.csv",
		"RID,Plate.Bar.Code,Ala,Ser,Gly\n1,P1,1.0,not-a-number,2.0\n")

	if _, err := readTable(dir, testLayout); err == nil {
		t.Fatal("expected error for unparseable concentration")
	}
}

func TestJoinCohortOuterJoin(t *testing.T) {
	uplc := &table{
		layout: testLayout,
		cols:   []string{"Ala"},
		rows: []tableRow{
			{id: "1", values: []float64{1.0}},
			{id: "2", values: []float64{2.0}},
		},
	}
	fia := &table{
		layout: Layout{Cohort: "T1", Method: "FIA", File: "t1_fia.csv"},
		cols:   []string{"C0"},
		rows: []tableRow{
			{id: "2", values: []float64{20.0}},
			{id: "3", values: []float64{30.0}},
		},
	}

	cd, err := joinCohort("T1", []*table{uplc, fia})
	if err != nil {
		t.Fatal(err)
	}

	d := cd.Data
	if got := d.NSamples(); got != 3 {
		t.Fatalf("samples = %d, want 3", got)
	}
	if want := []string{"Ala", "C0"}; !cmp.Equal(d.MetaboliteNames(), want) {
		t.Fatalf("metabolites: %v", cmp.Diff(want, d.MetaboliteNames()))
	}

	// Participant 1 never appears in the FIA file: present row, missing cells.
	k1 := matrix.SampleKey{ID: "1", Cohort: "T1"}
	if !d.HasSample(k1) {
		t.Fatal("participant 1 dropped instead of padded")
	}
	if got := d.Get(k1, "C0"); !matrix.IsMissing(got) {
		t.Fatalf("participant 1 C0 = %v, want missing", got)
	}
	if got := d.Get(matrix.SampleKey{ID: "2", Cohort: "T1"}, "C0"); got != 20.0 {
		t.Fatalf("participant 2 C0 = %v, want 20", got)
	}
}

func TestJoinCohortRejectsDuplicateColumns(t *testing.T) {
	a := &table{layout: testLayout, cols: []string{"Ala"}}
	b := &table{layout: Layout{File: "other.csv"}, cols: []string{"Ala"}}

	_, err := joinCohort("T1", []*table{a, b})

	var le LoadError
	if !errors.As(err, &le) {
		t.Fatalf("expected LoadError for colliding metabolite columns, got %v", err)
	}
}

func TestLoadUnknownPlatform(t *testing.T) {
	_, err := Load(t.TempDir(), "maldi")

	var le LoadError
	if !errors.As(err, &le) {
		t.Fatalf("expected LoadError, got %v", err)
	}
}

func TestCanonicalName(t *testing.T) {
	for _, tc := range []struct{ in, want string }{
		{"SM (OH) C14:1", "SM..OH..C14.1"},
		{"PC aa C36:6", "PC.aa.C36.6"},
		{"Ala", "Ala"},
	} {
		if got := CanonicalName(tc.in); got != tc.want {
			t.Errorf("CanonicalName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
