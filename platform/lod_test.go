package platform

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseLODGrid(t *testing.T) {
	grid := [][]string{
		{"Some vendor preamble"},
		{"", "Plate Bar Code", "Ala", "Met-SO", "SM (OH) C14:1"},
		{"", "OP 1 2019/0017321", "0.1", "0.2", "0.3"},
		{"", "OP 1 2019/0017322", "0.4", "", "0.6"},
	}

	plates, err := parseLODGrid("test.xlsx", grid)
	if err != nil {
		t.Fatal(err)
	}

	if got := len(plates); got != 2 {
		t.Fatalf("plates = %d, want 2", got)
	}
	if got, want := plates[0].Plate, "2019-0017321"; got != want {
		t.Fatalf("barcode = %q, want %q", got, want)
	}

	// Metabolite names are canonicalized, including the Met.So fixup.
	want := map[string]float64{"Ala": 0.1, "Met.So": 0.2, "SM..OH..C14.1": 0.3}
	if !cmp.Equal(plates[0].LOD, want) {
		t.Fatal(cmp.Diff(want, plates[0].LOD))
	}

	// The empty Met-SO cell on the second plate is simply absent.
	if _, ok := plates[1].LOD["Met.So"]; ok {
		t.Fatal("empty LOD cell must not produce an entry")
	}
}

func TestParseLODGridNoBarcodeColumn(t *testing.T) {
	_, err := parseLODGrid("test.xlsx", [][]string{{"Ala", "Gly"}, {"0.1", "0.2"}})

	var le LoadError
	if !errors.As(err, &le) {
		t.Fatalf("expected LoadError, got %v", err)
	}
}

func TestNormalizeBarcode(t *testing.T) {
	for _, tc := range []struct{ in, want string }{
		{"OP 1 2019/0017321", "2019-0017321"},
		{"2019/0017321", "2019-0017321"},
		{"P1", "P1"},
		{"  ", ""},
		{"no barcode here", ""},
	} {
		if got := normalizeBarcode(tc.in); got != tc.want {
			t.Errorf("normalizeBarcode(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
