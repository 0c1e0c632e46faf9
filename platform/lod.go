package platform

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/extrame/xls"
	"github.com/montanaflynn/stats"
	"github.com/xuri/excelize/v2"

	"github.com/studymetab/metaboqc/matrix"
)

const plateBarcodeHeader = "Plate.Bar.Code"

// ReadLOD reads a per-plate limit-of-detection spreadsheet. Both the legacy
// .xls and the .xlsx vendor exports are accepted. The first sheet must hold
// a header row containing a plate barcode column; every other header cell is
// taken as a canonical metabolite name and every following row as one plate.
func ReadLOD(path string) ([]matrix.PlateLOD, error) {
	var grid [][]string
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xls":
		grid, err = readXLS(path)
	case ".xlsx":
		grid, err = readXLSX(path)
	default:
		return nil, loadErrf(filepath.Base(path), "unsupported spreadsheet extension")
	}
	if err != nil {
		return nil, err
	}

	return parseLODGrid(filepath.Base(path), grid)
}

func readXLS(path string) ([][]string, error) {
	book, err := xls.Open(path, "utf-8")
	if err != nil {
		return nil, loadErrf(filepath.Base(path), "cannot open: %v", err)
	}

	sheet := book.GetSheet(0)
	if sheet == nil {
		return nil, loadErrf(filepath.Base(path), "no sheets")
	}

	grid := make([][]string, 0, int(sheet.MaxRow)+1)
	for rowID := 0; rowID <= int(sheet.MaxRow); rowID++ {
		row := sheet.Row(rowID)
		if row == nil {
			grid = append(grid, nil)
			continue
		}
		cells := make([]string, 0, row.LastCol()+1)
		for colID := 0; colID <= row.LastCol(); colID++ {
			cells = append(cells, row.Col(colID))
		}
		grid = append(grid, cells)
	}
	return grid, nil
}

func readXLSX(path string) ([][]string, error) {
	book, err := excelize.OpenFile(path)
	if err != nil {
		return nil, loadErrf(filepath.Base(path), "cannot open: %v", err)
	}
	defer book.Close()

	sheets := book.GetSheetList()
	if len(sheets) == 0 {
		return nil, loadErrf(filepath.Base(path), "no sheets")
	}

	grid, err := book.GetRows(sheets[0])
	if err != nil {
		return nil, loadErrf(filepath.Base(path), "cannot read sheet %s: %v", sheets[0], err)
	}
	return grid, nil
}

func parseLODGrid(file string, grid [][]string) ([]matrix.PlateLOD, error) {
	// Vendor sheets carry preamble rows above the header, so scan for the
	// row holding the plate barcode column.
	headerRow, barcodeCol := -1, -1
	for i, row := range grid {
		for j, cell := range row {
			if CanonicalName(strings.TrimSpace(cell)) == plateBarcodeHeader {
				headerRow, barcodeCol = i, j
				break
			}
		}
		if headerRow >= 0 {
			break
		}
	}
	if headerRow < 0 {
		return nil, loadErrf(file, "no %q column found", plateBarcodeHeader)
	}

	type namedCol struct {
		col  int
		name string
	}
	metaboliteCols := []namedCol{}
	for j, cell := range grid[headerRow] {
		cell = strings.TrimSpace(cell)
		if j == barcodeCol || cell == "" {
			continue
		}
		name := CanonicalName(cell)
		// The UPLC sheets spell Met.So with a capital O.
		if name == "Met.SO" {
			name = "Met.So"
		}
		metaboliteCols = append(metaboliteCols, namedCol{col: j, name: name})
	}
	if len(metaboliteCols) == 0 {
		return nil, loadErrf(file, "header row has no metabolite columns")
	}

	plates := []matrix.PlateLOD{}
	for _, row := range grid[headerRow+1:] {
		if barcodeCol >= len(row) {
			continue
		}
		barcode := normalizeBarcode(row[barcodeCol])
		if barcode == "" {
			continue
		}

		p := matrix.PlateLOD{Plate: barcode, LOD: make(map[string]float64, len(metaboliteCols))}
		for _, mc := range metaboliteCols {
			if mc.col >= len(row) {
				continue
			}
			cell := strings.TrimSpace(row[mc.col])
			if cell == "" {
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, loadErrf(file, "plate %s: metabolite %s: bad LOD %q", barcode, mc.name, cell)
			}
			p.LOD[mc.name] = v
		}
		plates = append(plates, p)
	}

	return plates, nil
}

// normalizeBarcode extracts the plate barcode from a sheet cell. Some sheets
// embed the barcode inside a longer run description; the barcode token is
// the one containing a slash, which the data files write as a dash.
func normalizeBarcode(cell string) string {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return ""
	}
	for _, token := range strings.Fields(cell) {
		if strings.Contains(token, "/") {
			return strings.ReplaceAll(token, "/", "-")
		}
	}
	if strings.Contains(cell, " ") {
		// Multi-token description without a barcode token.
		return ""
	}
	return strings.ReplaceAll(cell, "/", "-")
}

// annotateLOD records each metabolite's median LOD across plates in the
// column metadata. Stage logic that needs the plate-exact LOD reads it from
// CohortData.LODs instead.
func annotateLOD(d *matrix.Dataset, cols []string, plates []matrix.PlateLOD) {
	for _, c := range cols {
		vals := []float64{}
		for _, p := range plates {
			if v, ok := p.LOD[c]; ok {
				vals = append(vals, v)
			}
		}
		if len(vals) == 0 {
			continue
		}
		med, err := stats.Median(vals)
		if err != nil {
			continue
		}
		_ = d.UpdateMetabolite(c, func(m *matrix.Metabolite) { m.LOD = med })
	}
}
