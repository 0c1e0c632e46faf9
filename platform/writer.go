package platform

import (
	"encoding/csv"
	"os"
	"strconv"

	"github.com/carbocation/pfx"

	"github.com/studymetab/metaboqc/matrix"
)

// Write serializes the cleaned matrix as CSV: one participant row per line,
// one metabolite per column, empty cells for missing values.
func Write(d *matrix.Dataset, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return pfx.Err(err)
	}
	defer f.Close()

	w := csv.NewWriter(f)

	header := append([]string{"RID", "Cohort"}, d.MetaboliteNames()...)
	if err := w.Write(header); err != nil {
		return pfx.Err(err)
	}

	for _, key := range d.SampleKeys() {
		row, err := d.Row(key)
		if err != nil {
			return pfx.Err(err)
		}
		record := make([]string, 0, len(row)+2)
		record = append(record, key.ID, key.Cohort)
		for _, v := range row {
			if matrix.IsMissing(v) {
				record = append(record, "")
				continue
			}
			record = append(record, strconv.FormatFloat(v, 'g', -1, 64))
		}
		if err := w.Write(record); err != nil {
			return pfx.Err(err)
		}
	}

	w.Flush()
	return pfx.Err(w.Error())
}
