package pipeline

import (
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"citemon/internal"
)

// Sheet is one worksheet of an export. Nil pointer cells are written empty.
type Sheet struct {
	Name   string
	Header []string
	Rows   [][]any
}

func ExportToXLSX(outputPath string, sheets ...Sheet) error {
	f := excelize.NewFile()
	defer f.Close()

	first := f.GetSheetName(0)
	for i, sheet := range sheets {
		if i == 0 {
			if err := f.SetSheetName(first, sheet.Name); err != nil {
				return err
			}
		} else if _, err := f.NewSheet(sheet.Name); err != nil {
			return err
		}

		for c, h := range sheet.Header {
			cell, _ := excelize.CoordinatesToCellName(c+1, 1)
			_ = f.SetCellValue(sheet.Name, cell, h)
		}
		for r, row := range sheet.Rows {
			for c, value := range row {
				cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
				_ = f.SetCellValue(sheet.Name, cell, cellValue(value))
			}
		}
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}

func cellValue(v any) any {
	switch t := v.(type) {
	case *string:
		if t == nil {
			return ""
		}
		return *t
	case *float64:
		if t == nil {
			return ""
		}
		return *t
	case *int:
		if t == nil {
			return ""
		}
		return *t
	default:
		return v
	}
}

// DatasetSheets lays out the cleaned table and the entity counts.
func DatasetSheets(ds *Dataset) []Sheet {
	data := Sheet{Name: "data", Header: ds.Table.Columns}
	for _, row := range ds.Table.Rows {
		out := make([]any, len(ds.Table.Columns))
		for i := range out {
			if i < len(row) {
				out[i] = row[i]
			} else {
				out[i] = (*string)(nil)
			}
		}
		data.Rows = append(data.Rows, out)
	}
	return []Sheet{
		data,
		FrequencySheet("authors", ds.Authors.Counts),
		FrequencySheet("institutions", ds.Institutions.Counts),
	}
}

func FrequencySheet(name string, entries []internal.FrequencyEntry) Sheet {
	s := Sheet{Name: name, Header: []string{"value", "count"}}
	for _, e := range entries {
		s.Rows = append(s.Rows, []any{e.Value, e.Count})
	}
	return s
}
