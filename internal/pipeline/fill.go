package pipeline

import (
	"citemon/internal"
	"citemon/internal/util"
)

// FillColumns are the categorical columns whose nulls become "Unknown".
var FillColumns = []string{
	internal.ColOutputType + internal.AggSuffix,
	internal.ColOutputType,
}

// FillUnknown replaces blank cells of the listed columns with "Unknown" and
// returns how many cells were filled. Absent columns are skipped.
func FillUnknown(t *internal.Table, columns []string) int {
	filled := 0
	for _, col := range columns {
		idx := t.Index(col)
		if idx < 0 {
			continue
		}
		for i, row := range t.Rows {
			if idx < len(row) && !util.IsBlank(row[idx]) {
				continue
			}
			for len(t.Rows[i]) <= idx {
				t.Rows[i] = append(t.Rows[i], nil)
			}
			t.Rows[i][idx] = util.StringPtr(internal.ValueUnknown)
			filled++
		}
	}
	return filled
}
