package pipeline

import (
	"citemon/internal"
	"citemon/internal/util"
)

// TrimTrailing cuts the table at the first pair of consecutive blank cells
// in the anchor column, keeping only the rows before the pair, and reports
// how many rows were dropped. A missing anchor column leaves the table
// unchanged. Isolated blank anchors are left alone.
func TrimTrailing(t *internal.Table, anchor string) (*internal.Table, int) {
	idx := t.Index(anchor)
	if idx < 0 {
		return t, 0
	}

	blank := func(row []*string) bool {
		if idx >= len(row) {
			return true
		}
		return util.IsBlank(row[idx])
	}

	for i := 1; i < len(t.Rows); i++ {
		if blank(t.Rows[i-1]) && blank(t.Rows[i]) {
			removed := len(t.Rows) - (i - 1)
			return t.Head(i - 1), removed
		}
	}
	return t, 0
}
