package pipeline

import (
	"strings"

	"citemon/internal"
	"citemon/internal/util"
)

// CanonicalColumn trims, lowercases and joins words with "_".
// "  Date of Publication " becomes "date_of_publication".
func CanonicalColumn(name string) string {
	s := strings.ToLower(util.NormalizeSpaces(name))
	return strings.ReplaceAll(s, " ", "_")
}

// NormalizeColumns rewrites every column name to its canonical form in
// place. Columns that collapse onto the same canonical name are merged, each
// cell taking the first non-null value in column order.
func NormalizeColumns(t *internal.Table) *internal.Table {
	if t == nil {
		return t
	}

	canon := make([]string, 0, len(t.Columns))
	target := make([]int, len(t.Columns))
	pos := map[string]int{}
	for i, c := range t.Columns {
		name := CanonicalColumn(c)
		if j, ok := pos[name]; ok {
			target[i] = j
			continue
		}
		pos[name] = len(canon)
		target[i] = len(canon)
		canon = append(canon, name)
	}

	if len(canon) == len(t.Columns) {
		t.Columns = canon
		return t
	}

	for r, row := range t.Rows {
		merged := make([]*string, len(canon))
		for i, cell := range row {
			if i >= len(target) {
				break
			}
			if merged[target[i]] == nil && cell != nil {
				merged[target[i]] = cell
			}
		}
		t.Rows[r] = merged
	}
	t.Columns = canon
	return t
}
