package pipeline

import (
	"citemon/internal"
	"citemon/internal/util"
)

// AggregateRare computes the "<column>_agg" cells for a categorical column:
// values seen at most once, and the placeholder value, become "Other"; other
// values pass through and nulls stay null. The source column is untouched.
// ok is false when the column is absent.
func AggregateRare(t *internal.Table, column, placeholder string) (values []*string, ok bool) {
	if !t.Has(column) {
		return nil, false
	}
	cells := t.Column(column)

	counts := map[string]int{}
	for _, c := range cells {
		if c != nil {
			counts[*c]++
		}
	}

	other := internal.ValueOther
	out := make([]*string, len(cells))
	for i, c := range cells {
		if c == nil {
			continue
		}
		if counts[*c] <= 1 || (placeholder != "" && *c == placeholder) {
			out[i] = &other
			continue
		}
		out[i] = util.StringPtr(*c)
	}
	return out, true
}

// ShortLabels derives display labels from a column: the first 16 characters
// plus "..." for values longer than 15 characters.
func ShortLabels(t *internal.Table, column string) ([]*string, bool) {
	if !t.Has(column) {
		return nil, false
	}
	cells := t.Column(column)
	out := make([]*string, len(cells))
	for i, c := range cells {
		if c == nil {
			continue
		}
		out[i] = util.StringPtr(util.Truncate(*c, 15, 16, "..."))
	}
	return out, true
}
