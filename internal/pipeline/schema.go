package pipeline

import (
	"fmt"
	"strings"

	"citemon/internal"
	"citemon/internal/util"
)

// RequiredColumns lists the columns the record builder reads.
var RequiredColumns = []string{
	internal.ColDate,
	internal.ColDocument,
	internal.ColOutputType,
	internal.ColOutputCited,
	internal.ColAuthors,
	internal.ColInstitutions,
	internal.ColURL,
	internal.ColJournal,
	internal.ColWeight,
	internal.ColCitations,
	internal.ColImpactFactor,
	internal.ColSentiment,
	internal.ColLocation,
}

const suggestionThreshold = 0.6

// SchemaMismatch reports expected columns missing from a table. It is a
// warning; processing continues without the missing columns.
type SchemaMismatch struct {
	Missing []string `json:"missing"`
	// Suggestions maps a missing column to the closest present one.
	Suggestions map[string]string `json:"suggestions,omitempty"`
}

func (m *SchemaMismatch) Error() string {
	parts := make([]string, 0, len(m.Missing))
	for _, col := range m.Missing {
		if s, ok := m.Suggestions[col]; ok {
			parts = append(parts, fmt.Sprintf("%s (did you mean %s?)", col, s))
			continue
		}
		parts = append(parts, col)
	}
	return "missing columns: " + strings.Join(parts, ", ")
}

// Validate checks the table for the required columns. It returns nil when
// all of them are present.
func Validate(t *internal.Table, required []string) *SchemaMismatch {
	expected := map[string]struct{}{}
	for _, col := range required {
		expected[col] = struct{}{}
	}

	var m *SchemaMismatch
	for _, col := range required {
		if t.Has(col) {
			continue
		}
		if m == nil {
			m = &SchemaMismatch{Suggestions: map[string]string{}}
		}
		m.Missing = append(m.Missing, col)

		best, bestScore := "", 0.0
		for _, present := range t.Columns {
			if _, taken := expected[present]; taken {
				continue
			}
			if score := util.DiceCoefficient(col, present); score > bestScore {
				best, bestScore = present, score
			}
		}
		if bestScore >= suggestionThreshold {
			m.Suggestions[col] = best
		}
	}
	return m
}
