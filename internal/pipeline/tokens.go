package pipeline

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"citemon/internal"
	"citemon/internal/config"
	"citemon/internal/util"
)

var reInitials = regexp.MustCompile(`(?i)^[A-Z](?:\.|\.-[A-Z]\.)(?:\s[A-Z](?:\.|\.-[A-Z]\.))*$`)

// TokenFilter decides which split tokens count as entities.
type TokenFilter struct {
	// Tokens of MinLength runes or fewer are dropped.
	MinLength int
	// DropInitials removes tokens that are only initials, e.g. "J." or "A.-B. C.".
	DropInitials bool
	// StopWords are dropped, compared case-insensitively.
	StopWords []string
	// Require, when set, keeps only tokens containing one of the words.
	Require []string
}

func AuthorFilter(cfg config.Config) TokenFilter {
	return TokenFilter{MinLength: cfg.AuthorMinLength, DropInitials: cfg.AuthorDropInitials}
}

func InstitutionFilter(cfg config.Config) TokenFilter {
	return TokenFilter{
		MinLength: cfg.InstitutionMinLength,
		StopWords: cfg.InstitutionStopWords,
		Require:   cfg.InstitutionRequire,
	}
}

func (f TokenFilter) Keep(token string) bool {
	if utf8.RuneCountInString(token) <= f.MinLength {
		return false
	}
	if f.DropInitials && reInitials.MatchString(token) {
		return false
	}
	lower := strings.ToLower(token)
	for _, w := range f.StopWords {
		if lower == strings.ToLower(strings.TrimSpace(w)) {
			return false
		}
	}
	if len(f.Require) == 0 {
		return true
	}
	for _, w := range f.Require {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" && strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

// SplitTokens splits a comma-separated cell into trimmed, non-empty tokens.
// A null cell gives an empty, non-nil slice.
func SplitTokens(v *string) []string {
	out := []string{}
	if v == nil {
		return out
	}
	for _, part := range strings.Split(*v, ",") {
		part = util.NormalizeSpaces(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Explanation is the entity view of one multi-value column.
type Explanation struct {
	// Tokens holds the surviving tokens of each input cell, in order.
	Tokens    [][]string                `json:"tokens"`
	Counts    []internal.FrequencyEntry `json:"counts"`
	Repeating []internal.FrequencyEntry `json:"repeating"`
}

// Explain splits every value, applies the filter and counts the survivors.
// Counts are ordered by count descending, then by first appearance.
func Explain(values []*string, filter TokenFilter) Explanation {
	out := Explanation{Tokens: make([][]string, len(values))}
	counts := map[string]int{}
	order := []string{}
	for i, v := range values {
		kept := []string{}
		for _, tok := range SplitTokens(v) {
			if !filter.Keep(tok) {
				continue
			}
			kept = append(kept, tok)
			if _, seen := counts[tok]; !seen {
				order = append(order, tok)
			}
			counts[tok]++
		}
		out.Tokens[i] = kept
	}

	out.Counts = Frequencies(order, counts)
	out.Repeating = []internal.FrequencyEntry{}
	for _, e := range out.Counts {
		if e.Count > 1 {
			out.Repeating = append(out.Repeating, e)
		}
	}
	return out
}

// Frequencies builds a frequency table from counts, keys ordered by count
// descending with ties kept in the given order.
func Frequencies(order []string, counts map[string]int) []internal.FrequencyEntry {
	out := make([]internal.FrequencyEntry, 0, len(order))
	for _, k := range order {
		out = append(out, internal.FrequencyEntry{Value: k, Count: counts[k]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

// UniqueDocuments keeps the first row of each distinct document title and
// drops rows without a title. A missing column returns the table as is.
func UniqueDocuments(t *internal.Table, column string) *internal.Table {
	idx := t.Index(column)
	if idx < 0 {
		return t
	}
	out := &internal.Table{Columns: t.Columns}
	seen := map[string]struct{}{}
	for _, row := range t.Rows {
		if idx >= len(row) || util.IsBlank(row[idx]) {
			continue
		}
		key := *row[idx]
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out.Rows = append(out.Rows, row)
	}
	return out
}
