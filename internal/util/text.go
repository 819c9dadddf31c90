package util

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var reSpaces = regexp.MustCompile(`\s+`)

// NormalizeSpaces applies NFKC, collapses whitespace runs to one space and
// trims the result. NFKC folds non-breaking and other exotic spaces that
// spreadsheet exports tend to carry.
func NormalizeSpaces(input string) string {
	s := norm.NFKC.String(input)
	return strings.TrimSpace(reSpaces.ReplaceAllString(s, " "))
}

// IsBlank reports whether a cell is null or whitespace only.
func IsBlank(v *string) bool {
	return v == nil || strings.TrimSpace(*v) == ""
}

// Truncate keeps the first n runes of input and appends suffix when input
// is longer than limit runes.
func Truncate(input string, limit, n int, suffix string) string {
	r := []rune(input)
	if len(r) <= limit {
		return input
	}
	if n > len(r) {
		n = len(r)
	}
	return string(r[:n]) + suffix
}

func DiceCoefficient(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}

	pairs := func(s string) []string {
		r := []rune(s)
		if len(r) < 2 {
			return nil
		}
		out := make([]string, 0, len(r)-1)
		for i := 0; i < len(r)-1; i++ {
			out = append(out, string(r[i:i+2]))
		}
		return out
	}

	aPairs := pairs(a)
	bPairs := pairs(b)
	if len(aPairs) == 0 || len(bPairs) == 0 {
		return 0
	}

	bCount := map[string]int{}
	for _, p := range bPairs {
		bCount[p]++
	}
	inter := 0
	for _, p := range aPairs {
		if bCount[p] > 0 {
			inter++
			bCount[p]--
		}
	}

	return float64(2*inter) / float64(len(aPairs)+len(bPairs))
}
