package util

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Grouped forms need at least two separators and a non-zero lead group, so
// "1.250" and "0,300" stay decimals.
var (
	reThousandsDot   = regexp.MustCompile(`^[-+]?[1-9]\d{0,2}(?:\.\d{3}){2,}$`)
	reThousandsComma = regexp.MustCompile(`^[-+]?[1-9]\d{0,2}(?:,\d{3}){2,}$`)
)

// ParseNumber coerces a spreadsheet cell to a float. A single comma or dot
// is a decimal separator; repeated three-digit groups and spaces are thousand
// separators; with both a dot and a comma the last one is the decimal
// separator. Anything else yields nil.
func ParseNumber(input *string) *float64 {
	if input == nil {
		return nil
	}
	token := strings.TrimSpace(strings.ReplaceAll(*input, "\u00A0", " "))
	if token == "" {
		return nil
	}
	parsed, err := strconv.ParseFloat(normalizeNumericToken(token), 64)
	if err != nil || math.IsNaN(parsed) || math.IsInf(parsed, 0) {
		return nil
	}
	return FloatPtr(parsed)
}

func normalizeNumericToken(token string) string {
	compact := strings.ReplaceAll(token, " ", "")
	if reThousandsDot.MatchString(compact) {
		return strings.ReplaceAll(compact, ".", "")
	}
	if reThousandsComma.MatchString(compact) {
		return strings.ReplaceAll(compact, ",", "")
	}
	dot, comma := strings.LastIndex(compact, "."), strings.LastIndex(compact, ",")
	switch {
	case dot >= 0 && comma >= 0 && comma > dot:
		return strings.Replace(strings.ReplaceAll(compact, ".", ""), ",", ".", 1)
	case dot >= 0 && comma >= 0:
		return strings.ReplaceAll(compact, ",", "")
	case strings.Count(compact, ",") == 1:
		return strings.Replace(compact, ",", ".", 1)
	}
	return compact
}

func FloatPtr(v float64) *float64 { return &v }

func StringPtr(v string) *string { return &v }

func IntPtr(v int) *int { return &v }

func Deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
