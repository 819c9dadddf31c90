package pipeline

import (
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/xuri/excelize/v2"

	"citemon/internal"
	"citemon/internal/util"
)

// DateLayout is the canonical cell form of a normalized date.
const DateLayout = "2006-01-02"

var dayFirstLayouts = []string{
	"02.01.2006", "2.1.2006",
	"02/01/2006", "2/1/2006",
	"02-01-2006", "2-1-2006",
	"02.01.06", "2.1.06",
	"02/01/06", "2/1/06",
	"02-01-06", "2-1-06",
}

var isoLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006/01/02",
}

// ParseDate reads a date cell. Numeric dates are read day-first; Excel
// serial numbers are accepted; anything else goes through a free-text parser
// that also prefers day-first. Unparseable input yields nil.
func ParseDate(input string) *time.Time {
	s := util.NormalizeSpaces(input)
	if s == "" {
		return nil
	}

	for _, layout := range dayFirstLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		if serial < 10000 {
			return nil
		}
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return nil
		}
		return &t
	}
	if !strings.ContainsAny(s, "0123456789") {
		return nil
	}
	t, err := dateparse.ParseIn(s, time.UTC, dateparse.PreferMonthFirst(false))
	if err != nil {
		return nil
	}
	return &t
}

// NormalizeDates parses every cell of the column. It returns the canonical
// cells, the parsed times aligned with them, and how many non-null cells
// could not be parsed. ok is false when the column is absent.
func NormalizeDates(t *internal.Table, column string) (cells []*string, times []*time.Time, unparsed int, ok bool) {
	if !t.Has(column) {
		return nil, nil, 0, false
	}
	src := t.Column(column)
	cells = make([]*string, len(src))
	times = make([]*time.Time, len(src))
	for i, c := range src {
		if util.IsBlank(c) {
			continue
		}
		parsed := ParseDate(*c)
		if parsed == nil {
			unparsed++
			continue
		}
		times[i] = parsed
		cells[i] = util.StringPtr(parsed.Format(DateLayout))
	}
	return cells, times, unparsed, true
}
