package report

import (
	"time"

	"citemon/internal"
)

// InPeriod keeps records published in year and, when months is not empty,
// in one of those months. A zero year with no months keeps everything;
// otherwise undated records are dropped.
func InPeriod(records []internal.CitationRecord, year int, months []int) []internal.CitationRecord {
	if year == 0 && len(months) == 0 {
		return records
	}
	wanted := map[time.Month]bool{}
	for _, m := range months {
		wanted[time.Month(m)] = true
	}
	out := make([]internal.CitationRecord, 0, len(records))
	for _, r := range records {
		if r.PublicationDate == nil {
			continue
		}
		if year != 0 && r.PublicationDate.Year() != year {
			continue
		}
		if len(wanted) > 0 && !wanted[r.PublicationDate.Month()] {
			continue
		}
		out = append(out, r)
	}
	return out
}
