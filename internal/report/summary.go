package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"citemon/internal"
	"citemon/internal/util"
)

const (
	TotalLabel       = "Total"
	UnspecifiedOther = "Other (unspecified)"
)

type QuarterRow struct {
	Quarter      string `json:"quarter"`
	Publications int    `json:"publications"`
	Mentions     int    `json:"mentions"`
}

// QuarterSummary counts distinct citing documents and mentions per calendar
// quarter, Q1 to Q4 in order, followed by a total row. Records without a
// date fall in no quarter.
func QuarterSummary(records []internal.CitationRecord) []QuarterRow {
	docs := [4]map[string]struct{}{}
	rows := make([]QuarterRow, 5)
	for q := 0; q < 4; q++ {
		docs[q] = map[string]struct{}{}
		rows[q].Quarter = fmt.Sprintf("Q%d", q+1)
	}
	rows[4].Quarter = TotalLabel

	for _, r := range records {
		if r.PublicationDate == nil {
			continue
		}
		q := (int(r.PublicationDate.Month()) - 1) / 3
		if r.DocumentTitle != nil {
			docs[q][*r.DocumentTitle] = struct{}{}
		}
		if r.OutputType != internal.ValueUnknown {
			rows[q].Mentions++
		}
	}
	for q := 0; q < 4; q++ {
		rows[q].Publications = len(docs[q])
		rows[4].Publications += rows[q].Publications
		rows[4].Mentions += rows[q].Mentions
	}
	return rows
}

type MonthCount struct {
	Month     time.Month `json:"month"`
	Documents int        `json:"documents"`
}

// MonthlyDocuments counts distinct citing documents per month, for the
// months present, in calendar order.
func MonthlyDocuments(records []internal.CitationRecord) []MonthCount {
	docs := map[time.Month]map[string]struct{}{}
	for _, r := range records {
		if r.PublicationDate == nil || r.DocumentTitle == nil {
			continue
		}
		m := r.PublicationDate.Month()
		if docs[m] == nil {
			docs[m] = map[string]struct{}{}
		}
		docs[m][*r.DocumentTitle] = struct{}{}
	}
	out := make([]MonthCount, 0, len(docs))
	for m, set := range docs {
		out = append(out, MonthCount{Month: m, Documents: len(set)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

func MostActive(months []MonthCount) []time.Month {
	return extremeMonths(months, func(a, b int) bool { return a > b })
}

func LeastActive(months []MonthCount) []time.Month {
	return extremeMonths(months, func(a, b int) bool { return a < b })
}

func extremeMonths(months []MonthCount, better func(a, b int) bool) []time.Month {
	if len(months) == 0 {
		return nil
	}
	best := months[0].Documents
	for _, m := range months[1:] {
		if better(m.Documents, best) {
			best = m.Documents
		}
	}
	var out []time.Month
	for _, m := range months {
		if m.Documents == best {
			out = append(out, m.Month)
		}
	}
	return out
}

// MonthsLabel names the months with dated records, e.g.
// "April - May - June".
func MonthsLabel(records []internal.CitationRecord) string {
	seen := map[time.Month]bool{}
	for _, r := range records {
		if r.PublicationDate != nil {
			seen[r.PublicationDate.Month()] = true
		}
	}
	var names []string
	for m := time.January; m <= time.December; m++ {
		if seen[m] {
			names = append(names, m.String())
		}
	}
	return strings.Join(names, " - ")
}

// OutputTypeCounts counts mentions per aggregated output category. With
// resolve, "Unknown" rows are skipped and each "Other" row is counted under
// its detailed output type, or "Other (unspecified)" when there is none.
func OutputTypeCounts(records []internal.CitationRecord, resolve bool) []internal.FrequencyEntry {
	counts := map[string]int{}
	var order []string
	for _, r := range records {
		key := r.OutputTypeCategory
		if key == "" {
			key = internal.ValueUnknown
		}
		if resolve {
			if key == internal.ValueUnknown {
				continue
			}
			if key == internal.ValueOther {
				key = strings.TrimSpace(r.OutputType)
				if key == "" || key == internal.ValueUnknown {
					key = UnspecifiedOther
				}
			}
		}
		if _, ok := counts[key]; !ok {
			order = append(order, key)
		}
		counts[key]++
	}
	out := make([]internal.FrequencyEntry, 0, len(order))
	for _, k := range order {
		out = append(out, internal.FrequencyEntry{Value: k, Count: counts[k]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

// TotalCitations sums the citation counts, treating missing values as zero.
func TotalCitations(records []internal.CitationRecord) int {
	total := 0.0
	for _, r := range records {
		if r.Metrics.Citations != nil {
			total += *r.Metrics.Citations
		}
	}
	return int(total)
}

type DocumentMentions struct {
	Document string `json:"document"`
	Label    string `json:"label"`
	Mentions int    `json:"mentions"`
}

// MentionsPerDocument counts rows per citing document in first-seen order.
// Label is the title cut to 15 characters.
func MentionsPerDocument(records []internal.CitationRecord) []DocumentMentions {
	idx := map[string]int{}
	var out []DocumentMentions
	for _, r := range records {
		if r.DocumentTitle == nil {
			continue
		}
		title := *r.DocumentTitle
		if i, ok := idx[title]; ok {
			out[i].Mentions++
			continue
		}
		idx[title] = len(out)
		out = append(out, DocumentMentions{
			Document: title,
			Label:    util.Truncate(title, 15, 15, "..."),
			Mentions: 1,
		})
	}
	return out
}
