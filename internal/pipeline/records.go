package pipeline

import (
	"time"

	"citemon/internal"
	"citemon/internal/util"
)

// BuildRecords converts a cleaned table into typed records. Numeric cells
// that do not parse become nil; their number is returned alongside.
func BuildRecords(t *internal.Table) ([]internal.CitationRecord, int) {
	unparsed := 0
	number := func(i int, col string) *float64 {
		c := t.Cell(i, col)
		if util.IsBlank(c) {
			return nil
		}
		v := util.ParseNumber(c)
		if v == nil {
			unparsed++
		}
		return v
	}
	text := func(i int, col string) *string {
		c := t.Cell(i, col)
		if util.IsBlank(c) {
			return nil
		}
		return c
	}

	records := make([]internal.CitationRecord, 0, t.Len())
	for i := range t.Rows {
		rec := internal.CitationRecord{
			Row:                i + 1,
			DocumentTitle:      text(i, internal.ColDocument),
			DocumentURL:        text(i, internal.ColURL),
			Journal:            text(i, internal.ColJournal),
			Authors:            SplitTokens(t.Cell(i, internal.ColAuthors)),
			Institutions:       SplitTokens(t.Cell(i, internal.ColInstitutions)),
			OutputType:         util.Deref(text(i, internal.ColOutputType)),
			OutputTypeCategory: util.Deref(text(i, internal.ColOutputType+internal.AggSuffix)),
			OutputCited:        text(i, internal.ColOutputCited),
			ShortLabel:         text(i, internal.ColShortLabels),
			Metrics: internal.Metrics{
				Citations:    number(i, internal.ColCitations),
				ImpactFactor: number(i, internal.ColImpactFactor),
				Sentiment:    number(i, internal.ColSentiment),
				Location:     number(i, internal.ColLocation),
			},
			Weight: number(i, internal.ColWeight),
		}
		if rec.OutputType == "" {
			rec.OutputType = internal.ValueUnknown
		}
		if rec.OutputTypeCategory == "" {
			rec.OutputTypeCategory = internal.ValueUnknown
		}
		if d := text(i, internal.ColDate); d != nil {
			if parsed, err := time.Parse(DateLayout, *d); err == nil {
				rec.PublicationDate = &parsed
			}
		}
		records = append(records, rec)
	}
	return records, unparsed
}
