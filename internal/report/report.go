package report

import (
	"strings"
	"time"

	"citemon/internal"
	"citemon/internal/pipeline"
)

const DefaultTopN = 5

// Summary gathers the figures a report page is built from.
type Summary struct {
	Months         string                    `json:"months"`
	Quarters       []QuarterRow              `json:"quarters"`
	Monthly        []MonthCount              `json:"monthly"`
	MostActive     []time.Month              `json:"mostActive"`
	LeastActive    []time.Month              `json:"leastActive"`
	OutputTypes    []internal.FrequencyEntry `json:"outputTypes"`
	Documents      []DocumentMentions        `json:"documents"`
	TotalCitations int                       `json:"totalCitations"`
	Impact         []ImpactProfile           `json:"impact"`
	Top            []RankedDocument          `json:"top"`
}

func Build(records []internal.CitationRecord, topN int) Summary {
	if topN <= 0 {
		topN = DefaultTopN
	}
	monthly := MonthlyDocuments(records)
	return Summary{
		Months:         MonthsLabel(records),
		Quarters:       QuarterSummary(records),
		Monthly:        monthly,
		MostActive:     MostActive(monthly),
		LeastActive:    LeastActive(monthly),
		OutputTypes:    OutputTypeCounts(records, true),
		Documents:      MentionsPerDocument(records),
		TotalCitations: TotalCitations(records),
		Impact:         ImpactProfiles(records),
		Top:            TopWeighted(records, topN),
	}
}

func JoinMonths(months []time.Month) string {
	names := make([]string, len(months))
	for i, m := range months {
		names[i] = m.String()
	}
	return strings.Join(names, ", ")
}

// Sheets lays out the summary as worksheets.
func Sheets(s Summary) []pipeline.Sheet {
	quarters := pipeline.Sheet{Name: "summary", Header: []string{"quarter", "publications", "mentions"}}
	for _, q := range s.Quarters {
		quarters.Rows = append(quarters.Rows, []any{q.Quarter, q.Publications, q.Mentions})
	}

	monthly := pipeline.Sheet{Name: "monthly", Header: []string{"month", "documents"}}
	for _, m := range s.Monthly {
		monthly.Rows = append(monthly.Rows, []any{m.Month.String(), m.Documents})
	}

	impact := pipeline.Sheet{Name: "impact", Header: []string{"document", "weight", "citations", "impact_factor", "sentiment", "location"}}
	for _, p := range s.Impact {
		impact.Rows = append(impact.Rows, []any{p.Document, p.Weight, p.Citations, p.ImpactFactor, p.Sentiment, p.Location})
	}

	top := pipeline.Sheet{Name: "top", Header: []string{"rank", "document", "weight"}}
	for _, d := range s.Top {
		top.Rows = append(top.Rows, []any{d.Rank, d.Document, d.Weight})
	}

	return []pipeline.Sheet{
		quarters,
		monthly,
		pipeline.FrequencySheet("output_types", s.OutputTypes),
		impact,
		top,
	}
}

// ExportXLSX writes the cleaned data, entity counts and summary tables to
// one workbook.
func ExportXLSX(ds *pipeline.Dataset, s Summary, path string) error {
	sheets := pipeline.DatasetSheets(ds)
	sheets = append(sheets, Sheets(s)...)
	return pipeline.ExportToXLSX(path, sheets...)
}
