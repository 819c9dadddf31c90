package report

import (
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"citemon/internal"
	"citemon/internal/pipeline"
)

func strp(v string) *string { return &v }
func fp(v float64) *float64 { return &v }
func day(y, m, d int) *time.Time {
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	return &t
}

func rec(date *time.Time, doc string, category, detail string) internal.CitationRecord {
	r := internal.CitationRecord{PublicationDate: date, OutputTypeCategory: category, OutputType: detail}
	if doc != "" {
		r.DocumentTitle = strp(doc)
	}
	return r
}

func sample() []internal.CitationRecord {
	rs := []internal.CitationRecord{
		rec(day(2025, 1, 10), "Care and gender", "Report", "Report"),
		rec(day(2025, 1, 20), "Care and gender", "Report", "Report"),
		rec(day(2025, 2, 5), "Pay gaps", "Other", "Factsheet"),
		rec(day(2025, 4, 1), "Violence survey", "Unknown", "Unknown"),
		rec(day(2025, 5, 3), "Violence survey", "Other", "Unknown"),
		rec(nil, "Undated", "Report", "Report"),
	}
	rs[0].Weight, rs[1].Weight = fp(3), fp(3)
	rs[2].Weight = fp(5)
	rs[3].Weight = fp(1)
	rs[0].Metrics = internal.Metrics{Citations: fp(10), ImpactFactor: fp(3), Sentiment: fp(1), Location: fp(3)}
	rs[1].Metrics = internal.Metrics{Citations: fp(10), ImpactFactor: fp(1), Sentiment: fp(-1), Location: fp(1)}
	rs[2].Metrics = internal.Metrics{Citations: fp(4)}
	return rs
}

func TestQuarterSummary(t *testing.T) {
	got := QuarterSummary(sample())
	want := []QuarterRow{
		{Quarter: "Q1", Publications: 2, Mentions: 3},
		{Quarter: "Q2", Publications: 1},
		{Quarter: "Q3"},
		{Quarter: "Q4"},
		{Quarter: "Total", Publications: 3, Mentions: 3},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v", got)
	}
}

func TestMonthlyDocuments(t *testing.T) {
	monthly := MonthlyDocuments(sample())
	want := []MonthCount{{time.January, 1}, {time.February, 1}, {time.April, 1}, {time.May, 1}}
	if !reflect.DeepEqual(monthly, want) {
		t.Fatalf("got %+v", monthly)
	}
	if got := MostActive(monthly); len(got) != 4 {
		t.Fatalf("tie should return all months, got %v", got)
	}

	monthly[1].Documents = 3
	monthly[3].Documents = 0
	if got := MostActive(monthly); !reflect.DeepEqual(got, []time.Month{time.February}) {
		t.Fatalf("most=%v", got)
	}
	if got := LeastActive(monthly); !reflect.DeepEqual(got, []time.Month{time.May}) {
		t.Fatalf("least=%v", got)
	}
	if MostActive(nil) != nil {
		t.Fatal("no months, no answer")
	}
}

func TestMonthsLabel(t *testing.T) {
	if got := MonthsLabel(sample()); got != "January - February - April - May" {
		t.Fatalf("got %q", got)
	}
}

func TestOutputTypeCounts(t *testing.T) {
	raw := OutputTypeCounts(sample(), false)
	wantRaw := []internal.FrequencyEntry{{Value: "Report", Count: 3}, {Value: "Other", Count: 2}, {Value: "Unknown", Count: 1}}
	if !reflect.DeepEqual(raw, wantRaw) {
		t.Fatalf("raw=%v", raw)
	}

	resolved := OutputTypeCounts(sample(), true)
	wantResolved := []internal.FrequencyEntry{{Value: "Report", Count: 3}, {Value: "Factsheet", Count: 1}, {Value: "Other (unspecified)", Count: 1}}
	if !reflect.DeepEqual(resolved, wantResolved) {
		t.Fatalf("resolved=%v", resolved)
	}
}

func TestImpactProfiles(t *testing.T) {
	got := ImpactProfiles(sample())
	if len(got) != 5 {
		t.Fatalf("len=%d", len(got))
	}
	if got[0].Document != "Pay gaps" || got[1].Document != "Care and gender" || got[2].Document != "Violence survey" {
		t.Fatalf("order=%s,%s,%s", got[0].Document, got[1].Document, got[2].Document)
	}
	if got[3].Document != "Violence survey" || got[3].Weight != nil || got[4].Document != "Undated" || got[4].Weight != nil {
		t.Fatalf("unweighted rows go last: %+v %+v", got[3], got[4])
	}

	care := got[1]
	if care.Citations != 10 || care.ImpactFactor != 2 || care.Location != 2 || care.Sentiment != 1.5 {
		t.Fatalf("care=%+v", care)
	}
	// A missing sentiment counts as neutral.
	if got[0].Sentiment != 1.5 || got[0].ImpactFactor != 0 {
		t.Fatalf("pay gaps=%+v", got[0])
	}
}

func TestImpactProfilesSplitByWeight(t *testing.T) {
	a := rec(day(2025, 1, 10), "Care and gender", "Report", "Report")
	a.Weight, a.Metrics.Citations = fp(3), fp(10)
	b := rec(day(2025, 2, 10), "Care and gender", "Report", "Report")
	b.Weight, b.Metrics.Citations = fp(1), fp(2)

	got := ImpactProfiles([]internal.CitationRecord{b, a})
	if len(got) != 2 {
		t.Fatalf("one profile per weight expected, got %+v", got)
	}
	if *got[0].Weight != 3 || got[0].Citations != 10 || *got[1].Weight != 1 || got[1].Citations != 2 {
		t.Fatalf("profiles=%+v", got)
	}
}

func TestTopWeighted(t *testing.T) {
	got := TopWeighted(sample(), 2)
	want := []RankedDocument{{Rank: 1, Document: "Pay gaps", Weight: 5}, {Rank: 2, Document: "Care and gender", Weight: 3}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v", got)
	}
	if all := TopWeighted(sample(), 0); len(all) != 3 {
		t.Fatalf("len=%d", len(all))
	}
}

func TestCitationTrends(t *testing.T) {
	byType := CitationsByMonthAndType(sample())
	if len(byType) != 2 || byType[0].Citations != 20 || byType[1].OutputType != "Factsheet" {
		t.Fatalf("byType=%+v", byType)
	}
	avg := MonthlyAverageCitations(sample())
	if len(avg) != 2 || avg[0].Value != 10 || avg[1].Value != 4 {
		t.Fatalf("avg=%+v", avg)
	}
	if TotalCitations(sample()) != 24 {
		t.Fatalf("total=%d", TotalCitations(sample()))
	}
}

func TestMentionsPerDocument(t *testing.T) {
	got := MentionsPerDocument(sample())
	if len(got) != 4 || got[0].Mentions != 2 || got[0].Label != "Care and gender" {
		t.Fatalf("got %+v", got)
	}
	long := MentionsPerDocument([]internal.CitationRecord{rec(nil, "A very long article title", "", "")})
	if long[0].Label != "A very long art..." {
		t.Fatalf("label=%q", long[0].Label)
	}
}

func TestExportXLSX(t *testing.T) {
	table := internal.NewTable(internal.ColDocument)
	table.AppendRow(strp("Care and gender"))
	ds := &pipeline.Dataset{Table: table}
	summary := Build(sample(), 0)

	out := filepath.Join(t.TempDir(), "report.xlsx")
	if err := ExportXLSX(ds, summary, out); err != nil {
		t.Fatal(err)
	}
	f, err := excelize.OpenFile(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	want := []string{"data", "authors", "institutions", "summary", "monthly", "output_types", "impact", "top"}
	if got := f.GetSheetList(); !reflect.DeepEqual(got, want) {
		t.Fatalf("sheets=%v", got)
	}
	rows, err := f.GetRows("summary")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 6 || rows[5][0] != "Total" || rows[5][2] != "3" {
		t.Fatalf("summary rows=%v", rows)
	}
}

func TestInPeriod(t *testing.T) {
	records := sample()
	records = append(records, rec(day(2024, 4, 2), "Old", "Report", "Report"))

	tests := []struct {
		name   string
		year   int
		months []int
		want   int
	}{
		{"everything", 0, nil, 7},
		{"year", 2025, nil, 5},
		{"second quarter", 2025, []int{4, 5, 6}, 2},
		{"april any year", 0, []int{4}, 2},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := InPeriod(records, tc.year, tc.months); len(got) != tc.want {
				t.Fatalf("got %d records, want %d", len(got), tc.want)
			}
		})
	}
}
