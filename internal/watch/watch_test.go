package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"citemon/internal"
	"citemon/internal/config"
	"citemon/internal/pipeline"
	"citemon/internal/storage"
)

type stubRenderer struct {
	datasets map[string]*pipeline.Dataset
	calls    int
}

func (s *stubRenderer) Render(_ context.Context, sources []string, opts pipeline.RenderOptions) (*pipeline.Dataset, error) {
	s.calls++
	if !opts.NoCache {
		return nil, errors.New("watch must bypass the cache")
	}
	ds, ok := s.datasets[sources[0]]
	if !ok {
		return nil, errors.New("unreachable source")
	}
	return ds, nil
}

func dataset(titles ...string) *pipeline.Dataset {
	table := internal.NewTable(internal.ColDocument)
	var records []internal.CitationRecord
	for _, title := range titles {
		v := title
		table.AppendRow(&v)
		d := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
		records = append(records, internal.CitationRecord{DocumentTitle: &v, PublicationDate: &d, OutputType: "Report", OutputTypeCategory: "Report"})
	}
	return &pipeline.Dataset{Table: table, Records: records}
}

func TestRunCycle(t *testing.T) {
	dir := t.TempDir()
	db, err := storage.Open(filepath.Join(dir, "watch.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	renderer := &stubRenderer{datasets: map[string]*pipeline.Dataset{
		"q2.xlsx": dataset("Care and gender"),
	}}
	reports := &config.Reports{Reports: []config.Report{
		{ID: "q2/2025", Year: 2025, Months: []int{4, 5, 6}, Sources: []string{"q2.xlsx"}},
		{ID: "broken", Sources: []string{"missing.xlsx"}},
		{ID: "ignored", Sources: []string{"q2.xlsx"}},
	}}
	cfg := config.Config{OutputDir: dir, WatchReports: []string{"q2/2025", "broken"}}
	svc := NewService(db, cfg, renderer, reports, nil)

	res, err := svc.RunCycle(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Rendered != 1 || res.Exported != 1 || renderer.calls != 2 {
		t.Fatalf("first cycle=%+v calls=%d", res, renderer.calls)
	}
	if _, err := os.Stat(filepath.Join(dir, "watch", "q2_2025.xlsx")); err != nil {
		t.Fatalf("workbook not written: %v", err)
	}

	res, err = svc.RunCycle(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Exported != 0 {
		t.Fatalf("unchanged report exported again: %+v", res)
	}

	renderer.datasets["q2.xlsx"] = dataset("Care and gender", "Pay gaps")
	res, err = svc.RunCycle(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Exported != 1 {
		t.Fatalf("changed report not exported: %+v", res)
	}
}

func TestSanitizeID(t *testing.T) {
	if got := sanitizeID("annual: 2025/q1"); got != "annual__2025_q1" {
		t.Fatalf("got %q", got)
	}
}
