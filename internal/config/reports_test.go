package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleReports = `
reports:
  - id: 2025-q2
    title: Q2 2025 Report
    year: 2025
    months: [4, 5, 6]
    grain: documents
    sources:
      - data/2025_data/2025Q2.xlsx
    geo_sources:
      - data/2025_maps/2025Q2_map.xlsx
  - id: 2025-annual
    title: 2025 Annual Report
    year: 2025
    sources:
      - https://example.test/2025_all.xlsx
`

func TestLoadReports(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports.yml")
	if err := os.WriteFile(path, []byte(sampleReports), 0o644); err != nil {
		t.Fatal(err)
	}

	reports, err := LoadReports(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(reports.Reports) != 2 {
		t.Fatalf("len=%d", len(reports.Reports))
	}

	q2, err := reports.Find("2025-q2")
	if err != nil {
		t.Fatal(err)
	}
	if q2.Grain != "documents" || len(q2.Months) != 3 || len(q2.GeoSources) != 1 {
		t.Fatalf("unexpected report: %+v", q2)
	}
	if _, err := reports.Find("missing"); err == nil {
		t.Fatal("expected not found error")
	}
}

func TestParseReportsValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{name: "missing id", yaml: "reports:\n  - sources: [a.xlsx]\n", want: "missing id"},
		{name: "no sources", yaml: "reports:\n  - id: x\n", want: "no sources"},
		{name: "bad month", yaml: "reports:\n  - id: x\n    months: [13]\n    sources: [a.xlsx]\n", want: "invalid month"},
		{name: "bad grain", yaml: "reports:\n  - id: x\n    grain: weekly\n    sources: [a.xlsx]\n", want: "unsupported grain"},
		{name: "duplicate", yaml: "reports:\n  - id: x\n    sources: [a.xlsx]\n  - id: x\n    sources: [b.xlsx]\n", want: "duplicate id"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseReports([]byte(tc.yaml))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("err=%v want %q", err, tc.want)
			}
		})
	}
}

func TestGetEnvList(t *testing.T) {
	t.Setenv("CITEMON_TEST_LIST", " spain, ,canada ")
	got := getEnvList("CITEMON_TEST_LIST", nil)
	if len(got) != 2 || got[0] != "spain" || got[1] != "canada" {
		t.Fatalf("got %v", got)
	}
	t.Setenv("CITEMON_TEST_LIST", "")
	if got := getEnvList("CITEMON_TEST_LIST", []string{"x"}); len(got) != 0 {
		t.Fatalf("explicit empty list should override fallback, got %v", got)
	}
	if got := getEnvList("CITEMON_TEST_UNSET", []string{"x"}); len(got) != 1 {
		t.Fatalf("fallback expected, got %v", got)
	}
}
