package loader

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"citemon/internal"
	"citemon/internal/config"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

type fakeDrive map[string][]byte

func (d fakeDrive) Fetch(_ context.Context, id string) ([]byte, string, error) {
	blob, ok := d[id]
	if !ok {
		return nil, "", errors.New("file not found")
	}
	return blob, id + ".xlsx", nil
}

func mkXLSX(rows [][]any) []byte {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for r, row := range rows {
		for c, v := range row {
			if v == nil {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(c+1, r+1)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}
	buf := bytes.NewBuffer(nil)
	_, _ = f.WriteTo(buf)
	return buf.Bytes()
}

func testConfig() config.Config {
	return config.Config{FetchTimeoutMs: 1000, FetchRetries: 3, FetchRateLimitRPS: 1000}
}

func cell(t *testing.T, table *internal.Table, row int, col string) string {
	t.Helper()
	v := table.Cell(row, col)
	if v == nil {
		return "<nil>"
	}
	return *v
}

func TestParseXLSX(t *testing.T) {
	blob := mkXLSX([][]any{
		{"Date of Publication", "Name of the document citing EIGE", "Ranking/Weight"},
		{time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC), "Gender gaps", 3},
		{nil, "Care work", nil},
	})
	table, err := Parse(blob, "q1.xlsx")
	if err != nil {
		t.Fatal(err)
	}
	if table.Len() != 2 || len(table.Columns) != 3 {
		t.Fatalf("shape=%dx%d", table.Len(), len(table.Columns))
	}
	if got := cell(t, table, 0, "Ranking/Weight"); got != "3" {
		t.Fatalf("weight=%s", got)
	}
	// Dates come through as serial numbers, not display text.
	if got := cell(t, table, 0, "Date of Publication"); strings.Contains(got, "/") || strings.Contains(got, "-") {
		t.Fatalf("expected serial date, got %s", got)
	}
	if table.Cell(1, "Date of Publication") != nil {
		t.Fatal("empty cell should be null")
	}
}

func TestParseCSVAndHTML(t *testing.T) {
	tests := []struct {
		name    string
		content string
		source  string
		want    string
	}{
		{name: "csv with bom", content: "\xef\xbb\xbfTitle,Weight\nGender gaps,3\n", source: "a.csv", want: "Gender gaps"},
		{name: "semicolon csv", content: "Title;Weight\nGender gaps;3\n", source: "a.csv", want: "Gender gaps"},
		{name: "html table", content: "<html><table><tr><th>Title</th><th>Weight</th></tr><tr><td> Gender  gaps </td><td>3</td></tr></table></html>", source: "page.html", want: "Gender gaps"},
		{name: "html sniffed", content: "<table><tr><td>Title</td><td>Weight</td></tr><tr><td>Gender gaps</td><td>3</td></tr></table>", source: "https://example.test/export", want: "Gender gaps"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			table, err := Parse([]byte(tc.content), tc.source)
			if err != nil {
				t.Fatal(err)
			}
			if got := cell(t, table, 0, "Title"); got != tc.want {
				t.Fatalf("title=%q columns=%v", got, table.Columns)
			}
			if got := cell(t, table, 0, "Weight"); got != "3" {
				t.Fatalf("weight=%q", got)
			}
		})
	}
}

func TestHeaderHygiene(t *testing.T) {
	table, err := Parse([]byte("Title,,Title,Title\na,b,c,d\n"), "x.csv")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"Title", "Unnamed: 1", "Title.1", "Title.2"}
	for i, c := range want {
		if table.Columns[i] != c {
			t.Fatalf("columns=%v", table.Columns)
		}
	}
}

func TestLoadConcatenatesInOrder(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "q1.csv")
	second := filepath.Join(dir, "q2.xlsx")
	if err := os.WriteFile(first, []byte("Title,Weight\nA,1\nB,2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(second, mkXLSX([][]any{{"Title", "Journal"}, {"C", "Nature"}}), 0o644); err != nil {
		t.Fatal(err)
	}

	l := New(testConfig(), nil).WithDrive(fakeDrive{"abc": mkXLSX([][]any{{"Title"}, {"D"}})})
	table, err := l.Load(context.Background(), []string{first, second, "gdrive:abc"})
	if err != nil {
		t.Fatal(err)
	}
	if table.Len() != 4 {
		t.Fatalf("rows=%d", table.Len())
	}
	if strings.Join(table.Columns, "|") != "Title|Weight|Journal" {
		t.Fatalf("columns=%v", table.Columns)
	}
	for i, want := range []string{"A", "B", "C", "D"} {
		if got := cell(t, table, i, "Title"); got != want {
			t.Fatalf("row %d title=%s", i, got)
		}
	}
	if table.Cell(2, "Weight") != nil || table.Cell(0, "Journal") != nil {
		t.Fatal("cells missing from a source should be null")
	}
}

func TestLoadFailsWholeLoad(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.csv")
	if err := os.WriteFile(good, []byte("Title\nA\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	missing := filepath.Join(dir, "missing.xlsx")

	_, err := New(testConfig(), nil).Load(context.Background(), []string{good, missing})
	var fetchErr *ResourceFetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected ResourceFetchError, got %v", err)
	}
	if fetchErr.Source != missing || !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestFetchHTTPWithRetry(t *testing.T) {
	attempt := 0
	l := New(testConfig(), nil)
	l.httpClient = &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			attempt++
			if attempt == 1 {
				return &http.Response{
					StatusCode: http.StatusServiceUnavailable,
					Body:       io.NopCloser(strings.NewReader("busy")),
					Header:     make(http.Header),
				}, nil
			}
			return &http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(strings.NewReader("Title\nA\n")),
				Header:     make(http.Header),
			}, nil
		}),
	}

	table, err := l.Load(context.Background(), []string{"https://example.test/data.csv"})
	if err != nil {
		t.Fatal(err)
	}
	if attempt != 2 || table.Len() != 1 {
		t.Fatalf("attempt=%d rows=%d", attempt, table.Len())
	}
}

func TestFetchHTTPPermanentFailure(t *testing.T) {
	l := New(testConfig(), nil)
	l.httpClient = &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			return &http.Response{
				StatusCode: http.StatusNotFound,
				Body:       io.NopCloser(strings.NewReader("")),
				Header:     make(http.Header),
			}, nil
		}),
	}
	_, err := l.Load(context.Background(), []string{"https://example.test/gone.xlsx"})
	var fetchErr *ResourceFetchError
	if !errors.As(err, &fetchErr) || !strings.Contains(err.Error(), "status 404") {
		t.Fatalf("err=%v", err)
	}
}
