package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"citemon/internal/config"
	"citemon/internal/pipeline"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.Config
		debug   bool
		jsonOut bool
	}{
		{"text info", config.Config{LogLevel: "info", LogFormat: "text"}, false, false},
		{"json debug", config.Config{LogLevel: "debug", LogFormat: "JSON"}, true, true},
		{"bad level falls back to info", config.Config{LogLevel: "loud"}, false, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLogger(tc.cfg, &buf)
			logger.Debug("dbg")
			logger.Info("hello", "n", 1)
			out := buf.String()
			if strings.Contains(out, "dbg") != tc.debug {
				t.Fatalf("debug visibility wrong: %q", out)
			}
			if strings.HasPrefix(out, "{") != tc.jsonOut {
				t.Fatalf("format wrong: %q", out)
			}
		})
	}
}

func TestOpenRendersLocalSource(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "sheet.csv")
	csv := "Name of the document citing EIGE,Date of publication,Type of EIGE's output cited\n" +
		"Care and gender,10.01.2025,Report\n"
	if err := os.WriteFile(src, []byte(csv), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := config.Config{
		DBPath:       filepath.Join(dir, "data", "citemon.db"),
		AnchorColumn: "name_of_the_document_citing_eige",
		CacheEnabled: true,
		CacheSize:    4,
	}
	a, err := Open(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	ds, err := a.Service.Render(context.Background(), []string{src}, pipeline.RenderOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(ds.Records) != 1 || ds.Records[0].PublicationDate == nil {
		t.Fatalf("records=%+v", ds.Records)
	}
	runs, err := a.DB.ListRuns(5)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 {
		t.Fatalf("runs=%d", len(runs))
	}
}
