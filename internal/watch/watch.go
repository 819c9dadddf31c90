package watch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"citemon/internal/config"
	"citemon/internal/pipeline"
	"citemon/internal/report"
	"citemon/internal/storage"
)

const metadataPrefix = "watch:"

// Renderer is the part of pipeline.Service the watcher drives.
type Renderer interface {
	Render(ctx context.Context, sources []string, opts pipeline.RenderOptions) (*pipeline.Dataset, error)
}

// Service re-renders the configured reports on an interval and rewrites a
// report workbook whenever its records change.
type Service struct {
	db       *storage.DB
	cfg      config.Config
	renderer Renderer
	reports  *config.Reports
	logger   *slog.Logger
}

type CycleResult struct {
	Rendered int
	Exported int
}

func NewService(db *storage.DB, cfg config.Config, renderer Renderer, reports *config.Reports, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{db: db, cfg: cfg, renderer: renderer, reports: reports, logger: logger}
}

func (s *Service) Run(ctx context.Context) error {
	interval := time.Duration(s.cfg.WatchIntervalSec) * time.Second
	if interval <= 0 {
		interval = time.Hour
	}
	for {
		if _, err := s.RunCycle(ctx); err != nil {
			s.logger.Error("watch cycle failed", "err", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(interval):
		}
	}
}

// RunCycle renders every watched report once. A failing report is logged
// and skipped.
func (s *Service) RunCycle(ctx context.Context) (CycleResult, error) {
	var res CycleResult
	for _, r := range s.reports.Reports {
		if len(s.cfg.WatchReports) > 0 && !slices.Contains(s.cfg.WatchReports, r.ID) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return res, err
		}
		exported, err := s.refresh(ctx, r)
		if err != nil {
			s.logger.Warn("report refresh failed", "report", r.ID, "err", err)
			continue
		}
		res.Rendered++
		if exported {
			res.Exported++
		}
	}
	s.logger.Info("watch cycle done", "rendered", res.Rendered, "exported", res.Exported)
	return res, nil
}

func (s *Service) refresh(ctx context.Context, r config.Report) (bool, error) {
	ds, err := s.renderer.Render(ctx, r.Sources, pipeline.RenderOptions{Grain: r.Grain, NoCache: true})
	if err != nil {
		return false, err
	}
	records := report.InPeriod(ds.Records, r.Year, r.Months)

	fingerprint, err := digest(records)
	if err != nil {
		return false, err
	}
	key := metadataPrefix + r.ID
	if s.db != nil {
		prev, err := s.db.GetMetadata(key)
		if err != nil {
			return false, err
		}
		if prev != nil && *prev == fingerprint {
			s.logger.Debug("report unchanged", "report", r.ID)
			return false, nil
		}
	}

	path := filepath.Join(s.cfg.OutputDir, "watch", sanitizeID(r.ID)+".xlsx")
	if err := report.ExportXLSX(ds, report.Build(records, report.DefaultTopN), path); err != nil {
		return false, fmt.Errorf("export %s: %w", r.ID, err)
	}
	if s.db != nil {
		if err := s.db.SetMetadata(key, fingerprint); err != nil {
			return true, err
		}
	}
	s.logger.Info("report exported", "report", r.ID, "records", len(records), "path", path)
	return true, nil
}

func digest(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:]), nil
}

func sanitizeID(input string) string {
	repl := strings.NewReplacer("<", "_", ">", "_", ":", "_", "/", "_", "\\", "_", "|", "_", "?", "_", "*", "_", " ", "_")
	out := repl.Replace(input)
	if len(out) > 120 {
		out = out[:120]
	}
	return out
}
