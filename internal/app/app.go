// Package app wires configuration, storage, the loader and the cache into
// a rendering service shared by the commands.
package app

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"citemon/internal/cache"
	"citemon/internal/config"
	"citemon/internal/loader"
	"citemon/internal/pipeline"
	"citemon/internal/storage"
)

type App struct {
	Cfg     config.Config
	DB      *storage.DB
	Loader  *loader.Loader
	Service *pipeline.Service
	Logger  *slog.Logger
}

func Open(cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}
	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	l := loader.New(cfg, logger)
	var c pipeline.DatasetCache
	if cfg.CacheEnabled {
		c = cache.New(db, cfg.CacheSize, time.Duration(cfg.CacheTTLSec)*time.Second, logger)
	}
	return &App{
		Cfg:     cfg,
		DB:      db,
		Loader:  l,
		Service: pipeline.NewService(db, cfg, l, c, logger),
		Logger:  logger,
	}, nil
}

func (a *App) Close() error {
	return a.DB.Close()
}

// Reports loads the report definitions file.
func (a *App) Reports() (*config.Reports, error) {
	return config.LoadReports(a.Cfg.ReportsFile)
}

// NewLogger builds the process logger from LOG_FORMAT (text|json) and
// LOG_LEVEL (debug|info|warn|error).
func NewLogger(cfg config.Config, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(cfg.LogLevel))); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
