package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"citemon/internal"
	"citemon/internal/cache"
	"citemon/internal/config"
	"citemon/internal/storage"
)

type TableLoader interface {
	Load(ctx context.Context, sources []string) (*internal.Table, error)
}

type DatasetCache interface {
	Get(key string) ([]byte, bool, error)
	Put(key string, sources []string, payload []byte) error
	Invalidate(key string) (int64, error)
}

// Service renders datasets: load, clean, cache and log each run. db and
// cache may be nil.
type Service struct {
	db     *storage.DB
	cfg    config.Config
	loader TableLoader
	cache  DatasetCache
	logger *slog.Logger
}

func NewService(db *storage.DB, cfg config.Config, loader TableLoader, c DatasetCache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{db: db, cfg: cfg, loader: loader, cache: c, logger: logger}
}

type RenderOptions struct {
	Grain   string
	NoCache bool
}

// ValidGrain reports whether g names a supported grain. Empty means the
// configured default.
func ValidGrain(g string) bool {
	return g == "" || g == GrainRows || g == GrainDocuments
}

// CacheKey identifies a render of sources under the given run options.
func CacheKey(sources []string, opts Options) string {
	if opts.Grain == "" {
		opts.Grain = GrainRows
	}
	fingerprint, _ := json.Marshal(opts)
	return cache.Key(append(append([]string(nil), sources...), "#options="+string(fingerprint)))
}

func (s *Service) Render(ctx context.Context, sources []string, opts RenderOptions) (*Dataset, error) {
	if !ValidGrain(opts.Grain) {
		return nil, fmt.Errorf("unsupported grain %q (want %s or %s)", opts.Grain, GrainRows, GrainDocuments)
	}
	start := time.Now()
	runOpts := OptionsFromConfig(s.cfg)
	if opts.Grain != "" {
		runOpts.Grain = opts.Grain
	}
	key := CacheKey(sources, runOpts)
	logger := s.logger.With("key", key[:12])

	useCache := s.cache != nil && !opts.NoCache
	if useCache {
		payload, ok, err := s.cache.Get(key)
		if err != nil {
			logger.Warn("cache read failed", "err", err)
		}
		if ok {
			var ds Dataset
			if err := json.Unmarshal(payload, &ds); err == nil {
				logger.Info("dataset served from cache", "records", len(ds.Records))
				return &ds, nil
			}
			logger.Warn("discarding unreadable cache entry")
		}
	}

	loadStarted := time.Now()
	raw, err := s.loader.Load(ctx, sources)
	if err != nil {
		return nil, err
	}
	loadMs := float64(time.Since(loadStarted).Milliseconds())

	ds, err := Run(ctx, raw, runOpts)
	if err != nil {
		return nil, err
	}
	if ds.Mismatch != nil {
		logger.Warn("schema mismatch", "missing", ds.Mismatch.Missing, "suggestions", ds.Mismatch.Suggestions)
	}
	if ds.Quality.UnparsedDates > 0 || ds.Quality.UnparsedMetrics > 0 {
		logger.Warn("unparsed cells", "dates", ds.Quality.UnparsedDates, "metrics", ds.Quality.UnparsedMetrics)
	}

	if useCache {
		payload, err := json.Marshal(ds)
		if err != nil {
			return nil, fmt.Errorf("encoding dataset: %w", err)
		}
		if err := s.cache.Put(key, sources, payload); err != nil {
			logger.Warn("cache write failed", "err", err)
		}
	}

	timings := map[string]float64{"loadMs": loadMs, "totalMs": float64(time.Since(start).Milliseconds())}
	for stage, ms := range ds.Timings {
		timings[stage+"Ms"] = ms
	}
	counts := map[string]int{
		"rowsLoaded":      ds.Quality.RowsLoaded,
		"rowsTrimmed":     ds.Quality.RowsTrimmed,
		"records":         len(ds.Records),
		"unparsedDates":   ds.Quality.UnparsedDates,
		"unparsedMetrics": ds.Quality.UnparsedMetrics,
	}
	if s.db != nil {
		trace := uuid.NewString()
		if err := s.db.InsertRun(trace, key, timings, counts); err != nil {
			logger.Warn("run log write failed", "err", err)
		}
		logger = logger.With("trace", trace)
	}
	logger.Info("dataset rendered", "sources", len(sources), "records", len(ds.Records), "ms", timings["totalMs"])
	return ds, nil
}

// Invalidate drops the cached render of sources at every grain under the
// current options. With no sources the whole cache is cleared.
func (s *Service) Invalidate(sources []string) (int64, error) {
	if s.cache == nil {
		return 0, nil
	}
	if len(sources) == 0 {
		return s.cache.Invalidate("")
	}
	var total int64
	for _, grain := range []string{GrainRows, GrainDocuments} {
		opts := OptionsFromConfig(s.cfg)
		opts.Grain = grain
		n, err := s.cache.Invalidate(CacheKey(sources, opts))
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}
