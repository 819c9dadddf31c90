package loader

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"citemon/internal"
	"citemon/internal/config"
)

const drivePrefix = "gdrive:"

// ResourceFetchError reports a source that could not be read or parsed.
// One failing source fails the whole load.
type ResourceFetchError struct {
	Source string
	Err    error
}

func (e *ResourceFetchError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Source, e.Err)
}

func (e *ResourceFetchError) Unwrap() error { return e.Err }

// DriveFetcher downloads a Google Drive file by id. name is used to pick
// the format.
type DriveFetcher interface {
	Fetch(ctx context.Context, fileID string) (content []byte, name string, err error)
}

type Loader struct {
	cfg        config.Config
	httpClient *http.Client
	limiter    *rate.Limiter
	retries    int

	driveMu sync.Mutex
	drive   DriveFetcher

	logger *slog.Logger
}

func New(cfg config.Config, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	rps := cfg.FetchRateLimitRPS
	if rps <= 0 {
		rps = 1
	}
	retries := cfg.FetchRetries
	if retries <= 0 {
		retries = 1
	}
	return &Loader{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: time.Duration(cfg.FetchTimeoutMs) * time.Millisecond},
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		retries:    retries,
		logger:     logger,
	}
}

// WithDrive sets the Drive client used for gdrive: sources.
func (l *Loader) WithDrive(d DriveFetcher) *Loader {
	l.driveMu.Lock()
	defer l.driveMu.Unlock()
	l.drive = d
	return l
}

// Load reads every source and concatenates them into one table: sources in
// the given order, rows in source order, columns as the union of all
// headers in first-seen order. Missing cells are null. Rows are not
// deduplicated.
func (l *Loader) Load(ctx context.Context, sources []string) (*internal.Table, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("load: no sources")
	}

	tables := make([]*internal.Table, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, src := range sources {
		g.Go(func() error {
			started := time.Now()
			t, err := l.loadOne(gctx, src)
			if err != nil {
				return &ResourceFetchError{Source: src, Err: err}
			}
			l.logger.Debug("source loaded", "source", src, "rows", t.Len(), "columns", len(t.Columns), "ms", time.Since(started).Milliseconds())
			tables[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return Concat(tables...), nil
}

func (l *Loader) loadOne(ctx context.Context, source string) (*internal.Table, error) {
	content, name, err := l.fetch(ctx, source)
	if err != nil {
		return nil, err
	}
	return Parse(content, name)
}

func (l *Loader) fetch(ctx context.Context, source string) ([]byte, string, error) {
	switch {
	case strings.HasPrefix(source, "http://"), strings.HasPrefix(source, "https://"):
		content, err := l.fetchHTTP(ctx, source)
		return content, source, err
	case strings.HasPrefix(source, drivePrefix):
		id := strings.TrimSpace(strings.TrimPrefix(source, drivePrefix))
		if id == "" {
			return nil, "", fmt.Errorf("empty drive file id")
		}
		d, err := l.driveFetcher(ctx)
		if err != nil {
			return nil, "", err
		}
		return d.Fetch(ctx, id)
	default:
		content, err := os.ReadFile(filepath.Clean(source))
		return content, source, err
	}
}

func (l *Loader) driveFetcher(ctx context.Context) (DriveFetcher, error) {
	l.driveMu.Lock()
	defer l.driveMu.Unlock()
	if l.drive != nil {
		return l.drive, nil
	}
	d, err := NewDriveClient(ctx, l.cfg)
	if err != nil {
		return nil, err
	}
	l.drive = d
	return d, nil
}

// Concat stacks tables under the union of their columns.
func Concat(tables ...*internal.Table) *internal.Table {
	out := &internal.Table{}
	pos := map[string]int{}
	for _, t := range tables {
		if t == nil {
			continue
		}
		for _, c := range t.Columns {
			if _, ok := pos[c]; !ok {
				pos[c] = len(out.Columns)
				out.Columns = append(out.Columns, c)
			}
		}
	}
	for _, t := range tables {
		if t == nil {
			continue
		}
		for _, row := range t.Rows {
			merged := make([]*string, len(out.Columns))
			for i, cell := range row {
				if i < len(t.Columns) {
					merged[pos[t.Columns[i]]] = cell
				}
			}
			out.Rows = append(out.Rows, merged)
		}
	}
	return out
}
