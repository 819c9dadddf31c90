package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"citemon/internal"
	"citemon/internal/config"
	"citemon/internal/storage"
)

const metadataPrefix = "geocode:"

// ErrNotFound is returned when the geocoder has no match for a name.
var ErrNotFound = errors.New("location not found")

// Geocoder resolves institution names through a Nominatim search endpoint.
// Answers, including misses, are remembered in the metadata table when a
// database is given.
type Geocoder struct {
	cfg        config.Config
	httpClient *http.Client
	limiter    *rate.Limiter
	db         *storage.DB
	backoff    time.Duration
	logger     *slog.Logger
}

type searchResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

func NewGeocoder(cfg config.Config, db *storage.DB, logger *slog.Logger) *Geocoder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	rps := cfg.NominatimRateLimitRPS
	if rps <= 0 {
		rps = 1
	}
	timeout := cfg.FetchTimeoutMs
	if timeout <= 0 {
		timeout = 30000
	}
	return &Geocoder{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: time.Duration(timeout) * time.Millisecond},
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		db:         db,
		backoff:    500 * time.Millisecond,
		logger:     logger,
	}
}

func (g *Geocoder) Geocode(ctx context.Context, name string) (internal.GeoPoint, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return internal.GeoPoint{}, ErrNotFound
	}
	if p, ok := g.remembered(name); ok {
		if p == nil {
			return internal.GeoPoint{}, ErrNotFound
		}
		return *p, nil
	}

	results, err := g.search(ctx, name)
	if err != nil {
		return internal.GeoPoint{}, err
	}
	for _, r := range results {
		lat := ParseCoordinate(&r.Lat)
		lon := ParseCoordinate(&r.Lon)
		if !Valid(lat, lon) {
			continue
		}
		p := internal.GeoPoint{Institution: name, Latitude: *lat, Longitude: *lon}
		g.remember(name, fmt.Sprintf("%g,%g", p.Latitude, p.Longitude))
		return p, nil
	}
	g.remember(name, "")
	return internal.GeoPoint{}, ErrNotFound
}

// GeocodeAll looks up each distinct name once. Names without a match are
// left out; transport errors stop the run.
func (g *Geocoder) GeocodeAll(ctx context.Context, names []string) ([]internal.GeoPoint, error) {
	seen := map[string]struct{}{}
	out := []internal.GeoPoint{}
	for _, name := range names {
		name = strings.TrimSpace(name)
		if _, dup := seen[name]; dup || name == "" {
			continue
		}
		seen[name] = struct{}{}

		p, err := g.Geocode(ctx, name)
		if errors.Is(err, ErrNotFound) {
			g.logger.Debug("no location", "institution", name)
			continue
		}
		if err != nil {
			return out, fmt.Errorf("geocode %q: %w", name, err)
		}
		out = append(out, p)
	}
	return out, nil
}

func (g *Geocoder) search(ctx context.Context, name string) ([]searchResult, error) {
	u, err := url.Parse(strings.TrimRight(g.cfg.NominatimBaseURL, "/") + "/search")
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("q", name)
	q.Set("format", "json")
	q.Set("limit", "1")
	u.RawQuery = q.Encode()

	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		if attempt > 1 {
			if err := g.wait(ctx, attempt-1); err != nil {
				return nil, err
			}
		}
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", g.cfg.NominatimUserAgent)
		req.Header.Set("Accept", "application/json")

		resp, err := g.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			if (resp.StatusCode == 429 || resp.StatusCode >= 500) && attempt < 3 {
				lastErr = fmt.Errorf("nominatim status %d", resp.StatusCode)
				continue
			}
			return nil, fmt.Errorf("nominatim error: status=%d body=%s", resp.StatusCode, string(body))
		}

		var results []searchResult
		if err := json.Unmarshal(body, &results); err != nil {
			return nil, fmt.Errorf("nominatim response: %w", err)
		}
		return results, nil
	}

	if lastErr == nil {
		lastErr = errors.New("nominatim request failed")
	}
	return nil, lastErr
}

// wait sleeps before retry n with linear backoff and jitter, returning early
// with the context's error when it is cancelled.
func (g *Geocoder) wait(ctx context.Context, n int) error {
	d := g.backoff*time.Duration(n) + time.Duration(rand.Intn(100))*time.Millisecond
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// remembered returns a stored answer. A nil point with ok means a stored miss.
func (g *Geocoder) remembered(name string) (*internal.GeoPoint, bool) {
	if g.db == nil {
		return nil, false
	}
	v, err := g.db.GetMetadata(metadataPrefix + strings.ToLower(name))
	if err != nil || v == nil {
		return nil, false
	}
	if *v == "" {
		return nil, true
	}
	lat, lon, found := strings.Cut(*v, ",")
	if !found {
		return nil, false
	}
	la, err1 := strconv.ParseFloat(lat, 64)
	lo, err2 := strconv.ParseFloat(lon, 64)
	if err1 != nil || err2 != nil {
		return nil, false
	}
	return &internal.GeoPoint{Institution: name, Latitude: la, Longitude: lo}, true
}

func (g *Geocoder) remember(name, value string) {
	if g.db == nil {
		return
	}
	if err := g.db.SetMetadata(metadataPrefix+strings.ToLower(name), value); err != nil {
		g.logger.Warn("geocode cache write failed", "institution", name, "err", err)
	}
}
