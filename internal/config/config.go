package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DBPath      string
	OutputDir   string
	ReportsFile string

	LogLevel  string
	LogFormat string

	FetchTimeoutMs    int
	FetchRetries      int
	FetchRateLimitRPS float64

	CacheEnabled bool
	CacheSize    int
	CacheTTLSec  int

	GDriveClientID     string
	GDriveClientSecret string
	GDriveRedirectURI  string
	GDriveRefreshToken string

	AnchorColumn     string
	PlaceholderValue string
	TokenGrain       string

	AuthorMinLength      int
	AuthorDropInitials   bool
	InstitutionMinLength int
	InstitutionStopWords []string
	InstitutionRequire   []string

	GeoNameColumn         string
	NominatimBaseURL      string
	NominatimUserAgent    string
	NominatimRateLimitRPS float64

	WatchIntervalSec int
	WatchReports     []string
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DBPath:      getEnv("DB_PATH", filepath.Join(cwd, "data", "citemon.db")),
		OutputDir:   getEnv("OUTPUT_DIR", filepath.Join(cwd, "out")),
		ReportsFile: getEnv("REPORTS_FILE", filepath.Join(cwd, "reports.yml")),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		FetchTimeoutMs:    getEnvInt("FETCH_TIMEOUT_MS", 30000),
		FetchRetries:      getEnvInt("FETCH_RETRIES", 4),
		FetchRateLimitRPS: getEnvFloat("FETCH_RATE_LIMIT_RPS", 5),

		CacheEnabled: getEnvBool("CACHE_ENABLED", true),
		CacheSize:    getEnvInt("CACHE_SIZE", 16),
		CacheTTLSec:  getEnvInt("CACHE_TTL_SEC", 900),

		GDriveClientID:     getEnv("GDRIVE_CLIENT_ID", ""),
		GDriveClientSecret: getEnv("GDRIVE_CLIENT_SECRET", ""),
		GDriveRedirectURI:  getEnv("GDRIVE_REDIRECT_URI", "https://developers.google.com/oauthplayground"),
		GDriveRefreshToken: getEnv("GDRIVE_REFRESH_TOKEN", ""),

		AnchorColumn:     getEnv("ANCHOR_COLUMN", "name_of_the_document_citing_eige"),
		PlaceholderValue: getEnv("PLACEHOLDER_VALUE", "Unclear"),
		TokenGrain:       getEnv("TOKEN_GRAIN", "rows"),

		AuthorMinLength:      getEnvInt("AUTHOR_MIN_LENGTH", 4),
		AuthorDropInitials:   getEnvBool("AUTHOR_DROP_INITIALS", true),
		InstitutionMinLength: getEnvInt("INSTITUTION_MIN_LENGTH", 2),
		InstitutionStopWords: getEnvList("INSTITUTION_STOP_WORDS", []string{"spain", "zgreb", "norway", "bergen", "canada", "gdansk"}),
		InstitutionRequire:   getEnvList("INSTITUTION_REQUIRE", nil),

		GeoNameColumn:         getEnv("GEO_NAME_COLUMN", "name_of_the_institution_citing_eige"),
		NominatimBaseURL:      getEnv("NOMINATIM_BASE_URL", "https://nominatim.openstreetmap.org"),
		NominatimUserAgent:    getEnv("NOMINATIM_USER_AGENT", "citemon/1.0"),
		NominatimRateLimitRPS: getEnvFloat("NOMINATIM_RATE_LIMIT_RPS", 1),

		WatchIntervalSec: getEnvInt("WATCH_INTERVAL_SEC", 3600),
		WatchReports:     getEnvList("WATCH_REPORTS", nil),
	}

	return cfg, nil
}

func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("missing required env var: %s", name)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(key, "")))
	if value == "" {
		return fallback
	}
	if value == "1" || value == "true" || value == "yes" || value == "on" {
		return true
	}
	if value == "0" || value == "false" || value == "no" || value == "off" {
		return false
	}
	return fallback
}

// getEnvList reads a comma-separated list. An explicitly empty variable
// yields an empty list, not the fallback.
func getEnvList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	out := []string{}
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
