package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds portal credentials plus guide, cache and client settings.
// Load from env and/or a .env file (see LoadEnvFile).
type Config struct {
	// Portal (Xtream codes API)
	ServerURL string // e.g. http://provider:8080
	Username  string
	Password  string

	// Paths
	CacheDir string // guide cache + match db live here
	MatchDB  string // sqlite file memoizing accepted fuzzy matches; "" = disabled

	// Guide
	GuideTTL       time.Duration // on-disk guide cache freshness window
	FuzzyThreshold float64       // name-match acceptance, strict greater-than
	Workers        int           // guide fetch worker pool size

	// HTTP
	HTTPTimeout time.Duration
	CatalogRate float64 // paged catalog requests per second; 0 = unlimited

	// Metrics
	MetricsAddr string // e.g. :9187; "" = endpoint disabled
}

// Load reads config from environment. Call LoadEnvFile(".env") before Load()
// to use a .env file. Out-of-range values fall back to their defaults.
func Load() *Config {
	c := &Config{
		ServerURL:      strings.TrimSuffix(os.Getenv("IPTVDECK_SERVER"), "/"),
		Username:       os.Getenv("IPTVDECK_USERNAME"),
		Password:       os.Getenv("IPTVDECK_PASSWORD"),
		CacheDir:       getEnv("IPTVDECK_CACHE_DIR", defaultCacheDir()),
		MatchDB:        os.Getenv("IPTVDECK_MATCH_DB"),
		GuideTTL:       getEnvDuration("IPTVDECK_GUIDE_TTL", time.Hour),
		FuzzyThreshold: getEnvFloat("IPTVDECK_FUZZY_THRESHOLD", 0.6),
		Workers:        getEnvInt("IPTVDECK_WORKERS", 10),
		HTTPTimeout:    getEnvDuration("IPTVDECK_HTTP_TIMEOUT", 30*time.Second),
		CatalogRate:    getEnvFloat("IPTVDECK_RATE", 4),
		MetricsAddr:    os.Getenv("IPTVDECK_METRICS_ADDR"),
	}
	if c.GuideTTL <= 0 {
		c.GuideTTL = time.Hour
	}
	if c.FuzzyThreshold <= 0 || c.FuzzyThreshold >= 1 {
		c.FuzzyThreshold = 0.6
	}
	if c.Workers <= 0 {
		c.Workers = 10
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = 30 * time.Second
	}
	return c
}

// GuideCachePath returns the single on-disk guide cache file.
func (c *Config) GuideCachePath() string {
	return filepath.Join(c.CacheDir, "guide_cache.xml")
}

func defaultCacheDir() string {
	if d, err := os.UserCacheDir(); err == nil {
		return filepath.Join(d, "iptvdeck")
	}
	return "."
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		n, _ := strconv.Atoi(v)
		return n
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		// bare numbers are seconds
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n) * time.Second
		}
	}
	return defaultVal
}
