package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_defaults(t *testing.T) {
	os.Clearenv()
	c := Load()
	if c.GuideTTL != time.Hour {
		t.Errorf("GuideTTL default: got %v", c.GuideTTL)
	}
	if c.FuzzyThreshold != 0.6 {
		t.Errorf("FuzzyThreshold default: got %v", c.FuzzyThreshold)
	}
	if c.Workers != 10 {
		t.Errorf("Workers default: got %d", c.Workers)
	}
	if c.HTTPTimeout != 30*time.Second {
		t.Errorf("HTTPTimeout default: got %v", c.HTTPTimeout)
	}
	if c.MetricsAddr != "" {
		t.Errorf("MetricsAddr default should be empty; got %q", c.MetricsAddr)
	}
}

func TestLoad_explicit(t *testing.T) {
	os.Clearenv()
	os.Setenv("IPTVDECK_SERVER", "http://host:8080/")
	os.Setenv("IPTVDECK_USERNAME", "u")
	os.Setenv("IPTVDECK_PASSWORD", "p")
	os.Setenv("IPTVDECK_GUIDE_TTL", "30m")
	os.Setenv("IPTVDECK_FUZZY_THRESHOLD", "0.75")
	os.Setenv("IPTVDECK_WORKERS", "4")
	c := Load()
	if c.ServerURL != "http://host:8080" {
		t.Errorf("ServerURL should drop trailing slash; got %q", c.ServerURL)
	}
	if c.Username != "u" || c.Password != "p" {
		t.Errorf("creds: user=%q pass=%q", c.Username, c.Password)
	}
	if c.GuideTTL != 30*time.Minute {
		t.Errorf("GuideTTL: got %v", c.GuideTTL)
	}
	if c.FuzzyThreshold != 0.75 {
		t.Errorf("FuzzyThreshold: got %v", c.FuzzyThreshold)
	}
	if c.Workers != 4 {
		t.Errorf("Workers: got %d", c.Workers)
	}
}

func TestLoad_guideTTLBareSeconds(t *testing.T) {
	os.Clearenv()
	os.Setenv("IPTVDECK_GUIDE_TTL", "3600")
	c := Load()
	if c.GuideTTL != time.Hour {
		t.Errorf("bare-second TTL: got %v", c.GuideTTL)
	}
}

func TestLoad_outOfRangeFallsBack(t *testing.T) {
	os.Clearenv()
	os.Setenv("IPTVDECK_FUZZY_THRESHOLD", "1.5")
	os.Setenv("IPTVDECK_WORKERS", "-3")
	os.Setenv("IPTVDECK_GUIDE_TTL", "-5m")
	c := Load()
	if c.FuzzyThreshold != 0.6 {
		t.Errorf("FuzzyThreshold out of range: got %v", c.FuzzyThreshold)
	}
	if c.Workers != 10 {
		t.Errorf("Workers out of range: got %d", c.Workers)
	}
	if c.GuideTTL != time.Hour {
		t.Errorf("GuideTTL out of range: got %v", c.GuideTTL)
	}
}

func TestGuideCachePath(t *testing.T) {
	os.Clearenv()
	os.Setenv("IPTVDECK_CACHE_DIR", "/tmp/deck")
	c := Load()
	want := filepath.Join("/tmp/deck", "guide_cache.xml")
	if got := c.GuideCachePath(); got != want {
		t.Errorf("GuideCachePath() = %q, want %q", got, want)
	}
}
