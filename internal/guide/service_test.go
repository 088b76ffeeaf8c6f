package guide

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/iptvdeck/iptvdeck/internal/catalog"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	cache := NewCache(filepath.Join(t.TempDir(), "guide_cache.xml"), time.Hour)
	return NewService(cache, SequenceMatcher{}, 0.6, 2, nil)
}

func refreshSync(t *testing.T, s *Service, fetch FetchFunc) error {
	t.Helper()
	errc := make(chan error, 1)
	s.Refresh(context.Background(), fetch, func(err error) { errc <- err })
	select {
	case err := <-errc:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("refresh did not finish")
		return nil
	}
}

func TestService_refreshFetchesAndCaches(t *testing.T) {
	s := newTestService(t)
	fetches := 0
	fetch := func(ctx context.Context) ([]byte, error) {
		fetches++
		return []byte(sampleXMLTV), nil
	}
	if err := refreshSync(t, s, fetch); err != nil {
		t.Fatal(err)
	}
	if !s.Ready() {
		t.Fatal("guide should be ready after refresh")
	}
	if fetches != 1 {
		t.Fatalf("fetches = %d", fetches)
	}
	// second refresh within the ttl replays the cache
	if err := refreshSync(t, s, fetch); err != nil {
		t.Fatal(err)
	}
	if fetches != 1 {
		t.Errorf("fresh cache should not refetch; fetches = %d", fetches)
	}
	if _, err := os.Stat(s.cache.Path()); err != nil {
		t.Errorf("cache file missing: %v", err)
	}
}

func TestService_staleCacheRefetches(t *testing.T) {
	s := newTestService(t)
	if err := s.cache.Write([]byte(sampleXMLTV)); err != nil {
		t.Fatal(err)
	}
	old := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(s.cache.Path(), old, old); err != nil {
		t.Fatal(err)
	}
	fetched := false
	err := refreshSync(t, s, func(ctx context.Context) ([]byte, error) {
		fetched = true
		return []byte(sampleXMLTV), nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if !fetched {
		t.Error("stale cache should trigger a fetch")
	}
}

func TestService_parseFailureYieldsEmptyIndex(t *testing.T) {
	s := newTestService(t)
	err := refreshSync(t, s, func(ctx context.Context) ([]byte, error) {
		return []byte("\x00 not xml at all \x01"), nil
	})
	if err != nil {
		t.Fatalf("parse failure must not surface as a refresh error: %v", err)
	}
	if s.Ready() {
		t.Error("unparseable guide should leave an empty index")
	}
	// browsing continues: every lookup is a clean miss
	_, err = s.Correlate(catalog.Channel{Name: "BBC One HD"})
	var nc *NoCorrelationError
	if !errors.As(err, &nc) {
		t.Errorf("err = %v, want NoCorrelationError", err)
	}
}

func TestService_fetchErrorSurfaces(t *testing.T) {
	s := newTestService(t)
	boom := errors.New("portal down")
	err := refreshSync(t, s, func(ctx context.Context) ([]byte, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want %v", err, boom)
	}
}

func TestService_invalidateDropsStaleResult(t *testing.T) {
	s := newTestService(t)
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	errc := make(chan error, 1)
	s.Refresh(context.Background(), func(ctx context.Context) ([]byte, error) {
		once.Do(func() { close(started) })
		<-release
		return []byte(sampleXMLTV), nil
	}, func(err error) { errc <- err })
	<-started

	s.Invalidate()
	close(release)
	<-errc
	if s.Ready() {
		t.Error("result fetched for the old generation must be dropped")
	}
}

func TestService_invalidateDeletesCacheAndClearsIndex(t *testing.T) {
	s := newTestService(t)
	if err := refreshSync(t, s, func(ctx context.Context) ([]byte, error) {
		return []byte(sampleXMLTV), nil
	}); err != nil {
		t.Fatal(err)
	}
	gen := s.Generation()
	if got := s.Invalidate(); got != gen+1 {
		t.Errorf("Invalidate generation = %d, want %d", got, gen+1)
	}
	if s.Ready() {
		t.Error("index should be empty after invalidate")
	}
	if _, err := os.Stat(s.cache.Path()); !os.IsNotExist(err) {
		t.Errorf("cache file should be deleted, stat err = %v", err)
	}
}

func TestService_invalidateCancelsInflight(t *testing.T) {
	s := newTestService(t)
	errc := make(chan error, 1)
	s.Refresh(context.Background(), func(ctx context.Context) ([]byte, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}, func(err error) { errc <- err })
	time.Sleep(10 * time.Millisecond)
	s.Invalidate()
	select {
	case err := <-errc:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("in-flight fetch was not cancelled")
	}
}

func loadSample(t *testing.T, s *Service) {
	t.Helper()
	if err := refreshSync(t, s, func(ctx context.Context) ([]byte, error) {
		return []byte(sampleXMLTV), nil
	}); err != nil {
		t.Fatal(err)
	}
}

func TestCorrelate_exactID(t *testing.T) {
	s := newTestService(t)
	loadSample(t, s)
	id, err := s.Correlate(catalog.Channel{Name: "Whatever", GuideChannelID: "bbc1.uk"})
	if err != nil {
		t.Fatal(err)
	}
	if id != "bbc1.uk" {
		t.Errorf("id = %q", id)
	}
}

func TestCorrelate_idTrimmedAndLowercased(t *testing.T) {
	s := newTestService(t)
	loadSample(t, s)
	// The portal's casing and padding must not break the id tier.
	id, err := s.Correlate(catalog.Channel{Name: "Zq Wx", GuideChannelID: " BBC1.UK "})
	if err != nil {
		t.Fatal(err)
	}
	if id != "bbc1.uk" {
		t.Errorf("id = %q", id)
	}
}

func TestCorrelate_idWithoutProgramsFallsBackToName(t *testing.T) {
	s := newTestService(t)
	loadSample(t, s)
	// cnn.us has no programmes in the sample, so the id tier misses and
	// the name tier resolves it.
	id, err := s.Correlate(catalog.Channel{Name: "CNN", GuideChannelID: "cnn.us"})
	if err != nil {
		t.Fatal(err)
	}
	if id != "cnn.us" {
		t.Errorf("id = %q", id)
	}
}

func TestCorrelate_nameNormalized(t *testing.T) {
	s := newTestService(t)
	loadSample(t, s)
	id, err := s.Correlate(catalog.Channel{Name: "  BBC ONE  HD "})
	if err != nil {
		t.Fatal(err)
	}
	if id != "bbc1.uk" {
		t.Errorf("id = %q", id)
	}
}

func TestCorrelate_fuzzy(t *testing.T) {
	s := newTestService(t)
	loadSample(t, s)
	// "bbc onee" vs "bbc one": close enough to clear 0.6
	id, err := s.Correlate(catalog.Channel{Name: "BBC Onee"})
	if err != nil {
		t.Fatal(err)
	}
	if id != "bbc1.uk" {
		t.Errorf("id = %q", id)
	}
}

func TestCorrelate_miss(t *testing.T) {
	s := newTestService(t)
	loadSample(t, s)
	_, err := s.Correlate(catalog.Channel{Name: "Zebra Aquarium Network"})
	var nc *NoCorrelationError
	if !errors.As(err, &nc) {
		t.Fatalf("err = %v, want NoCorrelationError", err)
	}
}

func TestCorrelate_thresholdMonotonic(t *testing.T) {
	cacheDir := t.TempDir()
	matchAt := func(threshold float64) bool {
		c := NewCache(filepath.Join(cacheDir, "guide_cache.xml"), time.Hour)
		s := NewService(c, SequenceMatcher{}, threshold, 2, nil)
		loadSample(t, s)
		_, err := s.Correlate(catalog.Channel{Name: "BBC Onee"})
		return err == nil
	}
	low := matchAt(0.3)
	high := matchAt(0.95)
	if !low {
		t.Error("low threshold should accept the near-match")
	}
	if high {
		t.Error("raising the threshold must never add matches")
	}
}

type memoMap struct {
	mu sync.Mutex
	m  map[string]string
}

func (mm *memoMap) Lookup(norm string) (string, bool) {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	id, ok := mm.m[norm]
	return id, ok
}

func (mm *memoMap) Store(norm, id string, ratio float64) {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	mm.m[norm] = id
}

func TestCorrelate_memoStoresFuzzyHit(t *testing.T) {
	cache := NewCache(filepath.Join(t.TempDir(), "guide_cache.xml"), time.Hour)
	memo := &memoMap{m: make(map[string]string)}
	s := NewService(cache, SequenceMatcher{}, 0.6, 2, memo)
	loadSample(t, s)
	if _, err := s.Correlate(catalog.Channel{Name: "BBC Onee"}); err != nil {
		t.Fatal(err)
	}
	if id := memo.m["bbc onee"]; id != "bbc1.uk" {
		t.Errorf("memo should hold the accepted fuzzy match; got %q", id)
	}
}

func TestNowNext(t *testing.T) {
	s := newTestService(t)
	loadSample(t, s)
	at := time.Date(2026, 3, 10, 12, 30, 0, 0, time.UTC)
	current, next, err := s.NowNext(catalog.Channel{Name: "BBC One HD"}, at)
	if err != nil {
		t.Fatal(err)
	}
	if current == nil || current.Title != "First" {
		t.Fatalf("current = %+v", current)
	}
	if next == nil || next.Title != "Second" {
		t.Fatalf("next = %+v", next)
	}
}
