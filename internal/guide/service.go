// Package guide loads the portal's XMLTV feed and correlates catalog
// channels to guide channels: exact id first, then normalized name, then a
// fuzzy scan. The on-disk cache keeps one raw copy of the feed; the parsed
// index is swapped wholesale so readers never see a half-built guide.
package guide

import (
	"bytes"
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/iptvdeck/iptvdeck/internal/catalog"
	"github.com/iptvdeck/iptvdeck/internal/metrics"
)

// MatchMemo remembers accepted fuzzy matches so repeat lookups skip the
// scan. Implementations must tolerate concurrent use; errors are the
// implementation's problem (a memo is an optimization, never correctness).
type MatchMemo interface {
	Lookup(normName string) (guideID string, ok bool)
	Store(normName, guideID string, ratio float64)
}

// FetchFunc downloads the raw guide feed.
type FetchFunc func(ctx context.Context) ([]byte, error)

// Service owns the guide index and its refresh lifecycle. Safe for
// concurrent use.
type Service struct {
	cache     *Cache
	matcher   NameMatcher
	threshold float64
	memo      MatchMemo
	sem       chan struct{}

	mu     sync.RWMutex
	idx    *Index
	gen    uint64
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewService builds a Service. workers caps concurrent refresh jobs; memo
// may be nil to disable fuzzy-match memoization.
func NewService(cache *Cache, matcher NameMatcher, threshold float64, workers int, memo MatchMemo) *Service {
	if matcher == nil {
		matcher = SequenceMatcher{}
	}
	if threshold <= 0 || threshold >= 1 {
		threshold = 0.6
	}
	if workers <= 0 {
		workers = 10
	}
	return &Service{
		cache:     cache,
		matcher:   matcher,
		threshold: threshold,
		memo:      memo,
		sem:       make(chan struct{}, workers),
		idx:       EmptyIndex(),
	}
}

// Index returns the active guide index. Never nil.
func (s *Service) Index() *Index {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.idx
}

// Ready reports whether a non-empty guide is loaded.
func (s *Service) Ready() bool {
	return s.Index().ChannelCount() > 0
}

// Generation returns the current session generation.
func (s *Service) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gen
}

// Invalidate bumps the generation, cancels in-flight refreshes, clears the
// index, and deletes the cache file. Called on (re)login; results produced
// for the old generation are dropped on arrival.
func (s *Service) Invalidate() uint64 {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.idx = EmptyIndex()
	s.mu.Unlock()
	metrics.GuideChannels.Set(0)
	if err := s.cache.Remove(); err != nil {
		log.Printf("guide: %v", err)
	}
	return gen
}

// Refresh loads the guide asynchronously on a worker slot: fresh cache is
// replayed, otherwise the feed is fetched and cached. done, when non-nil,
// receives the load error after the index swap (or drop) happened.
func (s *Service) Refresh(ctx context.Context, fetch FetchFunc, done func(error)) {
	s.mu.Lock()
	gen := s.gen
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		select {
		case s.sem <- struct{}{}:
		case <-ctx.Done():
			if done != nil {
				done(ctx.Err())
			}
			return
		}
		defer func() { <-s.sem }()
		err := s.load(ctx, gen, fetch)
		if done != nil {
			done(err)
		}
	}()
}

// Wait blocks until all in-flight refreshes finish.
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) load(ctx context.Context, gen uint64, fetch FetchFunc) error {
	unlock := s.cache.Lock()
	defer unlock()

	source := "cache"
	var raw []byte
	if s.cache.Fresh(time.Now()) {
		data, err := s.cache.Read()
		if err == nil {
			raw = data
		} else {
			log.Printf("guide: %v", err)
		}
	}
	if raw == nil {
		source = "fetch"
		data, err := fetch(ctx)
		if err != nil {
			metrics.GuideRefreshes.WithLabelValues(source, "error").Inc()
			return err
		}
		if err := s.cache.Write(data); err != nil {
			// keep going with the in-memory copy
			log.Printf("guide: %v", err)
		}
		raw = data
	}

	ix, err := ParseXMLTV(bytes.NewReader(raw))
	if err != nil {
		// unparseable guide never blocks browsing
		log.Printf("guide: parse failed, continuing without guide data: %v", err)
		metrics.GuideRefreshes.WithLabelValues(source, "parse_error").Inc()
		s.install(gen, EmptyIndex())
		return nil
	}
	if s.install(gen, ix) {
		metrics.GuideRefreshes.WithLabelValues(source, "ok").Inc()
		log.Printf("guide: loaded %d channels, %d programs (%s)", ix.ChannelCount(), ix.ProgramCount(), source)
	} else {
		metrics.GuideRefreshes.WithLabelValues(source, "stale_dropped").Inc()
	}
	return nil
}

// install swaps in a new index unless the generation moved on.
func (s *Service) install(gen uint64, ix *Index) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return false
	}
	s.idx = ix
	metrics.GuideChannels.Set(float64(ix.ChannelCount()))
	return true
}

// Correlate links a catalog channel to a guide channel id. Tiers: exact
// guide id, normalized-name exact, memoized fuzzy, fuzzy scan. A fuzzy
// match is accepted only when strictly above the threshold.
func (s *Service) Correlate(ch catalog.Channel) (string, error) {
	ix := s.Index()

	if id := NormalizeGuideID(ch.GuideChannelID); id != "" {
		if len(ix.Programs(id)) > 0 {
			metrics.Correlations.WithLabelValues("id").Inc()
			return id, nil
		}
	}

	norm := NormalizeName(ch.Name)
	if norm != "" {
		if id, ok := ix.ChannelIDByName(norm); ok {
			metrics.Correlations.WithLabelValues("name").Inc()
			return id, nil
		}
		if s.memo != nil {
			if id, ok := s.memo.Lookup(norm); ok {
				metrics.Correlations.WithLabelValues("memo").Inc()
				return id, nil
			}
		}
		if id, ratio, ok := s.fuzzyScan(ix, norm); ok {
			metrics.Correlations.WithLabelValues("fuzzy").Inc()
			if s.memo != nil {
				s.memo.Store(norm, id, ratio)
			}
			return id, nil
		}
	}

	metrics.Correlations.WithLabelValues("miss").Inc()
	return "", &NoCorrelationError{Channel: ch.Name}
}

// fuzzyScan finds the best-scoring guide name strictly above the
// threshold. Candidates are scanned in sorted order so ties resolve the
// same way every run.
func (s *Service) fuzzyScan(ix *Index, norm string) (id string, ratio float64, ok bool) {
	start := time.Now()
	names := ix.Names()
	sort.Strings(names)
	best := s.threshold
	var bestName string
	for _, cand := range names {
		if r := s.matcher.Ratio(norm, cand); r > best {
			best = r
			bestName = cand
		}
	}
	metrics.FuzzyScanDuration.Observe(time.Since(start).Seconds())
	if bestName == "" {
		return "", 0, false
	}
	id, _ = ix.ChannelIDByName(bestName)
	return id, best, true
}

// NowNext correlates the channel and resolves its current and next
// programs at now.
func (s *Service) NowNext(ch catalog.Channel, now time.Time) (current, next *Program, err error) {
	id, err := s.Correlate(ch)
	if err != nil {
		return nil, nil, err
	}
	current, next = Resolve(s.Index().Programs(id), now)
	return current, next, nil
}
