// Package catalog holds the browseable portal content: categories per tab
// and the streams under each category. The store is the single cache the
// navigation layer reads from, so going back never refetches.
package catalog

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Tab is one of the three top-level content tabs.
type Tab int

const (
	TabLive Tab = iota
	TabMovies
	TabSeries
)

func (t Tab) String() string {
	switch t {
	case TabLive:
		return "live"
	case TabMovies:
		return "movies"
	case TabSeries:
		return "series"
	}
	return fmt.Sprintf("tab(%d)", int(t))
}

// Category is a portal category within one tab.
type Category struct {
	ID   string
	Name string
}

// Channel is a live stream. GuideChannelID is the portal's EPG channel id
// (epg_channel_id), lowercase-normalized at decode; empty when the portal
// never linked the channel.
type Channel struct {
	ID             string
	Name           string
	GuideChannelID string
	Icon           string
	CategoryID     string
}

// Movie is a VOD entry.
type Movie struct {
	ID           string
	Name         string
	ContainerExt string
	Icon         string
	CategoryID   string
	ReleaseDate  string
}

// SeriesHead is a series listing entry; seasons are fetched on open.
type SeriesHead struct {
	ID         string
	Name       string
	Icon       string
	CategoryID string
}

// Season holds one season's episodes, already sorted by episode number.
type Season struct {
	Number   int
	Episodes []Episode
}

// Episode is a single episode of a series.
type Episode struct {
	ID           string
	Title        string
	ContainerExt string
	SeasonNum    int
	EpisodeNum   int
}

// DisplayTitle returns "S01E02 - Name" when the portal gives a bare episode
// name, or the name itself when it already carries the SxxEyy marker.
func (e Episode) DisplayTitle() string {
	tag := fmt.Sprintf("S%02dE%02d", e.SeasonNum, e.EpisodeNum)
	if strings.Contains(strings.ToUpper(e.Title), tag) {
		return e.Title
	}
	if e.Title == "" {
		return tag
	}
	return tag + " - " + e.Title
}

// Store caches fetched catalog content. Writers replace slices wholesale;
// readers get copies. Safe for concurrent use.
type Store struct {
	mu         sync.RWMutex
	categories map[Tab][]Category
	channels   map[string][]Channel    // by category id
	movies     map[string][]Movie      // by category id
	series     map[string][]SeriesHead // by category id
	seasons    map[string][]Season     // by series id
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		categories: make(map[Tab][]Category),
		channels:   make(map[string][]Channel),
		movies:     make(map[string][]Movie),
		series:     make(map[string][]SeriesHead),
		seasons:    make(map[string][]Season),
	}
}

// Reset drops all cached content. Called on login.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories = make(map[Tab][]Category)
	s.channels = make(map[string][]Channel)
	s.movies = make(map[string][]Movie)
	s.series = make(map[string][]SeriesHead)
	s.seasons = make(map[string][]Season)
}

// ReplaceCategories replaces the category list for one tab.
func (s *Store) ReplaceCategories(tab Tab, cats []Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories[tab] = cats
}

// Categories returns a copy of one tab's categories and whether they were fetched.
func (s *Store) Categories(tab Tab) ([]Category, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cats, ok := s.categories[tab]
	if !ok {
		return nil, false
	}
	out := make([]Category, len(cats))
	copy(out, cats)
	return out, true
}

func (s *Store) ReplaceChannels(categoryID string, chans []Channel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channels[categoryID] = chans
}

func (s *Store) Channels(categoryID string) ([]Channel, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chans, ok := s.channels[categoryID]
	if !ok {
		return nil, false
	}
	out := make([]Channel, len(chans))
	copy(out, chans)
	return out, true
}

func (s *Store) ReplaceMovies(categoryID string, movies []Movie) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.movies[categoryID] = movies
}

func (s *Store) Movies(categoryID string) ([]Movie, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	movies, ok := s.movies[categoryID]
	if !ok {
		return nil, false
	}
	out := make([]Movie, len(movies))
	copy(out, movies)
	return out, true
}

func (s *Store) ReplaceSeries(categoryID string, heads []SeriesHead) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.series[categoryID] = heads
}

func (s *Store) Series(categoryID string) ([]SeriesHead, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	heads, ok := s.series[categoryID]
	if !ok {
		return nil, false
	}
	out := make([]SeriesHead, len(heads))
	copy(out, heads)
	return out, true
}

func (s *Store) ReplaceSeasons(seriesID string, seasons []Season) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seasons[seriesID] = seasons
}

func (s *Store) Seasons(seriesID string) ([]Season, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seasons, ok := s.seasons[seriesID]
	if !ok {
		return nil, false
	}
	out := make([]Season, len(seasons))
	copy(out, seasons)
	return out, true
}

// SortCategories orders categories A-Z, case-insensitive.
func SortCategories(cats []Category) {
	sort.SliceStable(cats, func(i, j int) bool {
		return strings.ToLower(cats[i].Name) < strings.ToLower(cats[j].Name)
	})
}

// SortChannels orders channels A-Z, case-insensitive.
func SortChannels(chans []Channel) {
	sort.SliceStable(chans, func(i, j int) bool {
		return strings.ToLower(chans[i].Name) < strings.ToLower(chans[j].Name)
	})
}

// SortMovies orders movies A-Z, case-insensitive.
func SortMovies(movies []Movie) {
	sort.SliceStable(movies, func(i, j int) bool {
		return strings.ToLower(movies[i].Name) < strings.ToLower(movies[j].Name)
	})
}

// SortSeries orders series heads A-Z, case-insensitive.
func SortSeries(heads []SeriesHead) {
	sort.SliceStable(heads, func(i, j int) bool {
		return strings.ToLower(heads[i].Name) < strings.ToLower(heads[j].Name)
	})
}
