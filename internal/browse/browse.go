// Package browse drives the catalog UI state: it dispatches activations,
// maintains the per-tab navigation stacks, and renders row text (with
// guide annotations for live channels). It owns no widget state; callers
// feed it actions and display the views it returns.
package browse

import (
	"context"
	"fmt"
	"time"

	"github.com/iptvdeck/iptvdeck/internal/catalog"
	"github.com/iptvdeck/iptvdeck/internal/guide"
	"github.com/iptvdeck/iptvdeck/internal/nav"
	"github.com/iptvdeck/iptvdeck/internal/session"
	"github.com/iptvdeck/iptvdeck/internal/xtream"
)

// View is one displayable list state.
type View struct {
	Tab     catalog.Tab
	Level   nav.Level
	Payload nav.Payload
	Rows    []string
	Scroll  int
}

// Result of one dispatched action. Exactly one of View or Play is set,
// except live channels, which set Play and Annotation together.
type Result struct {
	View *View
	// Play is the stream URL of an activated channel, movie or episode.
	Play string
	// Annotation is the now/next guide line for an activated live
	// channel; Description carries the program synopsis.
	Annotation  string
	Description string
}

// Browser dispatches activations against a session.
type Browser struct {
	s   *session.Session
	now func() time.Time
}

// New returns a Browser over s.
func New(s *session.Session) *Browser {
	return &Browser{s: s, now: time.Now}
}

// Categories returns the top-level view of a tab, fetching the category
// list on first visit and replaying the cache afterwards. Scroll comes
// from the tab's remembered top-level position. Rendering the floor drops
// any deeper frames: an empty stack and a visible category list always go
// together.
func (b *Browser) Categories(ctx context.Context, tab catalog.Tab) (*View, error) {
	b.s.Nav.Stack(tab).Reset()
	cats, ok := b.s.Catalog.Categories(tab)
	if !ok {
		client, err := b.client()
		if err != nil {
			return nil, err
		}
		fetched, err := client.Categories(ctx, tab)
		if err != nil {
			return nil, err
		}
		catalog.SortCategories(fetched)
		b.s.Catalog.ReplaceCategories(tab, fetched)
		cats = fetched
	}
	rows := make([]string, len(cats))
	for i, c := range cats {
		rows[i] = c.Name
	}
	return &View{
		Tab:     tab,
		Level:   nav.LevelCategories,
		Payload: nav.Payload{Categories: cats},
		Rows:    rows,
		Scroll:  b.s.Nav.TopScroll(tab),
	}, nil
}

// Enter returns what a tab currently shows: the top frame of its stack,
// or the category list when the stack is empty. Switching tabs goes
// through here so each tab keeps its place.
func (b *Browser) Enter(ctx context.Context, tab catalog.Tab) (*View, error) {
	if f, ok := b.s.Nav.Stack(tab).Current(); ok {
		return b.restore(tab, f), nil
	}
	return b.Categories(ctx, tab)
}

// Do dispatches one activation against the current view. scroll is the
// view's scroll position at activation time, recorded on the current
// frame (or the top-level map) before descending.
func (b *Browser) Do(ctx context.Context, view *View, act nav.Action, scroll int) (*Result, error) {
	if act.Kind == nav.ActionGoBack {
		return b.back(ctx, view.Tab)
	}
	switch view.Level {
	case nav.LevelCategories:
		cat, err := pick(view.Payload.Categories, act.Item)
		if err != nil {
			return nil, err
		}
		b.s.Nav.SetTopScroll(view.Tab, scroll)
		next, err := b.streamsView(ctx, view.Tab, cat.ID)
		if err != nil {
			return nil, err
		}
		b.push(next)
		return &Result{View: next}, nil
	case nav.LevelStreams:
		return b.openStream(ctx, view, act.Item, scroll)
	case nav.LevelSeasons:
		season, err := pick(view.Payload.Seasons, act.Item)
		if err != nil {
			return nil, err
		}
		b.s.Nav.Stack(view.Tab).SetScroll(scroll)
		next := b.episodesView(view.Tab, view.Payload.SeriesID, season)
		b.push(next)
		return &Result{View: next}, nil
	case nav.LevelEpisodes:
		ep, err := pick(view.Payload.Episodes, act.Item)
		if err != nil {
			return nil, err
		}
		client, err := b.client()
		if err != nil {
			return nil, err
		}
		return &Result{Play: client.StreamURL(xtream.KindSeries, ep.ID, ep.ContainerExt)}, nil
	}
	return nil, &xtream.ValidationError{Msg: fmt.Sprintf("activate: unhandled level %v", view.Level)}
}

// back pops the current frame and renders the one beneath it; with
// nothing left the tab lands on its category list with the remembered
// top-level scroll. Back on the category list itself stays there.
func (b *Browser) back(ctx context.Context, tab catalog.Tab) (*Result, error) {
	stack := b.s.Nav.Stack(tab)
	stack.Pop()
	if f, ok := stack.Current(); ok {
		return &Result{View: b.restore(tab, f)}, nil
	}
	v, err := b.Categories(ctx, tab)
	if err != nil {
		return nil, err
	}
	return &Result{View: v}, nil
}

// restore turns a popped frame back into a view without any fetching.
func (b *Browser) restore(tab catalog.Tab, f nav.Frame) *View {
	return &View{
		Tab:     tab,
		Level:   f.Level,
		Payload: f.Payload,
		Rows:    b.rows(tab, f.Level, f.Payload),
		Scroll:  f.ScrollPosition,
	}
}

// push makes view the tab's current frame.
func (b *Browser) push(view *View) {
	b.s.Nav.Stack(view.Tab).Push(nav.Frame{
		Level:          view.Level,
		Payload:        view.Payload,
		ScrollPosition: view.Scroll,
	})
}

// openStream handles activation inside a streams list: live channels and
// movies play, series descend into seasons.
func (b *Browser) openStream(ctx context.Context, view *View, item, scroll int) (*Result, error) {
	client, err := b.client()
	if err != nil {
		return nil, err
	}
	switch view.Tab {
	case catalog.TabLive:
		ch, err := pick(view.Payload.Channels, item)
		if err != nil {
			return nil, err
		}
		res := &Result{Play: client.StreamURL(xtream.KindLive, ch.ID, "")}
		current, next, err := b.s.Guide.NowNext(ch, b.now())
		if err != nil {
			res.Annotation = guide.Annotate(ch.Name, nil)
			return res, nil
		}
		shown := guide.Displayed(current, next)
		res.Annotation = guide.Annotate(ch.Name, shown)
		if shown != nil {
			res.Description = shown.Description
		}
		return res, nil
	case catalog.TabMovies:
		m, err := pick(view.Payload.Movies, item)
		if err != nil {
			return nil, err
		}
		return &Result{Play: client.StreamURL(xtream.KindMovie, m.ID, m.ContainerExt)}, nil
	case catalog.TabSeries:
		head, err := pick(view.Payload.Series, item)
		if err != nil {
			return nil, err
		}
		seasons, ok := b.s.Catalog.Seasons(head.ID)
		if !ok {
			var err error
			seasons, err = client.SeriesInfo(ctx, head.ID)
			if err != nil {
				return nil, err
			}
			b.s.Catalog.ReplaceSeasons(head.ID, seasons)
		}
		b.s.Nav.Stack(view.Tab).SetScroll(scroll)
		payload := nav.Payload{Seasons: seasons, SeriesID: head.ID}
		next := &View{
			Tab:     view.Tab,
			Level:   nav.LevelSeasons,
			Payload: payload,
			Rows:    b.rows(view.Tab, nav.LevelSeasons, payload),
		}
		b.push(next)
		return &Result{View: next}, nil
	}
	return nil, &xtream.ValidationError{Msg: fmt.Sprintf("activate: unhandled tab %v", view.Tab)}
}

// client returns the portal client or a typed error when logged out.
func (b *Browser) client() (*xtream.Client, error) {
	c := b.s.Client()
	if c == nil {
		return nil, &xtream.ValidationError{Msg: "not logged in"}
	}
	return c, nil
}

// streamsView loads (or replays) the streams of one category.
func (b *Browser) streamsView(ctx context.Context, tab catalog.Tab, categoryID string) (*View, error) {
	payload := nav.Payload{CategoryID: categoryID}
	switch tab {
	case catalog.TabLive:
		chans, ok := b.s.Catalog.Channels(categoryID)
		if !ok {
			client, err := b.client()
			if err != nil {
				return nil, err
			}
			chans, err = client.LiveStreams(ctx, categoryID)
			if err != nil {
				return nil, err
			}
			b.s.Catalog.ReplaceChannels(categoryID, chans)
		}
		payload.Channels = chans
	case catalog.TabMovies:
		movies, ok := b.s.Catalog.Movies(categoryID)
		if !ok {
			client, err := b.client()
			if err != nil {
				return nil, err
			}
			movies, err = client.VODStreams(ctx, categoryID)
			if err != nil {
				return nil, err
			}
			b.s.Catalog.ReplaceMovies(categoryID, movies)
		}
		payload.Movies = movies
	case catalog.TabSeries:
		heads, ok := b.s.Catalog.Series(categoryID)
		if !ok {
			client, err := b.client()
			if err != nil {
				return nil, err
			}
			heads, err = client.Series(ctx, categoryID)
			if err != nil {
				return nil, err
			}
			b.s.Catalog.ReplaceSeries(categoryID, heads)
		}
		payload.Series = heads
	}
	return &View{
		Tab:     tab,
		Level:   nav.LevelStreams,
		Payload: payload,
		Rows:    b.rows(tab, nav.LevelStreams, payload),
	}, nil
}

func (b *Browser) episodesView(tab catalog.Tab, seriesID string, season catalog.Season) *View {
	payload := nav.Payload{
		Episodes:  season.Episodes,
		SeriesID:  seriesID,
		SeasonNum: season.Number,
	}
	return &View{
		Tab:     tab,
		Level:   nav.LevelEpisodes,
		Payload: payload,
		Rows:    b.rows(tab, nav.LevelEpisodes, payload),
	}
}

// rows renders display text for a payload. Live channel rows carry the
// now/next annotation once the guide index is ready.
func (b *Browser) rows(tab catalog.Tab, level nav.Level, p nav.Payload) []string {
	switch level {
	case nav.LevelCategories:
		out := make([]string, len(p.Categories))
		for i, c := range p.Categories {
			out[i] = c.Name
		}
		return out
	case nav.LevelStreams:
		switch tab {
		case catalog.TabLive:
			return b.annotateChannels(p.Channels)
		case catalog.TabMovies:
			out := make([]string, len(p.Movies))
			for i, m := range p.Movies {
				out[i] = m.Name
			}
			return out
		case catalog.TabSeries:
			out := make([]string, len(p.Series))
			for i, h := range p.Series {
				out[i] = h.Name
			}
			return out
		}
	case nav.LevelSeasons:
		out := make([]string, len(p.Seasons))
		for i, s := range p.Seasons {
			out[i] = fmt.Sprintf("Season %d", s.Number)
		}
		return out
	case nav.LevelEpisodes:
		out := make([]string, len(p.Episodes))
		for i, e := range p.Episodes {
			out[i] = e.DisplayTitle()
		}
		return out
	}
	return nil
}

// annotateChannels renders live rows. Without a loaded guide the bare
// names come back untouched; a later Rerender picks the annotations up.
func (b *Browser) annotateChannels(chans []catalog.Channel) []string {
	out := make([]string, len(chans))
	ready := b.s.Guide.Ready()
	now := b.now()
	for i, ch := range chans {
		if !ready {
			out[i] = ch.Name
			continue
		}
		current, next, err := b.s.Guide.NowNext(ch, now)
		if err != nil {
			out[i] = guide.Annotate(ch.Name, nil)
			continue
		}
		out[i] = guide.Annotate(ch.Name, guide.Displayed(current, next))
	}
	return out
}

// Rerender rebuilds a view's rows in place, e.g. after a guide refresh
// completes. Payload and scroll stay untouched.
func (b *Browser) Rerender(view *View) {
	view.Rows = b.rows(view.Tab, view.Level, view.Payload)
}

// Sort orders the view's list A-Z and writes the order back to the store,
// so restores and revisits keep it. Season and episode lists stay in
// numeric order.
func (b *Browser) Sort(view *View) {
	switch view.Level {
	case nav.LevelCategories:
		catalog.SortCategories(view.Payload.Categories)
		b.s.Catalog.ReplaceCategories(view.Tab, view.Payload.Categories)
	case nav.LevelStreams:
		switch view.Tab {
		case catalog.TabLive:
			catalog.SortChannels(view.Payload.Channels)
			b.s.Catalog.ReplaceChannels(view.Payload.CategoryID, view.Payload.Channels)
		case catalog.TabMovies:
			catalog.SortMovies(view.Payload.Movies)
			b.s.Catalog.ReplaceMovies(view.Payload.CategoryID, view.Payload.Movies)
		case catalog.TabSeries:
			catalog.SortSeries(view.Payload.Series)
			b.s.Catalog.ReplaceSeries(view.Payload.CategoryID, view.Payload.Series)
		}
	}
	b.Rerender(view)
}

// pick bounds-checks a row activation.
func pick[T any](items []T, i int) (T, error) {
	var zero T
	if i < 0 || i >= len(items) {
		return zero, &xtream.ValidationError{Msg: fmt.Sprintf("activate: row %d out of range (%d items)", i, len(items))}
	}
	return items[i], nil
}
