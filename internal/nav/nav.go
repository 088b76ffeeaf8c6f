// Package nav is the hierarchical browsing state machine: one frame stack
// per tab plus top-level scroll positions. The top frame of a stack is
// what the tab currently shows; an empty stack means the tab sits on its
// top-level category list. Frames carry the data that was on screen, so
// going back is a pure restore and never refetches.
package nav

import (
	"fmt"

	"github.com/iptvdeck/iptvdeck/internal/catalog"
)

// Level is the depth a frame was captured at.
type Level int

const (
	LevelCategories Level = iota
	LevelStreams
	LevelSeasons
	LevelEpisodes
)

func (l Level) String() string {
	switch l {
	case LevelCategories:
		return "categories"
	case LevelStreams:
		return "streams"
	case LevelSeasons:
		return "seasons"
	case LevelEpisodes:
		return "episodes"
	}
	return fmt.Sprintf("level(%d)", int(l))
}

// Payload is what a frame displayed. Exactly one slice is populated,
// matching the frame's level.
type Payload struct {
	Categories []catalog.Category
	Channels   []catalog.Channel
	Movies     []catalog.Movie
	Series     []catalog.SeriesHead
	Seasons    []catalog.Season
	Episodes   []catalog.Episode

	// Context for the payload: which category or series it came from.
	CategoryID string
	SeriesID   string
	SeasonNum  int
}

// Frame is one navigation state. The top frame of a stack is the state
// currently on screen.
type Frame struct {
	Level          Level
	Payload        Payload
	ScrollPosition int
}

// Stack is the per-tab frame stack. Zero value is ready to use. An empty
// stack means the tab shows its top-level categories.
type Stack struct {
	frames []Frame
}

// Push makes f the current frame.
func (s *Stack) Push(f Frame) {
	s.frames = append(s.frames, f)
}

// Pop removes the current frame; what remains on top is the state to
// render next. On an empty stack it is a no-op returning (Frame{}, false).
func (s *Stack) Pop() (Frame, bool) {
	if len(s.frames) == 0 {
		return Frame{}, false
	}
	f := s.frames[len(s.frames)-1]
	s.frames = s.frames[:len(s.frames)-1]
	return f, true
}

// SetScroll records the scroll position of the current frame, so a later
// restore lands where the user was. No-op on an empty stack; the top-level
// scroll lives on the SessionContext instead.
func (s *Stack) SetScroll(pos int) {
	if len(s.frames) == 0 {
		return
	}
	s.frames[len(s.frames)-1].ScrollPosition = pos
}

// Current peeks at the top frame without removing it.
func (s *Stack) Current() (Frame, bool) {
	if len(s.frames) == 0 {
		return Frame{}, false
	}
	return s.frames[len(s.frames)-1], true
}

// Depth is the number of saved frames.
func (s *Stack) Depth() int {
	return len(s.frames)
}

// Reset drops all frames.
func (s *Stack) Reset() {
	s.frames = nil
}

// ActionKind tags what the user activated.
type ActionKind int

const (
	// ActionOpen descends into the activated item.
	ActionOpen ActionKind = iota
	// ActionGoBack pops one frame. It is a first-class action, not a
	// sentinel row in the item list.
	ActionGoBack
)

// Action is a tagged user activation. Item is meaningful only for
// ActionOpen.
type Action struct {
	Kind ActionKind
	Item int // index of the activated row
}

// Open returns an activation of row i.
func Open(i int) Action {
	return Action{Kind: ActionOpen, Item: i}
}

// GoBack returns the back action.
func GoBack() Action {
	return Action{Kind: ActionGoBack}
}

// SessionContext holds all navigation state for one logged-in session.
// Nothing here is global: a new login builds a fresh SessionContext.
type SessionContext struct {
	stacks map[catalog.Tab]*Stack
	// Scroll positions of the top-level category lists, tracked apart
	// from the stacks: the category list is the floor, never a frame.
	topScroll map[catalog.Tab]int
}

// NewSessionContext returns empty navigation state for all tabs.
func NewSessionContext() *SessionContext {
	return &SessionContext{
		stacks: map[catalog.Tab]*Stack{
			catalog.TabLive:   {},
			catalog.TabMovies: {},
			catalog.TabSeries: {},
		},
		topScroll: make(map[catalog.Tab]int),
	}
}

// Stack returns the frame stack for a tab.
func (sc *SessionContext) Stack(tab catalog.Tab) *Stack {
	return sc.stacks[tab]
}

// SetTopScroll records the top-level scroll position for a tab.
func (sc *SessionContext) SetTopScroll(tab catalog.Tab, pos int) {
	sc.topScroll[tab] = pos
}

// TopScroll returns the remembered top-level scroll position for a tab.
func (sc *SessionContext) TopScroll(tab catalog.Tab) int {
	return sc.topScroll[tab]
}

// Reset clears every stack and scroll position. Called on login.
func (sc *SessionContext) Reset() {
	for _, s := range sc.stacks {
		s.Reset()
	}
	sc.topScroll = make(map[catalog.Tab]int)
}
