// Package search implements the non-destructive find overlay over the rows
// currently on screen. The unfiltered rows and scroll position stay in the
// overlay, so clearing the query restores the exact prior view.
package search

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// NotFoundPlaceholder is the single non-activatable row shown when no row
// matches the query.
const NotFoundPlaceholder = "(not found)"

// Result is one filtered view of the saved rows.
type Result struct {
	// Rows to display.
	Rows []string
	// Indices maps each displayed row to its index in the saved rows;
	// -1 marks the not-found placeholder.
	Indices []int
	// Cursor is the suggested cursor row within Rows (best fuzzy rank),
	// -1 when there is nothing to select.
	Cursor int
}

// Overlay holds the saved view while a search is active. Zero value is an
// inactive overlay.
type Overlay struct {
	rows   []string
	scroll int
	query  string
	active bool
}

// Active reports whether a search currently owns the view.
func (o *Overlay) Active() bool { return o.active }

// Query returns the current query text.
func (o *Overlay) Query() string { return o.query }

// Open saves the rows and scroll position and activates the overlay.
// The rows slice is copied; later edits by the caller don't leak in.
func (o *Overlay) Open(rows []string, scroll int) {
	o.rows = make([]string, len(rows))
	copy(o.rows, rows)
	o.scroll = scroll
	o.query = ""
	o.active = true
}

// SetQuery filters the saved rows with a case-insensitive substring match.
// An empty query shows all saved rows again.
func (o *Overlay) SetQuery(query string) Result {
	o.query = query
	if query == "" {
		return o.allRows()
	}
	q := strings.ToLower(query)
	var res Result
	for i, row := range o.rows {
		if strings.Contains(strings.ToLower(row), q) {
			res.Rows = append(res.Rows, row)
			res.Indices = append(res.Indices, i)
		}
	}
	if len(res.Rows) == 0 {
		return Result{
			Rows:    []string{NotFoundPlaceholder},
			Indices: []int{-1},
			Cursor:  -1,
		}
	}
	res.Cursor = bestMatchRow(query, res.Rows)
	return res
}

// Close deactivates the overlay and returns the saved rows and scroll
// position, exactly as they were when Open was called.
func (o *Overlay) Close() (rows []string, scroll int) {
	rows, scroll = o.rows, o.scroll
	o.rows = nil
	o.query = ""
	o.active = false
	return rows, scroll
}

func (o *Overlay) allRows() Result {
	res := Result{
		Rows:    make([]string, len(o.rows)),
		Indices: make([]int, len(o.rows)),
	}
	copy(res.Rows, o.rows)
	for i := range res.Indices {
		res.Indices[i] = i
	}
	if len(res.Rows) == 0 {
		res.Cursor = -1
	}
	return res
}

// bestMatchRow ranks the filtered rows against the query and returns the
// closest one. Substring filtering decides membership; the rank only
// places the cursor.
func bestMatchRow(query string, rows []string) int {
	ranks := fuzzy.RankFindNormalizedFold(query, rows)
	if len(ranks) == 0 {
		return 0
	}
	sort.Sort(ranks)
	return ranks[0].OriginalIndex
}
