package guide

import (
	"testing"
	"time"
)

func mkProgram(title string, start, stop time.Time) Program {
	return Program{ChannelID: "ch1", Title: title, Start: start, Stop: stop}
}

func TestResolve_currentAndNext(t *testing.T) {
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.Local)
	programs := []Program{
		mkProgram("Morning", base.Add(-2*time.Hour), base.Add(-1*time.Hour)),
		mkProgram("Noon Show", base.Add(-30*time.Minute), base.Add(30*time.Minute)),
		mkProgram("Afternoon", base.Add(30*time.Minute), base.Add(90*time.Minute)),
	}
	current, next := Resolve(programs, base)
	if current == nil || current.Title != "Noon Show" {
		t.Fatalf("current = %+v", current)
	}
	if next == nil || next.Title != "Afternoon" {
		t.Fatalf("next = %+v", next)
	}
}

func TestResolve_gapBeforeNext(t *testing.T) {
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.Local)
	programs := []Program{
		mkProgram("Earlier", base.Add(-2*time.Hour), base.Add(-1*time.Hour)),
		mkProgram("Later", base.Add(time.Hour), base.Add(2*time.Hour)),
	}
	current, next := Resolve(programs, base)
	if current != nil {
		t.Errorf("current = %+v, want nil in a gap", current)
	}
	if next == nil || next.Title != "Later" {
		t.Fatalf("next = %+v", next)
	}
}

func TestResolve_allPast(t *testing.T) {
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.Local)
	programs := []Program{
		mkProgram("Done", base.Add(-2*time.Hour), base.Add(-1*time.Hour)),
	}
	current, next := Resolve(programs, base)
	if current != nil || next != nil {
		t.Errorf("got current=%+v next=%+v, want nil/nil", current, next)
	}
}

func TestResolve_boundaries(t *testing.T) {
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.Local)
	programs := []Program{
		mkProgram("Exact", base, base.Add(time.Hour)),
	}
	// start is inclusive
	if current, _ := Resolve(programs, base); current == nil || current.Title != "Exact" {
		t.Errorf("start boundary: current = %+v", current)
	}
	// stop is exclusive
	if current, _ := Resolve(programs, base.Add(time.Hour)); current != nil {
		t.Errorf("stop boundary: current = %+v, want nil", current)
	}
}

func TestResolve_empty(t *testing.T) {
	current, next := Resolve(nil, time.Now())
	if current != nil || next != nil {
		t.Errorf("got current=%+v next=%+v", current, next)
	}
}

func TestDisplayed(t *testing.T) {
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.Local)
	onAir := mkProgram("On Air", base.Add(-time.Hour), base.Add(time.Hour))
	upcoming := mkProgram("Up Next", base.Add(time.Hour), base.Add(2*time.Hour))
	if got := Displayed(&onAir, &upcoming); got.Title != "On Air" {
		t.Errorf("Displayed = %+v", got)
	}
	if got := Displayed(nil, &upcoming); got == nil || got.Title != "Up Next" {
		t.Errorf("Displayed = %+v", got)
	}
	if got := Displayed(nil, nil); got != nil {
		t.Errorf("Displayed = %+v, want nil", got)
	}
}

func TestAnnotate(t *testing.T) {
	start := time.Date(2026, 3, 10, 15, 0, 0, 0, time.Local)
	p := mkProgram("News Hour", start, start.Add(time.Hour))
	got := Annotate("CNN", &p)
	want := "CNN - News Hour (03:00 PM - 04:00 PM)"
	if got != want {
		t.Errorf("Annotate = %q, want %q", got, want)
	}
}

func TestAnnotate_noData(t *testing.T) {
	got := Annotate("CNN", nil)
	want := "CNN - No Current EPG Data Available"
	if got != want {
		t.Errorf("Annotate = %q, want %q", got, want)
	}
}
