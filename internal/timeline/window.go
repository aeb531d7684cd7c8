package timeline

import (
	"strings"

	"github.com/Obel-arg/catch-influencer-sub003/internal/content"
)

// WindowMonths is the number of calendar months visible in the grid.
const WindowMonths = 3

// Window is the month-aligned range rendered by the grid view.
type Window struct {
	Start Date `json:"start"`
	End   Date `json:"end"`
}

// WindowFrom returns the window starting on the month containing d.
func WindowFrom(d Date) Window {
	start := d.FirstOfMonth()
	return Window{
		Start: start,
		End:   start.AddMonths(WindowMonths - 1).LastOfMonth(),
	}
}

// DefaultWindow is the current month plus the two that follow.
func DefaultWindow(today Date) Window {
	return WindowFrom(today)
}

// Contains reports whether d falls inside the window, bounds included.
func (w Window) Contains(d Date) bool {
	return !d.Before(w.Start) && !d.After(w.End)
}

// Overlaps reports whether the item's start..end interval intersects the window.
// Items with unparseable dates never overlap.
func (w Window) Overlaps(item content.Item) bool {
	start, ok := ParseDate(item.StartDate)
	if !ok {
		return false
	}
	end, ok := ParseDate(item.EndDate)
	if !ok {
		return false
	}
	return !start.After(w.End) && !end.Before(w.Start)
}

// Direction is a navigation step for the window.
type Direction string

const (
	Forward  Direction = "forward"
	Backward Direction = "backward"
)

// ParseDirection accepts forward/next and backward/back/prev.
func ParseDirection(s string) (Direction, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "forward", "next":
		return Forward, true
	case "backward", "back", "prev", "previous":
		return Backward, true
	default:
		return "", false
	}
}

// Shift moves the window a whole window length, realigned to month boundaries.
func (w Window) Shift(dir Direction) Window {
	step := WindowMonths
	if dir == Backward {
		step = -WindowMonths
	}
	return WindowFrom(w.Start.AddMonths(step))
}

// EarliestStart returns the smallest parseable start date among items.
func EarliestStart(items []content.Item) (Date, bool) {
	var earliest Date
	found := false
	for _, item := range items {
		d, ok := ParseDate(item.StartDate)
		if !ok {
			continue
		}
		if !found || d.Before(earliest) {
			earliest = d
			found = true
		}
	}
	return earliest, found
}

// AutoCenter returns the window re-centered on the earliest item's month when that
// item lies outside current. changed is false when current is kept.
func AutoCenter(items []content.Item, current Window) (next Window, changed bool) {
	earliest, ok := EarliestStart(items)
	if !ok || current.Contains(earliest) {
		return current, false
	}
	return WindowFrom(earliest), true
}
