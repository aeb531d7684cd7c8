package timeline

import "github.com/Obel-arg/catch-influencer-sub003/internal/content"

// LatchState guards the one-shot auto-centering of the grid view.
//
//	inactive --Activate--> armed --AutoCenterOnce(with items)--> consumed
//	any      --Deactivate--> inactive
type LatchState string

const (
	LatchInactive LatchState = "inactive"
	LatchArmed    LatchState = "armed"
	LatchConsumed LatchState = "consumed"
)

// Navigator owns the visible window of one view session.
type Navigator struct {
	window Window
	latch  LatchState
}

// NewNavigator restores a navigator. An empty latch is inactive.
func NewNavigator(window Window, latch LatchState) *Navigator {
	if latch == "" {
		latch = LatchInactive
	}
	return &Navigator{window: window, latch: latch}
}

func (n *Navigator) Window() Window    { return n.window }
func (n *Navigator) Latch() LatchState { return n.latch }

// Shift moves the window forward or backward by three months.
func (n *Navigator) Shift(dir Direction) Window {
	n.window = n.window.Shift(dir)
	return n.window
}

// Activate is called when the grid view becomes active. Re-activating an already
// active view does not re-arm the latch.
func (n *Navigator) Activate() {
	if n.latch == LatchInactive {
		n.latch = LatchArmed
	}
}

// Deactivate is called when the grid view is left.
func (n *Navigator) Deactivate() {
	n.latch = LatchInactive
}

// AutoCenterOnce re-centers the window on the earliest item the first time it is
// evaluated after activation. An item list without any parseable start date does
// not consume the latch, so a grid activated before data arrives still centers
// once the data loads.
func (n *Navigator) AutoCenterOnce(items []content.Item) (Window, bool) {
	if n.latch != LatchArmed {
		return n.window, false
	}
	if _, ok := EarliestStart(items); !ok {
		return n.window, false
	}
	n.latch = LatchConsumed
	next, changed := AutoCenter(items, n.window)
	n.window = next
	return next, changed
}
