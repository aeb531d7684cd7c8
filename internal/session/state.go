// Package session keeps the per-viewer planner state between requests: the
// active view, the visible window, the auto-center latch and row expand state.
// Each session is independent; nothing is shared between viewers.
package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/Obel-arg/catch-influencer-sub003/internal/timeline"
)

type State struct {
	ID         string              `json:"id"`
	CampaignID string              `json:"campaignId"`
	View       timeline.View       `json:"view"`
	Zoom       timeline.Zoom       `json:"zoom"`
	Window     timeline.Window     `json:"window"`
	Latch      timeline.LatchState `json:"latch"`
	Expanded   map[string]bool     `json:"expanded"`
	CreatedAt  time.Time           `json:"createdAt"`
	UpdatedAt  time.Time           `json:"updatedAt"`
}

// NewState starts a session on the default window. Opening straight into the
// grid counts as activating it.
func NewState(campaignID string, view timeline.View, today timeline.Date, now time.Time) State {
	s := State{
		ID:         uuid.NewString(),
		CampaignID: campaignID,
		View:       timeline.ViewList,
		Zoom:       timeline.ZoomDay,
		Window:     timeline.DefaultWindow(today),
		Latch:      timeline.LatchInactive,
		Expanded:   map[string]bool{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	s.SwitchView(view)
	return s
}

// Navigator rebuilds the window controller from the stored state.
func (s *State) Navigator() *timeline.Navigator {
	return timeline.NewNavigator(s.Window, s.Latch)
}

// KeepNavigator writes the controller's window and latch back.
func (s *State) KeepNavigator(nav *timeline.Navigator) {
	s.Window = nav.Window()
	s.Latch = nav.Latch()
}

func (s *State) Grouping() *timeline.Grouping {
	return timeline.NewGrouping(s.Expanded)
}

func (s *State) KeepGrouping(g *timeline.Grouping) {
	s.Expanded = g.State()
}

// SwitchView changes the active view. Entering the grid arms the auto-center
// latch and leaving it disarms the latch.
func (s *State) SwitchView(view timeline.View) {
	if view == "" || view == s.View {
		return
	}
	nav := s.Navigator()
	if s.View == timeline.ViewGrid {
		nav.Deactivate()
	}
	if view == timeline.ViewGrid {
		nav.Activate()
	}
	s.View = view
	s.KeepNavigator(nav)
}

func (s State) clone() State {
	out := s
	out.Expanded = make(map[string]bool, len(s.Expanded))
	for k, v := range s.Expanded {
		out.Expanded[k] = v
	}
	return out
}
