package timeline

import (
	"strings"

	"github.com/Obel-arg/catch-influencer-sub003/internal/content"
)

// View is the active presentation of the schedule.
type View string

const (
	ViewGrid     View = "grid"
	ViewList     View = "list"
	ViewCalendar View = "calendar"
)

// ParseView maps a user supplied view name; "timeline" and "gantt" are grid aliases.
func ParseView(s string) (View, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "grid", "timeline", "gantt":
		return ViewGrid, true
	case "list":
		return ViewList, true
	case "calendar":
		return ViewCalendar, true
	default:
		return "", false
	}
}

// All disables a criterion. An empty value does the same.
const All = "all"

// Criteria are the user filters applied on top of the date window.
type Criteria struct {
	Search      string `json:"search" form:"q"`
	Status      string `json:"status" form:"status"`
	Platform    string `json:"platform" form:"platform"`
	ContentType string `json:"contentType" form:"type"`
	AssigneeID  string `json:"assigneeId" form:"assignee"`
}

// Filter returns the items matching every criterion, in input order. In the grid
// view items must also overlap the window; items with unparseable dates never
// reach the grid.
func Filter(items []content.Item, view View, window Window, c Criteria) []content.Item {
	out := make([]content.Item, 0, len(items))
	search := strings.ToLower(c.Search)
	for _, item := range items {
		if search != "" && !strings.Contains(strings.ToLower(item.Title), search) {
			continue
		}
		if active(c.Status) && string(item.Status) != strings.TrimSpace(c.Status) {
			continue
		}
		if active(c.Platform) && !strings.EqualFold(string(item.Platform), strings.TrimSpace(c.Platform)) {
			continue
		}
		if active(c.ContentType) && !strings.EqualFold(string(item.ContentType), strings.TrimSpace(c.ContentType)) {
			continue
		}
		if active(c.AssigneeID) && item.Assignee.ID != strings.TrimSpace(c.AssigneeID) {
			continue
		}
		if view == ViewGrid && !window.Overlaps(item) {
			continue
		}
		out = append(out, item)
	}
	return out
}

func active(v string) bool {
	v = strings.TrimSpace(v)
	return v != "" && v != All
}
