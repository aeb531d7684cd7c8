package timeline

import "strings"

// Zoom is the timeline granularity.
type Zoom string

const (
	ZoomDay   Zoom = "day"
	ZoomWeek  Zoom = "week"
	ZoomMonth Zoom = "month"
)

const (
	dayColumnWidth   = 60
	weekColumnWidth  = 120
	monthColumnWidth = 200
)

// ParseZoom maps a user supplied level onto a Zoom. Unknown values fall back to day.
func ParseZoom(s string) Zoom {
	switch Zoom(strings.ToLower(strings.TrimSpace(s))) {
	case ZoomWeek:
		return ZoomWeek
	case ZoomMonth:
		return ZoomMonth
	default:
		return ZoomDay
	}
}

// ColumnWidth is the pixel width of one column at this zoom.
func (z Zoom) ColumnWidth() int {
	switch z {
	case ZoomWeek:
		return weekColumnWidth
	case ZoomMonth:
		return monthColumnWidth
	default:
		return dayColumnWidth
	}
}
