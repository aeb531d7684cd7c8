package timeline

import "github.com/Obel-arg/catch-influencer-sub003/internal/content"

// Layout is the computed grid for one render: columns plus their pixel geometry.
type Layout struct {
	Zoom        Zoom     `json:"zoom"`
	Window      Window   `json:"window"`
	Columns     []Column `json:"columns"`
	ColumnWidth int      `json:"columnWidth"`
	Width       int      `json:"width"`
	TodayIndex  int      `json:"todayIndex"`
}

// NewLayout generates the columns for window at zoom.
func NewLayout(zoom Zoom, window Window, today Date) Layout {
	zoom = ParseZoom(string(zoom))
	columns := Generate(zoom, window.Start, window.End)
	width := zoom.ColumnWidth()
	return Layout{
		Zoom:        zoom,
		Window:      window,
		Columns:     columns,
		ColumnWidth: width,
		Width:       width * len(columns),
		TodayIndex:  TodayIndex(columns, zoom, today),
	}
}

// Place positions an item on this layout.
func (l Layout) Place(item content.Item) Placement {
	return Place(item, l.Columns, l.Zoom)
}
