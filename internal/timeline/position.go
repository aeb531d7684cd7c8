package timeline

import "github.com/Obel-arg/catch-influencer-sub003/internal/content"

// Placement is where an item lands on the grid. Only the start date is used;
// the card never spans to the end date.
type Placement struct {
	ColumnIndex int  `json:"columnIndex"`
	Offset      int  `json:"offset"`
	Width       int  `json:"width"`
	Visible     bool `json:"visible"`
}

// NotVisible is the placement of an item with no matching column.
var NotVisible = Placement{ColumnIndex: -1}

// Resolve returns the index of the column holding the item's start date.
// ok is false for unparseable dates and for dates outside the columns.
func Resolve(item content.Item, columns []Column, zoom Zoom) (index int, ok bool) {
	start, valid := ParseDate(item.StartDate)
	if !valid {
		return -1, false
	}
	return columnIndex(start, columns, zoom)
}

// Place resolves an item and converts the column index into a pixel offset.
func Place(item content.Item, columns []Column, zoom Zoom) Placement {
	idx, ok := Resolve(item, columns, zoom)
	if !ok {
		return NotVisible
	}
	width := zoom.ColumnWidth()
	return Placement{
		ColumnIndex: idx,
		Offset:      idx * width,
		Width:       width,
		Visible:     true,
	}
}

// TodayIndex locates today on the grid using the same bucketing as item placement.
func TodayIndex(columns []Column, zoom Zoom, today Date) int {
	idx, ok := columnIndex(today, columns, zoom)
	if !ok {
		return -1
	}
	return idx
}

func columnIndex(d Date, columns []Column, zoom Zoom) (int, bool) {
	for i, col := range columns {
		if inColumn(d, col.Date, zoom) {
			return i, true
		}
	}
	return -1, false
}

func inColumn(d, columnStart Date, zoom Zoom) bool {
	switch zoom {
	case ZoomWeek:
		return !d.Before(columnStart) && !d.After(columnStart.AddDays(6))
	case ZoomMonth:
		return d.SameMonth(columnStart)
	default:
		return d.Equal(columnStart)
	}
}
