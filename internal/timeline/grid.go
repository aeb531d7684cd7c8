package timeline

import (
	"fmt"
	"strconv"
)

// Column is one cell of the visible timeline.
type Column struct {
	Date     Date   `json:"date"`
	DateKey  string `json:"dateKey"`
	Label    string `json:"label"`
	SubLabel string `json:"subLabel"`
}

// Generate produces the ordered, gap-free columns covering start..end at the given
// zoom. An inverted range yields no columns.
func Generate(zoom Zoom, start, end Date) []Column {
	if end.Before(start) {
		return []Column{}
	}
	switch zoom {
	case ZoomWeek:
		return weekColumns(start, end)
	case ZoomMonth:
		return monthColumns(start, end)
	default:
		return dayColumns(start, end)
	}
}

func dayColumns(start, end Date) []Column {
	columns := make([]Column, 0, start.DaysUntil(end)+1)
	for d := start; !d.After(end); d = d.AddDays(1) {
		columns = append(columns, Column{
			Date:     d,
			DateKey:  d.String(),
			Label:    strconv.Itoa(d.Day()),
			SubLabel: d.shortWeekday(),
		})
	}
	return columns
}

// weekColumns walks 7-day blocks anchored on start, not on ISO week boundaries.
func weekColumns(start, end Date) []Column {
	columns := make([]Column, 0, start.DaysUntil(end)/7+1)
	for d := start; !d.After(end); d = d.AddDays(7) {
		columns = append(columns, Column{
			Date:     d,
			DateKey:  d.String(),
			Label:    fmt.Sprintf("W%d", weekOrdinal(d)),
			SubLabel: weekRangeLabel(d, d.AddDays(6)),
		})
	}
	return columns
}

// weekOrdinal is ceil(day-of-month / 7).
func weekOrdinal(d Date) int {
	return (d.Day() + 6) / 7
}

func weekRangeLabel(from, to Date) string {
	if from.SameMonth(to) {
		return fmt.Sprintf("%d-%d %s", from.Day(), to.Day(), from.shortMonth())
	}
	return fmt.Sprintf("%d %s-%d %s", from.Day(), from.shortMonth(), to.Day(), to.shortMonth())
}

func monthColumns(start, end Date) []Column {
	last := end.FirstOfMonth()
	columns := make([]Column, 0, 12)
	for d := start.FirstOfMonth(); !d.After(last); d = d.AddMonths(1) {
		columns = append(columns, Column{
			Date:     d,
			DateKey:  d.String(),
			Label:    d.shortMonth(),
			SubLabel: strconv.Itoa(d.Year()),
		})
	}
	return columns
}
