package timeline

import "github.com/Obel-arg/catch-influencer-sub003/internal/content"

// Group is the set of items attributed to one assignee.
type Group struct {
	Assignee content.Assignee `json:"assignee"`
	Items    []content.Item   `json:"items"`
}

// Grouping buckets items by assignee and remembers which rows are expanded.
// Expand state outlives any single Group call; it is keyed by assignee id.
type Grouping struct {
	expanded map[string]bool
}

// NewGrouping restores expand state. A nil map starts empty.
func NewGrouping(expanded map[string]bool) *Grouping {
	state := make(map[string]bool, len(expanded))
	for k, v := range expanded {
		state[k] = v
	}
	return &Grouping{expanded: state}
}

// Group returns one group per assignee ordered by first appearance in items.
// Assignees seen for the first time start expanded.
func (g *Grouping) Group(items []content.Item) []Group {
	index := make(map[string]int)
	groups := make([]Group, 0)
	for _, item := range items {
		id := item.Assignee.ID
		i, ok := index[id]
		if !ok {
			i = len(groups)
			index[id] = i
			groups = append(groups, Group{Assignee: item.Assignee})
			if _, known := g.expanded[id]; !known {
				g.expanded[id] = true
			}
		}
		groups[i].Items = append(groups[i].Items, item)
	}
	return groups
}

// IsExpanded reports the row state; unknown assignees are expanded.
func (g *Grouping) IsExpanded(assigneeID string) bool {
	expanded, ok := g.expanded[assigneeID]
	return !ok || expanded
}

// Toggle flips the row state and returns the new value.
func (g *Grouping) Toggle(assigneeID string) bool {
	next := !g.IsExpanded(assigneeID)
	g.expanded[assigneeID] = next
	return next
}

// State returns a copy of the expand state for persistence.
func (g *Grouping) State() map[string]bool {
	out := make(map[string]bool, len(g.expanded))
	for k, v := range g.expanded {
		out[k] = v
	}
	return out
}
