package content

import "strings"

// Record is a schedule row as delivered by an upstream schedule collaborator,
// before normalization.
type Record struct {
	ID           string
	Title        string
	Description  string
	ContentURL   string
	InfluencerID string
	Name         string
	Handle       string
	AvatarURL    string
	StartDate    string
	EndDate      string
	Platform     string
	ContentType  string
	Status       string
	Objectives   []ObjectiveRecord
}

// ObjectiveRecord is the upstream form of an Objective.
type ObjectiveRecord struct {
	ID              string
	Title           string
	Target          string
	Current         string
	Status          string
	PercentComplete *float64
}

// Adapt converts an upstream record into an Item. Dates keep only their calendar
// part so a timestamp such as 2024-01-10T23:00:00-05:00 still means January 10th.
func Adapt(r Record) Item {
	item := Item{
		ID:          r.ID,
		Title:       strings.TrimSpace(r.Title),
		Description: r.Description,
		ContentURL:  strings.TrimSpace(r.ContentURL),
		Assignee: Assignee{
			ID:       r.InfluencerID,
			Name:     r.Name,
			Handle:   strings.TrimPrefix(strings.TrimSpace(r.Handle), "@"),
			ImageURL: r.AvatarURL,
		},
		StartDate:   calendarPart(r.StartDate),
		EndDate:     calendarPart(r.EndDate),
		Platform:    Platform(strings.ToLower(strings.TrimSpace(r.Platform))),
		ContentType: ContentType(strings.ToLower(strings.TrimSpace(r.ContentType))),
		Status:      NormalizeStatus(r.Status),
		Objectives:  make([]Objective, 0, len(r.Objectives)),
	}
	if item.EndDate == "" {
		item.EndDate = item.StartDate
	}
	for _, o := range r.Objectives {
		item.Objectives = append(item.Objectives, adaptObjective(o))
	}
	return item
}

// AdaptAll adapts records preserving their order.
func AdaptAll(records []Record) []Item {
	items := make([]Item, 0, len(records))
	for _, r := range records {
		items = append(items, Adapt(r))
	}
	return items
}

func adaptObjective(o ObjectiveRecord) Objective {
	obj := Objective{
		ID:      o.ID,
		Title:   o.Title,
		Target:  strings.TrimSpace(o.Target),
		Current: strings.TrimSpace(o.Current),
		Status:  strings.ToLower(strings.TrimSpace(o.Status)),
	}
	if o.PercentComplete != nil {
		obj.PercentComplete = clampPercent(*o.PercentComplete)
	} else {
		obj.PercentComplete = Progress(obj.Current, obj.Target)
	}
	return obj
}

func calendarPart(raw string) string {
	raw = strings.TrimSpace(raw)
	if len(raw) > 10 && (raw[10] == 'T' || raw[10] == ' ') {
		return raw[:10]
	}
	return raw
}
