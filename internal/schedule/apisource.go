package schedule

import (
	"context"

	"github.com/Obel-arg/catch-influencer-sub003/internal/content"
	"github.com/Obel-arg/catch-influencer-sub003/pkg/clients/scheduleapi"
)

// ScheduleLister is the part of the campaign API client the planner uses.
type ScheduleLister interface {
	ListSchedules(ctx context.Context, campaignID string) ([]scheduleapi.Schedule, error)
}

// APISource reads schedules through the campaign management API.
type APISource struct {
	client ScheduleLister
}

func NewAPISource(client ScheduleLister) *APISource {
	return &APISource{client: client}
}

func (s *APISource) ListItems(ctx context.Context, campaignID string) ([]content.Item, error) {
	schedules, err := s.client.ListSchedules(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	records := make([]content.Record, 0, len(schedules))
	for _, sc := range schedules {
		records = append(records, recordFromAPI(sc))
	}
	return content.AdaptAll(records), nil
}

func recordFromAPI(sc scheduleapi.Schedule) content.Record {
	r := content.Record{
		ID:           sc.ID,
		Title:        sc.Title,
		Description:  sc.Description,
		ContentURL:   sc.ContentURL,
		InfluencerID: sc.Influencer.ID,
		Name:         sc.Influencer.Name,
		Handle:       sc.Influencer.Username,
		AvatarURL:    sc.Influencer.AvatarURL,
		StartDate:    sc.StartDate,
		EndDate:      sc.EndDate,
		Platform:     sc.Platform,
		ContentType:  sc.ContentType,
		Status:       sc.Status,
		Objectives:   make([]content.ObjectiveRecord, 0, len(sc.Objectives)),
	}
	for _, o := range sc.Objectives {
		r.Objectives = append(r.Objectives, content.ObjectiveRecord{
			ID:              o.ID,
			Title:           o.Title,
			Target:          o.Target,
			Current:         o.Current,
			Status:          o.Status,
			PercentComplete: o.PercentComplete,
		})
	}
	return r
}
