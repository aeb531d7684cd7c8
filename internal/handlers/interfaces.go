package handlers

import (
	"context"

	"github.com/Obel-arg/catch-influencer-sub003/internal/content"
)

type ScheduleSnapshots interface {
	Items(ctx context.Context, campaignID string) ([]content.Item, error)
	Reload(ctx context.Context, campaignID string) ([]content.Item, error)
}

type MetricsLoader interface {
	EnsureLoaded(ctx context.Context, ids []string) map[string]content.Metrics
	EnsureLoadedForItems(ctx context.Context, items []content.Item) map[string]content.Metrics
	Peek(contentID string) (content.Metrics, bool)
	InFlight(contentID string) bool
}
