package engagement

import (
	"context"

	"github.com/Obel-arg/catch-influencer-sub003/internal/content"
	"github.com/Obel-arg/catch-influencer-sub003/pkg/clients/metricsapi"
)

// MetricsClient is the part of the metrics API client used here.
type MetricsClient interface {
	GetMetrics(ctx context.Context, contentID string) (*metricsapi.ContentMetrics, error)
	GetMetricsBatch(ctx context.Context, contentIDs []string) (map[string]metricsapi.ContentMetrics, error)
}

// APISource fetches metrics from the remote metrics service.
type APISource struct {
	client MetricsClient
}

func NewAPISource(client MetricsClient) *APISource {
	return &APISource{client: client}
}

func (s *APISource) FetchMetrics(ctx context.Context, contentID string) (content.Metrics, error) {
	m, err := s.client.GetMetrics(ctx, contentID)
	if err != nil {
		return content.Metrics{}, err
	}
	return fromWire(contentID, *m), nil
}

func (s *APISource) FetchMetricsBatch(ctx context.Context, contentIDs []string) (map[string]content.Metrics, error) {
	batch, err := s.client.GetMetricsBatch(ctx, contentIDs)
	if err != nil {
		return nil, err
	}
	out := make(map[string]content.Metrics, len(batch))
	for id, m := range batch {
		out[id] = fromWire(id, m)
	}
	return out, nil
}

func fromWire(id string, m metricsapi.ContentMetrics) content.Metrics {
	out := content.Metrics{
		ContentID:      id,
		Views:          m.Views,
		Likes:          m.Likes,
		Comments:       m.Comments,
		Shares:         m.Shares,
		EngagementRate: m.EngagementRate,
	}
	if out.EngagementRate == 0 {
		out.EngagementRate = EngagementRate(out)
	}
	return out
}
