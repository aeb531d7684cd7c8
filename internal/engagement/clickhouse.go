// Package engagement provides the metrics sources the coordinator fetches from:
// the analytics warehouse in ClickHouse and the remote metrics API.
package engagement

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Obel-arg/catch-influencer-sub003/internal/content"
)

// ErrNoMetrics is returned when the source holds nothing for a content id.
var ErrNoMetrics = errors.New("no metrics recorded for content")

// Latest snapshot per content id.
const latestMetricsQuery = `
	SELECT content_id,
	       argMax(views, collected_at),
	       argMax(likes, collected_at),
	       argMax(comments, collected_at),
	       argMax(shares, collected_at)
	FROM content_metrics
	WHERE content_id IN (%s)
	GROUP BY content_id`

// ClickHouseSource reads engagement snapshots collected by the analytics
// pipeline.
type ClickHouseSource struct {
	db *sql.DB
}

func NewClickHouseSource(db *sql.DB) *ClickHouseSource {
	return &ClickHouseSource{db: db}
}

func (s *ClickHouseSource) FetchMetrics(ctx context.Context, contentID string) (content.Metrics, error) {
	out, err := s.FetchMetricsBatch(ctx, []string{contentID})
	if err != nil {
		return content.Metrics{}, err
	}
	m, ok := out[contentID]
	if !ok {
		return content.Metrics{}, fmt.Errorf("%w: %s", ErrNoMetrics, contentID)
	}
	return m, nil
}

func (s *ClickHouseSource) FetchMetricsBatch(ctx context.Context, contentIDs []string) (map[string]content.Metrics, error) {
	out := make(map[string]content.Metrics, len(contentIDs))
	if len(contentIDs) == 0 {
		return out, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(contentIDs)), ", ")
	args := make([]any, len(contentIDs))
	for i, id := range contentIDs {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(latestMetricsQuery, placeholders), args...)
	if err != nil {
		return nil, fmt.Errorf("query content metrics: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m content.Metrics
		if err := rows.Scan(&m.ContentID, &m.Views, &m.Likes, &m.Comments, &m.Shares); err != nil {
			return nil, fmt.Errorf("scan content metrics: %w", err)
		}
		m.EngagementRate = EngagementRate(m)
		out[m.ContentID] = m
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate content metrics: %w", err)
	}
	return out, nil
}

// EngagementRate is interactions over views as a percentage, rounded to two
// decimals. Zero views give zero.
func EngagementRate(m content.Metrics) float64 {
	if m.Views <= 0 {
		return 0
	}
	interactions := float64(m.Likes + m.Comments + m.Shares)
	rate := interactions / float64(m.Views) * 100
	return float64(int64(rate*100+0.5)) / 100
}
