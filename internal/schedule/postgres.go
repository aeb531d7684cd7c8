package schedule

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/Obel-arg/catch-influencer-sub003/internal/content"
	"github.com/Obel-arg/catch-influencer-sub003/pkg/logging"
)

const listSchedulesQuery = `
	SELECT s.id, s.title, COALESCE(s.description, ''), COALESCE(s.content_url, ''),
	       COALESCE(s.influencer_id::text, ''), COALESCE(i.name, ''), COALESCE(i.username, ''), COALESCE(i.avatar_url, ''),
	       COALESCE(to_char(s.start_date, 'YYYY-MM-DD'), ''), COALESCE(to_char(s.end_date, 'YYYY-MM-DD'), ''),
	       COALESCE(s.platform, ''), COALESCE(s.content_type, ''), COALESCE(s.status, '')
	FROM campaign_schedules s
	LEFT JOIN influencers i ON i.id = s.influencer_id
	WHERE s.campaign_id = $1
	ORDER BY s.start_date NULLS LAST, s.created_at, s.id`

const listObjectivesQuery = `
	SELECT o.schedule_id, o.id, o.title, COALESCE(o.target, ''), COALESCE(o.current_value, ''),
	       COALESCE(o.status, ''), o.percent_complete
	FROM schedule_objectives o
	WHERE o.schedule_id = ANY($1)
	ORDER BY o.schedule_id, o.position, o.id`

// PostgresStore reads campaign schedules straight from the campaign database.
type PostgresStore struct {
	db     *sql.DB
	logger logging.Logger
}

func NewPostgresStore(db *sql.DB, logger logging.Logger) *PostgresStore {
	return &PostgresStore{db: db, logger: logger}
}

func (s *PostgresStore) ListItems(ctx context.Context, campaignID string) ([]content.Item, error) {
	rows, err := s.db.QueryContext(ctx, listSchedulesQuery, campaignID)
	if err != nil {
		return nil, fmt.Errorf("query schedules: %w", err)
	}
	defer rows.Close()

	var records []content.Record
	index := make(map[string]int)
	for rows.Next() {
		var r content.Record
		if err := rows.Scan(
			&r.ID, &r.Title, &r.Description, &r.ContentURL,
			&r.InfluencerID, &r.Name, &r.Handle, &r.AvatarURL,
			&r.StartDate, &r.EndDate,
			&r.Platform, &r.ContentType, &r.Status,
		); err != nil {
			return nil, fmt.Errorf("scan schedule: %w", err)
		}
		index[r.ID] = len(records)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate schedules: %w", err)
	}
	if len(records) == 0 {
		return []content.Item{}, nil
	}

	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}
	if err := s.attachObjectives(ctx, ids, records, index); err != nil {
		return nil, err
	}

	items := content.AdaptAll(records)
	for _, item := range items {
		if item.StartDate == "" && s.logger != nil {
			s.logger.WithFields(logging.Fields{
				"campaign_id": campaignID,
				"content_id":  item.ID,
			}).Debug("Schedule without start date")
		}
	}
	return items, nil
}

func (s *PostgresStore) attachObjectives(ctx context.Context, ids []string, records []content.Record, index map[string]int) error {
	rows, err := s.db.QueryContext(ctx, listObjectivesQuery, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("query objectives: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			scheduleID string
			o          content.ObjectiveRecord
			percent    sql.NullFloat64
		)
		if err := rows.Scan(&scheduleID, &o.ID, &o.Title, &o.Target, &o.Current, &o.Status, &percent); err != nil {
			return fmt.Errorf("scan objective: %w", err)
		}
		if percent.Valid {
			v := percent.Float64
			o.PercentComplete = &v
		}
		i, ok := index[scheduleID]
		if !ok {
			continue
		}
		records[i].Objectives = append(records[i].Objectives, o)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate objectives: %w", err)
	}
	return nil
}
