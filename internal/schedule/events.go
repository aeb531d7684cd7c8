package schedule

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/Obel-arg/catch-influencer-sub003/pkg/kafka"
	"github.com/Obel-arg/catch-influencer-sub003/pkg/logging"
)

// ChangeEvent announces that schedules of a campaign were created, edited or
// removed upstream. An empty CampaignID means every campaign may have changed.
type ChangeEvent struct {
	Type       string `json:"type"`
	CampaignID string `json:"campaign_id"`
	ScheduleID string `json:"schedule_id,omitempty"`
}

// Invalidator drops cached schedule snapshots.
type Invalidator interface {
	Invalidate(campaignID string)
	InvalidateAll()
}

// ChangeHandler returns a kafka handler that invalidates the snapshot named
// by each change event. Malformed events are logged and skipped so a single
// bad record cannot stall the partition.
func ChangeHandler(snapshots Invalidator, logger logging.Logger) kafka.Handler {
	return func(_ context.Context, msg kafka.Message) error {
		var event ChangeEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			logger.WithError(err).WithFields(logging.Fields{
				"topic":  msg.Topic,
				"offset": msg.Offset,
			}).Warn("Skipping malformed schedule change event")
			return nil
		}
		campaignID := strings.TrimSpace(event.CampaignID)
		if campaignID == "" {
			campaignID = strings.TrimSpace(string(msg.Key))
		}
		if campaignID == "" {
			snapshots.InvalidateAll()
			logger.WithField("type", event.Type).Info("Invalidated all schedule snapshots")
			return nil
		}
		snapshots.Invalidate(campaignID)
		logger.WithFields(logging.Fields{
			"type":        event.Type,
			"campaign_id": campaignID,
		}).Debug("Invalidated schedule snapshot")
		return nil
	}
}
