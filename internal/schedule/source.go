// Package schedule supplies the content items of a campaign to the planner.
// Items come from a Source (Postgres or the campaign API) and are kept as a
// per-campaign snapshot until a change event or an explicit reload drops it.
package schedule

import (
	"context"

	"github.com/Obel-arg/catch-influencer-sub003/internal/content"
)

// Source lists the scheduled content items of one campaign, already adapted
// to the planner's model.
type Source interface {
	ListItems(ctx context.Context, campaignID string) ([]content.Item, error)
}
