package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Obel-arg/catch-influencer-sub003/internal/content"
	"github.com/Obel-arg/catch-influencer-sub003/pkg/cache"
	"github.com/Obel-arg/catch-influencer-sub003/pkg/logging"
)

// ErrNoCampaign is returned for an empty campaign id.
var ErrNoCampaign = errors.New("campaign id is required")

type SnapshotOptions struct {
	// LoadTimeout bounds one load from the source.
	LoadTimeout time.Duration
	// MaxCampaigns caps how many campaign snapshots are held at once.
	MaxCampaigns int
	// OnReload is called after every load with "success" or "error".
	OnReload func(status string)
}

// Snapshots holds the last loaded item list per campaign.
type Snapshots struct {
	source Source
	cache  *cache.Cache[[]content.Item]
	opts   SnapshotOptions
	logger logging.Logger
}

func NewSnapshots(source Source, opts SnapshotOptions, logger logging.Logger) *Snapshots {
	if opts.LoadTimeout <= 0 {
		opts.LoadTimeout = 30 * time.Second
	}
	return &Snapshots{
		source: source,
		cache:  cache.New[[]content.Item](cache.Options{MaxEntries: opts.MaxCampaigns}, cache.MetricsHooks{}),
		opts:   opts,
		logger: logger,
	}
}

// Items returns the snapshot for campaignID, loading it on first use.
// Callers must not modify the returned slice.
func (s *Snapshots) Items(ctx context.Context, campaignID string) ([]content.Item, error) {
	if campaignID == "" {
		return nil, ErrNoCampaign
	}
	return s.cache.Get(ctx, campaignID, s.load)
}

// Reload drops the current snapshot and loads a fresh one.
func (s *Snapshots) Reload(ctx context.Context, campaignID string) ([]content.Item, error) {
	if campaignID == "" {
		return nil, ErrNoCampaign
	}
	s.cache.Delete(campaignID)
	return s.cache.Get(ctx, campaignID, s.load)
}

func (s *Snapshots) Invalidate(campaignID string) {
	s.cache.Delete(campaignID)
}

func (s *Snapshots) InvalidateAll() {
	s.cache.Clear()
}

// Loaded reports whether a snapshot for campaignID is held.
func (s *Snapshots) Loaded(campaignID string) bool {
	_, ok := s.cache.Peek(campaignID)
	return ok
}

func (s *Snapshots) load(ctx context.Context, campaignID string) ([]content.Item, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.LoadTimeout)
	defer cancel()

	start := time.Now()
	items, err := s.source.ListItems(ctx, campaignID)
	if err != nil {
		s.report("error")
		if s.logger != nil {
			s.logger.WithError(err).WithField("campaign_id", campaignID).Warn("Failed to load campaign schedule")
		}
		return nil, fmt.Errorf("load schedule for campaign %s: %w", campaignID, err)
	}
	if items == nil {
		items = []content.Item{}
	}
	s.report("success")
	if s.logger != nil {
		s.logger.WithFields(logging.Fields{
			"campaign_id": campaignID,
			"items":       len(items),
			"duration_ms": time.Since(start).Milliseconds(),
		}).Debug("Loaded campaign schedule")
	}
	return items, nil
}

func (s *Snapshots) report(status string) {
	if s.opts.OnReload != nil {
		s.opts.OnReload(status)
	}
}
