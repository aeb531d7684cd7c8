// Package metricsfetch deduplicates engagement metric lookups for content items.
// At most one fetch per content id is in flight; successful results are kept for
// the life of the process and failures are forgotten so a later call can retry.
package metricsfetch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Obel-arg/catch-influencer-sub003/internal/content"
	"github.com/Obel-arg/catch-influencer-sub003/pkg/logging"
)

// Source is the remote metrics collaborator.
type Source interface {
	FetchMetrics(ctx context.Context, contentID string) (content.Metrics, error)
	FetchMetricsBatch(ctx context.Context, contentIDs []string) (map[string]content.Metrics, error)
}

// Options tunes how the coordinator talks to its Source.
type Options struct {
	// FetchTimeout bounds one fetch round. Zero means no extra deadline.
	FetchTimeout time.Duration
	// FallbackConcurrency caps per-id fetches issued after a failed batch call.
	FallbackConcurrency int
}

// MetricsHooks receive cache and fetch events. Nil hooks are skipped.
type MetricsHooks struct {
	OnHit   func(labels map[string]string)
	OnMiss  func(labels map[string]string)
	OnJoin  func(labels map[string]string)
	OnStore func(labels map[string]string)
	OnError func(labels map[string]string)
}

type call struct {
	done    chan struct{}
	metrics content.Metrics
	ok      bool
}

// Coordinator owns the metrics cache and the in-flight set for one service.
type Coordinator struct {
	mu       sync.Mutex
	cache    map[string]content.Metrics
	inflight map[string]*call
	source   Source
	opts     Options
	hooks    MetricsHooks
	logger   logging.Logger
}

// New returns a Coordinator with an empty cache. A non-positive
// FallbackConcurrency defaults to 4.
func New(source Source, opts Options, hooks MetricsHooks, logger logging.Logger) *Coordinator {
	if opts.FallbackConcurrency <= 0 {
		opts.FallbackConcurrency = 4
	}
	return &Coordinator{
		cache:    make(map[string]content.Metrics),
		inflight: make(map[string]*call),
		source:   source,
		opts:     opts,
		hooks:    hooks,
		logger:   logger,
	}
}

// Eligible returns the ids of items that link to external content, deduplicated
// in input order. Items without a content URL are never fetched.
func Eligible(items []content.Item) []string {
	seen := make(map[string]struct{}, len(items))
	ids := make([]string, 0, len(items))
	for _, item := range items {
		if item.ID == "" || !item.HasContentURL() {
			continue
		}
		if _, dup := seen[item.ID]; dup {
			continue
		}
		seen[item.ID] = struct{}{}
		ids = append(ids, item.ID)
	}
	return ids
}

// EnsureLoadedForItems loads metrics for the eligible items.
func (c *Coordinator) EnsureLoadedForItems(ctx context.Context, items []content.Item) map[string]content.Metrics {
	return c.EnsureLoaded(ctx, Eligible(items))
}

// EnsureLoaded returns metrics for every id that is cached or fetched successfully.
// Ids already in flight attach to the running fetch instead of starting another.
// Failed ids are simply absent from the result. The fetch itself is not tied to
// ctx cancellation, since other callers may be waiting on it; ctx only bounds
// how long this caller waits.
func (c *Coordinator) EnsureLoaded(ctx context.Context, ids []string) map[string]content.Metrics {
	result := make(map[string]content.Metrics, len(ids))
	var (
		owned   = make(map[string]*call)
		waiting = make(map[string]*call)
		fetch   []string
	)

	c.mu.Lock()
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, dup := result[id]; dup {
			continue
		}
		if _, dup := owned[id]; dup {
			continue
		}
		if m, ok := c.cache[id]; ok {
			result[id] = m
			c.emit(c.hooks.OnHit, id)
			continue
		}
		if cl, ok := c.inflight[id]; ok {
			waiting[id] = cl
			c.emit(c.hooks.OnJoin, id)
			continue
		}
		cl := &call{done: make(chan struct{})}
		c.inflight[id] = cl
		owned[id] = cl
		fetch = append(fetch, id)
		c.emit(c.hooks.OnMiss, id)
	}
	c.mu.Unlock()

	if len(fetch) > 0 {
		go c.run(context.WithoutCancel(ctx), fetch, owned)
		for id, cl := range owned {
			waiting[id] = cl
		}
	}

	for id, cl := range waiting {
		select {
		case <-cl.done:
			if cl.ok {
				result[id] = cl.metrics
			}
		case <-ctx.Done():
			return result
		}
	}
	return result
}

// Peek returns already resolved metrics without triggering a fetch.
func (c *Coordinator) Peek(contentID string) (content.Metrics, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.cache[contentID]
	return m, ok
}

// InFlight reports whether a fetch for contentID is currently running.
func (c *Coordinator) InFlight(contentID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.inflight[contentID]
	return ok
}

// Len returns the number of cached entries.
func (c *Coordinator) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.cache)
}

func (c *Coordinator) run(ctx context.Context, ids []string, calls map[string]*call) {
	if c.opts.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.FetchTimeout)
		defer cancel()
	}

	fetched := c.fetch(ctx, ids)

	c.mu.Lock()
	for _, id := range ids {
		cl := calls[id]
		if m, ok := fetched[id]; ok {
			m.ContentID = id
			c.cache[id] = m
			cl.metrics, cl.ok = m, true
			c.emit(c.hooks.OnStore, id)
		} else {
			c.emit(c.hooks.OnError, id)
		}
		delete(c.inflight, id)
	}
	c.mu.Unlock()

	for _, id := range ids {
		close(calls[id].done)
	}
}

func (c *Coordinator) fetch(ctx context.Context, ids []string) map[string]content.Metrics {
	if len(ids) == 1 {
		m, err := c.source.FetchMetrics(ctx, ids[0])
		if err != nil {
			c.logFailure(err, ids)
			return nil
		}
		return map[string]content.Metrics{ids[0]: m}
	}

	batch, err := c.source.FetchMetricsBatch(ctx, ids)
	if err == nil {
		return batch
	}
	c.logFailure(fmt.Errorf("batch fetch: %w", err), ids)

	var mu sync.Mutex
	out := make(map[string]content.Metrics, len(ids))
	g := new(errgroup.Group)
	g.SetLimit(c.opts.FallbackConcurrency)
	for _, id := range ids {
		g.Go(func() error {
			m, err := c.source.FetchMetrics(ctx, id)
			if err != nil {
				c.logFailure(err, []string{id})
				return nil
			}
			mu.Lock()
			out[id] = m
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (c *Coordinator) logFailure(err error, ids []string) {
	if c.logger == nil {
		return
	}
	c.logger.WithError(err).WithFields(logging.Fields{
		"content_ids": ids,
	}).Warn("Metrics fetch failed")
}

func (c *Coordinator) emit(hook func(map[string]string), id string) {
	if hook != nil {
		hook(map[string]string{"content_id": id})
	}
}
