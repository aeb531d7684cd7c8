package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Obel-arg/catch-influencer-sub003/internal/content"
	"github.com/Obel-arg/catch-influencer-sub003/internal/metricsfetch"
	"github.com/Obel-arg/catch-influencer-sub003/pkg/logging"
)

const maxEnsureIDs = 200

type MetricsHandler struct {
	loader    MetricsLoader
	snapshots ScheduleSnapshots
	logger    logging.Logger
	metrics   *PlannerMetrics
	wait      time.Duration
}

func NewMetricsHandler(loader MetricsLoader, snapshots ScheduleSnapshots, logger logging.Logger, metrics *PlannerMetrics) *MetricsHandler {
	return &MetricsHandler{loader: loader, snapshots: snapshots, logger: logger, metrics: metrics, wait: 10 * time.Second}
}

type ensureRequest struct {
	CampaignID string   `json:"campaign_id" binding:"required"`
	ContentIDs []string `json:"content_ids" binding:"required"`
}

// Ensure loads metrics for content ids of one campaign. Only items that have a
// content url are fetched; the other ids are listed as ineligible. Eligible
// ids whose fetch failed or did not finish in time are listed as missing.
func (h *MetricsHandler) Ensure(c *gin.Context) {
	var req ensureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.metrics.IncRequest("metrics_ensure", "bad_request")
		respondError(c, http.StatusBadRequest, "Invalid request format")
		return
	}
	if len(req.ContentIDs) > maxEnsureIDs {
		h.metrics.IncRequest("metrics_ensure", "bad_request")
		respondError(c, http.StatusBadRequest, "Too many content ids")
		return
	}

	items, err := h.snapshots.Items(c.Request.Context(), req.CampaignID)
	if err != nil {
		h.metrics.IncRequest("metrics_ensure", "schedule_error")
		h.logger.WithError(err).WithField("campaign_id", req.CampaignID).Error("Failed to load campaign schedule")
		respondError(c, upstreamErrorStatus(err), "Failed to load campaign schedule")
		return
	}

	byID := make(map[string]content.Item, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}
	requested := make([]content.Item, 0, len(req.ContentIDs))
	for _, id := range req.ContentIDs {
		if item, ok := byID[id]; ok {
			requested = append(requested, item)
		}
	}
	eligible := metricsfetch.Eligible(requested)

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.wait)
	defer cancel()
	loaded := map[string]content.Metrics{}
	if len(eligible) > 0 {
		loaded = h.loader.EnsureLoaded(ctx, eligible)
	}

	allowed := make(map[string]struct{}, len(eligible))
	for _, id := range eligible {
		allowed[id] = struct{}{}
	}
	missing := make([]string, 0)
	ineligible := make([]string, 0)
	seen := make(map[string]struct{}, len(req.ContentIDs))
	for _, id := range req.ContentIDs {
		if _, dup := seen[id]; dup || id == "" {
			continue
		}
		seen[id] = struct{}{}
		if _, ok := allowed[id]; !ok {
			ineligible = append(ineligible, id)
			continue
		}
		if _, ok := loaded[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		h.logger.WithField("missing", len(missing)).Debug("Metrics not available for some content")
	}

	h.metrics.IncRequest("metrics_ensure", "success")
	c.JSON(http.StatusOK, gin.H{"metrics": loaded, "missing": missing, "ineligible": ineligible})
}

// Peek returns metrics already loaded for one content id without fetching.
func (h *MetricsHandler) Peek(c *gin.Context) {
	id := c.Param("id")
	if m, ok := h.loader.Peek(id); ok {
		c.JSON(http.StatusOK, m)
		return
	}
	c.JSON(http.StatusNotFound, gin.H{
		"error":    "Metrics not loaded",
		"inFlight": h.loader.InFlight(id),
	})
}

type CampaignHandler struct {
	snapshots ScheduleSnapshots
	logger    logging.Logger
	metrics   *PlannerMetrics
}

func NewCampaignHandler(snapshots ScheduleSnapshots, logger logging.Logger, metrics *PlannerMetrics) *CampaignHandler {
	return &CampaignHandler{snapshots: snapshots, logger: logger, metrics: metrics}
}

// Reload drops the campaign's schedule snapshot and loads it again.
func (h *CampaignHandler) Reload(c *gin.Context) {
	campaignID := c.Param("id")
	items, err := h.snapshots.Reload(c.Request.Context(), campaignID)
	if err != nil {
		h.metrics.IncRequest("campaign_reload", "schedule_error")
		h.logger.WithError(err).WithField("campaign_id", campaignID).Error("Campaign reload failed")
		respondError(c, upstreamErrorStatus(err), "Failed to load campaign schedule")
		return
	}
	h.metrics.IncRequest("campaign_reload", "success")
	c.JSON(http.StatusOK, gin.H{"campaignId": campaignID, "items": len(items)})
}

type PlatformHandler struct {
	table content.PlatformTable
}

func NewPlatformHandler(table content.PlatformTable) *PlatformHandler {
	return &PlatformHandler{table: table}
}

func (h *PlatformHandler) List(c *gin.Context) {
	out := make([]gin.H, 0, len(h.table))
	for _, p := range h.table.Platforms() {
		out = append(out, gin.H{"platform": p, "contentTypes": h.table.Types(p)})
	}
	c.JSON(http.StatusOK, gin.H{"platforms": out})
}

type validateRequest struct {
	Platform    string `json:"platform" binding:"required"`
	ContentType string `json:"content_type" binding:"required"`
}

// Validate checks a platform and content type pair from a create or edit form.
func (h *PlatformHandler) Validate(c *gin.Context) {
	var req validateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request format")
		return
	}
	platform := content.Platform(strings.ToLower(strings.TrimSpace(req.Platform)))
	allowed := h.table.Types(platform)
	if allowed == nil {
		allowed = []content.ContentType{}
	}
	c.JSON(http.StatusOK, gin.H{
		"valid":   h.table.Allows(platform, content.ContentType(strings.TrimSpace(req.ContentType))),
		"allowed": allowed,
	})
}
