package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Obel-arg/catch-influencer-sub003/internal/content"
	"github.com/Obel-arg/catch-influencer-sub003/internal/session"
	"github.com/Obel-arg/catch-influencer-sub003/internal/timeline"
	"github.com/Obel-arg/catch-influencer-sub003/pkg/logging"
	"github.com/Obel-arg/catch-influencer-sub003/pkg/pagination"
)

type SessionHandler struct {
	store       session.Store
	snapshots   ScheduleSnapshots
	loader      MetricsLoader
	logger      logging.Logger
	metrics     *PlannerMetrics
	now         func() time.Time
	metricsWait time.Duration
}

func NewSessionHandler(
	store session.Store,
	snapshots ScheduleSnapshots,
	loader MetricsLoader,
	logger logging.Logger,
	metrics *PlannerMetrics,
) *SessionHandler {
	return &SessionHandler{
		store:       store,
		snapshots:   snapshots,
		loader:      loader,
		logger:      logger,
		metrics:     metrics,
		now:         time.Now,
		metricsWait: 5 * time.Second,
	}
}

type createSessionRequest struct {
	CampaignID string `json:"campaign_id" binding:"required"`
	View       string `json:"view"`
	Zoom       string `json:"zoom"`
}

type viewRequest struct {
	View string `json:"view" binding:"required"`
}

type pageRequest struct {
	First int    `form:"first"`
	After string `form:"after"`
}

type shiftRequest struct {
	Direction string `json:"direction" binding:"required"`
}

// PlacedItem is an item together with its position on the current layout.
type PlacedItem struct {
	content.Item
	Placement timeline.Placement `json:"placement"`
}

type GroupView struct {
	Assignee content.Assignee `json:"assignee"`
	Expanded bool             `json:"expanded"`
	Items    []PlacedItem     `json:"items"`
}

type TimelineResponse struct {
	Session  session.State   `json:"session"`
	Layout   timeline.Layout `json:"layout"`
	Groups   []GroupView     `json:"groups"`
	Centered bool            `json:"centered"`
}

func (h *SessionHandler) Create(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.metrics.IncRequest("session_create", "bad_request")
		respondError(c, http.StatusBadRequest, "Invalid request format")
		return
	}

	view := timeline.ViewList
	if req.View != "" {
		parsed, ok := timeline.ParseView(req.View)
		if !ok {
			h.metrics.IncRequest("session_create", "bad_request")
			respondError(c, http.StatusBadRequest, "Unknown view")
			return
		}
		view = parsed
	}

	now := h.now()
	state := session.NewState(req.CampaignID, view, timeline.DateOf(now), now)
	if req.Zoom != "" {
		state.Zoom = timeline.ParseZoom(req.Zoom)
	}

	if err := h.store.Create(c.Request.Context(), state); err != nil {
		h.metrics.IncRequest("session_create", "store_error")
		h.logger.WithError(err).WithField("campaign_id", req.CampaignID).Error("Failed to create session")
		respondError(c, http.StatusInternalServerError, "Session store error")
		return
	}

	h.metrics.IncRequest("session_create", "success")
	h.metrics.IncSessionCreated()
	c.JSON(http.StatusCreated, state)
}

func (h *SessionHandler) Get(c *gin.Context) {
	state, err := h.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.failSession(c, "session_get", err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (h *SessionHandler) Delete(c *gin.Context) {
	if err := h.store.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.failSession(c, "session_delete", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SetView switches the active view; entering the grid arms auto-centering.
func (h *SessionHandler) SetView(c *gin.Context) {
	var req viewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.metrics.IncRequest("session_view", "bad_request")
		respondError(c, http.StatusBadRequest, "Invalid request format")
		return
	}
	view, ok := timeline.ParseView(req.View)
	if !ok {
		h.metrics.IncRequest("session_view", "bad_request")
		respondError(c, http.StatusBadRequest, "Unknown view")
		return
	}

	state, err := h.store.Update(c.Request.Context(), c.Param("id"), func(s *session.State) error {
		s.SwitchView(view)
		return nil
	})
	if err != nil {
		h.failSession(c, "session_view", err)
		return
	}
	h.metrics.IncRequest("session_view", "success")
	c.JSON(http.StatusOK, state)
}

func (h *SessionHandler) Shift(c *gin.Context) {
	var req shiftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.metrics.IncRequest("session_shift", "bad_request")
		respondError(c, http.StatusBadRequest, "Invalid request format")
		return
	}
	dir, ok := timeline.ParseDirection(req.Direction)
	if !ok {
		h.metrics.IncRequest("session_shift", "bad_request")
		respondError(c, http.StatusBadRequest, "Direction must be forward or backward")
		return
	}

	state, err := h.store.Update(c.Request.Context(), c.Param("id"), func(s *session.State) error {
		nav := s.Navigator()
		nav.Shift(dir)
		s.KeepNavigator(nav)
		return nil
	})
	if err != nil {
		h.failSession(c, "session_shift", err)
		return
	}
	h.metrics.IncRequest("session_shift", "success")
	c.JSON(http.StatusOK, gin.H{"session": state, "window": state.Window})
}

func (h *SessionHandler) ToggleGroup(c *gin.Context) {
	assigneeID := c.Param("assignee")
	var expanded bool
	_, err := h.store.Update(c.Request.Context(), c.Param("id"), func(s *session.State) error {
		g := s.Grouping()
		expanded = g.Toggle(assigneeID)
		s.KeepGrouping(g)
		return nil
	})
	if err != nil {
		h.failSession(c, "session_toggle", err)
		return
	}
	h.metrics.IncRequest("session_toggle", "success")
	c.JSON(http.StatusOK, gin.H{"assigneeId": assigneeID, "expanded": expanded})
}

// Timeline renders the grid: filtered items grouped by assignee and placed on
// the columns of the session's window. The first render after the grid is
// activated may re-center the window on the earliest item.
func (h *SessionHandler) Timeline(c *gin.Context) {
	var criteria timeline.Criteria
	if err := c.ShouldBindQuery(&criteria); err != nil {
		h.metrics.IncRequest("session_timeline", "bad_request")
		respondError(c, http.StatusBadRequest, "Invalid filter parameters")
		return
	}
	zoomParam := c.Query("zoom")

	ctx := c.Request.Context()
	id := c.Param("id")
	current, err := h.store.Get(ctx, id)
	if err != nil {
		h.failSession(c, "session_timeline", err)
		return
	}
	items, ok := h.loadItems(c, "session_timeline", current.CampaignID)
	if !ok {
		return
	}

	var (
		groups   []timeline.Group
		centered bool
	)
	state, err := h.store.Update(ctx, id, func(s *session.State) error {
		centered = false
		if zoomParam != "" {
			s.Zoom = timeline.ParseZoom(zoomParam)
		}
		if s.View == timeline.ViewGrid {
			nav := s.Navigator()
			_, centered = nav.AutoCenterOnce(items)
			s.KeepNavigator(nav)
		}
		visible := timeline.Filter(items, timeline.ViewGrid, s.Window, criteria)
		g := s.Grouping()
		groups = g.Group(visible)
		s.KeepGrouping(g)
		return nil
	})
	if err != nil {
		h.failSession(c, "session_timeline", err)
		return
	}

	if centered {
		h.logger.WithFields(logging.Fields{
			"session_id":   id,
			"window_start": state.Window.Start.String(),
		}).Debug("Auto-centered timeline window")
	}

	layout := timeline.NewLayout(state.Zoom, state.Window, timeline.DateOf(h.now()))
	expanded := state.Grouping()
	resp := TimelineResponse{
		Session:  state,
		Layout:   layout,
		Groups:   make([]GroupView, 0, len(groups)),
		Centered: centered,
	}
	for _, g := range groups {
		view := GroupView{
			Assignee: g.Assignee,
			Expanded: expanded.IsExpanded(g.Assignee.ID),
			Items:    make([]PlacedItem, 0, len(g.Items)),
		}
		for _, item := range g.Items {
			view.Items = append(view.Items, PlacedItem{Item: item, Placement: layout.Place(item)})
		}
		resp.Groups = append(resp.Groups, view)
	}

	h.metrics.IncRequest("session_timeline", "success")
	c.JSON(http.StatusOK, resp)
}

// Items serves the list and calendar views. Metrics for items that link to
// published content are loaded on the way; slow or failed lookups are left out.
// Passing first or after pages the result.
func (h *SessionHandler) Items(c *gin.Context) {
	var criteria timeline.Criteria
	var page pageRequest
	if err := c.ShouldBindQuery(&criteria); err != nil {
		h.metrics.IncRequest("session_items", "bad_request")
		respondError(c, http.StatusBadRequest, "Invalid filter parameters")
		return
	}
	if err := c.ShouldBindQuery(&page); err != nil {
		h.metrics.IncRequest("session_items", "bad_request")
		respondError(c, http.StatusBadRequest, "Invalid page parameters")
		return
	}
	params, err := pagination.Parse(page.First, page.After)
	if err != nil {
		h.metrics.IncRequest("session_items", "bad_request")
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	state, err := h.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.failSession(c, "session_items", err)
		return
	}
	items, ok := h.loadItems(c, "session_items", state.CampaignID)
	if !ok {
		return
	}

	view := state.View
	if view == timeline.ViewGrid {
		view = timeline.ViewList
	}
	visible := timeline.Filter(items, view, state.Window, criteria)

	resp := gin.H{"view": view}
	if page.First > 0 || page.After != "" {
		var info pagination.PageInfo
		visible, info = pagination.Slice(visible, params, func(item content.Item) string { return item.ID })
		resp["pageInfo"] = info
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.metricsWait)
	defer cancel()
	resp["items"] = visible
	resp["metrics"] = h.loader.EnsureLoadedForItems(ctx, visible)

	h.metrics.IncRequest("session_items", "success")
	c.JSON(http.StatusOK, resp)
}

func (h *SessionHandler) loadItems(c *gin.Context, handler, campaignID string) ([]content.Item, bool) {
	items, err := h.snapshots.Items(c.Request.Context(), campaignID)
	if err != nil {
		h.metrics.IncRequest(handler, "schedule_error")
		h.logger.WithError(err).WithField("campaign_id", campaignID).Error("Failed to load campaign schedule")
		respondError(c, upstreamErrorStatus(err), "Failed to load campaign schedule")
		return nil, false
	}
	return items, true
}

func (h *SessionHandler) failSession(c *gin.Context, handler string, err error) {
	status, message := sessionErrorStatus(err)
	switch status {
	case http.StatusNotFound:
		h.metrics.IncRequest(handler, "not_found")
	case http.StatusConflict:
		h.metrics.IncRequest(handler, "conflict")
	default:
		h.metrics.IncRequest(handler, "store_error")
		h.logger.WithError(err).WithField("session_id", c.Param("id")).Error("Session store failure")
	}
	respondError(c, status, message)
}
