package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"

	"github.com/Obel-arg/catch-influencer-sub003/internal/content"
	"github.com/Obel-arg/catch-influencer-sub003/internal/session"
	"github.com/Obel-arg/catch-influencer-sub003/pkg/pagination"
)

type snapshotsStub struct {
	items   []content.Item
	err     error
	reloads int
}

func (s *snapshotsStub) Items(context.Context, string) ([]content.Item, error) {
	return s.items, s.err
}

func (s *snapshotsStub) Reload(context.Context, string) ([]content.Item, error) {
	s.reloads++
	return s.items, s.err
}

type loaderStub struct {
	known    map[string]content.Metrics
	inflight map[string]bool
	asked    [][]string
}

func (l *loaderStub) EnsureLoaded(_ context.Context, ids []string) map[string]content.Metrics {
	l.asked = append(l.asked, ids)
	out := map[string]content.Metrics{}
	for _, id := range ids {
		if m, ok := l.known[id]; ok {
			out[id] = m
		}
	}
	return out
}

func (l *loaderStub) EnsureLoadedForItems(ctx context.Context, items []content.Item) map[string]content.Metrics {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		if item.HasContentURL() {
			ids = append(ids, item.ID)
		}
	}
	return l.EnsureLoaded(ctx, ids)
}

func (l *loaderStub) Peek(id string) (content.Metrics, bool) {
	m, ok := l.known[id]
	return m, ok
}

func (l *loaderStub) InFlight(id string) bool { return l.inflight[id] }

type harness struct {
	router    *gin.Engine
	snapshots *snapshotsStub
	loader    *loaderStub
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func setupHarness() *harness {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	snapshots := &snapshotsStub{items: []content.Item{
		{ID: "a1", Title: "Launch reel", Assignee: content.Assignee{ID: "A", Name: "Ana"}, StartDate: "2024-02-01", EndDate: "2024-02-03", Platform: content.PlatformInstagram, Status: content.StatusPending, ContentURL: "https://ig.example/a1"},
		{ID: "b1", Title: "Teaser", Assignee: content.Assignee{ID: "B", Name: "Bo"}, StartDate: "2024-01-05", EndDate: "2024-01-05", Platform: content.PlatformTikTok, Status: content.StatusCompleted},
	}}
	loader := &loaderStub{
		known:    map[string]content.Metrics{"a1": {ContentID: "a1", Views: 100}},
		inflight: map[string]bool{"z9": true},
	}
	logger := quietLogger()

	sessions := NewSessionHandler(session.NewMemoryStore(0), snapshots, loader, logger, nil)
	sessions.now = func() time.Time { return time.Date(2024, 2, 14, 12, 0, 0, 0, time.UTC) }
	metricsHandler := NewMetricsHandler(loader, snapshots, logger, nil)
	campaigns := NewCampaignHandler(snapshots, logger, nil)
	platforms := NewPlatformHandler(content.DefaultPlatformTable())

	Routes{
		Sessions:  sessions,
		Metrics:   metricsHandler,
		Campaigns: campaigns,
		Platforms: platforms,
	}.Register(router.Group("/api"))

	return &harness{router: router, snapshots: snapshots, loader: loader}
}

func (h *harness) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp := httptest.NewRecorder()
	h.router.ServeHTTP(resp, req)
	return resp
}

func decode[T any](t *testing.T, resp *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v (%s)", err, resp.Body.String())
	}
	return out
}

func createSession(t *testing.T, h *harness, view string) session.State {
	t.Helper()
	resp := h.do(t, http.MethodPost, "/api/sessions", map[string]string{"campaign_id": "camp-1", "view": view})
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	return decode[session.State](t, resp)
}

func TestCreateSessionDefaults(t *testing.T) {
	h := setupHarness()
	state := createSession(t, h, "")

	if state.View != "list" || state.Latch != "inactive" {
		t.Fatalf("unexpected view/latch %s %s", state.View, state.Latch)
	}
	if state.Window.Start.String() != "2024-02-01" || state.Window.End.String() != "2024-04-30" {
		t.Fatalf("unexpected window %s..%s", state.Window.Start, state.Window.End)
	}

	resp := h.do(t, http.MethodPost, "/api/sessions", map[string]string{"campaign_id": "c", "view": "kanban"})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown view, got %d", resp.Code)
	}
	resp = h.do(t, http.MethodPost, "/api/sessions", map[string]string{"view": "grid"})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without campaign, got %d", resp.Code)
	}
}

func TestTimelineAutoCentersOnce(t *testing.T) {
	h := setupHarness()
	state := createSession(t, h, "timeline")
	if state.Latch != "armed" {
		t.Fatalf("expected armed latch, got %s", state.Latch)
	}

	resp := h.do(t, http.MethodGet, "/api/sessions/"+state.ID+"/timeline", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	first := decode[TimelineResponse](t, resp)
	if !first.Centered || first.Session.Window.Start.String() != "2024-01-01" || first.Session.Window.End.String() != "2024-03-31" {
		t.Fatalf("expected window recentered on January, got %+v", first.Session.Window)
	}
	if first.Session.Latch != "consumed" {
		t.Fatalf("expected consumed latch, got %s", first.Session.Latch)
	}
	if first.Layout.ColumnWidth != 60 || len(first.Layout.Columns) != 91 {
		t.Fatalf("unexpected layout width=%d columns=%d", first.Layout.ColumnWidth, len(first.Layout.Columns))
	}
	if first.Layout.TodayIndex != 44 {
		t.Fatalf("expected today at column 44, got %d", first.Layout.TodayIndex)
	}
	if len(first.Groups) != 2 || first.Groups[0].Assignee.ID != "A" || first.Groups[1].Assignee.ID != "B" {
		t.Fatalf("unexpected groups %+v", first.Groups)
	}
	if !first.Groups[0].Expanded || !first.Groups[1].Expanded {
		t.Fatalf("new groups must start expanded")
	}
	placed := first.Groups[1].Items[0].Placement
	if !placed.Visible || placed.ColumnIndex != 4 || placed.Offset != 240 {
		t.Fatalf("unexpected placement %+v", placed)
	}

	// Shift away; the consumed latch must not pull the window back.
	h.do(t, http.MethodPost, "/api/sessions/"+state.ID+"/shift", map[string]string{"direction": "forward"})
	second := decode[TimelineResponse](t, h.do(t, http.MethodGet, "/api/sessions/"+state.ID+"/timeline", nil))
	if second.Centered || second.Session.Window.Start.String() != "2024-04-01" {
		t.Fatalf("expected window to stay on April, got %+v centered=%v", second.Session.Window, second.Centered)
	}
	if len(second.Groups) != 0 {
		t.Fatalf("expected no items in April, got %d groups", len(second.Groups))
	}
}

func TestTimelineZoomAndFilters(t *testing.T) {
	h := setupHarness()
	state := createSession(t, h, "list")

	resp := h.do(t, http.MethodGet, "/api/sessions/"+state.ID+"/timeline?zoom=week&platform=INSTAGRAM", nil)
	out := decode[TimelineResponse](t, resp)
	if out.Centered {
		t.Fatalf("list session must not auto-center")
	}
	if out.Layout.Zoom != "week" || out.Layout.ColumnWidth != 120 || out.Session.Zoom != "week" {
		t.Fatalf("expected week zoom, got %+v", out.Layout.Zoom)
	}
	if len(out.Groups) != 1 || out.Groups[0].Items[0].ID != "a1" {
		t.Fatalf("expected only the instagram item, got %+v", out.Groups)
	}
	if p := out.Groups[0].Items[0].Placement; p.ColumnIndex != 0 {
		t.Fatalf("expected first week column, got %+v", p)
	}
}

func TestToggleGroupPersists(t *testing.T) {
	h := setupHarness()
	state := createSession(t, h, "grid")

	resp := h.do(t, http.MethodPost, "/api/sessions/"+state.ID+"/groups/A/toggle", nil)
	body := decode[map[string]interface{}](t, resp)
	if body["expanded"] != false || body["assigneeId"] != "A" {
		t.Fatalf("unexpected toggle response %v", body)
	}

	out := decode[TimelineResponse](t, h.do(t, http.MethodGet, "/api/sessions/"+state.ID+"/timeline?q=launch", nil))
	if len(out.Groups) != 1 || out.Groups[0].Expanded {
		t.Fatalf("expected collapsed A group, got %+v", out.Groups)
	}
}

func TestShiftAndViewValidation(t *testing.T) {
	h := setupHarness()
	state := createSession(t, h, "grid")

	if resp := h.do(t, http.MethodPost, "/api/sessions/"+state.ID+"/shift", map[string]string{"direction": "sideways"}); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	resp := h.do(t, http.MethodPost, "/api/sessions/"+state.ID+"/shift", map[string]string{"direction": "back"})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	shifted := decode[struct {
		Session session.State `json:"session"`
	}](t, resp)
	if shifted.Session.Window.Start.String() != "2023-11-01" || shifted.Session.Window.End.String() != "2024-01-31" {
		t.Fatalf("unexpected shifted window %+v", shifted.Session.Window)
	}

	if resp := h.do(t, http.MethodPost, "/api/sessions/"+state.ID+"/view", map[string]string{"view": "nope"}); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	resp = h.do(t, http.MethodPost, "/api/sessions/"+state.ID+"/view", map[string]string{"view": "calendar"})
	switched := decode[session.State](t, resp)
	if switched.View != "calendar" || switched.Latch != "inactive" {
		t.Fatalf("leaving the grid must disarm, got %s %s", switched.View, switched.Latch)
	}
}

func TestItemsListViewLoadsMetrics(t *testing.T) {
	h := setupHarness()
	state := createSession(t, h, "grid")
	h.do(t, http.MethodPost, "/api/sessions/"+state.ID+"/shift", map[string]string{"direction": "forward"})

	resp := h.do(t, http.MethodGet, "/api/sessions/"+state.ID+"/items", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	body := decode[struct {
		View    string                     `json:"view"`
		Items   []content.Item             `json:"items"`
		Metrics map[string]content.Metrics `json:"metrics"`
	}](t, resp)
	if body.View != "list" || len(body.Items) != 2 {
		t.Fatalf("list view ignores the window, got view=%s items=%d", body.View, len(body.Items))
	}
	if body.Metrics["a1"].Views != 100 || len(body.Metrics) != 1 {
		t.Fatalf("unexpected metrics %+v", body.Metrics)
	}
	if len(h.loader.asked) != 1 || len(h.loader.asked[0]) != 1 || h.loader.asked[0][0] != "a1" {
		t.Fatalf("only items with content urls are fetched, asked %v", h.loader.asked)
	}
}

func TestItemsPaging(t *testing.T) {
	h := setupHarness()
	state := createSession(t, h, "list")

	type pageBody struct {
		Items    []content.Item             `json:"items"`
		Metrics  map[string]content.Metrics `json:"metrics"`
		PageInfo pagination.PageInfo        `json:"pageInfo"`
	}

	resp := h.do(t, http.MethodGet, "/api/sessions/"+state.ID+"/items?first=1", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	first := decode[pageBody](t, resp)
	if len(first.Items) != 1 || !first.PageInfo.HasNextPage || first.PageInfo.TotalCount != 2 || first.PageInfo.EndCursor == nil {
		t.Fatalf("unexpected first page %+v", first)
	}

	resp = h.do(t, http.MethodGet, "/api/sessions/"+state.ID+"/items?first=1&after="+*first.PageInfo.EndCursor, nil)
	second := decode[pageBody](t, resp)
	if len(second.Items) != 1 || second.PageInfo.HasNextPage || second.Items[0].ID == first.Items[0].ID {
		t.Fatalf("unexpected second page %+v", second)
	}
	for _, asked := range h.loader.asked {
		if len(asked) > 1 {
			t.Fatalf("metrics are only loaded for the page, asked %v", asked)
		}
	}

	if resp := h.do(t, http.MethodGet, "/api/sessions/"+state.ID+"/items?after=bogus", nil); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a bad cursor, got %d", resp.Code)
	}
}

func TestSessionErrors(t *testing.T) {
	h := setupHarness()
	if resp := h.do(t, http.MethodGet, "/api/sessions/missing/timeline", nil); resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
	if resp := h.do(t, http.MethodPost, "/api/sessions/missing/view", map[string]string{"view": "grid"}); resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}

	state := createSession(t, h, "grid")
	h.snapshots.err = errors.New("schedule service down")
	if resp := h.do(t, http.MethodGet, "/api/sessions/"+state.ID+"/timeline", nil); resp.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.Code)
	}
	h.snapshots.err = context.DeadlineExceeded
	if resp := h.do(t, http.MethodGet, "/api/sessions/"+state.ID+"/items", nil); resp.Code != http.StatusGatewayTimeout {
		t.Fatalf("expected 504, got %d", resp.Code)
	}

	if resp := h.do(t, http.MethodDelete, "/api/sessions/"+state.ID, nil); resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}
	if resp := h.do(t, http.MethodGet, "/api/sessions/"+state.ID, nil); resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", resp.Code)
	}
	if resp := h.do(t, http.MethodDelete, "/api/sessions/"+state.ID, nil); resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 deleting an unknown session, got %d", resp.Code)
	}
}

func TestMetricsEnsureAndPeek(t *testing.T) {
	h := setupHarness()

	resp := h.do(t, http.MethodPost, "/api/metrics/ensure", map[string]interface{}{
		"campaign_id": "camp-1",
		"content_ids": []string{"a1", "x", "x"},
	})
	body := decode[struct {
		Metrics    map[string]content.Metrics `json:"metrics"`
		Missing    []string                   `json:"missing"`
		Ineligible []string                   `json:"ineligible"`
	}](t, resp)
	if len(body.Metrics) != 1 || len(body.Missing) != 0 || len(body.Ineligible) != 1 || body.Ineligible[0] != "x" {
		t.Fatalf("unexpected ensure response %+v", body)
	}

	if resp := h.do(t, http.MethodPost, "/api/metrics/ensure", map[string]interface{}{"campaign_id": "camp-1", "content_ids": "a1"}); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	if resp := h.do(t, http.MethodPost, "/api/metrics/ensure", map[string][]string{"content_ids": {"a1"}}); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without campaign, got %d", resp.Code)
	}

	if resp := h.do(t, http.MethodGet, "/api/metrics/a1", nil); resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for loaded metrics, got %d", resp.Code)
	}
	resp = h.do(t, http.MethodGet, "/api/metrics/z9", nil)
	peek := decode[map[string]interface{}](t, resp)
	if resp.Code != http.StatusNotFound || peek["inFlight"] != true {
		t.Fatalf("expected 404 with inFlight, got %d %v", resp.Code, peek)
	}
}

func TestMetricsEnsureSkipsContentWithoutURL(t *testing.T) {
	h := setupHarness()

	resp := h.do(t, http.MethodPost, "/api/metrics/ensure", map[string]interface{}{
		"campaign_id": "camp-1",
		"content_ids": []string{"b1", "a1"},
	})
	body := decode[struct {
		Metrics    map[string]content.Metrics `json:"metrics"`
		Missing    []string                   `json:"missing"`
		Ineligible []string                   `json:"ineligible"`
	}](t, resp)
	if resp.Code != http.StatusOK || len(body.Ineligible) != 1 || body.Ineligible[0] != "b1" {
		t.Fatalf("expected b1 to be ineligible, got %d %+v", resp.Code, body)
	}
	for _, asked := range h.loader.asked {
		for _, id := range asked {
			if id == "b1" {
				t.Fatalf("content without a url must not be fetched, asked %v", h.loader.asked)
			}
		}
	}

	h.loader.asked = nil
	resp = h.do(t, http.MethodPost, "/api/metrics/ensure", map[string]interface{}{
		"campaign_id": "camp-1",
		"content_ids": []string{"b1"},
	})
	if resp.Code != http.StatusOK || len(h.loader.asked) != 0 {
		t.Fatalf("expected no fetch for ineligible content, got %d asked %v", resp.Code, h.loader.asked)
	}

	h.snapshots.err = context.DeadlineExceeded
	resp = h.do(t, http.MethodPost, "/api/metrics/ensure", map[string]interface{}{
		"campaign_id": "camp-1",
		"content_ids": []string{"a1"},
	})
	if resp.Code != http.StatusGatewayTimeout {
		t.Fatalf("expected 504 when the schedule times out, got %d", resp.Code)
	}
}

func TestCampaignReload(t *testing.T) {
	h := setupHarness()
	resp := h.do(t, http.MethodPost, "/api/campaigns/camp-1/reload", nil)
	body := decode[map[string]interface{}](t, resp)
	if resp.Code != http.StatusOK || body["items"] != float64(2) || h.snapshots.reloads != 1 {
		t.Fatalf("unexpected reload response %d %v", resp.Code, body)
	}

	h.snapshots.err = errors.New("down")
	if resp := h.do(t, http.MethodPost, "/api/campaigns/camp-1/reload", nil); resp.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.Code)
	}
}

func TestPlatformValidation(t *testing.T) {
	h := setupHarness()

	body := decode[map[string]interface{}](t, h.do(t, http.MethodPost, "/api/platforms/validate", map[string]string{"platform": "Instagram", "content_type": "Reel"}))
	if body["valid"] != true {
		t.Fatalf("expected instagram reel to be valid, got %v", body)
	}
	body = decode[map[string]interface{}](t, h.do(t, http.MethodPost, "/api/platforms/validate", map[string]string{"platform": "twitch", "content_type": "reel"}))
	if body["valid"] != false {
		t.Fatalf("expected twitch reel to be invalid, got %v", body)
	}

	list := decode[struct {
		Platforms []struct {
			Platform string `json:"platform"`
		} `json:"platforms"`
	}](t, h.do(t, http.MethodGet, "/api/platforms", nil))
	if len(list.Platforms) != 6 || list.Platforms[0].Platform != "facebook" {
		t.Fatalf("unexpected platform list %+v", list.Platforms)
	}
}

func TestCoordinatorHooksCountByEvent(t *testing.T) {
	events := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_cache_events_total"}, []string{"event"})
	hooks := (&PlannerMetrics{CacheEvents: events}).CoordinatorHooks()
	hooks.OnHit(map[string]string{"content_id": "x"})
	hooks.OnHit(map[string]string{"content_id": "y"})
	hooks.OnError(map[string]string{"content_id": "x"})

	if got := testutil.ToFloat64(events.WithLabelValues("hit")); got != 2 {
		t.Fatalf("expected 2 hits, got %v", got)
	}
	if got := testutil.ToFloat64(events.WithLabelValues("error")); got != 1 {
		t.Fatalf("expected 1 error, got %v", got)
	}

	var nilMetrics *PlannerMetrics
	nilMetrics.CoordinatorHooks().OnStore(nil)
}
