package schedule

import (
	"context"
	"errors"
	"io"
	"regexp"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus"

	"github.com/Obel-arg/catch-influencer-sub003/internal/content"
	"github.com/Obel-arg/catch-influencer-sub003/pkg/clients/scheduleapi"
	"github.com/Obel-arg/catch-influencer-sub003/pkg/kafka"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type fakeSource struct {
	mu    sync.Mutex
	calls map[string]int
	gate  chan struct{}
	err   error
}

func (f *fakeSource) ListItems(_ context.Context, campaignID string) ([]content.Item, error) {
	f.mu.Lock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[campaignID]++
	n := f.calls[campaignID]
	gate := f.gate
	err := f.err
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	return []content.Item{{ID: campaignID + "-item", Title: "load", Description: strconv.Itoa(n)}}, nil
}

func (f *fakeSource) count(campaignID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[campaignID]
}

func TestSnapshotsLoadOnceUntilInvalidated(t *testing.T) {
	src := &fakeSource{}
	var reloads int32
	s := NewSnapshots(src, SnapshotOptions{OnReload: func(status string) {
		if status == "success" {
			atomic.AddInt32(&reloads, 1)
		}
	}}, quietLogger())

	for i := 0; i < 3; i++ {
		items, err := s.Items(context.Background(), "c1")
		if err != nil || len(items) != 1 {
			t.Fatalf("unexpected result %v %v", items, err)
		}
	}
	if src.count("c1") != 1 {
		t.Fatalf("expected a single load, got %d", src.count("c1"))
	}
	if !s.Loaded("c1") {
		t.Fatalf("expected snapshot to be held")
	}

	s.Invalidate("c1")
	if s.Loaded("c1") {
		t.Fatalf("expected snapshot to be dropped")
	}
	if _, err := s.Items(context.Background(), "c1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if src.count("c1") != 2 || atomic.LoadInt32(&reloads) != 2 {
		t.Fatalf("expected reload after invalidation, loads=%d reloads=%d", src.count("c1"), reloads)
	}
}

func TestSnapshotsCoalesceConcurrentLoads(t *testing.T) {
	src := &fakeSource{gate: make(chan struct{})}
	s := NewSnapshots(src, SnapshotOptions{}, quietLogger())

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Items(context.Background(), "c1")
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(src.gate)
	wg.Wait()

	if src.count("c1") != 1 {
		t.Fatalf("expected coalesced load, got %d", src.count("c1"))
	}
}

func TestSnapshotsErrorsAreNotKept(t *testing.T) {
	src := &fakeSource{err: errors.New("db down")}
	var failures int32
	s := NewSnapshots(src, SnapshotOptions{OnReload: func(status string) {
		if status == "error" {
			atomic.AddInt32(&failures, 1)
		}
	}}, quietLogger())

	if _, err := s.Items(context.Background(), "c1"); err == nil {
		t.Fatalf("expected error")
	}
	src.mu.Lock()
	src.err = nil
	src.mu.Unlock()
	items, err := s.Items(context.Background(), "c1")
	if err != nil || len(items) != 1 {
		t.Fatalf("expected retry to succeed, got %v %v", items, err)
	}
	if failures != 1 {
		t.Fatalf("expected one failure report, got %d", failures)
	}
}

func TestSnapshotsReloadAndEmptyCampaign(t *testing.T) {
	src := &fakeSource{}
	s := NewSnapshots(src, SnapshotOptions{}, quietLogger())

	if _, err := s.Items(context.Background(), ""); !errors.Is(err, ErrNoCampaign) {
		t.Fatalf("expected ErrNoCampaign, got %v", err)
	}
	_, _ = s.Items(context.Background(), "c1")
	_, _ = s.Reload(context.Background(), "c1")
	if src.count("c1") != 2 {
		t.Fatalf("expected reload to hit the source, got %d", src.count("c1"))
	}

	_, _ = s.Items(context.Background(), "c2")
	s.InvalidateAll()
	if s.Loaded("c1") || s.Loaded("c2") {
		t.Fatalf("expected all snapshots dropped")
	}
}

func TestPostgresStoreListItems(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(`SELECT s\.id, s\.title.*FROM campaign_schedules s\s+LEFT JOIN influencers i ON i\.id = s\.influencer_id\s+WHERE s\.campaign_id = \$1`).
		WithArgs("camp-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "title", "description", "content_url",
			"influencer_id", "name", "username", "avatar_url",
			"start_date", "end_date", "platform", "content_type", "status",
		}).
			AddRow("s1", " Launch reel ", "", "https://ig.example/p/1", "i1", "Ana", "@ana", "", "2024-01-10", "", "Instagram", "Reel", "in_progress").
			AddRow("s2", "Story", "", "", "i2", "Bo", "bo", "", "2024-02-01", "2024-02-03", "instagram", "story", "cancelled"))

	mock.ExpectQuery(regexp.QuoteMeta(`FROM schedule_objectives o`)).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"schedule_id", "id", "title", "target", "current_value", "status", "percent_complete"}).
			AddRow("s1", "o1", "Reach", "10K", "2.5K", "active", nil).
			AddRow("s1", "o2", "Likes", "100", "100", "done", 100.0).
			AddRow("missing", "o3", "Orphan", "1", "1", "", nil))

	store := NewPostgresStore(db, quietLogger())
	items, err := store.ListItems(context.Background(), "camp-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	first := items[0]
	if first.Title != "Launch reel" || first.Status != content.StatusInProgress || first.Platform != content.PlatformInstagram {
		t.Fatalf("unexpected first item %+v", first)
	}
	if first.EndDate != "2024-01-10" || first.Assignee.Handle != "ana" {
		t.Fatalf("expected end date and handle normalization, got %+v", first)
	}
	if len(first.Objectives) != 2 || first.Objectives[0].ID != "o1" || first.Objectives[0].PercentComplete != 25 {
		t.Fatalf("unexpected objectives %+v", first.Objectives)
	}
	if items[1].Status != content.StatusPending || len(items[1].Objectives) != 0 {
		t.Fatalf("unexpected second item %+v", items[1])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresStoreEmptyCampaignSkipsObjectives(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(`FROM campaign_schedules s`).
		WithArgs("camp-2").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	items, err := NewPostgresStore(db, quietLogger()).ListItems(context.Background(), "camp-2")
	if err != nil || items == nil || len(items) != 0 {
		t.Fatalf("expected empty non-nil result, got %v %v", items, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresStoreQueryError(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(`FROM campaign_schedules s`).WillReturnError(errors.New("connection reset"))

	if _, err := NewPostgresStore(db, quietLogger()).ListItems(context.Background(), "camp-3"); err == nil {
		t.Fatalf("expected error")
	}
}

type fakeLister struct {
	schedules []scheduleapi.Schedule
	err       error
}

func (f fakeLister) ListSchedules(context.Context, string) ([]scheduleapi.Schedule, error) {
	return f.schedules, f.err
}

func TestAPISourceAdaptsSchedules(t *testing.T) {
	pc := 40.0
	src := NewAPISource(fakeLister{schedules: []scheduleapi.Schedule{{
		ID:         "s1",
		Title:      "Unboxing",
		Influencer: scheduleapi.Influencer{ID: "i1", Name: "Ana", Username: "@ana"},
		StartDate:  "2024-03-05T10:00:00Z",
		Platform:   "YouTube",
		Status:     "COMPLETED",
		Objectives: []scheduleapi.Objective{{ID: "o1", Title: "Views", Target: "1M", Current: "100K", PercentComplete: &pc}},
	}}})

	items, err := src.ListItems(context.Background(), "camp-1")
	if err != nil || len(items) != 1 {
		t.Fatalf("unexpected result %v %v", items, err)
	}
	item := items[0]
	if item.StartDate != "2024-03-05" || item.EndDate != "2024-03-05" {
		t.Fatalf("unexpected dates %s %s", item.StartDate, item.EndDate)
	}
	if item.Platform != content.PlatformYouTube || item.Status != content.StatusCompleted {
		t.Fatalf("unexpected platform/status %+v", item)
	}
	if item.Assignee.ID != "i1" || item.Assignee.Handle != "ana" {
		t.Fatalf("unexpected assignee %+v", item.Assignee)
	}
	if len(item.Objectives) != 1 || item.Objectives[0].PercentComplete != 40 {
		t.Fatalf("unexpected objectives %+v", item.Objectives)
	}

	if _, err := NewAPISource(fakeLister{err: errors.New("boom")}).ListItems(context.Background(), "x"); err == nil {
		t.Fatalf("expected error to propagate")
	}
}

type recordingInvalidator struct {
	campaigns []string
	all       int
}

func (r *recordingInvalidator) Invalidate(campaignID string) {
	r.campaigns = append(r.campaigns, campaignID)
}
func (r *recordingInvalidator) InvalidateAll() { r.all++ }

func TestChangeHandler(t *testing.T) {
	inv := &recordingInvalidator{}
	handle := ChangeHandler(inv, quietLogger())
	ctx := context.Background()

	cases := []kafka.Message{
		{Value: []byte(`{"type":"schedule.updated","campaign_id":"c1"}`)},
		{Key: []byte("c2"), Value: []byte(`{"type":"schedule.deleted"}`)},
		{Value: []byte(`{"type":"schedule.bulk_import"}`)},
		{Value: []byte(`not json`)},
	}
	for i, msg := range cases {
		if err := handle(ctx, msg); err != nil {
			t.Fatalf("case %d: unexpected error %v", i, err)
		}
	}

	if len(inv.campaigns) != 2 || inv.campaigns[0] != "c1" || inv.campaigns[1] != "c2" {
		t.Fatalf("unexpected invalidations %v", inv.campaigns)
	}
	if inv.all != 1 {
		t.Fatalf("expected one full invalidation, got %d", inv.all)
	}
}
