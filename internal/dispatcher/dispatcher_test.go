package dispatcher

import (
	"context"
	"testing"
	"time"

	"github.com/iosl-sustainability/carbon-scheduler/internal/bucket"
	"github.com/iosl-sustainability/carbon-scheduler/internal/model"
	"github.com/iosl-sustainability/carbon-scheduler/internal/queue"
)

func seedSchedule(t *testing.T, store bucket.Store, functionID string, deadlineHours float64, recs []model.Recommendation, deployment map[string]model.DeploymentInfo) {
	t.Helper()
	sched := model.Schedule{
		FunctionID:      functionID,
		DeadlineHours:   deadlineHours,
		Recommendations: recs,
		Deployment:      deployment,
		GeneratedAtUTC:  time.Now().UTC(),
	}
	raw, err := model.CanonicalJSON(sched)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := store.Write(context.Background(), "schedule_"+functionID+".json", raw); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func TestFindOptimalSlotDeadlineNowForwardsTopPriority(t *testing.T) {
	now := time.Now().UTC()
	sched := model.Schedule{Recommendations: []model.Recommendation{
		{Priority: 2, Region: "r2", HourStartUTC: now.Add(-time.Hour)},
		{Priority: 1, Region: "r1", HourStartUTC: now.Add(2 * time.Hour)},
	}}
	slot, ok := FindOptimalSlot(sched, now, time.Time{})
	if !ok {
		t.Fatal("expected a slot")
	}
	if slot.Region != "r1" {
		t.Fatalf("expected top-priority region r1, got %s", slot.Region)
	}
}

// TestFindOptimalSlotPrefersPriorityWithinDeadline mirrors the end-to-end
// deadline scenario: a later slot with better priority must win over an
// earlier slot with worse priority, as long as both fit the deadline.
func TestFindOptimalSlotPrefersPriorityWithinDeadline(t *testing.T) {
	now := time.Now().UTC()
	deadline := now.Add(2 * time.Hour)
	sched := model.Schedule{Recommendations: []model.Recommendation{
		{Priority: 1, Region: "r1", HourStartUTC: now.Add(time.Hour)},
		{Priority: 2, Region: "r2", HourStartUTC: now.Add(30 * time.Minute)},
	}}
	slot, ok := FindOptimalSlot(sched, now, deadline)
	if !ok {
		t.Fatal("expected a slot")
	}
	if slot.Region != "r1" {
		t.Fatalf("expected best-priority region r1, got %s", slot.Region)
	}
}

func TestFindOptimalSlotNoneWithinDeadlineFallsBackToEarliest(t *testing.T) {
	now := time.Now().UTC()
	deadline := now.Add(time.Hour)
	sched := model.Schedule{Recommendations: []model.Recommendation{
		{Priority: 1, Region: "r1", HourStartUTC: now.Add(5 * time.Hour)},
		{Priority: 2, Region: "r2", HourStartUTC: now.Add(6 * time.Hour)},
	}}
	slot, ok := FindOptimalSlot(sched, now, deadline)
	if !ok {
		t.Fatal("expected a fallback slot")
	}
	if slot.Region != "r1" || !slot.HourStartUTC.Equal(deadline) {
		t.Fatalf("expected earliest slot r1 clipped to deadline, got %+v", slot)
	}
}

// TestDispatchDeferToBetterPriorityWithinDeadline reproduces the end-to-end
// scenario: deadline_hours=2 submitted when R1@+0h (worse, priority 2) and
// R2@+1h (better, priority 1) both fit; the dispatcher must defer to R2.
func TestDispatchDeferToBetterPriorityWithinDeadline(t *testing.T) {
	store := bucket.NewMemStore()
	now := time.Now().UTC()
	seedSchedule(t, store, "f1", 2, []model.Recommendation{
		{Priority: 2, Region: "r1", HourStartUTC: now},
		{Priority: 1, Region: "r2", HourStartUTC: now.Add(time.Hour)},
	}, map[string]model.DeploymentInfo{
		"r1": {URL: "https://example.test/r1"},
		"r2": {URL: "https://example.test/r2"},
	})
	q := queue.NewMemQueue()
	d := New(store, q)

	decision, err := d.Dispatch(context.Background(), "f1", "req-1", []byte("{}"))
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if !decision.Deferred || decision.Region != "r2" {
		t.Fatalf("expected deferral to r2, got %+v", decision)
	}
	if len(q.Tasks) != 1 {
		t.Fatalf("expected one enqueued task, got %d", len(q.Tasks))
	}
}

// TestDispatchSkipsRecommendationWithoutDeployedURL exercises the
// URL-fallthrough semantics: the best-ranked recommendation has no deployed
// URL yet, so the dispatcher must fall through to the next-ranked one.
func TestDispatchSkipsRecommendationWithoutDeployedURL(t *testing.T) {
	store := bucket.NewMemStore()
	now := time.Now().UTC()
	seedSchedule(t, store, "f1", 6, []model.Recommendation{
		{Priority: 1, Region: "r1", HourStartUTC: now.Add(time.Hour)},
		{Priority: 2, Region: "r2", HourStartUTC: now.Add(2 * time.Hour)},
	}, map[string]model.DeploymentInfo{
		"r2": {URL: "https://example.test/r2"},
	})
	q := queue.NewMemQueue()
	d := New(store, q)

	decision, err := d.Dispatch(context.Background(), "f1", "req-2", []byte("{}"))
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if decision.Region != "r2" {
		t.Fatalf("expected fallthrough to r2 (the only deployed region), got %+v", decision)
	}
}

// TestDispatchAllMissingURLsReturnsNoViableSlot covers the 503 path: every
// ranked, within-deadline recommendation lacks a deployed URL.
func TestDispatchAllMissingURLsReturnsNoViableSlot(t *testing.T) {
	store := bucket.NewMemStore()
	now := time.Now().UTC()
	seedSchedule(t, store, "f1", 6, []model.Recommendation{
		{Priority: 1, Region: "r1", HourStartUTC: now.Add(time.Hour)},
	}, map[string]model.DeploymentInfo{})
	q := queue.NewMemQueue()
	d := New(store, q)

	_, err := d.Dispatch(context.Background(), "f1", "req-3", []byte("{}"))
	if err != ErrNoViableSlot {
		t.Fatalf("expected ErrNoViableSlot, got %v", err)
	}
}

// TestDispatchUsesFunctionMetadataDeadline checks that the deadline comes
// from the schedule's own DeadlineHours, not a client-supplied header: with
// a 1-hour deadline, a slot 5 hours out falls back to the earliest slot
// clipped to the deadline rather than a client ever dictating the window.
func TestDispatchUsesFunctionMetadataDeadline(t *testing.T) {
	store := bucket.NewMemStore()
	now := time.Now().UTC()
	seedSchedule(t, store, "f1", 1, []model.Recommendation{
		{Priority: 1, Region: "r1", HourStartUTC: now.Add(5 * time.Hour)},
	}, map[string]model.DeploymentInfo{
		"r1": {URL: "https://example.test/r1"},
	})
	q := queue.NewMemQueue()
	d := New(store, q)

	decision, err := d.Dispatch(context.Background(), "f1", "req-4", []byte("{}"))
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if !decision.Deferred || decision.Region != "r1" {
		t.Fatalf("expected deferral to r1 clipped to a 1h deadline, got %+v", decision)
	}
	if !decision.HourStartUTC.Before(now.Add(2 * time.Hour)) {
		t.Fatalf("expected hour clipped near the 1h deadline, got %v", decision.HourStartUTC)
	}
}

func TestDispatchIsIdempotentOnRequestID(t *testing.T) {
	store := bucket.NewMemStore()
	now := time.Now().UTC()
	seedSchedule(t, store, "f1", 24, []model.Recommendation{
		{Priority: 1, Region: "r1", HourStartUTC: now.Add(-time.Minute)},
	}, map[string]model.DeploymentInfo{
		"r1": {URL: "https://example.test/r1"},
	})
	q := queue.NewMemQueue()
	d := New(store, q)

	first, err := d.Dispatch(context.Background(), "f1", "dup-req", nil)
	if err != nil {
		t.Fatalf("first dispatch: %v", err)
	}
	second, err := d.Dispatch(context.Background(), "f1", "dup-req", nil)
	if err != nil {
		t.Fatalf("second dispatch: %v", err)
	}
	if first != second {
		t.Fatalf("expected idempotent decision, got %+v vs %+v", first, second)
	}
	if len(q.Tasks) != 0 {
		t.Fatalf("expected no enqueued tasks for an already-past slot, got %d", len(q.Tasks))
	}
}
