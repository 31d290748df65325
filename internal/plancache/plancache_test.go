package plancache

import (
	"context"
	"testing"
	"time"

	"github.com/iosl-sustainability/carbon-scheduler/internal/bucket"
	"github.com/iosl-sustainability/carbon-scheduler/internal/model"
)

func TestLookupMissWhenAbsent(t *testing.T) {
	c := New(bucket.NewMemStore())
	key := model.PlanCacheKey{FunctionID: "f1", MetadataHash: "abc", HorizonStartDate: "2026-08-03"}
	_, ok, err := c.Lookup(context.Background(), key, time.Now())
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if ok {
		t.Fatal("expected cache miss")
	}
}

func TestPutThenLookupHit(t *testing.T) {
	c := New(bucket.NewMemStore())
	key := model.PlanCacheKey{FunctionID: "f1", MetadataHash: "abc", HorizonStartDate: "2026-08-03"}
	now := time.Now().UTC()
	sched := model.Schedule{FunctionID: "f1", GeneratedAtUTC: now}
	if err := c.Put(context.Background(), key, sched); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, ok, err := c.Lookup(context.Background(), key, now.Add(time.Hour))
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if !ok {
		t.Fatal("expected cache hit")
	}
	if got.FunctionID != "f1" {
		t.Fatalf("unexpected schedule: %+v", got)
	}
}

func TestLookupStaleEntryIsMiss(t *testing.T) {
	c := New(bucket.NewMemStore())
	key := model.PlanCacheKey{FunctionID: "f1", MetadataHash: "abc", HorizonStartDate: "2026-08-03"}
	old := time.Now().UTC().Add(-8 * 24 * time.Hour)
	sched := model.Schedule{FunctionID: "f1", GeneratedAtUTC: old}
	if err := c.Put(context.Background(), key, sched); err != nil {
		t.Fatalf("put: %v", err)
	}
	_, ok, err := c.Lookup(context.Background(), key, time.Now().UTC())
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if ok {
		t.Fatal("expected stale entry to be a miss")
	}
}

func TestKeyIsDeterministicAndSensitiveToInput(t *testing.T) {
	k1 := model.PlanCacheKey{FunctionID: "f1", MetadataHash: "abc", HorizonStartDate: "2026-08-03"}
	k2 := model.PlanCacheKey{FunctionID: "f1", MetadataHash: "abc", HorizonStartDate: "2026-08-03"}
	k3 := model.PlanCacheKey{FunctionID: "f1", MetadataHash: "abd", HorizonStartDate: "2026-08-03"}
	h1, _ := k1.Key()
	h2, _ := k2.Key()
	h3, _ := k3.Key()
	if h1 != h2 {
		t.Fatalf("expected identical keys to hash identically: %s vs %s", h1, h2)
	}
	if h1 == h3 {
		t.Fatal("expected differing metadata hash to change the cache key")
	}
}
