package planner

import (
	"context"
	"testing"
	"time"

	"github.com/iosl-sustainability/carbon-scheduler/internal/bucket"
	"github.com/iosl-sustainability/carbon-scheduler/internal/catalog"
	"github.com/iosl-sustainability/carbon-scheduler/internal/model"
	"github.com/iosl-sustainability/carbon-scheduler/internal/oracle"
	"github.com/iosl-sustainability/carbon-scheduler/internal/plancache"
)

func buildCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	store := bucket.NewMemStore()
	rows := []model.RegionCatalogEntry{
		{Region: "r1", ZoneKey: "z1", CPUMinW: 10, CPUMaxW: 50, MemWPerGiB: 3, PUE: 1.1},
		{Region: "r2", ZoneKey: "z2", CPUMinW: 10, CPUMaxW: 50, MemWPerGiB: 3, PUE: 1.1},
	}
	raw, _ := jsonMarshal(rows)
	if err := store.Write(context.Background(), catalog.ObjectName, raw); err != nil {
		t.Fatalf("seed catalog: %v", err)
	}
	cat, err := catalog.Load(context.Background(), store)
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	return cat
}

func buildForecast(horizon time.Time) *model.CarbonForecast {
	mk := func(intensity float64) *model.ZoneForecast {
		points := make([]model.ForecastPoint, 3)
		for i := range points {
			points[i] = model.ForecastPoint{HourStartUTC: horizon.Add(time.Duration(i) * time.Hour), CarbonIntensityG: intensity}
		}
		return &model.ZoneForecast{Points: points}
	}
	return &model.CarbonForecast{
		Zones: map[string]*model.ZoneForecast{
			"z1": mk(50),
			"z2": mk(500),
		},
	}
}

func TestPlanFunctionPicksCleanerRegionDeterministically(t *testing.T) {
	cat := buildCatalog(t)
	cache := plancache.New(bucket.NewMemStore())
	p := New(cat, cache, oracle.NewDeterministicStub(), RankingDeterministic)

	horizon := time.Now().UTC().Truncate(time.Hour)
	fn := model.FunctionMetadata{
		FunctionID:     "f1",
		RuntimeMS:      3600_000,
		MemoryMB:       512,
		AllowedRegions: []string{"r1", "r2"},
		WeightCarbon:   1.0,
	}
	cf := buildForecast(horizon)

	result := p.PlanFunction(context.Background(), fn, cf, horizon)
	if result.Err != nil {
		t.Fatalf("plan: %v", result.Err)
	}
	if len(result.Schedule.Recommendations) == 0 {
		t.Fatal("expected at least one recommendation")
	}
	if result.Schedule.Recommendations[0].Region != "r1" {
		t.Fatalf("expected cleaner region r1 to be top-ranked, got %+v", result.Schedule.Recommendations[0])
	}
}

func TestPlanFunctionIsIdempotentViaCache(t *testing.T) {
	cat := buildCatalog(t)
	cache := plancache.New(bucket.NewMemStore())
	p := New(cat, cache, oracle.NewDeterministicStub(), RankingDeterministic)

	horizon := time.Now().UTC().Truncate(time.Hour)
	fn := model.FunctionMetadata{
		FunctionID:     "f1",
		RuntimeMS:      1000,
		MemoryMB:       128,
		AllowedRegions: []string{"r1", "r2"},
		WeightCarbon:   1.0,
	}
	cf := buildForecast(horizon)

	first := p.PlanFunction(context.Background(), fn, cf, horizon)
	if first.Err != nil {
		t.Fatalf("first plan: %v", first.Err)
	}
	second := p.PlanFunction(context.Background(), fn, cf, horizon)
	if second.Err != nil {
		t.Fatalf("second plan: %v", second.Err)
	}
	if second.State != model.StateCachedHit {
		t.Fatalf("expected second call to hit the cache, got state %s", second.State)
	}
}

func TestPlanFunctionSkipsGPULessRegionsWhenRequired(t *testing.T) {
	cat := buildCatalog(t)
	cache := plancache.New(bucket.NewMemStore())
	p := New(cat, cache, oracle.NewDeterministicStub(), RankingDeterministic)

	horizon := time.Now().UTC().Truncate(time.Hour)
	fn := model.FunctionMetadata{
		FunctionID:     "f-gpu",
		RuntimeMS:      1000,
		MemoryMB:       128,
		GPURequired:    true,
		AllowedRegions: []string{"r1", "r2"},
		WeightCarbon:   1.0,
	}
	cf := buildForecast(horizon)

	result := p.PlanFunction(context.Background(), fn, cf, horizon)
	if result.Err == nil {
		t.Fatal("expected failure: no allowed region has GPU hardware")
	}
}

// TestPlanFunctionCapsRecommendationsAtMaxN reproduces the two-region,
// 24-hour-horizon scenario: 2 regions x 24 forecast hours produce 48
// candidates, but the schedule must carry at most MaxRecommendations of
// them, each a distinct (region, hour) pair.
func TestPlanFunctionCapsRecommendationsAtMaxN(t *testing.T) {
	cat := buildCatalog(t)
	cache := plancache.New(bucket.NewMemStore())
	p := New(cat, cache, oracle.NewDeterministicStub(), RankingDeterministic)

	horizon := time.Now().UTC().Truncate(time.Hour)
	fn := model.FunctionMetadata{
		FunctionID:     "f1",
		RuntimeMS:      1000,
		MemoryMB:       128,
		AllowedRegions: []string{"r1", "r2"},
		WeightCarbon:   1.0,
	}
	cf := build24HourForecast(horizon)

	result := p.PlanFunction(context.Background(), fn, cf, horizon)
	if result.Err != nil {
		t.Fatalf("plan: %v", result.Err)
	}
	if len(result.Schedule.Recommendations) != DefaultMaxRecommendations {
		t.Fatalf("expected %d recommendations, got %d", DefaultMaxRecommendations, len(result.Schedule.Recommendations))
	}
}

func build24HourForecast(horizon time.Time) *model.CarbonForecast {
	mk := func(intensity float64) *model.ZoneForecast {
		points := make([]model.ForecastPoint, 24)
		for i := range points {
			points[i] = model.ForecastPoint{HourStartUTC: horizon.Add(time.Duration(i) * time.Hour), CarbonIntensityG: intensity}
		}
		return &model.ZoneForecast{Points: points}
	}
	return &model.CarbonForecast{
		Zones: map[string]*model.ZoneForecast{
			"z1": mk(50),
			"z2": mk(500),
		},
	}
}

func jsonMarshal(v interface{}) ([]byte, error) {
	return model.CanonicalJSON(v)
}
