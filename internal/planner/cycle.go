package planner

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/iosl-sustainability/carbon-scheduler/internal/bucket"
	"github.com/iosl-sustainability/carbon-scheduler/internal/catalog"
	"github.com/iosl-sustainability/carbon-scheduler/internal/deploy"
	"github.com/iosl-sustainability/carbon-scheduler/internal/forecast"
	"github.com/iosl-sustainability/carbon-scheduler/internal/model"
	"github.com/iosl-sustainability/carbon-scheduler/internal/normalizer"
	"github.com/iosl-sustainability/carbon-scheduler/internal/registry"
	"github.com/iosl-sustainability/carbon-scheduler/internal/telemetry"
)

// TopRecommendationsInSummary caps how many ranked recommendations a
// CycleSummary carries for reporting (§4.10's "top-5 recommendations").
const TopRecommendationsInSummary = 5

// CycleSummary mirrors controlplane.CycleSummary without importing that
// package: neither package imports the other, and cmd/planner converts
// between the two.
type CycleSummary struct {
	FunctionID      string
	State           model.CycleState
	Error           string
	Recommendations []model.Recommendation
	DeployOutcomes  []deploy.Outcome
}

// Cycle wires every collaborator needed to run a full planning cycle: the
// catalog, registry, normalizer, forecast fetcher, planner, deployer and
// telemetry ring (§4.5, §4.7, §5).
type Cycle struct {
	Store         bucket.Store
	Catalog       *catalog.Catalog
	Normalizer    *normalizer.Normalizer
	Fetcher       *forecast.Fetcher
	Planner       *Planner
	Deployer      *deploy.Client // nil disables C8 orchestration
	TopRegions    int            // 0 means deploy.DefaultTopRegions
	Events        *telemetry.Ring
	Concurrency   int
	CycleDeadline time.Duration
	CallDeadline  time.Duration
}

// RunCycle loads the registry, normalizes every descriptor, fetches the
// forecast once, and then plans every function concurrently bounded by
// Concurrency, honoring CycleDeadline for the whole batch (§5).
func (c *Cycle) RunCycle(ctx context.Context) ([]CycleSummary, error) {
	cycleCtx, cancel := context.WithTimeout(ctx, nonZero(c.CycleDeadline, 4*time.Minute))
	defer cancel()

	descriptors, err := registry.Load(cycleCtx, c.Store)
	if err != nil {
		return nil, err
	}

	zoneSet := map[string]bool{}
	for region := range c.Catalog.Regions() {
		if zone, ok := c.Catalog.ZoneOf(region); ok {
			zoneSet[zone] = true
		}
	}
	var zones []string
	for z := range zoneSet {
		zones = append(zones, z)
	}
	cf, failedZones := c.Fetcher.FetchAll(cycleCtx, zones)
	for _, z := range failedZones {
		c.Events.Record(telemetry.Event{Kind: telemetry.EventFailed, Region: z})
	}

	summaries := make([]CycleSummary, len(descriptors))
	horizon := time.Now().UTC().Truncate(time.Hour)

	g, gctx := errgroup.WithContext(cycleCtx)
	g.SetLimit(nonZeroInt(c.Concurrency, 8))
	for i, d := range descriptors {
		i, d := i, d
		g.Go(func() error {
			summaries[i] = c.planOne(gctx, d, cf, horizon)
			return nil
		})
	}
	_ = g.Wait()

	return summaries, nil
}

// PlanSubmitted plans a single ad-hoc descriptor outside the registry,
// reusing the same forecast-fetch-then-plan pipeline as RunCycle.
func (c *Cycle) PlanSubmitted(ctx context.Context, d registry.Descriptor) (CycleSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, nonZero(c.CycleDeadline, 4*time.Minute))
	defer cancel()

	zoneSet := map[string]bool{}
	for region := range c.Catalog.Regions() {
		if zone, ok := c.Catalog.ZoneOf(region); ok {
			zoneSet[zone] = true
		}
	}
	var zones []string
	for z := range zoneSet {
		zones = append(zones, z)
	}
	cf, _ := c.Fetcher.FetchAll(ctx, zones)
	horizon := time.Now().UTC().Truncate(time.Hour)
	return c.planOne(ctx, d, cf, horizon), nil
}

func (c *Cycle) planOne(ctx context.Context, d registry.Descriptor, cf *model.CarbonForecast, horizon time.Time) CycleSummary {
	callCtx, cancel := context.WithTimeout(ctx, nonZero(c.CallDeadline, 30*time.Second))
	defer cancel()

	fn, err := c.Normalizer.Normalize(callCtx, d)
	if err != nil {
		c.Events.Record(telemetry.Event{Kind: telemetry.EventFailed})
		return CycleSummary{State: model.StateFailed, Error: err.Error()}
	}
	if err := fn.Validate(c.Catalog.Regions(), c.Catalog.HasGPU); err != nil {
		c.Events.Record(telemetry.Event{Kind: telemetry.EventFailed, FunctionID: fn.FunctionID})
		return CycleSummary{FunctionID: fn.FunctionID, State: model.StateFailed, Error: err.Error()}
	}

	result := c.Planner.PlanFunction(callCtx, fn, cf, horizon)
	if result.Err != nil {
		kind := telemetry.EventFailed
		if callCtx.Err() != nil {
			kind = telemetry.EventFailedTimeout
			result.State = model.StateFailedTimeout
		}
		c.Events.Record(telemetry.Event{Kind: kind, FunctionID: fn.FunctionID})
		return CycleSummary{FunctionID: fn.FunctionID, State: result.State, Error: result.Err.Error()}
	}

	var deployOutcomes []deploy.Outcome
	if c.Deployer != nil && fn.Code != "" {
		// C8 runs opportunistically after C6 to realize new regions (§2, §4.7).
		deployOutcomes = deploy.Orchestrate(callCtx, c.Deployer, fn, &result.Schedule, c.TopRegions)
		for _, o := range deployOutcomes {
			if o.Failed {
				c.Events.Record(telemetry.Event{Kind: telemetry.EventDeployFailed, FunctionID: fn.FunctionID, Region: o.Region})
			}
		}
	}

	if result.State == model.StateRanked || (result.State == model.StateCachedHit && len(deployOutcomes) > 0) {
		if err := WriteSchedule(callCtx, c.Store, result.Schedule); err != nil {
			c.Events.Record(telemetry.Event{Kind: telemetry.EventFailed, FunctionID: fn.FunctionID})
			return CycleSummary{FunctionID: fn.FunctionID, State: model.StateFailed, Error: err.Error()}
		}
		if result.State == model.StateRanked {
			result.State = model.StateWritten
		}
	}

	eventKind := telemetry.EventWritten
	if result.State == model.StateCachedHit {
		eventKind = telemetry.EventCachedHit
	}
	c.Events.Record(telemetry.Event{Kind: eventKind, FunctionID: fn.FunctionID})

	top := result.Schedule.Recommendations
	if len(top) > TopRecommendationsInSummary {
		top = top[:TopRecommendationsInSummary]
	}
	return CycleSummary{FunctionID: fn.FunctionID, State: result.State, Recommendations: top, DeployOutcomes: deployOutcomes}
}

func nonZero(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}

func nonZeroInt(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}
