// Package planner implements C6: the per-cycle orchestration that turns a
// function's metadata and the latest carbon forecast into a ranked
// Schedule, consulting the plan cache first and falling back from oracle
// ranking to deterministic ranking on any schema or invariant violation
// (§4.5, §7).
package planner

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/iosl-sustainability/carbon-scheduler/internal/bucket"
	"github.com/iosl-sustainability/carbon-scheduler/internal/catalog"
	"github.com/iosl-sustainability/carbon-scheduler/internal/model"
	"github.com/iosl-sustainability/carbon-scheduler/internal/oracle"
	"github.com/iosl-sustainability/carbon-scheduler/internal/plancache"
	"github.com/iosl-sustainability/carbon-scheduler/internal/scoring"
)

const (
	RankingDeterministic = "deterministic"
	RankingOracle        = "oracle"
)

// DefaultMaxRecommendations is the top-N cap from §4.5.
const DefaultMaxRecommendations = 24

// Planner owns one planning cycle's dependencies. It is re-created per
// process, not per function: the same Planner ranks every function in a
// cycle.
type Planner struct {
	Catalog            *catalog.Catalog
	PlanCache          *plancache.Cache
	Oracle             oracle.Oracle
	Mode               string // RankingDeterministic | RankingOracle
	MaxRecommendations int    // 0 means DefaultMaxRecommendations
}

func New(cat *catalog.Catalog, cache *plancache.Cache, o oracle.Oracle, mode string) *Planner {
	return &Planner{Catalog: cat, PlanCache: cache, Oracle: o, Mode: mode, MaxRecommendations: DefaultMaxRecommendations}
}

// Result carries the outcome of planning one function, for telemetry.
type Result struct {
	FunctionID string
	State      model.CycleState
	Schedule   model.Schedule
	Err        error
}

// PlanFunction runs the per-function planning pipeline of §4.5:
// hash metadata -> cache lookup -> score -> rank -> validate -> cache put.
// fn must already be normalized; writing the schedule document is left to
// the caller (Cycle.planOne via WriteSchedule).
func (p *Planner) PlanFunction(ctx context.Context, fn model.FunctionMetadata, cf *model.CarbonForecast, horizonStart time.Time) Result {
	metaHash, err := model.HashCanonical(fn)
	if err != nil {
		return Result{FunctionID: fn.FunctionID, State: model.StateFailed, Err: fmt.Errorf("planner: hash metadata: %w", err)}
	}

	key := model.PlanCacheKey{
		FunctionID:       fn.FunctionID,
		MetadataHash:     metaHash,
		HorizonStartDate: horizonStart.Format("2006-01-02"),
	}
	if cached, ok, err := p.PlanCache.Lookup(ctx, key, time.Now().UTC()); err == nil && ok {
		return Result{FunctionID: fn.FunctionID, State: model.StateCachedHit, Schedule: cached}
	}

	candidates, err := p.score(fn, cf, horizonStart)
	if err != nil {
		return Result{FunctionID: fn.FunctionID, State: model.StateFailed, Err: err}
	}
	if len(candidates) == 0 {
		return Result{FunctionID: fn.FunctionID, State: model.StateFailed, Err: fmt.Errorf("planner: no viable candidates for %s", fn.FunctionID)}
	}

	ranked, err := p.rank(ctx, fn, candidates)
	if err != nil {
		// oracle ranking failed validation or errored: fall back (§7).
		ranked = deterministicOrder(candidates)
	}

	maxN := p.MaxRecommendations
	if maxN <= 0 {
		maxN = DefaultMaxRecommendations
	}
	if len(ranked) > maxN {
		ranked = ranked[:maxN]
	}

	sched := buildSchedule(fn, horizonStart, ranked, metaHash, p.Mode)
	allowed := make(map[string]bool, len(fn.AllowedRegions))
	for _, r := range fn.AllowedRegions {
		allowed[r] = true
	}
	if err := sched.Validate(allowed, fn.GPURequired, p.Catalog.HasGPU); err != nil {
		return Result{FunctionID: fn.FunctionID, State: model.StateFailed, Err: fmt.Errorf("planner: invalid schedule: %w", err)}
	}

	if err := p.PlanCache.Put(ctx, key, sched); err != nil {
		return Result{FunctionID: fn.FunctionID, State: model.StateFailed, Err: fmt.Errorf("planner: cache write: %w", err)}
	}

	return Result{FunctionID: fn.FunctionID, State: model.StateRanked, Schedule: sched}
}

// score computes a CandidateScore for every (allowed region, forecast hour)
// pair and applies the composite normalization across them (C5, §4.4).
func (p *Planner) score(fn model.FunctionMetadata, cf *model.CarbonForecast, horizonStart time.Time) ([]model.CandidateScore, error) {
	var candidates []model.CandidateScore
	for _, region := range fn.AllowedRegions {
		entry, ok := p.Catalog.Entry(region)
		if !ok {
			continue
		}
		if fn.GPURequired && !entry.HasGPU {
			continue
		}
		zoneKey, ok := p.Catalog.ZoneOf(region)
		if !ok {
			continue
		}
		zf, ok := cf.Zones[zoneKey]
		if !ok {
			continue
		}
		egress, _ := p.Catalog.EgressRate(region, fn.SourceRegion)
		for _, point := range zf.Points {
			if point.HourStartUTC.Before(horizonStart) {
				continue
			}
			candidates = append(candidates, scoring.Candidate(fn, entry, egress, point.HourStartUTC, point.CarbonIntensityG))
		}
	}
	if len(candidates) > 0 {
		scoring.Composite(fn, horizonStart, candidates)
	}
	return candidates, nil
}

func deterministicOrder(candidates []model.CandidateScore) []model.CandidateScore {
	out := make([]model.CandidateScore, len(candidates))
	copy(out, candidates)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Composite != out[j].Composite {
			return out[i].Composite < out[j].Composite
		}
		if !out[i].HourStartUTC.Equal(out[j].HourStartUTC) {
			return out[i].HourStartUTC.Before(out[j].HourStartUTC)
		}
		if out[i].TransferCostUSD != out[j].TransferCostUSD {
			return out[i].TransferCostUSD < out[j].TransferCostUSD
		}
		return out[i].Region < out[j].Region
	})
	return out
}

// rank delegates to the oracle when Mode is RankingOracle; any error or
// invalid permutation is surfaced to the caller so it can fall back.
func (p *Planner) rank(ctx context.Context, fn model.FunctionMetadata, candidates []model.CandidateScore) ([]model.CandidateScore, error) {
	if p.Mode != RankingOracle {
		return nil, fmt.Errorf("planner: deterministic mode selected")
	}
	result, err := p.Oracle.RankCandidates(ctx, oracle.RankRequest{Function: fn, Candidates: candidates})
	if err != nil {
		return nil, err
	}
	if len(result.Order) != len(candidates) {
		return nil, fmt.Errorf("planner: oracle order has %d entries for %d candidates", len(result.Order), len(candidates))
	}
	ordered := make([]model.CandidateScore, len(result.Order))
	seen := make([]bool, len(candidates))
	for i, idx := range result.Order {
		if idx < 0 || idx >= len(candidates) || seen[idx] {
			return nil, fmt.Errorf("planner: oracle order is not a permutation of the candidates")
		}
		seen[idx] = true
		ordered[i] = candidates[idx]
	}
	return ordered, nil
}

func buildSchedule(fn model.FunctionMetadata, horizonStart time.Time, ranked []model.CandidateScore, metaHash, mode string) model.Schedule {
	recs := make([]model.Recommendation, len(ranked))
	for i, c := range ranked {
		recs[i] = model.Recommendation{
			Priority:               i + 1,
			Region:                 c.Region,
			HourStartUTC:           c.HourStartUTC,
			CarbonIntensityGPerKWh: c.EmissionsG / max(c.EnergyKWh, 1e-9),
			TransferCostUSD:        c.TransferCostUSD,
			Rationale:              fmt.Sprintf("composite score %.4f (%s mode)", c.Composite, mode),
		}
	}
	return model.Schedule{
		FunctionID:      fn.FunctionID,
		HorizonStartUTC: horizonStart,
		GeneratedAtUTC:  time.Now().UTC(),
		Mode:            mode,
		DeadlineHours:   fn.EffectiveDeadlineHours(),
		Recommendations: recs,
		Deployment:      make(map[string]model.DeploymentInfo),
		MetadataHash:    metaHash,
	}
}

func max(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// WriteSchedule atomically persists sched to the bucket as
// schedule_<function_id>.json (§6), via the store's temp-then-rename path.
func WriteSchedule(ctx context.Context, store bucket.Store, sched model.Schedule) error {
	raw, err := model.CanonicalJSON(sched)
	if err != nil {
		return fmt.Errorf("planner: encode schedule: %w", err)
	}
	return store.Write(ctx, fmt.Sprintf("schedule_%s.json", sched.FunctionID), raw)
}
