// Package model holds the domain entities shared by every component of the
// carbon-aware scheduler: function metadata, the region catalog, carbon
// forecasts, scoring results and the schedule document written to the
// bucket.
package model

import (
	"fmt"
	"time"
)

// FunctionMetadata describes a registered serverless function.
type FunctionMetadata struct {
	FunctionID       string   `json:"function_id"`
	RuntimeMS        int64    `json:"runtime_ms"`
	MemoryMB         int64    `json:"memory_mb"`
	VCPUs            float64  `json:"vcpus"`
	GPURequired      bool     `json:"gpu_required"`
	GPUType          string   `json:"gpu_type,omitempty"`
	InputBytes       int64    `json:"input_bytes"`
	OutputBytes      int64    `json:"output_bytes"`
	SourceRegion     string   `json:"source_region"`
	InvocationsPerDay float64 `json:"invocations_per_day"`
	AllowedRegions   []string `json:"allowed_regions"`
	WeightCarbon     float64  `json:"weight_carbon"`
	WeightCost       float64  `json:"weight_cost"`
	WeightLatency    float64  `json:"weight_latency"`
	DeadlineHours    float64  `json:"deadline_hours"`
	MeasuredCPUUtil  float64  `json:"measured_cpu_util,omitempty"`
	Code             string   `json:"code,omitempty"`
	Requirements     []string `json:"requirements,omitempty"`
}

// DefaultDeadlineHours is used when a descriptor omits deadline_hours.
const DefaultDeadlineHours = 24.0

// DefaultCPUUtil is the conservative utilization assumption used when a
// function has no measured CPU utilization (see §4.4).
const DefaultCPUUtil = 0.10

// DefaultGPUUtil is the fixed GPU utilization assumption from the catalog.
const DefaultGPUUtil = 0.10

// Validate checks the invariants from §3. hasGPU
// reports whether a given catalog region has GPU hardware.
func (f *FunctionMetadata) Validate(catalogRegions map[string]bool, hasGPU func(region string) bool) error {
	if f.FunctionID == "" {
		return errFunctionMetadata("function_id must not be empty")
	}
	if len(f.AllowedRegions) == 0 {
		return errFunctionMetadata("allowed_regions must not be empty")
	}
	gpuCapableFound := false
	for _, r := range f.AllowedRegions {
		if !catalogRegions[r] {
			return errFunctionMetadata(fmt.Sprintf("allowed region %q is not a known catalog key", r))
		}
		if hasGPU(r) {
			gpuCapableFound = true
		}
	}
	if f.GPURequired && !gpuCapableFound {
		return errFunctionMetadata("gpu required but no allowed region has GPU hardware")
	}
	if f.WeightCarbon < 0 || f.WeightCost < 0 || f.WeightLatency < 0 {
		return errFunctionMetadata("priority weights must be nonnegative")
	}
	if f.WeightCarbon == 0 && f.WeightCost == 0 && f.WeightLatency == 0 {
		return errFunctionMetadata("at least one priority weight must be positive")
	}
	return nil
}

// EffectiveDeadlineHours returns the deadline window, defaulting per §3.
func (f *FunctionMetadata) EffectiveDeadlineHours() float64 {
	if f.DeadlineHours <= 0 {
		return DefaultDeadlineHours
	}
	return f.DeadlineHours
}

type metadataError string

func (e metadataError) Error() string { return string(e) }

func errFunctionMetadata(msg string) error { return metadataError(msg) }

// RegionCatalogEntry is a read-only row of the static catalog (C1).
type RegionCatalogEntry struct {
	Region       string  `json:"region"`
	ZoneKey      string  `json:"zone_key"`
	EgressUSDPerGBToSource map[string]float64 `json:"egress_usd_per_gb"`
	CPUMinW      float64 `json:"cpu_min_w"`
	CPUMaxW      float64 `json:"cpu_max_w"`
	MemWPerGiB   float64 `json:"mem_w_per_gib"`
	GPUMinW      float64 `json:"gpu_min_w"`
	GPUMaxW      float64 `json:"gpu_max_w"`
	PUE          float64 `json:"pue"`
	HasGPU       bool    `json:"has_gpu"`
	NetworkKWhPerGB float64 `json:"network_kwh_per_gb"`
}

// Validate checks the §3 invariants for a catalog entry.
func (e *RegionCatalogEntry) Validate() error {
	if e.CPUMaxW < e.CPUMinW {
		return errFunctionMetadata("cpu max W must be >= min W for region " + e.Region)
	}
	if e.HasGPU && e.GPUMaxW < e.GPUMinW {
		return errFunctionMetadata("gpu max W must be >= min W for region " + e.Region)
	}
	if e.PUE < 1.0 || e.PUE > 2.0 {
		return errFunctionMetadata("pue out of [1.0, 2.0] for region " + e.Region)
	}
	return nil
}

// ForecastPoint is a single (hour-start, carbon intensity) sample.
type ForecastPoint struct {
	HourStartUTC      time.Time `json:"hour_start_utc"`
	CarbonIntensityG  float64   `json:"carbon_intensity_g_per_kwh"`
}

// ZoneForecast is the ordered 24-hour forecast for one carbon zone.
type ZoneForecast struct {
	ZoneKey string          `json:"zone_key"`
	Points  []ForecastPoint `json:"points"`
}

// CarbonForecast is the merged, bucket-persisted forecast document (C4).
type CarbonForecast struct {
	FetchedAtUTC time.Time               `json:"fetched_at_utc"`
	Mode         string                  `json:"mode"` // "forecast" | "historical"
	Zones        map[string]*ZoneForecast `json:"zones"`
}

// PointAt returns the forecast point for a zone at a given hour, if present.
func (c *CarbonForecast) PointAt(zoneKey string, hour time.Time) (ForecastPoint, bool) {
	z, ok := c.Zones[zoneKey]
	if !ok {
		return ForecastPoint{}, false
	}
	for _, p := range z.Points {
		if p.HourStartUTC.Equal(hour) {
			return p, true
		}
	}
	return ForecastPoint{}, false
}

// CandidateScore is a derived, non-persisted (function, region, hour) score.
type CandidateScore struct {
	FunctionID     string
	Region         string
	HourStartUTC   time.Time
	EnergyKWh      float64
	EmissionsG     float64
	TransferCostUSD float64
	Composite      float64
}

// Recommendation is one ranked slot inside a Schedule (§6 schedule doc).
type Recommendation struct {
	Priority                int       `json:"priority"`
	Region                  string    `json:"region"`
	HourStartUTC            time.Time `json:"hour_start_utc"`
	CarbonIntensityGPerKWh  float64   `json:"carbon_intensity_g_per_kwh"`
	TransferCostUSD         float64   `json:"transfer_cost_usd"`
	Rationale               string    `json:"rationale"`
}

// DeploymentInfo records the deployed URL and code hash for one region.
type DeploymentInfo struct {
	URL           string    `json:"url"`
	CodeHash      string    `json:"code_hash"`
	DeployedAtUTC time.Time `json:"deployed_at_utc"`
}

// Schedule is the per-function planner output, written atomically to the
// bucket as schedule_<function_id>.json (§6).
type Schedule struct {
	FunctionID       string                     `json:"function_id"`
	HorizonStartUTC  time.Time                  `json:"horizon_start_utc"`
	GeneratedAtUTC   time.Time                  `json:"generated_at_utc"`
	Mode             string                     `json:"mode"`
	DeadlineHours    float64                    `json:"deadline_hours"`
	Recommendations  []Recommendation           `json:"recommendations"`
	Deployment       map[string]DeploymentInfo  `json:"deployment"`
	MetadataHash     string                     `json:"metadata_hash"`
}

// EffectiveDeadlineHours returns the schedule's deadline window, defaulting
// per §3 when the planner left it unset (e.g. a schedule seeded by a test).
func (s *Schedule) EffectiveDeadlineHours() float64 {
	if s.DeadlineHours <= 0 {
		return DefaultDeadlineHours
	}
	return s.DeadlineHours
}

// Validate checks the schedule invariants from §3 and §8.
func (s *Schedule) Validate(allowed map[string]bool, gpuRequired bool, hasGPU func(string) bool) error {
	seen := map[string]bool{}
	priorities := map[int]bool{}
	for _, r := range s.Recommendations {
		key := r.Region + "@" + r.HourStartUTC.Format(time.RFC3339)
		if seen[key] {
			return errFunctionMetadata("duplicate (region, hour) recommendation")
		}
		seen[key] = true
		if priorities[r.Priority] {
			return errFunctionMetadata("duplicate priority")
		}
		priorities[r.Priority] = true
		if !allowed[r.Region] {
			return errFunctionMetadata("recommendation region not in allowed_regions")
		}
		if gpuRequired && !hasGPU(r.Region) {
			return errFunctionMetadata("recommendation region lacks required GPU")
		}
		if r.HourStartUTC.Before(s.HorizonStartUTC) {
			return errFunctionMetadata("recommendation hour precedes horizon start")
		}
	}
	for i := 1; i <= len(s.Recommendations); i++ {
		if !priorities[i] {
			return errFunctionMetadata("priorities are not a contiguous permutation of 1..N")
		}
	}
	if len(s.Recommendations) > 0 && s.Recommendations[0].HourStartUTC.Before(s.HorizonStartUTC) {
		return errFunctionMetadata("first-ranked slot precedes horizon start")
	}
	return nil
}

// PlanCacheKey identifies an interchangeable cached schedule (§3, §4.6).
type PlanCacheKey struct {
	FunctionID       string `json:"function_id"`
	MetadataHash     string `json:"metadata_hash"`
	HorizonStartDate string `json:"horizon_start_date"` // YYYY-MM-DD
}

// DelayedTask is a (target URL, payload, not-before) tuple handed to the
// delayed-task queue adapter (C9).
type DelayedTask struct {
	TaskID    string    `json:"task_id"`
	TargetURL string    `json:"target_url"`
	Payload   []byte    `json:"payload"`
	NotBefore time.Time `json:"not_before"`
}

// NormalizationResult is C3's oracle output for a free-text descriptor.
type NormalizationResult struct {
	Metadata    FunctionMetadata `json:"metadata"`
	Confidence  float64          `json:"confidence"`
	Assumptions []string         `json:"assumptions"`
	Warnings    []string         `json:"warnings"`
}

// MinConfidence is the rejection threshold from §4.2.
const MinConfidence = 0.5

// CycleState is the per-function state machine from §4.5.
type CycleState string

const (
	StatePending    CycleState = "PENDING"
	StateNormalized CycleState = "NORMALIZED"
	StateCachedHit  CycleState = "CACHED_HIT"
	StateScored     CycleState = "SCORED"
	StateRanked     CycleState = "RANKED"
	StateWritten    CycleState = "WRITTEN"
	StateFailed     CycleState = "FAILED"
	StateFailedTimeout CycleState = "FAILED_TIMEOUT"
)
