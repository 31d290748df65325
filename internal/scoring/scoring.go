// Package scoring implements C5: the pure, I/O-free functions that turn
// (function, region, hour) triples into CandidateScore values, following
// the energy -> emissions -> transfer cost -> composite pipeline of §4.4.
package scoring

import (
	"time"

	"github.com/iosl-sustainability/carbon-scheduler/internal/model"
)

// Energy computes the energy draw in kWh for running fn in region, using
// measured CPU utilization when present and the conservative default
// otherwise (§4.4).
func Energy(fn model.FunctionMetadata, region model.RegionCatalogEntry) float64 {
	util := fn.MeasuredCPUUtil
	if util <= 0 {
		util = model.DefaultCPUUtil
	}
	cpuW := region.CPUMinW + util*(region.CPUMaxW-region.CPUMinW)
	memW := float64(fn.MemoryMB) / 1024.0 * region.MemWPerGiB
	gpuW := 0.0
	if fn.GPURequired && region.HasGPU {
		gpuW = region.GPUMinW + model.DefaultGPUUtil*(region.GPUMaxW-region.GPUMinW)
	}
	networkKWh := 0.0
	if fn.InputBytes > 0 || fn.OutputBytes > 0 {
		gb := float64(fn.InputBytes+fn.OutputBytes) / 1e9
		networkKWh = gb * region.NetworkKWhPerGB
	}
	durationH := float64(fn.RuntimeMS) / 1000.0 / 3600.0
	computeKWh := (cpuW + memW + gpuW) * durationH / 1000.0
	pue := region.PUE
	if pue <= 0 {
		pue = 1.0
	}
	return (computeKWh + networkKWh) * pue
}

// Emissions converts energy to gCO2 using the carbon intensity in effect
// for the candidate hour (§4.4).
func Emissions(energyKWh, carbonIntensityGPerKWh float64) float64 {
	return energyKWh * carbonIntensityGPerKWh
}

// TransferCost is the egress cost, in USD, of moving fn's input/output
// bytes from its source region to a candidate region.
func TransferCost(fn model.FunctionMetadata, egressUSDPerGB float64) float64 {
	gb := float64(fn.InputBytes+fn.OutputBytes) / 1e9
	return gb * egressUSDPerGB
}

// LatencyPenalty is a monotone proxy for the extra wait incurred by
// deferring to a later hour, measured in hours from now.
func LatencyPenalty(now, hour time.Time) float64 {
	d := hour.Sub(now).Hours()
	if d < 0 {
		return 0
	}
	return d
}

// Candidate builds the full CandidateScore for one (function, region, hour)
// triple, without yet applying any cross-candidate normalization.
func Candidate(fn model.FunctionMetadata, region model.RegionCatalogEntry, egressUSDPerGB float64, hour time.Time, carbonIntensityGPerKWh float64) model.CandidateScore {
	energy := Energy(fn, region)
	emissions := Emissions(energy, carbonIntensityGPerKWh)
	cost := TransferCost(fn, egressUSDPerGB)
	return model.CandidateScore{
		FunctionID:      fn.FunctionID,
		Region:          region.Region,
		HourStartUTC:    hour,
		EnergyKWh:       energy,
		EmissionsG:      emissions,
		TransferCostUSD: cost,
	}
}

// minMax normalizes x into [0, 1] given the observed [lo, hi] range. A
// degenerate (lo == hi) range normalizes to 0 for every candidate, so it
// contributes nothing to the composite sum instead of dividing by zero.
func minMax(x, lo, hi float64) float64 {
	if hi <= lo {
		return 0
	}
	return (x - lo) / (hi - lo)
}

// Composite applies the min-max normalized weighted sum of §4.4 across a
// batch of candidates for the same function, writing each candidate's
// Composite field in place. Lower is better.
func Composite(fn model.FunctionMetadata, now time.Time, candidates []model.CandidateScore) {
	if len(candidates) == 0 {
		return
	}
	emLo, emHi := candidates[0].EmissionsG, candidates[0].EmissionsG
	costLo, costHi := candidates[0].TransferCostUSD, candidates[0].TransferCostUSD
	latLo, latHi := LatencyPenalty(now, candidates[0].HourStartUTC), LatencyPenalty(now, candidates[0].HourStartUTC)
	for _, c := range candidates {
		lat := LatencyPenalty(now, c.HourStartUTC)
		if c.EmissionsG < emLo {
			emLo = c.EmissionsG
		}
		if c.EmissionsG > emHi {
			emHi = c.EmissionsG
		}
		if c.TransferCostUSD < costLo {
			costLo = c.TransferCostUSD
		}
		if c.TransferCostUSD > costHi {
			costHi = c.TransferCostUSD
		}
		if lat < latLo {
			latLo = lat
		}
		if lat > latHi {
			latHi = lat
		}
	}
	for i := range candidates {
		lat := LatencyPenalty(now, candidates[i].HourStartUTC)
		score := fn.WeightCarbon*minMax(candidates[i].EmissionsG, emLo, emHi) +
			fn.WeightCost*minMax(candidates[i].TransferCostUSD, costLo, costHi) +
			fn.WeightLatency*minMax(lat, latLo, latHi)
		candidates[i].Composite = score
	}
}
