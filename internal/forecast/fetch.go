package forecast

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/iosl-sustainability/carbon-scheduler/internal/model"
)

// ModeForecast and ModeHistorical select between Electricity Maps'
// forward-looking forecast endpoint and a historical-average fallback used
// when FORECAST_MODE=historical or the forecast token is unset (§4.3).
const (
	ModeForecast   = "forecast"
	ModeHistorical = "historical"
)

// Fetcher fans out zone fetches through a bounded worker pool built on
// errgroup, per §5's concurrency cap, and collects per-zone failures
// without aborting the whole cycle.
type Fetcher struct {
	Client      *Client
	Concurrency int
	Mode        string
}

func NewFetcher(client *Client, concurrency int, mode string) *Fetcher {
	if concurrency <= 0 {
		concurrency = 8
	}
	return &Fetcher{Client: client, Concurrency: concurrency, Mode: mode}
}

// FetchResult pairs a zone's forecast with the fetch error, if any, so
// callers can report partial progress (§7: "per-region failures are
// reported, not fatal").
type FetchResult struct {
	ZoneKey  string
	Forecast *model.ZoneForecast
	Err      error
}

// FetchAll fetches forecasts for every zone concurrently, bounded by
// f.Concurrency, and returns the merged CarbonForecast plus the list of
// zones that failed.
func (f *Fetcher) FetchAll(ctx context.Context, zoneKeys []string) (*model.CarbonForecast, []string) {
	result := &model.CarbonForecast{
		FetchedAtUTC: time.Now().UTC(),
		Mode:         f.Mode,
		Zones:        make(map[string]*model.ZoneForecast, len(zoneKeys)),
	}
	results := make([]FetchResult, len(zoneKeys))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.Concurrency)
	for i, zk := range zoneKeys {
		i, zk := i, zk
		g.Go(func() error {
			zf, err := f.fetchOne(gctx, zk)
			results[i] = FetchResult{ZoneKey: zk, Forecast: zf, Err: err}
			return nil // per-zone errors are non-fatal to the group
		})
	}
	_ = g.Wait()

	var failed []string
	for _, r := range results {
		if r.Err != nil {
			failed = append(failed, r.ZoneKey)
			continue
		}
		result.Zones[r.ZoneKey] = r.Forecast
	}
	return result, failed
}

func (f *Fetcher) fetchOne(ctx context.Context, zoneKey string) (*model.ZoneForecast, error) {
	if f.Mode == ModeHistorical {
		return historicalAverage(zoneKey), nil
	}
	return f.Client.FetchZone(ctx, zoneKey)
}

// historicalAverage produces a flat 24-hour forecast from a fixed
// grid-average intensity, used when no live forecast is available. This
// mirrors the degraded-but-available posture described in §4.3/§7 rather
// than failing the whole cycle when ELECTRICITYMAPS_TOKEN is unset.
func historicalAverage(zoneKey string) *model.ZoneForecast {
	const fallbackIntensity = 400.0 // gCO2/kWh, a conservative global-grid average
	now := time.Now().UTC().Truncate(time.Hour)
	points := make([]model.ForecastPoint, 24)
	for i := 0; i < 24; i++ {
		points[i] = model.ForecastPoint{
			HourStartUTC:     now.Add(time.Duration(i) * time.Hour),
			CarbonIntensityG: fallbackIntensity,
		}
	}
	return &model.ZoneForecast{ZoneKey: zoneKey, Points: points}
}
