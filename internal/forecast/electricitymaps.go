// Package forecast implements C4: fetching and persisting per-zone carbon
// intensity forecasts via Electricity Maps' v3/carbon-intensity/forecast
// endpoint.
package forecast

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/iosl-sustainability/carbon-scheduler/internal/model"
	"github.com/iosl-sustainability/carbon-scheduler/internal/retryutil"
)

const forecastEndpoint = "https://api.electricitymap.org/v3/carbon-intensity/forecast"

// Client fetches carbon intensity forecasts from Electricity Maps.
type Client struct {
	HTTP  *http.Client
	Token string
	// BaseURL overrides forecastEndpoint; used by tests.
	BaseURL string
}

func NewClient(token string) *Client {
	return &Client{HTTP: &http.Client{Timeout: 30 * time.Second}, Token: token, BaseURL: forecastEndpoint}
}

type emapsForecastEntry struct {
	CarbonIntensity float64 `json:"carbonIntensity"`
	Datetime        string  `json:"datetime"`
}

type emapsResponse struct {
	Zone          string                `json:"zone"`
	ForecastItems []emapsForecastEntry  `json:"forecast"`
}

// FetchZone fetches the 24-hour forecast for a single carbon zone.
func (c *Client) FetchZone(ctx context.Context, zoneKey string) (*model.ZoneForecast, error) {
	var zf *model.ZoneForecast
	err := retryutil.Do(ctx, retryutil.Default, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL, nil)
		if err != nil {
			return err
		}
		q := req.URL.Query()
		q.Set("zone", zoneKey)
		req.URL.RawQuery = q.Encode()
		req.Header.Set("auth-token", c.Token)

		resp, err := c.HTTP.Do(req)
		if err != nil {
			return httpError{err: err, temporary: true}
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 500 {
			return httpError{err: fmt.Errorf("forecast: zone %s: server error %d", zoneKey, resp.StatusCode), temporary: true}
		}
		if resp.StatusCode != http.StatusOK {
			return httpError{err: fmt.Errorf("forecast: zone %s: status %d", zoneKey, resp.StatusCode), temporary: false}
		}
		var parsed emapsResponse
		if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
			return httpError{err: fmt.Errorf("forecast: zone %s: decode: %w", zoneKey, err), temporary: false}
		}
		points := make([]model.ForecastPoint, 0, len(parsed.ForecastItems))
		for _, item := range parsed.ForecastItems {
			ts, err := time.Parse(time.RFC3339, item.Datetime)
			if err != nil {
				continue
			}
			points = append(points, model.ForecastPoint{
				HourStartUTC:     ts.UTC().Truncate(time.Hour),
				CarbonIntensityG: item.CarbonIntensity,
			})
		}
		zf = &model.ZoneForecast{ZoneKey: zoneKey, Points: points}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return zf, nil
}

type httpError struct {
	err       error
	temporary bool
}

func (e httpError) Error() string   { return e.err.Error() }
func (e httpError) Unwrap() error   { return e.err }
func (e httpError) Temporary() bool { return e.temporary }
