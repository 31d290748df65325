// Package controlplane implements C11: the planner process's HTTP surface
// (/health, /run, /submit), built on echo.
package controlplane

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/lithammer/shortuuid"
	"github.com/xeipuuv/gojsonschema"

	"github.com/iosl-sustainability/carbon-scheduler/internal/bucket"
	"github.com/iosl-sustainability/carbon-scheduler/internal/catalog"
	"github.com/iosl-sustainability/carbon-scheduler/internal/model"
	"github.com/iosl-sustainability/carbon-scheduler/internal/registry"
)

// CycleRunner executes planning cycles. RunCycle plans every registered
// function; PlanSubmitted plans a single ad-hoc descriptor posted to
// /submit without touching the rest of the registry. cmd/planner wires
// this to the real orchestration; tests can stub it.
type CycleRunner interface {
	RunCycle(ctx context.Context) ([]CycleSummary, error)
	PlanSubmitted(ctx context.Context, d registry.Descriptor) (CycleSummary, error)
}

// DeployResult is one region's C8 outcome, surfaced in /run and /submit
// responses (§4.10).
type DeployResult struct {
	Region  string `json:"region"`
	Skipped bool   `json:"skipped,omitempty"`
	Failed  bool   `json:"failed,omitempty"`
	Error   string `json:"error,omitempty"`
}

// CycleSummary is one function's outcome, returned by /run and /submit.
type CycleSummary struct {
	FunctionID      string                  `json:"function_id"`
	State           model.CycleState        `json:"state"`
	Error           string                  `json:"error,omitempty"`
	Recommendations []model.Recommendation  `json:"top_recommendations,omitempty"`
	DeployResults   []DeployResult          `json:"deployment_results,omitempty"`
}

// Server wires the control-plane routes onto an echo instance.
type Server struct {
	Echo             *echo.Echo
	Store            bucket.Store
	Catalog          *catalog.Catalog
	Runner           CycleRunner
	HasGeminiKey     bool
	HasForecastToken bool

	mu             sync.Mutex
	lastCycleAtUTC time.Time
	lastCycleError string
}

func New(store bucket.Store, cat *catalog.Catalog, runner CycleRunner, hasGeminiKey, hasForecastToken bool) *Server {
	s := &Server{Echo: echo.New(), Store: store, Catalog: cat, Runner: runner, HasGeminiKey: hasGeminiKey, HasForecastToken: hasForecastToken}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.Echo.GET("/health", s.handleHealth)
	s.Echo.POST("/run", s.handleRun)
	s.Echo.GET("/run", s.handleRun)
	s.Echo.POST("/submit", s.handleSubmit)
}

type healthResponse struct {
	Status           string     `json:"status"`
	HasGeminiKey     bool       `json:"has_gemini_key"`
	HasForecastToken bool       `json:"has_emaps_token"`
	RegionsLoaded    int        `json:"regions_loaded"`
	BucketReachable  bool       `json:"bucket_reachable"`
	LastCycleAtUTC   *time.Time `json:"last_cycle_at_utc,omitempty"`
	LastCycleError   string     `json:"last_cycle_error,omitempty"`
}

// recordCycle stashes the outcome of the most recent /run for /health to
// report (§4.10: "last planner cycle status").
func (s *Server) recordCycle(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastCycleAtUTC = time.Now().UTC()
	if err != nil {
		s.lastCycleError = err.Error()
	} else {
		s.lastCycleError = ""
	}
}

func (s *Server) handleHealth(c echo.Context) error {
	regions := 0
	if s.Catalog != nil {
		regions = s.Catalog.Len()
	}

	bucketReachable := true
	if s.Store != nil {
		probeCtx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()
		if _, err := s.Store.List(probeCtx, ""); err != nil {
			bucketReachable = false
		}
	} else {
		bucketReachable = false
	}

	s.mu.Lock()
	var lastAt *time.Time
	if !s.lastCycleAtUTC.IsZero() {
		t := s.lastCycleAtUTC
		lastAt = &t
	}
	lastErr := s.lastCycleError
	s.mu.Unlock()

	resp := healthResponse{
		Status:           "ok",
		HasGeminiKey:     s.HasGeminiKey,
		HasForecastToken: s.HasForecastToken,
		RegionsLoaded:    regions,
		BucketReachable:  bucketReachable,
		LastCycleAtUTC:   lastAt,
		LastCycleError:   lastErr,
	}

	// ELECTRICITYMAPS_TOKEN is a hard requirement (internal/config/keys.go);
	// an unreachable bucket means no schedule can ever be written.
	if !bucketReachable || !s.HasForecastToken {
		resp.Status = "misconfigured"
		return c.JSON(http.StatusServiceUnavailable, resp)
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleRun(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 4*time.Minute)
	defer cancel()
	summaries, err := s.Runner.RunCycle(ctx)
	s.recordCycle(err)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, echo.Map{"results": summaries})
}

// submitSchema validates the bit-exact /submit request body (§6).
const submitSchema = `{
  "type": "object",
  "required": ["code", "deadline_utc", "memory_mb"],
  "properties": {
    "code": {"type": "string", "minLength": 1},
    "deadline_utc": {"type": "string", "format": "date-time"},
    "memory_mb": {"type": "number", "minimum": 1},
    "requirements": {"type": "array", "items": {"type": "string"}}
  }
}`

type submitRequest struct {
	Code         string   `json:"code"`
	DeadlineUTC  string   `json:"deadline_utc"`
	MemoryMB     int64    `json:"memory_mb"`
	Requirements []string `json:"requirements"`
}

func (s *Server) handleSubmit(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	result, err := gojsonschema.Validate(gojsonschema.NewStringLoader(submitSchema), gojsonschema.NewBytesLoader(body))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "malformed json"})
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "schema violation", "details": msgs})
	}

	var req submitRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	deadline, err := time.Parse(time.RFC3339, req.DeadlineUTC)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": fmt.Sprintf("invalid deadline_utc: %v", err)})
	}
	deadlineHours := time.Until(deadline).Hours()
	if deadlineHours <= 0 {
		deadlineHours = model.DefaultDeadlineHours
	}

	allowedRegions := []string{}
	if s.Catalog != nil {
		for region := range s.Catalog.Regions() {
			allowedRegions = append(allowedRegions, region)
		}
	}
	if len(allowedRegions) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "no catalog regions available for ad-hoc submission"})
	}

	descriptor := registry.Descriptor{
		Kind: registry.KindStructured,
		Metadata: model.FunctionMetadata{
			FunctionID:     "submitted-" + shortuuid.New(),
			MemoryMB:       req.MemoryMB,
			VCPUs:          1,
			AllowedRegions: allowedRegions,
			WeightCarbon:   1,
			WeightCost:     1,
			WeightLatency:  1,
			DeadlineHours:  deadlineHours,
			Code:           req.Code,
			Requirements:   req.Requirements,
		},
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 4*time.Minute)
	defer cancel()
	summary, err := s.Runner.PlanSubmitted(ctx, descriptor)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, summary)
}
