// Command planner runs the control-plane HTTP service: on each /run or
// /submit request it loads the function registry, fetches the latest
// carbon forecast, and writes a ranked Schedule per function to the
// configuration bucket.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	storage "google.golang.org/api/storage/v1"

	"github.com/iosl-sustainability/carbon-scheduler/internal/bucket"
	"github.com/iosl-sustainability/carbon-scheduler/internal/catalog"
	"github.com/iosl-sustainability/carbon-scheduler/internal/config"
	"github.com/iosl-sustainability/carbon-scheduler/internal/controlplane"
	"github.com/iosl-sustainability/carbon-scheduler/internal/deploy"
	"github.com/iosl-sustainability/carbon-scheduler/internal/forecast"
	"github.com/iosl-sustainability/carbon-scheduler/internal/normalizer"
	"github.com/iosl-sustainability/carbon-scheduler/internal/oracle"
	"github.com/iosl-sustainability/carbon-scheduler/internal/plancache"
	"github.com/iosl-sustainability/carbon-scheduler/internal/planner"
	"github.com/iosl-sustainability/carbon-scheduler/internal/registry"
	"github.com/iosl-sustainability/carbon-scheduler/internal/telemetry"
	"github.com/iosl-sustainability/carbon-scheduler/utils"
)

// cycleAdapter translates planner.CycleSummary into controlplane.CycleSummary
// so the two packages don't need to import each other directly.
type cycleAdapter struct{ cycle *planner.Cycle }

func (a cycleAdapter) RunCycle(ctx context.Context) ([]controlplane.CycleSummary, error) {
	if telemetry.DefaultTracer != nil {
		var span trace.Span
		ctx, span = telemetry.DefaultTracer.Start(ctx, "planner.run_cycle")
		defer span.End()
	}
	results, err := a.cycle.RunCycle(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]controlplane.CycleSummary, len(results))
	for i, r := range results {
		out[i] = toControlplaneSummary(r)
	}
	return out, nil
}

func (a cycleAdapter) PlanSubmitted(ctx context.Context, d registry.Descriptor) (controlplane.CycleSummary, error) {
	if telemetry.DefaultTracer != nil {
		var span trace.Span
		ctx, span = telemetry.DefaultTracer.Start(ctx, "planner.plan_submitted")
		span.SetAttributes(attribute.String("function_id", d.Metadata.FunctionID))
		defer span.End()
	}
	r, err := a.cycle.PlanSubmitted(ctx, d)
	if err != nil {
		return controlplane.CycleSummary{}, err
	}
	return toControlplaneSummary(r), nil
}

func toControlplaneSummary(r planner.CycleSummary) controlplane.CycleSummary {
	deployResults := make([]controlplane.DeployResult, len(r.DeployOutcomes))
	for i, o := range r.DeployOutcomes {
		dr := controlplane.DeployResult{Region: o.Region, Skipped: o.Skipped, Failed: o.Failed}
		if o.Err != nil {
			dr.Error = o.Err.Error()
		}
		deployResults[i] = dr
	}
	return controlplane.CycleSummary{
		FunctionID:      r.FunctionID,
		State:           r.State,
		Error:           r.Error,
		Recommendations: r.Recommendations,
		DeployResults:   deployResults,
	}
}

func main() {
	config.ReadConfiguration(os.Getenv("CONFIG_FILE"))

	ctx := context.Background()

	if config.GetBool(config.TRACING_ENABLED, false) {
		shutdown, err := telemetry.SetupOTelSDK(ctx)
		if err != nil {
			log.Fatalf("planner: otel setup: %v", err)
		}
		defer shutdown(ctx)
	}

	bucketName := config.GetString(config.BUCKET_NAME, "")
	if bucketName == "" {
		log.Fatal("planner: BUCKET_NAME is required")
	}
	svc, svcErr := storage.NewService(ctx)
	store := bucket.NewGCSStore(svc, bucketName)

	var cat *catalog.Catalog
	var catErr error
	if svcErr == nil {
		cat, catErr = catalog.Load(ctx, store)
	}
	if err := utils.ReturnNonNilErr(svcErr, catErr); err != nil {
		log.Fatalf("planner: startup: %v", err)
	}

	geminiKey := config.GetString(config.GEMINI_API_KEY, "")
	var o oracle.Oracle = oracle.NewDeterministicStub()
	if geminiKey != "" {
		// A real deployment constructs genai.NewClient here; left to the
		// deployment environment since it requires outbound network access
		// this process does not have during tests.
		log.Printf("planner: GEMINI_API_KEY set, but no genai client wired in this build")
	}

	emapsToken := config.GetString(config.ELECTRICITYMAPS_TOKEN, "")
	mode := config.GetString(config.FORECAST_MODE, forecast.ModeForecast)
	if emapsToken == "" {
		mode = forecast.ModeHistorical
	}
	fc := forecast.NewFetcher(forecast.NewClient(emapsToken), config.GetInt(config.SCHEDULING_CONCURRENCY, 8), mode)

	rankingMode := config.GetString(config.RANKING_MODE, planner.RankingDeterministic)
	p := planner.New(cat, plancache.New(store), o, rankingMode)

	var deployer *deploy.Client
	if endpoint := config.GetString(config.DEPLOYER_ENDPOINT, ""); endpoint != "" {
		deployer = deploy.NewClient(endpoint)
	} else {
		log.Printf("planner: DEPLOYER_ENDPOINT unset, C8 deployment orchestration disabled")
	}

	cycle := &planner.Cycle{
		Store:         store,
		Catalog:       cat,
		Normalizer:    normalizer.New(o),
		Fetcher:       fc,
		Planner:       p,
		Deployer:      deployer,
		TopRegions:    config.GetInt(config.DEPLOY_TOP_REGIONS, deploy.DefaultTopRegions),
		Events:        telemetry.NewRing(4096),
		Concurrency:   config.GetInt(config.SCHEDULING_CONCURRENCY, 8),
		CycleDeadline: time.Duration(config.GetInt(config.CYCLE_DEADLINE_SECONDS, 240)) * time.Second,
		CallDeadline:  time.Duration(config.GetInt(config.CALL_DEADLINE_SECONDS, 30)) * time.Second,
	}

	srv := controlplane.New(store, cat, cycleAdapter{cycle: cycle}, geminiKey != "", emapsToken != "")

	metrics := telemetry.NewMetrics()
	if h := metrics.Handler(); h != nil {
		srv.Echo.GET("/metrics", echoWrap(h))
	}

	port := config.GetString(config.PLANNER_PORT, "8080")
	go func() {
		if err := srv.Echo.Start(":" + port); err != nil && err != http.ErrServerClosed {
			log.Fatalf("planner: server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Echo.Shutdown(shutdownCtx); err != nil {
		log.Printf("planner: shutdown error: %v", err)
	}
}
