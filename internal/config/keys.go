package config

// Object store target (A4, §6).
const (
	BUCKET_NAME    = "bucket.name"
	GCP_PROJECT_ID = "gcp.project.id"
)

// External collaborator credentials and endpoints (§6). Absence of a
// required one is handled by each component, not by this package: some
// (ELECTRICITYMAPS_TOKEN) are hard requirements, others (GEMINI_API_KEY)
// fall back to a deterministic stub per §4.2/§4.6.
const (
	ELECTRICITYMAPS_TOKEN = "electricitymaps.token"
	GEMINI_API_KEY        = "gemini.api.key"
	DEPLOYER_ENDPOINT     = "deployer.endpoint"
	CLOUDTASKS_QUEUE      = "cloudtasks.queue"
	CLOUDTASKS_LOCATION   = "cloudtasks.location"
)

// Planner process configuration (§4.3, §5).
const (
	PLANNING_REGION        = "planning.region"
	FORECAST_MODE          = "forecast.mode"
	SCHEDULING_CONCURRENCY = "scheduling.concurrency"
	CYCLE_DEADLINE_SECONDS = "scheduling.cycle.deadline.seconds"
	CALL_DEADLINE_SECONDS  = "scheduling.call.deadline.seconds"
	ORACLE_DEADLINE_SECONDS = "scheduling.oracle.deadline.seconds"
	RANKING_MODE           = "scheduling.ranking.mode" // "deterministic" | "oracle"
	DEPLOY_TOP_REGIONS     = "scheduling.deploy.top.regions"
)

// Telemetry (A2, §6).
const (
	METRICS_ENABLED = "metrics.enabled"
	METRICS_PORT    = "metrics.port"
	TRACING_ENABLED = "tracing.enabled"
)

// Dispatcher process configuration (§4.9).
const (
	DISPATCHER_SCHEDULE_TTL_SECONDS   = "dispatcher.schedule.ttl.seconds"
	DISPATCHER_IDEMPOTENCY_TTL_HOURS  = "dispatcher.idempotency.ttl.hours"
	DISPATCHER_PORT                   = "dispatcher.port"
	PLANNER_PORT                      = "planner.port"
	SCHEDULE_MODE                     = "dispatcher.schedule.mode" // "CLOUD" | "LOCAL"
)
