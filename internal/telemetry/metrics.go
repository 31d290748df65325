package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iosl-sustainability/carbon-scheduler/internal/config"
)

// Metrics holds the Prometheus collectors for planning-cycle and dispatch
// outcomes, registered under a private registry and exposed via promhttp
// only when config.METRICS_ENABLED is set.
type Metrics struct {
	registry *prometheus.Registry

	CycleOutcomes    *prometheus.CounterVec
	DispatchOutcomes *prometheus.CounterVec
	PlanDuration     prometheus.Histogram
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		CycleOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "carbon_scheduler_cycle_outcomes_total",
			Help: "Planning cycle outcomes by terminal state.",
		}, []string{"state"}),
		DispatchOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "carbon_scheduler_dispatch_outcomes_total",
			Help: "Dispatch decisions by outcome.",
		}, []string{"outcome"}),
		PlanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "carbon_scheduler_plan_duration_seconds",
			Help:    "Wall-clock duration of a single function's planning pipeline.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.CycleOutcomes, m.DispatchOutcomes, m.PlanDuration)
	return m
}

// Handler returns the promhttp handler for this registry, or nil if metrics
// are disabled by configuration.
func (m *Metrics) Handler() http.Handler {
	if !config.GetBool(config.METRICS_ENABLED, false) {
		return nil
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
