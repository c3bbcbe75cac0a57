/*
Package metrics exposes the prometheus collectors shared by the connection
layer and the orchestration executor. Collectors are registered once at
package init via promauto on the default registry; the services mount
promhttp on GET /metrics.
*/
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var Metrics = struct {
	OutboundRequests *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	StreamFrames     *prometheus.CounterVec
	HealthChecks     *prometheus.CounterVec
	ActiveSessions   prometheus.Gauge
	ActiveTasks      prometheus.Gauge
	PlansCreated     prometheus.Counter
	StepOutcomes     *prometheus.CounterVec
}{
	OutboundRequests: promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "agentmesh",
		Name:      "outbound_requests_total",
		Help:      "Outbound A2A calls by method and status.",
	}, []string{"method", "status"}),

	RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "agentmesh",
		Name:      "outbound_request_duration_seconds",
		Help:      "Outbound A2A call duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method"}),

	StreamFrames: promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "agentmesh",
		Name:      "stream_frames_total",
		Help:      "SSE frames decoded by outcome (ok/dropped).",
	}, []string{"outcome"}),

	HealthChecks: promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "agentmesh",
		Name:      "health_checks_total",
		Help:      "Remote agent health checks by result.",
	}, []string{"result"}),

	ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "agentmesh",
		Name:      "active_sessions",
		Help:      "Number of orchestration sessions currently executing.",
	}),

	ActiveTasks: promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "agentmesh",
		Name:      "active_tasks",
		Help:      "Number of tasks currently tracked.",
	}),

	PlansCreated: promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "agentmesh",
		Name:      "plans_created_total",
		Help:      "Orchestration plans created.",
	}),

	StepOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "agentmesh",
		Name:      "plan_steps_total",
		Help:      "Plan step outcomes by state.",
	}, []string{"state"}),
}
