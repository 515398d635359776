// Package metrics exposes prometheus collectors for the transaction
// lifecycle.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "prodeposit"

var (
	// ActionsTotal counts finished lifecycles by action and outcome
	// ("success" or the failure kind).
	ActionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "actions_total",
		Help:      "Number of finished transaction lifecycles by action and outcome.",
	}, []string{"action", "outcome"})

	// ActionsSkipped counts triggers dropped by a failed precondition.
	ActionsSkipped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "actions_skipped_total",
		Help:      "Number of action triggers ignored because a precondition was not met.",
	}, []string{"action", "reason"})

	// ActionDuration observes submit-to-idle time of successful lifecycles.
	ActionDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "action_duration_seconds",
		Help:      "Time from submission to confirmation and refresh.",
		Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
	}, []string{"action"})

	// Pending is 1 while a write action is in flight.
	Pending = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "action_pending",
		Help:      "Whether a write action is currently in flight.",
	})

	// HTTPRequests counts API requests by route pattern, method and status.
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Number of API requests by route, method and status code.",
	}, []string{"route", "method", "status"})

	// Refreshes counts read-only refreshes by outcome.
	Refreshes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "refreshes_total",
		Help:      "Number of balance/interest refreshes by outcome.",
	}, []string{"outcome"})
)

// Registry holds the collectors of this package plus the Go runtime and
// process collectors.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(
		ActionsTotal,
		ActionsSkipped,
		ActionDuration,
		Pending,
		HTTPRequests,
		Refreshes,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
