// Package metrics exposes the service counters on /metrics in Prometheus
// text exposition format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "git_actions"

var startTime = time.Now()

var (
	// EventsReceived counts deliveries accepted into the dispatcher,
	// whether or not any rule matched.
	EventsReceived = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_received_total",
		Help:      "Webhook deliveries received.",
	})

	// RulesMatched counts rules matched across all deliveries.
	RulesMatched = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rules_matched_total",
		Help:      "Rules matched by deliveries.",
	})

	// EventsUnmatched counts deliveries that matched no rule, including
	// unsupported event kinds acknowledged as ignored.
	EventsUnmatched = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_unmatched_total",
		Help:      "Deliveries that matched no rule.",
	})

	// AuthFailed counts deliveries rejected with 401.
	AuthFailed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_failed_total",
		Help:      "Deliveries that failed webhook authentication.",
	})

	// ParseErrors counts deliveries rejected with 400.
	ParseErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "parse_errors_total",
		Help:      "Deliveries whose payload could not be parsed.",
	})

	// ActionsExecuted counts actions that ran to completion, success or not.
	ActionsExecuted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "actions_executed_total",
		Help:      "Actions executed.",
	})

	// ActionErrors counts actions that failed (render, transport, non-2xx,
	// non-zero exit, timeout).
	ActionErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "action_errors_total",
		Help:      "Actions that failed.",
	})

	_ = promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "uptime_seconds",
		Help:      "Seconds since the service started.",
	}, func() float64 {
		return time.Since(startTime).Seconds()
	})
)

// Handler returns the /metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
