// Package metrics holds the Prometheus instruments of the reconciler.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/AnthonyGillesRudolfo/Order-Payment-Reconciler/internal/reconcile"
)

// ReconcileMetrics implements reconcile.Observer and commerce.RetryObserver.
type ReconcileMetrics struct {
	OrdersTotal           *prometheus.CounterVec
	ActionsTotal          *prometheus.CounterVec
	RateLimitRetriesTotal prometheus.Counter
	RateLimitWaitSeconds  prometheus.Histogram
	RunsTotal             *prometheus.CounterVec
	RunDuration           *prometheus.HistogramVec
	LastRunTimestamp      *prometheus.GaugeVec
}

func New(reg prometheus.Registerer) *ReconcileMetrics {
	factory := promauto.With(reg)
	return &ReconcileMetrics{
		OrdersTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reconciler_orders_total",
				Help: "Orders reconciled, by flow and outcome",
			},
			[]string{"kind", "outcome"},
		),
		ActionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reconciler_actions_total",
				Help: "Remote actions attempted, by flow, action and result",
			},
			[]string{"kind", "action", "result"},
		),
		RateLimitRetriesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "reconciler_shopify_rate_limit_retries_total",
				Help: "Shopify requests retried after a 429",
			},
		),
		RateLimitWaitSeconds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "reconciler_shopify_rate_limit_wait_seconds",
				Help:    "Backoff waited before retrying a rate-limited request",
				Buckets: prometheus.ExponentialBuckets(0.5, 2, 8),
			},
		),
		RunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reconciler_runs_total",
				Help: "Reconciliation runs, by flow and status (ok, partial, rejected)",
			},
			[]string{"kind", "status"},
		),
		RunDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "reconciler_run_duration_seconds",
				Help:    "Wall time of a reconciliation run",
				Buckets: prometheus.ExponentialBuckets(1, 2, 12),
			},
			[]string{"kind"},
		),
		LastRunTimestamp: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "reconciler_last_run_timestamp_seconds",
				Help: "Unix time the last run of a flow finished",
			},
			[]string{"kind"},
		),
	}
}

func (m *ReconcileMetrics) ObserveRateLimit(wait time.Duration) {
	m.RateLimitRetriesTotal.Inc()
	m.RateLimitWaitSeconds.Observe(wait.Seconds())
}

func (m *ReconcileMetrics) OrderReconciled(_ context.Context, run *reconcile.Run, res reconcile.Result) {
	kind := string(run.Kind)
	m.OrdersTotal.WithLabelValues(kind, string(res.Outcome)).Inc()
	if res.Action == reconcile.ActionNone {
		return
	}
	result := "ok"
	if res.Err != nil {
		result = "error"
	}
	m.ActionsTotal.WithLabelValues(kind, res.Action.String(), result).Inc()
}

// RecordRun records a finished run.
func (m *ReconcileMetrics) RecordRun(run *reconcile.Run) {
	kind := string(run.Kind)
	status := "ok"
	if run.FetchErr != nil {
		status = "partial"
	}
	m.RunsTotal.WithLabelValues(kind, status).Inc()
	m.RunDuration.WithLabelValues(kind).Observe(run.Duration().Seconds())
	m.LastRunTimestamp.WithLabelValues(kind).Set(float64(run.FinishedAt.Unix()))
}

// RecordRejected counts a run refused because another one was in progress.
func (m *ReconcileMetrics) RecordRejected(kind string) {
	m.RunsTotal.WithLabelValues(kind, "rejected").Inc()
}

// Push sends everything gathered by g to a Pushgateway under job.
func Push(ctx context.Context, url, job string, g prometheus.Gatherer) error {
	return push.New(url, job).Gatherer(g).PushContext(ctx)
}
