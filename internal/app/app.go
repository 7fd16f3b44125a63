// Package app wires the reconciler components with fx. Module is shared by
// the long-running server and the one-shot CLI.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/AnthonyGillesRudolfo/Order-Payment-Reconciler/internal/commerce"
	"github.com/AnthonyGillesRudolfo/Order-Payment-Reconciler/internal/config"
	"github.com/AnthonyGillesRudolfo/Order-Payment-Reconciler/internal/events"
	"github.com/AnthonyGillesRudolfo/Order-Payment-Reconciler/internal/job"
	"github.com/AnthonyGillesRudolfo/Order-Payment-Reconciler/internal/logging"
	"github.com/AnthonyGillesRudolfo/Order-Payment-Reconciler/internal/metrics"
	"github.com/AnthonyGillesRudolfo/Order-Payment-Reconciler/internal/notify"
	"github.com/AnthonyGillesRudolfo/Order-Payment-Reconciler/internal/processor"
	"github.com/AnthonyGillesRudolfo/Order-Payment-Reconciler/internal/reconcile"
	"github.com/AnthonyGillesRudolfo/Order-Payment-Reconciler/internal/telemetry"
)

var Module = fx.Options(
	fx.Provide(
		config.Load,
		newLogger,
		newRegistry,
		newMetrics,
		newCommerceClient,
		newProcessorClient,
		newObservers,
		newEngine,
		newNotifier,
		newRunner,
	),
	fx.Invoke(setupTelemetry),
)

func newLogger(cfg config.Config) (*zap.Logger, error) {
	return logging.New(cfg.ServiceName, cfg.Log)
}

// tracedClient returns an HTTP client whose requests carry spans.
func tracedClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

func setupTelemetry(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) {
	var shutdown func(context.Context) error
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			var err error
			shutdown, err = telemetry.InitTracer(ctx, cfg.ServiceName, cfg.Telemetry, logger)
			return err
		},
		OnStop: func(ctx context.Context) error {
			if shutdown == nil {
				return nil
			}
			return shutdown(ctx)
		},
	})
}

func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func newMetrics(reg *prometheus.Registry) *metrics.ReconcileMetrics {
	return metrics.New(reg)
}

func newCommerceClient(cfg config.Config, logger *zap.Logger, m *metrics.ReconcileMetrics) *commerce.Client {
	return commerce.New(cfg.Shopify, tracedClient(cfg.Shopify.Timeout), logger, commerce.WithRetryObserver(m))
}

// newProcessorClient authenticates on start so a rejected credential stops
// the process before any order is fetched.
func newProcessorClient(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) *processor.Client {
	client := processor.New(cfg.PayPal, tracedClient(cfg.PayPal.Timeout), logger)
	lc.Append(fx.Hook{
		OnStart: client.Authenticate,
	})
	return client
}

// newObservers always records metrics; reconciliation events are published
// only when Kafka is enabled.
func newObservers(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger, m *metrics.ReconcileMetrics) []reconcile.Observer {
	observers := []reconcile.Observer{m}
	if !cfg.Kafka.Enabled {
		logger.Info("kafka disabled, reconciliation events are not published")
		return observers
	}
	prod := events.NewProducer(cfg.Kafka)
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return prod.Close()
		},
	})
	return append(observers, events.NewResultPublisher(prod, cfg.Kafka.ReconciliationTopic, logger))
}

func newEngine(shop *commerce.Client, pp *processor.Client, observers []reconcile.Observer, logger *zap.Logger) *reconcile.Engine {
	return reconcile.NewEngine(shop, pp, logger, reconcile.WithObservers(observers...))
}

func newNotifier(cfg config.Config, logger *zap.Logger) *notify.SlackNotifier {
	return notify.NewSlackNotifier(cfg.Slack, tracedClient(30*time.Second), logger)
}

func newRunner(cfg config.Config, engine *reconcile.Engine, notifier *notify.SlackNotifier, m *metrics.ReconcileMetrics, logger *zap.Logger) *job.Runner {
	return job.NewRunner(engine, notifier, cfg.Report.Dir, logger, job.WithRecorder(m))
}
