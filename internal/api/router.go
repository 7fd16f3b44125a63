// Package api serves the operations HTTP API: health, metrics and on-demand
// reconciliation runs.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/AnthonyGillesRudolfo/Order-Payment-Reconciler/internal/authz"
)

const (
	runObject   = "job:reconcile"
	runRelation = "can_run"
)

// NewRouter mounts every route. Run triggers require the can_run relation on
// job:reconcile.
func NewRouter(runner JobRunner, checker authz.Checker, gatherer prometheus.Gatherer, logger *zap.Logger) http.Handler {
	logger = logger.Named("api")
	h := &runsHandler{runner: runner, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/runs", func(r chi.Router) {
		r.Use(authz.Require(checker, logger, runObject, runRelation))
		r.Post("/{kind}", h.handleRun)
	})

	return otelhttp.NewHandler(r, "ops-api")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
