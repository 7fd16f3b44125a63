package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/AnthonyGillesRudolfo/Order-Payment-Reconciler/internal/authz"
	"github.com/AnthonyGillesRudolfo/Order-Payment-Reconciler/internal/job"
)

type JobRunner interface {
	Run(ctx context.Context, kind string) ([]job.Summary, error)
}

type runsHandler struct {
	runner JobRunner
	logger *zap.Logger
}

type runResponse struct {
	Runs  []job.Summary `json:"runs"`
	Error string        `json:"error,omitempty"`
}

// handleRun executes a run synchronously. The run is detached from the
// request context so a dropped client does not abort it halfway.
func (h *runsHandler) handleRun(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	if _, err := job.Kinds(kind); err != nil {
		writeJSON(w, http.StatusBadRequest, runResponse{Error: err.Error()})
		return
	}

	h.logger.Info("run requested", zap.String("kind", kind), zap.String("principal", authz.PrincipalFromRequest(r)))
	summaries, err := h.runner.Run(context.WithoutCancel(r.Context()), kind)
	switch {
	case errors.Is(err, job.ErrRunInProgress):
		writeJSON(w, http.StatusConflict, runResponse{Error: err.Error()})
	case err != nil:
		h.logger.Error("run failed", zap.String("kind", kind), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, runResponse{Runs: summaries, Error: err.Error()})
	default:
		writeJSON(w, http.StatusOK, runResponse{Runs: summaries})
	}
}
