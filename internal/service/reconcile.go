package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	restate "github.com/restatedev/sdk-go"
	"go.uber.org/zap"

	"github.com/AnthonyGillesRudolfo/Order-Payment-Reconciler/internal/job"
	"github.com/AnthonyGillesRudolfo/Order-Payment-Reconciler/internal/reconcile"
)

const ServiceName = "reconcile.sv1.ReconcileService"

type Runner interface {
	Run(ctx context.Context, kind string) ([]job.Summary, error)
}

// SyncRequest is the optional input of the sync handlers.
type SyncRequest struct {
	TriggeredBy string `json:"triggered_by,omitempty"`
}

type SyncResponse struct {
	Runs []job.Summary `json:"runs"`
}

// ReconcileService exposes the reconciliation runs as Restate handlers so a
// cron or the Restate CLI can invoke them durably.
type ReconcileService struct {
	runner Runner
	logger *zap.Logger
}

func New(runner Runner, logger *zap.Logger) *ReconcileService {
	return &ReconcileService{runner: runner, logger: logger.Named("restate")}
}

// Definition binds the handlers under ServiceName.
func (s *ReconcileService) Definition() restate.ServiceDefinition {
	return restate.NewService(ServiceName).
		Handler("SyncPendingOrders", restate.NewServiceHandler(s.SyncPendingOrders)).
		Handler("SyncCancelledOrders", restate.NewServiceHandler(s.SyncCancelledOrders))
}

func (s *ReconcileService) SyncPendingOrders(ctx restate.Context, req SyncRequest) (SyncResponse, error) {
	return s.sync(ctx, reconcile.KindPending, req)
}

func (s *ReconcileService) SyncCancelledOrders(ctx restate.Context, req SyncRequest) (SyncResponse, error) {
	return s.sync(ctx, reconcile.KindCancelled, req)
}

// sync journals the whole run as one step, so a replay after a crash returns
// the recorded summaries instead of acting on the orders twice.
func (s *ReconcileService) sync(ctx restate.Context, kind reconcile.Kind, req SyncRequest) (SyncResponse, error) {
	s.logger.Info("sync requested",
		zap.String("kind", string(kind)),
		zap.String("triggered_by", req.TriggeredBy),
	)
	runs, err := restate.Run(ctx, func(rc restate.RunContext) ([]job.Summary, error) {
		return s.execute(rc, kind)
	})
	if err != nil {
		return SyncResponse{}, err
	}
	return SyncResponse{Runs: runs}, nil
}

// execute maps runner failures onto terminal errors. A failed run is not
// retried by Restate: every retry would walk the full order list again and
// post another report.
func (s *ReconcileService) execute(ctx context.Context, kind reconcile.Kind) ([]job.Summary, error) {
	runs, err := s.runner.Run(ctx, string(kind))
	switch {
	case err == nil:
		return runs, nil
	case errors.Is(err, job.ErrRunInProgress):
		return nil, restate.TerminalError(err, http.StatusConflict)
	default:
		s.logger.Error("sync failed", zap.String("kind", string(kind)), zap.Error(err))
		return nil, restate.TerminalError(fmt.Errorf("sync %s orders: %w", kind, err), http.StatusInternalServerError)
	}
}
