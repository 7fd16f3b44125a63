// Package job runs reconciliation flows end to end: engine, CSV report and
// Slack notification.
package job

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/AnthonyGillesRudolfo/Order-Payment-Reconciler/internal/notify"
	"github.com/AnthonyGillesRudolfo/Order-Payment-Reconciler/internal/reconcile"
	"github.com/AnthonyGillesRudolfo/Order-Payment-Reconciler/internal/report"
)

// ErrRunInProgress is returned when a run is requested while another one is
// still executing in this process.
var ErrRunInProgress = errors.New("a reconciliation run is already in progress")

// KindAll runs the pending flow, then the cancelled flow.
const KindAll = "all"

// Kinds expands a requested kind into the flows to run, in order.
func Kinds(s string) ([]reconcile.Kind, error) {
	if s == KindAll {
		return []reconcile.Kind{reconcile.KindPending, reconcile.KindCancelled}, nil
	}
	k, err := reconcile.ParseKind(s)
	if err != nil {
		return nil, err
	}
	return []reconcile.Kind{k}, nil
}

type Syncer interface {
	Sync(ctx context.Context, kind reconcile.Kind) (*reconcile.Run, error)
}

type Recorder interface {
	RecordRun(run *reconcile.Run)
	RecordRejected(kind string)
}

// Summary describes one finished flow.
type Summary struct {
	RunID      string         `json:"runId"`
	Kind       string         `json:"kind"`
	Orders     int            `json:"orders"`
	Outcomes   map[string]int `json:"outcomes"`
	Partial    bool           `json:"partial"`
	Duration   time.Duration  `json:"durationNs"`
	ReportPath string         `json:"reportPath,omitempty"`
	Notified   bool           `json:"notified"`
}

type Runner struct {
	engine    Syncer
	notifier  notify.Notifier
	recorder  Recorder
	reportDir string
	logger    *zap.Logger
	now       func() time.Time

	mu sync.Mutex
}

type Option func(*Runner)

func WithRecorder(r Recorder) Option {
	return func(rn *Runner) { rn.recorder = r }
}

func WithClock(now func() time.Time) Option {
	return func(rn *Runner) { rn.now = now }
}

func NewRunner(engine Syncer, notifier notify.Notifier, reportDir string, logger *zap.Logger, opts ...Option) *Runner {
	r := &Runner{
		engine:    engine,
		notifier:  notifier,
		reportDir: reportDir,
		logger:    logger.Named("job"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes the requested flows sequentially. Only one Run executes at a
// time; a concurrent call fails fast with ErrRunInProgress.
func (r *Runner) Run(ctx context.Context, kind string) ([]Summary, error) {
	kinds, err := Kinds(kind)
	if err != nil {
		return nil, err
	}
	if !r.mu.TryLock() {
		if r.recorder != nil {
			r.recorder.RecordRejected(kind)
		}
		return nil, ErrRunInProgress
	}
	defer r.mu.Unlock()

	// Flows are independent: a failed delivery of one report does not stop
	// the next flow. Only cancellation ends the loop early.
	summaries := make([]Summary, 0, len(kinds))
	var errs []error
	for _, k := range kinds {
		if ctx.Err() != nil {
			break
		}
		s, err := r.runOne(ctx, k)
		if s != nil {
			summaries = append(summaries, *s)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	if err := ctx.Err(); err != nil && !errors.Is(errors.Join(errs...), err) {
		errs = append(errs, err)
	}
	return summaries, errors.Join(errs...)
}

func (r *Runner) runOne(ctx context.Context, kind reconcile.Kind) (*Summary, error) {
	logger := r.logger.With(zap.String("kind", string(kind)))
	logger.Info("sync job started", zap.Time("at", r.now()))

	run, err := r.engine.Sync(ctx, kind)
	if run == nil {
		return nil, err
	}
	if r.recorder != nil {
		r.recorder.RecordRun(run)
	}

	s := summarize(run)
	if err != nil {
		return s, err
	}
	if run.FetchErr != nil {
		logger.Warn("order fetch incomplete, report covers a partial order set", zap.Error(run.FetchErr))
	}
	if len(run.Results) == 0 {
		logger.Info(fmt.Sprintf("no %s orders found", kind))
		logger.Info("sync job finished", zap.Time("at", r.now()))
		return s, nil
	}

	rep := report.Report{Title: kind.Title(), Kind: string(kind), Header: kind.Header(), Rows: run.Rows()}
	path, err := rep.SaveCSV(r.reportDir, r.now())
	if err != nil {
		logger.Error("write csv report", zap.Error(err))
		path = ""
	} else {
		logger.Info("csv report created", zap.String("path", path))
	}
	s.ReportPath = path

	if err := r.notifier.Deliver(ctx, rep, path); err != nil {
		return s, fmt.Errorf("deliver %s report: %w", kind, err)
	}
	s.Notified = true
	logger.Info(fmt.Sprintf("here is the %s orders report", kind), zap.String("table", rep.Table()))
	logger.Info("sync job finished", zap.Time("at", r.now()))
	return s, nil
}

func summarize(run *reconcile.Run) *Summary {
	outcomes := make(map[string]int)
	for o, n := range run.Counts() {
		outcomes[string(o)] = n
	}
	return &Summary{
		RunID:    run.ID,
		Kind:     string(run.Kind),
		Orders:   len(run.Results),
		Outcomes: outcomes,
		Partial:  run.FetchErr != nil,
		Duration: run.Duration(),
	}
}
