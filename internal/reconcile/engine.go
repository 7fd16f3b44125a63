package reconcile

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/AnthonyGillesRudolfo/Order-Payment-Reconciler/internal/commerce"
	"github.com/AnthonyGillesRudolfo/Order-Payment-Reconciler/internal/processor"
)

const tracerName = "github.com/AnthonyGillesRudolfo/Order-Payment-Reconciler/internal/reconcile"

// OrderStore is the commerce platform side of a run.
type OrderStore interface {
	PendingOrders(ctx context.Context) ([]commerce.Order, error)
	CancelledOrders(ctx context.Context) ([]commerce.Order, error)
	MarkAsPaid(ctx context.Context, orderID string) (*commerce.MarkPaidResult, error)
	CancelOrder(ctx context.Context, orderID string, opts commerce.CancelOptions) (*commerce.CancelResult, error)
}

// PaymentProcessor is the processor side of a run.
type PaymentProcessor interface {
	GetCapture(ctx context.Context, captureID string) (*processor.Capture, error)
	GetRefund(ctx context.Context, id string) (*processor.Refund, error)
	RefundCapture(ctx context.Context, captureID string) (*processor.Refund, error)
}

// Observer receives every result as soon as the order is done.
type Observer interface {
	OrderReconciled(ctx context.Context, run *Run, res Result)
}

// Engine drives one flow over every matching order. Orders are processed
// sequentially; a failure on one order is recorded on its result and the run
// moves on.
type Engine struct {
	orders    OrderStore
	processor PaymentProcessor
	observers []Observer
	logger    *zap.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

type EngineOption func(*Engine)

func WithObservers(obs ...Observer) EngineOption {
	return func(e *Engine) {
		for _, o := range obs {
			if o != nil {
				e.observers = append(e.observers, o)
			}
		}
	}
}

func WithEngineClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

func NewEngine(orders OrderStore, proc PaymentProcessor, logger *zap.Logger, opts ...EngineOption) *Engine {
	e := &Engine{
		orders:    orders,
		processor: proc,
		logger:    logger.Named("reconcile"),
		tracer:    otel.Tracer(tracerName),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SyncPendingOrders reconciles open orders awaiting payment.
func (e *Engine) SyncPendingOrders(ctx context.Context) (*Run, error) {
	return e.Sync(ctx, KindPending)
}

// SyncCancelledOrders reconciles cancelled orders whose payment may still
// need a refund.
func (e *Engine) SyncCancelledOrders(ctx context.Context) (*Run, error) {
	return e.Sync(ctx, KindCancelled)
}

// Sync runs one flow. The returned run is non-nil for a known kind even when
// an error is returned; the error is only set when ctx is cancelled mid-run.
func (e *Engine) Sync(ctx context.Context, kind Kind) (*Run, error) {
	if _, err := ParseKind(string(kind)); err != nil {
		return nil, err
	}
	run := &Run{ID: uuid.NewString(), Kind: kind, StartedAt: e.now()}
	ctx, span := e.tracer.Start(ctx, "reconcile.sync", trace.WithAttributes(
		attribute.String("reconcile.kind", string(kind)),
		attribute.String("reconcile.run_id", run.ID),
	))
	defer span.End()

	logger := e.logger.With(zap.String("run_id", run.ID), zap.String("kind", string(kind)))

	var orders []commerce.Order
	if kind == KindCancelled {
		orders, run.FetchErr = e.orders.CancelledOrders(ctx)
	} else {
		orders, run.FetchErr = e.orders.PendingOrders(ctx)
	}
	if run.FetchErr != nil {
		span.RecordError(run.FetchErr)
		logger.Warn("order fetch stopped early, reconciling partial result",
			zap.Int("fetched", len(orders)), zap.Error(run.FetchErr))
	}
	logger.Info("orders fetched", zap.Int("count", len(orders)))

	for _, order := range orders {
		if err := ctx.Err(); err != nil {
			run.FinishedAt = e.now()
			return run, err
		}
		res := e.reconcileOrder(ctx, kind, order)
		run.Results = append(run.Results, res)
		for _, o := range e.observers {
			o.OrderReconciled(ctx, run, res)
		}
	}

	run.FinishedAt = e.now()
	counts := run.Counts()
	span.SetAttributes(
		attribute.Int("reconcile.orders", len(run.Results)),
		attribute.Int("reconcile.failed", counts[OutcomeFailed]),
	)
	logger.Info("run finished",
		zap.Int("orders", len(run.Results)),
		zap.Int("acted", counts[OutcomeActed]),
		zap.Int("skipped", counts[OutcomeSkipped]),
		zap.Int("failed", counts[OutcomeFailed]),
		zap.Duration("duration", run.Duration()),
	)
	return run, nil
}

func (e *Engine) reconcileOrder(ctx context.Context, kind Kind, order commerce.Order) Result {
	ctx, span := e.tracer.Start(ctx, "reconcile.order", trace.WithAttributes(
		attribute.String("order.id", order.ID),
		attribute.String("order.name", order.Name),
	))
	defer span.End()

	logger := e.logger.With(zap.String("order", order.Name), zap.String("order_id", order.ID))
	res := Result{Order: order}

	tx, err := SelectTransaction(order.Transactions)
	if err != nil {
		return e.fail(span, logger, kind, res, "", FieldUnknown, err)
	}
	res.Transaction = &tx

	if !tx.HasAuthorization() {
		logger.Info("latest transaction has no authorization code, skipping", zap.String("transaction_id", tx.ID))
		res.Outcome = OutcomeSkipped
		res.Row = skippedRow(kind, order)
		return res
	}

	capture, err := e.processor.GetCapture(ctx, *tx.AuthorizationCode)
	if err != nil {
		return e.fail(span, logger, kind, res, "", FieldUnknown, err)
	}
	res.Capture = capture
	span.SetAttributes(attribute.String("capture.status", capture.RawStatus))

	if kind == KindCancelled {
		return e.reconcileRefund(ctx, span, logger, res)
	}
	return e.reconcilePayment(ctx, span, logger, res)
}

// reconcileRefund applies the refund flow to a cancelled order.
func (e *Engine) reconcileRefund(ctx context.Context, span trace.Span, logger *zap.Logger, res Result) Result {
	order, capture := res.Order, res.Capture

	// The processor stores the refund under the capture id.
	refund, err := e.processor.GetRefund(ctx, capture.ID)
	if err != nil {
		return e.fail(span, logger, KindCancelled, res, capture.Amount.Value, capture.RawStatus, err)
	}

	d := DecideRefund(capture.Status, *refund)
	if d.Unrecognized {
		logger.Warn("unrecognized capture status", zap.String("status", capture.RawStatus))
	}
	if capture.Status == processor.CapturePending {
		logger.Info("e-check still pending at paypal, will retry on a later run")
	}

	field := d.Field
	res.Action = d.Action
	res.Outcome = OutcomeNoAction
	if d.Action == ActionTriggerRefund {
		triggered, err := e.processor.RefundCapture(ctx, capture.ID)
		if err != nil {
			return e.fail(span, logger, KindCancelled, res, capture.Amount.Value, capture.RawStatus, err)
		}
		logger.Info("refund triggered", zap.String("refund_id", triggered.ID), zap.String("status", triggered.RawStatus))
		field = triggered.RawStatus
		res.Outcome = OutcomeActed
	}

	res.Row = cancelledRow(order, capture.Amount.Value, capture.RawStatus, field)
	return res
}

// reconcilePayment applies the payment flow to an order awaiting payment.
func (e *Engine) reconcilePayment(ctx context.Context, span trace.Span, logger *zap.Logger, res Result) Result {
	order, capture := res.Order, res.Capture

	d := DecidePayment(capture.Status)
	res.Action = d.Action
	res.Outcome = OutcomeNoAction

	var paid *commerce.MarkPaidResult
	var err error
	switch d.Action {
	case ActionMarkPaid:
		paid, err = e.orders.MarkAsPaid(ctx, order.ID)
		if err == nil {
			res.UserErrors = paid.UserErrors
			logger.Info("order marked as paid", zap.Bool("fully_paid", paid.FullyPaid))
		}
	case ActionCancelOrder:
		var cancelled *commerce.CancelResult
		cancelled, err = e.orders.CancelOrder(ctx, order.ID, commerce.DefaultCancelOptions(d.CancelReason))
		if err == nil {
			res.UserErrors = cancelled.UserErrors
			logger.Info("order cancellation submitted",
				zap.String("reason", string(d.CancelReason)), zap.String("job_id", cancelled.JobID))
		}
	default:
		if d.Unrecognized {
			logger.Warn("unrecognized capture status", zap.String("status", capture.RawStatus))
		} else {
			logger.Info("e-check still pending at paypal, will retry on a later run")
		}
	}

	if err != nil {
		res.Outcome = OutcomeFailed
		res.Err = err
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error("order action failed", zap.String("action", d.Action.String()), zap.Error(err))
	} else if d.Action != ActionNone {
		res.Outcome = OutcomeActed
	}

	financial, acted := FoldPayment(d, order.DisplayFinancialStatus, paid)
	res.Row = pendingRow(order, capture.Amount.Value, financial, capture.RawStatus, acted)
	return res
}

func (e *Engine) fail(span trace.Span, logger *zap.Logger, kind Kind, res Result, amount, status string, err error) Result {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	logger.Error("order reconciliation failed", zap.Error(err))
	res.Outcome = OutcomeFailed
	res.Err = err
	res.Row = degradedRow(kind, res.Order, amount, status)
	return res
}
