package reconcile

import (
	"github.com/AnthonyGillesRudolfo/Order-Payment-Reconciler/internal/commerce"
	"github.com/AnthonyGillesRudolfo/Order-Payment-Reconciler/internal/processor"
)

// Action is the remote side effect chosen for an order.
type Action int

const (
	ActionNone Action = iota
	ActionTriggerRefund
	ActionMarkPaid
	ActionCancelOrder
)

func (a Action) String() string {
	switch a {
	case ActionTriggerRefund:
		return "trigger_refund"
	case ActionMarkPaid:
		return "mark_paid"
	case ActionCancelOrder:
		return "cancel_order"
	default:
		return "none"
	}
}

// Report field values.
const (
	FieldNotYet          = "NA Yet"
	FieldYes             = "Yes"
	FieldNo              = "No"
	FieldPaid            = "PAID"
	FieldUnknown         = "UNKNOWN"
	FieldNoAuthorization = "NO AUTHORIZATION"
)

// RefundDecision is the outcome of the cancelled-order refund table. Field is
// the refund column; it is empty when Action is ActionTriggerRefund, in which
// case the column comes from the refund the processor returns.
type RefundDecision struct {
	Action Action
	Field  string
	// Unrecognized is set for capture statuses outside the known set.
	Unrecognized bool
}

// DecideRefund maps a capture status and its refund to the refund action.
func DecideRefund(capture processor.CaptureStatus, refund processor.Refund) RefundDecision {
	switch capture {
	case processor.CapturePending:
		return RefundDecision{Field: FieldNotYet}
	case processor.CaptureCompleted:
		switch refund.Status {
		case processor.RefundPending:
			return RefundDecision{Action: ActionTriggerRefund}
		case processor.RefundCompleted:
			return RefundDecision{Field: processor.RefundCompleted.String()}
		default:
			return RefundDecision{Field: processor.RefundPending.String()}
		}
	case processor.CaptureDeclined, processor.CaptureRefunded:
		return RefundDecision{Field: refund.RawStatus}
	default:
		return RefundDecision{Field: refund.RawStatus, Unrecognized: true}
	}
}

// PaymentDecision is the outcome of the pending-order payment table.
type PaymentDecision struct {
	Action       Action
	CancelReason commerce.CancelReason
	Unrecognized bool
}

// DecidePayment maps a capture status to the platform action for an order
// awaiting payment.
func DecidePayment(capture processor.CaptureStatus) PaymentDecision {
	switch capture {
	case processor.CapturePending:
		return PaymentDecision{}
	case processor.CaptureCompleted:
		return PaymentDecision{Action: ActionMarkPaid}
	case processor.CaptureDeclined:
		return PaymentDecision{Action: ActionCancelOrder, CancelReason: commerce.CancelReasonDeclined}
	case processor.CaptureRefunded:
		return PaymentDecision{Action: ActionCancelOrder, CancelReason: commerce.CancelReasonRefunded}
	default:
		return PaymentDecision{Unrecognized: true}
	}
}

// FoldPayment returns the financial-status and marked-paid columns once the
// decided action has run. paid is nil unless a mark-paid call returned a
// result.
func FoldPayment(d PaymentDecision, financialStatus string, paid *commerce.MarkPaidResult) (string, string) {
	if d.Action == ActionMarkPaid && paid != nil && paid.FullyPaid {
		return FieldPaid, FieldYes
	}
	return financialStatus, FieldNo
}
