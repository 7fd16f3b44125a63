package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AnthonyGillesRudolfo/Order-Payment-Reconciler/internal/commerce"
	"github.com/AnthonyGillesRudolfo/Order-Payment-Reconciler/internal/processor"
)

func refundOf(raw string) processor.Refund {
	return processor.Refund{ID: "CAP", Status: processor.ParseRefundStatus(raw), RawStatus: raw}
}

func TestDecideRefund(t *testing.T) {
	cases := []struct {
		name    string
		capture string
		refund  string
		want    RefundDecision
	}{
		{"pending capture", "PENDING", "PENDING", RefundDecision{Field: FieldNotYet}},
		{"completed capture, refund pending", "COMPLETED", "PENDING", RefundDecision{Action: ActionTriggerRefund}},
		{"completed capture, refund completed", "COMPLETED", "COMPLETED", RefundDecision{Field: "COMPLETED"}},
		{"completed capture, refund cancelled", "COMPLETED", "CANCELLED", RefundDecision{Field: "PENDING"}},
		{"declined capture", "DECLINED", "FAILED", RefundDecision{Field: "FAILED"}},
		{"refunded capture", "REFUNDED", "COMPLETED", RefundDecision{Field: "COMPLETED"}},
		{"unknown capture", "PARTIALLY_REFUNDED", "PENDING", RefundDecision{Field: "PENDING", Unrecognized: true}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := DecideRefund(processor.ParseCaptureStatus(tc.capture), refundOf(tc.refund))
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDecidePayment(t *testing.T) {
	cases := []struct {
		capture string
		want    PaymentDecision
	}{
		{"PENDING", PaymentDecision{}},
		{"COMPLETED", PaymentDecision{Action: ActionMarkPaid}},
		{"DECLINED", PaymentDecision{Action: ActionCancelOrder, CancelReason: commerce.CancelReasonDeclined}},
		{"REFUNDED", PaymentDecision{Action: ActionCancelOrder, CancelReason: commerce.CancelReasonRefunded}},
		{"VOIDED", PaymentDecision{Unrecognized: true}},
	}
	for _, tc := range cases {
		t.Run(tc.capture, func(t *testing.T) {
			assert.Equal(t, tc.want, DecidePayment(processor.ParseCaptureStatus(tc.capture)))
		})
	}
}

func TestFoldPayment(t *testing.T) {
	markPaid := PaymentDecision{Action: ActionMarkPaid}

	fin, acted := FoldPayment(markPaid, "PENDING", &commerce.MarkPaidResult{FullyPaid: true})
	assert.Equal(t, FieldPaid, fin)
	assert.Equal(t, FieldYes, acted)

	fin, acted = FoldPayment(markPaid, "PENDING", &commerce.MarkPaidResult{FullyPaid: false})
	assert.Equal(t, "PENDING", fin)
	assert.Equal(t, FieldNo, acted)

	fin, acted = FoldPayment(markPaid, "PENDING", nil)
	assert.Equal(t, "PENDING", fin)
	assert.Equal(t, FieldNo, acted)

	fin, acted = FoldPayment(PaymentDecision{Action: ActionCancelOrder}, "PENDING", nil)
	assert.Equal(t, "PENDING", fin)
	assert.Equal(t, FieldNo, acted)
}

func TestActionString(t *testing.T) {
	assert.Equal(t, "none", ActionNone.String())
	assert.Equal(t, "trigger_refund", ActionTriggerRefund.String())
	assert.Equal(t, "mark_paid", ActionMarkPaid.String())
	assert.Equal(t, "cancel_order", ActionCancelOrder.String())
}
