package processor

import "strings"

// CaptureStatus is the processor-side state of a captured payment. Values
// outside the known set map to CaptureUnknown.
type CaptureStatus int

const (
	CaptureUnknown CaptureStatus = iota
	CapturePending
	CaptureCompleted
	CaptureDeclined
	CaptureRefunded
)

func (s CaptureStatus) String() string {
	switch s {
	case CapturePending:
		return "PENDING"
	case CaptureCompleted:
		return "COMPLETED"
	case CaptureDeclined:
		return "DECLINED"
	case CaptureRefunded:
		return "REFUNDED"
	default:
		return "UNKNOWN"
	}
}

func ParseCaptureStatus(raw string) CaptureStatus {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "PENDING":
		return CapturePending
	case "COMPLETED":
		return CaptureCompleted
	case "DECLINED":
		return CaptureDeclined
	case "REFUNDED":
		return CaptureRefunded
	default:
		return CaptureUnknown
	}
}

// RefundStatus is the processor-side state of a refund.
type RefundStatus int

const (
	RefundOther RefundStatus = iota
	RefundPending
	RefundCompleted
)

func (s RefundStatus) String() string {
	switch s {
	case RefundPending:
		return "PENDING"
	case RefundCompleted:
		return "COMPLETED"
	default:
		return "OTHER"
	}
}

func ParseRefundStatus(raw string) RefundStatus {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "PENDING":
		return RefundPending
	case "COMPLETED":
		return RefundCompleted
	default:
		return RefundOther
	}
}
