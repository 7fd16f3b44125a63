package processor

import (
	"errors"
	"fmt"
)

// ErrAuthentication wraps failures to obtain an access token.
var ErrAuthentication = errors.New("paypal authentication failed")

type Money struct {
	Value        string `json:"value"`
	CurrencyCode string `json:"currency_code"`
}

// Capture is the authoritative processor view of a payment.
type Capture struct {
	ID        string
	Status    CaptureStatus
	RawStatus string
	Amount    Money
}

// Refund is the processor view of a refund. RawStatus keeps the value as sent
// by the processor for reporting.
type Refund struct {
	ID        string
	Status    RefundStatus
	RawStatus string
}

type captureWire struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Amount Money  `json:"amount"`
}

type refundWire struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// StatusError reports a non-2xx response from the payments API.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("paypal %s: status %d", e.Op, e.StatusCode)
	}
	body := e.Body
	if len(body) > 256 {
		body = body[:256] + "..."
	}
	return fmt.Sprintf("paypal %s: status %d: %s", e.Op, e.StatusCode, body)
}
