package reconcile

import (
	"fmt"
	"time"

	"github.com/AnthonyGillesRudolfo/Order-Payment-Reconciler/internal/commerce"
	"github.com/AnthonyGillesRudolfo/Order-Payment-Reconciler/internal/processor"
)

// Kind selects which order flow a run reconciles.
type Kind string

const (
	KindPending   Kind = "pending"
	KindCancelled Kind = "cancelled"
)

var (
	pendingHeader   = []string{"Name", "Order ID", "Created At", "Amount", "Financial Status", "PayPal Status", "Marked Paid"}
	cancelledHeader = []string{"Name", "Order ID", "Created At", "Cancelled At", "Amount", "eCheck Status", "PayPal Refund"}
)

func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindPending, KindCancelled:
		return Kind(s), nil
	}
	return "", fmt.Errorf("unknown reconciliation kind %q", s)
}

// Header returns the report column names of the flow.
func (k Kind) Header() []string {
	if k == KindCancelled {
		return append([]string(nil), cancelledHeader...)
	}
	return append([]string(nil), pendingHeader...)
}

// Title is the report title posted alongside the file.
func (k Kind) Title() string {
	if k == KindCancelled {
		return "PayPal <> Shopify Cancelled Orders sync"
	}
	return "PayPal <> Shopify Pending Orders sync"
}

// Outcome summarizes what happened to one order.
type Outcome string

const (
	OutcomeNoAction Outcome = "no_action"
	OutcomeActed    Outcome = "acted"
	OutcomeSkipped  Outcome = "skipped"
	OutcomeFailed   Outcome = "failed"
)

// Result is the per-order record produced by a run. Row is always filled so a
// failed order still shows up in the report.
type Result struct {
	Order       commerce.Order
	Transaction *commerce.Transaction
	Capture     *processor.Capture
	Action      Action
	Outcome     Outcome
	Row         []string
	UserErrors  []commerce.UserError
	Err         error
}

// Run is one pass over a flow. FetchErr is set when paging stopped early; the
// results then cover only the orders fetched before the failure.
type Run struct {
	ID         string
	Kind       Kind
	StartedAt  time.Time
	FinishedAt time.Time
	Results    []Result
	FetchErr   error
}

// Rows returns the report rows in processing order.
func (r *Run) Rows() [][]string {
	rows := make([][]string, 0, len(r.Results))
	for _, res := range r.Results {
		rows = append(rows, res.Row)
	}
	return rows
}

// Counts tallies results by outcome.
func (r *Run) Counts() map[Outcome]int {
	counts := make(map[Outcome]int, 4)
	for _, res := range r.Results {
		counts[res.Outcome]++
	}
	return counts
}

func (r *Run) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

func pendingRow(o commerce.Order, amount, financialStatus, captureStatus, acted string) []string {
	return []string{o.Name, o.ID, o.CreatedAt, amount, financialStatus, captureStatus, acted}
}

func cancelledRow(o commerce.Order, amount, captureStatus, refund string) []string {
	return []string{o.Name, o.ID, o.CreatedAt, o.CancelledAtOrEmpty(), amount, captureStatus, refund}
}

// degradedRow is reported for orders whose processor state could not be
// fully determined.
func degradedRow(kind Kind, o commerce.Order, amount, captureStatus string) []string {
	if kind == KindCancelled {
		return cancelledRow(o, amount, captureStatus, FieldUnknown)
	}
	return pendingRow(o, amount, o.DisplayFinancialStatus, captureStatus, FieldNo)
}

func skippedRow(kind Kind, o commerce.Order) []string {
	if kind == KindCancelled {
		return cancelledRow(o, "", FieldNoAuthorization, "")
	}
	return pendingRow(o, "", o.DisplayFinancialStatus, FieldNoAuthorization, FieldNo)
}
