package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/AnthonyGillesRudolfo/Order-Payment-Reconciler/internal/commerce"
	"github.com/AnthonyGillesRudolfo/Order-Payment-Reconciler/internal/processor"
)

type cancelCall struct {
	OrderID string
	Opts    commerce.CancelOptions
}

type fakeStore struct {
	pending   []commerce.Order
	cancelled []commerce.Order
	fetchErr  error

	// notFullyPaid lists orders whose mark-paid call succeeds without settling
	// the balance.
	notFullyPaid map[string]bool
	markErr      map[string]error
	cancelErr    map[string]error

	markCalls   []string
	cancelCalls []cancelCall
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		notFullyPaid: map[string]bool{},
		markErr:      map[string]error{},
		cancelErr:    map[string]error{},
	}
}

func (s *fakeStore) PendingOrders(context.Context) ([]commerce.Order, error) {
	return s.pending, s.fetchErr
}

func (s *fakeStore) CancelledOrders(context.Context) ([]commerce.Order, error) {
	return s.cancelled, s.fetchErr
}

func (s *fakeStore) MarkAsPaid(_ context.Context, orderID string) (*commerce.MarkPaidResult, error) {
	s.markCalls = append(s.markCalls, orderID)
	if err := s.markErr[orderID]; err != nil {
		return nil, err
	}
	return &commerce.MarkPaidResult{OrderID: orderID, FullyPaid: !s.notFullyPaid[orderID]}, nil
}

func (s *fakeStore) CancelOrder(_ context.Context, orderID string, opts commerce.CancelOptions) (*commerce.CancelResult, error) {
	s.cancelCalls = append(s.cancelCalls, cancelCall{OrderID: orderID, Opts: opts})
	if err := s.cancelErr[orderID]; err != nil {
		return nil, err
	}
	return &commerce.CancelResult{JobID: "gid://shopify/Job/" + orderID}, nil
}

type fakeProcessor struct {
	captures  map[string]*processor.Capture
	refunds   map[string]*processor.Refund
	triggered map[string]*processor.Refund
	failing   map[string]bool

	captureCalls []string
	refundCalls  []string
}

func newFakeProcessor() *fakeProcessor {
	return &fakeProcessor{
		captures:  map[string]*processor.Capture{},
		refunds:   map[string]*processor.Refund{},
		triggered: map[string]*processor.Refund{},
		failing:   map[string]bool{},
	}
}

func (p *fakeProcessor) addCapture(id, status, amount string) {
	p.captures[id] = &processor.Capture{
		ID:        id,
		Status:    processor.ParseCaptureStatus(status),
		RawStatus: status,
		Amount:    processor.Money{Value: amount, CurrencyCode: "USD"},
	}
}

func (p *fakeProcessor) addRefund(id, status string) {
	p.refunds[id] = &processor.Refund{ID: id, Status: processor.ParseRefundStatus(status), RawStatus: status}
}

func (p *fakeProcessor) GetCapture(_ context.Context, id string) (*processor.Capture, error) {
	p.captureCalls = append(p.captureCalls, id)
	if p.failing[id] {
		return nil, &processor.StatusError{Op: "get capture", StatusCode: 500}
	}
	c, ok := p.captures[id]
	if !ok {
		return nil, &processor.StatusError{Op: "get capture", StatusCode: 404}
	}
	return c, nil
}

func (p *fakeProcessor) GetRefund(_ context.Context, id string) (*processor.Refund, error) {
	r, ok := p.refunds[id]
	if !ok {
		return nil, &processor.StatusError{Op: "get refund", StatusCode: 404}
	}
	return r, nil
}

func (p *fakeProcessor) RefundCapture(_ context.Context, id string) (*processor.Refund, error) {
	p.refundCalls = append(p.refundCalls, id)
	r, ok := p.triggered[id]
	if !ok {
		return nil, errors.New("refund rejected")
	}
	return r, nil
}

type recordingObserver struct {
	mu      sync.Mutex
	results []Result
}

func (o *recordingObserver) OrderReconciled(_ context.Context, _ *Run, res Result) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.results = append(o.results, res)
}

func strPtr(s string) *string { return &s }

func newTx(id, createdAt, auth string) commerce.Transaction {
	tx := commerce.Transaction{ID: id, CreatedAt: createdAt, Gateway: "paypal", Status: "PENDING"}
	if auth != "" {
		tx.AuthorizationCode = strPtr(auth)
	}
	return tx
}

func newOrder(n int, txs ...commerce.Transaction) commerce.Order {
	return commerce.Order{
		ID:                     fmt.Sprintf("gid://shopify/Order/%d", n),
		Name:                   fmt.Sprintf("#%d", n),
		CreatedAt:              "2024-08-01T10:00:00Z",
		DisplayFinancialStatus: "PENDING",
		Transactions:           txs,
	}
}

func newCancelledOrder(n int, txs ...commerce.Transaction) commerce.Order {
	o := newOrder(n, txs...)
	o.CancelledAt = strPtr("2024-08-02T09:00:00Z")
	return o
}
