package reconcile

import (
	"errors"
	"fmt"
	"time"

	"github.com/AnthonyGillesRudolfo/Order-Payment-Reconciler/internal/commerce"
)

// TimestampLayout is the platform's transaction timestamp format.
const TimestampLayout = "2006-01-02T15:04:05Z"

var ErrNoTransactions = errors.New("order has no transactions")

// ParseError reports a payload value that violates the expected format.
type ParseError struct {
	Field string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s %q: %v", e.Field, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// SelectTransaction returns the most recent transaction by creation time. On
// equal timestamps the earliest entry wins.
func SelectTransaction(txs []commerce.Transaction) (commerce.Transaction, error) {
	if len(txs) == 0 {
		return commerce.Transaction{}, ErrNoTransactions
	}

	best := 0
	var bestAt time.Time
	for i, tx := range txs {
		at, err := time.Parse(TimestampLayout, tx.CreatedAt)
		if err != nil {
			return commerce.Transaction{}, &ParseError{Field: "transaction createdAt", Value: tx.CreatedAt, Err: err}
		}
		if i == 0 || at.After(bestAt) {
			best, bestAt = i, at
		}
	}
	return txs[best], nil
}
