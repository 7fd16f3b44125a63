package commerce

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrRateLimited is returned once the 429 retry budget is exhausted.
	ErrRateLimited = errors.New("shopify rate limit retries exhausted")
	// ErrMalformedResponse marks a 200 response whose payload lacks the expected shape.
	ErrMalformedResponse = errors.New("malformed shopify response")
)

// StatusError reports a non-success HTTP status from the Admin API.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("shopify %s: status %d", e.Op, e.StatusCode)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Body != "" {
		msg += ": " + truncate(e.Body, 256)
	}
	return msg
}

func (e *StatusError) Unwrap() error { return e.Err }

func graphQLErrorsMessage(errs []graphQLError) string {
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, e.Message)
	}
	return strings.Join(msgs, "; ")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
