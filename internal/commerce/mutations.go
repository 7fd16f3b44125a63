package commerce

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// MarkAsPaid marks the order as paid. User errors are logged and returned in
// the result; only transport failures produce an error.
func (c *Client) MarkAsPaid(ctx context.Context, orderID string) (*MarkPaidResult, error) {
	const op = "orderMarkAsPaid"
	resp, err := c.fetch(ctx, op, graphQLRequest{
		Query:     markAsPaidMutation,
		Variables: map[string]any{"input": map[string]any{"id": orderID}},
	})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Error("marking the order paid was not successful", zap.String("order_id", orderID), zap.Int("status", resp.StatusCode))
		return nil, &StatusError{Op: op, StatusCode: resp.StatusCode, Body: string(resp.Body)}
	}

	var out markPaidResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrMalformedResponse, op, err)
	}
	if out.Data == nil || out.Data.OrderMarkAsPaid == nil {
		return nil, fmt.Errorf("%w: %s: %s", ErrMalformedResponse, op, graphQLErrorsMessage(out.Errors))
	}

	payload := out.Data.OrderMarkAsPaid
	result := &MarkPaidResult{OrderID: orderID, UserErrors: payload.UserErrors}
	if payload.Order != nil {
		result.OrderName = payload.Order.Name
		result.FullyPaid = payload.Order.FullyPaid
		result.Closed = payload.Order.Closed
	}
	c.logUserErrors(op, orderID, result.UserErrors)
	return result, nil
}

// CancelOrder submits orderCancel. As with MarkAsPaid, user errors are not
// treated as failures.
func (c *Client) CancelOrder(ctx context.Context, orderID string, opts CancelOptions) (*CancelResult, error) {
	const op = "orderCancel"
	c.logger.Info("cancelling order", zap.String("order_id", orderID), zap.String("reason", string(opts.Reason)))

	resp, err := c.fetch(ctx, op, graphQLRequest{
		Query: cancelOrderMutation,
		Variables: map[string]any{
			"orderId":        orderID,
			"reason":         string(opts.Reason),
			"refund":         opts.Refund,
			"restock":        opts.Restock,
			"notifyCustomer": opts.NotifyCustomer,
		},
	})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Error("cancelling was not successful", zap.String("order_id", orderID), zap.Int("status", resp.StatusCode))
		return nil, &StatusError{Op: op, StatusCode: resp.StatusCode, Body: string(resp.Body)}
	}

	var out cancelResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrMalformedResponse, op, err)
	}
	if out.Data == nil || out.Data.OrderCancel == nil {
		return nil, fmt.Errorf("%w: %s: %s", ErrMalformedResponse, op, graphQLErrorsMessage(out.Errors))
	}

	payload := out.Data.OrderCancel
	result := &CancelResult{UserErrors: payload.OrderCancelUserErrors}
	if payload.Job != nil {
		result.JobID = payload.Job.ID
		result.JobDone = payload.Job.Done
	}
	c.logUserErrors(op, orderID, result.UserErrors)
	return result, nil
}

func (c *Client) logUserErrors(op, orderID string, errs []UserError) {
	if len(errs) == 0 {
		return
	}
	c.logger.Warn("received user errors from shopify",
		zap.String("op", op),
		zap.String("order_id", orderID),
		zap.Any("user_errors", errs),
	)
}
