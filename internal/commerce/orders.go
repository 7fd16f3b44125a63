package commerce

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

// PendingOrders returns every open PayPal order in the lookback window whose
// financial status is still pending.
func (c *Client) PendingOrders(ctx context.Context) ([]Order, error) {
	since := c.now().Add(-c.lookback)
	return c.FetchAll(ctx, "pending-orders", OrdersQuery(PendingOrdersSearch(since), c.pageSize))
}

// CancelledOrders returns every cancelled PayPal order in the lookback window
// that has not been refunded on the platform.
func (c *Client) CancelledOrders(ctx context.Context) ([]Order, error) {
	since := c.now().Add(-c.lookback)
	return c.FetchAll(ctx, "cancelled-orders", OrdersQuery(CancelledOrdersSearch(since), c.pageSize))
}

// FetchAll walks the orders connection page by page until hasNextPage is
// false. When a page cannot be fetched or decoded, the orders accumulated so
// far are returned together with the error.
func (c *Client) FetchAll(ctx context.Context, op string, build QueryBuilder) ([]Order, error) {
	var (
		cursor *string
		orders []Order
	)
	for page := 1; ; page++ {
		resp, err := c.fetch(ctx, op, graphQLRequest{Query: build(cursor)})
		if err != nil {
			return orders, fmt.Errorf("page %d: %w", page, err)
		}
		if !c.classifyStatus(op, resp) {
			return orders, &StatusError{Op: op, StatusCode: resp.StatusCode, Body: string(resp.Body)}
		}

		conn, err := c.decodeOrders(op, resp.Body)
		if err != nil {
			return orders, fmt.Errorf("page %d: %w", page, err)
		}
		for _, edge := range conn.Edges {
			orders = append(orders, edge.Node)
		}
		c.logger.Info("fetched orders page",
			zap.String("op", op),
			zap.Int("page", page),
			zap.Int("orders", len(conn.Edges)),
			zap.Bool("has_next_page", conn.PageInfo.HasNextPage),
		)

		if !conn.PageInfo.HasNextPage {
			return orders, nil
		}
		if len(conn.Edges) == 0 {
			return orders, fmt.Errorf("page %d: %w: hasNextPage without edges", page, ErrMalformedResponse)
		}
		next := conn.Edges[len(conn.Edges)-1].Cursor
		cursor = &next
	}
}

func (c *Client) decodeOrders(op string, body []byte) (*ordersConnection, error) {
	var out ordersResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("%w: decode orders: %v", ErrMalformedResponse, err)
	}
	if len(out.Errors) > 0 {
		c.logger.Error("graphql errors", zap.String("op", op), zap.String("errors", graphQLErrorsMessage(out.Errors)))
	}
	if out.Data == nil || out.Data.Orders == nil {
		return nil, fmt.Errorf("%w: missing data.orders", ErrMalformedResponse)
	}
	return out.Data.Orders, nil
}
