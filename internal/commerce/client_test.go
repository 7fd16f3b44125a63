package commerce

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/AnthonyGillesRudolfo/Order-Payment-Reconciler/internal/config"
)

type sleepRecorder struct {
	waits []time.Duration
}

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	s.waits = append(s.waits, d)
	return nil
}

func newTestClient(t *testing.T, handler http.HandlerFunc, rec *sleepRecorder) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg := config.ShopifyConfig{
		APIKey:              "shpat_test",
		StoreDomain:         "example.myshopify.com",
		APIVersion:          "2024-07",
		Lookback:            720 * time.Hour,
		PageSize:            50,
		MaxRateLimitRetries: 3,
	}
	return New(cfg, srv.Client(), zap.NewNop(), WithEndpoint(srv.URL), WithSleeper(rec.sleep))
}

func pageJSON(t *testing.T, hasNext bool, ids ...string) []byte {
	t.Helper()
	edges := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		edges = append(edges, map[string]any{
			"node": map[string]any{
				"id":                     "gid://shopify/Order/" + id,
				"name":                   "#" + id,
				"createdAt":              "2024-08-01T10:00:00Z",
				"displayFinancialStatus": "PENDING",
				"transactions": []map[string]any{{
					"id":                "gid://shopify/OrderTransaction/" + id,
					"createdAt":         "2024-08-01T10:00:00Z",
					"gateway":           "paypal",
					"authorizationCode": "CAP-" + id,
					"status":            "PENDING",
				}},
			},
			"cursor": "cursor-" + id,
		})
	}
	body, err := json.Marshal(map[string]any{
		"data": map[string]any{
			"orders": map[string]any{
				"edges":    edges,
				"pageInfo": map[string]any{"hasNextPage": hasNext},
			},
		},
	})
	require.NoError(t, err)
	return body
}

func decodeRequest(t *testing.T, r *http.Request) graphQLRequest {
	t.Helper()
	var req graphQLRequest
	require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
	return req
}

func orderIDs(orders []Order) []string {
	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, strings.TrimPrefix(o.ID, "gid://shopify/Order/"))
	}
	return ids
}

func TestFetchRetriesAfterRateLimit(t *testing.T) {
	var calls atomic.Int32
	rec := &sleepRecorder{}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "shpat_test", r.Header.Get("X-Shopify-Access-Token"))
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "2")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write(pageJSON(t, false, "1"))
	}, rec)

	orders, err := client.PendingOrders(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"1"}, orderIDs(orders))
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, []time.Duration{2 * time.Second}, rec.waits)
}

func TestFetchDefaultsRetryAfter(t *testing.T) {
	var calls atomic.Int32
	rec := &sleepRecorder{}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "soon")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write(pageJSON(t, false))
	}, rec)

	_, err := client.CancelledOrders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{5 * time.Second}, rec.waits)
}

func TestFetchBoundsRetryAfter(t *testing.T) {
	var calls atomic.Int32
	rec := &sleepRecorder{}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch calls.Add(1) {
		case 1:
			w.Header().Set("Retry-After", "NaN")
			w.WriteHeader(http.StatusTooManyRequests)
		case 2:
			w.Header().Set("Retry-After", "1e12")
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			_, _ = w.Write(pageJSON(t, false))
		}
	}, rec)

	_, err := client.PendingOrders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{5 * time.Second, time.Minute}, rec.waits)
}

func TestFetchGivesUpAfterRetryBudget(t *testing.T) {
	var calls atomic.Int32
	rec := &sleepRecorder{}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Retry-After", "1")
		w.WriteHeader(http.StatusTooManyRequests)
	}, rec)

	orders, err := client.PendingOrders(context.Background())
	require.Error(t, err)

	assert.Empty(t, orders)
	assert.ErrorIs(t, err, ErrRateLimited)
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusTooManyRequests, statusErr.StatusCode)
	assert.Equal(t, int32(4), calls.Load())
	assert.Len(t, rec.waits, 3)
}

func TestFetchAllWalksEveryPage(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		req := decodeRequest(t, r)
		switch calls.Add(1) {
		case 1:
			assert.Contains(t, req.Query, "after: null")
			_, _ = w.Write(pageJSON(t, true, "1", "2"))
		case 2:
			assert.Contains(t, req.Query, `after: "cursor-2"`)
			_, _ = w.Write(pageJSON(t, true, "3"))
		case 3:
			assert.Contains(t, req.Query, `after: "cursor-3"`)
			_, _ = w.Write(pageJSON(t, false, "4", "5"))
		default:
			t.Errorf("unexpected call %d", calls.Load())
		}
	}, &sleepRecorder{})

	orders, err := client.PendingOrders(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"1", "2", "3", "4", "5"}, orderIDs(orders))
	assert.Equal(t, int32(3), calls.Load())
	require.NotNil(t, orders[0].Transactions[0].AuthorizationCode)
	assert.Equal(t, "CAP-1", *orders[0].Transactions[0].AuthorizationCode)
}

func TestFetchAllReturnsPartialResultOnErrorStatus(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			_, _ = w.Write(pageJSON(t, true, "1"))
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}, &sleepRecorder{})

	orders, err := client.CancelledOrders(context.Background())

	assert.Equal(t, []string{"1"}, orderIDs(orders))
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
}

func TestFetchAllRejectsMissingData(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"errors":[{"message":"Throttled"}]}`))
	}, &sleepRecorder{})

	orders, err := client.PendingOrders(context.Background())
	assert.Empty(t, orders)
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestMarkAsPaid(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		req := decodeRequest(t, r)
		assert.Contains(t, req.Query, "orderMarkAsPaid")
		assert.Equal(t, map[string]any{"id": "gid://shopify/Order/1"}, req.Variables["input"])
		_, _ = w.Write([]byte(`{"data":{"orderMarkAsPaid":{"order":{"id":"gid://shopify/Order/1","name":"#1","fullyPaid":true},"userErrors":[]}}}`))
	}, &sleepRecorder{})

	result, err := client.MarkAsPaid(context.Background(), "gid://shopify/Order/1")
	require.NoError(t, err)
	assert.True(t, result.FullyPaid)
	assert.Equal(t, "#1", result.OrderName)
	assert.Empty(t, result.UserErrors)
}

func TestMarkAsPaidKeepsUserErrors(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"orderMarkAsPaid":{"order":null,"userErrors":[{"field":["id"],"message":"Order cannot be marked as paid."}]}}}`))
	}, &sleepRecorder{})

	result, err := client.MarkAsPaid(context.Background(), "gid://shopify/Order/1")
	require.NoError(t, err)
	assert.False(t, result.FullyPaid)
	require.Len(t, result.UserErrors, 1)
	assert.Equal(t, []string{"id"}, result.UserErrors[0].Field)
}

func TestMarkAsPaidTransportFailure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}, &sleepRecorder{})

	result, err := client.MarkAsPaid(context.Background(), "gid://shopify/Order/1")
	assert.Nil(t, result)
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
}

func TestCancelOrder(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		req := decodeRequest(t, r)
		assert.Contains(t, req.Query, "orderCancel")
		assert.Equal(t, "gid://shopify/Order/9", req.Variables["orderId"])
		assert.Equal(t, "DECLINED", req.Variables["reason"])
		assert.Equal(t, false, req.Variables["refund"])
		assert.Equal(t, false, req.Variables["restock"])
		assert.Equal(t, true, req.Variables["notifyCustomer"])
		_, _ = w.Write([]byte(`{"data":{"orderCancel":{"job":{"id":"gid://shopify/Job/1","done":false},"orderCancelUserErrors":[]}}}`))
	}, &sleepRecorder{})

	result, err := client.CancelOrder(context.Background(), "gid://shopify/Order/9", DefaultCancelOptions(CancelReasonDeclined))
	require.NoError(t, err)
	assert.Equal(t, "gid://shopify/Job/1", result.JobID)
	assert.False(t, result.JobDone)
}

func TestOrdersQuery(t *testing.T) {
	since := time.Date(2024, 7, 2, 8, 30, 0, 0, time.UTC)
	build := OrdersQuery(PendingOrdersSearch(since), 50)

	first := build(nil)
	assert.Contains(t, first, `query: "financial_status:pending created_at:>2024-07-02T08:30:00Z gateway:paypal status:open"`)
	assert.Contains(t, first, "first: 50")
	assert.Contains(t, first, "after: null")

	cursor := `eyJsYXN0X2lkIjo0fQ==`
	assert.Contains(t, build(&cursor), `after: "eyJsYXN0X2lkIjo0fQ=="`)

	assert.Equal(t,
		"NOT financial_status:refunded NOT financial_status:partially_refunded created_at:>2024-07-02T08:30:00Z gateway:paypal status:cancelled",
		CancelledOrdersSearch(since),
	)
}

func TestRetryAfter(t *testing.T) {
	cases := map[string]time.Duration{
		"":             5 * time.Second,
		"2":            2 * time.Second,
		"2.5":          2500 * time.Millisecond,
		"-1":           5 * time.Second,
		"abc":          5 * time.Second,
		"NaN":          5 * time.Second,
		"+Inf":         5 * time.Second,
		"1e12":         time.Minute,
		"100000000000": time.Minute,
		"60":           time.Minute,
		"59.5":         59500 * time.Millisecond,
	}
	for raw, want := range cases {
		h := http.Header{}
		if raw != "" {
			h.Set("Retry-After", raw)
		}
		assert.Equal(t, want, retryAfter(h), "Retry-After %q", raw)
	}
}
