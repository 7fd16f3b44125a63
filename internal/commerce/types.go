package commerce

// Order is an order node as returned by the Admin GraphQL orders connection.
type Order struct {
	ID                       string        `json:"id"`
	Name                     string        `json:"name"`
	CreatedAt                string        `json:"createdAt"`
	CancelledAt              *string       `json:"cancelledAt"`
	DisplayFinancialStatus   string        `json:"displayFinancialStatus"`
	DisplayFulfillmentStatus string        `json:"displayFulfillmentStatus"`
	Transactions             []Transaction `json:"transactions"`
}

// CancelledAtOrEmpty returns the cancellation timestamp, or "" for open orders.
func (o Order) CancelledAtOrEmpty() string {
	if o.CancelledAt == nil {
		return ""
	}
	return *o.CancelledAt
}

// Transaction is a payment attempt recorded on an order. A nil
// AuthorizationCode means no processor-side capture exists.
type Transaction struct {
	ID                string  `json:"id"`
	CreatedAt         string  `json:"createdAt"`
	Gateway           string  `json:"gateway"`
	PaymentID         string  `json:"paymentId"`
	AuthorizationCode *string `json:"authorizationCode"`
	Status            string  `json:"status"`
	Amount            string  `json:"amount"`
}

// HasAuthorization reports whether the transaction links to a processor capture.
func (t Transaction) HasAuthorization() bool {
	return t.AuthorizationCode != nil && *t.AuthorizationCode != ""
}

// UserError is a field-level validation error reported inside a successful
// mutation response.
type UserError struct {
	Code    string   `json:"code,omitempty"`
	Field   []string `json:"field"`
	Message string   `json:"message"`
}

// MarkPaidResult is the payload of orderMarkAsPaid.
type MarkPaidResult struct {
	OrderID    string
	OrderName  string
	FullyPaid  bool
	Closed     bool
	UserErrors []UserError
}

// CancelReason mirrors the OrderCancelReason enum.
type CancelReason string

const (
	CancelReasonDeclined CancelReason = "DECLINED"
	CancelReasonOther    CancelReason = "OTHER"
	// CancelReasonRefunded is forwarded as-is for captures refunded at the processor.
	CancelReasonRefunded CancelReason = "REFUNDED"
)

// CancelOptions are the orderCancel arguments besides the order id.
type CancelOptions struct {
	Reason         CancelReason
	Refund         bool
	Restock        bool
	NotifyCustomer bool
}

// DefaultCancelOptions returns the options used by the reconciler: no refund,
// no restock, customer notified.
func DefaultCancelOptions(reason CancelReason) CancelOptions {
	return CancelOptions{Reason: reason, NotifyCustomer: true}
}

// CancelResult is the payload of orderCancel.
type CancelResult struct {
	JobID      string
	JobDone    bool
	UserErrors []UserError
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type pageInfo struct {
	HasNextPage bool `json:"hasNextPage"`
}

type orderEdge struct {
	Node   Order  `json:"node"`
	Cursor string `json:"cursor"`
}

type ordersConnection struct {
	Edges    []orderEdge `json:"edges"`
	PageInfo pageInfo    `json:"pageInfo"`
}

type ordersResponse struct {
	Data *struct {
		Orders *ordersConnection `json:"orders"`
	} `json:"data"`
	Errors []graphQLError `json:"errors"`
}

type markPaidResponse struct {
	Data *struct {
		OrderMarkAsPaid *struct {
			Order *struct {
				ID        string `json:"id"`
				Name      string `json:"name"`
				Closed    bool   `json:"closed"`
				FullyPaid bool   `json:"fullyPaid"`
			} `json:"order"`
			UserErrors []UserError `json:"userErrors"`
		} `json:"orderMarkAsPaid"`
	} `json:"data"`
	Errors []graphQLError `json:"errors"`
}

type cancelResponse struct {
	Data *struct {
		OrderCancel *struct {
			Job *struct {
				ID   string `json:"id"`
				Done bool   `json:"done"`
			} `json:"job"`
			OrderCancelUserErrors []UserError `json:"orderCancelUserErrors"`
		} `json:"orderCancel"`
	} `json:"data"`
	Errors []graphQLError `json:"errors"`
}
