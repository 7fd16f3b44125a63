package commerce

import (
	"fmt"
	"strconv"
	"time"
)

// QueryBuilder renders the orders query for the page after cursor; a nil
// cursor selects the first page.
type QueryBuilder func(cursor *string) string

const timestampLayout = "2006-01-02T15:04:05Z"

const ordersQuery = `
{
    orders(query: %s, first: %d, after: %s) {
        edges {
            node {
                id
                name
                createdAt
                cancelledAt
                displayFinancialStatus
                displayFulfillmentStatus
                transactions {
                    id
                    createdAt
                    gateway
                    paymentId
                    authorizationCode
                    status
                    amount
                }
            }
            cursor
        }
        pageInfo {
            hasNextPage
        }
    }
}
`

const markAsPaidMutation = `
mutation orderMarkAsPaid($input: OrderMarkAsPaidInput!) {
  orderMarkAsPaid(input: $input) {
    order {
      id
      name
      closed
      confirmed
      closedAt
      fullyPaid
    }
    userErrors {
      field
      message
    }
  }
}
`

const cancelOrderMutation = `
mutation orderCancel($orderId: ID!, $reason: OrderCancelReason!, $refund: Boolean!, $restock: Boolean!, $notifyCustomer: Boolean!) {
  orderCancel(orderId: $orderId, reason: $reason, refund: $refund, restock: $restock, notifyCustomer: $notifyCustomer) {
    job {
      id
      done
    }
    orderCancelUserErrors {
      code
      field
      message
    }
  }
}
`

// PendingOrdersSearch selects open PayPal orders still awaiting payment.
func PendingOrdersSearch(since time.Time) string {
	return fmt.Sprintf("financial_status:pending created_at:>%s gateway:paypal status:open", since.UTC().Format(timestampLayout))
}

// CancelledOrdersSearch selects cancelled PayPal orders not yet refunded.
func CancelledOrdersSearch(since time.Time) string {
	return fmt.Sprintf("NOT financial_status:refunded NOT financial_status:partially_refunded created_at:>%s gateway:paypal status:cancelled", since.UTC().Format(timestampLayout))
}

// OrdersQuery returns a QueryBuilder for the given search filter and page size.
func OrdersQuery(search string, first int) QueryBuilder {
	return func(cursor *string) string {
		after := "null"
		if cursor != nil {
			after = strconv.Quote(*cursor)
		}
		return fmt.Sprintf(ordersQuery, strconv.Quote(search), first, after)
	}
}
