package models

import "encoding/json"

// OrderItemRequest is one (product, quantity) pair of a creation request.
type OrderItemRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,gte=1"`
}

// CreateOrderRequest is the inbound payload of the createOrder operation.
type CreateOrderRequest struct {
	Items []OrderItemRequest `json:"items" validate:"required,min=1,dive"`
}

// ChangeOrderStatusRequest is the inbound payload of changeOrderStatus.
type ChangeOrderStatusRequest struct {
	ID     string `json:"id" validate:"required,uuid"`
	Status string `json:"status" validate:"required"`
}

// OrderPageQuery selects a page of orders, optionally filtered by status.
type OrderPageQuery struct {
	Page   int    `json:"page" validate:"gte=1"`
	Limit  int    `json:"limit" validate:"gte=1"`
	Status string `json:"status,omitempty"`
}

// PaginationMeta describes the page returned by findAllOrders. Key names are
// part of the contract with callers.
type PaginationMeta struct {
	TotalItems   int64 `json:"totalItems"`
	ItemsPerPage int   `json:"itemsPerPage"`
	Page         int   `json:"page"`
	TotalPages   int64 `json:"totalPages"`
}

// OrderPage is the findAllOrders response.
type OrderPage struct {
	Data []Order        `json:"data"`
	Meta PaginationMeta `json:"meta"`
}

// PaymentSession is the redirectable session descriptor returned by the
// payment provider.
type PaymentSession struct {
	CancelURL  string `json:"cancel_url"`
	SuccessURL string `json:"success_url"`
	URL        string `json:"url"`
}

// CreateOrderResponse pairs the persisted order with its payment session.
type CreateOrderResponse struct {
	Order          *Order          `json:"order"`
	PaymentSession *PaymentSession `json:"paymentSession"`
}

// PaidOrderEvent is the payment.succeeded event payload. Delivery is
// at-least-once; handling must be idempotent.
type PaidOrderEvent struct {
	OrderID         string `json:"orderId" validate:"required,uuid"`
	StripePaymentID string `json:"stripePaymentId" validate:"required"`
	ReceiptURL      string `json:"receiptUrl" validate:"required"`
}

// ValidateProductsRequest is the outbound payload of validate_products.
// Available asks the catalog to reject out-of-stock products; read-side
// enrichment sets it to false so discontinued products still resolve.
type ValidateProductsRequest struct {
	IDs       []string `json:"ids"`
	Available bool     `json:"available"`
}

// CreatePaymentSessionRequest is the outbound payload of
// create.payment.session.
type CreatePaymentSessionRequest struct {
	OrderID  string               `json:"orderId"`
	Currency string               `json:"currency"`
	Items    []PaymentSessionItem `json:"items"`
}

// PaymentSessionItem is a priced, named line the payment provider displays.
type PaymentSessionItem struct {
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

// RPCResponse is the reply envelope used on the message transport, both for
// replies this service sends and for replies it receives from collaborators.
// Exactly one of Data and Err is set.
type RPCResponse struct {
	Data json.RawMessage `json:"data,omitempty"`
	Err  *ServiceError   `json:"error,omitempty"`
}
