package models

import "fmt"

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	StatusPending   OrderStatus = "PENDING"
	StatusPaid      OrderStatus = "PAID"
	StatusDelivered OrderStatus = "DELIVERED"
	StatusCancelled OrderStatus = "CANCELLED"
)

// ParseOrderStatus validates a status string against the known vocabulary.
func ParseOrderStatus(s string) (OrderStatus, error) {
	switch status := OrderStatus(s); status {
	case StatusPending, StatusPaid, StatusDelivered, StatusCancelled:
		return status, nil
	default:
		return "", fmt.Errorf("unknown order status: %s", s)
	}
}

// TransitionStatus decides whether a requested status change must be written.
// Requesting the status the order already has is a no-op, so retried
// messages never error. Any other known status is applied as-is; concurrent
// writers race at the store and last write wins.
func TransitionStatus(order *Order, target OrderStatus) (bool, error) {
	if _, err := ParseOrderStatus(string(target)); err != nil {
		return false, err
	}
	if order.Status == target {
		return false, nil
	}
	return true, nil
}

// PaidWith reports whether the payment confirmation carrying chargeID has
// already been applied to the order. Used to make the confirmation handler
// safe under event redelivery.
func (o *Order) PaidWith(chargeID string) bool {
	return o.Paid && o.Status == StatusPaid && o.StripeChargeID == chargeID
}
