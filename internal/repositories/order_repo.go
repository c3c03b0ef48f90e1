package repositories

import (
	"errors"

	"ordersvc/internal/models"
)

// ErrNotFound is wrapped by repository lookups for unknown ids so callers
// can distinguish a missing record from a store failure.
var ErrNotFound = errors.New("record not found")

// OrderRepository defines the interface for order data access. Create and
// MarkPaid are atomic: either everything in the call is committed or
// nothing is.
type OrderRepository interface {
	// Create persists an order together with its line items in one write.
	Create(order *models.Order) error
	// GetByID loads an order with its items and receipt.
	GetByID(id string) (*models.Order, error)
	// UpdateStatus sets the order's status and returns the updated order.
	UpdateStatus(id string, status models.OrderStatus) (*models.Order, error)
	// MarkPaid applies a payment confirmation: status PAID, paid flags,
	// charge reference, and the receipt, all in one unit. Reapplying the
	// same confirmation is a no-op and never duplicates the receipt.
	MarkPaid(id, chargeID, receiptURL string) (*models.Order, error)
	// List returns one page of orders, newest first, optionally filtered
	// by status (empty status means no filter).
	List(status models.OrderStatus, page, limit int) ([]models.Order, error)
	// CountByStatus counts orders matching the optional status filter.
	CountByStatus(status models.OrderStatus) (int64, error)
}
