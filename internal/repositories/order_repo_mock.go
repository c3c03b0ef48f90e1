package repositories

import (
	"fmt"
	"sync"
	"time"

	"ordersvc/internal/models"

	"github.com/google/uuid"
)

// MockOrderRepository is an in-memory implementation of OrderRepository.
// Useful for handler tests and for running the service without a database.
type MockOrderRepository struct {
	orders map[string]models.Order
	ids    []string // insertion order, newest last
	mu     sync.RWMutex
}

// NewMockOrderRepository creates a new instance of MockOrderRepository.
func NewMockOrderRepository() *MockOrderRepository {
	return &MockOrderRepository{
		orders: make(map[string]models.Order),
	}
}

// Create adds a new order with its items.
func (r *MockOrderRepository) Create(order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	order.CreatedAt = time.Now()
	order.UpdatedAt = time.Now()
	r.orders[order.ID] = cloneOrder(*order)
	r.ids = append(r.ids, order.ID)
	return nil
}

// GetByID returns an order with its items by its ID.
func (r *MockOrderRepository) GetByID(id string) (*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, fmt.Errorf("order with id %s: %w", id, ErrNotFound)
	}
	copied := cloneOrder(order)
	return &copied, nil
}

// UpdateStatus updates the status of an order.
func (r *MockOrderRepository) UpdateStatus(id string, status models.OrderStatus) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, fmt.Errorf("order with id %s: %w", id, ErrNotFound)
	}
	order.Status = status
	order.UpdatedAt = time.Now()
	r.orders[id] = order
	copied := cloneOrder(order)
	return &copied, nil
}

// MarkPaid applies a payment confirmation. Reapplying the same charge id is
// a no-op and never creates a second receipt.
func (r *MockOrderRepository) MarkPaid(id, chargeID, receiptURL string) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, fmt.Errorf("order with id %s: %w", id, ErrNotFound)
	}
	if !order.PaidWith(chargeID) {
		now := time.Now()
		order.Status = models.StatusPaid
		order.Paid = true
		order.PaidAt = &now
		order.StripeChargeID = chargeID
		order.UpdatedAt = now
		if order.Receipt == nil {
			order.Receipt = &models.OrderReceipt{
				OrderID:    id,
				ReceiptURL: receiptURL,
				CreatedAt:  now,
			}
		}
		r.orders[id] = order
	}
	copied := cloneOrder(order)
	return &copied, nil
}

// List returns one page of orders, newest first.
func (r *MockOrderRepository) List(status models.OrderStatus, page, limit int) ([]models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matching := make([]models.Order, 0, len(r.ids))
	// ids holds insertion order oldest-first; walk backwards for newest-first.
	for i := len(r.ids) - 1; i >= 0; i-- {
		order := r.orders[r.ids[i]]
		if status != "" && order.Status != status {
			continue
		}
		matching = append(matching, cloneOrder(order))
	}

	start := (page - 1) * limit
	if start >= len(matching) {
		return []models.Order{}, nil
	}
	end := start + limit
	if end > len(matching) {
		end = len(matching)
	}
	return matching[start:end], nil
}

// CountByStatus counts orders matching the optional status filter.
func (r *MockOrderRepository) CountByStatus(status models.OrderStatus) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var count int64
	for _, order := range r.orders {
		if status == "" || order.Status == status {
			count++
		}
	}
	return count, nil
}

// cloneOrder copies an order so callers never share slices with the store.
func cloneOrder(order models.Order) models.Order {
	items := make([]models.OrderItem, len(order.Items))
	copy(items, order.Items)
	order.Items = items
	if order.Receipt != nil {
		receipt := *order.Receipt
		order.Receipt = &receipt
	}
	return order
}
