package repositories

import (
	"errors"
	"fmt"
	"time"

	"ordersvc/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMOrderRepository is a GORM implementation of OrderRepository.
type GORMOrderRepository struct {
	db *gorm.DB
}

// NewGORMOrderRepository creates a new instance of GORMOrderRepository.
func NewGORMOrderRepository(db *gorm.DB) *GORMOrderRepository {
	return &GORMOrderRepository{
		db: db,
	}
}

// Create persists the order and its line items in a single transaction.
// GORM writes the Items association inside the same transaction as the
// order row, so a failed write leaves nothing behind.
func (r *GORMOrderRepository) Create(order *models.Order) error {
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	if err := r.db.Create(order).Error; err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

// GetByID retrieves a single order with its items and receipt.
func (r *GORMOrderRepository) GetByID(id string) (*models.Order, error) {
	var order models.Order
	err := r.db.Preload("Items").Preload("Receipt").First(&order, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("order with id %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get order by id %s: %w", id, err)
	}
	return &order, nil
}

// UpdateStatus sets the status of an order and returns the updated record.
func (r *GORMOrderRepository) UpdateStatus(id string, status models.OrderStatus) (*models.Order, error) {
	var order models.Order
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Items").First(&order, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("order with id %s: %w", id, ErrNotFound)
			}
			return err
		}
		if err := tx.Model(&models.Order{}).Where("id = ?", id).
			Update("status", status).Error; err != nil {
			return err
		}
		order.Status = status
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update status for order %s: %w", id, err)
	}
	return &order, nil
}

// MarkPaid applies a payment confirmation in one transaction. If the order
// already carries the same charge id the call is a no-op, so redelivered
// confirmations neither error nor create a second receipt. The unique index
// on the receipt's order id backs this up at the store level.
func (r *GORMOrderRepository) MarkPaid(id, chargeID, receiptURL string) (*models.Order, error) {
	var order models.Order
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Items").Preload("Receipt").First(&order, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("order with id %s: %w", id, ErrNotFound)
			}
			return err
		}
		if order.PaidWith(chargeID) {
			return nil
		}

		now := time.Now()
		updates := map[string]interface{}{
			"status":           models.StatusPaid,
			"paid":             true,
			"paid_at":          now,
			"stripe_charge_id": chargeID,
		}
		if err := tx.Model(&models.Order{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return err
		}

		receipt := models.OrderReceipt{}
		if err := tx.Where(models.OrderReceipt{OrderID: id}).
			Attrs(models.OrderReceipt{ReceiptURL: receiptURL}).
			FirstOrCreate(&receipt).Error; err != nil {
			return err
		}

		order.Status = models.StatusPaid
		order.Paid = true
		order.PaidAt = &now
		order.StripeChargeID = chargeID
		order.Receipt = &receipt
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to mark order %s paid: %w", id, err)
	}
	return &order, nil
}

// List returns one page of orders, newest first.
func (r *GORMOrderRepository) List(status models.OrderStatus, page, limit int) ([]models.Order, error) {
	var orders []models.Order
	q := r.db.Order("created_at DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if err := q.Offset((page - 1) * limit).Limit(limit).Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// CountByStatus counts orders matching the optional status filter.
func (r *GORMOrderRepository) CountByStatus(status models.OrderStatus) (int64, error) {
	var count int64
	q := r.db.Model(&models.Order{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if err := q.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count orders: %w", err)
	}
	return count, nil
}
