package models

import "time"

// OrderItem is a single line item within an order. Price is the unit price
// snapshotted at order-creation time; it never changes afterwards, even if
// the catalog price does. Name is filled in from the catalog on read paths
// and is never persisted.
type OrderItem struct {
	ID        uint    `json:"-" gorm:"primaryKey"`
	OrderID   string  `json:"-" gorm:"index;type:varchar(36)"`
	ProductID string  `json:"product_id" gorm:"type:varchar(36)"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
	Name      string  `json:"name,omitempty" gorm:"-"`
}

// OrderReceipt is created exactly once, when an order transitions to PAID.
type OrderReceipt struct {
	ID         uint      `json:"-" gorm:"primaryKey"`
	OrderID    string    `json:"-" gorm:"uniqueIndex;type:varchar(36)"`
	ReceiptURL string    `json:"receipt_url"`
	CreatedAt  time.Time `json:"created_at"`
}

// Order represents a customer order together with its line items.
type Order struct {
	ID             string        `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	Status         OrderStatus   `json:"status" gorm:"type:varchar(20)"`
	TotalAmount    float64       `json:"total_amount"`
	TotalItems     int           `json:"total_items"`
	Paid           bool          `json:"paid"`
	PaidAt         *time.Time    `json:"paid_at,omitempty"`
	StripeChargeID string        `json:"stripe_charge_id,omitempty" gorm:"type:varchar(100)"`
	Items          []OrderItem   `json:"items" gorm:"foreignKey:OrderID"`
	Receipt        *OrderReceipt `json:"receipt,omitempty" gorm:"foreignKey:OrderID"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// ProductIDs returns the distinct product ids referenced by the order's items.
func (o *Order) ProductIDs() []string {
	seen := make(map[string]bool, len(o.Items))
	ids := make([]string, 0, len(o.Items))
	for _, item := range o.Items {
		if !seen[item.ProductID] {
			seen[item.ProductID] = true
			ids = append(ids, item.ProductID)
		}
	}
	return ids
}
