package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const CreatedByCustomer = "customer"

// Order is one batch of items submitted together. Only item statuses change
// after creation.
type Order struct {
	ID        uint        `gorm:"primaryKey" json:"id"`
	SessionID uint        `gorm:"not null;index" json:"session_id"`
	CreatedBy string      `gorm:"type:varchar(100);not null;default:'customer'" json:"created_by"`
	Items     []OrderItem `gorm:"foreignKey:OrderID" json:"items"`
	CreatedAt time.Time   `gorm:"not null;index" json:"created_at"`
}

// Total is the sum of the line totals of the order.
func (o Order) Total() decimal.Decimal {
	total := decimal.Zero
	for _, it := range o.Items {
		total = total.Add(it.LineTotal())
	}
	return total
}

// HasItemIn reports whether at least one line is in one of statuses.
func (o Order) HasItemIn(statuses ...ItemStatus) bool {
	for _, it := range o.Items {
		for _, s := range statuses {
			if it.Status == s {
				return true
			}
		}
	}
	return false
}
