package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderItem is a line of an order. Name and Price are captured from the
// product when the order is placed.
type OrderItem struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	OrderID   uint            `gorm:"not null;index" json:"order_id"`
	ProductID uint            `gorm:"not null" json:"product_id"`
	Name      string          `gorm:"type:varchar(255);not null" json:"name"`
	Price     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	Quantity  int             `gorm:"not null" json:"quantity"`
	Note      string          `gorm:"type:text" json:"note,omitempty"`
	Status    ItemStatus      `gorm:"type:varchar(20);not null;default:'PENDING'" json:"status"`
	UpdatedAt time.Time       `gorm:"not null" json:"updated_at"`
}

func (i OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
