package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment is one attempt at settling a session. Amount is the session total
// at the time the payment was requested.
type Payment struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	SessionID    uint            `gorm:"not null;index" json:"session_id"`
	Amount       decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"amount"`
	Method       PaymentMethod   `gorm:"type:varchar(20);not null" json:"method"`
	Status       PaymentStatus   `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	ReceiptImage *string         `gorm:"type:varchar(255)" json:"receipt_image,omitempty"`
	ConfirmedBy  *uint           `json:"confirmed_by,omitempty"`
	PaidAt       *time.Time      `json:"paid_at,omitempty"`
	CreatedAt    time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"not null" json:"updated_at"`
}
