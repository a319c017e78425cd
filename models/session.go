package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Session is one dining visit at a table. TotalAmount is only ever changed
// through an atomic increment.
type Session struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	TableID       uint            `gorm:"not null;index" json:"table_id"`
	Table         *Table          `gorm:"foreignKey:TableID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"table,omitempty"`
	Status        SessionStatus   `gorm:"type:varchar(20);not null;default:'OPEN';index" json:"status"`
	TotalAmount   decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"total_amount"`
	PaymentMethod *PaymentMethod  `gorm:"type:varchar(20)" json:"payment_method"`
	StartedAt     time.Time       `gorm:"not null" json:"started_at"`
	EndedAt       *time.Time      `json:"ended_at,omitempty"`
	UpdatedAt     time.Time       `gorm:"not null" json:"updated_at"`
	Orders        []Order         `gorm:"foreignKey:SessionID" json:"orders,omitempty"`
}
