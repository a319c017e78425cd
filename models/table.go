package models

import (
	"time"

	"gorm.io/gorm"
)

type Table struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	Name             string         `gorm:"type:varchar(100);not null" json:"name"`
	Zone             string         `gorm:"type:varchar(100)" json:"zone"`
	Type             TableType      `gorm:"type:varchar(20);not null;default:'REGULAR'" json:"type"`
	Capacity         int            `gorm:"not null;default:4" json:"capacity"`
	QRCode           string         `gorm:"type:varchar(64);uniqueIndex;not null" json:"qr_code"`
	Status           TableStatus    `gorm:"type:varchar(20);not null;default:'AVAILABLE';index" json:"status"`
	CurrentSessionID *uint          `gorm:"index" json:"current_session_id"`
	CreatedAt        time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}
