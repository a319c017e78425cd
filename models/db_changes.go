package models

import (
	"time"
)

const (
	ChangeInsert = "INSERT"
	ChangeUpdate = "UPDATE"
)

// DBChange is a row written by the change-feed triggers.
type DBChange struct {
	ID         uint      `gorm:"primaryKey"`
	Collection string    `gorm:"column:table_name;type:varchar(50);not null;index:idx_table_action"`
	RecordID   int64     `gorm:"not null;index:idx_record"`
	ActionType string    `gorm:"type:varchar(10);not null;index:idx_table_action"`
	// NewStatus is the status the update wrote; empty for inserts.
	NewStatus  string    `gorm:"type:varchar(30)"`
	ChangedAt  time.Time `gorm:"not null;autoCreateTime"`
	Processed  bool      `gorm:"not null;default:false;index:idx_processed"`
}

func (DBChange) TableName() string { return "db_changes" }
