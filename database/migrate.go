package database

import (
	"fmt"

	"github.com/yeremiapane/restaurant-tableorder/models"
	"gorm.io/gorm"
)

// Migrate creates the schema and installs the change-feed triggers.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	if err := ExecuteTriggers(db); err != nil {
		return err
	}
	return nil
}
