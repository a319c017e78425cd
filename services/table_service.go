package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/yeremiapane/restaurant-tableorder/models"
	"gorm.io/gorm"
)

// TableService manages the physical tables. Status changes are not made
// here; they belong to SessionService.
type TableService struct {
	db *gorm.DB
}

func NewTableService(db *gorm.DB) *TableService {
	return &TableService{db: db}
}

type CreateTableInput struct {
	Name     string           `json:"name" binding:"required,max=100"`
	Zone     string           `json:"zone" binding:"max=100"`
	Type     models.TableType `json:"type" binding:"omitempty,table_type"`
	Capacity int              `json:"capacity" binding:"omitempty,min=1,max=50"`
	QRCode   string           `json:"qr_code" binding:"omitempty,max=64"`
}

// CreateTable adds an AVAILABLE table. A random QR token is generated when none is given.
func (s *TableService) CreateTable(ctx context.Context, in CreateTableInput) (*models.Table, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, invalidInput("table name is required")
	}
	if in.Type == "" {
		in.Type = models.TableTypeRegular
	}
	if !in.Type.IsValid() {
		return nil, invalidInput("unknown table type %q", in.Type)
	}
	if in.Capacity == 0 {
		in.Capacity = 4
	}
	if in.QRCode == "" {
		in.QRCode = uuid.NewString()
	}

	table := models.Table{
		Name:     in.Name,
		Zone:     in.Zone,
		Type:     in.Type,
		Capacity: in.Capacity,
		QRCode:   in.QRCode,
		Status:   models.TableAvailable,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Unscoped().Model(&models.Table{}).Where("qr_code = ?", in.QRCode).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return invalidInput("qr code %q already in use", in.QRCode)
		}
		return tx.Create(&table).Error
	})
	if err != nil {
		return nil, err
	}
	return &table, nil
}

// ListTables returns all tables ordered by name.
func (s *TableService) ListTables(ctx context.Context) ([]models.Table, error) {
	tables := []models.Table{}
	if err := s.db.WithContext(ctx).Order("name ASC, id ASC").Find(&tables).Error; err != nil {
		return nil, err
	}
	return tables, nil
}

func (s *TableService) GetTable(ctx context.Context, tableID uint) (*models.Table, error) {
	var table models.Table
	if err := s.db.WithContext(ctx).First(&table, tableID).Error; err != nil {
		return nil, lookupErr(err, "table", tableID)
	}
	return &table, nil
}

// GetTableByQR resolves a scanned QR token.
func (s *TableService) GetTableByQR(ctx context.Context, token string) (*models.Table, error) {
	var table models.Table
	err := s.db.WithContext(ctx).Where("qr_code = ?", token).First(&table).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("no table for qr code %q: %w", token, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &table, nil
}

// DeleteTable soft-deletes a table. A table bound to a session cannot be deleted.
func (s *TableService) DeleteTable(ctx context.Context, tableID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND current_session_id IS NULL", tableID).Delete(&models.Table{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			return nil
		}
		var table models.Table
		if err := tx.First(&table, tableID).Error; err != nil {
			return lookupErr(err, "table", tableID)
		}
		return invalidState("table %d has an active session", tableID)
	})
}

type UpdateTableInput struct {
	Name     *string           `json:"name" binding:"omitempty,max=100"`
	Zone     *string           `json:"zone" binding:"omitempty,max=100"`
	Type     *models.TableType `json:"type" binding:"omitempty,table_type"`
	Capacity *int              `json:"capacity" binding:"omitempty,min=1,max=50"`
	// RegenerateQR issues a new QR token, invalidating printed codes.
	RegenerateQR bool `json:"regenerate_qr"`
}

// UpdateTable edits the descriptive fields of a table. Status and session
// binding are left to SessionService.
func (s *TableService) UpdateTable(ctx context.Context, tableID uint, in UpdateTableInput) (*models.Table, error) {
	var table models.Table
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&table, tableID).Error; err != nil {
			return lookupErr(err, "table", tableID)
		}
		updates := map[string]interface{}{}
		if in.Name != nil {
			name := strings.TrimSpace(*in.Name)
			if name == "" {
				return invalidInput("table name is required")
			}
			updates["name"] = name
		}
		if in.Zone != nil {
			updates["zone"] = *in.Zone
		}
		if in.Type != nil {
			if !in.Type.IsValid() {
				return invalidInput("unknown table type %q", *in.Type)
			}
			updates["type"] = *in.Type
		}
		if in.Capacity != nil {
			if *in.Capacity < 1 {
				return invalidInput("capacity must be at least 1")
			}
			updates["capacity"] = *in.Capacity
		}
		if in.RegenerateQR {
			updates["qr_code"] = uuid.NewString()
		}
		if len(updates) > 0 {
			if err := tx.Model(&table).Updates(updates).Error; err != nil {
				return err
			}
		}
		return tx.First(&table, tableID).Error
	})
	if err != nil {
		return nil, err
	}
	return &table, nil
}
