package services

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/yeremiapane/restaurant-tableorder/models"
	"github.com/yeremiapane/restaurant-tableorder/realtime"
	"gorm.io/gorm"
)

// MenuService owns categories and products, including the availability
// switch staff flip during service.
type MenuService struct {
	db       *gorm.DB
	notifier Notifier
}

func NewMenuService(db *gorm.DB, notifier Notifier) *MenuService {
	return &MenuService{db: db, notifier: notifierOrNop(notifier)}
}

type ProductFilter struct {
	CategoryID    uint
	AvailableOnly bool
}

func (s *MenuService) ListCategories(ctx context.Context) ([]models.Category, error) {
	categories := []models.Category{}
	err := s.db.WithContext(ctx).Order("sort_order ASC, name ASC").Find(&categories).Error
	return categories, err
}

func (s *MenuService) ListProducts(ctx context.Context, f ProductFilter) ([]models.Product, error) {
	q := s.db.WithContext(ctx).Preload("Category").Order("name ASC")
	if f.CategoryID != 0 {
		q = q.Where("category_id = ?", f.CategoryID)
	}
	if f.AvailableOnly {
		q = q.Where("is_available = ?", true)
	}
	products := []models.Product{}
	if err := q.Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// SetAvailability toggles a product and tells every connected client.
func (s *MenuService) SetAvailability(ctx context.Context, productID uint, available bool) (*models.Product, error) {
	var product models.Product
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&product, productID).Error; err != nil {
			return lookupErr(err, "product", productID)
		}
		if err := tx.Model(&product).Update("is_available", available).Error; err != nil {
			return err
		}
		return tx.First(&product, productID).Error
	})
	if err != nil {
		return nil, err
	}

	s.publishProduct(&product)
	return &product, nil
}

func (s *MenuService) publishProduct(p *models.Product) {
	s.notifier.Publish(realtime.Message{Type: realtime.EventMenuItemUpdate, Payload: p})
}

type CategoryInput struct {
	Name      string `json:"name" binding:"required,max=100"`
	SortOrder int    `json:"sort_order"`
}

type CategoryUpdate struct {
	Name      *string `json:"name" binding:"omitempty,max=100"`
	SortOrder *int    `json:"sort_order"`
}

func (s *MenuService) GetCategory(ctx context.Context, categoryID uint) (*models.Category, error) {
	var category models.Category
	if err := s.db.WithContext(ctx).First(&category, categoryID).Error; err != nil {
		return nil, lookupErr(err, "category", categoryID)
	}
	return &category, nil
}

func (s *MenuService) CreateCategory(ctx context.Context, in CategoryInput) (*models.Category, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, invalidInput("category name is required")
	}
	category := models.Category{Name: name, SortOrder: in.SortOrder}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := uniqueCategoryName(tx, name, 0); err != nil {
			return err
		}
		return tx.Create(&category).Error
	})
	if err != nil {
		return nil, err
	}
	return &category, nil
}

func (s *MenuService) UpdateCategory(ctx context.Context, categoryID uint, in CategoryUpdate) (*models.Category, error) {
	var category models.Category
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&category, categoryID).Error; err != nil {
			return lookupErr(err, "category", categoryID)
		}
		updates := map[string]interface{}{}
		if in.Name != nil {
			name := strings.TrimSpace(*in.Name)
			if name == "" {
				return invalidInput("category name is required")
			}
			if err := uniqueCategoryName(tx, name, category.ID); err != nil {
				return err
			}
			updates["name"] = name
		}
		if in.SortOrder != nil {
			updates["sort_order"] = *in.SortOrder
		}
		if len(updates) > 0 {
			if err := tx.Model(&category).Updates(updates).Error; err != nil {
				return err
			}
		}
		return tx.First(&category, categoryID).Error
	})
	if err != nil {
		return nil, err
	}
	return &category, nil
}

// DeleteCategory soft-deletes an empty category. Products must be moved or
// deleted first.
func (s *MenuService) DeleteCategory(ctx context.Context, categoryID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var category models.Category
		if err := tx.First(&category, categoryID).Error; err != nil {
			return lookupErr(err, "category", categoryID)
		}
		var n int64
		if err := tx.Model(&models.Product{}).Where("category_id = ?", categoryID).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return invalidState("category %d still has %d products", categoryID, n)
		}
		return tx.Delete(&category).Error
	})
}

// uniqueCategoryName also counts soft-deleted rows, which still hold the unique index.
func uniqueCategoryName(tx *gorm.DB, name string, except uint) error {
	var n int64
	if err := tx.Unscoped().Model(&models.Category{}).
		Where("name = ? AND id <> ?", name, except).
		Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return invalidInput("category %q already exists", name)
	}
	return nil
}

type ProductInput struct {
	CategoryID  uint            `json:"category_id" binding:"required"`
	Name        string          `json:"name" binding:"required,max=255"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Image       *string         `json:"image" binding:"omitempty,max=255"`
	IsAvailable *bool           `json:"is_available"`
}

type ProductUpdate struct {
	CategoryID  *uint            `json:"category_id"`
	Name        *string          `json:"name" binding:"omitempty,max=255"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Image       *string          `json:"image" binding:"omitempty,max=255"`
	IsAvailable *bool            `json:"is_available"`
}

func (s *MenuService) GetProduct(ctx context.Context, productID uint) (*models.Product, error) {
	var product models.Product
	if err := s.db.WithContext(ctx).Preload("Category").First(&product, productID).Error; err != nil {
		return nil, lookupErr(err, "product", productID)
	}
	return &product, nil
}

// CreateProduct adds a menu item, available unless told otherwise.
func (s *MenuService) CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, invalidInput("product name is required")
	}
	if !in.Price.IsPositive() {
		return nil, invalidInput("price must be greater than zero")
	}
	product := models.Product{
		CategoryID:  in.CategoryID,
		Name:        name,
		Description: in.Description,
		Price:       in.Price,
		Image:       in.Image,
		IsAvailable: in.IsAvailable == nil || *in.IsAvailable,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := categoryExists(tx, in.CategoryID); err != nil {
			return err
		}
		if err := tx.Create(&product).Error; err != nil {
			return err
		}
		// gorm skips false on create when the column has a default
		if in.IsAvailable != nil && !*in.IsAvailable {
			if err := tx.Model(&product).Update("is_available", false).Error; err != nil {
				return err
			}
		}
		return tx.Preload("Category").First(&product, product.ID).Error
	})
	if err != nil {
		return nil, err
	}
	s.publishProduct(&product)
	return &product, nil
}

func (s *MenuService) UpdateProduct(ctx context.Context, productID uint, in ProductUpdate) (*models.Product, error) {
	var product models.Product
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&product, productID).Error; err != nil {
			return lookupErr(err, "product", productID)
		}
		updates := map[string]interface{}{}
		if in.CategoryID != nil {
			if err := categoryExists(tx, *in.CategoryID); err != nil {
				return err
			}
			updates["category_id"] = *in.CategoryID
		}
		if in.Name != nil {
			name := strings.TrimSpace(*in.Name)
			if name == "" {
				return invalidInput("product name is required")
			}
			updates["name"] = name
		}
		if in.Description != nil {
			updates["description"] = *in.Description
		}
		if in.Price != nil {
			if !in.Price.IsPositive() {
				return invalidInput("price must be greater than zero")
			}
			updates["price"] = *in.Price
		}
		if in.Image != nil {
			updates["image"] = *in.Image
		}
		if in.IsAvailable != nil {
			updates["is_available"] = *in.IsAvailable
		}
		if len(updates) > 0 {
			if err := tx.Model(&product).Updates(updates).Error; err != nil {
				return err
			}
		}
		return tx.Preload("Category").First(&product, productID).Error
	})
	if err != nil {
		return nil, err
	}
	s.publishProduct(&product)
	return &product, nil
}

// DeleteProduct soft-deletes a menu item. Past order lines keep their
// snapshot; clients are told the item is gone through an unavailable record.
func (s *MenuService) DeleteProduct(ctx context.Context, productID uint) error {
	var product models.Product
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&product, productID).Error; err != nil {
			return lookupErr(err, "product", productID)
		}
		if err := tx.Model(&product).Update("is_available", false).Error; err != nil {
			return err
		}
		return tx.Delete(&product).Error
	})
	if err != nil {
		return err
	}
	product.IsAvailable = false
	s.publishProduct(&product)
	return nil
}

func categoryExists(tx *gorm.DB, categoryID uint) error {
	var category models.Category
	if err := tx.First(&category, categoryID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return invalidInput("category %d does not exist", categoryID)
		}
		return err
	}
	return nil
}
