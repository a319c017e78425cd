package services

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restaurant-tableorder/models"
	"github.com/yeremiapane/restaurant-tableorder/utils"
	"gorm.io/gorm"
)

// UserService manages staff and admin accounts. Customers never have one.
type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

type CreateUserInput struct {
	Name     string      `json:"name" binding:"required,max=255"`
	Email    string      `json:"email" binding:"required,email"`
	Password string      `json:"password" binding:"required,min=6"`
	Role     models.Role `json:"role" binding:"required,oneof=staff admin"`
}

// UpdateUserInput leaves the password alone; it is only set on creation.
type UpdateUserInput struct {
	Name     *string      `json:"name" binding:"omitempty,max=255"`
	Role     *models.Role `json:"role" binding:"omitempty,oneof=staff admin"`
	IsActive *bool        `json:"is_active"`
}

func accountRole(r models.Role) bool {
	return r == models.RoleStaff || r == models.RoleAdmin
}

func (s *UserService) CreateUser(ctx context.Context, in CreateUserInput) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || strings.TrimSpace(in.Name) == "" {
		return nil, invalidInput("name and email are required")
	}
	if !accountRole(in.Role) {
		return nil, invalidInput("role must be staff or admin")
	}
	hashed, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := models.User{
		Name:     strings.TrimSpace(in.Name),
		Email:    email,
		Password: hashed,
		Role:     in.Role,
		IsActive: true,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Unscoped().Model(&models.User{}).Where("email = ?", email).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return invalidInput("email %s is already registered", email)
		}
		return tx.Create(&user).Error
	})
	if err != nil {
		return nil, err
	}

	utils.InfoLogger.WithFields(logrus.Fields{"user": user.ID, "role": user.Role}).Info("user created")
	return &user, nil
}

// ListUsers returns every account, newest first.
func (s *UserService) ListUsers(ctx context.Context) ([]models.User, error) {
	users := []models.User{}
	if err := s.db.WithContext(ctx).Order("created_at DESC, id DESC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (s *UserService) GetUser(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		return nil, lookupErr(err, "user", userID)
	}
	return &user, nil
}

// UpdateUser edits an account on behalf of actorID. Nobody can demote or
// deactivate themselves, so there is always an admin able to log in.
func (s *UserService) UpdateUser(ctx context.Context, actorID, userID uint, in UpdateUserInput) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&user, userID).Error; err != nil {
			return lookupErr(err, "user", userID)
		}
		updates := map[string]interface{}{}
		if in.Name != nil {
			name := strings.TrimSpace(*in.Name)
			if name == "" {
				return invalidInput("name is required")
			}
			updates["name"] = name
		}
		if in.Role != nil && *in.Role != user.Role {
			if !accountRole(*in.Role) {
				return invalidInput("role must be staff or admin")
			}
			if userID == actorID {
				return invalidState("cannot change your own role")
			}
			updates["role"] = *in.Role
		}
		if in.IsActive != nil && *in.IsActive != user.IsActive {
			if userID == actorID && !*in.IsActive {
				return invalidState("cannot deactivate your own account")
			}
			updates["is_active"] = *in.IsActive
		}
		if len(updates) > 0 {
			if err := tx.Model(&user).Updates(updates).Error; err != nil {
				return err
			}
		}
		return tx.First(&user, userID).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// DeleteUser deactivates and soft-deletes an account. The email stays taken.
func (s *UserService) DeleteUser(ctx context.Context, actorID, userID uint) error {
	if userID == actorID {
		return invalidState("cannot delete your own account")
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, userID).Error; err != nil {
			return lookupErr(err, "user", userID)
		}
		if err := tx.Model(&user).Update("is_active", false).Error; err != nil {
			return err
		}
		return tx.Delete(&user).Error
	})
}
