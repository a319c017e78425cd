package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restaurant-tableorder/models"
	"github.com/yeremiapane/restaurant-tableorder/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const DefaultTokenTTL = 12 * time.Hour

// AuthService issues bearer tokens to staff and admin accounts.
type AuthService struct {
	db  *gorm.DB
	ttl time.Duration
}

func NewAuthService(db *gorm.DB, ttl time.Duration) *AuthService {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &AuthService{db: db, ttl: ttl}
}

type LoginResult struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      models.User `json:"user"`
}

// HashPassword returns the bcrypt hash stored in users.password.
func HashPassword(password string) (string, error) {
	if len(password) < 6 {
		return "", invalidInput("password must be at least 6 characters")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Login checks the credentials and signs a token carrying the user's role.
// Unknown email, wrong password and inactive accounts all fail the same way.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		utils.InfoLogger.WithField("email", user.Email).Info("login rejected: bad password")
		return nil, ErrUnauthorized
	}
	if !user.IsActive {
		utils.InfoLogger.WithField("email", user.Email).Info("login rejected: inactive account")
		return nil, ErrUnauthorized
	}

	token, err := utils.GenerateToken(user.ID, string(user.Role), s.ttl)
	if err != nil {
		return nil, err
	}
	utils.InfoLogger.WithFields(logrus.Fields{
		"user": user.ID,
		"role": user.Role,
	}).Info("user logged in")
	return &LoginResult{Token: token, ExpiresAt: time.Now().Add(s.ttl), User: user}, nil
}

// CurrentUser resolves the account behind a token. Accounts deleted or
// deactivated after the token was issued no longer count.
func (s *AuthService) CurrentUser(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrUnauthorized
	}
	return &user, nil
}
