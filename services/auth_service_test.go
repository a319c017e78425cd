package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/restaurant-tableorder/models"
	"github.com/yeremiapane/restaurant-tableorder/utils"
	"gorm.io/gorm"
)

func createUser(t *testing.T, db *gorm.DB, email, password string, role models.Role, active bool) models.User {
	t.Helper()
	hashed, err := HashPassword(password)
	require.NoError(t, err)
	u := models.User{Name: "user", Email: email, Password: hashed, Role: role, IsActive: true}
	require.NoError(t, db.Create(&u).Error)
	if !active {
		require.NoError(t, db.Model(&u).Update("is_active", false).Error)
	}
	return u
}

func TestLoginIssuesToken(t *testing.T) {
	db := setupTestDB(t)
	utils.InitJWT("test-secret")
	u := createUser(t, db, "staff@example.com", "s3cret!", models.RoleStaff, true)

	auth := NewAuthService(db, time.Hour)
	res, err := auth.Login(context.Background(), " Staff@Example.com ", "s3cret!")
	require.NoError(t, err)
	assert.Equal(t, u.ID, res.User.ID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), res.ExpiresAt, time.Minute)

	claims, err := utils.ParseToken(res.Token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)
	assert.Equal(t, string(models.RoleStaff), claims.Role)
}

func TestLoginRejections(t *testing.T) {
	db := setupTestDB(t)
	utils.InitJWT("test-secret")
	createUser(t, db, "staff@example.com", "s3cret!", models.RoleStaff, true)
	createUser(t, db, "gone@example.com", "s3cret!", models.RoleStaff, false)
	auth := NewAuthService(db, 0)

	cases := map[string][2]string{
		"unknown email":  {"nobody@example.com", "s3cret!"},
		"wrong password": {"staff@example.com", "nope"},
		"inactive":       {"gone@example.com", "s3cret!"},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := auth.Login(context.Background(), c[0], c[1])
			assert.ErrorIs(t, err, ErrUnauthorized)
		})
	}
}

func TestHashPasswordTooShort(t *testing.T) {
	_, err := HashPassword("abc")
	assert.ErrorIs(t, err, ErrInvalidInput)
}
