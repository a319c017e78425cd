package services

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/restaurant-tableorder/models"
	"github.com/yeremiapane/restaurant-tableorder/realtime"
)

func TestMenuListing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	drinks := models.Category{Name: "Drinks", SortOrder: -1}
	require.NoError(t, f.db.Create(&drinks).Error)

	f.createProduct(t, "Soup", "20000")
	tea := models.Product{CategoryID: drinks.ID, Name: "Tea", IsAvailable: true}
	require.NoError(t, f.db.Create(&tea).Error)
	off := f.createProduct(t, "Lobster", "300000")
	require.NoError(t, f.db.Model(&off).Update("is_available", false).Error)

	categories, err := f.menu.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, categories, 2)
	assert.Equal(t, "Drinks", categories[0].Name)

	all, err := f.menu.ListProducts(ctx, ProductFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	available, err := f.menu.ListProducts(ctx, ProductFilter{AvailableOnly: true, CategoryID: f.category.ID})
	require.NoError(t, err)
	require.Len(t, available, 1)
	assert.Equal(t, "Soup", available[0].Name)
	require.NotNil(t, available[0].Category)
	assert.Equal(t, "Mains", available[0].Category.Name)
}

func TestSetAvailability(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.createProduct(t, "Soup", "20000")

	got, err := f.menu.SetAvailability(ctx, p.ID, false)
	require.NoError(t, err)
	assert.False(t, got.IsAvailable)

	msg, ok := f.notifier.last(realtime.EventMenuItemUpdate)
	require.True(t, ok)
	assert.Empty(t, msg.TableID)
	assert.Empty(t, msg.SessionID)

	_, err = f.menu.SetAvailability(ctx, 404, true)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCategoryCRUD(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	desserts, err := f.menu.CreateCategory(ctx, CategoryInput{Name: " Desserts ", SortOrder: 3})
	require.NoError(t, err)
	assert.Equal(t, "Desserts", desserts.Name)

	_, err = f.menu.CreateCategory(ctx, CategoryInput{Name: "Mains"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	name, order := "Sweets", 1
	got, err := f.menu.UpdateCategory(ctx, desserts.ID, CategoryUpdate{Name: &name, SortOrder: &order})
	require.NoError(t, err)
	assert.Equal(t, "Sweets", got.Name)
	assert.Equal(t, 1, got.SortOrder)

	taken := "Mains"
	_, err = f.menu.UpdateCategory(ctx, desserts.ID, CategoryUpdate{Name: &taken})
	assert.ErrorIs(t, err, ErrInvalidInput)

	// a category with products cannot go
	f.createProduct(t, "Soup", "20000")
	assert.ErrorIs(t, f.menu.DeleteCategory(ctx, f.category.ID), ErrInvalidState)

	require.NoError(t, f.menu.DeleteCategory(ctx, desserts.ID))
	_, err = f.menu.GetCategory(ctx, desserts.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, f.menu.DeleteCategory(ctx, desserts.ID), ErrNotFound)

	// the soft-deleted name stays reserved
	_, err = f.menu.CreateCategory(ctx, CategoryInput{Name: "Sweets"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestProductCRUDEmitsMenuUpdates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	hidden := false
	p, err := f.menu.CreateProduct(ctx, ProductInput{
		CategoryID:  f.category.ID,
		Name:        "Rendang",
		Price:       decimal.RequireFromString("45000"),
		IsAvailable: &hidden,
	})
	require.NoError(t, err)
	assert.False(t, p.IsAvailable)
	require.NotNil(t, p.Category)
	assert.Equal(t, "Mains", p.Category.Name)
	msg, ok := f.notifier.last(realtime.EventMenuItemUpdate)
	require.True(t, ok)
	assert.Equal(t, p.ID, msg.Payload.(*models.Product).ID)

	price, visible := decimal.RequireFromString("47500"), true
	f.notifier.reset()
	p, err = f.menu.UpdateProduct(ctx, p.ID, ProductUpdate{Price: &price, IsAvailable: &visible})
	require.NoError(t, err)
	assert.True(t, price.Equal(p.Price))
	assert.True(t, p.IsAvailable)
	assert.Equal(t, []realtime.EventType{realtime.EventMenuItemUpdate}, f.notifier.types())

	f.notifier.reset()
	require.NoError(t, f.menu.DeleteProduct(ctx, p.ID))
	msg, ok = f.notifier.last(realtime.EventMenuItemUpdate)
	require.True(t, ok)
	gone := msg.Payload.(*models.Product)
	assert.Equal(t, p.ID, gone.ID)
	assert.False(t, gone.IsAvailable)

	_, err = f.menu.GetProduct(ctx, p.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	listed, err := f.menu.ListProducts(ctx, ProductFilter{})
	require.NoError(t, err)
	assert.Empty(t, listed)
	assert.ErrorIs(t, f.menu.DeleteProduct(ctx, p.ID), ErrNotFound)
}

func TestProductValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.menu.CreateProduct(ctx, ProductInput{CategoryID: f.category.ID, Name: "Free", Price: decimal.Zero})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.menu.CreateProduct(ctx, ProductInput{CategoryID: 404, Name: "Orphan", Price: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.menu.CreateProduct(ctx, ProductInput{CategoryID: f.category.ID, Name: " ", Price: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, ErrInvalidInput)

	p := f.createProduct(t, "Soup", "20000")
	negative := decimal.NewFromInt(-5)
	_, err = f.menu.UpdateProduct(ctx, p.ID, ProductUpdate{Price: &negative})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.menu.UpdateProduct(ctx, 404, ProductUpdate{})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, f.notifier.types())
}

func TestDeletedProductCannotBeOrdered(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, sessionID := openSession(t, f, "T1")
	p := f.createProduct(t, "Soup", "20000")
	require.NoError(t, f.menu.DeleteProduct(ctx, p.ID))

	_, err := f.orders.PlaceOrder(ctx, PlaceOrderInput{
		SessionID: sessionID,
		Items:     []OrderItemInput{{ProductID: p.ID, Quantity: 1}},
	})
	assert.ErrorIs(t, err, ErrInvalidInput)
}
