package services

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/restaurant-tableorder/database"
	"github.com/yeremiapane/restaurant-tableorder/models"
	"github.com/yeremiapane/restaurant-tableorder/realtime"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []realtime.Message
}

func (r *recordingNotifier) Publish(m realtime.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, m)
}

func (r *recordingNotifier) types() []realtime.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]realtime.EventType, 0, len(r.msgs))
	for _, m := range r.msgs {
		out = append(out, m.Type)
	}
	return out
}

func (r *recordingNotifier) last(t realtime.EventType) (realtime.Message, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.msgs) - 1; i >= 0; i-- {
		if r.msgs[i].Type == t {
			return r.msgs[i], true
		}
	}
	return realtime.Message{}, false
}

func (r *recordingNotifier) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = nil
}

type fixture struct {
	db       *gorm.DB
	notifier *recordingNotifier
	sessions *SessionService
	orders   *OrderService
	payments *PaymentService
	tables   *TableService
	menu     *MenuService
	category models.Category
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// one connection: every test gets its own private in-memory database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := setupTestDB(t)
	n := &recordingNotifier{}
	sessions := NewSessionService(db, n)

	f := &fixture{
		db:       db,
		notifier: n,
		sessions: sessions,
		orders:   NewOrderService(db, sessions, n),
		payments: NewPaymentService(db, sessions, n),
		tables:   NewTableService(db),
		menu:     NewMenuService(db, n),
		category: models.Category{Name: "Mains"},
	}
	require.NoError(t, db.Create(&f.category).Error)
	return f
}

func (f *fixture) createTable(t *testing.T, name string) models.Table {
	t.Helper()
	table, err := f.tables.CreateTable(context.Background(), CreateTableInput{Name: name})
	require.NoError(t, err)
	return *table
}

func (f *fixture) createProduct(t *testing.T, name, price string) models.Product {
	t.Helper()
	p := models.Product{
		CategoryID:  f.category.ID,
		Name:        name,
		Price:       decimal.RequireFromString(price),
		IsAvailable: true,
	}
	require.NoError(t, f.db.Create(&p).Error)
	return p
}

func (f *fixture) table(t *testing.T, id uint) models.Table {
	t.Helper()
	var table models.Table
	require.NoError(t, f.db.First(&table, id).Error)
	return table
}

func (f *fixture) session(t *testing.T, id uint) models.Session {
	t.Helper()
	var s models.Session
	require.NoError(t, f.db.First(&s, id).Error)
	return s
}

// assertBindingInvariant checks every table: bound to a session exactly when not AVAILABLE.
func (f *fixture) assertBindingInvariant(t *testing.T) {
	t.Helper()
	var tables []models.Table
	require.NoError(t, f.db.Unscoped().Find(&tables).Error)
	for _, tb := range tables {
		bound := tb.CurrentSessionID != nil
		assert.Equal(t, tb.Status.RequiresSession(), bound,
			"table %d status %s bound=%v", tb.ID, tb.Status, bound)
	}
}

func assertAmount(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
}
