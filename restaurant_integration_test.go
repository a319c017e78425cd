package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/restaurant-tableorder/database"
	"github.com/yeremiapane/restaurant-tableorder/models"
	"github.com/yeremiapane/restaurant-tableorder/realtime"
	"github.com/yeremiapane/restaurant-tableorder/router"
	"github.com/yeremiapane/restaurant-tableorder/services"
	"github.com/yeremiapane/restaurant-tableorder/utils"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type harness struct {
	db    *gorm.DB
	hub   *realtime.Hub
	srv   *httptest.Server
	staff string
	admin string
}

func setupHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)
	utils.InitJWT("integration-secret")

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, database.Migrate(db))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	hub := realtime.NewHub(realtime.WithPingInterval(time.Second))
	go hub.Run(ctx)

	sessions := services.NewSessionService(db, hub)
	engine := router.SetupRouter(router.Deps{
		Sessions:  sessions,
		Orders:    services.NewOrderService(db, sessions, hub),
		Payments:  services.NewPaymentService(db, sessions, hub),
		Tables:    services.NewTableService(db),
		Menu:      services.NewMenuService(db, hub),
		Auth:      services.NewAuthService(db, time.Hour),
		Users:     services.NewUserService(db),
		Hub:       hub,
		RateRPS:   1000,
		RateBurst: 1000,
	})
	srv := httptest.NewServer(engine)
	t.Cleanup(srv.Close)

	staff, err := utils.GenerateToken(2, string(models.RoleStaff), time.Hour)
	require.NoError(t, err)
	admin, err := utils.GenerateToken(1, string(models.RoleAdmin), time.Hour)
	require.NoError(t, err)
	return &harness{db: db, hub: hub, srv: srv, staff: staff, admin: admin}
}

func (h *harness) call(t *testing.T, method, path, token string, body interface{}, out interface{}) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, h.srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env struct {
		Status  bool            `json:"status"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	if out != nil && env.Status {
		require.NoError(t, json.Unmarshal(env.Data, out))
	}
	return resp.StatusCode
}

func (h *harness) wsURL() string {
	return "ws" + strings.TrimPrefix(h.srv.URL, "http") + "/ws"
}

// listen runs a reconnecting client and funnels its messages into a channel.
func (h *harness) listen(t *testing.T, opts realtime.ClientOptions) (*realtime.Client, <-chan realtime.Message) {
	t.Helper()
	ch := make(chan realtime.Message, 64)
	connected := make(chan struct{}, 1)
	opts.URL = h.wsURL()
	opts.OnMessage = func(m realtime.Message) { ch <- m }
	opts.OnConnect = func() {
		select {
		case connected <- struct{}{}:
		default:
		}
	}
	opts.Backoff = realtime.Backoff{Base: 10 * time.Millisecond, Max: 50 * time.Millisecond, MaxAttempts: 3}
	client := realtime.NewClient(opts)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go client.Run(ctx)

	select {
	case <-connected:
	case <-time.After(2 * time.Second):
		t.Fatalf("%s client did not connect", opts.Role)
	}
	return client, ch
}

// waitFor drains ch until a message of type want arrives.
func waitFor(t *testing.T, ch <-chan realtime.Message, want realtime.EventType) realtime.Message {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case m := <-ch:
			if m.Type == want {
				return m
			}
		case <-deadline:
			t.Fatalf("no %s received", want)
			return realtime.Message{}
		}
	}
}

func TestDiningScenario(t *testing.T) {
	h := setupHarness(t)

	var t1, t2 models.Table
	require.Equal(t, http.StatusCreated, h.call(t, "POST", "/api/admin/tables", h.admin, gin.H{"name": "T1"}, &t1))
	require.Equal(t, http.StatusCreated, h.call(t, "POST", "/api/admin/tables", h.admin, gin.H{"name": "T2"}, &t2))
	product := models.Product{Name: "Nasi Goreng", Price: decimal.NewFromInt(50000), IsAvailable: true}
	cat := models.Category{Name: "Makanan"}
	require.NoError(t, h.db.Create(&cat).Error)
	product.CategoryID = cat.ID
	require.NoError(t, h.db.Create(&product).Error)

	_, staffCh := h.listen(t, realtime.ClientOptions{Role: models.RoleStaff, Token: h.staff})
	customer, custCh := h.listen(t, realtime.ClientOptions{Role: models.RoleCustomer, TableID: strconv.Itoa(int(t1.ID))})
	_, otherCh := h.listen(t, realtime.ClientOptions{Role: models.RoleCustomer, TableID: strconv.Itoa(int(t2.ID))})

	// open-or-join, twice
	var joined, again services.JoinResult
	require.Equal(t, http.StatusCreated, h.call(t, "POST", fmt.Sprintf("/api/tables/%d/session", t1.ID), "", nil, &joined))
	require.Equal(t, http.StatusOK, h.call(t, "POST", fmt.Sprintf("/api/tables/%d/session", t1.ID), "", nil, &again))
	assert.Equal(t, joined.SessionID, again.SessionID)
	assert.Equal(t, models.SessionOpen, joined.Status)
	waitFor(t, staffCh, realtime.EventSessionCreated)
	waitFor(t, custCh, realtime.EventSessionCreated)

	sessionPath := fmt.Sprintf("/api/sessions/%d", joined.SessionID)
	var order models.Order
	require.Equal(t, http.StatusCreated, h.call(t, "POST", sessionPath+"/orders", "", gin.H{
		"items": []gin.H{{"product_id": product.ID, "quantity": 2}},
	}, &order))
	newOrder := waitFor(t, staffCh, realtime.EventNewOrder)
	assert.Equal(t, strconv.Itoa(int(t1.ID)), newOrder.TableID)
	assert.NotZero(t, newOrder.Timestamp)

	var session models.Session
	require.Equal(t, http.StatusOK, h.call(t, "GET", sessionPath, "", nil, &session))
	assert.True(t, decimal.NewFromInt(100000).Equal(session.TotalAmount))

	// the customer calls for help over the socket
	require.NoError(t, customer.Send(realtime.Message{Type: realtime.EventCallStaff}))
	help := waitFor(t, staffCh, realtime.EventCallStaff)
	assert.Equal(t, strconv.Itoa(int(t1.ID)), help.TableID)

	var payment models.Payment
	require.Equal(t, http.StatusCreated, h.call(t, "POST", sessionPath+"/payments", "", gin.H{"method": "CASH"}, &payment))
	waitFor(t, custCh, realtime.EventPaymentRequested)
	var table models.Table
	require.Equal(t, http.StatusOK, h.call(t, "GET", fmt.Sprintf("/api/staff/tables/%d", t1.ID), h.staff, nil, &table))
	assert.Equal(t, models.TablePaymentRequested, table.Status)

	require.Equal(t, http.StatusOK, h.call(t, "POST", fmt.Sprintf("/api/staff/payments/%d/confirm", payment.ID), h.staff, gin.H{"status": "SUCCESS"}, &payment))
	waitFor(t, custCh, realtime.EventPaymentSuccess)
	require.Equal(t, http.StatusOK, h.call(t, "GET", fmt.Sprintf("/api/staff/tables/%d", t1.ID), h.staff, nil, &table))
	assert.Equal(t, models.TableCleaning, table.Status)

	require.Equal(t, http.StatusOK, h.call(t, "POST", fmt.Sprintf("/api/staff/sessions/%d/close", joined.SessionID), h.staff, nil, &session))
	assert.Equal(t, models.SessionClosed, session.Status)
	assert.NotNil(t, session.EndedAt)
	update := waitFor(t, staffCh, realtime.EventSessionStatusUpdate)
	assert.Equal(t, strconv.Itoa(int(joined.SessionID)), update.SessionID)

	require.Equal(t, http.StatusOK, h.call(t, "GET", fmt.Sprintf("/api/staff/tables/%d", t1.ID), h.staff, nil, &table))
	assert.Equal(t, models.TableAvailable, table.Status)
	assert.Nil(t, table.CurrentSessionID)

	// menu changes reach everyone, including the other table, which saw nothing else
	require.Equal(t, http.StatusOK, h.call(t, "PATCH", fmt.Sprintf("/api/staff/menu/products/%d/availability", product.ID), h.staff, gin.H{"is_available": false}, nil))
	select {
	case m := <-otherCh:
		assert.Equal(t, realtime.EventMenuItemUpdate, m.Type)
		assert.Empty(t, m.TableID)
	case <-time.After(2 * time.Second):
		t.Fatal("menu update not received")
	}
}

func TestStaffHandshakeNeedsToken(t *testing.T) {
	h := setupHarness(t)

	_, resp, err := websocket.DefaultDialer.Dial(h.wsURL()+"?role=staff", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(h.wsURL()+"?role=customer", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
