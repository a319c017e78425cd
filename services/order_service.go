package services

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restaurant-tableorder/models"
	"github.com/yeremiapane/restaurant-tableorder/realtime"
	"github.com/yeremiapane/restaurant-tableorder/utils"
	"gorm.io/gorm"
)

// OrderService is the order ledger: orders are appended to a session and
// afterwards only their item statuses change.
type OrderService struct {
	db       *gorm.DB
	sessions *SessionService
	notifier Notifier
}

func NewOrderService(db *gorm.DB, sessions *SessionService, notifier Notifier) *OrderService {
	return &OrderService{db: db, sessions: sessions, notifier: notifierOrNop(notifier)}
}

type OrderItemInput struct {
	ProductID uint   `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
	Note      string `json:"note" binding:"max=500"`
}

type PlaceOrderInput struct {
	SessionID uint
	Items     []OrderItemInput
	// CreatedBy is "customer" or a staff identity.
	CreatedBy string
	// Confirm places the items as CONFIRMED instead of PENDING.
	Confirm bool
}

type OrderFilter struct {
	SessionID    uint
	ItemStatuses []models.ItemStatus
}

// PlaceOrder appends an order to the session, adds its total to the session
// with an atomic increment and reopens the session when needed. Prices and
// names are read from the menu at this moment.
func (s *OrderService) PlaceOrder(ctx context.Context, in PlaceOrderInput) (*models.Order, error) {
	if len(in.Items) == 0 {
		return nil, invalidInput("order has no items")
	}
	for _, it := range in.Items {
		if it.Quantity < 1 {
			return nil, invalidInput("quantity for product %d must be at least 1", it.ProductID)
		}
	}
	if in.CreatedBy == "" {
		in.CreatedBy = models.CreatedByCustomer
	}

	var (
		order models.Order
		tr    *TransitionResult
	)
	err := withRetry(ctx, func() error {
		order = models.Order{}
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			session, err := lockSession(tx, in.SessionID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return invalidState("session %d does not exist", in.SessionID)
				}
				return err
			}
			if session.Status == models.SessionClosed {
				return invalidState("session %d is closed", session.ID)
			}

			items, err := s.buildItems(tx, in)
			if err != nil {
				return err
			}
			order = models.Order{
				SessionID: session.ID,
				CreatedBy: in.CreatedBy,
				Items:     items,
			}
			mark, err := changeMark(tx)
			if err != nil {
				return err
			}
			if err := tx.Create(&order).Error; err != nil {
				return err
			}
			if err := markOwnChanges(tx, mark, "orders", order.ID); err != nil {
				return err
			}

			res := tx.Model(&models.Session{}).
				Where("id = ?", session.ID).
				Update("total_amount", gorm.Expr("total_amount + CAST(? AS DECIMAL(14,2))", order.Total()))
			if res.Error != nil {
				return res.Error
			}

			tr, err = s.sessions.ReopenForOrder(tx, session)
			if err != nil {
				return err
			}
			// pick up the incremented total for the event payload
			return tx.First(tr.Session, session.ID).Error
		})
	})
	if err != nil {
		return nil, err
	}

	utils.InfoLogger.WithFields(logrus.Fields{
		"session": order.SessionID,
		"order":   order.ID,
		"total":   order.Total().String(),
	}).Info("order placed")

	tableID := tr.Session.TableID
	msgs := []realtime.Message{realtime.NewMessage(realtime.EventNewOrder, &order, tableID, order.SessionID)}
	if in.Confirm {
		msgs = append(msgs, realtime.NewMessage(realtime.EventOrderConfirmed, &order, tableID, order.SessionID))
	}
	msgs = append(msgs, tr.Messages()...)
	publishAll(s.notifier, msgs)
	return &order, nil
}

func (s *OrderService) buildItems(tx *gorm.DB, in PlaceOrderInput) ([]models.OrderItem, error) {
	ids := make([]uint, 0, len(in.Items))
	for _, it := range in.Items {
		ids = append(ids, it.ProductID)
	}
	var products []models.Product
	if err := tx.Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, err
	}
	byID := make(map[uint]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	status := models.ItemPending
	if in.Confirm {
		status = models.ItemConfirmed
	}
	items := make([]models.OrderItem, 0, len(in.Items))
	for _, it := range in.Items {
		p, ok := byID[it.ProductID]
		if !ok {
			return nil, invalidInput("product %d does not exist", it.ProductID)
		}
		if !p.IsAvailable {
			return nil, invalidInput("product %q is not available", p.Name)
		}
		items = append(items, models.OrderItem{
			ProductID: p.ID,
			Name:      p.Name,
			Price:     p.Price,
			Quantity:  it.Quantity,
			Note:      it.Note,
			Status:    status,
		})
	}
	return items, nil
}

// UpdateItemStatus sets the status of one line of an order. Any status may
// follow any other.
func (s *OrderService) UpdateItemStatus(ctx context.Context, orderID, itemID uint, status models.ItemStatus) (*models.Order, error) {
	if !status.IsValid() {
		return nil, invalidInput("unknown item status %q", status)
	}

	var (
		order   models.Order
		tableID uint
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&order, orderID).Error; err != nil {
			return lookupErr(err, "order", orderID)
		}
		res := tx.Model(&models.OrderItem{}).
			Where("id = ? AND order_id = ?", itemID, orderID).
			Update("status", status)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// MySQL reports zero rows when nothing changed
			var n int64
			if err := tx.Model(&models.OrderItem{}).Where("id = ? AND order_id = ?", itemID, orderID).Count(&n).Error; err != nil {
				return err
			}
			if n == 0 {
				return notFound("order item", itemID)
			}
		}
		var err error
		order, tableID, err = loadOrder(tx, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publishItemChange(&order, tableID, status, &itemID)
	return &order, nil
}

// UpdateAllItemStatus sets every line of the order to status.
func (s *OrderService) UpdateAllItemStatus(ctx context.Context, orderID uint, status models.ItemStatus) (*models.Order, error) {
	if !status.IsValid() {
		return nil, invalidInput("unknown item status %q", status)
	}

	var (
		order   models.Order
		tableID uint
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&order, orderID).Error; err != nil {
			return lookupErr(err, "order", orderID)
		}
		if err := tx.Model(&models.OrderItem{}).Where("order_id = ?", orderID).Update("status", status).Error; err != nil {
			return err
		}
		var err error
		order, tableID, err = loadOrder(tx, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publishItemChange(&order, tableID, status, nil)
	return &order, nil
}

func (s *OrderService) publishItemChange(order *models.Order, tableID uint, status models.ItemStatus, itemID *uint) {
	event := realtime.EventOrderStatusUpdate
	if status == models.ItemConfirmed {
		event = realtime.EventOrderConfirmed
	}
	payload := map[string]interface{}{
		"order":  order,
		"status": status,
	}
	if itemID != nil {
		payload["item_id"] = *itemID
	}
	s.notifier.Publish(realtime.NewMessage(event, payload, tableID, order.SessionID))
}

// ListOrders returns orders most recent first, optionally scoped to a session
// and to orders having at least one item in one of the given statuses.
func (s *OrderService) ListOrders(ctx context.Context, f OrderFilter) ([]models.Order, error) {
	for _, st := range f.ItemStatuses {
		if !st.IsValid() {
			return nil, invalidInput("unknown item status %q", st)
		}
	}

	q := s.db.WithContext(ctx).Preload("Items", orderItemsByID).Order("created_at DESC, id DESC")
	if f.SessionID != 0 {
		q = q.Where("session_id = ?", f.SessionID)
	}
	if len(f.ItemStatuses) > 0 {
		q = q.Where("EXISTS (SELECT 1 FROM order_items oi WHERE oi.order_id = orders.id AND oi.status IN ?)", f.ItemStatuses)
	}

	orders := []models.Order{}
	if err := q.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// GetOrder loads one order with its items.
func (s *OrderService) GetOrder(ctx context.Context, orderID uint) (*models.Order, error) {
	order, _, err := loadOrder(s.db.WithContext(ctx), orderID)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func loadOrder(db *gorm.DB, orderID uint) (models.Order, uint, error) {
	var order models.Order
	if err := db.Preload("Items", orderItemsByID).First(&order, orderID).Error; err != nil {
		return order, 0, lookupErr(err, "order", orderID)
	}
	var session models.Session
	if err := db.Select("id", "table_id").First(&session, order.SessionID).Error; err != nil {
		return order, 0, lookupErr(err, "session", order.SessionID)
	}
	return order, session.TableID, nil
}

func orderItemsByID(db *gorm.DB) *gorm.DB {
	return db.Order("id ASC")
}
