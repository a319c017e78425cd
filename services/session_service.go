package services

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restaurant-tableorder/models"
	"github.com/yeremiapane/restaurant-tableorder/realtime"
	"github.com/yeremiapane/restaurant-tableorder/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SessionService is the only writer of Table.status, Session.status and the
// table to session binding.
type SessionService struct {
	db       *gorm.DB
	notifier Notifier
	now      func() time.Time
}

func NewSessionService(db *gorm.DB, notifier Notifier) *SessionService {
	return &SessionService{
		db:       db,
		notifier: notifierOrNop(notifier),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// JoinResult is returned by OpenOrJoin.
type JoinResult struct {
	SessionID   uint                 `json:"session_id"`
	Status      models.SessionStatus `json:"status"`
	TotalAmount decimal.Decimal      `json:"total_amount"`
	TableID     uint                 `json:"table_id"`
	TableName   string               `json:"table_name"`
	Created     bool                 `json:"created"`
	Orders      []models.Order       `json:"orders"`
}

type SessionFilter struct {
	TableID  uint
	Statuses []models.SessionStatus
	Limit    int
}

// OpenOrJoin returns the active session of the table, creating and binding a
// new one when there is none. Concurrent callers for the same table end up
// with the same session: the binding is a compare-and-set on
// tables.current_session_id and the loser retries as a join.
func (s *SessionService) OpenOrJoin(ctx context.Context, tableID uint) (*JoinResult, error) {
	var (
		result *JoinResult
		msgs   []realtime.Message
	)

	err := withRetry(ctx, func() error {
		msgs = nil
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var table models.Table
			if err := tx.First(&table, tableID).Error; err != nil {
				return lookupErr(err, "table", tableID)
			}

			var session models.Session
			err := tx.Where("table_id = ? AND status IN ?", tableID, models.ActiveSessionStatuses).
				Order("id DESC").
				First(&session).Error
			if err == nil {
				result = joinResult(&session, &table, false)
				return nil
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}

			session = models.Session{
				TableID:     tableID,
				Status:      models.SessionOpen,
				TotalAmount: decimal.Zero,
				StartedAt:   s.now(),
			}
			if err := tx.Create(&session).Error; err != nil {
				return err
			}

			// A binding to a session that is no longer active is stale and may be replaced.
			cas := tx.Model(&models.Table{}).Where("id = ?", tableID)
			if table.CurrentSessionID == nil {
				cas = cas.Where("current_session_id IS NULL")
			} else {
				utils.ErrorLogger.WithFields(logrus.Fields{
					"table":   tableID,
					"session": *table.CurrentSessionID,
				}).Warn("replacing stale table binding")
				cas = cas.Where("current_session_id = ?", *table.CurrentSessionID)
			}
			mark, err := changeMark(tx)
			if err != nil {
				return err
			}
			res := cas.Updates(map[string]interface{}{
				"current_session_id": session.ID,
				"status":             models.TableOccupied,
			})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return ErrConcurrencyConflict
			}
			if err := markOwnChanges(tx, mark, "tables", tableID); err != nil {
				return err
			}
			if err := tx.First(&table, tableID).Error; err != nil {
				return err
			}

			result = joinResult(&session, &table, true)
			msgs = []realtime.Message{
				realtime.NewMessage(realtime.EventSessionCreated, &session, tableID, session.ID),
				tableMessage(&table, session.ID),
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	if !result.Created {
		orders, err := s.sessionOrders(ctx, result.SessionID)
		if err != nil {
			return nil, err
		}
		result.Orders = orders
	} else {
		utils.InfoLogger.WithFields(logrus.Fields{"table": tableID, "session": result.SessionID}).Info("session opened")
	}
	publishAll(s.notifier, msgs)
	return result, nil
}

func joinResult(session *models.Session, table *models.Table, created bool) *JoinResult {
	return &JoinResult{
		SessionID:   session.ID,
		Status:      session.Status,
		TotalAmount: session.TotalAmount,
		TableID:     table.ID,
		TableName:   table.Name,
		Created:     created,
		Orders:      []models.Order{},
	}
}

func (s *SessionService) sessionOrders(ctx context.Context, sessionID uint) ([]models.Order, error) {
	orders := []models.Order{}
	err := s.db.WithContext(ctx).
		Preload("Items", orderItemsByID).
		Where("session_id = ?", sessionID).
		Order("created_at DESC, id DESC").
		Find(&orders).Error
	return orders, err
}

// Transition moves the session to target through the transition table. A
// target equal to the current status only records the payment method.
func (s *SessionService) Transition(ctx context.Context, sessionID uint, target models.SessionStatus, method *models.PaymentMethod) (*models.Session, error) {
	if !target.IsValid() {
		return nil, invalidInput("unknown session status %q", target)
	}
	if method != nil && !method.IsValid() {
		return nil, invalidInput("unknown payment method %q", *method)
	}

	var res *TransitionResult
	err := withRetry(ctx, func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			session, err := lockSession(tx, sessionID)
			if err != nil {
				return lookupErr(err, "session", sessionID)
			}
			res, err = s.apply(tx, session, target, method)
			return err
		})
	})
	if err != nil {
		return nil, err
	}

	utils.InfoLogger.WithFields(logrus.Fields{
		"session": sessionID,
		"status":  res.Session.Status,
	}).Info("session transition")
	publishAll(s.notifier, res.Messages())
	return res.Session, nil
}

// Close ends the session and frees its table.
func (s *SessionService) Close(ctx context.Context, sessionID uint) (*models.Session, error) {
	return s.Transition(ctx, sessionID, models.SessionClosed, nil)
}

// ReopenForOrder is the order ledger's entry into the state machine: a
// session waiting for or done with payment goes back to OPEN, and the table
// is marked OCCUPIED in every case. It must run inside the ledger's
// transaction on a locked session.
func (s *SessionService) ReopenForOrder(tx *gorm.DB, session *models.Session) (*TransitionResult, error) {
	if session.Status == models.SessionClosed {
		return nil, invalidState("session %d is closed", session.ID)
	}
	reopen := lookupTransition(TransitionReopenForOrder)
	if reopen.allows(session.Status) {
		return s.apply(tx, session, reopen.To, nil)
	}

	table, err := s.setTableStatus(tx, session, models.TableOccupied)
	if err != nil {
		return nil, err
	}
	return &TransitionResult{Session: session, Table: table}, nil
}

// apply performs one transition on a locked session inside tx.
func (s *SessionService) apply(tx *gorm.DB, session *models.Session, target models.SessionStatus, method *models.PaymentMethod) (*TransitionResult, error) {
	if session.Status == models.SessionClosed {
		return nil, invalidState("session %d is closed", session.ID)
	}

	if target == session.Status {
		if method != nil {
			if err := tx.Model(session).Update("payment_method", *method).Error; err != nil {
				return nil, err
			}
		}
		if err := tx.First(session, session.ID).Error; err != nil {
			return nil, err
		}
		return &TransitionResult{Session: session}, nil
	}

	if _, ok := findTransition(session.Status, target); !ok {
		return nil, invalidState("session %d cannot go from %s to %s", session.ID, session.Status, target)
	}

	updates := map[string]interface{}{"status": target}
	if method != nil {
		updates["payment_method"] = *method
	}
	if target == models.SessionClosed {
		updates["ended_at"] = s.now()
	}
	mark, err := changeMark(tx)
	if err != nil {
		return nil, err
	}
	res := tx.Model(&models.Session{}).
		Where("id = ? AND status = ?", session.ID, session.Status).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrConcurrencyConflict
	}
	if err := markOwnChanges(tx, mark, "sessions", session.ID); err != nil {
		return nil, err
	}

	var table *models.Table
	if target == models.SessionClosed {
		table, err = s.unbindTable(tx, session)
	} else {
		table, err = s.setTableStatus(tx, session, TableStatusFor(target))
	}
	if err != nil {
		return nil, err
	}

	if err := tx.First(session, session.ID).Error; err != nil {
		return nil, err
	}
	return &TransitionResult{
		Session: session,
		Table:   table,
		Event:   SessionStatusEvent(target),
	}, nil
}

// setTableStatus sets the table status while keeping it bound to session.
func (s *SessionService) setTableStatus(tx *gorm.DB, session *models.Session, status models.TableStatus) (*models.Table, error) {
	mark, err := changeMark(tx)
	if err != nil {
		return nil, err
	}
	res := tx.Model(&models.Table{}).
		Where("id = ? AND (current_session_id IS NULL OR current_session_id = ?)", session.TableID, session.ID).
		Updates(map[string]interface{}{
			"status":             status,
			"current_session_id": session.ID,
		})
	if res.Error != nil {
		return nil, res.Error
	}

	var table models.Table
	if err := tx.First(&table, session.TableID).Error; err != nil {
		return nil, lookupErr(err, "table", session.TableID)
	}
	if res.RowsAffected == 0 && (table.CurrentSessionID == nil || *table.CurrentSessionID != session.ID) {
		return nil, invalidState("table %d is bound to another session", table.ID)
	}
	if err := markOwnChanges(tx, mark, "tables", table.ID); err != nil {
		return nil, err
	}
	return &table, nil
}

// unbindTable clears the binding and frees the table in the closing transaction.
func (s *SessionService) unbindTable(tx *gorm.DB, session *models.Session) (*models.Table, error) {
	mark, err := changeMark(tx)
	if err != nil {
		return nil, err
	}
	res := tx.Model(&models.Table{}).
		Where("id = ? AND (current_session_id = ? OR current_session_id IS NULL)", session.TableID, session.ID).
		Updates(map[string]interface{}{
			"status":             models.TableAvailable,
			"current_session_id": nil,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		// bound to a newer session already; leave that binding alone
		utils.ErrorLogger.WithFields(logrus.Fields{
			"table":   session.TableID,
			"session": session.ID,
		}).Warn("closing session whose table is bound elsewhere")
		return nil, nil
	}
	if err := markOwnChanges(tx, mark, "tables", session.TableID); err != nil {
		return nil, err
	}

	var table models.Table
	if err := tx.First(&table, session.TableID).Error; err != nil {
		return nil, err
	}
	return &table, nil
}

// CallStaff flags the table as needing help and alerts staff. A table with no
// bound session keeps its status but the alert still goes out.
func (s *SessionService) CallStaff(ctx context.Context, tableID uint) (*models.Table, error) {
	var (
		table   models.Table
		changed bool
	)
	err := withRetry(ctx, func() error {
		changed = false
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.First(&table, tableID).Error; err != nil {
				return lookupErr(err, "table", tableID)
			}
			if table.CurrentSessionID == nil || table.Status == models.TableNeedsHelp {
				return nil
			}
			mark, err := changeMark(tx)
			if err != nil {
				return err
			}
			res := tx.Model(&models.Table{}).
				Where("id = ? AND current_session_id IS NOT NULL", tableID).
				Update("status", models.TableNeedsHelp)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return ErrConcurrencyConflict
			}
			changed = true
			if err := markOwnChanges(tx, mark, "tables", tableID); err != nil {
				return err
			}
			return tx.First(&table, tableID).Error
		})
	})
	if err != nil {
		return nil, err
	}

	sessionID := boundSession(&table)
	msgs := []realtime.Message{realtime.NewMessage(realtime.EventCallStaff, &table, table.ID, sessionID)}
	if changed {
		msgs = append(msgs, tableMessage(&table, sessionID))
	}
	utils.InfoLogger.WithField("table", tableID).Info("staff called")
	publishAll(s.notifier, msgs)
	return &table, nil
}

// ResolveHelp clears NEEDS_HELP: back to OCCUPIED when a session is bound,
// otherwise AVAILABLE. Other statuses are left as they are.
func (s *SessionService) ResolveHelp(ctx context.Context, tableID uint) (*models.Table, error) {
	var (
		table   models.Table
		changed bool
	)
	err := withRetry(ctx, func() error {
		changed = false
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&table, tableID).Error; err != nil {
				return lookupErr(err, "table", tableID)
			}
			if table.Status != models.TableNeedsHelp {
				return nil
			}
			next := models.TableAvailable
			if table.CurrentSessionID != nil {
				next = models.TableOccupied
			}
			mark, err := changeMark(tx)
			if err != nil {
				return err
			}
			res := tx.Model(&models.Table{}).
				Where("id = ? AND status = ?", tableID, models.TableNeedsHelp).
				Update("status", next)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return ErrConcurrencyConflict
			}
			changed = true
			if err := markOwnChanges(tx, mark, "tables", tableID); err != nil {
				return err
			}
			return tx.First(&table, tableID).Error
		})
	})
	if err != nil {
		return nil, err
	}
	if changed {
		publishAll(s.notifier, []realtime.Message{tableMessage(&table, boundSession(&table))})
	}
	return &table, nil
}

// GetSession loads a session with its table and orders, most recent order first.
func (s *SessionService) GetSession(ctx context.Context, sessionID uint) (*models.Session, error) {
	var session models.Session
	err := s.db.WithContext(ctx).
		Preload("Table", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		Preload("Orders", func(db *gorm.DB) *gorm.DB { return db.Order("created_at DESC, id DESC") }).
		Preload("Orders.Items", orderItemsByID).
		First(&session, sessionID).Error
	if err != nil {
		return nil, lookupErr(err, "session", sessionID)
	}
	return &session, nil
}

// ListSessions returns sessions, most recently started first.
func (s *SessionService) ListSessions(ctx context.Context, f SessionFilter) ([]models.Session, error) {
	q := s.db.WithContext(ctx).Order("started_at DESC, id DESC")
	if f.TableID != 0 {
		q = q.Where("table_id = ?", f.TableID)
	}
	if len(f.Statuses) > 0 {
		for _, st := range f.Statuses {
			if !st.IsValid() {
				return nil, invalidInput("unknown session status %q", st)
			}
		}
		q = q.Where("status IN ?", f.Statuses)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	sessions := []models.Session{}
	if err := q.Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}

func lockSession(tx *gorm.DB, sessionID uint) (*models.Session, error) {
	var session models.Session
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&session, sessionID).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

// changeMark returns the newest change-feed row id visible to tx. Taken right
// before a write, every row for the record above it belongs to that write.
func changeMark(tx *gorm.DB) (uint, error) {
	var mark uint
	err := tx.Model(&models.DBChange{}).Select("COALESCE(MAX(id), 0)").Scan(&mark).Error
	return mark, err
}

// markOwnChanges flags the change-feed rows our own write produced after
// mark, so the bridge only reports writes made outside the application.
// Earlier out-of-band rows for the same record stay pending.
func markOwnChanges(tx *gorm.DB, mark uint, collection string, id uint) error {
	return tx.Model(&models.DBChange{}).
		Where("id > ? AND table_name = ? AND record_id = ? AND processed = ?", mark, collection, id, false).
		Update("processed", true).Error
}

func boundSession(t *models.Table) uint {
	if t.CurrentSessionID == nil {
		return 0
	}
	return *t.CurrentSessionID
}
