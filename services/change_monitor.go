package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restaurant-tableorder/models"
	"github.com/yeremiapane/restaurant-tableorder/realtime"
	"github.com/yeremiapane/restaurant-tableorder/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ChangeMonitor turns db_changes rows, written by triggers, into realtime
// events. The application marks the rows of its own writes as processed, so
// this only reports changes made by other tools (migrations, manual fixes).
type ChangeMonitor struct {
	DB        *gorm.DB
	Notifier  Notifier
	Interval  time.Duration
	BatchSize int

	started  atomic.Bool
	stopOnce sync.Once
	stopChan chan struct{}
	done     chan struct{}
}

func NewChangeMonitor(db *gorm.DB, notifier Notifier) *ChangeMonitor {
	return &ChangeMonitor{
		DB:        db,
		Notifier:  notifierOrNop(notifier),
		Interval:  time.Second,
		BatchSize: 100,
		stopChan:  make(chan struct{}),
		done:      make(chan struct{}),
	}
}

func (cm *ChangeMonitor) Start() {
	cm.started.Store(true)
	go func() {
		defer close(cm.done)
		ticker := time.NewTicker(cm.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if _, err := cm.Poll(context.Background()); err != nil {
					utils.ErrorLogger.WithError(err).Error("change monitor poll failed")
				}
			case <-cm.stopChan:
				return
			}
		}
	}()
}

// Stop ends the polling loop and waits for it to exit.
func (cm *ChangeMonitor) Stop() {
	cm.stopOnce.Do(func() { close(cm.stopChan) })
	if cm.started.Load() {
		<-cm.done
	}
}

// Poll processes one batch of pending changes and returns how many rows it consumed.
func (cm *ChangeMonitor) Poll(ctx context.Context) (int, error) {
	var (
		changes []models.DBChange
		msgs    []realtime.Message
	)

	err := cm.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := pendingChanges(tx, cm.BatchSize).Find(&changes).Error; err != nil {
			return err
		}
		if len(changes) == 0 {
			return nil
		}

		ids := make([]uint, 0, len(changes))
		for _, ch := range changes {
			ids = append(ids, ch.ID)
			msg, ok, err := cm.messageFor(tx, ch)
			if err != nil {
				return err
			}
			if ok {
				msgs = append(msgs, msg)
			}
		}
		return tx.Model(&models.DBChange{}).Where("id IN ?", ids).Update("processed", true).Error
	})
	if err != nil {
		return 0, err
	}

	if len(changes) > 0 {
		utils.InfoLogger.WithFields(logrus.Fields{
			"changes": len(changes),
			"events":  len(msgs),
		}).Info("change feed processed")
	}
	publishAll(cm.Notifier, msgs)
	return len(changes), nil
}

// pendingChanges selects the oldest unprocessed rows. Where the dialect
// supports it the rows are claimed with SKIP LOCKED, so instances sharing the
// database never publish the same change twice.
func pendingChanges(tx *gorm.DB, limit int) *gorm.DB {
	q := tx.Where("processed = ?", false).Order("id ASC").Limit(limit)
	if supportsSkipLocked(tx.Dialector.Name()) {
		q = q.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
	}
	return q
}

func supportsSkipLocked(dialect string) bool {
	return dialect == "mysql" || dialect == "postgres"
}

// messageFor maps one change row to its event. The event follows the status
// the trigger recorded, not the record's current one, so several updates
// between two polls are each reported as they happened. Rows whose record is
// gone are skipped.
func (cm *ChangeMonitor) messageFor(tx *gorm.DB, ch models.DBChange) (realtime.Message, bool, error) {
	id := uint(ch.RecordID)
	var err error
	switch ch.Collection {
	case "sessions":
		var session models.Session
		if err = tx.First(&session, id).Error; err == nil {
			if ch.NewStatus != "" {
				session.Status = models.SessionStatus(ch.NewStatus)
			}
			return realtime.NewMessage(SessionStatusEvent(session.Status), &session, session.TableID, session.ID), true, nil
		}
	case "tables":
		var table models.Table
		if err = tx.Unscoped().First(&table, id).Error; err == nil {
			if ch.NewStatus != "" {
				table.Status = models.TableStatus(ch.NewStatus)
			}
			return tableMessage(&table, boundSession(&table)), true, nil
		}
	case "orders":
		if ch.ActionType != models.ChangeInsert {
			return realtime.Message{}, false, nil
		}
		var order models.Order
		var tableID uint
		if order, tableID, err = loadOrder(tx, id); err == nil {
			return realtime.NewMessage(realtime.EventNewOrder, &order, tableID, order.SessionID), true, nil
		}
	default:
		utils.ErrorLogger.WithField("table", ch.Collection).Warn("change feed row for unwatched table")
		return realtime.Message{}, false, nil
	}

	if errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, ErrNotFound) {
		return realtime.Message{}, false, nil
	}
	return realtime.Message{}, false, err
}
