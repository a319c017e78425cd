package services

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restaurant-tableorder/models"
	"github.com/yeremiapane/restaurant-tableorder/realtime"
	"github.com/yeremiapane/restaurant-tableorder/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PaymentService handles payment requests and their confirmation by staff.
type PaymentService struct {
	db       *gorm.DB
	sessions *SessionService
	notifier Notifier
	now      func() time.Time
}

func NewPaymentService(db *gorm.DB, sessions *SessionService, notifier Notifier) *PaymentService {
	return &PaymentService{
		db:       db,
		sessions: sessions,
		notifier: notifierOrNop(notifier),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

type ConfirmInput struct {
	Status       models.PaymentStatus
	ConfirmedBy  uint
	ReceiptImage *string
}

// paymentPayload is the body of payment events.
type paymentPayload struct {
	Payment *models.Payment `json:"payment"`
	Session *models.Session `json:"session"`
}

// RequestPayment snapshots the session total into a PENDING payment and moves
// the session to PAYMENT_REQUESTED (WAITING_PAYMENT for QR_ONLINE). While a
// PENDING payment exists it is reused, with amount and method refreshed.
func (s *PaymentService) RequestPayment(ctx context.Context, sessionID uint, method models.PaymentMethod) (*models.Payment, error) {
	if !method.IsValid() {
		return nil, invalidInput("unknown payment method %q", method)
	}

	var (
		payment models.Payment
		tr      *TransitionResult
	)
	err := withRetry(ctx, func() error {
		payment = models.Payment{}
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			session, err := lockSession(tx, sessionID)
			if err != nil {
				return lookupErr(err, "session", sessionID)
			}
			switch session.Status {
			case models.SessionClosed:
				return invalidState("session %d is closed", session.ID)
			case models.SessionPaid:
				return invalidState("session %d is already paid", session.ID)
			}
			if !session.TotalAmount.IsPositive() {
				return invalidState("session %d has nothing to pay", session.ID)
			}

			err = tx.Where("session_id = ? AND status = ?", session.ID, models.PaymentPending).
				Order("id DESC").
				First(&payment).Error
			switch {
			case err == nil:
				if err := tx.Model(&payment).Updates(map[string]interface{}{
					"amount": session.TotalAmount,
					"method": method,
				}).Error; err != nil {
					return err
				}
			case errors.Is(err, gorm.ErrRecordNotFound):
				payment = models.Payment{
					SessionID: session.ID,
					Amount:    session.TotalAmount,
					Method:    method,
					Status:    models.PaymentPending,
				}
				if err := tx.Create(&payment).Error; err != nil {
					return err
				}
			default:
				return err
			}

			tr, err = s.sessions.apply(tx, session, PaymentMethodTarget(method), &method)
			if err != nil {
				return err
			}
			return tx.First(&payment, payment.ID).Error
		})
	})
	if err != nil {
		return nil, err
	}

	utils.InfoLogger.WithFields(logrus.Fields{
		"session": sessionID,
		"payment": payment.ID,
		"method":  method,
		"amount":  payment.Amount.String(),
	}).Info("payment requested")

	s.publish(realtime.EventPaymentRequested, &payment, tr)
	return &payment, nil
}

// ConfirmPayment records the staff decision on a PENDING payment. SUCCESS
// marks the session PAID and the table CLEANING; FAILED leaves the session
// as it is. Repeating the decision already recorded is a no-op.
func (s *PaymentService) ConfirmPayment(ctx context.Context, paymentID uint, in ConfirmInput) (*models.Payment, error) {
	if in.Status != models.PaymentSuccess && in.Status != models.PaymentFailed {
		return nil, invalidInput("payment can only be confirmed as %s or %s", models.PaymentSuccess, models.PaymentFailed)
	}

	var (
		payment   models.Payment
		tr        *TransitionResult
		unchanged bool
	)
	err := withRetry(ctx, func() error {
		payment, tr, unchanged = models.Payment{}, nil, false
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.First(&payment, paymentID).Error; err != nil {
				return lookupErr(err, "payment", paymentID)
			}
			// session before payment, the same order RequestPayment locks in
			session, err := lockSession(tx, payment.SessionID)
			if err != nil {
				return lookupErr(err, "session", payment.SessionID)
			}
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&payment, paymentID).Error; err != nil {
				return err
			}
			if payment.Status == in.Status {
				unchanged = true
				return nil
			}
			if payment.Status != models.PaymentPending {
				return invalidState("payment %d is already %s", payment.ID, payment.Status)
			}
			if session.Status == models.SessionClosed {
				return invalidState("session %d is closed", session.ID)
			}

			updates := map[string]interface{}{"status": in.Status}
			if in.ConfirmedBy != 0 {
				updates["confirmed_by"] = in.ConfirmedBy
			}
			if in.ReceiptImage != nil {
				updates["receipt_image"] = *in.ReceiptImage
			}

			if in.Status == models.PaymentSuccess {
				updates["paid_at"] = s.now()
				if err := tx.Model(&payment).Updates(updates).Error; err != nil {
					return err
				}
				tr, err = s.sessions.apply(tx, session, models.SessionPaid, nil)
				if err != nil {
					return err
				}
			} else {
				if err := tx.Model(&payment).Updates(updates).Error; err != nil {
					return err
				}
				tr = &TransitionResult{Session: session}
			}
			return tx.First(&payment, payment.ID).Error
		})
	})
	if err != nil {
		return nil, err
	}
	if unchanged {
		return &payment, nil
	}

	utils.InfoLogger.WithFields(logrus.Fields{
		"payment": payment.ID,
		"session": payment.SessionID,
		"status":  payment.Status,
	}).Info("payment confirmed")

	event := realtime.EventPaymentSuccess
	if payment.Status == models.PaymentFailed {
		event = realtime.EventPaymentFailed
	}
	s.publish(event, &payment, tr)
	return &payment, nil
}

// publish sends the payment event in place of the plain session event, then
// the table change if any.
func (s *PaymentService) publish(event realtime.EventType, payment *models.Payment, tr *TransitionResult) {
	session := tr.Session
	msgs := []realtime.Message{
		realtime.NewMessage(event, paymentPayload{Payment: payment, Session: session}, session.TableID, session.ID),
	}
	if tr.Table != nil {
		msgs = append(msgs, tableMessage(tr.Table, session.ID))
	}
	publishAll(s.notifier, msgs)
}

func (s *PaymentService) GetPayment(ctx context.Context, paymentID uint) (*models.Payment, error) {
	var payment models.Payment
	if err := s.db.WithContext(ctx).First(&payment, paymentID).Error; err != nil {
		return nil, lookupErr(err, "payment", paymentID)
	}
	return &payment, nil
}

// ListPayments returns the payments of a session, most recent first.
func (s *PaymentService) ListPayments(ctx context.Context, sessionID uint) ([]models.Payment, error) {
	payments := []models.Payment{}
	q := s.db.WithContext(ctx).Order("created_at DESC, id DESC")
	if sessionID != 0 {
		q = q.Where("session_id = ?", sessionID)
	}
	if err := q.Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}
