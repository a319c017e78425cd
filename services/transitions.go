package services

import (
	"github.com/yeremiapane/restaurant-tableorder/models"
	"github.com/yeremiapane/restaurant-tableorder/realtime"
)

// TransitionName identifies an entry of the session transition table.
type TransitionName string

const (
	TransitionReopenForOrder     TransitionName = "reopen_for_order"
	TransitionRequestPayment     TransitionName = "request_payment"
	TransitionAwaitOnlinePayment TransitionName = "await_online_payment"
	TransitionConfirmPayment     TransitionName = "confirm_payment"
	TransitionClose              TransitionName = "close"
)

// SessionTransition is one allowed session status change.
type SessionTransition struct {
	Name TransitionName
	From []models.SessionStatus
	To   models.SessionStatus
}

func (t SessionTransition) allows(from models.SessionStatus) bool {
	for _, s := range t.From {
		if s == from {
			return true
		}
	}
	return false
}

// Opening a session is not a transition: it is the find-or-create in OpenOrJoin.
var sessionTransitions = []SessionTransition{
	{
		Name: TransitionReopenForOrder,
		From: []models.SessionStatus{models.SessionPaymentRequested, models.SessionWaitingPayment, models.SessionPaid},
		To:   models.SessionOpen,
	},
	{
		Name: TransitionRequestPayment,
		From: []models.SessionStatus{models.SessionOpen, models.SessionWaitingPayment},
		To:   models.SessionPaymentRequested,
	},
	{
		Name: TransitionAwaitOnlinePayment,
		From: []models.SessionStatus{models.SessionOpen, models.SessionPaymentRequested},
		To:   models.SessionWaitingPayment,
	},
	{
		Name: TransitionConfirmPayment,
		From: []models.SessionStatus{models.SessionOpen, models.SessionPaymentRequested, models.SessionWaitingPayment},
		To:   models.SessionPaid,
	},
	{
		Name: TransitionClose,
		From: models.ActiveSessionStatuses,
		To:   models.SessionClosed,
	},
}

// Transitions returns a copy of the transition table.
func Transitions() []SessionTransition {
	out := make([]SessionTransition, len(sessionTransitions))
	copy(out, sessionTransitions)
	return out
}

func lookupTransition(name TransitionName) SessionTransition {
	for _, t := range sessionTransitions {
		if t.Name == name {
			return t
		}
	}
	panic("unknown session transition " + string(name))
}

func findTransition(from, to models.SessionStatus) (SessionTransition, bool) {
	for _, t := range sessionTransitions {
		if t.To == to && t.allows(from) {
			return t, true
		}
	}
	return SessionTransition{}, false
}

// TableStatusFor is the table status that goes with a session status.
func TableStatusFor(s models.SessionStatus) models.TableStatus {
	switch s {
	case models.SessionPaymentRequested, models.SessionWaitingPayment:
		return models.TablePaymentRequested
	case models.SessionPaid:
		return models.TableCleaning
	case models.SessionClosed:
		return models.TableAvailable
	}
	return models.TableOccupied
}

// SessionStatusEvent is the realtime event announcing that a session entered
// status s. The change-feed bridge uses the same mapping.
func SessionStatusEvent(s models.SessionStatus) realtime.EventType {
	switch s {
	case models.SessionPaymentRequested:
		return realtime.EventPaymentRequested
	case models.SessionPaid:
		return realtime.EventPaymentSuccess
	}
	return realtime.EventSessionStatusUpdate
}

// PaymentMethodTarget is the session status a payment request with method m moves to.
func PaymentMethodTarget(m models.PaymentMethod) models.SessionStatus {
	if m == models.PaymentQROnline {
		return models.SessionWaitingPayment
	}
	return models.SessionPaymentRequested
}

// TransitionResult is the outcome of a state machine step. Its messages are
// published by the caller once the surrounding transaction has committed.
type TransitionResult struct {
	Session *models.Session
	Table   *models.Table      // nil when the table row was not touched
	Event   realtime.EventType // empty when the session status did not change
}

func (r *TransitionResult) Messages() []realtime.Message {
	var msgs []realtime.Message
	if r.Event != "" {
		msgs = append(msgs, realtime.NewMessage(r.Event, r.Session, r.Session.TableID, r.Session.ID))
	}
	if r.Table != nil {
		msgs = append(msgs, tableMessage(r.Table, r.Session.ID))
	}
	return msgs
}

func tableMessage(t *models.Table, sessionID uint) realtime.Message {
	return realtime.NewMessage(realtime.EventTableStatusUpdate, t, t.ID, sessionID)
}
