package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/yeremiapane/restaurant-tableorder/models"
	"github.com/yeremiapane/restaurant-tableorder/realtime"
)

func TestFindTransition(t *testing.T) {
	cases := []struct {
		from, to models.SessionStatus
		want     TransitionName
		ok       bool
	}{
		{models.SessionPaid, models.SessionOpen, TransitionReopenForOrder, true},
		{models.SessionWaitingPayment, models.SessionOpen, TransitionReopenForOrder, true},
		{models.SessionOpen, models.SessionPaymentRequested, TransitionRequestPayment, true},
		{models.SessionOpen, models.SessionWaitingPayment, TransitionAwaitOnlinePayment, true},
		{models.SessionPaymentRequested, models.SessionPaid, TransitionConfirmPayment, true},
		{models.SessionPaid, models.SessionClosed, TransitionClose, true},
		{models.SessionOpen, models.SessionClosed, TransitionClose, true},
		{models.SessionPaid, models.SessionPaymentRequested, "", false},
		{models.SessionClosed, models.SessionOpen, "", false},
		{models.SessionClosed, models.SessionClosed, "", false},
	}
	for _, tc := range cases {
		tr, ok := findTransition(tc.from, tc.to)
		assert.Equal(t, tc.ok, ok, "%s -> %s", tc.from, tc.to)
		assert.Equal(t, tc.want, tr.Name, "%s -> %s", tc.from, tc.to)
	}
}

func TestClosedIsTerminal(t *testing.T) {
	for _, tr := range Transitions() {
		assert.False(t, tr.allows(models.SessionClosed), string(tr.Name))
	}
}

func TestTableStatusFor(t *testing.T) {
	assert.Equal(t, models.TableOccupied, TableStatusFor(models.SessionOpen))
	assert.Equal(t, models.TablePaymentRequested, TableStatusFor(models.SessionPaymentRequested))
	assert.Equal(t, models.TablePaymentRequested, TableStatusFor(models.SessionWaitingPayment))
	assert.Equal(t, models.TableCleaning, TableStatusFor(models.SessionPaid))
	assert.Equal(t, models.TableAvailable, TableStatusFor(models.SessionClosed))
}

func TestSessionStatusEvent(t *testing.T) {
	assert.Equal(t, realtime.EventPaymentRequested, SessionStatusEvent(models.SessionPaymentRequested))
	assert.Equal(t, realtime.EventPaymentSuccess, SessionStatusEvent(models.SessionPaid))
	assert.Equal(t, realtime.EventSessionStatusUpdate, SessionStatusEvent(models.SessionWaitingPayment))
	assert.Equal(t, realtime.EventSessionStatusUpdate, SessionStatusEvent(models.SessionClosed))
	assert.Equal(t, realtime.EventSessionStatusUpdate, SessionStatusEvent(models.SessionOpen))
}

func TestPaymentMethodTarget(t *testing.T) {
	assert.Equal(t, models.SessionPaymentRequested, PaymentMethodTarget(models.PaymentCash))
	assert.Equal(t, models.SessionPaymentRequested, PaymentMethodTarget(models.PaymentPOS))
	assert.Equal(t, models.SessionWaitingPayment, PaymentMethodTarget(models.PaymentQROnline))
}
