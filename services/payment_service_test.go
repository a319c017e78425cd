package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/restaurant-tableorder/models"
	"github.com/yeremiapane/restaurant-tableorder/realtime"
)

// sessionWithOrder opens a session on a fresh table and orders 2 x 50000.
func sessionWithOrder(t *testing.T, f *fixture) (models.Table, uint) {
	t.Helper()
	table, sessionID := openSession(t, f, "T1")
	p := f.createProduct(t, "Nasi Goreng", "50000")
	_, err := f.orders.PlaceOrder(context.Background(), PlaceOrderInput{
		SessionID: sessionID,
		Items:     []OrderItemInput{{ProductID: p.ID, Quantity: 2}},
	})
	require.NoError(t, err)
	f.notifier.reset()
	return table, sessionID
}

func TestPaymentFullCycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	table, sessionID := sessionWithOrder(t, f)

	payment, err := f.payments.RequestPayment(ctx, sessionID, models.PaymentCash)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPending, payment.Status)
	assertAmount(t, "100000", payment.Amount)

	session := f.session(t, sessionID)
	assert.Equal(t, models.SessionPaymentRequested, session.Status)
	require.NotNil(t, session.PaymentMethod)
	assert.Equal(t, models.PaymentCash, *session.PaymentMethod)
	assert.Equal(t, models.TablePaymentRequested, f.table(t, table.ID).Status)
	assert.Equal(t, []realtime.EventType{
		realtime.EventPaymentRequested,
		realtime.EventTableStatusUpdate,
	}, f.notifier.types())
	f.notifier.reset()

	receipt := "receipts/1.jpg"
	confirmed, err := f.payments.ConfirmPayment(ctx, payment.ID, ConfirmInput{
		Status:       models.PaymentSuccess,
		ConfirmedBy:  3,
		ReceiptImage: &receipt,
	})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentSuccess, confirmed.Status)
	require.NotNil(t, confirmed.PaidAt)
	require.NotNil(t, confirmed.ConfirmedBy)
	assert.Equal(t, uint(3), *confirmed.ConfirmedBy)
	require.NotNil(t, confirmed.ReceiptImage)
	assert.Equal(t, receipt, *confirmed.ReceiptImage)

	assert.Equal(t, models.SessionPaid, f.session(t, sessionID).Status)
	assert.Equal(t, models.TableCleaning, f.table(t, table.ID).Status)
	assert.Equal(t, []realtime.EventType{
		realtime.EventPaymentSuccess,
		realtime.EventTableStatusUpdate,
	}, f.notifier.types())
	f.assertBindingInvariant(t)

	_, err = f.sessions.Close(ctx, sessionID)
	require.NoError(t, err)
	tb := f.table(t, table.ID)
	assert.Equal(t, models.TableAvailable, tb.Status)
	assert.Nil(t, tb.CurrentSessionID)
	f.assertBindingInvariant(t)
}

func TestRequestPaymentOnlineWaits(t *testing.T) {
	f := newFixture(t)
	table, sessionID := sessionWithOrder(t, f)

	_, err := f.payments.RequestPayment(context.Background(), sessionID, models.PaymentQROnline)
	require.NoError(t, err)
	assert.Equal(t, models.SessionWaitingPayment, f.session(t, sessionID).Status)
	assert.Equal(t, models.TablePaymentRequested, f.table(t, table.ID).Status)
}

func TestRequestPaymentReusesPendingPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, sessionID := sessionWithOrder(t, f)

	first, err := f.payments.RequestPayment(ctx, sessionID, models.PaymentCash)
	require.NoError(t, err)

	// an extra order reopens the session and raises the total
	p := f.createProduct(t, "Es Teh", "5000")
	_, err = f.orders.PlaceOrder(ctx, PlaceOrderInput{SessionID: sessionID, Items: []OrderItemInput{{ProductID: p.ID, Quantity: 1}}})
	require.NoError(t, err)
	assert.Equal(t, models.SessionOpen, f.session(t, sessionID).Status)

	second, err := f.payments.RequestPayment(ctx, sessionID, models.PaymentQROnline)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assertAmount(t, "105000", second.Amount)
	assert.Equal(t, models.PaymentQROnline, second.Method)

	// asking again with the same method is harmless
	third, err := f.payments.RequestPayment(ctx, sessionID, models.PaymentQROnline)
	require.NoError(t, err)
	assert.Equal(t, first.ID, third.ID)

	payments, err := f.payments.ListPayments(ctx, sessionID)
	require.NoError(t, err)
	assert.Len(t, payments, 1)
}

func TestRequestPaymentRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.payments.RequestPayment(ctx, 77, models.PaymentCash)
	assert.ErrorIs(t, err, ErrNotFound)

	_, empty := openSession(t, f, "Empty")
	_, err = f.payments.RequestPayment(ctx, empty, models.PaymentCash)
	assert.ErrorIs(t, err, ErrInvalidState)

	_, sessionID := sessionWithOrder(t, f)
	_, err = f.payments.RequestPayment(ctx, sessionID, "CRYPTO")
	assert.ErrorIs(t, err, ErrInvalidInput)

	payment, err := f.payments.RequestPayment(ctx, sessionID, models.PaymentPOS)
	require.NoError(t, err)
	_, err = f.payments.ConfirmPayment(ctx, payment.ID, ConfirmInput{Status: models.PaymentSuccess})
	require.NoError(t, err)
	_, err = f.payments.RequestPayment(ctx, sessionID, models.PaymentPOS)
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = f.sessions.Close(ctx, sessionID)
	require.NoError(t, err)
	_, err = f.payments.RequestPayment(ctx, sessionID, models.PaymentPOS)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestConfirmPaymentFailed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	table, sessionID := sessionWithOrder(t, f)

	payment, err := f.payments.RequestPayment(ctx, sessionID, models.PaymentQROnline)
	require.NoError(t, err)
	f.notifier.reset()

	failed, err := f.payments.ConfirmPayment(ctx, payment.ID, ConfirmInput{Status: models.PaymentFailed})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentFailed, failed.Status)
	assert.Nil(t, failed.PaidAt)

	assert.Equal(t, models.SessionWaitingPayment, f.session(t, sessionID).Status)
	assert.Equal(t, models.TablePaymentRequested, f.table(t, table.ID).Status)
	assert.Equal(t, []realtime.EventType{realtime.EventPaymentFailed}, f.notifier.types())

	// a new request opens a fresh payment
	retry, err := f.payments.RequestPayment(ctx, sessionID, models.PaymentCash)
	require.NoError(t, err)
	assert.NotEqual(t, payment.ID, retry.ID)

	// a failed payment cannot later succeed
	_, err = f.payments.ConfirmPayment(ctx, payment.ID, ConfirmInput{Status: models.PaymentSuccess})
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestConfirmPaymentTwice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, sessionID := sessionWithOrder(t, f)

	payment, err := f.payments.RequestPayment(ctx, sessionID, models.PaymentCash)
	require.NoError(t, err)
	_, err = f.payments.ConfirmPayment(ctx, payment.ID, ConfirmInput{Status: models.PaymentSuccess})
	require.NoError(t, err)
	f.notifier.reset()

	again, err := f.payments.ConfirmPayment(ctx, payment.ID, ConfirmInput{Status: models.PaymentSuccess})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentSuccess, again.Status)
	assert.Empty(t, f.notifier.types())
	assert.Equal(t, models.SessionPaid, f.session(t, sessionID).Status)

	_, err = f.payments.ConfirmPayment(ctx, payment.ID, ConfirmInput{Status: models.PaymentFailed})
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestConfirmPaymentValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, sessionID := sessionWithOrder(t, f)

	_, err := f.payments.ConfirmPayment(ctx, 1, ConfirmInput{Status: models.PaymentPending})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.payments.ConfirmPayment(ctx, 1, ConfirmInput{Status: models.PaymentRefunded})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.payments.ConfirmPayment(ctx, 404, ConfirmInput{Status: models.PaymentSuccess})
	assert.ErrorIs(t, err, ErrNotFound)

	payment, err := f.payments.RequestPayment(ctx, sessionID, models.PaymentCash)
	require.NoError(t, err)
	_, err = f.sessions.Close(ctx, sessionID)
	require.NoError(t, err)
	_, err = f.payments.ConfirmPayment(ctx, payment.ID, ConfirmInput{Status: models.PaymentSuccess})
	assert.ErrorIs(t, err, ErrInvalidState)

	got, err := f.payments.GetPayment(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPending, got.Status)
}
