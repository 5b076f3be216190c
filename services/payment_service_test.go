package services_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"commerce-api/apperr"
	"commerce-api/models"
	"commerce-api/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// fakeGateway is an in-memory PaymentGateway. Intent status is controlled by
// the test through retrieveStatus.
type fakeGateway struct {
	seq            int
	retrieveStatus string
	failCreate     bool
	failRefund     bool
	refundCalls    int
}

func (f *fakeGateway) CreateIntent(_ context.Context, amountCents int64, currency, _ string, _ map[string]string) (*services.GatewayIntent, error) {
	if f.failCreate {
		return nil, errors.New("gateway unavailable")
	}
	f.seq++
	id := fmt.Sprintf("pi_test_%d", f.seq)
	return &services.GatewayIntent{
		ID:           id,
		ClientSecret: id + "_secret",
		Status:       "requires_payment_method",
		Raw:          []byte(fmt.Sprintf(`{"id":%q,"amount":%d,"currency":%q}`, id, amountCents, currency)),
	}, nil
}

func (f *fakeGateway) RetrieveIntent(_ context.Context, intentID string) (*services.GatewayIntent, error) {
	status := f.retrieveStatus
	if status == "" {
		status = services.IntentSucceeded
	}
	return &services.GatewayIntent{
		ID:     intentID,
		Status: status,
		Raw:    []byte(fmt.Sprintf(`{"id":%q,"status":%q}`, intentID, status)),
	}, nil
}

func (f *fakeGateway) CreateRefund(_ context.Context, intentID string, amountCents int64, _ string, _ map[string]string) (*services.GatewayRefund, error) {
	if f.failRefund {
		return nil, errors.New("refund rejected")
	}
	f.refundCalls++
	id := fmt.Sprintf("re_test_%d", f.refundCalls)
	return &services.GatewayRefund{
		ID:     id,
		Status: "succeeded",
		Raw:    []byte(fmt.Sprintf(`{"id":%q,"payment_intent":%q,"amount":%d}`, id, intentID, amountCents)),
	}, nil
}

type recordingPaymentNotifier struct {
	confirmations []uint
}

func (r *recordingPaymentNotifier) SendPaymentConfirmation(_ context.Context, order *models.Order) {
	r.confirmations = append(r.confirmations, order.ID)
}

func newPaymentFixture(t *testing.T) (*services.PaymentService, *fakeGateway, *recordingPaymentNotifier, *gorm.DB, *models.User, *models.Order) {
	db := newTestDB(t)
	gateway := &fakeGateway{}
	notifier := &recordingPaymentNotifier{}
	svc := services.NewPaymentService(db, gateway, notifier, testLogger(t))

	user := seedUser(t, db, "payer@example.com")
	category := seedCategory(t, db, "Electronics")
	product := seedProduct(t, db, category.ID, "Phone", 120, 10)

	orderSvc := services.NewOrderService(db, nil, nil, testLogger(t))
	order, err := orderSvc.CreateOrder(context.Background(), user.ID, &services.CreateOrderRequest{
		Items:           []services.OrderItemRequest{{ProductID: product.ID, Quantity: 2}},
		ShippingAddress: shippingFixture(),
		PaymentMethod:   "credit_card",
	})
	require.NoError(t, err)

	return svc, gateway, notifier, db, user, order
}

func TestCreateIntentPersistsPendingPayment(t *testing.T) {
	svc, _, _, db, user, order := newPaymentFixture(t)

	result, err := svc.CreateIntent(context.Background(), user.ID, order.ID, "credit_card")
	require.NoError(t, err)
	assert.NotEmpty(t, result.ClientSecret)

	var payment models.Payment
	require.NoError(t, db.First(&payment, result.PaymentID).Error)
	assert.Equal(t, models.PayStatusPending, payment.Status)
	assert.Equal(t, order.ID, payment.OrderID)
	assert.InDelta(t, order.TotalAmount, payment.Amount, 0.001)
}

func TestCreateIntentRejectsNonOwner(t *testing.T) {
	svc, _, _, db, _, order := newPaymentFixture(t)
	stranger := seedUser(t, db, "stranger@example.com")

	_, err := svc.CreateIntent(context.Background(), stranger.ID, order.ID, "credit_card")
	require.Error(t, err)
	assert.Equal(t, 403, apperr.From(err).Code)
}

func TestCreateIntentRejectsPaidOrder(t *testing.T) {
	svc, _, _, db, user, order := newPaymentFixture(t)
	require.NoError(t, db.Model(&models.Order{}).
		Where("id = ?", order.ID).
		Update("payment_status", models.PaymentStatusCompleted).Error)

	_, err := svc.CreateIntent(context.Background(), user.ID, order.ID, "credit_card")
	require.Error(t, err)
	assert.Equal(t, 400, apperr.From(err).Code)
}

func TestCreateIntentGatewayFailureLeavesNoRow(t *testing.T) {
	svc, gateway, _, db, user, order := newPaymentFixture(t)
	gateway.failCreate = true

	_, err := svc.CreateIntent(context.Background(), user.ID, order.ID, "credit_card")
	require.Error(t, err)
	assert.Equal(t, 502, apperr.From(err).Code)

	var count int64
	require.NoError(t, db.Model(&models.Payment{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestConfirmPaymentCompletesOnceAndIsIdempotent(t *testing.T) {
	svc, gateway, notifier, db, user, order := newPaymentFixture(t)
	gateway.retrieveStatus = services.IntentSucceeded

	result, err := svc.CreateIntent(context.Background(), user.ID, order.ID, "credit_card")
	require.NoError(t, err)

	var payment models.Payment
	require.NoError(t, db.First(&payment, result.PaymentID).Error)

	require.NoError(t, svc.ConfirmPayment(context.Background(), payment.ID, payment.TransactionID))

	require.NoError(t, db.First(&payment, payment.ID).Error)
	assert.Equal(t, models.PayStatusCompleted, payment.Status)
	require.NotNil(t, payment.ProcessedAt)

	var reloadedOrder models.Order
	require.NoError(t, db.First(&reloadedOrder, order.ID).Error)
	assert.Equal(t, models.PaymentStatusCompleted, reloadedOrder.PaymentStatus)
	assert.Equal(t, models.OrderStatusProcessing, reloadedOrder.Status)
	assert.Len(t, notifier.confirmations, 1)

	// A redelivered confirmation short-circuits without re-applying effects.
	require.NoError(t, svc.ConfirmPayment(context.Background(), payment.ID, payment.TransactionID))
	assert.Len(t, notifier.confirmations, 1)
}

func TestConfirmPaymentNonSucceededLeavesRowsUnchanged(t *testing.T) {
	svc, gateway, notifier, db, user, order := newPaymentFixture(t)
	gateway.retrieveStatus = "requires_action"

	result, err := svc.CreateIntent(context.Background(), user.ID, order.ID, "credit_card")
	require.NoError(t, err)

	var payment models.Payment
	require.NoError(t, db.First(&payment, result.PaymentID).Error)

	err = svc.ConfirmPayment(context.Background(), payment.ID, payment.TransactionID)
	require.Error(t, err)
	assert.Equal(t, 400, apperr.From(err).Code)

	require.NoError(t, db.First(&payment, payment.ID).Error)
	assert.Equal(t, models.PayStatusPending, payment.Status)

	var reloadedOrder models.Order
	require.NoError(t, db.First(&reloadedOrder, order.ID).Error)
	assert.Equal(t, models.PaymentStatusPending, reloadedOrder.PaymentStatus)
	assert.Empty(t, notifier.confirmations)
}

func TestConfirmPaymentIntentMismatch(t *testing.T) {
	svc, _, _, db, user, order := newPaymentFixture(t)

	result, err := svc.CreateIntent(context.Background(), user.ID, order.ID, "credit_card")
	require.NoError(t, err)

	var payment models.Payment
	require.NoError(t, db.First(&payment, result.PaymentID).Error)

	err = svc.ConfirmPayment(context.Background(), payment.ID, "pi_wrong")
	require.Error(t, err)
	assert.Equal(t, 400, apperr.From(err).Code)
}

func TestFulfillIsIdempotentByTransactionID(t *testing.T) {
	svc, _, notifier, db, user, order := newPaymentFixture(t)

	result, err := svc.CreateIntent(context.Background(), user.ID, order.ID, "credit_card")
	require.NoError(t, err)

	var payment models.Payment
	require.NoError(t, db.First(&payment, result.PaymentID).Error)

	require.NoError(t, svc.Fulfill(context.Background(), payment.TransactionID))
	require.NoError(t, svc.Fulfill(context.Background(), payment.TransactionID))

	require.NoError(t, db.First(&payment, payment.ID).Error)
	assert.Equal(t, models.PayStatusCompleted, payment.Status)
	assert.Len(t, notifier.confirmations, 1)
}

func TestMarkFailedSkipsSettledPayments(t *testing.T) {
	svc, _, _, db, user, order := newPaymentFixture(t)

	result, err := svc.CreateIntent(context.Background(), user.ID, order.ID, "credit_card")
	require.NoError(t, err)

	var payment models.Payment
	require.NoError(t, db.First(&payment, result.PaymentID).Error)

	require.NoError(t, svc.MarkFailed(context.Background(), payment.TransactionID, "card declined"))
	require.NoError(t, db.First(&payment, payment.ID).Error)
	assert.Equal(t, models.PayStatusFailed, payment.Status)
	assert.Equal(t, "card declined", payment.FailureReason)

	// Marking again is a no-op, as is marking a completed payment.
	require.NoError(t, svc.MarkFailed(context.Background(), payment.TransactionID, "again"))
	require.NoError(t, db.First(&payment, payment.ID).Error)
	assert.Equal(t, "card declined", payment.FailureReason)
}

func TestProcessRefundValidatesRemainingBalance(t *testing.T) {
	svc, gateway, _, db, user, order := newPaymentFixture(t)

	result, err := svc.CreateIntent(context.Background(), user.ID, order.ID, "credit_card")
	require.NoError(t, err)
	var payment models.Payment
	require.NoError(t, db.First(&payment, result.PaymentID).Error)
	require.NoError(t, svc.Fulfill(context.Background(), payment.TransactionID))

	// More than the payment amount is rejected before the gateway is called.
	_, err = svc.ProcessRefund(context.Background(), order.ID, order.TotalAmount+10, "oops")
	require.Error(t, err)
	assert.Equal(t, 400, apperr.From(err).Code)
	assert.Zero(t, gateway.refundCalls)

	// Partial refund succeeds and writes a negative refunded row.
	refund, err := svc.ProcessRefund(context.Background(), order.ID, 100, "damaged item")
	require.NoError(t, err)
	assert.InDelta(t, 100.0, refund.Amount, 0.001)

	var refundRow models.Payment
	require.NoError(t, db.Where("status = ?", models.PayStatusRefunded).First(&refundRow).Error)
	assert.InDelta(t, -100.0, refundRow.Amount, 0.001)

	var reloadedOrder models.Order
	require.NoError(t, db.First(&reloadedOrder, order.ID).Error)
	assert.Equal(t, models.OrderStatusRefunded, reloadedOrder.Status)

	// The remaining balance is 140; refunding past it is rejected.
	_, err = svc.ProcessRefund(context.Background(), order.ID, order.TotalAmount-100+1, "too much")
	require.Error(t, err)
	assert.Equal(t, 400, apperr.From(err).Code)

	// Refunding exactly the remainder is allowed.
	_, err = svc.ProcessRefund(context.Background(), order.ID, order.TotalAmount-100, "rest")
	require.NoError(t, err)
}

func TestProcessRefundRequiresCompletedPayment(t *testing.T) {
	svc, _, _, _, _, order := newPaymentFixture(t)

	_, err := svc.ProcessRefund(context.Background(), order.ID, 10, "no payment yet")
	require.Error(t, err)
	assert.Equal(t, 400, apperr.From(err).Code)
}

func TestReconcileStalePayments(t *testing.T) {
	svc, _, _, db, user, order := newPaymentFixture(t)

	result, err := svc.CreateIntent(context.Background(), user.ID, order.ID, "credit_card")
	require.NoError(t, err)

	// Age the pending payment past the cutoff.
	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, db.Model(&models.Payment{}).
		Where("id = ?", result.PaymentID).
		Update("created_at", old).Error)

	count, err := svc.ReconcileStalePayments(context.Background(), 30*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	var payment models.Payment
	require.NoError(t, db.First(&payment, result.PaymentID).Error)
	assert.Equal(t, models.PayStatusFailed, payment.Status)

	var reloadedOrder models.Order
	require.NoError(t, db.First(&reloadedOrder, order.ID).Error)
	assert.Equal(t, models.PaymentStatusFailed, reloadedOrder.PaymentStatus)

	// Nothing left to reconcile.
	count, err = svc.ReconcileStalePayments(context.Background(), 30*time.Minute)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestStaleIntentDoesNotRegressPaidOrder(t *testing.T) {
	svc, _, _, db, user, order := newPaymentFixture(t)

	// Two intents for the same order; the buyer abandons the first and pays
	// through the second.
	abandoned, err := svc.CreateIntent(context.Background(), user.ID, order.ID, "credit_card")
	require.NoError(t, err)
	paid, err := svc.CreateIntent(context.Background(), user.ID, order.ID, "credit_card")
	require.NoError(t, err)

	var paidPayment models.Payment
	require.NoError(t, db.First(&paidPayment, paid.PaymentID).Error)
	require.NoError(t, svc.Fulfill(context.Background(), paidPayment.TransactionID))

	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, db.Model(&models.Payment{}).
		Where("id = ?", abandoned.PaymentID).
		Update("created_at", old).Error)

	count, err := svc.ReconcileStalePayments(context.Background(), 30*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	var abandonedPayment models.Payment
	require.NoError(t, db.First(&abandonedPayment, abandoned.PaymentID).Error)
	assert.Equal(t, models.PayStatusFailed, abandonedPayment.Status)

	// The paid order keeps its settled state.
	var reloadedOrder models.Order
	require.NoError(t, db.First(&reloadedOrder, order.ID).Error)
	assert.Equal(t, models.PaymentStatusCompleted, reloadedOrder.PaymentStatus)
	assert.Equal(t, models.OrderStatusProcessing, reloadedOrder.Status)
}

func TestFailedIntentWebhookDoesNotRegressPaidOrder(t *testing.T) {
	svc, _, _, db, user, order := newPaymentFixture(t)

	abandoned, err := svc.CreateIntent(context.Background(), user.ID, order.ID, "credit_card")
	require.NoError(t, err)
	paid, err := svc.CreateIntent(context.Background(), user.ID, order.ID, "credit_card")
	require.NoError(t, err)

	var paidPayment, abandonedPayment models.Payment
	require.NoError(t, db.First(&paidPayment, paid.PaymentID).Error)
	require.NoError(t, db.First(&abandonedPayment, abandoned.PaymentID).Error)

	require.NoError(t, svc.Fulfill(context.Background(), paidPayment.TransactionID))
	require.NoError(t, svc.MarkFailed(context.Background(), abandonedPayment.TransactionID, "card declined"))

	require.NoError(t, db.First(&abandonedPayment, abandoned.PaymentID).Error)
	assert.Equal(t, models.PayStatusFailed, abandonedPayment.Status)

	var reloadedOrder models.Order
	require.NoError(t, db.First(&reloadedOrder, order.ID).Error)
	assert.Equal(t, models.PaymentStatusCompleted, reloadedOrder.PaymentStatus)
}
