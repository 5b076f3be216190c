package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"commerce-api/apperr"
	"commerce-api/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PaymentNotifier is the notification slice the payment flow needs.
type PaymentNotifier interface {
	SendPaymentConfirmation(ctx context.Context, order *models.Order)
}

const defaultCurrency = "usd"

type PaymentIntentResult struct {
	ClientSecret string `json:"client_secret"`
	PaymentID    uint   `json:"payment_id"`
}

type RefundResult struct {
	RefundID string  `json:"refund_id"`
	Amount   float64 `json:"amount"`
	Status   string  `json:"status"`
}

// PaymentService ties gateway charges to orders. Every mutation is
// transactional: a gateway failure inside the transaction rolls back the
// whole thing, so no dangling payment rows survive.
type PaymentService struct {
	db       *gorm.DB
	gateway  PaymentGateway
	notifier PaymentNotifier
	logger   *zap.Logger
}

func NewPaymentService(db *gorm.DB, gateway PaymentGateway, notifier PaymentNotifier, logger *zap.Logger) *PaymentService {
	return &PaymentService{db: db, gateway: gateway, notifier: notifier, logger: logger}
}

// toCents converts a decimal amount to the gateway's minor currency units.
func toCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// CreateIntent creates a gateway payment intent for the order total and
// records a pending Payment row. The row is committed only after the gateway
// call succeeds.
func (s *PaymentService) CreateIntent(ctx context.Context, userID, orderID uint, paymentMethod string) (*PaymentIntentResult, error) {
	var result PaymentIntentResult

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.Preload("User").First(&order, orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.WithMessage(apperr.ErrNotFound, "Order not found")
			}
			return err
		}
		if order.UserID != userID {
			return apperr.WithMessage(apperr.ErrForbidden, "Not authorized")
		}
		if order.PaymentStatus == models.PaymentStatusCompleted {
			return apperr.ErrAlreadyPaid
		}

		description := fmt.Sprintf("Order %s", order.OrderNumber)
		if order.User != nil {
			description += " - " + order.User.Name
		}

		intent, err := s.gateway.CreateIntent(ctx, toCents(order.TotalAmount), defaultCurrency, description, map[string]string{
			"order_id": fmt.Sprint(orderID),
			"user_id":  fmt.Sprint(userID),
		})
		if err != nil {
			s.logger.Error("Gateway intent creation failed", zap.Uint("order_id", orderID), zap.Error(err))
			return apperr.Wrap(apperr.ErrBadGateway, err)
		}

		payment := models.Payment{
			OrderID:         orderID,
			PaymentMethod:   paymentMethod,
			TransactionID:   intent.ID,
			Amount:          order.TotalAmount,
			Currency:        defaultCurrency,
			Status:          models.PayStatusPending,
			GatewayResponse: string(intent.Raw),
		}
		if err := tx.Create(&payment).Error; err != nil {
			return err
		}

		result = PaymentIntentResult{ClientSecret: intent.ClientSecret, PaymentID: payment.ID}
		return nil
	})
	if err != nil {
		return nil, apperr.From(err)
	}
	return &result, nil
}

// ConfirmPayment re-queries the gateway and completes the payment only on a
// gateway-reported succeeded state. Anything else leaves every row unchanged.
// A payment already completed short-circuits successfully so client retries
// are idempotent.
func (s *PaymentService) ConfirmPayment(ctx context.Context, paymentID uint, intentID string) error {
	var confirmedOrder *models.Order

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var payment models.Payment
		if err := tx.Preload("Order").First(&payment, paymentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.WithMessage(apperr.ErrNotFound, "Payment not found")
			}
			return err
		}
		if payment.Status == models.PayStatusCompleted {
			return nil
		}
		if payment.TransactionID != intentID {
			return apperr.WithMessage(apperr.ErrBadRequest, "Payment intent mismatch")
		}

		intent, err := s.gateway.RetrieveIntent(ctx, intentID)
		if err != nil {
			s.logger.Error("Gateway intent retrieval failed", zap.String("intent_id", intentID), zap.Error(err))
			return apperr.Wrap(apperr.ErrBadGateway, err)
		}
		if intent.Status != IntentSucceeded {
			return apperr.WithMessage(apperr.ErrPaymentFailed, "Payment not completed")
		}

		if err := s.completePaymentTx(tx, &payment, string(intent.Raw)); err != nil {
			return err
		}
		confirmedOrder = payment.Order
		return nil
	})
	if err != nil {
		return apperr.From(err)
	}

	if confirmedOrder != nil && s.notifier != nil {
		s.notifier.SendPaymentConfirmation(ctx, confirmedOrder)
	}
	return nil
}

// Fulfill applies a gateway-reported success for the given intent, typically
// from a webhook. Redeliveries are harmless: an already-completed payment
// short-circuits without re-applying effects.
func (s *PaymentService) Fulfill(ctx context.Context, intentID string) error {
	var confirmedOrder *models.Order

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var payment models.Payment
		if err := tx.Preload("Order").
			Where("transaction_id = ?", intentID).
			First(&payment).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.WithMessage(apperr.ErrNotFound, "Payment not found")
			}
			return err
		}
		if payment.Status == models.PayStatusCompleted {
			s.logger.Info("Skipping duplicate fulfillment", zap.String("intent_id", intentID))
			return nil
		}

		if err := s.completePaymentTx(tx, &payment, ""); err != nil {
			return err
		}
		confirmedOrder = payment.Order
		return nil
	})
	if err != nil {
		return apperr.From(err)
	}

	if confirmedOrder != nil && s.notifier != nil {
		s.notifier.SendPaymentConfirmation(ctx, confirmedOrder)
	}
	return nil
}

// completePaymentTx marks the payment completed and cascades the order to
// payment_status=completed, status=processing.
func (s *PaymentService) completePaymentTx(tx *gorm.DB, payment *models.Payment, rawResponse string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"status":       models.PayStatusCompleted,
		"processed_at": &now,
	}
	if rawResponse != "" {
		updates["gateway_response"] = rawResponse
	}
	if err := tx.Model(&models.Payment{}).Where("id = ?", payment.ID).Updates(updates).Error; err != nil {
		return err
	}

	return tx.Model(&models.Order{}).
		Where("id = ?", payment.OrderID).
		Updates(map[string]interface{}{
			"payment_status": models.PaymentStatusCompleted,
			"status":         models.OrderStatusProcessing,
		}).Error
}

// MarkFailed records a gateway-reported failure for the given intent.
func (s *PaymentService) MarkFailed(ctx context.Context, intentID, reason string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var payment models.Payment
		if err := tx.Where("transaction_id = ?", intentID).First(&payment).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.WithMessage(apperr.ErrNotFound, "Payment not found")
			}
			return err
		}
		if payment.Status == models.PayStatusCompleted || payment.Status == models.PayStatusFailed {
			return nil
		}

		if err := tx.Model(&payment).Updates(map[string]interface{}{
			"status":         models.PayStatusFailed,
			"failure_reason": reason,
		}).Error; err != nil {
			return err
		}
		// Only a still-pending order follows the intent into failure; an
		// order already paid through another intent keeps its state.
		return tx.Model(&models.Order{}).
			Where("id = ? AND payment_status = ?", payment.OrderID, models.PaymentStatusPending).
			Update("payment_status", models.PaymentStatusFailed).Error
	})
	return wrapNil(err)
}

// ProcessRefund refunds part or all of the order's completed payment. The
// requested amount is validated against the remaining refundable balance
// before the gateway is called.
func (s *PaymentService) ProcessRefund(ctx context.Context, orderID uint, amount float64, reason string) (*RefundResult, error) {
	if amount <= 0 {
		return nil, apperr.WithMessage(apperr.ErrBadRequest, "Refund amount must be positive")
	}

	var result RefundResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.Preload("Payments").First(&order, orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.WithMessage(apperr.ErrNotFound, "Order not found")
			}
			return err
		}

		var completed *models.Payment
		var refunded float64
		for i := range order.Payments {
			p := &order.Payments[i]
			switch p.Status {
			case models.PayStatusCompleted:
				completed = p
			case models.PayStatusRefunded:
				refunded += -p.Amount
			}
		}
		if completed == nil {
			return apperr.WithMessage(apperr.ErrBadRequest, "No completed payment found")
		}

		remaining := completed.Amount - refunded
		if amount > remaining+0.004 {
			return apperr.WithMessage(apperr.ErrBadRequest,
				fmt.Sprintf("Refund exceeds remaining refundable balance of %.2f", remaining))
		}

		gr, err := s.gateway.CreateRefund(ctx, completed.TransactionID, toCents(amount), reason, map[string]string{
			"order_id": fmt.Sprint(orderID),
		})
		if err != nil {
			s.logger.Error("Gateway refund failed", zap.Uint("order_id", orderID), zap.Error(err))
			return apperr.Wrap(apperr.ErrBadGateway, err)
		}

		refundRow := models.Payment{
			OrderID:         orderID,
			PaymentMethod:   completed.PaymentMethod,
			TransactionID:   gr.ID,
			Amount:          -amount,
			Currency:        completed.Currency,
			Status:          models.PayStatusRefunded,
			GatewayResponse: string(gr.Raw),
			FailureReason:   reason,
		}
		if err := tx.Create(&refundRow).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.Order{}).
			Where("id = ?", orderID).
			Update("status", models.OrderStatusRefunded).Error; err != nil {
			return err
		}

		result = RefundResult{RefundID: gr.ID, Amount: amount, Status: gr.Status}
		return nil
	})
	if err != nil {
		return nil, apperr.From(err)
	}
	return &result, nil
}

// ReconcileStalePayments marks payments stuck in pending for longer than
// maxAge as failed and cascades to their orders. Per-record failures are
// logged and skipped so one bad row never halts the batch.
func (s *PaymentService) ReconcileStalePayments(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := time.Now().Add(-maxAge)

	var stale []models.Payment
	if err := s.db.WithContext(ctx).
		Where("status = ? AND created_at <= ?", models.PayStatusPending, cutoff).
		Find(&stale).Error; err != nil {
		return 0, err
	}

	updated := 0
	for _, payment := range stale {
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(&models.Payment{}).
				Where("id = ? AND status = ?", payment.ID, models.PayStatusPending).
				Updates(map[string]interface{}{
					"status":         models.PayStatusFailed,
					"failure_reason": "Payment timeout",
				}).Error; err != nil {
				return err
			}
			// An order completed through another intent is left alone.
			return tx.Model(&models.Order{}).
				Where("id = ? AND payment_status = ?", payment.OrderID, models.PaymentStatusPending).
				Update("payment_status", models.PaymentStatusFailed).Error
		})
		if err != nil {
			s.logger.Warn("Failed to reconcile stale payment",
				zap.Uint("payment_id", payment.ID), zap.Error(err))
			continue
		}
		updated++
	}
	return updated, nil
}

// PaymentMethodInfo describes a supported checkout option.
type PaymentMethodInfo struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	Supported bool   `json:"supported"`
}

// ListPaymentMethods enumerates the configured checkout options.
func (s *PaymentService) ListPaymentMethods() []PaymentMethodInfo {
	return []PaymentMethodInfo{
		{ID: "credit_card", Name: "Credit Card", Type: "card", Supported: true},
		{ID: "debit_card", Name: "Debit Card", Type: "card", Supported: true},
		{ID: "stripe", Name: "Stripe", Type: "gateway", Supported: true},
		{ID: "paypal", Name: "PayPal", Type: "wallet", Supported: false},
		{ID: "cash_on_delivery", Name: "Cash on Delivery", Type: "cod", Supported: true},
	}
}
