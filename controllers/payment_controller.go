package controllers

import (
	"encoding/json"
	"io"
	"net/http"

	"commerce-api/middleware"
	"commerce-api/services"
	"commerce-api/utils"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v80"
	"go.uber.org/zap"
)

type createIntentRequest struct {
	OrderID       uint   `json:"order_id" binding:"required"`
	PaymentMethod string `json:"payment_method" binding:"required"`
}

type confirmPaymentRequest struct {
	PaymentID uint   `json:"payment_id" binding:"required"`
	IntentID  string `json:"intent_id" binding:"required"`
}

type refundRequest struct {
	OrderID uint    `json:"order_id" binding:"required"`
	Amount  float64 `json:"amount" binding:"required,gt=0"`
	Reason  string  `json:"reason"`
}

type PaymentController struct {
	payments *services.PaymentService
	stripe   *services.StripeService
	logger   *zap.Logger
}

func NewPaymentController(payments *services.PaymentService, stripeSvc *services.StripeService, logger *zap.Logger) *PaymentController {
	return &PaymentController{payments: payments, stripe: stripeSvc, logger: logger}
}

func (pc *PaymentController) CreateIntent(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		utils.FailStatus(c, 401, "Unauthorized")
		return
	}

	var req createIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.FailStatus(c, 400, "Invalid request: "+err.Error())
		return
	}

	result, err := pc.payments.CreateIntent(c.Request.Context(), userID, req.OrderID, req.PaymentMethod)
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.Created(c, result, "Payment intent created")
}

func (pc *PaymentController) Confirm(c *gin.Context) {
	if _, err := middleware.GetUserID(c); err != nil {
		utils.FailStatus(c, 401, "Unauthorized")
		return
	}

	var req confirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.FailStatus(c, 400, "Invalid request: "+err.Error())
		return
	}

	if err := pc.payments.ConfirmPayment(c.Request.Context(), req.PaymentID, req.IntentID); err != nil {
		utils.Fail(c, err)
		return
	}
	utils.Message(c, "Payment confirmed")
}

func (pc *PaymentController) Refund(c *gin.Context) {
	var req refundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.FailStatus(c, 400, "Invalid request: "+err.Error())
		return
	}

	result, err := pc.payments.ProcessRefund(c.Request.Context(), req.OrderID, req.Amount, req.Reason)
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.OKMessage(c, result, "Refund processed")
}

func (pc *PaymentController) Methods(c *gin.Context) {
	utils.OK(c, pc.payments.ListPaymentMethods())
}

// Webhook handles asynchronous gateway outcomes. The payload is trusted only
// after signature verification; unrecognized event types are acknowledged so
// the gateway stops redelivering them.
func (pc *PaymentController) Webhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<16))
	if err != nil {
		utils.FailStatus(c, 400, "Unable to read payload")
		return
	}

	event, err := pc.stripe.VerifyWebhook(payload, c.Request)
	if err != nil {
		pc.logger.Warn("Webhook signature verification failed", zap.Error(err))
		utils.FailStatus(c, 400, "Invalid signature")
		return
	}

	switch event.Type {
	case "payment_intent.succeeded":
		intent, ok := pc.intentFrom(event)
		if !ok {
			utils.FailStatus(c, 400, "Malformed event payload")
			return
		}
		if err := pc.payments.Fulfill(c.Request.Context(), intent.ID); err != nil {
			pc.logger.Error("Webhook fulfillment failed", zap.String("intent_id", intent.ID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"received": false})
			return
		}
	case "payment_intent.payment_failed":
		intent, ok := pc.intentFrom(event)
		if !ok {
			utils.FailStatus(c, 400, "Malformed event payload")
			return
		}
		reason := ""
		if intent.LastPaymentError != nil {
			reason = intent.LastPaymentError.Msg
		}
		if err := pc.payments.MarkFailed(c.Request.Context(), intent.ID, reason); err != nil {
			pc.logger.Error("Webhook failure handling failed", zap.String("intent_id", intent.ID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"received": false})
			return
		}
	default:
		pc.logger.Debug("Ignoring webhook event", zap.String("type", string(event.Type)))
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

func (pc *PaymentController) intentFrom(event stripe.Event) (*stripe.PaymentIntent, bool) {
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		pc.logger.Warn("Failed to parse webhook intent", zap.Error(err))
		return nil, false
	}
	return &intent, true
}
