package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-tableorder/middlewares"
	"github.com/yeremiapane/restaurant-tableorder/models"
	"github.com/yeremiapane/restaurant-tableorder/services"
	"github.com/yeremiapane/restaurant-tableorder/utils"
)

type PaymentController struct {
	Payments *services.PaymentService
}

func NewPaymentController(payments *services.PaymentService) *PaymentController {
	return &PaymentController{Payments: payments}
}

// RequestPayment -> POST /sessions/:session_id/payments
func (pc *PaymentController) RequestPayment(c *gin.Context) {
	sessionID, ok := paramID(c, "session_id")
	if !ok {
		return
	}
	var req struct {
		Method models.PaymentMethod `json:"method" binding:"required,payment_method"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	payment, err := pc.Payments.RequestPayment(c.Request.Context(), sessionID, req.Method)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Payment requested", payment)
}

// ListPayments -> GET /sessions/:session_id/payments
func (pc *PaymentController) ListPayments(c *gin.Context) {
	sessionID, ok := paramID(c, "session_id")
	if !ok {
		return
	}
	payments, err := pc.Payments.ListPayments(c.Request.Context(), sessionID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of payments", payments)
}

// GetPayment -> GET /payments/:payment_id
func (pc *PaymentController) GetPayment(c *gin.Context) {
	id, ok := paramID(c, "payment_id")
	if !ok {
		return
	}
	payment, err := pc.Payments.GetPayment(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Payment detail", payment)
}

// ConfirmPayment -> POST /payments/:payment_id/confirm
func (pc *PaymentController) ConfirmPayment(c *gin.Context) {
	id, ok := paramID(c, "payment_id")
	if !ok {
		return
	}
	var req struct {
		Status       models.PaymentStatus `json:"status" binding:"required,payment_decision"`
		ReceiptImage *string              `json:"receipt_image" binding:"omitempty,max=255"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	payment, err := pc.Payments.ConfirmPayment(c.Request.Context(), id, services.ConfirmInput{
		Status:       req.Status,
		ConfirmedBy:  middlewares.UserID(c),
		ReceiptImage: req.ReceiptImage,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Payment confirmed", payment)
}
