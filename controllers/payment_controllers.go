package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/yeremiapane/restaurant-oms/services"
	"github.com/yeremiapane/restaurant-oms/utils"
)

type PaymentController struct {
	Payments *services.PaymentService
}

func NewPaymentController(payments *services.PaymentService) *PaymentController {
	return &PaymentController{Payments: payments}
}

// CreatePayment records a full or partial payment.
func (pc *PaymentController) CreatePayment(c *gin.Context) {
	orderID, err := uintParam(c, "order_id")
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	var body struct {
		Amount    decimal.Decimal `json:"amount"`
		Method    string          `json:"method" binding:"omitempty,oneof=cash card mobile_money"`
		Reference string          `json:"reference"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	payment, order, err := pc.Payments.RecordPayment(orderID, body.Amount, body.Method, body.Reference, currentUserID(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Payment recorded", gin.H{
		"payment":   payment,
		"status":    order.Status,
		"paid":      order.PaidAmount,
		"remaining": order.RemainingAmount(),
	})
}

func (pc *PaymentController) GetPayments(c *gin.Context) {
	orderID, err := uintParam(c, "order_id")
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	summary, err := pc.Payments.ListPayments(orderID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order payments", summary)
}

func (pc *PaymentController) DeletePayment(c *gin.Context) {
	paymentID, err := uintParam(c, "payment_id")
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	order, err := pc.Payments.DeletePayment(paymentID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Payment deleted", gin.H{
		"order_id":  order.ID,
		"status":    order.Status,
		"paid":      order.PaidAmount,
		"remaining": order.RemainingAmount(),
	})
}
