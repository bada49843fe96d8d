package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-oms/models"
	"github.com/yeremiapane/restaurant-oms/services"
	"github.com/yeremiapane/restaurant-oms/utils"
)

type OrderController struct {
	Orders      *services.OrderService
	MaxQuantity int
}

func NewOrderController(orders *services.OrderService, maxQuantity int) *OrderController {
	return &OrderController{Orders: orders, MaxQuantity: maxQuantity}
}

// GetAllOrders supports ?status=.
func (oc *OrderController) GetAllOrders(c *gin.Context) {
	status := c.Query("status")
	switch status {
	case "", models.OrderStatusPending, models.OrderStatusPartiallyPaid, models.OrderStatusPaid, models.OrderStatusCancelled:
	default:
		utils.RespondError(c, http.StatusBadRequest, errInvalidStatus(status))
		return
	}
	orders, err := oc.Orders.List(status)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "All orders", orders)
}

func (oc *OrderController) GetOrderByID(c *gin.Context) {
	orderID, err := uintParam(c, "order_id")
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	order, err := oc.Orders.Get(orderID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order detail", gin.H{
		"order":     order,
		"reference": order.Reference(),
		"remaining": order.RemainingAmount(),
	})
}

// UpdateItemQuantity edits a saved order line; supplements follow.
func (oc *OrderController) UpdateItemQuantity(c *gin.Context) {
	orderID, err := uintParam(c, "order_id")
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	itemID, err := uintParam(c, "item_id")
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	var body struct {
		Quantity int `json:"quantity"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	update, err := oc.Orders.UpdateItemQuantity(orderID, itemID, body.Quantity, oc.MaxQuantity, currentUserID(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order item updated", update)
}

func (oc *OrderController) RemoveItem(c *gin.Context) {
	orderID, err := uintParam(c, "order_id")
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	itemID, err := uintParam(c, "item_id")
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	order, err := oc.Orders.RemoveItem(orderID, itemID, currentUserID(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order item removed", order)
}

func (oc *OrderController) CancelOrder(c *gin.Context) {
	orderID, err := uintParam(c, "order_id")
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	order, err := oc.Orders.Cancel(orderID, currentUserID(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order cancelled", order)
}

func (oc *OrderController) DeleteOrder(c *gin.Context) {
	orderID, err := uintParam(c, "order_id")
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if err := oc.Orders.Delete(orderID); err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order deleted", nil)
}

type errInvalidStatus string

func (e errInvalidStatus) Error() string {
	return "invalid status filter: " + string(e)
}
