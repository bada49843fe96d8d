package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-oms/middlewares"
	"github.com/yeremiapane/restaurant-oms/services"
	"github.com/yeremiapane/restaurant-oms/utils"
)

func currentUserID(c *gin.Context) uint {
	v, exists := c.Get(middlewares.ContextUserID)
	if !exists {
		return 0
	}
	id, _ := v.(uint)
	return id
}

func uintParam(c *gin.Context, name string) (uint, error) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid %s: %q", name, raw)
	}
	return uint(id), nil
}

// respondServiceError maps service errors to HTTP status codes.
func respondServiceError(c *gin.Context, err error) {
	var validation *services.ValidationError
	switch {
	case errors.As(err, &validation):
		utils.RespondError(c, http.StatusBadRequest, err)
	case errors.Is(err, services.ErrProductNotFound),
		errors.Is(err, services.ErrStockNotFound),
		errors.Is(err, services.ErrOrderNotFound),
		errors.Is(err, services.ErrOrderItemNotFound),
		errors.Is(err, services.ErrPaymentNotFound),
		errors.Is(err, services.ErrDraftNotFound),
		errors.Is(err, services.ErrDraftItemNotFound),
		errors.Is(err, services.ErrSyncRuleNotFound):
		utils.RespondError(c, http.StatusNotFound, err)
	case errors.Is(err, services.ErrInsufficientStock),
		errors.Is(err, services.ErrOverpayment),
		errors.Is(err, services.ErrOrderHasPayments),
		errors.Is(err, services.ErrOrderNotEditable),
		errors.Is(err, services.ErrOrderCancelled),
		errors.Is(err, services.ErrTotalBelowPaid),
		errors.Is(err, services.ErrDraftClosed),
		errors.Is(err, services.ErrStockConflict),
		errors.Is(err, services.ErrOrderConflict):
		utils.RespondError(c, http.StatusConflict, err)
	case errors.Is(err, services.ErrInvalidSyncRule),
		errors.Is(err, services.ErrInvalidStockQuantity),
		errors.Is(err, services.ErrInvalidPaymentAmount),
		errors.Is(err, services.ErrInvalidPaymentMethod),
		errors.Is(err, services.ErrEmptyOrder),
		errors.Is(err, services.ErrProductUnavailable),
		errors.Is(err, services.ErrSupplementNotLink):
		utils.RespondError(c, http.StatusBadRequest, err)
	default:
		utils.RespondError(c, http.StatusInternalServerError, err)
	}
}
