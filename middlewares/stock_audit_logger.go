package middlewares

import (
	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-oms/utils"
)

// StockAuditLogger records who changed which stock and whether it worked.
func StockAuditLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		productID := c.Param("product_id")
		userID, _ := c.Get(ContextUserID)

		c.Next()

		if c.Writer.Status() < 300 {
			utils.Info().Printf("Stock change on product %s by user %v succeeded", productID, userID)
		} else {
			utils.Error().Printf("Stock change on product %s by user %v failed with %d", productID, userID, c.Writer.Status())
		}
	}
}
