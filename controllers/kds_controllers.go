package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/yeremiapane/restaurant-oms/kds"
	"github.com/yeremiapane/restaurant-oms/middlewares"
	"github.com/yeremiapane/restaurant-oms/utils"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// KDSHandler upgrades to a WebSocket that receives order, stock and
// payment events. The client never sends anything meaningful.
func KDSHandler(c *gin.Context) {
	role := c.GetString(middlewares.ContextRole)
	if role == "" {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		utils.Error().Printf("WebSocket upgrade failed: %v", err)
		return
	}

	kds.RegisterClient(ws, role)
	utils.Info().Printf("KDS client connected (role=%s, clients=%d)", role, kds.ClientCount())

	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}

	kds.UnregisterClient(ws)
}
