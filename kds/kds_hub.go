package kds

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restaurant-oms/utils"
)

// Event types
const (
	EventOrderUpdate   = "order_update"
	EventStockUpdate   = "stock_update"
	EventLowStockAlert = "low_stock_alert"
	EventPaymentUpdate = "payment_update"
)

type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Hub holds every connected staff/manager client with its role.
type Hub struct {
	clients map[*websocket.Conn]string // conn -> role
	mutex   sync.Mutex
}

var hub = Hub{
	clients: make(map[*websocket.Conn]string),
}

// RegisterClient -> menambahkan connection ke set dengan role
func RegisterClient(conn *websocket.Conn, role string) {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()
	hub.clients[conn] = role
}

// UnregisterClient -> melepaskan connection
func UnregisterClient(conn *websocket.Conn) {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()
	delete(hub.clients, conn)
	conn.Close()
}

// ClientCount returns the number of connected clients.
func ClientCount() int {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()
	return len(hub.clients)
}

func BroadcastOrderUpdate(order interface{}) {
	broadcast(Message{Event: EventOrderUpdate, Data: order})
}

func BroadcastStockUpdate(stock interface{}) {
	broadcast(Message{Event: EventStockUpdate, Data: stock})
}

// BroadcastLowStockAlert is sent when a product drops into Faible or Rupture.
func BroadcastLowStockAlert(alert interface{}) {
	broadcast(Message{Event: EventLowStockAlert, Data: alert})
}

func BroadcastPaymentUpdate(payment interface{}, order interface{}) {
	broadcast(Message{
		Event: EventPaymentUpdate,
		Data: map[string]interface{}{
			"payment": payment,
			"order":   order,
		},
	})
}

func broadcast(msg Message) {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()

	if len(hub.clients) == 0 {
		return
	}

	data, err := json.Marshal(msg)
	if err != nil {
		utils.Error().Printf("Error marshaling message: %v", err)
		return
	}

	for conn, role := range hub.clients {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			utils.Error().WithFields(logrus.Fields{"role": role, "event": msg.Event}).
				Printf("Error sending message to client: %v", err)
			continue
		}
	}
	utils.Info().WithField("event", msg.Event).Debugf("Broadcast to %d clients", len(hub.clients))
}
