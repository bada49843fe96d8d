package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	PaymentMethodCash        = "cash"
	PaymentMethodCard        = "card"
	PaymentMethodMobileMoney = "mobile_money"
)

// Payment is one (possibly partial) settlement of an order.
type Payment struct {
	ID         uint            `json:"id" gorm:"primaryKey"`
	OrderID    uint            `json:"order_id" gorm:"not null;index"`
	Amount     decimal.Decimal `json:"amount" gorm:"type:decimal(12,2);not null"`
	Method     string          `json:"method" gorm:"type:varchar(20);not null;default:'cash'"`
	Reference  string          `json:"reference,omitempty" gorm:"type:varchar(100)"`
	ReceivedBy uint            `json:"received_by"`
	CreatedAt  time.Time       `json:"created_at" gorm:"index"`
	UpdatedAt  time.Time       `json:"updated_at"`
}
