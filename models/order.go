package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const (
	OrderStatusPending       = "pending"
	OrderStatusPartiallyPaid = "partially_paid"
	OrderStatusPaid          = "paid"
	OrderStatusCancelled     = "cancelled"
)

type Order struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	TableNumber  string          `gorm:"type:varchar(50)" json:"table_number"`
	CustomerName string          `gorm:"type:varchar(100)" json:"customer_name"`
	Status       string          `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	TotalAmount  decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"total_amount"`
	PaidAmount   decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"paid_amount"`
	Version      uint            `gorm:"not null;default:0" json:"version"`
	CreatedBy    uint            `json:"created_by"`
	CreatedAt    time.Time       `gorm:"not null;index" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"not null" json:"updated_at"`
	OrderItems   []OrderItem     `gorm:"foreignKey:OrderID" json:"order_items"`
	Payments     []Payment       `gorm:"foreignKey:OrderID" json:"payments,omitempty"`
}

// RemainingAmount is what is still owed on the order.
func (o *Order) RemainingAmount() decimal.Decimal {
	remaining := o.TotalAmount.Sub(o.PaidAmount)
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

// Reference is the human-facing order number printed on tickets.
func (o *Order) Reference() string {
	return fmt.Sprintf("CMD-%s-%05d", o.CreatedAt.Format("20060102"), o.ID)
}
