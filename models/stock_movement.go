package models

import "time"

type MovementType string

const (
	MovementSale       MovementType = "sale"
	MovementRestock    MovementType = "restock"
	MovementAdjustment MovementType = "adjustment"
)

// StockMovement is an append-only audit record of one stock change.
type StockMovement struct {
	ID            uint         `gorm:"primaryKey" json:"id"`
	ProductID     uint         `gorm:"not null;index" json:"product_id"`
	Type          MovementType `gorm:"type:varchar(20);not null;index" json:"type"`
	Quantity      int          `gorm:"not null" json:"quantity"`
	PreviousStock int          `gorm:"not null" json:"previous_stock"`
	NewStock      int          `gorm:"not null" json:"new_stock"`
	OrderID       *uint        `gorm:"index" json:"order_id,omitempty"`
	Note          string       `gorm:"type:varchar(255)" json:"note,omitempty"`
	CreatedAt     time.Time    `gorm:"not null;index" json:"created_at"`
	CreatedBy     uint         `json:"created_by"`
}
