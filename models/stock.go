package models

import "time"

// Stock holds the current level of a product. Quantity is the flat unit
// count; the compound fields mirror it for cigarette and egg products.
type Stock struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	ProductID       uint      `gorm:"not null;uniqueIndex" json:"product_id"`
	Product         Product   `gorm:"foreignKey:ProductID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"product"`
	Quantity        int       `gorm:"not null;default:0" json:"quantity"`
	QuantityPackets *int      `json:"quantity_packets,omitempty"`
	QuantityUnits   *int      `json:"quantity_units,omitempty"`
	QuantityPlates  *int      `json:"quantity_plates,omitempty"`
	LastUpdated     time.Time `gorm:"not null" json:"last_updated"`
	UpdatedBy       uint      `json:"updated_by"`
}
