package models

import "time"

// ProductSupplement links a dish to a supplement it can be served with.
type ProductSupplement struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	ProductID       uint      `gorm:"not null;uniqueIndex:idx_product_supplement" json:"product_id"`
	SupplementID    uint      `gorm:"not null;uniqueIndex:idx_product_supplement" json:"supplement_id"`
	Supplement      Product   `gorm:"foreignKey:SupplementID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"supplement"`
	DefaultQuantity int       `gorm:"not null;default:1" json:"default_quantity"`
	SyncRatio       float64   `gorm:"not null;default:1" json:"sync_ratio"`
	CreatedAt       time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time `gorm:"not null" json:"updated_at"`
}
