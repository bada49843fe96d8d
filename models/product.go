package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProductType decides how a product is stocked and displayed.
type ProductType string

const (
	ProductTypeDish       ProductType = "dish"
	ProductTypeDrink      ProductType = "drink"
	ProductTypeCigarette  ProductType = "cigarette"
	ProductTypeEgg        ProductType = "egg"
	ProductTypeSupplement ProductType = "supplement"
	ProductTypeService    ProductType = "service"
)

// IsValid reports whether t is one of the known product types.
func (t ProductType) IsValid() bool {
	switch t {
	case ProductTypeDish, ProductTypeDrink, ProductTypeCigarette,
		ProductTypeEgg, ProductTypeSupplement, ProductTypeService:
		return true
	}
	return false
}

// IsCompound reports whether stock for t is counted in containers plus loose units.
func (t ProductType) IsCompound() bool {
	return t == ProductTypeCigarette || t == ProductTypeEgg
}

type Product struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	CategoryID  *uint           `gorm:"index" json:"category_id,omitempty"`
	Category    *Category       `gorm:"foreignKey:CategoryID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"category,omitempty"`
	Name        string          `gorm:"type:varchar(255);not null" json:"name"`
	Description string          `gorm:"type:text" json:"description"`
	ProductType ProductType     `gorm:"type:varchar(20);not null;index" json:"product_type"`
	Price       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	// ConversionFactor is the number of loose units in one packet or plate.
	ConversionFactor  *int      `json:"conversion_factor,omitempty"`
	StockUnit         string    `gorm:"type:varchar(30)" json:"stock_unit,omitempty"`
	MaxStock          int       `gorm:"not null;default:100" json:"max_stock"`
	LowStockThreshold *int      `json:"low_stock_threshold,omitempty"`
	TrackStock        bool      `gorm:"not null;default:false" json:"track_stock"`
	Available         bool      `gorm:"not null;default:true" json:"available"`
	CreatedAt         time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt         time.Time `gorm:"not null" json:"updated_at"`
}
