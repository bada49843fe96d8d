package services

import (
	"math"

	"github.com/yeremiapane/restaurant-oms/models"
)

const (
	StockLabelOut    = "Rupture"
	StockLabelLow    = "Faible"
	StockLabelNormal = "Normal"

	DefaultMaxStock = 100
	lowStockRatio   = 0.2
)

// StockThresholds configures ClassifyStock. The zero value means a
// reference level of DefaultMaxStock and a low mark at 20% of it.
type StockThresholds struct {
	MaxStock int
	Low      *int
}

type StockStatus struct {
	Label      string  `json:"label"`
	Percentage float64 `json:"percentage"`
}

// ClassifyStock labels a flat quantity for stock cards.
func ClassifyStock(quantity int, th StockThresholds) StockStatus {
	maxStock := th.MaxStock
	if maxStock <= 0 {
		maxStock = DefaultMaxStock
	}
	if quantity <= 0 {
		return StockStatus{Label: StockLabelOut, Percentage: 0}
	}

	pct := float64(quantity) / float64(maxStock) * 100
	if pct > 100 {
		pct = 100
	}
	pct = math.Round(pct*100) / 100

	low := lowStockRatio * float64(maxStock)
	if th.Low != nil && *th.Low >= 0 {
		low = float64(*th.Low)
	}
	if float64(quantity) <= low {
		return StockStatus{Label: StockLabelLow, Percentage: pct}
	}
	return StockStatus{Label: StockLabelNormal, Percentage: pct}
}

// ClassifyProductStock classifies using the product's own thresholds.
func ClassifyProductStock(product models.Product, quantity int) StockStatus {
	return ClassifyStock(quantity, StockThresholds{
		MaxStock: product.MaxStock,
		Low:      product.LowStockThreshold,
	})
}
