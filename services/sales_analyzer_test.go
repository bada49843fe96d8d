package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/restaurant-oms/models"
)

var analyzerNow = time.Date(2024, 6, 20, 12, 0, 0, 0, time.UTC)

func movement(kind models.MovementType, qty int, ago time.Duration) models.StockMovement {
	return models.StockMovement{Type: kind, Quantity: qty, CreatedAt: analyzerNow.Add(-ago)}
}

func fixedAnalyzer() *SalesAnalyzer {
	return &SalesAnalyzer{Now: func() time.Time { return analyzerNow }}
}

func TestAnalyzeWithoutRestock(t *testing.T) {
	got := fixedAnalyzer().Analyze([]models.StockMovement{
		movement(models.MovementSale, 3, time.Hour),
	}, 10, dec("500"))

	assert.Nil(t, got.LastRestockDate)
	assert.Equal(t, 0, got.QuantitySold)
	assert.True(t, got.RevenueGenerated.IsZero())
	assert.Zero(t, got.AverageDailySales)
	assert.Nil(t, got.EstimatedDaysUntilNextRestock)
	assert.Equal(t, TrendStable, got.SalesTrend)
}

func TestAnalyzeSinceLastRestock(t *testing.T) {
	day := 24 * time.Hour
	movements := []models.StockMovement{
		movement(models.MovementRestock, 50, 20*day),
		movement(models.MovementSale, 99, 15*day), // before the last restock
		movement(models.MovementRestock, 100, 10*day),
		movement(models.MovementSale, 10, 9*day),
		movement(models.MovementSale, 10, 8*day),
		movement(models.MovementSale, 20, 2*day),
		movement(models.MovementAdjustment, -5, day),
	}

	got := fixedAnalyzer().Analyze(movements, 60, dec("1500"))

	require.NotNil(t, got.LastRestockDate)
	assert.True(t, got.LastRestockDate.Equal(analyzerNow.Add(-10*day)))
	assert.Equal(t, 100, got.LastRestockQuantity)
	assert.Equal(t, 10, got.DaysSinceLastRestock)
	assert.Equal(t, 40, got.QuantitySold)
	assert.True(t, got.RevenueGenerated.Equal(dec("60000")))
	assert.InDelta(t, 4.0, got.AverageDailySales, 1e-9)
	require.NotNil(t, got.EstimatedDaysUntilNextRestock)
	assert.Equal(t, 15, *got.EstimatedDaysUntilNextRestock)
}

func TestAnalyzeSameDayRestock(t *testing.T) {
	got := fixedAnalyzer().Analyze([]models.StockMovement{
		movement(models.MovementRestock, 30, 2*time.Hour),
		movement(models.MovementSale, 5, time.Hour),
	}, 25, dec("100"))

	assert.Equal(t, 0, got.DaysSinceLastRestock)
	assert.Equal(t, 5, got.QuantitySold)
	assert.Zero(t, got.AverageDailySales)
	assert.Nil(t, got.EstimatedDaysUntilNextRestock)
}

func TestSalesTrend(t *testing.T) {
	day := 24 * time.Hour
	tests := []struct {
		name  string
		sales []models.StockMovement
		trend SalesTrend
		pct   float64
	}{
		{"no sales", nil, TrendStable, 0},
		{"only recent", []models.StockMovement{movement(models.MovementSale, 4, day)}, TrendUp, 100},
		{"up", []models.StockMovement{
			movement(models.MovementSale, 12, day),
			movement(models.MovementSale, 10, 8*day),
		}, TrendUp, 20},
		{"down", []models.StockMovement{
			movement(models.MovementSale, 5, day),
			movement(models.MovementSale, 10, 9*day),
		}, TrendDown, -50},
		{"stable within ten percent", []models.StockMovement{
			movement(models.MovementSale, 11, day),
			movement(models.MovementSale, 10, 10*day),
		}, TrendStable, 10},
		{"older than two windows ignored", []models.StockMovement{
			movement(models.MovementSale, 10, 20*day),
		}, TrendStable, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trend, pct := salesTrend(tt.sales, analyzerNow)
			assert.Equal(t, tt.trend, trend)
			assert.InDelta(t, tt.pct, pct, 0.001)
		})
	}
}
