package services

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yeremiapane/restaurant-oms/models"
)

type SalesTrend string

const (
	TrendUp     SalesTrend = "up"
	TrendDown   SalesTrend = "down"
	TrendStable SalesTrend = "stable"

	trendWindow    = 7 * 24 * time.Hour
	trendThreshold = 10.0
)

// SalesAnalysis summarises sales since the last restock of a product.
type SalesAnalysis struct {
	LastRestockDate               *time.Time      `json:"last_restock_date"`
	LastRestockQuantity           int             `json:"last_restock_quantity"`
	DaysSinceLastRestock          int             `json:"days_since_last_restock"`
	QuantitySold                  int             `json:"quantity_sold"`
	RevenueGenerated              decimal.Decimal `json:"revenue_generated"`
	AverageDailySales             float64         `json:"average_daily_sales"`
	EstimatedDaysUntilNextRestock *int            `json:"estimated_days_until_next_restock"`
	SalesTrend                    SalesTrend      `json:"sales_trend"`
	TrendPercentage               float64         `json:"trend_percentage"`
}

// SalesAnalyzer is a pure aggregation over a movement list; Now is
// injectable so windows can be pinned in tests.
type SalesAnalyzer struct {
	Now func() time.Time
}

func NewSalesAnalyzer() *SalesAnalyzer {
	return &SalesAnalyzer{Now: time.Now}
}

// AnalyzeSales runs a SalesAnalyzer anchored at the current time.
func AnalyzeSales(movements []models.StockMovement, currentStock int, unitPrice decimal.Decimal) SalesAnalysis {
	return NewSalesAnalyzer().Analyze(movements, currentStock, unitPrice)
}

func (a *SalesAnalyzer) Analyze(movements []models.StockMovement, currentStock int, unitPrice decimal.Decimal) SalesAnalysis {
	analysis := SalesAnalysis{
		RevenueGenerated: decimal.Zero,
		SalesTrend:       TrendStable,
	}

	restocks := filterMovements(movements, models.MovementRestock)
	if len(restocks) == 0 {
		return analysis
	}
	sort.SliceStable(restocks, func(i, j int) bool {
		return restocks[i].CreatedAt.After(restocks[j].CreatedAt)
	})
	last := restocks[0]
	lastDate := last.CreatedAt
	analysis.LastRestockDate = &lastDate
	analysis.LastRestockQuantity = last.Quantity

	sales := filterMovements(movements, models.MovementSale)
	for _, m := range sales {
		if !m.CreatedAt.Before(lastDate) {
			analysis.QuantitySold += m.Quantity
		}
	}
	analysis.RevenueGenerated = LineTotal(analysis.QuantitySold, unitPrice)

	now := a.now()
	analysis.DaysSinceLastRestock = int(math.Floor(now.Sub(lastDate).Hours() / 24))
	if analysis.DaysSinceLastRestock > 0 {
		analysis.AverageDailySales = float64(analysis.QuantitySold) / float64(analysis.DaysSinceLastRestock)
	}
	if analysis.AverageDailySales > 0 && currentStock > 0 {
		days := int(math.Floor(float64(currentStock) / analysis.AverageDailySales))
		analysis.EstimatedDaysUntilNextRestock = &days
	}

	analysis.SalesTrend, analysis.TrendPercentage = salesTrend(sales, now)
	return analysis
}

func (a *SalesAnalyzer) now() time.Time {
	if a.Now == nil {
		return time.Now()
	}
	return a.Now()
}

// salesTrend compares the last rolling 7 days with the 7 days before.
func salesTrend(sales []models.StockMovement, now time.Time) (SalesTrend, float64) {
	recentStart := now.Add(-trendWindow)
	priorStart := recentStart.Add(-trendWindow)

	var recent, prior int
	for _, m := range sales {
		switch {
		case m.CreatedAt.After(recentStart) && !m.CreatedAt.After(now):
			recent += m.Quantity
		case m.CreatedAt.After(priorStart) && !m.CreatedAt.After(recentStart):
			prior += m.Quantity
		}
	}

	if prior == 0 {
		if recent > 0 {
			return TrendUp, 100
		}
		return TrendStable, 0
	}

	change := float64(recent-prior) / float64(prior) * 100
	change = math.Round(change*100) / 100
	switch {
	case change > trendThreshold:
		return TrendUp, change
	case change < -trendThreshold:
		return TrendDown, change
	}
	return TrendStable, change
}

func filterMovements(movements []models.StockMovement, kind models.MovementType) []models.StockMovement {
	out := make([]models.StockMovement, 0, len(movements))
	for _, m := range movements {
		if m.Type == kind {
			out = append(out, m)
		}
	}
	return out
}
