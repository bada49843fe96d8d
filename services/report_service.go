package services

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/yeremiapane/restaurant-oms/models"
	"gorm.io/gorm"
)

const topProductsLimit = 5

type TopProduct struct {
	ProductID   uint            `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	Revenue     decimal.Decimal `json:"revenue"`
}

type LowStockEntry struct {
	ProductID   uint        `json:"product_id"`
	ProductName string      `json:"product_name"`
	Quantity    int         `json:"quantity"`
	Display     string      `json:"display"`
	Status      StockStatus `json:"status"`
}

type DashboardStats struct {
	From              time.Time        `json:"from"`
	To                time.Time        `json:"to"`
	OrdersByStatus    map[string]int64 `json:"orders_by_status"`
	TotalOrders       int64            `json:"total_orders"`
	Revenue           decimal.Decimal  `json:"revenue"`
	Outstanding       decimal.Decimal  `json:"outstanding"`
	AverageOrderValue decimal.Decimal  `json:"average_order_value"`
	TopProducts       []TopProduct     `json:"top_products"`
	LowStock          []LowStockEntry  `json:"low_stock"`
}

type DailySales struct {
	Date    string          `json:"date"`
	Revenue decimal.Decimal `json:"revenue"`
	Orders  int             `json:"orders"`
}

// ReportService aggregates orders, payments and stock for the manager dashboard.
type ReportService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewReportService(db *gorm.DB) *ReportService {
	return &ReportService{db: db, now: time.Now}
}

// DashboardStats covers orders created in [from, to). Revenue is the sum
// of payments received in the same window.
func (s *ReportService) DashboardStats(from, to time.Time) (*DashboardStats, error) {
	stats := &DashboardStats{
		From:              from,
		To:                to,
		OrdersByStatus:    make(map[string]int64),
		Revenue:           decimal.Zero,
		Outstanding:       decimal.Zero,
		AverageOrderValue: decimal.Zero,
		TopProducts:       []TopProduct{},
		LowStock:          []LowStockEntry{},
	}

	var orders []models.Order
	if err := s.db.Preload("OrderItems").
		Where("created_at >= ? AND created_at < ?", from, to).
		Find(&orders).Error; err != nil {
		return nil, err
	}

	billed := decimal.Zero
	var billedCount int64
	products := make(map[uint]*TopProduct)
	var productOrder []uint
	for _, o := range orders {
		stats.OrdersByStatus[o.Status]++
		stats.TotalOrders++
		if o.Status == models.OrderStatusCancelled {
			continue
		}
		billed = billed.Add(o.TotalAmount)
		billedCount++
		stats.Outstanding = stats.Outstanding.Add(o.RemainingAmount())
		for _, it := range o.OrderItems {
			tp, ok := products[it.ProductID]
			if !ok {
				tp = &TopProduct{ProductID: it.ProductID, ProductName: it.ProductName, Revenue: decimal.Zero}
				products[it.ProductID] = tp
				productOrder = append(productOrder, it.ProductID)
			}
			tp.Quantity += it.Quantity
			tp.Revenue = tp.Revenue.Add(it.TotalPrice)
		}
	}
	if billedCount > 0 {
		stats.AverageOrderValue = billed.Div(decimal.NewFromInt(billedCount)).Round(2)
	}
	stats.TopProducts = topProducts(products, productOrder, topProductsLimit)

	var payments []models.Payment
	if err := s.db.Where("created_at >= ? AND created_at < ?", from, to).Find(&payments).Error; err != nil {
		return nil, err
	}
	for _, p := range payments {
		stats.Revenue = stats.Revenue.Add(p.Amount)
	}

	low, err := s.LowStock()
	if err != nil {
		return nil, err
	}
	stats.LowStock = low
	return stats, nil
}

// LowStock lists every tracked product whose status is not Normal.
func (s *ReportService) LowStock() ([]LowStockEntry, error) {
	var stocks []models.Stock
	if err := s.db.Preload("Product").Order("product_id asc").Find(&stocks).Error; err != nil {
		return nil, err
	}
	out := make([]LowStockEntry, 0)
	for _, st := range stocks {
		view := NewStockView(st)
		if view.Status.Label == StockLabelNormal {
			continue
		}
		out = append(out, LowStockEntry{
			ProductID:   st.ProductID,
			ProductName: st.Product.Name,
			Quantity:    st.Quantity,
			Display:     view.Display,
			Status:      view.Status,
		})
	}
	return out, nil
}

// SalesSeries returns one entry per calendar day for the last `days` days,
// oldest first, with payments received that day.
func (s *ReportService) SalesSeries(days int) ([]DailySales, error) {
	if days <= 0 {
		days = 7
	}
	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	start := today.AddDate(0, 0, -(days - 1))
	end := today.AddDate(0, 0, 1)

	series := make([]DailySales, days)
	index := make(map[string]int, days)
	for i := 0; i < days; i++ {
		key := start.AddDate(0, 0, i).Format("2006-01-02")
		series[i] = DailySales{Date: key, Revenue: decimal.Zero}
		index[key] = i
	}

	var payments []models.Payment
	if err := s.db.Where("created_at >= ? AND created_at < ?", start, end).Find(&payments).Error; err != nil {
		return nil, err
	}
	for _, p := range payments {
		if i, ok := index[p.CreatedAt.In(now.Location()).Format("2006-01-02")]; ok {
			series[i].Revenue = series[i].Revenue.Add(p.Amount)
		}
	}

	var orders []models.Order
	if err := s.db.Where("created_at >= ? AND created_at < ? AND status <> ?", start, end, models.OrderStatusCancelled).
		Find(&orders).Error; err != nil {
		return nil, err
	}
	for _, o := range orders {
		if i, ok := index[o.CreatedAt.In(now.Location()).Format("2006-01-02")]; ok {
			series[i].Orders++
		}
	}
	return series, nil
}

func topProducts(products map[uint]*TopProduct, order []uint, limit int) []TopProduct {
	out := make([]TopProduct, 0, len(order))
	for _, id := range order {
		out = append(out, *products[id])
	}
	// insertion sort keeps first-seen order among equal quantities
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Quantity > out[j-1].Quantity; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
