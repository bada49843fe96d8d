package services

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restaurant-oms/kds"
	"github.com/yeremiapane/restaurant-oms/models"
	"github.com/yeremiapane/restaurant-oms/utils"
	"gorm.io/gorm"
)

// LowStockAlert is broadcast when a product enters Faible or Rupture.
type LowStockAlert struct {
	ProductID   uint        `json:"product_id"`
	ProductName string      `json:"product_name"`
	Quantity    int         `json:"quantity"`
	Display     string      `json:"display"`
	Previous    string      `json:"previous_label"`
	Status      StockStatus `json:"status"`
}

// StockMonitor polls stock levels and alerts on transitions out of
// Normal. Each tick also sweeps idle drafts and expired revoked tokens.
type StockMonitor struct {
	DB       *gorm.DB
	Drafts   *DraftRegistry
	StopChan chan struct{}
	Interval time.Duration

	mu       sync.Mutex
	labels   map[uint]string
	stopOnce sync.Once
}

func NewStockMonitor(db *gorm.DB, drafts *DraftRegistry, interval time.Duration) *StockMonitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &StockMonitor{
		DB:       db,
		Drafts:   drafts,
		StopChan: make(chan struct{}),
		Interval: interval,
		labels:   make(map[uint]string),
	}
}

func (sm *StockMonitor) Start() {
	go func() {
		ticker := time.NewTicker(sm.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				sm.tick()
			case <-sm.StopChan:
				return
			}
		}
	}()
}

func (sm *StockMonitor) Stop() {
	sm.stopOnce.Do(func() { close(sm.StopChan) })
}

func (sm *StockMonitor) tick() {
	if _, err := sm.CheckStocks(); err != nil {
		utils.Error().Printf("Error checking stocks: %v", err)
	}
	if sm.Drafts != nil {
		if n := sm.Drafts.Sweep(DraftIdleTimeout); n > 0 {
			utils.Info().Printf("Evicted %d idle drafts", n)
		}
	}
	utils.CleanupBlacklist()
}

// CheckStocks classifies every stock and returns (and broadcasts) alerts
// for products whose label moved from Normal, or from Faible to Rupture.
// The first check only records labels for products already Normal.
func (sm *StockMonitor) CheckStocks() ([]LowStockAlert, error) {
	var stocks []models.Stock
	if err := sm.DB.Preload("Product").Find(&stocks).Error; err != nil {
		return nil, err
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()

	alerts := make([]LowStockAlert, 0)
	for _, st := range stocks {
		view := NewStockView(st)
		label := view.Status.Label
		previous, seen := sm.labels[st.ProductID]
		sm.labels[st.ProductID] = label

		if label == StockLabelNormal || (seen && previous == label) {
			continue
		}
		if seen && previous == StockLabelOut {
			// restocked partially, still low
			continue
		}
		alert := LowStockAlert{
			ProductID:   st.ProductID,
			ProductName: st.Product.Name,
			Quantity:    st.Quantity,
			Display:     view.Display,
			Previous:    previous,
			Status:      view.Status,
		}
		alerts = append(alerts, alert)
		utils.Info().WithFields(logrus.Fields{
			"product_id": st.ProductID,
			"label":      label,
		}).Warn("Low stock")
		kds.BroadcastLowStockAlert(alert)
	}
	return alerts, nil
}
