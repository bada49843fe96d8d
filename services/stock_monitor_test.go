package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/restaurant-oms/models"
)

func TestCheckStocksAlertsOnTransitions(t *testing.T) {
	db := setupTestDB(t)
	stocks := NewStockService(db)
	p := seedProduct(t, db, models.Product{Name: "Coca", ProductType: models.ProductTypeDrink, Price: price("600"), TrackStock: true})
	seedStock(t, db, p, 50)

	monitor := NewStockMonitor(db, nil, time.Minute)

	alerts, err := monitor.CheckStocks()
	require.NoError(t, err)
	assert.Empty(t, alerts)

	_, _, err = stocks.Adjust(p.ID, CompoundQuantity{Quantity: 10}, 1, "")
	require.NoError(t, err)
	alerts, err = monitor.CheckStocks()
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, StockLabelLow, alerts[0].Status.Label)
	assert.Equal(t, StockLabelNormal, alerts[0].Previous)

	// unchanged label: no repeat
	alerts, err = monitor.CheckStocks()
	require.NoError(t, err)
	assert.Empty(t, alerts)

	_, _, err = stocks.Adjust(p.ID, CompoundQuantity{Quantity: 0}, 1, "")
	require.NoError(t, err)
	alerts, err = monitor.CheckStocks()
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, StockLabelOut, alerts[0].Status.Label)

	// partial restock from Rupture to Faible is not an alert
	_, _, err = stocks.Adjust(p.ID, CompoundQuantity{Quantity: 5}, 1, "")
	require.NoError(t, err)
	alerts, err = monitor.CheckStocks()
	require.NoError(t, err)
	assert.Empty(t, alerts)
}

func TestCheckStocksAlertsOnFirstLowReading(t *testing.T) {
	db := setupTestDB(t)
	p := seedProduct(t, db, models.Product{Name: "Frites", ProductType: models.ProductTypeSupplement, Price: price("500"), TrackStock: true})
	seedStock(t, db, p, 0)

	alerts, err := NewStockMonitor(db, nil, 0).CheckStocks()
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, "", alerts[0].Previous)
}

func TestStockMonitorStartStop(t *testing.T) {
	db := setupTestDB(t)
	registry := NewDraftRegistry()
	c := newClock()
	registry.now = c.Now
	registry.Create()
	c.Advance(3 * time.Hour)

	monitor := NewStockMonitor(db, registry, 10*time.Millisecond)
	monitor.Start()
	assert.Eventually(t, func() bool { return registry.Len() == 0 }, time.Second, 10*time.Millisecond)
	monitor.Stop()
	monitor.Stop()
}
