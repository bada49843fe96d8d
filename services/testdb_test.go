package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/restaurant-oms/database"
	"github.com/yeremiapane/restaurant-oms/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

// clock is a manually advanced time source.
type clock struct{ t time.Time }

func newClock() *clock { return &clock{t: time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)} }

func (c *clock) Now() time.Time          { return c.t }
func (c *clock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func seedProduct(t *testing.T, db *gorm.DB, p models.Product) models.Product {
	t.Helper()
	if p.MaxStock == 0 {
		p.MaxStock = DefaultMaxStock
	}
	p.Available = true
	require.NoError(t, db.Create(&p).Error)
	return p
}

func seedStock(t *testing.T, db *gorm.DB, product models.Product, quantity int) {
	t.Helper()
	stock := models.Stock{ProductID: product.ID, Quantity: quantity, LastUpdated: time.Now()}
	ApplyCompoundFields(&stock, product)
	require.NoError(t, db.Create(&stock).Error)
}

func seedLink(t *testing.T, db *gorm.DB, product, supplement models.Product, ratio float64) {
	t.Helper()
	require.NoError(t, db.Create(&models.ProductSupplement{
		ProductID:    product.ID,
		SupplementID: supplement.ID,
		SyncRatio:    ratio,
	}).Error)
}

func price(s string) decimal.Decimal { return decimal.RequireFromString(s) }
