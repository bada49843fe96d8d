package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restaurant-oms/kds"
	"github.com/yeremiapane/restaurant-oms/models"
	"github.com/yeremiapane/restaurant-oms/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrStockNotFound        = errors.New("stock not found")
	ErrProductNotFound      = errors.New("product not found")
	ErrInsufficientStock    = errors.New("insufficient stock")
	ErrInvalidStockQuantity = errors.New("invalid stock quantity")
	ErrStockConflict        = errors.New("stock changed by another request, retry")
)

// StockView is a stock row decorated for stock cards.
type StockView struct {
	models.Stock
	Display string      `json:"display"`
	Status  StockStatus `json:"status"`
}

func NewStockView(stock models.Stock) StockView {
	p := stock.Product
	return StockView{
		Stock:   stock,
		Display: FormatStockQuantity(p.ProductType, stock.Quantity, p.ConversionFactor, p.StockUnit),
		Status:  ClassifyProductStock(p, stock.Quantity),
	}
}

// StockService applies stock movements. Every change updates the stock row
// and appends one StockMovement in the same transaction.
type StockService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewStockService(db *gorm.DB) *StockService {
	return &StockService{db: db, now: time.Now}
}

// EnsureStock creates a zeroed stock row for a tracked product if missing.
func (s *StockService) EnsureStock(tx *gorm.DB, product models.Product, userID uint) (*models.Stock, error) {
	var stock models.Stock
	err := tx.Where("product_id = ?", product.ID).First(&stock).Error
	if err == nil {
		return &stock, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	stock = models.Stock{
		ProductID:   product.ID,
		Quantity:    0,
		LastUpdated: s.now(),
		UpdatedBy:   userID,
	}
	ApplyCompoundFields(&stock, product)
	if err := tx.Create(&stock).Error; err != nil {
		return nil, fmt.Errorf("failed to create stock: %w", err)
	}
	return &stock, nil
}

func (s *StockService) GetStock(productID uint) (*models.Stock, error) {
	var stock models.Stock
	if err := s.db.Preload("Product").Where("product_id = ?", productID).First(&stock).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStockNotFound
		}
		return nil, err
	}
	return &stock, nil
}

func (s *StockService) ListStocks() ([]models.Stock, error) {
	var stocks []models.Stock
	if err := s.db.Preload("Product").Order("product_id asc").Find(&stocks).Error; err != nil {
		return nil, err
	}
	return stocks, nil
}

// Restock adds a compound or flat quantity to the product's stock.
func (s *StockService) Restock(productID uint, qty CompoundQuantity, userID uint, note string) (*models.Stock, *models.StockMovement, error) {
	var (
		stock    *models.Stock
		movement *models.StockMovement
	)
	err := s.db.Transaction(func(tx *gorm.DB) error {
		current, product, err := s.loadStock(tx, productID)
		if err != nil {
			return err
		}
		added := ToFlatUnits(product.ProductType, qty, product.ConversionFactor)
		if added <= 0 {
			return ErrInvalidStockQuantity
		}
		movement, err = s.apply(tx, current, product, current.Quantity+added, models.MovementRestock, added, nil, userID, note)
		stock = current
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	s.publish(*stock)
	return stock, movement, nil
}

// Adjust sets an absolute stock level, e.g. after a physical count.
func (s *StockService) Adjust(productID uint, level CompoundQuantity, userID uint, note string) (*models.Stock, *models.StockMovement, error) {
	var (
		stock    *models.Stock
		movement *models.StockMovement
	)
	err := s.db.Transaction(func(tx *gorm.DB) error {
		current, product, err := s.loadStock(tx, productID)
		if err != nil {
			return err
		}
		target := ToFlatUnits(product.ProductType, level, product.ConversionFactor)
		if target < 0 {
			return ErrInvalidStockQuantity
		}
		movement, err = s.apply(tx, current, product, target, models.MovementAdjustment, target-current.Quantity, nil, userID, note)
		stock = current
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	s.publish(*stock)
	return stock, movement, nil
}

// RecordSale takes quantity out of stock inside the caller's transaction.
// Products without a stock row are not tracked and are skipped.
func (s *StockService) RecordSale(tx *gorm.DB, productID uint, quantity int, orderID *uint, userID uint) (*models.Stock, error) {
	if quantity <= 0 {
		return nil, ErrInvalidStockQuantity
	}
	current, product, err := s.loadStock(tx, productID)
	if errors.Is(err, ErrStockNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if current.Quantity < quantity {
		return nil, fmt.Errorf("%w: %s (disponible: %s)", ErrInsufficientStock, product.Name,
			FormatStockQuantity(product.ProductType, current.Quantity, product.ConversionFactor, product.StockUnit))
	}
	if _, err := s.apply(tx, current, product, current.Quantity-quantity, models.MovementSale, quantity, orderID, userID, ""); err != nil {
		return nil, err
	}
	return current, nil
}

// ReturnToStock puts quantity back after an order line shrinks or is cancelled.
func (s *StockService) ReturnToStock(tx *gorm.DB, productID uint, quantity int, orderID *uint, userID uint) (*models.Stock, error) {
	if quantity <= 0 {
		return nil, ErrInvalidStockQuantity
	}
	current, product, err := s.loadStock(tx, productID)
	if errors.Is(err, ErrStockNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	note := "retour commande"
	if _, err := s.apply(tx, current, product, current.Quantity+quantity, models.MovementAdjustment, quantity, orderID, userID, note); err != nil {
		return nil, err
	}
	return current, nil
}

// Movements returns the product's history, newest first. limit <= 0 means all.
func (s *StockService) Movements(productID uint, limit int) ([]models.StockMovement, error) {
	var movements []models.StockMovement
	q := s.db.Where("product_id = ?", productID).Order("created_at desc").Order("id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&movements).Error; err != nil {
		return nil, err
	}
	return movements, nil
}

// Analyze runs the sales analyzer over the product's full history.
func (s *StockService) Analyze(productID uint) (*SalesAnalysis, error) {
	stock, err := s.GetStock(productID)
	if err != nil {
		return nil, err
	}
	movements, err := s.Movements(productID, 0)
	if err != nil {
		return nil, err
	}
	analyzer := &SalesAnalyzer{Now: s.now}
	analysis := analyzer.Analyze(movements, stock.Quantity, stock.Product.Price)
	return &analysis, nil
}

func (s *StockService) loadStock(tx *gorm.DB, productID uint) (*models.Stock, models.Product, error) {
	var product models.Product
	if err := tx.First(&product, productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, product, ErrProductNotFound
		}
		return nil, product, err
	}
	// row lock on drivers that support it; sqlite serializes writers anyway
	var stock models.Stock
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("product_id = ?", productID).First(&stock).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, product, ErrStockNotFound
		}
		return nil, product, err
	}
	stock.Product = product
	return &stock, product, nil
}

func (s *StockService) apply(tx *gorm.DB, stock *models.Stock, product models.Product, newQuantity int,
	kind models.MovementType, movementQty int, orderID *uint, userID uint, note string) (*models.StockMovement, error) {
	now := s.now()
	previous := stock.Quantity
	movement := models.StockMovement{
		ProductID:     product.ID,
		Type:          kind,
		Quantity:      movementQty,
		PreviousStock: stock.Quantity,
		NewStock:      newQuantity,
		OrderID:       orderID,
		Note:          note,
		CreatedAt:     now,
		CreatedBy:     userID,
	}

	stock.Quantity = newQuantity
	stock.LastUpdated = now
	stock.UpdatedBy = userID
	ApplyCompoundFields(stock, product)

	// only write over the level that was read
	res := tx.Model(&models.Stock{}).Where("id = ? AND quantity = ?", stock.ID, previous).Updates(map[string]interface{}{
		"quantity":         stock.Quantity,
		"quantity_packets": stock.QuantityPackets,
		"quantity_plates":  stock.QuantityPlates,
		"quantity_units":   stock.QuantityUnits,
		"last_updated":     stock.LastUpdated,
		"updated_by":       stock.UpdatedBy,
	})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to update stock: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		// mysql reports 0 for rows matched but left unchanged
		var n int64
		if err := tx.Model(&models.Stock{}).Where("id = ? AND quantity = ?", stock.ID, previous).Count(&n).Error; err != nil {
			return nil, err
		}
		if n == 0 {
			stock.Quantity = previous
			return nil, ErrStockConflict
		}
	}
	if err := tx.Create(&movement).Error; err != nil {
		return nil, fmt.Errorf("failed to record stock movement: %w", err)
	}

	utils.Info().WithFields(logrus.Fields{
		"product_id": product.ID,
		"type":       kind,
		"previous":   movement.PreviousStock,
		"new":        movement.NewStock,
	}).Info("Stock movement recorded")
	return &movement, nil
}

func (s *StockService) publish(stock models.Stock) {
	kds.BroadcastStockUpdate(NewStockView(stock))
}

// PublishStocks broadcasts stock rows touched by an order once its
// transaction has committed.
func (s *StockService) PublishStocks(stocks []*models.Stock) {
	for _, st := range stocks {
		if st != nil {
			s.publish(*st)
		}
	}
}
