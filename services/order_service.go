package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restaurant-oms/kds"
	"github.com/yeremiapane/restaurant-oms/models"
	"github.com/yeremiapane/restaurant-oms/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrOrderItemNotFound = errors.New("order item not found")
	ErrOrderNotEditable  = errors.New("order can no longer be edited")
	ErrOrderHasPayments  = errors.New("order already has payments")
	ErrEmptyOrder        = errors.New("order has no items")
	ErrTotalBelowPaid    = errors.New("order total would fall below the amount already paid")
	ErrOrderConflict     = errors.New("order changed by another request, retry")
)

// OrderItemUpdate is the outcome of editing one line of a saved order.
type OrderItemUpdate struct {
	Order      *models.Order   `json:"order"`
	Reconcile  ReconcileResult `json:"reconcile"`
	TotalCheck TotalCheck      `json:"total_check"`
}

type OrderService struct {
	db     *gorm.DB
	stocks *StockService
	now    func() time.Time
}

func NewOrderService(db *gorm.DB, stocks *StockService) *OrderService {
	return &OrderService{db: db, stocks: stocks, now: time.Now}
}

// OrderInput is a finalised draft ready to be saved.
type OrderInput struct {
	TableNumber  string
	CustomerName string
	Items        []LineItem
	Supplements  []SupplementItem
	CreatedBy    uint
}

// Create persists an order with its lines and takes sold quantities out of
// stock. Any stock shortage rolls the whole order back.
func (s *OrderService) Create(input OrderInput) (*models.Order, error) {
	if len(input.Items) == 0 {
		return nil, ErrEmptyOrder
	}

	var (
		order   models.Order
		touched []*models.Stock
	)
	err := s.db.Transaction(func(tx *gorm.DB) error {
		now := s.now()
		order = models.Order{
			TableNumber:  input.TableNumber,
			CustomerName: input.CustomerName,
			Status:       models.OrderStatusPending,
			TotalAmount:  decimal.Zero,
			PaidAmount:   decimal.Zero,
			CreatedBy:    input.CreatedBy,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := tx.Create(&order).Error; err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}

		total := decimal.Zero
		parents := make(map[string]uint, len(input.Items))
		sold := make(map[uint]int)
		var productOrder []uint

		for _, item := range input.Items {
			row := models.OrderItem{
				OrderID:     order.ID,
				ClientID:    clientIDOrNew(item.ClientID),
				ProductID:   item.ProductID,
				ProductName: item.ProductName,
				Quantity:    item.Quantity,
				UnitPrice:   item.UnitPrice,
				TotalPrice:  LineTotal(item.Quantity, item.UnitPrice),
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("failed to create order item: %w", err)
			}
			parents[row.ClientID] = row.ID
			total = total.Add(row.TotalPrice)
			if _, seen := sold[row.ProductID]; !seen {
				productOrder = append(productOrder, row.ProductID)
			}
			sold[row.ProductID] += row.Quantity
		}

		for _, sup := range input.Supplements {
			if sup.Quantity <= 0 {
				continue
			}
			row := models.OrderItem{
				OrderID:      order.ID,
				ClientID:     clientIDOrNew(sup.ID),
				ProductID:    sup.ProductID,
				ProductName:  sup.Name,
				IsSupplement: true,
				Quantity:     sup.Quantity,
				UnitPrice:    sup.UnitPrice,
				TotalPrice:   LineTotal(sup.Quantity, sup.UnitPrice),
				CreatedAt:    now,
				UpdatedAt:    now,
			}
			if parentID, ok := parents[sup.ParentItemID]; ok {
				row.ParentItemID = &parentID
			}
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("failed to create supplement item: %w", err)
			}
			total = total.Add(row.TotalPrice)
			if _, seen := sold[row.ProductID]; !seen {
				productOrder = append(productOrder, row.ProductID)
			}
			sold[row.ProductID] += row.Quantity
		}

		for _, productID := range productOrder {
			stock, err := s.stocks.RecordSale(tx, productID, sold[productID], &order.ID, input.CreatedBy)
			if err != nil {
				return err
			}
			touched = append(touched, stock)
		}

		order.TotalAmount = total
		return tx.Model(&order).Update("total_amount", total).Error
	})
	if err != nil {
		return nil, err
	}

	utils.Info().WithFields(logrus.Fields{
		"order_id": order.ID,
		"total":    order.TotalAmount.String(),
	}).Info("Order created")

	saved, err := s.Get(order.ID)
	if err != nil {
		return nil, err
	}
	s.stocks.PublishStocks(touched)
	kds.BroadcastOrderUpdate(saved)
	return saved, nil
}

func clientIDOrNew(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}

func (s *OrderService) Get(orderID uint) (*models.Order, error) {
	var order models.Order
	err := s.db.Preload("OrderItems", func(db *gorm.DB) *gorm.DB {
		return db.Order("id asc")
	}).Preload("Payments").First(&order, orderID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

// List returns orders newest first, optionally filtered by status.
func (s *OrderService) List(status string) ([]models.Order, error) {
	var orders []models.Order
	q := s.db.Preload("OrderItems").Order("created_at desc")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if err := q.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// UpdateItemQuantity edits one parent line of a saved order. Its
// supplements follow through default sync rules, stock moves by the
// difference, and the order total is recomputed.
func (s *OrderService) UpdateItemQuantity(orderID, itemID uint, newQuantity, maxQuantity int, userID uint) (*OrderItemUpdate, error) {
	if err := ValidateQuantity(newQuantity, maxQuantity); err != nil {
		return nil, err
	}

	var result OrderItemUpdate
	var touched []*models.Stock
	err := s.db.Transaction(func(tx *gorm.DB) error {
		order, err := s.loadEditable(tx, orderID)
		if err != nil {
			return err
		}

		parentRow, children, err := findLine(order.OrderItems, itemID)
		if err != nil {
			return err
		}
		if parentRow.IsSupplement {
			// supplements edited directly, no sync involved
			return s.updateSupplementRow(tx, order, parentRow, newQuantity, userID, &result, &touched)
		}

		result.TotalCheck = CompareOrderTotal(computedOrderTotal(order.OrderItems), order.TotalAmount)

		store := NewSyncRuleStore()
		parent := toLineItem(*parentRow)
		supplements := make([]SupplementItem, 0, len(children))
		for _, child := range children {
			sup := toSupplementItem(*child, parent.ClientID)
			supplements = append(supplements, sup)
			ratio, err := s.linkRatio(tx, parentRow.ProductID, child.ProductID)
			if err != nil {
				return err
			}
			if err := store.AddSyncRule(SyncRule{
				ParentItemID: parent.ClientID,
				SupplementID: sup.ID,
				SyncRatio:    ratio,
				SyncEnabled:  true,
			}); err != nil {
				return err
			}
		}

		reconciled := UpdateSupplementQuantities(store, parent, newQuantity, supplements)
		result.Reconcile = reconciled
		if !reconciled.Success {
			return &ValidationError{Message: reconciled.Error}
		}

		updatedParent := reconciled.UpdatedItems[0]
		stock, err := s.moveStock(tx, parentRow.ProductID, updatedParent.Quantity-parentRow.Quantity, orderID, userID)
		if err != nil {
			return err
		}
		touched = append(touched, stock)
		if err := s.saveQuantity(tx, parentRow, updatedParent.Quantity, updatedParent.TotalPrice); err != nil {
			return err
		}

		for i, sup := range reconciled.UpdatedSupplements {
			row := children[i]
			if sup.Quantity == row.Quantity {
				continue
			}
			stock, err := s.moveStock(tx, row.ProductID, sup.Quantity-row.Quantity, orderID, userID)
			if err != nil {
				return err
			}
			touched = append(touched, stock)
			if sup.Quantity == 0 {
				// same as Create: no zero-quantity lines are stored
				if err := tx.Delete(&models.OrderItem{}, row.ID).Error; err != nil {
					return fmt.Errorf("failed to delete order item: %w", err)
				}
				continue
			}
			if err := s.saveQuantity(tx, row, sup.Quantity, sup.TotalPrice); err != nil {
				return err
			}
		}

		return s.refreshTotal(tx, order, &result)
	})
	if err != nil {
		return nil, err
	}

	s.stocks.PublishStocks(touched)
	kds.BroadcastOrderUpdate(result.Order)
	return &result, nil
}

func (s *OrderService) updateSupplementRow(tx *gorm.DB, order *models.Order, row *models.OrderItem, newQuantity int,
	userID uint, result *OrderItemUpdate, touched *[]*models.Stock) error {
	result.TotalCheck = CompareOrderTotal(computedOrderTotal(order.OrderItems), order.TotalAmount)
	stock, err := s.moveStock(tx, row.ProductID, newQuantity-row.Quantity, order.ID, userID)
	if err != nil {
		return err
	}
	*touched = append(*touched, stock)
	total := LineTotal(newQuantity, row.UnitPrice)
	if err := s.saveQuantity(tx, row, newQuantity, total); err != nil {
		return err
	}
	parentID := ""
	if row.ParentItemID != nil {
		for _, it := range order.OrderItems {
			if it.ID == *row.ParentItemID {
				parentID = it.ClientID
			}
		}
	}
	result.Reconcile = ReconcileResult{
		Success:            true,
		UpdatedItems:       []LineItem{},
		UpdatedSupplements: []SupplementItem{toSupplementItem(*row, parentID)},
	}
	return s.refreshTotal(tx, order, result)
}

// RemoveItem deletes a line with its supplements and returns their stock.
func (s *OrderService) RemoveItem(orderID, itemID uint, userID uint) (*models.Order, error) {
	var saved *models.Order
	var touched []*models.Stock
	err := s.db.Transaction(func(tx *gorm.DB) error {
		order, err := s.loadEditable(tx, orderID)
		if err != nil {
			return err
		}
		row, children, err := findLine(order.OrderItems, itemID)
		if err != nil {
			return err
		}
		lines := append([]*models.OrderItem{row}, children...)
		if len(lines) == len(order.OrderItems) {
			return ErrEmptyOrder
		}
		for _, line := range lines {
			stock, err := s.moveStock(tx, line.ProductID, -line.Quantity, orderID, userID)
			if err != nil {
				return err
			}
			touched = append(touched, stock)
			if err := tx.Delete(&models.OrderItem{}, line.ID).Error; err != nil {
				return fmt.Errorf("failed to delete order item: %w", err)
			}
		}
		var result OrderItemUpdate
		if err := s.refreshTotal(tx, order, &result); err != nil {
			return err
		}
		saved = result.Order
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.stocks.PublishStocks(touched)
	kds.BroadcastOrderUpdate(saved)
	return saved, nil
}

// Cancel returns every line to stock. Orders with payments must be
// refunded (payments deleted) first.
func (s *OrderService) Cancel(orderID uint, userID uint) (*models.Order, error) {
	var touched []*models.Stock
	err := s.db.Transaction(func(tx *gorm.DB) error {
		order, err := s.loadEditable(tx, orderID)
		if err != nil {
			return err
		}
		if order.PaidAmount.IsPositive() {
			return ErrOrderHasPayments
		}
		for _, line := range order.OrderItems {
			stock, err := s.moveStock(tx, line.ProductID, -line.Quantity, orderID, userID)
			if err != nil {
				return err
			}
			touched = append(touched, stock)
		}
		return saveOrder(tx, order, map[string]interface{}{
			"status":     models.OrderStatusCancelled,
			"updated_at": s.now(),
		})
	})
	if err != nil {
		return nil, err
	}
	order, err := s.Get(orderID)
	if err != nil {
		return nil, err
	}
	utils.Info().WithField("order_id", orderID).Info("Order cancelled")
	s.stocks.PublishStocks(touched)
	kds.BroadcastOrderUpdate(order)
	return order, nil
}

// Delete removes an order with its lines and payments. Stock is not restored;
// cancel first when the goods were never served.
func (s *OrderService) Delete(orderID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&order, orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return err
		}
		// children first, the foreign keys have no cascade
		if err := tx.Where("order_id = ?", orderID).Delete(&models.Payment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("order_id = ?", orderID).Delete(&models.OrderItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Order{}, orderID).Error
	})
}

func (s *OrderService) loadEditable(tx *gorm.DB, orderID uint) (*models.Order, error) {
	var order models.Order
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Preload("OrderItems", func(db *gorm.DB) *gorm.DB {
		return db.Order("id asc")
	}).First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if order.Status == models.OrderStatusCancelled || order.Status == models.OrderStatusPaid {
		return nil, ErrOrderNotEditable
	}
	return &order, nil
}

func (s *OrderService) linkRatio(tx *gorm.DB, productID, supplementID uint) (float64, error) {
	var link models.ProductSupplement
	err := tx.Where("product_id = ? AND supplement_id = ?", productID, supplementID).First(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	if link.SyncRatio <= 0 {
		return 1, nil
	}
	return link.SyncRatio, nil
}

func (s *OrderService) moveStock(tx *gorm.DB, productID uint, delta int, orderID uint, userID uint) (*models.Stock, error) {
	switch {
	case delta > 0:
		return s.stocks.RecordSale(tx, productID, delta, &orderID, userID)
	case delta < 0:
		return s.stocks.ReturnToStock(tx, productID, -delta, &orderID, userID)
	}
	return nil, nil
}

func (s *OrderService) saveQuantity(tx *gorm.DB, row *models.OrderItem, quantity int, total decimal.Decimal) error {
	row.Quantity = quantity
	row.TotalPrice = total
	row.UpdatedAt = s.now()
	return tx.Model(&models.OrderItem{}).Where("id = ?", row.ID).Updates(map[string]interface{}{
		"quantity":    quantity,
		"total_price": total,
		"updated_at":  row.UpdatedAt,
	}).Error
}

// refreshTotal recomputes the stored total from the rows and re-derives
// the payment status.
func (s *OrderService) refreshTotal(tx *gorm.DB, order *models.Order, result *OrderItemUpdate) error {
	var items []models.OrderItem
	if err := tx.Where("order_id = ?", order.ID).Order("id asc").Find(&items).Error; err != nil {
		return err
	}
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.TotalPrice)
	}
	if total.LessThan(order.PaidAmount) {
		return ErrTotalBelowPaid
	}
	order.TotalAmount = total
	order.OrderItems = items
	order.Status = PaymentStatusFor(order.TotalAmount, order.PaidAmount)
	order.UpdatedAt = s.now()
	if err := saveOrder(tx, order, map[string]interface{}{
		"total_amount": order.TotalAmount,
		"status":       order.Status,
		"updated_at":   order.UpdatedAt,
	}); err != nil {
		return err
	}
	result.Order = order
	return nil
}

// saveOrder writes fields only if the row still has the version that was
// read, and bumps it.
func saveOrder(tx *gorm.DB, order *models.Order, fields map[string]interface{}) error {
	fields["version"] = order.Version + 1
	res := tx.Model(&models.Order{}).Where("id = ? AND version = ?", order.ID, order.Version).Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("failed to update order: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrOrderConflict
	}
	order.Version++
	return nil
}

// PaymentStatusFor derives the order status from what has been paid.
func PaymentStatusFor(total, paid decimal.Decimal) string {
	switch {
	case paid.IsPositive() && paid.GreaterThanOrEqual(total):
		return models.OrderStatusPaid
	case paid.IsPositive():
		return models.OrderStatusPartiallyPaid
	}
	return models.OrderStatusPending
}

func findLine(items []models.OrderItem, itemID uint) (*models.OrderItem, []*models.OrderItem, error) {
	var parent *models.OrderItem
	children := make([]*models.OrderItem, 0)
	for i := range items {
		if items[i].ID == itemID {
			parent = &items[i]
		}
	}
	if parent == nil {
		return nil, nil, ErrOrderItemNotFound
	}
	if parent.IsSupplement {
		return parent, children, nil
	}
	for i := range items {
		if items[i].ParentItemID != nil && *items[i].ParentItemID == itemID {
			children = append(children, &items[i])
		}
	}
	return parent, children, nil
}

// computedOrderTotal sums each parent with its supplements, plus any
// supplement whose parent is gone.
func computedOrderTotal(items []models.OrderItem) decimal.Decimal {
	total := decimal.Zero
	parents := make(map[uint]bool)
	for _, it := range items {
		if !it.IsSupplement {
			parents[it.ID] = true
		}
	}
	for _, it := range items {
		if it.IsSupplement {
			if it.ParentItemID == nil || !parents[*it.ParentItemID] {
				total = total.Add(it.TotalPrice)
			}
			continue
		}
		var sups []SupplementItem
		for _, child := range items {
			if child.ParentItemID != nil && *child.ParentItemID == it.ID {
				sups = append(sups, toSupplementItem(child, it.ClientID))
			}
		}
		total = total.Add(CalculateItemTotal(toLineItem(it), sups))
	}
	return total
}

func toLineItem(row models.OrderItem) LineItem {
	return LineItem{
		ClientID:    clientIDOrNew(row.ClientID),
		ID:          row.ID,
		ProductID:   row.ProductID,
		ProductName: row.ProductName,
		Quantity:    row.Quantity,
		UnitPrice:   row.UnitPrice,
		TotalPrice:  row.TotalPrice,
	}
}

func toSupplementItem(row models.OrderItem, parentClientID string) SupplementItem {
	return SupplementItem{
		ID:           clientIDOrNew(row.ClientID),
		DBID:         row.ID,
		ProductID:    row.ProductID,
		Name:         row.ProductName,
		UnitPrice:    row.UnitPrice,
		Quantity:     row.Quantity,
		TotalPrice:   row.TotalPrice,
		ParentItemID: parentClientID,
	}
}
