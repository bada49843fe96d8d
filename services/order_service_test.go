package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/restaurant-oms/models"
	"gorm.io/gorm"
)

type orderFixture struct {
	db       *gorm.DB
	stocks   *StockService
	orders   *OrderService
	dish     models.Product
	fries    models.Product
	drink    models.Product
	payments *PaymentService
}

func newOrderFixture(t *testing.T) *orderFixture {
	db := setupTestDB(t)
	f := &orderFixture{db: db, stocks: NewStockService(db)}
	f.orders = NewOrderService(db, f.stocks)
	f.payments = NewPaymentService(db)

	f.dish = seedProduct(t, db, models.Product{Name: "Poulet DG", ProductType: models.ProductTypeDish, Price: price("2500")})
	f.fries = seedProduct(t, db, models.Product{Name: "Frites", ProductType: models.ProductTypeSupplement, Price: price("500"), TrackStock: true})
	f.drink = seedProduct(t, db, models.Product{Name: "Coca", ProductType: models.ProductTypeDrink, Price: price("600"), TrackStock: true})
	seedStock(t, db, f.fries, 10)
	seedStock(t, db, f.drink, 3)
	seedLink(t, db, f.dish, f.fries, 1)
	return f
}

func (f *orderFixture) input(dishQty, friesQty int) OrderInput {
	return OrderInput{
		TableNumber: "T4",
		Items: []LineItem{{
			ClientID: "c1", ProductID: f.dish.ID, ProductName: f.dish.Name,
			Quantity: dishQty, UnitPrice: f.dish.Price,
		}},
		Supplements: []SupplementItem{{
			ID: "s1", ProductID: f.fries.ID, Name: f.fries.Name,
			Quantity: friesQty, UnitPrice: f.fries.Price, ParentItemID: "c1",
		}},
		CreatedBy: 1,
	}
}

func (f *orderFixture) stockOf(t *testing.T, p models.Product) int {
	stock, err := f.stocks.GetStock(p.ID)
	require.NoError(t, err)
	return stock.Quantity
}

func parentAndChild(t *testing.T, order *models.Order) (models.OrderItem, models.OrderItem) {
	var parent, child models.OrderItem
	for _, it := range order.OrderItems {
		if it.IsSupplement {
			child = it
		} else {
			parent = it
		}
	}
	require.NotZero(t, parent.ID)
	require.NotZero(t, child.ID)
	return parent, child
}

func TestCreateOrder(t *testing.T) {
	f := newOrderFixture(t)

	order, err := f.orders.Create(f.input(2, 2))
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.True(t, order.TotalAmount.Equal(price("6000")))
	require.Len(t, order.OrderItems, 2)

	parent, child := parentAndChild(t, order)
	require.NotNil(t, child.ParentItemID)
	assert.Equal(t, parent.ID, *child.ParentItemID)
	assert.Equal(t, "c1", parent.ClientID)
	assert.Equal(t, 8, f.stockOf(t, f.fries))

	var movements []models.StockMovement
	require.NoError(t, f.db.Where("order_id = ?", order.ID).Find(&movements).Error)
	require.Len(t, movements, 1)
	assert.Equal(t, models.MovementSale, movements[0].Type)
	assert.Equal(t, 2, movements[0].Quantity)
}

func TestCreateOrderRollsBackOnShortage(t *testing.T) {
	f := newOrderFixture(t)
	input := f.input(1, 1)
	input.Items = append(input.Items, LineItem{
		ClientID: "c2", ProductID: f.drink.ID, ProductName: f.drink.Name, Quantity: 5, UnitPrice: f.drink.Price,
	})

	_, err := f.orders.Create(input)
	assert.ErrorIs(t, err, ErrInsufficientStock)

	var count int64
	f.db.Model(&models.Order{}).Count(&count)
	assert.Zero(t, count)
	assert.Equal(t, 10, f.stockOf(t, f.fries))
	assert.Equal(t, 3, f.stockOf(t, f.drink))

	_, err = f.orders.Create(OrderInput{})
	assert.ErrorIs(t, err, ErrEmptyOrder)
}

func TestUpdateItemQuantitySyncsSupplements(t *testing.T) {
	f := newOrderFixture(t)
	order, err := f.orders.Create(f.input(2, 2))
	require.NoError(t, err)
	parent, _ := parentAndChild(t, order)

	update, err := f.orders.UpdateItemQuantity(order.ID, parent.ID, 4, 99, 1)
	require.NoError(t, err)
	assert.True(t, update.Reconcile.Success)
	assert.True(t, update.TotalCheck.Matches)
	assert.True(t, update.Order.TotalAmount.Equal(price("12000")))
	assert.Equal(t, 6, f.stockOf(t, f.fries))

	saved, err := f.orders.Get(order.ID)
	require.NoError(t, err)
	p, c := parentAndChild(t, saved)
	assert.Equal(t, 4, p.Quantity)
	assert.Equal(t, 4, c.Quantity)
	assert.True(t, c.TotalPrice.Equal(price("2000")))

	// shrinking returns stock
	_, err = f.orders.UpdateItemQuantity(order.ID, parent.ID, 1, 99, 1)
	require.NoError(t, err)
	assert.Equal(t, 9, f.stockOf(t, f.fries))
}

func TestUpdateItemQuantityUsesLinkRatio(t *testing.T) {
	f := newOrderFixture(t)
	require.NoError(t, f.db.Model(&models.ProductSupplement{}).
		Where("product_id = ?", f.dish.ID).Update("sync_ratio", 0.5).Error)
	order, err := f.orders.Create(f.input(2, 1))
	require.NoError(t, err)
	parent, _ := parentAndChild(t, order)

	update, err := f.orders.UpdateItemQuantity(order.ID, parent.ID, 5, 99, 1)
	require.NoError(t, err)
	require.Len(t, update.Reconcile.UpdatedSupplements, 1)
	assert.Equal(t, 3, update.Reconcile.UpdatedSupplements[0].Quantity)
}

func TestUpdateItemQuantityReportsTotalDrift(t *testing.T) {
	f := newOrderFixture(t)
	order, err := f.orders.Create(f.input(2, 2))
	require.NoError(t, err)
	parent, _ := parentAndChild(t, order)
	require.NoError(t, f.db.Model(&models.Order{}).Where("id = ?", order.ID).Update("total_amount", "5000").Error)

	update, err := f.orders.UpdateItemQuantity(order.ID, parent.ID, 3, 99, 1)
	require.NoError(t, err)
	assert.False(t, update.TotalCheck.Matches)
	assert.NotEmpty(t, update.TotalCheck.Note)
	assert.True(t, update.Order.TotalAmount.Equal(price("9000")))
}

func TestUpdateItemQuantityValidation(t *testing.T) {
	f := newOrderFixture(t)
	order, err := f.orders.Create(f.input(2, 2))
	require.NoError(t, err)
	parent, child := parentAndChild(t, order)

	_, err = f.orders.UpdateItemQuantity(order.ID, parent.ID, 0, 99, 1)
	var validation *ValidationError
	assert.ErrorAs(t, err, &validation)

	_, err = f.orders.UpdateItemQuantity(order.ID, 9999, 2, 99, 1)
	assert.ErrorIs(t, err, ErrOrderItemNotFound)

	// 20 fries would be needed, only 8 left
	_, err = f.orders.UpdateItemQuantity(order.ID, parent.ID, 20, 99, 1)
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, 8, f.stockOf(t, f.fries))

	// supplement lines can be edited on their own
	update, err := f.orders.UpdateItemQuantity(order.ID, child.ID, 3, 99, 1)
	require.NoError(t, err)
	assert.True(t, update.Order.TotalAmount.Equal(price("6500")))
	assert.Equal(t, 7, f.stockOf(t, f.fries))
}

func TestRemoveItem(t *testing.T) {
	f := newOrderFixture(t)
	input := f.input(2, 2)
	input.Items = append(input.Items, LineItem{
		ClientID: "c2", ProductID: f.drink.ID, ProductName: f.drink.Name, Quantity: 1, UnitPrice: f.drink.Price,
	})
	order, err := f.orders.Create(input)
	require.NoError(t, err)
	assert.True(t, order.TotalAmount.Equal(price("6600")))
	assert.Equal(t, 2, f.stockOf(t, f.drink))

	var dishItem models.OrderItem
	for _, it := range order.OrderItems {
		if it.ProductID == f.dish.ID {
			dishItem = it
		}
	}
	updated, err := f.orders.RemoveItem(order.ID, dishItem.ID, 1)
	require.NoError(t, err)
	assert.Len(t, updated.OrderItems, 1)
	assert.True(t, updated.TotalAmount.Equal(price("600")))
	assert.Equal(t, 10, f.stockOf(t, f.fries))

	_, err = f.orders.RemoveItem(order.ID, updated.OrderItems[0].ID, 1)
	assert.ErrorIs(t, err, ErrEmptyOrder)
}

func TestCancelOrder(t *testing.T) {
	f := newOrderFixture(t)
	order, err := f.orders.Create(f.input(2, 2))
	require.NoError(t, err)

	cancelled, err := f.orders.Cancel(order.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, cancelled.Status)
	assert.Equal(t, 10, f.stockOf(t, f.fries))

	_, err = f.orders.Cancel(order.ID, 1)
	assert.ErrorIs(t, err, ErrOrderNotEditable)
}

func TestCancelOrderWithPayments(t *testing.T) {
	f := newOrderFixture(t)
	order, err := f.orders.Create(f.input(2, 2))
	require.NoError(t, err)
	_, _, err = f.payments.RecordPayment(order.ID, price("1000"), models.PaymentMethodCash, "", 1)
	require.NoError(t, err)

	_, err = f.orders.Cancel(order.ID, 1)
	assert.ErrorIs(t, err, ErrOrderHasPayments)
}

func TestListAndDeleteOrders(t *testing.T) {
	f := newOrderFixture(t)
	first, err := f.orders.Create(f.input(1, 1))
	require.NoError(t, err)
	_, err = f.orders.Create(f.input(1, 1))
	require.NoError(t, err)
	_, err = f.orders.Cancel(first.ID, 1)
	require.NoError(t, err)

	all, err := f.orders.List("")
	require.NoError(t, err)
	assert.Len(t, all, 2)
	pending, err := f.orders.List(models.OrderStatusPending)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	require.NoError(t, f.orders.Delete(first.ID))
	_, err = f.orders.Get(first.ID)
	assert.ErrorIs(t, err, ErrOrderNotFound)
	assert.ErrorIs(t, f.orders.Delete(first.ID), ErrOrderNotFound)

	var items int64
	f.db.Model(&models.OrderItem{}).Where("order_id = ?", first.ID).Count(&items)
	assert.Zero(t, items)
}

func TestPaymentStatusFor(t *testing.T) {
	assert.Equal(t, models.OrderStatusPending, PaymentStatusFor(price("100"), price("0")))
	assert.Equal(t, models.OrderStatusPartiallyPaid, PaymentStatusFor(price("100"), price("40")))
	assert.Equal(t, models.OrderStatusPaid, PaymentStatusFor(price("100"), price("100")))
}

func TestUpdateItemQuantityDropsZeroSupplements(t *testing.T) {
	f := newOrderFixture(t)
	require.NoError(t, f.db.Model(&models.ProductSupplement{}).
		Where("product_id = ?", f.dish.ID).Update("sync_ratio", 0.3).Error)
	order, err := f.orders.Create(f.input(3, 1))
	require.NoError(t, err)
	parent, child := parentAndChild(t, order)
	assert.Equal(t, 9, f.stockOf(t, f.fries))

	// round(1 * 0.3) = 0
	update, err := f.orders.UpdateItemQuantity(order.ID, parent.ID, 1, 99, 1)
	require.NoError(t, err)
	require.Len(t, update.Order.OrderItems, 1)
	assert.Equal(t, parent.ID, update.Order.OrderItems[0].ID)
	assert.True(t, update.Order.TotalAmount.Equal(price("2500")))
	assert.Equal(t, 10, f.stockOf(t, f.fries))

	var count int64
	f.db.Model(&models.OrderItem{}).Where("id = ?", child.ID).Count(&count)
	assert.Zero(t, count)
}

func TestDeleteOrderWithPayments(t *testing.T) {
	f := newOrderFixture(t)
	order, err := f.orders.Create(f.input(1, 1))
	require.NoError(t, err)
	_, _, err = f.payments.RecordPayment(order.ID, price("1000"), models.PaymentMethodCash, "", 1)
	require.NoError(t, err)

	require.NoError(t, f.orders.Delete(order.ID))

	var payments, items int64
	f.db.Model(&models.Payment{}).Where("order_id = ?", order.ID).Count(&payments)
	f.db.Model(&models.OrderItem{}).Where("order_id = ?", order.ID).Count(&items)
	assert.Zero(t, payments)
	assert.Zero(t, items)
	_, err = f.orders.Get(order.ID)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}
