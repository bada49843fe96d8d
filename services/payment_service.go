package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restaurant-oms/kds"
	"github.com/yeremiapane/restaurant-oms/models"
	"github.com/yeremiapane/restaurant-oms/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrInvalidPaymentAmount = errors.New("payment amount must be positive")
	ErrOverpayment          = errors.New("payment exceeds the remaining balance")
	ErrOrderCancelled       = errors.New("order is cancelled")
	ErrPaymentNotFound      = errors.New("payment not found")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
)

// PaymentSummary lists an order's payments with what is left to pay.
type PaymentSummary struct {
	OrderID   uint             `json:"order_id"`
	Total     decimal.Decimal  `json:"total"`
	Paid      decimal.Decimal  `json:"paid"`
	Remaining decimal.Decimal  `json:"remaining"`
	Status    string           `json:"status"`
	Payments  []models.Payment `json:"payments"`
}

// PaymentService records partial payments against orders.
type PaymentService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewPaymentService(db *gorm.DB) *PaymentService {
	return &PaymentService{db: db, now: time.Now}
}

func validPaymentMethod(method string) bool {
	switch method {
	case models.PaymentMethodCash, models.PaymentMethodCard, models.PaymentMethodMobileMoney:
		return true
	}
	return false
}

// RecordPayment adds a payment no larger than the remaining balance and
// moves the order to partially_paid or paid.
func (s *PaymentService) RecordPayment(orderID uint, amount decimal.Decimal, method, reference string, userID uint) (*models.Payment, *models.Order, error) {
	if !amount.IsPositive() {
		return nil, nil, ErrInvalidPaymentAmount
	}
	if method == "" {
		method = models.PaymentMethodCash
	}
	if !validPaymentMethod(method) {
		return nil, nil, ErrInvalidPaymentMethod
	}

	var (
		payment models.Payment
		order   models.Order
	)
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&order, orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return err
		}
		if order.Status == models.OrderStatusCancelled {
			return ErrOrderCancelled
		}
		remaining := order.RemainingAmount()
		if amount.GreaterThan(remaining) {
			return fmt.Errorf("%w: reste %s", ErrOverpayment, utils.FormatCurrency(remaining))
		}

		now := s.now()
		payment = models.Payment{
			OrderID:    orderID,
			Amount:     amount,
			Method:     method,
			Reference:  reference,
			ReceivedBy: userID,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := tx.Create(&payment).Error; err != nil {
			return fmt.Errorf("failed to create payment: %w", err)
		}
		return s.settle(tx, &order, order.PaidAmount.Add(amount))
	})
	if err != nil {
		return nil, nil, err
	}

	utils.Info().WithFields(logrus.Fields{
		"order_id":   orderID,
		"payment_id": payment.ID,
		"amount":     amount.String(),
		"status":     order.Status,
	}).Info("Payment recorded")
	kds.BroadcastPaymentUpdate(payment, order)
	return &payment, &order, nil
}

func (s *PaymentService) ListPayments(orderID uint) (*PaymentSummary, error) {
	var order models.Order
	if err := s.db.Preload("Payments", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at asc").Order("id asc")
	}).First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	payments := order.Payments
	if payments == nil {
		payments = []models.Payment{}
	}
	return &PaymentSummary{
		OrderID:   order.ID,
		Total:     order.TotalAmount,
		Paid:      order.PaidAmount,
		Remaining: order.RemainingAmount(),
		Status:    order.Status,
		Payments:  payments,
	}, nil
}

// DeletePayment reverses a payment, e.g. a refund, and re-derives the
// order status.
func (s *PaymentService) DeletePayment(paymentID uint) (*models.Order, error) {
	var (
		payment models.Payment
		order   models.Order
	)
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&payment, paymentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPaymentNotFound
			}
			return err
		}
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&order, payment.OrderID).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.Payment{}, paymentID).Error; err != nil {
			return err
		}
		paid := order.PaidAmount.Sub(payment.Amount)
		if paid.IsNegative() {
			paid = decimal.Zero
		}
		return s.settle(tx, &order, paid)
	})
	if err != nil {
		return nil, err
	}
	utils.Info().WithFields(logrus.Fields{
		"order_id":   order.ID,
		"payment_id": paymentID,
	}).Info("Payment deleted")
	kds.BroadcastPaymentUpdate(payment, order)
	return &order, nil
}

func (s *PaymentService) settle(tx *gorm.DB, order *models.Order, paid decimal.Decimal) error {
	order.PaidAmount = paid
	if order.Status != models.OrderStatusCancelled {
		order.Status = PaymentStatusFor(order.TotalAmount, paid)
	}
	order.UpdatedAt = s.now()
	return saveOrder(tx, order, map[string]interface{}{
		"paid_amount": order.PaidAmount,
		"status":      order.Status,
		"updated_at":  order.UpdatedAt,
	})
}
