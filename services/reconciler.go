package services

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
	"github.com/yeremiapane/restaurant-oms/utils"
)

// TotalTolerance is the largest gap between a recomputed and a stored
// total that is still treated as equal.
var TotalTolerance = decimal.NewFromFloat(0.01)

// LineItem is an order line while an order is being built or edited.
// ClientID is assigned when the line is created and never reused.
type LineItem struct {
	ClientID     string          `json:"client_id"`
	ID           uint            `json:"id,omitempty"`
	ProductID    uint            `json:"product_id"`
	ParentItemID string          `json:"parent_item_id,omitempty"`
	IsSupplement bool            `json:"is_supplement"`
	ProductName  string          `json:"product_name"`
	Quantity     int             `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	TotalPrice   decimal.Decimal `json:"total_price"`
}

// SupplementItem is a supplement line attached to a parent LineItem.
type SupplementItem struct {
	ID           string          `json:"id"`
	DBID         uint            `json:"db_id,omitempty"`
	ProductID    uint            `json:"product_id"`
	Name         string          `json:"name"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Quantity     int             `json:"quantity"`
	TotalPrice   decimal.Decimal `json:"total_price"`
	ParentItemID string          `json:"parent_item_id,omitempty"`
}

// ReconcileResult is returned instead of an error so callers can render
// the message inline.
type ReconcileResult struct {
	Success            bool             `json:"success"`
	UpdatedItems       []LineItem       `json:"updated_items"`
	UpdatedSupplements []SupplementItem `json:"updated_supplements"`
	Error              string           `json:"error,omitempty"`
}

// TotalCheck compares a recomputed total with the stored one.
type TotalCheck struct {
	Matches    bool            `json:"matches"`
	Computed   decimal.Decimal `json:"computed"`
	Stored     decimal.Decimal `json:"stored"`
	Difference decimal.Decimal `json:"difference"`
	Note       string          `json:"note,omitempty"`
}

// LineTotal is quantity * unitPrice.
func LineTotal(quantity int, unitPrice decimal.Decimal) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}

// SyncedQuantity is round-half-up of parentQuantity * ratio.
func SyncedQuantity(parentQuantity int, ratio float64) int {
	return int(math.Floor(float64(parentQuantity)*ratio + 0.5))
}

// ValidationError carries a user-facing message.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ValidateQuantity checks a requested line quantity against [1, maxQuantity].
// maxQuantity <= 0 disables the upper bound.
func ValidateQuantity(quantity, maxQuantity int) error {
	if err := validate.Var(quantity, "min=1"); err != nil {
		return &ValidationError{Message: "La quantité doit être au moins 1"}
	}
	if maxQuantity > 0 {
		if err := validate.Var(quantity, fmt.Sprintf("max=%d", maxQuantity)); err != nil {
			return &ValidationError{Message: fmt.Sprintf("La quantité ne peut pas dépasser %d", maxQuantity)}
		}
	}
	return nil
}

// UpdateSupplementQuantities sets the parent's quantity and resizes every
// supplement that has an enabled rule against it. Supplements without an
// enabled rule are returned unchanged.
func UpdateSupplementQuantities(rules SyncRuleSource, parent LineItem, newQuantity int, current []SupplementItem) ReconcileResult {
	if parent.ClientID == "" {
		return ReconcileResult{Success: false, Error: "L'article n'a pas d'identifiant"}
	}
	if newQuantity < 1 {
		return ReconcileResult{Success: false, Error: "La quantité doit être au moins 1"}
	}

	updated := make([]SupplementItem, len(current))
	for i, supplement := range current {
		updated[i] = supplement
		rule, ok := rules.GetSyncRule(parent.ClientID, supplement.ID)
		if !ok || !rule.SyncEnabled {
			continue
		}
		updated[i].Quantity = SyncedQuantity(newQuantity, rule.SyncRatio)
		updated[i].TotalPrice = LineTotal(updated[i].Quantity, supplement.UnitPrice)
	}

	parent.Quantity = newQuantity
	parent.TotalPrice = LineTotal(newQuantity, parent.UnitPrice)

	return ReconcileResult{
		Success:            true,
		UpdatedItems:       []LineItem{parent},
		UpdatedSupplements: updated,
	}
}

// CalculateItemTotal is the item's total plus the totals of its supplements.
func CalculateItemTotal(item LineItem, supplements []SupplementItem) decimal.Decimal {
	total := item.TotalPrice
	for _, s := range supplements {
		total = total.Add(s.TotalPrice)
	}
	return total
}

// CompareOrderTotal never fails: a gap above TotalTolerance only yields a note,
// since the stored total is authoritative.
func CompareOrderTotal(computed, stored decimal.Decimal) TotalCheck {
	diff := computed.Sub(stored)
	check := TotalCheck{
		Matches:    diff.Abs().LessThanOrEqual(TotalTolerance),
		Computed:   computed,
		Stored:     stored,
		Difference: diff,
	}
	if !check.Matches {
		check.Note = fmt.Sprintf("Le total calculé (%s) diffère du total enregistré (%s)",
			utils.FormatCurrency(computed), utils.FormatCurrency(stored))
	}
	return check
}

// ApplySyncToOrder applies every item's enabled rules to the matching
// supplements and returns updated copies of both collections.
func ApplySyncToOrder(rules SyncRuleSource, items []LineItem, supplements []SupplementItem) ([]LineItem, []SupplementItem) {
	outItems := make([]LineItem, len(items))
	copy(outItems, items)
	outSupplements := make([]SupplementItem, len(supplements))
	copy(outSupplements, supplements)

	index := make(map[string]int, len(outSupplements))
	for i, s := range outSupplements {
		index[s.ID] = i
	}

	for i := range outItems {
		item := &outItems[i]
		item.TotalPrice = LineTotal(item.Quantity, item.UnitPrice)
		for _, rule := range rules.GetSyncRules(item.ClientID) {
			if !rule.SyncEnabled {
				continue
			}
			j, ok := index[rule.SupplementID]
			if !ok {
				continue
			}
			s := &outSupplements[j]
			s.Quantity = SyncedQuantity(item.Quantity, rule.SyncRatio)
			s.TotalPrice = LineTotal(s.Quantity, s.UnitPrice)
		}
	}
	return outItems, outSupplements
}

// SupplementsOf filters the supplements attached to a parent line.
func SupplementsOf(parentClientID string, supplements []SupplementItem) []SupplementItem {
	out := make([]SupplementItem, 0)
	for _, s := range supplements {
		if s.ParentItemID == parentClientID {
			out = append(out, s)
		}
	}
	return out
}
