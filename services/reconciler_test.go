package services

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestLineTotal(t *testing.T) {
	assert.True(t, LineTotal(2, dec("1500")).Equal(dec("3000")))
	assert.True(t, LineTotal(3, dec("0.35")).Equal(dec("1.05")))
}

func TestSyncedQuantityRoundsHalfUp(t *testing.T) {
	assert.Equal(t, 4, SyncedQuantity(4, 1))
	assert.Equal(t, 2, SyncedQuantity(3, 0.5))
	assert.Equal(t, 3, SyncedQuantity(5, 0.5))
	assert.Equal(t, 0, SyncedQuantity(1, 0.3))
	assert.Equal(t, 6, SyncedQuantity(4, 1.5))
}

func TestValidateQuantity(t *testing.T) {
	assert.NoError(t, ValidateQuantity(1, 99))
	assert.NoError(t, ValidateQuantity(99, 99))
	assert.NoError(t, ValidateQuantity(500, 0))

	err := ValidateQuantity(0, 99)
	require.Error(t, err)
	assert.Equal(t, "La quantité doit être au moins 1", err.Error())

	err = ValidateQuantity(100, 99)
	require.Error(t, err)
	assert.Equal(t, "La quantité ne peut pas dépasser 99", err.Error())
}

func reconcileFixture() (LineItem, []SupplementItem) {
	parent := LineItem{
		ClientID:   "item-1",
		ProductID:  1,
		Quantity:   2,
		UnitPrice:  dec("2500"),
		TotalPrice: dec("5000"),
	}
	supplements := []SupplementItem{
		{ID: "sup-1", ProductID: 10, Quantity: 2, UnitPrice: dec("500"), TotalPrice: dec("1000"), ParentItemID: "item-1"},
		{ID: "sup-2", ProductID: 11, Quantity: 1, UnitPrice: dec("300"), TotalPrice: dec("300"), ParentItemID: "item-1"},
	}
	return parent, supplements
}

func TestUpdateSupplementQuantities(t *testing.T) {
	parent, supplements := reconcileFixture()
	store := NewSyncRuleStore()
	require.NoError(t, store.AddSyncRule(SyncRule{ParentItemID: "item-1", SupplementID: "sup-1", SyncRatio: 1, SyncEnabled: true}))

	result := UpdateSupplementQuantities(store, parent, 4, supplements)
	require.True(t, result.Success)
	require.Len(t, result.UpdatedItems, 1)
	assert.Equal(t, 4, result.UpdatedItems[0].Quantity)
	assert.True(t, result.UpdatedItems[0].TotalPrice.Equal(dec("10000")))

	require.Len(t, result.UpdatedSupplements, 2)
	assert.Equal(t, 4, result.UpdatedSupplements[0].Quantity)
	assert.True(t, result.UpdatedSupplements[0].TotalPrice.Equal(dec("2000")))
	// no rule: untouched
	assert.Equal(t, 1, result.UpdatedSupplements[1].Quantity)
	assert.True(t, result.UpdatedSupplements[1].TotalPrice.Equal(dec("300")))

	// inputs are not mutated
	assert.Equal(t, 2, supplements[0].Quantity)
}

func TestUpdateSupplementQuantitiesSkipsDisabledRules(t *testing.T) {
	parent, supplements := reconcileFixture()
	store := NewSyncRuleStore()
	require.NoError(t, store.AddSyncRule(SyncRule{ParentItemID: "item-1", SupplementID: "sup-1", SyncRatio: 1, SyncEnabled: false}))
	require.NoError(t, store.AddSyncRule(SyncRule{ParentItemID: "item-1", SupplementID: "sup-2", SyncRatio: 0.5, SyncEnabled: true}))

	result := UpdateSupplementQuantities(store, parent, 5, supplements)
	require.True(t, result.Success)
	assert.Equal(t, 2, result.UpdatedSupplements[0].Quantity)
	assert.Equal(t, 3, result.UpdatedSupplements[1].Quantity)
	assert.True(t, result.UpdatedSupplements[1].TotalPrice.Equal(dec("900")))
}

func TestUpdateSupplementQuantitiesFailures(t *testing.T) {
	parent, supplements := reconcileFixture()
	store := NewSyncRuleStore()

	result := UpdateSupplementQuantities(store, parent, 0, supplements)
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Error)

	parent.ClientID = ""
	result = UpdateSupplementQuantities(store, parent, 3, supplements)
	assert.False(t, result.Success)
	assert.Equal(t, "L'article n'a pas d'identifiant", result.Error)
}

func TestCalculateItemTotal(t *testing.T) {
	parent, supplements := reconcileFixture()
	assert.True(t, CalculateItemTotal(parent, supplements).Equal(dec("6300")))
	assert.True(t, CalculateItemTotal(parent, nil).Equal(dec("5000")))
}

func TestCompareOrderTotal(t *testing.T) {
	check := CompareOrderTotal(dec("100.005"), dec("100"))
	assert.True(t, check.Matches)
	assert.Empty(t, check.Note)

	check = CompareOrderTotal(dec("6300"), dec("6000"))
	assert.False(t, check.Matches)
	assert.True(t, check.Difference.Equal(dec("300")))
	assert.Equal(t, "Le total calculé (6 300 FCFA) diffère du total enregistré (6 000 FCFA)", check.Note)
}

func TestApplySyncToOrder(t *testing.T) {
	parent, supplements := reconcileFixture()
	parent.Quantity = 3
	store := NewSyncRuleStore()
	require.NoError(t, store.CreateDefaultSyncRules("item-1", []string{"sup-1", "sup-2"}))
	_, _ = store.ToggleSync("item-1", "sup-2")

	items, sups := ApplySyncToOrder(store, []LineItem{parent}, supplements)
	require.Len(t, items, 1)
	assert.True(t, items[0].TotalPrice.Equal(dec("7500")))
	assert.Equal(t, 3, sups[0].Quantity)
	assert.True(t, sups[0].TotalPrice.Equal(dec("1500")))
	assert.Equal(t, 1, sups[1].Quantity)

	assert.Equal(t, 2, supplements[0].Quantity)
}

func TestSupplementsOf(t *testing.T) {
	_, supplements := reconcileFixture()
	supplements = append(supplements, SupplementItem{ID: "sup-3", ParentItemID: "item-2"})
	assert.Len(t, SupplementsOf("item-1", supplements), 2)
	assert.Len(t, SupplementsOf("item-2", supplements), 1)
	assert.Empty(t, SupplementsOf("item-9", supplements))
}
