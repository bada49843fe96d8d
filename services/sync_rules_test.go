package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncRuleStoreAddAndGet(t *testing.T) {
	store := NewSyncRuleStore()

	assert.Empty(t, store.GetSyncRules("p1"))
	assert.NotNil(t, store.GetSyncRules("p1"))

	require.NoError(t, store.AddSyncRule(SyncRule{ParentItemID: "p1", SupplementID: "s1", SyncRatio: 1, SyncEnabled: true}))
	require.NoError(t, store.AddSyncRule(SyncRule{ParentItemID: "p1", SupplementID: "s2", SyncRatio: 2, SyncEnabled: true}))

	rule, ok := store.GetSyncRule("p1", "s2")
	assert.True(t, ok)
	assert.Equal(t, 2.0, rule.SyncRatio)

	// same pair replaces, keeps position
	require.NoError(t, store.AddSyncRule(SyncRule{ParentItemID: "p1", SupplementID: "s1", SyncRatio: 3, SyncEnabled: false}))
	rules := store.GetSyncRules("p1")
	require.Len(t, rules, 2)
	assert.Equal(t, "s1", rules[0].SupplementID)
	assert.Equal(t, 3.0, rules[0].SyncRatio)
	assert.False(t, rules[0].SyncEnabled)
	assert.Equal(t, 2, store.Len())
}

func TestSyncRuleStoreRejectsInvalidRules(t *testing.T) {
	store := NewSyncRuleStore()
	assert.ErrorIs(t, store.AddSyncRule(SyncRule{SupplementID: "s1", SyncRatio: 1}), ErrInvalidSyncRule)
	assert.ErrorIs(t, store.AddSyncRule(SyncRule{ParentItemID: "p1", SyncRatio: 1}), ErrInvalidSyncRule)
	assert.ErrorIs(t, store.AddSyncRule(SyncRule{ParentItemID: "p1", SupplementID: "s1", SyncRatio: 0}), ErrInvalidSyncRule)
	assert.Equal(t, 0, store.Len())
}

func TestSyncRuleStoreRemoveAndToggle(t *testing.T) {
	store := NewSyncRuleStore()
	require.NoError(t, store.CreateDefaultSyncRules("p1", []string{"s1", "s2"}))

	enabled, ok := store.ToggleSync("p1", "s1")
	assert.True(t, ok)
	assert.False(t, enabled)
	enabled, _ = store.ToggleSync("p1", "s1")
	assert.True(t, enabled)

	_, ok = store.ToggleSync("p1", "missing")
	assert.False(t, ok)

	store.RemoveSyncRule("p1", "s1")
	store.RemoveSyncRule("p1", "missing")
	rules := store.GetSyncRules("p1")
	require.Len(t, rules, 1)
	assert.Equal(t, "s2", rules[0].SupplementID)

	store.RemoveSyncRule("p1", "s2")
	assert.Empty(t, store.ExportSyncRules())
}

func TestSyncRuleStoreUpdateSyncRatio(t *testing.T) {
	store := NewSyncRuleStore()
	require.NoError(t, store.CreateDefaultSyncRules("p1", []string{"s1"}))

	require.NoError(t, store.UpdateSyncRatio("p1", "s1", 0.5))
	rule, _ := store.GetSyncRule("p1", "s1")
	assert.Equal(t, 0.5, rule.SyncRatio)

	assert.ErrorIs(t, store.UpdateSyncRatio("p1", "s1", -1), ErrInvalidSyncRule)
	rule, _ = store.GetSyncRule("p1", "s1")
	assert.Equal(t, 0.5, rule.SyncRatio)

	assert.ErrorIs(t, store.UpdateSyncRatio("p1", "nope", 2), ErrSyncRuleNotFound)
}

func TestSyncRuleStoreExportImport(t *testing.T) {
	store := NewSyncRuleStore()
	require.NoError(t, store.CreateDefaultSyncRules("p1", []string{"s1", "s2"}))
	require.NoError(t, store.CreateDefaultSyncRules("p2", []string{"s3"}))

	exported := store.ExportSyncRules()
	require.Len(t, exported, 3)
	assert.Equal(t, []string{"s1", "s2", "s3"}, []string{exported[0].SupplementID, exported[1].SupplementID, exported[2].SupplementID})

	other := NewSyncRuleStore()
	require.NoError(t, other.ImportSyncRules(exported))
	assert.Equal(t, exported, other.ExportSyncRules())

	// a bad rule leaves the store untouched
	bad := append(exported, SyncRule{ParentItemID: "p3", SupplementID: "s4", SyncRatio: 0})
	assert.ErrorIs(t, other.ImportSyncRules(bad), ErrInvalidSyncRule)
	assert.Equal(t, 3, other.Len())

	other.ResetAllSyncRules()
	assert.Equal(t, 0, other.Len())
	assert.Empty(t, other.ExportSyncRules())
}

func TestSyncRuleStoresAreIndependent(t *testing.T) {
	a := NewSyncRuleStore()
	b := NewSyncRuleStore()
	require.NoError(t, a.CreateDefaultSyncRules("p1", []string{"s1"}))
	_, ok := b.GetSyncRule("p1", "s1")
	assert.False(t, ok)
}

func TestSyncRuleStoreRemoveParent(t *testing.T) {
	store := NewSyncRuleStore()
	require.NoError(t, store.CreateDefaultSyncRules("p1", []string{"s1", "s2"}))
	require.NoError(t, store.CreateDefaultSyncRules("p2", []string{"s3"}))
	store.RemoveParent("p1")
	assert.Empty(t, store.GetSyncRules("p1"))
	assert.Len(t, store.ExportSyncRules(), 1)
}
