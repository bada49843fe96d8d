package services

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

var (
	ErrInvalidSyncRule  = errors.New("invalid sync rule")
	ErrSyncRuleNotFound = errors.New("sync rule not found")
)

// SyncRule links a supplement line's quantity to its parent line.
type SyncRule struct {
	ParentItemID string  `json:"parent_item_id" validate:"required"`
	SupplementID string  `json:"supplement_id" validate:"required"`
	SyncRatio    float64 `json:"sync_ratio" validate:"gt=0"`
	SyncEnabled  bool    `json:"sync_enabled"`
}

// SyncRuleSource is the read side of a rule store, as used by the reconciler.
type SyncRuleSource interface {
	GetSyncRule(parentItemID, supplementID string) (SyncRule, bool)
	GetSyncRules(parentItemID string) []SyncRule
}

type ruleKey struct {
	parent     string
	supplement string
}

// SyncRuleStore holds the sync rules of one order-builder session. It is
// keyed by (parent, supplement) so adding a rule twice replaces it.
// A store is not safe for concurrent use; the owning draft serialises access.
type SyncRuleStore struct {
	rules   map[ruleKey]SyncRule
	parents []string
	order   map[string][]string
}

func NewSyncRuleStore() *SyncRuleStore {
	return &SyncRuleStore{
		rules: make(map[ruleKey]SyncRule),
		order: make(map[string][]string),
	}
}

func validateRule(rule SyncRule) error {
	if err := validate.Struct(rule); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSyncRule, err)
	}
	return nil
}

// AddSyncRule inserts or replaces the rule for its (parent, supplement) pair.
func (s *SyncRuleStore) AddSyncRule(rule SyncRule) error {
	if err := validateRule(rule); err != nil {
		return err
	}
	key := ruleKey{rule.ParentItemID, rule.SupplementID}
	if _, exists := s.rules[key]; !exists {
		if _, known := s.order[rule.ParentItemID]; !known {
			s.parents = append(s.parents, rule.ParentItemID)
		}
		s.order[rule.ParentItemID] = append(s.order[rule.ParentItemID], rule.SupplementID)
	}
	s.rules[key] = rule
	return nil
}

// RemoveSyncRule drops the rule for the pair; unknown pairs are ignored.
func (s *SyncRuleStore) RemoveSyncRule(parentItemID, supplementID string) {
	key := ruleKey{parentItemID, supplementID}
	if _, exists := s.rules[key]; !exists {
		return
	}
	delete(s.rules, key)

	ids := s.order[parentItemID]
	for i, id := range ids {
		if id == supplementID {
			ids = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}
	if len(ids) == 0 {
		s.dropParent(parentItemID)
		return
	}
	s.order[parentItemID] = ids
}

// RemoveParent drops every rule attached to a parent line.
func (s *SyncRuleStore) RemoveParent(parentItemID string) {
	for _, id := range s.order[parentItemID] {
		delete(s.rules, ruleKey{parentItemID, id})
	}
	s.dropParent(parentItemID)
}

func (s *SyncRuleStore) dropParent(parentItemID string) {
	delete(s.order, parentItemID)
	for i, p := range s.parents {
		if p == parentItemID {
			s.parents = append(s.parents[:i:i], s.parents[i+1:]...)
			break
		}
	}
}

// ToggleSync flips SyncEnabled and returns the new value. ok is false when
// no rule exists for the pair.
func (s *SyncRuleStore) ToggleSync(parentItemID, supplementID string) (enabled bool, ok bool) {
	key := ruleKey{parentItemID, supplementID}
	rule, exists := s.rules[key]
	if !exists {
		return false, false
	}
	rule.SyncEnabled = !rule.SyncEnabled
	s.rules[key] = rule
	return rule.SyncEnabled, true
}

// UpdateSyncRatio changes the ratio of an existing rule.
func (s *SyncRuleStore) UpdateSyncRatio(parentItemID, supplementID string, ratio float64) error {
	key := ruleKey{parentItemID, supplementID}
	rule, exists := s.rules[key]
	if !exists {
		return ErrSyncRuleNotFound
	}
	rule.SyncRatio = ratio
	if err := validateRule(rule); err != nil {
		return err
	}
	s.rules[key] = rule
	return nil
}

func (s *SyncRuleStore) GetSyncRule(parentItemID, supplementID string) (SyncRule, bool) {
	rule, ok := s.rules[ruleKey{parentItemID, supplementID}]
	return rule, ok
}

// GetSyncRules returns the parent's rules in insertion order, never nil.
func (s *SyncRuleStore) GetSyncRules(parentItemID string) []SyncRule {
	ids := s.order[parentItemID]
	rules := make([]SyncRule, 0, len(ids))
	for _, id := range ids {
		rules = append(rules, s.rules[ruleKey{parentItemID, id}])
	}
	return rules
}

// CreateDefaultSyncRules adds an enabled 1:1 rule for each supplement.
func (s *SyncRuleStore) CreateDefaultSyncRules(parentItemID string, supplementIDs []string) error {
	for _, id := range supplementIDs {
		if err := s.AddSyncRule(SyncRule{
			ParentItemID: parentItemID,
			SupplementID: id,
			SyncRatio:    1,
			SyncEnabled:  true,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (s *SyncRuleStore) ResetAllSyncRules() {
	s.rules = make(map[ruleKey]SyncRule)
	s.order = make(map[string][]string)
	s.parents = nil
}

// ExportSyncRules flattens the store, grouped by parent in insertion order.
func (s *SyncRuleStore) ExportSyncRules() []SyncRule {
	all := make([]SyncRule, 0, len(s.rules))
	for _, parent := range s.parents {
		all = append(all, s.GetSyncRules(parent)...)
	}
	return all
}

// ImportSyncRules replaces the whole store. Every rule is validated first;
// on error the store is left untouched.
func (s *SyncRuleStore) ImportSyncRules(rules []SyncRule) error {
	for i, rule := range rules {
		if err := validateRule(rule); err != nil {
			return fmt.Errorf("rule %d: %w", i, err)
		}
	}
	s.ResetAllSyncRules()
	for _, rule := range rules {
		// already validated
		_ = s.AddSyncRule(rule)
	}
	return nil
}

func (s *SyncRuleStore) Len() int {
	return len(s.rules)
}
