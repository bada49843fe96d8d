package services

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restaurant-oms/models"
	"github.com/yeremiapane/restaurant-oms/utils"
	"gorm.io/gorm"
)

// DraftIdleTimeout is how long an untouched draft survives a sweep.
const DraftIdleTimeout = 2 * time.Hour

var (
	ErrDraftNotFound      = errors.New("draft not found")
	ErrDraftClosed        = errors.New("draft already submitted")
	ErrDraftItemNotFound  = errors.New("draft item not found")
	ErrProductUnavailable = errors.New("product is not available")
	ErrSupplementNotLink  = errors.New("supplement is not offered with this product")
)

// DraftSupplement is a supplement line requested together with its parent.
type DraftSupplement struct {
	Product   models.Product
	Quantity  int
	SyncRatio float64
}

// DraftView is the JSON shape of a draft.
type DraftView struct {
	ID          string           `json:"id"`
	Items       []LineItem       `json:"items"`
	Supplements []SupplementItem `json:"supplements"`
	SyncRules   []SyncRule       `json:"sync_rules"`
	Total       decimal.Decimal  `json:"total"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// OrderDraft is one order being built. It owns its sync rules; all access
// goes through the draft lock.
type OrderDraft struct {
	ID string

	mu          sync.Mutex
	items       []LineItem
	supplements []SupplementItem
	rules       *SyncRuleStore
	closed      bool
	createdAt   time.Time
	updatedAt   time.Time
	now         func() time.Time
}

func newOrderDraft(now func() time.Time) *OrderDraft {
	t := now()
	return &OrderDraft{
		ID:          uuid.NewString(),
		items:       []LineItem{},
		supplements: []SupplementItem{},
		rules:       NewSyncRuleStore(),
		createdAt:   t,
		updatedAt:   t,
		now:         now,
	}
}

func (d *OrderDraft) touch() {
	d.updatedAt = d.now()
}

// LastActivity is the time of the last change to the draft.
func (d *OrderDraft) LastActivity() time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.updatedAt
}

// AddItem appends a parent line with its supplements and links them with
// enabled sync rules.
func (d *OrderDraft) AddItem(product models.Product, quantity, maxQuantity int, supplements []DraftSupplement) (LineItem, error) {
	if err := ValidateQuantity(quantity, maxQuantity); err != nil {
		return LineItem{}, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return LineItem{}, ErrDraftClosed
	}

	item := LineItem{
		ClientID:    uuid.NewString(),
		ProductID:   product.ID,
		ProductName: product.Name,
		Quantity:    quantity,
		UnitPrice:   product.Price,
		TotalPrice:  LineTotal(quantity, product.Price),
	}

	lines := make([]SupplementItem, 0, len(supplements))
	rules := make([]SyncRule, 0, len(supplements))
	for _, sup := range supplements {
		ratio := sup.SyncRatio
		if ratio <= 0 {
			ratio = 1
		}
		synced := SyncedQuantity(quantity, ratio)
		qty := sup.Quantity
		if qty <= 0 {
			qty = synced
		}
		// a quantity picked by hand is kept as is
		enabled := qty == synced
		line := SupplementItem{
			ID:           uuid.NewString(),
			ProductID:    sup.Product.ID,
			Name:         sup.Product.Name,
			UnitPrice:    sup.Product.Price,
			Quantity:     qty,
			TotalPrice:   LineTotal(qty, sup.Product.Price),
			ParentItemID: item.ClientID,
		}
		lines = append(lines, line)
		rules = append(rules, SyncRule{
			ParentItemID: item.ClientID,
			SupplementID: line.ID,
			SyncRatio:    ratio,
			SyncEnabled:  enabled,
		})
	}

	ids := make([]string, len(lines))
	for i, l := range lines {
		ids[i] = l.ID
	}
	if err := d.rules.CreateDefaultSyncRules(item.ClientID, ids); err != nil {
		return LineItem{}, err
	}
	for _, r := range rules {
		if err := d.rules.AddSyncRule(r); err != nil {
			return LineItem{}, err
		}
	}

	d.items = append(d.items, item)
	d.supplements = append(d.supplements, lines...)
	d.touch()
	return item, nil
}

// UpdateQuantity changes a line's quantity. Parent lines drag their synced
// supplements along; supplement lines are set directly.
func (d *OrderDraft) UpdateQuantity(clientID string, quantity, maxQuantity int) (ReconcileResult, error) {
	if err := ValidateQuantity(quantity, maxQuantity); err != nil {
		return ReconcileResult{Success: false, Error: err.Error()}, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ReconcileResult{}, ErrDraftClosed
	}

	if i := d.itemIndex(clientID); i >= 0 {
		current := SupplementsOf(clientID, d.supplements)
		result := UpdateSupplementQuantities(d.rules, d.items[i], quantity, current)
		if !result.Success {
			return result, &ValidationError{Message: result.Error}
		}
		d.items[i] = result.UpdatedItems[0]
		for _, updated := range result.UpdatedSupplements {
			if j := d.supplementIndex(updated.ID); j >= 0 {
				d.supplements[j] = updated
			}
		}
		d.touch()
		return result, nil
	}

	if j := d.supplementIndex(clientID); j >= 0 {
		parent := d.supplements[j].ParentItemID
		if rule, ok := d.rules.GetSyncRule(parent, clientID); ok && rule.SyncEnabled {
			// stop tracking the parent so the edit survives submission
			rule.SyncEnabled = false
			if err := d.rules.AddSyncRule(rule); err != nil {
				return ReconcileResult{}, err
			}
		}
		d.supplements[j].Quantity = quantity
		d.supplements[j].TotalPrice = LineTotal(quantity, d.supplements[j].UnitPrice)
		d.touch()
		return ReconcileResult{
			Success:            true,
			UpdatedItems:       []LineItem{},
			UpdatedSupplements: []SupplementItem{d.supplements[j]},
		}, nil
	}
	return ReconcileResult{}, ErrDraftItemNotFound
}

// RemoveItem drops a line. Removing a parent also drops its supplements
// and rules.
func (d *OrderDraft) RemoveItem(clientID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrDraftClosed
	}

	if i := d.itemIndex(clientID); i >= 0 {
		d.items = append(d.items[:i], d.items[i+1:]...)
		kept := d.supplements[:0]
		for _, s := range d.supplements {
			if s.ParentItemID != clientID {
				kept = append(kept, s)
			}
		}
		d.supplements = kept
		d.rules.RemoveParent(clientID)
		d.touch()
		return nil
	}
	if j := d.supplementIndex(clientID); j >= 0 {
		parent := d.supplements[j].ParentItemID
		d.supplements = append(d.supplements[:j], d.supplements[j+1:]...)
		d.rules.RemoveSyncRule(parent, clientID)
		d.touch()
		return nil
	}
	return ErrDraftItemNotFound
}

func (d *OrderDraft) ToggleSync(parentItemID, supplementID string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return false, ErrDraftClosed
	}
	enabled, ok := d.rules.ToggleSync(parentItemID, supplementID)
	if !ok {
		return false, ErrSyncRuleNotFound
	}
	d.resync()
	d.touch()
	return enabled, nil
}

func (d *OrderDraft) UpdateSyncRatio(parentItemID, supplementID string, ratio float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrDraftClosed
	}
	if err := d.rules.UpdateSyncRatio(parentItemID, supplementID, ratio); err != nil {
		return err
	}
	d.resync()
	d.touch()
	return nil
}

func (d *OrderDraft) ExportSyncRules() []SyncRule {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rules.ExportSyncRules()
}

func (d *OrderDraft) ImportSyncRules(rules []SyncRule) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrDraftClosed
	}
	if err := d.rules.ImportSyncRules(rules); err != nil {
		return err
	}
	d.resync()
	d.touch()
	return nil
}

// resync brings every line in line with the current rules so the draft
// always shows what Finalize will submit. Caller holds d.mu.
func (d *OrderDraft) resync() {
	d.items, d.supplements = ApplySyncToOrder(d.rules, d.items, d.supplements)
}

// Reset empties the draft and its rules.
func (d *OrderDraft) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.items = []LineItem{}
	d.supplements = []SupplementItem{}
	d.rules.ResetAllSyncRules()
	d.touch()
}

func (d *OrderDraft) View() DraftView {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.view()
}

func (d *OrderDraft) view() DraftView {
	items := make([]LineItem, len(d.items))
	copy(items, d.items)
	supplements := make([]SupplementItem, len(d.supplements))
	copy(supplements, d.supplements)

	total := decimal.Zero
	for _, it := range items {
		total = total.Add(CalculateItemTotal(it, SupplementsOf(it.ClientID, supplements)))
	}
	return DraftView{
		ID:          d.ID,
		Items:       items,
		Supplements: supplements,
		SyncRules:   d.rules.ExportSyncRules(),
		Total:       total,
		CreatedAt:   d.createdAt,
		UpdatedAt:   d.updatedAt,
	}
}

// Finalize applies the sync rules to every line and hands the result to
// commit. The draft is closed only if commit succeeds.
func (d *OrderDraft) Finalize(commit func([]LineItem, []SupplementItem) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrDraftClosed
	}
	if len(d.items) == 0 {
		return ErrEmptyOrder
	}
	items, supplements := ApplySyncToOrder(d.rules, d.items, d.supplements)
	if err := commit(items, supplements); err != nil {
		return err
	}
	d.closed = true
	return nil
}

func (d *OrderDraft) itemIndex(clientID string) int {
	for i, it := range d.items {
		if it.ClientID == clientID {
			return i
		}
	}
	return -1
}

func (d *OrderDraft) supplementIndex(id string) int {
	for i, s := range d.supplements {
		if s.ID == id {
			return i
		}
	}
	return -1
}

// DraftRegistry holds every open draft in memory.
type DraftRegistry struct {
	mu     sync.RWMutex
	drafts map[string]*OrderDraft
	now    func() time.Time
}

func NewDraftRegistry() *DraftRegistry {
	return &DraftRegistry{
		drafts: make(map[string]*OrderDraft),
		now:    time.Now,
	}
}

func (r *DraftRegistry) Create() *OrderDraft {
	d := newOrderDraft(r.now)
	r.mu.Lock()
	r.drafts[d.ID] = d
	r.mu.Unlock()
	return d
}

func (r *DraftRegistry) Get(id string) (*OrderDraft, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.drafts[id]
	if !ok {
		return nil, ErrDraftNotFound
	}
	return d, nil
}

func (r *DraftRegistry) Delete(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.drafts[id]; !ok {
		return false
	}
	delete(r.drafts, id)
	return true
}

// Sweep evicts drafts idle for longer than maxIdle and returns how many
// were dropped.
func (r *DraftRegistry) Sweep(maxIdle time.Duration) int {
	cutoff := r.now().Add(-maxIdle)
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, d := range r.drafts {
		if d.LastActivity().Before(cutoff) {
			delete(r.drafts, id)
			removed++
		}
	}
	return removed
}

func (r *DraftRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.drafts)
}

// SupplementRequest asks for a supplement line by product id.
type SupplementRequest struct {
	SupplementID uint `json:"supplement_id" binding:"required"`
	Quantity     int  `json:"quantity"`
}

// OrderBuilder resolves catalog data for drafts and submits them as orders.
type OrderBuilder struct {
	db          *gorm.DB
	drafts      *DraftRegistry
	orders      *OrderService
	maxQuantity int
}

func NewOrderBuilder(db *gorm.DB, drafts *DraftRegistry, orders *OrderService, maxQuantity int) *OrderBuilder {
	return &OrderBuilder{db: db, drafts: drafts, orders: orders, maxQuantity: maxQuantity}
}

func (b *OrderBuilder) Drafts() *DraftRegistry {
	return b.drafts
}

func (b *OrderBuilder) MaxQuantity() int {
	return b.maxQuantity
}

// AddItem loads the product and its requested supplements and adds them
// to the draft.
func (b *OrderBuilder) AddItem(draftID string, productID uint, quantity int, requested []SupplementRequest) (LineItem, error) {
	draft, err := b.drafts.Get(draftID)
	if err != nil {
		return LineItem{}, err
	}
	product, err := b.availableProduct(productID)
	if err != nil {
		return LineItem{}, err
	}

	supplements := make([]DraftSupplement, 0, len(requested))
	for _, req := range requested {
		var link models.ProductSupplement
		err := b.db.Preload("Supplement").
			Where("product_id = ? AND supplement_id = ?", productID, req.SupplementID).
			First(&link).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return LineItem{}, ErrSupplementNotLink
		}
		if err != nil {
			return LineItem{}, err
		}
		if !link.Supplement.Available {
			return LineItem{}, ErrProductUnavailable
		}
		qty := req.Quantity
		if qty > 0 {
			if err := ValidateQuantity(qty, b.maxQuantity); err != nil {
				return LineItem{}, err
			}
		}
		supplements = append(supplements, DraftSupplement{
			Product:   link.Supplement,
			Quantity:  qty,
			SyncRatio: link.SyncRatio,
		})
	}

	return draft.AddItem(product, quantity, b.maxQuantity, supplements)
}

// Submit turns the draft into a saved order and forgets the draft.
func (b *OrderBuilder) Submit(draftID, tableNumber, customerName string, userID uint) (*models.Order, error) {
	draft, err := b.drafts.Get(draftID)
	if err != nil {
		return nil, err
	}
	var order *models.Order
	err = draft.Finalize(func(items []LineItem, supplements []SupplementItem) error {
		var err error
		order, err = b.orders.Create(OrderInput{
			TableNumber:  tableNumber,
			CustomerName: customerName,
			Items:        items,
			Supplements:  supplements,
			CreatedBy:    userID,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	b.drafts.Delete(draftID)
	utils.Info().WithFields(logrus.Fields{
		"draft_id": draftID,
		"order_id": order.ID,
	}).Info("Draft submitted")
	return order, nil
}

func (b *OrderBuilder) availableProduct(productID uint) (models.Product, error) {
	var product models.Product
	if err := b.db.First(&product, productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return product, ErrProductNotFound
		}
		return product, err
	}
	if !product.Available {
		return product, ErrProductUnavailable
	}
	return product, nil
}
