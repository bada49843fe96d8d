package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-oms/services"
	"github.com/yeremiapane/restaurant-oms/utils"
)

// OrderBuilderController drives in-memory order drafts.
type OrderBuilderController struct {
	Builder *services.OrderBuilder
}

func NewOrderBuilderController(builder *services.OrderBuilder) *OrderBuilderController {
	return &OrderBuilderController{Builder: builder}
}

func (oc *OrderBuilderController) draft(c *gin.Context) (*services.OrderDraft, bool) {
	draft, err := oc.Builder.Drafts().Get(c.Param("draft_id"))
	if err != nil {
		respondServiceError(c, err)
		return nil, false
	}
	return draft, true
}

func (oc *OrderBuilderController) CreateDraft(c *gin.Context) {
	draft := oc.Builder.Drafts().Create()
	utils.RespondJSON(c, http.StatusCreated, "Draft created", draft.View())
}

func (oc *OrderBuilderController) GetDraft(c *gin.Context) {
	draft, ok := oc.draft(c)
	if !ok {
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Draft detail", draft.View())
}

func (oc *OrderBuilderController) DeleteDraft(c *gin.Context) {
	if !oc.Builder.Drafts().Delete(c.Param("draft_id")) {
		respondServiceError(c, services.ErrDraftNotFound)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Draft discarded", nil)
}

func (oc *OrderBuilderController) AddItem(c *gin.Context) {
	var body struct {
		ProductID   uint                         `json:"product_id" binding:"required"`
		Quantity    int                          `json:"quantity"`
		Supplements []services.SupplementRequest `json:"supplements" binding:"dive"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if body.Quantity == 0 {
		body.Quantity = 1
	}

	item, err := oc.Builder.AddItem(c.Param("draft_id"), body.ProductID, body.Quantity, body.Supplements)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	draft, ok := oc.draft(c)
	if !ok {
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Item added", gin.H{
		"item":  item,
		"draft": draft.View(),
	})
}

// UpdateItem returns the reconcile result; its error message is user-facing.
func (oc *OrderBuilderController) UpdateItem(c *gin.Context) {
	draft, ok := oc.draft(c)
	if !ok {
		return
	}
	var body struct {
		Quantity int `json:"quantity"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	result, err := draft.UpdateQuantity(c.Param("client_id"), body.Quantity, oc.Builder.MaxQuantity())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Item updated", gin.H{
		"result": result,
		"draft":  draft.View(),
	})
}

func (oc *OrderBuilderController) RemoveItem(c *gin.Context) {
	draft, ok := oc.draft(c)
	if !ok {
		return
	}
	if err := draft.RemoveItem(c.Param("client_id")); err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Item removed", draft.View())
}

type syncRuleRequest struct {
	ParentItemID string  `json:"parent_item_id" binding:"required"`
	SupplementID string  `json:"supplement_id" binding:"required"`
	SyncRatio    float64 `json:"sync_ratio"`
}

func (oc *OrderBuilderController) ToggleSync(c *gin.Context) {
	draft, ok := oc.draft(c)
	if !ok {
		return
	}
	var body syncRuleRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	enabled, err := draft.ToggleSync(body.ParentItemID, body.SupplementID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Sync toggled", gin.H{"sync_enabled": enabled})
}

func (oc *OrderBuilderController) UpdateSyncRatio(c *gin.Context) {
	draft, ok := oc.draft(c)
	if !ok {
		return
	}
	var body syncRuleRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if err := draft.UpdateSyncRatio(body.ParentItemID, body.SupplementID, body.SyncRatio); err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Sync ratio updated", draft.ExportSyncRules())
}

func (oc *OrderBuilderController) ExportSyncRules(c *gin.Context) {
	draft, ok := oc.draft(c)
	if !ok {
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Sync rules", draft.ExportSyncRules())
}

func (oc *OrderBuilderController) ImportSyncRules(c *gin.Context) {
	draft, ok := oc.draft(c)
	if !ok {
		return
	}
	var rules []services.SyncRule
	if err := c.ShouldBindJSON(&rules); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if err := draft.ImportSyncRules(rules); err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Sync rules imported", draft.ExportSyncRules())
}

func (oc *OrderBuilderController) ResetDraft(c *gin.Context) {
	draft, ok := oc.draft(c)
	if !ok {
		return
	}
	draft.Reset()
	utils.RespondJSON(c, http.StatusOK, "Draft reset", draft.View())
}

func (oc *OrderBuilderController) SubmitDraft(c *gin.Context) {
	var body struct {
		TableNumber  string `json:"table_number"`
		CustomerName string `json:"customer_name"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	order, err := oc.Builder.Submit(c.Param("draft_id"), body.TableNumber, body.CustomerName, currentUserID(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Order created", gin.H{
		"order":     order,
		"reference": order.Reference(),
	})
}
