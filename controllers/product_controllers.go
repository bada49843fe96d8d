package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/yeremiapane/restaurant-oms/models"
	"github.com/yeremiapane/restaurant-oms/services"
	"github.com/yeremiapane/restaurant-oms/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProductController struct {
	DB     *gorm.DB
	Stocks *services.StockService
}

func NewProductController(db *gorm.DB, stocks *services.StockService) *ProductController {
	return &ProductController{DB: db, Stocks: stocks}
}

type productRequest struct {
	CategoryID        *uint            `json:"category_id"`
	Name              *string          `json:"name"`
	Description       *string          `json:"description"`
	ProductType       *string          `json:"product_type"`
	Price             *decimal.Decimal `json:"price"`
	ConversionFactor  *int             `json:"conversion_factor" binding:"omitempty,min=1"`
	StockUnit         *string          `json:"stock_unit"`
	MaxStock          *int             `json:"max_stock" binding:"omitempty,min=1"`
	LowStockThreshold *int             `json:"low_stock_threshold" binding:"omitempty,min=0"`
	TrackStock        *bool            `json:"track_stock"`
	Available         *bool            `json:"available"`
}

func (r productRequest) apply(p *models.Product) error {
	if r.CategoryID != nil {
		p.CategoryID = r.CategoryID
	}
	if r.Name != nil {
		p.Name = *r.Name
	}
	if r.Description != nil {
		p.Description = *r.Description
	}
	if r.ProductType != nil {
		t := models.ProductType(*r.ProductType)
		if !t.IsValid() {
			return fmt.Errorf("invalid product_type %q", *r.ProductType)
		}
		p.ProductType = t
	}
	if r.Price != nil {
		if r.Price.IsNegative() {
			return errors.New("price must not be negative")
		}
		p.Price = *r.Price
	}
	if r.ConversionFactor != nil {
		p.ConversionFactor = r.ConversionFactor
	}
	if r.StockUnit != nil {
		p.StockUnit = *r.StockUnit
	}
	if r.MaxStock != nil {
		p.MaxStock = *r.MaxStock
	}
	if r.LowStockThreshold != nil {
		p.LowStockThreshold = r.LowStockThreshold
	}
	if r.TrackStock != nil {
		p.TrackStock = *r.TrackStock
	}
	if r.Available != nil {
		p.Available = *r.Available
	}
	return nil
}

// GetAllProducts supports ?type= and ?category_id= filters.
func (pc *ProductController) GetAllProducts(c *gin.Context) {
	q := pc.DB.Preload("Category").Order("name asc")
	if t := c.Query("type"); t != "" {
		q = q.Where("product_type = ?", t)
	}
	if cat := c.Query("category_id"); cat != "" {
		id, err := strconv.ParseUint(cat, 10, 64)
		if err != nil {
			utils.RespondError(c, http.StatusBadRequest, fmt.Errorf("invalid category_id: %q", cat))
			return
		}
		q = q.Where("category_id = ?", id)
	}

	var products []models.Product
	if err := q.Find(&products).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "All products", products)
}

func (pc *ProductController) GetProductByID(c *gin.Context) {
	id, err := uintParam(c, "id")
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	var product models.Product
	if err := pc.DB.Preload("Category").First(&product, id).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Product detail", product)
}

// CreateProduct also opens an empty stock row for tracked products.
func (pc *ProductController) CreateProduct(c *gin.Context) {
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if req.Name == nil || *req.Name == "" || req.ProductType == nil || req.Price == nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("name, product_type and price are required"))
		return
	}

	product := models.Product{MaxStock: services.DefaultMaxStock, Available: true}
	if err := req.apply(&product); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	err := pc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&product).Error; err != nil {
			return err
		}
		// gorm skips zero values that have a column default
		if !product.Available {
			if err := tx.Model(&product).Update("available", false).Error; err != nil {
				return err
			}
		}
		if product.TrackStock {
			if _, err := pc.Stocks.EnsureStock(tx, product, currentUserID(c)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.Info().Printf("Product created: %s (%s)", product.Name, product.ProductType)
	utils.RespondJSON(c, http.StatusCreated, "Product created", product)
}

func (pc *ProductController) UpdateProduct(c *gin.Context) {
	id, err := uintParam(c, "id")
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var product models.Product
	if err := pc.DB.First(&product, id).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}
	if err := req.apply(&product); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	err = pc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&product).Error; err != nil {
			return err
		}
		if !product.TrackStock {
			return nil
		}
		stock, err := pc.Stocks.EnsureStock(tx, product, currentUserID(c))
		if err != nil {
			return err
		}
		// the conversion factor may have changed
		services.ApplyCompoundFields(stock, product)
		return tx.Model(stock).Updates(map[string]interface{}{
			"quantity_packets": stock.QuantityPackets,
			"quantity_plates":  stock.QuantityPlates,
			"quantity_units":   stock.QuantityUnits,
		}).Error
	})
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Product updated", product)
}

// DeleteProduct removes the product with its stock row and supplement links.
// Order lines keep their copied name and price.
func (pc *ProductController) DeleteProduct(c *gin.Context) {
	id, err := uintParam(c, "id")
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	err = pc.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.Product{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return services.ErrProductNotFound
		}
		if err := tx.Where("product_id = ?", id).Delete(&models.Stock{}).Error; err != nil {
			return err
		}
		return tx.Where("product_id = ? OR supplement_id = ?", id, id).Delete(&models.ProductSupplement{}).Error
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Product deleted", nil)
}

func (pc *ProductController) GetSupplements(c *gin.Context) {
	id, err := uintParam(c, "id")
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	var links []models.ProductSupplement
	if err := pc.DB.Preload("Supplement").Where("product_id = ?", id).Order("id asc").Find(&links).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Product supplements", links)
}

// LinkSupplement offers a supplement with a product, updating the existing
// link if the pair is already known.
func (pc *ProductController) LinkSupplement(c *gin.Context) {
	id, err := uintParam(c, "id")
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	var body struct {
		SupplementID    uint    `json:"supplement_id" binding:"required"`
		DefaultQuantity int     `json:"default_quantity" binding:"omitempty,min=1"`
		SyncRatio       float64 `json:"sync_ratio" binding:"omitempty,gt=0"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if body.SupplementID == id {
		utils.RespondError(c, http.StatusBadRequest, errors.New("a product cannot be its own supplement"))
		return
	}
	if body.DefaultQuantity == 0 {
		body.DefaultQuantity = 1
	}
	if body.SyncRatio == 0 {
		body.SyncRatio = 1
	}

	var count int64
	if err := pc.DB.Model(&models.Product{}).Where("id IN ?", []uint{id, body.SupplementID}).Count(&count).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	if count != 2 {
		respondServiceError(c, services.ErrProductNotFound)
		return
	}

	link := models.ProductSupplement{
		ProductID:       id,
		SupplementID:    body.SupplementID,
		DefaultQuantity: body.DefaultQuantity,
		SyncRatio:       body.SyncRatio,
	}
	if err := pc.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "product_id"}, {Name: "supplement_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"default_quantity", "sync_ratio", "updated_at"}),
	}).Create(&link).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	var saved models.ProductSupplement
	if err := pc.DB.Preload("Supplement").
		Where("product_id = ? AND supplement_id = ?", id, body.SupplementID).First(&saved).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Supplement linked", saved)
}

func (pc *ProductController) UnlinkSupplement(c *gin.Context) {
	id, err := uintParam(c, "id")
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	supplementID, err := uintParam(c, "supplement_id")
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	res := pc.DB.Where("product_id = ? AND supplement_id = ?", id, supplementID).Delete(&models.ProductSupplement{})
	if res.Error != nil {
		utils.RespondError(c, http.StatusInternalServerError, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		utils.RespondError(c, http.StatusNotFound, errors.New("supplement link not found"))
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Supplement unlinked", nil)
}
