package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-oms/services"
	"github.com/yeremiapane/restaurant-oms/utils"
)

type StockController struct {
	Stocks *services.StockService
}

func NewStockController(stocks *services.StockService) *StockController {
	return &StockController{Stocks: stocks}
}

// stockRequest is either a flat quantity or packets/plates plus units.
type stockRequest struct {
	Quantity int    `json:"quantity" binding:"min=0"`
	Packets  int    `json:"packets" binding:"min=0"`
	Plates   int    `json:"plates" binding:"min=0"`
	Units    int    `json:"units" binding:"min=0"`
	Note     string `json:"note"`
}

func (r stockRequest) compound() services.CompoundQuantity {
	return services.CompoundQuantity{
		Packets:  r.Packets,
		Plates:   r.Plates,
		Units:    r.Units,
		Quantity: r.Quantity,
	}
}

// adjustRequest sets an absolute level, so an empty body is refused
// rather than read as zero.
type adjustRequest struct {
	Quantity *int   `json:"quantity" binding:"required_without_all=Packets Plates Units"`
	Packets  *int   `json:"packets" binding:"omitempty,min=0"`
	Plates   *int   `json:"plates" binding:"omitempty,min=0"`
	Units    *int   `json:"units" binding:"omitempty,min=0"`
	Note     string `json:"note"`
}

func (r adjustRequest) compound() services.CompoundQuantity {
	value := func(v *int) int {
		if v == nil {
			return 0
		}
		return *v
	}
	return services.CompoundQuantity{
		Packets:  value(r.Packets),
		Plates:   value(r.Plates),
		Units:    value(r.Units),
		Quantity: value(r.Quantity),
	}
}

func (sc *StockController) GetAllStocks(c *gin.Context) {
	stocks, err := sc.Stocks.ListStocks()
	if err != nil {
		respondServiceError(c, err)
		return
	}
	views := make([]services.StockView, 0, len(stocks))
	for _, st := range stocks {
		views = append(views, services.NewStockView(st))
	}
	utils.RespondJSON(c, http.StatusOK, "All stocks", views)
}

func (sc *StockController) GetStock(c *gin.Context) {
	productID, err := uintParam(c, "product_id")
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	stock, err := sc.Stocks.GetStock(productID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Stock detail", services.NewStockView(*stock))
}

func (sc *StockController) Restock(c *gin.Context) {
	productID, err := uintParam(c, "product_id")
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	var req stockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	stock, movement, err := sc.Stocks.Restock(productID, req.compound(), currentUserID(c), req.Note)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Stock restocked", gin.H{
		"stock":    services.NewStockView(*stock),
		"movement": movement,
	})
}

// Adjust sets an absolute level after a physical count.
func (sc *StockController) Adjust(c *gin.Context) {
	productID, err := uintParam(c, "product_id")
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	var req adjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	stock, movement, err := sc.Stocks.Adjust(productID, req.compound(), currentUserID(c), req.Note)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Stock adjusted", gin.H{
		"stock":    services.NewStockView(*stock),
		"movement": movement,
	})
}

func (sc *StockController) GetMovements(c *gin.Context) {
	productID, err := uintParam(c, "product_id")
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	movements, err := sc.Stocks.Movements(productID, limit)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Stock movements", movements)
}

func (sc *StockController) GetAnalysis(c *gin.Context) {
	productID, err := uintParam(c, "product_id")
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	analysis, err := sc.Stocks.Analyze(productID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Sales analysis", analysis)
}
