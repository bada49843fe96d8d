package controllers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-oms/services"
	"github.com/yeremiapane/restaurant-oms/utils"
)

type DashboardController struct {
	Reports *services.ReportService
}

func NewDashboardController(reports *services.ReportService) *DashboardController {
	return &DashboardController{Reports: reports}
}

const dateLayout = "2006-01-02"

// GetStats reads ?from=&to= as dates; to is inclusive. Defaults to today.
func (dc *DashboardController) GetStats(c *gin.Context) {
	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	from, err := parseDate(c.Query("from"), today)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	to, err := parseDate(c.Query("to"), from)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if to.Before(from) {
		utils.RespondError(c, http.StatusBadRequest, fmt.Errorf("to must not be before from"))
		return
	}

	stats, err := dc.Reports.DashboardStats(from, to.AddDate(0, 0, 1))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Dashboard stats", stats)
}

func (dc *DashboardController) GetSalesSeries(c *gin.Context) {
	days, err := strconv.Atoi(c.DefaultQuery("days", "7"))
	if err != nil || days < 1 || days > 366 {
		utils.RespondError(c, http.StatusBadRequest, fmt.Errorf("days must be between 1 and 366"))
		return
	}
	series, err := dc.Reports.SalesSeries(days)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Sales series", series)
}

func parseDate(raw string, def time.Time) (time.Time, error) {
	if raw == "" {
		return def, nil
	}
	t, err := time.ParseInLocation(dateLayout, raw, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", raw)
	}
	return t, nil
}
