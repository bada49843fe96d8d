package Controllers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yeremiapane/restaurant-oms/database"
	"github.com/yeremiapane/restaurant-oms/middlewares"
	"github.com/yeremiapane/restaurant-oms/models"
	"github.com/yeremiapane/restaurant-oms/utils"
)

// Each test gets its own in-memory database.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	utils.InitLogger()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

// authGroup returns an /admin group guarded like the real router.
func authGroup(r *gin.Engine, roles ...string) *gin.RouterGroup {
	g := r.Group("/admin")
	g.Use(middlewares.AuthMiddleware())
	if len(roles) > 0 {
		g.Use(middlewares.RequireRole(roles...))
	}
	return g
}

func tokenFor(t *testing.T, userID uint, role string) string {
	t.Helper()
	token, err := utils.GenerateToken(userID, role)
	require.NoError(t, err)
	return token
}

type apiResponse struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func doRequest(t *testing.T, router *gin.Engine, method, path string, body interface{}, token string) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var resp apiResponse
	if w.Body.Len() > 0 {
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

func decodeData(t *testing.T, resp apiResponse, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(resp.Data, out))
}

func seedProduct(t *testing.T, db *gorm.DB, p models.Product) models.Product {
	t.Helper()
	if p.MaxStock == 0 {
		p.MaxStock = 100
	}
	p.Available = true
	require.NoError(t, db.Create(&p).Error)
	return p
}

func seedStock(t *testing.T, db *gorm.DB, product models.Product, quantity int) {
	t.Helper()
	require.NoError(t, db.Create(&models.Stock{ProductID: product.ID, Quantity: quantity, LastUpdated: time.Now()}).Error)
}

func stockQuantity(t *testing.T, db *gorm.DB, productID uint) int {
	t.Helper()
	var stock models.Stock
	require.NoError(t, db.Where("product_id = ?", productID).First(&stock).Error)
	return stock.Quantity
}

func amount(s string) decimal.Decimal { return decimal.RequireFromString(s) }
