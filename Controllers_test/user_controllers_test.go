package Controllers_test

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/yeremiapane/restaurant-oms/controllers"
	"github.com/yeremiapane/restaurant-oms/models"
)

func setupUserRouter(db *gorm.DB) *gin.Engine {
	router := gin.New()
	userCtrl := controllers.NewUserController(db)
	router.POST("/register", userCtrl.Register)
	router.POST("/login", userCtrl.Login)

	admin := authGroup(router, models.RoleManager, models.RoleStaff)
	admin.GET("/profile", userCtrl.GetProfile)
	admin.POST("/logout", userCtrl.Logout)
	return router
}

func login(t *testing.T, router *gin.Engine, email, password string) (int, string, string) {
	t.Helper()
	w, resp := doRequest(t, router, http.MethodPost, "/login", map[string]interface{}{
		"email": email, "password": password,
	}, "")
	if w.Code != http.StatusOK {
		return w.Code, "", ""
	}
	var data struct {
		Token    string `json:"token"`
		UserRole string `json:"user_role"`
	}
	decodeData(t, resp, &data)
	return w.Code, data.Token, data.UserRole
}

func TestRegisterAndLogin(t *testing.T) {
	db := setupTestDB(t)
	router := setupUserRouter(db)

	// the first account is always the manager
	w, resp := doRequest(t, router, http.MethodPost, "/register", map[string]interface{}{
		"name": "Mariam", "email": "Mariam@Resto.cm", "password": "secret1", "role": "staff",
	}, "")
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		Role string `json:"role"`
	}
	decodeData(t, resp, &created)
	assert.Equal(t, models.RoleManager, created.Role)

	code, managerToken, role := login(t, router, "mariam@resto.cm", "secret1")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, models.RoleManager, role)

	code, _, _ = login(t, router, "mariam@resto.cm", "wrong-password")
	assert.Equal(t, http.StatusUnauthorized, code)

	// later accounts need a manager
	staff := map[string]interface{}{"name": "Paul", "email": "paul@resto.cm", "password": "secret2"}
	w, _ = doRequest(t, router, http.MethodPost, "/register", staff, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, resp = doRequest(t, router, http.MethodPost, "/register", staff, managerToken)
	require.Equal(t, http.StatusCreated, w.Code)
	decodeData(t, resp, &created)
	assert.Equal(t, models.RoleStaff, created.Role)

	w, _ = doRequest(t, router, http.MethodPost, "/register", staff, managerToken)
	assert.Equal(t, http.StatusConflict, w.Code)

	code, staffToken, _ := login(t, router, "paul@resto.cm", "secret2")
	require.Equal(t, http.StatusOK, code)
	w, _ = doRequest(t, router, http.MethodPost, "/register", map[string]interface{}{
		"name": "Eve", "email": "eve@resto.cm", "password": "secret3",
	}, staffToken)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = doRequest(t, router, http.MethodPost, "/register", map[string]interface{}{
		"name": "Bad", "email": "not-an-email", "password": "secret3",
	}, managerToken)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProfileAndLogout(t *testing.T) {
	db := setupTestDB(t)
	router := setupUserRouter(db)

	w, _ := doRequest(t, router, http.MethodPost, "/register", map[string]interface{}{
		"name": "Mariam", "email": "mariam@resto.cm", "password": "secret1",
	}, "")
	require.Equal(t, http.StatusCreated, w.Code)
	_, token, _ := login(t, router, "mariam@resto.cm", "secret1")

	w, resp := doRequest(t, router, http.MethodGet, "/admin/profile", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	var user models.User
	decodeData(t, resp, &user)
	assert.Equal(t, "mariam@resto.cm", user.Email)
	assert.Empty(t, user.Password)

	w, _ = doRequest(t, router, http.MethodPost, "/admin/logout", nil, token)
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = doRequest(t, router, http.MethodGet, "/admin/profile", nil, token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
