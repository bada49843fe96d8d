package router

import (
	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-oms/config"
	"github.com/yeremiapane/restaurant-oms/controllers"
	"github.com/yeremiapane/restaurant-oms/middlewares"
	"github.com/yeremiapane/restaurant-oms/models"
	"github.com/yeremiapane/restaurant-oms/services"
	"gorm.io/gorm"
)

func SetupRouter(db *gorm.DB, cfg *config.Config, drafts *services.DraftRegistry) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddlewares(cfg.CORSOrigin))
	r.Use(middlewares.LoggerMiddleware())
	r.Use(middlewares.NewRateLimiter(cfg.RateLimitPerSecond).RateLimit())

	stockSvc := services.NewStockService(db)
	orderSvc := services.NewOrderService(db, stockSvc)
	paymentSvc := services.NewPaymentService(db)
	reportSvc := services.NewReportService(db)
	builder := services.NewOrderBuilder(db, drafts, orderSvc, cfg.MaxItemQuantity)

	userCtrl := controllers.NewUserController(db)
	categoryCtrl := controllers.NewCategoryController(db)
	productCtrl := controllers.NewProductController(db, stockSvc)
	stockCtrl := controllers.NewStockController(stockSvc)
	draftCtrl := controllers.NewOrderBuilderController(builder)
	orderCtrl := controllers.NewOrderController(orderSvc, cfg.MaxItemQuantity)
	paymentCtrl := controllers.NewPaymentController(paymentSvc)
	dashboardCtrl := controllers.NewDashboardController(reportSvc)

	// ----------------------------------------------------------------
	//                      PUBLIC ROUTES
	// ----------------------------------------------------------------
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	public := r.Group("/")
	public.Use(middlewares.NewStrictRateLimiter())
	{
		public.POST("/register", userCtrl.Register)
		public.POST("/login", userCtrl.Login)
	}

	r.GET("/categories", categoryCtrl.GetAllCategories)
	r.GET("/products", productCtrl.GetAllProducts)
	r.GET("/products/:id", productCtrl.GetProductByID)
	r.GET("/products/:id/supplements", productCtrl.GetSupplements)
	r.GET("/orders/:order_id", orderCtrl.GetOrderByID)

	// Order builder drafts
	draftRoutes := r.Group("/drafts")
	{
		draftRoutes.POST("", draftCtrl.CreateDraft)
		draftRoutes.GET("/:draft_id", draftCtrl.GetDraft)
		draftRoutes.DELETE("/:draft_id", draftCtrl.DeleteDraft)
		draftRoutes.POST("/:draft_id/items", draftCtrl.AddItem)
		draftRoutes.PATCH("/:draft_id/items/:client_id", draftCtrl.UpdateItem)
		draftRoutes.DELETE("/:draft_id/items/:client_id", draftCtrl.RemoveItem)
		draftRoutes.POST("/:draft_id/sync/toggle", draftCtrl.ToggleSync)
		draftRoutes.PATCH("/:draft_id/sync", draftCtrl.UpdateSyncRatio)
		draftRoutes.GET("/:draft_id/sync", draftCtrl.ExportSyncRules)
		draftRoutes.PUT("/:draft_id/sync", draftCtrl.ImportSyncRules)
		draftRoutes.POST("/:draft_id/reset", draftCtrl.ResetDraft)
		draftRoutes.POST("/:draft_id/submit", draftCtrl.SubmitDraft)
	}

	// ----------------------------------------------------------------
	//                      AUTHENTICATED ROUTES
	// ----------------------------------------------------------------
	auth := r.Group("/admin")
	auth.Use(middlewares.AuthMiddleware())
	auth.Use(middlewares.RequireRole(models.RoleManager, models.RoleStaff))

	manager := middlewares.RequireRole(models.RoleManager)

	auth.GET("/profile", userCtrl.GetProfile)
	auth.POST("/logout", userCtrl.Logout)
	auth.GET("/users", manager, userCtrl.GetAllUsers)

	// CATALOG (manager)
	auth.POST("/categories", manager, categoryCtrl.CreateCategory)
	auth.PATCH("/categories/:cat_id", manager, categoryCtrl.UpdateCategory)
	auth.DELETE("/categories/:cat_id", manager, categoryCtrl.DeleteCategory)

	auth.POST("/products", manager, productCtrl.CreateProduct)
	auth.PATCH("/products/:id", manager, productCtrl.UpdateProduct)
	auth.DELETE("/products/:id", manager, productCtrl.DeleteProduct)
	auth.POST("/products/:id/supplements", manager, productCtrl.LinkSupplement)
	auth.DELETE("/products/:id/supplements/:supplement_id", manager, productCtrl.UnlinkSupplement)

	// STOCK
	auth.GET("/stocks", stockCtrl.GetAllStocks)
	auth.GET("/stocks/:product_id", stockCtrl.GetStock)
	auth.GET("/stocks/:product_id/movements", stockCtrl.GetMovements)
	auth.GET("/stocks/:product_id/analysis", stockCtrl.GetAnalysis)
	stockWrites := auth.Group("/stocks")
	stockWrites.Use(manager, middlewares.StockAuditLogger())
	{
		stockWrites.POST("/:product_id/restock", stockCtrl.Restock)
		stockWrites.POST("/:product_id/adjust", stockCtrl.Adjust)
	}

	// ORDERS
	auth.GET("/orders", orderCtrl.GetAllOrders)
	auth.GET("/orders/:order_id", orderCtrl.GetOrderByID)
	auth.PATCH("/orders/:order_id/items/:item_id", orderCtrl.UpdateItemQuantity)
	auth.DELETE("/orders/:order_id/items/:item_id", orderCtrl.RemoveItem)
	auth.POST("/orders/:order_id/cancel", orderCtrl.CancelOrder)
	auth.DELETE("/orders/:order_id", manager, orderCtrl.DeleteOrder)

	// PAYMENTS
	payments := auth.Group("")
	payments.Use(middlewares.LogPaymentRequest())
	{
		payments.GET("/orders/:order_id/payments", paymentCtrl.GetPayments)
		payments.POST("/orders/:order_id/payments", middlewares.PaymentRateLimiter(), paymentCtrl.CreatePayment)
		payments.DELETE("/payments/:payment_id", manager, paymentCtrl.DeletePayment)
	}

	// DASHBOARD (manager)
	auth.GET("/dashboard/stats", manager, dashboardCtrl.GetStats)
	auth.GET("/dashboard/sales", manager, dashboardCtrl.GetSalesSeries)

	// WebSocket endpoint
	r.GET("/ws", middlewares.WebSocketAuthMiddleware(), controllers.KDSHandler)

	return r
}
