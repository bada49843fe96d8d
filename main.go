package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/yeremiapane/restaurant-oms/config"
	"github.com/yeremiapane/restaurant-oms/database"
	"github.com/yeremiapane/restaurant-oms/router"
	"github.com/yeremiapane/restaurant-oms/services"
	"github.com/yeremiapane/restaurant-oms/utils"
)

func main() {
	if err := godotenv.Load(); err != nil {
		utils.Info().Println("Warning: .env file not found")
	}

	cfg := config.Load()
	utils.InitLoggerWithLevel(cfg.LogLevel)
	utils.ConfigureJWT(cfg.JWTSecret, cfg.JWTTTL)

	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := config.InitDB(cfg)
	if err != nil {
		utils.Error().Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		utils.Error().Fatalf("Failed to migrate: %v", err)
	}

	drafts := services.NewDraftRegistry()

	monitor := services.NewStockMonitor(db, drafts, cfg.StockMonitorInterval)
	monitor.Start()
	defer monitor.Stop()

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router.SetupRouter(db, cfg, drafts),
	}

	go func() {
		utils.Info().Printf("Listening on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.Error().Fatal(err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	utils.Info().Println("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		utils.Error().Printf("Forced shutdown: %v", err)
	}
}
