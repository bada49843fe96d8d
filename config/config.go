package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/yeremiapane/restaurant-oms/utils"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Config struct {
	Port                 string
	GinMode              string
	DBDriver             string
	DBDSN                string
	JWTSecret            string
	JWTTTL               time.Duration
	CORSOrigin           string
	LogLevel             string
	MaxItemQuantity      int
	StockMonitorInterval time.Duration
	RateLimitPerSecond   int
}

const defaultJWTSecret = "restaurant-oms-dev-secret"

// Load reads configuration from the environment. Call godotenv.Load first
// to pick up a .env file.
func Load() *Config {
	cfg := &Config{
		Port:                 getEnv("PORT", "8080"),
		GinMode:              getEnv("GIN_MODE", "debug"),
		DBDriver:             strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
		DBDSN:                getEnv("DB_DSN", "restaurant.db"),
		JWTSecret:            getEnv("JWT_SECRET", defaultJWTSecret),
		JWTTTL:               time.Duration(getEnvInt("JWT_TTL_HOURS", 24)) * time.Hour,
		CORSOrigin:           getEnv("CORS_ORIGIN", "*"),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		MaxItemQuantity:      getEnvInt("MAX_ITEM_QUANTITY", 99),
		StockMonitorInterval: getEnvDuration("STOCK_MONITOR_INTERVAL", 30*time.Second),
		RateLimitPerSecond:   getEnvInt("RATE_LIMIT_PER_SECOND", 50),
	}

	if cfg.JWTSecret == defaultJWTSecret {
		utils.Info().Warn("JWT_SECRET not set, using the development secret")
	}
	return cfg
}

// InitDB opens the configured database. sqlite is the default so the
// service runs without a server; mysql is used in production.
func InitDB(cfg *Config) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case "mysql":
		dialector = mysql.Open(cfg.DBDSN)
	case "sqlite", "":
		dialector = sqlite.Open(cfg.DBDSN)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, err
	}
	utils.Info().Printf("Connected to %s database", cfg.DBDriver)
	return db, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		utils.Error().Printf("Invalid %s=%q, using %d", key, v, def)
		return def
	}
	return n
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		utils.Error().Printf("Invalid %s=%q, using %s", key, v, def)
		return def
	}
	return d
}
