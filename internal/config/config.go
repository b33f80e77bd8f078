package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr     string
	GRPCAddr     string
	StoreDriver  string // sqlite, mysql, postgres or memory
	DatabaseDSN  string
	RedisAddr    string // empty selects the in-process cache
	CORSOrigins  []string
	LogLevel     string
	LogDev       bool
	SeedData     bool
	LockTimeout  time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
	LowStock     int
	StatsTTL     time.Duration
}

// Load reads .env (if present) and the environment. Missing keys fall back to defaults
// suited to a local sqlite run.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		HTTPAddr:    getEnv("HTTP_ADDR", ":8080"),
		GRPCAddr:    getEnv("GRPC_ADDR", ":50051"),
		StoreDriver: getEnv("STORE_DRIVER", "sqlite"),
		DatabaseDSN: getEnv("DATABASE_DSN", "inventory.db"),
		RedisAddr:   getEnv("REDIS_ADDR", ""),
		CORSOrigins: strings.Split(getEnv("CORS_ORIGINS", "http://localhost:5173"), ","),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
	}

	var err error
	if cfg.LogDev, err = getBool("LOG_DEVELOPMENT", false); err != nil {
		return nil, err
	}
	if cfg.SeedData, err = getBool("SEED_DATA", false); err != nil {
		return nil, err
	}
	if cfg.LockTimeout, err = getDuration("LOCK_TIMEOUT", 2*time.Second); err != nil {
		return nil, err
	}
	if cfg.MaxRetries, err = getInt("SALE_MAX_RETRIES", 3); err != nil {
		return nil, err
	}
	if cfg.RetryBackoff, err = getDuration("SALE_RETRY_BACKOFF", 25*time.Millisecond); err != nil {
		return nil, err
	}
	if cfg.LowStock, err = getInt("LOW_STOCK_THRESHOLD", 10); err != nil {
		return nil, err
	}
	if cfg.StatsTTL, err = getDuration("STATS_CACHE_TTL", 5*time.Second); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.StoreDriver {
	case "sqlite", "mysql", "postgres", "memory":
	default:
		return fmt.Errorf("STORE_DRIVER must be one of sqlite, mysql, postgres, memory; got %q", c.StoreDriver)
	}
	if c.LockTimeout <= 0 {
		return fmt.Errorf("LOCK_TIMEOUT must be positive")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("SALE_MAX_RETRIES must not be negative")
	}
	if c.LowStock <= 0 {
		return fmt.Errorf("LOW_STOCK_THRESHOLD must be positive")
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
