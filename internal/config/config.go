// Package config loads service configuration from an optional YAML file
// with GROUNDTRACK_* environment overrides. Bad override values warn and
// fall back rather than abort.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the full service configuration.
type Config struct {
	HTTPAddr       string   `yaml:"http_addr"`
	CatalogPath    string   `yaml:"catalog_path"`
	CacheCapacity  int      `yaml:"cache_capacity"`
	PoolSize       int      `yaml:"pool_size"`
	LogLevel       string   `yaml:"log_level"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		HTTPAddr:       ":8080",
		CatalogPath:    "groundtrack.db",
		CacheCapacity:  256,
		PoolSize:       0, // pool picks min(parallelism, 6)
		LogLevel:       "info",
		AllowedOrigins: []string{"*"},
	}
}

// Load reads path (when non-empty) over the defaults, then applies
// environment overrides.
func Load(path string, logger *slog.Logger) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv(logger)

	logger.Info("config loaded",
		"http_addr", cfg.HTTPAddr,
		"catalog_path", cfg.CatalogPath,
		"cache_capacity", cfg.CacheCapacity,
		"pool_size", cfg.PoolSize,
	)
	return cfg, nil
}

func (c *Config) applyEnv(logger *slog.Logger) {
	if v := os.Getenv("GROUNDTRACK_HTTP_ADDR"); v != "" {
		c.HTTPAddr = v
	}
	if v := os.Getenv("GROUNDTRACK_CATALOG_PATH"); v != "" {
		c.CatalogPath = v
	}
	if v := os.Getenv("GROUNDTRACK_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("GROUNDTRACK_CACHE_CAPACITY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid GROUNDTRACK_CACHE_CAPACITY, keeping current", "value", v, "current", c.CacheCapacity)
		} else {
			c.CacheCapacity = n
		}
	}
	if v := os.Getenv("GROUNDTRACK_POOL_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid GROUNDTRACK_POOL_SIZE, keeping current", "value", v, "current", c.PoolSize)
		} else {
			c.PoolSize = n
		}
	}
}

// Level maps the configured log level onto slog.
func (c Config) Level() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
