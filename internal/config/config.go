// Package config loads process-level configuration for cmd/bulkexport: the
// settings that apply to the process itself (where to log, whether to run
// the status server, where history is recorded) rather than to a single
// export() request, which is validated separately by export.Validate.
// Grounded on the teacher's own internal/config/config.go — same
// viper.New/SetDefault/BindEnv/.env shape, trimmed to this tool's surface.
package config

import (
	"fmt"
	"log"

	"github.com/spf13/viper"
)

// Config is the process-level configuration for the bulkexport CLI.
type Config struct {
	Env string `mapstructure:"ENV"`

	LogLevel string `mapstructure:"LOG_LEVEL"`

	// Status server. Validate checks these; cmd/bulkexport starts its status
	// server from the --watch-addr flag, not from these fields.
	StatusServerEnabled bool   `mapstructure:"STATUS_SERVER_ENABLED"`
	StatusServerAddr    string `mapstructure:"STATUS_SERVER_ADDR"`

	// Export history (optional Postgres audit trail).
	HistoryEnabled bool   `mapstructure:"HISTORY_ENABLED"`
	DatabaseURL    string `mapstructure:"DATABASE_URL"`
	DBMaxConns     int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns     int32  `mapstructure:"DB_MIN_CONNS"`

	// Distributed token cache (optional).
	RedisURL string `mapstructure:"REDIS_URL"`
}

// Load reads process configuration from the environment and an optional
// .env file in the working directory, following the teacher's
// SetDefault/BindEnv/ReadInConfig sequence.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	v.SetDefault("ENV", "production")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("STATUS_SERVER_ENABLED", false)
	v.SetDefault("STATUS_SERVER_ADDR", ":8421")
	v.SetDefault("HISTORY_ENABLED", false)
	v.SetDefault("DB_MAX_CONNS", 5)
	v.SetDefault("DB_MIN_CONNS", 1)

	v.BindEnv("ENV")
	v.BindEnv("LOG_LEVEL")
	v.BindEnv("STATUS_SERVER_ENABLED")
	v.BindEnv("STATUS_SERVER_ADDR")
	v.BindEnv("HISTORY_ENABLED")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("REDIS_URL")

	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.HistoryEnabled && cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required when HISTORY_ENABLED is true")
	}

	if cfg.IsDev() {
		log.Println("WARNING: ENV=development — verbose logging and relaxed defaults are in effect")
	}

	return cfg, nil
}

// IsDev reports whether the process is running in development mode.
func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Validate checks that the configuration is internally consistent. Unlike
// export.Validate, which aggregates every violation of a single request,
// this follows the teacher's fail-fast style since process configuration
// errors should stop startup immediately rather than accumulate.
func (c *Config) Validate() error {
	if c.HistoryEnabled && c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required when HISTORY_ENABLED is true")
	}
	if c.StatusServerEnabled && c.StatusServerAddr == "" {
		return fmt.Errorf("STATUS_SERVER_ADDR is required when STATUS_SERVER_ENABLED is true")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error, got %q", c.LogLevel)
	}
	return nil
}
