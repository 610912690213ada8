// Package config loads the ambient service configuration for cmd/server:
// ports, data-source connection details, and logging level. This is
// distinct from engine.Config, which is the immutable per-run backtest
// parameter bundle a request carries; this package governs the process
// hosting the HTTP surface around it.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config is the full service configuration tree.
type Config struct {
	Server     ServerConfig
	ClickHouse ClickHouseConfig
	Engine     EngineConfig
	Logging    LoggingConfig
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// ClickHouseConfig is the connection bundle for the market-data cluster.
// Addr is a single host:port; cmd/server wraps it in the slice
// clickhouse.Config expects.
type ClickHouseConfig struct {
	Addr     string
	Database string
	Username string
	Password string
}

// EngineConfig bounds the multi-runner's worker pool.
type EngineConfig struct {
	MaxWorkers int
}

// LoggingConfig carries the configured logging level. cmd/server does not
// read it; its logger is always zap's production preset.
type LoggingConfig struct {
	Level string
}

// LoadServiceConfig loads defaults, then path (if non-empty), then
// environment variable overrides, following the retrieved platform's
// LoadConfig(path) shape.
func LoadServiceConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read config file: %w", err)
		}
	}

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.readTimeout", "10s")
	v.SetDefault("server.writeTimeout", "10s")
	v.SetDefault("server.idleTimeout", "120s")

	v.SetDefault("clickhouse.addr", "localhost:9000")
	v.SetDefault("clickhouse.database", "backtest")
	v.SetDefault("clickhouse.username", "default")
	v.SetDefault("clickhouse.password", "")

	v.SetDefault("engine.maxWorkers", 0)

	v.SetDefault("logging.level", "info")
}
