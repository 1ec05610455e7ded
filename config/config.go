// Package config reads runtime settings from the environment and builds the
// engine and logger they describe.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/warp/cashbook/till"
)

// Prefix is prepended to every environment variable name.
const Prefix = "CASHBOOK"

// Storage drivers.
const (
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
	DriverMemory = "memory"
)

// Config holds runtime configuration.
type Config struct {
	Addr string `envconfig:"ADDR" default:":8080"`

	StorageDriver string `envconfig:"STORAGE_DRIVER" default:"sqlite"`
	SQLitePath    string `envconfig:"SQLITE_PATH" default:"cashbook.db"`
	RedisAddr     string `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	RedisPrefix   string `envconfig:"REDIS_PREFIX" default:"cashbook:"`

	SnapshotDir      string        `envconfig:"SNAPSHOT_DIR"`
	SnapshotInterval time.Duration `envconfig:"SNAPSHOT_INTERVAL" default:"1h"`

	CashOffset       string `envconfig:"CASH_OFFSET" default:"50"`
	DifferencePolicy string `envconfig:"DIFFERENCE_POLICY" default:"passthrough"`
	Validation       string `envconfig:"VALIDATION" default:"permissive"`
	MaxDifference    string `envconfig:"MAX_DIFFERENCE" default:"0"`

	CORSOrigins []string `envconfig:"CORS_ORIGINS" default:"http://localhost:5173,http://localhost:8080"`
	RateLimit   int      `envconfig:"RATE_LIMIT" default:"120"`
	Production  bool     `envconfig:"PRODUCTION" default:"false"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`
}

// Load reads .env files, when present, then the environment.
// Variables already set in the environment win over .env entries.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config: load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings that envconfig cannot type-check.
func (c *Config) Validate() error {
	switch c.StorageDriver {
	case DriverSQLite, DriverRedis, DriverMemory:
	default:
		return fmt.Errorf("config: unknown storage driver %q", c.StorageDriver)
	}
	if _, err := c.Engine(); err != nil {
		return err
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.SnapshotInterval <= 0 {
		return fmt.Errorf("config: snapshot interval must be positive, got %s", c.SnapshotInterval)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("config: rate limit must not be negative")
	}
	return nil
}

// Engine builds the reconciliation engine the settings describe.
func (c *Config) Engine() (*till.Engine, error) {
	offset, err := decimal.NewFromString(c.CashOffset)
	if err != nil {
		return nil, fmt.Errorf("config: cash offset %q: %w", c.CashOffset, err)
	}
	maxDiff, err := decimal.NewFromString(c.MaxDifference)
	if err != nil {
		return nil, fmt.Errorf("config: max difference %q: %w", c.MaxDifference, err)
	}
	policy, err := till.PolicyByName(c.DifferencePolicy)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	validator, err := till.ValidatorByName(c.Validation, maxDiff)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return till.NewEngine(
		till.WithOffset(offset),
		till.WithPolicy(policy),
		till.WithValidator(validator),
	), nil
}

// Logger builds the process logger.
func (c *Config) Logger() *logrus.Logger {
	log := logrus.New()
	if level, err := logrus.ParseLevel(c.LogLevel); err == nil {
		log.SetLevel(level)
	}
	if strings.EqualFold(c.LogFormat, "text") {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
	return log
}
