package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/cashbook/config"
	"github.com/warp/cashbook/till"
)

func missingEnv(t *testing.T) string {
	return filepath.Join(t.TempDir(), "absent.env")
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load(missingEnv(t))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, config.DriverSQLite, cfg.StorageDriver)
	assert.Equal(t, []string{"http://localhost:5173", "http://localhost:8080"}, cfg.CORSOrigins)

	engine, err := cfg.Engine()
	require.NoError(t, err)
	assert.True(t, engine.Offset.Equal(decimal.NewFromInt(50)))
	assert.IsType(t, till.Passthrough{}, engine.Policy)
	assert.IsType(t, till.Permissive{}, engine.Validator)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("CASHBOOK_STORAGE_DRIVER", "memory")
	t.Setenv("CASHBOOK_CASH_OFFSET", "0")
	t.Setenv("CASHBOOK_VALIDATION", "strict")
	t.Setenv("CASHBOOK_MAX_DIFFERENCE", "500")
	t.Setenv("CASHBOOK_DIFFERENCE_POLICY", "mask")
	t.Setenv("CASHBOOK_LOG_FORMAT", "text")
	t.Setenv("CASHBOOK_LOG_LEVEL", "debug")

	cfg, err := config.Load(missingEnv(t))
	require.NoError(t, err)

	engine, err := cfg.Engine()
	require.NoError(t, err)
	assert.True(t, engine.Offset.IsZero())
	assert.IsType(t, till.MaskLargeNegative{}, engine.Policy)
	require.IsType(t, till.Strict{}, engine.Validator)
	assert.True(t, engine.Validator.(till.Strict).MaxDifference.Equal(decimal.NewFromInt(500)))

	log := cfg.Logger()
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, log.Formatter)
}

func TestLoad_DotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("CASHBOOK_ADDR=:9090\nCASHBOOK_SQLITE_PATH=/tmp/x.db\n"), 0o600))
	t.Setenv("CASHBOOK_SQLITE_PATH", "/data/cashbook.db")
	t.Cleanup(func() { os.Unsetenv("CASHBOOK_ADDR") })

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, "/data/cashbook.db", cfg.SQLitePath, "environment wins over .env")
}

func TestLoad_Rejects(t *testing.T) {
	cases := map[string][2]string{
		"driver":            {"CASHBOOK_STORAGE_DRIVER", "mongo"},
		"offset":            {"CASHBOOK_CASH_OFFSET", "fifty"},
		"policy":            {"CASHBOOK_DIFFERENCE_POLICY", "hide"},
		"validation":        {"CASHBOOK_VALIDATION", "paranoid"},
		"log level":         {"CASHBOOK_LOG_LEVEL", "loud"},
		"interval":          {"CASHBOOK_SNAPSHOT_INTERVAL", "often"},
		"zero interval":     {"CASHBOOK_SNAPSHOT_INTERVAL", "0s"},
		"negative interval": {"CASHBOOK_SNAPSHOT_INTERVAL", "-5m"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv(kv[0], kv[1])
			_, err := config.Load(missingEnv(t))
			assert.Error(t, err)
		})
	}
}
