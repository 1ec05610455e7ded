// Package store selects the records.Backend named by the configuration.
package store

import (
	"context"
	"fmt"

	"github.com/warp/cashbook/config"
	"github.com/warp/cashbook/records"
	"github.com/warp/cashbook/store/redis"
	"github.com/warp/cashbook/store/sqlite"
)

// Backend is a records.Backend that holds a connection.
type Backend interface {
	records.Backend
	Close() error
}

type memoryBackend struct {
	*records.MemoryBackend
}

func (memoryBackend) Close() error { return nil }

// Open connects to the backend cfg.StorageDriver names.
func Open(ctx context.Context, cfg *config.Config) (Backend, error) {
	switch cfg.StorageDriver {
	case config.DriverSQLite:
		s, err := sqlite.New(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.DriverRedis:
		s, err := redis.Dial(ctx, cfg.RedisAddr, cfg.RedisPrefix)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.DriverMemory:
		return memoryBackend{records.NewMemoryBackend()}, nil
	default:
		return nil, fmt.Errorf("store: unknown driver %q", cfg.StorageDriver)
	}
}
