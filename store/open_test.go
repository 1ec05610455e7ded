package store_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/cashbook/config"
	"github.com/warp/cashbook/store"
	"github.com/warp/cashbook/store/redis"
	"github.com/warp/cashbook/store/sqlite"
)

func TestOpen_SelectsDriver(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	cases := []struct {
		name string
		cfg  config.Config
		want interface{}
	}{
		{"sqlite", config.Config{StorageDriver: config.DriverSQLite, SQLitePath: filepath.Join(t.TempDir(), "cash.db")}, &sqlite.Store{}},
		{"redis", config.Config{StorageDriver: config.DriverRedis, RedisAddr: mr.Addr()}, &redis.Store{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			// GIVEN a configured driver
			// WHEN the backend is opened
			b, err := store.Open(ctx, &tc.cfg)
			require.NoError(t, err)
			defer b.Close()

			// THEN the matching implementation round-trips a key
			assert.IsType(t, tc.want, b)
			require.NoError(t, b.Put(ctx, "stores", []byte("[]")))
			v, ok, err := b.Get(ctx, "stores")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "[]", string(v))
		})
	}
}

func TestOpen_Memory(t *testing.T) {
	b, err := store.Open(context.Background(), &config.Config{StorageDriver: config.DriverMemory})
	require.NoError(t, err)
	assert.NoError(t, b.Close())
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := store.Open(context.Background(), &config.Config{StorageDriver: "etcd"})
	assert.ErrorContains(t, err, "etcd")
}
