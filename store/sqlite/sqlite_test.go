package sqlite_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/cashbook/records"
	"github.com/warp/cashbook/store/sqlite"
	"github.com/warp/cashbook/till"
)

var _ records.Backend = (*sqlite.Store)(nil)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_PutGetDelete(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	_, ok, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Put(ctx, "sales/a", []byte(`[1]`)))
	require.NoError(t, s.Put(ctx, "sales/a", []byte(`[1,2]`)))

	got, ok, err := s.Get(ctx, "sales/a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[1,2]`, string(got))

	require.NoError(t, s.Delete(ctx, "sales/a"))
	require.NoError(t, s.Delete(ctx, "sales/a"))
	_, ok, err = s.Get(ctx, "sales/a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_PutBatch(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	require.NoError(t, s.PutBatch(ctx, map[string][]byte{
		"active_store_id":           []byte("default-store"),
		"default_store_initialized": []byte("true"),
	}))

	keys, err := s.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"active_store_id", "default_store_initialized"}, keys)
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cashbook.db")

	// GIVEN: A book written to a database file
	s, err := sqlite.New(path)
	require.NoError(t, err)
	book, err := records.Open(ctx, s)
	require.NoError(t, err)
	_, err = book.Employees.Upsert(ctx, records.DefaultStoreID, till.Employee{Name: "Asha"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// WHEN: The file is opened again
	s, err = sqlite.New(path)
	require.NoError(t, err)
	defer s.Close()
	book, err = records.Open(ctx, s)
	require.NoError(t, err)

	// THEN: The data and the active store survived
	staff, err := book.Employees.List(ctx, records.DefaultStoreID)
	require.NoError(t, err)
	require.Len(t, staff, 1)
	assert.Equal(t, "Asha", staff[0].Name)

	active, err := book.Context.ActiveStoreID(ctx)
	require.NoError(t, err)
	assert.Equal(t, records.DefaultStoreID, active)
}

func TestStore_ExportRuns(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	start := time.Date(2024, 3, 1, 2, 0, 0, 0, time.UTC)

	require.NoError(t, s.SaveExportRun(ctx, sqlite.ExportRun{StartedAt: start, FinishedAt: start.Add(time.Second), Files: 5}))
	require.NoError(t, s.SaveExportRun(ctx, sqlite.ExportRun{StartedAt: start.Add(time.Hour), FinishedAt: start.Add(time.Hour), Error: errors.New("disk full").Error()}))

	runs, err := s.ExportRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "disk full", runs[0].Error)
	assert.Equal(t, 5, runs[1].Files)
	assert.True(t, runs[1].StartedAt.Equal(start))

	require.NoError(t, s.Reset(ctx))
	runs, err = s.ExportRuns(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, runs)
}
