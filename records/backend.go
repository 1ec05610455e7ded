/*
Package records persists the cash book, one partition per store and entity.

PURPOSE:
  Repositories keep an in-memory view of every partition they have
  touched and write whole partitions through to a Backend, a minimal
  key/value substrate. Three backends exist: MemoryBackend here,
  store/sqlite and store/redis.

KEYS:
  stores                     global store registry
  active_store_id            id of the selected store
  default_store_initialized  set once the default store was created
  employees/{storeId}        one JSON array per store
  advances/{storeId}
  salaries/{storeId}
  sales/{storeId}

WRITE ORDERING:
  Every mutation computes the new partition, writes it to the Backend and
  only then swaps it into the cache. A failed write returns a
  *StorageError and leaves the cached view as it was.

SNAPSHOTS:
  After a successful write the partition is encoded as CSV and handed to
  a SnapshotSink. Snapshot failures are logged, never returned.

SEE ALSO:
  - partition.go: Cache + write-through
  - book.go: Wiring of the repositories
  - csvcodec: Snapshot and import/export formats
*/
package records

import (
	"context"
	"sync"
)

// Backend is the durable key/value substrate behind the repositories.
type Backend interface {
	// Get returns the value stored under key. ok is false when absent.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)

	// Put stores value under key.
	Put(ctx context.Context, key string, value []byte) error

	// PutBatch stores every entry atomically.
	PutBatch(ctx context.Context, entries map[string][]byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// =============================================================================
// MEMORY BACKEND - In-memory implementation (for testing/dev)
// =============================================================================

type MemoryBackend struct {
	mu   sync.RWMutex
	data map[string][]byte

	// FailWrites makes every write fail with the given error.
	FailWrites error
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: make(map[string][]byte)}
}

func (m *MemoryBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

func (m *MemoryBackend) Put(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites != nil {
		return m.FailWrites
	}
	m.data[key] = append([]byte(nil), value...)
	return nil
}

// PutBatch writes all entries under one lock.
func (m *MemoryBackend) PutBatch(_ context.Context, entries map[string][]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites != nil {
		return m.FailWrites
	}
	for k, v := range entries {
		m.data[k] = append([]byte(nil), v...)
	}
	return nil
}

func (m *MemoryBackend) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites != nil {
		return m.FailWrites
	}
	delete(m.data, key)
	return nil
}

// Keys returns every stored key. Order is unspecified.
func (m *MemoryBackend) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	return keys
}
