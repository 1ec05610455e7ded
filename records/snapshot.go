package records

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/warp/cashbook/csvcodec"
)

// SnapshotSink receives the CSV rendering of a partition after each write.
type SnapshotSink interface {
	WriteSnapshot(ctx context.Context, storeID, entity string, data []byte) error
}

// NopSink discards snapshots.
type NopSink struct{}

func (NopSink) WriteSnapshot(context.Context, string, string, []byte) error { return nil }

// DirSink writes {Dir}/{storeId}/{entity}.csv. Store-independent entities
// (the store registry) land directly in Dir. Files are replaced atomically.
type DirSink struct {
	Dir string
}

func (s DirSink) WriteSnapshot(_ context.Context, storeID, entity string, data []byte) error {
	path := filepath.Join(s.Dir, filepath.FromSlash(csvcodec.SnapshotPath(storeID, entity)))
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+entity+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("publish snapshot: %w", err)
	}
	return nil
}

// MemorySink keeps the latest snapshot per path (for tests).
type MemorySink struct {
	mu    sync.Mutex
	files map[string][]byte
}

func NewMemorySink() *MemorySink {
	return &MemorySink{files: make(map[string][]byte)}
}

func (s *MemorySink) WriteSnapshot(_ context.Context, storeID, entity string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[csvcodec.SnapshotPath(storeID, entity)] = append([]byte(nil), data...)
	return nil
}

// File returns the snapshot stored under path, e.g. "store-1/employees.csv".
func (s *MemorySink) File(path string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[path]
	return data, ok
}

// Paths lists every snapshot path in sorted order.
func (s *MemorySink) Paths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	paths := make([]string, 0, len(s.files))
	for p := range s.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
