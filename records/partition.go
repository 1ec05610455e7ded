package records

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/sirupsen/logrus"
)

// partition caches one JSON array per store and writes it through to the
// backend. One mutex covers every store of the entity, so a read-modify-write
// of a partition is never interleaved with another.
type partition[T any] struct {
	mu      sync.RWMutex
	backend Backend
	entity  string
	key     func(storeID string) string
	cache   map[string][]T

	// encode renders a partition as its CSV snapshot. Nil disables snapshots.
	encode func(items []T) ([]byte, error)
	sink   SnapshotSink
	log    logrus.FieldLogger
}

func newPartition[T any](backend Backend, entity string, key func(string) string, sink SnapshotSink, log logrus.FieldLogger) *partition[T] {
	if sink == nil {
		sink = NopSink{}
	}
	return &partition[T]{
		backend: backend,
		entity:  entity,
		key:     key,
		cache:   make(map[string][]T),
		sink:    sink,
		log:     log,
	}
}

// list returns a copy of the store's partition; an empty slice when unseen.
func (p *partition[T]) list(ctx context.Context, storeID string) ([]T, error) {
	p.mu.RLock()
	items, ok := p.cache[storeID]
	p.mu.RUnlock()
	if ok {
		return clone(items), nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	items, err := p.loadLocked(ctx, storeID)
	if err != nil {
		return nil, err
	}
	return clone(items), nil
}

// update applies fn to a copy of the partition and persists the result.
// The cache is only swapped after the backend accepted the write.
func (p *partition[T]) update(ctx context.Context, storeID string, fn func([]T) ([]T, error)) ([]T, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	current, err := p.loadLocked(ctx, storeID)
	if err != nil {
		return nil, err
	}
	next, err := fn(clone(current))
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := p.writeLocked(ctx, storeID, next); err != nil {
		return nil, err
	}
	p.snapshotLocked(ctx, storeID, next)
	return clone(next), nil
}

// updatePair applies fn to two partitions of one store and commits both in a
// single backend batch, so either both change or neither does. Locks are
// taken in argument order.
func updatePair[A, B any](ctx context.Context, storeID string, pa *partition[A], pb *partition[B], fn func([]A, []B) ([]A, []B, error)) error {
	pa.mu.Lock()
	defer pa.mu.Unlock()
	pb.mu.Lock()
	defer pb.mu.Unlock()

	curA, err := pa.loadLocked(ctx, storeID)
	if err != nil {
		return err
	}
	curB, err := pb.loadLocked(ctx, storeID)
	if err != nil {
		return err
	}
	nextA, nextB, err := fn(clone(curA), clone(curB))
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	keyA, keyB := pa.key(storeID), pb.key(storeID)
	rawA, err := json.Marshal(nextA)
	if err != nil {
		return &StorageError{Op: "encode", Key: keyA, Err: err}
	}
	rawB, err := json.Marshal(nextB)
	if err != nil {
		return &StorageError{Op: "encode", Key: keyB, Err: err}
	}
	if err := pa.backend.PutBatch(ctx, map[string][]byte{keyA: rawA, keyB: rawB}); err != nil {
		return &StorageError{Op: "put", Key: keyA + "," + keyB, Err: err}
	}
	pa.cache[storeID] = nextA
	pb.cache[storeID] = nextB

	pa.snapshotLocked(ctx, storeID, nextA)
	pb.snapshotLocked(ctx, storeID, nextB)
	return nil
}

// snapshot re-emits the current CSV snapshot of a store's partition.
func (p *partition[T]) snapshot(ctx context.Context, storeID string, sink SnapshotSink) error {
	if p.encode == nil {
		return nil
	}
	items, err := p.list(ctx, storeID)
	if err != nil {
		return err
	}
	data, err := p.encode(items)
	if err != nil {
		return err
	}
	return sink.WriteSnapshot(ctx, storeID, p.entity, data)
}

// forget drops a store from the cache so the next read goes to the backend.
func (p *partition[T]) forget(storeID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.cache, storeID)
}

func (p *partition[T]) loadLocked(ctx context.Context, storeID string) ([]T, error) {
	if items, ok := p.cache[storeID]; ok {
		return items, nil
	}
	key := p.key(storeID)
	raw, ok, err := p.backend.Get(ctx, key)
	if err != nil {
		return nil, &StorageError{Op: "get", Key: key, Err: err}
	}
	items := []T{}
	if ok && len(raw) > 0 {
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, &StorageError{Op: "decode", Key: key, Err: err}
		}
	}
	p.cache[storeID] = items
	return items, nil
}

func (p *partition[T]) writeLocked(ctx context.Context, storeID string, items []T) error {
	key := p.key(storeID)
	raw, err := json.Marshal(items)
	if err != nil {
		return &StorageError{Op: "encode", Key: key, Err: err}
	}
	if err := p.backend.Put(ctx, key, raw); err != nil {
		return &StorageError{Op: "put", Key: key, Err: err}
	}
	p.cache[storeID] = items
	return nil
}

func (p *partition[T]) snapshotLocked(ctx context.Context, storeID string, items []T) {
	if p.encode == nil {
		return
	}
	data, err := p.encode(items)
	if err == nil {
		err = p.sink.WriteSnapshot(ctx, storeID, p.entity, data)
	}
	if err != nil && p.log != nil {
		p.log.WithFields(logrus.Fields{
			"store":  storeID,
			"entity": p.entity,
		}).WithError(err).Warn("snapshot failed")
	}
}

func clone[T any](items []T) []T {
	out := make([]T, len(items))
	copy(out, items)
	return out
}
