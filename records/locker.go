package records

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Locker serialises imports and exports per (store, entity).
type Locker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewLocker() *Locker {
	return &Locker{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the lock of one partition and returns its release func.
func (l *Locker) Lock(storeID, entity string) (unlock func()) {
	key := storeID + "/" + entity
	l.mu.Lock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// shared runs fn once per key for all concurrent callers.
func shared(ctx context.Context, group *singleflight.Group, key string, fn func() ([]byte, error)) ([]byte, bool, error) {
	resultChan := group.DoChan(key, func() (interface{}, error) {
		return fn()
	})
	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case res := <-resultChan:
		if res.Err != nil {
			return nil, res.Shared, res.Err
		}
		return res.Val.([]byte), res.Shared, nil
	}
}
