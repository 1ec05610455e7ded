package records

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/warp/cashbook/csvcodec"
	"github.com/warp/cashbook/till"
)

// Backend keys that are not per-store partitions.
const (
	KeyStores                  = "stores"
	KeyActiveStore             = "active_store_id"
	KeyDefaultStoreInitialized = "default_store_initialized"
)

// The store created on first start.
const (
	DefaultStoreID      = "default-store"
	DefaultStoreName    = "Main Store"
	DefaultStoreAddress = "Default Address"
)

func partitionKey(prefix string) func(string) string {
	return func(storeID string) string { return prefix + "/" + storeID }
}

// =============================================================================
// STORE REPOSITORY
// =============================================================================

// StoreRepository manages the global store registry.
type StoreRepository struct {
	part *partition[till.Store]
	now  func() time.Time

	// deleted is told about every removed store id.
	deleted func(ctx context.Context, id string) error
}

func newStoreRepository(backend Backend, sink SnapshotSink, log logrus.FieldLogger, now func() time.Time) *StoreRepository {
	p := newPartition[till.Store](backend, csvcodec.EntityStore, func(string) string { return KeyStores }, sink, log)
	p.encode = func(items []till.Store) ([]byte, error) {
		return csvcodec.EncodeBytes(csvcodec.StoreSchema, items)
	}
	return &StoreRepository{part: p, now: now}
}

// List returns every store in creation order.
func (r *StoreRepository) List(ctx context.Context) ([]till.Store, error) {
	return r.part.list(ctx, "")
}

// Get returns one store.
func (r *StoreRepository) Get(ctx context.Context, id string) (till.Store, error) {
	stores, err := r.List(ctx)
	if err != nil {
		return till.Store{}, err
	}
	for _, s := range stores {
		if s.ID == id {
			return s, nil
		}
	}
	return till.Store{}, &NotFoundError{Kind: "store", ID: id}
}

// Upsert inserts a store whose id is unseen and replaces it otherwise.
// A missing id is generated and a missing createdAt is stamped.
func (r *StoreRepository) Upsert(ctx context.Context, s till.Store) (till.Store, error) {
	if err := till.ValidateEntity(s); err != nil {
		return till.Store{}, err
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	_, err := r.part.update(ctx, "", func(stores []till.Store) ([]till.Store, error) {
		for i := range stores {
			if stores[i].ID == s.ID {
				if s.CreatedAt == "" {
					s.CreatedAt = stores[i].CreatedAt
				}
				stores[i] = s
				return stores, nil
			}
		}
		if s.CreatedAt == "" {
			s.CreatedAt = r.now().UTC().Format(time.RFC3339)
		}
		return append(stores, s), nil
	})
	if err != nil {
		return till.Store{}, err
	}
	return s, nil
}

// Delete removes a store. Its partitions are left in place.
func (r *StoreRepository) Delete(ctx context.Context, id string) error {
	_, err := r.part.update(ctx, "", func(stores []till.Store) ([]till.Store, error) {
		for i := range stores {
			if stores[i].ID == id {
				return append(stores[:i], stores[i+1:]...), nil
			}
		}
		return nil, &NotFoundError{Kind: "store", ID: id}
	})
	if err != nil {
		return err
	}
	if r.deleted != nil {
		return r.deleted(ctx, id)
	}
	return nil
}

// =============================================================================
// STORE CONTEXT - Active store selection
// =============================================================================

// StoreContext holds the active store pointer. Requests that do not name a
// store operate on the active one.
type StoreContext struct {
	mu      sync.Mutex
	backend Backend
	stores  *StoreRepository
	log     logrus.FieldLogger
}

func newStoreContext(backend Backend, stores *StoreRepository, log logrus.FieldLogger) *StoreContext {
	c := &StoreContext{backend: backend, stores: stores, log: log}
	stores.deleted = c.storeDeleted
	return c
}

// SetActiveStore selects a store. The store must exist.
func (c *StoreContext) SetActiveStore(ctx context.Context, id string) error {
	if _, err := c.stores.Get(ctx, id); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.backend.Put(ctx, KeyActiveStore, []byte(id)); err != nil {
		return &StorageError{Op: "put", Key: KeyActiveStore, Err: err}
	}
	return nil
}

// ActiveStoreID returns the selected store id or ErrNoActiveStore.
func (c *StoreContext) ActiveStoreID(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeLocked(ctx)
}

// ActiveStore returns the selected store.
func (c *StoreContext) ActiveStore(ctx context.Context) (till.Store, error) {
	id, err := c.ActiveStoreID(ctx)
	if err != nil {
		return till.Store{}, err
	}
	return c.stores.Get(ctx, id)
}

// InitializeDefaultStore creates the default store and selects it when the
// registry is empty. It runs at most once per backend; created reports
// whether this call created the store.
func (c *StoreContext) InitializeDefaultStore(ctx context.Context) (created bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, done, err := c.backend.Get(ctx, KeyDefaultStoreInitialized)
	if err != nil {
		return false, &StorageError{Op: "get", Key: KeyDefaultStoreInitialized, Err: err}
	}
	if done {
		return false, nil
	}

	stores, err := c.stores.List(ctx)
	if err != nil {
		return false, err
	}
	entries := map[string][]byte{KeyDefaultStoreInitialized: []byte("true")}
	if len(stores) == 0 {
		if _, err := c.stores.Upsert(ctx, till.Store{
			ID:       DefaultStoreID,
			Name:     DefaultStoreName,
			Address:  DefaultStoreAddress,
			IsActive: true,
		}); err != nil {
			return false, err
		}
		entries[KeyActiveStore] = []byte(DefaultStoreID)
		created = true
	}
	if err := c.backend.PutBatch(ctx, entries); err != nil {
		return false, &StorageError{Op: "put", Key: KeyDefaultStoreInitialized, Err: err}
	}
	if created && c.log != nil {
		c.log.WithField("store", DefaultStoreID).Info("created default store")
	}
	return created, nil
}

func (c *StoreContext) activeLocked(ctx context.Context) (string, error) {
	raw, ok, err := c.backend.Get(ctx, KeyActiveStore)
	if err != nil {
		return "", &StorageError{Op: "get", Key: KeyActiveStore, Err: err}
	}
	if !ok || len(raw) == 0 {
		return "", ErrNoActiveStore
	}
	return string(raw), nil
}

func (c *StoreContext) storeDeleted(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	active, err := c.activeLocked(ctx)
	if errors.Is(err, ErrNoActiveStore) {
		return nil
	}
	if err != nil {
		return err
	}
	if active != id {
		return nil
	}
	if err := c.backend.Delete(ctx, KeyActiveStore); err != nil {
		return &StorageError{Op: "delete", Key: KeyActiveStore, Err: err}
	}
	return nil
}
