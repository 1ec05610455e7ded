package records

import (
	"context"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/warp/cashbook/till"
	"golang.org/x/sync/singleflight"
)

// Book wires the repositories of one backend together.
type Book struct {
	Stores    *StoreRepository
	Context   *StoreContext
	Employees *EmployeeRepository
	Salaries  *SalaryRepository
	Sales     *SalesRepository

	backend Backend
	engine  *till.Engine
	locker  *Locker
	exports singleflight.Group
	log     logrus.FieldLogger
	now     func() time.Time
}

type options struct {
	engine *till.Engine
	sink   SnapshotSink
	log    logrus.FieldLogger
	now    func() time.Time
}

// Option configures Open.
type Option func(*options)

// WithEngine sets the engine used to validate, derive and present sales.
func WithEngine(e *till.Engine) Option {
	return func(o *options) { o.engine = e }
}

// WithSnapshotSink sets where partition snapshots are written after each change.
func WithSnapshotSink(s SnapshotSink) Option {
	return func(o *options) { o.sink = s }
}

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(o *options) { o.log = l }
}

// WithClock overrides time.Now for createdAt stamps and export names.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// Open builds the repositories over backend, moves legacy global partitions
// into the default store and creates the default store on first use.
func Open(ctx context.Context, backend Backend, opts ...Option) (*Book, error) {
	o := options{sink: NopSink{}, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.engine == nil {
		o.engine = till.NewEngine()
	}
	if o.log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		o.log = l
	}

	salaries := newSalaryRepository(backend, o.sink, o.log)
	stores := newStoreRepository(backend, o.sink, o.log, o.now)
	b := &Book{
		Stores:    stores,
		Context:   newStoreContext(backend, stores, o.log),
		Employees: newEmployeeRepository(backend, o.sink, o.log, salaries),
		Salaries:  salaries,
		Sales:     newSalesRepository(backend, o.sink, o.log, o.engine),
		backend:   backend,
		engine:    o.engine,
		locker:    NewLocker(),
		log:       o.log,
		now:       o.now,
	}

	clearActive := stores.deleted
	stores.deleted = func(ctx context.Context, id string) error {
		b.forget(id)
		return clearActive(ctx, id)
	}

	if err := b.migrateLegacy(ctx); err != nil {
		return nil, err
	}
	if _, err := b.Context.InitializeDefaultStore(ctx); err != nil {
		return nil, err
	}
	return b, nil
}

// Engine returns the engine the book derives sales with.
func (b *Book) Engine() *till.Engine { return b.engine }

// Now is the book's clock.
func (b *Book) Now() time.Time { return b.now() }

// forget drops the cached partitions of a removed store. Its data stays in
// the backend and is read again if the store comes back.
func (b *Book) forget(storeID string) {
	b.Employees.part.forget(storeID)
	b.Salaries.advances.forget(storeID)
	b.Salaries.salaries.forget(storeID)
	b.Sales.part.forget(storeID)
}

// ResolveStore returns storeID, or the active store id when storeID is empty.
func (b *Book) ResolveStore(ctx context.Context, storeID string) (string, error) {
	if storeID != "" {
		return storeID, nil
	}
	return b.Context.ActiveStoreID(ctx)
}
