package records

import (
	"context"
	"sort"

	"github.com/sirupsen/logrus"
	"github.com/warp/cashbook/csvcodec"
	"github.com/warp/cashbook/till"
)

// SalesRepository stores one SalesRecord per store and day. Saving a day
// that already exists replaces it.
type SalesRepository struct {
	part   *partition[till.SalesRecord]
	engine *till.Engine
}

func newSalesRepository(backend Backend, sink SnapshotSink, log logrus.FieldLogger, engine *till.Engine) *SalesRepository {
	p := newPartition[till.SalesRecord](backend, csvcodec.EntitySales, partitionKey("sales"), sink, log)
	schema := csvcodec.SalesSchema(engine)
	p.encode = func(items []till.SalesRecord) ([]byte, error) {
		return csvcodec.EncodeBytes(schema, items)
	}
	return &SalesRepository{part: p, engine: engine}
}

// List returns the store's days in insertion order, freshly derived.
func (r *SalesRepository) List(ctx context.Context, storeID string) ([]till.SalesRecord, error) {
	records, err := r.part.list(ctx, storeID)
	if err != nil {
		return nil, err
	}
	for i := range records {
		records[i] = r.engine.Derive(records[i])
	}
	return records, nil
}

// Get returns the record of one day.
func (r *SalesRepository) Get(ctx context.Context, storeID, date string) (till.SalesRecord, error) {
	records, err := r.List(ctx, storeID)
	if err != nil {
		return till.SalesRecord{}, err
	}
	for _, rec := range records {
		if rec.Date == date {
			return rec, nil
		}
	}
	return till.SalesRecord{}, &NotFoundError{Kind: "sales record", ID: date}
}

// Upsert validates, derives and saves the record of a day.
func (r *SalesRepository) Upsert(ctx context.Context, storeID string, rec till.SalesRecord) (till.SalesRecord, error) {
	if err := r.engine.Validate(rec); err != nil {
		return till.SalesRecord{}, err
	}
	rec.StoreID = storeID
	rec = r.engine.Derive(rec)
	_, err := r.part.update(ctx, storeID, func(records []till.SalesRecord) ([]till.SalesRecord, error) {
		return upsertByID(records, rec, salesKey), nil
	})
	if err != nil {
		return till.SalesRecord{}, err
	}
	return rec, nil
}

// Delete removes the record of a day.
func (r *SalesRepository) Delete(ctx context.Context, storeID, date string) error {
	_, err := r.part.update(ctx, storeID, func(records []till.SalesRecord) ([]till.SalesRecord, error) {
		return removeByID(records, date, "sales record", salesKey)
	})
	return err
}

// Range returns the days in [from, to] sorted by date. Empty bounds are open.
func (r *SalesRepository) Range(ctx context.Context, storeID, from, to string) ([]till.SalesRecord, error) {
	records, err := r.List(ctx, storeID)
	if err != nil {
		return nil, err
	}
	out := records[:0]
	for _, rec := range records {
		if (from == "" || rec.Date >= from) && (to == "" || rec.Date <= to) {
			out = append(out, rec)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

// merge adds the days that are not recorded yet.
func (r *SalesRepository) merge(ctx context.Context, storeID string, incoming []till.SalesRecord) (int, error) {
	for i := range incoming {
		incoming[i].StoreID = storeID
	}
	var added int
	_, err := r.part.update(ctx, storeID, func(records []till.SalesRecord) ([]till.SalesRecord, error) {
		out, n := csvcodec.Merge(records, incoming, salesKey)
		added = n
		return out, nil
	})
	return added, err
}

func salesKey(r till.SalesRecord) string { return r.Date }
