package records

import (
	"context"
	"encoding/json"

	"github.com/sirupsen/logrus"
	"github.com/warp/cashbook/csvcodec"
)

// Keys written by single-store versions, before partitions carried a store id.
const (
	LegacySalesKey     = "sales_records"
	LegacyEmployeesKey = "employees"
)

// migrateLegacy moves the global sales and employee lists into the default
// store's partitions and deletes the legacy keys. Rows whose key already
// exists in the default store are dropped.
func (b *Book) migrateLegacy(ctx context.Context) error {
	if err := migrateKey(ctx, b, LegacySalesKey, b.Sales.part, salesKey); err != nil {
		return err
	}
	return migrateKey(ctx, b, LegacyEmployeesKey, b.Employees.part, csvcodec.EmployeeKey)
}

func migrateKey[T any](ctx context.Context, b *Book, key string, p *partition[T], itemKey func(T) string) error {
	raw, ok, err := b.backend.Get(ctx, key)
	if err != nil {
		return &StorageError{Op: "get", Key: key, Err: err}
	}
	if !ok {
		return nil
	}

	var legacy []T
	if err := json.Unmarshal(raw, &legacy); err != nil {
		b.log.WithField("key", key).WithError(err).Warn("unreadable legacy partition left in place")
		return nil
	}

	var added int
	_, err = p.update(ctx, DefaultStoreID, func(existing []T) ([]T, error) {
		merged, n := csvcodec.Merge(existing, legacy, itemKey)
		added = n
		return merged, nil
	})
	if err != nil {
		return err
	}
	if err := b.backend.Delete(ctx, key); err != nil {
		return &StorageError{Op: "delete", Key: key, Err: err}
	}

	b.log.WithFields(logrus.Fields{
		"key":      key,
		"store":    DefaultStoreID,
		"migrated": added,
	}).Info("moved legacy partition into default store")
	return nil
}
