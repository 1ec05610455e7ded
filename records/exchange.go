/*
exchange.go - Bulk CSV import and export per store

PURPOSE:
  Moves whole partitions in and out as CSV, in the formats of csvcodec.
  Staff use it to exchange data with spreadsheets and between devices.

IMPORT POLICY:
  - Rows that fail to parse are skipped and reported; the rest continue.
  - Import only adds: an incoming row whose key is already present
    (employee name, sales date, id otherwise) is dropped, never merged.
  - The merge is computed completely before the single backend write, so
    an import that fails to read leaves the partition unchanged.

CONCURRENCY:
  Imports and exports of the same (store, entity) are serialised by the
  Locker. Concurrent exports of one partition share a single encoding.

SALARY DATA:
  Export writes the combined salary/advance ledger. Import accepts the
  ledger or the per-store statement layout, chosen by the header.
*/
package records

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/warp/cashbook/csvcodec"
	"github.com/warp/cashbook/till"
)

// StoreEntities are the per-store partitions, in export order.
var StoreEntities = []string{
	csvcodec.EntityEmployee,
	csvcodec.EntitySales,
	csvcodec.EntityAdvance,
	csvcodec.EntitySalary,
}

// ImportResult reports the outcome of one import.
type ImportResult struct {
	Entity     string
	Imported   int
	Duplicates int
	Errors     []*csvcodec.ParseError
}

// Skipped is the number of rows that could not be parsed.
func (r ImportResult) Skipped() int { return len(r.Errors) }

// KnownEntity reports whether name is an importable entity.
func KnownEntity(name string) bool {
	if name == csvcodec.EntityStore {
		return true
	}
	for _, e := range StoreEntities {
		if e == name {
			return true
		}
	}
	return false
}

// =============================================================================
// IMPORT
// =============================================================================

// Import merges CSV rows of entity into the store's partition. The store
// registry (entity "stores") ignores storeID.
func (b *Book) Import(ctx context.Context, storeID, entity string, r io.Reader) (ImportResult, error) {
	if !KnownEntity(entity) {
		return ImportResult{}, fmt.Errorf("%w: %s", ErrUnknownEntity, entity)
	}
	unlock := b.locker.Lock(storeID, entity)
	defer unlock()

	res, err := b.importLocked(ctx, storeID, entity, r)
	if err != nil {
		return ImportResult{}, err
	}

	b.log.WithFields(logrus.Fields{
		"store":      storeID,
		"entity":     entity,
		"imported":   res.Imported,
		"duplicates": res.Duplicates,
		"skipped":    res.Skipped(),
	}).Info("csv import")
	return res, nil
}

func (b *Book) importLocked(ctx context.Context, storeID, entity string, r io.Reader) (ImportResult, error) {
	res := ImportResult{Entity: entity}
	switch entity {
	case csvcodec.EntitySales:
		decoded, err := csvcodec.DecodeSales(r, b.engine)
		if err != nil {
			return res, err
		}
		res.Errors = decoded.Errors
		res.Imported, err = b.Sales.merge(ctx, storeID, decoded.Items)
		res.Duplicates = len(decoded.Items) - res.Imported
		return res, err

	case csvcodec.EntityEmployee:
		decoded, err := csvcodec.DecodeEmployees(r)
		if err != nil {
			return res, err
		}
		res.Errors = decoded.Errors
		res.Imported, err = b.Employees.merge(ctx, storeID, decoded.Items)
		res.Duplicates = len(decoded.Items) - res.Imported
		return res, err

	case csvcodec.EntityAdvance:
		decoded, err := csvcodec.Decode(r, csvcodec.AdvanceSchema)
		if err != nil {
			return res, err
		}
		res.Errors = decoded.Errors
		res.Imported, err = b.Salaries.mergeAdvances(ctx, storeID, decoded.Items)
		res.Duplicates = len(decoded.Items) - res.Imported
		return res, err

	case csvcodec.EntitySalary:
		return b.importSalaryData(ctx, storeID, r)

	case csvcodec.EntityStore:
		decoded, err := csvcodec.Decode(r, csvcodec.StoreSchema)
		if err != nil {
			return res, err
		}
		res.Errors = decoded.Errors
		res.Imported, err = b.Stores.merge(ctx, decoded.Items)
		res.Duplicates = len(decoded.Items) - res.Imported
		return res, err
	}
	return res, fmt.Errorf("%w: %s", ErrUnknownEntity, entity)
}

func (b *Book) importSalaryData(ctx context.Context, storeID string, r io.Reader) (ImportResult, error) {
	res := ImportResult{Entity: csvcodec.EntitySalary}
	br := bufio.NewReader(r)
	first, err := br.Peek(4)
	if err != nil && !errors.Is(err, io.EOF) {
		return res, err
	}

	if !strings.EqualFold(string(first), "type") {
		decoded, err := csvcodec.Decode(br, csvcodec.SalarySchema)
		if err != nil {
			return res, err
		}
		res.Errors = decoded.Errors
		res.Imported, err = b.Salaries.mergeSalaries(ctx, storeID, decoded.Items)
		res.Duplicates = len(decoded.Items) - res.Imported
		return res, err
	}

	employees, err := b.Employees.List(ctx, storeID)
	if err != nil {
		return res, err
	}
	ledger, parseErrs, err := csvcodec.DecodeLedger(br, employees)
	if err != nil {
		return res, err
	}
	res.Errors = parseErrs
	advances, salaries, err := b.Salaries.mergeLedger(ctx, storeID, ledger)
	res.Imported = advances + salaries
	res.Duplicates = len(ledger.Advances) + len(ledger.Salaries) - res.Imported
	return res, err
}

// =============================================================================
// EXPORT
// =============================================================================

// Export renders the store's partition of entity as CSV. Concurrent calls
// for the same partition share one rendering.
func (b *Book) Export(ctx context.Context, storeID, entity string) ([]byte, error) {
	if !KnownEntity(entity) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntity, entity)
	}
	data, _, err := shared(ctx, &b.exports, storeID+"/"+entity, func() ([]byte, error) {
		unlock := b.locker.Lock(storeID, entity)
		defer unlock()
		return b.exportLocked(context.WithoutCancel(ctx), storeID, entity)
	})
	return data, err
}

func (b *Book) exportLocked(ctx context.Context, storeID, entity string) ([]byte, error) {
	switch entity {
	case csvcodec.EntitySales:
		records, err := b.Sales.List(ctx, storeID)
		if err != nil {
			return nil, err
		}
		return csvcodec.EncodeBytes(csvcodec.SalesSchema(b.engine), records)

	case csvcodec.EntityEmployee:
		employees, err := b.Employees.List(ctx, storeID)
		if err != nil {
			return nil, err
		}
		return csvcodec.EncodeBytes(csvcodec.EmployeeSchema, employees)

	case csvcodec.EntityAdvance:
		advances, err := b.Salaries.ListAdvances(ctx, storeID)
		if err != nil {
			return nil, err
		}
		return csvcodec.EncodeBytes(csvcodec.AdvanceSchema, advances)

	case csvcodec.EntitySalary:
		salaries, err := b.Salaries.ListSalaries(ctx, storeID)
		if err != nil {
			return nil, err
		}
		advances, err := b.Salaries.ListAdvances(ctx, storeID)
		if err != nil {
			return nil, err
		}
		employees, err := b.Employees.List(ctx, storeID)
		if err != nil {
			return nil, err
		}
		var buf bytes.Buffer
		if err := csvcodec.EncodeLedger(&buf, salaries, advances, employees); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil

	case csvcodec.EntityStore:
		stores, err := b.Stores.List(ctx)
		if err != nil {
			return nil, err
		}
		return csvcodec.EncodeBytes(csvcodec.StoreSchema, stores)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownEntity, entity)
}

// ExportFilename is the download name of an export made now.
func (b *Book) ExportFilename(entity string) string {
	return csvcodec.ExportFilename(entity, b.now())
}

// ExportAll writes the snapshot of every partition of every store, plus the
// store registry, to sink. It returns the number of files written.
func (b *Book) ExportAll(ctx context.Context, sink SnapshotSink) (int, error) {
	stores, err := b.Stores.List(ctx)
	if err != nil {
		return 0, err
	}

	var (
		written int
		errs    []error
	)
	record := func(err error) {
		if err != nil {
			errs = append(errs, err)
			return
		}
		written++
	}

	record(b.Stores.part.snapshot(ctx, "", sink))
	for _, s := range stores {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		unlockAll := make([]func(), 0, len(StoreEntities))
		for _, entity := range StoreEntities {
			unlockAll = append(unlockAll, b.locker.Lock(s.ID, entity))
		}
		record(b.Employees.part.snapshot(ctx, s.ID, sink))
		record(b.Sales.part.snapshot(ctx, s.ID, sink))
		record(b.Salaries.advances.snapshot(ctx, s.ID, sink))
		record(b.Salaries.salaries.snapshot(ctx, s.ID, sink))
		for _, unlock := range unlockAll {
			unlock()
		}
	}
	return written, errors.Join(errs...)
}

// merge adds the stores whose id is not registered yet.
func (r *StoreRepository) merge(ctx context.Context, incoming []till.Store) (int, error) {
	var added int
	_, err := r.part.update(ctx, "", func(stores []till.Store) ([]till.Store, error) {
		out, n := csvcodec.Merge(stores, incoming, func(s till.Store) string { return s.ID })
		added = n
		return out, nil
	})
	return added, err
}
