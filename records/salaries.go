/*
salaries.go - Salary advances and monthly salary statements

PURPOSE:
  Advances are recorded as they are paid. At month end CloseMonth turns
  the month's advances and each employee's salary into EmployeeSalary
  statements and links their running balances.

CRITICAL INVARIANT:
  After every write to the salary partition, balanceTillDate is
  recomputed for the whole partition with till.ChainBalances. A statement
  inserted before an existing month therefore shifts every later balance.

SEE ALSO:
  - till/salary.go: Statement math and balance chaining
  - employees.go: Delete refuses employees referenced here
*/
package records

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/warp/cashbook/csvcodec"
	"github.com/warp/cashbook/till"
)

// SalaryRepository manages the advance and statement partitions of each store.
type SalaryRepository struct {
	advances *partition[till.SalaryAdvance]
	salaries *partition[till.EmployeeSalary]
}

func newSalaryRepository(backend Backend, sink SnapshotSink, log logrus.FieldLogger) *SalaryRepository {
	advances := newPartition[till.SalaryAdvance](backend, csvcodec.EntityAdvance, partitionKey("advances"), sink, log)
	advances.encode = func(items []till.SalaryAdvance) ([]byte, error) {
		return csvcodec.EncodeBytes(csvcodec.AdvanceSchema, items)
	}
	salaries := newPartition[till.EmployeeSalary](backend, csvcodec.EntitySalary, partitionKey("salaries"), sink, log)
	salaries.encode = func(items []till.EmployeeSalary) ([]byte, error) {
		return csvcodec.EncodeBytes(csvcodec.SalarySchema, items)
	}
	return &SalaryRepository{advances: advances, salaries: salaries}
}

// =============================================================================
// ADVANCES
// =============================================================================

// ListAdvances returns the store's advances in insertion order.
func (r *SalaryRepository) ListAdvances(ctx context.Context, storeID string) ([]till.SalaryAdvance, error) {
	return r.advances.list(ctx, storeID)
}

// UpsertAdvance inserts an advance whose id is unseen and replaces it otherwise.
func (r *SalaryRepository) UpsertAdvance(ctx context.Context, storeID string, a till.SalaryAdvance) (till.SalaryAdvance, error) {
	if a.Type == "" {
		a.Type = till.AdvanceBank
	}
	if err := till.ValidateEntity(a); err != nil {
		return till.SalaryAdvance{}, err
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	_, err := r.advances.update(ctx, storeID, func(advances []till.SalaryAdvance) ([]till.SalaryAdvance, error) {
		return upsertByID(advances, a, func(x till.SalaryAdvance) string { return x.ID }), nil
	})
	if err != nil {
		return till.SalaryAdvance{}, err
	}
	return a, nil
}

// DeleteAdvance removes one advance.
func (r *SalaryRepository) DeleteAdvance(ctx context.Context, storeID, id string) error {
	_, err := r.advances.update(ctx, storeID, func(advances []till.SalaryAdvance) ([]till.SalaryAdvance, error) {
		return removeByID(advances, id, "advance", func(x till.SalaryAdvance) string { return x.ID })
	})
	return err
}

// =============================================================================
// STATEMENTS
// =============================================================================

// ListSalaries returns the store's statements in insertion order.
func (r *SalaryRepository) ListSalaries(ctx context.Context, storeID string) ([]till.EmployeeSalary, error) {
	return r.salaries.list(ctx, storeID)
}

// UpsertSalary stores one statement and re-links every balance.
func (r *SalaryRepository) UpsertSalary(ctx context.Context, storeID string, s till.EmployeeSalary) (till.EmployeeSalary, error) {
	if s.ID == "" {
		s.ID = till.SalaryID(s.Month, s.EmployeeID)
	}
	if err := till.ValidateEntity(s); err != nil {
		return till.EmployeeSalary{}, err
	}
	rows, err := r.salaries.update(ctx, storeID, func(salaries []till.EmployeeSalary) ([]till.EmployeeSalary, error) {
		return till.ChainBalances(upsertByID(salaries, s, salaryKey)), nil
	})
	if err != nil {
		return till.EmployeeSalary{}, err
	}
	return findByID(rows, s.ID, salaryKey), nil
}

// DeleteSalary removes one statement and re-links every balance.
func (r *SalaryRepository) DeleteSalary(ctx context.Context, storeID, id string) error {
	_, err := r.salaries.update(ctx, storeID, func(salaries []till.EmployeeSalary) ([]till.EmployeeSalary, error) {
		rest, err := removeByID(salaries, id, "salary", salaryKey)
		if err != nil {
			return nil, err
		}
		return till.ChainBalances(rest), nil
	})
	return err
}

// CloseMonth writes the statement of every employee in salaries for month.
// Advances of the month are split into bank transfers and cash withdrawals,
// and an existing statement for the same employee and month is replaced.
func (r *SalaryRepository) CloseMonth(ctx context.Context, storeID, month string, salaries map[string]decimal.Decimal) ([]till.EmployeeSalary, error) {
	if _, err := time.Parse(till.MonthLayout, month); err != nil {
		return nil, &till.ValidationError{Field: "month", Rule: "datetime", Value: month, Message: "month must be YYYY-MM"}
	}
	advances, err := r.ListAdvances(ctx, storeID)
	if err != nil {
		return nil, err
	}

	employeeIDs := make([]string, 0, len(salaries))
	for id := range salaries {
		employeeIDs = append(employeeIDs, id)
	}
	sort.Strings(employeeIDs)

	rows, err := r.salaries.update(ctx, storeID, func(existing []till.EmployeeSalary) ([]till.EmployeeSalary, error) {
		for _, id := range employeeIDs {
			existing = upsertByID(existing, till.MonthlySalary(month, id, salaries[id], advances), salaryKey)
		}
		return till.ChainBalances(existing), nil
	})
	if err != nil {
		return nil, err
	}

	closed := make([]till.EmployeeSalary, 0, len(employeeIDs))
	for _, id := range employeeIDs {
		closed = append(closed, findByID(rows, till.SalaryID(month, id), salaryKey))
	}
	return closed, nil
}

// Summary totals an employee's statements; an empty month means all months.
func (r *SalaryRepository) Summary(ctx context.Context, storeID, employeeID, month string) (till.EmployeeSummary, error) {
	rows, err := r.ListSalaries(ctx, storeID)
	if err != nil {
		return till.EmployeeSummary{}, err
	}
	return till.SummarizeEmployee(rows, employeeID, month), nil
}

// EmployeeReferences counts the advances and statements of an employee.
func (r *SalaryRepository) EmployeeReferences(ctx context.Context, storeID, employeeID string) (advances, salaries int, err error) {
	as, err := r.ListAdvances(ctx, storeID)
	if err != nil {
		return 0, 0, err
	}
	ss, err := r.ListSalaries(ctx, storeID)
	if err != nil {
		return 0, 0, err
	}
	for _, a := range as {
		if a.EmployeeID == employeeID {
			advances++
		}
	}
	for _, s := range ss {
		if s.EmployeeID == employeeID {
			salaries++
		}
	}
	return advances, salaries, nil
}

// mergeLedger adds unseen advances, then unseen statements recomputed from
// the merged advances. Existing entries are never replaced. Both partitions
// are committed together.
func (r *SalaryRepository) mergeLedger(ctx context.Context, storeID string, ledger csvcodec.Ledger) (advances, salaries int, err error) {
	for i := range ledger.Advances {
		if ledger.Advances[i].ID == "" {
			ledger.Advances[i].ID = uuid.NewString()
		}
	}
	err = updatePair(ctx, storeID, r.advances, r.salaries,
		func(existingAdvances []till.SalaryAdvance, existingSalaries []till.EmployeeSalary) ([]till.SalaryAdvance, []till.EmployeeSalary, error) {
			merged, n := csvcodec.Merge(existingAdvances, ledger.Advances, advanceKey)
			advances = n

			// MonthlySalary keys each row by month and resolved employee.
			incoming := make([]till.EmployeeSalary, 0, len(ledger.Salaries))
			for _, s := range ledger.Salaries {
				incoming = append(incoming, till.MonthlySalary(s.Month, s.EmployeeID, s.Salary, merged))
			}
			out, m := csvcodec.Merge(existingSalaries, incoming, salaryKey)
			salaries = m
			return merged, till.ChainBalances(out), nil
		})
	if err != nil {
		return 0, 0, err
	}
	return advances, salaries, nil
}

// mergeAdvances adds unseen advances.
func (r *SalaryRepository) mergeAdvances(ctx context.Context, storeID string, incoming []till.SalaryAdvance) (int, error) {
	var added int
	_, err := r.advances.update(ctx, storeID, func(existing []till.SalaryAdvance) ([]till.SalaryAdvance, error) {
		out, n := csvcodec.Merge(existing, incoming, advanceKey)
		added = n
		return out, nil
	})
	return added, err
}

// mergeSalaries adds unseen statements and re-links balances. Statements are
// keyed by month and employee whatever id the file carries.
func (r *SalaryRepository) mergeSalaries(ctx context.Context, storeID string, incoming []till.EmployeeSalary) (int, error) {
	for i := range incoming {
		if incoming[i].EmployeeID != "" && incoming[i].Month != "" {
			incoming[i].ID = till.SalaryID(incoming[i].Month, incoming[i].EmployeeID)
		}
	}
	var added int
	_, err := r.salaries.update(ctx, storeID, func(existing []till.EmployeeSalary) ([]till.EmployeeSalary, error) {
		out, n := csvcodec.Merge(existing, incoming, salaryKey)
		added = n
		return till.ChainBalances(out), nil
	})
	return added, err
}

func salaryKey(s till.EmployeeSalary) string { return s.ID }

func advanceKey(a till.SalaryAdvance) string { return a.ID }

// =============================================================================
// SLICE HELPERS
// =============================================================================

func upsertByID[T any](items []T, item T, id func(T) string) []T {
	for i := range items {
		if id(items[i]) == id(item) {
			items[i] = item
			return items
		}
	}
	return append(items, item)
}

func removeByID[T any](items []T, target, kind string, id func(T) string) ([]T, error) {
	for i := range items {
		if id(items[i]) == target {
			return append(items[:i], items[i+1:]...), nil
		}
	}
	return nil, &NotFoundError{Kind: kind, ID: target}
}

func findByID[T any](items []T, target string, id func(T) string) T {
	for _, item := range items {
		if id(item) == target {
			return item
		}
	}
	var zero T
	return zero
}
