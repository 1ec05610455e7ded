package records

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/warp/cashbook/csvcodec"
	"github.com/warp/cashbook/till"
)

// referenceCounter reports how many ledger entries point at an employee.
type referenceCounter interface {
	EmployeeReferences(ctx context.Context, storeID, employeeID string) (advances, salaries int, err error)
}

// EmployeeRepository manages the staff list of each store.
type EmployeeRepository struct {
	part *partition[till.Employee]
	refs referenceCounter
}

func newEmployeeRepository(backend Backend, sink SnapshotSink, log logrus.FieldLogger, refs referenceCounter) *EmployeeRepository {
	p := newPartition[till.Employee](backend, csvcodec.EntityEmployee, partitionKey("employees"), sink, log)
	p.encode = func(items []till.Employee) ([]byte, error) {
		return csvcodec.EncodeBytes(csvcodec.EmployeeSchema, items)
	}
	return &EmployeeRepository{part: p, refs: refs}
}

// List returns the store's employees in insertion order.
func (r *EmployeeRepository) List(ctx context.Context, storeID string) ([]till.Employee, error) {
	return r.part.list(ctx, storeID)
}

// Get returns one employee.
func (r *EmployeeRepository) Get(ctx context.Context, storeID, id string) (till.Employee, error) {
	employees, err := r.List(ctx, storeID)
	if err != nil {
		return till.Employee{}, err
	}
	for _, e := range employees {
		if e.ID == id {
			return e, nil
		}
	}
	return till.Employee{}, &NotFoundError{Kind: "employee", ID: id}
}

// Upsert inserts an employee whose id is unseen and replaces it otherwise.
// New employees get an id and the next employee number when they have none.
func (r *EmployeeRepository) Upsert(ctx context.Context, storeID string, e till.Employee) (till.Employee, error) {
	if err := till.ValidateEntity(e); err != nil {
		return till.Employee{}, err
	}
	_, err := r.part.update(ctx, storeID, func(employees []till.Employee) ([]till.Employee, error) {
		if e.ID != "" {
			for i := range employees {
				if employees[i].ID == e.ID {
					if e.EmployeeNumber == 0 {
						e.EmployeeNumber = employees[i].EmployeeNumber
					}
					employees[i] = e
					return employees, nil
				}
			}
		}
		e = withIdentity(e, employees)
		return append(employees, e), nil
	})
	if err != nil {
		return till.Employee{}, err
	}
	return e, nil
}

// Delete removes an employee unless advances or salary statements still
// reference it, in which case a *ReferentialIntegrityError is returned and
// nothing changes.
func (r *EmployeeRepository) Delete(ctx context.Context, storeID, id string) error {
	_, err := r.part.update(ctx, storeID, func(employees []till.Employee) ([]till.Employee, error) {
		idx := -1
		for i := range employees {
			if employees[i].ID == id {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, &NotFoundError{Kind: "employee", ID: id}
		}
		if r.refs != nil {
			advances, salaries, err := r.refs.EmployeeReferences(ctx, storeID, id)
			if err != nil {
				return nil, err
			}
			if advances > 0 || salaries > 0 {
				return nil, &ReferentialIntegrityError{EmployeeID: id, Advances: advances, Salaries: salaries}
			}
		}
		return append(employees[:idx], employees[idx+1:]...), nil
	})
	return err
}

// merge adds the incoming employees whose name is not already on the list.
// An added employee keeps its id and number only while no one on the list
// holds them; otherwise it gets fresh ones.
func (r *EmployeeRepository) merge(ctx context.Context, storeID string, incoming []till.Employee) (int, error) {
	var added int
	_, err := r.part.update(ctx, storeID, func(employees []till.Employee) ([]till.Employee, error) {
		merged, n := csvcodec.Merge(employees, incoming, csvcodec.EmployeeKey)
		for i := len(employees); i < len(merged); i++ {
			e := merged[i]
			if idTaken(merged[:i], e.ID) {
				e.ID, e.EmployeeNumber = "", 0
			}
			if numberTaken(merged[:i], e.EmployeeNumber) {
				e.EmployeeNumber = 0
			}
			merged[i] = withIdentity(e, merged[:i])
		}
		added = n
		return merged, nil
	})
	return added, err
}

func idTaken(employees []till.Employee, id string) bool {
	for _, e := range employees {
		if id != "" && e.ID == id {
			return true
		}
	}
	return false
}

func numberTaken(employees []till.Employee, n int) bool {
	for _, e := range employees {
		if n != 0 && e.EmployeeNumber == n {
			return true
		}
	}
	return false
}

// withIdentity fills in the id and employee number of a new employee.
func withIdentity(e till.Employee, existing []till.Employee) till.Employee {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.EmployeeNumber == 0 {
		for _, other := range existing {
			if other.EmployeeNumber > e.EmployeeNumber {
				e.EmployeeNumber = other.EmployeeNumber
			}
		}
		e.EmployeeNumber++
	}
	return e
}
