package records

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotFound is returned when a store, employee, advance, statement or
	// sales day does not exist in the partition.
	ErrNotFound = errors.New("not found")

	// ErrNoActiveStore is returned when an operation needs the active store
	// and none is selected.
	ErrNoActiveStore = errors.New("no active store")

	// ErrReferentialIntegrity is returned when deleting an employee that
	// advances or salary statements still reference.
	ErrReferentialIntegrity = errors.New("employee is still referenced")

	// ErrStorage is returned when the backend rejects a read or write.
	ErrStorage = errors.New("storage failure")

	// ErrUnknownEntity is returned for an import/export entity name that is
	// not one of the csvcodec entities.
	ErrUnknownEntity = errors.New("unknown entity")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ReferentialIntegrityError lists what still references an employee.
type ReferentialIntegrityError struct {
	EmployeeID string
	Advances   int
	Salaries   int
}

func (e *ReferentialIntegrityError) Error() string {
	return fmt.Sprintf("cannot delete employee %s: referenced by %d advances and %d salary records",
		e.EmployeeID, e.Advances, e.Salaries)
}

func (e *ReferentialIntegrityError) Unwrap() error {
	return ErrReferentialIntegrity
}

// StorageError wraps a backend failure with the operation and key.
type StorageError struct {
	Op  string // get, put, delete
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() []error {
	return []error{ErrStorage, e.Err}
}

// NotFoundError names the missing item.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}
