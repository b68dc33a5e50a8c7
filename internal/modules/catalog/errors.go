package catalog

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedDocument is returned when a wire document lacks its id.
	ErrMalformedDocument = errors.New("malformed document")
	// ErrNotFound is returned for unknown external or internal identifiers.
	ErrNotFound = errors.New("document not found")
	// ErrInvalidStatus is returned for ledger writes outside the enumeration.
	ErrInvalidStatus = errors.New("invalid status")
	// ErrIdentityConflict marks two resolutions racing on one unassigned
	// external id. The store's transaction prevents it from surfacing.
	ErrIdentityConflict = errors.New("identity conflict")
	// ErrPersistence matches every *PersistenceError via errors.Is.
	ErrPersistence = errors.New("persistence failure")
)

// PersistenceError reports a failed storage step of a mapper operation.
type PersistenceError struct {
	Op   string
	Kind Kind
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Kind, e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrPersistence) match any PersistenceError.
func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }
