package dispatch

import (
	"errors"
	"fmt"
)

var (
	// ErrNoCandidates is returned when no technician is available for a round.
	ErrNoCandidates = errors.New("no technicians available")
	// ErrRequestNotFound is returned when the request is missing or was cancelled.
	ErrRequestNotFound = errors.New("maintenance request not found")
	// ErrAlreadyAssigned is returned when the request already holds an active assignment.
	ErrAlreadyAssigned = errors.New("maintenance request already assigned")
	// ErrStaleCandidate is returned by Persistence when the chosen technician
	// changed between scoring and commit.
	ErrStaleCandidate = errors.New("technician changed since it was scored")
)

// PersistenceError reports a storage failure. No partial write survives it.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("dispatch %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// wrapPersistence leaves the typed outcomes alone and wraps everything else.
func wrapPersistence(op string, err error) error {
	if err == nil {
		return nil
	}
	var pe *PersistenceError
	if errors.Is(err, ErrRequestNotFound) || errors.Is(err, ErrAlreadyAssigned) ||
		errors.Is(err, ErrStaleCandidate) || errors.As(err, &pe) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}
