package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidGrade    = errors.New("grade must be an integer between 0 and 5")
	ErrUnknownAction   = errors.New("unknown action kind")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
	// ErrConflict is returned by a store when a progress record changed
	// between load and save.
	ErrConflict = errors.New("concurrent update conflict")
)

// PersistenceError wraps a failure reported by a persistence port.
// The state held by the store is unchanged when one is returned.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Persistence wraps err as a *PersistenceError for op. A nil err stays nil,
// and an error that already is a PersistenceError is returned as is.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}
