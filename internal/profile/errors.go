package profile

import (
	"errors"
	"fmt"
)

// Error kinds. Match them with errors.Is.
var (
	ErrValidation  = errors.New("invalid input")
	ErrNotFound    = errors.New("not found")
	ErrBusy        = errors.New("another profile change is in progress")
	ErrPersistence = errors.New("persistence failure")
	ErrAnalysis    = errors.New("analysis failed")

	// ErrNotLoaded is a persistence error: the store has no record set yet.
	ErrNotLoaded = fmt.Errorf("%w: profiles not loaded", ErrPersistence)
)

// Error describes a failed store operation.
type Error struct {
	Op   string // "load", "add", "reanalyze", "get", "task", "add skill", "remove skill"
	Kind error  // one of the Err* kinds
	ID   string // profile or task id, when known
	Err  error  // underlying cause, may be nil
}

func (e *Error) Error() string {
	msg := e.Op + ": " + e.Kind.Error()
	if e.ID != "" {
		msg += fmt.Sprintf(" (id %q)", e.ID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
