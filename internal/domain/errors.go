package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Sentinel errors for the domain layer.
var (
	ErrNotFound          = errors.New("domain: not found")
	ErrConflict          = errors.New("domain: conflict")
	ErrUnauthorized      = errors.New("domain: unauthorized")
	ErrForbidden         = errors.New("domain: forbidden")
	ErrValidation        = errors.New("domain: validation failed")
	ErrInvalidTransition = errors.New("task: invalid state transition")
	ErrImmutableState    = errors.New("task: state is terminal and cannot change")
	ErrMissingReason     = errors.New("task: reason is required for this state")
)

// PermissionError is returned when the authorization engine denies an action.
// It unwraps to ErrForbidden.
type PermissionError struct {
	Action     string
	Resource   string
	ResourceID uuid.UUID
	Reason     string
}

func (e *PermissionError) Error() string {
	msg := "permission denied: " + e.Action
	if e.Resource != "" {
		msg += " on " + e.Resource
		if e.ResourceID != uuid.Nil {
			msg += " " + e.ResourceID.String()
		}
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *PermissionError) Unwrap() error { return ErrForbidden }

// TransitionError carries the task and the attempted (from, to) pair of a
// rejected state change. Err is one of ErrInvalidTransition,
// ErrImmutableState, ErrMissingReason or ErrValidation.
type TransitionError struct {
	TaskID uuid.UUID
	From   TaskState
	To     TaskState
	Err    error
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("task %s: %s -> %s: %v", e.TaskID, e.From, e.To, e.Err)
}

func (e *TransitionError) Unwrap() error { return e.Err }
