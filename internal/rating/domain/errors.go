package domain

import (
	"errors"
	"fmt"

	contractdomain "github.com/smallbiznis/signbilling/internal/contract/domain"
)

var (
	ErrDuplicateServiceAssignment = errors.New("duplicate_service_assignment")
	ErrClientLocked               = errors.New("client_locked")
)

// ConfigurationError aborts a run before anything is loaded or written.
type ConfigurationError struct {
	Err error
}

func (e *ConfigurationError) Error() string { return "configuration error: " + e.Err.Error() }
func (e *ConfigurationError) Unwrap() error { return e.Err }

// ValidationError rejects a client whose active orders share a vs id.
type ValidationError struct {
	ClientID     int64
	DuplicateIDs []int64
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("duplicate service assignment across active orders: %v", e.DuplicateIDs)
}

func (e *ValidationError) Unwrap() error { return ErrDuplicateServiceAssignment }

// PersistenceError wraps a failed write; the run's transaction was rolled back.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string { return fmt.Sprintf("persist %s: %v", e.Op, e.Err) }
func (e *PersistenceError) Unwrap() error { return e.Err }

const (
	OutcomeSuccess  = "success"
	OutcomeLocked   = "locked"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

// Outcome buckets the error returned by Service.Rate.
func Outcome(err error) string {
	var cfgErr *ConfigurationError
	var valErr *ValidationError
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, ErrClientLocked):
		return OutcomeLocked
	case errors.As(err, &cfgErr), errors.As(err, &valErr), errors.Is(err, contractdomain.ErrClientNotFound):
		return OutcomeRejected
	default:
		return OutcomeFailed
	}
}
