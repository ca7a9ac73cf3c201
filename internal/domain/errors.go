package domain

import (
	"context"
	"errors"
	"fmt"
)

var (
	// Business rules
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrAccountInactive     = errors.New("account is not active")
	ErrSameAccount         = errors.New("cannot transfer to same account")
	ErrInvalidAmount       = errors.New("amount must be positive with at most two decimal places")
	ErrIdempotencyKeyReuse = errors.New("idempotency key was used for a different request")
	ErrInvalidStatus       = errors.New("invalid account status transition")

	// Concurrency
	ErrConflict = errors.New("concurrent modification conflict")

	// Lookup
	ErrAccountNotFound = errors.New("account not found")

	// System
	ErrTimeout = errors.New("transaction scope timed out")
)

// RuleViolation is a terminal business-rule failure. It is never retried.
type RuleViolation struct {
	Rule   error
	Detail string
}

// NewRuleViolation wraps one of the business-rule sentinels.
func NewRuleViolation(rule error, detail string) *RuleViolation {
	return &RuleViolation{Rule: rule, Detail: detail}
}

func (e *RuleViolation) Error() string {
	if e.Detail == "" {
		return e.Rule.Error()
	}
	return fmt.Sprintf("%s: %s", e.Rule, e.Detail)
}

func (e *RuleViolation) Unwrap() error { return e.Rule }

// NotFoundError names the account that does not exist.
type NotFoundError struct {
	AccountID int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("account %d not found", e.AccountID)
}

func (e *NotFoundError) Unwrap() error { return ErrAccountNotFound }

// ConflictError is a failed conditional write on one account row.
type ConflictError struct {
	AccountID       int64
	ExpectedVersion int64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("account %d: version %d is stale: %s", e.AccountID, e.ExpectedVersion, ErrConflict)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// SystemError is an infrastructure failure: storage errors, timeouts,
// cancellation. The core never retries it.
type SystemError struct {
	Op  string
	Err error
}

// NewSystemError wraps err, keeping an existing SystemError as is.
func NewSystemError(op string, err error) error {
	var se *SystemError
	if errors.As(err, &se) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return &SystemError{Op: op, Err: err}
}

func (e *SystemError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *SystemError) Unwrap() error { return e.Err }

// IsTimeout reports whether the failure was a scope timeout.
func (e *SystemError) IsTimeout() bool {
	return errors.Is(e.Err, ErrTimeout) || errors.Is(e.Err, context.DeadlineExceeded)
}

// Outcome is the classification every operation result falls into.
type Outcome string

const (
	OutcomeSuccess       Outcome = "success"
	OutcomeRuleViolation Outcome = "rule_violation"
	OutcomeConflict      Outcome = "conflict"
	OutcomeNotFound      Outcome = "not_found"
	OutcomeSystemFailure Outcome = "system_failure"
)

// Classify maps err to exactly one outcome. Unknown errors are system failures.
func Classify(err error) Outcome {
	if err == nil {
		return OutcomeSuccess
	}

	var rv *RuleViolation
	var nf *NotFoundError
	var se *SystemError

	switch {
	case errors.As(err, &se):
		return OutcomeSystemFailure
	case errors.As(err, &rv):
		return OutcomeRuleViolation
	case errors.As(err, &nf), errors.Is(err, ErrAccountNotFound):
		return OutcomeNotFound
	case errors.Is(err, ErrConflict):
		return OutcomeConflict
	default:
		return OutcomeSystemFailure
	}
}
