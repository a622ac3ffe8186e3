package domain

import (
	"errors"
	"fmt"
)

var (
	ErrAccountNotFound    = errors.New("account not found")
	ErrLayerNotFound      = errors.New("layer not found")
	ErrDuplicateLayer     = errors.New("duplicate layer id")
	ErrRedactionViolation = errors.New("redaction policy violation")
	ErrLedgerUnavailable  = errors.New("usage ledger unavailable")
	ErrPeriodClosed       = errors.New("usage period closed")
	ErrReconcileNotFound  = errors.New("reconciliation entry not found")
)

// RedactionViolationError reports a rendered layer that contains a forbidden
// category. The offending fragment is kept for audit but never printed by
// Error.
type RedactionViolationError struct {
	LayerID  string
	Category RedactionCategory
	Fragment string
}

func (e *RedactionViolationError) Error() string {
	return fmt.Sprintf("layer %s emitted %s content (%d bytes)", e.LayerID, e.Category, len(e.Fragment))
}

func (e *RedactionViolationError) Is(target error) bool {
	return target == ErrRedactionViolation
}

// UpstreamError wraps a failed model invocation.
type UpstreamError struct {
	Cause error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("model call failed: %v", e.Cause)
}

func (e *UpstreamError) Unwrap() error {
	return e.Cause
}
