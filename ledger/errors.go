/*
errors.go - Centralized error types for the ledger engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers branch on sentinels with errors.Is() and extract details
  with errors.As() on the structured types.

ERROR CATEGORIES:
  1. Validation errors - Malformed input, rejected before any mutation
  2. Lookup errors     - Referenced document/counterparty absent
  3. State errors      - Operation conflicts with the document's state

USAGE:
  _, err := engine.RecordPayment(ctx, id, amount, ledger.MethodCard, "")
  var over *OverpaymentError
  if errors.As(err, &over) {
      // over.Balance, over.Requested
  }

SEE ALSO:
  - engine.go: Raises these errors
  - api/handlers.go: Maps them to HTTP status codes
*/
package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is returned when input fails structural validation.
	// The operation never mutates state.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned when a referenced document doesn't exist.
	ErrNotFound = errors.New("document not found")

	// ErrImmutableField is returned when a patch touches a computed or
	// protected field (id, document number, payments, balances).
	ErrImmutableField = errors.New("field is immutable")

	// ErrInconsistentState is returned when an operation would violate the
	// balance invariant (e.g. re-billing a document below what was paid).
	ErrInconsistentState = errors.New("operation violates balance invariant")

	// ErrOverpayment is returned when a payment exceeds the remaining balance.
	ErrOverpayment = errors.New("payment exceeds remaining balance")

	// ErrInvalidTransition is returned when a status transition is not
	// permitted from the document's current status.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrStoreFailed is returned when the persistence collaborator rejects
	// a commit. In-memory state is unchanged when this is returned.
	ErrStoreFailed = errors.New("store commit failed")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError reports which field failed validation and why.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NotFoundError identifies the missing document.
type NotFoundError struct {
	ID DocumentID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("document %s not found", e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// ImmutableFieldError names the protected field a patch tried to change.
type ImmutableFieldError struct {
	Field string
}

func (e *ImmutableFieldError) Error() string {
	return fmt.Sprintf("field %q is immutable", e.Field)
}

func (e *ImmutableFieldError) Unwrap() error { return ErrImmutableField }

// InconsistentStateError reports a balance-invariant violation.
type InconsistentStateError struct {
	ID     DocumentID
	Total  decimal.Decimal
	Paid   decimal.Decimal
	Reason string
}

func (e *InconsistentStateError) Error() string {
	return fmt.Sprintf("document %s: %s (total %s, paid %s)",
		e.ID, e.Reason, e.Total.StringFixed(2), e.Paid.StringFixed(2))
}

func (e *InconsistentStateError) Unwrap() error { return ErrInconsistentState }

// OverpaymentError provides details about a rejected payment.
type OverpaymentError struct {
	ID        DocumentID
	Balance   decimal.Decimal
	Requested decimal.Decimal
}

func (e *OverpaymentError) Error() string {
	return fmt.Sprintf("document %s: payment %s exceeds balance %s",
		e.ID, e.Requested.StringFixed(2), e.Balance.StringFixed(2))
}

func (e *OverpaymentError) Unwrap() error { return ErrOverpayment }

// InvalidTransitionError reports the rejected action and the status it was
// attempted from.
type InvalidTransitionError struct {
	ID     DocumentID
	From   Status
	Action Action
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("document %s: cannot %s from status %s", e.ID, e.Action, e.From)
}

func (e *InvalidTransitionError) Unwrap() error { return ErrInvalidTransition }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input
// or a state conflict (HTTP 4xx territory), as opposed to a store failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrImmutableField) ||
		errors.Is(err, ErrInconsistentState) ||
		errors.Is(err, ErrOverpayment) ||
		errors.Is(err, ErrInvalidTransition)
}

// IsNotFound returns true if the error indicates a missing document.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
