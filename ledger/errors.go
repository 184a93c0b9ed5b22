/*
errors.go - Error taxonomy for the ledger

PURPOSE:
  All error types in one place. The facade maps them onto three outcomes:

    Forbidden   - wrong role or foreign tenant
    BadRequest  - invalid input or a violated business rule
    Internal    - anything else

  NotFound is a narrow BadRequest variant so the API can answer 404.

USAGE:
  if ledger.IsBadRequest(err) {
      // surface err.Error() verbatim, it is written for the operator
  }

SEE ALSO:
  - api/handlers.go: writeLedgerError maps these onto HTTP status codes
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
	// Taxonomy roots.
	ErrForbidden  = errors.New("forbidden")
	ErrBadRequest = errors.New("bad request")
	ErrNotFound   = errors.New("not found")
	ErrInternal   = errors.New("internal error")

	// ErrTenantRequired is returned by every store call given an empty tenant.
	ErrTenantRequired = errors.New("tenant is required")

	// ErrDuplicateOrigin is returned by the store when (tenant, origin kind,
	// origin id) already exists. Sync treats it as "already synced".
	ErrDuplicateOrigin = errors.New("entry for origin already exists")

	// ErrDuplicateAccountName is returned when a tenant already has an account
	// with the same name, compared case-insensitively.
	ErrDuplicateAccountName = errors.New("account name already exists")

	// ErrReservedAccountName is returned when a user account would take the
	// name of a system account.
	ErrReservedAccountName = errors.New("account name is reserved")

	ErrDirectionMismatch   = errors.New("direction not allowed for account type")
	ErrImmutableEntry      = errors.New("only manual entries can be modified")
	ErrSystemAccount       = errors.New("system accounts cannot be archived")
	ErrArchivedAccount     = errors.New("account is archived")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidPeriod       = errors.New("invalid period: end before start")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError reports a single invalid input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Unwrap() error { return ErrBadRequest }

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// InsufficientBalanceError embeds the available figure so the UI can show it
// without another round-trip.
type InsufficientBalanceError struct {
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance, available: %s", e.Available.String())
}

func (e *InsufficientBalanceError) Unwrap() error { return ErrInsufficientBalance }

// NotFoundError names the missing record.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("%s %s not found", e.Kind, e.ID) }

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsBadRequest returns true if the error is due to invalid client input or a
// rejected business rule.
func IsBadRequest(err error) bool {
	return errors.Is(err, ErrBadRequest) ||
		errors.Is(err, ErrTenantRequired) ||
		errors.Is(err, ErrDuplicateAccountName) ||
		errors.Is(err, ErrReservedAccountName) ||
		errors.Is(err, ErrDirectionMismatch) ||
		errors.Is(err, ErrImmutableEntry) ||
		errors.Is(err, ErrSystemAccount) ||
		errors.Is(err, ErrArchivedAccount) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrInvalidPeriod)
}

func IsForbidden(err error) bool { return errors.Is(err, ErrForbidden) }

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
