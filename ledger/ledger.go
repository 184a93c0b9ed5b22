/*
ledger.go - The ledger service

PURPOSE:
  Service is the Ledger Core. It owns the rules that the stores cannot know
  about: account/direction compatibility, which entries may change, how an
  external event becomes exactly one entry, and how balances are derived.

CRITICAL INVARIANTS:
  1. DERIVED: balances are recomputed from entries on every call
  2. IDEMPOTENT: one PAYMENT/PAYOUT origin = one entry, enforced by the store
  3. IMMUTABLE: only MANUAL entries may be edited or deleted
  4. SCOPED: every call names its tenant explicitly

AUTHORIZATION:
  Service trusts its caller. The facade (api package) calls Actor.Authorize
  for the route tenant before any Service method runs.

SEE ALSO:
  - accounts.go: Chart of accounts
  - entries.go: Manual entry mutation
  - sync.go: External event recording
  - balance.go, analytics.go: Derived figures
  - auth.go: Actor.Authorize, called by the facade
*/
package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PayoutAggregate exposes the external payout status aggregate. Pending
// payout requests have not posted an entry yet, so the ledger must ask.
type PayoutAggregate interface {
	PendingPayoutTotal(ctx context.Context, tenant TenantID) (decimal.Decimal, error)
}

// NoPendingPayouts is a PayoutAggregate that always reports zero.
type NoPendingPayouts struct{}

func (NoPendingPayouts) PendingPayoutTotal(context.Context, TenantID) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

// Service implements the ledger operations over a Store.
type Service struct {
	Store   Store
	Payouts PayoutAggregate

	// Location is the reporting timezone for date windows and buckets.
	Location *time.Location

	// Now and NewID are replaceable for tests.
	Now   func() time.Time
	NewID func() string
}

// NewService creates a Service. A nil payouts aggregate reports no pending
// withdrawals.
func NewService(store Store, payouts PayoutAggregate) *Service {
	if payouts == nil {
		payouts = NoPendingPayouts{}
	}
	return &Service{
		Store:    store,
		Payouts:  payouts,
		Location: time.UTC,
		Now:      func() time.Time { return time.Now().UTC() },
		NewID:    uuid.NewString,
	}
}

func (s *Service) loc() *time.Location {
	if s.Location == nil {
		return time.UTC
	}
	return s.Location
}
