/*
balance.go - Balance calculation from entries

PURPOSE:
  The ledger never stores a balance. Every figure here is a pure fold over
  the tenant's entries, recomputed on each call:

    totalBalance     = Σ(IN) − Σ(OUT)          all entries, all time
    totalWithdrawals = Σ(OUT of origin PAYOUT)  ledger is the source of truth
    pending          = Σ(payout requests PENDING)  external aggregate
    available        = totalBalance − pending

  Pending requests are the only external input: they have not posted an
  entry yet. Approved and completed payouts are read from the ledger, which
  keeps totalWithdrawals consistent with the withdraw read-model (see
  withdraw package) instead of a second independently computed number.

SEE ALSO:
  - analytics.go: Summary, breakdown and time series
  - withdraw/withdraw.go: The narrower rent-only view
*/
package ledger

import (
	"context"

	"github.com/shopspring/decimal"
)

// =============================================================================
// PURE FOLDS
// =============================================================================

// Totals returns Σ(IN) and Σ(OUT) over entries.
func Totals(entries []Entry) (in, out decimal.Decimal) {
	in, out = decimal.Zero, decimal.Zero
	for _, e := range entries {
		if e.Direction == DirectionIn {
			in = in.Add(e.Amount)
		} else {
			out = out.Add(e.Amount)
		}
	}
	return in, out
}

// Net returns Σ(IN) − Σ(OUT).
func Net(entries []Entry) decimal.Decimal {
	in, out := Totals(entries)
	return in.Sub(out)
}

// PayoutWithdrawals sums OUT entries of origin PAYOUT.
func PayoutWithdrawals(entries []Entry) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		if e.OriginKind == OriginPayout && e.Direction == DirectionOut {
			total = total.Add(e.Amount)
		}
	}
	return total
}

// =============================================================================
// BALANCE
// =============================================================================

type Balance struct {
	TotalIn            decimal.Decimal
	TotalOut           decimal.Decimal
	TotalBalance       decimal.Decimal
	TotalWithdrawals   decimal.Decimal
	PendingWithdrawals decimal.Decimal
	AvailableBalance   decimal.Decimal
}

// CalculateBalance computes the all-time balance for tenant.
func (s *Service) CalculateBalance(ctx context.Context, tenant TenantID) (Balance, error) {
	if err := tenant.Validate(); err != nil {
		return Balance{}, err
	}
	entries, err := s.Store.LoadEntries(ctx, tenant, EntryQuery{})
	if err != nil {
		return Balance{}, err
	}
	pending, err := s.Payouts.PendingPayoutTotal(ctx, tenant)
	if err != nil {
		return Balance{}, err
	}
	return balanceOf(entries, pending), nil
}

func balanceOf(entries []Entry, pending decimal.Decimal) Balance {
	in, out := Totals(entries)
	total := in.Sub(out)
	return Balance{
		TotalIn:            in,
		TotalOut:           out,
		TotalBalance:       total,
		TotalWithdrawals:   PayoutWithdrawals(entries),
		PendingWithdrawals: pending,
		AvailableBalance:   total.Sub(pending),
	}
}
