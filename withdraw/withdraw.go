/*
Package withdraw answers "how much collected rent can be paid out".

PURPOSE:
  A deliberately narrow read-model over the ledger. Only two kinds of
  entry count:

    collected    = Σ(IN, origin PAYMENT, on Rent Income)
    withdrawn    = Σ(OUT, origin PAYOUT)
    withdrawable = collected − withdrawn
    available    = withdrawable − pending payout requests

  Manual entries and user accounts never move this number, so an owner who
  books a large expense still sees the rent they can take home.

  withdrawn is NOT restricted to the Rent Income account. Payouts post OUT
  onto Fund Withdrawal, and Rent Income is INCOME so it can never carry an
  OUT entry; a Rent-Income-only rule would always read zero. Counting
  PAYOUT OUT entries on any account keeps withdrawn equal to the ledger's
  totalWithdrawals. Collected stays restricted to Rent Income.

SEE ALSO:
  - ledger/balance.go: The full bookkeeping balance
  - syncer/syncer.go: Writes the PAYMENT and PAYOUT entries read here
*/
package withdraw

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/kosku/ledger-engine/billing"
	"github.com/kosku/ledger-engine/ledger"
)

// DefaultLimit is the breakdown size when none is configured.
const DefaultLimit = 10

// Service computes withdrawable balances.
type Service struct {
	Ledger   *ledger.Service
	Payments billing.PaymentSource
	Payouts  billing.PayoutSource

	// Limit caps each list in the balance breakdown.
	Limit int
}

func New(svc *ledger.Service, payments billing.PaymentSource, payouts billing.PayoutSource) *Service {
	return &Service{Ledger: svc, Payments: payments, Payouts: payouts, Limit: DefaultLimit}
}

type Balance struct {
	Collected           decimal.Decimal
	Withdrawn           decimal.Decimal
	WithdrawableBalance decimal.Decimal
	PendingWithdrawals  decimal.Decimal
	AvailableBalance    decimal.Decimal
}

// GetWithdrawableBalance computes the rent-only balance for tenant.
func (s *Service) GetWithdrawableBalance(ctx context.Context, tenant ledger.TenantID) (Balance, error) {
	b, _, _, err := s.load(ctx, tenant)
	return b, err
}

// ValidateWithdrawRequest accepts amount when 0 < amount ≤ available. The
// returned error embeds the available balance for display.
func (s *Service) ValidateWithdrawRequest(ctx context.Context, tenant ledger.TenantID, amount decimal.Decimal) (Balance, error) {
	if !amount.IsPositive() {
		return Balance{}, &ledger.ValidationError{Field: "amount", Message: "must be greater than 0"}
	}
	b, err := s.GetWithdrawableBalance(ctx, tenant)
	if err != nil {
		return Balance{}, err
	}
	if amount.GreaterThan(b.AvailableBalance) {
		return b, &ledger.InsufficientBalanceError{Available: b.AvailableBalance, Requested: amount}
	}
	return b, nil
}

// load returns the balance together with the entries it was built from,
// newest first.
func (s *Service) load(ctx context.Context, tenant ledger.TenantID) (Balance, []ledger.Entry, []ledger.Entry, error) {
	if err := tenant.Validate(); err != nil {
		return Balance{}, nil, nil, err
	}
	rent, err := s.Ledger.LookupSystemAccount(ctx, tenant, ledger.SystemRentIncome)
	if err != nil {
		return Balance{}, nil, nil, err
	}
	entries, err := s.Ledger.Store.LoadEntries(ctx, tenant, ledger.EntryQuery{
		OriginKinds: []ledger.OriginKind{ledger.OriginPayment, ledger.OriginPayout},
	})
	if err != nil {
		return Balance{}, nil, nil, err
	}
	pending, err := s.Ledger.Payouts.PendingPayoutTotal(ctx, tenant)
	if err != nil {
		return Balance{}, nil, nil, err
	}

	var payments, payouts []ledger.Entry
	for _, e := range entries {
		switch {
		case e.OriginKind == ledger.OriginPayment && e.Direction == ledger.DirectionIn &&
			rent != nil && e.AccountID == rent.ID:
			payments = append(payments, e)
		case e.OriginKind == ledger.OriginPayout && e.Direction == ledger.DirectionOut:
			payouts = append(payouts, e)
		}
	}

	collected, _ := ledger.Totals(payments)
	withdrawn := ledger.PayoutWithdrawals(payouts)
	withdrawable := collected.Sub(withdrawn)
	b := Balance{
		Collected:           collected,
		Withdrawn:           withdrawn,
		WithdrawableBalance: withdrawable,
		PendingWithdrawals:  pending,
		AvailableBalance:    withdrawable.Sub(pending),
	}

	newestFirst(payments)
	newestFirst(payouts)
	return b, payments, payouts, nil
}

func newestFirst(entries []ledger.Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].Date.Equal(entries[j].Date) {
			return entries[i].Date.After(entries[j].Date)
		}
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
}
