/*
Package syncer turns booking-subsystem events into ledger entries.

PURPOSE:
  A payment reaching SUCCESS becomes an IN entry on Rent Income. A payout
  reaching APPROVED or COMPLETED becomes an OUT entry on Fund Withdrawal.
  Each external record produces at most one entry, however often its event
  is delivered.

FAILURE MODEL:
  The hooks (OnPaymentSuccess, OnPayoutApproved, OnPayoutCompleted) never
  return an error. They run inside the payment/payout flow, which must not
  fail because bookkeeping did. Failures are logged with the origin id and
  picked up later by batch reconciliation.

  Batch reconciliation walks records sequentially. A bad record is logged
  and counted; the batch continues.

IDEMPOTENCY:
  Delegated to ledger.Service.RecordExternalEntry, which relies on the
  store's unique (tenant, origin_kind, origin_id) index. Both a retried
  webhook and a later batch run are no-ops for an already recorded record.

SEE ALSO:
  - ledger/sync.go: RecordExternalEntry, MissingOrigins
  - api/hooks.go: HTTP entry points for the hooks
  - api/scheduler.go: Periodic batch reconciliation
*/
package syncer

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/kosku/ledger-engine/billing"
	"github.com/kosku/ledger-engine/ledger"
)

// Syncer connects billing sources to the ledger.
type Syncer struct {
	Ledger   *ledger.Service
	Payments billing.PaymentSource
	Payouts  billing.PayoutSource
	Logger   *log.Logger
}

// New creates a Syncer logging to the standard logger.
func New(svc *ledger.Service, payments billing.PaymentSource, payouts billing.PayoutSource) *Syncer {
	return &Syncer{
		Ledger:   svc,
		Payments: payments,
		Payouts:  payouts,
		Logger:   log.Default(),
	}
}

func (s *Syncer) logf(format string, args ...any) {
	l := s.Logger
	if l == nil {
		l = log.Default()
	}
	l.Printf("[Sync] "+format, args...)
}

// Result summarizes a batch reconciliation run.
type Result struct {
	Processed int `json:"processed"`
	Synced    int `json:"synced"`
	Errors    int `json:"errors"`
}

// =============================================================================
// PAYMENTS
// =============================================================================

// OnPaymentSuccess records the rent income for a settled payment.
func (s *Syncer) OnPaymentSuccess(ctx context.Context, paymentID string) {
	p, err := s.Payments.GetPayment(ctx, paymentID)
	if err != nil {
		s.logf("payment %s: load failed: %v", paymentID, err)
		return
	}
	if p == nil {
		s.logf("payment %s: not found", paymentID)
		return
	}
	created, err := s.syncPayment(ctx, *p)
	if err != nil {
		s.logf("payment %s: %v", paymentID, err)
		return
	}
	if created {
		s.logf("payment %s: recorded %s", paymentID, p.Amount)
	}
}

func (s *Syncer) syncPayment(ctx context.Context, p billing.Payment) (bool, error) {
	if p.Status != billing.PaymentSuccess {
		return false, fmt.Errorf("status is %s, not %s", p.Status, billing.PaymentSuccess)
	}
	tenant, err := p.Tenant()
	if err != nil {
		return false, err
	}
	_, created, err := s.Ledger.RecordExternalEntry(ctx, tenant, ledger.ExternalEntry{
		Kind:       ledger.OriginPayment,
		OriginID:   p.ID,
		Account:    ledger.SystemRentIncome,
		Direction:  ledger.DirectionIn,
		Amount:     p.Amount,
		Date:       p.EffectiveDate(),
		PropertyID: p.PropertyID,
		Note:       paymentNote(p),
	})
	return created, err
}

func paymentNote(p billing.Payment) string {
	var parts []string
	for _, s := range []string{p.GuestName, p.RoomName, p.PropertyName} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return "Rent payment"
	}
	return "Rent payment: " + strings.Join(parts, " / ")
}

// SyncExistingPayments replays every SUCCESS payment through the idempotent
// path. A nil tenant means all tenants.
func (s *Syncer) SyncExistingPayments(ctx context.Context, tenant *ledger.TenantID) (Result, error) {
	payments, err := s.Payments.ListPayments(ctx, tenant, billing.PaymentSuccess)
	if err != nil {
		return Result{}, fmt.Errorf("listing payments: %w", err)
	}

	var res Result
	for _, p := range payments {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Processed++
		created, err := s.syncPayment(ctx, p)
		if err != nil {
			res.Errors++
			s.logf("payment %s: %v", p.ID, err)
			continue
		}
		if created {
			res.Synced++
		}
	}
	s.logf("payments: processed=%d synced=%d errors=%d", res.Processed, res.Synced, res.Errors)
	return res, nil
}

// =============================================================================
// PAYOUTS
// =============================================================================

// OnPayoutApproved records the withdrawal for an approved payout.
func (s *Syncer) OnPayoutApproved(ctx context.Context, payoutID string) {
	s.onPayout(ctx, payoutID)
}

// OnPayoutCompleted is a no-op when the approval was already recorded.
func (s *Syncer) OnPayoutCompleted(ctx context.Context, payoutID string) {
	s.onPayout(ctx, payoutID)
}

func (s *Syncer) onPayout(ctx context.Context, payoutID string) {
	p, err := s.Payouts.GetPayout(ctx, payoutID)
	if err != nil {
		s.logf("payout %s: load failed: %v", payoutID, err)
		return
	}
	if p == nil {
		s.logf("payout %s: not found", payoutID)
		return
	}
	created, err := s.syncPayout(ctx, *p)
	if err != nil {
		s.logf("payout %s: %v", payoutID, err)
		return
	}
	if created {
		s.logf("payout %s: recorded %s", payoutID, p.Amount)
	}
}

func (s *Syncer) syncPayout(ctx context.Context, p billing.Payout) (bool, error) {
	if !p.Status.Posted() {
		return false, fmt.Errorf("status is %s, not APPROVED or COMPLETED", p.Status)
	}
	_, created, err := s.Ledger.RecordExternalEntry(ctx, p.TenantID, ledger.ExternalEntry{
		Kind:      ledger.OriginPayout,
		OriginID:  p.ID,
		Account:   ledger.SystemFundWithdrawal,
		Direction: ledger.DirectionOut,
		Amount:    p.Amount,
		Date:      p.EffectiveDate(),
		Note:      payoutNote(p),
	})
	return created, err
}

func payoutNote(p billing.Payout) string {
	if p.BankName == "" {
		return "Fund withdrawal"
	}
	return fmt.Sprintf("Fund withdrawal to %s %s", p.BankName, maskAccount(p.AccountNumber))
}

// maskAccount keeps the last four characters.
func maskAccount(number string) string {
	r := []rune(number)
	if len(r) <= 4 {
		return number
	}
	return strings.Repeat("*", len(r)-4) + string(r[len(r)-4:])
}

// SyncExistingPayouts replays every APPROVED or COMPLETED payout. A nil
// tenant means all tenants.
func (s *Syncer) SyncExistingPayouts(ctx context.Context, tenant *ledger.TenantID) (Result, error) {
	payouts, err := s.Payouts.ListPayouts(ctx, tenant, billing.PayoutApproved, billing.PayoutCompleted)
	if err != nil {
		return Result{}, fmt.Errorf("listing payouts: %w", err)
	}

	var res Result
	for _, p := range payouts {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Processed++
		created, err := s.syncPayout(ctx, p)
		if err != nil {
			res.Errors++
			s.logf("payout %s: %v", p.ID, err)
			continue
		}
		if created {
			res.Synced++
		}
	}
	s.logf("payouts: processed=%d synced=%d errors=%d", res.Processed, res.Synced, res.Errors)
	return res, nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// Report lists external records that have no ledger entry yet.
type Report struct {
	MissingPayments []string `json:"missingPayments"`
	MissingPayouts  []string `json:"missingPayouts"`
	InSync          bool     `json:"inSync"`
}

// ValidateSync compares external records against correlated entries.
// Read-only.
func (s *Syncer) ValidateSync(ctx context.Context, tenant ledger.TenantID) (Report, error) {
	if err := tenant.Validate(); err != nil {
		return Report{}, err
	}
	payments, err := s.Payments.ListPayments(ctx, &tenant, billing.PaymentSuccess)
	if err != nil {
		return Report{}, fmt.Errorf("listing payments: %w", err)
	}
	paymentIDs := make([]string, 0, len(payments))
	for _, p := range payments {
		paymentIDs = append(paymentIDs, p.ID)
	}

	payouts, err := s.Payouts.ListPayouts(ctx, &tenant, billing.PayoutApproved, billing.PayoutCompleted)
	if err != nil {
		return Report{}, fmt.Errorf("listing payouts: %w", err)
	}
	payoutIDs := make([]string, 0, len(payouts))
	for _, p := range payouts {
		payoutIDs = append(payoutIDs, p.ID)
	}

	var r Report
	if r.MissingPayments, err = s.Ledger.MissingOrigins(ctx, tenant, ledger.OriginPayment, paymentIDs); err != nil {
		return Report{}, err
	}
	if r.MissingPayouts, err = s.Ledger.MissingOrigins(ctx, tenant, ledger.OriginPayout, payoutIDs); err != nil {
		return Report{}, err
	}
	r.InSync = len(r.MissingPayments) == 0 && len(r.MissingPayouts) == 0
	return r, nil
}
