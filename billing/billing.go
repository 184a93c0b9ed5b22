/*
Package billing describes the payment and payout records owned by the booking
subsystem.

PURPOSE:
  The ledger does not own these records. It only reads them to turn a
  successful payment or an approved payout into a ledger entry, and to learn
  how much is still locked in pending payout requests.

OWNERSHIP CHAIN:
  Payment -> Booking -> Property -> Owner (the tenant)

  Sources resolve the chain when loading a payment, so a Payment arrives with
  PropertyID and OwnerID already filled in. Tenant() refuses payments whose
  chain is broken.

IMPLEMENTATIONS:
  - store/sqlite/billing.go: tables shared with the booking subsystem

SEE ALSO:
  - syncer/syncer.go: Consumes PaymentSource and PayoutSource
  - withdraw/withdraw.go: Reads pending payout totals
*/
package billing

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kosku/ledger-engine/ledger"
)

// ErrNoOwner is returned when a payment cannot be traced to a tenant.
var ErrNoOwner = errors.New("payment has no owning tenant")

// =============================================================================
// PAYMENTS
// =============================================================================

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "PENDING"
	PaymentSuccess PaymentStatus = "SUCCESS"
	PaymentFailed  PaymentStatus = "FAILED"
	PaymentExpired PaymentStatus = "EXPIRED"
)

type Payment struct {
	ID              string
	Status          PaymentStatus
	Amount          decimal.Decimal
	TransactionTime time.Time // zero until the gateway settles

	BookingID    string
	PropertyID   ledger.PropertyID
	PropertyName string
	RoomName     string
	GuestName    string
	OwnerID      ledger.TenantID

	CreatedAt time.Time
}

// Tenant resolves the owning tenant through the booking -> property chain.
func (p Payment) Tenant() (ledger.TenantID, error) {
	if p.OwnerID == "" {
		return "", ErrNoOwner
	}
	return p.OwnerID, nil
}

// EffectiveDate is the transaction time, or creation time for legacy rows
// settled before the gateway recorded it.
func (p Payment) EffectiveDate() time.Time {
	if !p.TransactionTime.IsZero() {
		return p.TransactionTime
	}
	return p.CreatedAt
}

// PaymentSource is read-only access to payments.
type PaymentSource interface {
	// GetPayment returns nil, nil when the payment does not exist.
	GetPayment(ctx context.Context, id string) (*Payment, error)

	// ListPayments returns payments in status for tenant, or for every
	// tenant when tenant is nil. Oldest first.
	ListPayments(ctx context.Context, tenant *ledger.TenantID, status PaymentStatus) ([]Payment, error)
}

// =============================================================================
// PAYOUTS
// =============================================================================

type PayoutStatus string

const (
	PayoutPending   PayoutStatus = "PENDING"
	PayoutApproved  PayoutStatus = "APPROVED"
	PayoutCompleted PayoutStatus = "COMPLETED"
	PayoutRejected  PayoutStatus = "REJECTED"
)

// Posted reports whether a payout in this status has left the tenant's funds.
func (s PayoutStatus) Posted() bool { return s == PayoutApproved || s == PayoutCompleted }

type Payout struct {
	ID            string
	TenantID      ledger.TenantID
	Status        PayoutStatus
	Amount        decimal.Decimal
	BankName      string
	AccountNumber string
	AccountHolder string
	RequestedAt   time.Time
	ProcessedAt   time.Time // zero while pending
}

// EffectiveDate is the processed time, or the request time if unset.
func (p Payout) EffectiveDate() time.Time {
	if !p.ProcessedAt.IsZero() {
		return p.ProcessedAt
	}
	return p.RequestedAt
}

// PayoutSource is read-only access to payouts.
type PayoutSource interface {
	// GetPayout returns nil, nil when the payout does not exist.
	GetPayout(ctx context.Context, id string) (*Payout, error)

	// ListPayouts returns payouts in any of statuses for tenant, or for
	// every tenant when tenant is nil. Oldest first.
	ListPayouts(ctx context.Context, tenant *ledger.TenantID, statuses ...PayoutStatus) ([]Payout, error)

	// SumPayouts totals payouts in any of statuses for tenant.
	SumPayouts(ctx context.Context, tenant ledger.TenantID, statuses ...PayoutStatus) (decimal.Decimal, error)
}

// PendingPayouts adapts a PayoutSource to ledger.PayoutAggregate.
type PendingPayouts struct {
	Source PayoutSource
}

func (p PendingPayouts) PendingPayoutTotal(ctx context.Context, tenant ledger.TenantID) (decimal.Decimal, error) {
	return p.Source.SumPayouts(ctx, tenant, PayoutPending)
}
