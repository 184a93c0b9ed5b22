/*
Package ledger provides the bookkeeping engine for a boarding-house operator.

PURPOSE:
  Every tenant (the kos operator) owns a chart of accounts and an
  append-mostly log of cash movements. Payments collected from residents and
  payouts withdrawn by the operator are synchronized into that log exactly
  once; operators may also record their own manual income and expenses.
  Every reported figure (balance, summary, breakdown, time series) is
  recomputed from the entry set on demand. Nothing is cached.

KEY CONCEPTS IN THIS FILE (types.go):
  - TenantID: explicit partition key, first argument of every store/service call
  - Account: a named INCOME / EXPENSE / OTHER bucket
  - Entry: one recorded IN or OUT movement, correlated by (OriginKind, OriginID)
  - System accounts: "Rent Income" and "Fund Withdrawal", provisioned per tenant

DESIGN PRINCIPLES:
  1. Facts are immutable: PAYMENT / PAYOUT / ADJUSTMENT entries never change
  2. Idempotency lives in storage: (tenant, origin kind, origin id) is unique
  3. Precision: amounts use decimal.Decimal, never float64
  4. Isolation is explicit: no ambient tenant, ever

SEE ALSO:
  - store.go: Persistence contracts
  - ledger.go: Service wiring
  - balance.go, analytics.go: Derived computations
*/
package ledger

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type TenantID string
type AccountID string
type EntryID string
type PropertyID string

// Validate rejects the zero tenant. Stores call this before touching data.
func (t TenantID) Validate() error {
	if strings.TrimSpace(string(t)) == "" {
		return ErrTenantRequired
	}
	return nil
}

// AccountNameKey is the form account names are compared in: trimmed and
// lower-cased with Unicode case mapping.
func AccountNameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// AuthorSystem marks entries written by a sync adapter.
const AuthorSystem = "SYSTEM"

// =============================================================================
// ENUMS
// =============================================================================

type AccountType string

const (
	AccountIncome  AccountType = "INCOME"
	AccountExpense AccountType = "EXPENSE"
	AccountOther   AccountType = "OTHER"
)

func (t AccountType) Valid() bool {
	switch t {
	case AccountIncome, AccountExpense, AccountOther:
		return true
	}
	return false
}

type Direction string

const (
	DirectionIn  Direction = "IN"
	DirectionOut Direction = "OUT"
)

func (d Direction) Valid() bool { return d == DirectionIn || d == DirectionOut }

type OriginKind string

const (
	OriginPayment    OriginKind = "PAYMENT"
	OriginPayout     OriginKind = "PAYOUT"
	OriginManual     OriginKind = "MANUAL"
	OriginAdjustment OriginKind = "ADJUSTMENT"
)

func (o OriginKind) Valid() bool {
	switch o {
	case OriginPayment, OriginPayout, OriginManual, OriginAdjustment:
		return true
	}
	return false
}

// Mutable reports whether entries of this origin may be edited or deleted.
func (o OriginKind) Mutable() bool { return o == OriginManual }

// Correlated reports whether (origin kind, origin id) must be unique.
func (o OriginKind) Correlated() bool { return o == OriginPayment || o == OriginPayout }

// =============================================================================
// ACCOUNT
// =============================================================================

type Account struct {
	ID         AccountID
	TenantID   TenantID
	Name       string
	Type       AccountType
	Code       string
	IsSystem   bool
	IsArchived bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// AccountSummary decorates an account with figures computed at query time.
type AccountSummary struct {
	Account
	EntriesCount int
	TotalAmount  decimal.Decimal // IN adds, OUT subtracts
}

// =============================================================================
// ENTRY
// =============================================================================

type Entry struct {
	ID         EntryID
	TenantID   TenantID
	AccountID  AccountID
	Direction  Direction
	Amount     decimal.Decimal // always positive
	Date       time.Time       // effective date, distinct from CreatedAt
	Note       string
	OriginKind OriginKind
	OriginID   string
	PropertyID PropertyID
	AuthorID   string
	CreatedAt  time.Time
	UpdatedAt  time.Time

	// Populated by list queries only.
	AccountName string
	AccountType AccountType
}

// Signed returns the amount with IN positive and OUT negative.
func (e Entry) Signed() decimal.Decimal {
	if e.Direction == DirectionOut {
		return e.Amount.Neg()
	}
	return e.Amount
}

// =============================================================================
// SYSTEM ACCOUNTS
// =============================================================================

type SystemAccountKey string

const (
	SystemRentIncome     SystemAccountKey = "rent_income"
	SystemFundWithdrawal SystemAccountKey = "fund_withdrawal"
)

// SystemAccountSpec is the fixed shape of a platform-provisioned account.
type SystemAccountSpec struct {
	Key  SystemAccountKey
	Name string
	Type AccountType
	Code string
}

// Fund Withdrawal is OTHER so payout OUT entries pass direction validation.
var systemAccounts = []SystemAccountSpec{
	{Key: SystemRentIncome, Name: "Rent Income", Type: AccountIncome, Code: "RENT"},
	{Key: SystemFundWithdrawal, Name: "Fund Withdrawal", Type: AccountOther, Code: "WITHDRAW"},
}

// SystemAccounts returns the specs provisioned for every tenant.
func SystemAccounts() []SystemAccountSpec {
	out := make([]SystemAccountSpec, len(systemAccounts))
	copy(out, systemAccounts)
	return out
}

func systemAccountSpec(key SystemAccountKey) (SystemAccountSpec, bool) {
	for _, s := range systemAccounts {
		if s.Key == key {
			return s, true
		}
	}
	return SystemAccountSpec{}, false
}
