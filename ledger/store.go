/*
store.go - Persistence contracts for accounts and entries

PURPOSE:
  Defines the interface between the ledger rules and the database. Exactly two
  durable structures exist: accounts and entries. There are no balance
  columns, snapshots or materialized views.

TENANT ISOLATION:
  Every method takes the tenant as its first argument after ctx.
  Implementations MUST return ErrTenantRequired for an empty tenant and MUST
  scope every read and write to that tenant. There is no lower-level
  isolation below this contract.

IDEMPOTENCY:
  InsertEntry MUST enforce uniqueness of (tenant, origin kind, origin id) for
  PAYMENT and PAYOUT entries at the storage layer (unique index or an
  equivalent atomic check) and return ErrDuplicateOrigin on conflict. A
  find-before-insert in application code is not sufficient under concurrent
  duplicate delivery.

IMMUTABILITY:
  UpdateEntry and DeleteEntry MUST refuse non-MANUAL rows with
  ErrImmutableEntry, even if the caller skipped the service-level check.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite
  - ledger/store/memory.go: In-memory for testing

SEE ALSO:
  - ledger.go: Service using these contracts
*/
package ledger

import (
	"context"
	"time"
)

// =============================================================================
// ACCOUNT STORE
// =============================================================================

type AccountStore interface {
	// CreateAccount persists a new account. Returns ErrDuplicateAccountName if
	// the tenant already has an account with the same case-insensitive name.
	CreateAccount(ctx context.Context, tenant TenantID, a Account) error

	// GetAccount returns nil, nil when the account does not exist.
	GetAccount(ctx context.Context, tenant TenantID, id AccountID) (*Account, error)

	// FindAccountByName matches case-insensitively. Returns nil, nil if absent.
	FindAccountByName(ctx context.Context, tenant TenantID, name string) (*Account, error)

	// SetAccountArchived flips the archived flag. Returns ErrSystemAccount for
	// system accounts.
	SetAccountArchived(ctx context.Context, tenant TenantID, id AccountID, archived bool, at time.Time) error

	// ListAccounts returns accounts with entry count and signed total.
	ListAccounts(ctx context.Context, tenant TenantID, filter AccountFilter) ([]AccountSummary, error)
}

// AccountFilter narrows ListAccounts.
type AccountFilter struct {
	Type            AccountType // empty = any
	IncludeArchived bool
	Search          string // case-insensitive substring of name or code
}

// =============================================================================
// ENTRY STORE
// =============================================================================

type EntryStore interface {
	// InsertEntry appends an entry. Returns ErrDuplicateOrigin when a
	// PAYMENT/PAYOUT entry with the same origin already exists.
	InsertEntry(ctx context.Context, tenant TenantID, e Entry) error

	// GetEntry returns nil, nil when the entry does not exist.
	GetEntry(ctx context.Context, tenant TenantID, id EntryID) (*Entry, error)

	// FindEntryByOrigin returns nil, nil when no entry is correlated.
	FindEntryByOrigin(ctx context.Context, tenant TenantID, kind OriginKind, originID string) (*Entry, error)

	// UpdateEntry rewrites a MANUAL entry. Returns ErrImmutableEntry otherwise.
	UpdateEntry(ctx context.Context, tenant TenantID, e Entry) error

	// DeleteEntry removes a MANUAL entry. Returns ErrImmutableEntry otherwise.
	DeleteEntry(ctx context.Context, tenant TenantID, id EntryID) error

	// ListEntries returns one page of entries plus the total match count.
	ListEntries(ctx context.Context, tenant TenantID, filter EntryFilter) (EntryPage, error)

	// LoadEntries returns every entry matching q, ordered by date then creation.
	LoadEntries(ctx context.Context, tenant TenantID, q EntryQuery) ([]Entry, error)

	// OriginIDs returns all origin ids of the given kind recorded for tenant.
	OriginIDs(ctx context.Context, tenant TenantID, kind OriginKind) ([]string, error)
}

// EntryQuery selects entries for aggregation.
type EntryQuery struct {
	Period      Period
	AccountIDs  []AccountID  // empty = any
	OriginKinds []OriginKind // empty = any
}

// Store is the full persistence surface the ledger needs.
type Store interface {
	AccountStore
	EntryStore
}
