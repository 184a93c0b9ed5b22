/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements ledger.Store (accounts + entries) and the billing sources
  (payments, payouts) using SQLite. The same schema ports to PostgreSQL with
  only dialect changes.

KEY TABLES:
  accounts:  Chart of accounts, name unique per tenant (case-folded)
  entries:   Transaction log, the only source of every balance
  properties, bookings, payments, payouts: owned by the booking subsystem,
             read-only from the ledger's point of view (see billing.go)

INDEXES:
  - idx_entries_origin: UNIQUE (tenant_id, origin_kind, origin_id) for
    PAYMENT/PAYOUT rows. This is the idempotency guarantee. A retried
    webhook racing the original delivery loses here, not in Go code.
  - idx_accounts_tenant_name_key: UNIQUE (tenant_id, name_key). name_key is
    ledger.AccountNameKey(name), folded in Go because NOCASE only folds ASCII
  - idx_entries_tenant_date: period scans (hot path)

IMMUTABILITY:
  UPDATE and DELETE on entries carry `AND origin_kind = 'MANUAL'` so a
  synced fact cannot be changed even if a caller skips the service check.

CONCURRENCY:
  No Go-level lock. SQLite serializes writers; WAL lets readers proceed and
  busy_timeout makes concurrent writers wait instead of failing. ":memory:"
  databases are pinned to one connection because each new connection would
  otherwise open an empty database.

USAGE:
  store, err := sqlite.New("./data/ledger.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc := ledger.NewService(store, billing.PendingPayouts{Source: store})

SEE ALSO:
  - ledger/store.go: Interface definitions
  - ledger/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/kosku/ledger-engine/ledger"
)

// timeFormat is fixed-width so stored timestamps sort lexicographically.
const timeFormat = "2006-01-02T15:04:05.000000Z07:00"

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Chart of accounts
	CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		name TEXT NOT NULL COLLATE NOCASE,
		name_key TEXT NOT NULL,
		type TEXT NOT NULL CHECK (type IN ('INCOME', 'EXPENSE', 'OTHER')),
		code TEXT,
		is_system INTEGER NOT NULL DEFAULT 0,
		is_archived INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Entries (append-mostly transaction log)
	CREATE TABLE IF NOT EXISTS entries (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		account_id TEXT NOT NULL REFERENCES accounts(id),
		direction TEXT NOT NULL CHECK (direction IN ('IN', 'OUT')),
		amount TEXT NOT NULL,
		entry_date TEXT NOT NULL,
		note TEXT,
		origin_kind TEXT NOT NULL CHECK (origin_kind IN ('PAYMENT', 'PAYOUT', 'MANUAL', 'ADJUSTMENT')),
		origin_id TEXT NOT NULL,
		property_id TEXT,
		author_id TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- CRITICAL: one entry per external event
	CREATE UNIQUE INDEX IF NOT EXISTS idx_entries_origin
		ON entries(tenant_id, origin_kind, origin_id)
		WHERE origin_kind IN ('PAYMENT', 'PAYOUT');

	CREATE INDEX IF NOT EXISTS idx_entries_tenant_date
		ON entries(tenant_id, entry_date);
	CREATE INDEX IF NOT EXISTS idx_entries_tenant_account
		ON entries(tenant_id, account_id);
	CREATE INDEX IF NOT EXISTS idx_entries_tenant_property
		ON entries(tenant_id, property_id) WHERE property_id IS NOT NULL;
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	if err := s.migrateAccountNameKey(); err != nil {
		return err
	}
	_, err := s.db.Exec(billingSchema)
	return err
}

// migrateAccountNameKey upgrades databases created before name_key existed:
// adds the column, backfills it, and moves the unique index onto it.
func (s *Store) migrateAccountNameKey() error {
	var n int
	if err := s.db.QueryRow(
		`SELECT COUNT(*) FROM pragma_table_info('accounts') WHERE name = 'name_key'`,
	).Scan(&n); err != nil {
		return err
	}
	if n == 0 {
		if _, err := s.db.Exec(`ALTER TABLE accounts ADD COLUMN name_key TEXT NOT NULL DEFAULT ''`); err != nil {
			return err
		}
		rows, err := s.db.Query(`SELECT id, name FROM accounts`)
		if err != nil {
			return err
		}
		keys := map[string]string{}
		for rows.Next() {
			var id, name string
			if err := rows.Scan(&id, &name); err != nil {
				rows.Close()
				return err
			}
			keys[id] = ledger.AccountNameKey(name)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}
		for id, key := range keys {
			if _, err := s.db.Exec(`UPDATE accounts SET name_key = ? WHERE id = ?`, key, id); err != nil {
				return err
			}
		}
	}
	_, err := s.db.Exec(`
	DROP INDEX IF EXISTS idx_accounts_tenant_name;
	CREATE UNIQUE INDEX IF NOT EXISTS idx_accounts_tenant_name_key
		ON accounts(tenant_id, name_key);`)
	return err
}

// =============================================================================
// ACCOUNT STORE (ledger.AccountStore interface)
// =============================================================================

const accountColumns = `id, tenant_id, name, type, code, is_system, is_archived, created_at, updated_at`

func (s *Store) CreateAccount(ctx context.Context, tenant ledger.TenantID, a ledger.Account) error {
	if err := tenant.Validate(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (`+accountColumns+`, name_key)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, tenant, a.Name, a.Type, nullString(a.Code), a.IsSystem, a.IsArchived,
		formatTime(a.CreatedAt), formatTime(a.UpdatedAt), ledger.AccountNameKey(a.Name),
	)
	if err != nil {
		if isUniqueConstraintError(err) && strings.Contains(err.Error(), "accounts.name_key") {
			return ledger.ErrDuplicateAccountName
		}
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

func (s *Store) GetAccount(ctx context.Context, tenant ledger.TenantID, id ledger.AccountID) (*ledger.Account, error) {
	if err := tenant.Validate(); err != nil {
		return nil, err
	}
	accounts, err := s.queryAccounts(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE tenant_id = ? AND id = ?`, tenant, id)
	if err != nil || len(accounts) == 0 {
		return nil, err
	}
	return &accounts[0], nil
}

func (s *Store) FindAccountByName(ctx context.Context, tenant ledger.TenantID, name string) (*ledger.Account, error) {
	if err := tenant.Validate(); err != nil {
		return nil, err
	}
	accounts, err := s.queryAccounts(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE tenant_id = ? AND name_key = ?`,
		tenant, ledger.AccountNameKey(name))
	if err != nil || len(accounts) == 0 {
		return nil, err
	}
	return &accounts[0], nil
}

func (s *Store) SetAccountArchived(ctx context.Context, tenant ledger.TenantID, id ledger.AccountID, archived bool, at time.Time) error {
	if err := tenant.Validate(); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE accounts SET is_archived = ?, updated_at = ?
		WHERE tenant_id = ? AND id = ? AND is_system = 0`,
		archived, formatTime(at), tenant, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		a, err := s.GetAccount(ctx, tenant, id)
		if err != nil {
			return err
		}
		if a == nil {
			return &ledger.NotFoundError{Kind: "account", ID: string(id)}
		}
		return ledger.ErrSystemAccount
	}
	return nil
}

func (s *Store) ListAccounts(ctx context.Context, tenant ledger.TenantID, filter ledger.AccountFilter) ([]ledger.AccountSummary, error) {
	if err := tenant.Validate(); err != nil {
		return nil, err
	}
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE tenant_id = ?`
	args := []any{tenant}
	if filter.Type != "" {
		query += ` AND type = ?`
		args = append(args, filter.Type)
	}
	if !filter.IncludeArchived {
		query += ` AND is_archived = 0`
	}
	if q := strings.TrimSpace(filter.Search); q != "" {
		query += ` AND (name LIKE ? ESCAPE '\' OR COALESCE(code, '') LIKE ? ESCAPE '\')`
		pattern := likePattern(q)
		args = append(args, pattern, pattern)
	}
	query += ` ORDER BY name ASC`

	accounts, err := s.queryAccounts(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	type totals struct {
		count int
		net   decimal.Decimal
	}
	byAccount := make(map[ledger.AccountID]*totals)
	rows, err := s.db.QueryContext(ctx,
		`SELECT account_id, direction, amount FROM entries WHERE tenant_id = ?`, tenant)
	if err != nil {
		return nil, fmt.Errorf("failed to query account totals: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id        ledger.AccountID
			direction ledger.Direction
			amount    string
		)
		if err := rows.Scan(&id, &direction, &amount); err != nil {
			return nil, fmt.Errorf("failed to scan account totals: %w", err)
		}
		d, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("invalid amount %q: %w", amount, err)
		}
		t := byAccount[id]
		if t == nil {
			t = &totals{net: decimal.Zero}
			byAccount[id] = t
		}
		t.count++
		if direction == ledger.DirectionOut {
			d = d.Neg()
		}
		t.net = t.net.Add(d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result := make([]ledger.AccountSummary, 0, len(accounts))
	for _, a := range accounts {
		sum := ledger.AccountSummary{Account: a, TotalAmount: decimal.Zero}
		if t := byAccount[a.ID]; t != nil {
			sum.EntriesCount = t.count
			sum.TotalAmount = t.net
		}
		result = append(result, sum)
	}
	return result, nil
}

func (s *Store) queryAccounts(ctx context.Context, query string, args ...any) ([]ledger.Account, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []ledger.Account
	for rows.Next() {
		var (
			a                    ledger.Account
			code                 sql.NullString
			createdAt, updatedAt string
		)
		if err := rows.Scan(&a.ID, &a.TenantID, &a.Name, &a.Type, &code,
			&a.IsSystem, &a.IsArchived, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		a.Code = code.String
		a.CreatedAt = parseTime(createdAt)
		a.UpdatedAt = parseTime(updatedAt)
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// =============================================================================
// ENTRY STORE (ledger.EntryStore interface)
// =============================================================================

const entryColumns = `
	e.id, e.tenant_id, e.account_id, e.direction, e.amount, e.entry_date, e.note,
	e.origin_kind, e.origin_id, e.property_id, e.author_id, e.created_at, e.updated_at,
	a.name, a.type`

const entryFrom = ` FROM entries e JOIN accounts a ON a.id = e.account_id `

func (s *Store) InsertEntry(ctx context.Context, tenant ledger.TenantID, e ledger.Entry) error {
	if err := tenant.Validate(); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO entries
		(id, tenant_id, account_id, direction, amount, entry_date, note,
		 origin_kind, origin_id, property_id, author_id, created_at, updated_at)
		SELECT ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?
		WHERE EXISTS (SELECT 1 FROM accounts WHERE tenant_id = ? AND id = ?)`,
		e.ID, tenant, e.AccountID, e.Direction, e.Amount.String(), formatTime(e.Date),
		nullString(e.Note), e.OriginKind, e.OriginID, nullString(string(e.PropertyID)),
		e.AuthorID, formatTime(e.CreatedAt), formatTime(e.UpdatedAt),
		tenant, e.AccountID,
	)
	if err != nil {
		if isUniqueConstraintError(err) && strings.Contains(err.Error(), "origin_kind") {
			return ledger.ErrDuplicateOrigin
		}
		return fmt.Errorf("failed to insert entry: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("account %s does not exist", e.AccountID)
	}
	return nil
}

func (s *Store) GetEntry(ctx context.Context, tenant ledger.TenantID, id ledger.EntryID) (*ledger.Entry, error) {
	if err := tenant.Validate(); err != nil {
		return nil, err
	}
	entries, err := s.queryEntries(ctx,
		`SELECT `+entryColumns+entryFrom+`WHERE e.tenant_id = ? AND e.id = ?`, tenant, id)
	if err != nil || len(entries) == 0 {
		return nil, err
	}
	return &entries[0], nil
}

func (s *Store) FindEntryByOrigin(ctx context.Context, tenant ledger.TenantID, kind ledger.OriginKind, originID string) (*ledger.Entry, error) {
	if err := tenant.Validate(); err != nil {
		return nil, err
	}
	entries, err := s.queryEntries(ctx,
		`SELECT `+entryColumns+entryFrom+`WHERE e.tenant_id = ? AND e.origin_kind = ? AND e.origin_id = ?`,
		tenant, kind, originID)
	if err != nil || len(entries) == 0 {
		return nil, err
	}
	return &entries[0], nil
}

func (s *Store) UpdateEntry(ctx context.Context, tenant ledger.TenantID, e ledger.Entry) error {
	if err := tenant.Validate(); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE entries
		SET account_id = ?, direction = ?, amount = ?, entry_date = ?, note = ?,
		    property_id = ?, updated_at = ?
		WHERE tenant_id = ? AND id = ? AND origin_kind = 'MANUAL'`,
		e.AccountID, e.Direction, e.Amount.String(), formatTime(e.Date), nullString(e.Note),
		nullString(string(e.PropertyID)), formatTime(e.UpdatedAt),
		tenant, e.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update entry: %w", err)
	}
	return s.checkMutated(ctx, tenant, e.ID, res)
}

func (s *Store) DeleteEntry(ctx context.Context, tenant ledger.TenantID, id ledger.EntryID) error {
	if err := tenant.Validate(); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM entries WHERE tenant_id = ? AND id = ? AND origin_kind = 'MANUAL'`, tenant, id)
	if err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}
	return s.checkMutated(ctx, tenant, id, res)
}

// checkMutated explains a zero-row UPDATE/DELETE: missing or immutable.
func (s *Store) checkMutated(ctx context.Context, tenant ledger.TenantID, id ledger.EntryID, res sql.Result) error {
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	e, err := s.GetEntry(ctx, tenant, id)
	if err != nil {
		return err
	}
	if e == nil {
		return &ledger.NotFoundError{Kind: "entry", ID: string(id)}
	}
	return ledger.ErrImmutableEntry
}

func (s *Store) ListEntries(ctx context.Context, tenant ledger.TenantID, filter ledger.EntryFilter) (ledger.EntryPage, error) {
	if err := tenant.Validate(); err != nil {
		return ledger.EntryPage{}, err
	}
	if err := filter.Normalize(); err != nil {
		return ledger.EntryPage{}, err
	}

	where, args := entryWhere(tenant, filter.Period)
	if filter.PropertyID != "" {
		where += ` AND e.property_id = ?`
		args = append(args, filter.PropertyID)
	}
	if filter.AccountID != "" {
		where += ` AND e.account_id = ?`
		args = append(args, filter.AccountID)
	}
	if filter.Direction != "" {
		where += ` AND e.direction = ?`
		args = append(args, filter.Direction)
	}
	if filter.OriginKind != "" {
		where += ` AND e.origin_kind = ?`
		args = append(args, filter.OriginKind)
	}
	if filter.Search != "" {
		where += ` AND (COALESCE(e.note, '') LIKE ? ESCAPE '\' OR e.origin_id LIKE ? ESCAPE '\' OR a.name LIKE ? ESCAPE '\')`
		pattern := likePattern(filter.Search)
		args = append(args, pattern, pattern, pattern)
	}

	page := ledger.EntryPage{Entries: []ledger.Entry{}, Page: filter.Page, PageSize: filter.PageSize}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*)`+entryFrom+where, args...).Scan(&page.Total); err != nil {
		return ledger.EntryPage{}, fmt.Errorf("failed to count entries: %w", err)
	}

	dir := "DESC"
	if filter.Order == ledger.OrderAsc {
		dir = "ASC"
	}
	var order string
	switch filter.SortBy {
	case ledger.SortByAmount:
		order = fmt.Sprintf(`CAST(e.amount AS REAL) %[1]s, e.created_at %[1]s, e.id %[1]s`, dir)
	case ledger.SortByCreatedAt:
		order = fmt.Sprintf(`e.created_at %[1]s, e.id %[1]s`, dir)
	default:
		order = fmt.Sprintf(`e.entry_date %[1]s, e.created_at %[1]s, e.id %[1]s`, dir)
	}

	query := `SELECT ` + entryColumns + entryFrom + where + ` ORDER BY ` + order + ` LIMIT ? OFFSET ?`
	entries, err := s.queryEntries(ctx, query, append(args, filter.PageSize, filter.Offset())...)
	if err != nil {
		return ledger.EntryPage{}, err
	}
	page.Entries = append(page.Entries, entries...)
	return page, nil
}

func (s *Store) LoadEntries(ctx context.Context, tenant ledger.TenantID, q ledger.EntryQuery) ([]ledger.Entry, error) {
	if err := tenant.Validate(); err != nil {
		return nil, err
	}
	where, args := entryWhere(tenant, q.Period)
	if len(q.AccountIDs) > 0 {
		where += ` AND e.account_id IN (` + placeholders(len(q.AccountIDs)) + `)`
		for _, id := range q.AccountIDs {
			args = append(args, id)
		}
	}
	if len(q.OriginKinds) > 0 {
		where += ` AND e.origin_kind IN (` + placeholders(len(q.OriginKinds)) + `)`
		for _, k := range q.OriginKinds {
			args = append(args, k)
		}
	}
	return s.queryEntries(ctx,
		`SELECT `+entryColumns+entryFrom+where+` ORDER BY e.entry_date ASC, e.created_at ASC, e.id ASC`,
		args...)
}

func (s *Store) OriginIDs(ctx context.Context, tenant ledger.TenantID, kind ledger.OriginKind) ([]string, error) {
	if err := tenant.Validate(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT origin_id FROM entries WHERE tenant_id = ? AND origin_kind = ? ORDER BY origin_id`,
		tenant, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to query origin ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan origin id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func entryWhere(tenant ledger.TenantID, p ledger.Period) (string, []any) {
	where := `WHERE e.tenant_id = ?`
	args := []any{tenant}
	if !p.Start.IsZero() {
		where += ` AND e.entry_date >= ?`
		args = append(args, formatTime(p.Start))
	}
	if !p.End.IsZero() {
		where += ` AND e.entry_date < ?`
		args = append(args, formatTime(p.End))
	}
	return where, args
}

func (s *Store) queryEntries(ctx context.Context, query string, args ...any) ([]ledger.Entry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	var entries []ledger.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func scanEntry(rows *sql.Rows) (ledger.Entry, error) {
	var (
		e                    ledger.Entry
		amount               string
		entryDate            string
		note                 sql.NullString
		propertyID           sql.NullString
		createdAt, updatedAt string
	)
	err := rows.Scan(
		&e.ID, &e.TenantID, &e.AccountID, &e.Direction, &amount, &entryDate, &note,
		&e.OriginKind, &e.OriginID, &propertyID, &e.AuthorID, &createdAt, &updatedAt,
		&e.AccountName, &e.AccountType,
	)
	if err != nil {
		return e, fmt.Errorf("failed to scan entry: %w", err)
	}
	e.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return e, fmt.Errorf("invalid amount %q on entry %s: %w", amount, e.ID, err)
	}
	e.Date = parseTime(entryDate)
	e.Note = note.String
	e.PropertyID = ledger.PropertyID(propertyID.String)
	e.CreatedAt = parseTime(createdAt)
	e.UpdatedAt = parseTime(updatedAt)
	return e, nil
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for demo scenarios).
func (s *Store) Reset(ctx context.Context) error {
	tables := []string{"entries", "accounts", "payouts", "payments", "bookings", "properties"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func nullTime(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(t), Valid: true}
}

func isUniqueConstraintError(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}

// likePattern builds a case-insensitive substring pattern with LIKE
// metacharacters escaped. SQLite LIKE already folds ASCII case.
func likePattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(q) + "%"
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
