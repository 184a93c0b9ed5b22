package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/kosku/ledger-engine/billing"
	"github.com/kosku/ledger-engine/ledger"
)

// =============================================================================
// BILLING TABLES - owned by the booking subsystem
// =============================================================================
//
// The ledger reads these through billing.PaymentSource and
// billing.PayoutSource. The Save* methods exist for the booking subsystem,
// demo scenarios and tests.

const billingSchema = `
	CREATE TABLE IF NOT EXISTS properties (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		name TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS bookings (
		id TEXT PRIMARY KEY,
		property_id TEXT NOT NULL REFERENCES properties(id),
		room_name TEXT,
		guest_name TEXT
	);

	CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		booking_id TEXT REFERENCES bookings(id),
		status TEXT NOT NULL,
		amount TEXT NOT NULL,
		transaction_time TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_payments_status ON payments(status);

	CREATE TABLE IF NOT EXISTS payouts (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		status TEXT NOT NULL,
		amount TEXT NOT NULL,
		bank_name TEXT,
		account_number TEXT,
		account_holder TEXT,
		requested_at TEXT NOT NULL,
		processed_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_payouts_tenant_status ON payouts(tenant_id, status);
`

// Property is a boarding house owned by a tenant.
type Property struct {
	ID      ledger.PropertyID
	OwnerID ledger.TenantID
	Name    string
}

// Booking ties a guest and room to a property.
type Booking struct {
	ID         string
	PropertyID ledger.PropertyID
	RoomName   string
	GuestName  string
}

func (s *Store) SaveProperty(ctx context.Context, p Property) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO properties (id, owner_id, name) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET owner_id = excluded.owner_id, name = excluded.name`,
		p.ID, p.OwnerID, p.Name,
	)
	if err != nil {
		return fmt.Errorf("failed to save property: %w", err)
	}
	return nil
}

func (s *Store) SaveBooking(ctx context.Context, b Booking) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO bookings (id, property_id, room_name, guest_name) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			property_id = excluded.property_id,
			room_name = excluded.room_name,
			guest_name = excluded.guest_name`,
		b.ID, b.PropertyID, nullString(b.RoomName), nullString(b.GuestName),
	)
	if err != nil {
		return fmt.Errorf("failed to save booking: %w", err)
	}
	return nil
}

// SavePayment stores the payment row. Ownership fields are derived from the
// booking on read and ignored here.
func (s *Store) SavePayment(ctx context.Context, p billing.Payment) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO payments (id, booking_id, status, amount, transaction_time, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			booking_id = excluded.booking_id,
			status = excluded.status,
			amount = excluded.amount,
			transaction_time = excluded.transaction_time`,
		p.ID, nullString(p.BookingID), p.Status, p.Amount.String(),
		nullTime(p.TransactionTime), formatTime(p.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save payment: %w", err)
	}
	return nil
}

func (s *Store) SavePayout(ctx context.Context, p billing.Payout) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO payouts
		(id, tenant_id, status, amount, bank_name, account_number, account_holder, requested_at, processed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			amount = excluded.amount,
			bank_name = excluded.bank_name,
			account_number = excluded.account_number,
			account_holder = excluded.account_holder,
			processed_at = excluded.processed_at`,
		p.ID, p.TenantID, p.Status, p.Amount.String(),
		nullString(p.BankName), nullString(p.AccountNumber), nullString(p.AccountHolder),
		formatTime(p.RequestedAt), nullTime(p.ProcessedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save payout: %w", err)
	}
	return nil
}

// =============================================================================
// PAYMENT SOURCE (billing.PaymentSource interface)
// =============================================================================

const paymentSelect = `
	SELECT p.id, p.status, p.amount, p.transaction_time, p.created_at,
	       p.booking_id, b.room_name, b.guest_name, pr.id, pr.name, pr.owner_id
	FROM payments p
	LEFT JOIN bookings b ON b.id = p.booking_id
	LEFT JOIN properties pr ON pr.id = b.property_id`

func (s *Store) GetPayment(ctx context.Context, id string) (*billing.Payment, error) {
	payments, err := s.queryPayments(ctx, paymentSelect+` WHERE p.id = ?`, id)
	if err != nil || len(payments) == 0 {
		return nil, err
	}
	return &payments[0], nil
}

func (s *Store) ListPayments(ctx context.Context, tenant *ledger.TenantID, status billing.PaymentStatus) ([]billing.Payment, error) {
	query := paymentSelect + ` WHERE p.status = ?`
	args := []any{status}
	if tenant != nil {
		query += ` AND pr.owner_id = ?`
		args = append(args, *tenant)
	}
	query += ` ORDER BY p.created_at ASC, p.id ASC`
	return s.queryPayments(ctx, query, args...)
}

func (s *Store) queryPayments(ctx context.Context, query string, args ...any) ([]billing.Payment, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	var payments []billing.Payment
	for rows.Next() {
		var (
			p                                 billing.Payment
			amount, createdAt                 string
			txTime, bookingID, room, guest    sql.NullString
			propertyID, propertyName, ownerID sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.Status, &amount, &txTime, &createdAt,
			&bookingID, &room, &guest, &propertyID, &propertyName, &ownerID); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		if p.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("invalid amount %q on payment %s: %w", amount, p.ID, err)
		}
		if txTime.Valid {
			p.TransactionTime = parseTime(txTime.String)
		}
		p.CreatedAt = parseTime(createdAt)
		p.BookingID = bookingID.String
		p.RoomName = room.String
		p.GuestName = guest.String
		p.PropertyID = ledger.PropertyID(propertyID.String)
		p.PropertyName = propertyName.String
		p.OwnerID = ledger.TenantID(ownerID.String)
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// =============================================================================
// PAYOUT SOURCE (billing.PayoutSource interface)
// =============================================================================

const payoutSelect = `
	SELECT id, tenant_id, status, amount, bank_name, account_number, account_holder,
	       requested_at, processed_at
	FROM payouts`

func (s *Store) GetPayout(ctx context.Context, id string) (*billing.Payout, error) {
	payouts, err := s.queryPayouts(ctx, payoutSelect+` WHERE id = ?`, id)
	if err != nil || len(payouts) == 0 {
		return nil, err
	}
	return &payouts[0], nil
}

func (s *Store) ListPayouts(ctx context.Context, tenant *ledger.TenantID, statuses ...billing.PayoutStatus) ([]billing.Payout, error) {
	where, args := payoutWhere(tenant, statuses)
	return s.queryPayouts(ctx, payoutSelect+where+` ORDER BY requested_at ASC, id ASC`, args...)
}

// SumPayouts folds in Go so the total stays exact.
func (s *Store) SumPayouts(ctx context.Context, tenant ledger.TenantID, statuses ...billing.PayoutStatus) (decimal.Decimal, error) {
	if err := tenant.Validate(); err != nil {
		return decimal.Zero, err
	}
	payouts, err := s.ListPayouts(ctx, &tenant, statuses...)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, p := range payouts {
		total = total.Add(p.Amount)
	}
	return total, nil
}

func payoutWhere(tenant *ledger.TenantID, statuses []billing.PayoutStatus) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if tenant != nil {
		clauses = append(clauses, `tenant_id = ?`)
		args = append(args, *tenant)
	}
	if len(statuses) > 0 {
		clauses = append(clauses, `status IN (`+placeholders(len(statuses))+`)`)
		for _, st := range statuses {
			args = append(args, st)
		}
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return ` WHERE ` + strings.Join(clauses, " AND "), args
}

func (s *Store) queryPayouts(ctx context.Context, query string, args ...any) ([]billing.Payout, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query payouts: %w", err)
	}
	defer rows.Close()

	var payouts []billing.Payout
	for rows.Next() {
		var (
			p                    billing.Payout
			amount, requestedAt  string
			bank, number, holder sql.NullString
			processedAt          sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.TenantID, &p.Status, &amount, &bank, &number, &holder,
			&requestedAt, &processedAt); err != nil {
			return nil, fmt.Errorf("failed to scan payout: %w", err)
		}
		if p.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("invalid amount %q on payout %s: %w", amount, p.ID, err)
		}
		p.BankName = bank.String
		p.AccountNumber = number.String
		p.AccountHolder = holder.String
		p.RequestedAt = parseTime(requestedAt)
		if processedAt.Valid {
			p.ProcessedAt = parseTime(processedAt.String)
		}
		payouts = append(payouts, p)
	}
	return payouts, rows.Err()
}
