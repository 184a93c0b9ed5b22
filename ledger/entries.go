package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// VALIDATION
// =============================================================================

// ValidateDirectionForAccountType is the primary correctness guard:
// IN is only legal for INCOME and OTHER, OUT only for EXPENSE and OTHER.
func ValidateDirectionForAccountType(t AccountType, d Direction) error {
	switch {
	case d == DirectionIn && (t == AccountIncome || t == AccountOther):
		return nil
	case d == DirectionOut && (t == AccountExpense || t == AccountOther):
		return nil
	}
	return fmt.Errorf("%w: %s entries cannot be posted to %s accounts", ErrDirectionMismatch, d, t)
}

const maxNoteLength = 500

// ManualEntryInput is the user-supplied part of a manual entry.
type ManualEntryInput struct {
	AccountID  AccountID
	Direction  Direction
	Amount     decimal.Decimal
	Date       time.Time
	Note       string
	PropertyID PropertyID
}

func (in ManualEntryInput) validate() error {
	if in.AccountID == "" {
		return invalid("account_id", "is required")
	}
	if !in.Direction.Valid() {
		return invalid("direction", "must be IN or OUT")
	}
	if !in.Amount.IsPositive() {
		return invalid("amount", "must be greater than 0")
	}
	if in.Date.IsZero() {
		return invalid("date", "is required")
	}
	if len([]rune(in.Note)) > maxNoteLength {
		return invalid("note", "must be at most %d characters", maxNoteLength)
	}
	return nil
}

// loadPostableAccount returns the target account after checking it accepts d.
func (s *Service) loadPostableAccount(ctx context.Context, tenant TenantID, id AccountID, d Direction) (*Account, error) {
	a, err := s.Store.GetAccount(ctx, tenant, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, invalid("account_id", "account %s not found", id)
	}
	if a.IsArchived {
		return nil, fmt.Errorf("%w: %q", ErrArchivedAccount, a.Name)
	}
	if err := ValidateDirectionForAccountType(a.Type, d); err != nil {
		return nil, err
	}
	return a, nil
}

// =============================================================================
// MANUAL ENTRY MUTATION
// =============================================================================

// CreateManualEntry records a user-authored movement. The origin id is
// synthetic and unique so manual entries never collide with synced ones.
func (s *Service) CreateManualEntry(ctx context.Context, tenant TenantID, actorID string, in ManualEntryInput) (*Entry, error) {
	if err := tenant.Validate(); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	a, err := s.loadPostableAccount(ctx, tenant, in.AccountID, in.Direction)
	if err != nil {
		return nil, err
	}

	now := s.Now()
	e := Entry{
		ID:          EntryID(s.NewID()),
		TenantID:    tenant,
		AccountID:   a.ID,
		Direction:   in.Direction,
		Amount:      in.Amount,
		Date:        in.Date,
		Note:        strings.TrimSpace(in.Note),
		OriginKind:  OriginManual,
		OriginID:    "manual-" + s.NewID(),
		PropertyID:  in.PropertyID,
		AuthorID:    actorID,
		CreatedAt:   now,
		UpdatedAt:   now,
		AccountName: a.Name,
		AccountType: a.Type,
	}
	if err := s.Store.InsertEntry(ctx, tenant, e); err != nil {
		return nil, err
	}
	return &e, nil
}

// loadMutableEntry loads an entry owned by tenant and rejects non-MANUAL
// origins regardless of who is asking.
func (s *Service) loadMutableEntry(ctx context.Context, tenant TenantID, id EntryID) (*Entry, error) {
	e, err := s.Store.GetEntry(ctx, tenant, id)
	if err != nil {
		return nil, err
	}
	if e == nil || e.TenantID != tenant {
		return nil, &NotFoundError{Kind: "entry", ID: string(id)}
	}
	if !e.OriginKind.Mutable() {
		return nil, fmt.Errorf("%w: entry %s has origin %s", ErrImmutableEntry, id, e.OriginKind)
	}
	return e, nil
}

// UpdateEntry rewrites a MANUAL entry. Direction/account compatibility is
// validated against the (possibly new) target account.
func (s *Service) UpdateEntry(ctx context.Context, tenant TenantID, id EntryID, in ManualEntryInput) (*Entry, error) {
	if err := tenant.Validate(); err != nil {
		return nil, err
	}
	e, err := s.loadMutableEntry(ctx, tenant, id)
	if err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	a, err := s.loadPostableAccount(ctx, tenant, in.AccountID, in.Direction)
	if err != nil {
		return nil, err
	}

	e.AccountID = a.ID
	e.Direction = in.Direction
	e.Amount = in.Amount
	e.Date = in.Date
	e.Note = strings.TrimSpace(in.Note)
	e.PropertyID = in.PropertyID
	e.UpdatedAt = s.Now()
	e.AccountName = a.Name
	e.AccountType = a.Type

	if err := s.Store.UpdateEntry(ctx, tenant, *e); err != nil {
		return nil, err
	}
	return e, nil
}

// DeleteEntry physically removes a MANUAL entry.
func (s *Service) DeleteEntry(ctx context.Context, tenant TenantID, id EntryID) error {
	if err := tenant.Validate(); err != nil {
		return err
	}
	if _, err := s.loadMutableEntry(ctx, tenant, id); err != nil {
		return err
	}
	return s.Store.DeleteEntry(ctx, tenant, id)
}

func (s *Service) GetEntry(ctx context.Context, tenant TenantID, id EntryID) (*Entry, error) {
	e, err := s.Store.GetEntry(ctx, tenant, id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, &NotFoundError{Kind: "entry", ID: string(id)}
	}
	return e, nil
}

func (s *Service) ListEntries(ctx context.Context, tenant TenantID, filter EntryFilter) (EntryPage, error) {
	if err := filter.Normalize(); err != nil {
		return EntryPage{}, err
	}
	return s.Store.ListEntries(ctx, tenant, filter)
}
