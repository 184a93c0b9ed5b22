package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// EXTERNAL EVENTS - Idempotent recording
// =============================================================================

// ExternalEntry is a system-authored fact derived from a payment or payout.
type ExternalEntry struct {
	Kind       OriginKind // PAYMENT or PAYOUT
	OriginID   string
	Account    SystemAccountKey
	Direction  Direction
	Amount     decimal.Decimal
	Date       time.Time
	PropertyID PropertyID
	Note       string
}

func (x ExternalEntry) validate() error {
	if !x.Kind.Correlated() {
		return invalid("origin_kind", "external entries must be PAYMENT or PAYOUT, got %q", x.Kind)
	}
	if strings.TrimSpace(x.OriginID) == "" {
		return invalid("origin_id", "is required")
	}
	if !x.Direction.Valid() {
		return invalid("direction", "must be IN or OUT")
	}
	if !x.Amount.IsPositive() {
		return invalid("amount", "must be greater than 0")
	}
	if x.Date.IsZero() {
		return invalid("date", "is required")
	}
	return nil
}

// RecordExternalEntry writes the entry for an external event exactly once.
//
// There is no pre-check: the insert is attempted and a duplicate-origin
// rejection from the store means another delivery already recorded it. In
// that case the existing entry is returned with created=false.
func (s *Service) RecordExternalEntry(ctx context.Context, tenant TenantID, x ExternalEntry) (*Entry, bool, error) {
	if err := tenant.Validate(); err != nil {
		return nil, false, err
	}
	if err := x.validate(); err != nil {
		return nil, false, err
	}
	a, err := s.SystemAccount(ctx, tenant, x.Account)
	if err != nil {
		return nil, false, err
	}
	if err := ValidateDirectionForAccountType(a.Type, x.Direction); err != nil {
		return nil, false, err
	}

	now := s.Now()
	e := Entry{
		ID:          EntryID(s.NewID()),
		TenantID:    tenant,
		AccountID:   a.ID,
		Direction:   x.Direction,
		Amount:      x.Amount,
		Date:        x.Date,
		Note:        x.Note,
		OriginKind:  x.Kind,
		OriginID:    x.OriginID,
		PropertyID:  x.PropertyID,
		AuthorID:    AuthorSystem,
		CreatedAt:   now,
		UpdatedAt:   now,
		AccountName: a.Name,
		AccountType: a.Type,
	}
	err = s.Store.InsertEntry(ctx, tenant, e)
	if errors.Is(err, ErrDuplicateOrigin) {
		existing, ferr := s.Store.FindEntryByOrigin(ctx, tenant, x.Kind, x.OriginID)
		if ferr != nil {
			return nil, false, ferr
		}
		if existing == nil {
			return nil, false, fmt.Errorf("%w: %s %s reported duplicate but not found", ErrInternal, x.Kind, x.OriginID)
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &e, true, nil
}

// MissingOrigins returns the external ids that have no correlated entry,
// sorted. Read-only.
func (s *Service) MissingOrigins(ctx context.Context, tenant TenantID, kind OriginKind, externalIDs []string) ([]string, error) {
	recorded, err := s.Store.OriginIDs(ctx, tenant, kind)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(recorded))
	for _, id := range recorded {
		seen[id] = true
	}
	missing := []string{}
	for _, id := range externalIDs {
		if !seen[id] {
			missing = append(missing, id)
			seen[id] = true
		}
	}
	sort.Strings(missing)
	return missing, nil
}
