package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// =============================================================================
// TENANT ONBOARDING
// =============================================================================

// ProvisionTenant creates the system accounts for a new tenant. Safe to call
// repeatedly; existing accounts are left untouched.
func (s *Service) ProvisionTenant(ctx context.Context, tenant TenantID) ([]Account, error) {
	if err := tenant.Validate(); err != nil {
		return nil, err
	}
	specs := SystemAccounts()
	accounts := make([]Account, 0, len(specs))
	for _, spec := range specs {
		a, err := s.EnsureSystemAccount(ctx, tenant, spec)
		if err != nil {
			return nil, fmt.Errorf("provisioning %s: %w", spec.Name, err)
		}
		accounts = append(accounts, *a)
	}
	return accounts, nil
}

// EnsureSystemAccount finds or creates the account described by spec. Two
// callers racing on a fresh tenant both end up with the same row: the loser's
// insert hits the name unique index and re-reads.
func (s *Service) EnsureSystemAccount(ctx context.Context, tenant TenantID, spec SystemAccountSpec) (*Account, error) {
	existing, err := s.Store.FindAccountByName(ctx, tenant, spec.Name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, checkSystemAccount(existing, spec)
	}

	now := s.Now()
	a := Account{
		ID:        AccountID(s.NewID()),
		TenantID:  tenant,
		Name:      spec.Name,
		Type:      spec.Type,
		Code:      spec.Code,
		IsSystem:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err = s.Store.CreateAccount(ctx, tenant, a)
	if errors.Is(err, ErrDuplicateAccountName) {
		existing, err = s.Store.FindAccountByName(ctx, tenant, spec.Name)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, fmt.Errorf("%w: system account %q vanished after conflict", ErrInternal, spec.Name)
		}
		return existing, checkSystemAccount(existing, spec)
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// SystemAccount returns a well-known account. Provisioned tenants take the
// lookup-only path; tenants onboarded before provisioning existed fall back
// to EnsureSystemAccount.
func (s *Service) SystemAccount(ctx context.Context, tenant TenantID, key SystemAccountKey) (*Account, error) {
	a, err := s.LookupSystemAccount(ctx, tenant, key)
	if err != nil || a != nil {
		return a, err
	}
	spec, _ := systemAccountSpec(key)
	return s.EnsureSystemAccount(ctx, tenant, spec)
}

// LookupSystemAccount never writes. Returns nil, nil if not provisioned.
func (s *Service) LookupSystemAccount(ctx context.Context, tenant TenantID, key SystemAccountKey) (*Account, error) {
	spec, ok := systemAccountSpec(key)
	if !ok {
		return nil, fmt.Errorf("%w: unknown system account %q", ErrInternal, key)
	}
	a, err := s.Store.FindAccountByName(ctx, tenant, spec.Name)
	if err != nil || a == nil {
		return nil, err
	}
	if err := checkSystemAccount(a, spec); err != nil {
		return nil, err
	}
	return a, nil
}

// checkSystemAccount rejects a row that carries a system name but is not the
// platform-owned account of that shape.
func checkSystemAccount(a *Account, spec SystemAccountSpec) error {
	if !a.IsSystem || a.Type != spec.Type {
		return fmt.Errorf("%w: account %s holds the name %q but is not the %s system account",
			ErrInternal, a.ID, a.Name, spec.Type)
	}
	return nil
}

// isReservedName reports whether name belongs to a system account.
func isReservedName(name string) bool {
	key := AccountNameKey(name)
	for _, spec := range systemAccounts {
		if AccountNameKey(spec.Name) == key {
			return true
		}
	}
	return false
}

// =============================================================================
// USER ACCOUNTS
// =============================================================================

type CreateAccountInput struct {
	Name string
	Type AccountType
	Code string
}

func (in CreateAccountInput) validate() error {
	name := strings.TrimSpace(in.Name)
	if n := utf8.RuneCountInString(name); n < 3 || n > 100 {
		return invalid("name", "must be between 3 and 100 characters")
	}
	if !in.Type.Valid() {
		return invalid("type", "must be one of INCOME, EXPENSE, OTHER")
	}
	if code := strings.TrimSpace(in.Code); code != "" {
		if n := utf8.RuneCountInString(code); n < 2 || n > 30 {
			return invalid("code", "must be between 2 and 30 characters")
		}
	}
	return nil
}

// CreateAccount adds a user account to the tenant's chart.
func (s *Service) CreateAccount(ctx context.Context, tenant TenantID, in CreateAccountInput) (*Account, error) {
	if err := tenant.Validate(); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if isReservedName(name) {
		return nil, fmt.Errorf("%w: %q", ErrReservedAccountName, name)
	}

	existing, err := s.Store.FindAccountByName(ctx, tenant, name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateAccountName, name)
	}

	now := s.Now()
	a := Account{
		ID:        AccountID(s.NewID()),
		TenantID:  tenant,
		Name:      name,
		Type:      in.Type,
		Code:      strings.TrimSpace(in.Code),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Store.CreateAccount(ctx, tenant, a); err != nil {
		if errors.Is(err, ErrDuplicateAccountName) {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateAccountName, name)
		}
		return nil, err
	}
	return &a, nil
}

func (s *Service) GetAccount(ctx context.Context, tenant TenantID, id AccountID) (*Account, error) {
	a, err := s.Store.GetAccount(ctx, tenant, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, &NotFoundError{Kind: "account", ID: string(id)}
	}
	return a, nil
}

func (s *Service) ArchiveAccount(ctx context.Context, tenant TenantID, id AccountID) (*Account, error) {
	return s.setArchived(ctx, tenant, id, true)
}

func (s *Service) UnarchiveAccount(ctx context.Context, tenant TenantID, id AccountID) (*Account, error) {
	return s.setArchived(ctx, tenant, id, false)
}

func (s *Service) setArchived(ctx context.Context, tenant TenantID, id AccountID, archived bool) (*Account, error) {
	a, err := s.GetAccount(ctx, tenant, id)
	if err != nil {
		return nil, err
	}
	if a.IsSystem {
		return nil, fmt.Errorf("%w: %q", ErrSystemAccount, a.Name)
	}
	now := s.Now()
	if err := s.Store.SetAccountArchived(ctx, tenant, id, archived, now); err != nil {
		return nil, err
	}
	a.IsArchived = archived
	a.UpdatedAt = now
	return a, nil
}

// ListAccounts returns accounts decorated with entry count and signed total.
func (s *Service) ListAccounts(ctx context.Context, tenant TenantID, filter AccountFilter) ([]AccountSummary, error) {
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, invalid("type", "must be one of INCOME, EXPENSE, OTHER")
	}
	return s.Store.ListAccounts(ctx, tenant, filter)
}
