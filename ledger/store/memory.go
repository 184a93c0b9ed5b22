// Package store provides Store implementations.
package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kosku/ledger-engine/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory keeps each tenant's accounts and entries in its own partition. The
// origin and name indexes are checked and written under one lock, which makes
// them as atomic as a database unique index.
type Memory struct {
	mu      sync.RWMutex
	tenants map[ledger.TenantID]*partition
}

type partition struct {
	accounts map[ledger.AccountID]ledger.Account
	names    map[string]ledger.AccountID // lower-cased name
	entries  map[ledger.EntryID]ledger.Entry
	origins  map[originKey]ledger.EntryID
}

type originKey struct {
	Kind ledger.OriginKind
	ID   string
}

func NewMemory() *Memory {
	return &Memory{tenants: make(map[ledger.TenantID]*partition)}
}

func (m *Memory) partition(tenant ledger.TenantID, create bool) *partition {
	p := m.tenants[tenant]
	if p == nil && create {
		p = &partition{
			accounts: make(map[ledger.AccountID]ledger.Account),
			names:    make(map[string]ledger.AccountID),
			entries:  make(map[ledger.EntryID]ledger.Entry),
			origins:  make(map[originKey]ledger.EntryID),
		}
		m.tenants[tenant] = p
	}
	return p
}

// =============================================================================
// ACCOUNTS
// =============================================================================

func (m *Memory) CreateAccount(_ context.Context, tenant ledger.TenantID, a ledger.Account) error {
	if err := tenant.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	p := m.partition(tenant, true)
	name := ledger.AccountNameKey(a.Name)
	if _, taken := p.names[name]; taken {
		return ledger.ErrDuplicateAccountName
	}
	if _, taken := p.accounts[a.ID]; taken {
		return fmt.Errorf("account %s already exists", a.ID)
	}
	a.TenantID = tenant
	p.accounts[a.ID] = a
	p.names[name] = a.ID
	return nil
}

func (m *Memory) GetAccount(_ context.Context, tenant ledger.TenantID, id ledger.AccountID) (*ledger.Account, error) {
	if err := tenant.Validate(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	p := m.partition(tenant, false)
	if p == nil {
		return nil, nil
	}
	a, ok := p.accounts[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (m *Memory) FindAccountByName(_ context.Context, tenant ledger.TenantID, name string) (*ledger.Account, error) {
	if err := tenant.Validate(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	p := m.partition(tenant, false)
	if p == nil {
		return nil, nil
	}
	id, ok := p.names[ledger.AccountNameKey(name)]
	if !ok {
		return nil, nil
	}
	a := p.accounts[id]
	return &a, nil
}

func (m *Memory) SetAccountArchived(_ context.Context, tenant ledger.TenantID, id ledger.AccountID, archived bool, at time.Time) error {
	if err := tenant.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	p := m.partition(tenant, false)
	if p == nil {
		return &ledger.NotFoundError{Kind: "account", ID: string(id)}
	}
	a, ok := p.accounts[id]
	if !ok {
		return &ledger.NotFoundError{Kind: "account", ID: string(id)}
	}
	if a.IsSystem {
		return ledger.ErrSystemAccount
	}
	a.IsArchived = archived
	a.UpdatedAt = at
	p.accounts[id] = a
	return nil
}

func (m *Memory) ListAccounts(_ context.Context, tenant ledger.TenantID, filter ledger.AccountFilter) ([]ledger.AccountSummary, error) {
	if err := tenant.Validate(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := []ledger.AccountSummary{}
	p := m.partition(tenant, false)
	if p == nil {
		return result, nil
	}
	for _, a := range p.accounts {
		if !filter.Matches(a) {
			continue
		}
		sum := ledger.AccountSummary{Account: a}
		var own []ledger.Entry
		for _, e := range p.entries {
			if e.AccountID == a.ID {
				own = append(own, e)
			}
		}
		sum.EntriesCount = len(own)
		sum.TotalAmount = ledger.Net(own)
		result = append(result, sum)
	}
	sort.Slice(result, func(i, j int) bool {
		return strings.ToLower(result[i].Name) < strings.ToLower(result[j].Name)
	})
	return result, nil
}

// =============================================================================
// ENTRIES
// =============================================================================

func (m *Memory) InsertEntry(_ context.Context, tenant ledger.TenantID, e ledger.Entry) error {
	if err := tenant.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	p := m.partition(tenant, true)
	if _, ok := p.accounts[e.AccountID]; !ok {
		return fmt.Errorf("account %s does not exist", e.AccountID)
	}
	k := originKey{Kind: e.OriginKind, ID: e.OriginID}
	if e.OriginKind.Correlated() {
		if _, taken := p.origins[k]; taken {
			return ledger.ErrDuplicateOrigin
		}
	}
	if _, taken := p.entries[e.ID]; taken {
		return fmt.Errorf("entry %s already exists", e.ID)
	}
	e.TenantID = tenant
	p.entries[e.ID] = e
	if e.OriginKind.Correlated() {
		p.origins[k] = e.ID
	}
	return nil
}

func (m *Memory) decorate(p *partition, e ledger.Entry) ledger.Entry {
	if a, ok := p.accounts[e.AccountID]; ok {
		e.AccountName = a.Name
		e.AccountType = a.Type
	}
	return e
}

func (m *Memory) GetEntry(_ context.Context, tenant ledger.TenantID, id ledger.EntryID) (*ledger.Entry, error) {
	if err := tenant.Validate(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	p := m.partition(tenant, false)
	if p == nil {
		return nil, nil
	}
	e, ok := p.entries[id]
	if !ok {
		return nil, nil
	}
	e = m.decorate(p, e)
	return &e, nil
}

func (m *Memory) FindEntryByOrigin(_ context.Context, tenant ledger.TenantID, kind ledger.OriginKind, originID string) (*ledger.Entry, error) {
	if err := tenant.Validate(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	p := m.partition(tenant, false)
	if p == nil {
		return nil, nil
	}
	for _, e := range p.entries {
		if e.OriginKind == kind && e.OriginID == originID {
			e = m.decorate(p, e)
			return &e, nil
		}
	}
	return nil, nil
}

func (m *Memory) UpdateEntry(_ context.Context, tenant ledger.TenantID, e ledger.Entry) error {
	if err := tenant.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	p := m.partition(tenant, false)
	if p == nil {
		return &ledger.NotFoundError{Kind: "entry", ID: string(e.ID)}
	}
	current, ok := p.entries[e.ID]
	if !ok {
		return &ledger.NotFoundError{Kind: "entry", ID: string(e.ID)}
	}
	if !current.OriginKind.Mutable() {
		return ledger.ErrImmutableEntry
	}
	e.TenantID = tenant
	e.OriginKind = current.OriginKind
	e.OriginID = current.OriginID
	e.AuthorID = current.AuthorID
	e.CreatedAt = current.CreatedAt
	p.entries[e.ID] = e
	return nil
}

func (m *Memory) DeleteEntry(_ context.Context, tenant ledger.TenantID, id ledger.EntryID) error {
	if err := tenant.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	p := m.partition(tenant, false)
	if p == nil {
		return &ledger.NotFoundError{Kind: "entry", ID: string(id)}
	}
	current, ok := p.entries[id]
	if !ok {
		return &ledger.NotFoundError{Kind: "entry", ID: string(id)}
	}
	if !current.OriginKind.Mutable() {
		return ledger.ErrImmutableEntry
	}
	delete(p.entries, id)
	return nil
}

func (m *Memory) ListEntries(_ context.Context, tenant ledger.TenantID, filter ledger.EntryFilter) (ledger.EntryPage, error) {
	if err := tenant.Validate(); err != nil {
		return ledger.EntryPage{}, err
	}
	if err := filter.Normalize(); err != nil {
		return ledger.EntryPage{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	page := ledger.EntryPage{Entries: []ledger.Entry{}, Page: filter.Page, PageSize: filter.PageSize}
	p := m.partition(tenant, false)
	if p == nil {
		return page, nil
	}
	var matched []ledger.Entry
	for _, e := range p.entries {
		e = m.decorate(p, e)
		if filter.Matches(e) {
			matched = append(matched, e)
		}
	}
	ledger.SortEntries(matched, filter.SortBy, filter.Order)
	page.Total = len(matched)

	start := filter.Offset()
	if start < len(matched) {
		end := start + filter.PageSize
		if end > len(matched) {
			end = len(matched)
		}
		page.Entries = append(page.Entries, matched[start:end]...)
	}
	return page, nil
}

func (m *Memory) LoadEntries(_ context.Context, tenant ledger.TenantID, q ledger.EntryQuery) ([]ledger.Entry, error) {
	if err := tenant.Validate(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	p := m.partition(tenant, false)
	if p == nil {
		return nil, nil
	}
	var result []ledger.Entry
	for _, e := range p.entries {
		if q.Matches(e) {
			result = append(result, m.decorate(p, e))
		}
	}
	ledger.SortEntries(result, ledger.SortByDate, ledger.OrderAsc)
	return result, nil
}

func (m *Memory) OriginIDs(_ context.Context, tenant ledger.TenantID, kind ledger.OriginKind) ([]string, error) {
	if err := tenant.Validate(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var ids []string
	p := m.partition(tenant, false)
	if p == nil {
		return ids, nil
	}
	for _, e := range p.entries {
		if e.OriginKind == kind {
			ids = append(ids, e.OriginID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}
