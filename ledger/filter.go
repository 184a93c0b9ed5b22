package ledger

import (
	"sort"
	"strings"
)

// =============================================================================
// ENTRY LISTING
// =============================================================================

type EntrySort string

const (
	SortByDate      EntrySort = "date"
	SortByAmount    EntrySort = "amount"
	SortByCreatedAt EntrySort = "created_at"
)

type SortOrder string

const (
	OrderAsc  SortOrder = "asc"
	OrderDesc SortOrder = "desc"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// EntryFilter drives the paginated entry list.
type EntryFilter struct {
	Period     Period
	PropertyID PropertyID
	AccountID  AccountID
	Direction  Direction
	OriginKind OriginKind
	Search     string // note, origin id or account name; case-insensitive

	SortBy   EntrySort
	Order    SortOrder
	Page     int
	PageSize int
}

// EntryPage is one page of ListEntries.
type EntryPage struct {
	Entries  []Entry
	Total    int
	Page     int
	PageSize int
}

// Normalize applies defaults and rejects invalid values.
func (f *EntryFilter) Normalize() error {
	if err := f.Period.Validate(); err != nil {
		return err
	}
	if f.Direction != "" && !f.Direction.Valid() {
		return invalid("direction", "must be IN or OUT")
	}
	if f.OriginKind != "" && !f.OriginKind.Valid() {
		return invalid("origin_kind", "unknown origin kind %q", f.OriginKind)
	}
	switch f.SortBy {
	case "":
		f.SortBy = SortByDate
	case SortByDate, SortByAmount, SortByCreatedAt:
	default:
		return invalid("sort", "must be one of date, amount, created_at")
	}
	switch f.Order {
	case "":
		f.Order = OrderDesc
	case OrderAsc, OrderDesc:
	default:
		return invalid("order", "must be asc or desc")
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize <= 0 {
		f.PageSize = DefaultPageSize
	}
	if f.PageSize > MaxPageSize {
		f.PageSize = MaxPageSize
	}
	f.Search = strings.TrimSpace(f.Search)
	return nil
}

// Offset is the number of rows skipped before the current page.
func (f EntryFilter) Offset() int { return (f.Page - 1) * f.PageSize }

// Matches reports whether e passes every filter. AccountName must be set on e
// for search to consider it.
func (f EntryFilter) Matches(e Entry) bool {
	if !f.Period.Contains(e.Date) {
		return false
	}
	if f.PropertyID != "" && e.PropertyID != f.PropertyID {
		return false
	}
	if f.AccountID != "" && e.AccountID != f.AccountID {
		return false
	}
	if f.Direction != "" && e.Direction != f.Direction {
		return false
	}
	if f.OriginKind != "" && e.OriginKind != f.OriginKind {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(e.Note), q) &&
			!strings.Contains(strings.ToLower(e.OriginID), q) &&
			!strings.Contains(strings.ToLower(e.AccountName), q) {
			return false
		}
	}
	return true
}

// SortEntries orders entries in place. Ties fall back to creation time then id
// so pages are stable.
func SortEntries(entries []Entry, by EntrySort, order SortOrder) {
	less := func(a, b Entry) bool {
		switch by {
		case SortByAmount:
			if !a.Amount.Equal(b.Amount) {
				return a.Amount.LessThan(b.Amount)
			}
		case SortByCreatedAt:
		default:
			if !a.Date.Equal(b.Date) {
				return a.Date.Before(b.Date)
			}
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if order == OrderAsc {
			return less(entries[i], entries[j])
		}
		return less(entries[j], entries[i])
	})
}

// Matches reports whether q selects e.
func (q EntryQuery) Matches(e Entry) bool {
	if !q.Period.Contains(e.Date) {
		return false
	}
	if len(q.AccountIDs) > 0 && !containsAccount(q.AccountIDs, e.AccountID) {
		return false
	}
	if len(q.OriginKinds) > 0 && !containsOrigin(q.OriginKinds, e.OriginKind) {
		return false
	}
	return true
}

func containsAccount(ids []AccountID, id AccountID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

func containsOrigin(kinds []OriginKind, k OriginKind) bool {
	for _, x := range kinds {
		if x == k {
			return true
		}
	}
	return false
}

// Matches reports whether a passes the account filter.
func (f AccountFilter) Matches(a Account) bool {
	if f.Type != "" && a.Type != f.Type {
		return false
	}
	if !f.IncludeArchived && a.IsArchived {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		if !strings.Contains(strings.ToLower(a.Name), q) && !strings.Contains(strings.ToLower(a.Code), q) {
			return false
		}
	}
	return true
}
