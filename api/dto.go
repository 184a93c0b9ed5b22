/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the ledger's domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

AMOUNTS:
  Amounts are decimal.Decimal, which marshals as a JSON string ("150000.5")
  and accepts either a string or a number on input. Clients never see a
  float.

DATES:
  Effective dates and period bounds are YYYY-MM-DD in the reporting
  timezone. Audit timestamps (created_at, updated_at) are RFC 3339.

SEE ALSO:
  - handlers.go: Uses these types
  - ledger/types.go: Domain types
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/kosku/ledger-engine/ledger"
	"github.com/kosku/ledger-engine/syncer"
	"github.com/kosku/ledger-engine/withdraw"
)

const dateLayout = "2006-01-02"

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// ACCOUNTS
// =============================================================================

type AccountDTO struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	Type         string           `json:"type"`
	Code         string           `json:"code,omitempty"`
	IsSystem     bool             `json:"is_system"`
	IsArchived   bool             `json:"is_archived"`
	EntriesCount *int             `json:"entries_count,omitempty"`
	TotalAmount  *decimal.Decimal `json:"total_amount,omitempty"`
	CreatedAt    string           `json:"created_at"`
	UpdatedAt    string           `json:"updated_at"`
}

type CreateAccountRequest struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Code string `json:"code"`
}

func accountDTO(a ledger.Account) AccountDTO {
	return AccountDTO{
		ID:         string(a.ID),
		Name:       a.Name,
		Type:       string(a.Type),
		Code:       a.Code,
		IsSystem:   a.IsSystem,
		IsArchived: a.IsArchived,
		CreatedAt:  a.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  a.UpdatedAt.Format(time.RFC3339),
	}
}

func accountSummaryDTO(s ledger.AccountSummary) AccountDTO {
	dto := accountDTO(s.Account)
	count, total := s.EntriesCount, s.TotalAmount
	dto.EntriesCount = &count
	dto.TotalAmount = &total
	return dto
}

// =============================================================================
// ENTRIES
// =============================================================================

type EntryDTO struct {
	ID          string          `json:"id"`
	AccountID   string          `json:"account_id"`
	AccountName string          `json:"account_name,omitempty"`
	AccountType string          `json:"account_type,omitempty"`
	Direction   string          `json:"direction"`
	Amount      decimal.Decimal `json:"amount"`
	Date        string          `json:"date"`
	Note        string          `json:"note,omitempty"`
	OriginKind  string          `json:"origin_kind"`
	OriginID    string          `json:"origin_id"`
	PropertyID  string          `json:"property_id,omitempty"`
	AuthorID    string          `json:"author_id"`
	Editable    bool            `json:"editable"`
	CreatedAt   string          `json:"created_at"`
	UpdatedAt   string          `json:"updated_at"`
}

type EntryPageDTO struct {
	Entries  []EntryDTO `json:"entries"`
	Total    int        `json:"total"`
	Page     int        `json:"page"`
	PageSize int        `json:"page_size"`
}

// EntryRequest is the body of POST and PUT /entries.
type EntryRequest struct {
	AccountID  string          `json:"account_id"`
	Direction  string          `json:"direction"`
	Amount     decimal.Decimal `json:"amount"`
	Date       string          `json:"date"`
	Note       string          `json:"note"`
	PropertyID string          `json:"property_id"`
}

func entryDTO(e ledger.Entry, loc *time.Location) EntryDTO {
	return EntryDTO{
		ID:          string(e.ID),
		AccountID:   string(e.AccountID),
		AccountName: e.AccountName,
		AccountType: string(e.AccountType),
		Direction:   string(e.Direction),
		Amount:      e.Amount,
		Date:        e.Date.In(loc).Format(dateLayout),
		Note:        e.Note,
		OriginKind:  string(e.OriginKind),
		OriginID:    e.OriginID,
		PropertyID:  string(e.PropertyID),
		AuthorID:    e.AuthorID,
		Editable:    e.OriginKind.Mutable(),
		CreatedAt:   e.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   e.UpdatedAt.Format(time.RFC3339),
	}
}

// =============================================================================
// BALANCE & ANALYTICS
// =============================================================================

type BalanceDTO struct {
	TotalIn            decimal.Decimal `json:"total_in"`
	TotalOut           decimal.Decimal `json:"total_out"`
	TotalBalance       decimal.Decimal `json:"total_balance"`
	TotalWithdrawals   decimal.Decimal `json:"total_withdrawals"`
	PendingWithdrawals decimal.Decimal `json:"pending_withdrawals"`
	AvailableBalance   decimal.Decimal `json:"available_balance"`
}

func balanceDTO(b ledger.Balance) BalanceDTO {
	return BalanceDTO{
		TotalIn:            b.TotalIn,
		TotalOut:           b.TotalOut,
		TotalBalance:       b.TotalBalance,
		TotalWithdrawals:   b.TotalWithdrawals,
		PendingWithdrawals: b.PendingWithdrawals,
		AvailableBalance:   b.AvailableBalance,
	}
}

// PeriodDTO echoes the inclusive calendar range a figure covers.
type PeriodDTO struct {
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
}

func periodDTO(p ledger.Period, loc *time.Location) PeriodDTO {
	var dto PeriodDTO
	if !p.Start.IsZero() {
		dto.From = p.Start.In(loc).Format(dateLayout)
	}
	if !p.End.IsZero() {
		dto.To = p.End.In(loc).AddDate(0, 0, -1).Format(dateLayout)
	}
	return dto
}

type SummaryDTO struct {
	Period       PeriodDTO       `json:"period"`
	CashIn       decimal.Decimal `json:"cash_in"`
	CashOut      decimal.Decimal `json:"cash_out"`
	NetFlow      decimal.Decimal `json:"net_flow"`
	EntriesCount int             `json:"entries_count"`
	RentIncome   decimal.Decimal `json:"rent_income"`
	Balance      BalanceDTO      `json:"balance"`
}

type BreakdownRowDTO struct {
	AccountID    string          `json:"account_id"`
	AccountName  string          `json:"account_name"`
	AccountType  string          `json:"account_type"`
	CashIn       decimal.Decimal `json:"cash_in"`
	CashOut      decimal.Decimal `json:"cash_out"`
	Amount       decimal.Decimal `json:"amount"`
	Percentage   float64         `json:"percentage"`
	EntriesCount int             `json:"entries_count"`
}

type BreakdownDTO struct {
	Period  PeriodDTO         `json:"period"`
	Income  []BreakdownRowDTO `json:"income"`
	Expense []BreakdownRowDTO `json:"expense"`
	Other   []BreakdownRowDTO `json:"other"`
}

func breakdownRows(rows []ledger.BreakdownRow) []BreakdownRowDTO {
	out := make([]BreakdownRowDTO, len(rows))
	for i, r := range rows {
		out[i] = BreakdownRowDTO{
			AccountID:    string(r.AccountID),
			AccountName:  r.AccountName,
			AccountType:  string(r.AccountType),
			CashIn:       r.CashIn,
			CashOut:      r.CashOut,
			Amount:       r.Amount,
			Percentage:   r.Percentage,
			EntriesCount: r.EntriesCount,
		}
	}
	return out
}

type TimeSeriesPointDTO struct {
	Bucket         string          `json:"bucket"`
	CashIn         decimal.Decimal `json:"cash_in"`
	CashOut        decimal.Decimal `json:"cash_out"`
	NetFlow        decimal.Decimal `json:"net_flow"`
	RunningBalance decimal.Decimal `json:"running_balance"`
	EntriesCount   int             `json:"entries_count"`
}

// TimeSeriesDTO is sparse: buckets with no entries are absent.
type TimeSeriesDTO struct {
	Period         PeriodDTO            `json:"period"`
	Granularity    string               `json:"granularity"`
	OpeningBalance decimal.Decimal      `json:"opening_balance"`
	Points         []TimeSeriesPointDTO `json:"points"`
}

// =============================================================================
// WITHDRAW
// =============================================================================

type WithdrawBalanceDTO struct {
	Collected           decimal.Decimal `json:"collected"`
	Withdrawn           decimal.Decimal `json:"withdrawn"`
	WithdrawableBalance decimal.Decimal `json:"withdrawable_balance"`
	PendingWithdrawals  decimal.Decimal `json:"pending_withdrawals"`
	AvailableBalance    decimal.Decimal `json:"available_balance"`
}

func withdrawBalanceDTO(b withdraw.Balance) WithdrawBalanceDTO {
	return WithdrawBalanceDTO{
		Collected:           b.Collected,
		Withdrawn:           b.Withdrawn,
		WithdrawableBalance: b.WithdrawableBalance,
		PendingWithdrawals:  b.PendingWithdrawals,
		AvailableBalance:    b.AvailableBalance,
	}
}

type WithdrawPaymentDTO struct {
	EntryID      string          `json:"entry_id"`
	PaymentID    string          `json:"payment_id"`
	Amount       decimal.Decimal `json:"amount"`
	Date         string          `json:"date"`
	BookingID    string          `json:"booking_id,omitempty"`
	PropertyID   string          `json:"property_id,omitempty"`
	PropertyName string          `json:"property_name,omitempty"`
	RoomName     string          `json:"room_name,omitempty"`
	GuestName    string          `json:"guest_name,omitempty"`
}

type WithdrawPayoutDTO struct {
	EntryID       string          `json:"entry_id"`
	PayoutID      string          `json:"payout_id"`
	Amount        decimal.Decimal `json:"amount"`
	Date          string          `json:"date"`
	Status        string          `json:"status,omitempty"`
	BankName      string          `json:"bank_name,omitempty"`
	AccountNumber string          `json:"account_number,omitempty"`
	AccountHolder string          `json:"account_holder,omitempty"`
}

type WithdrawBreakdownDTO struct {
	Balance  WithdrawBalanceDTO   `json:"balance"`
	Payments []WithdrawPaymentDTO `json:"payments"`
	Payouts  []WithdrawPayoutDTO  `json:"payouts"`
}

type ValidateWithdrawRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type ValidateWithdrawDTO struct {
	Valid   bool               `json:"valid"`
	Balance WithdrawBalanceDTO `json:"balance"`
}

// =============================================================================
// SYNC
// =============================================================================

type SyncRunDTO struct {
	Payments syncer.Result `json:"payments"`
	Payouts  syncer.Result `json:"payouts"`
}

// SyncStatusDTO is the integrity report plus the scheduler state, when one
// is attached to the handler.
type SyncStatusDTO struct {
	syncer.Report
	Scheduler *SchedulerStatusDTO `json:"scheduler,omitempty"`
}

type SchedulerStatusDTO struct {
	Interval string      `json:"interval"`
	LastRun  *RunSummary `json:"lastRun,omitempty"`
	NextRun  *time.Time  `json:"nextRun,omitempty"`
}

func schedulerStatusDTO(rs *ReconciliationScheduler) *SchedulerStatusDTO {
	if rs == nil {
		return nil
	}
	dto := &SchedulerStatusDTO{Interval: rs.CheckInterval.String()}
	if last := rs.LastRun(); !last.At.IsZero() {
		dto.LastRun = &last
	}
	if next := rs.GetNextRunTime(); !next.IsZero() {
		dto.NextRun = &next
	}
	return dto
}

// =============================================================================
// SCENARIOS
// =============================================================================

type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	TenantID    string `json:"tenant_id"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}
