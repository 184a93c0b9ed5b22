/*
handlers.go - HTTP API handlers for the kos ledger

PURPOSE:
  Exposes the ledger, the withdraw read-model and the sync adapters via
  REST API. Handles HTTP request/response, JSON serialization, and
  delegates to domain logic.

ENDPOINTS (all under /api/tenants/{tenantID}/ledger, tenant admin only):
  Analytics:
    GET    /summary?from&to                 Period flows + all-time balance
    GET    /timeseries?from&to&granularity  Running balance by day/week/month
    GET    /breakdown?from&to               Per-account totals by bucket
    GET    /balance                         All-time balance

  Entries:
    GET    /entries                         Paginated, filtered list
    GET    /entries/{id}                    Single entry
    POST   /entries                         Create manual entry
    PUT    /entries/{id}                    Update manual entry
    DELETE /entries/{id}                    Delete manual entry

  Accounts:
    GET    /accounts?type&include_archived&search
    POST   /accounts
    POST   /accounts/{id}/archive
    POST   /accounts/{id}/unarchive

  Withdraw:
    GET    /withdraw/balance
    GET    /withdraw/breakdown
    POST   /withdraw/validate

  Sync:
    POST   /sync                            Batch reconcile this tenant
    GET    /sync/validate                   Missing payment / payout ids

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Ledger: account/entry operations and analytics
  - Withdraw: rent-only balance read-model
  - Syncer: payment/payout adapters
  - Store: SQLite store, used directly only by demo scenarios

DATES:
  Query dates are YYYY-MM-DD in the reporting timezone (Ledger.Location).
  "to" is inclusive. Analytics default to the current calendar month when
  both are omitted; the entry list defaults to all time.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, rejected business rules (message verbatim)
  - 403: Wrong role or foreign tenant
  - 404: Entry or account not found
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - auth.go: Tenant gate
  - hooks.go: Internal event hooks
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kosku/ledger-engine/billing"
	"github.com/kosku/ledger-engine/ledger"
	"github.com/kosku/ledger-engine/store/sqlite"
	"github.com/kosku/ledger-engine/syncer"
	"github.com/kosku/ledger-engine/withdraw"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Ledger   *ledger.Service
	Withdraw *withdraw.Service
	Syncer   *syncer.Syncer
	Store    *sqlite.Store

	// HookSecret authenticates /api/hooks. Empty disables the hooks.
	HookSecret string

	// DevMode exposes /api/scenarios.
	DevMode bool

	// Scheduler, when set, is reported by GET /sync/validate.
	Scheduler *ReconciliationScheduler

	mu              sync.Mutex
	currentScenario string
}

// NewHandler wires the ledger, withdraw and sync services over one store.
// The store serves as ledger storage and as the billing source.
func NewHandler(store *sqlite.Store, loc *time.Location, breakdownLimit int) *Handler {
	svc := ledger.NewService(store, billing.PendingPayouts{Source: store})
	if loc != nil {
		svc.Location = loc
	}
	w := withdraw.New(svc, store, store)
	if breakdownLimit > 0 {
		w.Limit = breakdownLimit
	}
	return &Handler{
		Ledger:   svc,
		Withdraw: w,
		Syncer:   syncer.New(svc, store, store),
		Store:    store,
	}
}

func (h *Handler) loc() *time.Location {
	if h.Ledger.Location == nil {
		return time.UTC
	}
	return h.Ledger.Location
}

// =============================================================================
// ANALYTICS HANDLERS
// =============================================================================

// GetSummary returns period cash flows plus the all-time balance.
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	period, err := h.analyticsPeriod(r)
	if err != nil {
		writeLedgerError(w, "Invalid date range", err)
		return
	}

	s, err := h.Ledger.GetSummary(r.Context(), tenantFrom(r.Context()), period)
	if err != nil {
		writeLedgerError(w, "Failed to compute summary", err)
		return
	}

	writeJSON(w, http.StatusOK, SummaryDTO{
		Period:       periodDTO(s.Period, h.loc()),
		CashIn:       s.CashIn,
		CashOut:      s.CashOut,
		NetFlow:      s.NetFlow,
		EntriesCount: s.EntriesCount,
		RentIncome:   s.RentIncome,
		Balance:      balanceDTO(s.Balance),
	})
}

// GetTimeSeries returns the sparse running-balance series.
func (h *Handler) GetTimeSeries(w http.ResponseWriter, r *http.Request) {
	period, err := h.analyticsPeriod(r)
	if err != nil {
		writeLedgerError(w, "Invalid date range", err)
		return
	}
	g := ledger.Granularity(r.URL.Query().Get("granularity"))
	if g == "" {
		g = ledger.GranularityDay
	}

	ts, err := h.Ledger.GetTimeSeries(r.Context(), tenantFrom(r.Context()), period, g)
	if err != nil {
		writeLedgerError(w, "Failed to compute time series", err)
		return
	}

	points := make([]TimeSeriesPointDTO, len(ts.Points))
	for i, p := range ts.Points {
		points[i] = TimeSeriesPointDTO{
			Bucket:         p.Bucket.In(h.loc()).Format(dateLayout),
			CashIn:         p.CashIn,
			CashOut:        p.CashOut,
			NetFlow:        p.NetFlow,
			RunningBalance: p.RunningBalance,
			EntriesCount:   p.EntriesCount,
		}
	}

	writeJSON(w, http.StatusOK, TimeSeriesDTO{
		Period:         periodDTO(ts.Period, h.loc()),
		Granularity:    string(ts.Granularity),
		OpeningBalance: ts.OpeningBalance,
		Points:         points,
	})
}

// GetBreakdown returns per-account totals bucketed by account type.
func (h *Handler) GetBreakdown(w http.ResponseWriter, r *http.Request) {
	period, err := h.analyticsPeriod(r)
	if err != nil {
		writeLedgerError(w, "Invalid date range", err)
		return
	}

	b, err := h.Ledger.GetBreakdown(r.Context(), tenantFrom(r.Context()), period)
	if err != nil {
		writeLedgerError(w, "Failed to compute breakdown", err)
		return
	}

	writeJSON(w, http.StatusOK, BreakdownDTO{
		Period:  periodDTO(b.Period, h.loc()),
		Income:  breakdownRows(b.Income),
		Expense: breakdownRows(b.Expense),
		Other:   breakdownRows(b.Other),
	})
}

// GetBalance returns the all-time balance.
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	b, err := h.Ledger.CalculateBalance(r.Context(), tenantFrom(r.Context()))
	if err != nil {
		writeLedgerError(w, "Failed to compute balance", err)
		return
	}
	writeJSON(w, http.StatusOK, balanceDTO(b))
}

// =============================================================================
// ENTRY HANDLERS
// =============================================================================

// ListEntries returns one page of entries.
func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	period, err := h.dateRange(q.Get("from"), q.Get("to"))
	if err != nil {
		writeLedgerError(w, "Invalid date range", err)
		return
	}
	page, err := intParam(q.Get("page"), "page")
	if err != nil {
		writeLedgerError(w, "Invalid page", err)
		return
	}
	pageSize, err := intParam(q.Get("page_size"), "page_size")
	if err != nil {
		writeLedgerError(w, "Invalid page size", err)
		return
	}

	filter := ledger.EntryFilter{
		Period:     period,
		PropertyID: ledger.PropertyID(q.Get("property_id")),
		AccountID:  ledger.AccountID(q.Get("account_id")),
		Direction:  ledger.Direction(strings.ToUpper(q.Get("direction"))),
		OriginKind: ledger.OriginKind(strings.ToUpper(q.Get("origin_kind"))),
		Search:     q.Get("search"),
		SortBy:     ledger.EntrySort(q.Get("sort")),
		Order:      ledger.SortOrder(strings.ToLower(q.Get("order"))),
		Page:       page,
		PageSize:   pageSize,
	}

	result, err := h.Ledger.ListEntries(r.Context(), tenantFrom(r.Context()), filter)
	if err != nil {
		writeLedgerError(w, "Failed to list entries", err)
		return
	}

	dtos := make([]EntryDTO, len(result.Entries))
	for i, e := range result.Entries {
		dtos[i] = entryDTO(e, h.loc())
	}

	writeJSON(w, http.StatusOK, EntryPageDTO{
		Entries:  dtos,
		Total:    result.Total,
		Page:     result.Page,
		PageSize: result.PageSize,
	})
}

// GetEntry returns a single entry.
func (h *Handler) GetEntry(w http.ResponseWriter, r *http.Request) {
	id := ledger.EntryID(chi.URLParam(r, "id"))

	e, err := h.Ledger.GetEntry(r.Context(), tenantFrom(r.Context()), id)
	if err != nil {
		writeLedgerError(w, "Failed to get entry", err)
		return
	}

	writeJSON(w, http.StatusOK, entryDTO(*e, h.loc()))
}

// CreateEntry records a manual income or expense.
func (h *Handler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	in, err := h.decodeEntry(r)
	if err != nil {
		writeLedgerError(w, "Invalid request body", err)
		return
	}

	ctx := r.Context()
	e, err := h.Ledger.CreateManualEntry(ctx, tenantFrom(ctx), actorFrom(ctx).UserID, in)
	if err != nil {
		writeLedgerError(w, "Failed to create entry", err)
		return
	}

	writeJSON(w, http.StatusCreated, entryDTO(*e, h.loc()))
}

// UpdateEntry rewrites a manual entry. Synced entries are rejected.
func (h *Handler) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	id := ledger.EntryID(chi.URLParam(r, "id"))
	in, err := h.decodeEntry(r)
	if err != nil {
		writeLedgerError(w, "Invalid request body", err)
		return
	}

	e, err := h.Ledger.UpdateEntry(r.Context(), tenantFrom(r.Context()), id, in)
	if err != nil {
		writeLedgerError(w, "Failed to update entry", err)
		return
	}

	writeJSON(w, http.StatusOK, entryDTO(*e, h.loc()))
}

// DeleteEntry removes a manual entry. Synced entries are rejected.
func (h *Handler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	id := ledger.EntryID(chi.URLParam(r, "id"))

	if err := h.Ledger.DeleteEntry(r.Context(), tenantFrom(r.Context()), id); err != nil {
		writeLedgerError(w, "Failed to delete entry", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decodeEntry(r *http.Request) (ledger.ManualEntryInput, error) {
	var req EntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return ledger.ManualEntryInput{}, &ledger.ValidationError{Message: "malformed JSON: " + err.Error()}
	}
	date, err := time.ParseInLocation(dateLayout, req.Date, h.loc())
	if err != nil {
		return ledger.ManualEntryInput{}, &ledger.ValidationError{Field: "date", Message: "use YYYY-MM-DD"}
	}
	return ledger.ManualEntryInput{
		AccountID:  ledger.AccountID(req.AccountID),
		Direction:  ledger.Direction(strings.ToUpper(req.Direction)),
		Amount:     req.Amount,
		Date:       date,
		Note:       req.Note,
		PropertyID: ledger.PropertyID(req.PropertyID),
	}, nil
}

// =============================================================================
// ACCOUNT HANDLERS
// =============================================================================

// ListAccounts returns accounts with their computed totals.
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ledger.AccountFilter{
		Type:            ledger.AccountType(strings.ToUpper(q.Get("type"))),
		IncludeArchived: q.Get("include_archived") == "true",
		Search:          q.Get("search"),
	}

	accounts, err := h.Ledger.ListAccounts(r.Context(), tenantFrom(r.Context()), filter)
	if err != nil {
		writeLedgerError(w, "Failed to list accounts", err)
		return
	}

	dtos := make([]AccountDTO, len(accounts))
	for i, a := range accounts {
		dtos[i] = accountSummaryDTO(a)
	}

	writeJSON(w, http.StatusOK, dtos)
}

// CreateAccount adds a user account to the tenant's chart.
func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	a, err := h.Ledger.CreateAccount(r.Context(), tenantFrom(r.Context()), ledger.CreateAccountInput{
		Name: req.Name,
		Type: ledger.AccountType(strings.ToUpper(req.Type)),
		Code: req.Code,
	})
	if err != nil {
		writeLedgerError(w, "Failed to create account", err)
		return
	}

	writeJSON(w, http.StatusCreated, accountDTO(*a))
}

// ArchiveAccount hides a user account from pickers. System accounts refuse.
func (h *Handler) ArchiveAccount(w http.ResponseWriter, r *http.Request) {
	h.setArchived(w, r, true)
}

func (h *Handler) UnarchiveAccount(w http.ResponseWriter, r *http.Request) {
	h.setArchived(w, r, false)
}

func (h *Handler) setArchived(w http.ResponseWriter, r *http.Request, archived bool) {
	id := ledger.AccountID(chi.URLParam(r, "id"))
	tenant := tenantFrom(r.Context())

	var (
		a   *ledger.Account
		err error
	)
	if archived {
		a, err = h.Ledger.ArchiveAccount(r.Context(), tenant, id)
	} else {
		a, err = h.Ledger.UnarchiveAccount(r.Context(), tenant, id)
	}
	if err != nil {
		writeLedgerError(w, "Failed to update account", err)
		return
	}

	writeJSON(w, http.StatusOK, accountDTO(*a))
}

// =============================================================================
// WITHDRAW HANDLERS
// =============================================================================

// GetWithdrawBalance returns the rent-only withdrawable balance.
func (h *Handler) GetWithdrawBalance(w http.ResponseWriter, r *http.Request) {
	b, err := h.Withdraw.GetWithdrawableBalance(r.Context(), tenantFrom(r.Context()))
	if err != nil {
		writeLedgerError(w, "Failed to compute withdrawable balance", err)
		return
	}
	writeJSON(w, http.StatusOK, withdrawBalanceDTO(b))
}

// GetWithdrawBreakdown returns the latest payments and payouts behind the
// withdrawable balance.
func (h *Handler) GetWithdrawBreakdown(w http.ResponseWriter, r *http.Request) {
	bd, err := h.Withdraw.GetBalanceBreakdown(r.Context(), tenantFrom(r.Context()))
	if err != nil {
		writeLedgerError(w, "Failed to compute balance breakdown", err)
		return
	}

	dto := WithdrawBreakdownDTO{
		Balance:  withdrawBalanceDTO(bd.Balance),
		Payments: make([]WithdrawPaymentDTO, len(bd.Payments)),
		Payouts:  make([]WithdrawPayoutDTO, len(bd.Payouts)),
	}
	for i, p := range bd.Payments {
		dto.Payments[i] = WithdrawPaymentDTO{
			EntryID:      string(p.EntryID),
			PaymentID:    p.PaymentID,
			Amount:       p.Amount,
			Date:         p.Date.In(h.loc()).Format(dateLayout),
			BookingID:    p.BookingID,
			PropertyID:   string(p.PropertyID),
			PropertyName: p.PropertyName,
			RoomName:     p.RoomName,
			GuestName:    p.GuestName,
		}
	}
	for i, p := range bd.Payouts {
		dto.Payouts[i] = WithdrawPayoutDTO{
			EntryID:       string(p.EntryID),
			PayoutID:      p.PayoutID,
			Amount:        p.Amount,
			Date:          p.Date.In(h.loc()).Format(dateLayout),
			Status:        string(p.Status),
			BankName:      p.BankName,
			AccountNumber: p.AccountNumber,
			AccountHolder: p.AccountHolder,
		}
	}

	writeJSON(w, http.StatusOK, dto)
}

// ValidateWithdraw checks a prospective withdraw amount.
func (h *Handler) ValidateWithdraw(w http.ResponseWriter, r *http.Request) {
	var req ValidateWithdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	b, err := h.Withdraw.ValidateWithdrawRequest(r.Context(), tenantFrom(r.Context()), req.Amount)
	if err != nil {
		writeLedgerError(w, "Withdraw request rejected", err)
		return
	}

	writeJSON(w, http.StatusOK, ValidateWithdrawDTO{Valid: true, Balance: withdrawBalanceDTO(b)})
}

// =============================================================================
// SYNC HANDLERS
// =============================================================================

// RunSync replays payments and payouts for the caller's tenant.
func (h *Handler) RunSync(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFrom(r.Context())

	payments, err := h.Syncer.SyncExistingPayments(r.Context(), &tenant)
	if err != nil {
		writeLedgerError(w, "Failed to sync payments", err)
		return
	}
	payouts, err := h.Syncer.SyncExistingPayouts(r.Context(), &tenant)
	if err != nil {
		writeLedgerError(w, "Failed to sync payouts", err)
		return
	}

	writeJSON(w, http.StatusOK, SyncRunDTO{Payments: payments, Payouts: payouts})
}

// ValidateSync lists external records missing from the ledger.
func (h *Handler) ValidateSync(w http.ResponseWriter, r *http.Request) {
	report, err := h.Syncer.ValidateSync(r.Context(), tenantFrom(r.Context()))
	if err != nil {
		writeLedgerError(w, "Failed to validate sync", err)
		return
	}
	writeJSON(w, http.StatusOK, SyncStatusDTO{Report: report, Scheduler: schedulerStatusDTO(h.Scheduler)})
}

// =============================================================================
// HELPERS
// =============================================================================

// analyticsPeriod reads from/to, defaulting to the current calendar month.
func (h *Handler) analyticsPeriod(r *http.Request) (ledger.Period, error) {
	q := r.URL.Query()
	if q.Get("from") == "" && q.Get("to") == "" {
		now := h.Ledger.Now().In(h.loc())
		first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, h.loc())
		return ledger.Period{Start: first, End: first.AddDate(0, 1, 0)}, nil
	}
	return h.dateRange(q.Get("from"), q.Get("to"))
}

// dateRange parses an inclusive YYYY-MM-DD range. Either side may be empty.
func (h *Handler) dateRange(from, to string) (ledger.Period, error) {
	loc := h.loc()
	var p ledger.Period
	if from != "" {
		t, err := time.ParseInLocation(dateLayout, from, loc)
		if err != nil {
			return ledger.Period{}, &ledger.ValidationError{Field: "from", Message: "use YYYY-MM-DD"}
		}
		p.Start = t
	}
	if to != "" {
		t, err := time.ParseInLocation(dateLayout, to, loc)
		if err != nil {
			return ledger.Period{}, &ledger.ValidationError{Field: "to", Message: "use YYYY-MM-DD"}
		}
		p.End = t.AddDate(0, 0, 1)
	}
	return p, p.Validate()
}

func intParam(v, name string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, &ledger.ValidationError{Field: name, Message: "must be an integer"}
	}
	return n, nil
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeLedgerError maps the ledger error taxonomy onto HTTP. Client errors
// carry the domain message as the error so the UI can show it as is.
func writeLedgerError(w http.ResponseWriter, message string, err error) {
	switch {
	case ledger.IsForbidden(err):
		writeError(w, http.StatusForbidden, "Forbidden", err)
	case ledger.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error(), nil)
	case ledger.IsBadRequest(err):
		writeError(w, http.StatusBadRequest, err.Error(), nil)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}
