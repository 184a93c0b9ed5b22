/*
handlers_test.go - HTTP tests for the ledger facade

Tests for:
- Tenant gate (role and tenant must match the route)
- Manual entry lifecycle and the direction guard
- Event hooks (secret, idempotency, immutability of synced entries)
- Withdraw validation message
- Inclusive date ranges
- Reconciliation endpoints
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kosku/ledger-engine/billing"
	"github.com/kosku/ledger-engine/ledger"
	"github.com/kosku/ledger-engine/store/sqlite"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

const (
	owner      = "owner-1"
	hookSecret = "s3cret"
)

type testServer struct {
	store   *sqlite.Store
	handler *Handler
	router  *chi.Mux
}

func newTestServer(t *testing.T, devMode bool) *testServer {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	h := NewHandler(store, time.UTC, 10)
	h.HookSecret = hookSecret
	h.DevMode = devMode
	h.Syncer.Logger = log.New(io.Discard, "", 0)

	return &testServer{store: store, handler: h, router: NewRouter(h, []string{"*"})}
}

func adminOf(tenant string) map[string]string {
	return map[string]string{
		HeaderUserID:   "admin-" + tenant,
		HeaderUserRole: "ADMIN",
		HeaderTenantID: tenant,
	}
}

func (ts *testServer) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func ledgerPath(tenant, suffix string) string {
	return "/api/tenants/" + tenant + "/ledger" + suffix
}

// seedPayment stores a settled payment for owner without syncing it.
func (ts *testServer) seedPayment(t *testing.T, id string, amount int64, at time.Time) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, ts.store.SaveProperty(ctx, sqlite.Property{ID: "prop-1", OwnerID: owner, Name: "Kos Mawar"}))
	require.NoError(t, ts.store.SaveBooking(ctx, sqlite.Booking{ID: "bk-1", PropertyID: "prop-1", RoomName: "A1", GuestName: "Budi"}))
	require.NoError(t, ts.store.SavePayment(ctx, billing.Payment{
		ID: id, BookingID: "bk-1", Status: billing.PaymentSuccess,
		Amount: decimal.NewFromInt(amount), TransactionTime: at, CreatedAt: at,
	}))
}

// =============================================================================
// TENANT GATE
// =============================================================================

func TestTenantGate(t *testing.T) {
	ts := newTestServer(t, false)
	path := ledgerPath(owner, "/balance")

	cases := map[string]map[string]string{
		"anonymous":      nil,
		"resident":       {HeaderUserID: "u-9", HeaderUserRole: "RESIDENT", HeaderTenantID: owner},
		"foreign tenant": adminOf("owner-2"),
	}
	for name, headers := range cases {
		t.Run(name, func(t *testing.T) {
			rec := ts.do(t, http.MethodGet, path, nil, headers)
			assert.Equal(t, http.StatusForbidden, rec.Code)
		})
	}

	rec := ts.do(t, http.MethodGet, path, nil, adminOf(owner))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	b := decode[BalanceDTO](t, rec)
	assert.True(t, b.TotalBalance.IsZero())
}

// =============================================================================
// MANUAL ENTRIES
// =============================================================================

func TestManualEntryLifecycle(t *testing.T) {
	// GIVEN: An EXPENSE account created through the API
	// WHEN: Posting IN (rejected), then OUT, then editing and deleting it
	// THEN: Each step answers with the documented status

	ts := newTestServer(t, false)
	headers := adminOf(owner)

	rec := ts.do(t, http.MethodPost, ledgerPath(owner, "/accounts"),
		map[string]string{"name": "Repairs", "type": "expense", "code": "REP"}, headers)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	account := decode[AccountDTO](t, rec)
	assert.Equal(t, "EXPENSE", account.Type)

	rec = ts.do(t, http.MethodPost, ledgerPath(owner, "/accounts"),
		map[string]string{"name": "repairs", "type": "EXPENSE"}, headers)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "duplicate name, case-insensitive")

	body := map[string]any{
		"account_id": account.ID, "direction": "IN", "amount": "250000", "date": "2025-03-14",
	}
	rec = ts.do(t, http.MethodPost, ledgerPath(owner, "/entries"), body, headers)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[ErrorResponse](t, rec).Error, "cannot be posted to EXPENSE")

	body["direction"] = "OUT"
	rec = ts.do(t, http.MethodPost, ledgerPath(owner, "/entries"), body, headers)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	entry := decode[EntryDTO](t, rec)
	assert.Equal(t, "MANUAL", entry.OriginKind)
	assert.Equal(t, "admin-"+owner, entry.AuthorID)
	assert.Equal(t, "2025-03-14", entry.Date)
	assert.True(t, entry.Editable)

	body["amount"] = "300000"
	body["note"] = "Roof"
	rec = ts.do(t, http.MethodPut, ledgerPath(owner, "/entries/"+entry.ID), body, headers)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "300000", decode[EntryDTO](t, rec).Amount.String())

	rec = ts.do(t, http.MethodGet, ledgerPath(owner, "/entries?search=roof"), nil, headers)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[EntryPageDTO](t, rec)
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, 20, page.PageSize)

	rec = ts.do(t, http.MethodGet, ledgerPath(owner, "/accounts?type=expense"), nil, headers)
	require.Equal(t, http.StatusOK, rec.Code)
	accounts := decode[[]AccountDTO](t, rec)
	require.Len(t, accounts, 1)
	require.NotNil(t, accounts[0].TotalAmount)
	assert.Equal(t, "-300000", accounts[0].TotalAmount.String())

	rec = ts.do(t, http.MethodDelete, ledgerPath(owner, "/entries/"+entry.ID), nil, headers)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(t, http.MethodGet, ledgerPath(owner, "/entries/"+entry.ID), nil, headers)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateEntry_RejectsBadInput(t *testing.T) {
	ts := newTestServer(t, false)
	headers := adminOf(owner)

	cases := map[string]map[string]any{
		"bad date":    {"account_id": "x", "direction": "OUT", "amount": "1", "date": "14/03/2025"},
		"zero amount": {"account_id": "x", "direction": "OUT", "amount": "0", "date": "2025-03-14"},
		"no account":  {"direction": "OUT", "amount": "1", "date": "2025-03-14"},
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := ts.do(t, http.MethodPost, ledgerPath(owner, "/entries"), body, headers)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestArchiveSystemAccount_Rejected(t *testing.T) {
	ts := newTestServer(t, false)
	headers := adminOf(owner)
	_, err := ts.handler.Ledger.ProvisionTenant(context.Background(), owner)
	require.NoError(t, err)

	rec := ts.do(t, http.MethodGet, ledgerPath(owner, "/accounts"), nil, headers)
	require.Equal(t, http.StatusOK, rec.Code)
	accounts := decode[[]AccountDTO](t, rec)
	require.Len(t, accounts, 2)

	for _, a := range accounts {
		assert.True(t, a.IsSystem)
		rec := ts.do(t, http.MethodPost, ledgerPath(owner, "/accounts/"+a.ID+"/archive"), nil, headers)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	}
}

// =============================================================================
// HOOKS
// =============================================================================

func TestPaymentHook_IdempotentAndImmutable(t *testing.T) {
	// GIVEN: A settled payment
	// WHEN: The success hook is delivered twice
	// THEN: Exactly one PAYMENT entry exists and it cannot be deleted

	ts := newTestServer(t, false)
	headers := adminOf(owner)
	ts.seedPayment(t, "pay-1", 1500000, time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC))

	rec := ts.do(t, http.MethodPost, "/api/hooks/payments/pay-1/success", nil, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code, "missing secret")

	hook := map[string]string{HeaderHookSecret: hookSecret}
	for i := 0; i < 2; i++ {
		rec = ts.do(t, http.MethodPost, "/api/hooks/payments/pay-1/success", nil, hook)
		assert.Equal(t, http.StatusAccepted, rec.Code)
	}
	rec = ts.do(t, http.MethodPost, "/api/hooks/payments/unknown/success", nil, hook)
	assert.Equal(t, http.StatusAccepted, rec.Code, "failures are logged, not returned")

	rec = ts.do(t, http.MethodGet, ledgerPath(owner, "/entries?origin_kind=payment"), nil, headers)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[EntryPageDTO](t, rec)
	require.Equal(t, 1, page.Total)
	synced := page.Entries[0]
	assert.Equal(t, "pay-1", synced.OriginID)
	assert.Equal(t, "Rent Income", synced.AccountName)
	assert.Equal(t, "prop-1", synced.PropertyID)
	assert.False(t, synced.Editable)

	rec = ts.do(t, http.MethodDelete, ledgerPath(owner, "/entries/"+synced.ID), nil, headers)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodGet, ledgerPath(owner, "/withdraw/balance"), nil, headers)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1500000", decode[WithdrawBalanceDTO](t, rec).WithdrawableBalance.String())
}

func TestHooks_DisabledWithoutSecret(t *testing.T) {
	ts := newTestServer(t, false)
	ts.handler.HookSecret = ""
	router := NewRouter(ts.handler, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/hooks/payouts/po-1/approved", nil)
	req.Header.Set(HeaderHookSecret, "")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

// =============================================================================
// WITHDRAW
// =============================================================================

func TestValidateWithdraw_MessageEmbedsAvailable(t *testing.T) {
	ts := newTestServer(t, false)
	headers := adminOf(owner)
	ctx := context.Background()

	ts.seedPayment(t, "pay-1", 1000000, time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC))
	ts.handler.Syncer.OnPaymentSuccess(ctx, "pay-1")
	require.NoError(t, ts.store.SavePayout(ctx, billing.Payout{
		ID: "po-1", TenantID: owner, Status: billing.PayoutPending,
		Amount: decimal.NewFromInt(200000), RequestedAt: time.Now(),
	}))

	rec := ts.do(t, http.MethodPost, ledgerPath(owner, "/withdraw/validate"), map[string]string{"amount": "900000"}, headers)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "insufficient balance, available: 800000", decode[ErrorResponse](t, rec).Error)

	rec = ts.do(t, http.MethodPost, ledgerPath(owner, "/withdraw/validate"), map[string]string{"amount": "800000"}, headers)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	ok := decode[ValidateWithdrawDTO](t, rec)
	assert.True(t, ok.Valid)
	assert.Equal(t, "200000", ok.Balance.PendingWithdrawals.String())

	rec = ts.do(t, http.MethodGet, ledgerPath(owner, "/withdraw/breakdown"), nil, headers)
	require.Equal(t, http.StatusOK, rec.Code)
	bd := decode[WithdrawBreakdownDTO](t, rec)
	require.Len(t, bd.Payments, 1)
	assert.Equal(t, "Budi", bd.Payments[0].GuestName)
	assert.Equal(t, "2025-03-10", bd.Payments[0].Date)
	assert.Empty(t, bd.Payouts, "pending payouts have no entry")
}

// =============================================================================
// ANALYTICS
// =============================================================================

func TestSummary_ToIsInclusive(t *testing.T) {
	ts := newTestServer(t, false)
	headers := adminOf(owner)

	rec := ts.do(t, http.MethodPost, ledgerPath(owner, "/accounts"),
		map[string]string{"name": "Parking", "type": "INCOME"}, headers)
	require.Equal(t, http.StatusCreated, rec.Code)
	account := decode[AccountDTO](t, rec)

	rec = ts.do(t, http.MethodPost, ledgerPath(owner, "/entries"), map[string]any{
		"account_id": account.ID, "direction": "IN", "amount": "50000", "date": "2025-03-31",
	}, headers)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodGet, ledgerPath(owner, "/summary?from=2025-03-01&to=2025-03-31"), nil, headers)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	s := decode[SummaryDTO](t, rec)
	assert.Equal(t, "50000", s.CashIn.String())
	assert.Equal(t, 1, s.EntriesCount)
	assert.Equal(t, PeriodDTO{From: "2025-03-01", To: "2025-03-31"}, s.Period)

	rec = ts.do(t, http.MethodGet, ledgerPath(owner, "/summary?from=2025-03-01&to=2025-03-30"), nil, headers)
	require.Equal(t, http.StatusOK, rec.Code)
	s = decode[SummaryDTO](t, rec)
	assert.True(t, s.CashIn.IsZero())
	assert.Equal(t, "50000", s.Balance.TotalBalance.String(), "balance is all-time")

	rec = ts.do(t, http.MethodGet, ledgerPath(owner, "/timeseries?from=2025-03-01&to=2025-03-31&granularity=month"), nil, headers)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	series := decode[TimeSeriesDTO](t, rec)
	require.Len(t, series.Points, 1)
	assert.Equal(t, "2025-03-01", series.Points[0].Bucket)
	assert.Equal(t, "50000", series.Points[0].RunningBalance.String())

	rec = ts.do(t, http.MethodGet, ledgerPath(owner, "/breakdown?from=2025-03-01&to=2025-03-31"), nil, headers)
	require.Equal(t, http.StatusOK, rec.Code)
	bd := decode[BreakdownDTO](t, rec)
	require.Len(t, bd.Income, 1)
	assert.Equal(t, "Parking", bd.Income[0].AccountName)
	assert.InDelta(t, 100.0, bd.Income[0].Percentage, 0.001)
}

func TestAnalytics_RejectBadQuery(t *testing.T) {
	ts := newTestServer(t, false)
	headers := adminOf(owner)

	for _, q := range []string{
		"/summary?from=2025-03-31&to=2025-03-01",
		"/summary?from=March",
		"/timeseries?granularity=year",
		"/entries?page=two",
		"/entries?sort=guest",
	} {
		rec := ts.do(t, http.MethodGet, ledgerPath(owner, q), nil, headers)
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

// =============================================================================
// SYNC
// =============================================================================

func TestSyncEndpoints(t *testing.T) {
	// GIVEN: A payment settled while the hook was down
	// WHEN: Validating, syncing, validating again
	// THEN: The payment is reported missing, then recorded once

	ts := newTestServer(t, false)
	headers := adminOf(owner)
	ts.seedPayment(t, "pay-1", 700000, time.Date(2025, time.April, 2, 0, 0, 0, 0, time.UTC))

	rec := ts.do(t, http.MethodGet, ledgerPath(owner, "/sync/validate"), nil, headers)
	require.Equal(t, http.StatusOK, rec.Code)
	var report struct {
		MissingPayments []string `json:"missingPayments"`
		InSync          bool     `json:"inSync"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, []string{"pay-1"}, report.MissingPayments)
	assert.False(t, report.InSync)

	rec = ts.do(t, http.MethodPost, ledgerPath(owner, "/sync"), nil, headers)
	require.Equal(t, http.StatusOK, rec.Code)
	run := decode[SyncRunDTO](t, rec)
	assert.Equal(t, 1, run.Payments.Synced)

	rec = ts.do(t, http.MethodPost, ledgerPath(owner, "/sync"), nil, headers)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, decode[SyncRunDTO](t, rec).Payments.Synced)

	rec = ts.do(t, http.MethodGet, ledgerPath(owner, "/sync/validate"), nil, headers)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.True(t, report.InSync)
	assert.Nil(t, decode[SyncStatusDTO](t, rec).Scheduler)
}

func TestValidateSync_ReportsScheduler(t *testing.T) {
	ts := newTestServer(t, false)
	ts.seedPayment(t, "pay-1", 700000, time.Date(2025, time.April, 2, 0, 0, 0, 0, time.UTC))

	s := NewReconciliationScheduler(ts.handler.Syncer)
	s.Logger = log.New(io.Discard, "", 0)
	s.CheckInterval = time.Hour
	ts.handler.Scheduler = s

	rec := ts.do(t, http.MethodGet, ledgerPath(owner, "/sync/validate"), nil, adminOf(owner))
	require.Equal(t, http.StatusOK, rec.Code)
	status := decode[SyncStatusDTO](t, rec)
	require.NotNil(t, status.Scheduler)
	assert.Equal(t, "1h0m0s", status.Scheduler.Interval)
	assert.Nil(t, status.Scheduler.LastRun)
	assert.Nil(t, status.Scheduler.NextRun)
	assert.False(t, status.InSync)

	s.Start()
	t.Cleanup(s.Stop)
	require.Eventually(t, func() bool { return !s.GetNextRunTime().IsZero() }, 2*time.Second, 10*time.Millisecond)

	rec = ts.do(t, http.MethodGet, ledgerPath(owner, "/sync/validate"), nil, adminOf(owner))
	status = decode[SyncStatusDTO](t, rec)
	require.NotNil(t, status.Scheduler.LastRun)
	assert.Equal(t, 1, status.Scheduler.LastRun.Payments.Synced)
	require.NotNil(t, status.Scheduler.NextRun)
	assert.True(t, status.Scheduler.NextRun.After(status.Scheduler.LastRun.At))
	assert.True(t, status.InSync)
}

func TestNotFoundEntry_ForeignTenantLooksMissing(t *testing.T) {
	ts := newTestServer(t, false)
	ts.seedPayment(t, "pay-1", 100, time.Date(2025, time.April, 2, 0, 0, 0, 0, time.UTC))
	ts.handler.Syncer.OnPaymentSuccess(context.Background(), "pay-1")

	e, err := ts.handler.Ledger.Store.FindEntryByOrigin(context.Background(), owner, ledger.OriginPayment, "pay-1")
	require.NoError(t, err)
	require.NotNil(t, e)

	rec := ts.do(t, http.MethodGet, ledgerPath("owner-2", "/entries/"+string(e.ID)), nil, adminOf("owner-2"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
