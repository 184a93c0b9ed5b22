/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with a realistic
	kos operator: properties, bookings, payments and payouts, then run the
	sync adapters so the ledger reflects them. Only mounted in dev mode.

AVAILABLE SCENARIOS:

	single-kos:      One property, a few months of rent, one completed and
	                 one pending payout, a couple of manual expenses
	multi-property:  Two properties for the demo owner plus a second owner,
	                 to show tenant isolation
	out-of-sync:     Payments settled while the hooks were down; the
	                 integrity check reports them until a sync runs

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Provision the demo tenant's system accounts
 3. Save properties, bookings, payments and payouts
 4. Run the sync adapters (except out-of-sync)
 5. Optionally add manual entries

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "single-kos"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Create loader function: loadXxxScenario(ctx, h)
 3. Add case to LoadScenario handler

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Handler dependencies
  - store/sqlite/billing.go: Seed writers
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kosku/ledger-engine/billing"
	"github.com/kosku/ledger-engine/ledger"
	"github.com/kosku/ledger-engine/store/sqlite"
)

// DemoTenant owns every demo property except the isolation neighbour.
const DemoTenant ledger.TenantID = "demo-owner"

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "single-kos",
		Name:        "Single Kos",
		Description: "One property with three months of rent, a completed and a pending payout",
		TenantID:    string(DemoTenant),
	},
	{
		ID:          "multi-property",
		Name:        "Multi-Property",
		Description: "Two properties for the demo owner and a neighbouring owner",
		TenantID:    string(DemoTenant),
	},
	{
		ID:          "out-of-sync",
		Name:        "Out of Sync",
		Description: "Settled payments missing from the ledger until a sync runs",
		TenantID:    string(DemoTenant),
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario resets the database and loads a scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.loadScenario(r.Context(), req.ScenarioID); err != nil {
		writeError(w, http.StatusBadRequest, "Failed to load scenario", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "loaded",
		"scenario":  req.ScenarioID,
		"tenant_id": string(DemoTenant),
	})
}

// ResetDatabase clears all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.mu.Lock()
	h.currentScenario = ""
	h.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (h *Handler) loadScenario(ctx context.Context, id string) error {
	var load func(context.Context, *Handler) error
	switch id {
	case "single-kos":
		load = loadSingleKosScenario
	case "multi-property":
		load = loadMultiPropertyScenario
	case "out-of-sync":
		load = loadOutOfSyncScenario
	default:
		return fmt.Errorf("unknown scenario: %s", id)
	}

	if err := h.Store.Reset(ctx); err != nil {
		return fmt.Errorf("failed to reset database: %w", err)
	}
	if _, err := h.Ledger.ProvisionTenant(ctx, DemoTenant); err != nil {
		return fmt.Errorf("failed to provision demo tenant: %w", err)
	}
	if err := load(ctx, h); err != nil {
		return err
	}

	h.mu.Lock()
	h.currentScenario = id
	h.mu.Unlock()
	return nil
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func loadSingleKosScenario(ctx context.Context, h *Handler) error {
	now := h.Ledger.Now()
	s := seeder{ctx: ctx, store: h.Store}

	s.property("prop-melati", DemoTenant, "Kos Melati")
	s.booking("bk-a1", "prop-melati", "A1", "Budi Santoso")
	s.booking("bk-a2", "prop-melati", "A2", "Sari Wulandari")
	s.booking("bk-b1", "prop-melati", "B1", "Rizky Pratama")

	for m := 2; m >= 0; m-- {
		month := now.AddDate(0, -m, 0)
		s.payment(fmt.Sprintf("pay-a1-%d", m), "bk-a1", billing.PaymentSuccess, 1500000, month.AddDate(0, 0, -1))
		s.payment(fmt.Sprintf("pay-a2-%d", m), "bk-a2", billing.PaymentSuccess, 1250000, month.AddDate(0, 0, -2))
	}
	s.payment("pay-b1-0", "bk-b1", billing.PaymentSuccess, 1750000, now.AddDate(0, 0, -3))
	s.payment("pay-b1-late", "bk-b1", billing.PaymentExpired, 1750000, now.AddDate(0, 0, -1))

	s.payout("po-1", DemoTenant, billing.PayoutCompleted, 3000000, now.AddDate(0, -1, 0))
	s.payout("po-2", DemoTenant, billing.PayoutPending, 1000000, now.AddDate(0, 0, -1))
	if s.err != nil {
		return s.err
	}

	if err := h.syncTenant(ctx, DemoTenant); err != nil {
		return err
	}

	repairs, err := h.Ledger.CreateAccount(ctx, DemoTenant, ledger.CreateAccountInput{
		Name: "Maintenance", Type: ledger.AccountExpense, Code: "MAINT",
	})
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	utilities, err := h.Ledger.CreateAccount(ctx, DemoTenant, ledger.CreateAccountInput{
		Name: "Utilities", Type: ledger.AccountExpense, Code: "UTIL",
	})
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}

	manual := []ledger.ManualEntryInput{
		{AccountID: repairs.ID, Direction: ledger.DirectionOut, Amount: decimal.NewFromInt(350000), Date: now.AddDate(0, 0, -5), Note: "Fix water heater A2", PropertyID: "prop-melati"},
		{AccountID: utilities.ID, Direction: ledger.DirectionOut, Amount: decimal.NewFromInt(600000), Date: now.AddDate(0, 0, -4), Note: "PLN electricity", PropertyID: "prop-melati"},
	}
	for _, in := range manual {
		if _, err := h.Ledger.CreateManualEntry(ctx, DemoTenant, "demo-admin", in); err != nil {
			return fmt.Errorf("failed to create entry: %w", err)
		}
	}
	return nil
}

func loadMultiPropertyScenario(ctx context.Context, h *Handler) error {
	now := h.Ledger.Now()
	s := seeder{ctx: ctx, store: h.Store}

	s.property("prop-melati", DemoTenant, "Kos Melati")
	s.property("prop-kenanga", DemoTenant, "Kos Kenanga")
	s.property("prop-tetangga", "other-owner", "Kos Tetangga")

	s.booking("bk-m1", "prop-melati", "A1", "Budi Santoso")
	s.booking("bk-k1", "prop-kenanga", "101", "Dewi Lestari")
	s.booking("bk-k2", "prop-kenanga", "102", "Agus Salim")
	s.booking("bk-t1", "prop-tetangga", "1", "Maya Putri")

	s.payment("pay-m1", "bk-m1", billing.PaymentSuccess, 1500000, now.AddDate(0, 0, -10))
	s.payment("pay-k1", "bk-k1", billing.PaymentSuccess, 2000000, now.AddDate(0, 0, -8))
	s.payment("pay-k2", "bk-k2", billing.PaymentSuccess, 2000000, now.AddDate(0, 0, -6))
	s.payment("pay-t1", "bk-t1", billing.PaymentSuccess, 900000, now.AddDate(0, 0, -7))
	s.payout("po-demo", DemoTenant, billing.PayoutApproved, 1000000, now.AddDate(0, 0, -2))
	s.payout("po-other", "other-owner", billing.PayoutCompleted, 500000, now.AddDate(0, 0, -2))
	if s.err != nil {
		return s.err
	}

	if _, err := h.Syncer.SyncExistingPayments(ctx, nil); err != nil {
		return fmt.Errorf("failed to sync payments: %w", err)
	}
	if _, err := h.Syncer.SyncExistingPayouts(ctx, nil); err != nil {
		return fmt.Errorf("failed to sync payouts: %w", err)
	}
	return nil
}

func loadOutOfSyncScenario(ctx context.Context, h *Handler) error {
	now := h.Ledger.Now()
	s := seeder{ctx: ctx, store: h.Store}

	s.property("prop-melati", DemoTenant, "Kos Melati")
	s.booking("bk-a1", "prop-melati", "A1", "Budi Santoso")
	s.payment("pay-synced", "bk-a1", billing.PaymentSuccess, 1500000, now.AddDate(0, -1, 0))
	if s.err != nil {
		return s.err
	}
	if err := h.syncTenant(ctx, DemoTenant); err != nil {
		return err
	}

	// Settled after the sync, never delivered by a hook.
	s.payment("pay-missed", "bk-a1", billing.PaymentSuccess, 1500000, now.AddDate(0, 0, -1))
	s.payout("po-missed", DemoTenant, billing.PayoutCompleted, 500000, now)
	return s.err
}

func (h *Handler) syncTenant(ctx context.Context, tenant ledger.TenantID) error {
	if _, err := h.Syncer.SyncExistingPayments(ctx, &tenant); err != nil {
		return fmt.Errorf("failed to sync payments: %w", err)
	}
	if _, err := h.Syncer.SyncExistingPayouts(ctx, &tenant); err != nil {
		return fmt.Errorf("failed to sync payouts: %w", err)
	}
	return nil
}

// seeder writes billing fixtures and keeps the first error.
type seeder struct {
	ctx   context.Context
	store *sqlite.Store
	err   error
}

func (s *seeder) property(id ledger.PropertyID, owner ledger.TenantID, name string) {
	if s.err == nil {
		s.err = s.store.SaveProperty(s.ctx, sqlite.Property{ID: id, OwnerID: owner, Name: name})
	}
}

func (s *seeder) booking(id string, property ledger.PropertyID, room, guest string) {
	if s.err == nil {
		s.err = s.store.SaveBooking(s.ctx, sqlite.Booking{ID: id, PropertyID: property, RoomName: room, GuestName: guest})
	}
}

func (s *seeder) payment(id, booking string, status billing.PaymentStatus, amount int64, at time.Time) {
	if s.err != nil {
		return
	}
	p := billing.Payment{
		ID:        id,
		BookingID: booking,
		Status:    status,
		Amount:    decimal.NewFromInt(amount),
		CreatedAt: at.Add(-time.Hour),
	}
	if status == billing.PaymentSuccess {
		p.TransactionTime = at
	}
	s.err = s.store.SavePayment(s.ctx, p)
}

func (s *seeder) payout(id string, tenant ledger.TenantID, status billing.PayoutStatus, amount int64, at time.Time) {
	if s.err != nil {
		return
	}
	p := billing.Payout{
		ID:            id,
		TenantID:      tenant,
		Status:        status,
		Amount:        decimal.NewFromInt(amount),
		BankName:      "BCA",
		AccountNumber: "0123456789",
		AccountHolder: "Demo Owner",
		RequestedAt:   at.Add(-24 * time.Hour),
	}
	if status.Posted() {
		p.ProcessedAt = at
	}
	s.err = s.store.SavePayout(s.ctx, p)
}
