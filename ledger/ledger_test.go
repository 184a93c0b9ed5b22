package ledger_test

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kosku/ledger-engine/ledger"
	"github.com/kosku/ledger-engine/ledger/store"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

const tenant ledger.TenantID = "owner-1"

func newTestService(t *testing.T) *ledger.Service {
	t.Helper()
	svc := ledger.NewService(store.NewMemory(), nil)
	_, err := svc.ProvisionTenant(context.Background(), tenant)
	require.NoError(t, err)
	return svc
}

func rp(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

func mustAccount(t *testing.T, svc *ledger.Service, name string, typ ledger.AccountType) *ledger.Account {
	t.Helper()
	a, err := svc.CreateAccount(context.Background(), tenant, ledger.CreateAccountInput{Name: name, Type: typ})
	require.NoError(t, err)
	return a
}

func mustManual(t *testing.T, svc *ledger.Service, a *ledger.Account, d ledger.Direction, amount int64, at time.Time) *ledger.Entry {
	t.Helper()
	e, err := svc.CreateManualEntry(context.Background(), tenant, "admin-1", ledger.ManualEntryInput{
		AccountID: a.ID, Direction: d, Amount: rp(amount), Date: at,
	})
	require.NoError(t, err)
	return e
}

func mustPayment(t *testing.T, svc *ledger.Service, id string, amount int64, at time.Time) *ledger.Entry {
	t.Helper()
	e, _, err := svc.RecordExternalEntry(context.Background(), tenant, ledger.ExternalEntry{
		Kind: ledger.OriginPayment, OriginID: id, Account: ledger.SystemRentIncome,
		Direction: ledger.DirectionIn, Amount: rp(amount), Date: at,
	})
	require.NoError(t, err)
	return e
}

// =============================================================================
// DIRECTION RULES
// =============================================================================

func TestValidateDirectionForAccountType_Matrix(t *testing.T) {
	cases := []struct {
		typ ledger.AccountType
		dir ledger.Direction
		ok  bool
	}{
		{ledger.AccountIncome, ledger.DirectionIn, true},
		{ledger.AccountIncome, ledger.DirectionOut, false},
		{ledger.AccountExpense, ledger.DirectionIn, false},
		{ledger.AccountExpense, ledger.DirectionOut, true},
		{ledger.AccountOther, ledger.DirectionIn, true},
		{ledger.AccountOther, ledger.DirectionOut, true},
	}
	for _, tc := range cases {
		t.Run(string(tc.typ)+"_"+string(tc.dir), func(t *testing.T) {
			err := ledger.ValidateDirectionForAccountType(tc.typ, tc.dir)
			if tc.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ledger.ErrDirectionMismatch)
			assert.True(t, ledger.IsBadRequest(err))
		})
	}
}

func TestCreateManualEntry_ExpenseInRejected(t *testing.T) {
	// GIVEN: An EXPENSE account
	// WHEN: Posting an IN entry to it
	// THEN: BadRequest, nothing stored

	ctx := context.Background()
	svc := newTestService(t)
	repairs := mustAccount(t, svc, "Repairs", ledger.AccountExpense)

	_, err := svc.CreateManualEntry(ctx, tenant, "admin-1", ledger.ManualEntryInput{
		AccountID: repairs.ID, Direction: ledger.DirectionIn, Amount: rp(100), Date: date(2025, 1, 5),
	})
	assert.ErrorIs(t, err, ledger.ErrDirectionMismatch)
	assert.True(t, ledger.IsBadRequest(err))

	page, err := svc.ListEntries(ctx, tenant, ledger.EntryFilter{})
	require.NoError(t, err)
	assert.Equal(t, 0, page.Total)
}

func TestCreateManualEntry_InvalidInput(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	other := mustAccount(t, svc, "Deposits", ledger.AccountOther)

	cases := map[string]ledger.ManualEntryInput{
		"zero amount":     {AccountID: other.ID, Direction: ledger.DirectionIn, Amount: decimal.Zero, Date: date(2025, 1, 1)},
		"negative amount": {AccountID: other.ID, Direction: ledger.DirectionIn, Amount: rp(-1), Date: date(2025, 1, 1)},
		"bad direction":   {AccountID: other.ID, Direction: "SIDEWAYS", Amount: rp(1), Date: date(2025, 1, 1)},
		"missing date":    {AccountID: other.ID, Direction: ledger.DirectionIn, Amount: rp(1)},
		"unknown account": {AccountID: "nope", Direction: ledger.DirectionIn, Amount: rp(1), Date: date(2025, 1, 1)},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.CreateManualEntry(ctx, tenant, "admin-1", in)
			assert.True(t, ledger.IsBadRequest(err), "got %v", err)
		})
	}
}

func TestCreateManualEntry_ArchivedAccountRejected(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	old := mustAccount(t, svc, "Old Laundry", ledger.AccountExpense)
	_, err := svc.ArchiveAccount(ctx, tenant, old.ID)
	require.NoError(t, err)

	_, err = svc.CreateManualEntry(ctx, tenant, "admin-1", ledger.ManualEntryInput{
		AccountID: old.ID, Direction: ledger.DirectionOut, Amount: rp(10), Date: date(2025, 1, 1),
	})
	assert.ErrorIs(t, err, ledger.ErrArchivedAccount)

	_, err = svc.UnarchiveAccount(ctx, tenant, old.ID)
	require.NoError(t, err)
	mustManual(t, svc, old, ledger.DirectionOut, 10, date(2025, 1, 1))
}

// =============================================================================
// IMMUTABILITY
// =============================================================================

func TestSyncedEntries_CannotBeEditedOrDeleted(t *testing.T) {
	// GIVEN: A PAYMENT entry and a PAYOUT entry
	// WHEN: Updating or deleting either through the service
	// THEN: BadRequest each time; entries unchanged

	ctx := context.Background()
	svc := newTestService(t)
	payment := mustPayment(t, svc, "pay-1", 1000, date(2025, 2, 1))
	payout, _, err := svc.RecordExternalEntry(ctx, tenant, ledger.ExternalEntry{
		Kind: ledger.OriginPayout, OriginID: "po-1", Account: ledger.SystemFundWithdrawal,
		Direction: ledger.DirectionOut, Amount: rp(100), Date: date(2025, 2, 2),
	})
	require.NoError(t, err)

	for _, e := range []*ledger.Entry{payment, payout} {
		_, err := svc.UpdateEntry(ctx, tenant, e.ID, ledger.ManualEntryInput{
			AccountID: e.AccountID, Direction: e.Direction, Amount: rp(1), Date: e.Date,
		})
		assert.ErrorIs(t, err, ledger.ErrImmutableEntry)
		assert.True(t, ledger.IsBadRequest(err))

		err = svc.DeleteEntry(ctx, tenant, e.ID)
		assert.ErrorIs(t, err, ledger.ErrImmutableEntry)
	}

	got, err := svc.GetEntry(ctx, tenant, payment.ID)
	require.NoError(t, err)
	assert.True(t, rp(1000).Equal(got.Amount))
}

func TestUpdateEntry_RevalidatesAgainstNewAccount(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	deposits := mustAccount(t, svc, "Deposits", ledger.AccountOther)
	repairs := mustAccount(t, svc, "Repairs", ledger.AccountExpense)
	e := mustManual(t, svc, deposits, ledger.DirectionIn, 500, date(2025, 3, 1))

	_, err := svc.UpdateEntry(ctx, tenant, e.ID, ledger.ManualEntryInput{
		AccountID: repairs.ID, Direction: ledger.DirectionIn, Amount: rp(500), Date: e.Date,
	})
	assert.ErrorIs(t, err, ledger.ErrDirectionMismatch)

	updated, err := svc.UpdateEntry(ctx, tenant, e.ID, ledger.ManualEntryInput{
		AccountID: repairs.ID, Direction: ledger.DirectionOut, Amount: rp(450), Date: e.Date, Note: " fixed pipe ",
	})
	require.NoError(t, err)
	assert.Equal(t, repairs.ID, updated.AccountID)
	assert.Equal(t, "fixed pipe", updated.Note)
	assert.Equal(t, e.OriginID, updated.OriginID)

	got, err := svc.GetEntry(ctx, tenant, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "Repairs", got.AccountName)
	assert.True(t, rp(450).Equal(got.Amount))
}

func TestEntries_OtherTenantSeesNothing(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	deposits := mustAccount(t, svc, "Deposits", ledger.AccountOther)
	e := mustManual(t, svc, deposits, ledger.DirectionIn, 500, date(2025, 3, 1))

	_, err := svc.GetEntry(ctx, "owner-2", e.ID)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
	err = svc.DeleteEntry(ctx, "owner-2", e.ID)
	assert.ErrorIs(t, err, ledger.ErrNotFound)

	_, err = svc.GetEntry(ctx, "", e.ID)
	assert.ErrorIs(t, err, ledger.ErrTenantRequired)
}

// =============================================================================
// ACCOUNTS
// =============================================================================

func TestProvisionTenant_Idempotent(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	again, err := svc.ProvisionTenant(ctx, tenant)
	require.NoError(t, err)
	require.Len(t, again, 2)

	accounts, err := svc.ListAccounts(ctx, tenant, ledger.AccountFilter{})
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	for _, a := range accounts {
		assert.True(t, a.IsSystem)
	}

	rent, err := svc.LookupSystemAccount(ctx, tenant, ledger.SystemRentIncome)
	require.NoError(t, err)
	assert.Equal(t, ledger.AccountIncome, rent.Type)
	fund, err := svc.LookupSystemAccount(ctx, tenant, ledger.SystemFundWithdrawal)
	require.NoError(t, err)
	assert.Equal(t, ledger.AccountOther, fund.Type)
}

func TestSystemAccount_LazyFallbackForUnprovisionedTenant(t *testing.T) {
	ctx := context.Background()
	svc := ledger.NewService(store.NewMemory(), nil)

	missing, err := svc.LookupSystemAccount(ctx, "legacy", ledger.SystemRentIncome)
	require.NoError(t, err)
	assert.Nil(t, missing)

	a, err := svc.SystemAccount(ctx, "legacy", ledger.SystemRentIncome)
	require.NoError(t, err)
	assert.Equal(t, "Rent Income", a.Name)
	assert.Equal(t, "RENT", a.Code)
}

func TestArchive_SystemAccountRejected(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	rent, err := svc.LookupSystemAccount(ctx, tenant, ledger.SystemRentIncome)
	require.NoError(t, err)

	_, err = svc.ArchiveAccount(ctx, tenant, rent.ID)
	assert.ErrorIs(t, err, ledger.ErrSystemAccount)
	assert.True(t, ledger.IsBadRequest(err))

	_, err = svc.ArchiveAccount(ctx, tenant, "missing")
	assert.True(t, ledger.IsNotFound(err))
}

func TestCreateAccount_Validation(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	mustAccount(t, svc, "Electricity", ledger.AccountExpense)

	cases := map[string]ledger.CreateAccountInput{
		"duplicate name any case": {Name: "eLeCtRiCiTy", Type: ledger.AccountExpense},
		"system name taken":       {Name: "rent income", Type: ledger.AccountIncome},
		"name too short":          {Name: "ab", Type: ledger.AccountExpense},
		"name too long":           {Name: string(make([]byte, 101)), Type: ledger.AccountExpense},
		"code too short":          {Name: "Water", Type: ledger.AccountExpense, Code: "W"},
		"bad type":                {Name: "Water", Type: "ASSET"},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.CreateAccount(ctx, tenant, in)
			assert.True(t, ledger.IsBadRequest(err), "got %v", err)
		})
	}

	a, err := svc.CreateAccount(ctx, tenant, ledger.CreateAccountInput{Name: "  Water  ", Type: ledger.AccountExpense, Code: "WT"})
	require.NoError(t, err)
	assert.Equal(t, "Water", a.Name)
	assert.False(t, a.IsSystem)

	_, err = svc.CreateAccount(ctx, "owner-2", ledger.CreateAccountInput{Name: "Electricity", Type: ledger.AccountExpense})
	assert.NoError(t, err, "names are unique per tenant only")
}

func TestCreateAccount_SystemNamesReserved(t *testing.T) {
	// GIVEN: A tenant with no system accounts yet
	// WHEN: A user account claims a system name, then the first payment syncs
	// THEN: The claim is rejected and the payment lands on the system account

	ctx := context.Background()
	svc := ledger.NewService(store.NewMemory(), nil)

	for _, name := range []string{"rent income", "  FUND WITHDRAWAL "} {
		_, err := svc.CreateAccount(ctx, "fresh", ledger.CreateAccountInput{Name: name, Type: ledger.AccountExpense})
		assert.ErrorIs(t, err, ledger.ErrReservedAccountName, name)
		assert.True(t, ledger.IsBadRequest(err))
	}

	e, created, err := svc.RecordExternalEntry(ctx, "fresh", ledger.ExternalEntry{
		Kind: ledger.OriginPayment, OriginID: "pay-1", Account: ledger.SystemRentIncome,
		Direction: ledger.DirectionIn, Amount: rp(1000), Date: date(2025, 1, 1),
	})
	require.NoError(t, err)
	assert.True(t, created)

	rent, err := svc.GetAccount(ctx, "fresh", e.AccountID)
	require.NoError(t, err)
	assert.True(t, rent.IsSystem)
	assert.Equal(t, ledger.AccountIncome, rent.Type)

	_, err = svc.ArchiveAccount(ctx, "fresh", rent.ID)
	assert.ErrorIs(t, err, ledger.ErrSystemAccount)
}

func TestSystemAccount_ForeignRowUnderSystemNameRejected(t *testing.T) {
	// GIVEN: A non-system EXPENSE row named like Rent Income, written below the service
	// WHEN: Looking up, provisioning or syncing
	// THEN: Every path refuses to treat it as the system account

	ctx := context.Background()
	m := store.NewMemory()
	require.NoError(t, m.CreateAccount(ctx, "legacy", ledger.Account{
		ID: "acc-user", Name: "rent income", Type: ledger.AccountExpense,
	}))
	svc := ledger.NewService(m, nil)

	_, err := svc.LookupSystemAccount(ctx, "legacy", ledger.SystemRentIncome)
	assert.ErrorIs(t, err, ledger.ErrInternal)

	_, err = svc.ProvisionTenant(ctx, "legacy")
	assert.ErrorIs(t, err, ledger.ErrInternal)

	_, _, err = svc.RecordExternalEntry(ctx, "legacy", ledger.ExternalEntry{
		Kind: ledger.OriginPayment, OriginID: "pay-1", Account: ledger.SystemRentIncome,
		Direction: ledger.DirectionIn, Amount: rp(1000), Date: date(2025, 1, 1),
	})
	assert.ErrorIs(t, err, ledger.ErrInternal)

	missing, err := svc.MissingOrigins(ctx, "legacy", ledger.OriginPayment, []string{"pay-1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"pay-1"}, missing)
}

func TestRecordExternalEntry_DirectionMustFitAccount(t *testing.T) {
	svc := newTestService(t)
	_, _, err := svc.RecordExternalEntry(context.Background(), tenant, ledger.ExternalEntry{
		Kind: ledger.OriginPayout, OriginID: "po-1", Account: ledger.SystemRentIncome,
		Direction: ledger.DirectionOut, Amount: rp(1), Date: date(2025, 1, 1),
	})
	assert.ErrorIs(t, err, ledger.ErrDirectionMismatch)
	assert.True(t, ledger.IsBadRequest(err))
}

func TestSystemAccounts_ReturnsCopy(t *testing.T) {
	specs := ledger.SystemAccounts()
	require.Len(t, specs, 2)
	specs[0].Name = "changed"
	assert.Equal(t, "Rent Income", ledger.SystemAccounts()[0].Name)
}

func TestListAccounts_ComputedTotals(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	deposits := mustAccount(t, svc, "Deposits", ledger.AccountOther)
	mustManual(t, svc, deposits, ledger.DirectionIn, 700, date(2025, 1, 1))
	mustManual(t, svc, deposits, ledger.DirectionOut, 200, date(2025, 1, 2))

	accounts, err := svc.ListAccounts(ctx, tenant, ledger.AccountFilter{Type: ledger.AccountOther, Search: "DEP"})
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, 2, accounts[0].EntriesCount)
	assert.Equal(t, "500", accounts[0].TotalAmount.String())

	_, err = svc.ListAccounts(ctx, tenant, ledger.AccountFilter{Type: "ASSET"})
	assert.True(t, ledger.IsBadRequest(err))
}

// =============================================================================
// SYNC
// =============================================================================

func TestRecordExternalEntry_Idempotent(t *testing.T) {
	// GIVEN: A recorded payment
	// WHEN: The same origin is recorded again with a different amount
	// THEN: The original entry is returned, created=false, nothing added

	ctx := context.Background()
	svc := newTestService(t)
	first := mustPayment(t, svc, "pay-1", 1000, date(2025, 1, 10))

	again, created, err := svc.RecordExternalEntry(ctx, tenant, ledger.ExternalEntry{
		Kind: ledger.OriginPayment, OriginID: "pay-1", Account: ledger.SystemRentIncome,
		Direction: ledger.DirectionIn, Amount: rp(9999), Date: date(2025, 1, 11),
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)
	assert.True(t, rp(1000).Equal(again.Amount))

	page, err := svc.ListEntries(ctx, tenant, ledger.EntryFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)

	// same id under a different kind is a different event
	_, created, err = svc.RecordExternalEntry(ctx, tenant, ledger.ExternalEntry{
		Kind: ledger.OriginPayout, OriginID: "pay-1", Account: ledger.SystemFundWithdrawal,
		Direction: ledger.DirectionOut, Amount: rp(1), Date: date(2025, 1, 11),
	})
	require.NoError(t, err)
	assert.True(t, created)
}

func TestRecordExternalEntry_RejectsManualKind(t *testing.T) {
	svc := newTestService(t)
	_, _, err := svc.RecordExternalEntry(context.Background(), tenant, ledger.ExternalEntry{
		Kind: ledger.OriginManual, OriginID: "x", Account: ledger.SystemRentIncome,
		Direction: ledger.DirectionIn, Amount: rp(1), Date: date(2025, 1, 1),
	})
	assert.True(t, ledger.IsBadRequest(err))
}

func TestMissingOrigins(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	mustPayment(t, svc, "pay-2", 10, date(2025, 1, 1))

	missing, err := svc.MissingOrigins(ctx, tenant, ledger.OriginPayment, []string{"pay-3", "pay-2", "pay-1", "pay-3"})
	require.NoError(t, err)
	assert.Equal(t, []string{"pay-1", "pay-3"}, missing)
}

// =============================================================================
// BALANCE PROPERTIES
// =============================================================================

func TestBalance_Conservation(t *testing.T) {
	// GIVEN: Random entries across three tenants
	// WHEN: Computing each tenant's balance
	// THEN: totalBalance == Σ(IN) − Σ(OUT) over that tenant's entries

	ctx := context.Background()
	svc := ledger.NewService(store.NewMemory(), nil)
	rng := rand.New(rand.NewSource(42))

	tenants := []ledger.TenantID{"t-1", "t-2", "t-3"}
	expected := map[ledger.TenantID]decimal.Decimal{}
	for _, tn := range tenants {
		a, err := svc.CreateAccount(ctx, tn, ledger.CreateAccountInput{Name: "Cash Box", Type: ledger.AccountOther})
		require.NoError(t, err)
		expected[tn] = decimal.Zero
		for i := 0; i < 40; i++ {
			amount := decimal.New(rng.Int63n(1_000_000)+1, -2)
			d := ledger.DirectionIn
			if rng.Intn(2) == 0 {
				d = ledger.DirectionOut
			}
			_, err := svc.CreateManualEntry(ctx, tn, "admin", ledger.ManualEntryInput{
				AccountID: a.ID, Direction: d, Amount: amount, Date: date(2025, time.Month(1+rng.Intn(12)), 1+rng.Intn(28)),
			})
			require.NoError(t, err)
			if d == ledger.DirectionIn {
				expected[tn] = expected[tn].Add(amount)
			} else {
				expected[tn] = expected[tn].Sub(amount)
			}
		}
	}

	for _, tn := range tenants {
		b, err := svc.CalculateBalance(ctx, tn)
		require.NoError(t, err)
		assert.True(t, expected[tn].Equal(b.TotalBalance), "%s: want %s got %s", tn, expected[tn], b.TotalBalance)
		assert.True(t, b.TotalIn.Sub(b.TotalOut).Equal(b.TotalBalance))
		assert.True(t, b.AvailableBalance.Equal(b.TotalBalance), "no pending payouts")
	}
}

func TestCreateThenDelete_RestoresBalance(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	mustPayment(t, svc, "pay-1", 1000, date(2025, 1, 1))
	repairs := mustAccount(t, svc, "Repairs", ledger.AccountExpense)

	before, err := svc.CalculateBalance(ctx, tenant)
	require.NoError(t, err)

	e := mustManual(t, svc, repairs, ledger.DirectionOut, 250, date(2025, 1, 2))
	during, err := svc.CalculateBalance(ctx, tenant)
	require.NoError(t, err)
	assert.Equal(t, "750", during.TotalBalance.String())

	require.NoError(t, svc.DeleteEntry(ctx, tenant, e.ID))
	after, err := svc.CalculateBalance(ctx, tenant)
	require.NoError(t, err)
	assert.True(t, before.TotalBalance.Equal(after.TotalBalance))
	assert.True(t, before.TotalOut.Equal(after.TotalOut))
	assert.True(t, before.AvailableBalance.Equal(after.AvailableBalance))
}

// =============================================================================
// ANALYTICS
// =============================================================================

func TestSummary_PeriodFlowsAndRentIncome(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	repairs := mustAccount(t, svc, "Repairs", ledger.AccountExpense)
	other := mustAccount(t, svc, "Parking Fees", ledger.AccountIncome)

	mustPayment(t, svc, "pay-jan", 1000, date(2025, 1, 15))
	mustPayment(t, svc, "pay-feb", 2000, date(2025, 2, 15))
	mustManual(t, svc, other, ledger.DirectionIn, 300, date(2025, 2, 16))
	mustManual(t, svc, repairs, ledger.DirectionOut, 500, date(2025, 2, 20))

	period, err := ledger.DateRange(date(2025, 2, 1), date(2025, 2, 28), time.UTC)
	require.NoError(t, err)
	sum, err := svc.GetSummary(ctx, tenant, period)
	require.NoError(t, err)

	assert.Equal(t, "2300", sum.CashIn.String())
	assert.Equal(t, "500", sum.CashOut.String())
	assert.Equal(t, "1800", sum.NetFlow.String())
	assert.Equal(t, 3, sum.EntriesCount)
	assert.Equal(t, "2000", sum.RentIncome.String())
	assert.Equal(t, "2800", sum.Balance.TotalBalance.String(), "balance is all-time")

	_, err = svc.GetSummary(ctx, tenant, ledger.Period{Start: date(2025, 3, 1), End: date(2025, 2, 1)})
	assert.ErrorIs(t, err, ledger.ErrInvalidPeriod)
}

func TestBreakdown_IncomePercentages(t *testing.T) {
	// GIVEN: Two income accounts earning 600,000 and 400,000 in the period
	// WHEN: Building the breakdown
	// THEN: Two income rows, 60% then 40%; untouched accounts absent

	ctx := context.Background()
	svc := newTestService(t)
	rooms := mustAccount(t, svc, "Room Rent", ledger.AccountIncome)
	laundry := mustAccount(t, svc, "Laundry", ledger.AccountIncome)
	mustAccount(t, svc, "Unused", ledger.AccountIncome)
	repairs := mustAccount(t, svc, "Repairs", ledger.AccountExpense)

	mustManual(t, svc, laundry, ledger.DirectionIn, 150000, date(2025, 4, 2))
	mustManual(t, svc, laundry, ledger.DirectionIn, 250000, date(2025, 4, 3))
	mustManual(t, svc, rooms, ledger.DirectionIn, 600000, date(2025, 4, 4))
	mustManual(t, svc, repairs, ledger.DirectionOut, 80000, date(2025, 4, 5))
	mustManual(t, svc, rooms, ledger.DirectionIn, 999999, date(2025, 5, 1))

	period, err := ledger.DateRange(date(2025, 4, 1), date(2025, 4, 30), time.UTC)
	require.NoError(t, err)
	b, err := svc.GetBreakdown(ctx, tenant, period)
	require.NoError(t, err)

	require.Len(t, b.Income, 2)
	assert.Equal(t, "Room Rent", b.Income[0].AccountName)
	assert.Equal(t, "600000", b.Income[0].Amount.String())
	assert.Equal(t, 60.0, b.Income[0].Percentage)
	assert.Equal(t, "Laundry", b.Income[1].AccountName)
	assert.Equal(t, 40.0, b.Income[1].Percentage)
	assert.Equal(t, 2, b.Income[1].EntriesCount)

	require.Len(t, b.Expense, 1)
	assert.Equal(t, 100.0, b.Expense[0].Percentage)
	assert.Empty(t, b.Other)
	assert.NotNil(t, b.Other)
}

func TestTimeSeries_MonthlySparseWithRunningBalance(t *testing.T) {
	// GIVEN: A pre-range entry, then entries only in months 1 and 3 of a 3-month range
	// WHEN: Requesting a monthly series
	// THEN: Two buckets; month 3 running balance = opening + net(m1) + net(m3)

	ctx := context.Background()
	svc := newTestService(t)
	repairs := mustAccount(t, svc, "Repairs", ledger.AccountExpense)

	mustPayment(t, svc, "pay-old", 5000, date(2024, 12, 20))
	mustPayment(t, svc, "pay-jan", 1000, date(2025, 1, 10))
	mustManual(t, svc, repairs, ledger.DirectionOut, 300, date(2025, 1, 25))
	mustPayment(t, svc, "pay-mar", 2000, date(2025, 3, 5))
	mustPayment(t, svc, "pay-apr", 7777, date(2025, 4, 1))

	period, err := ledger.DateRange(date(2025, 1, 1), date(2025, 3, 31), time.UTC)
	require.NoError(t, err)
	ts, err := svc.GetTimeSeries(ctx, tenant, period, ledger.GranularityMonth)
	require.NoError(t, err)

	assert.Equal(t, "5000", ts.OpeningBalance.String())
	require.Len(t, ts.Points, 2)

	jan, mar := ts.Points[0], ts.Points[1]
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), jan.Bucket)
	assert.Equal(t, "700", jan.NetFlow.String())
	assert.Equal(t, "5700", jan.RunningBalance.String())
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), mar.Bucket)
	assert.True(t, ts.OpeningBalance.Add(jan.NetFlow).Add(mar.NetFlow).Equal(mar.RunningBalance))

	_, err = svc.GetTimeSeries(ctx, tenant, period, "hour")
	assert.True(t, ledger.IsBadRequest(err))
}

func TestBuildTimeSeries_WeekStartsMonday(t *testing.T) {
	// 2025-03-02 is a Sunday, 2025-03-03 a Monday
	entries := []ledger.Entry{
		{Direction: ledger.DirectionIn, Amount: rp(10), Date: date(2025, 3, 2)},
		{Direction: ledger.DirectionIn, Amount: rp(20), Date: date(2025, 3, 3)},
		{Direction: ledger.DirectionOut, Amount: rp(5), Date: date(2025, 3, 9)},
	}
	points := ledger.BuildTimeSeries(entries, decimal.Zero, ledger.GranularityWeek, time.UTC)

	require.Len(t, points, 2)
	assert.Equal(t, time.Date(2025, 2, 24, 0, 0, 0, 0, time.UTC), points[0].Bucket)
	assert.Equal(t, time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC), points[1].Bucket)
	assert.Equal(t, 2, points[1].EntriesCount)
	assert.Equal(t, "25", points[1].RunningBalance.String())
}

func TestDateRange_ToIsInclusiveInLocation(t *testing.T) {
	jakarta := time.FixedZone("WIB", 7*60*60)
	p, err := ledger.DateRange(date(2025, 1, 1), date(2025, 1, 31), jakarta)
	require.NoError(t, err)

	// 2025-01-31 20:00 UTC is already Feb 1st in Jakarta
	assert.True(t, p.Contains(time.Date(2025, 1, 31, 16, 59, 0, 0, time.UTC)))
	assert.False(t, p.Contains(time.Date(2025, 1, 31, 20, 0, 0, 0, time.UTC)))

	_, err = ledger.DateRange(date(2025, 2, 1), date(2025, 1, 1), jakarta)
	assert.ErrorIs(t, err, ledger.ErrInvalidPeriod)
}

// =============================================================================
// LISTING
// =============================================================================

func TestListEntries_FiltersAndPagination(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	repairs := mustAccount(t, svc, "Repairs", ledger.AccountExpense)
	for i := 1; i <= 25; i++ {
		mustManual(t, svc, repairs, ledger.DirectionOut, int64(i), date(2025, 1, i))
	}
	mustPayment(t, svc, "pay-xyz", 1000, date(2025, 1, 15))

	page, err := svc.ListEntries(ctx, tenant, ledger.EntryFilter{})
	require.NoError(t, err)
	assert.Equal(t, 26, page.Total)
	assert.Len(t, page.Entries, ledger.DefaultPageSize)
	assert.Equal(t, date(2025, 1, 25), page.Entries[0].Date)

	page, err = svc.ListEntries(ctx, tenant, ledger.EntryFilter{SortBy: ledger.SortByAmount, Order: ledger.OrderDesc, PageSize: 1000})
	require.NoError(t, err)
	assert.Equal(t, ledger.MaxPageSize, page.PageSize)
	assert.Equal(t, "pay-xyz", page.Entries[0].OriginID)

	page, err = svc.ListEntries(ctx, tenant, ledger.EntryFilter{Search: "XYZ"})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)

	page, err = svc.ListEntries(ctx, tenant, ledger.EntryFilter{Search: "repa", Page: 3, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, 25, page.Total)
	assert.Len(t, page.Entries, 5)

	_, err = svc.ListEntries(ctx, tenant, ledger.EntryFilter{SortBy: "name"})
	assert.True(t, ledger.IsBadRequest(err))
}

func TestActorAuthorize(t *testing.T) {
	admin := ledger.Actor{UserID: "u-1", Role: ledger.RoleAdmin, TenantID: "owner-a"}
	assert.NoError(t, admin.Authorize("owner-a"))
	assert.ErrorIs(t, admin.Authorize("owner-b"), ledger.ErrForbidden, "foreign tenant")

	resident := ledger.Actor{UserID: "u-2", Role: ledger.RoleResident, TenantID: "owner-a"}
	assert.ErrorIs(t, resident.Authorize("owner-a"), ledger.ErrForbidden, "wrong role")

	assert.ErrorIs(t, ledger.Actor{}.Authorize(""), ledger.ErrForbidden, "anonymous")
	assert.True(t, ledger.IsForbidden(ledger.Actor{Role: ledger.RoleAdmin}.Authorize("owner-a")))
}
