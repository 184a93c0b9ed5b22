package ledger

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// =============================================================================
// SUMMARY
// =============================================================================

// Summary combines period flows with the all-time balance.
type Summary struct {
	Period       Period
	CashIn       decimal.Decimal
	CashOut      decimal.Decimal
	NetFlow      decimal.Decimal
	EntriesCount int
	RentIncome   decimal.Decimal // IN on the rent income account within Period
	Balance      Balance
}

func (s *Service) GetSummary(ctx context.Context, tenant TenantID, period Period) (Summary, error) {
	if err := tenant.Validate(); err != nil {
		return Summary{}, err
	}
	if err := period.Validate(); err != nil {
		return Summary{}, err
	}
	entries, err := s.Store.LoadEntries(ctx, tenant, EntryQuery{})
	if err != nil {
		return Summary{}, err
	}
	pending, err := s.Payouts.PendingPayoutTotal(ctx, tenant)
	if err != nil {
		return Summary{}, err
	}
	rent, err := s.LookupSystemAccount(ctx, tenant, SystemRentIncome)
	if err != nil {
		return Summary{}, err
	}

	sum := Summary{Period: period, RentIncome: decimal.Zero, Balance: balanceOf(entries, pending)}
	var inPeriod []Entry
	for _, e := range entries {
		if !period.Contains(e.Date) {
			continue
		}
		inPeriod = append(inPeriod, e)
		if rent != nil && e.AccountID == rent.ID && e.Direction == DirectionIn {
			sum.RentIncome = sum.RentIncome.Add(e.Amount)
		}
	}
	sum.CashIn, sum.CashOut = Totals(inPeriod)
	sum.NetFlow = sum.CashIn.Sub(sum.CashOut)
	sum.EntriesCount = len(inPeriod)
	return sum, nil
}

// =============================================================================
// BREAKDOWN - Per-account aggregation bucketed by account type
// =============================================================================

type BreakdownRow struct {
	AccountID    AccountID
	AccountName  string
	AccountType  AccountType
	CashIn       decimal.Decimal
	CashOut      decimal.Decimal
	Amount       decimal.Decimal
	Percentage   float64
	EntriesCount int
}

type Breakdown struct {
	Period  Period
	Income  []BreakdownRow
	Expense []BreakdownRow
	Other   []BreakdownRow
}

func (s *Service) GetBreakdown(ctx context.Context, tenant TenantID, period Period) (Breakdown, error) {
	if err := tenant.Validate(); err != nil {
		return Breakdown{}, err
	}
	if err := period.Validate(); err != nil {
		return Breakdown{}, err
	}
	entries, err := s.Store.LoadEntries(ctx, tenant, EntryQuery{Period: period})
	if err != nil {
		return Breakdown{}, err
	}
	b := BuildBreakdown(entries)
	b.Period = period
	return b, nil
}

// BuildBreakdown aggregates entries per account. Row amount is CashIn for
// income, CashOut for expense and CashIn+CashOut for other; percentage is
// relative to the bucket's total amount. Accounts without entries never
// appear. Rows are sorted by amount, largest first.
func BuildBreakdown(entries []Entry) Breakdown {
	rows := make(map[AccountID]*BreakdownRow)
	var order []AccountID
	for _, e := range entries {
		r, ok := rows[e.AccountID]
		if !ok {
			r = &BreakdownRow{
				AccountID:   e.AccountID,
				AccountName: e.AccountName,
				AccountType: e.AccountType,
				CashIn:      decimal.Zero,
				CashOut:     decimal.Zero,
			}
			rows[e.AccountID] = r
			order = append(order, e.AccountID)
		}
		if e.Direction == DirectionIn {
			r.CashIn = r.CashIn.Add(e.Amount)
		} else {
			r.CashOut = r.CashOut.Add(e.Amount)
		}
		r.EntriesCount++
	}

	var b Breakdown
	for _, id := range order {
		r := rows[id]
		switch r.AccountType {
		case AccountIncome:
			r.Amount = r.CashIn
			b.Income = append(b.Income, *r)
		case AccountExpense:
			r.Amount = r.CashOut
			b.Expense = append(b.Expense, *r)
		default:
			r.Amount = r.CashIn.Add(r.CashOut)
			b.Other = append(b.Other, *r)
		}
	}
	b.Income = finishBucket(b.Income)
	b.Expense = finishBucket(b.Expense)
	b.Other = finishBucket(b.Other)
	return b
}

func finishBucket(rows []BreakdownRow) []BreakdownRow {
	kept := rows[:0]
	total := decimal.Zero
	for _, r := range rows {
		if r.Amount.IsZero() {
			continue
		}
		kept = append(kept, r)
		total = total.Add(r.Amount)
	}
	for i := range kept {
		kept[i].Percentage = kept[i].Amount.Mul(hundred).Div(total).Round(2).InexactFloat64()
	}
	sort.SliceStable(kept, func(i, j int) bool {
		if !kept[i].Amount.Equal(kept[j].Amount) {
			return kept[i].Amount.GreaterThan(kept[j].Amount)
		}
		return strings.ToLower(kept[i].AccountName) < strings.ToLower(kept[j].AccountName)
	})
	if len(kept) == 0 {
		return []BreakdownRow{}
	}
	return kept
}

// =============================================================================
// TIME SERIES - Running balance reconstruction
// =============================================================================

type TimeSeriesPoint struct {
	Bucket         time.Time
	CashIn         decimal.Decimal
	CashOut        decimal.Decimal
	NetFlow        decimal.Decimal
	RunningBalance decimal.Decimal
	EntriesCount   int
}

// TimeSeries is sparse: buckets without entries are omitted, not zero-filled.
// Chart callers that need a continuous axis must fill gaps themselves,
// carrying the previous RunningBalance forward.
type TimeSeries struct {
	Period         Period
	Granularity    Granularity
	OpeningBalance decimal.Decimal // balance strictly before Period.Start
	Points         []TimeSeriesPoint
}

func (s *Service) GetTimeSeries(ctx context.Context, tenant TenantID, period Period, g Granularity) (TimeSeries, error) {
	if err := tenant.Validate(); err != nil {
		return TimeSeries{}, err
	}
	if err := period.Validate(); err != nil {
		return TimeSeries{}, err
	}
	if !g.Valid() {
		return TimeSeries{}, invalid("granularity", "must be day, week or month")
	}
	entries, err := s.Store.LoadEntries(ctx, tenant, EntryQuery{Period: Period{End: period.End}})
	if err != nil {
		return TimeSeries{}, err
	}

	opening := decimal.Zero
	var inPeriod []Entry
	for _, e := range entries {
		if !period.Start.IsZero() && e.Date.Before(period.Start) {
			opening = opening.Add(e.Signed())
			continue
		}
		inPeriod = append(inPeriod, e)
	}
	return TimeSeries{
		Period:         period,
		Granularity:    g,
		OpeningBalance: opening,
		Points:         BuildTimeSeries(inPeriod, opening, g, s.loc()),
	}, nil
}

// BuildTimeSeries groups entries into buckets and accumulates a running
// balance starting from opening.
func BuildTimeSeries(entries []Entry, opening decimal.Decimal, g Granularity, loc *time.Location) []TimeSeriesPoint {
	if loc == nil {
		loc = time.UTC
	}
	buckets := make(map[time.Time]*TimeSeriesPoint)
	for _, e := range entries {
		key := g.Truncate(e.Date, loc)
		p, ok := buckets[key]
		if !ok {
			p = &TimeSeriesPoint{Bucket: key, CashIn: decimal.Zero, CashOut: decimal.Zero}
			buckets[key] = p
		}
		if e.Direction == DirectionIn {
			p.CashIn = p.CashIn.Add(e.Amount)
		} else {
			p.CashOut = p.CashOut.Add(e.Amount)
		}
		p.EntriesCount++
	}

	points := make([]TimeSeriesPoint, 0, len(buckets))
	for _, p := range buckets {
		points = append(points, *p)
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Bucket.Before(points[j].Bucket) })

	running := opening
	for i := range points {
		points[i].NetFlow = points[i].CashIn.Sub(points[i].CashOut)
		running = running.Add(points[i].NetFlow)
		points[i].RunningBalance = running
	}
	return points
}
