package ledger

import "time"

// =============================================================================
// PERIOD - Reporting window
// =============================================================================

// Period is a half-open window [Start, End) over entry dates.
// A zero Start or End leaves that side unbounded.
type Period struct {
	Start time.Time
	End   time.Time
}

// DateRange builds the period covering the calendar days from..to inclusive,
// interpreted in loc.
func DateRange(from, to time.Time, loc *time.Location) (Period, error) {
	if loc == nil {
		loc = time.UTC
	}
	start := StartOfDay(from, loc)
	end := StartOfDay(to, loc).AddDate(0, 0, 1)
	p := Period{Start: start, End: end}
	return p, p.Validate()
}

func (p Period) Validate() error {
	if !p.Start.IsZero() && !p.End.IsZero() && !p.End.After(p.Start) {
		return ErrInvalidPeriod
	}
	return nil
}

// Contains returns true if t falls within [Start, End).
func (p Period) Contains(t time.Time) bool {
	if !p.Start.IsZero() && t.Before(p.Start) {
		return false
	}
	if !p.End.IsZero() && !t.Before(p.End) {
		return false
	}
	return true
}

func (p Period) String() string {
	return "[" + p.Start.Format(time.RFC3339) + ", " + p.End.Format(time.RFC3339) + ")"
}

// =============================================================================
// GRANULARITY - Time-series bucketing
// =============================================================================

type Granularity string

const (
	GranularityDay   Granularity = "day"
	GranularityWeek  Granularity = "week"
	GranularityMonth Granularity = "month"
)

func (g Granularity) Valid() bool {
	return g == GranularityDay || g == GranularityWeek || g == GranularityMonth
}

func StartOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// Truncate maps t onto the start of its bucket: the day, the ISO week
// (Monday) or the first of the month, all in loc.
func (g Granularity) Truncate(t time.Time, loc *time.Location) time.Time {
	day := StartOfDay(t, loc)
	switch g {
	case GranularityWeek:
		offset := (int(day.Weekday()) + 6) % 7 // Monday = 0
		return day.AddDate(0, 0, -offset)
	case GranularityMonth:
		return time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, loc)
	default:
		return day
	}
}
