package crm

import (
	"fmt"
	"time"
)

// =============================================================================
// YEAR-MONTH - Billing period key ("2025-09")
// =============================================================================

// YearMonth identifies a billing month. The zero value means "no month"
// (e.g., a monthly student who has never paid).
type YearMonth struct {
	Year  int
	Month time.Month
}

// ParseYearMonth parses "YYYY-MM". Malformed input yields the zero value,
// never an error: stored records are untrusted.
func ParseYearMonth(s string) YearMonth {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return YearMonth{}
	}
	return YearMonth{Year: t.Year(), Month: t.Month()}
}

// YearMonthOf truncates a date to its year-month.
func YearMonthOf(d Date) YearMonth {
	if d.IsZero() {
		return YearMonth{}
	}
	return YearMonth{Year: d.Year(), Month: d.Month()}
}

// Next returns the successor month, rolling over December to January.
func (ym YearMonth) Next() YearMonth {
	t := time.Date(ym.Year, ym.Month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	return YearMonth{Year: t.Year(), Month: t.Month()}
}

// Comparison
func (ym YearMonth) IsZero() bool { return ym.Year == 0 }
func (ym YearMonth) Equal(other YearMonth) bool {
	return ym.Year == other.Year && ym.Month == other.Month
}
func (ym YearMonth) Before(other YearMonth) bool {
	return ym.Year < other.Year || (ym.Year == other.Year && ym.Month < other.Month)
}
func (ym YearMonth) After(other YearMonth) bool { return other.Before(ym) }

// Days returns the number of calendar days in the month.
func (ym YearMonth) Days() int {
	return time.Date(ym.Year, ym.Month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// First returns the first day of the month as a Date.
func (ym YearMonth) First() Date {
	if ym.IsZero() {
		return Date{}
	}
	return NewDate(ym.Year, ym.Month, 1)
}

func (ym YearMonth) String() string {
	if ym.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d", ym.Year, int(ym.Month))
}

// =============================================================================
// DATE - Calendar day ("2025-09-14")
// =============================================================================

// Date is a day-granularity calendar date. The zero value means "no date"
// and never triggers overdue comparisons.
type Date struct {
	t time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses "YYYY-MM-DD". Malformed input yields the zero value.
func ParseDate(s string) Date {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}
	}
	return Date{t: t}
}

// DateOf truncates a time.Time to a Date.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// Today returns the current calendar date.
func Today() Date { return DateOf(time.Now()) }

// Comparison
func (d Date) IsZero() bool           { return d.t.IsZero() }
func (d Date) Before(other Date) bool { return d.t.Before(other.t) }
func (d Date) After(other Date) bool  { return d.t.After(other.t) }
func (d Date) Equal(other Date) bool  { return d.t.Equal(other.t) }

// Properties
func (d Date) Year() int         { return d.t.Year() }
func (d Date) Month() time.Month { return d.t.Month() }
func (d Date) Day() int          { return d.t.Day() }

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format("2006-01-02")
}
