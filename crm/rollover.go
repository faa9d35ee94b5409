/*
rollover.go - Monthly history snapshots

PURPOSE:
  Freezes the live dashboard counters into a monthly archive exactly once
  per month, accumulates them into yearly and lifetime totals, and tells
  the caller to reset the live counters for the new month.

IDEMPOTENCE:
  A month key is append-only: once archive.Monthly holds the current
  month, Rollover is a no-op. Running it on every page load is safe.

LIFETIME FOLLOWUPS:
  Followups are kept in monthly and yearly snapshots but never summed
  into a lifetime total. Preserved source behavior.
*/
package crm

import "github.com/shopspring/decimal"

// Snapshot is a frozen set of counters for one month.
type Snapshot struct {
	Revenue   decimal.Decimal `json:"revenue"`
	Students  int             `json:"students"`
	Followups int             `json:"followups"`
}

func (s Snapshot) add(other Snapshot) Snapshot {
	return Snapshot{
		Revenue:   s.Revenue.Add(other.Revenue),
		Students:  s.Students + other.Students,
		Followups: s.Followups + other.Followups,
	}
}

// StatsArchive accumulates monthly snapshots into yearly and lifetime
// history. Keys are "YYYY-MM" and "YYYY".
type StatsArchive struct {
	Monthly map[string]Snapshot `json:"monthly"`
	Yearly  map[string]Snapshot `json:"yearly"`

	LifetimeRevenue  decimal.Decimal `json:"lifetimeRevenue"`
	LifetimeStudents int             `json:"lifetimeStudents"`
}

// NewStatsArchive returns an empty archive. Callers that fail to decode a
// persisted archive start from this instead of propagating the failure.
func NewStatsArchive() *StatsArchive {
	return &StatsArchive{
		Monthly:         make(map[string]Snapshot),
		Yearly:          make(map[string]Snapshot),
		LifetimeRevenue: decimal.Zero,
	}
}

// normalize repairs missing maps on archives decoded from storage.
func (a *StatsArchive) normalize() {
	if a.Monthly == nil {
		a.Monthly = make(map[string]Snapshot)
	}
	if a.Yearly == nil {
		a.Yearly = make(map[string]Snapshot)
	}
}

// Rollover archives the snapshot under today's year-month. Returns true
// when the snapshot was stored, meaning the caller should reset its live
// counters; false means the month was already archived and nothing
// changed.
func (a *StatsArchive) Rollover(snap Snapshot, today Date) bool {
	a.normalize()

	month := YearMonthOf(today).String()
	if _, done := a.Monthly[month]; done {
		return false
	}

	a.Monthly[month] = snap

	year := today.t.Format("2006")
	a.Yearly[year] = a.Yearly[year].add(snap)

	a.LifetimeRevenue = a.LifetimeRevenue.Add(snap.Revenue)
	a.LifetimeStudents += snap.Students
	return true
}
