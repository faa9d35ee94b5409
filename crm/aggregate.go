/*
aggregate.go - Dashboard metrics across every batch

PURPOSE:
  Consumes the status engine's verdicts for every active student in every
  batch and produces the numbers the dashboard renders: revenue split by
  collected/pending/overdue, the follow-up count, a daily revenue series
  for the current month, batch performance rankings, the high-priority
  list, and the first follow-up contacts.

ITERATION ORDER:
  Batches are processed in the order given, students in the order given
  per batch. Order matters: the follow-up contact list takes the first
  five qualifying students, and ranking ties keep batch order.

DROPPED STUDENTS:
  Excluded from every aggregate: revenue, series, rankings, patterns,
  priority and follow-up lists.

OUT-OF-MONTH AMOUNTS:
  The daily series only buckets amounts whose attributed date falls in
  the current calendar month. Everything else is omitted, never clipped
  into day 1 or day N.
*/
package crm

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"
)

// HighPriorityThreshold is the outstanding amount above which a student is
// flagged high priority even when not yet overdue.
var HighPriorityThreshold = Rupees(5000)

const (
	highPriorityLimit    = 5
	followupContactLimit = 5
)

// =============================================================================
// METRICS TYPES
// =============================================================================

// DashboardMetrics is everything the dashboard needs for one render.
type DashboardMetrics struct {
	TotalBatches   int
	ActiveStudents int
	Followups      int

	RevenueCollected decimal.Decimal
	RevenuePending   decimal.Decimal
	RevenueOverdue   decimal.Decimal

	Daily    DailySeries
	Rankings []BatchPerformance
	Patterns PaymentPatterns

	HighPriority     []PriorityStudent
	FollowupContacts []FollowupContact
}

// DailySeries holds one bucket per day of the current calendar month.
type DailySeries struct {
	Month     YearMonth
	Collected []decimal.Decimal
	Pending   []decimal.Decimal
	Overdue   []decimal.Decimal
}

// CollectionRate is the percentage of this month's bucketed amounts that
// were actually collected. Zero when the series is empty.
func (ds DailySeries) CollectionRate() int {
	collected, pending, overdue := decimal.Zero, decimal.Zero, decimal.Zero
	for i := range ds.Collected {
		collected = collected.Add(ds.Collected[i])
		pending = pending.Add(ds.Pending[i])
		overdue = overdue.Add(ds.Overdue[i])
	}
	total := collected.Add(pending).Add(overdue)
	if !total.IsPositive() {
		return 0
	}
	return roundPercent(collected, total)
}

// BatchPerformance ranks a batch by the share of its active students whose
// fees are settled this period.
type BatchPerformance struct {
	BatchID        string
	Name           string
	Percent        int
	ActiveStudents int
	Revenue        decimal.Decimal
}

// PaymentPatterns counts active students by how they are paying.
type PaymentPatterns struct {
	OnTime  int
	Late    int
	Overdue int
}

// PriorityStudent is an entry on the high-priority collection list.
type PriorityStudent struct {
	StudentID string
	Name      string
	BatchName string
	Amount    decimal.Decimal
	Overdue   bool
}

// FollowupContact carries what the caller needs to reach a student.
type FollowupContact struct {
	StudentID string
	Name      string
	Phone     string
	BatchName string
}

// BatchSummary is the per-batch overview shown on a batch page.
type BatchSummary struct {
	ActiveStudents int
	Pending        int
	Followups      int
	Dropouts       int
}

// =============================================================================
// AGGREGATION ENGINE
// =============================================================================

// Aggregate derives dashboard metrics from every student of every batch,
// invoking the status engine once per student. Batches with no students
// contribute an empty ranking entry but nothing else.
func Aggregate(batches []Batch, studentsByBatch map[string][]Student, today Date) DashboardMetrics {
	month := YearMonthOf(today)
	m := DashboardMetrics{
		TotalBatches:     len(batches),
		RevenueCollected: decimal.Zero,
		RevenuePending:   decimal.Zero,
		RevenueOverdue:   decimal.Zero,
		Daily:            newDailySeries(month),
	}

	for _, batch := range batches {
		perf := BatchPerformance{BatchID: batch.ID, Name: batch.Name, Revenue: decimal.Zero}
		settled := 0

		for _, student := range studentsByBatch[batch.ID] {
			if student.Dropped {
				continue
			}
			m.ActiveStudents++
			perf.ActiveStudents++

			v := ComputeStatus(batch, student, today)
			collected := CollectedThisPeriod(batch, student, today)

			m.RevenueCollected = m.RevenueCollected.Add(collected)
			perf.Revenue = perf.Revenue.Add(collected)

			switch v.Kind {
			case StatusOK:
				settled++
				if collected.IsPositive() {
					m.Patterns.OnTime++
				}
			case StatusDue:
				m.Followups++
				m.Patterns.Late++
				m.RevenuePending = m.RevenuePending.Add(v.AmountDue)
			case StatusOverdue:
				m.Followups++
				m.Patterns.Overdue++
				m.RevenueOverdue = m.RevenueOverdue.Add(v.AmountDue)
			}

			m.Daily.add(collected, PaymentDate(batch, student), v)

			if qualifiesHighPriority(v) {
				m.HighPriority = append(m.HighPriority, PriorityStudent{
					StudentID: student.ID,
					Name:      student.Name,
					BatchName: batch.Name,
					Amount:    v.AmountDue,
					Overdue:   v.Kind == StatusOverdue,
				})
			}
			if v.NeedsFollowup() && len(m.FollowupContacts) < followupContactLimit {
				m.FollowupContacts = append(m.FollowupContacts, FollowupContact{
					StudentID: student.ID,
					Name:      student.Name,
					Phone:     student.Phone,
					BatchName: batch.Name,
				})
			}
		}

		if perf.ActiveStudents > 0 {
			perf.Percent = roundRatio(settled, perf.ActiveStudents)
		}
		m.Rankings = append(m.Rankings, perf)
	}

	sort.SliceStable(m.Rankings, func(i, j int) bool {
		return m.Rankings[i].Percent > m.Rankings[j].Percent
	})

	sort.SliceStable(m.HighPriority, func(i, j int) bool {
		return m.HighPriority[i].Amount.GreaterThan(m.HighPriority[j].Amount)
	})
	if len(m.HighPriority) > highPriorityLimit {
		m.HighPriority = m.HighPriority[:highPriorityLimit]
	}

	return m
}

// AggregateBatch derives the overview counters for a single batch.
func AggregateBatch(batch Batch, students []Student, today Date) BatchSummary {
	var sum BatchSummary
	for _, student := range students {
		if student.Dropped {
			sum.Dropouts++
			continue
		}
		sum.ActiveStudents++
		if v := ComputeStatus(batch, student, today); v.NeedsFollowup() {
			sum.Pending++
			sum.Followups++
		}
	}
	return sum
}

// Snapshot freezes the live counters for the historical archive.
func (m DashboardMetrics) Snapshot() Snapshot {
	return Snapshot{
		Revenue:   m.RevenueCollected,
		Students:  m.ActiveStudents,
		Followups: m.Followups,
	}
}

// =============================================================================
// INTERNALS
// =============================================================================

func qualifiesHighPriority(v Verdict) bool {
	if !v.AmountDue.IsPositive() {
		return false
	}
	return v.Kind == StatusOverdue || v.AmountDue.GreaterThan(HighPriorityThreshold)
}

func newDailySeries(month YearMonth) DailySeries {
	days := month.Days()
	ds := DailySeries{
		Month:     month,
		Collected: make([]decimal.Decimal, days),
		Pending:   make([]decimal.Decimal, days),
		Overdue:   make([]decimal.Decimal, days),
	}
	for i := 0; i < days; i++ {
		ds.Collected[i] = decimal.Zero
		ds.Pending[i] = decimal.Zero
		ds.Overdue[i] = decimal.Zero
	}
	return ds
}

// add places one student's amounts into the daily buckets. Amounts whose
// attributed date falls outside the series month are omitted.
func (ds *DailySeries) add(collected decimal.Decimal, paidAt Date, v Verdict) {
	if collected.IsPositive() {
		if i, ok := ds.dayIndex(paidAt); ok {
			ds.Collected[i] = ds.Collected[i].Add(collected)
		}
	}
	if v.AmountDue.IsPositive() {
		if i, ok := ds.dayIndex(v.NextDue); ok {
			if v.Kind == StatusOverdue {
				ds.Overdue[i] = ds.Overdue[i].Add(v.AmountDue)
			} else {
				ds.Pending[i] = ds.Pending[i].Add(v.AmountDue)
			}
		}
	}
}

func (ds DailySeries) dayIndex(d Date) (int, bool) {
	if d.IsZero() || !YearMonthOf(d).Equal(ds.Month) {
		return 0, false
	}
	return d.Day() - 1, true
}

func roundRatio(part, whole int) int {
	return int(math.Round(float64(part) / float64(whole) * 100))
}

func roundPercent(part, whole decimal.Decimal) int {
	f, _ := part.Div(whole).Mul(decimal.NewFromInt(100)).Round(0).Float64()
	return int(f)
}
