package crm_test

import (
	"testing"
	"time"

	"github.com/coachdesk/crm-engine/crm"
)

func snap(revenue int64, students, followups int) crm.Snapshot {
	return crm.Snapshot{Revenue: crm.Rupees(revenue), Students: students, Followups: followups}
}

func TestRollover_FirstOfMonth_Archives(t *testing.T) {
	// GIVEN: An empty archive
	// WHEN: Rolling over September's counters
	// THEN: Archived under "2025-09" and accumulated into 2025 and lifetime

	a := crm.NewStatsArchive()

	archived := a.Rollover(snap(13500, 5, 3), sep14())

	if !archived {
		t.Fatal("first rollover of the month should archive")
	}
	got, ok := a.Monthly["2025-09"]
	if !ok {
		t.Fatal("expected monthly entry for 2025-09")
	}
	if !got.Revenue.Equal(crm.Rupees(13500)) || got.Students != 5 || got.Followups != 3 {
		t.Errorf("unexpected monthly snapshot %+v", got)
	}
	if !a.Yearly["2025"].Revenue.Equal(crm.Rupees(13500)) {
		t.Errorf("expected yearly revenue 13500, got %v", a.Yearly["2025"].Revenue)
	}
	if !a.LifetimeRevenue.Equal(crm.Rupees(13500)) || a.LifetimeStudents != 5 {
		t.Errorf("unexpected lifetime totals %v / %d", a.LifetimeRevenue, a.LifetimeStudents)
	}
}

func TestRollover_SameMonthTwice_NoOp(t *testing.T) {
	// GIVEN: September already archived
	// WHEN: Rolling over again with different counters
	// THEN: Nothing changes; rollover may run on every page load

	a := crm.NewStatsArchive()
	a.Rollover(snap(13500, 5, 3), sep14())

	archived := a.Rollover(snap(99999, 50, 30), crm.NewDate(2025, time.September, 30))

	if archived {
		t.Fatal("second rollover of the same month must be a no-op")
	}
	if !a.Monthly["2025-09"].Revenue.Equal(crm.Rupees(13500)) {
		t.Errorf("existing month entry must not be overwritten, got %v", a.Monthly["2025-09"].Revenue)
	}
	if !a.LifetimeRevenue.Equal(crm.Rupees(13500)) {
		t.Errorf("lifetime totals must not double-count, got %v", a.LifetimeRevenue)
	}
}

func TestRollover_ConsecutiveMonths_AccumulateYearly(t *testing.T) {
	a := crm.NewStatsArchive()

	a.Rollover(snap(10000, 10, 2), crm.NewDate(2025, time.September, 1))
	a.Rollover(snap(12000, 11, 4), crm.NewDate(2025, time.October, 1))

	y := a.Yearly["2025"]
	if !y.Revenue.Equal(crm.Rupees(22000)) {
		t.Errorf("expected yearly revenue 22000, got %v", y.Revenue)
	}
	if y.Students != 21 || y.Followups != 6 {
		t.Errorf("unexpected yearly counters %+v", y)
	}
	if len(a.Monthly) != 2 {
		t.Errorf("expected 2 monthly entries, got %d", len(a.Monthly))
	}
}

func TestRollover_YearBoundary_SplitsYearlyBuckets(t *testing.T) {
	// GIVEN: December archived under 2025
	// WHEN: January rolls over
	// THEN: January lands in the 2026 bucket; lifetime spans both

	a := crm.NewStatsArchive()
	a.Rollover(snap(5000, 5, 1), crm.NewDate(2025, time.December, 31))
	a.Rollover(snap(7000, 6, 2), crm.NewDate(2026, time.January, 1))

	if !a.Yearly["2025"].Revenue.Equal(crm.Rupees(5000)) {
		t.Errorf("expected 5000 in 2025, got %v", a.Yearly["2025"].Revenue)
	}
	if !a.Yearly["2026"].Revenue.Equal(crm.Rupees(7000)) {
		t.Errorf("expected 7000 in 2026, got %v", a.Yearly["2026"].Revenue)
	}
	if !a.LifetimeRevenue.Equal(crm.Rupees(12000)) {
		t.Errorf("expected lifetime 12000, got %v", a.LifetimeRevenue)
	}
}

func TestRollover_FollowupsNeverAccumulateLifetime(t *testing.T) {
	// Followups are point-in-time counts; summing them across months would
	// be meaningless, so only monthly and yearly snapshots keep them.

	a := crm.NewStatsArchive()
	a.Rollover(snap(1000, 1, 7), crm.NewDate(2025, time.September, 1))
	a.Rollover(snap(1000, 1, 9), crm.NewDate(2025, time.October, 1))

	if a.Yearly["2025"].Followups != 16 {
		t.Errorf("yearly followups should sum, got %d", a.Yearly["2025"].Followups)
	}
	if a.LifetimeStudents != 2 {
		t.Errorf("expected lifetime students 2, got %d", a.LifetimeStudents)
	}
}

func TestRollover_NilMaps_RepairedNotPanicking(t *testing.T) {
	// GIVEN: An archive decoded from storage with missing maps
	// WHEN: Rolling over
	// THEN: Maps are repaired in place

	a := &crm.StatsArchive{}

	if archived := a.Rollover(snap(500, 1, 0), sep14()); !archived {
		t.Fatal("rollover on a repaired archive should archive")
	}
	if _, ok := a.Monthly["2025-09"]; !ok {
		t.Error("expected monthly entry after repair")
	}
}
