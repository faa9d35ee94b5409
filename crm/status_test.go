package crm_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/coachdesk/crm-engine/crm"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func sep14() crm.Date { return crm.NewDate(2025, time.September, 14) }

func monthlyBatch(t *testing.T, fee int64) crm.Batch {
	t.Helper()
	b, err := crm.NewBatch("Morning Maths", crm.FeeMonthly, crm.Rupees(fee), nil)
	if err != nil {
		t.Fatalf("NewBatch: %v", err)
	}
	return b
}

func courseBatch(t *testing.T, fee int64) crm.Batch {
	t.Helper()
	b, err := crm.NewBatch("Crash Course", crm.FeeCourse, crm.Rupees(fee), nil)
	if err != nil {
		t.Fatalf("NewBatch: %v", err)
	}
	return b
}

func installmentBatch(t *testing.T, plan ...int64) crm.Batch {
	t.Helper()
	amounts := make([]decimal.Decimal, len(plan))
	for i, p := range plan {
		amounts[i] = crm.Rupees(p)
	}
	b, err := crm.NewBatch("Evening Chem", crm.FeeInstallment, decimal.Zero, amounts)
	if err != nil {
		t.Fatalf("NewBatch: %v", err)
	}
	return b
}

func newStudent(t *testing.T, batch crm.Batch, due crm.Date) crm.Student {
	t.Helper()
	s, err := crm.NewStudent(batch, "Asha", "9876500001", due)
	if err != nil {
		t.Fatalf("NewStudent: %v", err)
	}
	return s
}

// =============================================================================
// MONTHLY MODEL
// =============================================================================

func TestComputeStatus_Monthly_PaidCurrentMonth_Ok(t *testing.T) {
	// GIVEN: A monthly student who paid September
	// WHEN: Checking status on September 14
	// THEN: Ok, nothing due

	batch := monthlyBatch(t, 1500)
	s := newStudent(t, batch, crm.Date{})
	if err := s.MarkMonthPaid(crm.YearMonth{Year: 2025, Month: time.September}); err != nil {
		t.Fatalf("MarkMonthPaid: %v", err)
	}

	v := crm.ComputeStatus(batch, s, sep14())

	if v.Kind != crm.StatusOK {
		t.Errorf("expected ok, got %v", v.Kind)
	}
	if !v.AmountDue.IsZero() {
		t.Errorf("expected zero due, got %v", v.AmountDue)
	}
}

func TestComputeStatus_Monthly_PaidLastMonth_Due(t *testing.T) {
	// GIVEN: Last paid August, so September is owed
	// WHEN: Checking on September 14
	// THEN: Due for the full recurring fee, next due September 1

	batch := monthlyBatch(t, 1500)
	s := newStudent(t, batch, crm.Date{})
	s.MarkMonthPaid(crm.YearMonth{Year: 2025, Month: time.August})

	v := crm.ComputeStatus(batch, s, sep14())

	if v.Kind != crm.StatusDue {
		t.Errorf("expected due, got %v", v.Kind)
	}
	if !v.AmountDue.Equal(crm.Rupees(1500)) {
		t.Errorf("expected 1500 due, got %v", v.AmountDue)
	}
	if v.NextDue.String() != "2025-09-01" {
		t.Errorf("expected next due 2025-09-01, got %v", v.NextDue)
	}
}

func TestComputeStatus_Monthly_PaidTwoMonthsAgo_Overdue(t *testing.T) {
	batch := monthlyBatch(t, 1500)
	s := newStudent(t, batch, crm.Date{})
	s.MarkMonthPaid(crm.YearMonth{Year: 2025, Month: time.July})

	v := crm.ComputeStatus(batch, s, sep14())

	if v.Kind != crm.StatusOverdue {
		t.Errorf("expected overdue, got %v", v.Kind)
	}
	if v.NextDue.String() != "2025-08-01" {
		t.Errorf("expected next due 2025-08-01, got %v", v.NextDue)
	}
}

func TestComputeStatus_Monthly_NeverPaid_UsesBatchStartMonth(t *testing.T) {
	// GIVEN: Never paid, batch started in July
	// WHEN: Checking in September
	// THEN: Overdue since July

	batch := monthlyBatch(t, 1500)
	batch.StartDate = crm.NewDate(2025, time.July, 1)
	s := newStudent(t, batch, crm.Date{})

	v := crm.ComputeStatus(batch, s, sep14())

	if v.Kind != crm.StatusOverdue {
		t.Errorf("expected overdue, got %v", v.Kind)
	}
	if v.NextDue.String() != "2025-07-01" {
		t.Errorf("expected next due 2025-07-01, got %v", v.NextDue)
	}
}

func TestComputeStatus_Monthly_NeverPaidNoStartDate_DueThisMonth(t *testing.T) {
	// GIVEN: Never paid and the batch has no start date
	// WHEN: Checking status
	// THEN: Due for the current month, never overdue

	batch := monthlyBatch(t, 1500)
	s := newStudent(t, batch, crm.Date{})

	v := crm.ComputeStatus(batch, s, sep14())

	if v.Kind != crm.StatusDue {
		t.Errorf("expected due, got %v", v.Kind)
	}
}

func TestComputeStatus_Monthly_PaidAhead_Ok(t *testing.T) {
	// GIVEN: Paid October in advance
	// WHEN: Checking in September
	// THEN: Ok

	batch := monthlyBatch(t, 1500)
	s := newStudent(t, batch, crm.Date{})
	s.MarkMonthPaid(crm.YearMonth{Year: 2025, Month: time.October})

	v := crm.ComputeStatus(batch, s, sep14())

	if v.Kind != crm.StatusOK {
		t.Errorf("expected ok, got %v", v.Kind)
	}
}

func TestComputeStatus_Monthly_DecemberPaid_JanuaryDue(t *testing.T) {
	// GIVEN: Paid December 2025
	// WHEN: Checking on January 10, 2026
	// THEN: Due for January, the successor across the year boundary

	batch := monthlyBatch(t, 1500)
	s := newStudent(t, batch, crm.Date{})
	s.MarkMonthPaid(crm.YearMonth{Year: 2025, Month: time.December})

	v := crm.ComputeStatus(batch, s, crm.NewDate(2026, time.January, 10))

	if v.Kind != crm.StatusDue {
		t.Errorf("expected due, got %v", v.Kind)
	}
	if v.NextDue.String() != "2026-01-01" {
		t.Errorf("expected next due 2026-01-01, got %v", v.NextDue)
	}
}

// =============================================================================
// COURSE MODEL
// =============================================================================

func TestComputeStatus_Course_Paid_Ok(t *testing.T) {
	batch := courseBatch(t, 8000)
	s := newStudent(t, batch, crm.Date{})
	s.MarkCoursePaid()

	v := crm.ComputeStatus(batch, s, sep14())

	if v.Kind != crm.StatusOK {
		t.Errorf("expected ok, got %v", v.Kind)
	}
}

func TestComputeStatus_Course_UnpaidBeforeDueDate_Due(t *testing.T) {
	batch := courseBatch(t, 8000)
	s := newStudent(t, batch, crm.NewDate(2025, time.September, 30))

	v := crm.ComputeStatus(batch, s, sep14())

	if v.Kind != crm.StatusDue {
		t.Errorf("expected due, got %v", v.Kind)
	}
	if !v.AmountDue.Equal(crm.Rupees(8000)) {
		t.Errorf("expected 8000 due, got %v", v.AmountDue)
	}
}

func TestComputeStatus_Course_UnpaidPastDueDate_Overdue(t *testing.T) {
	batch := courseBatch(t, 8000)
	s := newStudent(t, batch, crm.NewDate(2025, time.September, 1))

	v := crm.ComputeStatus(batch, s, sep14())

	if v.Kind != crm.StatusOverdue {
		t.Errorf("expected overdue, got %v", v.Kind)
	}
}

func TestComputeStatus_Course_UnpaidDueToday_NotOverdue(t *testing.T) {
	// GIVEN: Due date is today
	// WHEN: Checking status
	// THEN: Still due, not overdue (overdue requires the date to have passed)

	batch := courseBatch(t, 8000)
	s := newStudent(t, batch, sep14())

	v := crm.ComputeStatus(batch, s, sep14())

	if v.Kind != crm.StatusDue {
		t.Errorf("expected due, got %v", v.Kind)
	}
}

func TestComputeStatus_Course_UnpaidNoDueDate_Due(t *testing.T) {
	// GIVEN: Unpaid with no due date at all
	// WHEN: Checking status
	// THEN: Due, never overdue

	batch := courseBatch(t, 8000)
	s := newStudent(t, batch, crm.Date{})

	v := crm.ComputeStatus(batch, s, sep14())

	if v.Kind != crm.StatusDue {
		t.Errorf("expected due, got %v", v.Kind)
	}
}

// =============================================================================
// INSTALLMENT MODEL
// =============================================================================

func TestComputeStatus_Installment_FullyPaid_Ok(t *testing.T) {
	batch := installmentBatch(t, 4000, 4000, 4000)
	s := newStudent(t, batch, crm.Date{})
	s.AddPayment(crm.Rupees(12000))

	v := crm.ComputeStatus(batch, s, sep14())

	if v.Kind != crm.StatusOK {
		t.Errorf("expected ok, got %v", v.Kind)
	}
}

func TestComputeStatus_Installment_PartPaid_OutstandingIsDifference(t *testing.T) {
	batch := installmentBatch(t, 4000, 4000, 4000)
	s := newStudent(t, batch, crm.NewDate(2025, time.September, 30))
	s.AddPayment(crm.Rupees(4000))

	v := crm.ComputeStatus(batch, s, sep14())

	if v.Kind != crm.StatusDue {
		t.Errorf("expected due, got %v", v.Kind)
	}
	if !v.AmountDue.Equal(crm.Rupees(8000)) {
		t.Errorf("expected 8000 outstanding, got %v", v.AmountDue)
	}
}

func TestComputeStatus_Installment_PastDueDate_Overdue(t *testing.T) {
	batch := installmentBatch(t, 4000, 4000)
	s := newStudent(t, batch, crm.NewDate(2025, time.September, 1))

	v := crm.ComputeStatus(batch, s, sep14())

	if v.Kind != crm.StatusOverdue {
		t.Errorf("expected overdue, got %v", v.Kind)
	}
	if !v.AmountDue.Equal(crm.Rupees(8000)) {
		t.Errorf("expected 8000 outstanding, got %v", v.AmountDue)
	}
}

func TestComputeStatus_Installment_Overpaid_ClampsToZero(t *testing.T) {
	// GIVEN: Payments exceeding the plan total
	// WHEN: Checking status
	// THEN: Ok with zero outstanding, never negative

	batch := installmentBatch(t, 4000)
	s := newStudent(t, batch, crm.Date{})
	s.AddPayment(crm.Rupees(5000))

	v := crm.ComputeStatus(batch, s, sep14())

	if v.Kind != crm.StatusOK {
		t.Errorf("expected ok, got %v", v.Kind)
	}
	if !v.AmountDue.IsZero() {
		t.Errorf("expected zero due, got %v", v.AmountDue)
	}
}

func TestComputeStatus_Installment_ZeroTotalFee_Ok(t *testing.T) {
	// GIVEN: A batch configured with no fee at all
	// WHEN: Checking an unpaid student
	// THEN: Nothing outstanding, so ok

	batch, err := crm.NewBatch("Free Workshop", crm.FeeInstallment, decimal.Zero, nil)
	if err != nil {
		t.Fatalf("NewBatch: %v", err)
	}
	s := newStudent(t, batch, crm.Date{})

	v := crm.ComputeStatus(batch, s, sep14())

	if v.Kind != crm.StatusOK {
		t.Errorf("expected ok, got %v", v.Kind)
	}
}

// =============================================================================
// PRECEDENCE AND TOTALITY
// =============================================================================

func TestComputeStatus_Dropped_WinsOverEverything(t *testing.T) {
	// GIVEN: A dropped student who would otherwise be deeply overdue
	// WHEN: Checking status
	// THEN: Dropped, with no amount due

	batch := courseBatch(t, 8000)
	s := newStudent(t, batch, crm.NewDate(2024, time.January, 1))
	s.Dropped = true

	v := crm.ComputeStatus(batch, s, sep14())

	if v.Kind != crm.StatusDropped {
		t.Errorf("expected dropped, got %v", v.Kind)
	}
	if !v.AmountDue.IsZero() {
		t.Errorf("expected zero due, got %v", v.AmountDue)
	}
	if v.NeedsFollowup() {
		t.Error("dropped students never need follow-up")
	}
}

func TestComputeStatus_UnknownModel_FallsThroughToInstallment(t *testing.T) {
	// GIVEN: A batch with an unrecognized billing model (bad stored data)
	// WHEN: Checking status
	// THEN: The installment comparison applies, no panic

	batch := installmentBatch(t, 4000)
	batch.FeeModel = crm.FeeModel("quarterly")
	s := newStudent(t, batch, crm.Date{})

	v := crm.ComputeStatus(batch, s, sep14())

	if v.Kind != crm.StatusDue {
		t.Errorf("expected due via installment fallthrough, got %v", v.Kind)
	}
}

func TestComputeStatus_NilPaymentState_NoPanic(t *testing.T) {
	// GIVEN: A student whose payment state failed to decode
	// WHEN: Checking status under each model
	// THEN: A defined verdict, never a panic

	for _, batch := range []crm.Batch{monthlyBatch(t, 1500), courseBatch(t, 8000), installmentBatch(t, 4000)} {
		s := crm.Student{ID: "s-1", Name: "X", Phone: "1"}

		v := crm.ComputeStatus(batch, s, sep14())

		if v.Kind == "" {
			t.Errorf("model %s: expected a defined verdict", batch.FeeModel)
		}
	}
}

// =============================================================================
// COLLECTED AMOUNTS
// =============================================================================

func TestCollectedThisPeriod_Monthly_OnlyCurrentMonthCounts(t *testing.T) {
	batch := monthlyBatch(t, 1500)

	paid := newStudent(t, batch, crm.Date{})
	paid.MarkMonthPaid(crm.YearMonth{Year: 2025, Month: time.September})

	stale := newStudent(t, batch, crm.Date{})
	stale.MarkMonthPaid(crm.YearMonth{Year: 2025, Month: time.August})

	if got := crm.CollectedThisPeriod(batch, paid, sep14()); !got.Equal(crm.Rupees(1500)) {
		t.Errorf("current-month payment should count, got %v", got)
	}
	if got := crm.CollectedThisPeriod(batch, stale, sep14()); !got.IsZero() {
		t.Errorf("stale payment should not count, got %v", got)
	}
}

func TestCollectedThisPeriod_Installment_AccumulatedTotal(t *testing.T) {
	batch := installmentBatch(t, 4000, 4000)
	s := newStudent(t, batch, crm.Date{})
	s.AddPayment(crm.Rupees(3000))
	s.AddPayment(crm.Rupees(1000))

	if got := crm.CollectedThisPeriod(batch, s, sep14()); !got.Equal(crm.Rupees(4000)) {
		t.Errorf("expected 4000 collected, got %v", got)
	}
}

func TestCollectedThisPeriod_Dropped_Zero(t *testing.T) {
	batch := courseBatch(t, 8000)
	s := newStudent(t, batch, crm.Date{})
	s.MarkCoursePaid()
	s.Dropped = true

	if got := crm.CollectedThisPeriod(batch, s, sep14()); !got.IsZero() {
		t.Errorf("dropped students contribute nothing, got %v", got)
	}
}
