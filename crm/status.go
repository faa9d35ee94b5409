/*
status.go - Fee status verdict per student

PURPOSE:
  The single source of truth for "where does this student stand?".
  Every view of payment state (dashboard cards, follow-up lists, CSV
  export, batch tables) derives from ComputeStatus, so the rules live
  in exactly one place.

THE RULES:
  dropped        Always wins, regardless of payment state.
  monthly        Due month = successor of last paid month, else the batch
                 start month, else the current month. Overdue when the due
                 month is past, due when it is the current month.
  course         Paid is ok. Unpaid is overdue once the due date has
                 passed, otherwise due.
  installment    Outstanding = max(0, total - paid). Zero outstanding is
                 ok. Otherwise due/overdue by due date.
  anything else  Falls through to the installment comparison. Unknown
                 models must never fault.

TOTALITY:
  ComputeStatus accepts any well-typed input: a nil payment state, a
  payment state that does not match the batch model, zero fees, missing
  dates. All of these resolve to defined verdicts.

SEE ALSO:
  - aggregate.go: Sums verdicts across every student
  - export/: Renders verdicts into CSV/XLSX rows
*/
package crm

import "github.com/shopspring/decimal"

// =============================================================================
// VERDICT
// =============================================================================

// StatusKind classifies a student's fee position.
type StatusKind string

const (
	StatusOK      StatusKind = "ok"
	StatusDue     StatusKind = "due"
	StatusOverdue StatusKind = "overdue"
	StatusDropped StatusKind = "dropped"
)

// Verdict is the status engine's answer for one student.
type Verdict struct {
	Kind  StatusKind
	Label string

	// Outstanding amount implied by the status. Zero when ok or dropped.
	AmountDue decimal.Decimal

	// Next payment date: the 1st of the due month for monthly students,
	// the stored due date otherwise. Zero when ok or dropped.
	NextDue Date
}

// NeedsFollowup reports whether the student belongs on follow-up lists.
func (v Verdict) NeedsFollowup() bool {
	return v.Kind == StatusDue || v.Kind == StatusOverdue
}

// =============================================================================
// STATUS ENGINE
// =============================================================================

// ComputeStatus maps (billing config, payment record, today) to a verdict.
// Pure and total: no input may fault, and dropped takes precedence over
// every payment rule.
func ComputeStatus(batch Batch, student Student, today Date) Verdict {
	if student.Dropped {
		return Verdict{Kind: StatusDropped, Label: "Dropped", AmountDue: decimal.Zero}
	}

	switch batch.FeeModel {
	case FeeMonthly:
		return monthlyStatus(batch, student, today)
	case FeeCourse:
		return courseStatus(batch, student, today)
	default:
		// Installment, and the catch-all for unknown models.
		return installmentStatus(batch, student, today)
	}
}

// DueMonth returns the month a monthly-model student owes next: the month
// after the last paid one, else the batch's start month, else the current
// month.
func DueMonth(batch Batch, student Student, today Date) YearMonth {
	p, _ := student.Payment.(MonthlyPayment)
	if !p.LastPaidMonth.IsZero() {
		return p.LastPaidMonth.Next()
	}
	if start := YearMonthOf(batch.StartDate); !start.IsZero() {
		return start
	}
	return YearMonthOf(today)
}

func monthlyStatus(batch Batch, student Student, today Date) Verdict {
	due := DueMonth(batch, student, today)
	current := YearMonthOf(today)

	switch {
	case due.Before(current):
		return Verdict{Kind: StatusOverdue, Label: "Overdue", AmountDue: batch.TotalFee, NextDue: due.First()}
	case due.Equal(current):
		return Verdict{Kind: StatusDue, Label: "Due", AmountDue: batch.TotalFee, NextDue: due.First()}
	default:
		return Verdict{Kind: StatusOK, Label: "Ok", AmountDue: decimal.Zero}
	}
}

func courseStatus(batch Batch, student Student, today Date) Verdict {
	p, _ := student.Payment.(CoursePayment)
	if p.Paid {
		return Verdict{Kind: StatusOK, Label: "Paid", AmountDue: decimal.Zero}
	}
	if !p.DueDate.IsZero() && p.DueDate.Before(today) {
		return Verdict{Kind: StatusOverdue, Label: "Overdue", AmountDue: batch.TotalFee, NextDue: p.DueDate}
	}
	return Verdict{Kind: StatusDue, Label: "Due", AmountDue: batch.TotalFee, NextDue: p.DueDate}
}

func installmentStatus(batch Batch, student Student, today Date) Verdict {
	p, _ := student.Payment.(InstallmentPayment)

	outstanding := batch.TotalFee.Sub(p.PaidTotal)
	if outstanding.IsNegative() {
		outstanding = decimal.Zero
	}
	if outstanding.IsZero() {
		return Verdict{Kind: StatusOK, Label: "Paid", AmountDue: decimal.Zero}
	}
	if !p.DueDate.IsZero() && p.DueDate.Before(today) {
		return Verdict{Kind: StatusOverdue, Label: "Overdue", AmountDue: outstanding, NextDue: p.DueDate}
	}
	return Verdict{Kind: StatusDue, Label: "Due", AmountDue: outstanding, NextDue: p.DueDate}
}

// CollectedThisPeriod returns the amount this student has actually paid in
// the current accounting period: the full fee for monthly students who paid
// the current month, the full fee for paid course students, and the
// accumulated total for installment students.
func CollectedThisPeriod(batch Batch, student Student, today Date) decimal.Decimal {
	if student.Dropped {
		return decimal.Zero
	}
	switch batch.FeeModel {
	case FeeMonthly:
		p, _ := student.Payment.(MonthlyPayment)
		if p.LastPaidMonth.Equal(YearMonthOf(today)) {
			return batch.TotalFee
		}
		return decimal.Zero
	case FeeCourse:
		p, _ := student.Payment.(CoursePayment)
		if p.Paid {
			return batch.TotalFee
		}
		return decimal.Zero
	default:
		p, _ := student.Payment.(InstallmentPayment)
		if p.PaidTotal.IsNegative() {
			return decimal.Zero
		}
		return p.PaidTotal
	}
}

// PaymentDate returns the date a student's collected amount is attributed
// to, for daily bucketing: the 1st of the paid month for monthly students,
// the due date otherwise. Zero when nothing determinable was paid.
func PaymentDate(batch Batch, student Student) Date {
	switch batch.FeeModel {
	case FeeMonthly:
		p, _ := student.Payment.(MonthlyPayment)
		return p.LastPaidMonth.First()
	case FeeCourse:
		p, _ := student.Payment.(CoursePayment)
		return p.DueDate
	default:
		p, _ := student.Payment.(InstallmentPayment)
		return p.DueDate
	}
}
