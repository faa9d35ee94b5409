/*
Package crm provides the core fee-tracking engine for coaching businesses.

PURPOSE:
  This package contains the domain model and algorithms for batch/student
  fee tracking: deciding whether a student is paid up, due, or overdue
  under three billing models, and aggregating those verdicts into the
  dashboard metrics the rest of the system renders.

KEY CONCEPTS IN THIS FILE (types.go):
  - Batch: A cohort of students under one billing arrangement
  - Student: A member of exactly one batch, with model-specific payment state
  - PaymentState: Tagged union over the three billing models
  - Money helpers: decimal.Decimal parsing that never fails

DESIGN PRINCIPLES:
  1. Purity: status and aggregation are pure functions of loaded records
  2. Totality: malformed or missing fields default, they never throw
  3. Precision: decimal.Decimal for all currency amounts
  4. Type safety: each billing model carries only its own fields

SEE ALSO:
  - status.go: The fee status verdict per student
  - aggregate.go: Dashboard metrics across all batches
  - rollover.go: Monthly history snapshots
*/
package crm

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY
// =============================================================================

// ParseMoney converts a stored numeric string to a decimal amount.
// Malformed input yields zero; stored records are untrusted.
func ParseMoney(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// Rupees builds an amount from an integer number of currency units.
func Rupees(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

// =============================================================================
// FEE MODEL
// =============================================================================

// FeeModel determines which status rules apply to every student in a batch.
// It is fixed at batch creation.
type FeeModel string

const (
	FeeMonthly     FeeModel = "monthly"     // Recurring fee, tracked per month
	FeeCourse      FeeModel = "course"      // One-time fee for the whole course
	FeeInstallment FeeModel = "installment" // One-time fee, paid in parts
)

// Known reports whether the model is one of the three supported models.
// Unknown models still compute a status (the installment-style catch-all).
func (m FeeModel) Known() bool {
	switch m {
	case FeeMonthly, FeeCourse, FeeInstallment:
		return true
	}
	return false
}

// =============================================================================
// BATCH
// =============================================================================

// Batch is a cohort of students under one billing arrangement.
type Batch struct {
	ID     string
	Name   string
	Course string
	Time   string

	StartDate Date
	EndDate   Date

	WhatsappURL string

	// Billing configuration. FeeModel is immutable once students exist.
	FeeModel        FeeModel
	TotalFee        decimal.Decimal
	InstallmentPlan []decimal.Decimal
}

var (
	ErrNameRequired  = errors.New("name is required")
	ErrPhoneRequired = errors.New("phone is required")
	ErrBadFeeModel   = errors.New("unknown fee model")
	ErrBadAmount     = errors.New("amount must be positive")
	ErrWrongModel    = errors.New("action does not match batch fee model")
)

// NewBatch creates a batch. For installment batches with a plan, the total
// fee is the sum of the plan's parts.
func NewBatch(name string, model FeeModel, totalFee decimal.Decimal, plan []decimal.Decimal) (Batch, error) {
	if name == "" {
		return Batch{}, ErrNameRequired
	}
	if !model.Known() {
		return Batch{}, fmt.Errorf("%w: %q", ErrBadFeeModel, model)
	}
	if totalFee.IsNegative() {
		totalFee = decimal.Zero
	}

	var kept []decimal.Decimal
	for _, p := range plan {
		if p.IsPositive() {
			kept = append(kept, p)
		}
	}
	if model == FeeInstallment && len(kept) > 0 {
		totalFee = decimal.Zero
		for _, p := range kept {
			totalFee = totalFee.Add(p)
		}
	}

	return Batch{
		ID:              uuid.NewString(),
		Name:            name,
		FeeModel:        model,
		TotalFee:        totalFee,
		InstallmentPlan: kept,
	}, nil
}

// =============================================================================
// PAYMENT STATE - Tagged union over the three billing models
// =============================================================================

// PaymentState holds the model-specific payment fields of a student.
// Exactly one concrete type is meaningful per batch; the status engine
// tolerates a mismatch by falling back to "nothing paid yet".
type PaymentState interface {
	Model() FeeModel
}

// MonthlyPayment tracks the last month a recurring fee was paid.
// A zero LastPaidMonth means the student has never paid.
type MonthlyPayment struct {
	LastPaidMonth YearMonth
}

func (MonthlyPayment) Model() FeeModel { return FeeMonthly }

// CoursePayment tracks a one-time course fee. DueDate is only relevant
// while unpaid.
type CoursePayment struct {
	Paid    bool
	DueDate Date
}

func (CoursePayment) Model() FeeModel { return FeeCourse }

// InstallmentPayment accumulates partial payments against the batch total.
type InstallmentPayment struct {
	PaidTotal decimal.Decimal
	DueDate   Date
}

func (InstallmentPayment) Model() FeeModel { return FeeInstallment }

// =============================================================================
// STUDENT
// =============================================================================

// Student belongs to exactly one batch. Dropped students are retained in
// storage but excluded from all financial and follow-up aggregation.
type Student struct {
	ID    string
	Name  string
	Phone string
	Notes string

	Dropped bool
	Payment PaymentState
}

// NewStudent creates a student in the "nothing paid yet" state for the
// batch's billing model. Name and phone are required. The due date is
// ignored for monthly batches.
func NewStudent(batch Batch, name, phone string, dueDate Date) (Student, error) {
	if name == "" {
		return Student{}, ErrNameRequired
	}
	if phone == "" {
		return Student{}, ErrPhoneRequired
	}

	s := Student{
		ID:    uuid.NewString(),
		Name:  name,
		Phone: phone,
	}
	switch batch.FeeModel {
	case FeeMonthly:
		s.Payment = MonthlyPayment{}
	case FeeCourse:
		s.Payment = CoursePayment{DueDate: dueDate}
	default:
		s.Payment = InstallmentPayment{PaidTotal: decimal.Zero, DueDate: dueDate}
	}
	return s, nil
}

// =============================================================================
// PAYMENT ACTIONS - Mutations applied by the caller, then persisted
// =============================================================================

// MarkMonthPaid records the recurring fee as paid for the given month.
func (s *Student) MarkMonthPaid(month YearMonth) error {
	p, ok := s.Payment.(MonthlyPayment)
	if !ok {
		return ErrWrongModel
	}
	if month.IsZero() {
		return fmt.Errorf("%w: empty month", ErrBadAmount)
	}
	p.LastPaidMonth = month
	s.Payment = p
	return nil
}

// MarkCoursePaid records the one-time course fee as paid.
func (s *Student) MarkCoursePaid() error {
	p, ok := s.Payment.(CoursePayment)
	if !ok {
		return ErrWrongModel
	}
	p.Paid = true
	s.Payment = p
	return nil
}

// AddPayment accumulates a positive installment amount.
func (s *Student) AddPayment(amount decimal.Decimal) error {
	p, ok := s.Payment.(InstallmentPayment)
	if !ok {
		return ErrWrongModel
	}
	if !amount.IsPositive() {
		return ErrBadAmount
	}
	p.PaidTotal = p.PaidTotal.Add(amount)
	s.Payment = p
	return nil
}

// ToggleDropped drops an active student or rejoins a dropped one.
func (s *Student) ToggleDropped() { s.Dropped = !s.Dropped }

// ReminderMessage is the text used for fee-reminder contacts.
func ReminderMessage(studentName, batchName string) string {
	return fmt.Sprintf("Hello %s, this is a friendly reminder about your fees for %s.", studentName, batchName)
}
