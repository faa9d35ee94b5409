/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract. Students keep
  a flat wire shape (lastPaidMonth / paid / dueDate / paidTotal) with only
  the owning billing model's fields populated.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Request DTOs carry go-playground/validator tags; handlers run the
  shared validator before touching domain logic.

SEE ALSO:
  - handlers.go: Uses these types
  - crm/types.go: The domain model behind them
*/
package api

import (
	"github.com/shopspring/decimal"

	"github.com/coachdesk/crm-engine/crm"
)

// =============================================================================
// BATCHES
// =============================================================================

// BatchDTO represents a batch in API responses.
type BatchDTO struct {
	ID              string            `json:"id"`
	Name            string            `json:"name"`
	Course          string            `json:"course,omitempty"`
	Time            string            `json:"time,omitempty"`
	StartDate       string            `json:"startDate,omitempty"`
	EndDate         string            `json:"endDate,omitempty"`
	WhatsappURL     string            `json:"whatsappUrl,omitempty"`
	FeeModel        string            `json:"feeModel"`
	TotalFee        decimal.Decimal   `json:"totalFee"`
	InstallmentPlan []decimal.Decimal `json:"installmentPlan,omitempty"`
}

// CreateBatchRequest is the request to create a batch.
type CreateBatchRequest struct {
	Name            string            `json:"name" validate:"required"`
	Course          string            `json:"course"`
	Time            string            `json:"time"`
	StartDate       string            `json:"startDate"`
	EndDate         string            `json:"endDate"`
	WhatsappURL     string            `json:"whatsappUrl"`
	FeeModel        string            `json:"feeModel" validate:"required,oneof=monthly course installment"`
	TotalFee        decimal.Decimal   `json:"totalFee"`
	InstallmentPlan []decimal.Decimal `json:"installmentPlan"`
}

// BatchDetailDTO is a batch plus its page-level overview counters.
type BatchDetailDTO struct {
	BatchDTO
	Summary BatchSummaryDTO `json:"summary"`
}

type BatchSummaryDTO struct {
	ActiveStudents int `json:"activeStudents"`
	Pending        int `json:"pending"`
	Followups      int `json:"followups"`
	Dropouts       int `json:"dropouts"`
}

// =============================================================================
// STUDENTS
// =============================================================================

// StudentDTO represents a student in API responses, with the status
// verdict the UI renders next to it.
type StudentDTO struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Notes   string `json:"notes,omitempty"`
	Dropped bool   `json:"dropped"`

	// Model-specific payment state, matching the batch's fee model.
	LastPaidMonth string           `json:"lastPaidMonth,omitempty"`
	Paid          *bool            `json:"paid,omitempty"`
	DueDate       string           `json:"dueDate,omitempty"`
	PaidTotal     *decimal.Decimal `json:"paidTotal,omitempty"`

	Status VerdictDTO `json:"status"`
}

// VerdictDTO is the status engine's answer for one student.
type VerdictDTO struct {
	Kind      string          `json:"kind"`
	Label     string          `json:"label"`
	AmountDue decimal.Decimal `json:"amountDue"`
	NextDue   string          `json:"nextDue,omitempty"`
}

// CreateStudentRequest is the request to add a student to a batch.
type CreateStudentRequest struct {
	Name    string `json:"name" validate:"required"`
	Phone   string `json:"phone" validate:"required"`
	Notes   string `json:"notes"`
	DueDate string `json:"dueDate"`
}

// MarkPaidRequest records a fee payment. Month is only meaningful for
// monthly batches and defaults to the current month.
type MarkPaidRequest struct {
	Month string `json:"month"`
}

// AddPaymentRequest records a partial installment payment.
type AddPaymentRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"required"`
}

// =============================================================================
// DASHBOARD
// =============================================================================

type DashboardDTO struct {
	TotalBatches   int `json:"totalBatches"`
	ActiveStudents int `json:"activeStudents"`
	Followups      int `json:"followups"`

	RevenueCollected decimal.Decimal `json:"revenueCollected"`
	RevenuePending   decimal.Decimal `json:"revenuePending"`
	RevenueOverdue   decimal.Decimal `json:"revenueOverdue"`
	CollectionRate   int             `json:"collectionRate"`

	Daily            DailySeriesDTO       `json:"daily"`
	Rankings         []BatchRankingDTO    `json:"rankings"`
	Patterns         PaymentPatternsDTO   `json:"patterns"`
	HighPriority     []PriorityStudentDTO `json:"highPriority"`
	FollowupContacts []FollowupContactDTO `json:"followupContacts"`
}

type DailySeriesDTO struct {
	Month     string            `json:"month"`
	Collected []decimal.Decimal `json:"collected"`
	Pending   []decimal.Decimal `json:"pending"`
	Overdue   []decimal.Decimal `json:"overdue"`
}

type BatchRankingDTO struct {
	BatchID        string          `json:"batchId"`
	Name           string          `json:"name"`
	Percent        int             `json:"percent"`
	ActiveStudents int             `json:"activeStudents"`
	Revenue        decimal.Decimal `json:"revenue"`
}

type PaymentPatternsDTO struct {
	OnTime  int `json:"onTime"`
	Late    int `json:"late"`
	Overdue int `json:"overdue"`
}

type PriorityStudentDTO struct {
	StudentID string          `json:"studentId"`
	Name      string          `json:"name"`
	BatchName string          `json:"batchName"`
	Amount    decimal.Decimal `json:"amount"`
	Overdue   bool            `json:"overdue"`
}

type FollowupContactDTO struct {
	StudentID string `json:"studentId"`
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	BatchName string `json:"batchName"`
	Reminder  string `json:"reminder"`
}

// =============================================================================
// STATS / ROLLOVER
// =============================================================================

type RolloverResponse struct {
	Archived bool         `json:"archived"`
	Month    string       `json:"month"`
	Snapshot crm.Snapshot `json:"snapshot"`
}

// =============================================================================
// TODOS
// =============================================================================

type TodoDTO struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
	CreatedAt string `json:"createdAt,omitempty"`
}

type CreateTodoRequest struct {
	Text string `json:"text" validate:"required"`
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toBatchDTO(b crm.Batch) BatchDTO {
	return BatchDTO{
		ID:              b.ID,
		Name:            b.Name,
		Course:          b.Course,
		Time:            b.Time,
		StartDate:       b.StartDate.String(),
		EndDate:         b.EndDate.String(),
		WhatsappURL:     b.WhatsappURL,
		FeeModel:        string(b.FeeModel),
		TotalFee:        b.TotalFee,
		InstallmentPlan: b.InstallmentPlan,
	}
}

func toStudentDTO(batch crm.Batch, s crm.Student, today crm.Date) StudentDTO {
	v := crm.ComputeStatus(batch, s, today)
	dto := StudentDTO{
		ID:      s.ID,
		Name:    s.Name,
		Phone:   s.Phone,
		Notes:   s.Notes,
		Dropped: s.Dropped,
		Status: VerdictDTO{
			Kind:      string(v.Kind),
			Label:     v.Label,
			AmountDue: v.AmountDue,
			NextDue:   v.NextDue.String(),
		},
	}
	switch p := s.Payment.(type) {
	case crm.MonthlyPayment:
		dto.LastPaidMonth = p.LastPaidMonth.String()
	case crm.CoursePayment:
		paid := p.Paid
		dto.Paid = &paid
		dto.DueDate = p.DueDate.String()
	case crm.InstallmentPayment:
		total := p.PaidTotal
		dto.PaidTotal = &total
		dto.DueDate = p.DueDate.String()
	}
	return dto
}

func toDashboardDTO(m crm.DashboardMetrics) DashboardDTO {
	dto := DashboardDTO{
		TotalBatches:     m.TotalBatches,
		ActiveStudents:   m.ActiveStudents,
		Followups:        m.Followups,
		RevenueCollected: m.RevenueCollected,
		RevenuePending:   m.RevenuePending,
		RevenueOverdue:   m.RevenueOverdue,
		CollectionRate:   m.Daily.CollectionRate(),
		Daily: DailySeriesDTO{
			Month:     m.Daily.Month.String(),
			Collected: m.Daily.Collected,
			Pending:   m.Daily.Pending,
			Overdue:   m.Daily.Overdue,
		},
		Patterns: PaymentPatternsDTO(m.Patterns),
	}
	for _, r := range m.Rankings {
		dto.Rankings = append(dto.Rankings, BatchRankingDTO{
			BatchID:        r.BatchID,
			Name:           r.Name,
			Percent:        r.Percent,
			ActiveStudents: r.ActiveStudents,
			Revenue:        r.Revenue,
		})
	}
	for _, p := range m.HighPriority {
		dto.HighPriority = append(dto.HighPriority, PriorityStudentDTO{
			StudentID: p.StudentID,
			Name:      p.Name,
			BatchName: p.BatchName,
			Amount:    p.Amount,
			Overdue:   p.Overdue,
		})
	}
	for _, c := range m.FollowupContacts {
		dto.FollowupContacts = append(dto.FollowupContacts, FollowupContactDTO{
			StudentID: c.StudentID,
			Name:      c.Name,
			Phone:     c.Phone,
			BatchName: c.BatchName,
			Reminder:  crm.ReminderMessage(c.Name, c.BatchName),
		})
	}
	return dto
}
