/*
handlers.go - HTTP API handlers for the coaching CRM engine

PURPOSE:
  Exposes the fee engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to domain logic. The handlers own
  the read-then-write sequence around payment actions, so each request
  sees a consistent snapshot of the store.

ENDPOINTS:
  Batches:
    GET    /api/batches                 List all batches
    POST   /api/batches                 Create batch
    GET    /api/batches/{id}            Batch with overview counters
    DELETE /api/batches/{id}            Delete batch (cascades students)
    GET    /api/batches/{id}/export     CSV/XLSX roster report

  Students:
    GET    /api/batches/{id}/students                List with verdicts
    POST   /api/batches/{id}/students                Add student
    POST   /api/batches/{id}/students/{sid}/paid     Mark fee paid
    POST   /api/batches/{id}/students/{sid}/payments Add installment payment
    POST   /api/batches/{id}/students/{sid}/drop     Drop/rejoin toggle

  Dashboard:
    GET    /api/dashboard               Full derived metrics
    GET    /api/followups               Follow-up contact list

  History:
    GET    /api/stats                   Archived monthly/yearly/lifetime
    POST   /api/admin/rollover          Archive the current month

  Todos:
    GET/POST /api/todos, POST /api/todos/{id}/toggle, DELETE /api/todos/{id}

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input, wrong fee model for action
  - 404: Batch/student/todo not found
  - 500: Storage errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/coachdesk/crm-engine/crm"
	"github.com/coachdesk/crm-engine/export"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store    crm.Store
	Validate *validator.Validate

	// Now supplies "today" for status computation. Overridable in tests.
	Now func() crm.Date
}

// NewHandler creates a new handler with the given store.
func NewHandler(store crm.Store) *Handler {
	return &Handler{
		Store:    store,
		Validate: validator.New(),
		Now:      crm.Today,
	}
}

func (h *Handler) decode(r *http.Request, req any) error {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return h.Validate.Struct(req)
}

// =============================================================================
// BATCH HANDLERS
// =============================================================================

// ListBatches returns all batches in insertion order.
func (h *Handler) ListBatches(w http.ResponseWriter, r *http.Request) {
	batches, err := h.Store.ListBatches(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list batches", err)
		return
	}

	dtos := make([]BatchDTO, len(batches))
	for i, b := range batches {
		dtos[i] = toBatchDTO(b)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateBatch creates a batch from the request body.
func (h *Handler) CreateBatch(w http.ResponseWriter, r *http.Request) {
	var req CreateBatchRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid batch", err)
		return
	}

	batch, err := crm.NewBatch(req.Name, crm.FeeModel(req.FeeModel), req.TotalFee, req.InstallmentPlan)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid batch", err)
		return
	}
	batch.Course = req.Course
	batch.Time = req.Time
	batch.StartDate = crm.ParseDate(req.StartDate)
	batch.EndDate = crm.ParseDate(req.EndDate)
	batch.WhatsappURL = req.WhatsappURL

	if err := h.Store.SaveBatch(r.Context(), batch); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save batch", err)
		return
	}

	slog.Info("batch created", "batch", batch.ID, "fee_model", batch.FeeModel)
	writeJSON(w, http.StatusCreated, toBatchDTO(batch))
}

// GetBatch returns one batch with its overview counters.
func (h *Handler) GetBatch(w http.ResponseWriter, r *http.Request) {
	batch, students, ok := h.loadBatch(w, r)
	if !ok {
		return
	}

	sum := crm.AggregateBatch(batch, students, h.Now())
	writeJSON(w, http.StatusOK, BatchDetailDTO{
		BatchDTO: toBatchDTO(batch),
		Summary:  BatchSummaryDTO(sum),
	})
}

// DeleteBatch removes a batch and all of its students.
func (h *Handler) DeleteBatch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Store.DeleteBatch(r.Context(), id); err != nil {
		writeError(w, statusFor(err), "Failed to delete batch", err)
		return
	}
	slog.Info("batch deleted", "batch", id)
	writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
}

// ExportStudents streams the roster report. Format is csv (default) or xlsx.
func (h *Handler) ExportStudents(w http.ResponseWriter, r *http.Request) {
	batch, students, ok := h.loadBatch(w, r)
	if !ok {
		return
	}
	today := h.Now()

	switch r.URL.Query().Get("format") {
	case "xlsx":
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", "attachment; filename="+export.Filename(batch, "xlsx"))
		if err := export.WriteXLSX(w, batch, students, today); err != nil {
			slog.Error("xlsx export failed", "batch", batch.ID, "error", err)
		}
	default:
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", "attachment; filename="+export.Filename(batch, "csv"))
		if err := export.WriteCSV(w, batch, students, today); err != nil {
			slog.Error("csv export failed", "batch", batch.ID, "error", err)
		}
	}
}

// =============================================================================
// STUDENT HANDLERS
// =============================================================================

// ListStudents returns a batch's students with their status verdicts.
func (h *Handler) ListStudents(w http.ResponseWriter, r *http.Request) {
	batch, students, ok := h.loadBatch(w, r)
	if !ok {
		return
	}
	today := h.Now()

	dtos := make([]StudentDTO, len(students))
	for i, s := range students {
		dtos[i] = toStudentDTO(batch, s, today)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateStudent adds a student to a batch in the unpaid state.
func (h *Handler) CreateStudent(w http.ResponseWriter, r *http.Request) {
	batch, _, ok := h.loadBatch(w, r)
	if !ok {
		return
	}

	var req CreateStudentRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid student", err)
		return
	}

	student, err := crm.NewStudent(batch, req.Name, req.Phone, crm.ParseDate(req.DueDate))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid student", err)
		return
	}
	student.Notes = req.Notes

	if err := h.Store.SaveStudent(r.Context(), batch.ID, student); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save student", err)
		return
	}

	slog.Info("student added", "batch", batch.ID, "student", student.ID)
	writeJSON(w, http.StatusCreated, toStudentDTO(batch, student, h.Now()))
}

// MarkPaid records the fee as paid: the given (or current) month for
// monthly batches, the one-time fee for course batches. Installment
// batches use the payments endpoint instead.
func (h *Handler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	h.mutateStudent(w, r, func(batch crm.Batch, student *crm.Student) error {
		switch batch.FeeModel {
		case crm.FeeMonthly:
			var req MarkPaidRequest
			// An empty body means "the current month".
			_ = json.NewDecoder(r.Body).Decode(&req)
			month := crm.ParseYearMonth(req.Month)
			if month.IsZero() {
				month = crm.YearMonthOf(h.Now())
			}
			return student.MarkMonthPaid(month)
		case crm.FeeCourse:
			return student.MarkCoursePaid()
		default:
			return crm.ErrWrongModel
		}
	})
}

// AddPayment accumulates an installment payment.
func (h *Handler) AddPayment(w http.ResponseWriter, r *http.Request) {
	var req AddPaymentRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid payment", err)
		return
	}
	h.mutateStudent(w, r, func(batch crm.Batch, student *crm.Student) error {
		return student.AddPayment(req.Amount)
	})
}

// ToggleDrop drops an active student or rejoins a dropped one.
func (h *Handler) ToggleDrop(w http.ResponseWriter, r *http.Request) {
	h.mutateStudent(w, r, func(_ crm.Batch, student *crm.Student) error {
		student.ToggleDropped()
		return nil
	})
}

// mutateStudent loads batch+student, applies fn, persists, and responds
// with the refreshed student DTO.
func (h *Handler) mutateStudent(w http.ResponseWriter, r *http.Request, fn func(crm.Batch, *crm.Student) error) {
	ctx := r.Context()
	batchID := chi.URLParam(r, "id")
	studentID := chi.URLParam(r, "sid")

	batch, err := h.Store.GetBatch(ctx, batchID)
	if err != nil {
		writeError(w, statusFor(err), "Failed to load batch", err)
		return
	}
	student, err := h.Store.GetStudent(ctx, batchID, studentID)
	if err != nil {
		writeError(w, statusFor(err), "Failed to load student", err)
		return
	}

	if err := fn(batch, &student); err != nil {
		writeError(w, http.StatusBadRequest, "Action rejected", err)
		return
	}
	if err := h.Store.SaveStudent(ctx, batchID, student); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save student", err)
		return
	}

	writeJSON(w, http.StatusOK, toStudentDTO(batch, student, h.Now()))
}

// =============================================================================
// DASHBOARD HANDLERS
// =============================================================================

// Dashboard returns the full derived metrics for the current date.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	m, err := h.aggregate(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to aggregate", err)
		return
	}
	writeJSON(w, http.StatusOK, toDashboardDTO(m))
}

// Followups returns the follow-up contact list with reminder texts.
func (h *Handler) Followups(w http.ResponseWriter, r *http.Request) {
	m, err := h.aggregate(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to aggregate", err)
		return
	}

	contacts := toDashboardDTO(m).FollowupContacts
	if contacts == nil {
		contacts = []FollowupContactDTO{}
	}
	writeJSON(w, http.StatusOK, contacts)
}

func (h *Handler) aggregate(ctx context.Context) (crm.DashboardMetrics, error) {
	batches, err := h.Store.ListBatches(ctx)
	if err != nil {
		return crm.DashboardMetrics{}, err
	}
	byBatch, err := crm.LoadStudentsByBatch(ctx, h.Store, batches)
	if err != nil {
		return crm.DashboardMetrics{}, err
	}
	return crm.Aggregate(batches, byBatch, h.Now()), nil
}

// =============================================================================
// HISTORY HANDLERS
// =============================================================================

// Stats returns the persisted archive.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	archive, err := h.Store.LoadArchive(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load stats", err)
		return
	}
	writeJSON(w, http.StatusOK, archive)
}

// TriggerRollover archives the current month's snapshot. Safe to call
// repeatedly: a month is only archived once.
func (h *Handler) TriggerRollover(w http.ResponseWriter, r *http.Request) {
	resp, err := h.runRollover(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to run rollover", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) runRollover(ctx context.Context) (RolloverResponse, error) {
	today := h.Now()

	m, err := h.aggregate(ctx)
	if err != nil {
		return RolloverResponse{}, err
	}
	archive, err := h.Store.LoadArchive(ctx)
	if err != nil {
		return RolloverResponse{}, err
	}

	snap := m.Snapshot()
	archived := archive.Rollover(snap, today)
	if archived {
		if err := h.Store.SaveArchive(ctx, archive); err != nil {
			return RolloverResponse{}, err
		}
		slog.Info("month archived", "month", crm.YearMonthOf(today).String(),
			"revenue", snap.Revenue, "students", snap.Students, "followups", snap.Followups)
	}

	return RolloverResponse{
		Archived: archived,
		Month:    crm.YearMonthOf(today).String(),
		Snapshot: snap,
	}, nil
}

// =============================================================================
// TODO HANDLERS
// =============================================================================

func (h *Handler) ListTodos(w http.ResponseWriter, r *http.Request) {
	todos, err := h.Store.ListTodos(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list todos", err)
		return
	}
	dtos := make([]TodoDTO, len(todos))
	for i, t := range todos {
		dtos[i] = TodoDTO{ID: t.ID, Text: t.Text, Completed: t.Completed, CreatedAt: t.CreatedAt.String()}
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateTodo(w http.ResponseWriter, r *http.Request) {
	var req CreateTodoRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid todo", err)
		return
	}

	todo := crm.Todo{ID: uuid.NewString(), Text: req.Text, CreatedAt: h.Now()}
	if err := h.Store.SaveTodo(r.Context(), todo); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save todo", err)
		return
	}
	writeJSON(w, http.StatusCreated, TodoDTO{ID: todo.ID, Text: todo.Text, CreatedAt: todo.CreatedAt.String()})
}

func (h *Handler) ToggleTodo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	todos, err := h.Store.ListTodos(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load todos", err)
		return
	}
	for _, t := range todos {
		if t.ID == id {
			t.Completed = !t.Completed
			if err := h.Store.SaveTodo(ctx, t); err != nil {
				writeError(w, http.StatusInternalServerError, "Failed to save todo", err)
				return
			}
			writeJSON(w, http.StatusOK, TodoDTO{ID: t.ID, Text: t.Text, Completed: t.Completed, CreatedAt: t.CreatedAt.String()})
			return
		}
	}
	writeError(w, http.StatusNotFound, "Todo not found", crm.ErrTodoNotFound)
}

func (h *Handler) DeleteTodo(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Store.DeleteTodo(r.Context(), id); err != nil {
		writeError(w, statusFor(err), "Failed to delete todo", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) loadBatch(w http.ResponseWriter, r *http.Request) (crm.Batch, []crm.Student, bool) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	batch, err := h.Store.GetBatch(ctx, id)
	if err != nil {
		writeError(w, statusFor(err), "Failed to load batch", err)
		return crm.Batch{}, nil, false
	}
	students, err := h.Store.ListStudents(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load students", err)
		return crm.Batch{}, nil, false
	}
	return batch, students, true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, crm.ErrBatchNotFound),
		errors.Is(err, crm.ErrStudentNotFound),
		errors.Is(err, crm.ErrTodoNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
