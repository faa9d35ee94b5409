/*
Package sqlite provides a SQLite-backed implementation of the crm storage
interfaces.

PURPOSE:
  Implements crm.Store (batches, students, stats archive, todos) using
  SQLite.

KEY TABLES:
  batches:   One row per cohort, insertion-ordered by rowid
  students:  One row per student, keyed to its batch, discrete columns
             per billing model (only the owning model's columns matter)
  stats:     Single-row JSON blob holding the monthly/yearly/lifetime
             archive; an unreadable blob degrades to an empty archive
  todos:     Dashboard syllabus checklist

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) and foreign keys on.
  Deleting a batch cascades to its students.

USAGE:
  store, err := sqlite.New("./data/crm.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - crm/store.go: Interface definitions
  - crm/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/coachdesk/crm-engine/crm"
)

// Store implements crm.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS batches (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		course TEXT,
		class_time TEXT,
		start_date TEXT,
		end_date TEXT,
		whatsapp_url TEXT,
		fee_model TEXT NOT NULL,
		total_fee TEXT NOT NULL,
		installment_plan TEXT
	);

	CREATE TABLE IF NOT EXISTS students (
		id TEXT PRIMARY KEY,
		batch_id TEXT NOT NULL REFERENCES batches(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		phone TEXT NOT NULL,
		notes TEXT,
		dropped INTEGER NOT NULL DEFAULT 0,
		fee_model TEXT NOT NULL,
		last_paid_month TEXT,
		paid INTEGER NOT NULL DEFAULT 0,
		due_date TEXT,
		paid_total TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_students_batch ON students(batch_id);

	CREATE TABLE IF NOT EXISTS stats (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		archive_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS todos (
		id TEXT PRIMARY KEY,
		text TEXT NOT NULL,
		completed INTEGER NOT NULL DEFAULT 0,
		created_at TEXT
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// BATCHES
// =============================================================================

func (s *Store) SaveBatch(ctx context.Context, b crm.Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO batches (id, name, course, class_time, start_date, end_date, whatsapp_url, fee_model, total_fee, installment_plan)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			course = excluded.course,
			class_time = excluded.class_time,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			whatsapp_url = excluded.whatsapp_url,
			fee_model = excluded.fee_model,
			total_fee = excluded.total_fee,
			installment_plan = excluded.installment_plan`,
		b.ID, b.Name, b.Course, b.Time, b.StartDate.String(), b.EndDate.String(),
		b.WhatsappURL, string(b.FeeModel), b.TotalFee.String(), encodePlan(b.InstallmentPlan))
	if err != nil {
		return fmt.Errorf("failed to save batch: %w", err)
	}
	return nil
}

func (s *Store) GetBatch(ctx context.Context, id string) (crm.Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, course, class_time, start_date, end_date, whatsapp_url, fee_model, total_fee, installment_plan
		FROM batches WHERE id = ?`, id)

	b, err := scanBatch(row)
	if err == sql.ErrNoRows {
		return crm.Batch{}, crm.ErrBatchNotFound
	}
	if err != nil {
		return crm.Batch{}, fmt.Errorf("failed to get batch: %w", err)
	}
	return b, nil
}

func (s *Store) ListBatches(ctx context.Context) ([]crm.Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, course, class_time, start_date, end_date, whatsapp_url, fee_model, total_fee, installment_plan
		FROM batches ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to list batches: %w", err)
	}
	defer rows.Close()

	var out []crm.Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan batch: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// DeleteBatch removes the batch and, via the foreign key, its students.
func (s *Store) DeleteBatch(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM batches WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete batch: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return crm.ErrBatchNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBatch(r rowScanner) (crm.Batch, error) {
	var (
		b                          crm.Batch
		startDate, endDate         string
		model, totalFee, planBlob  string
		course, classTime, whatsUp sql.NullString
	)
	if err := r.Scan(&b.ID, &b.Name, &course, &classTime, &startDate, &endDate, &whatsUp, &model, &totalFee, &planBlob); err != nil {
		return crm.Batch{}, err
	}
	b.Course = course.String
	b.Time = classTime.String
	b.WhatsappURL = whatsUp.String
	b.StartDate = crm.ParseDate(startDate)
	b.EndDate = crm.ParseDate(endDate)
	b.FeeModel = crm.FeeModel(model)
	b.TotalFee = crm.ParseMoney(totalFee)
	b.InstallmentPlan = decodePlan(planBlob)
	return b, nil
}

// Installment plans are stored as a comma-joined list.
func encodePlan(plan []decimal.Decimal) string {
	parts := make([]string, len(plan))
	for i, p := range plan {
		parts[i] = p.String()
	}
	return strings.Join(parts, ",")
}

func decodePlan(blob string) []decimal.Decimal {
	if blob == "" {
		return nil
	}
	var plan []decimal.Decimal
	for _, part := range strings.Split(blob, ",") {
		if amt := crm.ParseMoney(strings.TrimSpace(part)); amt.IsPositive() {
			plan = append(plan, amt)
		}
	}
	return plan
}

// =============================================================================
// STUDENTS
// =============================================================================

func (s *Store) SaveStudent(ctx context.Context, batchID string, st crm.Student) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		model     = crm.FeeInstallment
		lastPaid  string
		paid      bool
		dueDate   string
		paidTotal = "0"
	)
	switch p := st.Payment.(type) {
	case crm.MonthlyPayment:
		model = crm.FeeMonthly
		lastPaid = p.LastPaidMonth.String()
	case crm.CoursePayment:
		model = crm.FeeCourse
		paid = p.Paid
		dueDate = p.DueDate.String()
	case crm.InstallmentPayment:
		paidTotal = p.PaidTotal.String()
		dueDate = p.DueDate.String()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO students (id, batch_id, name, phone, notes, dropped, fee_model, last_paid_month, paid, due_date, paid_total)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			phone = excluded.phone,
			notes = excluded.notes,
			dropped = excluded.dropped,
			fee_model = excluded.fee_model,
			last_paid_month = excluded.last_paid_month,
			paid = excluded.paid,
			due_date = excluded.due_date,
			paid_total = excluded.paid_total`,
		st.ID, batchID, st.Name, st.Phone, st.Notes, st.Dropped,
		string(model), lastPaid, paid, dueDate, paidTotal)
	if err != nil {
		return fmt.Errorf("failed to save student: %w", err)
	}
	return nil
}

func (s *Store) GetStudent(ctx context.Context, batchID, studentID string) (crm.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, phone, notes, dropped, fee_model, last_paid_month, paid, due_date, paid_total
		FROM students WHERE batch_id = ? AND id = ?`, batchID, studentID)

	st, err := scanStudent(row)
	if err == sql.ErrNoRows {
		return crm.Student{}, crm.ErrStudentNotFound
	}
	if err != nil {
		return crm.Student{}, fmt.Errorf("failed to get student: %w", err)
	}
	return st, nil
}

func (s *Store) ListStudents(ctx context.Context, batchID string) ([]crm.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, phone, notes, dropped, fee_model, last_paid_month, paid, due_date, paid_total
		FROM students WHERE batch_id = ? ORDER BY rowid`, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	defer rows.Close()

	var out []crm.Student
	for rows.Next() {
		st, err := scanStudent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan student: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func scanStudent(r rowScanner) (crm.Student, error) {
	var (
		st                crm.Student
		notes             sql.NullString
		model             string
		lastPaid, dueDate sql.NullString
		paid              bool
		paidTotal         sql.NullString
	)
	if err := r.Scan(&st.ID, &st.Name, &st.Phone, &notes, &st.Dropped, &model, &lastPaid, &paid, &dueDate, &paidTotal); err != nil {
		return crm.Student{}, err
	}
	st.Notes = notes.String

	switch crm.FeeModel(model) {
	case crm.FeeMonthly:
		st.Payment = crm.MonthlyPayment{LastPaidMonth: crm.ParseYearMonth(lastPaid.String)}
	case crm.FeeCourse:
		st.Payment = crm.CoursePayment{Paid: paid, DueDate: crm.ParseDate(dueDate.String)}
	default:
		st.Payment = crm.InstallmentPayment{
			PaidTotal: crm.ParseMoney(paidTotal.String),
			DueDate:   crm.ParseDate(dueDate.String),
		}
	}
	return st, nil
}

// =============================================================================
// STATS ARCHIVE
// =============================================================================

// LoadArchive reads the archive blob. A missing or unreadable blob yields
// a fresh empty archive rather than an error.
func (s *Store) LoadArchive(ctx context.Context) (*crm.StatsArchive, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var blob string
	err := s.db.QueryRowContext(ctx, `SELECT archive_json FROM stats WHERE id = 1`).Scan(&blob)
	if err == sql.ErrNoRows {
		return crm.NewStatsArchive(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load archive: %w", err)
	}

	archive := crm.NewStatsArchive()
	if err := json.Unmarshal([]byte(blob), archive); err != nil {
		// Corrupt history is a fresh start, not a failure.
		return crm.NewStatsArchive(), nil
	}
	return archive, nil
}

func (s *Store) SaveArchive(ctx context.Context, a *crm.StatsArchive) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	blob, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to encode archive: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO stats (id, archive_json) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET archive_json = excluded.archive_json`, string(blob))
	if err != nil {
		return fmt.Errorf("failed to save archive: %w", err)
	}
	return nil
}

// =============================================================================
// TODOS
// =============================================================================

func (s *Store) SaveTodo(ctx context.Context, t crm.Todo) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO todos (id, text, completed, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			text = excluded.text,
			completed = excluded.completed`,
		t.ID, t.Text, t.Completed, t.CreatedAt.String())
	if err != nil {
		return fmt.Errorf("failed to save todo: %w", err)
	}
	return nil
}

func (s *Store) ListTodos(ctx context.Context) ([]crm.Todo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT id, text, completed, created_at FROM todos ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to list todos: %w", err)
	}
	defer rows.Close()

	var out []crm.Todo
	for rows.Next() {
		var (
			t       crm.Todo
			created sql.NullString
		)
		if err := rows.Scan(&t.ID, &t.Text, &t.Completed, &created); err != nil {
			return nil, fmt.Errorf("failed to scan todo: %w", err)
		}
		t.CreatedAt = crm.ParseDate(created.String)
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) DeleteTodo(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM todos WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete todo: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return crm.ErrTodoNotFound
	}
	return nil
}
