/*
store.go - Persistence interfaces for batches, students, and history

PURPOSE:
  Defines the boundary between the engine and storage. The engine never
  touches a store directly: callers load records, hand them to the pure
  functions, and persist the returned mutations. Implementations exist
  for SQLite (store/sqlite) and in-memory (crm/store).

ORDERING CONTRACT:
  ListBatches and ListStudents return records in insertion order. The
  aggregation engine's follow-up list and ranking tie-breaks depend on
  stable iteration order.

FAILURE CONTRACT:
  LoadArchive must return an empty archive when the persisted blob is
  corrupt or absent, never a decode failure.
*/
package crm

import (
	"context"
	"errors"
)

var (
	ErrBatchNotFound   = errors.New("batch not found")
	ErrStudentNotFound = errors.New("student not found")
	ErrTodoNotFound    = errors.New("todo not found")
)

// BatchStore persists batch records.
type BatchStore interface {
	SaveBatch(ctx context.Context, b Batch) error
	GetBatch(ctx context.Context, id string) (Batch, error)
	ListBatches(ctx context.Context) ([]Batch, error)

	// DeleteBatch removes the batch and cascades to its students.
	DeleteBatch(ctx context.Context, id string) error
}

// StudentStore persists student records per batch.
type StudentStore interface {
	SaveStudent(ctx context.Context, batchID string, s Student) error
	GetStudent(ctx context.Context, batchID, studentID string) (Student, error)
	ListStudents(ctx context.Context, batchID string) ([]Student, error)
}

// StatsStore persists the historical archive.
type StatsStore interface {
	LoadArchive(ctx context.Context) (*StatsArchive, error)
	SaveArchive(ctx context.Context, a *StatsArchive) error
}

// TodoStore persists the syllabus-progress checklist.
type TodoStore interface {
	SaveTodo(ctx context.Context, t Todo) error
	ListTodos(ctx context.Context) ([]Todo, error)
	DeleteTodo(ctx context.Context, id string) error
}

// Store is the full repository the API layer is wired with.
type Store interface {
	BatchStore
	StudentStore
	StatsStore
	TodoStore
}

// Todo is one syllabus topic on the dashboard checklist.
type Todo struct {
	ID        string
	Text      string
	Completed bool
	CreatedAt Date
}

// LoadStudentsByBatch loads every batch's students keyed by batch ID,
// ready for Aggregate.
func LoadStudentsByBatch(ctx context.Context, store StudentStore, batches []Batch) (map[string][]Student, error) {
	byBatch := make(map[string][]Student, len(batches))
	for _, b := range batches {
		students, err := store.ListStudents(ctx, b.ID)
		if err != nil {
			return nil, err
		}
		byBatch[b.ID] = students
	}
	return byBatch, nil
}
