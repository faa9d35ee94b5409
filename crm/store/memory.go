// Package store provides crm.Store implementations.
package store

import (
	"context"
	"sync"

	"github.com/coachdesk/crm-engine/crm"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu       sync.RWMutex
	batches  []crm.Batch
	students map[string][]crm.Student // batch ID -> insertion order
	archive  *crm.StatsArchive
	todos    []crm.Todo
}

func NewMemory() *Memory {
	return &Memory{
		students: make(map[string][]crm.Student),
		archive:  crm.NewStatsArchive(),
	}
}

// SaveBatch inserts or replaces a batch, keeping insertion order.
func (m *Memory) SaveBatch(_ context.Context, b crm.Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.batches {
		if m.batches[i].ID == b.ID {
			m.batches[i] = b
			return nil
		}
	}
	m.batches = append(m.batches, b)
	return nil
}

func (m *Memory) GetBatch(_ context.Context, id string) (crm.Batch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, b := range m.batches {
		if b.ID == id {
			return b, nil
		}
	}
	return crm.Batch{}, crm.ErrBatchNotFound
}

func (m *Memory) ListBatches(_ context.Context) ([]crm.Batch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]crm.Batch, len(m.batches))
	copy(out, m.batches)
	return out, nil
}

// DeleteBatch removes the batch and its students.
func (m *Memory) DeleteBatch(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.batches {
		if m.batches[i].ID == id {
			m.batches = append(m.batches[:i], m.batches[i+1:]...)
			delete(m.students, id)
			return nil
		}
	}
	return crm.ErrBatchNotFound
}

func (m *Memory) SaveStudent(_ context.Context, batchID string, s crm.Student) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.students[batchID]
	for i := range list {
		if list[i].ID == s.ID {
			list[i] = s
			return nil
		}
	}
	m.students[batchID] = append(list, s)
	return nil
}

func (m *Memory) GetStudent(_ context.Context, batchID, studentID string) (crm.Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.students[batchID] {
		if s.ID == studentID {
			return s, nil
		}
	}
	return crm.Student{}, crm.ErrStudentNotFound
}

func (m *Memory) ListStudents(_ context.Context, batchID string) ([]crm.Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]crm.Student, len(m.students[batchID]))
	copy(out, m.students[batchID])
	return out, nil
}

func (m *Memory) LoadArchive(_ context.Context) (*crm.StatsArchive, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.archive, nil
}

func (m *Memory) SaveArchive(_ context.Context, a *crm.StatsArchive) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.archive = a
	return nil
}

func (m *Memory) SaveTodo(_ context.Context, t crm.Todo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.todos {
		if m.todos[i].ID == t.ID {
			m.todos[i] = t
			return nil
		}
	}
	m.todos = append(m.todos, t)
	return nil
}

func (m *Memory) ListTodos(_ context.Context) ([]crm.Todo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]crm.Todo, len(m.todos))
	copy(out, m.todos)
	return out, nil
}

func (m *Memory) DeleteTodo(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.todos {
		if m.todos[i].ID == id {
			m.todos = append(m.todos[:i], m.todos[i+1:]...)
			return nil
		}
	}
	return crm.ErrTodoNotFound
}
