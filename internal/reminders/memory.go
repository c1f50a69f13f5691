package reminders

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/david/scholar-match/internal/models"
)

// MemoryRepository keeps reminders in insertion order.
type MemoryRepository struct {
	mu    sync.RWMutex
	items []models.Reminder
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (m *MemoryRepository) Insert(ctx context.Context, r models.Reminder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append(m.items, r)
	return nil
}

func (m *MemoryRepository) SetCompleted(ctx context.Context, studentID, id uuid.UUID, completed bool, completedAt *time.Time) (models.Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].ID == id && m.items[i].StudentID == studentID {
			m.items[i].Completed = completed
			m.items[i].CompletedAt = completedAt
			return m.items[i], nil
		}
	}
	return models.Reminder{}, ErrNotFound
}

func (m *MemoryRepository) Delete(ctx context.Context, studentID, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].ID == id && m.items[i].StudentID == studentID {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (m *MemoryRepository) ListByStudent(ctx context.Context, studentID uuid.UUID) ([]models.Reminder, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []models.Reminder{}
	for _, r := range m.items {
		if r.StudentID == studentID {
			out = append(out, r)
		}
	}
	return out, nil
}
