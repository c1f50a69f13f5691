package tracker

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/david/scholar-match/internal/models"
)

type pairKey struct {
	student     uuid.UUID
	scholarship string
}

// MemoryRepository keeps applications in process. The pair index and the rows are
// updated under one lock, so check-and-insert is a single step.
type MemoryRepository struct {
	mu     sync.RWMutex
	byID   map[uuid.UUID]models.Application
	byPair map[pairKey]uuid.UUID
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:   make(map[uuid.UUID]models.Application),
		byPair: make(map[pairKey]uuid.UUID),
	}
}

func (r *MemoryRepository) InsertIfAbsent(ctx context.Context, app models.Application) (models.Application, bool, error) {
	key := pairKey{student: app.StudentID, scholarship: app.ScholarshipID}

	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.byPair[key]; ok {
		return r.byID[id], false, nil
	}
	r.byPair[key] = app.ID
	r.byID[app.ID] = app
	return app, true, nil
}

func (r *MemoryRepository) Get(ctx context.Context, id uuid.UUID) (models.Application, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	app, ok := r.byID[id]
	if !ok {
		return models.Application{}, ErrUnknownApplication
	}
	return app, nil
}

func (r *MemoryRepository) Update(ctx context.Context, id uuid.UUID, status models.ApplicationStatus, notes *string, updatedAt time.Time) (models.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	app, ok := r.byID[id]
	if !ok {
		return models.Application{}, ErrUnknownApplication
	}
	app.Status = status
	if notes != nil {
		n := *notes
		app.Notes = &n
	}
	app.UpdatedAt = updatedAt
	r.byID[id] = app
	return app, nil
}

func (r *MemoryRepository) ListByStudent(ctx context.Context, studentID uuid.UUID) ([]models.Application, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var apps []models.Application
	for _, app := range r.byID {
		if app.StudentID == studentID {
			apps = append(apps, app)
		}
	}
	return apps, nil
}

func (r *MemoryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
