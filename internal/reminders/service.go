package reminders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/david/scholar-match/internal/models"
)

var (
	ErrNotFound        = errors.New("reminder not found")
	ErrInvalidPriority = errors.New("invalid reminder priority")
	ErrTitleRequired   = errors.New("reminder title is required")
)

const DefaultCategory = "deadline"

// Repository stores reminders. Every operation is scoped to the owning student; a
// reminder owned by someone else is reported as ErrNotFound.
type Repository interface {
	Insert(ctx context.Context, r models.Reminder) error
	SetCompleted(ctx context.Context, studentID, id uuid.UUID, completed bool, completedAt *time.Time) (models.Reminder, error)
	Delete(ctx context.Context, studentID, id uuid.UUID) error
	ListByStudent(ctx context.Context, studentID uuid.UUID) ([]models.Reminder, error)
}

type Service struct {
	repo   Repository
	logger *zap.Logger
	now    func() time.Time
}

func NewService(repo Repository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:   repo,
		logger: logger.Named("reminders"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

type CreateInput struct {
	ScholarshipID *string         `json:"scholarship_id"`
	Title         string          `json:"title" validate:"required"`
	Description   *string         `json:"description"`
	Category      string          `json:"category"`
	DueDate       time.Time       `json:"due_date" validate:"required"`
	Priority      models.Priority `json:"priority"`
}

// Create stores a new open reminder. Priority defaults to medium and category to
// "deadline".
func (s *Service) Create(ctx context.Context, studentID uuid.UUID, in CreateInput) (models.Reminder, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return models.Reminder{}, ErrTitleRequired
	}
	priority := in.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	if !priority.Valid() {
		return models.Reminder{}, fmt.Errorf("%w: %q", ErrInvalidPriority, priority)
	}
	category := strings.TrimSpace(in.Category)
	if category == "" {
		category = DefaultCategory
	}

	r := models.Reminder{
		ID:            uuid.New(),
		StudentID:     studentID,
		ScholarshipID: in.ScholarshipID,
		Title:         title,
		Description:   in.Description,
		Category:      category,
		DueDate:       in.DueDate.UTC(),
		Priority:      priority,
		CreatedAt:     s.now(),
	}
	if err := s.repo.Insert(ctx, r); err != nil {
		return models.Reminder{}, fmt.Errorf("create reminder: %w", err)
	}
	return r, nil
}

// ToggleComplete flips the completed flag, stamping or clearing CompletedAt.
func (s *Service) ToggleComplete(ctx context.Context, studentID, id uuid.UUID, completed bool) (models.Reminder, error) {
	var at *time.Time
	if completed {
		now := s.now()
		at = &now
	}
	r, err := s.repo.SetCompleted(ctx, studentID, id, completed, at)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return models.Reminder{}, err
		}
		return models.Reminder{}, fmt.Errorf("update reminder %s: %w", id, err)
	}
	return r, nil
}

func (s *Service) Delete(ctx context.Context, studentID, id uuid.UUID) error {
	return s.repo.Delete(ctx, studentID, id)
}

// List returns the student's reminders partitioned for display.
func (s *Service) List(ctx context.Context, studentID uuid.UUID) (Partitioned, error) {
	items, err := s.repo.ListByStudent(ctx, studentID)
	if err != nil {
		return Partitioned{}, fmt.Errorf("list reminders: %w", err)
	}
	return Partition(items, s.now()), nil
}
