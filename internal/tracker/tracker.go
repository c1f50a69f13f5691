// Package tracker records a student's scholarship applications. At most one application
// exists per (student, scholarship) pair; its status may be set to any of the four
// values at any time, since students correct statuses after the fact.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/david/scholar-match/internal/models"
)

// Repository persists applications. InsertIfAbsent must be atomic per (student,
// scholarship) pair: when a row exists it returns that row with created=false and
// writes nothing.
type Repository interface {
	InsertIfAbsent(ctx context.Context, app models.Application) (stored models.Application, created bool, err error)
	Get(ctx context.Context, id uuid.UUID) (models.Application, error)
	Update(ctx context.Context, id uuid.UUID, status models.ApplicationStatus, notes *string, updatedAt time.Time) (models.Application, error)
	ListByStudent(ctx context.Context, studentID uuid.UUID) ([]models.Application, error)
}

type Tracker struct {
	repo   Repository
	logger *zap.Logger
	now    func() time.Time
	newID  func() uuid.UUID
}

func New(repo Repository, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{
		repo:   repo,
		logger: logger.Named("tracker"),
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.New,
	}
}

// CreateApplication records a new application in the applied state. If the pair
// already has one, it returns a *DuplicateError and nothing is written.
func (t *Tracker) CreateApplication(ctx context.Context, studentID uuid.UUID, scholarshipID string, notes *string) (models.Application, error) {
	scholarshipID = strings.TrimSpace(scholarshipID)
	if studentID == uuid.Nil || scholarshipID == "" {
		return models.Application{}, errors.New("student id and scholarship id are required")
	}

	now := t.now()
	app := models.Application{
		ID:            t.newID(),
		StudentID:     studentID,
		ScholarshipID: scholarshipID,
		Status:        models.StatusApplied,
		Notes:         notes,
		AppliedAt:     now,
		UpdatedAt:     now,
	}

	stored, created, err := t.repo.InsertIfAbsent(ctx, app)
	if err != nil {
		return models.Application{}, fmt.Errorf("create application: %w", err)
	}
	if !created {
		t.logger.Info("duplicate application rejected",
			zap.String("student_id", studentID.String()),
			zap.String("scholarship_id", scholarshipID),
			zap.String("existing_id", stored.ID.String()),
		)
		return models.Application{}, &DuplicateError{Existing: stored}
	}
	return stored, nil
}

// SetStatus overwrites the status and updated timestamp. Every status is reachable from
// every other; only unknown ids and unknown status values fail.
func (t *Tracker) SetStatus(ctx context.Context, id uuid.UUID, status models.ApplicationStatus) (models.Application, error) {
	return t.update(ctx, id, status, nil)
}

// UpdateApplication sets status and, when notes is non-nil, replaces the notes in the
// same write.
func (t *Tracker) UpdateApplication(ctx context.Context, id uuid.UUID, status models.ApplicationStatus, notes *string) (models.Application, error) {
	return t.update(ctx, id, status, notes)
}

func (t *Tracker) update(ctx context.Context, id uuid.UUID, status models.ApplicationStatus, notes *string) (models.Application, error) {
	if !status.Valid() {
		return models.Application{}, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	app, err := t.repo.Update(ctx, id, status, notes, t.now())
	if err != nil {
		if errors.Is(err, ErrUnknownApplication) {
			return models.Application{}, err
		}
		return models.Application{}, fmt.Errorf("update application %s: %w", id, err)
	}
	return app, nil
}

func (t *Tracker) GetApplication(ctx context.Context, id uuid.UUID) (models.Application, error) {
	return t.repo.Get(ctx, id)
}

// ListApplications returns the student's applications, most recently applied first.
func (t *Tracker) ListApplications(ctx context.Context, studentID uuid.UUID) ([]models.Application, error) {
	apps, err := t.repo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	sort.SliceStable(apps, func(i, j int) bool {
		if !apps[i].AppliedAt.Equal(apps[j].AppliedAt) {
			return apps[i].AppliedAt.After(apps[j].AppliedAt)
		}
		return apps[i].ScholarshipID < apps[j].ScholarshipID
	})
	if apps == nil {
		apps = []models.Application{}
	}
	return apps, nil
}

// StatusCounts tallies applications per status for the dashboard.
func StatusCounts(apps []models.Application) map[models.ApplicationStatus]int {
	counts := map[models.ApplicationStatus]int{
		models.StatusApplied:     0,
		models.StatusUnderReview: 0,
		models.StatusAccepted:    0,
		models.StatusRejected:    0,
	}
	for _, a := range apps {
		counts[a.Status]++
	}
	return counts
}
