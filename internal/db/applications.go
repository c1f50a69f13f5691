package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/david/scholar-match/internal/models"
	"github.com/david/scholar-match/internal/tracker"
)

// ApplicationRepository is the Postgres tracker.Repository. The UNIQUE (student_id,
// scholarship_id) constraint makes InsertIfAbsent atomic per pair.
type ApplicationRepository struct {
	pool *pgxpool.Pool
}

var _ tracker.Repository = (*ApplicationRepository)(nil)

func NewApplicationRepository(pool *pgxpool.Pool) *ApplicationRepository {
	return &ApplicationRepository{pool: pool}
}

const applicationCols = `a.id, a.student_id, a.scholarship_id, a.status::text, a.notes, a.applied_at, a.updated_at,
	s.name, s.provider, s.award_amount, s.deadline`

const applicationFrom = ` FROM applications a LEFT JOIN scholarships s ON s.id = a.scholarship_id `

func scanApplication(row pgx.Row) (models.Application, error) {
	var (
		a                     models.Application
		status                string
		name, provider, award *string
		deadline              *time.Time
	)
	if err := row.Scan(&a.ID, &a.StudentID, &a.ScholarshipID, &status, &a.Notes, &a.AppliedAt, &a.UpdatedAt,
		&name, &provider, &award, &deadline); err != nil {
		return a, err
	}
	a.Status = models.ApplicationStatus(status)
	if name != nil {
		a.Scholarship = &models.ScholarshipSummary{Name: *name, Deadline: deadline}
		if provider != nil {
			a.Scholarship.Provider = *provider
		}
		if award != nil {
			a.Scholarship.AwardAmount = *award
		}
	}
	return a, nil
}

func (r *ApplicationRepository) InsertIfAbsent(ctx context.Context, app models.Application) (models.Application, bool, error) {
	var id uuid.UUID
	err := r.pool.QueryRow(ctx, `
		INSERT INTO applications (id, student_id, scholarship_id, status, notes, applied_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (student_id, scholarship_id) DO NOTHING
		RETURNING id
	`, app.ID, app.StudentID, app.ScholarshipID, string(app.Status), app.Notes, app.AppliedAt, app.UpdatedAt).Scan(&id)

	created := true
	if errors.Is(err, pgx.ErrNoRows) {
		created = false
	} else if err != nil {
		return models.Application{}, false, fmt.Errorf("insert application: %w", err)
	}

	stored, err := scanApplication(r.pool.QueryRow(ctx,
		"SELECT "+applicationCols+applicationFrom+"WHERE a.student_id = $1 AND a.scholarship_id = $2",
		app.StudentID, app.ScholarshipID))
	if err != nil {
		return models.Application{}, false, fmt.Errorf("load application: %w", err)
	}
	return stored, created, nil
}

func (r *ApplicationRepository) Get(ctx context.Context, id uuid.UUID) (models.Application, error) {
	app, err := scanApplication(r.pool.QueryRow(ctx, "SELECT "+applicationCols+applicationFrom+"WHERE a.id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Application{}, tracker.ErrUnknownApplication
	}
	if err != nil {
		return models.Application{}, fmt.Errorf("get application: %w", err)
	}
	return app, nil
}

func (r *ApplicationRepository) Update(ctx context.Context, id uuid.UUID, status models.ApplicationStatus, notes *string, updatedAt time.Time) (models.Application, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE applications
		SET status = $2::application_status, notes = COALESCE($3, notes), updated_at = $4
		WHERE id = $1
	`, id, string(status), notes, updatedAt)
	if err != nil {
		return models.Application{}, fmt.Errorf("update application: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.Application{}, tracker.ErrUnknownApplication
	}
	return r.Get(ctx, id)
}

func (r *ApplicationRepository) ListByStudent(ctx context.Context, studentID uuid.UUID) ([]models.Application, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT "+applicationCols+applicationFrom+"WHERE a.student_id = $1 ORDER BY a.applied_at DESC, a.scholarship_id ASC",
		studentID)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	defer rows.Close()

	apps := []models.Application{}
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("scan application: %w", err)
		}
		apps = append(apps, app)
	}
	return apps, rows.Err()
}
