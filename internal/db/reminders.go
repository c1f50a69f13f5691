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
	"github.com/david/scholar-match/internal/reminders"
)

type ReminderRepository struct {
	pool *pgxpool.Pool
}

var _ reminders.Repository = (*ReminderRepository)(nil)

func NewReminderRepository(pool *pgxpool.Pool) *ReminderRepository {
	return &ReminderRepository{pool: pool}
}

const reminderCols = `id, student_id, scholarship_id, title, description, category, due_date, priority,
	completed, completed_at, created_at`

func scanReminder(row pgx.Row) (models.Reminder, error) {
	var (
		r        models.Reminder
		priority string
	)
	err := row.Scan(&r.ID, &r.StudentID, &r.ScholarshipID, &r.Title, &r.Description, &r.Category, &r.DueDate, &priority,
		&r.Completed, &r.CompletedAt, &r.CreatedAt)
	r.Priority = models.Priority(priority)
	return r, err
}

func (r *ReminderRepository) Insert(ctx context.Context, rem models.Reminder) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO reminders (id, student_id, scholarship_id, title, description, category, due_date, priority, completed, completed_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, rem.ID, rem.StudentID, rem.ScholarshipID, rem.Title, rem.Description, rem.Category, rem.DueDate, string(rem.Priority),
		rem.Completed, rem.CompletedAt, rem.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert reminder: %w", err)
	}
	return nil
}

func (r *ReminderRepository) SetCompleted(ctx context.Context, studentID, id uuid.UUID, completed bool, completedAt *time.Time) (models.Reminder, error) {
	rem, err := scanReminder(r.pool.QueryRow(ctx, `
		UPDATE reminders SET completed = $3, completed_at = $4
		WHERE id = $1 AND student_id = $2
		RETURNING `+reminderCols,
		id, studentID, completed, completedAt))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Reminder{}, reminders.ErrNotFound
	}
	if err != nil {
		return models.Reminder{}, fmt.Errorf("update reminder: %w", err)
	}
	return rem, nil
}

func (r *ReminderRepository) Delete(ctx context.Context, studentID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, "DELETE FROM reminders WHERE id = $1 AND student_id = $2", id, studentID)
	if err != nil {
		return fmt.Errorf("delete reminder: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return reminders.ErrNotFound
	}
	return nil
}

// ListByStudent returns reminders in insertion order, which Partition relies on for
// completed items without a completion time.
func (r *ReminderRepository) ListByStudent(ctx context.Context, studentID uuid.UUID) ([]models.Reminder, error) {
	rows, err := r.pool.Query(ctx, "SELECT "+reminderCols+" FROM reminders WHERE student_id = $1 ORDER BY created_at ASC, id ASC", studentID)
	if err != nil {
		return nil, fmt.Errorf("list reminders: %w", err)
	}
	defer rows.Close()

	out := []models.Reminder{}
	for rows.Next() {
		rem, err := scanReminder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reminder: %w", err)
		}
		out = append(out, rem)
	}
	return out, rows.Err()
}
