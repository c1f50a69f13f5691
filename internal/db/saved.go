package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/david/scholar-match/internal/models"
)

type SavedStore struct {
	pool *pgxpool.Pool
}

func NewSavedStore(pool *pgxpool.Pool) *SavedStore {
	return &SavedStore{pool: pool}
}

// Save bookmarks a scholarship. Saving twice is a no-op.
func (s *SavedStore) Save(ctx context.Context, studentID uuid.UUID, scholarshipID string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO saved_scholarships (student_id, scholarship_id)
		VALUES ($1, $2)
		ON CONFLICT (student_id, scholarship_id) DO NOTHING
	`, studentID, scholarshipID)
	if err != nil {
		return fmt.Errorf("save scholarship: %w", err)
	}
	return nil
}

func (s *SavedStore) Unsave(ctx context.Context, studentID uuid.UUID, scholarshipID string) error {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM saved_scholarships
		WHERE student_id = $1 AND scholarship_id = $2
	`, studentID, scholarshipID)
	if err != nil {
		return fmt.Errorf("unsave scholarship: %w", err)
	}
	return nil
}

func (s *SavedStore) List(ctx context.Context, studentID uuid.UUID) ([]models.SavedScholarship, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT ss.student_id, ss.scholarship_id, ss.saved_at, s.name, s.provider, s.award_amount, s.deadline
		FROM saved_scholarships ss
		JOIN scholarships s ON s.id = ss.scholarship_id
		WHERE ss.student_id = $1
		ORDER BY ss.saved_at DESC
	`, studentID)
	if err != nil {
		return nil, fmt.Errorf("list saved scholarships: %w", err)
	}
	defer rows.Close()

	saved := []models.SavedScholarship{}
	for rows.Next() {
		var item models.SavedScholarship
		if err := rows.Scan(&item.StudentID, &item.ScholarshipID, &item.SavedAt,
			&item.Scholarship.Name, &item.Scholarship.Provider, &item.Scholarship.AwardAmount, &item.Scholarship.Deadline); err != nil {
			return nil, fmt.Errorf("scan saved scholarship: %w", err)
		}
		saved = append(saved, item)
	}
	return saved, rows.Err()
}
