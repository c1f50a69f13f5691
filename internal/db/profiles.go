package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/david/scholar-match/internal/models"
)

type ProfileStore struct {
	pool *pgxpool.Pool
}

func NewProfileStore(pool *pgxpool.Pool) *ProfileStore {
	return &ProfileStore{pool: pool}
}

const profileCols = `student_id, version, full_name, education_level, field_of_study, academic_score,
	country, preferred_countries, languages, financial_need, income_bracket, gender, age,
	institution, updated_at`

func scanProfile(row pgx.Row) (models.Profile, error) {
	var p models.Profile
	err := row.Scan(
		&p.StudentID, &p.Version, &p.FullName, &p.EducationLevel, &p.FieldOfStudy, &p.AcademicScore,
		&p.Country, &p.PreferredCountries, &p.Languages, &p.FinancialNeed, &p.IncomeBracket, &p.Gender, &p.Age,
		&p.Institution, &p.UpdatedAt,
	)
	return p, err
}

func (s *ProfileStore) GetProfile(ctx context.Context, studentID uuid.UUID) (models.Profile, error) {
	p, err := scanProfile(s.pool.QueryRow(ctx, "SELECT "+profileCols+" FROM profiles WHERE student_id = $1", studentID))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Profile{}, fmt.Errorf("profile for %s: %w", studentID, ErrNotFound)
	}
	if err != nil {
		return models.Profile{}, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

// SaveProfile writes a new snapshot. The version increments on every save, including the
// first, which stores version 1.
func (s *ProfileStore) SaveProfile(ctx context.Context, p models.Profile) (models.Profile, error) {
	p.PreferredCountries = nonNilSlice(sanitizeStringSlice(p.PreferredCountries))
	p.Languages = nonNilSlice(sanitizeStringSlice(p.Languages))

	saved, err := scanProfile(s.pool.QueryRow(ctx, `
		INSERT INTO profiles (
			student_id, version, full_name, education_level, field_of_study, academic_score,
			country, preferred_countries, languages, financial_need, income_bracket, gender, age,
			institution, updated_at
		) VALUES ($1, 1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW())
		ON CONFLICT (student_id) DO UPDATE SET
			version = profiles.version + 1,
			full_name = EXCLUDED.full_name,
			education_level = EXCLUDED.education_level,
			field_of_study = EXCLUDED.field_of_study,
			academic_score = EXCLUDED.academic_score,
			country = EXCLUDED.country,
			preferred_countries = EXCLUDED.preferred_countries,
			languages = EXCLUDED.languages,
			financial_need = EXCLUDED.financial_need,
			income_bracket = EXCLUDED.income_bracket,
			gender = EXCLUDED.gender,
			age = EXCLUDED.age,
			institution = EXCLUDED.institution,
			updated_at = NOW()
		RETURNING `+profileCols,
		p.StudentID, p.FullName, p.EducationLevel, p.FieldOfStudy, p.AcademicScore,
		p.Country, p.PreferredCountries, p.Languages, p.FinancialNeed, p.IncomeBracket, p.Gender, p.Age,
		p.Institution,
	))
	if err != nil {
		return models.Profile{}, fmt.Errorf("save profile: %w", err)
	}
	return saved, nil
}
