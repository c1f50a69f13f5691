package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/david/scholar-match/internal/models"
)

// Store is the scholarship catalog.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

type ListParams struct {
	Query          string
	Country        []string
	EducationLevel []string
	FieldOfStudy   []string
	DeadlineDays   int
	ExcludeExpired bool
	SortBy         string // "deadline" (default), "newest", "name"
	Limit          int    // 0 means no limit
	Offset         int
}

type ListResult struct {
	Scholarships []models.Scholarship `json:"scholarships"`
	Total        int                  `json:"total"`
	Limit        int                  `json:"limit"`
	Offset       int                  `json:"offset"`
}

const selectCols = `id, name, provider, provider_type, description, eligibility,
	award_amount, application_url, application_fee, duration,
	countries, education_level, field_of_study, required_documents, deadline,
	academic_requirement, income_requirement, age_requirement, gender_requirement,
	created_at, updated_at`

func scanScholarship(scan func(dest ...interface{}) error) (models.Scholarship, error) {
	var s models.Scholarship
	err := scan(
		&s.ID, &s.Name, &s.Provider, &s.ProviderType, &s.Description, &s.Eligibility,
		&s.AwardAmount, &s.ApplicationURL, &s.ApplicationFee, &s.Duration,
		&s.Countries, &s.EducationLevels, &s.FieldsOfStudy, &s.RequiredDocuments, &s.Deadline,
		&s.AcademicScoreRequirement, &s.IncomeRequirement, &s.AgeRequirement, &s.GenderRequirement,
		&s.CreatedAt, &s.UpdatedAt,
	)
	return s, err
}

// buildListWhere turns the filter params into a WHERE clause and its positional args.
func buildListWhere(params ListParams) (string, []interface{}) {
	where := "WHERE 1=1"
	var args []interface{}
	argIdx := 1

	if q := strings.TrimSpace(params.Query); q != "" {
		where += fmt.Sprintf(" AND (name ILIKE '%%' || $%d || '%%' OR provider ILIKE '%%' || $%d || '%%' OR description ILIKE '%%' || $%d || '%%')", argIdx, argIdx, argIdx)
		args = append(args, q)
		argIdx++
	}
	if countries := sanitizeStringSlice(params.Country); len(countries) > 0 {
		where += fmt.Sprintf(" AND countries && $%d", argIdx)
		args = append(args, countries)
		argIdx++
	}
	if levels := sanitizeStringSlice(params.EducationLevel); len(levels) > 0 {
		where += fmt.Sprintf(" AND education_level && $%d", argIdx)
		args = append(args, levels)
		argIdx++
	}
	if fields := sanitizeStringSlice(params.FieldOfStudy); len(fields) > 0 {
		where += fmt.Sprintf(" AND field_of_study && $%d", argIdx)
		args = append(args, fields)
		argIdx++
	}
	if params.DeadlineDays > 0 {
		where += fmt.Sprintf(" AND deadline IS NOT NULL AND deadline >= NOW() AND deadline <= NOW() + ($%d * INTERVAL '1 day')", argIdx)
		args = append(args, params.DeadlineDays)
		argIdx++
	} else if params.ExcludeExpired {
		where += " AND (deadline IS NULL OR deadline >= NOW())"
	}

	return where, args
}

func orderClause(sortBy string) string {
	switch sortBy {
	case "newest":
		return " ORDER BY created_at DESC, id ASC"
	case "name":
		return " ORDER BY name ASC, id ASC"
	default:
		return " ORDER BY deadline ASC NULLS LAST, id ASC"
	}
}

func (s *Store) ListScholarships(ctx context.Context, params ListParams) (*ListResult, error) {
	where, args := buildListWhere(params)

	var total int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM scholarships "+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count failed: %w", err)
	}

	selectSQL := fmt.Sprintf("SELECT %s FROM scholarships %s", selectCols, where) + orderClause(params.SortBy)
	if params.Limit > 0 {
		selectSQL += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
		args = append(args, params.Limit, params.Offset)
	}

	rows, err := s.pool.Query(ctx, selectSQL, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	scholarships := []models.Scholarship{}
	for rows.Next() {
		sch, err := scanScholarship(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		scholarships = append(scholarships, sch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}

	return &ListResult{
		Scholarships: scholarships,
		Total:        total,
		Limit:        params.Limit,
		Offset:       params.Offset,
	}, nil
}

// Catalog returns every scholarship, the full input to a matching pass.
func (s *Store) Catalog(ctx context.Context) ([]models.Scholarship, error) {
	res, err := s.ListScholarships(ctx, ListParams{})
	if err != nil {
		return nil, err
	}
	return res.Scholarships, nil
}

func (s *Store) GetScholarship(ctx context.Context, id string) (*models.Scholarship, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
		SELECT %s
		FROM scholarships
		WHERE id = $1
	`, selectCols), id)

	sch, err := scanScholarship(row.Scan)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("scholarship %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get scholarship %s: %w", id, err)
	}
	return &sch, nil
}

// UpsertScholarship inserts or replaces a catalog record by id.
func (s *Store) UpsertScholarship(ctx context.Context, sch models.Scholarship) error {
	sch = normalizeScholarship(sch)
	_, err := s.pool.Exec(ctx, `
		INSERT INTO scholarships (
			id, name, provider, provider_type, description, eligibility,
			award_amount, application_url, application_fee, duration,
			countries, education_level, field_of_study, required_documents, deadline,
			academic_requirement, income_requirement, age_requirement, gender_requirement
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			provider = EXCLUDED.provider,
			provider_type = EXCLUDED.provider_type,
			description = EXCLUDED.description,
			eligibility = EXCLUDED.eligibility,
			award_amount = EXCLUDED.award_amount,
			application_url = EXCLUDED.application_url,
			application_fee = EXCLUDED.application_fee,
			duration = EXCLUDED.duration,
			countries = EXCLUDED.countries,
			education_level = EXCLUDED.education_level,
			field_of_study = EXCLUDED.field_of_study,
			required_documents = EXCLUDED.required_documents,
			deadline = EXCLUDED.deadline,
			academic_requirement = EXCLUDED.academic_requirement,
			income_requirement = EXCLUDED.income_requirement,
			age_requirement = EXCLUDED.age_requirement,
			gender_requirement = EXCLUDED.gender_requirement,
			updated_at = NOW()
	`,
		sch.ID, sch.Name, sch.Provider, sch.ProviderType, sch.Description, sch.Eligibility,
		sch.AwardAmount, sch.ApplicationURL, sch.ApplicationFee, sch.Duration,
		sch.Countries, sch.EducationLevels, sch.FieldsOfStudy, sch.RequiredDocuments, sch.Deadline,
		sch.AcademicScoreRequirement, sch.IncomeRequirement, sch.AgeRequirement, sch.GenderRequirement,
	)
	if err != nil {
		return fmt.Errorf("upsert scholarship %s: %w", sch.ID, err)
	}
	return nil
}

// normalizeScholarship trims list values and fills unset requirements with NotApplicable
// so the NOT NULL columns never receive nil arrays.
func normalizeScholarship(sch models.Scholarship) models.Scholarship {
	sch.ID = strings.TrimSpace(sch.ID)
	sch.Countries = nonNilSlice(sanitizeStringSlice(sch.Countries))
	sch.EducationLevels = nonNilSlice(sanitizeStringSlice(sch.EducationLevels))
	sch.FieldsOfStudy = nonNilSlice(sanitizeStringSlice(sch.FieldsOfStudy))
	sch.RequiredDocuments = nonNilSlice(sanitizeStringSlice(sch.RequiredDocuments))
	for _, req := range []*string{&sch.AcademicScoreRequirement, &sch.IncomeRequirement, &sch.AgeRequirement, &sch.GenderRequirement} {
		if strings.TrimSpace(*req) == "" {
			*req = models.NotApplicable
		}
	}
	return sch
}

func sanitizeStringSlice(values []string) []string {
	if len(values) == 0 {
		return values
	}

	clean := make([]string, 0, len(values))
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			clean = append(clean, trimmed)
		}
	}

	return clean
}

func nonNilSlice(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
