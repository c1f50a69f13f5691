package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Profile is an immutable snapshot of a student's attributes. Every save produces a new
// Version, so a cached match list for an older version is never served for a newer one.
type Profile struct {
	StudentID          uuid.UUID `json:"student_id"`
	Version            int       `json:"version"`
	FullName           string    `json:"full_name"`
	EducationLevel     string    `json:"education_level" validate:"required"`
	FieldOfStudy       string    `json:"field_of_study"`
	AcademicScore      string    `json:"academic_score"`
	Country            string    `json:"country" validate:"required"`
	PreferredCountries []string  `json:"preferred_countries"`
	Languages          []string  `json:"languages"`
	FinancialNeed      bool      `json:"financial_need"`
	IncomeBracket      string    `json:"income_bracket"`
	Gender             string    `json:"gender"`
	Age                string    `json:"age"`
	Institution        string    `json:"institution"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Identity returns the cache identity of this snapshot.
func (p Profile) Identity() string {
	return fmt.Sprintf("%s:v%d", p.StudentID, p.Version)
}
