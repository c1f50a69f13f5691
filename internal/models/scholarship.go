package models

import (
	"time"
)

// NotApplicable is the catalog's marker for an eligibility requirement that does not apply.
const NotApplicable = "not applicable"

type Scholarship struct {
	ID                       string     `json:"id" yaml:"id"`
	Name                     string     `json:"name" yaml:"name"`
	Provider                 string     `json:"provider" yaml:"provider"`
	ProviderType             string     `json:"provider_type" yaml:"provider_type"`
	Description              string     `json:"description" yaml:"description"`
	Eligibility              string     `json:"eligibility" yaml:"eligibility"`
	AwardAmount              string     `json:"award_amount" yaml:"award_amount"`
	ApplicationURL           string     `json:"application_url" yaml:"application_url"`
	ApplicationFee           string     `json:"application_fee" yaml:"application_fee"`
	Duration                 string     `json:"duration" yaml:"duration"`
	Countries                []string   `json:"countries" yaml:"countries"`
	EducationLevels          []string   `json:"education_level" yaml:"education_level"`
	FieldsOfStudy            []string   `json:"field_of_study" yaml:"field_of_study"`
	RequiredDocuments        []string   `json:"required_documents" yaml:"required_documents"`
	Deadline                 *time.Time `json:"deadline" yaml:"-"`
	AcademicScoreRequirement string     `json:"academic_score_requirement" yaml:"academic_score_requirement"`
	IncomeRequirement        string     `json:"income_requirement" yaml:"income_requirement"`
	AgeRequirement           string     `json:"age_requirement" yaml:"age_requirement"`
	GenderRequirement        string     `json:"gender_requirement" yaml:"gender_requirement"`
	CreatedAt                time.Time  `json:"created_at" yaml:"-"`
	UpdatedAt                time.Time  `json:"updated_at" yaml:"-"`
}

// ScholarshipSummary is the slice of a scholarship shown next to applications and saved items.
type ScholarshipSummary struct {
	Name        string     `json:"name"`
	Provider    string     `json:"provider"`
	AwardAmount string     `json:"award_amount"`
	Deadline    *time.Time `json:"deadline"`
}

func (s Scholarship) Summary() ScholarshipSummary {
	return ScholarshipSummary{
		Name:        s.Name,
		Provider:    s.Provider,
		AwardAmount: s.AwardAmount,
		Deadline:    s.Deadline,
	}
}
