package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/david/scholar-match/internal/models"
)

// promptScholarship is the catalog view serialized into the prompt.
type promptScholarship struct {
	ID                       string   `json:"id"`
	Name                     string   `json:"name"`
	Provider                 string   `json:"provider,omitempty"`
	Description              string   `json:"description,omitempty"`
	Eligibility              string   `json:"eligibility,omitempty"`
	AwardAmount              string   `json:"award_amount,omitempty"`
	Countries                []string `json:"countries"`
	EducationLevels          []string `json:"education_level"`
	FieldsOfStudy            []string `json:"field_of_study"`
	Deadline                 string   `json:"deadline,omitempty"`
	AcademicScoreRequirement string   `json:"academic_score_requirement,omitempty"`
	IncomeRequirement        string   `json:"income_requirement,omitempty"`
	AgeRequirement           string   `json:"age_requirement,omitempty"`
	GenderRequirement        string   `json:"gender_requirement,omitempty"`
}

const matchPrompt = `You are a scholarship matching expert. Based on the student profile and the available scholarships, return a JSON object with the matched scholarships ranked by relevance.

STUDENT PROFILE:
- Country: %s
- Education Level: %s
- Field of Study: %s
- Academic Score: %s
- Financial Need: %t
- Income Bracket: %s
- Preferred Countries: %s
- Languages: %s

AVAILABLE SCHOLARSHIPS:
%s

Analyze each scholarship against the profile and return:
{
  "matches": [
    {
      "scholarship_id": "id from the list above",
      "relevance_score": 85,
      "match_reasons": ["reason1", "reason2"],
      "requirements_met": ["req1", "req2"],
      "potential_concerns": ["concern1"]
    }
  ]
}

Rules:
1. Use only scholarship ids from the list above.
2. relevance_score is an integer from 0 to 100.
3. Only include scholarships with relevance_score >= 30, highest first.
4. RESPOND ONLY WITH JSON.`

// PromptBuilder renders the matching prompt. Catalog text is stripped of HTML first.
type PromptBuilder struct {
	policy *bluemonday.Policy
}

func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{policy: bluemonday.StrictPolicy()}
}

func (b *PromptBuilder) Build(profile models.Profile, catalog []models.Scholarship) (string, error) {
	items := make([]promptScholarship, 0, len(catalog))
	for _, s := range catalog {
		item := promptScholarship{
			ID:                       s.ID,
			Name:                     b.clean(s.Name),
			Provider:                 b.clean(s.Provider),
			Description:              b.clean(s.Description),
			Eligibility:              b.clean(s.Eligibility),
			AwardAmount:              b.clean(s.AwardAmount),
			Countries:                nonNil(s.Countries),
			EducationLevels:          nonNil(s.EducationLevels),
			FieldsOfStudy:            nonNil(s.FieldsOfStudy),
			AcademicScoreRequirement: s.AcademicScoreRequirement,
			IncomeRequirement:        s.IncomeRequirement,
			AgeRequirement:           s.AgeRequirement,
			GenderRequirement:        s.GenderRequirement,
		}
		if s.Deadline != nil {
			item.Deadline = s.Deadline.UTC().Format(time.DateOnly)
		}
		items = append(items, item)
	}

	catalogJSON, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to serialize catalog: %w", err)
	}

	return fmt.Sprintf(matchPrompt,
		orUnknown(profile.Country),
		orUnknown(profile.EducationLevel),
		orUnknown(profile.FieldOfStudy),
		orUnknown(profile.AcademicScore),
		profile.FinancialNeed,
		orUnknown(profile.IncomeBracket),
		orUnknown(strings.Join(profile.PreferredCountries, ", ")),
		orUnknown(strings.Join(profile.Languages, ", ")),
		string(catalogJSON),
	), nil
}

func (b *PromptBuilder) clean(s string) string {
	return strings.TrimSpace(html.UnescapeString(b.policy.Sanitize(s)))
}

// RequestJudgments runs one collaborator round trip. Errors wrap ErrUnavailable or
// ErrMalformedJudgment.
func RequestJudgments(ctx context.Context, client Completer, prompt string) ([]Judgment, int, error) {
	resp, err := client.GenerateCompletion(ctx, prompt, true)
	if err != nil {
		return nil, 0, err
	}
	return ParseJudgments(resp)
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "not provided"
	}
	return s
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
