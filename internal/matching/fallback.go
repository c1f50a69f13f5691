package matching

import (
	"strings"

	"github.com/david/scholar-match/internal/models"
)

// FallbackConfig holds the fixed values the rule-based scorer attaches to its matches.
type FallbackConfig struct {
	Score           int      `yaml:"score"`
	Limit           int      `yaml:"limit"`
	EducationReason string   `yaml:"education_reason"`
	CountryReason   string   `yaml:"country_reason"`
	FieldReason     string   `yaml:"field_reason"`
	RequirementsMet []string `yaml:"requirements_met"`
}

func DefaultFallbackConfig() FallbackConfig {
	return FallbackConfig{
		Score:           75,
		Limit:           5,
		EducationReason: "Education level match",
		CountryReason:   "Country eligibility",
		FieldReason:     "Field of study match",
		RequirementsMet: []string{"Basic eligibility"},
	}
}

// FallbackMatches scores the catalog with membership tests only. A record qualifies when
// its education levels or its countries overlap the profile; field of study only adds a
// reason. Results are ranked and capped at cfg.Limit (0 means no cap).
func FallbackMatches(profile models.Profile, catalog []models.Scholarship, cfg FallbackConfig) []models.MatchResult {
	countries := append([]string{profile.Country}, profile.PreferredCountries...)

	matches := make([]models.MatchResult, 0)
	for i := range catalog {
		rec := catalog[i]
		education := containsFold(rec.EducationLevels, profile.EducationLevel)
		country := false
		for _, c := range countries {
			if containsFold(rec.Countries, c) {
				country = true
				break
			}
		}
		if !education && !country {
			continue
		}

		reasons := make([]string, 0, 3)
		if education {
			reasons = append(reasons, cfg.EducationReason)
		}
		if country {
			reasons = append(reasons, cfg.CountryReason)
		}
		if containsFold(rec.FieldsOfStudy, profile.FieldOfStudy) {
			reasons = append(reasons, cfg.FieldReason)
		}

		matches = append(matches, models.MatchResult{
			ScholarshipID:     rec.ID,
			RelevanceScore:    cfg.Score,
			MatchReasons:      reasons,
			RequirementsMet:   append([]string{}, cfg.RequirementsMet...),
			PotentialConcerns: []string{},
			Scholarship:       &rec,
		})
	}

	SortMatches(matches)
	if cfg.Limit > 0 && len(matches) > cfg.Limit {
		matches = matches[:cfg.Limit]
	}
	return matches
}

// containsFold reports whether value is one of set, ignoring case and surrounding space.
// An empty value never matches.
func containsFold(set []string, value string) bool {
	value = strings.TrimSpace(value)
	if value == "" {
		return false
	}
	for _, item := range set {
		if strings.EqualFold(strings.TrimSpace(item), value) {
			return true
		}
	}
	return false
}
