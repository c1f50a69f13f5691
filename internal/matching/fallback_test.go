package matching

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/david/scholar-match/internal/models"
)

func TestFallbackMatches_MembershipRules(t *testing.T) {
	profile := models.Profile{
		EducationLevel:     "Masters",
		Country:            "Kenya",
		PreferredCountries: []string{"Germany"},
		FieldOfStudy:       "Engineering",
	}

	tests := []struct {
		name    string
		rec     models.Scholarship
		match   bool
		reasons []string
	}{
		{
			name:    "education only",
			rec:     models.Scholarship{ID: "1", EducationLevels: []string{"masters"}},
			match:   true,
			reasons: []string{"Education level match"},
		},
		{
			name:    "preferred country",
			rec:     models.Scholarship{ID: "2", Countries: []string{" germany "}},
			match:   true,
			reasons: []string{"Country eligibility"},
		},
		{
			name:  "field alone does not qualify",
			rec:   models.Scholarship{ID: "3", FieldsOfStudy: []string{"Engineering"}},
			match: false,
		},
		{
			name:    "field adds a reason",
			rec:     models.Scholarship{ID: "4", Countries: []string{"Kenya"}, FieldsOfStudy: []string{"engineering"}},
			match:   true,
			reasons: []string{"Country eligibility", "Field of study match"},
		},
		{
			name:  "no overlap",
			rec:   models.Scholarship{ID: "5", EducationLevels: []string{"phd"}, Countries: []string{"USA"}},
			match: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FallbackMatches(profile, []models.Scholarship{tt.rec}, DefaultFallbackConfig())
			if !tt.match {
				assert.Empty(t, got)
				return
			}
			require.Len(t, got, 1)
			assert.Equal(t, 75, got[0].RelevanceScore)
			assert.Equal(t, tt.reasons, got[0].MatchReasons)
			assert.Empty(t, got[0].PotentialConcerns)
		})
	}
}

func TestFallbackMatches_EmptyProfileFieldsNeverMatch(t *testing.T) {
	catalog := []models.Scholarship{{ID: "1", EducationLevels: []string{""}, Countries: []string{"USA"}}}
	assert.Empty(t, FallbackMatches(models.Profile{}, catalog, DefaultFallbackConfig()))
}

func TestFallbackMatches_CappedAfterRanking(t *testing.T) {
	profile := models.Profile{Country: "India"}
	var catalog []models.Scholarship
	for i := 9; i >= 0; i-- {
		catalog = append(catalog, models.Scholarship{ID: fmt.Sprintf("s-%d", i), Countries: []string{"India"}, Deadline: day(10 - i)})
	}

	got := FallbackMatches(profile, catalog, DefaultFallbackConfig())
	require.Len(t, got, 5)
	for i, m := range got {
		assert.Equal(t, fmt.Sprintf("s-%d", 9-i), m.ScholarshipID)
	}
}

func TestFallbackMatches_ConfigurableValues(t *testing.T) {
	cfg := FallbackConfig{Score: 40, Limit: 0, EducationReason: "edu", CountryReason: "geo"}
	var catalog []models.Scholarship
	for i := 0; i < 8; i++ {
		catalog = append(catalog, models.Scholarship{ID: fmt.Sprintf("s-%d", i), EducationLevels: []string{"phd"}})
	}

	got := FallbackMatches(models.Profile{EducationLevel: "PhD"}, catalog, cfg)
	require.Len(t, got, 8)
	assert.Equal(t, 40, got[0].RelevanceScore)
	assert.Equal(t, []string{"edu"}, got[0].MatchReasons)
	assert.Empty(t, got[0].RequirementsMet)
}

func TestSortMatches_TieBreaks(t *testing.T) {
	matches := []models.MatchResult{
		{ScholarshipID: "z", RelevanceScore: 50, Scholarship: &models.Scholarship{ID: "z"}},
		{ScholarshipID: "b", RelevanceScore: 50, Scholarship: &models.Scholarship{ID: "b", Deadline: day(3)}},
		{ScholarshipID: "a", RelevanceScore: 50, Scholarship: &models.Scholarship{ID: "a", Deadline: day(3)}},
		{ScholarshipID: "c", RelevanceScore: 50, Scholarship: &models.Scholarship{ID: "c", Deadline: day(1)}},
		{ScholarshipID: "y", RelevanceScore: 50, Scholarship: &models.Scholarship{ID: "y"}},
		{ScholarshipID: "top", RelevanceScore: 90, Scholarship: &models.Scholarship{ID: "top", Deadline: day(99)}},
	}

	SortMatches(matches)

	var ids []string
	for _, m := range matches {
		ids = append(ids, m.ScholarshipID)
	}
	assert.Equal(t, []string{"top", "c", "a", "b", "y", "z"}, ids)
}

func TestSummarize(t *testing.T) {
	assert.Equal(t, models.MatchStats{}, Summarize(nil))
	stats := Summarize([]models.MatchResult{{RelevanceScore: 80}, {RelevanceScore: 95}, {RelevanceScore: 30}})
	assert.Equal(t, 2, stats.HighQualityMatches)
	assert.Equal(t, 68, stats.AverageMatchScore)
}
