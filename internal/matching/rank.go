package matching

import (
	"math"
	"sort"
	"time"

	"github.com/david/scholar-match/internal/models"
)

// SortMatches orders by score descending, then nearer deadline (undated last), then
// scholarship id ascending. Every match must carry its Scholarship.
func SortMatches(matches []models.MatchResult) {
	sort.SliceStable(matches, func(i, j int) bool {
		return less(matches[i], matches[j])
	})
}

func less(a, b models.MatchResult) bool {
	if a.RelevanceScore != b.RelevanceScore {
		return a.RelevanceScore > b.RelevanceScore
	}
	da, db := deadlineOf(a), deadlineOf(b)
	switch {
	case da != nil && db != nil && !da.Equal(*db):
		return da.Before(*db)
	case da != nil && db == nil:
		return true
	case da == nil && db != nil:
		return false
	}
	return a.ScholarshipID < b.ScholarshipID
}

func deadlineOf(m models.MatchResult) *time.Time {
	if m.Scholarship == nil {
		return nil
	}
	return m.Scholarship.Deadline
}

// Summarize computes the dashboard figures for a match list.
func Summarize(matches []models.MatchResult) models.MatchStats {
	if len(matches) == 0 {
		return models.MatchStats{}
	}
	var stats models.MatchStats
	total := 0
	for _, m := range matches {
		if m.RelevanceScore >= HighQualityScore {
			stats.HighQualityMatches++
		}
		total += m.RelevanceScore
	}
	stats.AverageMatchScore = int(math.Round(float64(total) / float64(len(matches))))
	return stats
}
