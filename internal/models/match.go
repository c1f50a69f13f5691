package models

type MatchSource string

const (
	MatchSourceCollaborator MatchSource = "collaborator"
	MatchSourceFallback     MatchSource = "fallback"
)

type MatchResult struct {
	ScholarshipID     string       `json:"scholarship_id"`
	RelevanceScore    int          `json:"relevance_score"`
	MatchReasons      []string     `json:"match_reasons"`
	RequirementsMet   []string     `json:"requirements_met"`
	PotentialConcerns []string     `json:"potential_concerns"`
	Scholarship       *Scholarship `json:"scholarship"`
}

// MatchSet is the outcome of one matching pass over a profile snapshot.
type MatchSet struct {
	ProfileIdentity           string        `json:"profile_identity"`
	Matches                   []MatchResult `json:"matches"`
	Source                    MatchSource   `json:"source"`
	FallbackReason            string        `json:"fallback_reason,omitempty"`
	TotalScholarshipsAnalyzed int           `json:"total_scholarships_analyzed"`
	Stats                     MatchStats    `json:"stats"`
}

type MatchStats struct {
	HighQualityMatches int `json:"high_quality_matches"`
	AverageMatchScore  int `json:"average_match_score"`
}
