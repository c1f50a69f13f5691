package ai

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// Judgment is one validated-shape entry of the collaborator's answer. Score range and
// catalog membership are checked by the caller, which owns the catalog.
type Judgment struct {
	ScholarshipID     string
	RelevanceScore    int
	MatchReasons      []string
	RequirementsMet   []string
	PotentialConcerns []string
}

// ParseJudgments extracts the first balanced JSON object from resp and decodes its
// "matches" array field by field. Entries with a missing id or a non-integer score are
// skipped and counted in rejected.
func ParseJudgments(resp string) (judgments []Judgment, rejected int, err error) {
	cleaned := strings.TrimSpace(resp)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")

	jsonStr, ok := extractFirstJSONObject(cleaned)
	if !ok {
		return nil, 0, fmt.Errorf("%w: no complete JSON object in response", ErrMalformedJudgment)
	}

	var envelope struct {
		Matches json.RawMessage `json:"matches"`
	}
	if err := json.Unmarshal([]byte(jsonStr), &envelope); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrMalformedJudgment, err)
	}

	var entries []json.RawMessage
	if len(envelope.Matches) == 0 || bytes.Equal(envelope.Matches, []byte("null")) {
		return nil, 0, fmt.Errorf("%w: missing matches array", ErrMalformedJudgment)
	}
	if err := json.Unmarshal(envelope.Matches, &entries); err != nil {
		return nil, 0, fmt.Errorf("%w: matches is not an array: %v", ErrMalformedJudgment, err)
	}

	judgments = make([]Judgment, 0, len(entries))
	for _, raw := range entries {
		j, ok := decodeJudgment(raw)
		if !ok {
			rejected++
			continue
		}
		judgments = append(judgments, j)
	}
	return judgments, rejected, nil
}

func decodeJudgment(raw json.RawMessage) (Judgment, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Judgment{}, false
	}

	var id string
	if err := json.Unmarshal(fields["scholarship_id"], &id); err != nil {
		return Judgment{}, false
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return Judgment{}, false
	}

	score, ok := decodeIntegerScore(fields["relevance_score"])
	if !ok {
		return Judgment{}, false
	}

	return Judgment{
		ScholarshipID:     id,
		RelevanceScore:    score,
		MatchReasons:      decodeStringList(fields["match_reasons"]),
		RequirementsMet:   decodeStringList(fields["requirements_met"]),
		PotentialConcerns: decodeStringList(fields["potential_concerns"]),
	}, true
}

// decodeIntegerScore accepts JSON numbers with no fractional part (85 or 85.0).
// Strings and fractional numbers are rejected rather than coerced.
func decodeIntegerScore(raw json.RawMessage) (int, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f > math.MaxInt32 || f < math.MinInt32 {
		return 0, false
	}
	return int(f), true
}

// decodeStringList keeps the non-empty string items of a JSON array, in order.
func decodeStringList(raw json.RawMessage) []string {
	out := []string{}
	if len(raw) == 0 {
		return out
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return out
	}
	for _, item := range items {
		var s string
		if err := json.Unmarshal(item, &s); err != nil {
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// extractFirstJSONObject finds the first outermost balanced {...}
func extractFirstJSONObject(s string) (string, bool) {
	start := strings.Index(s, "{")
	if start == -1 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		char := s[i]

		if escaped {
			escaped = false
			continue
		}

		if char == '\\' {
			escaped = true
			continue
		}

		if char == '"' {
			inString = !inString
			continue
		}

		if !inString {
			if char == '{' {
				depth++
			} else if char == '}' {
				depth--
				if depth == 0 {
					return s[start : i+1], true
				}
			}
		}
	}

	return "", false
}
