// Package matching ranks catalog scholarships against a profile snapshot. The reasoning
// collaborator is asked first; any failure, timeout or empty validated answer falls
// back to the rule-based scorer, so ComputeMatches never returns an error.
package matching

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/david/scholar-match/internal/ai"
	"github.com/david/scholar-match/internal/models"
)

const (
	// HighQualityScore is the threshold for the "high quality matches" figure.
	HighQualityScore = 80

	FallbackReasonEmptyCatalog = "empty_catalog"
	FallbackReasonUnavailable  = "collaborator_unavailable"
	FallbackReasonMalformed    = "malformed_judgment"
	FallbackReasonNoJudgments  = "no_valid_judgments"
	FallbackReasonPrompt       = "prompt_build_failed"

	dropOutOfRange = "score_out_of_range"
	dropUnresolved = "unresolved_reference"
	dropBelowMin   = "below_min_score"
	dropDuplicate  = "duplicate_reference"
	dropShape      = "invalid_shape"
)

// ScoreFloor is the lowest relevance score a retained match may carry. MinScore can
// raise the bar but never lower it.
const ScoreFloor = 30

type Config struct {
	Timeout    time.Duration  `yaml:"timeout"`
	MinScore   int            `yaml:"min_score"`
	MaxResults int            `yaml:"max_results"`
	Fallback   FallbackConfig `yaml:"fallback"`
}

func DefaultConfig() Config {
	return Config{
		Timeout:    20 * time.Second,
		MinScore:   ScoreFloor,
		MaxResults: 0,
		Fallback:   DefaultFallbackConfig(),
	}
}

// Recorder receives per-pass observations. A nil Recorder is ignored.
type Recorder interface {
	ObserveMatchPass(source models.MatchSource, reason string, elapsed time.Duration)
	AddDroppedJudgments(reason string, n int)
}

type Engine struct {
	client   ai.Completer
	prompts  *ai.PromptBuilder
	cfg      Config
	logger   *zap.Logger
	recorder Recorder
	now      func() time.Time
}

func NewEngine(client ai.Completer, cfg Config, logger *zap.Logger, recorder Recorder) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	return &Engine{
		client:   client,
		prompts:  ai.NewPromptBuilder(),
		cfg:      cfg,
		logger:   logger.Named("matching"),
		recorder: recorder,
		now:      time.Now,
	}
}

type callResult struct {
	judgments []ai.Judgment
	rejected  int
	err       error
}

// ComputeMatches runs one matching pass. The collaborator call is raced against the
// configured timeout and against ctx; losing the race is treated as unavailability.
func (e *Engine) ComputeMatches(ctx context.Context, profile models.Profile, catalog []models.Scholarship) models.MatchSet {
	start := e.now()
	set := models.MatchSet{
		ProfileIdentity:           profile.Identity(),
		TotalScholarshipsAnalyzed: len(catalog),
	}

	if len(catalog) == 0 {
		set.Matches = []models.MatchResult{}
		set.Source = models.MatchSourceFallback
		set.FallbackReason = FallbackReasonEmptyCatalog
		e.observe(set, start)
		return set
	}

	matches, reason := e.askCollaborator(ctx, profile, catalog)
	if reason == "" {
		set.Matches = matches
		set.Source = models.MatchSourceCollaborator
	} else {
		set.Matches = FallbackMatches(profile, catalog, e.cfg.Fallback)
		set.Source = models.MatchSourceFallback
		set.FallbackReason = reason
	}
	set.Stats = Summarize(set.Matches)

	e.observe(set, start)
	return set
}

// askCollaborator returns validated matches, or a non-empty fallback reason.
func (e *Engine) askCollaborator(ctx context.Context, profile models.Profile, catalog []models.Scholarship) ([]models.MatchResult, string) {
	if e.client == nil {
		return nil, FallbackReasonUnavailable
	}

	prompt, err := e.prompts.Build(profile, catalog)
	if err != nil {
		e.logger.Error("failed to build match prompt", zap.Error(err))
		return nil, FallbackReasonPrompt
	}

	callCtx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	done := make(chan callResult, 1)
	go func() {
		judgments, rejected, err := ai.RequestJudgments(callCtx, e.client, prompt)
		done <- callResult{judgments: judgments, rejected: rejected, err: err}
	}()

	var res callResult
	select {
	case res = <-done:
	case <-callCtx.Done():
		res = callResult{err: errors.Join(ai.ErrUnavailable, callCtx.Err())}
	}

	if res.err != nil {
		reason := FallbackReasonUnavailable
		if errors.Is(res.err, ai.ErrMalformedJudgment) {
			reason = FallbackReasonMalformed
		}
		e.logger.Warn("reasoning collaborator failed, using fallback scorer",
			zap.String("profile", profile.Identity()),
			zap.String("reason", reason),
			zap.Error(res.err),
		)
		return nil, reason
	}
	e.drop(dropShape, res.rejected)

	matches := e.validate(res.judgments, catalog)
	if len(matches) == 0 {
		return nil, FallbackReasonNoJudgments
	}
	return matches, ""
}

// validate keeps judgments that resolve in the catalog and carry a score in
// [MinScore, 100], enriches them, ranks them and applies MaxResults.
func (e *Engine) validate(judgments []ai.Judgment, catalog []models.Scholarship) []models.MatchResult {
	byID := make(map[string]int, len(catalog))
	for i, s := range catalog {
		byID[s.ID] = i
	}

	seen := make(map[string]bool, len(judgments))
	matches := make([]models.MatchResult, 0, len(judgments))
	for _, j := range judgments {
		if j.RelevanceScore < 0 || j.RelevanceScore > 100 {
			e.logger.Warn("dropping judgment with out-of-range score",
				zap.String("scholarship_id", j.ScholarshipID),
				zap.Int("score", j.RelevanceScore),
			)
			e.drop(dropOutOfRange, 1)
			continue
		}
		idx, ok := byID[j.ScholarshipID]
		if !ok {
			e.logger.Warn("dropping judgment for unknown scholarship",
				zap.String("scholarship_id", j.ScholarshipID),
			)
			e.drop(dropUnresolved, 1)
			continue
		}
		if j.RelevanceScore < e.cfg.MinScore {
			e.drop(dropBelowMin, 1)
			continue
		}
		if seen[j.ScholarshipID] {
			e.drop(dropDuplicate, 1)
			continue
		}
		seen[j.ScholarshipID] = true

		rec := catalog[idx]
		matches = append(matches, models.MatchResult{
			ScholarshipID:     j.ScholarshipID,
			RelevanceScore:    j.RelevanceScore,
			MatchReasons:      j.MatchReasons,
			RequirementsMet:   j.RequirementsMet,
			PotentialConcerns: j.PotentialConcerns,
			Scholarship:       &rec,
		})
	}

	SortMatches(matches)
	if e.cfg.MaxResults > 0 && len(matches) > e.cfg.MaxResults {
		matches = matches[:e.cfg.MaxResults]
	}
	return matches
}

func (e *Engine) drop(reason string, n int) {
	if e.recorder != nil && n > 0 {
		e.recorder.AddDroppedJudgments(reason, n)
	}
}

func (e *Engine) observe(set models.MatchSet, start time.Time) {
	elapsed := e.now().Sub(start)
	e.logger.Info("match pass complete",
		zap.String("profile", set.ProfileIdentity),
		zap.String("source", string(set.Source)),
		zap.String("fallback_reason", set.FallbackReason),
		zap.Int("analyzed", set.TotalScholarshipsAnalyzed),
		zap.Int("matches", len(set.Matches)),
		zap.Duration("elapsed", elapsed),
	)
	if e.recorder != nil {
		e.recorder.ObserveMatchPass(set.Source, set.FallbackReason, elapsed)
	}
}
