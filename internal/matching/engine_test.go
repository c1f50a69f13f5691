package matching

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/david/scholar-match/internal/ai"
	"github.com/david/scholar-match/internal/models"
)

type fakeCompleter struct {
	mu    sync.Mutex
	calls int
	fn    func(ctx context.Context) (string, error)
}

func (f *fakeCompleter) GenerateCompletion(ctx context.Context, prompt string, jsonMode bool) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.fn(ctx)
}

func respond(resp string) *fakeCompleter {
	return &fakeCompleter{fn: func(context.Context) (string, error) { return resp, nil }}
}

func failing(err error) *fakeCompleter {
	return &fakeCompleter{fn: func(context.Context) (string, error) { return "", err }}
}

type recordedPass struct {
	source models.MatchSource
	reason string
}

type fakeRecorder struct {
	mu      sync.Mutex
	passes  []recordedPass
	dropped map[string]int
}

func (r *fakeRecorder) ObserveMatchPass(source models.MatchSource, reason string, elapsed time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.passes = append(r.passes, recordedPass{source: source, reason: reason})
}

func (r *fakeRecorder) AddDroppedJudgments(reason string, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.dropped == nil {
		r.dropped = map[string]int{}
	}
	r.dropped[reason] += n
}

func day(d int) *time.Time {
	t := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, d)
	return &t
}

func testProfile() models.Profile {
	return models.Profile{
		StudentID:      uuid.MustParse("7f1d7a52-3f2b-4c1e-9c1a-0b6f1b9b2a11"),
		Version:        1,
		EducationLevel: "undergraduate",
		Country:        "India",
	}
}

func newTestEngine(client ai.Completer, rec Recorder) *Engine {
	cfg := DefaultConfig()
	cfg.Timeout = 200 * time.Millisecond
	return NewEngine(client, cfg, zap.NewNop(), rec)
}

func TestComputeMatches_CollaboratorResultsValidatedAndRanked(t *testing.T) {
	catalog := []models.Scholarship{
		{ID: "a", Deadline: day(30)},
		{ID: "b", Deadline: day(10)},
		{ID: "c", Deadline: day(10)},
		{ID: "d"},
		{ID: "e", Deadline: day(1)},
		{ID: "f", Deadline: day(2)},
	}
	resp := `Here you go:
{"matches":[
 {"scholarship_id":"a","relevance_score":70,"match_reasons":["r"]},
 {"scholarship_id":"c","relevance_score":70},
 {"scholarship_id":"b","relevance_score":70},
 {"scholarship_id":"d","relevance_score":70},
 {"scholarship_id":"e","relevance_score":95},
 {"scholarship_id":"ghost","relevance_score":99},
 {"scholarship_id":"f","relevance_score":29},
 {"scholarship_id":"a","relevance_score":101},
 {"scholarship_id":"e","relevance_score":40}
]}
Let me know if you need more.`
	rec := &fakeRecorder{}
	set := newTestEngine(respond(resp), rec).ComputeMatches(context.Background(), testProfile(), catalog)

	assert.Equal(t, models.MatchSourceCollaborator, set.Source)
	assert.Empty(t, set.FallbackReason)
	assert.Equal(t, 6, set.TotalScholarshipsAnalyzed)

	ids := make([]string, 0, len(set.Matches))
	for _, m := range set.Matches {
		ids = append(ids, m.ScholarshipID)
		require.NotNil(t, m.Scholarship)
		assert.Equal(t, m.ScholarshipID, m.Scholarship.ID)
	}
	assert.Equal(t, []string{"e", "b", "c", "a", "d"}, ids)
	assert.Equal(t, []string{"r"}, set.Matches[3].MatchReasons)

	assert.Equal(t, 1, rec.dropped[dropUnresolved])
	assert.Equal(t, 1, rec.dropped[dropOutOfRange])
	assert.Equal(t, 1, rec.dropped[dropBelowMin])
	assert.Equal(t, 1, rec.dropped[dropDuplicate])
	assert.Equal(t, models.MatchStats{HighQualityMatches: 1, AverageMatchScore: 75}, set.Stats)
}

func TestComputeMatches_UnavailableFallsBackToRules(t *testing.T) {
	catalog := []models.Scholarship{
		{ID: "ug-india", EducationLevels: []string{"undergraduate"}, Countries: []string{"India"}, Deadline: day(60)},
		{ID: "phd-usa", EducationLevels: []string{"phd"}, Countries: []string{"USA"}},
	}
	rec := &fakeRecorder{}
	set := newTestEngine(failing(fmt.Errorf("%w: connection refused", ai.ErrUnavailable)), rec).
		ComputeMatches(context.Background(), testProfile(), catalog)

	assert.Equal(t, models.MatchSourceFallback, set.Source)
	assert.Equal(t, FallbackReasonUnavailable, set.FallbackReason)
	require.Len(t, set.Matches, 1)
	assert.Equal(t, "ug-india", set.Matches[0].ScholarshipID)
	assert.Equal(t, 75, set.Matches[0].RelevanceScore)
	assert.Equal(t, []string{"Education level match", "Country eligibility"}, set.Matches[0].MatchReasons)
	assert.Equal(t, []string{"Basic eligibility"}, set.Matches[0].RequirementsMet)
	require.NotNil(t, set.Matches[0].Scholarship)
	require.Len(t, rec.passes, 1)
	assert.Equal(t, models.MatchSourceFallback, rec.passes[0].source)
}

func TestComputeMatches_MalformedOutputFallsBack(t *testing.T) {
	catalog := []models.Scholarship{{ID: "x", Countries: []string{"india"}}}
	set := newTestEngine(respond(`{"matches":[{"scholarship_id":"x","relevance_sc`), nil).
		ComputeMatches(context.Background(), testProfile(), catalog)

	assert.Equal(t, models.MatchSourceFallback, set.Source)
	assert.Equal(t, FallbackReasonMalformed, set.FallbackReason)
	require.Len(t, set.Matches, 1)
	assert.Equal(t, []string{"Country eligibility"}, set.Matches[0].MatchReasons)
}

func TestComputeMatches_NoSurvivingJudgmentsFallsBack(t *testing.T) {
	catalog := []models.Scholarship{{ID: "x", EducationLevels: []string{"Undergraduate"}}}
	set := newTestEngine(respond(`{"matches":[{"scholarship_id":"nope","relevance_score":90},{"scholarship_id":"x","relevance_score":10}]}`), nil).
		ComputeMatches(context.Background(), testProfile(), catalog)

	assert.Equal(t, models.MatchSourceFallback, set.Source)
	assert.Equal(t, FallbackReasonNoJudgments, set.FallbackReason)
	require.Len(t, set.Matches, 1)
	assert.Equal(t, "x", set.Matches[0].ScholarshipID)
}

func TestComputeMatches_FallbackEmptyWhenNothingShared(t *testing.T) {
	catalog := []models.Scholarship{{ID: "phd-usa", EducationLevels: []string{"phd"}, Countries: []string{"USA"}}}
	set := newTestEngine(failing(ai.ErrUnavailable), nil).ComputeMatches(context.Background(), testProfile(), catalog)

	assert.NotNil(t, set.Matches)
	assert.Empty(t, set.Matches)
	assert.Equal(t, models.MatchStats{}, set.Stats)
}

func TestComputeMatches_EmptyCatalogSkipsCollaborator(t *testing.T) {
	client := respond(`{"matches":[]}`)
	set := newTestEngine(client, nil).ComputeMatches(context.Background(), testProfile(), nil)

	assert.NotNil(t, set.Matches)
	assert.Empty(t, set.Matches)
	assert.Equal(t, 0, client.calls)
	assert.Equal(t, FallbackReasonEmptyCatalog, set.FallbackReason)
}

func TestComputeMatches_TimeoutFallsBackEvenIfCollaboratorIgnoresContext(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	client := &fakeCompleter{fn: func(context.Context) (string, error) {
		<-release
		return `{"matches":[]}`, nil
	}}
	catalog := []models.Scholarship{{ID: "x", Countries: []string{"India"}}}

	start := time.Now()
	set := newTestEngine(client, nil).ComputeMatches(context.Background(), testProfile(), catalog)

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, FallbackReasonUnavailable, set.FallbackReason)
	require.Len(t, set.Matches, 1)
}

func TestComputeMatches_AbandonedCallerStillGetsResult(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	client := &fakeCompleter{fn: func(ctx context.Context) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}
	catalog := []models.Scholarship{{ID: "x", EducationLevels: []string{"undergraduate"}}}

	set := newTestEngine(client, nil).ComputeMatches(ctx, testProfile(), catalog)
	assert.Equal(t, models.MatchSourceFallback, set.Source)
	assert.Len(t, set.Matches, 1)
}

func TestComputeMatches_MaxResultsCapsCollaboratorOutput(t *testing.T) {
	catalog := []models.Scholarship{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	cfg := DefaultConfig()
	cfg.MaxResults = 2
	engine := NewEngine(respond(`{"matches":[{"scholarship_id":"a","relevance_score":50},{"scholarship_id":"b","relevance_score":60},{"scholarship_id":"c","relevance_score":70}]}`), cfg, nil, nil)

	set := engine.ComputeMatches(context.Background(), testProfile(), catalog)
	require.Len(t, set.Matches, 2)
	assert.Equal(t, "c", set.Matches[0].ScholarshipID)
	assert.Equal(t, "b", set.Matches[1].ScholarshipID)
}

func TestComputeMatches_RandomizedInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	levels := []string{"undergraduate", "masters", "phd"}
	countries := []string{"India", "USA", "Germany", "Kenya"}

	for round := 0; round < 200; round++ {
		n := rng.Intn(12)
		catalog := make([]models.Scholarship, 0, n)
		for i := 0; i < n; i++ {
			s := models.Scholarship{
				ID:              fmt.Sprintf("s-%02d", rng.Intn(40)),
				EducationLevels: []string{levels[rng.Intn(len(levels))]},
				Countries:       []string{countries[rng.Intn(len(countries))]},
			}
			if rng.Intn(3) > 0 {
				s.Deadline = day(rng.Intn(5))
			}
			catalog = append(catalog, s)
		}
		known := map[string]bool{}
		for _, s := range catalog {
			known[s.ID] = true
		}

		var parts []string
		for k := 0; k < rng.Intn(15); k++ {
			parts = append(parts, fmt.Sprintf(`{"scholarship_id":"s-%02d","relevance_score":%d}`, rng.Intn(50), rng.Intn(141)-20))
		}
		resp := `noise {"matches":[` + strings.Join(parts, ",") + `]} trailing`
		var client ai.Completer = respond(resp)
		if rng.Intn(4) == 0 {
			client = failing(ai.ErrUnavailable)
		}

		set := newTestEngine(client, nil).ComputeMatches(context.Background(), testProfile(), catalog)
		for i, m := range set.Matches {
			assert.GreaterOrEqual(t, m.RelevanceScore, 30)
			assert.LessOrEqual(t, m.RelevanceScore, 100)
			assert.True(t, known[m.ScholarshipID], "unresolved id %s leaked", m.ScholarshipID)
			if i > 0 {
				assert.False(t, less(m, set.Matches[i-1]), "round %d: order violated at %d", round, i)
			}
		}
	}
}
