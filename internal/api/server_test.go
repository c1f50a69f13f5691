package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/david/scholar-match/internal/ai"
	"github.com/david/scholar-match/internal/auth"
	"github.com/david/scholar-match/internal/cache"
	"github.com/david/scholar-match/internal/db"
	"github.com/david/scholar-match/internal/matching"
	"github.com/david/scholar-match/internal/metrics"
	"github.com/david/scholar-match/internal/models"
	"github.com/david/scholar-match/internal/reminders"
	"github.com/david/scholar-match/internal/tracker"
)

type fakeCatalog struct {
	mu    sync.Mutex
	items map[string]models.Scholarship
	fail  error
}

func newFakeCatalog(items ...models.Scholarship) *fakeCatalog {
	c := &fakeCatalog{items: map[string]models.Scholarship{}}
	for _, it := range items {
		c.items[it.ID] = it
	}
	return c
}

func (f *fakeCatalog) ListScholarships(ctx context.Context, params db.ListParams) (*db.ListResult, error) {
	all, err := f.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	return &db.ListResult{Scholarships: all, Total: len(all), Limit: params.Limit, Offset: params.Offset}, nil
}

func (f *fakeCatalog) Catalog(ctx context.Context) ([]models.Scholarship, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return nil, f.fail
	}
	out := make([]models.Scholarship, 0, len(f.items))
	for _, it := range f.items {
		out = append(out, it)
	}
	return out, nil
}

func (f *fakeCatalog) GetScholarship(ctx context.Context, id string) (*models.Scholarship, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	it, ok := f.items[id]
	if !ok {
		return nil, fmt.Errorf("scholarship %s: %w", id, db.ErrNotFound)
	}
	return &it, nil
}

func (f *fakeCatalog) UpsertScholarship(ctx context.Context, sch models.Scholarship) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[sch.ID] = sch
	return nil
}

type fakeProfiles struct {
	mu       sync.Mutex
	profiles map[uuid.UUID]models.Profile
}

func (f *fakeProfiles) GetProfile(ctx context.Context, id uuid.UUID) (models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[id]
	if !ok {
		return models.Profile{}, db.ErrNotFound
	}
	return p, nil
}

func (f *fakeProfiles) SaveProfile(ctx context.Context, p models.Profile) (models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p.Version = f.profiles[p.StudentID].Version + 1
	p.UpdatedAt = time.Now().UTC()
	f.profiles[p.StudentID] = p
	return p, nil
}

type fakeSaved struct {
	mu    sync.Mutex
	items map[uuid.UUID][]string
}

func (f *fakeSaved) Save(ctx context.Context, sid uuid.UUID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.items[sid] {
		if existing == id {
			return nil
		}
	}
	f.items[sid] = append(f.items[sid], id)
	return nil
}

func (f *fakeSaved) Unsave(ctx context.Context, sid uuid.UUID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.items[sid][:0]
	for _, existing := range f.items[sid] {
		if existing != id {
			kept = append(kept, existing)
		}
	}
	f.items[sid] = kept
	return nil
}

func (f *fakeSaved) List(ctx context.Context, sid uuid.UUID) ([]models.SavedScholarship, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.SavedScholarship
	for _, id := range f.items[sid] {
		out = append(out, models.SavedScholarship{StudentID: sid, ScholarshipID: id})
	}
	return out, nil
}

type downCompleter struct{}

func (downCompleter) GenerateCompletion(context.Context, string, bool) (string, error) {
	return "", ai.ErrUnavailable
}

type countingMatcher struct {
	inner *matching.Engine
	calls int32
}

func (m *countingMatcher) ComputeMatches(ctx context.Context, p models.Profile, catalog []models.Scholarship) models.MatchSet {
	atomic.AddInt32(&m.calls, 1)
	return m.inner.ComputeMatches(ctx, p, catalog)
}

type harness struct {
	server   *Server
	tokens   *auth.Tokens
	catalog  *fakeCatalog
	profiles *fakeProfiles
	matcher  *countingMatcher
	apps     *tracker.MemoryRepository
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	future := time.Now().AddDate(0, 2, 0).UTC()
	catalog := newFakeCatalog(
		models.Scholarship{ID: "sch-india", Name: "India UG Merit", Provider: "Trust", EducationLevels: []string{"undergraduate"}, Countries: []string{"India"}, Deadline: &future},
		models.Scholarship{ID: "sch-usa-phd", Name: "US PhD Fellowship", EducationLevels: []string{"phd"}, Countries: []string{"USA"}},
	)
	profiles := &fakeProfiles{profiles: map[uuid.UUID]models.Profile{}}
	tokens, err := auth.NewTokens("test-secret", time.Hour, zap.NewNop())
	require.NoError(t, err)

	m := metrics.New()
	matcher := &countingMatcher{inner: matching.NewEngine(downCompleter{}, matching.DefaultConfig(), zap.NewNop(), m)}
	apps := tracker.NewMemoryRepository()

	srv, err := NewServer(Deps{
		Catalog:     catalog,
		Profiles:    profiles,
		Saved:       &fakeSaved{items: map[uuid.UUID][]string{}},
		Engine:      matcher,
		Cache:       cache.NewMatchCache(cache.NewMemoryStore(16, 0), zap.NewNop(), m),
		Tracker:     tracker.New(apps, zap.NewNop()),
		Reminders:   reminders.NewService(reminders.NewMemoryRepository(), zap.NewNop()),
		Tokens:      tokens,
		Metrics:     m,
		Logger:      zap.NewNop(),
		AdminSecret: "admin-secret",
	})
	require.NoError(t, err)
	return &harness{server: srv, tokens: tokens, catalog: catalog, profiles: profiles, matcher: matcher, apps: apps}
}

func (h *harness) do(t *testing.T, method, path string, student uuid.UUID, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if student != uuid.Nil {
		token, err := h.tokens.Issue(student)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.server.Echo.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

const indiaProfile = `{"education_level":"undergraduate","country":"India"}`

func TestHealth(t *testing.T) {
	h := newHarness(t)
	rec := h.do(t, http.MethodGet, "/health", uuid.Nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	h := newHarness(t)
	for _, path := range []string{"/api/v1/matches", "/api/v1/applications", "/api/v1/reminders", "/api/v1/profile"} {
		rec := h.do(t, http.MethodGet, path, uuid.Nil, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestMatches_RequireProfile(t *testing.T) {
	h := newHarness(t)
	rec := h.do(t, http.MethodGet, "/api/v1/matches", uuid.New(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProfile_Validation(t *testing.T) {
	h := newHarness(t)
	rec := h.do(t, http.MethodPut, "/api/v1/profile", uuid.New(), `{"education_level":"undergraduate"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMatches_FallbackThenCachedThenInvalidatedByProfileEdit(t *testing.T) {
	h := newHarness(t)
	student := uuid.New()

	rec := h.do(t, http.MethodPut, "/api/v1/profile", student, indiaProfile)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = h.do(t, http.MethodGet, "/api/v1/matches", student, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	first := decode[matchesResponse](t, rec)
	assert.False(t, first.Cached)
	assert.Equal(t, models.MatchSourceFallback, first.Source)
	assert.Equal(t, 2, first.TotalScholarshipsAnalyzed)
	require.Len(t, first.Matches, 1)
	assert.Equal(t, "sch-india", first.Matches[0].ScholarshipID)
	assert.Equal(t, 75, first.Matches[0].RelevanceScore)
	require.NotNil(t, first.Matches[0].Scholarship)
	assert.Equal(t, "India UG Merit", first.Matches[0].Scholarship.Name)

	rec = h.do(t, http.MethodGet, "/api/v1/matches", student, "")
	second := decode[matchesResponse](t, rec)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Matches, second.Matches)
	assert.Equal(t, int32(1), atomic.LoadInt32(&h.matcher.calls))

	rec = h.do(t, http.MethodPut, "/api/v1/profile", student, `{"education_level":"phd","country":"USA"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(t, http.MethodGet, "/api/v1/matches", student, "")
	third := decode[matchesResponse](t, rec)
	assert.False(t, third.Cached)
	require.Len(t, third.Matches, 1)
	assert.Equal(t, "sch-usa-phd", third.Matches[0].ScholarshipID)
	assert.Equal(t, int32(2), atomic.LoadInt32(&h.matcher.calls))
}

func TestMatches_RefreshRecomputes(t *testing.T) {
	h := newHarness(t)
	student := uuid.New()
	h.do(t, http.MethodPut, "/api/v1/profile", student, indiaProfile)

	h.do(t, http.MethodGet, "/api/v1/matches", student, "")
	rec := h.do(t, http.MethodPost, "/api/v1/matches/refresh", student, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[matchesResponse](t, rec).Cached)
	assert.Equal(t, int32(2), atomic.LoadInt32(&h.matcher.calls))
}

func TestMatches_CatalogFailureIsNotCached(t *testing.T) {
	h := newHarness(t)
	student := uuid.New()
	h.do(t, http.MethodPut, "/api/v1/profile", student, indiaProfile)

	h.catalog.fail = errors.New("db down")
	rec := h.do(t, http.MethodGet, "/api/v1/matches", student, "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	h.catalog.fail = nil
	rec = h.do(t, http.MethodGet, "/api/v1/matches", student, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[matchesResponse](t, rec).Matches, 1)
}

func TestApplications_DuplicateIsConflict(t *testing.T) {
	h := newHarness(t)
	student := uuid.New()

	rec := h.do(t, http.MethodPost, "/api/v1/applications", student, `{"scholarship_id":"sch-india"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[models.Application](t, rec)
	assert.Equal(t, models.StatusApplied, created.Status)
	require.NotNil(t, created.Scholarship)
	assert.Equal(t, "India UG Merit", created.Scholarship.Name)

	rec = h.do(t, http.MethodPost, "/api/v1/applications", student, `{"scholarship_id":"sch-india"}`)
	require.Equal(t, http.StatusConflict, rec.Code)
	body := decode[map[string]string](t, rec)
	assert.Equal(t, created.ID.String(), body["application_id"])

	rec = h.do(t, http.MethodGet, "/api/v1/applications", student, "")
	list := decode[applicationsResponse](t, rec)
	require.Len(t, list.Applications, 1)
	assert.Equal(t, 1, list.Counts[models.StatusApplied])
	assert.Equal(t, 1, h.apps.Len())
}

func TestApplications_UnknownScholarship(t *testing.T) {
	h := newHarness(t)
	rec := h.do(t, http.MethodPost, "/api/v1/applications", uuid.New(), `{"scholarship_id":"nope"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 0, h.apps.Len())
}

func TestApplications_StatusUpdates(t *testing.T) {
	h := newHarness(t)
	student := uuid.New()
	rec := h.do(t, http.MethodPost, "/api/v1/applications", student, `{"scholarship_id":"sch-india"}`)
	app := decode[models.Application](t, rec)
	path := "/api/v1/applications/" + app.ID.String() + "/status"

	rec = h.do(t, http.MethodPatch, path, student, `{"status":"accepted","notes":"offer letter received"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[models.Application](t, rec)
	assert.Equal(t, models.StatusAccepted, updated.Status)
	require.NotNil(t, updated.Notes)
	assert.Equal(t, "offer letter received", *updated.Notes)

	rec = h.do(t, http.MethodPatch, path, student, `{"status":"applied"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(t, http.MethodPatch, path, student, `{"status":"withdrawn"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(t, http.MethodPatch, path, uuid.New(), `{"status":"rejected"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(t, http.MethodPatch, "/api/v1/applications/"+uuid.NewString()+"/status", student, `{"status":"rejected"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 1, h.apps.Len())
}

func TestReminders_Lifecycle(t *testing.T) {
	h := newHarness(t)
	student := uuid.New()
	past := time.Now().Add(-48 * time.Hour).UTC().Format(time.RFC3339)
	soon := time.Now().Add(72 * time.Hour).UTC().Format(time.RFC3339)

	rec := h.do(t, http.MethodPost, "/api/v1/reminders", student, `{"title":"Transcript","due_date":"`+past+`"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	overdue := decode[models.Reminder](t, rec)
	assert.Equal(t, models.PriorityMedium, overdue.Priority)

	rec = h.do(t, http.MethodPost, "/api/v1/reminders", student, `{"title":"Essay","due_date":"`+soon+`","priority":"high"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = h.do(t, http.MethodPost, "/api/v1/reminders", student, `{"title":"Bad","due_date":"`+soon+`","priority":"urgent"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(t, http.MethodGet, "/api/v1/reminders", student, "")
	list := decode[reminders.Partitioned](t, rec)
	assert.Len(t, list.Overdue, 1)
	assert.Len(t, list.Upcoming, 1)
	assert.Equal(t, 1, list.Summary.HighPriority)

	rec = h.do(t, http.MethodPatch, "/api/v1/reminders/"+overdue.ID.String(), student, `{"completed":true}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(t, http.MethodGet, "/api/v1/reminders", student, "")
	list = decode[reminders.Partitioned](t, rec)
	assert.Empty(t, list.Overdue)
	assert.Len(t, list.Completed, 1)

	rec = h.do(t, http.MethodDelete, "/api/v1/reminders/"+overdue.ID.String(), uuid.New(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = h.do(t, http.MethodDelete, "/api/v1/reminders/"+overdue.ID.String(), student, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestSaved_Idempotent(t *testing.T) {
	h := newHarness(t)
	student := uuid.New()

	for i := 0; i < 2; i++ {
		rec := h.do(t, http.MethodPost, "/api/v1/saved/sch-india", student, "")
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := h.do(t, http.MethodPost, "/api/v1/saved/unknown", student, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(t, http.MethodGet, "/api/v1/saved", student, "")
	assert.Len(t, decode[[]models.SavedScholarship](t, rec), 1)

	h.do(t, http.MethodDelete, "/api/v1/saved/sch-india", student, "")
	rec = h.do(t, http.MethodGet, "/api/v1/saved", student, "")
	assert.Empty(t, decode[[]models.SavedScholarship](t, rec))
}

func TestAdminUpsertRequiresSecret(t *testing.T) {
	h := newHarness(t)
	payload := `[{"id":"sch-new","name":"New Award","countries":["Kenya"]}]`

	rec := h.do(t, http.MethodPost, "/api/v1/admin/scholarships", uuid.Nil, payload)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/scholarships", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Admin-Secret", "admin-secret")
	rec = httptest.NewRecorder()
	h.server.Echo.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = h.do(t, http.MethodGet, "/api/v1/scholarships/sch-new", uuid.Nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	h := newHarness(t)
	student := uuid.New()
	h.do(t, http.MethodPut, "/api/v1/profile", student, indiaProfile)
	h.do(t, http.MethodGet, "/api/v1/matches", student, "")

	rec := h.do(t, http.MethodGet, "/metrics", uuid.Nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `match_passes_total{reason="collaborator_unavailable",source="fallback"} 1`)
}
