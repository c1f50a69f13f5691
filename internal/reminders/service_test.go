package reminders

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/david/scholar-match/internal/models"
)

func newTestService() (*Service, *MemoryRepository) {
	repo := NewMemoryRepository()
	svc := NewService(repo, zap.NewNop())
	svc.now = func() time.Time { return now }
	return svc, repo
}

func TestService_CreateDefaults(t *testing.T) {
	svc, _ := newTestService()
	student := uuid.New()

	r, err := svc.Create(context.Background(), student, CreateInput{
		Title:   "  Submit transcript ",
		DueDate: now.AddDate(0, 0, 5),
	})
	require.NoError(t, err)
	assert.Equal(t, "Submit transcript", r.Title)
	assert.Equal(t, models.PriorityMedium, r.Priority)
	assert.Equal(t, DefaultCategory, r.Category)
	assert.Equal(t, student, r.StudentID)
	assert.False(t, r.Completed)
	assert.Nil(t, r.CompletedAt)
	assert.Equal(t, now, r.CreatedAt)
}

func TestService_CreateRejectsBadInput(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Create(context.Background(), uuid.New(), CreateInput{Title: " ", DueDate: now})
	assert.ErrorIs(t, err, ErrTitleRequired)

	_, err = svc.Create(context.Background(), uuid.New(), CreateInput{Title: "x", DueDate: now, Priority: "urgent"})
	assert.ErrorIs(t, err, ErrInvalidPriority)
}

func TestService_ToggleAndList(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()
	student := uuid.New()

	r, err := svc.Create(ctx, student, CreateInput{Title: "Essay", DueDate: now.AddDate(0, 0, -1), Priority: models.PriorityHigh})
	require.NoError(t, err)

	list, err := svc.List(ctx, student)
	require.NoError(t, err)
	require.Len(t, list.Overdue, 1)

	done, err := svc.ToggleComplete(ctx, student, r.ID, true)
	require.NoError(t, err)
	assert.True(t, done.Completed)
	require.NotNil(t, done.CompletedAt)
	assert.Equal(t, now, *done.CompletedAt)

	list, err = svc.List(ctx, student)
	require.NoError(t, err)
	assert.Empty(t, list.Overdue)
	require.Len(t, list.Completed, 1)

	reopened, err := svc.ToggleComplete(ctx, student, r.ID, false)
	require.NoError(t, err)
	assert.False(t, reopened.Completed)
	assert.Nil(t, reopened.CompletedAt)
}

func TestService_OwnershipScoping(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()
	owner, other := uuid.New(), uuid.New()

	r, err := svc.Create(ctx, owner, CreateInput{Title: "Essay", DueDate: now})
	require.NoError(t, err)

	_, err = svc.ToggleComplete(ctx, other, r.ID, true)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.ErrorIs(t, svc.Delete(ctx, other, r.ID), ErrNotFound)

	list, err := svc.List(ctx, other)
	require.NoError(t, err)
	assert.Equal(t, 0, list.Summary.Total)

	require.NoError(t, svc.Delete(ctx, owner, r.ID))
	list, err = svc.List(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, 0, list.Summary.Total)
}
