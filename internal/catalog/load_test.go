package catalog

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCatalog = `
scholarships:
  - id: chevening
    name: Chevening Scholarship
    provider: UK Government
    countries: [Mexico, Chile]
    education_level: [Masters]
    field_of_study: [Any]
    deadline: "Deadline: November 5, 2026"
  - id: rolling
    name: Rolling Award
  - name: No Id Grant
  - id: chevening
    name: Duplicate
  - id: broken-date
    name: Broken Date
    deadline: sometime soon
`

func TestLoad(t *testing.T) {
	got, problems, err := Load(strings.NewReader(sampleCatalog))
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, "chevening", got[0].ID)
	assert.Equal(t, []string{"Mexico", "Chile"}, got[0].Countries)
	require.NotNil(t, got[0].Deadline)
	assert.Equal(t, time.Date(2026, time.November, 5, 23, 59, 59, 999999999, time.UTC), *got[0].Deadline)
	assert.Equal(t, "rolling", got[1].ID)
	assert.Nil(t, got[1].Deadline)

	require.Len(t, problems, 3)
	assert.ErrorIs(t, problems[0].Err, ErrMissingID)
	assert.ErrorIs(t, problems[1].Err, ErrDuplicateID)
	assert.Equal(t, "broken-date", problems[2].ID)
}

func TestLoad_UnknownField(t *testing.T) {
	_, _, err := Load(strings.NewReader("scholarships:\n  - id: a\n    name: A\n    colour: red\n"))
	assert.Error(t, err)
}

func TestLoad_EmptyDocument(t *testing.T) {
	got, problems, err := Load(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Empty(t, problems)
}
