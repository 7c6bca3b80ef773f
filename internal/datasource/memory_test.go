package datasource

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursewise/coursewise/pkg/models"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(
		[]models.Student{
			{StudentID: "s1", Interests: []string{"ml"}},
			{StudentID: "  "}, // dropped: no id
			{StudentID: "s2"},
		},
		[]models.Course{
			{CourseID: "c1", Title: "ML 101"},
			{Title: "Untitled"}, // id synthesized
		},
		[]models.Sponsor{
			{SponsorID: "sp1", Name: "TechCorp"},
			{Name: "NoID"}, // dropped
		},
	)

	students, err := store.GetAllStudents(ctx)
	require.NoError(t, err)
	assert.Len(t, students, 2)

	courses, err := store.GetAllContent(ctx)
	require.NoError(t, err)
	require.Len(t, courses, 2)
	assert.Equal(t, "course_1", courses[1].CourseID)

	sponsors, err := store.GetAllSponsors(ctx)
	require.NoError(t, err)
	assert.Len(t, sponsors, 1)

	t.Run("profile lookup", func(t *testing.T) {
		s, err := store.GetStudentProfile(ctx, "s1")
		require.NoError(t, err)
		require.NotNil(t, s)
		assert.Equal(t, []string{"ml"}, s.Interests)

		missing, err := store.GetStudentProfile(ctx, "nope")
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("save is an upsert", func(t *testing.T) {
		require.NoError(t, store.SaveRecommendations(ctx, "s1", models.EmptyRecord("s1"), nil))
		require.NoError(t, store.SaveRecommendations(ctx, "s1", models.EmptyRecord("s1"), nil))
		assert.Len(t, store.SavedRecommendations(), 1)
	})
}

func TestSplitList(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected []string
	}{
		{"comma separated", "ml, ai,  data", []string{"ml", "ai", "data"}},
		{"semicolon separated", "ml; ai", []string{"ml", "ai"}},
		{"mixed separators", "ml,ai;nlp", []string{"ml", "ai", "nlp"}},
		{"empty", "  ", nil},
		{"dangling separators", ",ml,,", []string{"ml"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SplitList(tt.raw))
		})
	}
}
