package services

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursewise/coursewise/pkg/models"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func floatPtr(f float64) *float64 { return &f }
func intPtr(i int) *int           { return &i }

func sampleCourses() []models.Course {
	return []models.Course{
		{CourseID: "ml101", Title: "ML 101", Description: "Intro to machine learning and ai", Tags: []string{"ml", "intro", "ai"}},
		{CourseID: "art", Title: "Art", Description: "Drawing and painting", Tags: []string{"drawing", "art"}},
		{CourseID: "ds", Title: "Data Science", Description: "Statistics and machine learning with data", Tags: []string{"ml", "data"}},
	}
}

func mlStudent() *models.Student {
	return &models.Student{
		StudentID: "s1",
		Interests: []string{"ml", "ai"},
		Profile: models.StudentProfile{
			GPA:        floatPtr(3.2),
			Department: "CSE",
			Year:       intPtr(2),
		},
	}
}

func mlStudents() []*models.Student {
	return []*models.Student{
		mlStudent(),
		{StudentID: "s2", Interests: []string{"ml", "data"}, CompletedCourses: []string{"ml101", "ds"}},
		{StudentID: "s3", Interests: []string{"art"}, ClickedCourses: []string{"art"}},
	}
}

func TestContentScorerRanking(t *testing.T) {
	cs := NewContentScorer(testLogger())
	cs.Fit(sampleCourses())
	require.True(t, cs.Fitted())

	items := cs.Recommend(mlStudent(), 10)
	require.NotEmpty(t, items)

	assert.Equal(t, "ml101", items[0].ID)
	assert.InDelta(t, 1.0, items[0].Score, 1e-9)
	for _, it := range items {
		assert.GreaterOrEqual(t, it.Score, 0.0)
	}
	for i := 1; i < len(items); i++ {
		assert.GreaterOrEqual(t, items[i-1].Score, items[i].Score)
	}
}

func TestContentScorerEmptyContracts(t *testing.T) {
	cs := NewContentScorer(testLogger())

	// Empty corpus is a no-op and the scorer stays unfit.
	cs.Fit(nil)
	assert.False(t, cs.Fitted())
	assert.Empty(t, cs.Recommend(mlStudent(), 5))

	cs.Fit(sampleCourses())
	blank := &models.Student{StudentID: "blank"}
	assert.Empty(t, cs.Recommend(blank, 5))
}

func TestContentScorerStateRoundTrip(t *testing.T) {
	cs := NewContentScorer(testLogger())
	cs.Fit(sampleCourses())
	want := cs.Recommend(mlStudent(), 10)

	restored := NewContentScorer(testLogger())
	require.True(t, restored.RestoreState(cs.State()))
	got := restored.Recommend(mlStudent(), 10)

	require.Equal(t, len(want), len(got))
	for i := range want {
		assert.Equal(t, want[i].ID, got[i].ID)
		assert.InDelta(t, want[i].Score, got[i].Score, 1e-9)
	}
}

func TestContentScorerRestoreRejectsPartialState(t *testing.T) {
	cs := NewContentScorer(testLogger())
	cs.Fit(sampleCourses())

	state := cs.State()
	state.Matrix = nil

	fresh := NewContentScorer(testLogger())
	assert.False(t, fresh.RestoreState(state))
	assert.False(t, fresh.Fitted())
}

func TestCollaborativePopularityFallback(t *testing.T) {
	cf := NewCollaborativeScorer(testLogger())
	cf.Fit([]*models.Student{
		{StudentID: "a", CompletedCourses: []string{"c1", "c2"}},
		{StudentID: "b", CompletedCourses: []string{"c1"}},
		{StudentID: "c", ClickedCourses: []string{"c1", "c3"}},
	})

	// Student with no history gets the global popularity ranking with the
	// top item scoring exactly 1.0.
	cold := &models.Student{StudentID: "cold"}
	items := cf.Recommend(cold, 10)
	require.NotEmpty(t, items)
	assert.Equal(t, "c1", items[0].ID)
	assert.Equal(t, 1.0, items[0].Score)
	for i := 1; i < len(items); i++ {
		assert.GreaterOrEqual(t, items[i-1].Score, items[i].Score)
	}
}

func TestCollaborativeJaccardScoring(t *testing.T) {
	cf := NewCollaborativeScorer(testLogger())
	cf.Fit([]*models.Student{
		{StudentID: "a", CompletedCourses: []string{"c1", "c2"}},
		{StudentID: "b", CompletedCourses: []string{"c1", "c3"}},
		{StudentID: "c", CompletedCourses: []string{"c9"}},
	})

	query := &models.Student{StudentID: "a", CompletedCourses: []string{"c1", "c2"}}
	items := cf.Recommend(query, 2)
	require.NotEmpty(t, items)

	// c3 comes from b (overlap on c1); held items never come back.
	assert.Equal(t, "c3", items[0].ID)
	assert.Equal(t, 1.0, items[0].Score)
	for _, it := range items {
		assert.NotContains(t, []string{"c1", "c2"}, it.ID)
	}
}

func TestCollaborativePopularityBackfill(t *testing.T) {
	cf := NewCollaborativeScorer(testLogger())
	cf.Fit([]*models.Student{
		{StudentID: "a", CompletedCourses: []string{"c1"}},
		{StudentID: "b", CompletedCourses: []string{"c1", "c2"}},
		{StudentID: "c", CompletedCourses: []string{"c5", "c6"}},
	})

	query := &models.Student{StudentID: "a", CompletedCourses: []string{"c1"}}
	items := cf.Recommend(query, 3)
	require.NotEmpty(t, items)

	// c2 via similarity with b, then damped-popularity backfill fills the
	// remaining slots without repeating held or scored items.
	assert.Equal(t, "c2", items[0].ID)
	ids := make(map[string]int)
	for _, it := range items {
		ids[it.ID]++
	}
	assert.NotContains(t, ids, "c1")
	for _, count := range ids {
		assert.Equal(t, 1, count)
	}
}

func TestSemanticScorerInertWithoutModel(t *testing.T) {
	ss := NewSemanticScorer(nil, testLogger())
	ss.Fit(sampleCourses())
	assert.False(t, ss.Available())
	assert.Empty(t, ss.Recommend(mlStudent(), 5))
}

func TestPeopleScorerExcludesSelf(t *testing.T) {
	students := []*models.Student{
		mlStudent(),
		{StudentID: "s2", Interests: []string{"ml", "data"}},
		{StudentID: "s3", Interests: []string{"art", "drawing"}},
	}

	ps := NewPeopleScorer(testLogger())
	ps.Fit(students, nil)

	items := ps.SimilarStudents(students[0], 10)
	require.NotEmpty(t, items)
	for _, it := range items {
		assert.NotEqual(t, "s1", it.ID)
	}
	assert.Equal(t, "s2", items[0].ID)
	assert.InDelta(t, 1.0, items[0].Score, 1e-9)

	// No teachers at fit time means no teacher matches.
	assert.Empty(t, ps.MatchingTeachers(students[0], 5))
}

func TestPeopleScorerMatchingTeachers(t *testing.T) {
	students := []*models.Student{
		mlStudent(),
		{StudentID: "s2", Interests: []string{"history"}},
	}
	teachers := []models.Teacher{
		{TeacherID: "t1", Subjects: []string{"machine learning"}, Keywords: []string{"ml", "ai"}, Department: "CSE"},
		{TeacherID: "t2", Subjects: []string{"painting"}, Keywords: []string{"art"}},
	}

	ps := NewPeopleScorer(testLogger())
	ps.Fit(students, teachers)

	items := ps.MatchingTeachers(students[0], 5)
	require.NotEmpty(t, items)
	assert.Equal(t, "t1", items[0].ID)
	assert.InDelta(t, 1.0, items[0].Score, 1e-9)
}

func TestStudentProfileTextOmitsGPA(t *testing.T) {
	s := mlStudent()

	profile := StudentProfileText(s)
	assert.NotContains(t, profile, "gpa")
	assert.Contains(t, profile, "CSE")
	assert.Contains(t, profile, "year 2")

	// The content query keeps the GPA term.
	assert.Contains(t, StudentQueryText(s), "gpa 3.20")
}

func TestPeopleScorerIgnoresGPA(t *testing.T) {
	// Two students whose only common attribute is a matching GPA share no
	// terms in the people space.
	a := &models.Student{StudentID: "a", Interests: []string{"ml"}, Profile: models.StudentProfile{GPA: floatPtr(3.2)}}
	b := &models.Student{StudentID: "b", Interests: []string{"art"}, Profile: models.StudentProfile{GPA: floatPtr(3.2)}}

	ps := NewPeopleScorer(testLogger())
	ps.Fit([]*models.Student{a, b}, nil)

	items := ps.SimilarStudents(a, 5)
	require.Len(t, items, 1)
	assert.Equal(t, "b", items[0].ID)
	assert.Equal(t, 0.0, items[0].Score)
}
