package services

import (
	"context"
	"math/rand"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursewise/coursewise/internal/config"
	"github.com/coursewise/coursewise/internal/datasource"
	"github.com/coursewise/coursewise/pkg/models"
)

func seededStore() *datasource.MemoryStore {
	students := []models.Student{
		{
			StudentID: "s1",
			Interests: []string{"ml", "ai"},
			Profile:   models.StudentProfile{GPA: floatPtr(3.2), Department: "CSE", Year: intPtr(2)},
		},
		{StudentID: "s2", Interests: []string{"ml", "data"}, CompletedCourses: []string{"ml101", "ds"}},
		{StudentID: "s3", Interests: []string{"art"}, ClickedCourses: []string{"art"}},
	}
	sponsors := []models.Sponsor{
		{SponsorID: "sp1", Name: "AI Fund", Description: "Grants for ml and ai research"},
		{SponsorID: "sp2", Name: "Elite Fund", Description: "Top performers", Criteria: models.SponsorCriteria{MinGPA: floatPtr(3.9)}},
	}
	store := datasource.NewMemoryStore(students, sampleCourses(), sponsors)
	store.SeedTeachers([]models.Teacher{
		{TeacherID: "t1", Subjects: []string{"machine learning"}, Keywords: []string{"ml", "ai"}, Department: "CSE"},
	})
	return store
}

func newTestEngine(t *testing.T, store datasource.Store, cfg config.EngineConfig) *Engine {
	t.Helper()
	return NewEngine(store, cfg, testLogger(), EngineOptions{
		Rand: rand.New(rand.NewSource(42)),
	})
}

func TestEngineEndToEnd(t *testing.T) {
	store := seededStore()
	engine := newTestEngine(t, store, config.DefaultEngine())
	ctx := context.Background()

	require.NoError(t, engine.TrainModels(ctx))
	require.True(t, engine.Trained())

	record, err := engine.RecommendForStudent(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, "s1", record.StudentID)

	// The ml-leaning student sees ML 101 strictly above Art.
	require.NotEmpty(t, record.Courses)
	position := map[string]int{}
	scores := map[string]float64{}
	for i, c := range record.Courses {
		position[c.CourseID] = i
		scores[c.CourseID] = c.Score
	}
	require.Contains(t, position, "ml101")
	assert.Greater(t, scores["ml101"], 0.0)
	if artPos, ok := position["art"]; ok {
		assert.Less(t, position["ml101"], artPos)
		assert.Greater(t, scores["ml101"], scores["art"])
	}

	// Ineligible sponsor filtered out, eligible one scored.
	require.Len(t, record.Sponsors, 1)
	assert.Equal(t, "sp1", record.Sponsors[0].SponsorID)

	// Self never appears among similar students.
	for _, p := range record.SimilarStudents {
		assert.NotEqual(t, "s1", p.StudentID)
	}
	require.NotEmpty(t, record.MatchingTeachers)
	assert.Equal(t, "t1", record.MatchingTeachers[0].TeacherID)
}

func TestEngineUnknownStudent(t *testing.T) {
	engine := newTestEngine(t, seededStore(), config.DefaultEngine())
	ctx := context.Background()

	record, err := engine.RecommendForStudent(ctx, "ghost")
	require.NoError(t, err)
	assert.Equal(t, "ghost", record.StudentID)
	assert.Empty(t, record.Courses)
	assert.Empty(t, record.Sponsors)
	assert.Empty(t, record.SimilarStudents)
	assert.Empty(t, record.MatchingTeachers)
}

func TestEngineResultCache(t *testing.T) {
	engine := newTestEngine(t, seededStore(), config.DefaultEngine())
	ctx := context.Background()

	first, err := engine.RecommendForStudent(ctx, "s1")
	require.NoError(t, err)
	second, err := engine.RecommendForStudent(ctx, "s1")
	require.NoError(t, err)
	assert.Same(t, first, second)

	engine.ClearCache(ctx)
	third, err := engine.RecommendForStudent(ctx, "s1")
	require.NoError(t, err)
	assert.NotSame(t, first, third)
}

func TestFusionWeightPermutationIndependence(t *testing.T) {
	// Two items with identical per-scorer scores combine identically no
	// matter which order the scorers are accumulated in.
	itemsA := []models.ScoredItem{{ID: "x", Score: 0.8}, {ID: "y", Score: 0.8}}
	itemsB := []models.ScoredItem{{ID: "x", Score: 0.5}, {ID: "y", Score: 0.5}}

	forward := make(map[string]float64)
	for _, it := range itemsA {
		forward[it.ID] += 0.6 * it.Score
	}
	for _, it := range itemsB {
		forward[it.ID] += 0.35 * it.Score
	}

	reversed := make(map[string]float64)
	for _, it := range itemsB {
		reversed[it.ID] += 0.35 * it.Score
	}
	for _, it := range itemsA {
		reversed[it.ID] += 0.6 * it.Score
	}

	assert.Equal(t, forward["x"], forward["y"])
	assert.Equal(t, forward, reversed)
}

func TestDiversifyPenalizesTagOverlap(t *testing.T) {
	cfg := config.DefaultEngine()
	cfg.DiversityStrength = 0.1
	engine := newTestEngine(t, seededStore(), cfg)
	require.NoError(t, engine.TrainModels(context.Background()))

	ranked := []models.ScoredItem{
		{ID: "ml101", Score: 1.0},
		{ID: "ds", Score: 0.9},
		{ID: "art", Score: 0.5},
	}
	out := engine.diversify(ranked)

	byID := map[string]float64{}
	for _, it := range out {
		byID[it.ID] = it.Score
	}
	// The leader is untouched, ds loses 0.1 for sharing the ml tag, art
	// shares nothing and keeps its score.
	assert.Equal(t, 1.0, byID["ml101"])
	assert.InDelta(t, 0.8, byID["ds"], 1e-9)
	assert.Equal(t, 0.5, byID["art"])

	// Never increases a score, and a second pass over the already
	// penalized list with disjoint top tags is a no-op ordering-wise.
	for _, it := range out {
		assert.LessOrEqual(t, it.Score, 1.0)
	}
}

func TestDiversifyClampsAtZero(t *testing.T) {
	cfg := config.DefaultEngine()
	cfg.DiversityStrength = 1.0
	engine := newTestEngine(t, seededStore(), cfg)
	require.NoError(t, engine.TrainModels(context.Background()))

	ranked := []models.ScoredItem{
		{ID: "ml101", Score: 1.0},
		{ID: "ds", Score: 0.05},
	}
	out := engine.diversify(ranked)
	for _, it := range out {
		assert.GreaterOrEqual(t, it.Score, 0.0)
	}
}

func TestExploreNeverTriggersOnShortList(t *testing.T) {
	cfg := config.DefaultEngine()
	cfg.BanditEpsilon = 1.0
	cfg.TopKCourses = 10
	engine := newTestEngine(t, seededStore(), cfg)

	ranked := []models.ScoredItem{{ID: "a", Score: 1}, {ID: "b", Score: 0.5}}
	out := engine.explore(ranked, cfg.TopKCourses)
	assert.Equal(t, ranked, out)
}

func TestExploreReplacesBottomSlots(t *testing.T) {
	cfg := config.DefaultEngine()
	cfg.BanditEpsilon = 1.0
	cfg.BanditExploreK = 2
	engine := newTestEngine(t, seededStore(), cfg)

	ranked := make([]models.ScoredItem, 8)
	for i := range ranked {
		ranked[i] = models.ScoredItem{ID: string(rune('a' + i)), Score: 1.0 - float64(i)*0.1}
	}

	out := engine.explore(ranked, 5)
	require.Len(t, out, 5)

	// Top of the list is preserved, the bottom explore slots come from the
	// remainder.
	assert.Equal(t, "a", out[0].ID)
	assert.Equal(t, "b", out[1].ID)
	assert.Equal(t, "c", out[2].ID)
	remainder := map[string]bool{"f": true, "g": true, "h": true}
	assert.True(t, remainder[out[3].ID])
	assert.True(t, remainder[out[4].ID])
	assert.NotEqual(t, out[3].ID, out[4].ID)
}

func TestExploreDisabledTruncates(t *testing.T) {
	cfg := config.DefaultEngine()
	cfg.BanditEpsilon = 0
	engine := newTestEngine(t, seededStore(), cfg)

	ranked := make([]models.ScoredItem, 8)
	for i := range ranked {
		ranked[i] = models.ScoredItem{ID: string(rune('a' + i)), Score: 1.0 - float64(i)*0.1}
	}
	out := engine.explore(ranked, 5)
	require.Len(t, out, 5)
	assert.Equal(t, "e", out[4].ID)
}

func TestStaleModelCacheForcesRefit(t *testing.T) {
	dir := t.TempDir()
	storePath := filepath.Join(dir, "models.db")
	ctx := context.Background()

	courses := sampleCourses()[:2]
	store := datasource.NewMemoryStore(nil, courses, nil)

	first := NewEngine(store, config.DefaultEngine(), testLogger(), EngineOptions{
		ModelStore: NewModelStore(storePath, testLogger()),
	})
	require.NoError(t, first.TrainModels(ctx))

	// Same corpus: the persisted state is reused.
	warm := NewEngine(store, config.DefaultEngine(), testLogger(), EngineOptions{
		ModelStore: NewModelStore(storePath, testLogger()),
	})
	require.NoError(t, warm.TrainModels(ctx))

	// Grown corpus: the stored id list no longer matches and the engine
	// refits from scratch.
	grown := datasource.NewMemoryStore(nil, sampleCourses(), nil)
	stale := NewEngine(grown, config.DefaultEngine(), testLogger(), EngineOptions{
		ModelStore: NewModelStore(storePath, testLogger()),
	})
	require.NoError(t, stale.TrainModels(ctx))
	assert.Equal(t, []string{"ml101", "art", "ds"}, stale.content.CourseIDs())

	// The refreshed fit was persisted, so the next engine restores it.
	state, ok := NewModelStore(storePath, testLogger()).Load()
	require.True(t, ok)
	assert.Equal(t, []string{"ml101", "art", "ds"}, state.Content.CourseIDs)
}

func TestConcurrentTrainAndRecommend(t *testing.T) {
	// Retraining while requests are being served must not tear the fitted
	// scorer state. Run with -race to verify.
	store := seededStore()
	engine := newTestEngine(t, store, config.DefaultEngine())
	ctx := context.Background()
	require.NoError(t, engine.TrainModels(ctx))

	var wg sync.WaitGroup
	errs := make(chan error, 32)
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 8; j++ {
				if err := engine.TrainModels(ctx); err != nil {
					errs <- err
					return
				}
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 8; j++ {
				engine.ClearCache(ctx)
				if _, err := engine.RecommendForStudent(ctx, "s1"); err != nil {
					errs <- err
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	record, err := engine.RecommendForStudent(ctx, "s1")
	require.NoError(t, err)
	assert.NotEmpty(t, record.Courses)
}

func TestRetrievalPoolKeepsScorerFavorites(t *testing.T) {
	// A pool smaller than the candidate lists narrows the fusion but never
	// drops a course a scorer surfaced. For s2 the single nearest neighbor
	// is ds, yet ml101 still carries content signal and must survive.
	cfg := config.DefaultEngine()
	cfg.RetrievalPoolSize = 1
	engine := newTestEngine(t, seededStore(), cfg)
	ctx := context.Background()
	require.NoError(t, engine.TrainModels(ctx))

	record, err := engine.RecommendForStudent(ctx, "s2")
	require.NoError(t, err)

	ids := make([]string, 0, len(record.Courses))
	for _, c := range record.Courses {
		ids = append(ids, c.CourseID)
	}
	assert.Contains(t, ids, "ml101")
	assert.Contains(t, ids, "ds")
}

func TestBatchRecommendations(t *testing.T) {
	store := seededStore()
	engine := newTestEngine(t, store, config.DefaultEngine())
	ctx := context.Background()

	n, err := engine.BatchRecommendations(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	saved := store.SavedRecommendations()
	require.Len(t, saved, 3)
	for _, id := range []string{"s1", "s2", "s3"} {
		record, ok := saved[id]
		require.True(t, ok, "missing record for %s", id)
		assert.Equal(t, id, record.StudentID)
	}
}
