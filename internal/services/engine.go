package services

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/coursewise/coursewise/internal/config"
	"github.com/coursewise/coursewise/internal/datasource"
	"github.com/coursewise/coursewise/internal/ml"
	"github.com/coursewise/coursewise/pkg/models"
)

// candidateFactor oversizes the per-scorer candidate lists relative to the
// final top-K so fusion has room to reorder.
const candidateFactor = 3

// Engine orchestrates training, per-student recommendation and batch runs
// across the scorers, the matcher, the retriever and both caches.
type Engine struct {
	store  datasource.Store
	cfg    config.EngineConfig
	logger *logrus.Logger

	content       *ContentScorer
	collaborative *CollaborativeScorer
	semantic      *SemanticScorer
	people        *PeopleScorer
	matcher       *SponsorMatcher
	retriever     *CandidateRetriever

	modelStore *ModelStore
	results    *ResultCache
	metrics    *EngineMetrics

	rngMu sync.Mutex
	rng   *rand.Rand

	// mu guards all fitted scorer state plus the course index: TrainModels
	// holds the write side, the scoring paths hold the read side.
	mu      sync.RWMutex
	trained bool
	courses map[string]models.Course
}

// EngineOptions carries the optional collaborators. Zero values give a
// local-only engine with time-seeded exploration and no metrics.
type EngineOptions struct {
	Embedder   *ml.TextEmbedder
	ModelStore *ModelStore
	Results    *ResultCache
	Metrics    *EngineMetrics
	Rand       *rand.Rand
}

func NewEngine(store datasource.Store, cfg config.EngineConfig, logger *logrus.Logger, opts EngineOptions) *Engine {
	if logger == nil {
		logger = logrus.New()
	}
	if opts.Results == nil {
		opts.Results = NewResultCache(nil, 0, logger)
	}
	if opts.ModelStore == nil {
		opts.ModelStore = NewModelStore("", logger)
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	return &Engine{
		store:         store,
		cfg:           cfg,
		logger:        logger,
		content:       NewContentScorer(logger),
		collaborative: NewCollaborativeScorer(logger),
		semantic:      NewSemanticScorer(opts.Embedder, logger),
		people:        NewPeopleScorer(logger),
		matcher:       NewSponsorMatcher(logger),
		retriever:     NewCandidateRetriever(cfg.RetrievalNeighbors),
		modelStore:    opts.ModelStore,
		results:       opts.Results,
		metrics:       opts.Metrics,
		rng:           opts.Rand,
	}
}

// TrainModels loads the corpora and fits every scorer in one blocking pass.
// Persisted content state is reused only when its course-id list exactly
// matches the fresh corpus; any mismatch refits content, collaborative and
// semantic together so derived state stays consistent.
func (e *Engine) TrainModels(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	started := time.Now()

	students, err := e.store.GetAllStudents(ctx)
	if err != nil {
		return fmt.Errorf("failed to load students: %w", err)
	}
	courses, err := e.store.GetAllContent(ctx)
	if err != nil {
		return fmt.Errorf("failed to load content: %w", err)
	}
	sponsors, err := e.store.GetAllSponsors(ctx)
	if err != nil {
		return fmt.Errorf("failed to load sponsors: %w", err)
	}
	var teachers []models.Teacher
	if ts, ok := e.store.(datasource.TeacherSource); ok {
		if teachers, err = ts.GetAllTeachers(ctx); err != nil {
			e.logger.WithError(err).Warn("Teacher lookup failed, continuing without teachers")
			teachers = nil
		}
	}

	e.courses = make(map[string]models.Course, len(courses))
	courseIDs := make([]string, len(courses))
	for i, c := range courses {
		e.courses[c.CourseID] = c
		courseIDs[i] = c.CourseID
	}

	studentPtrs := make([]*models.Student, len(students))
	for i := range students {
		studentPtrs[i] = &students[i]
	}

	restored := e.restoreModels(courseIDs)
	if !restored {
		e.content.Fit(courses)
		e.collaborative.Fit(studentPtrs)
		e.semantic.Fit(courses)
	}

	// People space and sponsor rules always refit; both are cheap relative
	// to the content space and depend on the full student corpus.
	e.people.Fit(studentPtrs, teachers)
	e.matcher.Fit(sponsors)

	if e.cfg.UseRetrieval && e.content.Fitted() {
		e.retriever.Fit(e.content.Matrix(), e.content.CourseIDs())
	}

	if !restored && e.content.Fitted() {
		e.modelStore.Save(&ModelState{
			Content:       e.content.State(),
			Collaborative: e.collaborative.State(),
			CorpusDigest:  CorpusDigest(courseIDs),
			SavedAt:       time.Now().UTC(),
		})
	}

	e.trained = true
	e.metrics.ObserveTraining(time.Since(started))
	e.logger.WithFields(logrus.Fields{
		"students": len(students),
		"courses":  len(courses),
		"sponsors": len(sponsors),
		"teachers": len(teachers),
		"restored": restored,
		"elapsed":  time.Since(started).String(),
	}).Info("Model training complete")
	return nil
}

// restoreModels tries the persisted state and reports whether it was usable
// against the current corpus.
func (e *Engine) restoreModels(courseIDs []string) bool {
	state, ok := e.modelStore.Load()
	if !ok {
		return false
	}
	if !sameIDs(state.Content.CourseIDs, courseIDs) || state.CorpusDigest != CorpusDigest(courseIDs) {
		e.metrics.StaleCacheRefit()
		e.logger.WithFields(logrus.Fields{
			"stored_courses":  len(state.Content.CourseIDs),
			"current_courses": len(courseIDs),
		}).Info("Persisted model state is stale, refitting")
		return false
	}
	if !e.content.RestoreState(state.Content) {
		return false
	}
	if !e.collaborative.RestoreState(state.Collaborative) {
		return false
	}
	// Semantic embeddings are cheap to rebuild and tied to the same corpus.
	if e.semantic.Available() {
		courses := make([]models.Course, 0, len(courseIDs))
		for _, id := range courseIDs {
			courses = append(courses, e.courses[id])
		}
		e.semantic.Fit(courses)
	}
	e.logger.Debug("Restored fitted models from store")
	return true
}

func sameIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// RecommendForStudent returns the full recommendation record for one
// student, computing and caching it on first request. Unknown students get
// an empty-shaped record.
func (e *Engine) RecommendForStudent(ctx context.Context, studentID string) (*models.RecommendationRecord, error) {
	started := time.Now()

	if cached, ok := e.results.Get(ctx, studentID); ok {
		e.metrics.CacheHit()
		e.metrics.ObserveRequest("cached", time.Since(started))
		return cached, nil
	}
	e.metrics.CacheMiss()

	if err := e.ensureTrained(ctx); err != nil {
		e.metrics.ObserveRequest("error", time.Since(started))
		return nil, err
	}

	student, err := e.store.GetStudentProfile(ctx, studentID)
	if err != nil {
		e.metrics.ObserveRequest("error", time.Since(started))
		return nil, fmt.Errorf("failed to look up student %s: %w", studentID, err)
	}
	if student == nil {
		e.logger.WithField("student_id", studentID).Warn("Unknown student, returning empty record")
		e.metrics.ObserveRequest("unknown", time.Since(started))
		return models.EmptyRecord(studentID), nil
	}

	e.mu.RLock()
	record := e.buildRecord(student)
	e.mu.RUnlock()
	e.results.Put(ctx, studentID, record)
	e.metrics.ObserveRequest("computed", time.Since(started))
	return record, nil
}

func (e *Engine) ensureTrained(ctx context.Context) error {
	e.mu.RLock()
	trained := e.trained
	e.mu.RUnlock()
	if trained {
		return nil
	}
	return e.TrainModels(ctx)
}

func (e *Engine) buildRecord(student *models.Student) *models.RecommendationRecord {
	record := models.EmptyRecord(student.StudentID)

	for _, item := range e.rankCourses(student) {
		course := e.courses[item.ID]
		record.Courses = append(record.Courses, models.CourseRecommendation{
			CourseID: item.ID,
			Score:    item.Score,
			Title:    course.Title,
			Tags:     course.Tags,
		})
	}

	sponsorIndex := make(map[string]models.Sponsor, len(e.matcher.sponsors))
	for _, sp := range e.matcher.sponsors {
		sponsorIndex[sp.SponsorID] = sp
	}
	for _, item := range e.matcher.Match(student, e.cfg.TopKSponsors) {
		record.Sponsors = append(record.Sponsors, models.SponsorRecommendation{
			SponsorID: item.ID,
			Score:     item.Score,
			Name:      sponsorIndex[item.ID].Name,
		})
	}

	for _, item := range e.people.SimilarStudents(student, e.cfg.TopKStudents) {
		record.SimilarStudents = append(record.SimilarStudents, models.PersonRecommendation{
			StudentID: item.ID,
			Score:     item.Score,
		})
	}
	for _, item := range e.people.MatchingTeachers(student, e.cfg.TopKTeachers) {
		record.MatchingTeachers = append(record.MatchingTeachers, models.TeacherRecommendation{
			TeacherID: item.ID,
			Score:     item.Score,
		})
	}

	return record
}

// rankCourses runs the fusion pipeline: oversized per-scorer candidates,
// optional first-stage retrieval, weighted combination, diversification and
// optional epsilon-greedy exploration.
func (e *Engine) rankCourses(student *models.Student) []models.ScoredItem {
	topK := e.cfg.TopKCourses
	pool := candidateFactor * topK

	contentItems := e.content.Recommend(student, pool)
	collabItems := e.collaborative.Recommend(student, pool)
	semanticItems := e.semantic.Recommend(student, pool)

	combined := make(map[string]float64)
	accumulate := func(items []models.ScoredItem, weight float64) {
		for _, it := range items {
			combined[it.ID] += weight * it.Score
		}
	}
	accumulate(contentItems, e.cfg.ContentWeight)
	accumulate(collabItems, e.cfg.CollabWeight)
	accumulate(semanticItems, e.cfg.SemanticWeight)

	if e.cfg.UseRetrieval && e.retriever.Fitted() {
		e.restrictToPool(student, combined, contentItems, collabItems, semanticItems)
	}

	ranked := make([]models.ScoredItem, 0, len(combined))
	for _, id := range sortedKeys(combined) {
		ranked = append(ranked, models.ScoredItem{ID: id, Score: combined[id]})
	}
	sortByScore(ranked)

	ranked = e.diversify(ranked)
	return e.explore(ranked, topK)
}

// restrictToPool drops combined candidates that are neither near the student
// in the content space nor surfaced by any scorer. A pool smaller than the
// candidate lists can only narrow, it never removes a scorer favorite.
func (e *Engine) restrictToPool(student *models.Student, combined map[string]float64, keepLists ...[]models.ScoredItem) {
	query := e.content.QueryVector(student)
	if query == nil {
		return
	}
	poolIDs := e.retriever.Retrieve(query, e.cfg.RetrievalPoolSize)
	if poolIDs == nil {
		return
	}

	keep := make(map[string]bool, len(poolIDs))
	for _, id := range poolIDs {
		keep[id] = true
	}
	for _, list := range keepLists {
		for _, it := range list {
			keep[it.ID] = true
		}
	}
	for id := range combined {
		if !keep[id] {
			delete(combined, id)
		}
	}
}

// diversify walks the ranking in descending order and penalizes each item by
// the number of its tags already seen above it, then re-sorts.
func (e *Engine) diversify(ranked []models.ScoredItem) []models.ScoredItem {
	if e.cfg.DiversityStrength <= 0 || len(ranked) == 0 {
		return ranked
	}

	seen := make(map[string]bool)
	for i := range ranked {
		overlap := 0
		tags := e.courses[ranked[i].ID].Tags
		for _, tag := range tags {
			if seen[tag] {
				overlap++
			}
		}
		penalized := ranked[i].Score - e.cfg.DiversityStrength*float64(overlap)
		if penalized < 0 {
			penalized = 0
		}
		ranked[i].Score = penalized
		for _, tag := range tags {
			seen[tag] = true
		}
	}
	sortByScore(ranked)
	return ranked
}

// explore applies epsilon-greedy perturbation: with probability epsilon,
// the bottom exploreK slots of the top-K are replaced with items sampled
// uniformly from the remainder. Never triggers when the ranking fits in K.
func (e *Engine) explore(ranked []models.ScoredItem, topK int) []models.ScoredItem {
	if len(ranked) <= topK {
		return ranked
	}
	exploreK := e.cfg.BanditExploreK
	if e.cfg.BanditEpsilon <= 0 || exploreK <= 0 {
		return truncate(ranked, topK)
	}
	e.rngMu.Lock()
	roll := e.rng.Float64()
	e.rngMu.Unlock()
	if roll >= e.cfg.BanditEpsilon {
		return truncate(ranked, topK)
	}
	if exploreK > topK {
		exploreK = topK
	}

	top := append([]models.ScoredItem(nil), ranked[:topK]...)
	rest := ranked[topK:]
	if exploreK > len(rest) {
		exploreK = len(rest)
	}

	e.rngMu.Lock()
	perm := e.rng.Perm(len(rest))
	e.rngMu.Unlock()
	for i := 0; i < exploreK; i++ {
		top[topK-exploreK+i] = rest[perm[i]]
	}
	e.metrics.ExplorationTriggered()
	return top
}

// BatchRecommendations computes and persists one record per student,
// stamping each with the batch run id.
func (e *Engine) BatchRecommendations(ctx context.Context) (int, error) {
	if err := e.ensureTrained(ctx); err != nil {
		return 0, err
	}

	students, err := e.store.GetAllStudents(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load students for batch: %w", err)
	}

	runID := uuid.New().String()
	saved := 0
	for i := range students {
		student := &students[i]
		e.mu.RLock()
		record := e.buildRecord(student)
		e.mu.RUnlock()
		e.results.Put(ctx, student.StudentID, record)

		extra := map[string]interface{}{
			"run_id":       runID,
			"generated_at": record.CreatedAt.Format(time.RFC3339),
		}
		if err := e.store.SaveRecommendations(ctx, student.StudentID, record, extra); err != nil {
			return saved, fmt.Errorf("failed to persist recommendations for %s: %w", student.StudentID, err)
		}
		saved++
	}

	e.logger.WithFields(logrus.Fields{
		"run_id":   runID,
		"students": saved,
	}).Info("Batch recommendation run complete")
	return saved, nil
}

// ClearCache drops all cached per-student results.
func (e *Engine) ClearCache(ctx context.Context) {
	e.results.Clear(ctx)
}

// Trained reports whether a training pass has completed.
func (e *Engine) Trained() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.trained
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
