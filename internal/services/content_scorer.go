package services

import (
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"

	"github.com/coursewise/coursewise/internal/ml"
	"github.com/coursewise/coursewise/pkg/models"
)

// ContentScorer ranks courses by term-vector similarity between a student's
// interest profile and each course's text. All rows of the fitted space are
// L2-normalized, so similarity is a plain dot product.
type ContentScorer struct {
	vectorizer *ml.Vectorizer
	matrix     *mat.Dense
	courseIDs  []string
	logger     *logrus.Logger
}

func NewContentScorer(logger *logrus.Logger) *ContentScorer {
	return &ContentScorer{
		vectorizer: ml.NewVectorizer(),
		logger:     logger,
	}
}

// Fit builds the vector space from the course corpus. An empty corpus is a
// no-op and leaves the scorer unfit.
func (cs *ContentScorer) Fit(courses []models.Course) {
	if len(courses) == 0 {
		return
	}

	docs := make([]string, len(courses))
	ids := make([]string, len(courses))
	for i, c := range courses {
		docs[i] = CourseText(c)
		ids[i] = c.CourseID
	}

	cs.matrix = cs.vectorizer.FitTransform(docs)
	cs.courseIDs = ids

	cs.logger.WithFields(logrus.Fields{
		"courses":  len(courses),
		"features": cs.vectorizer.NumFeatures(),
	}).Debug("Content scorer fitted")
}

// Fitted reports whether the scorer holds a usable vector space.
func (cs *ContentScorer) Fitted() bool {
	return cs.matrix != nil && cs.vectorizer.Fitted()
}

// CourseIDs returns the ordered identifier list the space was built from.
func (cs *ContentScorer) CourseIDs() []string {
	return cs.courseIDs
}

// Matrix exposes the fitted corpus matrix for the candidate retriever.
func (cs *ContentScorer) Matrix() *mat.Dense {
	return cs.matrix
}

// QueryVector projects a student into the fitted space, or nil when the
// scorer is unfit or the student has no query text.
func (cs *ContentScorer) QueryVector(student *models.Student) []float64 {
	if !cs.Fitted() {
		return nil
	}
	text := StudentQueryText(student)
	if text == "" {
		return nil
	}
	return cs.vectorizer.Transform(text)
}

// Recommend returns up to k courses sorted descending by similarity, scores
// normalized so the best match is 1.0. Unfit scorer or empty query yields an
// empty result.
func (cs *ContentScorer) Recommend(student *models.Student, k int) []models.ScoredItem {
	query := cs.QueryVector(student)
	if query == nil {
		return nil
	}

	rows, _ := cs.matrix.Dims()
	items := make([]models.ScoredItem, 0, rows)
	for i := 0; i < rows; i++ {
		score := dot(cs.matrix.RawRowView(i), query)
		if score < 0 {
			score = 0
		}
		items = append(items, models.ScoredItem{ID: cs.courseIDs[i], Score: score})
	}

	items = normalizeScores(items)
	sortByScore(items)
	return truncate(items, k)
}

// State exports the serializable fitted internals.
func (cs *ContentScorer) State() ContentState {
	state := ContentState{
		Vectorizer: cs.vectorizer.State(),
		CourseIDs:  cs.courseIDs,
	}
	if cs.matrix != nil {
		rows, cols := cs.matrix.Dims()
		state.Rows = rows
		state.Cols = cols
		state.Matrix = append([]float64(nil), cs.matrix.RawMatrix().Data...)
	}
	return state
}

// RestoreState rebuilds a fitted scorer from persisted internals. Returns
// false when essential pieces are missing.
func (cs *ContentScorer) RestoreState(state ContentState) bool {
	if len(state.Vectorizer.Terms) == 0 || len(state.Matrix) == 0 || len(state.CourseIDs) == 0 {
		return false
	}
	if state.Rows*state.Cols != len(state.Matrix) || state.Rows != len(state.CourseIDs) {
		return false
	}
	cs.vectorizer.RestoreState(state.Vectorizer)
	cs.matrix = mat.NewDense(state.Rows, state.Cols, state.Matrix)
	cs.courseIDs = state.CourseIDs
	return true
}

// ContentState is the persisted form of a fitted content scorer.
type ContentState struct {
	Vectorizer ml.VectorizerState `json:"vectorizer"`
	Matrix     []float64          `json:"matrix"`
	Rows       int                `json:"rows"`
	Cols       int                `json:"cols"`
	CourseIDs  []string           `json:"course_ids"`
}
