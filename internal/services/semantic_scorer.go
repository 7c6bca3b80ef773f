package services

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/coursewise/coursewise/internal/ml"
	"github.com/coursewise/coursewise/pkg/models"
)

// SemanticScorer ranks courses by embedding similarity. The embedder is an
// optional capability: when the model file is missing the scorer stays
// permanently inert and every call returns an empty result.
type SemanticScorer struct {
	embedder  *ml.TextEmbedder
	matrix    [][]float64
	courseIDs []string
	logger    *logrus.Logger
}

func NewSemanticScorer(embedder *ml.TextEmbedder, logger *logrus.Logger) *SemanticScorer {
	return &SemanticScorer{embedder: embedder, logger: logger}
}

// Available reports whether the embedding model could be loaded.
func (ss *SemanticScorer) Available() bool {
	return ss.embedder != nil && ss.embedder.Available()
}

// Fit embeds every course text once. Inert when the embedder is unavailable
// or the corpus is empty.
func (ss *SemanticScorer) Fit(courses []models.Course) {
	if !ss.Available() || len(courses) == 0 {
		return
	}

	texts := make([]string, len(courses))
	ids := make([]string, len(courses))
	for i, c := range courses {
		texts[i] = CourseText(c)
		ids[i] = c.CourseID
	}

	ss.matrix = ss.embedder.EmbedBatch(texts)
	ss.courseIDs = ids

	ss.logger.WithField("courses", len(courses)).Debug("Semantic scorer fitted")
}

// Fitted reports whether course embeddings are in place.
func (ss *SemanticScorer) Fitted() bool {
	return len(ss.matrix) > 0
}

// Recommend returns up to k courses by normalized dot-product similarity
// between the student's interest embedding and each course embedding.
func (ss *SemanticScorer) Recommend(student *models.Student, k int) []models.ScoredItem {
	if !ss.Fitted() {
		return nil
	}
	query := ss.embedder.Embed(strings.Join(student.Interests, " "))
	if query == nil {
		return nil
	}

	items := make([]models.ScoredItem, 0, len(ss.matrix))
	for i, row := range ss.matrix {
		if row == nil {
			continue
		}
		score := dot(row, query)
		if score < 0 {
			score = 0
		}
		items = append(items, models.ScoredItem{ID: ss.courseIDs[i], Score: score})
	}

	items = normalizeScores(items)
	sortByScore(items)
	return truncate(items, k)
}
