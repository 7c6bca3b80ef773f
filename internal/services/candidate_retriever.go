package services

import (
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/coursewise/coursewise/pkg/models"
)

// CandidateRetriever is the first-stage nearest-neighbor lookup over the
// content vector space. It narrows the pool that fusion considers; it never
// decides final ranking on its own.
type CandidateRetriever struct {
	matrix    *mat.Dense
	courseIDs []string
	neighbors int
}

func NewCandidateRetriever(neighbors int) *CandidateRetriever {
	return &CandidateRetriever{neighbors: neighbors}
}

// Fit indexes the course vectors. Rows must be L2-normalized, which holds
// for anything coming out of the content scorer.
func (cr *CandidateRetriever) Fit(matrix *mat.Dense, courseIDs []string) {
	cr.matrix = matrix
	cr.courseIDs = courseIDs
}

// Fitted reports whether an index is in place.
func (cr *CandidateRetriever) Fitted() bool {
	return cr.matrix != nil && len(cr.courseIDs) > 0
}

// Retrieve returns the k nearest course ids to the query vector by cosine
// distance. k <= 0 uses the configured neighbor count.
func (cr *CandidateRetriever) Retrieve(query []float64, k int) []string {
	if !cr.Fitted() || query == nil {
		return nil
	}
	if k <= 0 {
		k = cr.neighbors
	}

	rows, _ := cr.matrix.Dims()
	scored := make([]models.ScoredItem, rows)
	for i := 0; i < rows; i++ {
		scored[i] = models.ScoredItem{
			ID:    cr.courseIDs[i],
			Score: dot(cr.matrix.RawRowView(i), query),
		}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if k > len(scored) {
		k = len(scored)
	}
	ids := make([]string, k)
	for i := 0; i < k; i++ {
		ids[i] = scored[i].ID
	}
	return ids
}
