package services

import (
	"sort"

	"github.com/coursewise/coursewise/pkg/models"
)

// normalizeScores divides every score by the maximum in the list so the top
// item scores exactly 1.0. Lists whose maximum is not positive are returned
// unchanged; scorers with no signal should return nothing instead.
func normalizeScores(items []models.ScoredItem) []models.ScoredItem {
	var max float64
	for _, it := range items {
		if it.Score > max {
			max = it.Score
		}
	}
	if max <= 0 {
		return items
	}
	for i := range items {
		items[i].Score /= max
	}
	return items
}

// sortByScore orders items descending by score. The sort is stable so ties
// keep their original corpus order.
func sortByScore(items []models.ScoredItem) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Score > items[j].Score
	})
}

// truncate caps a ranked list at k items. k <= 0 means no cap.
func truncate(items []models.ScoredItem, k int) []models.ScoredItem {
	if k > 0 && len(items) > k {
		return items[:k]
	}
	return items
}

func dot(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}
