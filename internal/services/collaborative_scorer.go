package services

import (
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/coursewise/coursewise/pkg/models"
)

// popularityDamping scales popularity backfill so it rarely outranks genuine
// collaborative signal.
const popularityDamping = 0.1

// CollaborativeScorer ranks courses by set-overlap similarity between
// students' interaction histories, with a popularity fallback for cold
// students.
type CollaborativeScorer struct {
	userItems  map[string][]string
	popularity map[string]int
	// popOrder holds item ids sorted by popularity descending, ties broken
	// by first appearance, so fallback rankings are deterministic.
	popOrder []string
	logger   *logrus.Logger
}

func NewCollaborativeScorer(logger *logrus.Logger) *CollaborativeScorer {
	return &CollaborativeScorer{logger: logger}
}

// Fit builds the user-item mapping and global popularity counts.
func (cf *CollaborativeScorer) Fit(students []*models.Student) {
	cf.userItems = make(map[string][]string, len(students))
	cf.popularity = make(map[string]int)

	var firstSeen []string
	seenItem := make(map[string]bool)
	for _, s := range students {
		history := s.InteractionHistory()
		cf.userItems[s.StudentID] = history
		for _, item := range history {
			cf.popularity[item]++
			if !seenItem[item] {
				seenItem[item] = true
				firstSeen = append(firstSeen, item)
			}
		}
	}

	order := make(map[string]int, len(firstSeen))
	for i, item := range firstSeen {
		order[item] = i
	}
	cf.popOrder = firstSeen
	sort.SliceStable(cf.popOrder, func(i, j int) bool {
		a, b := cf.popOrder[i], cf.popOrder[j]
		if cf.popularity[a] != cf.popularity[b] {
			return cf.popularity[a] > cf.popularity[b]
		}
		return order[a] < order[b]
	})

	cf.logger.WithFields(logrus.Fields{
		"students": len(students),
		"items":    len(cf.popularity),
	}).Debug("Collaborative scorer fitted")
}

// Fitted reports whether Fit has run over at least one interaction.
func (cf *CollaborativeScorer) Fitted() bool {
	return len(cf.popularity) > 0
}

// Recommend scores unseen courses by accumulated Jaccard similarity with
// other students, falling back to global popularity for students with no
// history, and backfilling from damped popularity when collaborative signal
// covers fewer than k items. Output is self-normalized and sorted descending.
func (cf *CollaborativeScorer) Recommend(student *models.Student, k int) []models.ScoredItem {
	if !cf.Fitted() {
		return nil
	}

	history := cf.userItems[student.StudentID]
	if len(history) == 0 {
		history = student.InteractionHistory()
	}
	if len(history) == 0 {
		return cf.popularityRanking(k)
	}

	held := make(map[string]bool, len(history))
	for _, item := range history {
		held[item] = true
	}

	scores := make(map[string]float64)
	var surfaced []string
	for otherID, otherItems := range cf.userItems {
		if otherID == student.StudentID || len(otherItems) == 0 {
			continue
		}
		sim := jaccard(held, otherItems)
		if sim <= 0 {
			continue
		}
		for _, item := range otherItems {
			if held[item] {
				continue
			}
			if _, ok := scores[item]; !ok {
				surfaced = append(surfaced, item)
			}
			scores[item] += sim
		}
	}
	// Map iteration order is random; fix it for stable ranking.
	sort.Strings(surfaced)

	items := make([]models.ScoredItem, 0, len(surfaced))
	for _, id := range surfaced {
		items = append(items, models.ScoredItem{ID: id, Score: scores[id]})
	}

	if len(items) < k {
		for _, id := range cf.popOrder {
			if len(items) >= k {
				break
			}
			if held[id] {
				continue
			}
			if _, ok := scores[id]; ok {
				continue
			}
			items = append(items, models.ScoredItem{
				ID:    id,
				Score: popularityDamping * float64(cf.popularity[id]),
			})
		}
	}

	items = normalizeScores(items)
	sortByScore(items)
	return truncate(items, k)
}

func (cf *CollaborativeScorer) popularityRanking(k int) []models.ScoredItem {
	maxPop := 0
	for _, id := range cf.popOrder {
		if cf.popularity[id] > maxPop {
			maxPop = cf.popularity[id]
		}
	}
	if maxPop == 0 {
		return nil
	}
	items := make([]models.ScoredItem, 0, len(cf.popOrder))
	for _, id := range cf.popOrder {
		items = append(items, models.ScoredItem{
			ID:    id,
			Score: float64(cf.popularity[id]) / float64(maxPop),
		})
	}
	return truncate(items, k)
}

func jaccard(held map[string]bool, other []string) float64 {
	otherSet := make(map[string]bool, len(other))
	for _, item := range other {
		otherSet[item] = true
	}
	intersection := 0
	for item := range otherSet {
		if held[item] {
			intersection++
		}
	}
	union := len(held) + len(otherSet) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// State exports the fitted internals for persistence.
func (cf *CollaborativeScorer) State() CollaborativeState {
	return CollaborativeState{
		UserItems:  cf.userItems,
		Popularity: cf.popularity,
		PopOrder:   cf.popOrder,
	}
}

// RestoreState rebuilds the scorer from persisted internals.
func (cf *CollaborativeScorer) RestoreState(state CollaborativeState) bool {
	if state.UserItems == nil || state.Popularity == nil {
		return false
	}
	cf.userItems = state.UserItems
	cf.popularity = state.Popularity
	cf.popOrder = state.PopOrder
	return true
}

// CollaborativeState is the persisted form of a fitted collaborative scorer.
type CollaborativeState struct {
	UserItems  map[string][]string `json:"user_items"`
	Popularity map[string]int      `json:"popularity"`
	PopOrder   []string            `json:"pop_order"`
}
