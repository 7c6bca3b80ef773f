package services

import (
	"strings"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"
	"github.com/sirupsen/logrus"

	"github.com/coursewise/coursewise/pkg/models"
)

const (
	fuzzyWeight      = 0.7
	eligibleBaseline = 0.3
	departmentBoost  = 0.05
	interestBoost    = 0.05
)

// SponsorMatcher applies the hard eligibility rules and then scores the
// survivors with a fuzzy text match against the student's interests.
type SponsorMatcher struct {
	sponsors []models.Sponsor
	logger   *logrus.Logger
}

func NewSponsorMatcher(logger *logrus.Logger) *SponsorMatcher {
	return &SponsorMatcher{logger: logger}
}

// Fit stores the sponsor list verbatim.
func (sm *SponsorMatcher) Fit(sponsors []models.Sponsor) {
	sm.sponsors = sponsors
}

// Match returns up to k eligible sponsors sorted descending by score.
func (sm *SponsorMatcher) Match(student *models.Student, k int) []models.ScoredItem {
	interestText := strings.Join(student.Interests, " ")

	items := make([]models.ScoredItem, 0, len(sm.sponsors))
	for _, sp := range sm.sponsors {
		if !eligible(student, sp.Criteria) {
			continue
		}

		score := fuzzyWeight*fuzzyScore(interestText, sp.Description) + eligibleBaseline

		sponsorText := strings.ToLower(sp.Description + " " + sp.Name)
		if dept := strings.ToLower(student.Profile.Department); dept != "" && strings.Contains(sponsorText, dept) {
			score += departmentBoost
		}
		if anyTokenIn(interestText, sponsorText) {
			score += interestBoost
		}

		items = append(items, models.ScoredItem{ID: sp.SponsorID, Score: score})
	}

	sortByScore(items)
	return truncate(items, k)
}

// eligible applies the hard filter. Each criterion only binds when the
// sponsor specifies it; required department additionally needs the student's
// department to be present, and matches exactly (case-sensitive).
func eligible(student *models.Student, c models.SponsorCriteria) bool {
	if c.MinGPA != nil {
		if student.Profile.GPA == nil || *student.Profile.GPA < *c.MinGPA {
			return false
		}
	}
	if c.RequiredDepartment != "" && student.Profile.Department != "" {
		if student.Profile.Department != c.RequiredDepartment {
			return false
		}
	}
	if c.MinYear != nil {
		if student.Profile.Year == nil || *student.Profile.Year < *c.MinYear {
			return false
		}
	}
	return true
}

// fuzzyScore is the token-set ratio between the two texts scaled to [0,1].
// Either side being empty scores zero.
func fuzzyScore(a, b string) float64 {
	if strings.TrimSpace(a) == "" || strings.TrimSpace(b) == "" {
		return 0
	}
	return float64(fuzzy.TokenSetRatio(a, b)) / 100
}

// anyTokenIn reports whether any whitespace-split token of text appears
// case-insensitively in haystack.
func anyTokenIn(text, haystack string) bool {
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		if strings.Contains(haystack, tok) {
			return true
		}
	}
	return false
}
