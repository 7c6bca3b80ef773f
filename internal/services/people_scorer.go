package services

import (
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"

	"github.com/coursewise/coursewise/internal/ml"
	"github.com/coursewise/coursewise/pkg/models"
)

// PeopleScorer fits one shared term-vector space across students and
// teachers so both populations project into comparable coordinates. The
// teacher block may be empty.
type PeopleScorer struct {
	vectorizer *ml.Vectorizer
	matrix     *mat.Dense
	studentIDs []string
	teacherIDs []string
	// studentRow maps a student id to its row in the fitted matrix; teacher
	// rows start at len(studentIDs).
	studentRow map[string]int
	logger     *logrus.Logger
}

func NewPeopleScorer(logger *logrus.Logger) *PeopleScorer {
	return &PeopleScorer{
		vectorizer: ml.NewVectorizer(),
		logger:     logger,
	}
}

// Fit builds the shared space. Students with no profile text still occupy a
// row (a zero vector) so positions stay aligned with ids.
func (ps *PeopleScorer) Fit(students []*models.Student, teachers []models.Teacher) {
	if len(students) == 0 && len(teachers) == 0 {
		return
	}

	docs := make([]string, 0, len(students)+len(teachers))
	ps.studentIDs = make([]string, 0, len(students))
	ps.studentRow = make(map[string]int, len(students))
	for i, s := range students {
		docs = append(docs, StudentProfileText(s))
		ps.studentIDs = append(ps.studentIDs, s.StudentID)
		ps.studentRow[s.StudentID] = i
	}
	ps.teacherIDs = make([]string, 0, len(teachers))
	for _, t := range teachers {
		docs = append(docs, TeacherText(t))
		ps.teacherIDs = append(ps.teacherIDs, t.TeacherID)
	}

	ps.matrix = ps.vectorizer.FitTransform(docs)

	ps.logger.WithFields(logrus.Fields{
		"students": len(students),
		"teachers": len(teachers),
	}).Debug("People scorer fitted")
}

// Fitted reports whether the shared space exists.
func (ps *PeopleScorer) Fitted() bool {
	return ps.matrix != nil && ps.vectorizer.Fitted()
}

// SimilarStudents ranks the other students by similarity to the query
// student. The query student's own row is zeroed out so they never appear in
// their own results.
func (ps *PeopleScorer) SimilarStudents(student *models.Student, k int) []models.ScoredItem {
	query := ps.queryVector(student)
	if query == nil {
		return nil
	}

	selfRow, hasSelf := ps.studentRow[student.StudentID]
	items := make([]models.ScoredItem, 0, len(ps.studentIDs))
	for i, id := range ps.studentIDs {
		if hasSelf && i == selfRow {
			continue
		}
		score := dot(ps.matrix.RawRowView(i), query)
		if score < 0 {
			score = 0
		}
		items = append(items, models.ScoredItem{ID: id, Score: score})
	}

	items = normalizeScores(items)
	sortByScore(items)
	return truncate(items, k)
}

// MatchingTeachers ranks teachers by similarity to the query student.
// Returns empty when no teachers were supplied at fit time.
func (ps *PeopleScorer) MatchingTeachers(student *models.Student, k int) []models.ScoredItem {
	if len(ps.teacherIDs) == 0 {
		return nil
	}
	query := ps.queryVector(student)
	if query == nil {
		return nil
	}

	offset := len(ps.studentIDs)
	items := make([]models.ScoredItem, 0, len(ps.teacherIDs))
	for i, id := range ps.teacherIDs {
		score := dot(ps.matrix.RawRowView(offset+i), query)
		if score < 0 {
			score = 0
		}
		items = append(items, models.ScoredItem{ID: id, Score: score})
	}

	items = normalizeScores(items)
	sortByScore(items)
	return truncate(items, k)
}

func (ps *PeopleScorer) queryVector(student *models.Student) []float64 {
	if !ps.Fitted() {
		return nil
	}
	text := StudentProfileText(student)
	if text == "" {
		return nil
	}
	return ps.vectorizer.Transform(text)
}
