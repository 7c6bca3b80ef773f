package services

import (
	"fmt"
	"strings"

	"github.com/coursewise/coursewise/pkg/models"
)

// CourseText concatenates the fields of a course that carry ranking signal.
func CourseText(c models.Course) string {
	parts := []string{c.Title, c.Description}
	parts = append(parts, c.Tags...)
	return joinNonEmpty(parts)
}

// StudentQueryText builds the query document for a student: interest tags
// followed by stringified profile fields.
func StudentQueryText(s *models.Student) string {
	parts := append([]string{}, s.Interests...)
	if s.Profile.Department != "" {
		parts = append(parts, s.Profile.Department)
	}
	if s.Profile.Major != "" {
		parts = append(parts, s.Profile.Major)
	}
	if s.Profile.Year != nil {
		parts = append(parts, fmt.Sprintf("year %d", *s.Profile.Year))
	}
	if s.Profile.GPA != nil {
		parts = append(parts, fmt.Sprintf("gpa %.2f", *s.Profile.GPA))
	}
	return joinNonEmpty(parts)
}

// StudentProfileText is the document a student contributes to the shared
// people space: interests plus department, major and year. GPA stays out of
// the people space; it only shapes the content query.
func StudentProfileText(s *models.Student) string {
	parts := append([]string{}, s.Interests...)
	if s.Profile.Department != "" {
		parts = append(parts, s.Profile.Department)
	}
	if s.Profile.Major != "" {
		parts = append(parts, s.Profile.Major)
	}
	if s.Profile.Year != nil {
		parts = append(parts, fmt.Sprintf("year %d", *s.Profile.Year))
	}
	return joinNonEmpty(parts)
}

// TeacherText concatenates a teacher's subjects, keywords, bio and
// department into one document.
func TeacherText(t models.Teacher) string {
	parts := append([]string{}, t.Subjects...)
	parts = append(parts, t.Keywords...)
	parts = append(parts, t.Bio, t.Department)
	return joinNonEmpty(parts)
}

func joinNonEmpty(parts []string) string {
	kept := parts[:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}
