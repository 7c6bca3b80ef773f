package datasource

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/coursewise/coursewise/pkg/models"
)

var listSeparator = regexp.MustCompile(`[;,]`)

// SplitList splits a comma- or semicolon-separated string into trimmed,
// non-empty items. Raw upstream rows often carry tag lists as a single cell.
func SplitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out []string
	for _, part := range listSeparator.Split(raw, -1) {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// NormalizeStudents coerces student ids to non-empty strings and drops rows
// without an id. Malformed rows are repaired, never rejected.
func NormalizeStudents(students []models.Student) []models.Student {
	out := make([]models.Student, 0, len(students))
	for _, s := range students {
		s.StudentID = strings.TrimSpace(s.StudentID)
		if s.StudentID == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}

// NormalizeCourses synthesizes positional ids for courses that lack one, so
// every corpus entry is addressable.
func NormalizeCourses(courses []models.Course) []models.Course {
	out := make([]models.Course, 0, len(courses))
	for i, c := range courses {
		c.CourseID = strings.TrimSpace(c.CourseID)
		if c.CourseID == "" {
			c.CourseID = fmt.Sprintf("course_%d", i)
		}
		out = append(out, c)
	}
	return out
}

// NormalizeSponsors drops sponsors without an id.
func NormalizeSponsors(sponsors []models.Sponsor) []models.Sponsor {
	out := make([]models.Sponsor, 0, len(sponsors))
	for _, sp := range sponsors {
		sp.SponsorID = strings.TrimSpace(sp.SponsorID)
		if sp.SponsorID == "" {
			continue
		}
		out = append(out, sp)
	}
	return out
}
