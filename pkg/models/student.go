package models

// StudentProfile carries the optional academic profile fields used for
// content matching and sponsor eligibility. Pointer fields distinguish
// "absent" from zero values.
type StudentProfile struct {
	GPA        *float64 `json:"gpa,omitempty" db:"gpa"`
	Department string   `json:"department,omitempty" db:"department"`
	Major      string   `json:"major,omitempty" db:"major"`
	Year       *int     `json:"year,omitempty" db:"year"`
}

type Student struct {
	StudentID        string         `json:"student_id" db:"student_id" validate:"required"`
	Interests        []string       `json:"interests,omitempty" db:"interests"`
	Profile          StudentProfile `json:"profile,omitempty" db:"profile"`
	CompletedCourses []string       `json:"completed_courses,omitempty" db:"completed_courses"`
	ClickedCourses   []string       `json:"clicked_courses,omitempty" db:"clicked_courses"`
}

// InteractionHistory returns the deduplicated, order-preserving union of
// completed and clicked course ids.
func (s *Student) InteractionHistory() []string {
	seen := make(map[string]bool)
	var items []string
	for _, list := range [][]string{s.CompletedCourses, s.ClickedCourses} {
		for _, id := range list {
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			items = append(items, id)
		}
	}
	return items
}

type Teacher struct {
	TeacherID  string   `json:"teacher_id" db:"teacher_id"`
	Subjects   []string `json:"subjects,omitempty" db:"subjects"`
	Keywords   []string `json:"keywords,omitempty" db:"keywords"`
	Bio        string   `json:"bio,omitempty" db:"bio"`
	Department string   `json:"department,omitempty" db:"department"`
}
