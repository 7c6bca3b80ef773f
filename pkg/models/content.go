package models

type Course struct {
	CourseID    string   `json:"course_id" db:"course_id"`
	Title       string   `json:"title" db:"title"`
	Description string   `json:"description,omitempty" db:"description"`
	Tags        []string `json:"tags,omitempty" db:"tags"`
}
