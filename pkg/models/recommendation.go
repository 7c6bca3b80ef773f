package models

import "time"

// ScoredItem is a single (entity id, score) pair produced by a scorer.
// Scores are only comparable within one scorer's output; each scorer
// self-normalizes so its top score is 1.0 before fusion.
type ScoredItem struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

type CourseRecommendation struct {
	CourseID string   `json:"course_id"`
	Score    float64  `json:"score"`
	Title    string   `json:"title,omitempty"`
	Tags     []string `json:"tags,omitempty"`
}

type SponsorRecommendation struct {
	SponsorID string  `json:"sponsor_id"`
	Score     float64 `json:"score"`
	Name      string  `json:"name,omitempty"`
}

type PersonRecommendation struct {
	StudentID string  `json:"student_id"`
	Score     float64 `json:"score"`
}

type TeacherRecommendation struct {
	TeacherID string  `json:"teacher_id"`
	Score     float64 `json:"score"`
}

// RecommendationRecord is the per-student unit returned to callers and
// persisted by the data source, keyed by student id.
type RecommendationRecord struct {
	StudentID        string                  `json:"student_id"`
	Courses          []CourseRecommendation  `json:"courses"`
	Sponsors         []SponsorRecommendation `json:"sponsors"`
	SimilarStudents  []PersonRecommendation  `json:"similar_students"`
	MatchingTeachers []TeacherRecommendation `json:"matching_teachers"`
	CreatedAt        time.Time               `json:"created_at"`
}

// EmptyRecord returns the empty-shaped result used for unknown students.
func EmptyRecord(studentID string) *RecommendationRecord {
	return &RecommendationRecord{
		StudentID:        studentID,
		Courses:          []CourseRecommendation{},
		Sponsors:         []SponsorRecommendation{},
		SimilarStudents:  []PersonRecommendation{},
		MatchingTeachers: []TeacherRecommendation{},
		CreatedAt:        time.Now().UTC(),
	}
}
