package models

// SponsorCriteria is the hard eligibility rule set. Absent fields impose no
// constraint.
type SponsorCriteria struct {
	MinGPA             *float64 `json:"min_gpa,omitempty" db:"min_gpa"`
	RequiredDepartment string   `json:"required_department,omitempty" db:"required_department"`
	MinYear            *int     `json:"min_year,omitempty" db:"min_year"`
}

type Sponsor struct {
	SponsorID   string          `json:"sponsor_id" db:"sponsor_id"`
	Name        string          `json:"name" db:"name"`
	Description string          `json:"description,omitempty" db:"description"`
	Criteria    SponsorCriteria `json:"criteria,omitempty" db:"criteria"`
}
