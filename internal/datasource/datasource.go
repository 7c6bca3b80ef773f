// Package datasource provides the narrow data-access contract the
// recommendation engine consumes, with in-memory, flat-file and Postgres
// document-store implementations.
package datasource

import (
	"context"

	"github.com/coursewise/coursewise/pkg/models"
)

// Store is the contract between the engine and any data backend. Lookup of an
// unknown student returns (nil, nil); SaveRecommendations is an idempotent
// upsert keyed by student id.
type Store interface {
	GetAllStudents(ctx context.Context) ([]models.Student, error)
	GetAllContent(ctx context.Context) ([]models.Course, error)
	GetAllSponsors(ctx context.Context) ([]models.Sponsor, error)
	GetStudentProfile(ctx context.Context, studentID string) (*models.Student, error)
	SaveRecommendations(ctx context.Context, studentID string, record *models.RecommendationRecord, extra map[string]interface{}) error
}

// TeacherSource is an optional upgrade a Store may implement when its backend
// carries teacher records. The engine type-asserts for it; absence simply
// means no teacher recommendations.
type TeacherSource interface {
	GetAllTeachers(ctx context.Context) ([]models.Teacher, error)
}
