package datasource

import (
	"context"
	"sync"

	"github.com/coursewise/coursewise/pkg/models"
)

// MemoryStore is the in-memory connector: seeded slices plus a saved-record
// map. Useful for tests and for embedding the engine into a host that already
// holds its data in memory.
type MemoryStore struct {
	mu       sync.RWMutex
	students []models.Student
	content  []models.Course
	sponsors []models.Sponsor
	teachers []models.Teacher
	saved    map[string]*models.RecommendationRecord
}

func NewMemoryStore(students []models.Student, content []models.Course, sponsors []models.Sponsor) *MemoryStore {
	return &MemoryStore{
		students: NormalizeStudents(students),
		content:  NormalizeCourses(content),
		sponsors: NormalizeSponsors(sponsors),
		saved:    make(map[string]*models.RecommendationRecord),
	}
}

func (m *MemoryStore) GetAllStudents(ctx context.Context) ([]models.Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Student, len(m.students))
	copy(out, m.students)
	return out, nil
}

func (m *MemoryStore) GetAllContent(ctx context.Context) ([]models.Course, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Course, len(m.content))
	copy(out, m.content)
	return out, nil
}

func (m *MemoryStore) GetAllSponsors(ctx context.Context) ([]models.Sponsor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Sponsor, len(m.sponsors))
	copy(out, m.sponsors)
	return out, nil
}

// SeedTeachers replaces the teacher list. Teachers are optional; stores
// without them simply yield no teacher recommendations.
func (m *MemoryStore) SeedTeachers(teachers []models.Teacher) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.teachers = teachers
}

func (m *MemoryStore) GetAllTeachers(ctx context.Context) ([]models.Teacher, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Teacher, len(m.teachers))
	copy(out, m.teachers)
	return out, nil
}

func (m *MemoryStore) GetStudentProfile(ctx context.Context, studentID string) (*models.Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := range m.students {
		if m.students[i].StudentID == studentID {
			s := m.students[i]
			return &s, nil
		}
	}
	return nil, nil
}

func (m *MemoryStore) SaveRecommendations(ctx context.Context, studentID string, record *models.RecommendationRecord, extra map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved[studentID] = record
	return nil
}

// SavedRecommendations returns the records persisted so far, keyed by
// student id.
func (m *MemoryStore) SavedRecommendations() map[string]*models.RecommendationRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]*models.RecommendationRecord, len(m.saved))
	for k, v := range m.saved {
		out[k] = v
	}
	return out
}
