package datasource

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"

	"github.com/coursewise/coursewise/pkg/models"
)

// FileStore is the flat-file connector: students, courses and sponsors read
// once from JSON or CSV files. Saves are kept in memory and can be exported
// as JSONL for offline serving.
type FileStore struct {
	logger *logrus.Logger

	students []models.Student
	content  []models.Course
	sponsors []models.Sponsor

	mu    sync.Mutex
	saved map[string]*models.RecommendationRecord
}

func NewFileStore(studentsPath, contentPath, sponsorsPath string, logger *logrus.Logger) (*FileStore, error) {
	fs := &FileStore{
		logger: logger,
		saved:  make(map[string]*models.RecommendationRecord),
	}

	students, err := loadStudentsFile(studentsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load students from %s: %w", studentsPath, err)
	}
	content, err := loadCoursesFile(contentPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load content from %s: %w", contentPath, err)
	}

	// Sponsors are optional in offline datasets.
	sponsors, err := loadSponsorsFile(sponsorsPath)
	if err != nil {
		logger.WithError(err).WithField("path", sponsorsPath).Warn("Sponsors file unavailable, continuing without sponsors")
		sponsors = nil
	}

	fs.students = NormalizeStudents(students)
	fs.content = NormalizeCourses(content)
	fs.sponsors = NormalizeSponsors(sponsors)

	logger.WithFields(logrus.Fields{
		"students": len(fs.students),
		"courses":  len(fs.content),
		"sponsors": len(fs.sponsors),
	}).Info("Loaded flat-file data source")

	return fs, nil
}

func (f *FileStore) GetAllStudents(ctx context.Context) ([]models.Student, error) {
	out := make([]models.Student, len(f.students))
	copy(out, f.students)
	return out, nil
}

func (f *FileStore) GetAllContent(ctx context.Context) ([]models.Course, error) {
	out := make([]models.Course, len(f.content))
	copy(out, f.content)
	return out, nil
}

func (f *FileStore) GetAllSponsors(ctx context.Context) ([]models.Sponsor, error) {
	out := make([]models.Sponsor, len(f.sponsors))
	copy(out, f.sponsors)
	return out, nil
}

func (f *FileStore) GetStudentProfile(ctx context.Context, studentID string) (*models.Student, error) {
	for i := range f.students {
		if f.students[i].StudentID == studentID {
			s := f.students[i]
			return &s, nil
		}
	}
	return nil, nil
}

func (f *FileStore) SaveRecommendations(ctx context.Context, studentID string, record *models.RecommendationRecord, extra map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved[studentID] = record
	return nil
}

// ExportJSONL writes all saved records to path, one JSON object per line.
func (f *FileStore) ExportJSONL(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	for _, record := range f.saved {
		data, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("failed to marshal record for %s: %w", record.StudentID, err)
		}
		if _, err := w.Write(append(data, '\n')); err != nil {
			return err
		}
	}
	return w.Flush()
}

// ---- file readers ----

func loadStudentsFile(path string) ([]models.Student, error) {
	if isJSON(path) {
		var students []models.Student
		if err := readJSONFile(path, &students); err != nil {
			return nil, err
		}
		return students, nil
	}

	rows, header, err := readCSVFile(path)
	if err != nil {
		return nil, err
	}
	students := make([]models.Student, 0, len(rows))
	for _, row := range rows {
		get := fieldGetter(header, row)
		s := models.Student{
			StudentID:        get("student_id"),
			Interests:        SplitList(get("interests")),
			CompletedCourses: SplitList(get("completed_courses")),
			ClickedCourses:   SplitList(get("clicked_courses")),
			Profile: models.StudentProfile{
				Department: get("department"),
				Major:      get("major"),
			},
		}
		if gpa, err := strconv.ParseFloat(get("gpa"), 64); err == nil {
			s.Profile.GPA = &gpa
		}
		if year, err := strconv.Atoi(get("year")); err == nil {
			s.Profile.Year = &year
		}
		students = append(students, s)
	}
	return students, nil
}

func loadCoursesFile(path string) ([]models.Course, error) {
	if isJSON(path) {
		var courses []models.Course
		if err := readJSONFile(path, &courses); err != nil {
			return nil, err
		}
		return courses, nil
	}

	rows, header, err := readCSVFile(path)
	if err != nil {
		return nil, err
	}
	courses := make([]models.Course, 0, len(rows))
	for _, row := range rows {
		get := fieldGetter(header, row)
		courses = append(courses, models.Course{
			CourseID:    get("course_id"),
			Title:       get("title"),
			Description: get("description"),
			Tags:        SplitList(get("tags")),
		})
	}
	return courses, nil
}

func loadSponsorsFile(path string) ([]models.Sponsor, error) {
	if isJSON(path) {
		var sponsors []models.Sponsor
		if err := readJSONFile(path, &sponsors); err != nil {
			return nil, err
		}
		return sponsors, nil
	}

	rows, header, err := readCSVFile(path)
	if err != nil {
		return nil, err
	}
	sponsors := make([]models.Sponsor, 0, len(rows))
	for _, row := range rows {
		get := fieldGetter(header, row)
		sp := models.Sponsor{
			SponsorID:   get("sponsor_id"),
			Name:        get("name"),
			Description: get("description"),
			Criteria: models.SponsorCriteria{
				RequiredDepartment: get("required_department"),
			},
		}
		if minGPA, err := strconv.ParseFloat(get("min_gpa"), 64); err == nil {
			sp.Criteria.MinGPA = &minGPA
		}
		if minYear, err := strconv.Atoi(get("min_year")); err == nil {
			sp.Criteria.MinYear = &minYear
		}
		sponsors = append(sponsors, sp)
	}
	return sponsors, nil
}

func isJSON(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}

func readJSONFile(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

func readCSVFile(path string) (rows [][]string, header map[string]int, err error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	all, err := reader.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(all) == 0 {
		return nil, map[string]int{}, nil
	}

	header = make(map[string]int, len(all[0]))
	for i, name := range all[0] {
		header[strings.ToLower(strings.TrimSpace(name))] = i
	}
	return all[1:], header, nil
}

func fieldGetter(header map[string]int, row []string) func(string) string {
	return func(name string) string {
		idx, ok := header[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}
}
