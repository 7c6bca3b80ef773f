package datasource

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"

	"github.com/coursewise/coursewise/pkg/models"
)

// Ingestor bulk-loads flat files into the Postgres document store. Each
// collection is replaced wholesale, matching the upstream export cadence.
type Ingestor struct {
	db     DatabaseQuerier
	logger *logrus.Logger
}

func NewIngestor(db DatabaseQuerier, logger *logrus.Logger) *Ingestor {
	return &Ingestor{db: db, logger: logger}
}

// LoadFiles reads students/content/sponsors from the given paths (JSON or
// CSV) and replaces the corresponding collections.
func (ing *Ingestor) LoadFiles(ctx context.Context, studentsPath, contentPath, sponsorsPath string) error {
	students, err := loadStudentsFile(studentsPath)
	if err != nil {
		return fmt.Errorf("failed to read students: %w", err)
	}
	if err := ing.replaceStudents(ctx, NormalizeStudents(students)); err != nil {
		return err
	}

	courses, err := loadCoursesFile(contentPath)
	if err != nil {
		return fmt.Errorf("failed to read content: %w", err)
	}
	if err := ing.replaceContent(ctx, NormalizeCourses(courses)); err != nil {
		return err
	}

	sponsors, err := loadSponsorsFile(sponsorsPath)
	if err != nil {
		ing.logger.WithError(err).Warn("Sponsors file unavailable, collection left unchanged")
		return nil
	}
	return ing.replaceSponsors(ctx, NormalizeSponsors(sponsors))
}

func (ing *Ingestor) replaceStudents(ctx context.Context, students []models.Student) error {
	if _, err := ing.db.Exec(ctx, `TRUNCATE students`); err != nil {
		return fmt.Errorf("failed to truncate students: %w", err)
	}
	for _, s := range students {
		doc, err := json.Marshal(s)
		if err != nil {
			return err
		}
		if _, err := ing.db.Exec(ctx,
			`INSERT INTO students (student_id, doc) VALUES ($1, $2)
			 ON CONFLICT (student_id) DO UPDATE SET doc = EXCLUDED.doc`,
			s.StudentID, doc); err != nil {
			return fmt.Errorf("failed to insert student %s: %w", s.StudentID, err)
		}
	}
	ing.logger.WithField("count", len(students)).Info("Ingested students")
	return nil
}

func (ing *Ingestor) replaceContent(ctx context.Context, courses []models.Course) error {
	if _, err := ing.db.Exec(ctx, `TRUNCATE content`); err != nil {
		return fmt.Errorf("failed to truncate content: %w", err)
	}
	for _, c := range courses {
		doc, err := json.Marshal(c)
		if err != nil {
			return err
		}
		if _, err := ing.db.Exec(ctx,
			`INSERT INTO content (course_id, doc) VALUES ($1, $2)
			 ON CONFLICT (course_id) DO UPDATE SET doc = EXCLUDED.doc`,
			c.CourseID, doc); err != nil {
			return fmt.Errorf("failed to insert course %s: %w", c.CourseID, err)
		}
	}
	ing.logger.WithField("count", len(courses)).Info("Ingested courses")
	return nil
}

func (ing *Ingestor) replaceSponsors(ctx context.Context, sponsors []models.Sponsor) error {
	if _, err := ing.db.Exec(ctx, `TRUNCATE sponsors`); err != nil {
		return fmt.Errorf("failed to truncate sponsors: %w", err)
	}
	for _, sp := range sponsors {
		doc, err := json.Marshal(sp)
		if err != nil {
			return err
		}
		if _, err := ing.db.Exec(ctx,
			`INSERT INTO sponsors (sponsor_id, doc) VALUES ($1, $2)
			 ON CONFLICT (sponsor_id) DO UPDATE SET doc = EXCLUDED.doc`,
			sp.SponsorID, doc); err != nil {
			return fmt.Errorf("failed to insert sponsor %s: %w", sp.SponsorID, err)
		}
	}
	ing.logger.WithField("count", len(sponsors)).Info("Ingested sponsors")
	return nil
}
