package datasource

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/coursewise/coursewise/pkg/models"
)

// DatabaseQuerier is the slice of pgxpool.Pool the store needs; pgxmock
// implements it for tests.
type DatabaseQuerier interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// PostgresStore is the document-store connector: one JSONB document per
// entity, keyed by its natural id.
type PostgresStore struct {
	db     DatabaseQuerier
	logger *logrus.Logger
}

func NewPostgresStore(db DatabaseQuerier, logger *logrus.Logger) *PostgresStore {
	return &PostgresStore{db: db, logger: logger}
}

// NewPostgresStoreFromURL connects a pool and ensures the schema exists.
func NewPostgresStoreFromURL(ctx context.Context, url string, logger *logrus.Logger) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	store := NewPostgresStore(pool, logger)
	if err := store.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

// DB exposes the underlying querier for collaborators such as the ingestor.
func (p *PostgresStore) DB() DatabaseQuerier {
	return p.db
}

// Close releases the underlying pool, if the store owns one.
func (p *PostgresStore) Close() {
	if pool, ok := p.db.(*pgxpool.Pool); ok {
		pool.Close()
	}
}

// EnsureSchema creates the document tables when missing.
func (p *PostgresStore) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS students (student_id TEXT PRIMARY KEY, doc JSONB NOT NULL)`,
		`CREATE TABLE IF NOT EXISTS content (course_id TEXT PRIMARY KEY, doc JSONB NOT NULL)`,
		`CREATE TABLE IF NOT EXISTS sponsors (sponsor_id TEXT PRIMARY KEY, doc JSONB NOT NULL)`,
		`CREATE TABLE IF NOT EXISTS recommendations (student_id TEXT PRIMARY KEY, doc JSONB NOT NULL, created_at TIMESTAMPTZ NOT NULL DEFAULT now())`,
	}
	for _, stmt := range statements {
		if _, err := p.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}

func (p *PostgresStore) GetAllStudents(ctx context.Context) ([]models.Student, error) {
	rows, err := p.db.Query(ctx, `SELECT doc FROM students ORDER BY student_id`)
	if err != nil {
		return nil, fmt.Errorf("students query failed: %w", err)
	}
	defer rows.Close()

	var students []models.Student
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			p.logger.WithError(err).Warn("Skipping unreadable student row")
			continue
		}
		var s models.Student
		if err := json.Unmarshal(raw, &s); err != nil {
			p.logger.WithError(err).Warn("Skipping malformed student document")
			continue
		}
		students = append(students, s)
	}
	return NormalizeStudents(students), rows.Err()
}

func (p *PostgresStore) GetAllContent(ctx context.Context) ([]models.Course, error) {
	rows, err := p.db.Query(ctx, `SELECT doc FROM content ORDER BY course_id`)
	if err != nil {
		return nil, fmt.Errorf("content query failed: %w", err)
	}
	defer rows.Close()

	var courses []models.Course
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			p.logger.WithError(err).Warn("Skipping unreadable content row")
			continue
		}
		var c models.Course
		if err := json.Unmarshal(raw, &c); err != nil {
			p.logger.WithError(err).Warn("Skipping malformed course document")
			continue
		}
		courses = append(courses, c)
	}
	return NormalizeCourses(courses), rows.Err()
}

func (p *PostgresStore) GetAllSponsors(ctx context.Context) ([]models.Sponsor, error) {
	rows, err := p.db.Query(ctx, `SELECT doc FROM sponsors ORDER BY sponsor_id`)
	if err != nil {
		return nil, fmt.Errorf("sponsors query failed: %w", err)
	}
	defer rows.Close()

	var sponsors []models.Sponsor
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			p.logger.WithError(err).Warn("Skipping unreadable sponsor row")
			continue
		}
		var sp models.Sponsor
		if err := json.Unmarshal(raw, &sp); err != nil {
			p.logger.WithError(err).Warn("Skipping malformed sponsor document")
			continue
		}
		sponsors = append(sponsors, sp)
	}
	return NormalizeSponsors(sponsors), rows.Err()
}

func (p *PostgresStore) GetStudentProfile(ctx context.Context, studentID string) (*models.Student, error) {
	var raw []byte
	err := p.db.QueryRow(ctx, `SELECT doc FROM students WHERE student_id = $1`, studentID).Scan(&raw)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("student lookup failed: %w", err)
	}

	var s models.Student
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("malformed student document %s: %w", studentID, err)
	}
	return &s, nil
}

func (p *PostgresStore) SaveRecommendations(ctx context.Context, studentID string, record *models.RecommendationRecord, extra map[string]interface{}) error {
	doc, err := recordDocument(record, extra)
	if err != nil {
		return err
	}

	_, err = p.db.Exec(ctx, `
		INSERT INTO recommendations (student_id, doc, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (student_id)
		DO UPDATE SET doc = EXCLUDED.doc, created_at = EXCLUDED.created_at`,
		studentID, doc, record.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert recommendations for %s: %w", studentID, err)
	}
	return nil
}

// recordDocument flattens the record plus any extra metadata into one JSON
// document.
func recordDocument(record *models.RecommendationRecord, extra map[string]interface{}) ([]byte, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal recommendation record: %w", err)
	}
	if len(extra) == 0 {
		return data, nil
	}

	var doc map[string]interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	for k, v := range extra {
		doc[k] = v
	}
	return json.Marshal(doc)
}
