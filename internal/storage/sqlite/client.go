package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/girijasivakumar242/IARS/internal/storage/models"
	"github.com/girijasivakumar242/IARS/pkg/logger"
)

// ErrNotFound is returned when a row targeted by id does not exist or is not
// visible to the requesting teacher.
var ErrNotFound = errors.New("record not found")

type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS teachers (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_teachers_email ON teachers(email);

	CREATE TABLE IF NOT EXISTS students (
		id TEXT PRIMARY KEY,
		teacher_id TEXT NOT NULL,
		name TEXT NOT NULL,
		roll_no TEXT NOT NULL,
		attendance REAL NOT NULL,
		internal_marks REAL NOT NULL,
		cgpa REAL NOT NULL,
		risk_level TEXT NOT NULL,
		suggestion TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		FOREIGN KEY (teacher_id) REFERENCES teachers(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_students_teacher ON students(teacher_id);
	CREATE INDEX IF NOT EXISTS idx_students_created ON students(created_at);
	`

	_, err := c.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}

// InsertStudent writes a fully scored student in one statement; features and
// risk fields land together or not at all.
func (c *Client) InsertStudent(ctx context.Context, s *models.Student) error {
	query := `
		INSERT INTO students (id, teacher_id, name, roll_no, attendance, internal_marks, cgpa,
			risk_level, suggestion, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := c.db.ExecContext(
		ctx,
		query,
		s.ID,
		s.TeacherID,
		s.Name,
		s.RollNo,
		s.Attendance,
		s.InternalMarks,
		s.CGPA,
		s.RiskLevel,
		s.Suggestion,
		s.CreatedAt.Unix(),
		s.UpdatedAt.Unix(),
	)

	if err != nil {
		return fmt.Errorf("failed to insert student: %w", err)
	}

	logger.Debug("Student inserted",
		zap.String("student_id", s.ID),
		zap.String("risk_level", s.RiskLevel),
	)
	return nil
}

func (c *Client) GetStudent(ctx context.Context, id, teacherID string) (*models.Student, error) {
	query := `
		SELECT id, teacher_id, name, roll_no, attendance, internal_marks, cgpa,
			risk_level, suggestion, created_at, updated_at
		FROM students
		WHERE id = ? AND teacher_id = ?
	`

	var s models.Student
	var createdAt, updatedAt int64

	err := c.db.QueryRowContext(ctx, query, id, teacherID).Scan(
		&s.ID,
		&s.TeacherID,
		&s.Name,
		&s.RollNo,
		&s.Attendance,
		&s.InternalMarks,
		&s.CGPA,
		&s.RiskLevel,
		&s.Suggestion,
		&createdAt,
		&updatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get student: %w", err)
	}

	s.CreatedAt = time.Unix(createdAt, 0).UTC()
	s.UpdatedAt = time.Unix(updatedAt, 0).UTC()

	return &s, nil
}

// UpdateStudentScores rewrites the feature and risk fields of one row in a
// single statement. Name, roll number and owner are never touched here.
func (c *Client) UpdateStudentScores(ctx context.Context, s *models.Student) error {
	query := `
		UPDATE students
		SET attendance = ?, internal_marks = ?, cgpa = ?, risk_level = ?, suggestion = ?, updated_at = ?
		WHERE id = ? AND teacher_id = ?
	`

	res, err := c.db.ExecContext(
		ctx,
		query,
		s.Attendance,
		s.InternalMarks,
		s.CGPA,
		s.RiskLevel,
		s.Suggestion,
		s.UpdatedAt.Unix(),
		s.ID,
		s.TeacherID,
	)

	if err != nil {
		return fmt.Errorf("failed to update student: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	logger.Debug("Student rescored",
		zap.String("student_id", s.ID),
		zap.String("risk_level", s.RiskLevel),
	)
	return nil
}

func (c *Client) DeleteStudent(ctx context.Context, id, teacherID string) error {
	res, err := c.db.ExecContext(ctx, `DELETE FROM students WHERE id = ? AND teacher_id = ?`, id, teacherID)
	if err != nil {
		return fmt.Errorf("failed to delete student: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

func (c *Client) ListStudents(ctx context.Context, teacherID string) ([]models.Student, error) {
	query := `
		SELECT id, teacher_id, name, roll_no, attendance, internal_marks, cgpa,
			risk_level, suggestion, created_at, updated_at
		FROM students
		WHERE teacher_id = ?
		ORDER BY created_at DESC, id
	`

	rows, err := c.db.QueryContext(ctx, query, teacherID)
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	defer rows.Close()

	students := make([]models.Student, 0)
	for rows.Next() {
		var s models.Student
		var createdAt, updatedAt int64

		err := rows.Scan(
			&s.ID,
			&s.TeacherID,
			&s.Name,
			&s.RollNo,
			&s.Attendance,
			&s.InternalMarks,
			&s.CGPA,
			&s.RiskLevel,
			&s.Suggestion,
			&createdAt,
			&updatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		s.CreatedAt = time.Unix(createdAt, 0).UTC()
		s.UpdatedAt = time.Unix(updatedAt, 0).UTC()
		students = append(students, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate students: %w", err)
	}

	return students, nil
}

// CountByRisk aggregates the current rows for one teacher at read time.
func (c *Client) CountByRisk(ctx context.Context, teacherID string) (*models.RiskSummary, error) {
	query := `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN risk_level = 'High' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN risk_level = 'Medium' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN risk_level = 'Low' THEN 1 ELSE 0 END), 0)
		FROM students
		WHERE teacher_id = ?
	`

	var summary models.RiskSummary
	err := c.db.QueryRowContext(ctx, query, teacherID).Scan(
		&summary.Total,
		&summary.High,
		&summary.Medium,
		&summary.Low,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to count students by risk: %w", err)
	}

	return &summary, nil
}

func (c *Client) CreateTeacher(ctx context.Context, t *models.Teacher) error {
	query := `INSERT INTO teachers (id, name, email, password_hash, created_at) VALUES (?, ?, ?, ?, ?)`

	_, err := c.db.ExecContext(ctx, query, t.ID, t.Name, t.Email, t.PasswordHash, t.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to create teacher: %w", err)
	}

	logger.Info("Teacher created", zap.String("teacher_id", t.ID), zap.String("email", t.Email))
	return nil
}

func (c *Client) GetTeacherByEmail(ctx context.Context, email string) (*models.Teacher, error) {
	query := `SELECT id, name, email, password_hash, created_at FROM teachers WHERE email = ?`

	var t models.Teacher
	var createdAt int64

	err := c.db.QueryRowContext(ctx, query, email).Scan(&t.ID, &t.Name, &t.Email, &t.PasswordHash, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get teacher: %w", err)
	}

	t.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &t, nil
}
