package students

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/girijasivakumar242/IARS/internal/ingestion"
	"github.com/girijasivakumar242/IARS/internal/metrics"
	"github.com/girijasivakumar242/IARS/internal/scoring"
	"github.com/girijasivakumar242/IARS/internal/storage/models"
	"github.com/girijasivakumar242/IARS/internal/storage/sqlite"
	"github.com/girijasivakumar242/IARS/pkg/logger"
)

// Notifier is the change fan-out the engine fires after every successful
// mutation. Broadcast must never block and cannot fail an operation.
type Notifier interface {
	Broadcast()
}

// ValidationError reports input rejected before any scoring or store write.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid student data: " + e.Reason
}

// Features are the three numeric inputs to the scorer.
type Features struct {
	Attendance    float64
	InternalMarks float64
	CGPA          float64
}

// Engine sequences validate, score, persist and notify for student records.
// It holds no state across calls; the store, scorer and notifier are injected
// at construction.
type Engine struct {
	db       *sqlite.Client
	scorer   scoring.Scorer
	notifier Notifier
}

func NewEngine(db *sqlite.Client, scorer scoring.Scorer, notifier Notifier) *Engine {
	return &Engine{
		db:       db,
		scorer:   scorer,
		notifier: notifier,
	}
}

// Create scores a new student and persists features and risk fields in one
// write. A scoring failure means nothing is persisted and nothing is
// broadcast.
func (e *Engine) Create(ctx context.Context, teacherID, name, rollNo string, f Features) (*models.Student, error) {
	name = strings.TrimSpace(name)
	rollNo = strings.TrimSpace(rollNo)

	if name == "" {
		return nil, &ValidationError{Reason: "name is required"}
	}
	if rollNo == "" {
		return nil, &ValidationError{Reason: "rollNo is required"}
	}
	if err := validateFeatures(f); err != nil {
		return nil, err
	}

	result, err := e.scorer.Score(ctx, f.Attendance, f.InternalMarks, f.CGPA)
	if err != nil {
		return nil, fmt.Errorf("score student: %w", err)
	}

	now := time.Now().UTC().Truncate(time.Second)
	student := &models.Student{
		ID:            uuid.New().String(),
		TeacherID:     teacherID,
		Name:          name,
		RollNo:        rollNo,
		Attendance:    f.Attendance,
		InternalMarks: f.InternalMarks,
		CGPA:          f.CGPA,
		RiskLevel:     result.RiskLevel,
		Suggestion:    result.Suggestion,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := e.db.InsertStudent(ctx, student); err != nil {
		return nil, err
	}

	e.notifier.Broadcast()

	logger.Info("Student created",
		zap.String("student_id", student.ID),
		zap.String("teacher_id", teacherID),
		zap.String("risk_level", student.RiskLevel),
	)

	return student, nil
}

// Update rescores an existing student and rewrites its feature and risk
// fields in one statement. Name, roll number and owner are untouched. If
// scoring fails the stored row is left exactly as it was.
func (e *Engine) Update(ctx context.Context, teacherID, id string, f Features) (*models.Student, error) {
	student, err := e.db.GetStudent(ctx, id, teacherID)
	if err != nil {
		return nil, err
	}

	if err := validateFeatures(f); err != nil {
		return nil, err
	}

	result, err := e.scorer.Score(ctx, f.Attendance, f.InternalMarks, f.CGPA)
	if err != nil {
		return nil, fmt.Errorf("rescore student: %w", err)
	}

	student.Attendance = f.Attendance
	student.InternalMarks = f.InternalMarks
	student.CGPA = f.CGPA
	student.RiskLevel = result.RiskLevel
	student.Suggestion = result.Suggestion
	student.UpdatedAt = time.Now().UTC().Truncate(time.Second)

	if err := e.db.UpdateStudentScores(ctx, student); err != nil {
		return nil, err
	}

	e.notifier.Broadcast()

	logger.Info("Student rescored",
		zap.String("student_id", student.ID),
		zap.String("risk_level", student.RiskLevel),
	)

	return student, nil
}

// Delete removes a student regardless of scoring state. Deleting an unknown
// id reports not-found and triggers no notification.
func (e *Engine) Delete(ctx context.Context, teacherID, id string) error {
	if err := e.db.DeleteStudent(ctx, id, teacherID); err != nil {
		return err
	}

	e.notifier.Broadcast()

	logger.Info("Student deleted", zap.String("student_id", id), zap.String("teacher_id", teacherID))
	return nil
}

func (e *Engine) List(ctx context.Context, teacherID string) ([]models.Student, error) {
	return e.db.ListStudents(ctx, teacherID)
}

// Summarize aggregates the caller's current records at read time. No caching.
func (e *Engine) Summarize(ctx context.Context, teacherID string) (*models.RiskSummary, error) {
	return e.db.CountByRisk(ctx, teacherID)
}

// BulkImport processes rows strictly in order, one scoring process at a time,
// which bounds subprocess fan-out at the cost of O(n) latency. Invalid rows
// and rows whose scoring fails are skipped; each scored row is persisted
// immediately so concurrent readers see partial progress. Exactly one change
// notification goes out once the batch ends, however it ends.
func (e *Engine) BulkImport(ctx context.Context, teacherID string, rows []ingestion.RawRow) (*models.ImportSummary, error) {
	summary := &models.ImportSummary{}
	defer e.notifier.Broadcast()

	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		name, rollNo, f, err := parseRow(row)
		if err != nil {
			summary.SkippedInvalid++
			metrics.StudentsImported.WithLabelValues("skipped_invalid").Inc()
			logger.Debug("Bulk row skipped as invalid", zap.Int("row", i), zap.Error(err))
			continue
		}

		result, err := e.scorer.Score(ctx, f.Attendance, f.InternalMarks, f.CGPA)
		if err != nil {
			summary.SkippedScoring++
			metrics.StudentsImported.WithLabelValues("skipped_scoring").Inc()
			logger.Debug("Bulk row skipped, scoring failed", zap.Int("row", i), zap.Error(err))
			continue
		}

		now := time.Now().UTC().Truncate(time.Second)
		student := &models.Student{
			ID:            uuid.New().String(),
			TeacherID:     teacherID,
			Name:          name,
			RollNo:        rollNo,
			Attendance:    f.Attendance,
			InternalMarks: f.InternalMarks,
			CGPA:          f.CGPA,
			RiskLevel:     result.RiskLevel,
			Suggestion:    result.Suggestion,
			CreatedAt:     now,
			UpdatedAt:     now,
		}

		if err := e.db.InsertStudent(ctx, student); err != nil {
			// Store failures are not per-row noise; they abort the batch.
			return summary, err
		}

		summary.Imported++
		metrics.StudentsImported.WithLabelValues("imported").Inc()
	}

	logger.Info("Bulk import finished",
		zap.String("teacher_id", teacherID),
		zap.Int("imported", summary.Imported),
		zap.Int("skipped_invalid", summary.SkippedInvalid),
		zap.Int("skipped_scoring", summary.SkippedScoring),
	)

	return summary, nil
}

func validateFeatures(f Features) error {
	checks := []struct {
		field string
		value float64
	}{
		{"attendance", f.Attendance},
		{"internalMarks", f.InternalMarks},
		{"cgpa", f.CGPA},
	}
	for _, c := range checks {
		if math.IsNaN(c.value) || math.IsInf(c.value, 0) {
			return &ValidationError{Reason: c.field + " must be a finite number"}
		}
	}
	return nil
}

func parseRow(row ingestion.RawRow) (name, rollNo string, f Features, err error) {
	name = strings.TrimSpace(row.Name)
	rollNo = strings.TrimSpace(row.RollNo)

	if name == "" || rollNo == "" {
		return "", "", Features{}, fmt.Errorf("missing name or rollNo")
	}

	f.Attendance, err = parseFeature(row.Attendance)
	if err != nil {
		return "", "", Features{}, fmt.Errorf("attendance: %w", err)
	}
	f.InternalMarks, err = parseFeature(row.InternalMarks)
	if err != nil {
		return "", "", Features{}, fmt.Errorf("internalMarks: %w", err)
	}
	f.CGPA, err = parseFeature(row.CGPA)
	if err != nil {
		return "", "", Features{}, fmt.Errorf("cgpa: %w", err)
	}

	return name, rollNo, f, nil
}

func parseFeature(raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", raw)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("not finite: %q", raw)
	}
	return v, nil
}
