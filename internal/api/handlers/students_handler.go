package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/girijasivakumar242/IARS/internal/ingestion"
	authmw "github.com/girijasivakumar242/IARS/internal/middleware/auth"
	"github.com/girijasivakumar242/IARS/internal/scoring"
	"github.com/girijasivakumar242/IARS/internal/storage/sqlite"
	"github.com/girijasivakumar242/IARS/internal/students"
	"github.com/girijasivakumar242/IARS/pkg/logger"
)

type StudentsHandler struct {
	engine *students.Engine
}

func NewStudentsHandler(engine *students.Engine) *StudentsHandler {
	return &StudentsHandler{
		engine: engine,
	}
}

type studentRequest struct {
	Name          string  `json:"name"`
	RollNo        string  `json:"rollNo"`
	Attendance    float64 `json:"attendance"`
	InternalMarks float64 `json:"internalMarks"`
	CGPA          float64 `json:"cgpa"`
}

func (h *StudentsHandler) ListStudents(c *fiber.Ctx) error {
	list, err := h.engine.List(c.Context(), authmw.TeacherID(c))
	if err != nil {
		return h.respondError(c, err)
	}

	return c.JSON(list)
}

func (h *StudentsHandler) AddStudent(c *fiber.Ctx) error {
	var req studentRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Debug("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid student data",
		})
	}

	student, err := h.engine.Create(
		c.Context(),
		authmw.TeacherID(c),
		req.Name,
		req.RollNo,
		students.Features{
			Attendance:    req.Attendance,
			InternalMarks: req.InternalMarks,
			CGPA:          req.CGPA,
		},
	)
	if err != nil {
		return h.respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(student)
}

func (h *StudentsHandler) UpdateStudent(c *fiber.Ctx) error {
	var req studentRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Debug("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid student data",
		})
	}

	student, err := h.engine.Update(
		c.Context(),
		authmw.TeacherID(c),
		c.Params("id"),
		students.Features{
			Attendance:    req.Attendance,
			InternalMarks: req.InternalMarks,
			CGPA:          req.CGPA,
		},
	)
	if err != nil {
		return h.respondError(c, err)
	}

	return c.JSON(student)
}

func (h *StudentsHandler) DeleteStudent(c *fiber.Ctx) error {
	if err := h.engine.Delete(c.Context(), authmw.TeacherID(c), c.Params("id")); err != nil {
		return h.respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Deleted successfully",
	})
}

// UploadStudentSheet imports a CSV of students. Bad rows are skipped rather
// than failing the batch; the response carries the per-row outcome counts.
func (h *StudentsHandler) UploadStudentSheet(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "No file uploaded",
		})
	}

	file, err := fileHeader.Open()
	if err != nil {
		logger.Error("Failed to open uploaded file", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Failed to read uploaded file",
		})
	}
	defer file.Close()

	rows, err := ingestion.ParseCSV(file)
	if err != nil {
		return h.respondError(c, err)
	}

	summary, err := h.engine.BulkImport(c.Context(), authmw.TeacherID(c), rows)
	if err != nil {
		return h.respondError(c, err)
	}

	return c.JSON(summary)
}

func (h *StudentsHandler) GetAnalyticsSummary(c *fiber.Ctx) error {
	summary, err := h.engine.Summarize(c.Context(), authmw.TeacherID(c))
	if err != nil {
		return h.respondError(c, err)
	}

	return c.JSON(summary)
}

func (h *StudentsHandler) respondError(c *fiber.Ctx, err error) error {
	var verr *students.ValidationError
	switch {
	case errors.As(err, &verr):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": verr.Error(),
		})
	case errors.Is(err, ingestion.ErrSourceUnreadable):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Uploaded sheet is not readable",
		})
	case errors.Is(err, sqlite.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": "Student not found",
		})
	case errors.Is(err, scoring.ErrUnavailable):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"message": "Risk scoring unavailable",
		})
	default:
		logger.Error("Student operation failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Internal server error",
		})
	}
}
