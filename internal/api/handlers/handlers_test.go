package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/girijasivakumar242/IARS/internal/auth"
	authmw "github.com/girijasivakumar242/IARS/internal/middleware/auth"
	"github.com/girijasivakumar242/IARS/internal/notify"
	"github.com/girijasivakumar242/IARS/internal/scoring"
	"github.com/girijasivakumar242/IARS/internal/storage/models"
	"github.com/girijasivakumar242/IARS/internal/storage/sqlite"
	"github.com/girijasivakumar242/IARS/internal/students"
)

type testScorer struct {
	fail bool
}

func (s *testScorer) Score(_ context.Context, attendance, _, _ float64) (*scoring.Result, error) {
	if s.fail {
		return nil, scoring.ErrUnavailable
	}
	level := models.RiskLow
	if attendance < 50 {
		level = models.RiskHigh
	}
	return &scoring.Result{RiskLevel: level, Suggestion: "Keep attending classes."}, nil
}

func newTestApp(t *testing.T) (*fiber.App, *testScorer) {
	t.Helper()

	db, err := sqlite.NewClient(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.InitSchema())

	scorer := &testScorer{}
	hub := notify.NewHub()
	engine := students.NewEngine(db, scorer, hub)
	authSvc := auth.NewService(db, "test-secret", time.Hour, nil)

	app := fiber.New()

	authHandler := NewAuthHandler(authSvc)
	studentsHandler := NewStudentsHandler(engine)

	api := app.Group("/api")
	api.Post("/auth/signup", authHandler.Signup)
	api.Post("/auth/login", authHandler.Login)
	api.Post("/auth/logout", authmw.Middleware(authSvc), authHandler.Logout)

	studentsAPI := api.Group("/students", authmw.Middleware(authSvc))
	studentsAPI.Get("/", studentsHandler.ListStudents)
	studentsAPI.Post("/add", studentsHandler.AddStudent)
	studentsAPI.Post("/upload", studentsHandler.UploadStudentSheet)
	studentsAPI.Get("/analytics/summary", studentsHandler.GetAnalyticsSummary)
	studentsAPI.Put("/:id", studentsHandler.UpdateStudent)
	studentsAPI.Delete("/:id", studentsHandler.DeleteStudent)

	return app, scorer
}

func signupTeacher(t *testing.T, app *fiber.App) string {
	t.Helper()

	resp := doJSON(t, app, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"name":     "Priya",
		"email":    "priya@school.test",
		"password": "s3cret",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var body struct {
		Token string `json:"token"`
	}
	decodeBody(t, resp, &body)
	require.NotEmpty(t, body.Token)
	return body.Token
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, payload interface{}) *http.Response {
	t.Helper()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, body)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}

	resp, err := app.Test(req, 5000)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func TestAuthFlow(t *testing.T) {
	app, _ := newTestApp(t)
	signupTeacher(t, app)

	resp := doJSON(t, app, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "priya@school.test",
		"password": "s3cret",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, app, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "priya@school.test",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestStudentRoutesRequireAuth(t *testing.T) {
	app, _ := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/api/students/", nil)
	resp, err := app.Test(req, 5000)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAddListAndSummarize(t *testing.T) {
	app, _ := newTestApp(t)
	token := signupTeacher(t, app)

	resp := doJSON(t, app, http.MethodPost, "/api/students/add", token, map[string]interface{}{
		"name":          "Asha",
		"rollNo":        "21CS042",
		"attendance":    45,
		"internalMarks": 30,
		"cgpa":          5.2,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created models.Student
	decodeBody(t, resp, &created)
	assert.Equal(t, models.RiskHigh, created.RiskLevel)
	assert.NotEmpty(t, created.Suggestion)

	resp = doJSON(t, app, http.MethodGet, "/api/students/", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []models.Student
	decodeBody(t, resp, &list)
	require.Len(t, list, 1)

	resp = doJSON(t, app, http.MethodGet, "/api/students/analytics/summary", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var summary models.RiskSummary
	decodeBody(t, resp, &summary)
	assert.Equal(t, models.RiskSummary{Total: 1, High: 1, Medium: 0, Low: 0}, summary)
}

func TestAddStudentScoringUnavailable(t *testing.T) {
	app, scorer := newTestApp(t)
	token := signupTeacher(t, app)
	scorer.fail = true

	resp := doJSON(t, app, http.MethodPost, "/api/students/add", token, map[string]interface{}{
		"name":          "Asha",
		"rollNo":        "21CS042",
		"attendance":    45,
		"internalMarks": 30,
		"cgpa":          5.2,
	})
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	scorer.fail = false
	resp = doJSON(t, app, http.MethodGet, "/api/students/analytics/summary", token, nil)
	var summary models.RiskSummary
	decodeBody(t, resp, &summary)
	assert.Zero(t, summary.Total, "failed scoring must leave the record count unchanged")
}

func TestAddStudentValidation(t *testing.T) {
	app, _ := newTestApp(t)
	token := signupTeacher(t, app)

	resp := doJSON(t, app, http.MethodPost, "/api/students/add", token, map[string]interface{}{
		"name":          "",
		"rollNo":        "21CS042",
		"attendance":    45,
		"internalMarks": 30,
		"cgpa":          5.2,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUpdateAndDeleteUnknownStudent(t *testing.T) {
	app, _ := newTestApp(t)
	token := signupTeacher(t, app)

	resp := doJSON(t, app, http.MethodPut, "/api/students/no-such-id", token, map[string]interface{}{
		"attendance":    45,
		"internalMarks": 30,
		"cgpa":          5.2,
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = doJSON(t, app, http.MethodDelete, "/api/students/no-such-id", token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUploadStudentSheet(t *testing.T) {
	app, _ := newTestApp(t)
	token := signupTeacher(t, app)

	csv := "name,rollNo,attendance,internalMarks,cgpa\n" +
		"Asha,r1,45,30,5.2\n" +
		"Bilal,r2,ninety,80,9.0\n" +
		"Divya,r3,85,75,8.5\n"

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "students.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte(csv))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/students/upload", &buf)
	req.Header.Set(fiber.HeaderContentType, writer.FormDataContentType())
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)

	resp, err := app.Test(req, 5000)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var summary models.ImportSummary
	decodeBody(t, resp, &summary)
	assert.Equal(t, models.ImportSummary{Imported: 2, SkippedInvalid: 1, SkippedScoring: 0}, summary)

	resp = doJSON(t, app, http.MethodGet, "/api/students/", token, nil)
	var list []models.Student
	decodeBody(t, resp, &list)
	assert.Len(t, list, 2)
}

func TestUploadWithoutFile(t *testing.T) {
	app, _ := newTestApp(t)
	token := signupTeacher(t, app)

	resp := doJSON(t, app, http.MethodPost, "/api/students/upload", token, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestOwnersAreIsolated(t *testing.T) {
	app, _ := newTestApp(t)
	token := signupTeacher(t, app)

	resp := doJSON(t, app, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"name":     "Rahul",
		"email":    "rahul@school.test",
		"password": "s3cret",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var other struct {
		Token string `json:"token"`
	}
	decodeBody(t, resp, &other)

	resp = doJSON(t, app, http.MethodPost, "/api/students/add", token, map[string]interface{}{
		"name":          "Asha",
		"rollNo":        "21CS042",
		"attendance":    85,
		"internalMarks": 70,
		"cgpa":          8.0,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created models.Student
	decodeBody(t, resp, &created)

	// The other teacher sees an empty roster and cannot touch the record.
	resp = doJSON(t, app, http.MethodGet, "/api/students/", other.Token, nil)
	var list []models.Student
	decodeBody(t, resp, &list)
	assert.Empty(t, list)

	resp = doJSON(t, app, http.MethodDelete, fmt.Sprintf("/api/students/%s", created.ID), other.Token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
