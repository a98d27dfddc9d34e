package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"proacademics-service/internal/models"
	"proacademics-service/internal/repository"
	"proacademics-service/internal/services"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	adminEmail    = "admin@proacademics.test"
	adminPassword = "admin-password"
	cronSecret    = "cron-secret"
)

type apiResponse struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Error   string            `json:"error"`
	Details map[string]string `json:"details"`
}

func newTestApp(t *testing.T, secret string) *fiber.App {
	t.Helper()

	users := repository.NewMemoryStore[models.User]("email")
	lessons := repository.NewMemoryStore[models.Lesson]()
	homework := repository.NewMemoryStore[models.Homework]()
	videos := repository.NewMemoryStore[models.TopicVaultVideo]()
	cache := repository.NoopCache{}

	tokens, err := services.NewTokenService("test-secret", time.Hour)
	require.NoError(t, err)

	leaderboard := services.NewLeaderboardService(users, cache, time.Minute)
	userService := services.NewUserService(users, leaderboard, nil)
	lessonService := services.NewLessonService(lessons, nil, nil)
	homeworkService := services.NewHomeworkService(homework, userService, nil)
	subjectService := services.NewSubjectService(repository.NewMemoryStore[models.Subject](), repository.NewMemoryStore[models.Program]())
	topicVaultService := services.NewTopicVaultService(videos)
	pastPaperService := services.NewPastPaperService(repository.NewMemoryStore[models.PastPaper](), nil)
	statsService := services.NewStatsService(services.StatsSources{
		Users:      userService,
		Lessons:    lessonService,
		Homework:   homeworkService,
		Subjects:   subjectService,
		TopicVault: topicVaultService,
		PastPapers: pastPaperService,
	}, cache, time.Minute)

	require.NoError(t, userService.EnsureAdmin(context.Background(), adminEmail, adminPassword))

	app := fiber.New()
	Register(app, &Services{
		Users:       userService,
		Tokens:      tokens,
		Leaderboard: leaderboard,
		Lessons:     lessonService,
		Homework:    homeworkService,
		Subjects:    subjectService,
		TopicVault:  topicVaultService,
		PastPapers:  pastPaperService,
		Stats:       statsService,
		Imports:     services.NewImportService(homework, lessons, videos, nil),
		Maintenance: services.NewMaintenanceService(homeworkService, lessonService, userService, statsService, nil),
		Tutor:       services.NewTutorService(repository.NewMemoryStore[models.ChatSession](), nil),
	}, Options{CronSecret: secret, MaxUploadSize: 1 << 20})
	return app
}

func doRequest(t *testing.T, app *fiber.App, method, path, token string, body any) (int, apiResponse) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return send(t, app, req)
}

func send(t *testing.T, app *fiber.App, req *http.Request) (int, apiResponse) {
	t.Helper()

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out apiResponse
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func decode[T any](t *testing.T, res apiResponse) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(res.Data, &v))
	return v
}

func login(t *testing.T, app *fiber.App, email, password string) string {
	t.Helper()
	status, res := doRequest(t, app, http.MethodPost, "/api/auth/login", "", models.LoginRequest{
		Email:    email,
		Password: password,
	})
	require.Equal(t, http.StatusOK, status, res.Error)
	return decode[models.LoginResponse](t, res).Token
}

func createStudent(t *testing.T, app *fiber.App, adminToken, email string) *models.User {
	t.Helper()
	status, res := doRequest(t, app, http.MethodPost, "/api/admin/students", adminToken, models.CreateStudentRequest{
		Name:     "Ama Mensah",
		Email:    email,
		Password: "password123",
		Grade:    "10",
	})
	require.Equal(t, http.StatusCreated, status, res.Error)
	user := decode[models.User](t, res)
	return &user
}

func TestLogin(t *testing.T) {
	app := newTestApp(t, cronSecret)

	token := login(t, app, adminEmail, adminPassword)

	status, res := doRequest(t, app, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, status)
	me := decode[models.User](t, res)
	assert.Equal(t, models.RoleAdmin, me.Role)
	assert.Equal(t, adminEmail, me.Email)

	status, res = doRequest(t, app, http.MethodPost, "/api/auth/login", "", models.LoginRequest{
		Email:    adminEmail,
		Password: "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Error)

	status, _ = doRequest(t, app, http.MethodGet, "/api/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestRoleGuards(t *testing.T) {
	app := newTestApp(t, cronSecret)
	adminToken := login(t, app, adminEmail, adminPassword)
	createStudent(t, app, adminToken, "student@proacademics.test")
	studentToken := login(t, app, "student@proacademics.test", "password123")

	tests := []struct {
		name   string
		path   string
		token  string
		status int
	}{
		{"admin route without token", "/api/admin/students", "", http.StatusUnauthorized},
		{"admin route with student token", "/api/admin/students", studentToken, http.StatusForbidden},
		{"admin route with admin token", "/api/admin/students", adminToken, http.StatusOK},
		{"student route with admin token", "/api/student/dashboard", adminToken, http.StatusForbidden},
		{"student route with student token", "/api/student/dashboard", studentToken, http.StatusOK},
		{"garbage token", "/api/student/dashboard", "not-a-jwt", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _ := doRequest(t, app, http.MethodGet, tt.path, tt.token, nil)
			assert.Equal(t, tt.status, status)
		})
	}
}

func TestErrorMapping(t *testing.T) {
	app := newTestApp(t, cronSecret)
	adminToken := login(t, app, adminEmail, adminPassword)

	status, res := doRequest(t, app, http.MethodPost, "/api/admin/students", adminToken, map[string]string{"name": "A"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.False(t, res.Success)
	assert.Contains(t, res.Details, "email")

	status, _ = doRequest(t, app, http.MethodGet, "/api/admin/lessons/not-an-id", adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = doRequest(t, app, http.MethodGet, "/api/admin/lessons/65f0a1b2c3d4e5f6a7b8c9d0", adminToken, nil)
	assert.Equal(t, http.StatusNotFound, status)

	createStudent(t, app, adminToken, "dup@proacademics.test")
	status, _ = doRequest(t, app, http.MethodPost, "/api/admin/students", adminToken, models.CreateStudentRequest{
		Name:     "Someone Else",
		Email:    "DUP@proacademics.test",
		Password: "password123",
	})
	assert.Equal(t, http.StatusConflict, status)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/students", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+adminToken)
	status, _ = send(t, app, req)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestCreateHomeworkKeepsZeroPoints(t *testing.T) {
	app := newTestApp(t, cronSecret)
	adminToken := login(t, app, adminEmail, adminPassword)
	student := createStudent(t, app, adminToken, "zero@proacademics.test")

	status, res := doRequest(t, app, http.MethodPost, "/api/admin/homework", adminToken, map[string]any{
		"title":     "Reading log",
		"subject":   "English",
		"studentId": student.ID,
		"dueDate":   time.Now().Add(48 * time.Hour),
		"questions": []map[string]any{
			{"prompt": "Read chapter 1", "points": 0},
			{"prompt": "Summarise chapter 1"},
		},
	})
	require.Equal(t, http.StatusCreated, status, res.Error)
	hw := decode[models.Homework](t, res)
	require.Len(t, hw.Questions, 2)
	assert.Equal(t, 0, hw.Questions[0].Points)
	assert.Equal(t, models.DefaultQuestionPoints, hw.Questions[1].Points)
	assert.Equal(t, models.DefaultQuestionPoints, hw.MaxScore)
}

func TestLessonDateFilterAcceptsUnencodedOffset(t *testing.T) {
	app := newTestApp(t, cronSecret)
	adminToken := login(t, app, adminEmail, adminPassword)

	var ids []string
	for _, at := range []time.Time{
		time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
		time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
	} {
		status, res := doRequest(t, app, http.MethodPost, "/api/admin/lessons", adminToken, models.CreateLessonRequest{
			Title:       "Mock exam review",
			Subject:     "Mathematics",
			ScheduledAt: at,
		})
		require.Equal(t, http.StatusCreated, status, res.Error)
		ids = append(ids, decode[models.Lesson](t, res).ID)
	}

	// "+" is not percent-encoded, so the server decodes it as a space.
	path := "/api/admin/lessons?from=2025-03-01T09:00:00+01:00&to=2025-03-01T10:30:00+01:00"
	status, res := doRequest(t, app, http.MethodGet, path, adminToken, nil)
	require.Equal(t, http.StatusOK, status, res.Error)
	page := decode[models.Page[models.Lesson]](t, res)
	require.Len(t, page.Items, 1)
	assert.Equal(t, ids[0], page.Items[0].ID)

	status, _ = doRequest(t, app, http.MethodGet, "/api/admin/lessons?from=2025-03-01%2B01:00", adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestStudentHomeworkFlow(t *testing.T) {
	app := newTestApp(t, cronSecret)
	adminToken := login(t, app, adminEmail, adminPassword)
	student := createStudent(t, app, adminToken, "flow@proacademics.test")

	status, res := doRequest(t, app, http.MethodPost, "/api/admin/homework", adminToken, models.CreateHomeworkRequest{
		Title:     "Quadratics",
		Subject:   "Mathematics",
		StudentID: student.ID,
		DueDate:   time.Now().Add(72 * time.Hour),
		Questions: []models.QuestionInput{{Prompt: "Factorise x^2-1"}, {Prompt: "Solve x^2=4"}},
	})
	require.Equal(t, http.StatusCreated, status, res.Error)
	hw := decode[models.Homework](t, res)
	assert.Equal(t, 20, hw.MaxScore)
	require.Len(t, hw.Questions, 2)

	studentToken := login(t, app, "flow@proacademics.test", "password123")

	status, res = doRequest(t, app, http.MethodGet, "/api/student/homework", studentToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[models.Page[models.Homework]](t, res).Items, 1)

	completePath := "/api/student/homework/" + hw.ID + "/questions/" + hw.Questions[0].ID + "/complete"
	status, res = doRequest(t, app, http.MethodPost, completePath, studentToken, nil)
	require.Equal(t, http.StatusOK, status, res.Error)
	completion := decode[models.QuestionCompletion](t, res)
	assert.Equal(t, 10, completion.XPAwarded)
	assert.Equal(t, 10, completion.TotalXP)
	assert.Equal(t, models.HomeworkInProgress, completion.Homework.Status)

	status, _ = doRequest(t, app, http.MethodPost, completePath, studentToken, nil)
	assert.Equal(t, http.StatusConflict, status)

	status, _ = doRequest(t, app, http.MethodPost, "/api/student/homework/"+hw.ID+"/questions/missing/complete", studentToken, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, res = doRequest(t, app, http.MethodPost, "/api/student/homework/"+hw.ID+"/submit", studentToken, nil)
	require.Equal(t, http.StatusOK, status, res.Error)
	assert.Equal(t, models.HomeworkSubmitted, decode[models.Homework](t, res).Status)

	status, _ = doRequest(t, app, http.MethodPost, "/api/admin/homework/"+hw.ID+"/grade", adminToken, models.GradeHomeworkRequest{Score: 25})
	assert.Equal(t, http.StatusBadRequest, status)

	status, res = doRequest(t, app, http.MethodPost, "/api/admin/homework/"+hw.ID+"/grade", adminToken, models.GradeHomeworkRequest{
		Score:    15,
		Feedback: "Good work",
	})
	require.Equal(t, http.StatusOK, status, res.Error)

	status, res = doRequest(t, app, http.MethodGet, "/api/student/dashboard", studentToken, nil)
	require.Equal(t, http.StatusOK, status)
	dashboard := decode[models.StudentDashboard](t, res)
	assert.InDelta(t, 75.0, dashboard.CWA, 0.001)
	assert.Equal(t, 10, dashboard.XP)
	assert.Equal(t, 1, dashboard.CompletedQuestions)

	status, res = doRequest(t, app, http.MethodGet, "/api/student/leaderboard?period=weekly", studentToken, nil)
	require.Equal(t, http.StatusOK, status)
	board := decode[[]models.LeaderboardEntry](t, res)
	require.Len(t, board, 1)
	assert.Equal(t, 1, board[0].Rank)
	assert.Equal(t, 10, board[0].WeeklyXP)
}

func TestStudentCannotSeeOtherHomework(t *testing.T) {
	app := newTestApp(t, cronSecret)
	adminToken := login(t, app, adminEmail, adminPassword)
	owner := createStudent(t, app, adminToken, "owner@proacademics.test")
	createStudent(t, app, adminToken, "other@proacademics.test")

	status, res := doRequest(t, app, http.MethodPost, "/api/admin/homework", adminToken, models.CreateHomeworkRequest{
		Title:     "Cells",
		Subject:   "Biology",
		StudentID: owner.ID,
		DueDate:   time.Now().Add(24 * time.Hour),
		Questions: []models.QuestionInput{{Prompt: "Name two organelles"}},
	})
	require.Equal(t, http.StatusCreated, status, res.Error)
	hw := decode[models.Homework](t, res)

	otherToken := login(t, app, "other@proacademics.test", "password123")
	status, _ = doRequest(t, app, http.MethodGet, "/api/student/homework/"+hw.ID, otherToken, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = doRequest(t, app, http.MethodPost, "/api/student/homework/"+hw.ID+"/submit", otherToken, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestImport(t *testing.T) {
	app := newTestApp(t, cronSecret)
	adminToken := login(t, app, adminEmail, adminPassword)
	student := createStudent(t, app, adminToken, "csv@proacademics.test")

	csv := "title,subject,studentId,dueDate,questions\n" +
		"Algebra,Mathematics," + student.ID + ",2030-01-15,Q1|Q2\n" +
		"Broken,Mathematics," + student.ID + ",tomorrow,Q1\n"

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "homework.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte(csv))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/admin/import/homework", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+adminToken)
	status, res := send(t, app, req)
	require.Equal(t, http.StatusOK, status, res.Error)

	result := decode[models.ImportResult](t, res)
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 1, result.Inserted)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, 3, result.Errors[0].Line)

	req = httptest.NewRequest(http.MethodPost, "/api/admin/import/topic-vault", strings.NewReader("subject,title\nPhysics,Waves\n"))
	req.Header.Set("Content-Type", "text/csv")
	req.Header.Set("Authorization", "Bearer "+adminToken)
	status, _ = send(t, app, req)
	assert.Equal(t, http.StatusBadRequest, status, "missing required headers")

	req = httptest.NewRequest(http.MethodPost, "/api/admin/import/grades", strings.NewReader("a,b\n1,2\n"))
	req.Header.Set("Content-Type", "text/csv")
	req.Header.Set("Authorization", "Bearer "+adminToken)
	status, _ = send(t, app, req)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestCronSecret(t *testing.T) {
	app := newTestApp(t, cronSecret)

	status, _ := doRequest(t, app, http.MethodPost, "/api/cron/overdue-homework", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = doRequest(t, app, http.MethodPost, "/api/cron/overdue-homework", "wrong", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, res := doRequest(t, app, http.MethodGet, "/api/cron/overdue-homework", cronSecret, nil)
	require.Equal(t, http.StatusOK, status, res.Error)
	data := decode[map[string]any](t, res)
	assert.Equal(t, "overdue-homework", data["task"])
	assert.EqualValues(t, 0, data["affected"])

	status, res = doRequest(t, app, http.MethodPost, "/api/cron/run-all?includeWeekly=true", cronSecret, nil)
	require.Equal(t, http.StatusOK, status, res.Error)

	unconfigured := newTestApp(t, "")
	status, _ = doRequest(t, unconfigured, http.MethodPost, "/api/cron/run-all", cronSecret, nil)
	assert.Equal(t, http.StatusServiceUnavailable, status)
}

func TestTutorFallbackAndPastPaperUpload(t *testing.T) {
	app := newTestApp(t, cronSecret)
	adminToken := login(t, app, adminEmail, adminPassword)
	createStudent(t, app, adminToken, "tutor@proacademics.test")
	studentToken := login(t, app, "tutor@proacademics.test", "password123")

	status, res := doRequest(t, app, http.MethodPost, "/api/student/ai/chat", studentToken, models.ChatRequest{
		Subject: "Physics",
		Message: "What is momentum?",
	})
	require.Equal(t, http.StatusOK, status, res.Error)
	reply := decode[models.ChatReply](t, res)
	assert.True(t, reply.Fallback)
	assert.NotEmpty(t, reply.SessionID)

	status, res = doRequest(t, app, http.MethodGet, "/api/student/ai/sessions/"+reply.SessionID, studentToken, nil)
	require.Equal(t, http.StatusOK, status, res.Error)
	assert.Len(t, decode[models.ChatSession](t, res).Messages, 2)

	status, res = doRequest(t, app, http.MethodGet, "/api/student/ai/study-tip", studentToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, decode[map[string]string](t, res)["tip"])

	status, res = doRequest(t, app, http.MethodPost, "/api/admin/past-papers", adminToken, models.CreatePastPaperRequest{
		Subject:     "Chemistry",
		Year:        2023,
		Session:     "May/June",
		PaperNumber: 2,
	})
	require.Equal(t, http.StatusCreated, status, res.Error)
	paper := decode[models.PastPaper](t, res)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "paper.pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.4"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/admin/past-papers/"+paper.ID+"/files", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+adminToken)
	status, _ = send(t, app, req)
	assert.Equal(t, http.StatusServiceUnavailable, status)

	status, res = doRequest(t, app, http.MethodGet, "/api/student/past-papers?subject=Chemistry", studentToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[models.Page[models.PastPaper]](t, res).Items, 1)
}
