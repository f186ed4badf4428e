package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mektep-hub/mektep-monitor/config"
	"github.com/mektep-hub/mektep-monitor/internal/application/advisor"
	"github.com/mektep-hub/mektep-monitor/internal/application/command"
	"github.com/mektep-hub/mektep-monitor/internal/application/query"
	"github.com/mektep-hub/mektep-monitor/internal/domain/psychology"
	"github.com/mektep-hub/mektep-monitor/internal/domain/shared"
	"github.com/mektep-hub/mektep-monitor/internal/domain/student"
	"github.com/mektep-hub/mektep-monitor/internal/infrastructure/persistence/memory"
	"github.com/mektep-hub/mektep-monitor/internal/interface/http/handlers"
	"github.com/mektep-hub/mektep-monitor/pkg/logger"
	"github.com/mektep-hub/mektep-monitor/pkg/timeutil"
)

// Monday 19 October 2026, 10:00 in Almaty.
var now = time.Date(2026, 10, 19, 10, 0, 0, 0, timeutil.AlmatyTZ)

type envelope struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	Error     *APIError       `json:"error"`
	Meta      *ResponseMeta   `json:"meta"`
	RequestID string          `json:"request_id"`
}

type testServer struct {
	srv      *Server
	handler  http.Handler
	features *config.FeatureFlags
	health   *handlers.CompositeHealthChecker
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	repo := memory.NewStudentRepository(
		student.Student{
			ID: "s-1", FullName: "Ахметов Ерлан", ClassName: "9A", Gender: student.GenderMale,
			AvgGrade: 2.4, GradeTrend: -0.6, Absences: 6, UnexcusedAbsences: 6,
			LowActivity: true, HomeworkCompletion: 40, TeacherAlerts: 2,
			SubjectsAtRisk: []student.SubjectCode{student.SubjectMath},
		},
		student.Student{
			ID: "s-2", FullName: "Серикова Дана", ClassName: "9A", Gender: student.GenderFemale,
			AvgGrade: 4.8, HomeworkCompletion: 100,
		},
		student.Student{
			ID: "s-3", FullName: "Ким Алина", ClassName: "10B", Gender: student.GenderFemale,
			AvgGrade: 3.2, Absences: 2, UnexcusedAbsences: 2, HomeworkCompletion: 60,
		},
	)
	store := memory.NewPsychologyStore()
	clock := timeutil.FixedClock(now)
	log := logger.NewTest(t)
	features := config.NewFeatureFlags()
	analyzer := advisor.NewService(nil, nil, nil, features, advisor.Config{}, log)
	health := handlers.NewCompositeHealthChecker("test")

	cfg := DefaultConfig()
	cfg.Version = "test"
	srv := NewServer(cfg, Dependencies{
		Students:         query.NewStudentsHandler(repo),
		StudentRisk:      query.NewGetStudentRiskHandler(repo, analyzer),
		StudentNarrative: query.NewGetStudentNarrativeHandler(repo, analyzer),
		RiskList:         query.NewListRiskStudentsHandler(repo),
		Overview:         query.NewGetSchoolOverviewHandler(repo, nil, clock, log),
		Classes:          query.NewGetClassSummariesHandler(repo),
		Subjects:         query.NewGetSubjectHotspotsHandler(repo),
		Heatmap:          query.NewGetHeatmapHandler(repo),
		Board:            query.NewGetPsychologistBoardHandler(repo, store, clock),
		Records:          query.NewPsychologyRecordsHandler(store),
		Psychology:       command.NewPsychologyHandlers(repo, store, clock, log),
		Features:         features,
		Logger:           log,
		HealthChecker:    health,
	})

	return &testServer{srv: srv, handler: srv.Handler(), features: features, health: health}
}

func (ts *testServer) do(t *testing.T, method, target, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec, env
}

// ══════════════════════════════════════════════════════════════════════════════
// STATUS ENDPOINTS
// ══════════════════════════════════════════════════════════════════════════════

func TestHealthEndpoints(t *testing.T) {
	ts := newTestServer(t)

	rec, env := ts.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, rec.Header().Get("X-Request-ID"), env.RequestID)

	ts.health.AddCheck("postgres", func(context.Context) error { return errors.New("connection refused") })
	rec, _ = ts.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec, env = ts.do(t, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "not_ready", env.Error.Code)

	rec, _ = ts.do(t, http.MethodGet, "/live", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)

	ts.do(t, http.MethodGet, "/api/v1/students", "")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `route="/api/v1/students"`)
}

func TestRequestIDIsPropagated(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/students", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))
	assert.Contains(t, rec.Body.String(), `"request_id":"req-42"`)
}

func TestUnknownRouteAndMethod(t *testing.T) {
	ts := newTestServer(t)

	rec, env := ts.do(t, http.MethodGet, "/api/v1/nothing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "route_not_found", env.Error.Code)

	rec, _ = ts.do(t, http.MethodDelete, "/api/v1/students", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/psychology/referrals", nil)
	req.Header.Set("Origin", "https://school.example")
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://school.example", rec.Header().Get("Access-Control-Allow-Origin"))
}

// ══════════════════════════════════════════════════════════════════════════════
// STUDENTS AND RISK
// ══════════════════════════════════════════════════════════════════════════════

func TestStudentEndpoints(t *testing.T) {
	ts := newTestServer(t)

	rec, env := ts.do(t, http.MethodGet, "/api/v1/students?class=9A", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list query.StudentListResult
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Equal(t, 2, list.Total)
	assert.Equal(t, 2, env.Meta.TotalCount)

	rec, env = ts.do(t, http.MethodGet, "/api/v1/students/s-2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var st student.Student
	require.NoError(t, json.Unmarshal(env.Data, &st))
	assert.Equal(t, "Серикова Дана", st.FullName)

	rec, env = ts.do(t, http.MethodGet, "/api/v1/students/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, env.Success)
	assert.Equal(t, "not_found", env.Error.Code)
}

func TestStudentRisk(t *testing.T) {
	ts := newTestServer(t)

	rec, env := ts.do(t, http.MethodGet, "/api/v1/students/s-1/risk?role=teacher", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var res query.StudentRiskResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, "high", string(res.Assessment.Level))
	assert.True(t, res.Assessment.AtRisk)
	assert.NotEmpty(t, res.Assessment.RoleRecs.Teacher)
	assert.Empty(t, res.Assessment.RoleRecs.Parent)

	rec, _ = ts.do(t, http.MethodGet, "/api/v1/students/s-1/risk?role=janitor", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStudentAnalysisFallsBackWithoutAdvisor(t *testing.T) {
	ts := newTestServer(t)

	rec, env := ts.do(t, http.MethodGet, "/api/v1/students/s-1/analysis?locale=ru", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var res query.StudentRiskResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, "rules", string(res.Source))
	assert.Equal(t, advisor.ReasonDisabled, res.FallbackReason)
	assert.NotEmpty(t, res.Assessment.Reasons)
}

func TestStudentNarrative(t *testing.T) {
	ts := newTestServer(t)

	rec, env := ts.do(t, http.MethodGet, "/api/v1/students/s-1/narrative?locale=ru", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var res advisor.Narrative
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, shared.LocaleRussian, res.Locale)
	assert.True(t, strings.HasPrefix(res.Text, "1. "))
}

func TestRiskList(t *testing.T) {
	ts := newTestServer(t)

	rec, env := ts.do(t, http.MethodGet, "/api/v1/risk/students?limit=1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var res query.RiskListResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	require.Len(t, res.Items, 1)
	assert.Equal(t, "s-1", res.Items[0].StudentID)
	assert.Equal(t, 3, res.Total)
	assert.True(t, env.Meta.HasMore)

	rec, _ = ts.do(t, http.MethodGet, "/api/v1/risk/students?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = ts.do(t, http.MethodGet, "/api/v1/risk/students?level=extreme", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// ══════════════════════════════════════════════════════════════════════════════
// DASHBOARD
// ══════════════════════════════════════════════════════════════════════════════

func TestDashboardEndpoints(t *testing.T) {
	ts := newTestServer(t)

	rec, env := ts.do(t, http.MethodGet, "/api/v1/dashboard/overview?top=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var overview query.SchoolOverviewResult
	require.NoError(t, json.Unmarshal(env.Data, &overview))
	assert.Equal(t, 3, overview.Overview.TotalStudents)
	assert.Equal(t, 2, overview.FocusSize)
	assert.LessOrEqual(t, len(overview.Focus), 2)

	rec, _ = ts.do(t, http.MethodGet, "/api/v1/dashboard/overview?top=500", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, env = ts.do(t, http.MethodGet, "/api/v1/classes", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, env.Meta.TotalCount)

	rec, _ = ts.do(t, http.MethodGet, "/api/v1/classes?class=11Z", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = ts.do(t, http.MethodGet, "/api/v1/analytics/subjects", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = ts.do(t, http.MethodGet, "/api/v1/analytics/heatmap", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

// ══════════════════════════════════════════════════════════════════════════════
// PSYCHOLOGIST
// ══════════════════════════════════════════════════════════════════════════════

func TestPsychologyFlow(t *testing.T) {
	ts := newTestServer(t)

	rec, env := ts.do(t, http.MethodPost, "/api/v1/psychology/referrals",
		`{"studentId":"s-1","reasonType":"emotional","urgency":"high","comment":"замкнулся"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.True(t, env.Success)

	rec, _ = ts.do(t, http.MethodPost, "/api/v1/students/s-1/notes",
		`{"note":"Первая беседа","meetingAt":"2026-10-19T09:00:00+05:00"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec, _ = ts.do(t, http.MethodPost, "/api/v1/psychology/appointments",
		`{"studentId":"s-1","datetime":"2026-10-20T11:30:00+05:00","note":"консультация"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec, env = ts.do(t, http.MethodPost, "/api/v1/psychology/appointments",
		`{"studentId":"s-1","datetime":"2026-10-20T11:30:00+05:00"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "conflict", env.Error.Code)

	rec, env = ts.do(t, http.MethodPost, "/api/v1/psychology/appointments",
		`{"studentId":"s-1","datetime":"2026-10-21T10:00"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var local psychology.Appointment
	require.NoError(t, json.Unmarshal(env.Data, &local))
	assert.Equal(t, time.Date(2026, 10, 21, 5, 0, 0, 0, time.UTC), local.Datetime.UTC(), "local form is Almaty time")

	rec, env = ts.do(t, http.MethodGet, "/api/v1/psychology/referrals?student_id=s-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, env.Meta.TotalCount)

	rec, env = ts.do(t, http.MethodGet, "/api/v1/students/s-1/notes", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, env.Meta.TotalCount)

	rec, env = ts.do(t, http.MethodGet, "/api/v1/psychology/appointments?from=2026-10-20T00:00:00Z", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, env.Meta.TotalCount)

	rec, env = ts.do(t, http.MethodGet, "/api/v1/psychology/appointments?from=2026-10-21", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, env.Meta.TotalCount)

	rec, env = ts.do(t, http.MethodGet, "/api/v1/psychology/board", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var board query.PsychologistBoard
	require.NoError(t, json.Unmarshal(env.Data, &board))
	require.Len(t, board.Referred, 1)
	assert.Equal(t, "s-1", board.Referred[0].StudentID)
	assert.Len(t, board.Upcoming, 2)
}

func TestPsychologyRejections(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name   string
		method string
		target string
		body   string
		status int
	}{
		{"empty body", http.MethodPost, "/api/v1/psychology/referrals", "", http.StatusBadRequest},
		{"malformed json", http.MethodPost, "/api/v1/psychology/referrals", `{"studentId":`, http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/api/v1/psychology/referrals", `{"studentId":"s-1","priority":1}`, http.StatusBadRequest},
		{"bad urgency", http.MethodPost, "/api/v1/psychology/referrals", `{"studentId":"s-1","urgency":"now"}`, http.StatusBadRequest},
		{"unknown student", http.MethodPost, "/api/v1/psychology/referrals", `{"studentId":"s-404"}`, http.StatusNotFound},
		{"empty note", http.MethodPost, "/api/v1/students/s-1/notes", `{"note":"  "}`, http.StatusBadRequest},
		{"appointment in the past", http.MethodPost, "/api/v1/psychology/appointments", `{"studentId":"s-1","datetime":"2026-10-19T09:00:00+05:00"}`, http.StatusBadRequest},
		{"appointment on sunday", http.MethodPost, "/api/v1/psychology/appointments", `{"studentId":"s-1","datetime":"2026-10-25T11:00:00+05:00"}`, http.StatusBadRequest},
		{"bad datetime", http.MethodPost, "/api/v1/psychology/appointments", `{"studentId":"s-1","datetime":"next tuesday"}`, http.StatusBadRequest},
		{"missing datetime", http.MethodPost, "/api/v1/psychology/appointments", `{"studentId":"s-1"}`, http.StatusBadRequest},
		{"bad from", http.MethodGet, "/api/v1/psychology/appointments?from=yesterday", "", http.StatusBadRequest},
		{"bad days", http.MethodGet, "/api/v1/psychology/board?days=90", "", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := ts.do(t, tt.method, tt.target, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.False(t, env.Success)
		})
	}
}

func TestPsychologyFeatureDisabled(t *testing.T) {
	ts := newTestServer(t)
	ts.features.Set(config.FeaturePsychBoard, false)

	rec, env := ts.do(t, http.MethodGet, "/api/v1/psychology/board", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "feature_disabled", env.Error.Code)

	rec, _ = ts.do(t, http.MethodPost, "/api/v1/students/s-1/notes", `{"note":"x"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = ts.do(t, http.MethodGet, "/api/v1/students/s-1/risk", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequestBodyLimit(t *testing.T) {
	ts := newTestServer(t)

	body := `{"studentId":"s-1","comment":"` + strings.Repeat("a", 70<<10) + `"}`
	rec, _ := ts.do(t, http.MethodPost, "/api/v1/psychology/referrals", body)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{shared.ErrStudentNotFound, http.StatusNotFound},
		{shared.ErrAppointmentConflict, http.StatusConflict},
		{shared.ErrInvalidUrgency, http.StatusBadRequest},
		{shared.ErrAppointmentInPast, http.StatusBadRequest},
		{shared.ErrAdvisorInvalidResponse, http.StatusBadRequest},
		{shared.ErrAdvisorDisabled, http.StatusForbidden},
		{shared.ErrAdvisorUnavailable, http.StatusServiceUnavailable},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		status, _ := errorStatus(tt.err)
		assert.Equal(t, tt.status, status, "%v", tt.err)
	}
}

func TestRateLimiter(t *testing.T) {
	rl := newRateLimiter(2, time.Minute)
	defer rl.Stop()

	current := now
	rl.now = func() time.Time { return current }

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.2"))

	current = current.Add(2 * time.Minute)
	assert.True(t, rl.Allow("10.0.0.1"))
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.5:51234"
	assert.Equal(t, "192.168.1.5", getClientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	assert.Equal(t, "203.0.113.7", getClientIP(req))
}
