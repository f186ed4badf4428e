package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/mektep-hub/mektep-monitor/internal/application/command"
	"github.com/mektep-hub/mektep-monitor/internal/application/query"
	"github.com/mektep-hub/mektep-monitor/internal/domain/shared"
	"github.com/mektep-hub/mektep-monitor/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleRoot serves the root endpoint with basic API information.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"name":    "Mektep Monitor API",
		"version": s.config.Version,
		"endpoints": map[string]string{
			"health":    "/health",
			"students":  "/api/v1/students",
			"risk":      "/api/v1/risk/students",
			"dashboard": "/api/v1/dashboard/overview",
			"classes":   "/api/v1/classes",
			"subjects":  "/api/v1/analytics/subjects",
			"heatmap":   "/api/v1/analytics/heatmap",
			"board":     "/api/v1/psychology/board",
		},
	})
}

// handleHealth handles the health check endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := s.deps.HealthChecker.Check(r.Context())
	if !status.Healthy {
		writeJSON(w, r, http.StatusServiceUnavailable, status)
		return
	}
	writeJSON(w, r, http.StatusOK, status)
}

// handleReady handles the readiness probe endpoint.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status := s.deps.HealthChecker.Check(r.Context())
	if !status.Ready {
		writeJSONErrorWithDetails(w, r, http.StatusServiceUnavailable, "not_ready", "Service is not ready", status.Message)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ready"})
}

// handleLive handles the liveness probe endpoint.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "alive"})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSONError(w, r, http.StatusNotFound, "route_not_found", "No route for "+r.URL.Path)
}

func (s *Server) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSONError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", r.Method+" is not allowed for "+r.URL.Path)
}

func notConfigured(w http.ResponseWriter, r *http.Request) {
	writeJSONError(w, r, http.StatusNotImplemented, "not_implemented", "Handler not configured")
}

// ══════════════════════════════════════════════════════════════════════════════
// STUDENT HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleListStudents handles GET /api/v1/students?class=
func (s *Server) handleListStudents(w http.ResponseWriter, r *http.Request) {
	if s.deps.Students == nil {
		notConfigured(w, r)
		return
	}

	result, err := s.deps.Students.List(r.Context(), query.ListStudentsQuery{
		ClassName: r.URL.Query().Get("class"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSONWithMeta(w, r, http.StatusOK, result, &ResponseMeta{TotalCount: result.Total})
}

// handleGetStudent handles GET /api/v1/students/{id}
func (s *Server) handleGetStudent(w http.ResponseWriter, r *http.Request) {
	if s.deps.Students == nil {
		notConfigured(w, r)
		return
	}

	st, err := s.deps.Students.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, st)
}

// handleGetStudentRisk handles GET /api/v1/students/{id}/risk?role=&locale=
func (s *Server) handleGetStudentRisk(w http.ResponseWriter, r *http.Request) {
	s.studentRisk(w, r, false)
}

// handleGetStudentAnalysis handles GET /api/v1/students/{id}/analysis?role=&locale=
func (s *Server) handleGetStudentAnalysis(w http.ResponseWriter, r *http.Request) {
	s.studentRisk(w, r, true)
}

func (s *Server) studentRisk(w http.ResponseWriter, r *http.Request, withAnalysis bool) {
	if s.deps.StudentRisk == nil {
		notConfigured(w, r)
		return
	}

	q := r.URL.Query()
	result, err := s.deps.StudentRisk.Handle(r.Context(), query.GetStudentRiskQuery{
		StudentID:    mux.Vars(r)["id"],
		Role:         q.Get("role"),
		Locale:       q.Get("locale"),
		WithAnalysis: withAnalysis,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}

// handleGetStudentNarrative handles GET /api/v1/students/{id}/narrative?locale=&role=
func (s *Server) handleGetStudentNarrative(w http.ResponseWriter, r *http.Request) {
	if s.deps.StudentNarrative == nil {
		notConfigured(w, r)
		return
	}

	q := r.URL.Query()
	result, err := s.deps.StudentNarrative.Handle(r.Context(), query.GetStudentNarrativeQuery{
		StudentID: mux.Vars(r)["id"],
		Role:      q.Get("role"),
		Locale:    q.Get("locale"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// DASHBOARD HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleListRiskStudents handles GET /api/v1/risk/students?class=&level=&min_level=&page=&limit=
func (s *Server) handleListRiskStudents(w http.ResponseWriter, r *http.Request) {
	if s.deps.RiskList == nil {
		notConfigured(w, r)
		return
	}

	page, err := getQueryParamInt(r, "page", 1)
	if err != nil {
		writeError(w, r, err)
		return
	}
	limit, err := getQueryParamInt(r, "limit", 0)
	if err != nil {
		writeError(w, r, err)
		return
	}

	q := r.URL.Query()
	result, err := s.deps.RiskList.Handle(r.Context(), query.ListRiskStudentsQuery{
		ClassName: q.Get("class"),
		Level:     q.Get("level"),
		MinLevel:  q.Get("min_level"),
		Page:      page,
		PageSize:  limit,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSONWithMeta(w, r, http.StatusOK, result, &ResponseMeta{
		TotalCount: result.Total,
		Page:       result.Page,
		PageSize:   result.PageSize,
		HasMore:    result.Page*result.PageSize < result.Total,
	})
}

// handleGetOverview handles GET /api/v1/dashboard/overview?top=
func (s *Server) handleGetOverview(w http.ResponseWriter, r *http.Request) {
	if s.deps.Overview == nil {
		notConfigured(w, r)
		return
	}

	top, err := getQueryParamInt(r, "top", s.config.FocusSize)
	if err != nil {
		writeError(w, r, err)
		return
	}

	result, err := s.deps.Overview.Handle(r.Context(), query.GetSchoolOverviewQuery{Top: top})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}

// handleGetClasses handles GET /api/v1/classes?class=
func (s *Server) handleGetClasses(w http.ResponseWriter, r *http.Request) {
	if s.deps.Classes == nil {
		notConfigured(w, r)
		return
	}

	result, err := s.deps.Classes.Handle(r.Context(), query.GetClassSummariesQuery{
		ClassName: r.URL.Query().Get("class"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSONWithMeta(w, r, http.StatusOK, result, &ResponseMeta{TotalCount: result.Total})
}

// handleGetSubjects handles GET /api/v1/analytics/subjects
func (s *Server) handleGetSubjects(w http.ResponseWriter, r *http.Request) {
	if s.deps.Subjects == nil {
		notConfigured(w, r)
		return
	}

	result, err := s.deps.Subjects.Handle(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}

// handleGetHeatmap handles GET /api/v1/analytics/heatmap
func (s *Server) handleGetHeatmap(w http.ResponseWriter, r *http.Request) {
	if s.deps.Heatmap == nil {
		notConfigured(w, r)
		return
	}

	result, err := s.deps.Heatmap.Handle(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// PSYCHOLOGIST HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleGetBoard handles GET /api/v1/psychology/board?days=&locale=
func (s *Server) handleGetBoard(w http.ResponseWriter, r *http.Request) {
	if s.deps.Board == nil {
		notConfigured(w, r)
		return
	}

	days, err := getQueryParamInt(r, "days", 0)
	if err != nil {
		writeError(w, r, err)
		return
	}

	result, err := s.deps.Board.Handle(r.Context(), query.GetPsychologistBoardQuery{
		UpcomingDays: days,
		Locale:       r.URL.Query().Get("locale"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}

// handleListReferrals handles GET /api/v1/psychology/referrals?student_id=
func (s *Server) handleListReferrals(w http.ResponseWriter, r *http.Request) {
	if s.deps.Records == nil {
		notConfigured(w, r)
		return
	}

	result, err := s.deps.Records.Referrals(r.Context(), query.ListReferralsQuery{
		StudentID: r.URL.Query().Get("student_id"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSONWithMeta(w, r, http.StatusOK, result, &ResponseMeta{TotalCount: len(result)})
}

type referralRequest struct {
	StudentID  string `json:"studentId"`
	ReasonType string `json:"reasonType"`
	Urgency    string `json:"urgency"`
	Comment    string `json:"comment"`
}

// handleCreateReferral handles POST /api/v1/psychology/referrals
func (s *Server) handleCreateReferral(w http.ResponseWriter, r *http.Request) {
	if s.deps.Psychology == nil {
		notConfigured(w, r)
		return
	}

	var req referralRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	ref, err := s.deps.Psychology.ReferToPsychologist(r.Context(), command.ReferToPsychologistCommand{
		StudentID:  req.StudentID,
		ReasonType: req.ReasonType,
		Urgency:    req.Urgency,
		Comment:    req.Comment,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, ref)
}

// handleListNotes handles GET /api/v1/students/{id}/notes
func (s *Server) handleListNotes(w http.ResponseWriter, r *http.Request) {
	if s.deps.Records == nil {
		notConfigured(w, r)
		return
	}

	result, err := s.deps.Records.Notes(r.Context(), query.ListNotesQuery{StudentID: mux.Vars(r)["id"]})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSONWithMeta(w, r, http.StatusOK, result, &ResponseMeta{TotalCount: len(result)})
}

type noteRequest struct {
	MeetingAt *time.Time `json:"meetingAt"`
	Note      string     `json:"note"`
}

// handleRecordNote handles POST /api/v1/students/{id}/notes
func (s *Server) handleRecordNote(w http.ResponseWriter, r *http.Request) {
	if s.deps.Psychology == nil {
		notConfigured(w, r)
		return
	}

	var req noteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	note, err := s.deps.Psychology.RecordPsychNote(r.Context(), command.RecordPsychNoteCommand{
		StudentID: mux.Vars(r)["id"],
		MeetingAt: req.MeetingAt,
		Note:      req.Note,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, note)
}

// handleListAppointments handles GET /api/v1/psychology/appointments?student_id=&from=&to=
func (s *Server) handleListAppointments(w http.ResponseWriter, r *http.Request) {
	if s.deps.Records == nil {
		notConfigured(w, r)
		return
	}

	from, err := getQueryParamTime(r, "from")
	if err != nil {
		writeError(w, r, err)
		return
	}
	to, err := getQueryParamTime(r, "to")
	if err != nil {
		writeError(w, r, err)
		return
	}

	result, err := s.deps.Records.Appointments(r.Context(), query.ListAppointmentsQuery{
		StudentID: r.URL.Query().Get("student_id"),
		From:      from,
		To:        to,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSONWithMeta(w, r, http.StatusOK, result, &ResponseMeta{TotalCount: len(result)})
}

// appointmentRequest.Datetime is RFC 3339 or a local "2006-01-02T15:04"
// value as sent by a datetime-local input.
type appointmentRequest struct {
	StudentID string `json:"studentId"`
	Datetime  string `json:"datetime"`
	Note      string `json:"note"`
}

// handleScheduleAppointment handles POST /api/v1/psychology/appointments
func (s *Server) handleScheduleAppointment(w http.ResponseWriter, r *http.Request) {
	if s.deps.Psychology == nil {
		notConfigured(w, r)
		return
	}

	var req appointmentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	var at time.Time
	if value := strings.TrimSpace(req.Datetime); value != "" {
		parsed, err := timeutil.ParseDateTime(value)
		if err != nil {
			writeError(w, r, shared.WrapError("http", "ScheduleAppointment", shared.ErrInvalidFormat, "datetime is not a valid date and time", err))
			return
		}
		at = parsed
	}

	app, err := s.deps.Psychology.ScheduleAppointment(r.Context(), command.ScheduleAppointmentCommand{
		StudentID: req.StudentID,
		Datetime:  at,
		Note:      req.Note,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, app)
}

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST DECODING
// ══════════════════════════════════════════════════════════════════════════════

// decodeJSON reads a single JSON object from the body into dst.
func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return shared.NewDomainError("http", "DecodeJSON", shared.ErrEmptyValue, "request body is empty")
		case errors.As(err, &maxErr):
			return shared.NewDomainError("http", "DecodeJSON", shared.ErrValueOutOfRange, "request body is too large")
		default:
			return shared.WrapError("http", "DecodeJSON", shared.ErrInvalidFormat, "malformed JSON body", err)
		}
	}
	if dec.More() {
		return shared.NewDomainError("http", "DecodeJSON", shared.ErrInvalidFormat, "body must contain a single JSON object")
	}
	return nil
}
