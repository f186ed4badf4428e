package groq

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mektep-hub/mektep-monitor/internal/domain/shared"
	"github.com/mektep-hub/mektep-monitor/internal/domain/student"
	"github.com/mektep-hub/mektep-monitor/pkg/circuitbreaker"
	"github.com/mektep-hub/mektep-monitor/pkg/logger"
)

const validAdvice = `{
	"reasons": ["Низкий средний балл"],
	"psychSignals": [],
	"roleRecs": {"teacher": ["Индивидуальные задания"], "deputy": ["Встреча с родителями"]}
}`

func testStudent() student.Student {
	return student.Student{
		ID:                 "s-1",
		FullName:           "Ахметова Айгерим",
		ClassName:          "9A",
		Gender:             student.GenderFemale,
		AvgGrade:           2.8,
		GradeTrend:         -0.3,
		Absences:           7,
		UnexcusedAbsences:  4,
		HomeworkCompletion: 50,
		TeacherAlerts:      2,
		SubjectsAtRisk:     []student.SubjectCode{student.SubjectMath, student.SubjectPhysics},
	}
}

func newTestClient(t *testing.T, srv *httptest.Server, mutate func(*Config)) *Client {
	t.Helper()
	cfg := DefaultConfig("gsk-test")
	cfg.BaseURL = srv.URL
	cfg.RetryBaseDelay = time.Millisecond
	cfg.RateLimiter = RateLimiterConfig{RequestsPerSecond: 100, BurstSize: 100}
	if mutate != nil {
		mutate(&cfg)
	}
	return NewClient(cfg, logger.NewTest(t), WithHTTPClient(srv.Client()))
}

func chatReply(w http.ResponseWriter, content string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(ChatResponse{
		ID:      "chatcmpl-1",
		Model:   DefaultModel,
		Choices: []ChatChoice{{Message: ChatMessage{Role: RoleAssistant, Content: content}}},
	})
}

func TestClient_Advise_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer gsk-test", r.Header.Get("Authorization"))

		var req ChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, DefaultModel, req.Model)
		assert.InDelta(t, 0.4, req.Temperature, 1e-9)
		require.NotNil(t, req.ResponseFormat)
		assert.Equal(t, "json_object", req.ResponseFormat.Type)
		require.Len(t, req.Messages, 2)
		assert.Contains(t, req.Messages[1].Content, "Ахметова Айгерим")
		assert.Contains(t, req.Messages[1].Content, "math, physics")

		chatReply(w, validAdvice)
	}))
	defer srv.Close()

	advice, err := newTestClient(t, srv, nil).Advise(context.Background(), testStudent(), shared.LocaleRussian)
	require.NoError(t, err)
	assert.Equal(t, []string{"Низкий средний балл"}, advice.Reasons)
	assert.Empty(t, advice.PsychSignals)
	assert.Equal(t, []string{"Встреча с родителями"}, advice.RoleRecs.Deputy)
	assert.Empty(t, advice.RoleRecs.Parent)
}

func TestClient_Advise_SchemaViolation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		chatReply(w, `{"reasons": "not a list"}`)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv, nil).Advise(context.Background(), testStudent(), shared.LocaleKazakh)
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrInvalidFormat)
	assert.True(t, shared.IsExternalService(err))
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		chatReply(w, validAdvice)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv, nil).Advise(context.Background(), testStudent(), shared.LocaleKazakh)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestClient_DoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid API Key","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv, nil).Advise(context.Background(), testStudent(), shared.LocaleKazakh)
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrExternalService)
	assert.Contains(t, err.Error(), "Invalid API Key")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClient_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := newTestClient(t, srv, func(c *Config) { c.MaxRetries = 0 })
	_, err := client.Advise(context.Background(), testStudent(), shared.LocaleKazakh)
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrRateLimited)
	assert.Equal(t, 0, client.limiter.Available())
}

func TestClient_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
		chatReply(w, validAdvice)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := newTestClient(t, srv, nil).Advise(ctx, testStudent(), shared.LocaleKazakh)
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrTimeout)
}

func TestClient_CircuitOpensAfterFailures(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := newTestClient(t, srv, func(c *Config) { c.MaxRetries = 0 })
	for i := 0; i < 3; i++ {
		_, err := client.Advise(context.Background(), testStudent(), shared.LocaleKazakh)
		require.Error(t, err)
	}
	assert.Equal(t, circuitbreaker.StateOpen, client.BreakerState())

	_, err := client.Advise(context.Background(), testStudent(), shared.LocaleKazakh)
	require.Error(t, err)
	assert.True(t, errors.Is(err, circuitbreaker.ErrCircuitOpen))
	assert.ErrorIs(t, err, shared.ErrServiceUnavailable)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestClient_CircuitClosesAfterSuccesses(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) <= 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		chatReply(w, validAdvice)
	}))
	defer srv.Close()

	client := newTestClient(t, srv, func(c *Config) {
		c.MaxRetries = 0
		c.CircuitBreakerTimeout = 20 * time.Millisecond
		c.CircuitBreakerSuccesses = 2
	})
	for i := 0; i < 3; i++ {
		_, err := client.Advise(context.Background(), testStudent(), shared.LocaleKazakh)
		require.Error(t, err)
	}
	require.Equal(t, circuitbreaker.StateOpen, client.BreakerState())

	time.Sleep(40 * time.Millisecond)

	_, err := client.Advise(context.Background(), testStudent(), shared.LocaleKazakh)
	require.NoError(t, err)
	assert.Equal(t, circuitbreaker.StateHalfOpen, client.BreakerState())

	_, err = client.Advise(context.Background(), testStudent(), shared.LocaleKazakh)
	require.NoError(t, err)
	assert.Equal(t, circuitbreaker.StateClosed, client.BreakerState())
}

func TestClient_Narrative(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Nil(t, req.ResponseFormat)
		assert.Contains(t, req.Messages[0].Content, "Қазақ тілінде жаз.")
		chatReply(w, "  1. Ата-анамен кездесу.\n2. Математикадан қосымша сабақ.  ")
	}))
	defer srv.Close()

	text, err := newTestClient(t, srv, nil).Narrative(context.Background(), testStudent(), shared.LocaleKazakh)
	require.NoError(t, err)
	assert.Equal(t, "1. Ата-анамен кездесу.\n2. Математикадан қосымша сабақ.", text)
}

func TestClient_NoAPIKey(t *testing.T) {
	client := NewClient(Config{}, nil)
	_, err := client.Advise(context.Background(), testStudent(), shared.LocaleKazakh)
	assert.ErrorIs(t, err, shared.ErrAdvisorDisabled)
}
