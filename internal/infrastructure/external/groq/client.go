// Package groq implements the AI advisor on top of the Groq chat completions API
// (OpenAI-compatible). It adds rate limiting, retries and a circuit breaker, and
// validates structured replies against a JSON schema before they reach the domain.
package groq

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mektep-hub/mektep-monitor/internal/domain/risk"
	"github.com/mektep-hub/mektep-monitor/internal/domain/shared"
	"github.com/mektep-hub/mektep-monitor/internal/domain/student"
	"github.com/mektep-hub/mektep-monitor/pkg/circuitbreaker"
	"github.com/mektep-hub/mektep-monitor/pkg/logger"
	"github.com/mektep-hub/mektep-monitor/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// DefaultBaseURL is the public Groq endpoint.
const DefaultBaseURL = "https://api.groq.com/openai/v1"

// DefaultModel is the fast Llama model used by the dashboard.
const DefaultModel = "llama-3.1-8b-instant"

// Config contains configuration for the Groq client.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int

	// HTTPTimeout bounds a single HTTP attempt.
	HTTPTimeout time.Duration

	// MaxRetries is the number of retries after the first attempt.
	MaxRetries     int
	RetryBaseDelay time.Duration

	RateLimiter RateLimiterConfig

	CircuitBreakerThreshold int
	CircuitBreakerTimeout   time.Duration

	// CircuitBreakerSuccesses half-open calls must succeed before the
	// breaker closes.
	CircuitBreakerSuccesses int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(apiKey string) Config {
	return Config{
		BaseURL:                 DefaultBaseURL,
		APIKey:                  apiKey,
		Model:                   DefaultModel,
		Temperature:             0.4,
		MaxTokens:               1024,
		HTTPTimeout:             15 * time.Second,
		MaxRetries:              2,
		RetryBaseDelay:          300 * time.Millisecond,
		RateLimiter:             DefaultRateLimiterConfig(),
		CircuitBreakerThreshold: 3,
		CircuitBreakerTimeout:   time.Minute,
		CircuitBreakerSuccesses: 1,
	}
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// ══════════════════════════════════════════════════════════════════════════════
// CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// Client talks to the Groq API.
type Client struct {
	config     Config
	httpClient *http.Client
	log        *logger.Logger
	limiter    *RateLimiter
	breaker    *circuitbreaker.CircuitBreaker
}

// NewClient creates a new Groq client.
func NewClient(cfg Config, log *logger.Logger, opts ...Option) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if log == nil {
		log = logger.NewNop()
	}
	log = log.Named("groq")

	breakerOpts := []circuitbreaker.Option{
		circuitbreaker.WithIsFailure(func(err error) bool {
			return !errors.Is(err, context.Canceled)
		}),
		circuitbreaker.WithOnStateChange(func(name string, from, to circuitbreaker.State) {
			log.Warn("circuit breaker state changed",
				logger.String("breaker", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()),
			)
		}),
	}
	if cfg.CircuitBreakerThreshold > 0 {
		breakerOpts = append(breakerOpts, circuitbreaker.WithFailureThreshold(cfg.CircuitBreakerThreshold))
	}
	if cfg.CircuitBreakerTimeout > 0 {
		breakerOpts = append(breakerOpts, circuitbreaker.WithTimeout(cfg.CircuitBreakerTimeout))
	}
	if cfg.CircuitBreakerSuccesses > 0 {
		breakerOpts = append(breakerOpts, circuitbreaker.WithSuccessThreshold(cfg.CircuitBreakerSuccesses))
	}

	c := &Client{
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.HTTPTimeout},
		log:        log,
		limiter:    NewRateLimiter(cfg.RateLimiter),
		breaker:    circuitbreaker.AdvisorBreaker(breakerOpts...),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.config.Model
}

// BreakerState returns the circuit breaker state for health reporting.
func (c *Client) BreakerState() circuitbreaker.State {
	return c.breaker.State()
}

// ══════════════════════════════════════════════════════════════════════════════
// ADVISOR OPERATIONS
// ══════════════════════════════════════════════════════════════════════════════

// Advise asks the model for structured advice about a student.
// The reply is validated against the advice schema.
func (c *Client) Advise(ctx context.Context, s student.Student, locale shared.Locale) (*risk.Advice, error) {
	content, err := c.complete(ctx, ChatRequest{
		Model:          c.config.Model,
		Messages:       AnalysisMessages(s, locale),
		Temperature:    c.config.Temperature,
		MaxTokens:      c.config.MaxTokens,
		ResponseFormat: &ResponseFormat{Type: "json_object"},
	})
	if err != nil {
		return nil, err
	}

	advice, err := ParseAdvice(content)
	if err != nil {
		return nil, err
	}
	return &advice, nil
}

// Narrative asks the model for 3-6 free-text recommendations.
func (c *Client) Narrative(ctx context.Context, s student.Student, locale shared.Locale) (string, error) {
	content, err := c.complete(ctx, ChatRequest{
		Model:       c.config.Model,
		Messages:    NarrativeMessages(s, locale),
		Temperature: c.config.Temperature,
		MaxTokens:   c.config.MaxTokens,
	})
	if err != nil {
		return "", err
	}

	text := strings.TrimSpace(content)
	if text == "" {
		return "", shared.ErrAdvisorInvalidResponse
	}
	return text, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HTTP HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// complete runs one chat completion through the breaker, retrier and rate limiter.
func (c *Client) complete(ctx context.Context, req ChatRequest) (string, error) {
	if c.config.APIKey == "" {
		return "", shared.ErrAdvisorDisabled
	}

	var content string
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		return retry.Do(ctx, func(ctx context.Context) error {
			if err := c.limiter.Wait(ctx); err != nil {
				return retry.Permanent(err)
			}
			var err error
			content, err = c.doSingleRequest(ctx, req)
			return err
		},
			retry.WithMaxAttempts(c.config.MaxRetries+1),
			retry.WithInitialDelay(c.config.RetryBaseDelay),
			retry.WithRetryIf(shared.IsRetryable),
			retry.WithOnRetry(func(attempt int, err error, delay time.Duration) {
				c.log.Debug("retrying groq request",
					logger.Int("attempt", attempt),
					logger.Duration("delay", delay),
					logger.Err(err),
				)
			}),
		)
	})
	if err != nil {
		if circuitbreaker.IsRejection(err) {
			return "", shared.WrapError("advisor", "Request", shared.ErrServiceUnavailable, "circuit open", err)
		}
		return "", err
	}
	return content, nil
}

// doSingleRequest performs a single HTTP request and classifies failures.
func (c *Client) doSingleRequest(ctx context.Context, req ChatRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", retry.Permanent(fmt.Errorf("marshal body: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", retry.Permanent(fmt.Errorf("create request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", shared.WrapError("advisor", "Request", shared.ErrTimeout, "request timeout", err)
		}
		if errors.Is(err, context.Canceled) {
			return "", retry.Permanent(err)
		}
		return "", shared.WrapError("advisor", "Request", shared.ErrServiceUnavailable, "transport error", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", shared.WrapError("advisor", "Request", shared.ErrServiceUnavailable, "read response", err)
	}

	c.log.Debug("groq response",
		logger.Int("status", resp.StatusCode),
		logger.Latency(time.Since(start)),
	)

	if resp.StatusCode >= 400 {
		apiErr := &APIErrorDTO{StatusCode: resp.StatusCode}
		_ = json.Unmarshal(respBody, apiErr)

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			c.limiter.RecordRateLimitHit(parseRetryAfter(resp.Header.Get("Retry-After")))
			return "", shared.WrapError("advisor", "Request", shared.ErrRateLimited, "rate limit exceeded", apiErr)
		case resp.StatusCode >= 500:
			return "", shared.WrapError("advisor", "Request", shared.ErrServiceUnavailable, "server error", apiErr)
		default:
			return "", retry.Permanent(
				shared.WrapError("advisor", "Request", shared.ErrExternalService, "request rejected", apiErr))
		}
	}

	var chat ChatResponse
	if err := json.Unmarshal(respBody, &chat); err != nil {
		return "", retry.Permanent(
			shared.WrapError("advisor", "Parse", shared.ErrInvalidFormat, "decode chat response", err))
	}
	if chat.Content() == "" {
		return "", retry.Permanent(shared.ErrAdvisorInvalidResponse)
	}
	return chat.Content(), nil
}

func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if seconds, err := strconv.ParseFloat(v, 64); err == nil && seconds > 0 {
		return time.Duration(seconds * float64(time.Second))
	}
	return 0
}
