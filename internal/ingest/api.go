package ingest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/time/rate"

	"outlierx/internal/config"
	"outlierx/internal/models"
	"outlierx/pkg/utils"
)

// DefaultBodyLimitKb caps how much of a response body is read.
const DefaultBodyLimitKb = 32 * 1024

// Attempt records one HTTP request made by an APISource.
type Attempt struct {
	Timestamp  time.Time
	URL        string
	Error      string
	Number     int
	Duration   time.Duration
	StatusCode int
	Success    bool
}

// APISource fetches records from an HTTP endpoint returning JSON.
type APISource struct {
	client      *http.Client
	limiter     *rate.Limiter
	headers     http.Header
	name        string
	url         string
	tag         Tag
	attempts    []Attempt
	retry       config.RetryPolicy
	bodyLimitKb int
	mu          sync.Mutex
}

// APIOption configures an APISource.
type APIOption func(*APISource)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) APIOption {
	return func(s *APISource) {
		s.client = c
	}
}

// WithRetryPolicy sets the retry policy.
func WithRetryPolicy(p config.RetryPolicy) APIOption {
	return func(s *APISource) {
		s.retry = p
	}
}

// WithRateLimit limits requests to rps per second. Zero disables limiting.
func WithRateLimit(rps float64, burst int) APIOption {
	return func(s *APISource) {
		if rps <= 0 {
			s.limiter = nil

			return
		}

		if burst < 1 {
			burst = 1
		}

		s.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithHeaders adds request headers on top of the defaults.
func WithHeaders(h map[string]string) APIOption {
	return func(s *APISource) {
		s.headers = utils.NewHTTPHelper().BuildHeaders(h)
	}
}

// WithBodyLimit caps the response body size in kilobytes.
func WithBodyLimit(kb int) APIOption {
	return func(s *APISource) {
		s.bodyLimitKb = kb
	}
}

// WithTag stamps records lacking tag.Field.
func WithTag(tag Tag) APIOption {
	return func(s *APISource) {
		s.tag = tag
	}
}

// NewAPISource creates an API source for url.
func NewAPISource(name, url string, opts ...APIOption) (*APISource, error) {
	if !utils.NewHTTPHelper().IsValidURL(url) {
		return nil, fmt.Errorf("%w: invalid url %q", ErrSourceUnreachable, url)
	}

	s := &APISource{
		name:        name,
		url:         url,
		client:      &http.Client{Timeout: 30 * time.Second},
		headers:     utils.NewHTTPHelper().BuildHeaders(nil),
		bodyLimitKb: DefaultBodyLimitKb,
		retry: config.RetryPolicy{
			MaxAttempts:       3,
			InitialDelayMs:    500,
			MaxDelayMs:        10000,
			BackoffMultiplier: 2.0,
		},
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Name returns the source name.
func (s *APISource) Name() string {
	return s.name
}

// Check sends a HEAD request and fails on network errors or 4xx/5xx replies.
func (s *APISource) Check(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, s.url, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header = s.headers.Clone()

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrSourceUnreachable, s.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("%w: %s: %w: %d", ErrSourceUnreachable, s.url, ErrUnexpectedStatusCode, resp.StatusCode)
	}

	return nil
}

// Fetch GETs the endpoint, retrying network failures and retryable statuses
// with the configured backoff.
func (s *APISource) Fetch(ctx context.Context) (models.Table, error) {
	var table models.Table

	number := 0

	err := retry.Do(ctx, s.backoff(), func(ctx context.Context) error {
		number++

		start := time.Now()
		t, status, err := s.fetchOnce(ctx)
		s.record(number, status, time.Since(start), err)

		if err == nil {
			table = t

			return nil
		}

		if status == 0 || isRetryableStatus(status) {
			if ctx.Err() != nil {
				return err
			}

			return retry.RetryableError(err)
		}

		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.name, err)
	}

	s.tag.apply(table)

	return table, nil
}

func (s *APISource) fetchOnce(ctx context.Context) (models.Table, int, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, 0, fmt.Errorf("rate limiter: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, http.NoBody)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header = s.headers.Clone()

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode, fmt.Errorf("%w: %d", ErrUnexpectedStatusCode, resp.StatusCode)
	}

	limit := int64(s.bodyLimitKb) * 1024

	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read body: %w", err)
	}

	if int64(len(body)) > limit {
		return nil, resp.StatusCode, fmt.Errorf("%w: limit is %d KB", ErrBodyTooLarge, s.bodyLimitKb)
	}

	table, err := decodeRecords(bytes.NewReader(body))
	if err != nil {
		// A malformed body will not improve on retry.
		return nil, resp.StatusCode, err
	}

	return table, resp.StatusCode, nil
}

// backoff waits RetryPolicy.GetRetryDelay(n) before attempt n and stops after
// MaxAttempts.
func (s *APISource) backoff() retry.Backoff {
	policy := s.retry
	next := 1

	return retry.BackoffFunc(func() (time.Duration, bool) {
		next++
		if next > policy.MaxAttempts {
			return 0, true
		}

		return policy.GetRetryDelay(next), false
	})
}

func (s *APISource) record(number, status int, d time.Duration, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := Attempt{
		Timestamp:  time.Now(),
		URL:        s.url,
		Number:     number,
		StatusCode: status,
		Duration:   d,
		Success:    err == nil,
	}

	if err != nil {
		a.Error = err.Error()
	}

	s.attempts = append(s.attempts, a)
}

// Attempts returns a copy of the request log.
func (s *APISource) Attempts() []Attempt {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Attempt, len(s.attempts))
	copy(out, s.attempts)

	return out
}

// isRetryableStatus reports temporary server-side failures.
func isRetryableStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusServiceUnavailable,
		http.StatusGatewayTimeout,
		http.StatusTooManyRequests,
		http.StatusRequestTimeout,
		http.StatusBadGateway:
		return true
	}

	return false
}
