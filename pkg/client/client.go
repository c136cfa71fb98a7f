// Package client uploads course documents to the LMS import API.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
)

// ImportPath is the LMS endpoint that accepts course documents
const ImportPath = "/api/v1/courses/import"

// Client defaults
const (
	DefaultTimeout   = 120 * time.Second
	DefaultUserAgent = "CourseParser/1.0"
)

// maxResponseBody bounds how much of a response is kept
const maxResponseBody = 1 << 20

// Uploader sends course documents to an LMS. It may be reused for
// several uploads; Close releases its connections.
type Uploader struct {
	baseURL    string
	apiToken   string
	userAgent  string
	timeout    time.Duration
	retry      RetryPolicy
	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time
}

// Option configures the uploader
type Option func(*Uploader)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(u *Uploader) {
		if client != nil {
			u.httpClient = client
		}
	}
}

// WithTimeout sets the per-attempt timeout
func WithTimeout(timeout time.Duration) Option {
	return func(u *Uploader) {
		if timeout > 0 {
			u.timeout = timeout
		}
	}
}

// WithRetryPolicy replaces the default retry policy
func WithRetryPolicy(policy RetryPolicy) Option {
	return func(u *Uploader) {
		u.retry = policy
	}
}

// WithMaxRetries overrides only the retry count of the current policy
func WithMaxRetries(n int) Option {
	return func(u *Uploader) {
		if n >= 0 {
			u.retry.MaxRetries = n
		}
	}
}

// WithLogger sets the logger for attempt diagnostics
func WithLogger(logger *slog.Logger) Option {
	return func(u *Uploader) {
		if logger != nil {
			u.logger = logger
		}
	}
}

// WithUserAgent overrides the client identification string
func WithUserAgent(userAgent string) Option {
	return func(u *Uploader) {
		if userAgent != "" {
			u.userAgent = userAgent
		}
	}
}

// NewUploader creates a new uploader for the LMS at baseURL
func NewUploader(baseURL, apiToken string, opts ...Option) *Uploader {
	u := &Uploader{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiToken:   apiToken,
		userAgent:  DefaultUserAgent,
		timeout:    DefaultTimeout,
		retry:      DefaultRetryPolicy(),
		httpClient: &http.Client{Transport: http.DefaultTransport.(*http.Transport).Clone()},
		logger:     slog.Default(),
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(u)
	}

	return u
}

// Endpoint returns the full import URL
func (u *Uploader) Endpoint() string {
	return u.baseURL + ImportPath
}

// Close releases idle connections held by the uploader
func (u *Uploader) Close() {
	u.httpClient.CloseIdleConnections()
}

// UploadResult describes a successful upload
type UploadResult struct {
	StatusCode  int
	Attempts    int
	RequestID   string
	PayloadSize int
	Body        []byte
}

// attemptResult holds one request's outcome; exactly one of resp or err is set.
// transport marks errors raised while talking to the server.
type attemptResult struct {
	resp      *http.Response
	body      []byte
	err       error
	transport bool
}

// UploadCourse POSTs document as JSON to the import endpoint, retrying
// transient failures according to the retry policy
func (u *Uploader) UploadCourse(ctx context.Context, document any) (*UploadResult, error) {
	endpoint := u.Endpoint()

	payload, err := json.Marshal(document)
	if err != nil {
		return nil, &UploadError{Kind: KindUnexpected, Endpoint: endpoint, BaseURL: u.baseURL,
			Err: fmt.Errorf("failed to marshal document: %w", err)}
	}

	requestID := uuid.New().String()
	logger := u.logger.With("endpoint", endpoint, "request_id", requestID)
	logger.Info("uploading course", "payload_bytes", len(payload), "timeout", u.timeout)

	maxAttempts := u.retry.Attempts()
	for attempt := 1; ; attempt++ {
		res := u.doRequest(ctx, endpoint, requestID, payload)

		if res.err == nil && res.resp.StatusCode >= 200 && res.resp.StatusCode < 300 {
			logger.Info("course uploaded", "status", res.resp.StatusCode, "attempts", attempt)
			return &UploadResult{
				StatusCode:  res.resp.StatusCode,
				Attempts:    attempt,
				RequestID:   requestID,
				PayloadSize: len(payload),
				Body:        res.body,
			}, nil
		}

		if !u.retryable(ctx, res) || attempt >= maxAttempts {
			return nil, u.classify(ctx, endpoint, attempt, res)
		}

		delay := u.retry.delay(attempt, res.resp, u.now())
		logAttemptFailure(logger, attempt, maxAttempts, delay, res)

		if err := sleep(ctx, delay); err != nil {
			return nil, &UploadError{Kind: KindUnexpected, Endpoint: endpoint, BaseURL: u.baseURL,
				Attempts: attempt, Err: err}
		}
	}
}

// doRequest performs a single HTTP attempt bounded by the per-attempt timeout
func (u *Uploader) doRequest(ctx context.Context, endpoint, requestID string, payload []byte) attemptResult {
	attemptCtx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return attemptResult{err: fmt.Errorf("failed to create request: %w", err)}
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", u.userAgent)
	req.Header.Set("X-Request-ID", requestID)
	if u.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+u.apiToken)
	}

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return attemptResult{err: fmt.Errorf("request failed: %w", err), transport: true}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return attemptResult{err: fmt.Errorf("failed to read response: %w", err), transport: true}
	}

	return attemptResult{resp: resp, body: body}
}

// retryable returns true if another attempt may succeed
func (u *Uploader) retryable(ctx context.Context, res attemptResult) bool {
	if ctx.Err() != nil {
		return false
	}
	if res.err != nil {
		return res.transport
	}
	return u.retry.ShouldRetry(res.resp.StatusCode)
}

// classify turns the final failed attempt into an UploadError
func (u *Uploader) classify(ctx context.Context, endpoint string, attempts int, res attemptResult) *UploadError {
	e := &UploadError{Endpoint: endpoint, BaseURL: u.baseURL, Attempts: attempts, Err: res.err}

	switch {
	case ctx.Err() != nil:
		e.Kind = KindUnexpected
		e.Err = ctx.Err()
	case res.err != nil && res.transport && isTimeout(res.err):
		e.Kind = KindTimeout
	case res.err != nil && res.transport:
		e.Kind = KindConnection
	case res.err != nil:
		e.Kind = KindUnexpected
	default:
		e.StatusCode = res.resp.StatusCode
		e.Body = string(res.body)
		if u.retry.ShouldRetry(res.resp.StatusCode) {
			e.Kind = KindRetriesExhausted
		} else {
			e.Kind = KindHTTPStatus
		}
	}

	return e
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func logAttemptFailure(logger *slog.Logger, attempt, maxAttempts int, delay time.Duration, res attemptResult) {
	args := []any{"attempt", attempt, "max_attempts", maxAttempts, "retry_in", delay}
	if res.err != nil {
		args = append(args, "error", res.err)
	} else {
		args = append(args, "status", res.resp.StatusCode)
	}
	logger.Warn("upload attempt failed, retrying", args...)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
