package client

import (
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"
)

// RetryPolicy controls how failed upload attempts are retried
type RetryPolicy struct {
	// MaxRetries is the number of retries after the first attempt
	MaxRetries int

	// RetryableStatus lists response codes that trigger a retry
	RetryableStatus []int

	// BackoffFactor is the delay before the first retry; it doubles on each retry
	BackoffFactor time.Duration

	// MaxBackoff caps any single delay, including Retry-After
	MaxBackoff time.Duration
}

// DefaultRetryPolicy waits 1s, 2s, 4s on 429 and 5xx gateway errors
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 3,
		RetryableStatus: []int{
			http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout,
		},
		BackoffFactor: time.Second,
		MaxBackoff:    120 * time.Second,
	}
}

// ShouldRetry returns true if the status code is retryable
func (p RetryPolicy) ShouldRetry(status int) bool {
	return slices.Contains(p.RetryableStatus, status)
}

// Attempts returns the total number of requests the policy allows
func (p RetryPolicy) Attempts() int {
	if p.MaxRetries < 0 {
		return 1
	}
	return p.MaxRetries + 1
}

// Backoff returns the delay before the n-th retry (n starts at 1)
func (p RetryPolicy) Backoff(n int) time.Duration {
	if n < 1 || p.BackoffFactor <= 0 {
		return 0
	}

	delay := p.BackoffFactor
	for i := 1; i < n; i++ {
		delay *= 2
		if p.MaxBackoff > 0 && delay >= p.MaxBackoff {
			return p.MaxBackoff
		}
	}
	return p.capped(delay)
}

// delay combines the computed backoff with a server-provided Retry-After
func (p RetryPolicy) delay(n int, resp *http.Response, now time.Time) time.Duration {
	if resp != nil && honorsRetryAfter(resp.StatusCode) {
		if d, ok := parseRetryAfter(resp.Header.Get("Retry-After"), now); ok {
			return p.capped(d)
		}
	}
	return p.Backoff(n)
}

func (p RetryPolicy) capped(d time.Duration) time.Duration {
	if p.MaxBackoff > 0 && d > p.MaxBackoff {
		return p.MaxBackoff
	}
	return d
}

func honorsRetryAfter(status int) bool {
	return status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable
}

// parseRetryAfter accepts delay-seconds or an HTTP date
func parseRetryAfter(value string, now time.Time) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}

	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0, false
		}
		return time.Duration(secs) * time.Second, true
	}

	at, err := http.ParseTime(value)
	if err != nil {
		return 0, false
	}
	if d := at.Sub(now); d > 0 {
		return d, true
	}
	return 0, true
}
