package client

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// ErrorKind records why an upload failed. It is diagnostic only: callers
// should match on *UploadError.
type ErrorKind string

const (
	KindRetriesExhausted ErrorKind = "retries_exhausted"
	KindConnection       ErrorKind = "connection"
	KindTimeout          ErrorKind = "timeout"
	KindHTTPStatus       ErrorKind = "http_status"
	KindUnexpected       ErrorKind = "unexpected"
)

// maxErrorBody bounds the response text quoted in error messages
const maxErrorBody = 1024

// UploadError is returned for every upload failure
type UploadError struct {
	Kind       ErrorKind
	Endpoint   string
	BaseURL    string
	StatusCode int
	Body       string
	Attempts   int
	Err        error
}

func (e *UploadError) Error() string {
	switch e.Kind {
	case KindRetriesExhausted:
		msg := fmt.Sprintf("failed to upload after maximum retries to %s (last status %d)", e.Endpoint, e.StatusCode)
		if body := truncate(e.Body, maxErrorBody); body != "" {
			msg += ": " + body
		}
		return msg
	case KindConnection:
		return fmt.Sprintf("connection failed (check internet or URL): %s: %v", e.BaseURL, e.Err)
	case KindTimeout:
		return fmt.Sprintf("upload to %s timed out after %d attempt(s): %v", e.Endpoint, e.Attempts, e.Err)
	case KindHTTPStatus:
		return fmt.Sprintf("server refused data (status %d): %s", e.StatusCode, truncate(e.Body, maxErrorBody))
	default:
		return fmt.Sprintf("unexpected upload error: %v", e.Err)
	}
}

func (e *UploadError) Unwrap() error { return e.Err }

func truncate(s string, limit int) string {
	s = strings.TrimSpace(s)
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
