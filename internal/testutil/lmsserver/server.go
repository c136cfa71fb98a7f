// Package lmsserver is a scripted stand-in for the LMS course import API,
// used by tests that exercise the uploader and the CLI end to end.
package lmsserver

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// ImportPath mirrors the LMS import route
const ImportPath = "/api/v1/courses/import"

// Response is one scripted reply. Once the script is exhausted the last
// response repeats.
type Response struct {
	Status int
	Body   string
	Header map[string]string
	Delay  time.Duration
}

// Request is a recorded import call. RequestID is the client X-Request-ID
// header, or a server-generated id when it was absent.
type Request struct {
	Header    http.Header
	Body      []byte
	RequestID string
}

// Server records import requests and answers with scripted responses
type Server struct {
	URL string

	srv       *httptest.Server
	token     string
	mu        sync.Mutex
	responses []Response
	requests  []Request
}

// New starts a server that requires "Bearer <token>" (any token when empty)
// and replies with responses in order. It is closed when the test ends.
func New(t testing.TB, token string, responses ...Response) *Server {
	t.Helper()

	if len(responses) == 0 {
		responses = []Response{{Status: http.StatusCreated, Body: `{"success":true}`}}
	}

	s := &Server{token: token, responses: responses}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))
	r.Post(ImportPath, s.handleImport)

	s.srv = httptest.NewServer(r)
	s.URL = s.srv.URL
	t.Cleanup(s.srv.Close)

	return s
}

// Requests returns the recorded requests, including rejected ones
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Hits returns how many import requests were received
func (s *Server) Hits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	s.mu.Lock()
	s.requests = append(s.requests, Request{
		Header:    r.Header.Clone(),
		Body:      body,
		RequestID: middleware.GetReqID(r.Context()),
	})
	idx := len(s.requests) - 1
	if idx >= len(s.responses) {
		idx = len(s.responses) - 1
	}
	resp := s.responses[idx]
	s.mu.Unlock()

	if s.token != "" && strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ") != s.token {
		writeJSON(w, http.StatusUnauthorized, `{"error":"invalid api key"}`)
		return
	}

	if resp.Delay > 0 {
		select {
		case <-time.After(resp.Delay):
		case <-r.Context().Done():
			return
		}
	}

	for k, v := range resp.Header {
		w.Header().Set(k, v)
	}
	writeJSON(w, resp.Status, resp.Body)
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	io.WriteString(w, body)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		slog.Debug("lms request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
