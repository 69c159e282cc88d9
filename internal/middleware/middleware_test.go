package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap/zaptest"
)

type staticLimiter struct {
	allow bool
}

func (s *staticLimiter) Allow() bool {
	return s.allow
}

func TestRateLimitBlocksWhenLimiterDenies(t *testing.T) {
	handler := RateLimit(&staticLimiter{allow: false})(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		t.Fatalf("handler should not execute when rate limited")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
}

func TestRateLimitPassesWhenLimiterAllows(t *testing.T) {
	var called bool
	handler := RateLimit(&staticLimiter{allow: true})(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		called = true
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if !called {
		t.Fatalf("expected handler to execute when limiter allows")
	}
}

func TestNewTokenBucketUsesDefaults(t *testing.T) {
	limiter := NewTokenBucket(0, 0)
	if !limiter.Allow() {
		t.Fatalf("expected first request to be allowed")
	}
	if limiter.Allow() {
		t.Fatalf("expected burst of one to reject the second immediate request")
	}
}

func TestCORSPreflight(t *testing.T) {
	handler := CORS(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		t.Fatalf("preflight should not reach the handler")
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/reports", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("expected wildcard origin header")
	}
	if rec.Header().Get("Access-Control-Allow-Methods") != http.MethodPost {
		t.Fatalf("expected POST to be allowed, got %q", rec.Header().Get("Access-Control-Allow-Methods"))
	}
	if rec.Header().Get("Access-Control-Max-Age") != "86400" {
		t.Fatalf("expected max age 86400, got %q", rec.Header().Get("Access-Control-Max-Age"))
	}
}

func TestCORSRejectsDisallowedMethod(t *testing.T) {
	handler := CORS(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		t.Fatalf("preflight should not reach the handler")
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/reports", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPut)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("expected no allow-origin for PUT preflight")
	}
}

func TestCORSSimpleRequestExposesRequestID(t *testing.T) {
	var called bool
	handler := CORS(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
		w.Header().Set("X-Request-ID", "abc")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if !called {
		t.Fatalf("expected handler to execute for GET")
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("expected wildcard origin header")
	}
	if rec.Header().Get("Access-Control-Expose-Headers") != "X-Request-Id" {
		t.Fatalf("expected exposed request id header, got %q", rec.Header().Get("Access-Control-Expose-Headers"))
	}
}

func TestLoggerAndMetricsPassThrough(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Logger(zaptest.NewLogger(t)))
	r.Use(Metrics)
	r.Get("/api/states/{state}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/states/kerala", nil))

	if rec.Code != http.StatusTeapot {
		t.Fatalf("expected 418, got %d", rec.Code)
	}
}
