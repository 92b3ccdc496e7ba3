package trace

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"scoreboard/internal/log"
)

func TestMiddlewareAssignsRequestID(t *testing.T) {
	m := NewMiddleware(func(*http.Request) string { return "1.2.3.4" }, nil)

	var seen string
	var logger *log.Logger
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		logger = log.FromContext(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if !strings.HasPrefix(seen, "req_") {
		t.Fatalf("request id = %q", seen)
	}
	if rr.Header().Get(HeaderRequestID) != seen {
		t.Fatalf("response header %q != %q", rr.Header().Get(HeaderRequestID), seen)
	}
	if logger == nil || logger.Component() != log.ComponentTrace {
		t.Fatal("request logger not installed in context")
	}

	got := m.GetMetrics()
	if got.TotalRequests != 1 || got.ClientErrors != 1 || got.ServerErrors != 0 {
		t.Fatalf("metrics = %+v", got)
	}
}

func TestMiddlewareKeepsIncomingRequestID(t *testing.T) {
	m := NewMiddleware(nil, nil)
	var seen string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "abc123")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen != "abc123" {
		t.Fatalf("request id = %q, want abc123", seen)
	}
}

func TestGenerateRequestIDUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := GenerateRequestID()
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
}

func TestMiddlewareReplacesOversizedRequestID(t *testing.T) {
	m := NewMiddleware(nil, nil)
	var seen string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		w.WriteHeader(http.StatusInternalServerError)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, strings.Repeat("x", 65))
	h.ServeHTTP(httptest.NewRecorder(), req)

	if !strings.HasPrefix(seen, "req_") {
		t.Fatalf("oversized id kept: %q", seen)
	}
	if got := m.GetMetrics(); got.ServerErrors != 1 {
		t.Fatalf("server errors = %d, want 1", got.ServerErrors)
	}
}
