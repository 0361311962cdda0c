package trace

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestMiddleware_AssignsRequestID(t *testing.T) {
	m := NewMiddleware(nil)
	var seen string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if !strings.HasPrefix(seen, "req_") || len(seen) != 20 {
		t.Fatalf("unexpected request id %q", seen)
	}
	if got := rec.Header().Get(RequestIDHeader); got != seen {
		t.Errorf("response header = %q, want %q", got, seen)
	}
	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestMiddleware_KeepsCallerRequestID(t *testing.T) {
	m := NewMiddleware(nil)
	var seen string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	tests := []struct {
		header string
		keep   bool
	}{
		{"abc-123", true},
		{"has space", false},
		{strings.Repeat("x", 65), false},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, tt.header)
		h.ServeHTTP(httptest.NewRecorder(), req)
		if (seen == tt.header) != tt.keep {
			t.Errorf("header %q: got id %q, keep=%v", tt.header, seen, tt.keep)
		}
	}
}

func TestMiddleware_Metrics(t *testing.T) {
	m := NewMiddleware(func(*http.Request) string { return "10.0.0.1" })
	ok := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	fail := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	ok.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	ok.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	fail.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	got := m.GetMetrics()
	if got.TotalRequests != 3 {
		t.Errorf("TotalRequests = %d, want 3", got.TotalRequests)
	}
	if got.ServerErrors != 1 {
		t.Errorf("ServerErrors = %d, want 1", got.ServerErrors)
	}
	if got.AverageResponseTime < 0 {
		t.Errorf("AverageResponseTime = %d", got.AverageResponseTime)
	}
}

func TestGetRequestID_Missing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if id := GetRequestID(req.Context()); id != "" {
		t.Errorf("expected empty id, got %q", id)
	}
}
