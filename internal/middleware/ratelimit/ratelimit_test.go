package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func newTestLimiter(t *testing.T, rpm int) (*Limiter, *fakeClock) {
	t.Helper()
	rl := NewLimiter(Config{RequestsPerMinute: rpm, CleanupInterval: time.Hour})
	t.Cleanup(rl.Stop)
	clock := &fakeClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	rl.now = clock.now
	return rl, clock
}

func TestAllow_WindowResets(t *testing.T) {
	rl, clock := newTestLimiter(t, 3)

	for i := 0; i < 3; i++ {
		if !rl.Allow("1.2.3.4") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if rl.Allow("1.2.3.4") {
		t.Fatal("fourth request in the window should be rejected")
	}
	if !rl.Allow("5.6.7.8") {
		t.Fatal("other clients have their own window")
	}

	clock.t = clock.t.Add(time.Minute)
	if !rl.Allow("1.2.3.4") {
		t.Fatal("a new window should allow the request")
	}

	if got := rl.GetMetrics(); got.Rejected != 1 || got.ClientCount != 2 {
		t.Errorf("metrics = %+v, want 1 rejected and 2 clients", got)
	}
}

func TestAllow_SteadyTrafficDoesNotSlideWindow(t *testing.T) {
	rl, clock := newTestLimiter(t, 2)

	rl.Allow("ip")
	clock.t = clock.t.Add(40 * time.Second)
	rl.Allow("ip")
	clock.t = clock.t.Add(10 * time.Second)
	if rl.Allow("ip") {
		t.Fatal("third request inside the same minute should be rejected")
	}
	clock.t = clock.t.Add(11 * time.Second)
	if !rl.Allow("ip") {
		t.Fatal("window started at the first request should have expired")
	}
}

func TestCleanupStaleEntries(t *testing.T) {
	rl, clock := newTestLimiter(t, 10)
	rl.Allow("old")
	clock.t = clock.t.Add(9 * time.Minute)
	rl.Allow("recent")
	clock.t = clock.t.Add(2 * time.Minute)

	if removed := rl.cleanupStaleEntries(); removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if rl.ActiveClients() != 1 {
		t.Errorf("ActiveClients = %d, want 1", rl.ActiveClients())
	}
}

func TestMiddleware(t *testing.T) {
	rl, _ := newTestLimiter(t, 1)
	h := rl.Middleware(
		func(*http.Request) string { return "ip" },
		func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"slow down"}`))
		},
	)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	first := httptest.NewRecorder()
	h.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/", nil))
	if first.Code != http.StatusNoContent {
		t.Fatalf("first status = %d", first.Code)
	}

	second := httptest.NewRecorder()
	h.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/", nil))
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second status = %d", second.Code)
	}
	if second.Header().Get("Retry-After") != "60" {
		t.Errorf("missing Retry-After header")
	}
}

func TestStopIsIdempotent(t *testing.T) {
	rl := NewLimiter(Config{})
	rl.Stop()
	rl.Stop()
	if rl.requestsPerMinute != DefaultConfig().RequestsPerMinute {
		t.Errorf("requestsPerMinute = %d", rl.requestsPerMinute)
	}
}
