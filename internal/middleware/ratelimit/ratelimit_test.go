package ratelimit

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestLimiter_AllowBurstThenReject(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerSecond: 1, Burst: 3})
	defer rl.Stop()
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return fixed }

	for i := 0; i < 3; i++ {
		if !rl.Allow("10.0.0.1") {
			t.Fatalf("request %d should be allowed within burst", i+1)
		}
	}
	if rl.Allow("10.0.0.1") {
		t.Fatal("request beyond burst should be rejected")
	}
	if !rl.Allow("10.0.0.2") {
		t.Fatal("other clients have their own bucket")
	}
	if rl.Hits() != 1 {
		t.Fatalf("hits = %d, want 1", rl.Hits())
	}

	fixed = fixed.Add(time.Second)
	if !rl.Allow("10.0.0.1") {
		t.Fatal("bucket should refill after one second")
	}
}

func TestNewLimiter_BurstBelowRate(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	tests := []struct {
		name      string
		burst     int
		wantBurst int
		wantWarn  bool
	}{
		{"configured below rate", 2, 5, true},
		{"unset", 0, 5, false},
		{"above rate", 8, 8, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			rl := NewLimiter(Config{RequestsPerSecond: 5, Burst: tt.burst})
			defer rl.Stop()

			if rl.burst != tt.wantBurst {
				t.Fatalf("burst = %d, want %d", rl.burst, tt.wantBurst)
			}
			if warned := strings.Contains(buf.String(), "burst below requests per second"); warned != tt.wantWarn {
				t.Fatalf("warned = %v, want %v: %s", warned, tt.wantWarn, buf.String())
			}
		})
	}
}

func TestLimiter_CleanupStaleEntries(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerSecond: 5, Burst: 5, IdleTimeout: time.Minute})
	defer rl.Stop()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.Allow("a")
	now = now.Add(2 * time.Minute)
	rl.Allow("b")

	if removed := rl.cleanupStaleEntries(); removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if rl.ActiveClients() != 1 {
		t.Fatalf("active = %d, want 1", rl.ActiveClients())
	}
}

func TestLimiter_Middleware(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerSecond: 1, Burst: 1})
	defer rl.Stop()

	var limited bool
	h := rl.Middleware(
		func(*http.Request) string { return "1.2.3.4" },
		func(w http.ResponseWriter, _ *http.Request) {
			limited = true
			w.WriteHeader(http.StatusTooManyRequests)
		},
	)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) }))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("first request status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if !limited || rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request should be limited, status = %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "1" {
		t.Fatalf("Retry-After = %q", rec.Header().Get("Retry-After"))
	}
}

func TestStopIsIdempotent(t *testing.T) {
	rl := NewLimiter(DefaultConfig())
	rl.Stop()
	rl.Stop()
}
