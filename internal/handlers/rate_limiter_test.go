package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-link/api/internal/platform/auth"
)

func TestSimpleRateLimiterWindowReset(t *testing.T) {
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	limiter := newSimpleRateLimiter(2, time.Minute, clock)

	if !limiter.Allow("uid-1") || !limiter.Allow("uid-1") {
		t.Fatal("first two requests should pass")
	}
	if limiter.Allow("uid-1") {
		t.Fatal("third request in the window should be rejected")
	}
	if !limiter.Allow("uid-2") {
		t.Fatal("other keys have their own bucket")
	}

	now = now.Add(61 * time.Second)
	if !limiter.Allow("uid-1") {
		t.Fatal("window expiry should reset the bucket")
	}
}

func TestIdentityRateLimitKeysByUID(t *testing.T) {
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	limiter := newSimpleRateLimiter(1, time.Minute, func() time.Time { return now })

	handler := identityRateLimit(limiter)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	send := func(uid string) int {
		req := httptest.NewRequest(http.MethodGet, "/hub/orders", nil)
		req = req.WithContext(auth.WithIdentity(req.Context(), &auth.Identity{UID: uid}))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := send("uid-1"); code != http.StatusNoContent {
		t.Fatalf("first request: got %d", code)
	}
	if code := send("uid-1"); code != http.StatusTooManyRequests {
		t.Fatalf("second request for same uid: got %d", code)
	}
	if code := send("uid-2"); code != http.StatusNoContent {
		t.Fatalf("different uid should not be throttled: got %d", code)
	}
}

func TestIdentityRateLimitNilLimiterPassesThrough(t *testing.T) {
	handler := identityRateLimit(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/me", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("got %d", rec.Code)
	}
}
