package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

func TestKeyBySessionUserOrIP(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Identity())
	key := KeyBySessionUserOrIP()
	r.POST("/api/v1/chat/sessions/:id/messages", func(c *gin.Context) { c.String(http.StatusOK, key(c)) })
	r.GET("/api/v1/tickets", func(c *gin.Context) { c.String(http.StatusOK, key(c)) })

	cases := []struct {
		method, path, user, want string
	}{
		{http.MethodPost, "/api/v1/chat/sessions/s-1/messages", "u1", "session:s-1"},
		{http.MethodGet, "/api/v1/tickets", "u1", "user:u1"},
		{http.MethodGet, "/api/v1/tickets", "", "ip:203.0.113.9"},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(tc.method, tc.path, nil)
		req.RemoteAddr = net.JoinHostPort("203.0.113.9", "12345")
		if tc.user != "" {
			req.Header.Set(userIDHeader, tc.user)
		}
		r.ServeHTTP(w, req)
		if w.Body.String() != tc.want {
			t.Fatalf("%s %s: key=%q want %q", tc.method, tc.path, w.Body.String(), tc.want)
		}
	}
}

func TestRateLimiter_BurstCoercionAndReuse(t *testing.T) {
	rl := NewRateLimiter(2.0, 0, KeyBySessionUserOrIP())
	if rl.burst != 1 {
		t.Fatalf("burst coercion failed, got %d", rl.burst)
	}
	lim := rl.limiter("k1")
	if got := rl.limiter("k1"); got != lim {
		t.Fatalf("expected the same bucket for the same key")
	}
	if rl.limiter("k2") == lim || rl.size() != 2 {
		t.Fatalf("distinct keys need distinct buckets")
	}
}

func TestRateLimiter_SweepsIdleBuckets(t *testing.T) {
	rl := NewRateLimiter(1.0, 1, KeyBySessionUserOrIP())
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.mu.Lock()
	rl.visitors["old"] = &visitor{limiter: rate.NewLimiter(1, 1), lastSeen: now.Add(-time.Hour)}
	rl.visitors["fresh"] = &visitor{limiter: rate.NewLimiter(1, 1), lastSeen: now.Add(-time.Minute)}
	rl.sweepN = 4999
	rl.mu.Unlock()

	_ = rl.limiter("new")

	rl.mu.Lock()
	_, old := rl.visitors["old"]
	_, fresh := rl.visitors["fresh"]
	_, created := rl.visitors["new"]
	sweep := rl.sweepN
	rl.mu.Unlock()
	if old || !fresh || !created || sweep != 0 {
		t.Fatalf("old=%v fresh=%v new=%v sweepN=%d", old, fresh, created, sweep)
	}
}

func TestRateLimiter_Handler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rl := NewRateLimiter(1.0, 1, func(*gin.Context) string { return "same" })

	r := gin.New()
	r.Use(RequestID(), rl.Handler())
	r.GET("/ok", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("first request should pass, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set(requestIDHeader, "rid-429")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusTooManyRequests || w.Header().Get("Retry-After") != "1" {
		t.Fatalf("second request: %d retry-after=%q", w.Code, w.Header().Get("Retry-After"))
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if body["code"] != "too_many_requests" || body["request_id"] != "rid-429" {
		t.Fatalf("unexpected body: %v", body)
	}

	// Replays skip the bucket.
	rb := gin.New()
	rb.Use(func(c *gin.Context) { c.Set(ctxKeyRateBypass, true); c.Next() }, rl.Handler())
	rb.GET("/ok", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	w = httptest.NewRecorder()
	rb.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("bypass should pass, got %d", w.Code)
	}
}

func TestRateLimiter_ZeroRPSDisables(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rl := NewRateLimiter(0, 1, KeyBySessionUserOrIP())
	r := gin.New()
	r.Use(rl.Handler())
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
		if w.Code != http.StatusNoContent {
			t.Fatalf("request %d limited with rps=0: %d", i, w.Code)
		}
	}
	if rl.size() != 0 {
		t.Fatalf("disabled limiter should not allocate buckets")
	}
}

func TestIsRateBypass(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	if IsRateBypass(c) {
		t.Fatalf("default must be false")
	}
	c.Set(ctxKeyRateBypass, true)
	if !IsRateBypass(c) {
		t.Fatalf("expected true")
	}
	c.Set(ctxKeyRateBypass, "yes")
	if IsRateBypass(c) {
		t.Fatalf("non-bool must read as false")
	}
}
