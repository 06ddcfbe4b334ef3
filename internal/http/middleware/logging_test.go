package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })
	log.Logger = zerolog.New(&buf)
	return &buf
}

// logLines decodes one JSON object per log line.
func logLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("bad log line %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestRequestID_ReuseOrGenerate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/x", func(c *gin.Context) {
		v, _ := c.Get(requestIDKey)
		c.String(http.StatusOK, asString(v))
	})

	cases := []struct {
		in       string
		wantSame bool
	}{
		{"client-rid-1", true},
		{"", false},
		{"has spaces", false},
		{strings.Repeat("a", maxRequestIDLen+1), false},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		if tc.in != "" {
			req.Header.Set(requestIDHeader, tc.in)
		}
		r.ServeHTTP(w, req)

		got := w.Header().Get(requestIDHeader)
		if got == "" || got != w.Body.String() {
			t.Fatalf("in=%q: header %q body %q", tc.in, got, w.Body.String())
		}
		if (got == tc.in) != tc.wantSame {
			t.Fatalf("in=%q: got %q, wantSame=%v", tc.in, got, tc.wantSame)
		}
	}
}

func TestLogger_AttachesRequestLoggerToContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogs(t)

	r := gin.New()
	r.Use(RequestID(), Identity(), Logger())
	r.POST("/api/v1/chat/sessions/:id/messages", func(c *gin.Context) {
		// Services log through the request context.
		zerolog.Ctx(c.Request.Context()).Info().Msg("from service")
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat/sessions/s-42/messages?x=1", nil)
	req.Header.Set(requestIDHeader, "rid-1")
	req.Header.Set(userIDHeader, "user-7")
	r.ServeHTTP(w, req)

	lines := logLines(t, buf)
	if len(lines) != 2 {
		t.Fatalf("want service line + access line, got %d: %s", len(lines), buf.String())
	}
	for _, l := range lines {
		if l["request_id"] != "rid-1" || l["session_id"] != "s-42" || l["user_id"] != "user-7" {
			t.Fatalf("missing request fields: %v", l)
		}
	}
	access := lines[1]
	if access["message"] != "request" || access["status"] != float64(200) || access["query"] != "x=1" {
		t.Fatalf("access line: %v", access)
	}
	if access["path"] != "/api/v1/chat/sessions/:id/messages" {
		t.Fatalf("path should be the route template: %v", access["path"])
	}
}

func TestLogger_LevelByStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogs(t)

	r := gin.New()
	r.Use(Logger())
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/bad", func(c *gin.Context) { c.Status(http.StatusBadRequest) })
	r.GET("/err", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })
	r.GET("/ginerr", func(c *gin.Context) {
		_ = c.Error(http.ErrBodyNotAllowed)
		c.Status(http.StatusOK)
	})

	want := map[string]string{"/ok": "info", "/bad": "warn", "/err": "error", "/ginerr": "error"}
	for path, level := range want {
		buf.Reset()
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
		lines := logLines(t, buf)
		if len(lines) != 1 || lines[0]["level"] != level {
			t.Fatalf("%s: want level %s, got %v", path, level, lines)
		}
	}
}

func TestRecovery_JSON500WithRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogs(t)

	r := gin.New()
	r.Use(RequestID(), Logger(), Recovery())
	r.GET("/panic", func(c *gin.Context) { panic("boom") })
	r.GET("/late", func(c *gin.Context) {
		c.String(http.StatusOK, "partial")
		panic("after write")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/panic", nil)
	req.Header.Set(requestIDHeader, "rid-p")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if body["request_id"] != "rid-p" || body["code"] != "internal_error" || strings.Contains(w.Body.String(), "boom") {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
	if !strings.Contains(buf.String(), "panic recovered") || !strings.Contains(buf.String(), `"request_id":"rid-p"`) {
		t.Fatalf("panic not logged with request id: %s", buf.String())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/late", nil))
	if w.Body.String() != "partial" {
		t.Fatalf("written response must not be replaced: %q", w.Body.String())
	}
}

func TestLoggerFrom_Fallback(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	if LoggerFrom(c) == nil {
		t.Fatalf("expected fallback logger")
	}
	c.Set(loggerKey, "not a logger")
	if LoggerFrom(c) == nil {
		t.Fatalf("expected fallback logger for wrong type")
	}
}

func TestIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Identity())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, UserIDFrom(c)) })

	cases := map[string]string{
		"":                "",
		"  user-1  ":      "user-1",
		"bad id":          "",
		"<script>":        "",
		"team:alice.b~42": "team:alice.b~42",
	}
	for in, want := range cases {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(userIDHeader, in)
		r.ServeHTTP(w, req)
		if w.Body.String() != want {
			t.Fatalf("X-User-ID %q -> %q; want %q", in, w.Body.String(), want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if truncate("abc", 0) != "abc" || truncate("abc", 3) != "abc" || truncate("abcdef", 3) != "abc…" {
		t.Fatalf("truncate mismatch")
	}
}
