package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func TestRedact(t *testing.T) {
	cases := []struct{ in, want string }{
		{"", ""},
		{"email=jane.doe@example.com", "email=[REDACTED:email]"},
		{"ticket=141add05-4415-4938-b5a1-17e0d3171aff", "ticket=[REDACTED:id]"},
		{"mobile=+44 20 7946 0958", "mobile=[REDACTED:phone]"},
		{"status=open&page=2", "status=open&page=2"},
	}
	for _, tc := range cases {
		if got := redact(tc.in); got != tc.want {
			t.Fatalf("redact(%q) = %q; want %q", tc.in, got, tc.want)
		}
	}
}

func TestRedactingLogger_ScrubsAndAttachesLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogs(t)

	r := gin.New()
	r.Use(RequestID(), RedactingLogger(RedactOptions{MaskHeaders: []string{" X-Api-Key "}}))
	r.GET("/api/v1/chat/sessions/:id/messages", func(c *gin.Context) {
		zerolog.Ctx(c.Request.Context()).Info().Msg("inside")
		c.Status(http.StatusNotFound)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/chat/sessions/s9/messages?email=a@b.co&page=1", nil)
	req.Header.Set("Authorization", "Bearer secret")
	req.Header.Set("X-Api-Key", "k-123")
	req.Header.Set("X-Contact", "call 212-555-1212")
	req.Header.Set(requestIDHeader, "rid-r")
	r.ServeHTTP(httptest.NewRecorder(), req)

	out := buf.String()
	for _, leaked := range []string{"Bearer secret", "k-123", "a@b.co", "212-555-1212"} {
		if strings.Contains(out, leaked) {
			t.Fatalf("leaked %q in %s", leaked, out)
		}
	}
	lines := logLines(t, buf)
	if len(lines) != 2 {
		t.Fatalf("want 2 lines, got %d: %s", len(lines), out)
	}
	if lines[0]["message"] != "inside" || lines[0]["session_id"] != "s9" || lines[0]["request_id"] != "rid-r" {
		t.Fatalf("request logger fields: %v", lines[0])
	}
	access := lines[1]
	if access["message"] != "http_request" || access["level"] != "warn" || access["query"] != "email=[REDACTED:email]&page=1" {
		t.Fatalf("access line: %v", access)
	}
	headers, _ := access["headers"].(map[string]any)
	if headers["Authorization"] != "[REDACTED]" || headers["X-Api-Key"] != "[REDACTED]" || headers["X-Contact"] != "call [REDACTED:phone]" {
		t.Fatalf("headers: %v", headers)
	}
}
