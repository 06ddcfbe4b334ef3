package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

type lookupCall struct {
	session, key string
}

func idemRouter(t *testing.T, opts IdempotencyOptions, lookup IdempotencyLookup) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), IdempotencyValidator(opts, lookup))
	report := func(c *gin.Context) {
		k, _ := GetIdempotencyKey(c)
		c.JSON(http.StatusOK, gin.H{"key": k, "replay": IsReplay(c), "bypass": IsRateBypass(c)})
	}
	r.POST("/api/v1/chat/sessions/:id/messages", report)
	r.PATCH("/api/v1/tickets/:id/status", report)
	r.GET("/api/v1/chat/sessions/:id/messages", report)
	return r
}

func doIdem(r *gin.Engine, method, path, key string) (*httptest.ResponseRecorder, map[string]any) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	if key != "" {
		req.Header.Set(HeaderIdempotencyKey, key)
	}
	r.ServeHTTP(w, req)
	var body map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w, body
}

func TestIdempotencyValidator_NoHeader(t *testing.T) {
	called := false
	r := idemRouter(t, IdempotencyOptions{}, func(context.Context, string, string, time.Time) (bool, error) {
		called = true
		return true, nil
	})
	w, body := doIdem(r, http.MethodPost, "/api/v1/chat/sessions/s1/messages", "")
	if w.Code != http.StatusOK || body["key"] != "" || body["replay"] != false {
		t.Fatalf("unexpected: %d %v", w.Code, body)
	}
	if called {
		t.Fatalf("lookup must not run without a key")
	}
}

func TestIdempotencyValidator_Invalid(t *testing.T) {
	r := idemRouter(t, IdempotencyOptions{MaxLen: 8}, nil)
	for _, key := range []string{"too-long-key", "bad key", "semi;colon"} {
		w, body := doIdem(r, http.MethodPost, "/api/v1/chat/sessions/s1/messages", key)
		if w.Code != http.StatusBadRequest || body["code"] != "bad_idempotency_key" || body["request_id"] == "" {
			t.Fatalf("key %q: %d %v", key, w.Code, body)
		}
	}
}

func TestIdempotencyValidator_CustomPattern(t *testing.T) {
	r := idemRouter(t, IdempotencyOptions{Pattern: regexp.MustCompile(`^[0-9]+$`)}, nil)
	if w, _ := doIdem(r, http.MethodPost, "/api/v1/chat/sessions/s1/messages", "abc"); w.Code != http.StatusBadRequest {
		t.Fatalf("letters should fail a digits-only pattern: %d", w.Code)
	}
	if w, body := doIdem(r, http.MethodPost, "/api/v1/chat/sessions/s1/messages", "123"); w.Code != http.StatusOK || body["key"] != "123" {
		t.Fatalf("digits should pass: %d %v", w.Code, body)
	}
}

func TestIdempotencyValidator_ReplayBySession(t *testing.T) {
	var calls []lookupCall
	lookup := func(_ context.Context, session, key string, now time.Time) (bool, error) {
		if now.Location() != time.UTC {
			t.Errorf("lookup time must be UTC")
		}
		calls = append(calls, lookupCall{session, key})
		return session == "s1" && key == "k-1", nil
	}
	r := idemRouter(t, IdempotencyOptions{}, lookup)

	_, body := doIdem(r, http.MethodPost, "/api/v1/chat/sessions/s1/messages", "k-1")
	if body["key"] != "k-1" || body["replay"] != true || body["bypass"] != true {
		t.Fatalf("expected replay: %v", body)
	}
	_, body = doIdem(r, http.MethodPost, "/api/v1/chat/sessions/s2/messages", "k-1")
	if body["replay"] != false || body["bypass"] != false {
		t.Fatalf("same key in another session is not a replay: %v", body)
	}
	if len(calls) != 2 || calls[0] != (lookupCall{"s1", "k-1"}) || calls[1] != (lookupCall{"s2", "k-1"}) {
		t.Fatalf("lookup calls: %+v", calls)
	}

	// Non-session routes keep the key but never look it up.
	_, body = doIdem(r, http.MethodPatch, "/api/v1/tickets/t1/status", "k-1")
	if body["key"] != "k-1" || body["replay"] != false || len(calls) != 2 {
		t.Fatalf("ticket route: %v, calls=%d", body, len(calls))
	}
}

func TestIdempotencyValidator_SafeMethodsAndLookupErrors(t *testing.T) {
	r := idemRouter(t, IdempotencyOptions{}, func(context.Context, string, string, time.Time) (bool, error) {
		return true, errors.New("db down")
	})

	// GET ignores the header entirely, even a malformed one.
	w, body := doIdem(r, http.MethodGet, "/api/v1/chat/sessions/s1/messages", "bad key")
	if w.Code != http.StatusOK || body["key"] != "" {
		t.Fatalf("GET: %d %v", w.Code, body)
	}

	// A failing lookup is a miss.
	_, body = doIdem(r, http.MethodPost, "/api/v1/chat/sessions/s1/messages", "k")
	if body["replay"] != false {
		t.Fatalf("lookup error must not flag a replay: %v", body)
	}
}

func TestIdempotencyHelpers_WrongTypes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Set(ctxKeyIdemKey, 123)
	c.Set(ctxKeyIdemReplay, "yes")
	if k, ok := GetIdempotencyKey(c); ok || k != "" {
		t.Fatalf("non-string key must read as absent")
	}
	if IsReplay(c) {
		t.Fatalf("non-bool replay must read as false")
	}
}
