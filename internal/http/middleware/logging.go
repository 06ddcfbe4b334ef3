// Package middleware contains the Gin middleware of the assistant API.
//
// This file provides request ids, the request-scoped logger and panic
// recovery. Recommended order:
//
//  1. RequestID()
//  2. Identity()
//  3. Logger() or RedactingLogger()
//  4. Recovery()
//
// The request-scoped logger is stored both in the Gin context (LoggerFrom)
// and in the request's context.Context, so services can log with
// zerolog.Ctx(ctx) and keep the request id and session id.
package middleware

import (
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	requestIDKey      = "requestID"
	loggerKey         = "logger"
	requestIDHeader   = "X-Request-ID"
	maxQueryLogLength = 2048
	maxRequestIDLen   = 128
)

// RequestID reuses a sane incoming X-Request-ID or generates a UUID, stores
// it in the Gin context and echoes it on the response.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if rid == "" || len(rid) > maxRequestIDLen || !tokenRE.MatchString(rid) {
			rid = uuid.NewString()
		}
		c.Set(requestIDKey, rid)
		c.Writer.Header().Set(requestIDHeader, rid)
		c.Next()
	}
}

// sessionIDFrom returns the :id path parameter of chat session routes.
func sessionIDFrom(c *gin.Context) string {
	if strings.Contains(c.FullPath(), "/chat/sessions/") {
		return c.Param("id")
	}
	return ""
}

func routeOf(c *gin.Context) string {
	if p := c.FullPath(); p != "" {
		return p
	}
	return c.Request.URL.Path
}

// attachLogger builds the request-scoped logger from base and installs it in
// the Gin context and the request context.
func attachLogger(c *gin.Context, base zerolog.Context) zerolog.Logger {
	rid, _ := c.Get(requestIDKey)
	b := base.
		Str("request_id", asString(rid)).
		Str("method", c.Request.Method).
		Str("path", routeOf(c))
	if uid := UserIDFrom(c); uid != "" {
		b = b.Str("user_id", uid)
	}
	if sid := sessionIDFrom(c); sid != "" {
		b = b.Str("session_id", sid)
	}
	l := b.Logger()
	c.Set(loggerKey, &l)
	c.Request = c.Request.WithContext(l.WithContext(c.Request.Context()))
	return l
}

// levelFor picks the access log level: error for 5xx or recorded Gin errors,
// warn for 4xx, info otherwise.
func levelFor(l *zerolog.Logger, c *gin.Context, status int) *zerolog.Event {
	switch {
	case len(c.Errors) > 0:
		return l.Error().Str("errors", c.Errors.String())
	case status >= 500:
		return l.Error()
	case status >= 400:
		return l.Warn()
	default:
		return l.Info()
	}
}

// Logger attaches the request logger and writes an access log with client
// details. Use RedactingLogger instead where client data must be scrubbed.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		l := attachLogger(c, log.With())

		c.Next()

		ev := levelFor(&l, c, c.Writer.Status())
		ev.Str("remote_ip", c.ClientIP()).
			Str("user_agent", c.Request.UserAgent()).
			Str("referer", c.Request.Referer()).
			Str("query", truncate(c.Request.URL.RawQuery, maxQueryLogLength)).
			Int64("bytes_in", c.Request.ContentLength).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Int("bytes_out", c.Writer.Size()).
			Msg("request")
	}
}

// Recovery turns a panic into a JSON 500 with the request id and logs the
// stack. Nothing about the panic is sent to the client.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			rid, _ := c.Get(requestIDKey)
			LoggerFrom(c).Error().
				Interface("panic", rec).
				Bytes("stack", debug.Stack()).
				Msg("panic recovered")

			if c.Writer.Written() {
				c.AbortWithStatus(http.StatusInternalServerError)
				return
			}
			c.Header(requestIDHeader, asString(rid))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"request_id": asString(rid),
				"code":       "internal_error",
				"message":    "internal server error",
			})
		}()
		c.Next()
	}
}

// LoggerFrom returns the request-scoped logger, or the global logger when
// none was attached.
func LoggerFrom(c *gin.Context) *zerolog.Logger {
	if v, ok := c.Get(loggerKey); ok {
		if lg, ok := v.(*zerolog.Logger); ok {
			return lg
		}
	}
	l := log.With().Logger()
	return &l
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

// truncate caps s at max bytes and appends an ellipsis; max <= 0 disables it.
func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
