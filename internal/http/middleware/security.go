package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// apiCSP forbids everything: API responses are JSON and never rendered.
const apiCSP = "default-src 'none'; frame-ancestors 'none'"

// SecurityOptions configures SecurityHeaders.
type SecurityOptions struct {
	EnableHSTS bool          // only when traffic is HTTPS end to end
	HSTSMaxAge time.Duration // defaults to 180 days
	// PrivatePrefixes are path prefixes whose responses are per-session:
	// shared caches must not keep them and clients must revalidate (ETag).
	PrivatePrefixes []string
	// CSPExemptPrefixes skip the strict Content-Security-Policy, for pages
	// such as the Swagger UI that load scripts and styles.
	CSPExemptPrefixes []string
}

// SecurityHeaders sets baseline hardening headers on every response.
func SecurityHeaders(opt SecurityOptions) gin.HandlerFunc {
	maxAge := int(opt.HSTSMaxAge.Seconds())
	if maxAge <= 0 {
		maxAge = int((180 * 24 * time.Hour).Seconds())
	}
	hsts := "max-age=" + strconv.Itoa(maxAge) + "; includeSubDomains"

	return func(c *gin.Context) {
		h := c.Writer.Header()
		path := c.Request.URL.Path

		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=(), payment=()")
		if !hasAnyPrefix(path, opt.CSPExemptPrefixes) {
			h.Set("Content-Security-Policy", apiCSP)
		}
		if hasAnyPrefix(path, opt.PrivatePrefixes) {
			h.Set("Cache-Control", "private, no-cache")
		}
		if opt.EnableHSTS && isHTTPS(c.Request) {
			h.Set("Strict-Transport-Security", hsts)
		}

		const expose = "Access-Control-Expose-Headers"
		for _, name := range []string{"X-Request-ID", "ETag", HeaderIdempotencyReplayed} {
			if cur := h.Get(expose); cur == "" {
				h.Set(expose, name)
			} else if !strings.Contains(cur, name) {
				h.Set(expose, cur+", "+name)
			}
		}

		c.Next()
	}
}

func hasAnyPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

func isHTTPS(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}
