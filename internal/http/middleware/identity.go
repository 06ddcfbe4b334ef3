package middleware

import (
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	userIDKey    = "userID"
	userIDHeader = "X-User-ID"
	maxUserIDLen = 128
)

// tokenRE is the character set accepted for request ids, user ids, session
// ids and idempotency keys.
var tokenRE = regexp.MustCompile(`^[A-Za-z0-9._~:-]+$`)

// ValidToken reports whether s is a 1-128 character token of [A-Za-z0-9._~:-].
func ValidToken(s string) bool {
	return s != "" && len(s) <= maxUserIDLen && tokenRE.MatchString(s)
}

// Identity copies a well-formed X-User-ID header into the Gin context. The
// assistant has no authentication; the id only labels sessions, logs and
// rate-limit buckets. Malformed values are ignored.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if uid := strings.TrimSpace(c.GetHeader(userIDHeader)); ValidToken(uid) {
			c.Set(userIDKey, uid)
		}
		c.Next()
	}
}

// UserIDFrom returns the user id set by Identity, or "".
func UserIDFrom(c *gin.Context) string {
	v, _ := c.Get(userIDKey)
	return asString(v)
}
