// Package ginutil holds the small response and guard helpers shared by
// the gin handlers.
package ginutil

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/sofolpay/realtime/ratelimit"
)

// ExtractBearer pulls the token out of an "Authorization: Bearer <token>"
// header. The second return is false for absent or malformed headers.
func ExtractBearer(header string) (string, bool) {
	fields := strings.Fields(header)
	if len(fields) != 2 || !strings.EqualFold(fields[0], "bearer") {
		return "", false
	}
	return fields[1], true
}

// Unauthorized writes the relay's 401 shape and aborts the request.
func Unauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"ok": false, "message": message})
}

// InvalidPayload writes the relay's 422 shape and aborts the request.
func InvalidPayload(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"ok": false, "message": "Invalid payload"})
}

// TooMany writes the relay's 429 shape and aborts the request.
func TooMany(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"ok": false, "message": "Too many requests"})
}

// Allow runs the limiter for the named bucket keyed by the caller's IP.
// A limiter backend failure is logged and the request let through: the
// limiter contains runaway callers, it is not an auth control.
func Allow(c *gin.Context, rl ratelimit.Limiter, bucket string) bool {
	if rl == nil {
		return true
	}
	ok, err := rl.Allow(c.Request.Context(), bucket, c.ClientIP())
	if err != nil {
		logrus.WithField("component", "ratelimit").WithError(err).Warn("limiter unavailable; allowing request")
		return true
	}
	return ok
}
