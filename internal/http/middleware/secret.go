// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements shared-secret authentication for machine callers
// (the task trigger and the operator endpoints). The presented header is
// compared in constant time, and a request is rejected before any handler
// runs when the header is missing or wrong.
package middleware

import (
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Shared-secret headers recognised by the HTTP layer.
const (
	HeaderWebhookToken  = "X-Webhook-Token"
	HeaderTaskToken     = "X-Task-Token"
	HeaderLineSignature = "X-Line-Signature"
)

// SecretEqual reports whether got matches want in constant time. An empty
// want never matches, so an unconfigured secret locks the route.
func SecretEqual(want, got string) bool {
	if want == "" || got == "" {
		return false
	}
	w := sha256.Sum256([]byte(want))
	g := sha256.Sum256([]byte(got))
	return subtle.ConstantTimeCompare(w[:], g[:]) == 1
}

// RequireSecret returns a middleware that admits a request only when header
// carries want. Rejections are 401 with the standard error envelope.
func RequireSecret(header, want string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !SecretEqual(want, strings.TrimSpace(c.GetHeader(header))) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"request_id": c.Writer.Header().Get(requestIDHeader),
				"code":       "unauthorized",
				"message":    "missing or invalid " + header,
			})
			return
		}
		c.Next()
	}
}

