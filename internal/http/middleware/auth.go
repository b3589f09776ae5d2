// Package middleware holds the cross-cutting gin middleware: authentication,
// request logging, panic recovery, and metrics.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"pawmarket/internal/infra"
)

const (
	ctxUIDKey  = "auth.uid"
	ctxRoleKey = "auth.role"
)

// Auth verifies the Bearer token and requires an active account. Role and
// account status come from the token claims; suspended or deleted identities
// are rejected before any handler runs.
func Auth(verifier infra.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			abortUnauthorized(c, "missing authorization header")
			return
		}
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			abortUnauthorized(c, "invalid authorization header")
			return
		}
		token, err := verifier.VerifyIDToken(c.Request.Context(), raw)
		if err != nil {
			abortUnauthorized(c, "invalid token")
			return
		}
		if status, _ := token.Claims["status"].(string); status != "" && status != "active" {
			abortUnauthorized(c, "account is not active")
			return
		}
		c.Set(ctxUIDKey, token.UID)
		if role, _ := token.Claims["role"].(string); role != "" {
			c.Set(ctxRoleKey, role)
		}
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": msg})
}

// CallerUID returns the authenticated user id, or "" before Auth ran.
func CallerUID(c *gin.Context) string {
	return c.GetString(ctxUIDKey)
}

// CallerRole returns the authenticated role claim, or "" when absent.
func CallerRole(c *gin.Context) string {
	return c.GetString(ctxRoleKey)
}
