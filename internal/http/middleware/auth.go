// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file authenticates bearer tokens and enforces roles. Both raise
// authentication failures through c.Error and abort; middleware.Errors writes
// the response.
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-auth-backend/internal/failure"
	"github.com/tbourn/go-auth-backend/internal/security"
)

// Gin context keys set by Authenticate.
const (
	UserIDKey = "userID"
	RoleKey   = "role"
)

const (
	MsgMissingToken = "Authentication token is missing."
	MsgInvalidToken = "Authentication token is invalid or has expired."
	MsgForbidden    = "You do not have permission to access this resource."
)

// TokenParser verifies an access token and returns its claims.
type TokenParser interface {
	Parse(raw string) (*security.Claims, error)
}

// Authenticate requires "Authorization: Bearer <token>" and stores the
// caller's id and role in the Gin context.
func Authenticate(tp TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			abortWith(c, failure.Unauthenticated(MsgMissingToken))
			return
		}
		claims, err := tp.Parse(raw)
		if err != nil {
			abortWith(c, failure.Unauthenticated(MsgInvalidToken))
			return
		}
		c.Set(UserIDKey, claims.UID)
		c.Set(RoleKey, claims.Role)
		c.Next()
	}
}

// RequireRole allows the request only when the authenticated role is one of
// roles. It must run after Authenticate.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		have := c.GetString(RoleKey)
		for _, r := range roles {
			if have == r {
				c.Next()
				return
			}
		}
		abortWith(c, failure.Forbidden(MsgForbidden))
	}
}

func bearerToken(h string) (string, bool) {
	scheme, tok, ok := strings.Cut(strings.TrimSpace(h), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	tok = strings.TrimSpace(tok)
	return tok, tok != ""
}

func abortWith(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}
