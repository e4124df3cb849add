package middlewares

import (
	"context"
	"strings"

	"github.com/geocoder89/userhub/internal/auth"
	"github.com/geocoder89/userhub/internal/domain/user"
	"github.com/geocoder89/userhub/internal/errs"
	"github.com/gin-gonic/gin"
)

// Keep these interfaces small so tests can fake them easily.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

type SubjectResolver interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
}

type AuthMiddleware struct {
	jwt   TokenVerifier
	users SubjectResolver
}

func NewAuthMiddleware(jwt TokenVerifier, users SubjectResolver) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwt, users: users}
}

// abortError stops the chain and renders an error in the response envelope.
func abortError(c *gin.Context, e *errs.Error) {
	c.AbortWithStatusJSON(e.Status, gin.H{
		"success": false,
		"message": e.Message,
		"error":   e.Code,
	})
}

func abortUnauthorized(c *gin.Context, message string) {
	abortError(c, errs.Unauthorized("unauthorized", message))
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")

	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}

	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer"))
}

// RequireAuth verifies the bearer token and re-resolves the subject against
// the store, so a deleted account cannot keep using an unexpired token.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)

		if raw == "" {
			abortUnauthorized(c, "Missing or invalid Authorization header")
			return
		}

		claims, err := m.jwt.Verify(raw)

		if err != nil {
			abortUnauthorized(c, "Invalid or expired token")
			return
		}

		u, err := m.users.GetByEmail(c.Request.Context(), claims.Email)

		if err != nil {
			abortUnauthorized(c, "Token holder no longer exists")
			return
		}

		// Stash useful bits of identity on the context
		c.Set(ctxUserIDKey, u.ID)
		c.Set(ctxEmailKey, u.Email)

		c.Next()
	}
}

// OptionalAuth attaches identity when a valid bearer token is presented and
// silently proceeds unauthenticated otherwise.
func (m *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)

		if raw == "" {
			c.Next()
			return
		}

		claims, err := m.jwt.Verify(raw)

		if err != nil {
			c.Next()
			return
		}

		u, err := m.users.GetByEmail(c.Request.Context(), claims.Email)

		if err != nil {
			c.Next()
			return
		}

		c.Set(ctxUserIDKey, u.ID)
		c.Set(ctxEmailKey, u.Email)

		c.Next()
	}
}

// Helpers so handlers don't need to know the magic keys.

func UserIDFromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxUserIDKey)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok
}

func EmailFromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxEmailKey)
	if !ok {
		return "", false
	}
	email, ok := v.(string)
	return email, ok
}
