package middleware

import (
	"crypto/subtle"
	"errors"
	"strings"

	"storefront-service/apperrors"
	"storefront-service/auth"

	"github.com/gin-gonic/gin"
)

// UserIDKey is the gin context key holding the authenticated user id.
const UserIDKey = "userID"

// InternalKeyHeader carries the shared key of trusted internal callers.
const InternalKeyHeader = "X-Internal-Key"

// SessionVerifier is satisfied by *auth.SessionIssuer.
type SessionVerifier interface {
	Verify(token string) (*auth.SessionClaims, error)
}

// Authenticate requires a valid session token from the jwt cookie, or from a
// Bearer Authorization header for non-browser clients.
func Authenticate(verifier SessionVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := sessionToken(c)
		if token == "" {
			abort(c, apperrors.New(apperrors.KindUnauthorized, "Not authorized, no token", nil))
			return
		}

		claims, err := verifier.Verify(token)
		if err != nil {
			if errors.Is(err, auth.ErrTokenExpired) {
				abort(c, apperrors.New(apperrors.KindTokenExpired, "Session expired, please log in again", err))
				return
			}
			abort(c, apperrors.New(apperrors.KindUnauthorized, "Not authorized, token failed", err))
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Next()
	}
}

// InternalOnly admits requests carrying the shared internal key.
func InternalOnly(key string) gin.HandlerFunc {
	expected := []byte(key)
	return func(c *gin.Context) {
		got := []byte(c.GetHeader(InternalKeyHeader))
		if len(expected) == 0 || subtle.ConstantTimeCompare(got, expected) != 1 {
			abort(c, apperrors.New(apperrors.KindForbidden, "Forbidden", nil))
			return
		}
		c.Next()
	}
}

func sessionToken(c *gin.Context) string {
	if cookie, err := c.Cookie(auth.CookieName); err == nil && cookie != "" {
		return cookie
	}
	header := c.GetHeader("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

func abort(c *gin.Context, err *apperrors.Error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(err.Code, err.Response())
}
