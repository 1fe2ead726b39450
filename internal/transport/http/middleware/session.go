package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	appsvc "gopherchat/internal/app"
	"gopherchat/internal/session"
	"gopherchat/internal/transport/http/response"
)

const ContextSessionKey = "session"

// RequireSession rejects the request unless it carries a token for a live
// session, read from the Authorization header or else the session cookie.
func RequireSession(auth *appsvc.SessionAuthenticator, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		result := auth.Authenticate(c.Request.Context(), TokenFromRequest(c, cookieName))
		if !result.Authorized() {
			if errors.Is(result.Reason, appsvc.ErrStorage) {
				response.Error(c, http.StatusInternalServerError, response.CodeStorage, "session lookup failed")
			} else {
				response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "Please login first")
			}
			c.Abort()
			return
		}

		c.Set(ContextSessionKey, result.Session)
		c.Next()
	}
}

func SessionFrom(c *gin.Context) (*session.Session, bool) {
	value, exists := c.Get(ContextSessionKey)
	if !exists {
		return nil, false
	}
	sess, ok := value.(*session.Session)
	return sess, ok && sess != nil
}

// TokenFromRequest reads the Bearer token, falling back to the session cookie.
func TokenFromRequest(c *gin.Context, cookieName string) string {
	const prefix = "Bearer "
	if header := strings.TrimSpace(c.GetHeader("Authorization")); strings.HasPrefix(header, prefix) {
		return strings.TrimSpace(strings.TrimPrefix(header, prefix))
	}
	if cookie, err := c.Cookie(cookieName); err == nil {
		return cookie
	}
	return ""
}
