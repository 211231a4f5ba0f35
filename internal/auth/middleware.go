package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const authorizationHeader = "Authorization"
const bearerPrefix = "Bearer "

// TokenCookie is read when no Authorization header is present.
const TokenCookie = "token"

// RequireAccessToken verifies the access token and injects identity into the request context.
// The bearer header wins; the token cookie is the fallback for endpoints hit by plain downloads.
// It does not perform RBAC checks; those belong to internal/rbac.
func RequireAccessToken(m *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok := tokenFromRequest(c)
		if tok == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "missing bearer token"})
			return
		}

		claims, err := m.Verify(tok, time.Now())
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "invalid token"})
			return
		}

		ctx := WithIdentity(c.Request.Context(), claims.UserID, claims.Role)
		c.Request = c.Request.WithContext(ctx)

		// Also store on gin context for handler convenience.
		c.Set("user_id", claims.UserID)
		c.Set("role", claims.Role)

		c.Next()
	}
}

func tokenFromRequest(c *gin.Context) string {
	raw := strings.TrimSpace(c.GetHeader(authorizationHeader))
	if raw != "" {
		if !strings.HasPrefix(raw, bearerPrefix) {
			return ""
		}
		return strings.TrimSpace(strings.TrimPrefix(raw, bearerPrefix))
	}
	if v, err := c.Cookie(TokenCookie); err == nil {
		return strings.TrimSpace(v)
	}
	return ""
}
