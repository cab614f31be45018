package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stemsi/qbank-core/internal/auth"
	"github.com/stemsi/qbank-core/internal/response"
)

const (
	// ContextKeyIdentity is the Gin context key for the authenticated caller.
	ContextKeyIdentity = "identity"
)

// RequireJWT validates the bearer token and stores the caller's identity
// both in the Gin context and in the request context, where the
// validation chain reads it.
func RequireJWT(tokens *auth.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := bearerToken(c)
		if tokenStr == "" {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		claims, err := tokens.Validate(tokenStr)
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenExpired)
				return
			}
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenInvalid)
			return
		}

		id := claims.Identity()
		c.Set(ContextKeyIdentity, id)
		c.Request = c.Request.WithContext(auth.WithIdentity(c.Request.Context(), id))
		c.Next()
	}
}

// GetIdentity retrieves the caller set by RequireJWT.
func GetIdentity(c *gin.Context) (auth.Identity, bool) {
	val, exists := c.Get(ContextKeyIdentity)
	if !exists {
		return auth.Identity{}, false
	}
	id, ok := val.(auth.Identity)
	return id, ok
}

// bearerToken reads the Authorization header. Browsers cannot set headers
// on a websocket handshake, so upgrades may pass ?token= instead.
func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	if strings.EqualFold(c.GetHeader("Upgrade"), "websocket") {
		return c.Query("token")
	}
	return ""
}
