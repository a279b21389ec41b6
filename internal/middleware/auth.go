package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	iauth "github.com/reboundhq/rebound/internal/auth"
	"github.com/reboundhq/rebound/pkg/errors"
	"github.com/reboundhq/rebound/pkg/response"
)

const (
	CtxClaimsKey   = "authClaims"
	CtxUserIDKey   = "userID"
	CtxUsernameKey = "username"
)

// Auth enforces JWT authentication using the supplied JWT service.
func Auth(jwt *iauth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		claims, err := jwt.ValidateAccessToken(token)
		if err != nil {
			// Normalise all validation failures to 401
			c.Header("WWW-Authenticate", "Bearer")
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		// Propagate identity into request context
		c.Set(CtxClaimsKey, claims)
		c.Set(CtxUserIDKey, claims.UserID)
		if claims.Username != "" {
			c.Set(CtxUsernameKey, claims.Username)
		}

		c.Next()
	}
}

// bearerToken extracts the bearer token from the Authorization header, falling
// back to the access_token query parameter for websocket upgrades where
// browsers cannot set headers.
func bearerToken(c *gin.Context) string {
	authz := c.GetHeader("Authorization")
	if len(authz) >= 8 && strings.EqualFold(authz[:7], "Bearer ") {
		return strings.TrimSpace(authz[7:])
	}
	return strings.TrimSpace(c.Query("access_token"))
}
