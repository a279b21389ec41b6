package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/reboundhq/rebound/internal/middleware"
	"github.com/reboundhq/rebound/pkg/errors"
	"github.com/reboundhq/rebound/pkg/response"
)

// requestContext safely returns the request context with a background fallback for tests.
func requestContext(c *gin.Context) context.Context {
	if c == nil {
		return context.Background()
	}
	if req := c.Request; req != nil {
		return req.Context()
	}
	return context.Background()
}

// currentUserID returns the authenticated user's ID, writing a 401 response
// when the request carries no identity.
func currentUserID(c *gin.Context) (string, bool) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return "", false
	}
	return userID, true
}
