package api

import (
	"github.com/gin-gonic/gin"

	"github.com/reboundhq/rebound/internal/handlers"
)

func registerUserRoutes(api *gin.RouterGroup, requireAuth gin.HandlerFunc, handler *handlers.UserHandler) {
	users := api.Group("/users")
	users.Use(requireAuth)
	{
		users.GET("", handler.Search)
		users.GET("/:id", handler.Get)
	}
}
