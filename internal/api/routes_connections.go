package api

import (
	"github.com/gin-gonic/gin"

	"github.com/reboundhq/rebound/internal/handlers"
)

func registerConnectionRoutes(api *gin.RouterGroup, requireAuth gin.HandlerFunc, handler *handlers.ConnectionHandler) {
	connections := api.Group("/connections")
	connections.Use(requireAuth)
	{
		connections.GET("", handler.List)
		connections.GET("/requests", handler.Pending)
		connections.GET("/suggestions", handler.Suggestions)
		connections.POST("/request", handler.SendRequest)
		connections.POST("/accept/:id", handler.Accept)
		connections.POST("/reject/:id", handler.Reject)
		connections.DELETE("/:id", handler.Remove)
	}
}
