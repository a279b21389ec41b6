package api

import (
	"github.com/gin-gonic/gin"

	"github.com/reboundhq/rebound/internal/handlers"
)

func registerMessageRoutes(api *gin.RouterGroup, requireAuth gin.HandlerFunc, handler *handlers.MessageHandler) {
	messages := api.Group("/messages")
	messages.Use(requireAuth)
	{
		messages.GET("/conversations", handler.ListConversations)
		messages.POST("/conversations", handler.OpenConversation)
		messages.GET("/conversations/:id", handler.ListMessages)
		messages.POST("/conversations/:id", handler.SendMessage)
		messages.PUT("/conversations/:id/read", handler.MarkRead)
		messages.DELETE("/:id", handler.DeleteMessage)
	}
}
