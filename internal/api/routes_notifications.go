package api

import (
	"github.com/gin-gonic/gin"

	"github.com/reboundhq/rebound/internal/handlers"
)

func registerNotificationRoutes(api *gin.RouterGroup, requireAuth gin.HandlerFunc, handler *handlers.NotificationHandler) {
	notifications := api.Group("/notifications")
	notifications.Use(requireAuth)
	{
		notifications.GET("", handler.List)
		notifications.PUT("/read-all", handler.MarkAllRead)
		notifications.PUT("/:id/read", handler.MarkRead)
		notifications.DELETE("/:id", handler.Delete)
	}
}
