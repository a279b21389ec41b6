package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/reboundhq/rebound/internal/app"
	iauth "github.com/reboundhq/rebound/internal/auth"
	"github.com/reboundhq/rebound/internal/handlers"
	"github.com/reboundhq/rebound/internal/middleware"
	"github.com/reboundhq/rebound/internal/realtime"
	"github.com/reboundhq/rebound/internal/services"
)

// Dependencies carries everything the router needs to assemble handlers.
type Dependencies struct {
	DB        *gorm.DB
	JWT       *iauth.JWTService
	Hub       *realtime.Hub
	Config    *app.Config
	RateStore middleware.RateStore // optional; nil selects an in-memory store
}

// NewRouter builds the Gin engine, wires middleware and registers all routes.
func NewRouter(deps Dependencies) (*gin.Engine, error) {
	if deps.DB == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if deps.JWT == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if deps.Config == nil {
		return nil, fmt.Errorf("config must be provided")
	}

	var broadcaster services.Broadcaster
	if deps.Hub != nil {
		broadcaster = deps.Hub
	}

	notificationService, err := services.NewNotificationService(deps.DB, broadcaster)
	if err != nil {
		return nil, err
	}
	connectionService, err := services.NewConnectionService(deps.DB, notificationService, broadcaster)
	if err != nil {
		return nil, err
	}
	chatService, err := services.NewChatService(deps.DB, notificationService, broadcaster)
	if err != nil {
		return nil, err
	}
	userService, err := services.NewUserService(deps.DB)
	if err != nil {
		return nil, err
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS())

	if limits := deps.Config.RateLimit; limits.Enabled {
		store := deps.RateStore
		if store == nil {
			store = middleware.NewMemoryRateStore()
		}
		r.Use(middleware.RateLimitWithStore(store, limits.MaxRequests, limits.Window))
	}

	if deps.Config.Monitoring.Health.Enabled {
		r.GET("/health", handlers.Health())
	}
	if prom := deps.Config.Monitoring.Prometheus; prom.Enabled {
		endpoint := prom.Endpoint
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	requireAuth := middleware.Auth(deps.JWT)
	api := r.Group("/api")

	registerAuthRoutes(api, requireAuth, handlers.NewAuthHandler(userService, deps.JWT))
	registerUserRoutes(api, requireAuth, handlers.NewUserHandler(userService))
	registerConnectionRoutes(api, requireAuth, handlers.NewConnectionHandler(connectionService))
	registerMessageRoutes(api, requireAuth, handlers.NewMessageHandler(chatService))
	registerNotificationRoutes(api, requireAuth, handlers.NewNotificationHandler(notificationService))

	if deps.Hub != nil {
		realtimeHandler := handlers.NewRealtimeHandler(deps.Hub, deps.JWT,
			realtime.StreamMessages, realtime.StreamNotifications, realtime.StreamConnections)
		api.GET("/realtime", realtimeHandler.Stream)
	}

	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}
