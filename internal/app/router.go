package app

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"dispatch/internal/handler"
	"dispatch/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	RideHandler      *handler.RideHandler
	DriverHandler    *handler.DriverHandler
	PromoHandler     *handler.PromoHandler
	EmergencyHandler *handler.EmergencyHandler
	WSHandler        *handler.WSHandler
	RedisClient      *redis.Client
	NewRelicApp      *newrelic.Application
	Log              *logrus.Logger
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(deps.Log))
	router.Use(middleware.CORS())

	// Add New Relic middleware if enabled.
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	if deps.RedisClient != nil {
		router.Use(middleware.Idempotency(deps.RedisClient, deps.Log))
	}

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Push subscriptions.
	if deps.WSHandler != nil {
		router.GET("/ws", deps.WSHandler.Subscribe)
	}

	// API v1 routes.
	v1 := router.Group("/v1")
	{
		// Ride lifecycle.
		rides := v1.Group("/rides")
		{
			rides.POST("", deps.RideHandler.RequestRide)
			rides.GET("/available/nearby", deps.RideHandler.NearbyOpenRides)
			rides.GET("/:id", deps.RideHandler.GetRide)
			rides.POST("/:id/accept", deps.RideHandler.AcceptRide)
			rides.POST("/:id/verify-code", deps.RideHandler.VerifyStartCode)
			rides.POST("/:id/complete", deps.RideHandler.CompleteRide)
			rides.POST("/:id/cancel", deps.RideHandler.CancelRide)
			rides.POST("/:id/promo", deps.RideHandler.ApplyPromo)
		}

		// Customer views.
		customers := v1.Group("/customers")
		{
			customers.GET("/:id/rides", deps.RideHandler.ListCustomerRides)
			customers.DELETE("/:id/pending", deps.RideHandler.ClearPendingRides)
		}

		// Driver presence.
		drivers := v1.Group("/drivers")
		{
			drivers.GET("/:id", deps.DriverHandler.GetDriver)
			drivers.POST("/:id/location", deps.DriverHandler.ReportLocation)
			drivers.POST("/:id/online", deps.DriverHandler.SetOnline)
			drivers.POST("/:id/offline", deps.DriverHandler.SetOffline)
		}

		// Promo codes.
		promos := v1.Group("/promos")
		{
			promos.GET("/:code", deps.PromoHandler.ValidatePromo)
			promos.POST("/apply", deps.PromoHandler.ApplyPromo)
		}

		// Emergency.
		v1.POST("/emergency/sos", deps.EmergencyHandler.RaiseAlert)
	}

	return router
}
