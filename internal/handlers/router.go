package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"blood-platform/internal/apperr"
	"blood-platform/internal/config"
	"blood-platform/internal/idempotency"
	"blood-platform/internal/metrics"
	"blood-platform/internal/middleware"
	"blood-platform/internal/models"
	"blood-platform/internal/repository"
	"blood-platform/internal/response"
	"blood-platform/internal/service"
	ws "blood-platform/internal/websocket"
)

// Deps is everything the router needs.
type Deps struct {
	Config      *config.Config
	Store       repository.Store
	Accounts    *service.Accounts
	Booking     *service.Booking
	Donations   *service.Donations
	Ledger      *service.Ledger
	Hub         *ws.Hub
	Idempotency *idempotency.Store
}

func NewRouter(d Deps) *gin.Engine {
	useJSONFieldNames()

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(), metrics.Middleware())
	r.Use(cors.New(corsConfig(d.Config.AllowedOrigins())))

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	r.GET("/health", healthHandler(d.Store))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authHandler := NewAuthHandler(d.Accounts, d.Config.JWTSecret, d.Config.JWTTTL())
	centerHandler := NewCenterHandler(d.Booking)
	appointmentHandler := NewAppointmentHandler(d.Booking, d.Donations)
	donationHandler := NewDonationHandler(d.Donations)
	rewardHandler := NewRewardHandler(d.Ledger)
	wsHandler := NewWebSocketHandler(d.Hub, d.Config.JWTSecret, d.Config.AllowedOrigins())

	limiter := middleware.NewIPRateLimiter(d.Config.AuthRateLimit, d.Config.AuthRateBurst)
	idem := middleware.Idempotency(d.Idempotency)
	staffOnly := middleware.RequireRole(models.RoleStaff)

	api := r.Group("/api")
	{
		auth := api.Group("/auth", limiter.Middleware())
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
		}

		api.GET("/ws", wsHandler.ServeWs)

		api.GET("/centers", centerHandler.List)
		api.GET("/centers/:id", centerHandler.Get)
		api.GET("/rewards", rewardHandler.List)
		api.GET("/rewards/:id", rewardHandler.Get)

		protected := api.Group("/")
		protected.Use(middleware.AuthMiddleware(d.Config.JWTSecret))
		{
			protected.GET("/me", authHandler.Me)

			protected.GET("/appointments", appointmentHandler.List)
			protected.POST("/appointments", idem, appointmentHandler.Create)
			protected.GET("/appointments/availability", appointmentHandler.Availability)
			protected.PATCH("/appointments/:id/cancel", appointmentHandler.Cancel)
			protected.PATCH("/appointments/:id/status", staffOnly, appointmentHandler.UpdateStatus)
			protected.POST("/appointments/:id/complete", staffOnly, appointmentHandler.Complete)

			protected.GET("/donations/history", donationHandler.History)
			protected.GET("/donations/analytics", donationHandler.Analytics)
			protected.GET("/donations/next-eligible", donationHandler.NextEligible)

			protected.GET("/rewards/me", rewardHandler.Mine)
			protected.POST("/rewards/redeem", idem, rewardHandler.Redeem)
			protected.PATCH("/rewards/transactions/:id/cancel", rewardHandler.Cancel)
			protected.PATCH("/rewards/transactions/:id/redeem", staffOnly, rewardHandler.MarkRedeemed)
		}
	}

	r.NoRoute(func(c *gin.Context) {
		response.Error(c, apperr.NotFound("route"))
	})
	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", middleware.HeaderIdempotencyKey, middleware.HeaderRequestID},
		ExposeHeaders: []string{middleware.HeaderReplayed, middleware.HeaderRequestID},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

func healthHandler(store repository.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := store.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, response.Envelope{Error: "store unavailable", Code: "UNAVAILABLE"})
			return
		}
		response.OK(c, http.StatusOK, gin.H{"status": "ok"})
	}
}
