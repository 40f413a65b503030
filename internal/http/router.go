package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/nevar-bot/nevar-v6-sub000/internal/common/config"
	"github.com/nevar-bot/nevar-v6-sub000/internal/common/middleware"
	banhttp "github.com/nevar-bot/nevar-v6-sub000/internal/features/ban/delivery/http"
	giveawayhttp "github.com/nevar-bot/nevar-v6-sub000/internal/features/giveaway/delivery/http"
	reminderhttp "github.com/nevar-bot/nevar-v6-sub000/internal/features/reminder/delivery/http"
)

// ReadinessCheck is one dependency checked by /ready.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type Services struct {
	Giveaways giveawayhttp.GiveawayService
	Bans      banhttp.BanService
	Reminders reminderhttp.ReminderService
}

// NewRouter builds the gin engine with middleware, health endpoints and the /api/v1 routes.
func NewRouter(cfg *config.Config, logger zerolog.Logger, svc Services, checks ...ReadinessCheck) *gin.Engine {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.ErrorHandler(logger))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.Server.Origin}
	corsConfig.AllowMethods = []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Content-Type", "Authorization", "Accept", "X-Request-ID"}
	router.Use(cors.New(corsConfig))

	v1 := router.Group("/api/v1")
	giveawayhttp.NewGiveawayHandler(svc.Giveaways).RegisterRoutes(v1)
	banhttp.NewBanHandler(svc.Bans).RegisterRoutes(v1)
	reminderhttp.NewReminderHandler(svc.Reminders).RegisterRoutes(v1)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC(),
			"service":   cfg.ServiceName,
		})
	})

	router.GET("/live", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	router.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		for _, check := range checks {
			if err := check.Check(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"status":  "unready",
					"error":   check.Name + " unavailable",
					"details": err.Error(),
				})
				return
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "ready",
			"timestamp": time.Now().UTC(),
			"service":   cfg.ServiceName,
		})
	})

	return router
}
