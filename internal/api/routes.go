package api

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/codyseavey/card-comps/backend/internal/api/handlers"
	"github.com/codyseavey/card-comps/backend/internal/config"
	"github.com/codyseavey/card-comps/backend/internal/ratelimit"
	"github.com/codyseavey/card-comps/backend/internal/services"
)

// SetupRouter builds the HTTP surface. limiter may be nil to disable
// per-client rate limiting.
func SetupRouter(cfg config.ServerConfig, marketService *services.MarketService, limiter *ratelimit.KeyedRateLimiter) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery(), metricsMiddleware())

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSAllowedOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	corsConfig.AllowCredentials = false // Explicitly set
	router.Use(cors.New(corsConfig))

	// Initialize handlers
	searchHandler := handlers.NewSearchHandler(marketService, int64(cfg.MaxUploadMB)<<20)
	analysisHandler := handlers.NewAnalysisHandler(marketService)

	// API routes
	api := router.Group("/api")
	if limiter != nil {
		api.Use(rateLimitMiddleware(limiter))
	}
	{
		search := api.Group("/search")
		{
			search.POST("", searchHandler.Search)
			search.POST("/image", searchHandler.SearchByImage)
		}

		api.POST("/analyze", analysisHandler.Analyze)
	}

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	return router
}
