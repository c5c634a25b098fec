package http

import (
	"github.com/gin-gonic/gin"

	"github.com/productlens/ingest/config"
)

// SetupRouter creates and configures the Gin router for the status server
func SetupRouter(cfg *config.Config, handler *Handler) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(RecoveryMiddleware())
	router.Use(LoggerMiddleware())
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	// Health check endpoint
	router.GET("/health", handler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		run := v1.Group("/run")
		{
			run.GET("/progress", handler.RunProgress)
			run.GET("/summary", handler.RunSummary)
		}
	}

	return router
}
