package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jeevankumar-m/sustainedaway/config"
)

// RouterOptions carries optional router collaborators
type RouterOptions struct {
	// Metrics is served on /metrics when set
	Metrics http.Handler
	// Middleware runs after recovery and before the handlers
	Middleware []gin.HandlerFunc
}

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler, opts RouterOptions) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(RecoveryMiddleware())
	router.Use(RequestLoggerMiddleware())
	router.Use(LoggerMiddleware())
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))
	router.Use(BodyLimitMiddleware(cfg.Server.MaxBodyBytes))
	router.Use(opts.Middleware...)

	router.GET("/", handler.Root)
	router.GET("/health", handler.HealthCheck)
	if opts.Metrics != nil {
		router.GET("/metrics", gin.WrapH(opts.Metrics))
	}

	// Paths used by the mobile app
	legacy := router.Group("/api")
	{
		legacy.POST("/process-image", handler.ScanImage)
		legacy.POST("/process-bill", handler.ScanBill)
	}

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		products := v1.Group("/products")
		{
			products.POST("/analyze", handler.AnalyzeProduct)
			products.POST("/analyze/batch", handler.AnalyzeProductBatch)
		}
		v1.POST("/images/analyze", handler.ScanImage)
		v1.POST("/bills/analyze", handler.ScanBill)
		v1.GET("/history", handler.History)
	}

	return router
}
