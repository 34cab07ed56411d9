package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"certsync/internal/api/handlers"
	"certsync/internal/api/middleware"
	"certsync/internal/config"
	"certsync/internal/engine"
)

// Server represents the HTTP server
type Server struct {
	router *gin.Engine
	config *config.Config
}

// NewServer creates a new API server
func NewServer(cfg *config.Config, log *slog.Logger, eng *engine.Engine) *Server {
	// Set Gin mode
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(log))

	sslHandler := handlers.NewSSLHandler(eng)

	// Host/tenant echo
	router.GET("/", func(c *gin.Context) {
		handlers.RespondSuccess(c, gin.H{
			"host": c.Request.Host,
			"zone": cfg.Authority.ZoneID,
		})
	})

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})

	ssl := router.Group("/ssl")
	if cfg.Server.APIToken != "" {
		ssl.Use(middleware.BearerAuth(cfg.Server.APIToken))
	}
	{
		ssl.POST("", sslHandler.Create)
		ssl.GET("", sslHandler.List)
		ssl.GET("/:hostname", sslHandler.Read)
		ssl.GET("/:hostname/recheck", sslHandler.Recheck)
		ssl.PUT("/:id", sslHandler.UpdateSettings)
		ssl.DELETE("/:id", sslHandler.Delete)
	}

	return &Server{
		router: router,
		config: cfg,
	}
}

// Run starts the HTTP server
func (s *Server) Run() error {
	return s.router.Run(s.config.Server.ListenAddr)
}

// Router returns the underlying Gin router
func (s *Server) Router() *gin.Engine {
	return s.router
}
