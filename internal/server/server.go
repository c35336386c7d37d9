package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"medichat/config"
	"medichat/internal/gateway"
	"medichat/internal/handler"
	"medichat/internal/identity"
	"medichat/internal/middleware"
	internalredis "medichat/internal/redis"
	"medichat/internal/transport/httpdto"
	"medichat/pkg/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	config     *config.Config
	logger     *logger.Logger
}

var (
	ReleaseMode = "release"
	DebugMode   = "debug"
	TestMode    = "test"
)

// Handlers groups everything SetupRoutes wires onto the engine.
type Handlers struct {
	Session   *handler.SessionHandler
	Message   *handler.MessageHandler
	Upload    *handler.UploadHandler
	Directory *handler.DirectoryHandler
	Presence  *handler.PresenceHandler
	Gateway   *gateway.Handler
}

func New(cfg *config.Config, l *logger.Logger) *Server {
	if cfg.AppMode == ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	} else if cfg.AppMode == TestMode {
		gin.SetMode(gin.TestMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	return &Server{
		httpServer: &http.Server{
			Addr:    fmt.Sprintf(":%s", cfg.AppPort),
			Handler: engine,
		},
		engine: engine,
		config: cfg,
		logger: l,
	}
}

func (s *Server) SetupRoutes(handlers *Handlers, provider identity.Provider, limiter *internalredis.RateLimiter, db *gorm.DB) {
	s.engine.Use(middleware.RequestIDMiddleware())
	s.engine.Use(cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))
	s.engine.Use(middleware.LoggingMiddleware(s.logger))
	s.engine.Use(middleware.ErrorHandler(s.logger))

	s.engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"message": "pong"}))
	})

	s.engine.GET("/health", func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, httpdto.NewErrorResponse(err.Error(), "UNHEALTHY"))
			return
		}
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"status": "healthy"}))
	})

	// The live channel authenticates via token query param inside Connect,
	// before the upgrade, so it sits outside the auth middleware.
	s.engine.GET("/ws", handlers.Gateway.Connect)

	v1 := s.engine.Group("/v1", middleware.AuthMiddleware(provider))
	{
		v1.GET("/sessions", handlers.Session.List)
		v1.POST("/sessions", handlers.Session.GetOrCreate)
		v1.GET("/sessions/partners", handlers.Session.Partners)
		v1.POST("/sessions/:id/close", handlers.Session.Close)

		v1.GET("/sessions/:id/messages", handlers.Message.List)
		v1.POST("/sessions/:id/messages", middleware.MessageRateLimitMiddleware(limiter), handlers.Message.Post)
		v1.PUT("/sessions/:id/read", handlers.Message.MarkRead)

		v1.PUT("/messages/:id", handlers.Message.Edit)
		v1.DELETE("/messages/:id", handlers.Message.Delete)

		v1.GET("/directory/doctors", handlers.Directory.ListDoctors)
		v1.GET("/presence/:id", handlers.Presence.Get)
		v1.POST("/uploads/presign", handlers.Upload.Presign)
	}
}

func (s *Server) Start() error {
	go func() {
		s.logger.Infof("Starting the server on port %s...", s.config.AppPort)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Errorf("Error in starting the server: %s", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	s.logger.Infof("Server is running on :%s", s.config.AppPort)

	<-quit

	s.logger.Infof("Quitting signal received.. Shutting down after 5 seconds")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Infof("Error in the graceful shutdown of the server: %s", err)
		return err
	}

	s.logger.Infof("Server stopped gracefully")
	return nil
}
