// File: internal/app/server.go
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"operationcode_backend/internal/auth"
	"operationcode_backend/internal/config"
	"operationcode_backend/internal/middleware"
	"operationcode_backend/internal/profile"
	"operationcode_backend/internal/shared"
	"operationcode_backend/internal/user"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ulule/limiter/v3"
	"go.uber.org/zap"
)

// Server struct holds the dependencies for the HTTP server.
type Server struct {
	httpServer *http.Server
	router     *gin.Engine
	cfg        *config.Config
	logger     *zap.Logger
	worker     *Worker
}

// NewServer creates a new instance of our application server.
func NewServer(
	cfg *config.Config,
	logger *zap.Logger,
	userHandler *user.Handler,
	profileHandler *profile.Handler,
	authHandler *auth.Handler,
	tokenService shared.TokenService,
	rateStore limiter.Store,
	worker *Worker,
) (*Server, error) {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.HandleMethodNotAllowed = true

	// --- Global Middleware ---
	router.Use(middleware.ZapLogger(logger, cfg))
	router.Use(middleware.ErrorHandler(logger))
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader}
	corsConfig.ExposeHeaders = []string{"Content-Length", middleware.RequestIDHeader}
	router.Use(cors.New(corsConfig))

	authMW := middleware.AuthMiddleware(tokenService, logger)
	profileAdminMW := middleware.RequireGroups(cfg.ProfileAdminGroup)
	rateMW, err := middleware.RateLimit(cfg.RateLimitAuth, rateStore, logger)
	if err != nil {
		return nil, fmt.Errorf("configure auth rate limit: %w", err)
	}

	// --- Setup Routes ---
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	authHandler.RegisterRoutes(v1, authMW, rateMW)
	userHandler.RegisterRoutes(v1, authMW)
	profileHandler.RegisterRoutes(v1, authMW, profileAdminMW)

	addr := fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.ServerTimeout,
		WriteTimeout:      cfg.ServerTimeout,
		IdleTimeout:       120 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		cfg:        cfg,
		logger:     logger,
		worker:     worker,
	}, nil
}

// Router exposes the configured engine, mainly for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Start starts the embedded worker when configured, then serves HTTP until Shutdown.
// The local backend lives in this process, so it always gets a worker.
func (s *Server) Start() error {
	if s.runsEmbeddedWorker() {
		if err := s.worker.Start(); err != nil {
			return err
		}
	} else {
		s.logger.Info("Embedded job worker disabled; run the worker subcommand to process jobs")
	}

	s.logger.Info("HTTP Server starting",
		zap.String("address", s.httpServer.Addr),
		zap.String("gin_mode", s.cfg.GinMode),
		zap.String("jobs_backend", s.cfg.JobsBackend),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Error("Failed to start HTTP server", zap.Error(err))
		return err
	}
	return nil
}

// runsEmbeddedWorker reports whether jobs are processed inside the server process.
// Only asynq can hand them to a separate worker.
func (s *Server) runsEmbeddedWorker() bool {
	return s.cfg.JobsRunWorker || !strings.EqualFold(strings.TrimSpace(s.cfg.JobsBackend), config.JobsBackendAsynq)
}

// Shutdown stops accepting requests, waits for in-flight ones, then stops the worker.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Attempting graceful server shutdown...")
	err := s.httpServer.Shutdown(ctx)
	s.worker.Stop()
	return err
}
