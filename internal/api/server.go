// Package api serves the advisor over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"academic_advisor/internal/config"
	"academic_advisor/internal/metrics"
	"academic_advisor/internal/service"
)

const (
	basePath    = "/api/v1"
	healthPath  = basePath + "/health"
	metricsPath = "/metrics"
	version     = "1.0.0"
)

// Options configures the router.
type Options struct {
	Advisor *service.Advisor
	Metrics *metrics.Metrics
	Logger  *zap.Logger
	// Token enables bearer authentication when non-empty.
	Token string
	// StoreConfigured is reported by the health endpoint.
	StoreConfigured bool
}

type handler struct {
	advisor         *service.Advisor
	logger          *zap.Logger
	storeConfigured bool
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(opts Options) *gin.Engine {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &handler{advisor: opts.Advisor, logger: logger, storeConfigured: opts.StoreConfigured}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger, opts.Metrics), bearerAuth(opts.Token))

	router.GET(metricsPath, gin.WrapH(opts.Metrics.Handler()))

	v1 := router.Group(basePath)
	{
		v1.GET("/health", h.handleHealth)
		v1.POST("/analyze", h.handleAnalyze)
		v1.GET("/catalogs", h.handleListCatalogs)
		v1.GET("/catalogs/:code", h.handleGetCatalog)
		v1.POST("/students/:id/transcript", h.handleImportTranscript)
		v1.GET("/students/:id/plan", h.handleLatestPlan)
	}

	router.NoRoute(func(c *gin.Context) {
		sendError(c, http.StatusNotFound, "NOT_FOUND", "Route not found", c.Request.URL.Path)
	})
	return router
}

// Server wraps http.Server with the configured timeouts.
type Server struct {
	srv    *http.Server
	logger *zap.Logger
}

// NewServer creates a server for handler using cfg's address and timeouts.
func NewServer(cfg *config.Config, handler http.Handler, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		srv: &http.Server{
			Addr:         cfg.Addr(),
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
		logger: logger,
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting advisor API", zap.String("addr", s.srv.Addr))
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server failed to start: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("shutting down advisor API")
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	<-errCh
	return nil
}
