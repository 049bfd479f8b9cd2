// Package server exposes the analysis service over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/size-analysis/internal/service"
	"github.com/size-analysis/pkg/config"
	"github.com/size-analysis/pkg/utils"
)

// ServiceName is reported on HTTP spans.
const ServiceName = "size-analyzer"

const shutdownTimeout = 10 * time.Second

// Server is the HTTP front end of a service.Service.
type Server struct {
	cfg    config.ServerConfig
	svc    *service.Service
	logger utils.Logger
	router *gin.Engine
}

// New creates a Server and registers its routes.
func New(cfg config.ServerConfig, svc *service.Service, logger utils.Logger) *Server {
	s := &Server{
		cfg:    cfg,
		svc:    svc,
		logger: utils.OrNull(logger),
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(ServiceName))
	router.Use(s.observe())
	s.router = router
	s.registerRoutes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// registerRoutes registers the HTTP API.
//
//	POST /v1/analyze         analyze a module, the body is the raw input
//	POST /v1/convert         convert tape text to JSON
//	GET  /v1/runs            list recorded runs
//	GET  /v1/runs/:id        get one run
//	GET  /v1/runs/:id/report get the stored report of a run
//	GET  /health             liveness and database check
//	GET  /metrics            Prometheus metrics
func (s *Server) registerRoutes() {
	v1 := s.router.Group("/v1")
	{
		v1.POST("/analyze", s.handleAnalyze)
		v1.POST("/convert", s.handleConvert)
		v1.GET("/runs", s.handleListRuns)
		v1.GET("/runs/:id", s.handleGetRun)
		v1.GET("/runs/:id/report", s.handleReport)
	}
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Listening on %s", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
