// file: internal/server/server.go
// version: 2.0.0
// guid: c1d2e3f4-a5b6-4c7d-8e9f-a0b1c2d3e4f5

// Package server exposes the service's observation surface: liveness,
// a status snapshot, and Prometheus metrics. It never mutates anything.
package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kfstorm/sonarr-metadata-rewrite/internal/metrics"
)

// StatusFunc returns the current service snapshot rendered at /status.
type StatusFunc func() map[string]any

// Server is the HTTP observation endpoint.
type Server struct {
	httpServer *http.Server
	router     *gin.Engine
	status     StatusFunc
}

// New creates a server. status may be nil.
func New(status StatusFunc) *Server {
	router := gin.New()
	router.Use(gin.Recovery())

	// Register metrics (idempotent)
	metrics.Register()

	s := &Server{router: router, status: status}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	s.router.GET("/status", func(c *gin.Context) {
		snapshot := map[string]any{}
		if s.status != nil {
			snapshot = s.status()
		}
		c.JSON(http.StatusOK, snapshot)
	})
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Start begins serving on addr without blocking.
func (s *Server) Start(addr string) {
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		log.Printf("[INFO] status server listening on %s", addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("[ERROR] status server: %v", err)
		}
	}()
}

// Stop shuts the listener down gracefully.
func (s *Server) Stop(ctx context.Context) {
	if s.httpServer == nil {
		return
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Printf("[WARN] status server shutdown: %v", err)
	}
}
