// MIT License
//
// Copyright (c) 2026 Kolin
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.
//

// Package api wires the HTTP routes onto the investigation store.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"ipdossier/internal/api/handlers"
	"ipdossier/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/pterm/pterm"
)

type Config struct {
	Addr           string
	Production     bool
	MetricsEnabled bool
}

// Server is the HTTP front of the store
type Server struct {
	cfg     Config
	logger  *pterm.Logger
	router  *gin.Engine
	httpSrv *http.Server
}

func NewServer(cfg Config, investigations *handlers.InvestigationHandler, system *handlers.SystemHandler, logger *pterm.Logger) *Server {
	if cfg.Production {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		cfg:    cfg,
		logger: logger,
		router: gin.New(),
	}
	s.setupMiddleware()
	s.setupRoutes(investigations, system)
	return s
}

// Router exposes the engine, mainly for tests
func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		s.logger.WithCaller().Error("Panic recovered",
			s.logger.Args("error", recovered, "path", c.Request.URL.Path))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}))

	if s.cfg.MetricsEnabled {
		s.router.Use(metrics.Middleware())
	}
	s.router.Use(s.loggingMiddleware())
}

func (s *Server) setupRoutes(inv *handlers.InvestigationHandler, sys *handlers.SystemHandler) {
	s.router.GET("/health", sys.Health)
	if s.cfg.MetricsEnabled {
		s.router.GET("/metrics", metrics.Handler())
	}

	api := s.router.Group("/api")

	ips := api.Group("/ips")
	ips.GET("/monitored", inv.GetMonitored)
	ips.GET("/:ip", inv.GetRecord)
	ips.POST("/:ip/assessments", inv.RecordAssessment)
	ips.POST("/:ip/lookups", inv.RecordLookup)
	ips.GET("/:ip/analytics", inv.GetAnalytics)
	ips.GET("/:ip/trend", inv.GetTrend)
	ips.PUT("/:ip/monitor", inv.SetMonitored)
	ips.POST("/:ip/alerts", inv.AddAlert)

	analytics := api.Group("/analytics")
	analytics.GET("/behaviors", inv.GetBehaviorStats)
	analytics.GET("/clients", inv.GetClientStats)
	analytics.GET("/overview", inv.GetOverview)

	api.GET("/tickets/:ticket", inv.GetTicket)
	api.PUT("/tickets/:ticket", inv.UpdateTicket)

	api.GET("/system/stats", sys.GetSystemStats)
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		args := s.logger.Args(
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
		)
		switch status := c.Writer.Status(); {
		case status >= 500:
			s.logger.Error("Request completed", args)
		case status >= 400:
			s.logger.Warn("Request completed", args)
		default:
			s.logger.Debug("Request completed", args)
		}
	}
}

// Start listens in the background. Listener errors are sent on the returned channel.
func (s *Server) Start() <-chan error {
	s.httpSrv = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", s.logger.Args("addr", s.cfg.Addr))
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	return errCh
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	s.logger.Info("Shutting down HTTP server")
	return s.httpSrv.Shutdown(ctx)
}
