// Package httpserver exposes the decision pipeline, preference memory, and
// ride broker over HTTP.
package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"wayfinder/internal/config"
	"wayfinder/internal/logging"
	"wayfinder/internal/orchestrator"
	"wayfinder/internal/prefs"
	"wayfinder/internal/rides"
)

// Server is the HTTP surface. All state lives in the injected components.
type Server struct {
	engine     *gin.Engine
	httpServer *http.Server

	pipeline *orchestrator.Orchestrator
	profiles prefs.ProfileStore
	broker   *rides.Aggregator
	logger   logging.Logger
	version  string
}

// New builds the server and its routes.
func New(cfg config.ServerConfig, pipeline *orchestrator.Orchestrator, profiles prefs.ProfileStore, broker *rides.Aggregator, logger logging.Logger, version string) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if len(cfg.CORSOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.CORSOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	engine.Use(cors.New(corsConfig))

	s := &Server{
		engine:   engine,
		pipeline: pipeline,
		profiles: profiles,
		broker:   broker,
		logger:   logging.OrNop(logger),
		version:  version,
	}
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      engine,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.engine.GET("/healthz", s.handleHealth)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := s.engine.Group("/api/v1")
	{
		api.POST("/recommend", s.handleRecommend)

		profile := api.Group("/profile")
		{
			profile.GET("/:userID", s.handleGetProfile)
			profile.DELETE("/:userID", s.handleResetProfile)
			profile.POST("/:userID/events", s.handleAppendEvents)
		}

		r := api.Group("/rides")
		{
			r.POST("/quotes", s.handleQuotes)
			r.POST("/bookings", s.handleBook)
			r.DELETE("/bookings/:id", s.handleCancelBooking)
		}
	}
}

// Handler exposes the router for httptest.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("http server listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": s.version,
	})
}
