package api

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/ignite/sendtime-scheduler/internal/config"
	"github.com/ignite/sendtime-scheduler/internal/sendtime"
)

// Deps are the collaborators of the HTTP surface. Only Engine is required.
type Deps struct {
	Engine      *sendtime.Engine
	Campaigns   CampaignRescheduler
	DB          *sql.DB
	RedisClient *redis.Client
}

// Server represents the API server
type Server struct {
	config  config.ServerConfig
	handler http.Handler
	router  *chi.Mux
	server  *http.Server
}

// NewServer creates a new API server
func NewServer(cfg config.ServerConfig, schedCfg config.SchedulerConfig, deps Deps) *Server {
	h := NewHandlers(deps.Engine, deps.Campaigns, schedCfg.MaxBatchItems)
	health := NewHealthChecker(deps.DB, deps.RedisClient)
	limiter := NewClientRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	router := SetupRoutes(h, health, limiter, cfg.CORSOrigins)

	return &Server{
		config:  cfg,
		handler: router,
		router:  router,
	}
}

// ListenAndServe starts the HTTP server
func (s *Server) ListenAndServe() error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.config.GetHost(), s.config.Port),
		Handler:           s.handler,
		ReadTimeout:       s.config.ReadTimeout(),
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      s.config.WriteTimeout(),
		IdleTimeout:       120 * time.Second,
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler returns the HTTP handler for testing
func (s *Server) Handler() http.Handler {
	return s.handler
}
