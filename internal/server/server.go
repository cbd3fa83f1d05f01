// Package server exposes the CRM store over HTTP using gin.
// Handlers hold no state of their own; the store is injected through New.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/mesh-intelligence/crm/pkg/crm"
	"github.com/mesh-intelligence/crm/pkg/types"
)

// Defaults for Config fields left empty.
const (
	DefaultAddr      = "127.0.0.1:8000"
	DefaultAPIPrefix = "/api/crm"
	ServiceName      = "crm"
)

// shutdownTimeout bounds how long Run waits for in-flight requests.
const shutdownTimeout = 10 * time.Second

// Config holds the HTTP settings.
type Config struct {
	Addr        string
	APIPrefix   string
	CORSOrigins []string
	// Mode is the gin mode: release, debug or test.
	Mode string
}

func (c Config) withDefaults() Config {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.APIPrefix == "" {
		c.APIPrefix = DefaultAPIPrefix
	}
	if len(c.CORSOrigins) == 0 {
		c.CORSOrigins = []string{"*"}
	}
	if c.Mode == "" {
		c.Mode = gin.ReleaseMode
	}
	return c
}

// Server routes HTTP requests to a types.Store.
type Server struct {
	cfg    Config
	store  types.Store
	logger *slog.Logger
	engine *gin.Engine
}

// New builds the gin engine and registers every route.
func New(store types.Store, cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()
	gin.SetMode(cfg.Mode)

	s := &Server{
		cfg:    cfg,
		store:  store,
		logger: logger,
		engine: gin.New(),
	}
	s.engine.Use(gin.Recovery(), requestLogger(logger), cors.New(corsConfig(cfg.CORSOrigins)))
	s.routes()
	return s
}

func corsConfig(origins []string) cors.Config {
	cc := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cc.AllowAllOrigins = true
			return cc
		}
	}
	cc.AllowOrigins = origins
	cc.AllowCredentials = true
	return cc
}

func (s *Server) routes() {
	r := s.engine
	r.GET("/", s.root)
	r.GET("/health", s.health)
	r.GET("/api/version", s.version)

	api := r.Group(s.cfg.APIPrefix)
	{
		api.POST("/clients", s.createClient)
		api.GET("/clients", s.listClients)
		api.GET("/clients/search/email/:email", s.findClientByEmail)
		api.GET("/clients/:id", s.getClient)
		api.PUT("/clients/:id", s.updateClient)
		api.DELETE("/clients/:id", s.deleteClient)

		api.POST("/clients/:id/contacts", s.createContact)
		api.GET("/clients/:id/contacts", s.listContacts)
		api.POST("/clients/:id/activities", s.createActivity)
		api.GET("/clients/:id/activities", s.listActivities)
		api.POST("/clients/:id/opportunities", s.createOpportunity)
		api.GET("/clients/:id/opportunities", s.listOpportunities)

		api.GET("/clients/:id/stats", s.clientStats)
		api.PUT("/clients/:id/metrics", s.recordMetrics)

		api.GET("/summary", s.summary)
	}
}

// Handler returns the routed engine, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on the configured address until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("crm server listening", "addr", s.cfg.Addr, "api_prefix", s.cfg.APIPrefix)
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

	s.logger.Info("crm server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func (s *Server) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": "crm server is running",
		"version": crm.Version,
	})
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": ServiceName})
}

func (s *Server) version(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"version": crm.Version, "name": ServiceName})
}
