// Package server exposes the conversion pipeline over HTTP: multipart
// upload, batch processing with pollable jobs, artifact download, and cache
// management.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/olaria/ddlconv/pkg/artifact"
	"github.com/olaria/ddlconv/pkg/batch"
	"github.com/olaria/ddlconv/pkg/dedup"
)

const defaultMaxUploadBytes = 16 << 20 // 16 MiB, matching the upload form cap

type Config struct {
	Logger         *slog.Logger
	Clock          clockwork.Clock
	ListenAddr     string
	Registry       *batch.Registry
	Artifacts      artifact.Store
	Dedup          dedup.Store
	History        *History
	MaxUploadBytes int64
	UploadRate     rate.Limit
	UploadBurst    int
}

func (c *Config) Validate() error {
	if c.Logger == nil {
		return fmt.Errorf("logger is required")
	}
	if c.ListenAddr == "" {
		return fmt.Errorf("listen address is required")
	}
	if c.Registry == nil {
		return fmt.Errorf("batch registry is required")
	}
	if c.Artifacts == nil {
		return fmt.Errorf("artifact store is required")
	}
	if c.Dedup == nil {
		return fmt.Errorf("dedup store is required")
	}
	if c.History == nil {
		return fmt.Errorf("history is required")
	}
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = defaultMaxUploadBytes
	}
	if c.UploadRate == 0 {
		// 60 uploads/minute per IP with a burst of 10.
		c.UploadRate = rate.Every(time.Minute / 60)
	}
	if c.UploadBurst <= 0 {
		c.UploadBurst = 10
	}
	return nil
}

type Server struct {
	log       *slog.Logger
	cfg       Config
	router    *chi.Mux
	srv       *http.Server
	registry  *batch.Registry
	artifacts artifact.Store
	dedup     dedup.Store
	history   *History

	mu     sync.Mutex
	staged []batch.File
	byName map[string]bool
}

func New(cfg Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate server config: %w", err)
	}

	s := &Server{
		log:       cfg.Logger,
		cfg:       cfg,
		router:    chi.NewRouter(),
		registry:  cfg.Registry,
		artifacts: cfg.Artifacts,
		dedup:     cfg.Dedup,
		history:   cfg.History,
		byName:    make(map[string]bool),
	}
	s.setupRoutes()

	s.srv = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
	return s, nil
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) setupRoutes() {
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowOriginFunc: func(r *http.Request, origin string) bool {
			return isLocalhostOrigin(origin)
		},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	}))

	limiter := newUploadLimiter(s.cfg.Clock, s.cfg.UploadRate, s.cfg.UploadBurst)

	s.router.Route("/api", func(r chi.Router) {
		r.With(limiter.middleware).Post("/upload", s.handleUpload)
		r.Post("/process", s.handleProcess)
		r.Get("/jobs/{id}", s.handleJobStatus)
		r.Get("/download/{name}", s.handleDownload)
		r.Get("/download-all", s.handleDownloadAll)
		r.Get("/history", s.handleHistory)
		r.Post("/clear-cache", s.handleClearCache)
	})
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Method(http.MethodGet, "/metrics", promhttp.Handler())
}

// isLocalhostOrigin reports whether the Origin header value is a localhost
// origin. The service is meant to run next to its user; anything else gets
// no CORS headers.
func isLocalhostOrigin(origin string) bool {
	return strings.HasPrefix(origin, "http://localhost") ||
		strings.HasPrefix(origin, "https://localhost") ||
		strings.HasPrefix(origin, "http://127.0.0.1") ||
		strings.HasPrefix(origin, "https://127.0.0.1")
}

// Run serves until ctx is canceled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server: listening", "addr", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("server: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown server: %w", err)
	}
	return <-errCh
}
