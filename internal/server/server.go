// Package server wires the wellness tracker together and runs it.
//
// New is the composition root:
//
//	config → session store → WellnessService → handlers → chi router
//
// Start serves HTTP, runs the expired-session sweeper, and shuts everything
// down in order on SIGINT/SIGTERM.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/wellness-tracker/internal/auth"
	"github.com/sakif/wellness-tracker/internal/catalog"
	"github.com/sakif/wellness-tracker/internal/config"
	"github.com/sakif/wellness-tracker/internal/handler"
	"github.com/sakif/wellness-tracker/internal/middleware"
	"github.com/sakif/wellness-tracker/internal/repository"
	"github.com/sakif/wellness-tracker/internal/repository/memory"
	redisRepo "github.com/sakif/wellness-tracker/internal/repository/redis"
	sqliteRepo "github.com/sakif/wellness-tracker/internal/repository/sqlite"
	"github.com/sakif/wellness-tracker/internal/service"
)

// Server owns the router and the session store.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	store  repository.SessionRepository
	svc    *service.WellnessService
}

// New builds a Server. The session store is opened here and closed by Start
// (or by Close when Start is never called).
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	tokens, err := auth.NewTokenService(cfg.SessionSecret, cfg.SessionTTL)
	if err != nil {
		return nil, err
	}

	renderer, err := handler.NewTemplateRenderer(cfg.TemplateDir)
	if err != nil {
		return nil, fmt.Errorf("loading templates: %w", err)
	}

	store, err := openStore(context.Background(), cfg)
	if err != nil {
		return nil, fmt.Errorf("opening session store: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		store:  store,
		svc:    service.NewWellnessService(store, catalog.Default(), logger),
	}
	s.setupRoutes(tokens, renderer)

	return s, nil
}

// openStore picks the session backend named in the config.
func openStore(ctx context.Context, cfg *config.Config) (repository.SessionRepository, error) {
	switch cfg.SessionBackend {
	case config.BackendMemory:
		return memory.New(cfg.SessionTTL), nil

	case config.BackendRedis:
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return redisRepo.Dial(ctx, redisRepo.Options{
			Addr:      cfg.RedisAddr,
			Password:  cfg.RedisPassword,
			DB:        cfg.RedisDB,
			KeyPrefix: cfg.SessionKeyPrefix,
			TTL:       cfg.SessionTTL,
		})

	case config.BackendSQLite:
		if cfg.SessionDBPath != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(cfg.SessionDBPath), 0o755); err != nil {
				return nil, fmt.Errorf("creating database directory: %w", err)
			}
		}
		return sqliteRepo.New(cfg.SessionDBPath, cfg.SessionTTL)

	default:
		return nil, fmt.Errorf("unknown session backend %q", cfg.SessionBackend)
	}
}

// setupRoutes registers middleware and routes.
//
//	GET  /                      login page
//	POST /register              registration form
//	GET  /dashboard             progress page
//	POST /complete_task         JSON actions ...
//	POST /complete_study
//	POST /stop_study
//	POST /update_most_used_app
//	POST /change_avatar
//	GET  /healthz               store ping, no session
//	GET  /static/*              browser assets, no session
func (s *Server) setupRoutes(tokens *auth.TokenService, renderer handler.Renderer) {
	s.router.Use(chimiddleware.RequestID)
	if s.config.TrustProxy {
		s.router.Use(chimiddleware.RealIP)
	}
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	fileServer := http.FileServer(http.Dir(s.config.StaticDir))
	s.router.Handle("/static/*", http.StripPrefix("/static/", fileServer))

	health := handler.NewHealthHandler(s.svc, s.logger)
	s.router.Get("/healthz", health.HandleHealth)

	pages := handler.NewPageHandler(s.svc, renderer, s.logger)
	api := handler.NewAPIHandler(s.svc, s.logger)

	s.router.Group(func(r chi.Router) {
		r.Use(auth.Sessions(tokens, s.config.TrustProxy, s.logger))

		r.Get("/", pages.HandleIndex)
		r.Post("/register", pages.HandleRegister)
		r.Get("/dashboard", pages.HandleDashboard)

		r.Post("/complete_task", api.HandleCompleteTask)
		r.Post("/complete_study", api.HandleCompleteStudy)
		r.Post("/stop_study", api.HandleStopStudy)
		r.Post("/update_most_used_app", api.HandleUpdateMostUsedApp)
		r.Post("/change_avatar", api.HandleChangeAvatar)
	})
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the session store.
func (s *Server) Close() error {
	return s.store.Close()
}

// Start serves until SIGINT/SIGTERM, then drains requests for up to 30s,
// stops the sweeper and closes the store.
func (s *Server) Start() error {
	defer s.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	sweepDone := make(chan struct{})
	go func() {
		defer close(sweepDone)
		s.sweep(sweepCtx, s.config.SweepInterval)
	}()
	defer func() {
		stopSweep()
		<-sweepDone
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("session_backend", s.config.SessionBackend),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}

// sweep purges expired sessions every interval until ctx is cancelled.
func (s *Server) sweep(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.svc.PurgeExpired(ctx); err != nil && ctx.Err() == nil {
				s.logger.Warn("session sweep failed", slog.String("error", err.Error()))
			}
		}
	}
}
