// Package server exposes learner sessions over a JSON HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/abhisek/supertutor/internal/auth"
	"github.com/abhisek/supertutor/internal/config"
	"github.com/abhisek/supertutor/internal/coursegen"
	"github.com/abhisek/supertutor/internal/curriculum"
	"github.com/abhisek/supertutor/internal/metrics"
	"github.com/abhisek/supertutor/internal/session"
	"github.com/abhisek/supertutor/internal/store"
)

// Deps are the collaborators shared by every session.
type Deps struct {
	Auth      *auth.Service
	Generator *coursegen.Generator
	Bank      *curriculum.Bank
	Documents store.DocumentStore
	Metrics   *metrics.Metrics
	Logger    *zap.Logger

	// Health, when set, is checked by /healthz.
	Health func(context.Context) error
}

// Server is the HTTP front end.
type Server struct {
	cfg      config.ServerConfig
	deps     Deps
	logger   *zap.Logger
	sessions *registry
	limiter  *userLimiter
	router   chi.Router
}

// New builds the server and its routes.
func New(cfg config.ServerConfig, rl config.RateLimitConfig, deps Deps) (*Server, error) {
	if deps.Auth == nil {
		return nil, errors.New("server: auth service is required")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	s := &Server{
		cfg:     cfg,
		deps:    deps,
		logger:  deps.Logger,
		limiter: newUserLimiter(rl.PerMinute, rl.Burst),
	}
	s.sessions = newRegistry(s.newController)
	s.router = s.routes()
	return s, nil
}

func (s *Server) newController(ctx context.Context, u *auth.User) (*session.Controller, error) {
	c := session.New(session.Options{
		Generator: s.deps.Generator,
		Bank:      s.deps.Bank,
		Documents: s.deps.Documents,
		User:      u,
		Logger:    s.logger,
		Metrics:   s.deps.Metrics,
	})
	if err := c.Load(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(s.deps.Metrics.Middleware)
	if s.cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(s.cfg.RequestTimeout))
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.deps.Metrics.Handler())
	if s.cfg.DevToken {
		r.Post("/auth/token", s.handleIssueToken)
	}

	r.Route("/v1", func(v chi.Router) {
		v.Use(s.deps.Auth.Middleware)

		v.Get("/catalog", s.handleCatalog)
		v.Get("/courses", s.handleListCourses)
		v.With(s.limiter.middleware).Post("/courses", s.handleCreateCourse)
		v.Route("/courses/{courseID}", func(cr chi.Router) {
			cr.Get("/", s.handleGetCourse)
			cr.Post("/activate", s.handleActivate)
			cr.With(s.limiter.middleware).Post("/stages", s.handleAdvanceStage)
			cr.Post("/modules/{moduleID}/activities/{activityID}/submit", s.handleSubmit)
		})
		v.Put("/drafts/{activityID}", s.handleSetDraft)
		v.Get("/progress", s.handleProgress)
		v.Get("/profile", s.handleProfile)
		v.Put("/onboarding", s.handleOnboarding)
		v.Get("/sync", s.handleSyncStatus)
		v.Post("/sync", s.handleSync)
	})
	return r
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until ctx is cancelled, then shuts down
// gracefully and closes every session.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", s.cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.sessions.closeAll()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.sessions.closeAll()
	if err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	s.logger.Info("http server stopped")
	return nil
}
