// Package server exposes the fresson pipeline over HTTP.
package server

import (
	"context"
	stderrors "errors"
	"image"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/leeforge/fresson/cache"
	"github.com/leeforge/fresson/concurrency"
	httpmw "github.com/leeforge/fresson/http/middleware"
	"github.com/leeforge/fresson/http/responder"
	"github.com/leeforge/fresson/logging"
	"github.com/leeforge/fresson/media/processor"
	"github.com/leeforge/fresson/media/storage"
	"github.com/leeforge/fresson/metrics"
	"github.com/leeforge/fresson/middleware"
	"go.uber.org/zap"
)

// Config configures the listener and request limits.
type Config struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	// MaxUploadBytes bounds a whole request body; 0 disables the check.
	MaxUploadBytes int64
}

// Deps are the collaborators of the handlers. Pipeline and Limiter are
// required; the texture library, its cache, the middlewares and metrics are
// optional.
type Deps struct {
	Pipeline     *processor.Pipeline
	Limiter      *concurrency.Limiter
	Textures     storage.Provider
	TextureCache *cache.TTLCache[*image.NRGBA]
	RateLimiter  *middleware.RateLimiter
	Security     *middleware.SecurityMiddleware
	Metrics      *metrics.Collector
	Logger       logging.Logger
}

// Server is the fresson HTTP service.
type Server struct {
	config Config
	deps   Deps
	logger logging.Logger
	router chi.Router
}

// New builds the router for deps.
func New(config Config, deps Deps) *Server {
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = 15 * time.Second
	}
	if deps.Logger == nil {
		deps.Logger = logging.NewNop()
	}
	if deps.Limiter == nil {
		deps.Limiter = concurrency.NewLimiter(0, 0)
	}

	s := &Server{
		config: config,
		deps:   deps,
		logger: deps.Logger.Named("http"),
	}
	s.router = s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(httpmw.TraceIDMiddleware())
	r.Use(httpmw.TimingMiddleware())
	r.Use(logging.HTTPMiddleware(s.logger))
	r.Use(logging.RecoveryMiddleware())
	if s.deps.Security != nil {
		r.Use(s.deps.Security.Middleware)
	}
	if s.deps.Metrics != nil {
		r.Use(s.deps.Metrics.Middleware)
	}

	r.NotFound(responder.NotFound)
	r.MethodNotAllowed(responder.MethodNotAllowed)

	r.Get("/healthz", s.health)
	if s.deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.deps.Metrics.Handler())
	}

	r.Route("/v1", func(r chi.Router) {
		if s.deps.RateLimiter != nil {
			r.Use(s.deps.RateLimiter.Middleware)
		}
		r.Post("/effects/fresson", s.applyEffect)
		r.Get("/textures", s.listTextures)
		r.Post("/textures", s.uploadTexture)
	})

	return r
}

// Start serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Start on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		ErrorLog:     zap.NewStdLog(s.logger.Zap()),
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", zap.String("addr", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("server shutting down", zap.Duration("timeout", s.config.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
