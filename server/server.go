// Package server exposes renderings and payloads over HTTP
package server

import (
	"context"
	"errors"
	"factoriotech/db"
	"factoriotech/domain"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

const readHeaderTimeout = 5 * time.Second

// RenderingLoader waits for a rendering to become available
type RenderingLoader interface {
	Load(ctx context.Context, hash domain.Hash, renderingType domain.RenderingType) ([]byte, error)
}

// PayloadIndex knows which payloads have been recorded
type PayloadIndex interface {
	Exists(ctx context.Context, hash domain.Hash) (bool, error)
	Get(ctx context.Context, hash domain.Hash) (db.Payload, error)
}

// Server serves the payload endpoints
type Server struct {
	renderings     RenderingLoader
	payloads       PayloadIndex
	allowedOrigins []string
	logger         *zap.Logger
}

// New creates a Server. payloads may be nil, in which case every
// well-formed hash is polled for and the raw endpoint answers 404.
func New(renderings RenderingLoader, payloads PayloadIndex, allowedOrigins []string, logger *zap.Logger) *Server {
	return &Server{
		renderings: renderings,
		payloads:   payloads,
		allowedOrigins: lo.Uniq(lo.Filter(allowedOrigins, func(origin string, _ int) bool {
			return origin != ""
		})),
		logger: logger,
	}
}

// Routes builds the HTTP handler
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(s.accessLog)
	r.Use(s.recoverer)
	r.Use(middleware.GetHead)

	if len(s.allowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.allowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodOptions},
			ExposedHeaders: []string{"ETag"},
			MaxAge:         300,
		}))
	}

	r.Get("/healthz", s.handleHealth)

	r.Route("/payloads/{hash}", func(r chi.Router) {
		r.Get("/", s.handleGetDetails)
		r.Get("/raw", s.handleGetRaw)
		r.Get("/rendering/{type}", s.handleGetRendering)
	})

	return r
}

// ListenAndServe serves until ctx is done, then drains in-flight requests
// for at most shutdownTimeout. writeTimeout must leave room for a full poll.
func (s *Server) ListenAndServe(ctx context.Context, addr string, writeTimeout time.Duration, shutdownTimeout time.Duration) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      writeTimeout,
	}

	errs := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", zap.String("addr", addr))
		errs <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down HTTP server", zap.Duration("timeout", shutdownTimeout))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}

	if err := <-errs; !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
