// Package api serves dependency resolution over HTTP.
//
// Routes:
//
//	POST /v1/resolve                       resolve, streaming NDJSON progress
//	GET  /v1/recipes/{source}/{org}/{name} fetch one recipe
//	GET  /healthz                          liveness
//	GET  /metrics                          Prometheus metrics
//
// A resolve request names its roots as dependency strings:
//
//	{"dependencies": ["github+org/lib-a@^1.0", "org/fmt"]}
//
// The response is a stream of JSON lines sharing one run ID. Progress lines
// carry an "event"; the final line carries either a "result" or an "error".
package api

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/buckaroo/pkg/recipe"
	"github.com/matzehuels/buckaroo/pkg/resolver"
	"github.com/matzehuels/buckaroo/pkg/source"
)

const (
	defaultShutdownTimeout = 10 * time.Second
	maxRequestBody         = 1 << 20
)

// Config configures a [Server].
type Config struct {
	// Source fetches recipes. Required.
	Source source.Source

	// Finder suggests identifiers when a recipe is not found. Optional.
	Finder source.Finder

	// DefaultSource completes dependency strings without a source tag.
	// Defaults to [source.CookbookTag].
	DefaultSource recipe.Identifier

	// Resolve configures each resolution.
	Resolve resolver.Options

	// Gatherer backs /metrics. Nil disables the route.
	Gatherer prometheus.Gatherer

	// Logger receives one line per request. Defaults to log.Default().
	Logger *log.Logger

	// ShutdownTimeout bounds the drain of in-flight requests. Defaults to
	// 10 seconds.
	ShutdownTimeout time.Duration
}

// Server is the HTTP API. It implements http.Handler.
type Server struct {
	cfg    Config
	router chi.Router
}

// New returns a server for cfg.
func New(cfg Config) *Server {
	if cfg.Source == nil {
		panic("api: Source is required")
	}
	if cfg.DefaultSource == "" {
		cfg.DefaultSource = source.CookbookTag
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}

	s := &Server{cfg: cfg}
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	})
	if cfg.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}
	r.Route("/v1", func(r chi.Router) {
		r.Post("/resolve", s.handleResolve)
		r.Get("/recipes/{source}/{org}/{name}", s.handleRecipe)
	})
	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe listens on addr and serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, l)
}

// Serve accepts connections on l until ctx is cancelled, then stops
// accepting and waits up to the shutdown timeout for active requests.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	server := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	s.cfg.Logger.Info("listening", "addr", l.Addr().String())
	serveDone := make(chan error, 1)
	go func() {
		if err := server.Serve(l); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			serveDone <- err
		}
		close(serveDone)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveDone:
		return err
	}

	s.cfg.Logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.cfg.Logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).Round(time.Millisecond))
	})
}
