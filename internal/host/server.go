package host

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/roach88/tagstamp/internal/catalog"
	"github.com/roach88/tagstamp/internal/engine"
	"github.com/roach88/tagstamp/internal/layout"
)

// shutdownTimeout bounds graceful shutdown in Serve.
const shutdownTimeout = 5 * time.Second

// Server exposes the engine and catalog over HTTP.
type Server struct {
	engine  *engine.Engine
	catalog *catalog.Catalog
	hub     *Hub
	params  layout.Params
	log     *slog.Logger
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithLayout sets the default partition parameters of /api/columns.
func WithLayout(p layout.Params) ServerOption {
	return func(s *Server) {
		s.params = p
	}
}

// WithServerLogger sets the logger. Default: slog.Default().
func WithServerLogger(l *slog.Logger) ServerOption {
	return func(s *Server) {
		s.log = l
	}
}

// NewServer wires a server. The hub should be the engine's mutator and
// selection provider; engine updates are streamed to its clients.
func NewServer(eng *engine.Engine, cat *catalog.Catalog, hub *Hub, opts ...ServerOption) *Server {
	s := &Server{
		engine:  eng,
		catalog: cat,
		hub:     hub,
		params:  layout.DefaultParams,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	eng.Subscribe(func(u engine.Update) {
		hub.Broadcast(Message{Type: TypeState, Update: &u})
	})
	return s
}

// Routes returns the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/templates", s.listTemplates)
		r.Get("/columns", s.columns)
		r.Get("/state", s.state)
		r.Get("/icons/{id}", s.icon)
		r.Get("/ws", s.handleWS)

		r.Post("/selection", s.postSelection)
		r.Post("/modifiers", s.postModifiers)
		r.Post("/dataset/changed", s.datasetChanged)

		r.Post("/templates/{id}/select", s.selectTemplate)
		r.Post("/templates/{id}/click", s.clickTemplate)

		r.Post("/autoapply/toggle", s.toggle)
		r.Post("/autoapply/deactivate", s.deactivate)
	})
	return r
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener is Serve on an existing listener.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.Serve(ln)
	}()
	s.log.Info("host listening", "event", "serve", "addr", ln.Addr().String())

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("request",
			"event", "http",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
