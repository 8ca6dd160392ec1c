// Package server exposes image generation over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mrsinham/randimage/internal/config"
	"github.com/mrsinham/randimage/internal/encode"
)

// Options carries the settings that are not part of the server section.
type Options struct {
	Encode   encode.Options
	MaxBytes int64
	Version  string
	Logger   *slog.Logger
}

// Server serves random images.
type Server struct {
	cfg     config.Server
	opts    Options
	log     *slog.Logger
	started time.Time
	router  chi.Router
}

// New builds the router for cfg.
func New(cfg config.Server, opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}
	s := &Server{cfg: cfg, opts: opts, log: log, started: time.Now()}
	s.router = s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/", s.handleIndex)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(s.requireToken)
		r.Get("/image", s.handleImage)
		r.Get("/thumbnail", s.handleThumbnail)
		r.Get("/formats", s.handleFormats)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		jsonWrite(http.StatusNotFound, w, ErrorResponse{From: "not found", Message: r.URL.Path})
	})
	return r
}

// ListenAndServe serves on the configured address until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Addr(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done, then drains in-flight
// requests for up to the shutdown timeout.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          slog.NewLogLogger(s.log.Handler(), slog.LevelWarn),
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info("listening", "addr", ln.Addr().String())
		errc <- srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	s.log.Info("shutting down", "timeout", timeout)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// ErrorResponse is the JSON body of every error.
type ErrorResponse struct {
	From    string `json:"error"`
	Message string `json:"message,omitempty"`
}

func jsonWrite(status int, w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	js := json.NewEncoder(w)
	js.SetIndent("", "  ")
	_ = js.Encode(data)
}
