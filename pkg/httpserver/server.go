package httpserver

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/dmitrymomot/storefront/pkg/logger"
)

// Server runs an http.Server until its context is done, then drains it.
type Server struct {
	cfg      Config
	srv      *http.Server
	listener net.Listener
	log      *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger. Nil is ignored.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithListener serves on an existing listener instead of cfg.Addr.
func WithListener(l net.Listener) Option {
	return func(s *Server) { s.listener = l }
}

// New creates a server for handler. Zero durations in cfg fall back to
// net/http defaults; an empty address listens on :8080.
func New(cfg Config, handler http.Handler, opts ...Option) *Server {
	if handler == nil {
		panic("httpserver: handler is required")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	s := &Server{
		cfg: cfg,
		log: logger.Discard(),
		srv: &http.Server{
			Addr:              cfg.Addr,
			Handler:           handler,
			ReadHeaderTimeout: cfg.ReadHeaderTimeout,
			ReadTimeout:       cfg.ReadTimeout,
			WriteTimeout:      cfg.WriteTimeout,
			IdleTimeout:       cfg.IdleTimeout,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(logger.Component("httpserver"))
	s.srv.ErrorLog = slog.NewLogLogger(s.log.Handler(), slog.LevelWarn)
	return s
}

// Run blocks until ctx is done or the server fails. Cancellation triggers a
// graceful shutdown bounded by cfg.ShutdownTimeout.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		var err error
		if s.listener != nil {
			err = s.srv.Serve(s.listener)
		} else {
			err = s.srv.ListenAndServe()
		}
		errCh <- err
	}()
	s.log.InfoContext(ctx, "http server started", slog.String("addr", s.Addr()))

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Join(ErrStart, err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ShutdownTimeout)
	defer cancel()

	s.log.InfoContext(ctx, "http server shutting down")
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return errors.Join(ErrShutdown, err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Join(ErrStart, err)
	}
	s.log.InfoContext(ctx, "http server stopped")
	return nil
}

// Addr is the listening address.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.srv.Addr
}
