package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/oggyb/elk-messaging/internal/middleware"
	routes "github.com/oggyb/elk-messaging/internal/router"
	"github.com/rs/zerolog"
)

// Server owns the underlying http.Server instance.
type Server struct {
	http *http.Server
	log  zerolog.Logger
}

// New builds the HTTP server for addr: routes from deps wrapped in request
// logging, panic recovery and, when deps.Metrics is set, request counting.
func New(addr string, deps routes.AppDeps, log zerolog.Logger) *Server {
	mux := http.NewServeMux()
	routes.Register(mux, deps)

	root := Chain(
		mux,
		middleware.RequestLogger(log),
		middleware.Recoverer(log),
		middleware.RequestMetrics(deps.Metrics),
	)

	return &Server{
		http: &http.Server{
			Addr:              addr,
			Handler:           root,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
		},
		log: log,
	}
}

// Handler exposes the root handler, middleware included.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Run serves until ctx is done, then shuts down, giving in-flight requests
// up to shutdownTimeout. It returns early if the listener fails.
func (s *Server) Run(ctx context.Context, shutdownTimeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.http.Addr).Msg("HTTP server listening")
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info().Msg("HTTP server shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
