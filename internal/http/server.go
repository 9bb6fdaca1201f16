// README: API gateway; builds the gin engine and delegates to the session's services.
package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"fleetops/internal/http/handlers"
	"fleetops/internal/infra"
	"fleetops/internal/logger"
)

type ServerDeps struct {
	Addr     string
	Session  handlers.Session
	Verifier infra.TokenVerifier
	Log      *zap.Logger
}

type Server struct {
	srv *http.Server
	log *zap.Logger
}

func NewServer(deps ServerDeps) *Server {
	log := logger.OrNop(deps.Log)
	return &Server{
		srv: &http.Server{
			Addr:              deps.Addr,
			Handler:           NewRouter(deps.Session, deps.Verifier, log),
			ReadHeaderTimeout: 10 * time.Second,
		},
		log: log,
	}
}

// Run serves until ctx is done, then drains in-flight requests for up to 30s. Billing runs
// can be long, so no write timeout is set.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http listening", zap.String("addr", s.srv.Addr))
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	s.log.Info("http shutting down")
	return s.srv.Shutdown(shutdownCtx)
}
