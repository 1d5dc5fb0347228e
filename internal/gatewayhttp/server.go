// Package gatewayhttp implements the gateway's HTTPS surface: status,
// certificate issuance, the tunnel WebSocket upgrade, and an ACME
// challenge responder for the gateway's own server certificate
// rotation. This is component D of the tunnel gateway (spec.md §4.D).
package gatewayhttp

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sufield/trz-gateway/internal/domain"
)

const (
	DefaultReadHeaderTimeout = 5 * time.Second
	DefaultReadTimeout       = 30 * time.Second
	DefaultWriteTimeout      = 0 // streaming responses (WebSocket upgrades) must not be capped
	DefaultIdleTimeout       = 120 * time.Second
)

// Server wraps a chi.Router behind an *http.Server configured with the
// gateway's outer, server-auth-only TLS config (internal/tlsfactory's
// Outer) — mutual authentication happens one layer down, in the tunnel
// upgrade's inner handshake, so the bootstrap certificate-issuance
// endpoint remains reachable by clients presenting no leaf yet. Routes
// are registered by the caller via Router(); Server only owns the
// listen/shutdown lifecycle.
type Server struct {
	httpServer *http.Server
	router     chi.Router
	acme       *acmeResponder
	logger     *slog.Logger

	mu      sync.Mutex
	started bool
	stopped atomic.Bool
}

// NewServer builds a Server listening on addr with tlsConfig as its
// server acceptor (spec.md §4.C/§4.D). Routes are pre-registered for
// /status and the ACME challenge responder only; callers add
// /remote/certificate (RegisterCertificateIssuance),
// /remote/tunnel/{client_id} (RegisterTunnelUpgrade) and any
// application routes through Router().
func NewServer(addr string, tlsConfig *tls.Config, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(requestLogger(logger))

	acme := newACMEResponder()

	s := &Server{
		router: router,
		acme:   acme,
		logger: logger,
	}

	router.Get("/status", handleStatus)
	router.Get("/.well-known/acme-challenge/{token}", acme.handle)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           router,
		TLSConfig:         tlsConfig,
		ReadHeaderTimeout: DefaultReadHeaderTimeout,
		ReadTimeout:       DefaultReadTimeout,
		IdleTimeout:       DefaultIdleTimeout,
	}

	return s
}

// Router exposes the chi.Router so callers (RegisterCertificateIssuance
// for certificate issuance, RegisterTunnelUpgrade for the WebSocket
// upgrade) can register their own routes before Start.
func (s *Server) Router() chi.Router { return s.router }

// ACME exposes the challenge responder so an external rotation process
// can publish/withdraw key authorizations.
func (s *Server) ACME() *acmeResponder { return s.acme }

// Start begins serving in a background goroutine. It returns once the
// listener either starts successfully or fails within a short grace
// period, matching the teacher's "catch immediate startup errors"
// idiom.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errors.New("gatewayhttp: server already started")
	}
	s.started = true
	s.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("gateway http server starting", "addr", s.httpServer.Addr)
		err := s.httpServer.ListenAndServeTLS("", "")
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("gatewayhttp: server exited immediately: %w", err)
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(100 * time.Millisecond):
		s.logger.Info("gateway http server listening", "addr", s.httpServer.Addr)
		return nil
	}
}

// Stop gracefully shuts the server down, waiting for in-flight
// requests to drain. Upgraded tunnel connections are hijacked from the
// HTTP server, so Stop neither closes them nor waits for them. Calling
// Stop more than once returns domain.ErrDuplicateShutdown.
func (s *Server) Stop(ctx context.Context) error {
	if !s.stopped.CompareAndSwap(false, true) {
		return domain.ErrDuplicateShutdown
	}
	s.logger.Info("gateway http server stopping")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("gatewayhttp: shutdown: %w", err)
	}
	return nil
}

func handleStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = w.Write([]byte("UP"))
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Debug("request",
				"method", r.Method,
				"path", r.URL.Path,
				"request_id", middleware.GetReqID(r.Context()),
				"duration", time.Since(start),
			)
		})
	}
}
