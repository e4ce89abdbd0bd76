// Package ws exposes the control channel as a websocket endpoint. Each text
// frame is one command message; connection presence drives the device's
// companion-connected flag.
package ws

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"kumbara-device-go/internal/platform/logging"
)

const defaultCloseTimeout = 5 * time.Second

// ServerConfig stores the settings required to expose the websocket transport.
type ServerConfig struct {
	Path             string
	HandshakeTimeout time.Duration
}

// Device is what the control channel talks to.
type Device interface {
	Sink
	Presence
}

type Server struct {
	cfg    ServerConfig
	hub    *Hub
	router *Router
	logger *logging.Logger

	mu      sync.Mutex
	httpSrv *http.Server
}

func NewServer(cfg ServerConfig, device Device, logger *logging.Logger) *Server {
	if cfg.Path == "" {
		cfg.Path = "/"
	}
	hub := NewHub(device)
	return &Server{
		cfg:    cfg,
		hub:    hub,
		router: NewRouter(hub, device, logger, RouterOptions{HandshakeTimeout: cfg.HandshakeTimeout}),
		logger: logger,
	}
}

// Handler returns the upgrade mux, useful for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(s.cfg.Path, s.router.Handle)
	return mux
}

// Serve accepts upgrades on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	if s.httpSrv != nil {
		s.mu.Unlock()
		return errors.New("websocket server already started")
	}
	s.router.ctx = ctx
	srv := &http.Server{Handler: s.Handler()}
	s.httpSrv = srv
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		_ = s.Stop()
	}()

	s.logger.InfoTag(logging.TagWebSocket, "listening on %s%s", ln.Addr(), s.cfg.Path)

	err := srv.Serve(ln)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully stops the websocket server and active sessions.
func (s *Server) Stop() error {
	s.mu.Lock()
	srv := s.httpSrv
	s.httpSrv = nil
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeoutCause(context.Background(), defaultCloseTimeout, ErrSessionShutdown)
	defer cancel()

	s.hub.CloseAll(ErrSessionShutdown)
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Count exposes the number of connected companions.
func (s *Server) Count() int {
	return s.hub.Count()
}
