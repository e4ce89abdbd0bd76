package ws

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"kumbara-device-go/internal/platform/logging"
	"kumbara-device-go/internal/platform/observability"
)

// Router upgrades HTTP connections to control-channel sessions.
type Router struct {
	hub    *Hub
	sink   Sink
	logger *logging.Logger

	upgrader         *websocket.Upgrader
	handshakeTimeout time.Duration
	ctx              context.Context
}

type RouterOptions struct {
	HandshakeTimeout time.Duration
	CheckOrigin      func(r *http.Request) bool
}

func NewRouter(hub *Hub, sink Sink, logger *logging.Logger, opts RouterOptions) *Router {
	upgrader := &websocket.Upgrader{
		CheckOrigin: opts.CheckOrigin,
	}
	if upgrader.CheckOrigin == nil {
		upgrader.CheckOrigin = func(r *http.Request) bool { return true }
	}

	timeout := opts.HandshakeTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Router{
		hub:              hub,
		sink:             sink,
		logger:           logger,
		upgrader:         upgrader,
		handshakeTimeout: timeout,
		ctx:              context.Background(),
	}
}

// Handle upgrades the HTTP connection and launches a new session. Sessions
// outlive the request, so they hang off the router context.
func (r *Router) Handle(w http.ResponseWriter, req *http.Request) {
	handshakeCtx, cancel := context.WithTimeoutCause(req.Context(), r.handshakeTimeout, ErrHandshakeTimeout)
	defer cancel()
	req = req.WithContext(handshakeCtx)

	_, spanEnd := observability.StartSpan(handshakeCtx, "transport.websocket", "handle")
	var spanErr error
	defer func() {
		spanEnd(spanErr)
	}()

	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		spanErr = err
		r.logger.ErrorTag(logging.TagWebSocket, "handshake failed: %v", err)
		return
	}

	clientID := resolveClientID(req, conn)
	r.logger.InfoTag(logging.TagControl, "companion connected client=%s", clientID)

	session := NewSession(r.ctx, NewConnection(clientID, conn), r.sink, r.logger)
	r.hub.Register(session)

	go session.Run(func(runErr error) {
		r.hub.Unregister(session.ID())
		if runErr != nil {
			r.logger.WarnTag(logging.TagWebSocket, "session %s ended: %v", session.ID(), runErr)
		}
		r.logger.InfoTag(logging.TagControl, "companion disconnected client=%s", clientID)
	})
}

func resolveClientID(req *http.Request, conn *websocket.Conn) string {
	clientID := req.Header.Get("Client-Id")
	if clientID == "" {
		clientID = req.URL.Query().Get("client-id")
	}
	if clientID == "" {
		clientID = fmt.Sprintf("%p", conn)
	}
	return clientID
}
