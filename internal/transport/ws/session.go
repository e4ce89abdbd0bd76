package ws

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/gorilla/websocket"

	"kumbara-device-go/internal/platform/logging"
)

// Sink receives control-channel traffic. The device machine implements it.
type Sink interface {
	Deliver(ctx context.Context, payload []byte) error
}

// Session pumps text frames from one companion into the sink, in order.
type Session struct {
	id     string
	conn   *Connection
	sink   Sink
	logger *logging.Logger

	ctx    context.Context
	cancel context.CancelCauseFunc

	closed atomic.Bool
}

func NewSession(parent context.Context, conn *Connection, sink Sink, logger *logging.Logger) *Session {
	sessionCtx, cancel := context.WithCancelCause(parent)
	return &Session{
		id:     conn.ID(),
		conn:   conn,
		sink:   sink,
		logger: logger,
		ctx:    sessionCtx,
		cancel: cancel,
	}
}

func (s *Session) ID() string {
	return s.id
}

// Run reads until the peer goes away and invokes onDone once exiting.
func (s *Session) Run(onDone func(error)) {
	var runErr error
	defer func() {
		s.Close(runErr)
		if onDone != nil {
			onDone(runErr)
		}
	}()

	for {
		messageType, payload, err := s.conn.ReadMessage()
		if err != nil {
			if !s.closed.Load() && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				runErr = err
			}
			return
		}
		if messageType != websocket.TextMessage {
			s.logger.WarnTag(logging.TagControl, "session %s: %v", s.id, ErrBinaryFrame)
			continue
		}
		if len(payload) == 0 {
			continue
		}
		s.logger.DebugTag(logging.TagControl, "message received (%d bytes)", len(payload))
		if err := s.sink.Deliver(s.ctx, payload); err != nil {
			s.logger.WarnTag(logging.TagControl, "message dropped: %v", err)
		}
	}
}

// Close terminates the session once.
func (s *Session) Close(reason error) {
	if reason == nil {
		reason = ErrSessionShutdown
	}
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	if s.cancel != nil {
		s.cancel(reason)
	}
	if err := s.conn.Close(); err != nil && !errors.Is(err, websocket.ErrCloseSent) {
		s.logger.WarnTag(logging.TagWebSocket, "session %s connection close failed: %v", s.id, err)
	}
}
