// internal/chatsource/relay.go
package chatsource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"
)

// relayFrame is the wire shape the chat relay emits, one JSON text message
// per event.
type relayFrame struct {
	Type        string `json:"type"` // chat, connected, stream_end
	ViewerID    string `json:"viewer_id,omitempty"`
	Nickname    string `json:"nickname,omitempty"`
	Text        string `json:"text,omitempty"`
	TimestampMs int64  `json:"timestamp_ms,omitempty"`
	Room        string `json:"room,omitempty"`
	ViewerCount int    `json:"viewer_count,omitempty"`
}

// RelaySource consumes chat events from a relay service over a websocket.
// There are no automatic retries: a dropped session surfaces through
// OnError/OnDisconnected and the admin reconnects manually.
type RelaySource struct {
	baseURL  string
	logger   *logrus.Logger
	handlers Handlers

	mu        sync.Mutex
	conn      *websocket.Conn
	cancel    context.CancelFunc
	connected bool
}

// NewRelaySource builds a source pointed at the relay's websocket endpoint,
// e.g. ws://localhost:9100/chat.
func NewRelaySource(baseURL string, logger *logrus.Logger, handlers Handlers) *RelaySource {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &RelaySource{
		baseURL:  baseURL,
		logger:   logger,
		handlers: handlers,
	}
}

// Connect dials the relay for the given room and starts the read loop.
// The dial waits (bounded) for the relay to answer; everything after that
// is asynchronous.
func (s *RelaySource) Connect(ctx context.Context, room string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.connected {
		return errors.New("already connected to a room")
	}

	target, err := url.Parse(s.baseURL)
	if err != nil {
		return fmt.Errorf("invalid relay url %q: %w", s.baseURL, err)
	}
	q := target.Query()
	q.Set("room", room)
	target.RawQuery = q.Encode()

	dialCtx, cancelDial := context.WithTimeout(ctx, 10*time.Second)
	defer cancelDial()

	conn, _, err := websocket.Dial(dialCtx, target.String(), nil)
	if err != nil {
		return fmt.Errorf("dial chat relay: %w", err)
	}
	// Chat bursts can be large; don't let the default cap kill the session.
	conn.SetReadLimit(1 << 20)

	readCtx, cancel := context.WithCancel(context.Background())
	s.conn = conn
	s.cancel = cancel
	s.connected = true

	s.logger.WithField("room", room).Info("chat relay session opened")

	go s.readLoop(readCtx, conn)

	return nil
}

// Disconnect closes the live session. Safe to call repeatedly.
func (s *RelaySource) Disconnect() {
	s.mu.Lock()
	conn := s.conn
	cancel := s.cancel
	s.conn = nil
	s.cancel = nil
	wasConnected := s.connected
	s.connected = false
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		conn.Close(websocket.StatusNormalClosure, "disconnect requested")
	}
	if wasConnected && s.handlers.OnDisconnected != nil {
		s.handlers.OnDisconnected()
	}
}

// Connected reports whether a session is live.
func (s *RelaySource) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *RelaySource) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		msgType, data, err := conn.Read(ctx)
		if err != nil {
			s.handleReadExit(ctx, err)
			return
		}
		if msgType != websocket.MessageText {
			continue
		}

		var frame relayFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			s.logger.Warnf("chat relay sent invalid JSON: %v", err)
			continue
		}

		s.dispatch(frame)
	}
}

func (s *RelaySource) dispatch(frame relayFrame) {
	switch frame.Type {
	case "chat":
		if s.handlers.OnChat != nil {
			ts := time.Now()
			if frame.TimestampMs > 0 {
				ts = time.UnixMilli(frame.TimestampMs)
			}
			s.handlers.OnChat(ChatEvent{
				ViewerID:  frame.ViewerID,
				Nickname:  frame.Nickname,
				Text:      frame.Text,
				Timestamp: ts,
			})
		}
	case "connected":
		if s.handlers.OnConnected != nil {
			s.handlers.OnConnected(ConnectedEvent{
				Room:        frame.Room,
				ViewerCount: frame.ViewerCount,
			})
		}
	case "stream_end":
		if s.handlers.OnStreamEnd != nil {
			s.handlers.OnStreamEnd()
		}
	default:
		s.logger.Debugf("ignoring unknown relay frame type %q", frame.Type)
	}
}

// handleReadExit classifies the read loop's exit: a requested disconnect
// already fired OnDisconnected, everything else is an asynchronous failure.
func (s *RelaySource) handleReadExit(ctx context.Context, err error) {
	if ctx.Err() != nil {
		return
	}

	s.mu.Lock()
	wasConnected := s.connected
	s.connected = false
	s.conn = nil
	s.cancel = nil
	s.mu.Unlock()

	if !wasConnected {
		return
	}

	status := websocket.CloseStatus(err)
	if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway {
		if s.handlers.OnError != nil {
			s.handlers.OnError(err)
		}
	}
	if s.handlers.OnDisconnected != nil {
		s.handlers.OnDisconnected()
	}
}
