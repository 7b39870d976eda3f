// internal/chatsource/events.go
package chatsource

import (
	"context"
	"time"
)

// ChatEvent is one viewer message from the chat platform.
type ChatEvent struct {
	ViewerID  string
	Nickname  string
	Text      string
	Timestamp time.Time
}

// ConnectedEvent reports a successfully opened room session.
type ConnectedEvent struct {
	Room        string
	ViewerCount int
}

// Handlers receives the asynchronous event stream. Any nil callback is
// skipped. Callbacks run on the source's read goroutine, one at a time.
type Handlers struct {
	OnChat         func(ChatEvent)
	OnConnected    func(ConnectedEvent)
	OnDisconnected func()
	OnStreamEnd    func()
	OnError        func(err error)
}

// Source is the chat-ingestion collaborator: it owns the platform session
// and emits events through Handlers. Implementations must be safe to call
// from HTTP handlers.
type Source interface {
	// Connect opens a session for the given room. Fails if already connected.
	Connect(ctx context.Context, room string) error
	// Disconnect closes the session, if any. Idempotent.
	Disconnect()
	// Connected reports whether a session is live.
	Connected() bool
}
