// internal/handlers/hub.go
package handlers

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"guesstream/internal/game"
)

// sessionBuffer is how many events a slow overlay may lag before it is
// dropped rather than blocking the producers.
const sessionBuffer = 64

// OverlaySession wraps one connected overlay client. Events are queued on
// OutChan and drained by the session's write pump, so producers never block
// on the network.
type OverlaySession struct {
	ID      uuid.UUID
	OutChan chan game.Event
	Cancel  context.CancelFunc
}

// Hub tracks the currently connected overlay sessions and delivers every
// game event to all of them, in production order. Sessions are transient;
// nothing here persists.
type Hub struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*OverlaySession
	logger   *logrus.Logger
}

func NewHub(logger *logrus.Logger) *Hub {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Hub{
		sessions: make(map[uuid.UUID]*OverlaySession),
		logger:   logger,
	}
}

// Broadcast copies the event into every session's buffer. Intended as the
// game's BroadcastFn: it is called with the game lock held and must not do
// I/O. A session whose buffer is full is evicted instead of blocking the
// rest of the fan-out.
func (h *Hub) Broadcast(ev game.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, sess := range h.sessions {
		select {
		case sess.OutChan <- ev:
		default:
			h.logger.Warnf("overlay session %s lagging, dropping it", id)
			h.dropLocked(id)
		}
	}
}

// addWithWelcome registers the session and queues its snapshot handshake
// atomically with respect to Broadcast, so the welcome event is always the
// first thing the session sees.
func (h *Hub) addWithWelcome(sess *OverlaySession, welcome game.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.sessions[sess.ID] = sess
	sess.OutChan <- welcome
}

// enqueue delivers one event to a single session if it is still registered.
// Dropped silently when the buffer is full; the laggard eviction in
// Broadcast handles persistent backpressure.
func (h *Hub) enqueue(id uuid.UUID, ev game.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if sess, ok := h.sessions[id]; ok {
		select {
		case sess.OutChan <- ev:
		default:
		}
	}
}

// Remove unregisters a session, closing its buffer.
func (h *Hub) Remove(id uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(id)
}

func (h *Hub) dropLocked(id uuid.UUID) {
	if sess, ok := h.sessions[id]; ok {
		delete(h.sessions, id)
		close(sess.OutChan)
		if sess.Cancel != nil {
			sess.Cancel()
		}
	}
}

// Count reports the number of connected overlay sessions.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}
