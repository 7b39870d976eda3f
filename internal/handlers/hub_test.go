// internal/handlers/hub_test.go
package handlers

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"guesstream/internal/game"
)

func newTestHub() *Hub {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewHub(logger)
}

func newTestSession() *OverlaySession {
	_, cancel := context.WithCancel(context.Background())
	id, _ := uuid.NewV7()
	return &OverlaySession{
		ID:      id,
		OutChan: make(chan game.Event, sessionBuffer),
		Cancel:  cancel,
	}
}

func TestHubBroadcastReachesAllSessions(t *testing.T) {
	h := newTestHub()
	a := newTestSession()
	b := newTestSession()
	h.addWithWelcome(a, game.Event{Type: game.EventWelcome})
	h.addWithWelcome(b, game.Event{Type: game.EventWelcome})
	require.Equal(t, 2, h.Count())

	h.Broadcast(game.Event{Type: game.EventMaskUpdate})

	for _, sess := range []*OverlaySession{a, b} {
		require.Equal(t, game.EventWelcome, (<-sess.OutChan).Type)
		require.Equal(t, game.EventMaskUpdate, (<-sess.OutChan).Type)
	}
}

func TestHubWelcomeIsFirstEvent(t *testing.T) {
	h := newTestHub()
	a := newTestSession()
	h.addWithWelcome(a, game.Event{Type: game.EventWelcome})
	h.Broadcast(game.Event{Type: game.EventChat})
	h.Broadcast(game.Event{Type: game.EventWinner})

	require.Equal(t, game.EventWelcome, (<-a.OutChan).Type)
	require.Equal(t, game.EventChat, (<-a.OutChan).Type)
	require.Equal(t, game.EventWinner, (<-a.OutChan).Type)
}

func TestHubEvictsLaggard(t *testing.T) {
	h := newTestHub()
	slow := newTestSession()
	fast := newTestSession()
	h.addWithWelcome(slow, game.Event{Type: game.EventWelcome})
	h.addWithWelcome(fast, game.Event{Type: game.EventWelcome})

	// Fill the slow session's buffer without draining it; the welcome
	// already occupies one slot.
	for i := 0; i < sessionBuffer; i++ {
		h.Broadcast(game.Event{Type: game.EventChat})
		for len(fast.OutChan) > 0 {
			<-fast.OutChan
		}
	}
	require.Equal(t, 1, h.Count())

	// The evicted channel is closed after its buffered backlog.
	drained := 0
	for range slow.OutChan {
		drained++
	}
	assert.Equal(t, sessionBuffer, drained)

	// The healthy session keeps receiving.
	h.Broadcast(game.Event{Type: game.EventLeaderboard})
	require.Equal(t, game.EventLeaderboard, (<-fast.OutChan).Type)
}

func TestHubRemoveClosesSession(t *testing.T) {
	h := newTestHub()
	a := newTestSession()
	h.addWithWelcome(a, game.Event{Type: game.EventWelcome})

	h.Remove(a.ID)
	require.Equal(t, 0, h.Count())

	<-a.OutChan // welcome
	_, open := <-a.OutChan
	assert.False(t, open)

	// Removing twice is a no-op.
	h.Remove(a.ID)
}

func TestHubEnqueue(t *testing.T) {
	h := newTestHub()
	a := newTestSession()
	h.addWithWelcome(a, game.Event{Type: game.EventWelcome})

	h.enqueue(a.ID, game.Event{Type: game.EventPong})
	<-a.OutChan // welcome
	require.Equal(t, game.EventPong, (<-a.OutChan).Type)

	// Unknown session ids are ignored.
	stray, _ := uuid.NewV7()
	h.enqueue(stray, game.Event{Type: game.EventPong})

	// Enqueue after removal must not panic.
	h.Remove(a.ID)
	h.enqueue(a.ID, game.Event{Type: game.EventPong})
}
