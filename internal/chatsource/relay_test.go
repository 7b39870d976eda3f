// internal/chatsource/relay_test.go
package chatsource

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder captures handler invocations for assertions.
type recorder struct {
	mu          sync.Mutex
	chats       []ChatEvent
	connects    []ConnectedEvent
	disconnects int
	streamEnds  int
	errs        []error
}

func (r *recorder) handlers() Handlers {
	return Handlers{
		OnChat: func(ev ChatEvent) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.chats = append(r.chats, ev)
		},
		OnConnected: func(ev ConnectedEvent) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.connects = append(r.connects, ev)
		},
		OnDisconnected: func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.disconnects++
		},
		OnStreamEnd: func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.streamEnds++
		},
		OnError: func(err error) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.errs = append(r.errs, err)
		},
	}
}

func (r *recorder) chatCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.chats)
}

func (r *recorder) disconnectCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.disconnects
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func TestDispatchChatFrame(t *testing.T) {
	rec := &recorder{}
	s := NewRelaySource("ws://example.invalid/chat", quietLogger(), rec.handlers())

	s.dispatch(relayFrame{
		Type:        "chat",
		ViewerID:    "v1",
		Nickname:    "alice",
		Text:        "pizza",
		TimestampMs: 1700000000123,
	})

	require.Len(t, rec.chats, 1)
	got := rec.chats[0]
	assert.Equal(t, "v1", got.ViewerID)
	assert.Equal(t, "alice", got.Nickname)
	assert.Equal(t, "pizza", got.Text)
	assert.Equal(t, time.UnixMilli(1700000000123), got.Timestamp)
}

func TestDispatchChatFrameWithoutTimestamp(t *testing.T) {
	rec := &recorder{}
	s := NewRelaySource("ws://example.invalid/chat", quietLogger(), rec.handlers())

	before := time.Now()
	s.dispatch(relayFrame{Type: "chat", ViewerID: "v1", Text: "hi"})

	require.Len(t, rec.chats, 1)
	assert.False(t, rec.chats[0].Timestamp.Before(before))
}

func TestDispatchStatusFrames(t *testing.T) {
	rec := &recorder{}
	s := NewRelaySource("ws://example.invalid/chat", quietLogger(), rec.handlers())

	s.dispatch(relayFrame{Type: "connected", Room: "streamer42", ViewerCount: 312})
	s.dispatch(relayFrame{Type: "stream_end"})
	s.dispatch(relayFrame{Type: "mystery"}) // ignored

	require.Len(t, rec.connects, 1)
	assert.Equal(t, "streamer42", rec.connects[0].Room)
	assert.Equal(t, 312, rec.connects[0].ViewerCount)
	assert.Equal(t, 1, rec.streamEnds)
	assert.Empty(t, rec.chats)
}

// fakeRelay upgrades incoming connections and plays back frames.
func fakeRelay(t *testing.T, frames []relayFrame, gotRoom *string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if gotRoom != nil {
			*gotRoom = r.URL.Query().Get("room")
		}
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close(websocket.StatusNormalClosure, "done")

		ctx := r.Context()
		for _, frame := range frames {
			data, err := json.Marshal(frame)
			if err != nil {
				return
			}
			if err := c.Write(ctx, websocket.MessageText, data); err != nil {
				return
			}
		}
		// Hold the session open until the client hangs up.
		c.Read(ctx)
	}))
}

func wsURL(ts *httptest.Server) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http")
}

func TestConnectReceivesFrames(t *testing.T) {
	var gotRoom string
	relay := fakeRelay(t, []relayFrame{
		{Type: "connected", Room: "streamer42", ViewerCount: 10},
		{Type: "chat", ViewerID: "v1", Nickname: "alice", Text: "pizza", TimestampMs: 1700000000123},
	}, &gotRoom)
	defer relay.Close()

	rec := &recorder{}
	s := NewRelaySource(wsURL(relay), quietLogger(), rec.handlers())

	require.NoError(t, s.Connect(context.Background(), "streamer42"))
	assert.True(t, s.Connected())

	require.Eventually(t, func() bool {
		return rec.chatCount() == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "streamer42", gotRoom)

	s.Disconnect()
	assert.False(t, s.Connected())
	assert.Equal(t, 1, rec.disconnectCount())

	// Second disconnect is a no-op.
	s.Disconnect()
	assert.Equal(t, 1, rec.disconnectCount())
}

func TestConnectRejectsDoubleConnect(t *testing.T) {
	relay := fakeRelay(t, nil, nil)
	defer relay.Close()

	s := NewRelaySource(wsURL(relay), quietLogger(), Handlers{})
	require.NoError(t, s.Connect(context.Background(), "a"))
	defer s.Disconnect()

	err := s.Connect(context.Background(), "b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already connected")
}

func TestConnectDialFailure(t *testing.T) {
	s := NewRelaySource("ws://127.0.0.1:1/chat", quietLogger(), Handlers{})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := s.Connect(ctx, "streamer42")
	require.Error(t, err)
	assert.False(t, s.Connected())
}

func TestServerDropFiresErrorThenDisconnect(t *testing.T) {
	relay := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		// Abnormal close: the relay process died mid-session.
		c.CloseNow()
	}))
	defer relay.Close()

	rec := &recorder{}
	s := NewRelaySource(wsURL(relay), quietLogger(), rec.handlers())
	require.NoError(t, s.Connect(context.Background(), "streamer42"))

	require.Eventually(t, func() bool {
		return rec.disconnectCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.NotEmpty(t, rec.errs)
	assert.False(t, s.Connected())
}
