// internal/handlers/overlay_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"guesstream/internal/game"
	"guesstream/internal/middleware"
)

// OverlayWSHandler upgrades the HTTP connection for an overlay client,
// performs the snapshot handshake, and keeps pumping broadcast events until
// the client goes away.
func OverlayWSHandler(logger *logrus.Logger, hub *Hub, g *game.Game) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: []string{"*"}, // overlays load from OBS browser sources
		})
		if err != nil {
			logger.Warnf("overlay websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler exit")

		id, _ := uuid.NewV7()
		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		sess := &OverlaySession{
			ID:      id,
			OutChan: make(chan game.Event, sessionBuffer),
			Cancel:  cancel,
		}

		// Catch-up handshake: a client joining mid-round renders correctly
		// without waiting for the next event.
		welcome := game.Event{Type: game.EventWelcome, Payload: g.Snapshot()}
		hub.addWithWelcome(sess, welcome)
		middleware.LogWebSocketConnect(logger, r.RemoteAddr, r.URL.Path)

		go writePump(ctx, c, sess, logger)

		readErr := readPump(ctx, c, hub, id)

		hub.Remove(id)
		middleware.LogWebSocketDisconnect(logger, r.RemoteAddr, r.URL.Path, readErr)
		c.Close(websocket.StatusNormalClosure, "bye")
	}
}

// writePump drains the session buffer onto the wire. It is the only
// goroutine that writes to the connection; exits when the hub closes the
// channel or a write fails.
func writePump(ctx context.Context, c *websocket.Conn, sess *OverlaySession, logger *logrus.Logger) {
	for ev := range sess.OutChan {
		data, err := json.Marshal(ev)
		if err != nil {
			logger.Errorf("failed to marshal %s event: %v", ev.Type, err)
			continue
		}

		writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = c.Write(writeCtx, websocket.MessageText, data)
		cancel()
		if err != nil {
			return
		}
	}
}

// readPump consumes client frames. Overlays only ever send pings, answered
// via the session buffer so writePump stays the sole writer; anything else
// is ignored. Returns when the connection drops.
func readPump(ctx context.Context, c *websocket.Conn, hub *Hub, id uuid.UUID) error {
	for {
		msgType, data, err := c.Read(ctx)
		if err != nil {
			if ctx.Err() != nil || websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				return nil
			}
			return err
		}
		if msgType != websocket.MessageText {
			continue
		}

		var msg struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		if msg.Type == "ping" {
			hub.enqueue(id, game.Event{Type: game.EventPong})
		}
	}
}
