// internal/game/source_status.go
package game

// Chat-source status transitions arrive asynchronously from the ingestion
// client and are reported to overlays as system events, never as admin
// request failures.

// HandleConnected records a live chat-source session.
func (g *Game) HandleConnected(room string, viewerCount int) {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	g.connected = true
	g.room = room
	g.viewerCount = viewerCount
	g.fire(EventSystem, SystemNotice{Status: "connected", Room: room, ViewerCount: viewerCount})
	g.logger.WithField("room", room).Info("chat source connected")
}

// HandleDisconnected records a closed chat-source session.
func (g *Game) HandleDisconnected() {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	g.connected = false
	g.viewerCount = 0
	g.fire(EventSystem, SystemNotice{Status: "disconnected", Room: g.room})
	g.logger.Info("chat source disconnected")
}

// HandleStreamEnd reports that the monitored stream finished.
func (g *Game) HandleStreamEnd() {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	g.connected = false
	g.viewerCount = 0
	g.fire(EventSystem, SystemNotice{Status: "stream_end", Room: g.room})
	g.logger.Info("stream ended")
}

// HandleSourceError reports an asynchronous ingestion failure. The process
// keeps running; the admin re-connects manually if needed.
func (g *Game) HandleSourceError(message string) {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	g.fire(EventSystem, SystemNotice{Status: "error", Room: g.room, Message: message})
	g.logger.Warnf("chat source error: %s", message)
}
