// internal/handlers/api_server.go
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"

	"guesstream/internal/chatsource"
	"guesstream/internal/game"
)

// AdminServer exposes the control surface the admin panel talks to: JSON
// bodies in, JSON out, non-2xx with {"error": msg} on failure.
type AdminServer struct {
	Logger *logrus.Logger
	Game   *game.Game
	Source chatsource.Source
	Hub    *Hub
}

func NewAdminServer(logger *logrus.Logger, g *game.Game, source chatsource.Source, hub *Hub) *AdminServer {
	return &AdminServer{
		Logger: logger,
		Game:   g,
		Source: source,
		Hub:    hub,
	}
}

// Register attaches every admin route plus the overlay websocket to mux.
func (s *AdminServer) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/connect", s.handleConnect)
	mux.HandleFunc("POST /api/disconnect", s.handleDisconnect)
	mux.HandleFunc("POST /api/word", s.handleSetWord)
	mux.HandleFunc("POST /api/reset", s.handleReset)
	mux.HandleFunc("POST /api/reading/start", s.handleReadingStart)
	mux.HandleFunc("POST /api/reading/stop", s.handleReadingStop)
	mux.HandleFunc("POST /api/timer/extend", s.handleTimerExtend)
	mux.HandleFunc("POST /api/timer/set", s.handleTimerSet)
	mux.HandleFunc("POST /api/reveal/all", s.handleRevealAll)
	mux.HandleFunc("POST /api/reveal", s.handleRevealPositions)
	mux.HandleFunc("POST /api/mode", s.handleSetMode)
	mux.HandleFunc("POST /api/hints", s.handleSetHints)
	mux.HandleFunc("POST /api/poll/start", s.handlePollStart)
	mux.HandleFunc("POST /api/poll/stop", s.handlePollStop)
	mux.HandleFunc("POST /api/viewers/reset", s.handleViewersReset)
	mux.HandleFunc("POST /api/boost", s.handleBoost)
	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("GET /overlay/ws", OverlayWSHandler(s.Logger, s.Hub, s.Game))
	mux.HandleFunc("GET /healthz", s.handleHealthz)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeOK(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// writeError maps the game's error taxonomy onto status codes: malformed
// input and unmet preconditions are the caller's fault (400), everything
// else is an upstream failure (502).
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	if game.IsInvalidInput(err) || game.IsInvalidState(err) {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// decodeBody parses the JSON request body into v. An empty body decodes to
// the zero value so bodyless actions stay simple.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad request payload"})
		return false
	}
	return true
}

func (s *AdminServer) handleConnect(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Room string `json:"room"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Room == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "no room provided"})
		return
	}
	if s.Source.Connected() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "already connected to a room"})
		return
	}

	if err := s.Source.Connect(r.Context(), req.Room); err != nil {
		s.Logger.Warnf("connect to room %q failed: %v", req.Room, err)
		writeError(w, err)
		return
	}
	writeOK(w)
}

func (s *AdminServer) handleDisconnect(w http.ResponseWriter, _ *http.Request) {
	s.Source.Disconnect()
	writeOK(w)
}

func (s *AdminServer) handleSetWord(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Word string `json:"word"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.Game.SetSecret(req.Word); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w)
}

func (s *AdminServer) handleReset(w http.ResponseWriter, _ *http.Request) {
	s.Game.Reset()
	writeOK(w)
}

func (s *AdminServer) handleReadingStart(w http.ResponseWriter, _ *http.Request) {
	if err := s.Game.StartReading(); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w)
}

func (s *AdminServer) handleReadingStop(w http.ResponseWriter, _ *http.Request) {
	if err := s.Game.StopReading(); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w)
}

// timerRequest accepts either milliseconds or whole seconds; the admin UI
// sends whichever field its control uses.
type timerRequest struct {
	Ms      *int64 `json:"ms"`
	Seconds *int64 `json:"seconds"`
}

func (t timerRequest) millis() (int64, bool) {
	if t.Ms != nil {
		return *t.Ms, true
	}
	if t.Seconds != nil {
		return *t.Seconds * 1000, true
	}
	return 0, false
}

func (s *AdminServer) handleTimerExtend(w http.ResponseWriter, r *http.Request) {
	var req timerRequest
	if !decodeBody(w, r, &req) {
		return
	}
	ms, ok := req.millis()
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "no duration provided"})
		return
	}
	if err := s.Game.ExtendTimer(ms); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w)
}

func (s *AdminServer) handleTimerSet(w http.ResponseWriter, r *http.Request) {
	var req timerRequest
	if !decodeBody(w, r, &req) {
		return
	}
	ms, ok := req.millis()
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "no duration provided"})
		return
	}
	if err := s.Game.SetRemaining(ms); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w)
}

func (s *AdminServer) handleRevealAll(w http.ResponseWriter, _ *http.Request) {
	if err := s.Game.RevealAll(); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w)
}

func (s *AdminServer) handleRevealPositions(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Positions string `json:"positions"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.Game.RevealPositions(req.Positions); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w)
}

func (s *AdminServer) handleSetMode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mode string `json:"mode"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.Game.SetMode(req.Mode); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w)
}

func (s *AdminServer) handleSetHints(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	s.Game.SetHints(req.Enabled)
	writeOK(w)
}

func (s *AdminServer) handlePollStart(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Question   string   `json:"question"`
		Options    []string `json:"options"`
		DurationMs int64    `json:"durationMs"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.Game.StartPoll(req.Question, req.Options, req.DurationMs); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w)
}

func (s *AdminServer) handlePollStop(w http.ResponseWriter, _ *http.Request) {
	if err := s.Game.StopPoll(); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w)
}

func (s *AdminServer) handleViewersReset(w http.ResponseWriter, _ *http.Request) {
	s.Game.ResetViewers()
	writeOK(w)
}

func (s *AdminServer) handleBoost(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Kind    string `json:"kind"`
		Amount  int64  `json:"amount"`
		Message string `json:"message"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.Game.Boost(req.Kind, req.Amount, req.Message); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w)
}

func (s *AdminServer) handleState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.Game.Snapshot())
}

func (s *AdminServer) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok\n"))
}
