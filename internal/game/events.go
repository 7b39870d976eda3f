// internal/game/events.go
package game

import (
	"guesstream/internal/models"
)

// EventType is an enum-like type for events fanned out to overlay sessions.
type EventType string

const (
	EventWelcome        EventType = "welcome"         // full snapshot handshake on connect
	EventRoundStarted   EventType = "round_started"   // new secret set
	EventRoundReset     EventType = "round_reset"     // round discarded
	EventReadingStarted EventType = "reading_started" // chat judging resumed
	EventReadingStopped EventType = "reading_stopped" // chat judging paused
	EventTimerUpdated   EventType = "timer_updated"   // remaining time changed by admin or boost
	EventMaskUpdate     EventType = "mask_update"     // reveal state changed
	EventChat           EventType = "chat"            // chat echo with judged correctness + tier
	EventWinner         EventType = "winner"          // correct guess announcement
	EventHighlightEnd   EventType = "highlight_end"   // winner celebration window expired
	EventTierUpdate     EventType = "tier_update"     // a viewer crossed a tier threshold
	EventModeChanged    EventType = "mode_changed"    // classic/rapid switch
	EventPollStart      EventType = "poll_start"
	EventPollUpdate     EventType = "poll_update" // tally changed
	EventPollEnd        EventType = "poll_end"    // tallies finalized + winner
	EventLeaderboard    EventType = "leaderboard" // recomputed standings
	EventBoost          EventType = "boost"       // monetization-triggered primitive fired
	EventSystem         EventType = "system"      // chat-source connection status
	EventPong           EventType = "pong"        // keepalive reply to an overlay ping
)

// Event is the wire shape delivered identically to every connected overlay
// session, in the order the orchestrator produced it.
type Event struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload,omitempty"`
}

// ChatEcho is the payload of EventChat.
type ChatEcho struct {
	ViewerID string      `json:"viewer_id"`
	Nickname string      `json:"nickname"`
	Text     string      `json:"text"`
	Correct  bool        `json:"correct"`
	Tier     models.Tier `json:"tier"`
}

// WinnerInfo is the payload of EventWinner and the winner field of Snapshot.
type WinnerInfo struct {
	ViewerID        string `json:"viewer_id"`
	Nickname        string `json:"nickname"`
	Guess           string `json:"guess"`
	At              int64  `json:"at"` // unix millis
	HighlightMs     int64  `json:"highlight_ms"`
	HighlightActive bool   `json:"highlight_active"`
}

// BoostNotice is the payload of EventBoost.
type BoostNotice struct {
	Kind    string `json:"kind"`
	Amount  int64  `json:"amount,omitempty"`
	Message string `json:"message,omitempty"`
}

// SystemNotice is the payload of EventSystem.
type SystemNotice struct {
	Status      string `json:"status"` // connected, disconnected, stream_end, error
	Room        string `json:"room,omitempty"`
	ViewerCount int    `json:"viewer_count,omitempty"`
	Message     string `json:"message,omitempty"`
}

// RoundStatus is the payload of round lifecycle and timer events.
type RoundStatus struct {
	Mask        string `json:"mask"`
	RemainingMs int64  `json:"remaining_ms"`
	Mode        Mode   `json:"mode"`
	Reading     bool   `json:"reading"`
}

// Snapshot is the point-in-time state shape shared by the welcome handshake
// and the admin state query.
type Snapshot struct {
	Connected    bool                      `json:"connected"`
	Room         string                    `json:"room,omitempty"`
	ViewerCount  int                       `json:"viewer_count"`
	SecretSet    bool                      `json:"secret_set"`
	Mask         string                    `json:"mask"`
	RemainingMs  int64                     `json:"remaining_ms"`
	Reading      bool                      `json:"reading"`
	Mode         Mode                      `json:"mode"`
	HintsEnabled bool                      `json:"hints_enabled"`
	Winner       *WinnerInfo               `json:"winner,omitempty"`
	Poll         *PollSnapshot             `json:"poll,omitempty"`
	Leaderboard  []models.LeaderboardEntry `json:"leaderboard"`
}
