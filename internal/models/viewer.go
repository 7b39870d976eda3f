// internal/models/viewer.go
package models

// Tier is the viewer reputation bracket derived from lifetime wins.
type Tier string

const (
	TierNone     Tier = "none"
	TierRed      Tier = "red"
	TierGold     Tier = "gold"
	TierPlatinum Tier = "platinum"
)

// TierForWins maps a lifetime win count onto a tier: 0 → none, 1 → red,
// 2 → gold, 3 and above → platinum.
func TierForWins(wins int) Tier {
	switch {
	case wins >= 3:
		return TierPlatinum
	case wins == 2:
		return TierGold
	case wins == 1:
		return TierRed
	default:
		return TierNone
	}
}

// Viewer is the per-identity record of chat participants. Records are
// created lazily on first message or win and survive restarts when
// persistence is enabled.
type Viewer struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	WinsTotal   int    `json:"wins_total"`
	Tier        Tier   `json:"tier"`
}

// LeaderboardEntry is one row of the derived leaderboard broadcast.
type LeaderboardEntry struct {
	ViewerID    string `json:"viewer_id"`
	DisplayName string `json:"display_name"`
	Wins        int    `json:"wins"`
	Tier        Tier   `json:"tier"`
}
