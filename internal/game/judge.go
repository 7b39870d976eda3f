// internal/game/judge.go
package game

import (
	"time"
	"unicode"

	"guesstream/internal/textnorm"
)

// ChatMessage is one inbound chat event as seen by the judge.
type ChatMessage struct {
	ViewerID string
	Nickname string
	Text     string
	At       time.Time
}

// HandleChat runs the full judging pipeline for one chat message, in fixed
// order: rate limit, normalize, judge, poll side effect, rapid-mode
// position locks, viewer bookkeeping, chat echo, and win handling. A
// message dropped by the rate limiter has no side effects at all.
func (g *Game) HandleChat(msg ChatMessage) {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	if msg.At.IsZero() {
		msg.At = g.now()
	}

	// 1. Rate limit: monotonic acceptance per viewer.
	if last, ok := g.lastAccepted[msg.ViewerID]; ok && msg.At.Sub(last) < ChatCooldown {
		return
	}
	g.lastAccepted[msg.ViewerID] = msg.At

	// 2. Normalize once; judging and poll voting share the canonical form.
	normalized := textnorm.Normalize(msg.Text)

	// 3. Judge. The highlight window suppresses judging itself, not just the
	// announcement: guesses during a celebration are always incorrect.
	correct := g.reading &&
		g.secretNorm != "" &&
		!g.highlightActiveLocked() &&
		normalized == g.secretNorm

	// 4. Poll side effect, independent of the judging outcome.
	if g.poll != nil && g.poll.castVote(msg.ViewerID, normalized) {
		g.fire(EventPollUpdate, g.poll.snapshot())
	}

	// 5. Rapid mode: incorrect guesses lock in correctly positioned
	// characters, compared over the normalized forms up to the shorter one.
	if g.mode == ModeRapid && g.reading && g.secretNorm != "" && !correct {
		if g.lockMatchingPositionsLocked(normalized) {
			g.fire(EventMaskUpdate, g.roundStatusLocked())
		}
	}

	// 6. Viewer record lookup/creation, display name refresh.
	viewer := g.viewers.Touch(msg.ViewerID, msg.Nickname)

	// 7. Chat echo with judged correctness and tier, win or not.
	g.fire(EventChat, ChatEcho{
		ViewerID: msg.ViewerID,
		Nickname: msg.Nickname,
		Text:     msg.Text,
		Correct:  correct,
		Tier:     viewer.Tier,
	})

	// 8. Win handling.
	if correct {
		g.handleWinLocked(msg)
	}
}

// lockMatchingPositionsLocked reveals every secret position whose normalized
// form matches the guess at the corresponding normalized position, reporting
// whether anything new was uncovered. Raw positions are walked alongside a
// normalized cursor so characters the normalizer drops cannot shift the
// comparison against the mask.
func (g *Game) lockMatchingPositionsLocked(guessNorm string) bool {
	guess := []rune(guessNorm)
	changed := false
	ni := 0
	for ri, r := range g.reveal.chars {
		var nr []rune
		if unicode.IsSpace(r) {
			nr = []rune{r}
		} else {
			nr = []rune(textnorm.Normalize(string(r)))
		}
		if len(nr) == 0 {
			continue
		}
		if ni+len(nr) <= len(guess) && string(guess[ni:ni+len(nr)]) == string(nr) && !g.reveal.shown[ri] {
			g.reveal.revealAt(ri)
			changed = true
		}
		ni += len(nr)
	}
	return changed
}

// handleWinLocked records the winner, uncovers the whole word, advances the
// viewer's tier, and emits winner, tier, mask and leaderboard broadcasts.
func (g *Game) handleWinLocked(msg ChatMessage) {
	g.clearWinnerLocked()
	g.winner = &winnerRecord{
		viewerID: msg.ViewerID,
		nickname: msg.Nickname,
		guess:    msg.Text,
		at:       msg.At,
	}

	// A correct guess overrides any partial rapid-mode reveals.
	g.reveal.revealAll()

	viewer, tierChanged := g.viewers.RecordWin(msg.ViewerID, msg.Nickname)

	g.fire(EventWinner, g.winnerInfoLocked())
	g.fire(EventMaskUpdate, g.roundStatusLocked())
	if tierChanged {
		g.fire(EventTierUpdate, viewer)
	}
	g.broadcastLeaderboardLocked()

	g.scheduleHighlightExpiryLocked(msg.At)

	g.logger.WithField("viewer", msg.ViewerID).Info("correct guess")
}

// scheduleHighlightExpiryLocked arms the sweep that ends the celebration
// window. If a newer winner replaced this one before the timer fires, the
// timestamp check turns the firing into a no-op.
func (g *Game) scheduleHighlightExpiryLocked(wonAt time.Time) {
	g.highlightTimer = time.AfterFunc(HighlightWindow, func() {
		g.Mu.Lock()
		defer g.Mu.Unlock()

		if g.winner == nil || !g.winner.at.Equal(wonAt) {
			return
		}
		g.fire(EventHighlightEnd, g.winnerInfoLocked())
	})
}
