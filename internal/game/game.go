// internal/game/game.go
package game

import (
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"guesstream/internal/store"
	"guesstream/internal/textnorm"
)

const (
	// ChatCooldown is the minimum spacing between two accepted messages
	// from the same viewer. Anything faster is dropped outright.
	ChatCooldown = 700 * time.Millisecond

	// HighlightWindow is how long a winner celebration suppresses judging.
	HighlightWindow = 60 * time.Second

	// DefaultRoundDuration is the countdown applied when a secret is set.
	DefaultRoundDuration = 20 * time.Second

	// DefaultHintInterval is the spacing of automatic letter reveals when
	// hint rotation is enabled.
	DefaultHintInterval = 30 * time.Second

	// DefaultLeaderboardSize caps the broadcast standings.
	DefaultLeaderboardSize = 10
)

// Mode selects the judging behavior for incorrect guesses.
type Mode string

const (
	// ModeClassic only rewards exact full-phrase matches.
	ModeClassic Mode = "classic"
	// ModeRapid additionally reveals correctly positioned characters of
	// every incorrect guess.
	ModeRapid Mode = "rapid"
)

type winnerRecord struct {
	viewerID string
	nickname string
	guess    string
	at       time.Time
}

// Game holds the entire round state in memory: the secret, reveal flags,
// clock, mode, winner, live poll, rate-limit ledger and chat-source
// presence. Every mutation happens under Mu, so each admin request, chat
// callback and timer firing sees a consistent snapshot across all of it —
// the moral equivalent of a single-threaded run-to-completion loop.
type Game struct {
	Mu sync.Mutex

	logger  *logrus.Logger
	viewers *store.ViewerStore
	now     func() time.Time

	// BroadcastFn delivers events to all overlay sessions. Injected by the
	// fan-out layer; nil means no delivery (tests, early startup).
	BroadcastFn func(ev Event)

	RoundDuration   time.Duration
	HintInterval    time.Duration
	LeaderboardSize int

	secretRaw  string
	secretNorm string
	reveal     *revealState
	clock      roundClock
	reading    bool
	mode       Mode

	// roundGen invalidates scheduled hint rotations from earlier rounds.
	roundGen uint64

	winner         *winnerRecord
	highlightTimer *time.Timer

	hintsEnabled bool
	hintTimer    *time.Timer

	poll    *Poll
	pollGen uint64

	lastAccepted map[string]time.Time

	connected   bool
	room        string
	viewerCount int
}

// NewGame builds an idle game with default settings.
func NewGame(logger *logrus.Logger, viewers *store.ViewerStore) *Game {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Game{
		logger:          logger,
		viewers:         viewers,
		now:             time.Now,
		RoundDuration:   DefaultRoundDuration,
		HintInterval:    DefaultHintInterval,
		LeaderboardSize: DefaultLeaderboardSize,
		mode:            ModeClassic,
		lastAccepted:    make(map[string]time.Time),
	}
}

// fire hands an event to the fan-out layer. Called with Mu held; the
// injected BroadcastFn must only copy the event into per-session buffers.
func (g *Game) fire(t EventType, payload any) {
	if g.BroadcastFn != nil {
		g.BroadcastFn(Event{Type: t, Payload: payload})
	}
}

// SetSecret starts a new round: fresh secret, all-hidden mask, restarted
// clock, reading on, prior winner cleared.
func (g *Game) SetSecret(word string) error {
	raw := strings.TrimSpace(word)
	if raw == "" {
		return invalidInput("no word provided")
	}
	norm := textnorm.Normalize(raw)
	if norm == "" {
		return invalidInput("word %q is empty after normalization", word)
	}

	g.Mu.Lock()
	defer g.Mu.Unlock()

	g.secretRaw = raw
	g.secretNorm = norm
	g.reveal = newRevealState(raw)
	g.clock.start(g.RoundDuration, g.now())
	g.reading = true
	g.clearWinnerLocked()
	g.roundGen++

	if g.hintsEnabled {
		g.scheduleHintLocked()
	}

	g.fire(EventRoundStarted, g.roundStatusLocked())
	g.logger.WithField("length", g.reveal.length()).Info("round started")

	return nil
}

// Reset returns the game to idle, discarding secret, mask, timer and winner.
func (g *Game) Reset() {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	g.secretRaw = ""
	g.secretNorm = ""
	g.reveal = nil
	g.clock.stop()
	g.reading = false
	g.clearWinnerLocked()
	g.roundGen++

	g.fire(EventRoundReset, g.roundStatusLocked())
	g.logger.Info("round reset")
}

// StartReading resumes judging of incoming chat against the secret.
func (g *Game) StartReading() error {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	if g.secretRaw == "" {
		return invalidState("no active round")
	}
	g.reading = true
	g.fire(EventReadingStarted, g.roundStatusLocked())
	return nil
}

// StopReading pauses judging without discarding the round.
func (g *Game) StopReading() error {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	if g.secretRaw == "" {
		return invalidState("no active round")
	}
	g.reading = false
	g.fire(EventReadingStopped, g.roundStatusLocked())
	return nil
}

// ExtendTimer adds delta to the round's total duration.
func (g *Game) ExtendTimer(deltaMs int64) error {
	if deltaMs <= 0 {
		return invalidInput("extension must be positive, got %d", deltaMs)
	}

	g.Mu.Lock()
	defer g.Mu.Unlock()

	if !g.clock.active {
		return invalidState("no active round")
	}
	g.clock.extend(time.Duration(deltaMs) * time.Millisecond)
	g.fire(EventTimerUpdated, g.roundStatusLocked())
	return nil
}

// SetRemaining recomputes the total duration so exactly ms remains now.
func (g *Game) SetRemaining(ms int64) error {
	if ms < 0 {
		return invalidInput("remaining time must be >= 0, got %d", ms)
	}

	g.Mu.Lock()
	defer g.Mu.Unlock()

	if !g.clock.active {
		return invalidState("no active round")
	}
	g.clock.setRemaining(time.Duration(ms)*time.Millisecond, g.now())
	g.fire(EventTimerUpdated, g.roundStatusLocked())
	return nil
}

// Remaining reports the clamped remaining round time.
func (g *Game) Remaining() time.Duration {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	return g.clock.remaining(g.now())
}

// RevealAll uncovers the whole mask.
func (g *Game) RevealAll() error {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	if g.reveal == nil {
		return invalidState("no secret set")
	}
	g.reveal.revealAll()
	g.fire(EventMaskUpdate, g.roundStatusLocked())
	return nil
}

// RevealPositions uncovers the given one-based positions. The list may be
// comma, semicolon or space separated; malformed tokens are skipped.
func (g *Game) RevealPositions(list string) error {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	if g.reveal == nil {
		return invalidState("no secret set")
	}
	g.reveal.revealPositions(parsePositions(list))
	g.fire(EventMaskUpdate, g.roundStatusLocked())
	return nil
}

// SetMode switches the judging mode.
func (g *Game) SetMode(mode string) error {
	m := Mode(textnorm.Normalize(mode))
	if m != ModeClassic && m != ModeRapid {
		return invalidInput("unknown mode %q", mode)
	}

	g.Mu.Lock()
	defer g.Mu.Unlock()
	g.setModeLocked(m)
	return nil
}

func (g *Game) setModeLocked(m Mode) {
	if g.mode == m {
		return
	}
	g.mode = m
	g.fire(EventModeChanged, map[string]any{"mode": m})
	g.logger.WithField("mode", m).Info("mode changed")
}

// CurrentMode returns the current judging mode.
func (g *Game) CurrentMode() Mode {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	return g.mode
}

// SetHints toggles automatic hint rotation for the current and future rounds.
func (g *Game) SetHints(enabled bool) {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	g.hintsEnabled = enabled
	if enabled && g.reveal != nil {
		g.scheduleHintLocked()
	}
}

// scheduleHintLocked arms the next automatic reveal. The captured generation
// makes stale timers harmless: a reset or new secret bumps roundGen and the
// old firing finds nothing to do.
func (g *Game) scheduleHintLocked() {
	gen := g.roundGen
	if g.hintTimer != nil {
		g.hintTimer.Stop()
	}
	g.hintTimer = time.AfterFunc(g.HintInterval, func() {
		g.Mu.Lock()
		defer g.Mu.Unlock()

		if gen != g.roundGen || !g.hintsEnabled || g.reveal == nil {
			return
		}
		if g.reading && g.winner == nil && g.revealRandomLocked() {
			g.fire(EventMaskUpdate, g.roundStatusLocked())
		}
		g.scheduleHintLocked()
	})
}

// revealRandomLocked uncovers one random hidden position, reporting whether
// anything was still hidden.
func (g *Game) revealRandomLocked() bool {
	hidden := g.reveal.hiddenIndices()
	if len(hidden) == 0 {
		return false
	}
	g.reveal.revealAt(hidden[rand.Intn(len(hidden))])
	return true
}

// Boost kinds, triggered by monetization events relayed through the admin
// surface. Each invokes one of the reveal/timer primitives and emits a
// distinct notification.
const (
	BoostExtendTime   = "extend_time"
	BoostRevealLetter = "reveal_letter"
	BoostRevealWord   = "reveal_word"
	BoostPromptExtend = "prompt_extend"
)

// Boost applies a monetization-triggered shortcut.
func (g *Game) Boost(kind string, amountMs int64, message string) error {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	switch kind {
	case BoostExtendTime, BoostPromptExtend:
		if !g.clock.active {
			return invalidState("no active round")
		}
		if amountMs <= 0 {
			return invalidInput("boost amount must be positive, got %d", amountMs)
		}
		g.clock.extend(time.Duration(amountMs) * time.Millisecond)
		g.fire(EventTimerUpdated, g.roundStatusLocked())

	case BoostRevealLetter:
		if g.reveal == nil {
			return invalidState("no secret set")
		}
		if g.revealRandomLocked() {
			g.fire(EventMaskUpdate, g.roundStatusLocked())
		}

	case BoostRevealWord:
		if g.reveal == nil {
			return invalidState("no secret set")
		}
		g.reveal.revealAll()
		g.fire(EventMaskUpdate, g.roundStatusLocked())

	default:
		return invalidInput("unknown boost kind %q", kind)
	}

	g.fire(EventBoost, BoostNotice{Kind: kind, Amount: amountMs, Message: message})
	g.logger.WithFields(logrus.Fields{"kind": kind, "amount": amountMs}).Info("boost applied")

	return nil
}

// ResetViewers wipes the viewer store and pushes the now-empty standings.
func (g *Game) ResetViewers() {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	g.viewers.ResetAll()
	g.broadcastLeaderboardLocked()
	g.logger.Info("viewer records reset")
}

func (g *Game) clearWinnerLocked() {
	g.winner = nil
	if g.highlightTimer != nil {
		g.highlightTimer.Stop()
		g.highlightTimer = nil
	}
}

func (g *Game) highlightActiveLocked() bool {
	return g.winner != nil && g.now().Sub(g.winner.at) < HighlightWindow
}

func (g *Game) winnerInfoLocked() *WinnerInfo {
	if g.winner == nil {
		return nil
	}
	return &WinnerInfo{
		ViewerID:        g.winner.viewerID,
		Nickname:        g.winner.nickname,
		Guess:           g.winner.guess,
		At:              g.winner.at.UnixMilli(),
		HighlightMs:     HighlightWindow.Milliseconds(),
		HighlightActive: g.highlightActiveLocked(),
	}
}

func (g *Game) maskLocked() string {
	if g.reveal == nil {
		return ""
	}
	return g.reveal.render()
}

func (g *Game) roundStatusLocked() RoundStatus {
	return RoundStatus{
		Mask:        g.maskLocked(),
		RemainingMs: g.clock.remaining(g.now()).Milliseconds(),
		Mode:        g.mode,
		Reading:     g.reading,
	}
}

func (g *Game) broadcastLeaderboardLocked() {
	g.fire(EventLeaderboard, g.viewers.Leaderboard(g.LeaderboardSize))
}

// Snapshot answers point-in-time state queries and the welcome handshake.
func (g *Game) Snapshot() Snapshot {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	return g.snapshotLocked()
}

func (g *Game) snapshotLocked() Snapshot {
	snap := Snapshot{
		Connected:    g.connected,
		Room:         g.room,
		ViewerCount:  g.viewerCount,
		SecretSet:    g.secretRaw != "",
		Mask:         g.maskLocked(),
		RemainingMs:  g.clock.remaining(g.now()).Milliseconds(),
		Reading:      g.reading,
		Mode:         g.mode,
		HintsEnabled: g.hintsEnabled,
		Winner:       g.winnerInfoLocked(),
		Leaderboard:  g.viewers.Leaderboard(g.LeaderboardSize),
	}
	if g.poll != nil {
		snap.Poll = g.poll.snapshot()
	}
	return snap
}
