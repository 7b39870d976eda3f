// internal/game/poll.go
package game

import (
	"time"

	"guesstream/internal/textnorm"
)

type pollOption struct {
	label string
	norm  string
}

// Poll runs at most one concurrent vote. Votes arrive as chat messages; a
// message counts iff its normalized text equals one option's normalized
// form and the viewer has not voted in this poll instance yet.
type Poll struct {
	question string
	options  []pollOption
	tallies  map[string]int
	voters   map[string]bool
	endsAt   time.Time

	// gen ties the scheduled auto-close to this poll instance, so a timer
	// firing after a manual stop finds a stale generation and does nothing.
	gen   uint64
	timer *time.Timer
}

// PollSnapshot is the externally visible poll state.
type PollSnapshot struct {
	Question string         `json:"question"`
	Options  []string       `json:"options"`
	Tallies  map[string]int `json:"tallies"`
	EndsAt   int64          `json:"ends_at"` // unix millis
}

// PollResult is the payload of EventPollEnd.
type PollResult struct {
	Question string         `json:"question"`
	Winner   string         `json:"winner"`
	Tallies  map[string]int `json:"tallies"`
}

func (p *Poll) snapshot() *PollSnapshot {
	options := make([]string, len(p.options))
	tallies := make(map[string]int, len(p.options))
	for i, o := range p.options {
		options[i] = o.label
		tallies[o.label] = p.tallies[o.label]
	}
	return &PollSnapshot{
		Question: p.question,
		Options:  options,
		Tallies:  tallies,
		EndsAt:   p.endsAt.UnixMilli(),
	}
}

// castVote counts a vote iff the viewer has not voted yet and the normalized
// text equals one option. Anything else is a silent no-op; most chat
// messages are not votes.
func (p *Poll) castVote(viewerID, normalizedText string) bool {
	if p.voters[viewerID] {
		return false
	}
	for _, o := range p.options {
		if o.norm == normalizedText {
			p.voters[viewerID] = true
			p.tallies[o.label]++
			return true
		}
	}
	return false
}

// winningOption selects the option with the strictly greatest tally. The
// strict comparison keeps the first-listed option on ties, so callers that
// list the current state first get "no change without a clear mandate".
func (p *Poll) winningOption() string {
	winner := ""
	best := -1
	for _, o := range p.options {
		if p.tallies[o.label] > best {
			best = p.tallies[o.label]
			winner = o.label
		}
	}
	return winner
}

// StartPoll creates the single live poll and schedules its auto-close.
// Fails with InvalidState while a poll is active, and with InvalidInput for
// fewer than two (or duplicate) options or a non-positive duration.
func (g *Game) StartPoll(question string, options []string, durationMs int64) error {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	if g.poll != nil {
		return invalidState("a poll is already active")
	}
	if len(options) < 2 {
		return invalidInput("a poll needs at least 2 options")
	}
	if durationMs <= 0 {
		return invalidInput("poll duration must be positive")
	}

	opts := make([]pollOption, 0, len(options))
	tallies := make(map[string]int, len(options))
	seen := make(map[string]bool, len(options))
	for _, label := range options {
		norm := textnorm.Normalize(label)
		if norm == "" {
			return invalidInput("poll option %q is empty after normalization", label)
		}
		if seen[norm] {
			return invalidInput("duplicate poll option %q", label)
		}
		seen[norm] = true
		opts = append(opts, pollOption{label: label, norm: norm})
		tallies[label] = 0
	}

	g.pollGen++
	duration := time.Duration(durationMs) * time.Millisecond
	p := &Poll{
		question: question,
		options:  opts,
		tallies:  tallies,
		voters:   make(map[string]bool),
		endsAt:   g.now().Add(duration),
		gen:      g.pollGen,
	}
	gen := p.gen
	p.timer = time.AfterFunc(duration, func() {
		g.Mu.Lock()
		defer g.Mu.Unlock()
		g.finishPollLocked(gen)
	})
	g.poll = p

	g.fire(EventPollStart, p.snapshot())
	g.logger.WithField("question", question).Info("poll started")

	return nil
}

// StopPoll closes the live poll ahead of its scheduled expiry.
func (g *Game) StopPoll() error {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	if g.poll == nil {
		return invalidState("no active poll")
	}
	g.finishPollLocked(g.poll.gen)
	return nil
}

// finishPollLocked finalizes tallies, broadcasts the winner and destroys the
// poll. The generation check makes close idempotent: whichever of manual
// stop and scheduled expiry runs second sees a stale gen and no-ops.
func (g *Game) finishPollLocked(gen uint64) {
	p := g.poll
	if p == nil || p.gen != gen {
		return
	}
	if p.timer != nil {
		p.timer.Stop()
	}
	g.poll = nil

	winner := p.winningOption()
	g.fire(EventPollEnd, PollResult{
		Question: p.question,
		Winner:   winner,
		Tallies:  p.tallies,
	})
	g.logger.WithField("winner", winner).Info("poll closed")

	// Mode polls apply their mandate directly.
	if m := Mode(textnorm.Normalize(winner)); m == ModeClassic || m == ModeRapid {
		g.setModeLocked(m)
	}
}
