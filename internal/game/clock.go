// internal/game/clock.go
package game

import "time"

// roundClock derives remaining time purely from wall-clock time and two
// fields, so repeated reads never drift: remaining = total - (now - start),
// clamped at zero. There is no ticking countdown anywhere.
type roundClock struct {
	startedAt time.Time
	total     time.Duration
	active    bool
}

func (c *roundClock) start(d time.Duration, now time.Time) {
	c.startedAt = now
	c.total = d
	c.active = true
}

func (c *roundClock) stop() {
	c.active = false
	c.total = 0
	c.startedAt = time.Time{}
}

// extend adds delta to the total duration, lengthening the remaining time
// by the same amount.
func (c *roundClock) extend(delta time.Duration) {
	c.total += delta
}

// setRemaining recomputes the total so that exactly d remains as of now.
func (c *roundClock) setRemaining(d time.Duration, now time.Time) {
	elapsed := now.Sub(c.startedAt)
	c.total = elapsed + d
}

func (c *roundClock) remaining(now time.Time) time.Duration {
	if !c.active {
		return 0
	}
	left := c.total - now.Sub(c.startedAt)
	if left < 0 {
		return 0
	}
	return left
}
