package session

import "time"

// Countdown tracks the exam's remaining time against wall clock. While
// frozen (focus lost, guard overlay shown) the remaining time is captured
// and does not drain, so an interruption never costs the candidate time.
type Countdown struct {
	duration  time.Duration
	startedAt time.Time
	started   bool

	frozenRemaining time.Duration
	frozen          bool
}

// NewCountdown creates a countdown for the given exam duration.
func NewCountdown(duration time.Duration) *Countdown {
	return &Countdown{duration: duration}
}

// Start begins draining from now. Starting twice is a no-op.
func (c *Countdown) Start(now time.Time) {
	if c.started {
		return
	}
	c.startedAt = now
	c.started = true
}

// Remaining returns the time left. Before Start it is the full duration;
// while frozen it is the captured value.
func (c *Countdown) Remaining(now time.Time) time.Duration {
	if !c.started {
		return c.duration
	}
	if c.frozen {
		return c.frozenRemaining
	}
	rem := c.duration - now.Sub(c.startedAt)
	if rem < 0 {
		rem = 0
	}
	return rem
}

// Freeze captures the current remaining time. Freezing twice keeps the
// first capture.
func (c *Countdown) Freeze(now time.Time) {
	if c.frozen {
		return
	}
	c.frozenRemaining = c.Remaining(now)
	c.frozen = true
}

// Unfreeze resumes draining by recomputing the start point from the frozen
// remaining time.
func (c *Countdown) Unfreeze(now time.Time) {
	if !c.frozen {
		return
	}
	c.startedAt = now.Add(c.frozenRemaining - c.duration)
	c.frozen = false
}

// Frozen reports whether the countdown is currently frozen.
func (c *Countdown) Frozen() bool {
	return c.frozen
}

// Expired reports whether the remaining time has reached zero.
func (c *Countdown) Expired(now time.Time) bool {
	return c.started && !c.frozen && c.Remaining(now) == 0
}
