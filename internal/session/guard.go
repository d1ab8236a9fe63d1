package session

import (
	"context"
	"sync"
	"time"
)

const (
	// FocusWatchdogInterval is the cadence at which the guard pushes
	// refocus commands to the client while focus is lost.
	FocusWatchdogInterval = 100 * time.Millisecond

	// keyCorrelationWindow is how close to a focus loss an intercepted
	// key press must be for the loss to count as intentional. Losses
	// outside the window (OS-level interruptions) show the overlay but
	// raise no violation. The threshold is a known-weak heuristic kept
	// exactly as calibrated.
	keyCorrelationWindow = time.Second
)

// FocusLossCause classifies what the client observed when focus was lost.
type FocusLossCause string

const (
	CauseFullscreenExit   FocusLossCause = "fullscreen-exit"
	CauseWindowBlur       FocusLossCause = "window-blur"
	CauseVisibilityHidden FocusLossCause = "visibility-hidden"
)

// InterceptedKeys is the set of key names whose presses (and chords
// including them) the client intercepts and reports.
var InterceptedKeys = map[string]bool{
	"Escape":  true,
	"F11":     true,
	"Alt":     true,
	"Control": true,
	"Meta":    true,
	"Tab":     true,
}

// FocusGuard enforces exclusive-fullscreen, uninterrupted-focus exam
// conditions from client-reported events. It decides whether a focus loss
// is intentional, owns the refocus watchdog, and holds the kiosk-mode
// release token so fullscreen state is restored on every exit path.
type FocusGuard struct {
	mu           sync.Mutex
	lastKeypress time.Time
	lost         bool
	lostCause    FocusLossCause
	refocus      func()
}

// NewFocusGuard creates a guard. refocus pushes a single refocus command to
// the client; the watchdog invokes it repeatedly while focus is lost.
func NewFocusGuard(refocus func()) *FocusGuard {
	return &FocusGuard{refocus: refocus}
}

// NoteKeypress records an intercepted key press.
func (g *FocusGuard) NoteKeypress(at time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lastKeypress = at
}

// FocusLost transitions the guard into the lost state. The first return
// value is false when focus was already lost (duplicate event). The second
// reports whether the loss correlates with a recent intercepted key press
// and therefore counts as a violation.
func (g *FocusGuard) FocusLost(cause FocusLossCause, at time.Time) (transitioned, violates bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.lost {
		return false, false
	}
	g.lost = true
	g.lostCause = cause

	if !g.lastKeypress.IsZero() {
		since := at.Sub(g.lastKeypress)
		if since >= 0 && since <= keyCorrelationWindow {
			violates = true
		}
	}
	return true, violates
}

// FocusRestored clears the lost state. Returns false when focus was not
// lost (duplicate event).
func (g *FocusGuard) FocusRestored() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.lost {
		return false
	}
	g.lost = false
	g.lostCause = ""
	return true
}

// Lost reports whether focus is currently lost.
func (g *FocusGuard) Lost() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lost
}

// Run drives the refocus watchdog until the context is cancelled.
func (g *FocusGuard) Run(ctx context.Context) {
	ticker := time.NewTicker(FocusWatchdogInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if g.Lost() {
				g.refocus()
			}
		}
	}
}

// ReleaseToken is a one-shot handle for a scoped client-side resource such
// as kiosk mode. Release is idempotent and must be reachable from every
// exit path of the guard.
type ReleaseToken struct {
	once    sync.Once
	release func()
}

// Release runs the release action exactly once.
func (t *ReleaseToken) Release() {
	t.once.Do(t.release)
}

// AcquireKioskMode asks the client to enter kiosk mode (exclusive
// fullscreen, chrome suppressed) and returns the token that undoes it.
func AcquireKioskMode(acquire, release func()) *ReleaseToken {
	acquire()
	return &ReleaseToken{release: release}
}
