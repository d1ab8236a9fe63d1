package session

import (
	"testing"
	"time"
)

func TestCountdownBeforeStart(t *testing.T) {
	c := NewCountdown(30 * time.Minute)
	if got := c.Remaining(time.Now()); got != 30*time.Minute {
		t.Fatalf("Remaining before start = %v, want 30m", got)
	}
	if c.Expired(time.Now()) {
		t.Fatal("unstarted countdown reports expired")
	}
}

func TestCountdownDrains(t *testing.T) {
	base := time.Now()
	c := NewCountdown(30 * time.Minute)
	c.Start(base)

	if got := c.Remaining(base.Add(10 * time.Minute)); got != 20*time.Minute {
		t.Fatalf("Remaining after 10m = %v, want 20m", got)
	}
	if got := c.Remaining(base.Add(31 * time.Minute)); got != 0 {
		t.Fatalf("Remaining past duration = %v, want 0", got)
	}
	if !c.Expired(base.Add(31 * time.Minute)) {
		t.Fatal("countdown past duration not expired")
	}
}

func TestCountdownFreezeStopsDrain(t *testing.T) {
	base := time.Now()
	c := NewCountdown(30 * time.Minute)
	c.Start(base)

	c.Freeze(base.Add(5 * time.Minute))

	// An hour passes while frozen; nothing drains.
	if got := c.Remaining(base.Add(65 * time.Minute)); got != 25*time.Minute {
		t.Fatalf("Remaining while frozen = %v, want 25m", got)
	}
	if c.Expired(base.Add(65 * time.Minute)) {
		t.Fatal("frozen countdown reports expired")
	}

	c.Unfreeze(base.Add(65 * time.Minute))
	if got := c.Remaining(base.Add(70 * time.Minute)); got != 20*time.Minute {
		t.Fatalf("Remaining after unfreeze+5m = %v, want 20m", got)
	}
}

func TestCountdownDoubleFreezeKeepsFirstCapture(t *testing.T) {
	base := time.Now()
	c := NewCountdown(30 * time.Minute)
	c.Start(base)

	c.Freeze(base.Add(5 * time.Minute))
	c.Freeze(base.Add(20 * time.Minute))

	if got := c.Remaining(base.Add(20 * time.Minute)); got != 25*time.Minute {
		t.Fatalf("Remaining after double freeze = %v, want 25m", got)
	}
}

func TestCountdownStartTwiceIsNoop(t *testing.T) {
	base := time.Now()
	c := NewCountdown(30 * time.Minute)
	c.Start(base)
	c.Start(base.Add(10 * time.Minute))

	if got := c.Remaining(base.Add(10 * time.Minute)); got != 20*time.Minute {
		t.Fatalf("Remaining = %v, want 20m", got)
	}
}
