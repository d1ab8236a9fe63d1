package session

import (
	"testing"
	"time"
)

func TestFocusLossAfterInterceptedKeyViolates(t *testing.T) {
	g := NewFocusGuard(func() {})
	base := time.Now()

	g.NoteKeypress(base)
	transitioned, violates := g.FocusLost(CauseWindowBlur, base.Add(500*time.Millisecond))

	if !transitioned {
		t.Fatal("first focus loss did not transition")
	}
	if !violates {
		t.Fatal("loss within the correlation window did not violate")
	}
}

func TestFocusLossWithoutKeypressShowsOverlayOnly(t *testing.T) {
	g := NewFocusGuard(func() {})

	transitioned, violates := g.FocusLost(CauseVisibilityHidden, time.Now())
	if !transitioned {
		t.Fatal("focus loss did not transition")
	}
	if violates {
		t.Fatal("uncorrelated loss counted as a violation")
	}
}

func TestFocusLossOutsideWindowDoesNotViolate(t *testing.T) {
	g := NewFocusGuard(func() {})
	base := time.Now()

	g.NoteKeypress(base)
	_, violates := g.FocusLost(CauseWindowBlur, base.Add(keyCorrelationWindow+time.Millisecond))
	if violates {
		t.Fatal("loss after the correlation window counted as a violation")
	}
}

func TestFocusLossExactlyAtWindowBoundaryViolates(t *testing.T) {
	g := NewFocusGuard(func() {})
	base := time.Now()

	g.NoteKeypress(base)
	_, violates := g.FocusLost(CauseFullscreenExit, base.Add(keyCorrelationWindow))
	if !violates {
		t.Fatal("loss exactly at the window boundary did not violate")
	}
}

func TestDuplicateFocusEventsIgnored(t *testing.T) {
	g := NewFocusGuard(func() {})
	now := time.Now()

	g.NoteKeypress(now)
	if tr, _ := g.FocusLost(CauseWindowBlur, now); !tr {
		t.Fatal("first loss not accepted")
	}
	if tr, v := g.FocusLost(CauseWindowBlur, now); tr || v {
		t.Fatal("duplicate loss accepted")
	}

	if !g.FocusRestored() {
		t.Fatal("restore after loss not accepted")
	}
	if g.FocusRestored() {
		t.Fatal("duplicate restore accepted")
	}
}

func TestReleaseTokenIsIdempotent(t *testing.T) {
	acquired, released := 0, 0
	token := AcquireKioskMode(
		func() { acquired++ },
		func() { released++ },
	)

	if acquired != 1 {
		t.Fatalf("acquire calls = %d, want 1", acquired)
	}
	token.Release()
	token.Release()
	token.Release()
	if released != 1 {
		t.Fatalf("release calls = %d, want 1", released)
	}
}
