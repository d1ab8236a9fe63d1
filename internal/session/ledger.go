package session

import (
	"time"

	"github.com/skillproof/proctor-backend/internal/model"
)

// Ledger is the violation ledger: a monotonic counter plus classified
// reasons. It is pure bookkeeping — crossing the threshold is observed and
// acted on by the session engine, never by the ledger itself.
type Ledger struct {
	reasons []model.Violation
	frozen  bool
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{}
}

// Record appends a violation and returns the new count. Records against a
// frozen ledger are dropped and the count is unchanged.
func (l *Ledger) Record(reason model.ViolationReason, at time.Time) int {
	if l.frozen {
		return len(l.reasons)
	}
	l.reasons = append(l.reasons, model.Violation{Reason: reason, OccurredAt: at})
	return len(l.reasons)
}

// Count returns the number of recorded violations.
func (l *Ledger) Count() int {
	return len(l.reasons)
}

// Reasons returns the recorded violations in raise order.
func (l *Ledger) Reasons() []model.Violation {
	out := make([]model.Violation, len(l.reasons))
	copy(out, l.reasons)
	return out
}

// Freeze makes the ledger immutable. Called when the session reaches a
// terminal phase.
func (l *Ledger) Freeze() {
	l.frozen = true
}
