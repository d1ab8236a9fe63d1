package session

import (
	"testing"
	"time"

	"github.com/skillproof/proctor-backend/internal/model"
)

func TestLedgerRecordsInOrder(t *testing.T) {
	l := NewLedger()
	base := time.Now()

	if got := l.Record(model.ViolationNoFace, base); got != 1 {
		t.Fatalf("first record count = %d, want 1", got)
	}
	if got := l.Record(model.ViolationFocusLost, base.Add(time.Second)); got != 2 {
		t.Fatalf("second record count = %d, want 2", got)
	}
	if got := l.Record(model.ViolationMultipleFaces, base.Add(2*time.Second)); got != 3 {
		t.Fatalf("third record count = %d, want 3", got)
	}

	reasons := l.Reasons()
	want := []model.ViolationReason{model.ViolationNoFace, model.ViolationFocusLost, model.ViolationMultipleFaces}
	if len(reasons) != len(want) {
		t.Fatalf("got %d reasons, want %d", len(reasons), len(want))
	}
	for i, r := range reasons {
		if r.Reason != want[i] {
			t.Errorf("reasons[%d] = %s, want %s", i, r.Reason, want[i])
		}
	}
}

func TestLedgerFreezeDropsLateEntries(t *testing.T) {
	l := NewLedger()
	l.Record(model.ViolationNoFace, time.Now())
	l.Freeze()

	if got := l.Record(model.ViolationFocusLost, time.Now()); got != 1 {
		t.Fatalf("count after frozen record = %d, want 1", got)
	}
	if got := l.Count(); got != 1 {
		t.Fatalf("Count() = %d, want 1", got)
	}
}

func TestLedgerReasonsReturnsCopy(t *testing.T) {
	l := NewLedger()
	l.Record(model.ViolationNoFace, time.Now())

	reasons := l.Reasons()
	reasons[0].Reason = model.ViolationFocusLost

	if l.Reasons()[0].Reason != model.ViolationNoFace {
		t.Fatal("mutating the returned slice changed ledger state")
	}
}
