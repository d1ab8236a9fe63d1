package session

import "github.com/skillproof/proctor-backend/internal/model"

// EventType enumerates engine-emitted session events. The presentation
// layer renders them (overlay, modal, redirect); the engine itself carries
// no rendering concern.
type EventType string

const (
	EventPhase            EventType = "phase"
	EventViolation        EventType = "violation"
	EventOverlayShow      EventType = "overlay_show"
	EventOverlayDismiss   EventType = "overlay_dismiss"
	EventRefocus          EventType = "refocus"
	EventKioskAcquire     EventType = "kiosk_acquire"
	EventKioskRelease     EventType = "kiosk_release"
	EventTerminated       EventType = "terminated"
	EventSubmitted        EventType = "submitted"
	EventAlreadyAttempted EventType = "already_attempted"
	EventSubmitRetry      EventType = "submit_retry"
	EventFatal            EventType = "fatal"
)

// Event is a single engine-to-client notification.
type Event struct {
	Type           EventType             `json:"type"`
	Phase          model.Phase           `json:"phase,omitempty"`
	Reason         model.ViolationReason `json:"reason,omitempty"`
	ViolationCount int                   `json:"violation_count,omitempty"`
	Score          int                   `json:"score,omitempty"`
	Passed         bool                  `json:"passed,omitempty"`
	Message        string                `json:"message,omitempty"`
}

// Emitter delivers events to the connected client. Implementations must be
// safe for concurrent use; the engine emits from monitor goroutines.
type Emitter interface {
	Emit(Event)
}

// noopEmitter swallows events while no client is attached (e.g. between a
// page reload and the stream reconnect).
type noopEmitter struct{}

func (noopEmitter) Emit(Event) {}
