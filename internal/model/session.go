package model

import (
	"time"

	"github.com/google/uuid"
)

// Phase enumerates assessment session states. Transitions are forward-only;
// Terminated and Completed are terminal.
type Phase string

const (
	PhaseNotStarted       Phase = "NOT_STARTED"
	PhaseIntro            Phase = "INTRO"
	PhaseActive           Phase = "ACTIVE"
	PhasePracticalSandbox Phase = "PRACTICAL_SANDBOX"
	PhaseSubmitting       Phase = "SUBMITTING"
	PhaseTerminated       Phase = "TERMINATED"
	PhaseCompleted        Phase = "COMPLETED"
)

// Terminal reports whether the phase permits no further mutation.
func (p Phase) Terminal() bool {
	return p == PhaseTerminated || p == PhaseCompleted
}

// Monitored reports whether integrity monitoring is live in this phase.
// The practical sandbox is deliberately unmonitored: hands-on questions may
// require other applications and looking away from the screen.
func (p Phase) Monitored() bool {
	return p == PhaseActive
}

// SessionState is the reconnect/reload view of a live session.
type SessionState struct {
	SessionID      uuid.UUID         `json:"session_id"`
	TestID         string            `json:"test_id"`
	UserID         string            `json:"user_id"`
	Phase          Phase             `json:"phase"`
	QuestionIndex  int               `json:"question_index"`
	Remaining      time.Duration     `json:"-"`
	RemainingSecs  float64           `json:"remaining_seconds"`
	ViolationCount int               `json:"violation_count"`
	Answers        map[string]Answer `json:"answers"`
}

// StartSessionRequest is the payload for opening a session. The client
// declares the outcome of its device setup screen; a session is never
// created for a client that could not bring up capture.
type StartSessionRequest struct {
	CameraReady    *bool `json:"camera_ready" binding:"required"`
	DetectorLoaded *bool `json:"detector_loaded" binding:"required"`
	ScreenCapture  *bool `json:"screen_capture" binding:"required"`
}
