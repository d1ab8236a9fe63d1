package websocket

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionSetupReady   Action = "setup_ready"
	ActionPresence     Action = "presence"
	ActionFocus        Action = "focus"
	ActionKeypress     Action = "keypress"
	ActionAnswer       Action = "answer"
	ActionNavigate     Action = "navigate"
	ActionSandboxEnter Action = "sandbox_enter"
	ActionSandboxExit  Action = "sandbox_exit"
	ActionSubmit       Action = "submit"
	// ActionRecordingEnded signals that the screen-capture stream died on
	// the client. Recording bytes themselves arrive as binary frames.
	ActionRecordingEnded Action = "recording_ended"
	ActionPing           Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// SetupReadyRequest reports device readiness collected during setup.
type SetupReadyRequest struct {
	Action         Action `json:"action"`
	CameraReady    bool   `json:"camera_ready"`
	DetectorLoaded bool   `json:"detector_loaded"`
	ScreenCapture  bool   `json:"screen_capture"`
	RecordingMime  string `json:"recording_mime"`
}

// PresenceRequest carries one face-count sample from the client detector.
type PresenceRequest struct {
	Action Action `json:"action"`
	Faces  int    `json:"faces"`
}

// FocusRequest reports a focus transition. State is "lost" or "restored";
// Cause is set on loss (fullscreen-exit, window-blur, visibility-hidden).
type FocusRequest struct {
	Action Action `json:"action"`
	State  string `json:"state"`
	Cause  string `json:"cause"`
}

// KeypressRequest reports an intercepted navigation key.
type KeypressRequest struct {
	Action Action `json:"action"`
	Key    string `json:"key"`
}

// AnswerRequest saves a multiple-choice answer.
type AnswerRequest struct {
	Action      Action `json:"action"`
	QuestionID  string `json:"question_id"`
	OptionIndex int    `json:"option_index"`
}

// NavigateRequest moves the question pointer.
type NavigateRequest struct {
	Action Action `json:"action"`
	Index  int    `json:"index"`
}

// SubmitRequest finishes the attempt. Confirmed acknowledges the
// unanswered-question warning.
type SubmitRequest struct {
	Action    Action `json:"action"`
	Confirmed bool   `json:"confirmed"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError            Event = "error"
	EventSuccess          Event = "success"
	EventState            Event = "state"
	EventPhase            Event = "phase"
	EventViolation        Event = "violation"
	EventOverlayShow      Event = "overlay_show"
	EventOverlayDismiss   Event = "overlay_dismiss"
	EventRefocus          Event = "refocus"
	EventKioskAcquire     Event = "kiosk_acquire"
	EventKioskRelease     Event = "kiosk_release"
	EventConfirmSubmit    Event = "confirm_submit"
	EventTerminated       Event = "terminated"
	EventSubmitted        Event = "submitted"
	EventAlreadyAttempted Event = "already_attempted"
	EventSubmitRetry      Event = "submit_retry"
	EventFatal            Event = "fatal"
	EventPong             Event = "pong"
)

type SuccessResponse struct {
	Event  Event  `json:"event"`
	Action Action `json:"action"`
}

type PhaseResponse struct {
	Event Event  `json:"event"`
	Phase string `json:"phase"`
}

type ViolationResponse struct {
	Event  Event  `json:"event"`
	Reason string `json:"reason"`
	Count  int    `json:"count"`
}

type OverlayResponse struct {
	Event Event  `json:"event"`
	Cause string `json:"cause,omitempty"`
}

// ConfirmSubmitResponse asks the client to acknowledge that unanswered
// questions will be submitted as incorrect.
type ConfirmSubmitResponse struct {
	Event      Event `json:"event"`
	Unanswered int   `json:"unanswered"`
}

type TerminatedResponse struct {
	Event  Event  `json:"event"`
	Reason string `json:"reason"`
	Count  int    `json:"count,omitempty"`
}

type SubmittedResponse struct {
	Event   Event  `json:"event"`
	Score   int    `json:"score"`
	Passed  bool   `json:"passed"`
	Message string `json:"message,omitempty"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Code  string `json:"code,omitempty"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
