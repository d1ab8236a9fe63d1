package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/skillproof/proctor-backend/internal/config"
	"github.com/skillproof/proctor-backend/internal/model"
	"github.com/skillproof/proctor-backend/internal/recording"
	"github.com/skillproof/proctor-backend/internal/submission"
)

var (
	ErrSessionTerminal      = errors.New("session has reached a terminal phase")
	ErrInvalidPhase         = errors.New("operation not allowed in current phase")
	ErrDeviceUnavailable    = errors.New("capture device unavailable")
	ErrQuestionNotFound     = errors.New("question not found")
	ErrInvalidOption        = errors.New("option index out of range")
	ErrInvalidIndex         = errors.New("question index out of range")
	ErrNotPractical         = errors.New("question has no sandbox")
	ErrSubmitInProgress     = errors.New("submission already in progress")
	ErrConfirmationRequired = errors.New("unanswered questions require confirmation")
)

// validTransitions is the session state machine. Phases only move forward;
// the single backward edge (Submitting → Active) exists so a failed
// submission can be retried without losing the attempt.
var validTransitions = map[model.Phase][]model.Phase{
	model.PhaseNotStarted:       {model.PhaseIntro},
	model.PhaseIntro:            {model.PhaseActive},
	model.PhaseActive:           {model.PhasePracticalSandbox, model.PhaseSubmitting, model.PhaseTerminated},
	model.PhasePracticalSandbox: {model.PhaseActive, model.PhaseTerminated},
	model.PhaseSubmitting:       {model.PhaseCompleted, model.PhaseActive},
}

// violationRecord is the queue payload drained by the violation worker
// into the durable audit trail.
type violationRecord struct {
	SessionID string `json:"session_id"`
	TestID    string `json:"test_id"`
	UserID    string `json:"user_id"`
	Reason    string `json:"reason"`
	Timestamp int64  `json:"timestamp"`
}

// Session is one proctored attempt at one test by one user. It owns the
// exam phase, the answer store, the violation ledger, the countdown, and
// both integrity monitors. All mutation goes through its methods.
type Session struct {
	ID     uuid.UUID
	UserID string
	Def    *model.TestDefinition

	mu            sync.Mutex
	phase         model.Phase
	questionIndex int
	answers       map[string]model.Answer
	ledger        *Ledger
	clock         *Countdown
	createdAt     time.Time
	lastSeen      time.Time

	guard    *FocusGuard
	feed     *SampleFeed
	pipeline *recording.Pipeline
	kiosk    *ReleaseToken

	monitorCancel context.CancelFunc
	monitorWG     sync.WaitGroup
	monitorsDone  bool

	// Retained across submission retries so a network failure never costs
	// the candidate answers or the recording.
	pendingPayload  *model.SubmissionPayload
	pendingArtifact *model.RecordingArtifact
	recordingStored bool
	withRecording   bool

	emitMu  sync.RWMutex
	emitter Emitter

	mgr *Manager
	log zerolog.Logger
	now func() time.Time
}

func newSession(mgr *Manager, userID string, def *model.TestDefinition, restored map[string]model.Answer) *Session {
	id := uuid.New()
	if restored == nil {
		restored = make(map[string]model.Answer)
	}
	s := &Session{
		ID:            id,
		UserID:        userID,
		Def:           def,
		phase:         model.PhaseNotStarted,
		answers:       restored,
		ledger:        NewLedger(),
		clock:         NewCountdown(time.Duration(def.DurationMins) * time.Minute),
		createdAt:     time.Now(),
		lastSeen:      time.Now(),
		feed:          NewSampleFeed(),
		withRecording: true,
		emitter:       noopEmitter{},
		mgr:           mgr,
		now:           time.Now,
		log: mgr.log.With().
			Str("session_id", id.String()).
			Str("test_id", def.ID).
			Str("user_id", userID).
			Logger(),
	}
	s.pipeline = recording.NewPipeline(mgr.cfg.RecordingTargetBytes, recording.ZstdTranscoder{}, mgr.log)
	s.guard = NewFocusGuard(func() { s.emit(Event{Type: EventRefocus}) })
	return s
}

// AttachEmitter connects the client's event stream. Passing nil detaches.
func (s *Session) AttachEmitter(e Emitter) {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()
	if e == nil {
		s.emitter = noopEmitter{}
		return
	}
	s.emitter = e
}

func (s *Session) emit(e Event) {
	s.emitMu.RLock()
	em := s.emitter
	s.emitMu.RUnlock()
	em.Emit(e)
}

// Phase returns the current phase.
func (s *Session) Phase() model.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// touch refreshes the abandonment timer. Callers hold s.mu.
func (s *Session) touch() {
	s.lastSeen = s.now()
}

// transitionTo moves the phase along a legal edge. Callers hold s.mu.
func (s *Session) transitionTo(next model.Phase) error {
	if s.phase.Terminal() {
		return ErrSessionTerminal
	}
	for _, allowed := range validTransitions[s.phase] {
		if allowed == next {
			s.phase = next
			s.emit(Event{Type: EventPhase, Phase: next})
			return nil
		}
	}
	return ErrInvalidPhase
}

// ─── Setup and activation ──────────────────────────────────────────────

// ConfirmSetup moves NotStarted → Intro once the client reports its
// devices ready. The session must not start without the capture devices
// and the detection model: missing pieces are fatal, not silently skipped.
func (s *Session) ConfirmSetup(cameraReady, detectorLoaded, screenCapture bool, recordingMime string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if s.phase != model.PhaseNotStarted {
		return ErrInvalidPhase
	}
	if !cameraReady || !screenCapture {
		return ErrDeviceUnavailable
	}
	if !detectorLoaded {
		return ErrDetectorUnavailable
	}

	s.pipeline.Start(recordingMime)
	return s.transitionTo(model.PhaseIntro)
}

// ReportPresence ingests a client face-count sample. During Intro the
// first single-face sample activates the exam; afterwards samples feed the
// detector loop.
func (s *Session) ReportPresence(faces int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if s.phase.Terminal() {
		return ErrSessionTerminal
	}

	s.feed.Report(faces)

	if s.phase == model.PhaseIntro && faces == 1 {
		return s.activateLocked()
	}
	return nil
}

// activateLocked transitions Intro → Active: the countdown starts, kiosk
// mode is acquired, and both monitors begin running.
func (s *Session) activateLocked() error {
	if err := s.transitionTo(model.PhaseActive); err != nil {
		return err
	}

	now := s.now()
	s.clock.Start(now)

	s.kiosk = AcquireKioskMode(
		func() { s.emit(Event{Type: EventKioskAcquire}) },
		func() { s.emit(Event{Type: EventKioskRelease}) },
	)

	startKey := config.CacheKey.SessionStartKey(s.Def.ID, s.UserID)
	if err := s.mgr.rdb.Set(context.Background(), startKey, now.Unix(), 0).Err(); err != nil {
		s.log.Warn().Err(err).Msg("failed to cache session start time")
	}

	detector := NewPresenceDetector(
		s.feed,
		func(reason model.ViolationReason) { s.RaiseViolation(reason) },
		func() bool { return s.Phase().Monitored() },
		s.log,
	)

	ctx, cancel := context.WithCancel(context.Background())
	s.monitorCancel = cancel

	s.monitorWG.Add(2)
	go func() {
		defer s.monitorWG.Done()
		detector.Run(ctx)
	}()
	go func() {
		defer s.monitorWG.Done()
		s.guard.Run(ctx)
	}()

	s.log.Info().Msg("session activated")
	return nil
}

// stopMonitors cancels the detector loop and the focus watchdog, waits for
// both to exit, and releases kiosk mode. It is reachable from every exit
// path and must complete before the submission protocol runs. Never call
// it with s.mu held or from a monitor goroutine.
func (s *Session) stopMonitors() {
	s.mu.Lock()
	if s.monitorsDone {
		s.mu.Unlock()
		return
	}
	s.monitorsDone = true
	cancel := s.monitorCancel
	kiosk := s.kiosk
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.monitorWG.Wait()
	if kiosk != nil {
		kiosk.Release()
	}
}

// ─── Violations ────────────────────────────────────────────────────────

// RaiseViolation records a breach into the ledger, queues it for the audit
// trail, and forces termination when the threshold is crossed. Violations
// outside monitored phases, or after a terminal phase, are dropped.
func (s *Session) RaiseViolation(reason model.ViolationReason) {
	s.mu.Lock()
	if s.phase.Terminal() || !s.phase.Monitored() {
		s.mu.Unlock()
		return
	}

	now := s.now()
	count := s.ledger.Record(reason, now)
	s.enqueueViolation(reason, now)
	s.emit(Event{Type: EventViolation, Reason: reason, ViolationCount: count})
	s.log.Warn().Str("reason", string(reason)).Int("count", count).Msg("violation recorded")

	if count < s.mgr.cfg.MaxViolations {
		s.mu.Unlock()
		return
	}

	// Threshold crossed: the very next phase is Terminated.
	if err := s.transitionTo(model.PhaseTerminated); err != nil {
		s.mu.Unlock()
		return
	}
	s.ledger.Freeze()
	s.clock.Freeze(now)
	s.emit(Event{Type: EventTerminated, Message: "violation threshold exceeded", ViolationCount: count})
	s.mu.Unlock()

	// Finalization waits on the monitor goroutines, and this method is
	// called from one of them, so it runs on its own goroutine.
	go s.finalizeTerminated(true)
}

func (s *Session) enqueueViolation(reason model.ViolationReason, at time.Time) {
	rec := violationRecord{
		SessionID: s.ID.String(),
		TestID:    s.Def.ID,
		UserID:    s.UserID,
		Reason:    string(reason),
		Timestamp: at.Unix(),
	}
	raw, _ := json.Marshal(rec)
	if err := s.mgr.rdb.RPush(context.Background(), config.WorkerKey.PersistViolationsQueue, raw).Err(); err != nil {
		s.log.Error().Err(err).Msg("failed to queue violation for persistence")
	}
}

// ─── Focus guard events ────────────────────────────────────────────────

// ReportKeypress records an intercepted key press for the intentional-loss
// heuristic. Ignored outside monitored phases.
func (s *Session) ReportKeypress(key string) {
	s.mu.Lock()
	s.touch()
	monitored := s.phase.Monitored()
	now := s.now()
	s.mu.Unlock()

	if !monitored || !InterceptedKeys[key] {
		return
	}
	s.guard.NoteKeypress(now)
}

// ReportFocusLost handles a fullscreen-exit, blur, or visibility loss. The
// countdown freezes and the blocking overlay is shown for every loss; a
// violation is raised only when the loss correlates with a recent
// intercepted key press.
func (s *Session) ReportFocusLost(cause FocusLossCause) {
	s.mu.Lock()
	s.touch()
	if s.phase.Terminal() || !s.phase.Monitored() {
		s.mu.Unlock()
		return
	}
	now := s.now()
	transitioned, violates := s.guard.FocusLost(cause, now)
	if !transitioned {
		s.mu.Unlock()
		return
	}
	s.clock.Freeze(now)
	s.emit(Event{Type: EventOverlayShow, Message: string(cause)})
	s.mu.Unlock()

	if violates {
		s.RaiseViolation(model.ViolationFocusLost)
	}
}

// ReportFocusRestored resumes the countdown from its frozen value and
// dismisses the overlay.
func (s *Session) ReportFocusRestored() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	if s.phase.Terminal() {
		return
	}
	if !s.guard.FocusRestored() {
		return
	}
	s.clock.Unfreeze(s.now())
	s.emit(Event{Type: EventOverlayDismiss})
}

// ─── Answers and navigation ────────────────────────────────────────────

// SaveChoiceAnswer stores a multiple-choice answer and mirrors it into the
// autosave hash. Navigation never discards it.
func (s *Session) SaveChoiceAnswer(questionID string, optionIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if err := s.requireAnswerablePhase(); err != nil {
		return err
	}

	q := s.Def.QuestionByID(questionID)
	if q == nil {
		return ErrQuestionNotFound
	}
	if !q.IsChoice() {
		return ErrQuestionNotFound
	}
	if optionIndex < 0 || optionIndex >= len(q.Options) {
		return ErrInvalidOption
	}

	ans := model.ChoiceAnswer(optionIndex)
	s.answers[questionID] = ans
	s.autosave(questionID, ans)
	return nil
}

// AttachFileAnswer stores practical-answer file references for a question.
func (s *Session) AttachFileAnswer(questionID string, files []model.FileRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if err := s.requireAnswerablePhase(); err != nil {
		return err
	}

	q := s.Def.QuestionByID(questionID)
	if q == nil || q.Type != model.QuestionTypePractical {
		return ErrQuestionNotFound
	}

	ans := model.FileAnswer(files)
	s.answers[questionID] = ans
	s.autosave(questionID, ans)
	return nil
}

func (s *Session) requireAnswerablePhase() error {
	if s.phase.Terminal() {
		return ErrSessionTerminal
	}
	if s.phase != model.PhaseActive && s.phase != model.PhasePracticalSandbox {
		return ErrInvalidPhase
	}
	return nil
}

func (s *Session) autosave(questionID string, ans model.Answer) {
	raw, _ := json.Marshal(ans)
	key := config.CacheKey.SessionAnswersKey(s.Def.ID, s.UserID)
	if err := s.mgr.rdb.HSet(context.Background(), key, questionID, raw).Err(); err != nil {
		s.log.Warn().Err(err).Msg("answer autosave failed")
	}
}

// Navigate moves the question pointer. Allowed only while answering; it
// only mutates the index, never the answer store.
func (s *Session) Navigate(toIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if err := s.requireAnswerablePhase(); err != nil {
		return err
	}
	if toIndex < 0 || toIndex >= len(s.Def.Questions) {
		return ErrInvalidIndex
	}
	s.questionIndex = toIndex
	return nil
}

// ─── Practical sandbox ─────────────────────────────────────────────────

// EnterSandbox suspends monitoring for a hands-on question. Only valid
// when the current question is practical.
func (s *Session) EnterSandbox() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if s.phase != model.PhaseActive {
		return ErrInvalidPhase
	}
	q := &s.Def.Questions[s.questionIndex]
	if q.Type != model.QuestionTypePractical {
		return ErrNotPractical
	}
	return s.transitionTo(model.PhasePracticalSandbox)
}

// ExitSandbox resumes monitored answering.
func (s *Session) ExitSandbox() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if s.phase != model.PhasePracticalSandbox {
		return ErrInvalidPhase
	}
	return s.transitionTo(model.PhaseActive)
}

// ─── Recording stream ──────────────────────────────────────────────────

// AppendRecordingChunk buffers one incrementally recorded chunk.
func (s *Session) AppendRecordingChunk(chunk []byte) error {
	s.mu.Lock()
	s.touch()
	if s.phase.Terminal() {
		s.mu.Unlock()
		return ErrSessionTerminal
	}
	s.mu.Unlock()
	return s.pipeline.Append(chunk)
}

// ReportRecordingEnded handles the capture stream dying mid-session (the
// user revoked permission). The exam cannot continue unmonitored: the
// session terminates and an automatic submission is attempted with no
// recording rather than silently continuing.
func (s *Session) ReportRecordingEnded() {
	s.pipeline.StreamEnded()

	s.mu.Lock()
	if s.phase.Terminal() {
		s.mu.Unlock()
		return
	}

	// Before activation there is nothing to submit; the session simply
	// cannot start without a live capture stream.
	if s.phase == model.PhaseNotStarted || s.phase == model.PhaseIntro {
		s.phase = model.PhaseTerminated
		s.ledger.Freeze()
		s.withRecording = false
		s.emit(Event{Type: EventTerminated, Message: "recording stream ended"})
		s.emit(Event{Type: EventFatal, Message: recording.ErrStreamEnded.Error()})
		s.mu.Unlock()
		s.log.Info().Msg("capture stream ended before activation")
		s.cleanup()
		return
	}

	if s.phase != model.PhaseActive && s.phase != model.PhasePracticalSandbox {
		s.mu.Unlock()
		return
	}
	if err := s.transitionTo(model.PhaseTerminated); err != nil {
		s.mu.Unlock()
		return
	}
	now := s.now()
	s.ledger.Freeze()
	s.clock.Freeze(now)
	s.withRecording = false
	s.emit(Event{Type: EventTerminated, Message: "recording stream ended"})
	s.emit(Event{Type: EventFatal, Message: recording.ErrStreamEnded.Error()})
	s.mu.Unlock()

	go s.finalizeTerminated(false)
}

// ─── Submission ────────────────────────────────────────────────────────

// Submit drives an explicit submission from the client. With unanswered
// questions it demands an explicit confirmation first (a soft warning, not
// a hard block); expiry and forced termination bypass that via their own
// paths. On a transient failure the session returns to Active with the
// countdown frozen and the payload retained, so a retry costs nothing.
func (s *Session) Submit(ctx context.Context, confirmed bool) error {
	s.mu.Lock()
	s.touch()

	switch {
	case s.phase.Terminal():
		s.mu.Unlock()
		return ErrSessionTerminal
	case s.phase == model.PhaseSubmitting:
		s.mu.Unlock()
		return ErrSubmitInProgress
	case s.phase != model.PhaseActive:
		s.mu.Unlock()
		return ErrInvalidPhase
	}

	if !confirmed && s.unansweredLocked() > 0 {
		s.mu.Unlock()
		return ErrConfirmationRequired
	}

	if err := s.transitionTo(model.PhaseSubmitting); err != nil {
		s.mu.Unlock()
		return err
	}
	s.clock.Freeze(s.now())
	s.mu.Unlock()

	return s.runSubmission(ctx)
}

// unansweredLocked counts questions with no stored answer.
func (s *Session) unansweredLocked() int {
	n := 0
	for i := range s.Def.Questions {
		if _, ok := s.answers[s.Def.Questions[i].ID]; !ok {
			n++
		}
	}
	return n
}

// runSubmission finalizes the recording and executes the protocol. The
// monitors are stopped before the protocol runs so the recording is
// complete when attached.
func (s *Session) runSubmission(ctx context.Context) error {
	s.stopMonitors()
	payload := s.preparePayload()

	receipt, err := s.mgr.protocol.Submit(ctx, payload)

	s.mu.Lock()
	switch {
	case err == nil:
		_ = s.transitionTo(model.PhaseCompleted)
		s.ledger.Freeze()
		s.emit(Event{Type: EventSubmitted, Score: payload.Score, Passed: payload.Passed,
			Message: receipt.Message})
		s.log.Info().Int("score", payload.Score).Bool("passed", payload.Passed).Msg("submission accepted")
		s.mu.Unlock()
		s.cleanup()
		return nil

	case errors.Is(err, submission.ErrAlreadyAttempted):
		// A completed attempt already exists; this session is moot.
		_ = s.transitionTo(model.PhaseCompleted)
		s.ledger.Freeze()
		s.emit(Event{Type: EventAlreadyAttempted})
		s.log.Warn().Msg("submission rejected: already attempted")
		s.mu.Unlock()
		s.cleanup()
		return err

	default:
		// Transient failure: back to Active with the clock still frozen
		// and the payload retained for a manual retry.
		_ = s.transitionTo(model.PhaseActive)
		s.emit(Event{Type: EventSubmitRetry, Message: "submission failed, retry"})
		s.log.Error().Err(err).Msg("submission failed, awaiting retry")
		s.mu.Unlock()
		return err
	}
}

// preparePayload finalizes the recording and assembles the payload exactly
// once; retries reuse both.
func (s *Session) preparePayload() *model.SubmissionPayload {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pendingPayload != nil {
		return s.pendingPayload
	}

	var artifact *model.RecordingArtifact
	if s.withRecording {
		if s.pendingArtifact == nil {
			s.pendingArtifact = s.pipeline.Stop()
			s.storeRecordingLocked(s.pendingArtifact)
		}
		artifact = s.pendingArtifact
	}

	s.pendingPayload = submission.Assemble(s.Def, s.UserID, s.answers, artifact)
	return s.pendingPayload
}

// storeRecordingLocked writes the finalized artifact to blob storage as
// engine-side evidence. Best-effort: the submission still carries the
// bytes inline.
func (s *Session) storeRecordingLocked(artifact *model.RecordingArtifact) {
	if s.recordingStored || artifact == nil || artifact.SizeBytes == 0 {
		return
	}
	ref, _, err := s.mgr.blobs.Save(".rec", bytes.NewReader(artifact.Blob))
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to store recording blob")
		return
	}
	s.recordingStored = true
	s.log.Info().Str("blob_ref", ref).Int64("size", artifact.SizeBytes).Msg("recording stored")
}

// finalizeTerminated completes a forced termination: monitors down,
// recording finalized, automatic confirmation-free submission attempt with
// whatever answers exist. The session stays Terminated regardless of the
// submission outcome.
func (s *Session) finalizeTerminated(withRecording bool) {
	s.stopMonitors()

	s.mu.Lock()
	s.withRecording = s.withRecording && withRecording
	s.mu.Unlock()

	payload := s.preparePayload()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := s.mgr.protocol.Submit(ctx, payload); err != nil {
		s.log.Error().Err(err).Msg("automatic submission after termination failed")
	} else {
		s.log.Info().Int("score", payload.Score).Msg("automatic submission after termination accepted")
		s.emit(Event{Type: EventSubmitted, Score: payload.Score, Passed: payload.Passed})
	}

	s.cleanup()
}

// ─── Expiry and abandonment ────────────────────────────────────────────

// setupTimeout bounds how long a session may linger before activation.
const setupTimeout = 15 * time.Minute

// abandonTimeout is how long a session may go without any client signal
// before it is treated as navigated-away and discarded without saving.
const abandonTimeout = 10 * time.Minute

// tick is driven by the manager's reaper once per second.
func (s *Session) tick(now time.Time) {
	s.mu.Lock()

	if s.phase.Terminal() || s.phase == model.PhaseSubmitting {
		s.mu.Unlock()
		return
	}

	// Abandonment: no partial save, the session is simply discarded.
	idle := now.Sub(s.lastSeen)
	if (s.phase == model.PhaseNotStarted || s.phase == model.PhaseIntro) && now.Sub(s.createdAt) > setupTimeout {
		s.mu.Unlock()
		s.abandon()
		return
	}
	if idle > abandonTimeout {
		s.mu.Unlock()
		s.abandon()
		return
	}

	// Time expiry triggers the same transition as explicit submission,
	// bypassing the unanswered-question confirmation.
	if s.clock.Expired(now) && (s.phase == model.PhaseActive || s.phase == model.PhasePracticalSandbox) {
		if s.phase == model.PhasePracticalSandbox {
			if err := s.transitionTo(model.PhaseActive); err != nil {
				s.mu.Unlock()
				return
			}
		}
		if err := s.transitionTo(model.PhaseSubmitting); err != nil {
			s.mu.Unlock()
			return
		}
		s.clock.Freeze(now)
		s.log.Info().Msg("time expired, auto-submitting")
		s.mu.Unlock()

		// Off the reaper goroutine so one slow submission cannot stall
		// the sweep for every other live session.
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			_ = s.runSubmission(ctx)
		}()
		return
	}

	s.mu.Unlock()
}

// abandon discards a navigated-away session.
func (s *Session) abandon() {
	s.stopMonitors()
	s.mu.Lock()
	s.phase = model.PhaseTerminated
	s.ledger.Freeze()
	s.mu.Unlock()
	s.log.Info().Msg("session abandoned")
	s.cleanup()
}

// cleanup clears the session's hot state and releases it from the
// registry. Safe to call more than once.
func (s *Session) cleanup() {
	s.stopMonitors()

	ctx := context.Background()
	keys := []string{
		config.CacheKey.SessionAnswersKey(s.Def.ID, s.UserID),
		config.CacheKey.SessionStartKey(s.Def.ID, s.UserID),
		config.CacheKey.UserActiveTestKey(s.UserID, s.Def.ID),
	}
	if err := s.mgr.rdb.Del(ctx, keys...).Err(); err != nil && err != redis.Nil {
		s.log.Warn().Err(err).Msg("session cache cleanup failed")
	}

	s.mgr.remove(s)
}

// ─── State view ────────────────────────────────────────────────────────

// State returns the reconnect/reload view of the session.
func (s *Session) State() model.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()

	answers := make(map[string]model.Answer, len(s.answers))
	for k, v := range s.answers {
		answers[k] = v
	}

	rem := s.clock.Remaining(s.now())
	return model.SessionState{
		SessionID:      s.ID,
		TestID:         s.Def.ID,
		UserID:         s.UserID,
		Phase:          s.phase,
		QuestionIndex:  s.questionIndex,
		Remaining:      rem,
		RemainingSecs:  rem.Seconds(),
		ViolationCount: s.ledger.Count(),
		Answers:        answers,
	}
}

