package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/skillproof/proctor-backend/internal/middleware"
	"github.com/skillproof/proctor-backend/internal/response"
	"github.com/skillproof/proctor-backend/internal/session"
	"github.com/skillproof/proctor-backend/internal/submission"
	ws "github.com/skillproof/proctor-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler handles the WebSocket session stream: proctoring signals and
// recording chunks in, engine events out.
type WSHandler struct {
	manager  *session.Manager
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(manager *session.Manager, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		manager:  manager,
		log:      log.With().Str("component", "ws_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// connEmitter bridges engine events onto the WebSocket. The wrapped Conn
// serializes writes, so emitting from monitor goroutines is safe.
type connEmitter struct {
	conn *ws.Conn
}

func (e connEmitter) Emit(ev session.Event) {
	var payload interface{}
	switch ev.Type {
	case session.EventPhase:
		payload = ws.PhaseResponse{Event: ws.EventPhase, Phase: string(ev.Phase)}
	case session.EventViolation:
		payload = ws.ViolationResponse{Event: ws.EventViolation, Reason: string(ev.Reason), Count: ev.ViolationCount}
	case session.EventOverlayShow:
		payload = ws.OverlayResponse{Event: ws.EventOverlayShow, Cause: ev.Message}
	case session.EventOverlayDismiss:
		payload = ws.OverlayResponse{Event: ws.EventOverlayDismiss}
	case session.EventRefocus:
		payload = ws.OverlayResponse{Event: ws.EventRefocus}
	case session.EventKioskAcquire:
		payload = ws.OverlayResponse{Event: ws.EventKioskAcquire}
	case session.EventKioskRelease:
		payload = ws.OverlayResponse{Event: ws.EventKioskRelease}
	case session.EventTerminated:
		payload = ws.TerminatedResponse{Event: ws.EventTerminated, Reason: ev.Message, Count: ev.ViolationCount}
	case session.EventSubmitted:
		payload = ws.SubmittedResponse{Event: ws.EventSubmitted, Score: ev.Score, Passed: ev.Passed, Message: ev.Message}
	case session.EventAlreadyAttempted:
		payload = ws.OverlayResponse{Event: ws.EventAlreadyAttempted}
	case session.EventSubmitRetry:
		payload = ws.OverlayResponse{Event: ws.EventSubmitRetry}
	case session.EventFatal:
		payload = ws.ErrorResponse{Event: ws.EventFatal, Error: ev.Message}
	default:
		return
	}
	_ = e.conn.WriteTyped(payload)
}

// SessionStream godoc
// WS /ws/v1/exam/sessions/:session_id/stream
// Upgrades to WebSocket for real-time proctoring signals, answer autosave,
// recording chunk upload, and engine event delivery.
func (h *WSHandler) SessionStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session ID"})
		return
	}

	sess, err := h.manager.Get(sessionID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	if sess.UserID != claims.UserID {
		c.JSON(http.StatusForbidden, gin.H{"error": "not your session"})
		return
	}

	raw, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	conn := ws.NewConn(raw)
	defer conn.Close()

	wsLog := h.log.With().
		Str("session_id", sessionID.String()).
		Str("user_id", claims.UserID).
		Logger()

	sess.AttachEmitter(connEmitter{conn: conn})
	defer sess.AttachEmitter(nil)

	// Reconnect support: the full state snapshot is the first frame.
	if err := conn.WriteTyped(gin.H{"event": ws.EventState, "state": sess.State()}); err != nil {
		wsLog.Warn().Err(err).Msg("initial state write failed")
		return
	}

	wsLog.Info().Msg("candidate connected")

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("unexpected close")
			} else {
				wsLog.Debug().Msg("connection closed")
			}
			break
		}

		if msgType == websocket.BinaryMessage {
			if err := sess.AppendRecordingChunk(data); err != nil {
				conn.WriteError(string(response.ErrRecordingStreamEnded), err.Error())
			}
			continue
		}

		var envelope ws.RequestEnvelope
		if err := json.Unmarshal(data, &envelope); err != nil {
			conn.WriteError(string(response.ErrInvalidPayload), "malformed message")
			continue
		}

		h.dispatch(c.Request.Context(), conn, wsLog, sess, envelope.Action, data)
	}
}

func (h *WSHandler) dispatch(ctx context.Context, conn *ws.Conn, wsLog zerolog.Logger, sess *session.Session, action ws.Action, data []byte) {
	switch action {
	case ws.ActionSetupReady:
		var msg ws.SetupReadyRequest
		if err := json.Unmarshal(data, &msg); err != nil {
			conn.WriteError(string(response.ErrInvalidPayload), "malformed setup_ready")
			return
		}
		h.reply(conn, action, sess.ConfirmSetup(msg.CameraReady, msg.DetectorLoaded, msg.ScreenCapture, msg.RecordingMime))

	case ws.ActionPresence:
		var msg ws.PresenceRequest
		if err := json.Unmarshal(data, &msg); err != nil {
			conn.WriteError(string(response.ErrInvalidPayload), "malformed presence")
			return
		}
		if err := sess.ReportPresence(msg.Faces); err != nil {
			h.reply(conn, action, err)
		}

	case ws.ActionFocus:
		var msg ws.FocusRequest
		if err := json.Unmarshal(data, &msg); err != nil {
			conn.WriteError(string(response.ErrInvalidPayload), "malformed focus")
			return
		}
		switch msg.State {
		case "lost":
			sess.ReportFocusLost(session.FocusLossCause(msg.Cause))
		case "restored":
			sess.ReportFocusRestored()
		default:
			conn.WriteError(string(response.ErrInvalidPayload), "focus state must be lost or restored")
		}

	case ws.ActionKeypress:
		var msg ws.KeypressRequest
		if err := json.Unmarshal(data, &msg); err != nil {
			conn.WriteError(string(response.ErrInvalidPayload), "malformed keypress")
			return
		}
		sess.ReportKeypress(msg.Key)

	case ws.ActionAnswer:
		var msg ws.AnswerRequest
		if err := json.Unmarshal(data, &msg); err != nil {
			conn.WriteError(string(response.ErrInvalidPayload), "malformed answer")
			return
		}
		h.reply(conn, action, sess.SaveChoiceAnswer(msg.QuestionID, msg.OptionIndex))

	case ws.ActionNavigate:
		var msg ws.NavigateRequest
		if err := json.Unmarshal(data, &msg); err != nil {
			conn.WriteError(string(response.ErrInvalidPayload), "malformed navigate")
			return
		}
		h.reply(conn, action, sess.Navigate(msg.Index))

	case ws.ActionSandboxEnter:
		h.reply(conn, action, sess.EnterSandbox())

	case ws.ActionSandboxExit:
		h.reply(conn, action, sess.ExitSandbox())

	case ws.ActionSubmit:
		var msg ws.SubmitRequest
		if err := json.Unmarshal(data, &msg); err != nil {
			conn.WriteError(string(response.ErrInvalidPayload), "malformed submit")
			return
		}
		h.handleSubmit(ctx, conn, wsLog, sess, msg.Confirmed)

	case ws.ActionRecordingEnded:
		sess.ReportRecordingEnded()

	case ws.ActionPing:
		conn.WriteTyped(ws.PongResponse{Event: ws.EventPong})

	default:
		wsLog.Warn().Str("action", string(action)).Msg("unknown action")
		conn.WriteError(string(response.ErrInvalidPayload), "unknown action: "+string(action))
	}
}

// reply acknowledges an action, mapping engine errors to typed codes.
func (h *WSHandler) reply(conn *ws.Conn, action ws.Action, err error) {
	if err == nil {
		conn.WriteTyped(ws.SuccessResponse{Event: ws.EventSuccess, Action: action})
		return
	}

	code := response.ErrInternal
	switch {
	case errors.Is(err, session.ErrSessionTerminal):
		code = response.ErrSessionTerminal
	case errors.Is(err, session.ErrInvalidPhase),
		errors.Is(err, session.ErrSubmitInProgress),
		errors.Is(err, session.ErrNotPractical):
		code = response.ErrInvalidPhase
	case errors.Is(err, session.ErrDeviceUnavailable):
		code = response.ErrDeviceUnavailable
	case errors.Is(err, session.ErrDetectorUnavailable):
		code = response.ErrDetectorUnavailable
	case errors.Is(err, session.ErrQuestionNotFound):
		code = response.ErrNotFound
	case errors.Is(err, session.ErrInvalidOption),
		errors.Is(err, session.ErrInvalidIndex):
		code = response.ErrInvalidPayload
	}
	conn.WriteError(string(code), err.Error())
}

func (h *WSHandler) handleSubmit(ctx context.Context, conn *ws.Conn, wsLog zerolog.Logger, sess *session.Session, confirmed bool) {
	err := sess.Submit(ctx, confirmed)
	switch {
	case err == nil:
		// Outcome already delivered through the submitted event.
	case errors.Is(err, session.ErrConfirmationRequired):
		conn.WriteTyped(ws.ConfirmSubmitResponse{
			Event:      ws.EventConfirmSubmit,
			Unanswered: countUnanswered(sess),
		})
	case errors.Is(err, submission.ErrAlreadyAttempted):
		// Mapped to the already_attempted event by the engine.
	default:
		wsLog.Error().Err(err).Msg("submit failed")
		conn.WriteError(string(response.ErrSubmissionFailed), err.Error())
	}
}

func countUnanswered(sess *session.Session) int {
	state := sess.State()
	n := 0
	for i := range sess.Def.Questions {
		if _, ok := state.Answers[sess.Def.Questions[i].ID]; !ok {
			n++
		}
	}
	return n
}
