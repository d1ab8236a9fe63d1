package handler

import (
	"errors"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/skillproof/proctor-backend/internal/blobstore"
	"github.com/skillproof/proctor-backend/internal/catalog"
	"github.com/skillproof/proctor-backend/internal/evaluation"
	"github.com/skillproof/proctor-backend/internal/middleware"
	"github.com/skillproof/proctor-backend/internal/model"
	"github.com/skillproof/proctor-backend/internal/response"
	"github.com/skillproof/proctor-backend/internal/session"
	"github.com/skillproof/proctor-backend/internal/validator"
)

// SessionHandler handles the REST session lifecycle: creation, state
// reads, attempt status, and practical-answer file uploads. The real-time
// signal traffic lives on the WebSocket stream.
type SessionHandler struct {
	catalog *catalog.Client
	eval    *evaluation.Client
	manager *session.Manager
	blobs   blobstore.Store
	log     zerolog.Logger
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(cat *catalog.Client, eval *evaluation.Client, manager *session.Manager, blobs blobstore.Store, log zerolog.Logger) *SessionHandler {
	return &SessionHandler{
		catalog: cat,
		eval:    eval,
		manager: manager,
		blobs:   blobs,
		log:     log.With().Str("component", "session_handler").Logger(),
	}
}

// CreateSession godoc
// POST /api/v1/exam/tests/:test_id/sessions
// Opens (or rejoins) a proctored session for the authenticated user. A
// completed prior attempt is a hard 409; re-entry past that point is
// impossible.
func (h *SessionHandler) CreateSession(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	testID := c.Param("test_id")

	var req model.StartSessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	if !*req.CameraReady || !*req.ScreenCapture {
		response.Fail(c, http.StatusConflict, response.ErrDeviceUnavailable)
		return
	}
	if !*req.DetectorLoaded {
		response.Fail(c, http.StatusConflict, response.ErrDetectorUnavailable)
		return
	}

	status, err := h.eval.CheckAttempt(c.Request.Context(), testID, claims.UserID)
	if err != nil {
		// The submission constraint still arbitrates; entry stays open when
		// the attempt check cannot be reached.
		h.log.Warn().Err(err).Str("test_id", testID).Msg("attempt pre-check unavailable")
	} else if status.HasAttempted {
		response.Fail(c, http.StatusConflict, response.ErrAlreadyAttempted)
		return
	}

	def, err := h.catalog.GetTest(c.Request.Context(), testID)
	if err != nil {
		if errors.Is(err, catalog.ErrTestNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrTestUnavailable)
			return
		}
		h.log.Error().Err(err).Str("test_id", testID).Msg("test definition fetch failed")
		response.Fail(c, http.StatusBadGateway, response.ErrTestUnavailable)
		return
	}

	sess, rejoined, err := h.manager.Create(c.Request.Context(), claims.UserID, def)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	code := http.StatusCreated
	if rejoined {
		code = http.StatusOK
	}
	response.Success(c, code, gin.H{
		"session":   sess.State(),
		"questions": def.ForCandidate(),
		"rejoined":  rejoined,
	})
}

// GetSession godoc
// GET /api/v1/exam/sessions/:session_id
// Returns the reconnect/reload snapshot of a live session.
func (h *SessionHandler) GetSession(c *gin.Context) {
	sess, ok := h.ownedSession(c)
	if !ok {
		return
	}
	response.Success(c, http.StatusOK, sess.State())
}

// GetAttemptStatus godoc
// GET /api/v1/exam/tests/:test_id/attempt
// Returns whether the user has already completed this test, with the
// recorded outcome when they have.
func (h *SessionHandler) GetAttemptStatus(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	status, err := h.eval.CheckAttempt(c.Request.Context(), c.Param("test_id"), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusBadGateway, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, status)
}

// UploadFiles godoc
// POST /api/v1/exam/sessions/:session_id/files
// Receives practical-answer files for one question. Extension and size
// limits come from the question definition; the set uploaded together
// replaces any previous set for that question.
func (h *SessionHandler) UploadFiles(c *gin.Context) {
	sess, ok := h.ownedSession(c)
	if !ok {
		return
	}

	questionID := c.PostForm("question_id")
	q := sess.Def.QuestionByID(questionID)
	if q == nil || q.Type != model.QuestionTypePractical {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	form, err := c.MultipartForm()
	if err != nil || len(form.File["files"]) == 0 {
		response.Fail(c, http.StatusBadRequest, response.ErrFileRequired)
		return
	}

	maxBytes := int64(q.MaxFileSizeMB) * 1024 * 1024
	refs := make([]model.FileRef, 0, len(form.File["files"]))
	for _, header := range form.File["files"] {
		if err := blobstore.ValidateExtension(header.Filename, q.AllowedFileExtensions); err != nil {
			response.Fail(c, http.StatusBadRequest, response.ErrUnsupportedFile)
			return
		}
		if maxBytes > 0 && header.Size > maxBytes {
			response.Fail(c, http.StatusBadRequest, response.ErrFileTooLarge)
			return
		}

		file, err := header.Open()
		if err != nil {
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
			return
		}
		ref, size, err := h.blobs.Save(filepath.Ext(header.Filename), file)
		file.Close()
		if err != nil {
			switch {
			case errors.Is(err, blobstore.ErrFileTooLarge):
				response.Fail(c, http.StatusBadRequest, response.ErrFileTooLarge)
			case errors.Is(err, blobstore.ErrUnsupportedFileType):
				response.Fail(c, http.StatusBadRequest, response.ErrUnsupportedFile)
			default:
				h.log.Error().Err(err).Msg("blob save failed")
				response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
			}
			return
		}

		refs = append(refs, model.FileRef{
			Name:      header.Filename,
			BlobRef:   ref,
			SizeBytes: size,
		})
	}

	if err := sess.AttachFileAnswer(questionID, refs); err != nil {
		h.failSessionError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"files": refs})
}

// ownedSession resolves :session_id and enforces ownership.
func (h *SessionHandler) ownedSession(c *gin.Context) (*session.Session, bool) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return nil, false
	}

	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return nil, false
	}

	sess, err := h.manager.Get(sessionID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrSessionNotFound)
		return nil, false
	}
	if sess.UserID != claims.UserID {
		response.Fail(c, http.StatusForbidden, response.ErrForbidden)
		return nil, false
	}
	return sess, true
}

func (h *SessionHandler) failSessionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, session.ErrSessionTerminal):
		response.Fail(c, http.StatusConflict, response.ErrSessionTerminal)
	case errors.Is(err, session.ErrInvalidPhase):
		response.Fail(c, http.StatusConflict, response.ErrInvalidPhase)
	case errors.Is(err, session.ErrQuestionNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
