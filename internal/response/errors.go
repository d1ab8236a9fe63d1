package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrTokenRequired ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid  ErrCode = "TOKEN_INVALID"
	ErrTokenExpired  ErrCode = "TOKEN_EXPIRED"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden ErrCode = "FORBIDDEN"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"
	ErrConflict ErrCode = "CONFLICT"

	// ─── Session-specific ──────────────────────────────────────────────
	ErrAlreadyAttempted     ErrCode = "ALREADY_ATTEMPTED"
	ErrSessionNotFound      ErrCode = "SESSION_NOT_FOUND"
	ErrSessionTerminal      ErrCode = "SESSION_TERMINAL"
	ErrInvalidPhase         ErrCode = "INVALID_PHASE"
	ErrTestUnavailable      ErrCode = "TEST_UNAVAILABLE"
	ErrDeviceUnavailable    ErrCode = "DEVICE_UNAVAILABLE"
	ErrDetectorUnavailable  ErrCode = "DETECTOR_UNAVAILABLE"
	ErrRecordingStreamEnded ErrCode = "RECORDING_STREAM_ENDED"
	ErrSubmissionFailed     ErrCode = "SUBMISSION_FAILED"

	// ─── Uploads ───────────────────────────────────────────────────────
	ErrFileRequired    ErrCode = "FILE_REQUIRED"
	ErrUnsupportedFile ErrCode = "UNSUPPORTED_FILE_TYPE"
	ErrFileTooLarge    ErrCode = "FILE_TOO_LARGE"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is invalid."
	case ErrTokenExpired:
		return "The authentication token has expired."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "You do not have permission to access this resource."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Invalid request payload."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."
	case ErrConflict:
		return "Resource already exists."

	// ─── Session-specific ──────────────────────────────────────────────
	case ErrAlreadyAttempted:
		return "You have already completed this test. Only one attempt is allowed."
	case ErrSessionNotFound:
		return "No active assessment session was found."
	case ErrSessionTerminal:
		return "This assessment session has already ended."
	case ErrInvalidPhase:
		return "This action is not allowed in the current session phase."
	case ErrTestUnavailable:
		return "The requested test is currently unavailable."
	case ErrDeviceUnavailable:
		return "Camera or screen capture is unavailable. Grant permission and retry."
	case ErrDetectorUnavailable:
		return "Face presence monitoring is unavailable. Reload the page and retry."
	case ErrRecordingStreamEnded:
		return "The screen recording stopped. The test has been ended."
	case ErrSubmissionFailed:
		return "Submitting your answers failed. Your work is preserved — retry."

	// ─── Uploads ───────────────────────────────────────────────────────
	case ErrFileRequired:
		return "A file upload is required."
	case ErrUnsupportedFile:
		return "The file type is not supported for this question."
	case ErrFileTooLarge:
		return "The file exceeds the size limit for this question."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
