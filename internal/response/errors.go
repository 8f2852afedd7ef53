package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrTokenRequired     ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid      ErrCode = "TOKEN_INVALID"
	ErrInvalidAccessCode ErrCode = "INVALID_ACCESS_CODE"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidSection ErrCode = "INVALID_SECTION"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound       ErrCode = "NOT_FOUND"
	ErrNoSession      ErrCode = "NO_ACTIVE_SESSION"
	ErrExamTerminated ErrCode = "EXAM_TERMINATED"
	ErrExamFinished   ErrCode = "EXAM_ALREADY_FINISHED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is invalid."
	case ErrInvalidAccessCode:
		return "The exam access code is incorrect."
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidSection:
		return "Unknown exam section."
	case ErrInvalidPayload:
		return "The request payload is invalid."
	case ErrNotFound:
		return "Resource not found."
	case ErrNoSession:
		return "No active exam session."
	case ErrExamTerminated:
		return "The exam has been terminated due to integrity violations."
	case ErrExamFinished:
		return "The exam has already been finished."
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
