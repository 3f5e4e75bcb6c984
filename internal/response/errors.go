package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrSessionActive      ErrCode = "SESSION_ALREADY_ACTIVE"
	ErrSessionInvalidated ErrCode = "SESSION_INVALIDATED"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"
	ErrTokenExpired       ErrCode = "TOKEN_EXPIRED"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden       ErrCode = "FORBIDDEN"
	ErrUserAccessOnly  ErrCode = "USER_ACCESS_ONLY"
	ErrAdminAccessOnly ErrCode = "ADMIN_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"
	ErrConflict ErrCode = "CONFLICT"

	// ─── Test-taking ───────────────────────────────────────────────────
	ErrTestNotFound        ErrCode = "TEST_NOT_FOUND"
	ErrTestNotActive       ErrCode = "TEST_NOT_ACTIVE"
	ErrNoActiveSession     ErrCode = "NO_ACTIVE_SESSION"
	ErrSessionSubmitted    ErrCode = "SESSION_ALREADY_SUBMITTED"
	ErrInvalidTransition   ErrCode = "INVALID_TRANSITION"
	ErrConfidenceRequired  ErrCode = "CONFIDENCE_REQUIRED"
	ErrDuplicateSubmission ErrCode = "DUPLICATE_SUBMISSION"
	ErrInvalidErrorType    ErrCode = "INVALID_ERROR_TYPE"
	ErrAnalysisNotAllowed  ErrCode = "ANALYSIS_NOT_ALLOWED"

	// ─── Authoring ─────────────────────────────────────────────────────
	ErrOptionCount         ErrCode = "OPTION_COUNT"
	ErrDuplicateOptions    ErrCode = "DUPLICATE_OPTIONS"
	ErrCorrectAnswerOption ErrCode = "CORRECT_ANSWER_NOT_AN_OPTION"
	ErrInvalidWindow       ErrCode = "INVALID_TEST_WINDOW"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
	ErrStorage  ErrCode = "STORAGE_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Email or password is incorrect."
	case ErrSessionActive:
		return "You are already logged in on another device."
	case ErrSessionInvalidated:
		return "Your session has ended. Please log in again."
	case ErrTokenRequired:
		return "Authentication token is required."
	case ErrTokenInvalid:
		return "Authentication token is invalid."
	case ErrTokenExpired:
		return "Authentication token has expired."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "You do not have permission to access this resource."
	case ErrUserAccessOnly:
		return "This resource is restricted to examinees."
	case ErrAdminAccessOnly:
		return "This resource is restricted to administrators."

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

	// ─── Test-taking ───────────────────────────────────────────────────
	case ErrTestNotFound:
		return "This test does not exist."
	case ErrTestNotActive:
		return "This test is not currently active."
	case ErrNoActiveSession:
		return "No open session for this test."
	case ErrSessionSubmitted:
		return "This test has already been submitted."
	case ErrInvalidTransition:
		return "That action is not allowed in the current session state."
	case ErrConfidenceRequired:
		return "Select a confidence level for every attempted question first."
	case ErrDuplicateSubmission:
		return "You have already submitted this test."
	case ErrInvalidErrorType:
		return "Unknown error type."
	case ErrAnalysisNotAllowed:
		return "Correct answers cannot be tagged with an error type."

	// ─── Authoring ─────────────────────────────────────────────────────
	case ErrOptionCount:
		return "A question needs at least three options."
	case ErrDuplicateOptions:
		return "Question options must be distinct."
	case ErrCorrectAnswerOption:
		return "The correct answer must match one of the options exactly."
	case ErrInvalidWindow:
		return "The start time must be before the end time."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "An internal server error occurred."
	case ErrStorage:
		return "A storage error occurred. It is safe to retry."
	default:
		return "An unexpected error occurred."
	}
}
