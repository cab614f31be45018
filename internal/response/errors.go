package response

import (
	"net/http"

	"github.com/stemsi/qbank-core/internal/outcome"
)

// ErrCode is a typed error code enum for consistent API error identification.
// Dispatcher failures reuse their outcome code verbatim.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrTokenRequired ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid  ErrCode = "TOKEN_INVALID"
	ErrTokenExpired  ErrCode = "TOKEN_EXPIRED"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrTokenRequired:
		return "Authentication token is required."
	case ErrTokenInvalid:
		return "Authentication token is invalid."
	case ErrTokenExpired:
		return "Authentication token has expired."

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

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}

// StatusFor maps an outcome code to the HTTP status it is reported with.
func StatusFor(code outcome.Code) int {
	switch code {
	case outcome.CodeUnauthorizedAccess:
		return http.StatusForbidden
	case outcome.CodeInvalidCommand, outcome.CodeInvalidQuery,
		outcome.CodeTypeDataMismatch, outcome.CodeInvalidAggregate:
		return http.StatusBadRequest
	case outcome.CodeTaxonomyReferenceNotFound:
		return http.StatusUnprocessableEntity
	case outcome.CodeQuestionNotFound, outcome.CodeNotFound:
		return http.StatusNotFound
	case outcome.CodeInvalidStatusTransition, outcome.CodeWriteConflict, outcome.CodeDuplicateRelationship:
		return http.StatusConflict
	case outcome.CodeRetryExhausted, outcome.CodeDatabaseError, outcome.CodeCacheError:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
