package outcome

// Code is a stable failure identifier surfaced to callers.
type Code string

const (
	// ─── Validation chain ──────────────────────────────────────────────
	CodeUnauthorizedAccess        Code = "UNAUTHORIZED_ACCESS"
	CodeRetryExhausted            Code = "RETRY_EXHAUSTED"
	CodeTaxonomyReferenceNotFound Code = "TAXONOMY_REFERENCE_NOT_FOUND"
	CodeTypeDataMismatch          Code = "TYPE_DATA_MISMATCH"
	CodeInvalidCommand            Code = "INVALID_COMMAND"

	// ─── Orchestration ─────────────────────────────────────────────────
	CodeInvalidAggregate        Code = "INVALID_AGGREGATE"
	CodeInvalidQuestionID       Code = "INVALID_QUESTION_ID"
	CodeUpsertError             Code = "UPSERT_ERROR"
	CodeQuestionNotFound        Code = "QUESTION_NOT_FOUND"
	CodeInvalidStatusTransition Code = "INVALID_STATUS_TRANSITION"
	CodeStatusChangeError       Code = "STATUS_CHANGE_ERROR"
	CodeInvalidQuery            Code = "INVALID_QUERY"

	// ─── Dispatcher ────────────────────────────────────────────────────
	CodeNoHandler    Code = "NO_HANDLER"
	CodeHandlerPanic Code = "HANDLER_PANIC"

	// ─── Persistence ───────────────────────────────────────────────────
	CodeDatabaseError         Code = "DATABASE_ERROR"
	CodeCacheError            Code = "CACHE_ERROR"
	CodeWriteConflict         Code = "WRITE_CONFLICT"
	CodeDuplicateRelationship Code = "DUPLICATE_RELATIONSHIP"
	CodeNotFound              Code = "NOT_FOUND"
)

// IsTransient reports whether a failure code denotes an infrastructure
// condition that may clear on its own and is worth retrying.
func IsTransient(code Code) bool {
	switch code {
	case CodeDatabaseError, CodeCacheError, CodeWriteConflict:
		return true
	default:
		return false
	}
}
