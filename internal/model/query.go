package model

import (
	"github.com/stemsi/qbank-core/internal/domain"
	"github.com/stemsi/qbank-core/internal/mediator"
)

// Sort orders accepted by QuestionFilter.
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// QuestionFilter narrows and orders a question listing. Categories are
// matched with AND semantics; tags, quizzes, types and statuses with OR.
type QuestionFilter struct {
	Categories []string
	Tags       []string
	Quizzes    []int64
	Types      []domain.QuestionType
	Statuses   []domain.QuestionStatus
	SearchText string
	SortBy     string
	SortOrder  string
	Page       int
	Size       int
}

// QueryQuestionsQuery lists questions of one bank.
type QueryQuestionsQuery struct {
	mediator.QueryOf[Page[QuestionView]]
	TenantScope

	Filter QuestionFilter
}

func (QueryQuestionsQuery) RequestName() string { return "query_questions" }

// GetQuestionQuery loads one question with its relationships.
type GetQuestionQuery struct {
	mediator.QueryOf[QuestionDetail]
	TenantScope

	SourceQuestionID string
}

func (GetQuestionQuery) RequestName() string { return "get_question" }

// Key returns the business key the query targets.
func (q GetQuestionQuery) Key() domain.BusinessKey {
	return domain.BusinessKey{
		UserID:           q.UserID,
		QuestionBankID:   q.QuestionBankID,
		SourceQuestionID: q.SourceQuestionID,
	}
}

// ChangeStream delivers the committed change records of one bank until it
// is closed. Records is closed when the stream ends.
type ChangeStream interface {
	Records() <-chan domain.ChangeRecord
	Close() error
}

// WatchChangesQuery opens a live stream of a bank's change records.
type WatchChangesQuery struct {
	mediator.QueryOf[ChangeStream]
	TenantScope
}

func (WatchChangesQuery) RequestName() string { return "watch_changes" }
