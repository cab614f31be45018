package model

import (
	"github.com/stemsi/qbank-core/internal/domain"
	"github.com/stemsi/qbank-core/internal/mediator"
)

// TenantScope identifies the owner and question bank every request acts on.
type TenantScope struct {
	UserID         int64 `json:"user_id"`
	QuestionBankID int64 `json:"question_bank_id"`
}

// Scope returns the scope itself so that embedding structs satisfy Scoped.
func (s TenantScope) Scope() TenantScope { return s }

// Valid reports whether both ids are set.
func (s TenantScope) Valid() bool { return s.UserID != 0 && s.QuestionBankID != 0 }

// Scoped is implemented by every command and query.
type Scoped interface {
	Scope() TenantScope
}

// UpsertQuestionCommand creates or updates the question identified by
// (scope, SourceQuestionID) together with its taxonomy relationships.
type UpsertQuestionCommand struct {
	mediator.CommandOf[QuestionResponse]
	TenantScope

	SourceQuestionID string
	Type             domain.QuestionType
	Title            string
	Content          string
	Points           float64
	Taxonomy         domain.Taxonomy

	MCQ       *domain.MCQData
	Essay     *domain.EssayData
	TrueFalse *domain.TrueFalseData
}

func (UpsertQuestionCommand) RequestName() string { return "upsert_question" }

// Key returns the business key the command targets.
func (c UpsertQuestionCommand) Key() domain.BusinessKey {
	return domain.BusinessKey{
		UserID:           c.UserID,
		QuestionBankID:   c.QuestionBankID,
		SourceQuestionID: c.SourceQuestionID,
	}
}

// TypeData returns the payload matching the declared type, or nil.
func (c UpsertQuestionCommand) TypeData() domain.TypeData {
	switch c.Type {
	case domain.QuestionTypeMCQ:
		if c.MCQ != nil {
			return c.MCQ
		}
	case domain.QuestionTypeEssay:
		if c.Essay != nil {
			return c.Essay
		}
	case domain.QuestionTypeTrueFalse:
		if c.TrueFalse != nil {
			return c.TrueFalse
		}
	}
	return nil
}

// PayloadCount returns how many type-specific payloads are set.
func (c UpsertQuestionCommand) PayloadCount() int {
	n := 0
	if c.MCQ != nil {
		n++
	}
	if c.Essay != nil {
		n++
	}
	if c.TrueFalse != nil {
		n++
	}
	return n
}

// StatusAction is a lifecycle move requested on a question.
type StatusAction string

const (
	StatusActionPublish StatusAction = "publish"
	StatusActionArchive StatusAction = "archive"
)

// ChangeQuestionStatusCommand publishes or archives an existing question.
type ChangeQuestionStatusCommand struct {
	mediator.CommandOf[QuestionResponse]
	TenantScope

	SourceQuestionID string
	Action           StatusAction
}

func (ChangeQuestionStatusCommand) RequestName() string { return "change_question_status" }

// Key returns the business key the command targets.
func (c ChangeQuestionStatusCommand) Key() domain.BusinessKey {
	return domain.BusinessKey{
		UserID:           c.UserID,
		QuestionBankID:   c.QuestionBankID,
		SourceQuestionID: c.SourceQuestionID,
	}
}
