package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/qbank-core/internal/domain"
)

// Upsert operations reported in QuestionResponse.
const (
	OperationCreated = "created"
	OperationUpdated = "updated"
)

// QuestionResponse is the result of a write on a question.
type QuestionResponse struct {
	ID                uuid.UUID             `json:"id"`
	UserID            int64                 `json:"user_id"`
	QuestionBankID    int64                 `json:"question_bank_id"`
	SourceQuestionID  string                `json:"source_question_id"`
	Type              domain.QuestionType   `json:"type"`
	Title             string                `json:"title"`
	Status            domain.QuestionStatus `json:"status"`
	Operation         string                `json:"operation"`
	RelationshipCount int                   `json:"relationship_count"`
	CreatedAt         time.Time             `json:"created_at"`
	UpdatedAt         time.Time             `json:"updated_at"`
	PublishedAt       *time.Time            `json:"published_at,omitempty"`
	ArchivedAt        *time.Time            `json:"archived_at,omitempty"`
}

// NewQuestionResponse projects a persisted question.
func NewQuestionResponse(q *domain.Question, operation string, relationships int) QuestionResponse {
	s := q.State()
	return QuestionResponse{
		ID:                s.ID,
		UserID:            s.Key.UserID,
		QuestionBankID:    s.Key.QuestionBankID,
		SourceQuestionID:  s.Key.SourceQuestionID,
		Type:              s.Type,
		Title:             s.Title,
		Status:            s.Status,
		Operation:         operation,
		RelationshipCount: relationships,
		CreatedAt:         s.CreatedAt,
		UpdatedAt:         s.UpdatedAt,
		PublishedAt:       s.PublishedAt,
		ArchivedAt:        s.ArchivedAt,
	}
}

// QuestionView is one row of a question listing.
type QuestionView struct {
	ID               uuid.UUID             `json:"id"`
	SourceQuestionID string                `json:"source_question_id"`
	Type             domain.QuestionType   `json:"type"`
	Title            string                `json:"title"`
	Content          string                `json:"content"`
	Points           float64               `json:"points"`
	Status           domain.QuestionStatus `json:"status"`
	CreatedAt        time.Time             `json:"created_at"`
	UpdatedAt        time.Time             `json:"updated_at"`
	Score            float64               `json:"score,omitempty"`
}

// NewQuestionView projects a question into a listing row.
func NewQuestionView(s domain.QuestionState) QuestionView {
	return QuestionView{
		ID:               s.ID,
		SourceQuestionID: s.Key.SourceQuestionID,
		Type:             s.Type,
		Title:            s.Title,
		Content:          s.Content,
		Points:           s.Points,
		Status:           s.Status,
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        s.UpdatedAt,
	}
}

// QuestionDetail is a question with its payload and relationship rows.
type QuestionDetail struct {
	QuestionView
	TypeData      domain.TypeData               `json:"type_data"`
	PublishedAt   *time.Time                    `json:"published_at,omitempty"`
	ArchivedAt    *time.Time                    `json:"archived_at,omitempty"`
	Relationships []domain.TaxonomyRelationship `json:"relationships"`
}

// Page is one page of a listing.
type Page[T any] struct {
	Items      []T   `json:"items"`
	Page       int   `json:"page"`
	Size       int   `json:"size"`
	TotalItems int64 `json:"total_items"`
	TotalPages int   `json:"total_pages"`
}

// NewPage fills in TotalPages from total and size.
func NewPage[T any](items []T, page, size int, total int64) Page[T] {
	if items == nil {
		items = []T{}
	}
	pages := 0
	if size > 0 {
		pages = int((total + int64(size) - 1) / int64(size))
	}
	return Page[T]{Items: items, Page: page, Size: size, TotalItems: total, TotalPages: pages}
}
