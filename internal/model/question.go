package model

import (
	"github.com/stemsi/qbank-core/internal/domain"
)

// QuestionURI carries the path parameters of question routes.
type QuestionURI struct {
	UserID           int64  `uri:"user_id" binding:"required,gt=0"`
	QuestionBankID   int64  `uri:"bank_id" binding:"required,gt=0"`
	SourceQuestionID string `uri:"source_id" binding:"omitempty,max=255"`
}

// Scope returns the tenant scope named by the path.
func (u QuestionURI) Scope() TenantScope {
	return TenantScope{UserID: u.UserID, QuestionBankID: u.QuestionBankID}
}

// UpsertQuestionRequest is the payload for creating or updating a question.
type UpsertQuestionRequest struct {
	Type      string                `json:"type" binding:"required,question_type"`
	Title     string                `json:"title" binding:"required,max=255"`
	Content   string                `json:"content" binding:"required,max=4000"`
	Points    float64               `json:"points" binding:"gte=0"`
	Taxonomy  domain.Taxonomy       `json:"taxonomy"`
	MCQ       *domain.MCQData       `json:"mcq_data,omitempty"`
	Essay     *domain.EssayData     `json:"essay_data,omitempty"`
	TrueFalse *domain.TrueFalseData `json:"true_false_data,omitempty"`
}

// ToCommand builds the upsert command for the given path.
func (r UpsertQuestionRequest) ToCommand(uri QuestionURI) UpsertQuestionCommand {
	return UpsertQuestionCommand{
		TenantScope:      uri.Scope(),
		SourceQuestionID: uri.SourceQuestionID,
		Type:             domain.QuestionType(r.Type),
		Title:            r.Title,
		Content:          r.Content,
		Points:           r.Points,
		Taxonomy:         r.Taxonomy,
		MCQ:              r.MCQ,
		Essay:            r.Essay,
		TrueFalse:        r.TrueFalse,
	}
}

// ListQuestionsRequest carries the query-string filter of a listing.
type ListQuestionsRequest struct {
	Categories []string `form:"category" json:"category" binding:"max=4,dive,required"`
	Tags       []string `form:"tag" json:"tag" binding:"dive,required"`
	Quizzes    []int64  `form:"quiz" json:"quiz" binding:"dive,gt=0"`
	Types      []string `form:"type" json:"type" binding:"dive,question_type"`
	Statuses   []string `form:"status" json:"status" binding:"dive,question_status"`
	SearchText string   `form:"q" json:"q" binding:"max=200"`
	SortBy     string   `form:"sort_by" json:"sort_by"`
	SortOrder  string   `form:"sort_order" json:"sort_order" binding:"omitempty,oneof=asc desc"`
	Page       int      `form:"page" json:"page" binding:"min=0"`
	Size       int      `form:"size" json:"size" binding:"min=0,max=100"`
}

// ToQuery builds the listing query for the given path.
func (r ListQuestionsRequest) ToQuery(uri QuestionURI) QueryQuestionsQuery {
	types := make([]domain.QuestionType, len(r.Types))
	for i, t := range r.Types {
		types[i] = domain.QuestionType(t)
	}
	statuses := make([]domain.QuestionStatus, len(r.Statuses))
	for i, s := range r.Statuses {
		statuses[i] = domain.QuestionStatus(s)
	}
	return QueryQuestionsQuery{
		TenantScope: uri.Scope(),
		Filter: QuestionFilter{
			Categories: r.Categories,
			Tags:       r.Tags,
			Quizzes:    r.Quizzes,
			Types:      types,
			Statuses:   statuses,
			SearchText: r.SearchText,
			SortBy:     r.SortBy,
			SortOrder:  r.SortOrder,
			Page:       r.Page,
			Size:       r.Size,
		},
	}
}
