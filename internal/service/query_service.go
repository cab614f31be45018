package service

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/stemsi/qbank-core/internal/domain"
	"github.com/stemsi/qbank-core/internal/model"
	"github.com/stemsi/qbank-core/internal/outcome"
	"github.com/stemsi/qbank-core/internal/port"
	"github.com/stemsi/qbank-core/internal/query"
	"github.com/stemsi/qbank-core/internal/validation"
)

// QuestionQueryService lists the questions of a bank.
type QuestionQueryService struct {
	chain  validation.Chain[model.QueryQuestionsQuery]
	repo   port.QuestionQueryRepository
	policy validation.RetryPolicy
	log    zerolog.Logger
}

// NewQuestionQueryService creates a new QuestionQueryService.
func NewQuestionQueryService(deps Deps) *QuestionQueryService {
	log := deps.Log.With().Str("component", "question_query").Logger()
	return &QuestionQueryService{
		chain:  validation.ScopedChain[model.QueryQuestionsQuery](deps.Banks, deps.Retry, log),
		repo:   deps.Query,
		policy: deps.Retry,
		log:    log,
	}
}

func (s *QuestionQueryService) Handle(ctx context.Context, q model.QueryQuestionsQuery) outcome.Outcome[model.Page[model.QuestionView]] {
	if v := s.chain.Validate(ctx, q); v.IsFailure() {
		return outcome.Propagate[model.Page[model.QuestionView]](v)
	}

	p, err := query.FromFilter(q.Scope(), q.Filter).Build()
	if err != nil {
		return outcome.FailureFrom[model.Page[model.QuestionView]](outcome.CodeInvalidQuery, err)
	}

	return validation.Retry(ctx, s.policy, s.log, "question query", func(ctx context.Context) outcome.Outcome[model.Page[model.QuestionView]] {
		return s.repo.Query(ctx, p)
	})
}

// QuestionDetailService loads one question with its relationships.
type QuestionDetailService struct {
	chain         validation.Chain[model.GetQuestionQuery]
	questions     port.QuestionRepository
	relationships port.QuestionTaxonomyRelationshipRepository
	policy        validation.RetryPolicy
	log           zerolog.Logger
}

// NewQuestionDetailService creates a new QuestionDetailService.
func NewQuestionDetailService(deps Deps) *QuestionDetailService {
	log := deps.Log.With().Str("component", "question_detail").Logger()
	return &QuestionDetailService{
		chain:         validation.ScopedChain[model.GetQuestionQuery](deps.Banks, deps.Retry, log),
		questions:     deps.Questions,
		relationships: deps.Relationships,
		policy:        deps.Retry,
		log:           log,
	}
}

func (s *QuestionDetailService) Handle(ctx context.Context, q model.GetQuestionQuery) outcome.Outcome[model.QuestionDetail] {
	if err := q.Key().Validate(); err != nil {
		return outcome.FailureFrom[model.QuestionDetail](outcome.CodeInvalidCommand, err)
	}
	if v := s.chain.Validate(ctx, q); v.IsFailure() {
		return outcome.Propagate[model.QuestionDetail](v)
	}

	found := validation.Retry(ctx, s.policy, s.log, "question lookup", func(ctx context.Context) outcome.Outcome[*domain.Question] {
		return s.questions.FindBySourceQuestionID(ctx, q.Key())
	})
	if found.IsFailure() {
		return outcome.Propagate[model.QuestionDetail](found)
	}
	question := found.Value()
	if question == nil {
		return outcome.Failuref[model.QuestionDetail](outcome.CodeQuestionNotFound, "question %s not found", q.Key())
	}

	rels := s.relationships.ListByQuestion(ctx, q.UserID, q.QuestionBankID, question.ID())
	if rels.IsFailure() {
		return outcome.Propagate[model.QuestionDetail](rels)
	}

	st := question.State()
	return outcome.Success(model.QuestionDetail{
		QuestionView:  model.NewQuestionView(st),
		TypeData:      st.TypeData,
		PublishedAt:   st.PublishedAt,
		ArchivedAt:    st.ArchivedAt,
		Relationships: rels.Value(),
	})
}
