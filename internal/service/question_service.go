package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/qbank-core/internal/domain"
	"github.com/stemsi/qbank-core/internal/model"
	"github.com/stemsi/qbank-core/internal/outcome"
	"github.com/stemsi/qbank-core/internal/port"
	"github.com/stemsi/qbank-core/internal/validation"
)

// UpsertQuestionService creates or updates a question and replaces its
// taxonomy relationships in one transaction.
type UpsertQuestionService struct {
	chain         validation.Chain[model.UpsertQuestionCommand]
	strategies    Strategies
	tx            port.TxManager
	questions     port.QuestionRepository
	relationships port.QuestionTaxonomyRelationshipRepository
	sink          port.ChangeSink
	now           func() time.Time
	log           zerolog.Logger
}

// NewUpsertQuestionService creates a new UpsertQuestionService.
func NewUpsertQuestionService(deps Deps, strategies Strategies) *UpsertQuestionService {
	log := deps.Log.With().Str("component", "upsert_question").Logger()
	return &UpsertQuestionService{
		chain:         validation.UpsertChain(deps.Banks, deps.Taxonomies, deps.Retry, log),
		strategies:    strategies,
		tx:            deps.Tx,
		questions:     deps.Questions,
		relationships: deps.Relationships,
		sink:          deps.Sink,
		now:           deps.Now,
		log:           log,
	}
}

type upserted struct {
	resp    model.QuestionResponse
	records []domain.ChangeRecord
}

// Handle validates the command, then persists the question and its
// relationships. Failures of either write roll back both.
func (s *UpsertQuestionService) Handle(ctx context.Context, cmd model.UpsertQuestionCommand) (res outcome.Outcome[model.QuestionResponse]) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Interface("panic", r).Str("key", cmd.Key().String()).Msg("Upsert panicked")
			res = outcome.Failuref[model.QuestionResponse](outcome.CodeUpsertError, "upsert failed: %v", r)
		}
	}()

	if err := cmd.Key().Validate(); err != nil {
		return outcome.FailureFrom[model.QuestionResponse](outcome.CodeInvalidCommand, err)
	}
	if v := s.chain.Validate(ctx, cmd); v.IsFailure() {
		s.log.Debug().Str("key", cmd.Key().String()).Str("code", string(v.Code())).Msg("Upsert rejected")
		return outcome.Propagate[model.QuestionResponse](v)
	}

	var written upserted
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		o := s.persist(ctx, cmd)
		if o.IsFailure() {
			return o.Err()
		}
		written = o.Value()
		return nil
	})
	if err != nil {
		failed := outcome.FromError[model.QuestionResponse](err, outcome.CodeUpsertError)
		s.log.Warn().Err(err).Str("key", cmd.Key().String()).Str("code", string(failed.Code())).Msg("Upsert failed")
		return failed
	}

	publishChanges(ctx, s.sink, s.log, written.records)

	s.log.Info().
		Str("key", cmd.Key().String()).
		Str("question_id", written.resp.ID.String()).
		Str("operation", written.resp.Operation).
		Int("relationships", written.resp.RelationshipCount).
		Msg("Question upserted")

	msg := "Question updated"
	if written.resp.Operation == model.OperationCreated {
		msg = "Question created"
	}
	return outcome.SuccessWithMessage(written.resp, msg)
}

func (s *UpsertQuestionService) persist(ctx context.Context, cmd model.UpsertQuestionCommand) outcome.Outcome[upserted] {
	now := clock(s.now)

	found := s.questions.FindBySourceQuestionID(ctx, cmd.Key())
	if found.IsFailure() {
		return outcome.Propagate[upserted](found)
	}

	strategy, ok := s.strategies.Resolve(cmd.Type)
	if !ok {
		return outcome.Failuref[upserted](outcome.CodeInvalidAggregate, "no strategy for question type %q", cmd.Type)
	}

	var (
		q       *domain.Question
		records []domain.ChangeRecord
		err     error
	)
	if existing := found.Value(); existing == nil {
		q, records, err = strategy.Create(cmd, now)
	} else {
		q = existing
		records, err = strategy.Update(q, cmd, now)
	}
	if err != nil {
		return outcome.FailureFrom[upserted](outcome.CodeInvalidAggregate, err)
	}
	if !q.HasValidTypeSpecificData() {
		return outcome.Failure[upserted](outcome.CodeInvalidAggregate, "question has no valid type-specific data")
	}

	saved := s.questions.UpsertBySourceQuestionID(ctx, q)
	if saved.IsFailure() {
		return outcome.Propagate[upserted](saved)
	}
	stored := saved.Value()
	if stored == nil || stored.ID() == uuid.Nil {
		return outcome.Failure[upserted](outcome.CodeInvalidQuestionID, "persisted question has no identifier")
	}

	rels := domain.BuildRelationships(cmd.UserID, cmd.QuestionBankID, stored.ID(), cmd.Taxonomy, now)
	replaced := s.relationships.ReplaceRelationshipsForQuestion(ctx, cmd.UserID, cmd.QuestionBankID, stored.ID(), rels)
	if replaced.IsFailure() {
		return outcome.Propagate[upserted](replaced)
	}

	op := model.OperationUpdated
	if stored.IsNew() {
		op = model.OperationCreated
	}
	return outcome.Success(upserted{
		resp:    model.NewQuestionResponse(stored, op, replaced.Value()),
		records: domain.WithQuestionID(records, stored.ID()),
	})
}
