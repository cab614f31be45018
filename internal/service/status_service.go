package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/qbank-core/internal/domain"
	"github.com/stemsi/qbank-core/internal/model"
	"github.com/stemsi/qbank-core/internal/outcome"
	"github.com/stemsi/qbank-core/internal/port"
	"github.com/stemsi/qbank-core/internal/validation"
)

// QuestionStatusService publishes and archives questions.
type QuestionStatusService struct {
	chain         validation.Chain[model.ChangeQuestionStatusCommand]
	tx            port.TxManager
	questions     port.QuestionRepository
	relationships port.QuestionTaxonomyRelationshipRepository
	sink          port.ChangeSink
	now           func() time.Time
	log           zerolog.Logger
}

// NewQuestionStatusService creates a new QuestionStatusService.
func NewQuestionStatusService(deps Deps) *QuestionStatusService {
	log := deps.Log.With().Str("component", "question_status").Logger()
	return &QuestionStatusService{
		chain:         validation.ScopedChain[model.ChangeQuestionStatusCommand](deps.Banks, deps.Retry, log),
		tx:            deps.Tx,
		questions:     deps.Questions,
		relationships: deps.Relationships,
		sink:          deps.Sink,
		now:           deps.Now,
		log:           log,
	}
}

type statusChanged struct {
	resp   model.QuestionResponse
	record domain.ChangeRecord
}

func (s *QuestionStatusService) Handle(ctx context.Context, cmd model.ChangeQuestionStatusCommand) (res outcome.Outcome[model.QuestionResponse]) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Interface("panic", r).Str("key", cmd.Key().String()).Msg("Status change panicked")
			res = outcome.Failuref[model.QuestionResponse](outcome.CodeStatusChangeError, "status change failed: %v", r)
		}
	}()

	if err := cmd.Key().Validate(); err != nil {
		return outcome.FailureFrom[model.QuestionResponse](outcome.CodeInvalidCommand, err)
	}
	if cmd.Action != model.StatusActionPublish && cmd.Action != model.StatusActionArchive {
		return outcome.Failuref[model.QuestionResponse](outcome.CodeInvalidCommand, "unknown status action %q", cmd.Action)
	}
	if v := s.chain.Validate(ctx, cmd); v.IsFailure() {
		return outcome.Propagate[model.QuestionResponse](v)
	}

	var changed statusChanged
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		o := s.apply(ctx, cmd)
		if o.IsFailure() {
			return o.Err()
		}
		changed = o.Value()
		return nil
	})
	if err != nil {
		return outcome.FromError[model.QuestionResponse](err, outcome.CodeStatusChangeError)
	}

	publishChanges(ctx, s.sink, s.log, []domain.ChangeRecord{changed.record})
	s.log.Info().
		Str("key", cmd.Key().String()).
		Str("status", string(changed.resp.Status)).
		Msg("Question status changed")
	return outcome.SuccessWithMessage(changed.resp, "Question "+string(changed.resp.Status))
}

func (s *QuestionStatusService) apply(ctx context.Context, cmd model.ChangeQuestionStatusCommand) outcome.Outcome[statusChanged] {
	found := s.questions.FindBySourceQuestionID(ctx, cmd.Key())
	if found.IsFailure() {
		return outcome.Propagate[statusChanged](found)
	}
	q := found.Value()
	if q == nil {
		return outcome.Failuref[statusChanged](outcome.CodeQuestionNotFound, "question %s not found", cmd.Key())
	}

	now := clock(s.now)
	var (
		rec domain.ChangeRecord
		err error
	)
	switch cmd.Action {
	case model.StatusActionPublish:
		rec, err = q.Publish(now)
	case model.StatusActionArchive:
		rec, err = q.Archive(now)
	}
	switch {
	case errors.Is(err, domain.ErrInvalidTransition):
		return outcome.FailureFrom[statusChanged](outcome.CodeInvalidStatusTransition, err)
	case err != nil:
		return outcome.FailureFrom[statusChanged](outcome.CodeInvalidAggregate, err)
	}

	if u := s.questions.UpdateStatus(ctx, q); u.IsFailure() {
		return outcome.Propagate[statusChanged](u)
	}
	rels := s.relationships.ListByQuestion(ctx, cmd.UserID, cmd.QuestionBankID, q.ID())
	if rels.IsFailure() {
		return outcome.Propagate[statusChanged](rels)
	}
	return outcome.Success(statusChanged{
		resp:   model.NewQuestionResponse(q, model.OperationUpdated, len(rels.Value())),
		record: rec,
	})
}
