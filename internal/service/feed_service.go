package service

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/stemsi/qbank-core/internal/model"
	"github.com/stemsi/qbank-core/internal/outcome"
	"github.com/stemsi/qbank-core/internal/port"
	"github.com/stemsi/qbank-core/internal/validation"
)

// ChangeFeedService opens live change streams for banks the caller owns.
type ChangeFeedService struct {
	chain validation.Chain[model.WatchChangesQuery]
	feed  port.ChangeFeed
	log   zerolog.Logger
}

// NewChangeFeedService creates a new ChangeFeedService.
func NewChangeFeedService(deps Deps) *ChangeFeedService {
	log := deps.Log.With().Str("component", "change_feed").Logger()
	return &ChangeFeedService{
		chain: validation.ScopedChain[model.WatchChangesQuery](deps.Banks, deps.Retry, log),
		feed:  deps.Feed,
		log:   log,
	}
}

// Handle subscribes after the same security and ownership checks every
// other request passes. The caller owns the returned stream.
func (s *ChangeFeedService) Handle(ctx context.Context, q model.WatchChangesQuery) outcome.Outcome[model.ChangeStream] {
	if !q.Valid() {
		return outcome.Failure[model.ChangeStream](outcome.CodeInvalidQuery, "user id and question bank id are required")
	}
	if v := s.chain.Validate(ctx, q); v.IsFailure() {
		return outcome.Propagate[model.ChangeStream](v)
	}
	if s.feed == nil {
		return outcome.Failure[model.ChangeStream](outcome.CodeCacheError, "change feed is not configured")
	}

	stream, err := s.feed.Subscribe(ctx, q.UserID, q.QuestionBankID)
	if err != nil {
		s.log.Error().Err(err).Int64("user_id", q.UserID).Int64("question_bank_id", q.QuestionBankID).Msg("Change feed subscription failed")
		return outcome.FailureFrom[model.ChangeStream](outcome.CodeCacheError, err)
	}
	return outcome.Success(stream)
}
