// Package service holds the command and query handlers registered with the
// dispatcher.
package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/qbank-core/internal/domain"
	"github.com/stemsi/qbank-core/internal/mediator"
	"github.com/stemsi/qbank-core/internal/port"
	"github.com/stemsi/qbank-core/internal/validation"
)

// Deps are the collaborators shared by the handlers.
type Deps struct {
	Tx            port.TxManager
	Questions     port.QuestionRepository
	Relationships port.QuestionTaxonomyRelationshipRepository
	Taxonomies    port.TaxonomySetRepository
	Banks         port.QuestionBanksPerUserRepository
	Query         port.QuestionQueryRepository
	// Sink is optional. Records are dropped when it is nil.
	Sink port.ChangeSink
	// Feed is optional. Watching fails with CACHE_ERROR when it is nil.
	Feed  port.ChangeFeed
	Retry validation.RetryPolicy
	Now   func() time.Time
	Log   zerolog.Logger
}

// Services groups every handler.
type Services struct {
	Upsert *UpsertQuestionService
	Status *QuestionStatusService
	Query  *QuestionQueryService
	Detail *QuestionDetailService
	Watch  *ChangeFeedService
}

// New builds every handler from deps.
func New(deps Deps) *Services {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Services{
		Upsert: NewUpsertQuestionService(deps, DefaultStrategies()),
		Status: NewQuestionStatusService(deps),
		Query:  NewQuestionQueryService(deps),
		Detail: NewQuestionDetailService(deps),
		Watch:  NewChangeFeedService(deps),
	}
}

// Register adds every handler to the dispatcher builder.
func (s *Services) Register(b *mediator.Builder) {
	mediator.RegisterCommand(b, s.Upsert.Handle)
	mediator.RegisterCommand(b, s.Status.Handle)
	mediator.RegisterQuery(b, s.Query.Handle)
	mediator.RegisterQuery(b, s.Detail.Handle)
	mediator.RegisterQuery(b, s.Watch.Handle)
}

// clock returns now truncated to the storage precision.
func clock(now func() time.Time) time.Time {
	return now().UTC().Truncate(time.Microsecond)
}

// publishChanges forwards committed change records. Failures are logged
// and never affect the caller's outcome.
func publishChanges(ctx context.Context, sink port.ChangeSink, log zerolog.Logger, records []domain.ChangeRecord) {
	if sink == nil || len(records) == 0 {
		return
	}
	if err := sink.Publish(context.WithoutCancel(ctx), records); err != nil {
		log.Warn().Err(err).Int("records", len(records)).Msg("Failed to publish change records")
	}
}
