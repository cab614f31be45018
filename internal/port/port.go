// Package port declares the persistence boundaries the services depend on.
// Every repository call reports expected failures as an outcome with a
// repository code; errors are reserved for transaction plumbing.
package port

import (
	"context"

	"github.com/google/uuid"
	"github.com/stemsi/qbank-core/internal/domain"
	"github.com/stemsi/qbank-core/internal/model"
	"github.com/stemsi/qbank-core/internal/outcome"
	"github.com/stemsi/qbank-core/internal/query"
)

// QuestionRepository stores question aggregates by business key.
type QuestionRepository interface {
	// FindBySourceQuestionID returns nil without failure when no question
	// has the key.
	FindBySourceQuestionID(ctx context.Context, key domain.BusinessKey) outcome.Outcome[*domain.Question]
	// UpsertBySourceQuestionID inserts or updates by business key and
	// returns the stored question with its storage id.
	UpsertBySourceQuestionID(ctx context.Context, q *domain.Question) outcome.Outcome[*domain.Question]
	UpdateStatus(ctx context.Context, q *domain.Question) outcome.Outcome[outcome.Unit]
}

// QuestionTaxonomyRelationshipRepository stores the relationship rows of
// questions.
type QuestionTaxonomyRelationshipRepository interface {
	// ReplaceRelationshipsForQuestion deletes every row of the question and
	// inserts rels. It returns the number of rows written.
	ReplaceRelationshipsForQuestion(ctx context.Context, userID, bankID int64, questionID uuid.UUID, rels []domain.TaxonomyRelationship) outcome.Outcome[int]
	ListByQuestion(ctx context.Context, userID, bankID int64, questionID uuid.UUID) outcome.Outcome[[]domain.TaxonomyRelationship]
}

// TaxonomySetRepository stores one taxonomy set per bank.
type TaxonomySetRepository interface {
	ValidateTaxonomyReferences(ctx context.Context, userID, bankID int64, ids []string) outcome.Outcome[bool]
	GetInvalidTaxonomyReferences(ctx context.Context, userID, bankID int64, ids []string) outcome.Outcome[[]string]
	// Get fails with NOT_FOUND when the bank has no taxonomy set.
	Get(ctx context.Context, userID, bankID int64) outcome.Outcome[*domain.TaxonomySet]
	Save(ctx context.Context, ts *domain.TaxonomySet) outcome.Outcome[outcome.Unit]
}

// QuestionBanksPerUserRepository stores the bank registry of each user.
type QuestionBanksPerUserRepository interface {
	ValidateOwnership(ctx context.Context, userID, bankID int64) outcome.Outcome[bool]
	IsQuestionBankActive(ctx context.Context, userID, bankID int64) outcome.Outcome[bool]
	// Get fails with NOT_FOUND when the user has no registry.
	Get(ctx context.Context, userID int64) outcome.Outcome[*domain.QuestionBanksPerUser]
	Save(ctx context.Context, r *domain.QuestionBanksPerUser) outcome.Outcome[outcome.Unit]
}

// QuestionQueryRepository executes listing pipelines.
type QuestionQueryRepository interface {
	Query(ctx context.Context, p query.Pipeline) outcome.Outcome[model.Page[model.QuestionView]]
}

// TxManager runs fn in one transaction. Repository calls made with the ctx
// passed to fn join it. A non-nil return from fn rolls back and is returned
// unchanged.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// ChangeSink receives change records after a successful commit.
type ChangeSink interface {
	Publish(ctx context.Context, records []domain.ChangeRecord) error
}

// ChangeFeed fans committed change records out to live subscribers of a
// bank. Subscribers that fall behind lose records rather than block
// publishers.
type ChangeFeed interface {
	Subscribe(ctx context.Context, userID, bankID int64) (model.ChangeStream, error)
}
