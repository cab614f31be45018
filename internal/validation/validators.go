package validation

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"
	"github.com/stemsi/qbank-core/internal/auth"
	"github.com/stemsi/qbank-core/internal/model"
	"github.com/stemsi/qbank-core/internal/outcome"
	"github.com/stemsi/qbank-core/internal/port"
)

// SecurityValidator requires the authenticated caller to be the user the
// command is scoped to.
type SecurityValidator[C model.Scoped] struct{}

func (SecurityValidator[C]) Validate(ctx context.Context, cmd C) outcome.Outcome[outcome.Unit] {
	id, ok := auth.IdentityFromContext(ctx)
	if !ok {
		return outcome.Failure[outcome.Unit](outcome.CodeUnauthorizedAccess, "request is not authenticated")
	}
	if id.UserID != cmd.Scope().UserID {
		return outcome.Failuref[outcome.Unit](outcome.CodeUnauthorizedAccess,
			"user %d may not act for user %d", id.UserID, cmd.Scope().UserID)
	}
	return outcome.OK()
}

// OwnershipValidator requires the question bank to be owned by the user and
// active. Both lookups retry transient failures under the policy.
type OwnershipValidator[C model.Scoped] struct {
	banks  port.QuestionBanksPerUserRepository
	policy RetryPolicy
	log    zerolog.Logger
}

// NewOwnershipValidator creates an OwnershipValidator.
func NewOwnershipValidator[C model.Scoped](banks port.QuestionBanksPerUserRepository, policy RetryPolicy, log zerolog.Logger) *OwnershipValidator[C] {
	return &OwnershipValidator[C]{banks: banks, policy: policy, log: log}
}

func (v *OwnershipValidator[C]) Validate(ctx context.Context, cmd C) outcome.Outcome[outcome.Unit] {
	s := cmd.Scope()
	if !s.Valid() {
		return outcome.Failure[outcome.Unit](outcome.CodeInvalidCommand, "user id and question bank id are required")
	}

	owned := Retry(ctx, v.policy, v.log, "ownership check", func(ctx context.Context) outcome.Outcome[bool] {
		return v.banks.ValidateOwnership(ctx, s.UserID, s.QuestionBankID)
	})
	if owned.IsFailure() {
		return outcome.Propagate[outcome.Unit](owned)
	}
	if !owned.Value() {
		return outcome.Failuref[outcome.Unit](outcome.CodeUnauthorizedAccess,
			"question bank %d is not owned by user %d", s.QuestionBankID, s.UserID)
	}

	active := Retry(ctx, v.policy, v.log, "bank activity check", func(ctx context.Context) outcome.Outcome[bool] {
		return v.banks.IsQuestionBankActive(ctx, s.UserID, s.QuestionBankID)
	})
	if active.IsFailure() {
		return outcome.Propagate[outcome.Unit](active)
	}
	if !active.Value() {
		return outcome.Failuref[outcome.Unit](outcome.CodeUnauthorizedAccess,
			"question bank %d is not active", s.QuestionBankID)
	}
	return outcome.OK()
}

// TaxonomyReferenceValidator requires a well-formed classification with a
// difficulty level, and every taxonomy id it references to exist in the
// bank's taxonomy set.
type TaxonomyReferenceValidator struct {
	taxonomies port.TaxonomySetRepository
}

// NewTaxonomyReferenceValidator creates a TaxonomyReferenceValidator.
func NewTaxonomyReferenceValidator(taxonomies port.TaxonomySetRepository) *TaxonomyReferenceValidator {
	return &TaxonomyReferenceValidator{taxonomies: taxonomies}
}

func (v *TaxonomyReferenceValidator) Validate(ctx context.Context, cmd model.UpsertQuestionCommand) outcome.Outcome[outcome.Unit] {
	if err := cmd.Taxonomy.Validate(); err != nil {
		return outcome.FailureFrom[outcome.Unit](outcome.CodeInvalidCommand, err)
	}

	ids := cmd.Taxonomy.ReferencedIDs()
	valid := v.taxonomies.ValidateTaxonomyReferences(ctx, cmd.UserID, cmd.QuestionBankID, ids)
	if valid.IsFailure() {
		return outcome.Propagate[outcome.Unit](valid)
	}
	if valid.Value() {
		return outcome.OK()
	}

	invalid := v.taxonomies.GetInvalidTaxonomyReferences(ctx, cmd.UserID, cmd.QuestionBankID, ids)
	if invalid.IsFailure() {
		return outcome.Propagate[outcome.Unit](invalid)
	}
	return outcome.Failuref[outcome.Unit](outcome.CodeTaxonomyReferenceNotFound,
		"taxonomy references not found: %s", strings.Join(invalid.Value(), ", "))
}

var (
	errPayloadMissing  = errors.New("type-specific data for the declared type is missing")
	errPayloadMultiple = errors.New("exactly one type-specific payload may be present")
)

// DataIntegrityValidator requires the business key to be complete and the
// single payload present to match the declared type and be valid.
type DataIntegrityValidator struct{}

func (DataIntegrityValidator) Validate(_ context.Context, cmd model.UpsertQuestionCommand) outcome.Outcome[outcome.Unit] {
	if err := cmd.Key().Validate(); err != nil {
		return outcome.FailureFrom[outcome.Unit](outcome.CodeInvalidCommand, err)
	}
	if !cmd.Type.Valid() {
		return outcome.Failuref[outcome.Unit](outcome.CodeTypeDataMismatch, "unknown question type %q", cmd.Type)
	}
	data := cmd.TypeData()
	if data == nil {
		return outcome.FailureFrom[outcome.Unit](outcome.CodeTypeDataMismatch, errPayloadMissing)
	}
	if cmd.PayloadCount() != 1 {
		return outcome.FailureFrom[outcome.Unit](outcome.CodeTypeDataMismatch, errPayloadMultiple)
	}
	if err := data.Validate(); err != nil {
		return outcome.FailureFrom[outcome.Unit](outcome.CodeTypeDataMismatch, err)
	}
	return outcome.OK()
}

// UpsertChain returns the validation order used for upserts.
func UpsertChain(banks port.QuestionBanksPerUserRepository, taxonomies port.TaxonomySetRepository, policy RetryPolicy, log zerolog.Logger) Chain[model.UpsertQuestionCommand] {
	return NewChain[model.UpsertQuestionCommand](
		SecurityValidator[model.UpsertQuestionCommand]{},
		NewOwnershipValidator[model.UpsertQuestionCommand](banks, policy, log),
		NewTaxonomyReferenceValidator(taxonomies),
		DataIntegrityValidator{},
	)
}

// ScopedChain returns the security and ownership checks for any scoped
// request.
func ScopedChain[C model.Scoped](banks port.QuestionBanksPerUserRepository, policy RetryPolicy, log zerolog.Logger) Chain[C] {
	return NewChain[C](
		SecurityValidator[C]{},
		NewOwnershipValidator[C](banks, policy, log),
	)
}
