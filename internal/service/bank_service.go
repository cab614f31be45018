package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/qbank-core/internal/domain"
	"github.com/stemsi/qbank-core/internal/model"
	"github.com/stemsi/qbank-core/internal/outcome"
	"github.com/stemsi/qbank-core/internal/port"
)

// BankProvisioningService registers a bank for a user and replaces its
// taxonomy vocabulary. Running it again for the same bank only replaces
// the vocabulary.
type BankProvisioningService struct {
	tx         port.TxManager
	banks      port.QuestionBanksPerUserRepository
	taxonomies port.TaxonomySetRepository
	now        func() time.Time
	log        zerolog.Logger
}

// NewBankProvisioningService creates a BankProvisioningService.
func NewBankProvisioningService(deps Deps) *BankProvisioningService {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &BankProvisioningService{
		tx:         deps.Tx,
		banks:      deps.Banks,
		taxonomies: deps.Taxonomies,
		now:        deps.Now,
		log:        deps.Log.With().Str("component", "bank_provisioning").Logger(),
	}
}

// Provision stores the registry entry and the taxonomy set in one transaction.
func (s *BankProvisioningService) Provision(ctx context.Context, req model.SeedBankRequest) outcome.Outcome[*domain.TaxonomySet] {
	now := clock(s.now)

	var (
		set     *domain.TaxonomySet
		created bool
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		reg, o := s.registry(ctx, req.UserID, now)
		if o.IsFailure() {
			return o.Err()
		}
		if !reg.Owns(req.BankID) {
			if err := reg.AddBank(req.BankID, req.BankName, now); err != nil {
				return outcome.FailureFrom[outcome.Unit](outcome.CodeInvalidCommand, err).Err()
			}
			if o := s.banks.Save(ctx, reg); o.IsFailure() {
				return o.Err()
			}
			created = true
		}

		ts, err := domain.NewTaxonomySet(req.UserID, req.BankID, req.CategoryLevels(),
			req.Tags, req.Quizzes, nil, req.Difficulties, now)
		if err != nil {
			return outcome.FailureFrom[outcome.Unit](outcome.CodeInvalidCommand, err).Err()
		}
		if o := s.taxonomies.Save(ctx, ts); o.IsFailure() {
			return o.Err()
		}
		set = ts
		return nil
	})
	if err != nil {
		return outcome.FromError[*domain.TaxonomySet](err, outcome.CodeDatabaseError)
	}

	s.log.Info().
		Int64("user_id", req.UserID).
		Int64("bank_id", req.BankID).
		Bool("bank_created", created).
		Msg("Question bank provisioned")
	return outcome.SuccessWithMessage(set, "Question bank provisioned")
}

func (s *BankProvisioningService) registry(ctx context.Context, userID int64, now time.Time) (*domain.QuestionBanksPerUser, outcome.Outcome[outcome.Unit]) {
	o := s.banks.Get(ctx, userID)
	if o.IsSuccess() {
		return o.Value(), outcome.OK()
	}
	if o.Code() != outcome.CodeNotFound {
		return nil, outcome.Propagate[outcome.Unit](o)
	}
	reg, err := domain.NewQuestionBanksPerUser(userID, now)
	if err != nil {
		return nil, outcome.FailureFrom[outcome.Unit](outcome.CodeInvalidCommand, err)
	}
	return reg, outcome.OK()
}
