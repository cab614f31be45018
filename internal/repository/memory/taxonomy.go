package memory

import (
	"context"
	"slices"

	"github.com/stemsi/qbank-core/internal/domain"
	"github.com/stemsi/qbank-core/internal/outcome"
)

// TaxonomySetRepository implements port.TaxonomySetRepository.
type TaxonomySetRepository struct {
	st *Store
}

// Taxonomies returns the taxonomy set repository of the store.
func (st *Store) Taxonomies() *TaxonomySetRepository { return &TaxonomySetRepository{st: st} }

func (r *TaxonomySetRepository) load(ctx context.Context, userID, bankID int64) (domain.TaxonomySet, bool) {
	var (
		ts domain.TaxonomySet
		ok bool
	)
	r.st.read(ctx, func(s *state) {
		ts, ok = s.taxonomies[bankKey{userID, bankID}]
	})
	return ts, ok
}

func (r *TaxonomySetRepository) ValidateTaxonomyReferences(ctx context.Context, userID, bankID int64, ids []string) outcome.Outcome[bool] {
	r.st.calls.taxonomy.Add(1)
	ts, ok := r.load(ctx, userID, bankID)
	if !ok {
		return outcome.Success(len(ids) == 0)
	}
	return outcome.Success(ts.ValidateTaxonomyReferences(ids))
}

func (r *TaxonomySetRepository) GetInvalidTaxonomyReferences(ctx context.Context, userID, bankID int64, ids []string) outcome.Outcome[[]string] {
	ts, ok := r.load(ctx, userID, bankID)
	if !ok {
		return outcome.Success((&domain.TaxonomySet{}).FindInvalidTaxonomyReferences(ids))
	}
	return outcome.Success(ts.FindInvalidTaxonomyReferences(ids))
}

func (r *TaxonomySetRepository) Get(ctx context.Context, userID, bankID int64) outcome.Outcome[*domain.TaxonomySet] {
	ts, ok := r.load(ctx, userID, bankID)
	if !ok {
		return outcome.Failuref[*domain.TaxonomySet](outcome.CodeNotFound, "no taxonomy set for user %d bank %d", userID, bankID)
	}
	return outcome.Success(&ts)
}

func (r *TaxonomySetRepository) Save(ctx context.Context, ts *domain.TaxonomySet) outcome.Outcome[outcome.Unit] {
	if err := ts.ValidateHierarchy(); err != nil {
		return outcome.FailureFrom[outcome.Unit](outcome.CodeInvalidCommand, err)
	}
	cp := *ts
	cp.Tags = slices.Clone(ts.Tags)
	cp.Quizzes = slices.Clone(ts.Quizzes)
	cp.AvailableDifficulties = slices.Clone(ts.AvailableDifficulties)
	r.st.write(ctx, func(s *state) {
		s.taxonomies[bankKey{ts.UserID, ts.QuestionBankID}] = cp
	})
	return outcome.OK()
}

// QuestionBanksRepository implements port.QuestionBanksPerUserRepository.
type QuestionBanksRepository struct {
	st *Store
}

// Banks returns the bank registry repository of the store.
func (st *Store) Banks() *QuestionBanksRepository { return &QuestionBanksRepository{st: st} }

func (r *QuestionBanksRepository) load(ctx context.Context, userID int64) (domain.QuestionBanksPerUser, bool) {
	var (
		reg domain.QuestionBanksPerUser
		ok  bool
	)
	r.st.read(ctx, func(s *state) {
		reg, ok = s.banks[userID]
	})
	return reg, ok
}

func (r *QuestionBanksRepository) ValidateOwnership(ctx context.Context, userID, bankID int64) outcome.Outcome[bool] {
	r.st.calls.ownership.Add(1)
	if code, ok := r.st.injected(&r.st.failOwner); ok {
		return injectedFailure[bool](code, "ownership check")
	}
	reg, ok := r.load(ctx, userID)
	return outcome.Success(ok && reg.Owns(bankID))
}

func (r *QuestionBanksRepository) IsQuestionBankActive(ctx context.Context, userID, bankID int64) outcome.Outcome[bool] {
	r.st.calls.activity.Add(1)
	reg, ok := r.load(ctx, userID)
	return outcome.Success(ok && reg.IsActive(bankID))
}

func (r *QuestionBanksRepository) Get(ctx context.Context, userID int64) outcome.Outcome[*domain.QuestionBanksPerUser] {
	reg, ok := r.load(ctx, userID)
	if !ok {
		return outcome.Failuref[*domain.QuestionBanksPerUser](outcome.CodeNotFound, "no question banks for user %d", userID)
	}
	reg.Banks = slices.Clone(reg.Banks)
	return outcome.Success(&reg)
}

func (r *QuestionBanksRepository) Save(ctx context.Context, reg *domain.QuestionBanksPerUser) outcome.Outcome[outcome.Unit] {
	if err := reg.Validate(); err != nil {
		return outcome.FailureFrom[outcome.Unit](outcome.CodeInvalidCommand, err)
	}
	cp := *reg
	cp.Banks = slices.Clone(reg.Banks)
	r.st.write(ctx, func(s *state) {
		s.banks[reg.UserID] = cp
	})
	return outcome.OK()
}
