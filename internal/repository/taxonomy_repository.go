package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/qbank-core/internal/database"
	"github.com/stemsi/qbank-core/internal/domain"
	"github.com/stemsi/qbank-core/internal/outcome"
)

// TaxonomySetRepository stores one taxonomy set per bank as a JSONB
// document.
type TaxonomySetRepository struct {
	pool *pgxpool.Pool
}

// NewTaxonomySetRepository creates a new TaxonomySetRepository.
func NewTaxonomySetRepository(pool *pgxpool.Pool) *TaxonomySetRepository {
	return &TaxonomySetRepository{pool: pool}
}

func (r *TaxonomySetRepository) load(ctx context.Context, userID, bankID int64) (*domain.TaxonomySet, error) {
	var raw []byte
	err := database.Executor(ctx, r.pool).QueryRow(ctx,
		`SELECT document FROM taxonomy_sets WHERE user_id = $1 AND question_bank_id = $2`,
		userID, bankID,
	).Scan(&raw)
	if err != nil {
		return nil, err
	}
	var ts domain.TaxonomySet
	if err := json.Unmarshal(raw, &ts); err != nil {
		return nil, err
	}
	return &ts, nil
}

// ValidateTaxonomyReferences reports whether every id exists in the bank's
// set. A bank without a set only accepts an empty id list.
func (r *TaxonomySetRepository) ValidateTaxonomyReferences(ctx context.Context, userID, bankID int64, ids []string) outcome.Outcome[bool] {
	ts, err := r.load(ctx, userID, bankID)
	if errors.Is(err, pgx.ErrNoRows) {
		return outcome.Success(len(ids) == 0)
	}
	if err != nil {
		return fail[bool]("load taxonomy set", err)
	}
	return outcome.Success(ts.ValidateTaxonomyReferences(ids))
}

func (r *TaxonomySetRepository) GetInvalidTaxonomyReferences(ctx context.Context, userID, bankID int64, ids []string) outcome.Outcome[[]string] {
	ts, err := r.load(ctx, userID, bankID)
	if errors.Is(err, pgx.ErrNoRows) {
		ts = &domain.TaxonomySet{}
	} else if err != nil {
		return fail[[]string]("load taxonomy set", err)
	}
	return outcome.Success(ts.FindInvalidTaxonomyReferences(ids))
}

func (r *TaxonomySetRepository) Get(ctx context.Context, userID, bankID int64) outcome.Outcome[*domain.TaxonomySet] {
	ts, err := r.load(ctx, userID, bankID)
	if err != nil {
		return fail[*domain.TaxonomySet]("load taxonomy set", err)
	}
	return outcome.Success(ts)
}

// Save replaces the bank's taxonomy set.
func (r *TaxonomySetRepository) Save(ctx context.Context, ts *domain.TaxonomySet) outcome.Outcome[outcome.Unit] {
	if err := ts.ValidateHierarchy(); err != nil {
		return outcome.FailureFrom[outcome.Unit](outcome.CodeInvalidCommand, err)
	}
	raw, err := json.Marshal(ts)
	if err != nil {
		return fail[outcome.Unit]("encode taxonomy set", err)
	}
	_, err = database.Executor(ctx, r.pool).Exec(ctx,
		`INSERT INTO taxonomy_sets (user_id, question_bank_id, document, updated_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id, question_bank_id) DO UPDATE
		 SET document = EXCLUDED.document, updated_at = EXCLUDED.updated_at`,
		ts.UserID, ts.QuestionBankID, raw, ts.UpdatedAt,
	)
	if err != nil {
		return fail[outcome.Unit]("save taxonomy set", err)
	}
	return outcome.OK()
}

// QuestionBanksRepository stores the bank registry of each user as a JSONB
// document.
type QuestionBanksRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionBanksRepository creates a new QuestionBanksRepository.
func NewQuestionBanksRepository(pool *pgxpool.Pool) *QuestionBanksRepository {
	return &QuestionBanksRepository{pool: pool}
}

func (r *QuestionBanksRepository) load(ctx context.Context, userID int64) (*domain.QuestionBanksPerUser, error) {
	var raw []byte
	err := database.Executor(ctx, r.pool).QueryRow(ctx,
		`SELECT document FROM question_banks_per_user WHERE user_id = $1`, userID,
	).Scan(&raw)
	if err != nil {
		return nil, err
	}
	var reg domain.QuestionBanksPerUser
	if err := json.Unmarshal(raw, &reg); err != nil {
		return nil, err
	}
	return &reg, nil
}

// check loads the registry and applies pred. A user without a registry
// owns nothing.
func (r *QuestionBanksRepository) check(ctx context.Context, userID int64, pred func(*domain.QuestionBanksPerUser) bool) outcome.Outcome[bool] {
	reg, err := r.load(ctx, userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return outcome.Success(false)
	}
	if err != nil {
		return fail[bool]("load question banks", err)
	}
	return outcome.Success(pred(reg))
}

func (r *QuestionBanksRepository) ValidateOwnership(ctx context.Context, userID, bankID int64) outcome.Outcome[bool] {
	return r.check(ctx, userID, func(reg *domain.QuestionBanksPerUser) bool { return reg.Owns(bankID) })
}

func (r *QuestionBanksRepository) IsQuestionBankActive(ctx context.Context, userID, bankID int64) outcome.Outcome[bool] {
	return r.check(ctx, userID, func(reg *domain.QuestionBanksPerUser) bool { return reg.IsActive(bankID) })
}

func (r *QuestionBanksRepository) Get(ctx context.Context, userID int64) outcome.Outcome[*domain.QuestionBanksPerUser] {
	reg, err := r.load(ctx, userID)
	if err != nil {
		return fail[*domain.QuestionBanksPerUser]("load question banks", err)
	}
	return outcome.Success(reg)
}

// Save replaces the user's registry.
func (r *QuestionBanksRepository) Save(ctx context.Context, reg *domain.QuestionBanksPerUser) outcome.Outcome[outcome.Unit] {
	if err := reg.Validate(); err != nil {
		return outcome.FailureFrom[outcome.Unit](outcome.CodeInvalidCommand, err)
	}
	raw, err := json.Marshal(reg)
	if err != nil {
		return fail[outcome.Unit]("encode question banks", err)
	}
	_, err = database.Executor(ctx, r.pool).Exec(ctx,
		`INSERT INTO question_banks_per_user (user_id, document, updated_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id) DO UPDATE
		 SET document = EXCLUDED.document, updated_at = EXCLUDED.updated_at`,
		reg.UserID, raw, reg.UpdatedAt,
	)
	if err != nil {
		return fail[outcome.Unit]("save question banks", err)
	}
	return outcome.OK()
}
