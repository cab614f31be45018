package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/qbank-core/internal/config"
	"github.com/stemsi/qbank-core/internal/domain"
	"github.com/stemsi/qbank-core/internal/outcome"
	"github.com/stemsi/qbank-core/internal/port"
)

// readThrough serves key from Redis, falling back to load and caching its
// successful value for ttl. A failed Redis read is logged and served from
// load without repopulating the entry.
func readThrough[T any](ctx context.Context, rdb *redis.Client, log zerolog.Logger, key string, ttl time.Duration, load func(context.Context) outcome.Outcome[T]) outcome.Outcome[T] {
	data, err := rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var v T
		if err := json.Unmarshal(data, &v); err == nil {
			return outcome.Success(v)
		}
		log.Warn().Str("key", key).Msg("Discarding undecodable cache entry")
	case !errors.Is(err, redis.Nil):
		log.Warn().Err(err).Str("key", key).Msg("Cache read failed; loading from database")
		return load(ctx)
	}

	res := load(ctx)
	if res.IsFailure() {
		return res
	}
	if raw, err := json.Marshal(res.Value()); err == nil {
		if err := rdb.Set(ctx, key, raw, ttl).Err(); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("Failed to populate cache")
		}
	}
	return res
}

func invalidate(ctx context.Context, rdb *redis.Client, log zerolog.Logger, key string) {
	if err := rdb.Del(ctx, key).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Failed to invalidate cache; entry expires with its TTL")
	}
}

// CachedTaxonomySetRepository caches taxonomy sets in Redis in front of a
// TaxonomySetRepository.
type CachedTaxonomySetRepository struct {
	next port.TaxonomySetRepository
	rdb  *redis.Client
	ttl  time.Duration
	log  zerolog.Logger
}

// NewCachedTaxonomySetRepository creates a new CachedTaxonomySetRepository.
func NewCachedTaxonomySetRepository(next port.TaxonomySetRepository, rdb *redis.Client, ttl time.Duration, log zerolog.Logger) *CachedTaxonomySetRepository {
	return &CachedTaxonomySetRepository{
		next: next,
		rdb:  rdb,
		ttl:  ttl,
		log:  log.With().Str("component", "taxonomy_cache").Logger(),
	}
}

func (r *CachedTaxonomySetRepository) Get(ctx context.Context, userID, bankID int64) outcome.Outcome[*domain.TaxonomySet] {
	return readThrough(ctx, r.rdb, r.log, config.CacheKey.TaxonomySetKey(userID, bankID), r.ttl,
		func(ctx context.Context) outcome.Outcome[*domain.TaxonomySet] {
			return r.next.Get(ctx, userID, bankID)
		})
}

// set returns the bank's taxonomy set, or an empty one when none exists.
func (r *CachedTaxonomySetRepository) set(ctx context.Context, userID, bankID int64) outcome.Outcome[*domain.TaxonomySet] {
	res := r.Get(ctx, userID, bankID)
	if res.Code() == outcome.CodeNotFound {
		return outcome.Success(&domain.TaxonomySet{UserID: userID, QuestionBankID: bankID})
	}
	return res
}

func (r *CachedTaxonomySetRepository) ValidateTaxonomyReferences(ctx context.Context, userID, bankID int64, ids []string) outcome.Outcome[bool] {
	return outcome.Map(r.set(ctx, userID, bankID), func(ts *domain.TaxonomySet) bool {
		return ts.ValidateTaxonomyReferences(ids)
	})
}

func (r *CachedTaxonomySetRepository) GetInvalidTaxonomyReferences(ctx context.Context, userID, bankID int64, ids []string) outcome.Outcome[[]string] {
	return outcome.Map(r.set(ctx, userID, bankID), func(ts *domain.TaxonomySet) []string {
		return ts.FindInvalidTaxonomyReferences(ids)
	})
}

func (r *CachedTaxonomySetRepository) Save(ctx context.Context, ts *domain.TaxonomySet) outcome.Outcome[outcome.Unit] {
	res := r.next.Save(ctx, ts)
	if res.IsSuccess() {
		invalidate(ctx, r.rdb, r.log, config.CacheKey.TaxonomySetKey(ts.UserID, ts.QuestionBankID))
	}
	return res
}

// CachedQuestionBanksRepository caches bank registries in Redis in front of
// a QuestionBanksPerUserRepository.
type CachedQuestionBanksRepository struct {
	next port.QuestionBanksPerUserRepository
	rdb  *redis.Client
	ttl  time.Duration
	log  zerolog.Logger
}

// NewCachedQuestionBanksRepository creates a new CachedQuestionBanksRepository.
func NewCachedQuestionBanksRepository(next port.QuestionBanksPerUserRepository, rdb *redis.Client, ttl time.Duration, log zerolog.Logger) *CachedQuestionBanksRepository {
	return &CachedQuestionBanksRepository{
		next: next,
		rdb:  rdb,
		ttl:  ttl,
		log:  log.With().Str("component", "bank_cache").Logger(),
	}
}

func (r *CachedQuestionBanksRepository) Get(ctx context.Context, userID int64) outcome.Outcome[*domain.QuestionBanksPerUser] {
	return readThrough(ctx, r.rdb, r.log, config.CacheKey.QuestionBanksKey(userID), r.ttl,
		func(ctx context.Context) outcome.Outcome[*domain.QuestionBanksPerUser] {
			return r.next.Get(ctx, userID)
		})
}

// check applies pred to the cached registry. A user without a registry owns
// nothing.
func (r *CachedQuestionBanksRepository) check(ctx context.Context, userID int64, pred func(*domain.QuestionBanksPerUser) bool) outcome.Outcome[bool] {
	res := r.Get(ctx, userID)
	if res.Code() == outcome.CodeNotFound {
		return outcome.Success(false)
	}
	return outcome.Map(res, pred)
}

func (r *CachedQuestionBanksRepository) ValidateOwnership(ctx context.Context, userID, bankID int64) outcome.Outcome[bool] {
	return r.check(ctx, userID, func(reg *domain.QuestionBanksPerUser) bool { return reg.Owns(bankID) })
}

func (r *CachedQuestionBanksRepository) IsQuestionBankActive(ctx context.Context, userID, bankID int64) outcome.Outcome[bool] {
	return r.check(ctx, userID, func(reg *domain.QuestionBanksPerUser) bool { return reg.IsActive(bankID) })
}

func (r *CachedQuestionBanksRepository) Save(ctx context.Context, reg *domain.QuestionBanksPerUser) outcome.Outcome[outcome.Unit] {
	res := r.next.Save(ctx, reg)
	if res.IsSuccess() {
		invalidate(ctx, r.rdb, r.log, config.CacheKey.QuestionBanksKey(reg.UserID))
	}
	return res
}
