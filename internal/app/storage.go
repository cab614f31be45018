// Package app wires the storage drivers and services used by the binaries.
package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/qbank-core/internal/config"
	"github.com/stemsi/qbank-core/internal/database"
	"github.com/stemsi/qbank-core/internal/repository"
	"github.com/stemsi/qbank-core/internal/repository/memory"
	"github.com/stemsi/qbank-core/internal/service"
	"github.com/stemsi/qbank-core/internal/validation"
)

// Storage holds the repositories of the configured driver. Pool, Redis and
// ChangeLog are nil for the memory driver.
type Storage struct {
	Deps      service.Deps
	Pool      *pgxpool.Pool
	Redis     *redis.Client
	ChangeLog *repository.ChangeLogRepository
}

// Close releases the connections opened by OpenStorage.
func (s *Storage) Close() {
	if s.Redis != nil {
		_ = s.Redis.Close()
	}
	if s.Pool != nil {
		s.Pool.Close()
	}
}

// OpenStorage connects the driver named by cfg.StoreDriver.
func OpenStorage(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Storage, error) {
	retry := validation.RetryPolicyFromConfig(cfg.Retry)

	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		log.Warn().Msg("Using in-memory store; data is lost on exit")
		st := memory.NewStore()
		feed := memory.NewChangeFeed()
		return &Storage{Deps: service.Deps{
			Tx:            st,
			Questions:     st.Questions(),
			Relationships: st.Relationships(),
			Taxonomies:    st.Taxonomies(),
			Banks:         st.Banks(),
			Query:         st.Query(),
			Sink:          feed,
			Feed:          feed,
			Retry:         retry,
			Log:           log,
		}}, nil

	case config.StoreDriverPostgres:
		pool, err := database.NewPostgresPool(ctx, cfg, log)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		rdb, err := database.NewRedisClient(ctx, cfg, log)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}

		tx := database.NewTxManager(pool, log)
		return &Storage{
			Deps: service.Deps{
				Tx:            tx,
				Questions:     repository.NewQuestionRepository(pool),
				Relationships: repository.NewRelationshipRepository(pool, tx),
				Taxonomies: repository.NewCachedTaxonomySetRepository(
					repository.NewTaxonomySetRepository(pool), rdb, cfg.TaxonomyCacheTTL, log),
				Banks: repository.NewCachedQuestionBanksRepository(
					repository.NewQuestionBanksRepository(pool), rdb, cfg.TaxonomyCacheTTL, log),
				Query: repository.NewQueryRepository(pool),
				Sink:  repository.NewRedisChangeSink(rdb),
				Feed:  repository.NewRedisChangeFeed(rdb, log),
				Retry: retry,
				Log:   log,
			},
			Pool:      pool,
			Redis:     rdb,
			ChangeLog: repository.NewChangeLogRepository(pool),
		}, nil

	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
}
