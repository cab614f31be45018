package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/qbank-core/internal/config"
	"github.com/stemsi/qbank-core/internal/domain"
)

const ChangeLogPollTimeout = 1 * time.Second

// ChangeLogStore persists change records.
type ChangeLogStore interface {
	BulkInsert(ctx context.Context, records []domain.ChangeRecord) error
	Insert(ctx context.Context, rec domain.ChangeRecord) error
}

// ChangeLogWorker drains the change-log queue into PostgreSQL in batches.
type ChangeLogWorker struct {
	store         ChangeLogStore
	rdb           *redis.Client
	batchSize     int
	flushInterval time.Duration
	log           zerolog.Logger
}

func NewChangeLogWorker(store ChangeLogStore, rdb *redis.Client, cfg *config.Config, log zerolog.Logger) *ChangeLogWorker {
	batchSize := cfg.ChangeLogBatchSize
	if batchSize < 1 {
		batchSize = 1
	}
	return &ChangeLogWorker{
		store:         store,
		rdb:           rdb,
		batchSize:     batchSize,
		flushInterval: cfg.ChangeLogFlushInterval,
		log:           log.With().Str("component", "change_log_worker").Logger(),
	}
}

// Start blocks until ctx is cancelled, then flushes what it holds.
func (w *ChangeLogWorker) Start(ctx context.Context) {
	w.log.Info().Int("batch_size", w.batchSize).Msg("ChangeLogWorker started")

	batch := make([]domain.ChangeRecord, 0, w.batchSize)
	lastFlush := time.Now()

	for {
		if len(batch) > 0 &&
			(len(batch) >= w.batchSize || time.Since(lastFlush) >= w.flushInterval) {
			w.flush(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Int("pending", len(batch)).Msg("Shutdown requested. Flushing remaining batch...")
			w.flush(context.Background(), batch)
			return

		default:
			item, err := w.rdb.BLPop(ctx, ChangeLogPollTimeout, config.WorkerKey.PersistChangeLogQueue).Result()
			if err != nil {
				if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}
			if len(item) < 2 {
				continue
			}
			rec, ok := w.decode(item[1])
			if ok {
				batch = append(batch, rec)
			}
		}
	}
}

func (w *ChangeLogWorker) decode(raw string) (domain.ChangeRecord, bool) {
	var rec domain.ChangeRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		w.log.Error().Err(err).Msg("Invalid change record payload")
		return rec, false
	}
	return rec, true
}

// flush bulk inserts the batch. On failure every record is retried alone
// and the ones that still fail go back on the queue.
func (w *ChangeLogWorker) flush(ctx context.Context, batch []domain.ChangeRecord) {
	if len(batch) == 0 {
		return
	}

	err := w.store.BulkInsert(ctx, batch)
	if err == nil {
		w.log.Debug().Int("records", len(batch)).Msg("Change records persisted")
		return
	}
	w.log.Warn().Err(err).Msg("Bulk change log insert failed, using fallback")

	for _, rec := range batch {
		if err := w.store.Insert(ctx, rec); err != nil {
			w.log.Error().Err(err).Str("key", rec.Key.String()).Msg("Insert failed, requeueing")
			w.requeue(ctx, rec)
		}
	}
}

func (w *ChangeLogWorker) requeue(ctx context.Context, rec domain.ChangeRecord) {
	raw, err := json.Marshal(rec)
	if err != nil {
		return
	}
	if err := w.rdb.RPush(ctx, config.WorkerKey.PersistChangeLogQueue, raw).Err(); err != nil {
		w.log.Error().Err(err).Str("key", rec.Key.String()).Msg("Requeue failed, change record lost")
	}
}
