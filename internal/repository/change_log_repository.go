package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/qbank-core/internal/config"
	"github.com/stemsi/qbank-core/internal/domain"
	"github.com/stemsi/qbank-core/internal/model"
)

// RedisChangeSink queues change records for the change-log worker and
// announces them on the bank's change feed channel.
type RedisChangeSink struct {
	rdb   *redis.Client
	queue string
}

// NewRedisChangeSink creates a sink that pushes onto the change-log queue.
func NewRedisChangeSink(rdb *redis.Client) *RedisChangeSink {
	return &RedisChangeSink{rdb: rdb, queue: config.WorkerKey.PersistChangeLogQueue}
}

// Publish pushes every record as one JSON list element.
func (s *RedisChangeSink) Publish(ctx context.Context, records []domain.ChangeRecord) error {
	if len(records) == 0 {
		return nil
	}
	values := make([]any, 0, len(records))
	for _, r := range records {
		raw, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("encode change record: %w", err)
		}
		values = append(values, raw)
	}
	_, err := s.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, s.queue, values...)
		for i, r := range records {
			pipe.Publish(ctx, config.CacheKey.ChangeFeedChannel(r.Key.UserID, r.Key.QuestionBankID), values[i])
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("push change records: %w", err)
	}
	return nil
}

// RedisChangeFeed subscribes to the channels written by RedisChangeSink.
type RedisChangeFeed struct {
	rdb *redis.Client
	log zerolog.Logger
}

// NewRedisChangeFeed creates a new RedisChangeFeed.
func NewRedisChangeFeed(rdb *redis.Client, log zerolog.Logger) *RedisChangeFeed {
	return &RedisChangeFeed{rdb: rdb, log: log.With().Str("component", "change_feed").Logger()}
}

// Subscribe opens a pub/sub connection for one bank and waits for the
// subscription to be confirmed.
func (f *RedisChangeFeed) Subscribe(ctx context.Context, userID, bankID int64) (model.ChangeStream, error) {
	channel := config.CacheKey.ChangeFeedChannel(userID, bankID)
	ps := f.rdb.Subscribe(ctx, channel)
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", channel, err)
	}

	stream := &redisChangeStream{ps: ps, ch: make(chan domain.ChangeRecord, 64), done: make(chan struct{})}
	go stream.pump(f.log.With().Str("channel", channel).Logger())
	context.AfterFunc(ctx, func() { stream.Close() })
	return stream, nil
}

type redisChangeStream struct {
	ps   *redis.PubSub
	ch   chan domain.ChangeRecord
	done chan struct{}
	once sync.Once
}

func (s *redisChangeStream) Records() <-chan domain.ChangeRecord { return s.ch }

func (s *redisChangeStream) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.ps.Close()
	})
	return err
}

// pump decodes messages until the pub/sub channel closes. Records that do
// not fit the buffer are dropped.
func (s *redisChangeStream) pump(log zerolog.Logger) {
	defer close(s.ch)
	for msg := range s.ps.Channel() {
		var rec domain.ChangeRecord
		if err := json.Unmarshal([]byte(msg.Payload), &rec); err != nil {
			log.Warn().Err(err).Msg("Skipping malformed change record")
			continue
		}
		select {
		case s.ch <- rec:
		case <-s.done:
			return
		default:
			log.Debug().Str("source_question_id", rec.Key.SourceQuestionID).Msg("Subscriber behind, dropping change record")
		}
	}
}

// ChangeLogRepository appends to question_change_log.
type ChangeLogRepository struct {
	pool *pgxpool.Pool
}

// NewChangeLogRepository creates a new ChangeLogRepository.
func NewChangeLogRepository(pool *pgxpool.Pool) *ChangeLogRepository {
	return &ChangeLogRepository{pool: pool}
}

// BulkInsert writes a batch in one statement using UNNEST.
func (r *ChangeLogRepository) BulkInsert(ctx context.Context, records []domain.ChangeRecord) error {
	n := len(records)
	if n == 0 {
		return nil
	}
	questionIDs := make([]uuid.UUID, 0, n)
	users := make([]int64, 0, n)
	banks := make([]int64, 0, n)
	sources := make([]string, 0, n)
	kinds := make([]string, 0, n)
	fields := make([]string, 0, n)
	occurredAts := make([]time.Time, 0, n)
	for _, rec := range records {
		raw, err := json.Marshal(rec.ChangedFields)
		if err != nil {
			return err
		}
		questionIDs = append(questionIDs, rec.QuestionID)
		users = append(users, rec.Key.UserID)
		banks = append(banks, rec.Key.QuestionBankID)
		sources = append(sources, rec.Key.SourceQuestionID)
		kinds = append(kinds, string(rec.Kind))
		fields = append(fields, string(raw))
		occurredAts = append(occurredAts, rec.OccurredAt)
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO question_change_log
		     (question_id, user_id, question_bank_id, source_question_id, kind, changed_fields, occurred_at)
		 SELECT u.question_id, u.user_id, u.question_bank_id, u.source_question_id, u.kind, u.changed_fields, u.occurred_at
		 FROM UNNEST(
		     $1::uuid[],
		     $2::bigint[],
		     $3::bigint[],
		     $4::text[],
		     $5::text[],
		     $6::jsonb[],
		     $7::timestamptz[]
		 ) AS u (question_id, user_id, question_bank_id, source_question_id, kind, changed_fields, occurred_at)`,
		questionIDs, users, banks, sources, kinds, fields, occurredAts,
	)
	return err
}

// Insert writes a single record.
func (r *ChangeLogRepository) Insert(ctx context.Context, rec domain.ChangeRecord) error {
	raw, err := json.Marshal(rec.ChangedFields)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO question_change_log
		     (question_id, user_id, question_bank_id, source_question_id, kind, changed_fields, occurred_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.QuestionID, rec.Key.UserID, rec.Key.QuestionBankID, rec.Key.SourceQuestionID,
		string(rec.Kind), raw, rec.OccurredAt,
	)
	return err
}
