package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/stemsi/qbank-core/internal/outcome"
)

// PostgreSQL error codes the repositories react to.
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgUniqueViolation      = "23505"

	relationshipsTable = "question_taxonomy_relationships"
)

// DBTX is the query surface shared by *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type txKey struct{}

// Executor returns the transaction carried by ctx, or pool when there is
// none.
func Executor(ctx context.Context, pool *pgxpool.Pool) DBTX {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return pool
}

// TxManager runs units of work in one repeatable-read transaction carried
// through the context.
type TxManager struct {
	pool *pgxpool.Pool
	log  zerolog.Logger
}

// NewTxManager creates a TxManager.
func NewTxManager(pool *pgxpool.Pool, log zerolog.Logger) *TxManager {
	return &TxManager{pool: pool, log: log.With().Str("component", "tx_manager").Logger()}
}

// WithinTx runs fn in a transaction. A call made while ctx already carries
// a transaction joins it. Errors from fn roll back and are returned as-is.
func (m *TxManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return fn(ctx)
	}

	tx, err := m.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return infraError("begin tx", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(context.WithoutCancel(ctx))
			panic(p)
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			m.log.Error().Err(rbErr).Msg("Rollback failed")
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return infraError("commit tx", err)
	}
	return nil
}

// infraError reports serialization failures as a WRITE_CONFLICT outcome
// error so callers can retry; anything else stays a plain error.
func infraError(op string, err error) error {
	wrapped := fmt.Errorf("%s: %w", op, err)
	if ClassifyError(err) == outcome.CodeWriteConflict {
		return outcome.FailureFrom[outcome.Unit](outcome.CodeWriteConflict, wrapped).Err()
	}
	return wrapped
}

// ClassifyError maps a driver error to a repository failure code. A unique
// violation is a duplicate relationship only on the relationship table;
// elsewhere it means a concurrent writer got there first.
func ClassifyError(err error) outcome.Code {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgSerializationFailure, pgDeadlockDetected:
			return outcome.CodeWriteConflict
		case pgUniqueViolation:
			if pgErr.TableName == relationshipsTable {
				return outcome.CodeDuplicateRelationship
			}
			return outcome.CodeWriteConflict
		}
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return outcome.CodeNotFound
	}
	return outcome.CodeDatabaseError
}
