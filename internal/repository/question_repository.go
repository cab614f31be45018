package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/qbank-core/internal/database"
	"github.com/stemsi/qbank-core/internal/domain"
	"github.com/stemsi/qbank-core/internal/outcome"
)

// fail classifies a driver error into a repository outcome.
func fail[T any](op string, err error) outcome.Outcome[T] {
	return outcome.FailureFrom[T](database.ClassifyError(err), fmt.Errorf("%s: %w", op, err))
}

const questionColumns = `id, user_id, question_bank_id, source_question_id, question_type, title, content,
	points, status, type_data, created_at, updated_at, published_at, archived_at`

// QuestionRepository handles question data access.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

func scanQuestion(row pgx.Row) (*domain.Question, error) {
	var (
		s   domain.QuestionState
		raw []byte
	)
	err := row.Scan(&s.ID, &s.Key.UserID, &s.Key.QuestionBankID, &s.Key.SourceQuestionID, &s.Type,
		&s.Title, &s.Content, &s.Points, &s.Status, &raw, &s.CreatedAt, &s.UpdatedAt, &s.PublishedAt, &s.ArchivedAt)
	if err != nil {
		return nil, err
	}
	if s.TypeData, err = domain.DecodeTypeData(s.Type, raw); err != nil {
		return nil, err
	}
	normalizeTimes(&s)
	return domain.RehydrateQuestion(s), nil
}

// normalizeTimes keeps timestamps in UTC regardless of the session zone.
func normalizeTimes(s *domain.QuestionState) {
	s.CreatedAt = s.CreatedAt.UTC()
	s.UpdatedAt = s.UpdatedAt.UTC()
	if s.PublishedAt != nil {
		t := s.PublishedAt.UTC()
		s.PublishedAt = &t
	}
	if s.ArchivedAt != nil {
		t := s.ArchivedAt.UTC()
		s.ArchivedAt = &t
	}
}

// FindBySourceQuestionID returns nil when the key is unknown.
func (r *QuestionRepository) FindBySourceQuestionID(ctx context.Context, key domain.BusinessKey) outcome.Outcome[*domain.Question] {
	q, err := scanQuestion(database.Executor(ctx, r.pool).QueryRow(ctx,
		`SELECT `+questionColumns+`
		 FROM questions
		 WHERE user_id = $1 AND question_bank_id = $2 AND source_question_id = $3`,
		key.UserID, key.QuestionBankID, key.SourceQuestionID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return outcome.Success[*domain.Question](nil)
	}
	if err != nil {
		return fail[*domain.Question]("find question", err)
	}
	return outcome.Success(q)
}

// UpsertBySourceQuestionID inserts the question or overwrites the row with
// the same business key. The stored id and created_at always win.
func (r *QuestionRepository) UpsertBySourceQuestionID(ctx context.Context, q *domain.Question) outcome.Outcome[*domain.Question] {
	s := q.State()
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	raw, err := json.Marshal(s.TypeData)
	if err != nil {
		return fail[*domain.Question]("encode type data", err)
	}

	err = database.Executor(ctx, r.pool).QueryRow(ctx,
		`INSERT INTO questions (id, user_id, question_bank_id, source_question_id, question_type, title, content,
		                        points, status, type_data, created_at, updated_at, published_at, archived_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		 ON CONFLICT (user_id, question_bank_id, source_question_id) DO UPDATE SET
		     question_type = EXCLUDED.question_type,
		     title         = EXCLUDED.title,
		     content       = EXCLUDED.content,
		     points        = EXCLUDED.points,
		     status        = EXCLUDED.status,
		     type_data     = EXCLUDED.type_data,
		     updated_at    = EXCLUDED.updated_at,
		     published_at  = EXCLUDED.published_at,
		     archived_at   = EXCLUDED.archived_at
		 RETURNING id, created_at, updated_at`,
		s.ID, s.Key.UserID, s.Key.QuestionBankID, s.Key.SourceQuestionID, string(s.Type), s.Title, s.Content,
		s.Points, string(s.Status), raw, s.CreatedAt, s.UpdatedAt, s.PublishedAt, s.ArchivedAt,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return fail[*domain.Question]("upsert question", err)
	}
	normalizeTimes(&s)
	return outcome.Success(domain.RehydrateQuestion(s))
}

// UpdateStatus writes the lifecycle columns of an existing question.
func (r *QuestionRepository) UpdateStatus(ctx context.Context, q *domain.Question) outcome.Outcome[outcome.Unit] {
	s := q.State()
	tag, err := database.Executor(ctx, r.pool).Exec(ctx,
		`UPDATE questions
		 SET status = $1, updated_at = $2, published_at = $3, archived_at = $4
		 WHERE id = $5 AND user_id = $6 AND question_bank_id = $7`,
		string(s.Status), s.UpdatedAt, s.PublishedAt, s.ArchivedAt, s.ID, s.Key.UserID, s.Key.QuestionBankID,
	)
	if err != nil {
		return fail[outcome.Unit]("update question status", err)
	}
	if tag.RowsAffected() == 0 {
		return outcome.Failuref[outcome.Unit](outcome.CodeNotFound, "question %s not found", s.Key)
	}
	return outcome.OK()
}

// RelationshipRepository handles question_taxonomy_relationships.
type RelationshipRepository struct {
	pool *pgxpool.Pool
	tx   *database.TxManager
}

// NewRelationshipRepository creates a new RelationshipRepository.
func NewRelationshipRepository(pool *pgxpool.Pool, tx *database.TxManager) *RelationshipRepository {
	return &RelationshipRepository{pool: pool, tx: tx}
}

// ReplaceRelationshipsForQuestion deletes the question's rows and bulk
// inserts rels. It joins the caller's transaction or opens its own.
func (r *RelationshipRepository) ReplaceRelationshipsForQuestion(ctx context.Context, userID, bankID int64, questionID uuid.UUID, rels []domain.TaxonomyRelationship) outcome.Outcome[int] {
	n := len(rels)
	ids := make([]uuid.UUID, 0, n)
	types := make([]string, 0, n)
	taxonomyIDs := make([]string, 0, n)
	createdAts := make([]time.Time, 0, n)
	seen := make(map[string]struct{}, n)
	for _, rel := range rels {
		if rel.UserID != userID || rel.QuestionBankID != bankID || rel.QuestionID != questionID {
			return outcome.Failuref[int](outcome.CodeDatabaseError, "relationship %s outside question scope", rel.TupleKey())
		}
		if _, dup := seen[rel.TupleKey()]; dup {
			return outcome.Failuref[int](outcome.CodeDuplicateRelationship, "duplicate relationship %s", rel.TupleKey())
		}
		seen[rel.TupleKey()] = struct{}{}
		id := rel.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		ids = append(ids, id)
		types = append(types, string(rel.TaxonomyType))
		taxonomyIDs = append(taxonomyIDs, rel.TaxonomyID)
		createdAts = append(createdAts, rel.CreatedAt)
	}

	err := r.tx.WithinTx(ctx, func(ctx context.Context) error {
		db := database.Executor(ctx, r.pool)
		if _, err := db.Exec(ctx,
			`DELETE FROM question_taxonomy_relationships
			 WHERE user_id = $1 AND question_bank_id = $2 AND question_id = $3`,
			userID, bankID, questionID,
		); err != nil {
			return fmt.Errorf("delete relationships: %w", err)
		}
		if n == 0 {
			return nil
		}
		_, err := db.Exec(ctx,
			`INSERT INTO question_taxonomy_relationships
			     (id, user_id, question_bank_id, question_id, taxonomy_type, taxonomy_id, created_at)
			 SELECT u.id, $2, $3, $4, u.taxonomy_type, u.taxonomy_id, u.created_at
			 FROM UNNEST($1::uuid[], $5::text[], $6::text[], $7::timestamptz[])
			      AS u (id, taxonomy_type, taxonomy_id, created_at)`,
			ids, userID, bankID, questionID, types, taxonomyIDs, createdAts,
		)
		if err != nil {
			return fmt.Errorf("insert relationships: %w", err)
		}
		return nil
	})
	if err != nil {
		return outcome.FromError[int](err, database.ClassifyError(err))
	}
	return outcome.Success(n)
}

// ListByQuestion returns the question's rows ordered by type then id.
func (r *RelationshipRepository) ListByQuestion(ctx context.Context, userID, bankID int64, questionID uuid.UUID) outcome.Outcome[[]domain.TaxonomyRelationship] {
	rows, err := database.Executor(ctx, r.pool).Query(ctx,
		`SELECT id, user_id, question_bank_id, question_id, taxonomy_type, taxonomy_id, created_at
		 FROM question_taxonomy_relationships
		 WHERE user_id = $1 AND question_bank_id = $2 AND question_id = $3
		 ORDER BY taxonomy_type, taxonomy_id`,
		userID, bankID, questionID,
	)
	if err != nil {
		return fail[[]domain.TaxonomyRelationship]("list relationships", err)
	}
	defer rows.Close()

	rels := []domain.TaxonomyRelationship{}
	for rows.Next() {
		var rel domain.TaxonomyRelationship
		if err := rows.Scan(&rel.ID, &rel.UserID, &rel.QuestionBankID, &rel.QuestionID,
			&rel.TaxonomyType, &rel.TaxonomyID, &rel.CreatedAt); err != nil {
			return fail[[]domain.TaxonomyRelationship]("scan relationship", err)
		}
		rel.CreatedAt = rel.CreatedAt.UTC()
		rels = append(rels, rel)
	}
	if err := rows.Err(); err != nil {
		return fail[[]domain.TaxonomyRelationship]("list relationships", err)
	}
	return outcome.Success(rels)
}
