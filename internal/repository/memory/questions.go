package memory

import (
	"context"

	"github.com/google/uuid"
	"github.com/stemsi/qbank-core/internal/domain"
	"github.com/stemsi/qbank-core/internal/outcome"
)

// QuestionRepository implements port.QuestionRepository.
type QuestionRepository struct {
	st *Store
}

// Questions returns the question repository of the store.
func (st *Store) Questions() *QuestionRepository { return &QuestionRepository{st: st} }

func (r *QuestionRepository) FindBySourceQuestionID(ctx context.Context, key domain.BusinessKey) outcome.Outcome[*domain.Question] {
	r.st.calls.finds.Add(1)
	var found *domain.Question
	r.st.read(ctx, func(s *state) {
		if id, ok := s.byKey[key]; ok {
			found = domain.RehydrateQuestion(s.questions[id])
		}
	})
	return outcome.Success(found)
}

func (r *QuestionRepository) UpsertBySourceQuestionID(ctx context.Context, q *domain.Question) outcome.Outcome[*domain.Question] {
	r.st.calls.upserts.Add(1)
	qs := q.State()
	r.st.write(ctx, func(s *state) {
		if id, ok := s.byKey[qs.Key]; ok {
			qs.ID = id
			qs.CreatedAt = s.questions[id].CreatedAt
		} else if qs.ID == uuid.Nil {
			qs.ID = uuid.New()
		}
		s.questions[qs.ID] = qs
		s.byKey[qs.Key] = qs.ID
	})
	return outcome.Success(domain.RehydrateQuestion(qs))
}

func (r *QuestionRepository) UpdateStatus(ctx context.Context, q *domain.Question) outcome.Outcome[outcome.Unit] {
	qs := q.State()
	found := false
	r.st.write(ctx, func(s *state) {
		cur, ok := s.questions[qs.ID]
		if !ok || cur.Key != qs.Key {
			return
		}
		found = true
		cur.Status = qs.Status
		cur.PublishedAt = qs.PublishedAt
		cur.ArchivedAt = qs.ArchivedAt
		cur.UpdatedAt = qs.UpdatedAt
		s.questions[qs.ID] = cur
	})
	if !found {
		return outcome.Failuref[outcome.Unit](outcome.CodeNotFound, "question %s not found", qs.Key)
	}
	return outcome.OK()
}

// RelationshipRepository implements port.QuestionTaxonomyRelationshipRepository.
type RelationshipRepository struct {
	st *Store
}

// Relationships returns the relationship repository of the store.
func (st *Store) Relationships() *RelationshipRepository { return &RelationshipRepository{st: st} }

func (r *RelationshipRepository) ReplaceRelationshipsForQuestion(ctx context.Context, userID, bankID int64, questionID uuid.UUID, rels []domain.TaxonomyRelationship) outcome.Outcome[int] {
	r.st.calls.replaces.Add(1)
	if code, ok := r.st.injected(&r.st.failReplace); ok {
		return injectedFailure[int](code, "relationship replace")
	}

	rows := make([]domain.TaxonomyRelationship, 0, len(rels))
	seen := make(map[string]struct{}, len(rels))
	for _, rel := range rels {
		if rel.UserID != userID || rel.QuestionBankID != bankID || rel.QuestionID != questionID {
			return outcome.Failuref[int](outcome.CodeDatabaseError, "relationship %s outside question scope", rel.TupleKey())
		}
		if _, dup := seen[rel.TupleKey()]; dup {
			return outcome.Failuref[int](outcome.CodeDuplicateRelationship, "duplicate relationship %s", rel.TupleKey())
		}
		seen[rel.TupleKey()] = struct{}{}
		if rel.ID == uuid.Nil {
			rel.ID = uuid.New()
		}
		rows = append(rows, rel)
	}

	r.st.write(ctx, func(s *state) {
		if len(rows) == 0 {
			delete(s.relationships, questionID)
			return
		}
		s.relationships[questionID] = rows
	})
	return outcome.Success(len(rows))
}

func (r *RelationshipRepository) ListByQuestion(ctx context.Context, userID, bankID int64, questionID uuid.UUID) outcome.Outcome[[]domain.TaxonomyRelationship] {
	var out []domain.TaxonomyRelationship
	r.st.read(ctx, func(s *state) {
		for _, rel := range s.relationships[questionID] {
			if rel.UserID == userID && rel.QuestionBankID == bankID {
				out = append(out, rel)
			}
		}
	})
	if out == nil {
		out = []domain.TaxonomyRelationship{}
	}
	return outcome.Success(out)
}
