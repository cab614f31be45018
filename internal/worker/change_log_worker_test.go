package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/qbank-core/internal/config"
	"github.com/stemsi/qbank-core/internal/domain"
	"github.com/stretchr/testify/assert"
)

type fakeStore struct {
	bulkErr error
	bulk    [][]domain.ChangeRecord
	single  []domain.ChangeRecord
}

func (s *fakeStore) BulkInsert(_ context.Context, records []domain.ChangeRecord) error {
	if s.bulkErr != nil {
		return s.bulkErr
	}
	s.bulk = append(s.bulk, append([]domain.ChangeRecord(nil), records...))
	return nil
}

func (s *fakeStore) Insert(_ context.Context, rec domain.ChangeRecord) error {
	s.single = append(s.single, rec)
	return nil
}

func records(n int) []domain.ChangeRecord {
	out := make([]domain.ChangeRecord, n)
	for i := range out {
		out[i] = domain.ChangeRecord{
			Key:        domain.BusinessKey{UserID: 1, QuestionBankID: 2, SourceQuestionID: "q"},
			QuestionID: uuid.New(),
			Kind:       domain.ChangeCreated,
			OccurredAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		}
	}
	return out
}

func newTestWorker(store ChangeLogStore) *ChangeLogWorker {
	return NewChangeLogWorker(store, nil, &config.Config{ChangeLogBatchSize: 10, ChangeLogFlushInterval: time.Second}, zerolog.Nop())
}

func TestFlushWritesBatchInOneStatement(t *testing.T) {
	store := &fakeStore{}
	newTestWorker(store).flush(context.Background(), records(3))

	assert.Len(t, store.bulk, 1)
	assert.Len(t, store.bulk[0], 3)
	assert.Empty(t, store.single)
}

func TestFlushFallsBackToSingleInserts(t *testing.T) {
	store := &fakeStore{bulkErr: errors.New("deadlock")}
	newTestWorker(store).flush(context.Background(), records(2))

	assert.Empty(t, store.bulk)
	assert.Len(t, store.single, 2)
}

func TestFlushIgnoresEmptyBatch(t *testing.T) {
	store := &fakeStore{}
	newTestWorker(store).flush(context.Background(), nil)
	assert.Empty(t, store.bulk)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	w := newTestWorker(&fakeStore{})

	_, ok := w.decode("{not json")
	assert.False(t, ok)

	rec, ok := w.decode(`{"key":{"user_id":1,"question_bank_id":2,"source_question_id":"q"},"kind":"published","changed_fields":["status"]}`)
	assert.True(t, ok)
	assert.Equal(t, domain.ChangePublished, rec.Kind)
	assert.Equal(t, "q", rec.Key.SourceQuestionID)
}

func TestBatchSizeIsAtLeastOne(t *testing.T) {
	w := NewChangeLogWorker(&fakeStore{}, nil, &config.Config{}, zerolog.Nop())
	assert.Equal(t, 1, w.batchSize)
}
