package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/stemsi/qbank-core/internal/domain"
)

// ChangeLog is a ChangeSink that keeps every published record.
type ChangeLog struct {
	mu      sync.Mutex
	records []domain.ChangeRecord
	err     error
}

// NewChangeLog returns an empty ChangeLog.
func NewChangeLog() *ChangeLog { return &ChangeLog{} }

// Publish appends records, or returns the error set by FailWith.
func (l *ChangeLog) Publish(_ context.Context, records []domain.ChangeRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return l.err
	}
	l.records = append(l.records, records...)
	return nil
}

// FailWith makes every later Publish return err. A nil err restores it.
func (l *ChangeLog) FailWith(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.err = err
}

// Records returns a copy of the published records.
func (l *ChangeLog) Records() []domain.ChangeRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.records)
}
