// Package memory implements every persistence port in process memory. A
// transaction works on a private copy of the state that replaces the
// committed state only when the unit of work succeeds.
package memory

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/stemsi/qbank-core/internal/domain"
	"github.com/stemsi/qbank-core/internal/outcome"
)

type bankKey struct {
	userID int64
	bankID int64
}

type state struct {
	questions     map[uuid.UUID]domain.QuestionState
	byKey         map[domain.BusinessKey]uuid.UUID
	relationships map[uuid.UUID][]domain.TaxonomyRelationship
	taxonomies    map[bankKey]domain.TaxonomySet
	banks         map[int64]domain.QuestionBanksPerUser
}

func newState() *state {
	return &state{
		questions:     map[uuid.UUID]domain.QuestionState{},
		byKey:         map[domain.BusinessKey]uuid.UUID{},
		relationships: map[uuid.UUID][]domain.TaxonomyRelationship{},
		taxonomies:    map[bankKey]domain.TaxonomySet{},
		banks:         map[int64]domain.QuestionBanksPerUser{},
	}
}

// clone copies the maps. Stored values are replaced wholesale on write and
// never mutated in place, so sharing them between copies is safe.
func (s *state) clone() *state {
	c := &state{
		questions:     make(map[uuid.UUID]domain.QuestionState, len(s.questions)),
		byKey:         make(map[domain.BusinessKey]uuid.UUID, len(s.byKey)),
		relationships: make(map[uuid.UUID][]domain.TaxonomyRelationship, len(s.relationships)),
		taxonomies:    make(map[bankKey]domain.TaxonomySet, len(s.taxonomies)),
		banks:         make(map[int64]domain.QuestionBanksPerUser, len(s.banks)),
	}
	for k, v := range s.questions {
		c.questions[k] = v
	}
	for k, v := range s.byKey {
		c.byKey[k] = v
	}
	for k, v := range s.relationships {
		c.relationships[k] = v
	}
	for k, v := range s.taxonomies {
		c.taxonomies[k] = v
	}
	for k, v := range s.banks {
		c.banks[k] = v
	}
	return c
}

// Stats counts port calls. Tests use it to assert which steps ran.
type Stats struct {
	OwnershipChecks int64
	ActivityChecks  int64
	TaxonomyChecks  int64
	Finds           int64
	Upserts         int64
	Replaces        int64
	Queries         int64
}

type counters struct {
	ownership, activity, taxonomy, finds, upserts, replaces, queries atomic.Int64
}

type failure struct {
	code      outcome.Code
	remaining int
}

// Store holds all in-memory state. It implements port.TxManager and is the
// shared backend of the repositories returned by its accessor methods.
type Store struct {
	// txMu serializes writers; mu guards the committed state pointer.
	txMu  sync.Mutex
	mu    sync.RWMutex
	state *state

	hookMu      sync.Mutex
	failReplace *failure
	failOwner   *failure

	calls counters
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{state: newState()}
}

type txKey struct{}

type txState struct {
	s *state
}

// WithinTx runs fn against a private copy of the state and commits the copy
// only if fn returns nil. Nested calls join the outer transaction.
func (st *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*txState); ok {
		return fn(ctx)
	}

	st.txMu.Lock()
	defer st.txMu.Unlock()

	st.mu.RLock()
	tx := &txState{s: st.state.clone()}
	st.mu.RUnlock()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}

	st.mu.Lock()
	st.state = tx.s
	st.mu.Unlock()
	return nil
}

// read runs fn against the transaction state in ctx or the committed state.
func (st *Store) read(ctx context.Context, fn func(s *state)) {
	if tx, ok := ctx.Value(txKey{}).(*txState); ok {
		fn(tx.s)
		return
	}
	st.mu.RLock()
	defer st.mu.RUnlock()
	fn(st.state)
}

// write runs fn against the transaction state in ctx, or directly against
// the committed state while holding the writer lock.
func (st *Store) write(ctx context.Context, fn func(s *state)) {
	if tx, ok := ctx.Value(txKey{}).(*txState); ok {
		fn(tx.s)
		return
	}
	st.txMu.Lock()
	defer st.txMu.Unlock()
	st.mu.Lock()
	defer st.mu.Unlock()
	fn(st.state)
}

// FailNextReplace makes the next relationship replacement fail with code.
func (st *Store) FailNextReplace(code outcome.Code) {
	st.hookMu.Lock()
	defer st.hookMu.Unlock()
	st.failReplace = &failure{code: code, remaining: 1}
}

// FailOwnership makes the next n ownership checks fail with code.
func (st *Store) FailOwnership(code outcome.Code, n int) {
	st.hookMu.Lock()
	defer st.hookMu.Unlock()
	st.failOwner = &failure{code: code, remaining: n}
}

func (st *Store) injected(f **failure) (outcome.Code, bool) {
	st.hookMu.Lock()
	defer st.hookMu.Unlock()
	if *f == nil || (*f).remaining <= 0 {
		return "", false
	}
	(*f).remaining--
	code := (*f).code
	if (*f).remaining == 0 {
		*f = nil
	}
	return code, true
}

// Stats returns the call counters.
func (st *Store) Stats() Stats {
	return Stats{
		OwnershipChecks: st.calls.ownership.Load(),
		ActivityChecks:  st.calls.activity.Load(),
		TaxonomyChecks:  st.calls.taxonomy.Load(),
		Finds:           st.calls.finds.Load(),
		Upserts:         st.calls.upserts.Load(),
		Replaces:        st.calls.replaces.Load(),
		Queries:         st.calls.queries.Load(),
	}
}

func injectedFailure[T any](code outcome.Code, op string) outcome.Outcome[T] {
	return outcome.Failure[T](code, fmt.Sprintf("injected failure in %s", op))
}
