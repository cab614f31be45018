package memory

import (
	"context"
	"sync"

	"github.com/stemsi/qbank-core/internal/domain"
	"github.com/stemsi/qbank-core/internal/model"
)

// feedBuffer is the number of records a subscriber may lag behind.
const feedBuffer = 64

type feedKey struct {
	userID, bankID int64
}

// ChangeFeed is an in-process ChangeSink that hands records straight to
// the subscribers of their bank.
type ChangeFeed struct {
	mu   sync.Mutex
	subs map[feedKey]map[*subscription]struct{}
}

// NewChangeFeed returns a feed without subscribers.
func NewChangeFeed() *ChangeFeed {
	return &ChangeFeed{subs: make(map[feedKey]map[*subscription]struct{})}
}

// Publish delivers every record to the current subscribers of its bank.
// A full subscriber buffer drops the record for that subscriber.
func (f *ChangeFeed) Publish(_ context.Context, records []domain.ChangeRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, rec := range records {
		for sub := range f.subs[feedKey{rec.Key.UserID, rec.Key.QuestionBankID}] {
			select {
			case sub.ch <- rec:
			default:
			}
		}
	}
	return nil
}

// Subscribe registers a stream for one bank. The stream closes when ctx is
// done or Close is called.
func (f *ChangeFeed) Subscribe(ctx context.Context, userID, bankID int64) (model.ChangeStream, error) {
	sub := &subscription{feed: f, key: feedKey{userID, bankID}, ch: make(chan domain.ChangeRecord, feedBuffer)}

	f.mu.Lock()
	if f.subs[sub.key] == nil {
		f.subs[sub.key] = make(map[*subscription]struct{})
	}
	f.subs[sub.key][sub] = struct{}{}
	f.mu.Unlock()

	context.AfterFunc(ctx, func() { sub.Close() })
	return sub, nil
}

// Subscribers returns the number of open streams for a bank.
func (f *ChangeFeed) Subscribers(userID, bankID int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs[feedKey{userID, bankID}])
}

type subscription struct {
	feed *ChangeFeed
	key  feedKey
	ch   chan domain.ChangeRecord
	once sync.Once
}

func (s *subscription) Records() <-chan domain.ChangeRecord { return s.ch }

func (s *subscription) Close() error {
	s.once.Do(func() {
		s.feed.mu.Lock()
		defer s.feed.mu.Unlock()
		delete(s.feed.subs[s.key], s)
		if len(s.feed.subs[s.key]) == 0 {
			delete(s.feed.subs, s.key)
		}
		close(s.ch)
	})
	return nil
}
