package transactions

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

const localFeedBuffer = 16

// LocalFeed is an in-process ChangeFeed for tests and single-node development.
type LocalFeed struct {
	mu   sync.Mutex
	subs map[uuid.UUID]map[*localSubscription]struct{}
}

func NewLocalFeed() *LocalFeed {
	return &LocalFeed{subs: make(map[uuid.UUID]map[*localSubscription]struct{})}
}

func (f *LocalFeed) Publish(_ context.Context, change Change) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for sub := range f.subs[change.TransactionID] {
		select {
		case sub.ch <- change:
		default:
		}
	}
	return nil
}

func (f *LocalFeed) Subscribe(_ context.Context, transactionID uuid.UUID) (Subscription, error) {
	sub := &localSubscription{
		feed: f,
		id:   transactionID,
		ch:   make(chan Change, localFeedBuffer),
	}
	f.mu.Lock()
	if f.subs[transactionID] == nil {
		f.subs[transactionID] = make(map[*localSubscription]struct{})
	}
	f.subs[transactionID][sub] = struct{}{}
	f.mu.Unlock()
	return sub, nil
}

// Subscribers reports how many live subscriptions exist for the transaction.
func (f *LocalFeed) Subscribers(transactionID uuid.UUID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs[transactionID])
}

func (f *LocalFeed) remove(sub *localSubscription) {
	f.mu.Lock()
	defer f.mu.Unlock()
	set := f.subs[sub.id]
	if _, ok := set[sub]; !ok {
		return
	}
	delete(set, sub)
	if len(set) == 0 {
		delete(f.subs, sub.id)
	}
	close(sub.ch)
}

type localSubscription struct {
	feed *LocalFeed
	id   uuid.UUID
	ch   chan Change
	once sync.Once
}

func (s *localSubscription) Changes() <-chan Change { return s.ch }

func (s *localSubscription) Close() error {
	s.once.Do(func() { s.feed.remove(s) })
	return nil
}
