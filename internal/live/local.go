package live

import (
	"context"
	"sync"

	"github.com/ora-civic/ora/internal/database/types"
)

// LocalBroker delivers tally updates to subscribers in the same process.
// It backs the development mode that runs without Redis.
type LocalBroker struct {
	mu     sync.RWMutex
	nextID int
	subs   map[string]map[int]chan types.PostTally
}

// NewLocalBroker creates an empty in-process broker.
func NewLocalBroker() *LocalBroker {
	return &LocalBroker{
		subs: make(map[string]map[int]chan types.PostTally),
	}
}

// PublishTally delivers the update to current subscribers. Slow subscribers
// miss updates instead of blocking the publisher.
func (b *LocalBroker) PublishTally(_ context.Context, tally types.PostTally) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subs[tally.PostID] {
		select {
		case ch <- tally:
		default:
		}
	}

	return nil
}

// Subscribe receives updates for a post until ctx is done.
func (b *LocalBroker) Subscribe(ctx context.Context, postID string, ready func(), fn func(types.PostTally)) error {
	ch := make(chan types.PostTally, 16)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	if b.subs[postID] == nil {
		b.subs[postID] = make(map[int]chan types.PostTally)
	}
	b.subs[postID][id] = ch
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		delete(b.subs[postID], id)
		if len(b.subs[postID]) == 0 {
			delete(b.subs, postID)
		}
		b.mu.Unlock()
	}()

	if ready != nil {
		ready()
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case tally := <-ch:
			fn(tally)
		}
	}
}

// Subscribers returns the number of active subscriptions on a post.
func (b *LocalBroker) Subscribers(postID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.subs[postID])
}
