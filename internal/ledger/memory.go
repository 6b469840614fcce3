package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/cenkalti/backoff/v4"
	"github.com/ora-civic/ora/internal/apperror"
	"github.com/ora-civic/ora/internal/database/types"
	"github.com/ora-civic/ora/pkg/utils"
)

type voteKey struct {
	postID  string
	voterID string
}

type tallyRow struct {
	tally   types.Tally
	version uint64
}

// MemoryStore is an in-process Store using optimistic concurrency control.
// Each transaction records the version of every post it reads and commits only
// if none of them changed in the meantime; otherwise the whole closure is retried.
type MemoryStore struct {
	mu      sync.RWMutex
	tallies map[string]*tallyRow
	votes   map[voteKey]types.Vote
	opts    utils.RetryOptions
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tallies: make(map[string]*tallyRow),
		votes:   make(map[voteKey]types.Vote),
		opts:    utils.GetConflictRetryOptions(),
	}
}

// AddPost registers a post with an initial tally. Existing posts are left untouched.
func (s *MemoryStore) AddPost(postID string, tally types.Tally) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tallies[postID]; !ok {
		s.tallies[postID] = &tallyRow{tally: tally}
	}
}

// Tally returns the committed tally of a post.
func (s *MemoryStore) Tally(postID string) (types.Tally, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.tallies[postID]
	if !ok {
		return types.Tally{}, false
	}
	return row.tally, true
}

// GetVote returns the voter's committed vote, or nil when none exists.
func (s *MemoryStore) GetVote(_ context.Context, postID, voterID string) (*types.Vote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	vote, ok := s.votes[voteKey{postID, voterID}]
	if !ok {
		return nil, nil
	}
	return &vote, nil
}

// VoteCount returns the number of vote records stored for a post.
func (s *MemoryStore) VoteCount(postID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for key := range s.votes {
		if key.postID == postID {
			count++
		}
	}
	return count
}

// RunInTx runs fn against a buffered transaction and commits it atomically,
// retrying on conflicts with exponential backoff.
func (s *MemoryStore) RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	_, err := utils.WithRetry(ctx, func() (struct{}, error) {
		tx := s.begin()

		if err := fn(ctx, tx); err != nil {
			return struct{}{}, backoff.Permanent(err)
		}

		if err := s.commit(tx); err != nil {
			if errors.Is(err, ErrConflict) {
				return struct{}{}, err
			}
			return struct{}{}, backoff.Permanent(err)
		}

		return struct{}{}, nil
	}, s.opts)
	if err != nil {
		return fmt.Errorf("memory transaction failed: %w", err)
	}

	return nil
}

// memoryTx buffers writes until commit.
type memoryTx struct {
	store   *MemoryStore
	reads   map[string]uint64
	tallies map[string]types.Tally
	votes   map[voteKey]*types.Vote // nil value marks a deletion
}

func (s *MemoryStore) begin() *memoryTx {
	return &memoryTx{
		store:   s,
		reads:   make(map[string]uint64),
		tallies: make(map[string]types.Tally),
		votes:   make(map[voteKey]*types.Vote),
	}
}

func (s *MemoryStore) commit(tx *memoryTx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for postID, version := range tx.reads {
		row, ok := s.tallies[postID]
		if !ok || row.version != version {
			return ErrConflict
		}
	}

	for postID, tally := range tx.tallies {
		row, ok := s.tallies[postID]
		if !ok {
			return apperror.ErrPostNotFound
		}
		row.tally = tally
		row.version++
	}

	for key, vote := range tx.votes {
		if vote == nil {
			delete(s.votes, key)
			continue
		}
		s.votes[key] = *vote
	}

	return nil
}

func (t *memoryTx) GetTally(_ context.Context, postID string) (types.Tally, error) {
	if tally, ok := t.tallies[postID]; ok {
		return tally, nil
	}

	t.store.mu.RLock()
	defer t.store.mu.RUnlock()

	row, ok := t.store.tallies[postID]
	if !ok {
		return types.Tally{}, apperror.ErrPostNotFound
	}

	if _, seen := t.reads[postID]; !seen {
		t.reads[postID] = row.version
	}

	return row.tally, nil
}

// GetVote reads a voter's record. Vote rows are only written together with their
// post's tally, so the tally version read in the same transaction guards them too.
func (t *memoryTx) GetVote(_ context.Context, postID, voterID string) (*types.Vote, error) {
	key := voteKey{postID, voterID}
	if vote, ok := t.votes[key]; ok {
		return vote, nil
	}

	t.store.mu.RLock()
	defer t.store.mu.RUnlock()

	vote, ok := t.store.votes[key]
	if !ok {
		return nil, nil
	}
	return &vote, nil
}

func (t *memoryTx) UpdateTally(_ context.Context, postID string, tally types.Tally) error {
	t.tallies[postID] = tally
	return nil
}

func (t *memoryTx) PutVote(_ context.Context, vote *types.Vote) error {
	v := *vote
	t.votes[voteKey{vote.PostID, vote.VoterID}] = &v
	return nil
}

func (t *memoryTx) DeleteVote(_ context.Context, postID, voterID string) error {
	t.votes[voteKey{postID, voterID}] = nil
	return nil
}
