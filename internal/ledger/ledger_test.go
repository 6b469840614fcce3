package ledger_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/ora-civic/ora/internal/apperror"
	"github.com/ora-civic/ora/internal/database/types"
	"github.com/ora-civic/ora/internal/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

var errStoreDown = errors.New("store unavailable")

type recordingPublisher struct {
	mu      sync.Mutex
	tallies []types.PostTally
	err     error
}

func (p *recordingPublisher) PublishTally(_ context.Context, tally types.PostTally) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.tallies = append(p.tallies, tally)
	return p.err
}

func (p *recordingPublisher) published() []types.PostTally {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]types.PostTally(nil), p.tallies...)
}

type failingStore struct{}

func (failingStore) RunInTx(context.Context, func(context.Context, ledger.Tx) error) error {
	return errStoreDown
}

func newLedger(t *testing.T) (*ledger.Ledger, *ledger.MemoryStore, *recordingPublisher) {
	t.Helper()

	store := ledger.NewMemoryStore()
	store.AddPost("p1", types.Tally{})
	publisher := &recordingPublisher{}

	return ledger.New(store, publisher, zaptest.NewLogger(t)), store, publisher
}

func requireTally(t *testing.T, store *ledger.MemoryStore, postID string, expected types.Tally) {
	t.Helper()

	tally, ok := store.Tally(postID)
	require.True(t, ok)
	assert.Equal(t, expected, tally)
	assert.True(t, tally.Consistent())
}

func TestCastVoteToggle(t *testing.T) {
	t.Parallel()

	l, store, _ := newLedger(t)
	ctx := t.Context()

	require.NoError(t, l.CastVote(ctx, "p1", "A", types.VoteTypeAgree))
	requireTally(t, store, "p1", types.Tally{Agree: 1, Total: 1})

	require.NoError(t, l.CastVote(ctx, "p1", "A", types.VoteTypeAgree))
	requireTally(t, store, "p1", types.Tally{})

	vote, err := store.GetVote(ctx, "p1", "A")
	require.NoError(t, err)
	assert.Nil(t, vote)

	require.NoError(t, l.CastVote(ctx, "p1", "A", types.VoteTypeAgree))
	requireTally(t, store, "p1", types.Tally{Agree: 1, Total: 1})
}

func TestCastVoteSwitch(t *testing.T) {
	t.Parallel()

	l, store, _ := newLedger(t)
	ctx := t.Context()

	require.NoError(t, l.CastVote(ctx, "p1", "A", types.VoteTypeAgree))

	outcome, tally, err := l.Cast(ctx, "p1", "A", types.VoteTypeMixed)
	require.NoError(t, err)
	assert.Equal(t, ledger.OutcomeSwitched, outcome)
	assert.Equal(t, types.Tally{Mixed: 1, Total: 1}, tally)
	requireTally(t, store, "p1", types.Tally{Mixed: 1, Total: 1})

	vote, err := store.GetVote(ctx, "p1", "A")
	require.NoError(t, err)
	require.NotNil(t, vote)
	assert.Equal(t, types.VoteTypeMixed, vote.VoteType)
}

func TestCastVoteOutcomes(t *testing.T) {
	t.Parallel()

	l, _, _ := newLedger(t)
	ctx := t.Context()

	steps := []struct {
		voteType types.VoteType
		outcome  ledger.Outcome
		tally    types.Tally
	}{
		{types.VoteTypeDisagree, ledger.OutcomeCast, types.Tally{Disagree: 1, Total: 1}},
		{types.VoteTypeAgree, ledger.OutcomeSwitched, types.Tally{Agree: 1, Total: 1}},
		{types.VoteTypeAgree, ledger.OutcomeCleared, types.Tally{}},
		{types.VoteTypeMixed, ledger.OutcomeCast, types.Tally{Mixed: 1, Total: 1}},
	}

	for i, step := range steps {
		outcome, tally, err := l.Cast(ctx, "p1", "B", step.voteType)
		require.NoError(t, err, "step %d", i)
		assert.Equal(t, step.outcome, outcome, "step %d", i)
		assert.Equal(t, step.tally, tally, "step %d", i)
	}
}

func TestCastVotePreconditions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		postID   string
		voterID  string
		voteType types.VoteType
		wantErr  error
	}{
		{
			name:     "missing voter",
			postID:   "p1",
			voterID:  "",
			voteType: types.VoteTypeAgree,
			wantErr:  apperror.ErrAuthenticationRequired,
		},
		{
			name:     "missing post",
			postID:   "",
			voterID:  "A",
			voteType: types.VoteTypeAgree,
			wantErr:  apperror.ErrInvalidInput,
		},
		{
			name:     "unknown vote type",
			postID:   "p1",
			voterID:  "A",
			voteType: types.VoteType("maybe"),
			wantErr:  apperror.ErrInvalidInput,
		},
		{
			name:     "post does not exist",
			postID:   "missing",
			voterID:  "A",
			voteType: types.VoteTypeAgree,
			wantErr:  apperror.ErrPostNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			l, store, publisher := newLedger(t)

			err := l.CastVote(t.Context(), tt.postID, tt.voterID, tt.voteType)
			require.ErrorIs(t, err, tt.wantErr)

			requireTally(t, store, "p1", types.Tally{})
			assert.Zero(t, store.VoteCount("p1"))
			assert.Empty(t, publisher.published())
		})
	}
}

func TestCastVoteStoreFailure(t *testing.T) {
	t.Parallel()

	l := ledger.New(failingStore{}, nil, zap.NewNop())

	err := l.CastVote(t.Context(), "p1", "A", types.VoteTypeAgree)
	require.ErrorIs(t, err, apperror.ErrRemote)
	require.ErrorIs(t, err, errStoreDown)
}

func TestCastVotePublishes(t *testing.T) {
	t.Parallel()

	l, _, publisher := newLedger(t)
	ctx := t.Context()

	require.NoError(t, l.CastVote(ctx, "p1", "A", types.VoteTypeAgree))
	require.NoError(t, l.CastVote(ctx, "p1", "B", types.VoteTypeAgree))
	require.NoError(t, l.CastVote(ctx, "p1", "C", types.VoteTypeDisagree))

	published := publisher.published()
	require.Len(t, published, 3)

	last := published[2]
	assert.Equal(t, "p1", last.PostID)
	assert.Equal(t, types.Tally{Agree: 2, Disagree: 1, Total: 3}, last.Tally)
	assert.Equal(t, types.SentimentMostlyAgree, last.SentimentTrend)
}

func TestCastVotePublishFailureIsIgnored(t *testing.T) {
	t.Parallel()

	store := ledger.NewMemoryStore()
	store.AddPost("p1", types.Tally{})
	publisher := &recordingPublisher{err: errStoreDown}
	l := ledger.New(store, publisher, zaptest.NewLogger(t))

	require.NoError(t, l.CastVote(t.Context(), "p1", "A", types.VoteTypeAgree))
	requireTally(t, store, "p1", types.Tally{Agree: 1, Total: 1})
}

func TestCastVoteFlooredCounter(t *testing.T) {
	t.Parallel()

	l, store, _ := newLedger(t)
	ctx := t.Context()

	// A vote record whose counter was never incremented
	require.NoError(t, store.RunInTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		return tx.PutVote(ctx, &types.Vote{PostID: "p1", VoterID: "A", VoteType: types.VoteTypeDisagree})
	}))

	require.NoError(t, l.CastVote(ctx, "p1", "A", types.VoteTypeDisagree))
	requireTally(t, store, "p1", types.Tally{})
	assert.Zero(t, store.VoteCount("p1"))
}

// TestCastVoteConservation replays random cast sequences and checks the tally
// always matches the vote records.
func TestCastVoteConservation(t *testing.T) {
	t.Parallel()

	l, store, _ := newLedger(t)
	ctx := t.Context()

	rng := rand.New(rand.NewPCG(1, 2))
	voters := []string{"A", "B", "C", "D", "E"}
	last := make(map[string]types.VoteType)

	for range 500 {
		voter := voters[rng.IntN(len(voters))]
		voteType := types.VoteTypes[rng.IntN(len(types.VoteTypes))]

		require.NoError(t, l.CastVote(ctx, "p1", voter, voteType))

		if last[voter] == voteType {
			delete(last, voter)
		} else {
			last[voter] = voteType
		}

		tally, ok := store.Tally("p1")
		require.True(t, ok)
		require.True(t, tally.Consistent())
	}

	var expected types.Tally
	for voter, voteType := range last {
		expected.Add(voteType)

		vote, err := store.GetVote(ctx, "p1", voter)
		require.NoError(t, err)
		require.NotNil(t, vote)
		assert.Equal(t, voteType, vote.VoteType)
	}

	requireTally(t, store, "p1", expected)
	assert.Equal(t, len(last), store.VoteCount("p1"))
}

// TestCastVoteConcurrent casts from many goroutines at once. Every voter casts an
// even number of times on "toggle" voters and an odd number on the others so the
// final tally is known in advance.
func TestCastVoteConcurrent(t *testing.T) {
	t.Parallel()

	l, store, _ := newLedger(t)
	ctx := t.Context()

	const voters = 20

	var wg sync.WaitGroup
	errs := make(chan error, voters*3)

	for i := range voters {
		wg.Add(1)

		go func(i int) {
			defer wg.Done()

			voterID := fmt.Sprintf("voter-%d", i)
			voteType := types.VoteTypes[i%len(types.VoteTypes)]

			casts := 1
			if i%2 == 0 {
				casts = 2
			}

			for range casts {
				errs <- l.CastVote(ctx, "p1", voterID, voteType)
			}
		}(i)
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	var expected types.Tally
	for i := range voters {
		if i%2 == 1 {
			expected.Add(types.VoteTypes[i%len(types.VoteTypes)])
		}
	}

	requireTally(t, store, "p1", expected)
	assert.Equal(t, voters/2, store.VoteCount("p1"))
}
