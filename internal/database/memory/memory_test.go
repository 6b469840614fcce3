package memory_test

import (
	"testing"
	"time"

	"github.com/ora-civic/ora/internal/apperror"
	"github.com/ora-civic/ora/internal/database/memory"
	"github.com/ora-civic/ora/internal/database/types"
	"github.com/ora-civic/ora/internal/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func seed(t *testing.T, store *memory.Store) {
	t.Helper()

	base := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	posts := []*types.Post{
		{ID: "p1", Category: types.CategoryCitizen, Title: "Bike lanes", TopicTags: []string{"transport"}, CreatedAt: base},
		{ID: "p2", Category: types.CategoryStateGovernment, Title: "Water tariff", TopicTags: []string{"water"}, CreatedAt: base.Add(time.Hour)},
		{ID: "p3", Category: types.CategoryCentralGovernment, Title: "Rail budget", TopicTags: []string{"transport", "budget"}, CreatedAt: base.Add(2 * time.Hour)},
	}
	for _, post := range posts {
		require.NoError(t, store.CreatePost(t.Context(), post))
	}
}

func TestListPosts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		filter types.FeedFilter
		want   []string
	}{
		{name: "all newest first", filter: types.FeedFilter{}, want: []string{"p3", "p2", "p1"}},
		{
			name:   "government only",
			filter: types.FeedFilter{Categories: []types.Category{types.CategoryStateGovernment, types.CategoryCentralGovernment}},
			want:   []string{"p3", "p2"},
		},
		{name: "topic any match", filter: types.FeedFilter{Topics: []string{"transport"}}, want: []string{"p3", "p1"}},
		{
			name: "category and topic",
			filter: types.FeedFilter{
				Categories: []types.Category{types.CategoryCitizen},
				Topics:     []string{"water", "transport"},
			},
			want: []string{"p1"},
		},
		{name: "no match", filter: types.FeedFilter{Topics: []string{"health"}}, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store := memory.New()
			seed(t, store)

			posts, err := store.ListPosts(t.Context(), tt.filter)
			require.NoError(t, err)

			ids := make([]string, 0, len(posts))
			for _, post := range posts {
				ids = append(ids, post.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestPostTallyReflectsLedger(t *testing.T) {
	t.Parallel()

	store := memory.New()
	seed(t, store)

	l := ledger.New(store, nil, zaptest.NewLogger(t))
	require.NoError(t, l.CastVote(t.Context(), "p1", "alice", types.VoteTypeAgree))
	require.NoError(t, l.CastVote(t.Context(), "p1", "bob", types.VoteTypeDisagree))

	post, err := store.GetPost(t.Context(), "p1")
	require.NoError(t, err)
	assert.Equal(t, types.Tally{Agree: 1, Disagree: 1, Total: 2}, post.Tally())

	vote, err := store.GetVote(t.Context(), "p1", "alice")
	require.NoError(t, err)
	require.NotNil(t, vote)
	assert.Equal(t, types.VoteTypeAgree, vote.VoteType)
}

func TestGetPostReturnsCopy(t *testing.T) {
	t.Parallel()

	store := memory.New()
	seed(t, store)

	post, err := store.GetPost(t.Context(), "p1")
	require.NoError(t, err)
	post.Title = "changed"
	post.TopicTags[0] = "changed"

	again, err := store.GetPost(t.Context(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "Bike lanes", again.Title)
	assert.Equal(t, []string{"transport"}, again.TopicTags)
}

func TestMissingPost(t *testing.T) {
	t.Parallel()

	store := memory.New()

	_, err := store.GetPost(t.Context(), "missing")
	require.ErrorIs(t, err, apperror.ErrPostNotFound)

	err = store.AddComment(t.Context(), &types.Comment{ID: "c1", PostID: "missing", Text: "hi"})
	require.ErrorIs(t, err, apperror.ErrPostNotFound)

	err = store.PutReason(t.Context(), &types.VoteReason{PostID: "missing", VoterID: "v", Reason: types.ReasonOther})
	require.ErrorIs(t, err, apperror.ErrPostNotFound)

	err = store.UpdateCommentSummary(t.Context(), "missing", "summary")
	require.ErrorIs(t, err, apperror.ErrPostNotFound)
}

func TestCommentsNewestFirst(t *testing.T) {
	t.Parallel()

	store := memory.New()
	seed(t, store)

	base := time.Date(2026, 10, 2, 0, 0, 0, 0, time.UTC)
	for i, text := range []string{"first", "second", "third"} {
		require.NoError(t, store.AddComment(t.Context(), &types.Comment{
			ID:        text,
			PostID:    "p1",
			Text:      text,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	texts, err := store.ListCommentTexts(t.Context(), "p1")
	require.NoError(t, err)
	assert.Equal(t, []string{"third", "second", "first"}, texts)

	empty, err := store.ListComments(t.Context(), "p2")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestPutReasonReplaces(t *testing.T) {
	t.Parallel()

	store := memory.New()
	seed(t, store)

	base := time.Date(2026, 10, 2, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.PutReason(t.Context(), &types.VoteReason{
		PostID: "p1", VoterID: "alice", Reason: types.ReasonEconomic, CreatedAt: base,
	}))
	require.NoError(t, store.PutReason(t.Context(), &types.VoteReason{
		PostID: "p1", VoterID: "bob", Reason: types.ReasonEnvironment, CreatedAt: base.Add(time.Minute),
	}))
	require.NoError(t, store.PutReason(t.Context(), &types.VoteReason{
		PostID: "p1", VoterID: "alice", Reason: types.ReasonOther, CreatedAt: base.Add(2 * time.Minute),
	}))

	reasons, err := store.ListReasons(t.Context(), "p1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Environment", "Other"}, reasons)
}
