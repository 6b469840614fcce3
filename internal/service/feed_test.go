package service_test

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/ora-civic/ora/internal/ai"
	"github.com/ora-civic/ora/internal/apperror"
	"github.com/ora-civic/ora/internal/database/memory"
	"github.com/ora-civic/ora/internal/database/types"
	"github.com/ora-civic/ora/internal/service"
	"github.com/redis/rueidis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func seedFeed(t *testing.T, store *memory.Store) {
	t.Helper()

	posts := []types.Post{
		{
			ID: "old-popular", Category: types.CategoryCentralGovernment, Title: "Café subsidies",
			TopicTags: []string{"economy"}, CreatedAt: baseTime,
			AgreeCount: 2, DisagreeCount: 8, TotalVotes: 10,
		},
		{
			ID: "mid", Category: types.CategoryCitizen, Title: "Bike lanes",
			FullDescription: "Protected lanes near the CAFE district", TopicTags: []string{"transport"},
			CreatedAt: baseTime.Add(time.Hour), AgreeCount: 5, MixedCount: 1, TotalVotes: 6,
		},
		{
			ID: "new", Category: types.CategoryStateGovernment, Title: "Water tariff",
			TopicTags: []string{"water", "economy"}, CreatedAt: baseTime.Add(2 * time.Hour),
			AgreeCount: 1, TotalVotes: 1,
		},
	}
	for _, post := range posts {
		seedPost(t, store, post)
	}
}

func viewIDs(views []*service.PostView) []string {
	result := make([]string, len(views))
	for i, view := range views {
		result[i] = view.ID
	}
	return result
}

func TestFeedList(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		filter types.FeedFilter
		want   []string
	}{
		{name: "default trending", filter: types.FeedFilter{}, want: []string{"old-popular", "mid", "new"}},
		{name: "new", filter: types.FeedFilter{Sort: types.FeedSortNew}, want: []string{"new", "mid", "old-popular"}},
		{name: "agree", filter: types.FeedFilter{Sort: types.FeedSortAgree}, want: []string{"mid", "old-popular", "new"}},
		{name: "disagree", filter: types.FeedFilter{Sort: types.FeedSortDisagree}, want: []string{"old-popular", "new", "mid"}},
		{
			name:   "search folds case and accents",
			filter: types.FeedFilter{Query: "cafe", Sort: types.FeedSortNew},
			want:   []string{"mid", "old-popular"},
		},
		{
			name:   "category",
			filter: types.FeedFilter{Categories: []types.Category{types.CategoryCitizen}},
			want:   []string{"mid"},
		},
		{
			name:   "topics",
			filter: types.FeedFilter{Topics: []string{"economy"}, Sort: types.FeedSortNew},
			want:   []string{"new", "old-popular"},
		},
		{name: "limit", filter: types.FeedFilter{Sort: types.FeedSortNew, Limit: 2}, want: []string{"new", "mid"}},
		{name: "no match", filter: types.FeedFilter{Query: "hospital"}, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store := memory.New()
			seedFeed(t, store)
			svc := service.NewFeedService(store, newFlows(t, newScriptedModel()), nil, zaptest.NewLogger(t))

			views, err := svc.List(t.Context(), tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, viewIDs(views))
		})
	}
}

func TestFeedListInvalid(t *testing.T) {
	t.Parallel()

	store := memory.New()
	svc := service.NewFeedService(store, newFlows(t, newScriptedModel()), nil, zaptest.NewLogger(t))

	for _, filter := range []types.FeedFilter{
		{Sort: "popular"},
		{Categories: []types.Category{"Mayor"}},
		{Limit: -1},
	} {
		_, err := svc.List(t.Context(), filter)
		require.ErrorIs(t, err, apperror.ErrInvalidInput)
	}
}

func TestFeedListDerivesSentiment(t *testing.T) {
	t.Parallel()

	store := memory.New()
	seedFeed(t, store)
	svc := service.NewFeedService(store, newFlows(t, newScriptedModel()), nil, zaptest.NewLogger(t))

	views, err := svc.List(t.Context(), types.FeedFilter{Sort: types.FeedSortNew})
	require.NoError(t, err)
	require.Len(t, views, 3)

	assert.Equal(t, types.SentimentMostlyAgree, views[0].SentimentTrend)
	assert.Equal(t, types.SentimentMostlyAgree, views[1].SentimentTrend)
	assert.Equal(t, types.SentimentMostlyDisagree, views[2].SentimentTrend)
}

func TestTrendingScore(t *testing.T) {
	t.Parallel()

	older := &types.Post{TotalVotes: 3, CreatedAt: baseTime}
	newer := &types.Post{TotalVotes: 3, CreatedAt: baseTime.Add(time.Minute)}
	popular := &types.Post{TotalVotes: 4, CreatedAt: baseTime}

	assert.Greater(t, service.TrendingScore(newer), service.TrendingScore(older))
	assert.Greater(t, service.TrendingScore(popular), service.TrendingScore(newer))
}

const ranking = `[
	{"postId":"new","rankScore":0.9,"reason":"Fresh and debated"},
	{"postId":"ghost","rankScore":0.8,"reason":"Invented"},
	{"postId":"old-popular","rankScore":0.4,"reason":"Older"},
	{"postId":"mid","rankScore":0.7,"reason":"Active"}
]`

func TestTrending(t *testing.T) {
	t.Parallel()

	store := memory.New()
	seedFeed(t, store)
	model := newScriptedModel().on(ai.TrendingSchema, ranking)
	svc := service.NewFeedService(store, newFlows(t, model), nil, zaptest.NewLogger(t))

	posts, err := svc.Trending(t.Context())
	require.NoError(t, err)
	require.Len(t, posts, 3)

	assert.Equal(t, "new", posts[0].ID)
	assert.Equal(t, "mid", posts[1].ID)
	assert.Equal(t, "old-popular", posts[2].ID)
	assert.InDelta(t, 0.9, posts[0].RankScore, 0.0001)
	assert.Equal(t, "Fresh and debated", posts[0].RankReason)
	assert.Equal(t, 1, model.callCount(ai.TrendingSchema))
}

func TestTrendingEmpty(t *testing.T) {
	t.Parallel()

	model := newScriptedModel().on(ai.TrendingSchema, ranking)
	svc := service.NewFeedService(memory.New(), newFlows(t, model), nil, zaptest.NewLogger(t))

	posts, err := svc.Trending(t.Context())
	require.NoError(t, err)
	assert.Empty(t, posts)
	assert.Zero(t, model.callCount(ai.TrendingSchema))
}

func TestTrendingInvalidModelOutput(t *testing.T) {
	t.Parallel()

	store := memory.New()
	seedFeed(t, store)
	model := newScriptedModel().on(ai.TrendingSchema, `[{"postId":"new","rankScore":1.5,"reason":"Too high"}]`)
	svc := service.NewFeedService(store, newFlows(t, model), nil, zaptest.NewLogger(t))

	_, err := svc.Trending(t.Context())
	require.ErrorIs(t, err, apperror.ErrInvalidModelOutput)
}

func TestTrendingCache(t *testing.T) {
	t.Parallel()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  []string{mr.Addr()},
		DisableCache: true,
	})
	require.NoError(t, err)
	defer client.Close()

	store := memory.New()
	seedFeed(t, store)
	model := newScriptedModel().on(ai.TrendingSchema, ranking)
	cache := service.NewTrendingCache(client, time.Minute, zaptest.NewLogger(t))
	svc := service.NewFeedService(store, newFlows(t, model), cache, zaptest.NewLogger(t))

	first, err := svc.Trending(t.Context())
	require.NoError(t, err)

	second, err := svc.Trending(t.Context())
	require.NoError(t, err)

	assert.Equal(t, 1, model.callCount(ai.TrendingSchema))
	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
		assert.InDelta(t, first[i].RankScore, second[i].RankScore, 0.0001)
	}

	seedPost(t, store, types.Post{ID: "newest", CreatedAt: baseTime.Add(3 * time.Hour)})

	_, err = svc.Trending(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 2, model.callCount(ai.TrendingSchema))
}
