package service

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/ora-civic/ora/internal/ai"
	"github.com/ora-civic/ora/internal/apperror"
	"github.com/ora-civic/ora/internal/database/types"
	"github.com/ora-civic/ora/pkg/utils"
	"go.uber.org/zap"
)

const (
	// DefaultFeedLimit is the page size used when a feed request names none.
	DefaultFeedLimit = 50
	// MaxFeedLimit is the largest page size a feed request may ask for.
	MaxFeedLimit = 100
	// TrendingCandidates is how many recent posts are offered to the ranker.
	TrendingCandidates = 20
)

// TrendingPost is a post with the ranker's verdict.
type TrendingPost struct {
	*PostView

	RankScore  float64 `json:"rankScore"`
	RankReason string  `json:"rankReason"`
}

// FeedService builds filtered and ranked views of the post store.
type FeedService struct {
	posts  PostStore
	ranker TrendRanker
	cache  *TrendingCache
	logger *zap.Logger
}

// NewFeedService creates a FeedService. The cache may be nil.
func NewFeedService(posts PostStore, ranker TrendRanker, cache *TrendingCache, logger *zap.Logger) *FeedService {
	return &FeedService{
		posts:  posts,
		ranker: ranker,
		cache:  cache,
		logger: logger.Named("feed_service"),
	}
}

// List returns the posts matching the filter in the requested order.
// Search is case and accent insensitive over titles and descriptions.
func (s *FeedService) List(ctx context.Context, filter types.FeedFilter) ([]*PostView, error) {
	filter, err := normalizeFilter(filter)
	if err != nil {
		return nil, err
	}

	posts, err := s.posts.ListPosts(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperror.ErrRemote, err)
	}

	if filter.Query != "" {
		normalizer := utils.NewTextNormalizer()
		posts = slices.DeleteFunc(posts, func(post *types.Post) bool {
			return !normalizer.Contains(post.Title, filter.Query) &&
				!normalizer.Contains(post.FullDescription, filter.Query)
		})
	}

	SortPosts(posts, filter.Sort)

	if len(posts) > filter.Limit {
		posts = posts[:filter.Limit]
	}

	views := make([]*PostView, len(posts))
	for i, post := range posts {
		views[i] = NewPostView(post)
	}

	return views, nil
}

// Trending returns recent posts ordered by the model's rank score.
// Posts the model invents are dropped.
func (s *FeedService) Trending(ctx context.Context) ([]*TrendingPost, error) {
	candidates, err := s.posts.ListPosts(ctx, types.FeedFilter{})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperror.ErrRemote, err)
	}
	if len(candidates) > TrendingCandidates {
		candidates = candidates[:TrendingCandidates]
	}
	if len(candidates) == 0 {
		return []*TrendingPost{}, nil
	}

	ranking, err := s.ranking(ctx, candidates)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*types.Post, len(candidates))
	for _, post := range candidates {
		byID[post.ID] = post
	}

	slices.SortStableFunc(ranking, func(a, b ai.RankedPost) int {
		return cmp.Compare(b.Score(), a.Score())
	})

	result := make([]*TrendingPost, 0, len(ranking))
	for _, ranked := range ranking {
		post, ok := byID[ranked.PostID]
		if !ok {
			s.logger.Debug("Dropping unknown ranked post", zap.String("postID", ranked.PostID))
			continue
		}
		delete(byID, ranked.PostID)

		result = append(result, &TrendingPost{
			PostView:   NewPostView(post),
			RankScore:  ranked.Score(),
			RankReason: ranked.Reason,
		})
	}

	return result, nil
}

// ranking returns the cached ranking of the candidates or asks the model for one.
func (s *FeedService) ranking(ctx context.Context, candidates []*types.Post) ([]ai.RankedPost, error) {
	ids := make([]string, len(candidates))
	for i, post := range candidates {
		ids[i] = post.ID
	}

	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx, ids); ok {
			return cached, nil
		}
	}

	input := &ai.RankPostsInput{Posts: make([]ai.RankCandidate, len(candidates))}
	for i, post := range candidates {
		input.Posts[i] = ai.RankCandidate{
			PostID:        post.ID,
			Title:         post.Title,
			Description:   post.ShortDescription,
			AgreeCount:    post.AgreeCount,
			MixedCount:    post.MixedCount,
			DisagreeCount: post.DisagreeCount,
			TopicTags:     post.TopicTags,
			AISummary:     strings.Join(post.AISummary, " "),
		}
	}

	output, err := s.ranker.RankPostsForTrendingFeed(ctx, input)
	if err != nil {
		return nil, err
	}

	ranking := slices.Clone(*output)
	if s.cache != nil {
		s.cache.Set(ctx, ids, ranking)
	}

	return ranking, nil
}

// normalizeFilter validates a feed filter and applies its defaults.
func normalizeFilter(filter types.FeedFilter) (types.FeedFilter, error) {
	if filter.Sort == "" {
		filter.Sort = types.FeedSortTrending
	}
	if !filter.Sort.Valid() {
		return filter, fmt.Errorf("%w: unknown sort %q", apperror.ErrInvalidInput, filter.Sort)
	}

	for _, category := range filter.Categories {
		if !category.Valid() {
			return filter, fmt.Errorf("%w: unknown category %q", apperror.ErrInvalidInput, category)
		}
	}

	switch {
	case filter.Limit < 0:
		return filter, fmt.Errorf("%w: limit must not be negative", apperror.ErrInvalidInput)
	case filter.Limit == 0:
		filter.Limit = DefaultFeedLimit
	case filter.Limit > MaxFeedLimit:
		filter.Limit = MaxFeedLimit
	}

	filter.Query = strings.TrimSpace(filter.Query)

	return filter, nil
}

// SortPosts orders posts in place. Ties keep their newest-first order.
func SortPosts(posts []*types.Post, sort types.FeedSort) {
	slices.SortStableFunc(posts, func(a, b *types.Post) int {
		switch sort {
		case types.FeedSortAgree:
			if c := cmp.Compare(b.AgreeCount, a.AgreeCount); c != 0 {
				return c
			}
		case types.FeedSortDisagree:
			if c := cmp.Compare(b.DisagreeCount, a.DisagreeCount); c != 0 {
				return c
			}
		case types.FeedSortTrending:
			if c := cmp.Compare(TrendingScore(b), TrendingScore(a)); c != 0 {
				return c
			}
		case types.FeedSortNew:
		}
		return b.CreatedAt.Compare(a.CreatedAt)
	})
}

// TrendingScore weighs vote volume with a small recency bonus.
func TrendingScore(post *types.Post) float64 {
	return float64(post.TotalVotes) + float64(post.CreatedAt.UnixMilli())/1e11
}
