// Package memory provides an in-process implementation of every ORA store,
// used by tests and the development server.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/ora-civic/ora/internal/apperror"
	"github.com/ora-civic/ora/internal/database/models"
	"github.com/ora-civic/ora/internal/database/types"
	"github.com/ora-civic/ora/internal/ledger"
)

// Store keeps posts, comments and reasons in memory. Tallies and vote records
// live in the embedded ledger store so casts keep their transactional semantics.
type Store struct {
	*ledger.MemoryStore

	mu       sync.RWMutex
	posts    map[string]*types.Post
	order    []string
	comments map[string][]*types.Comment
	reasons  map[string][]*types.VoteReason
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		MemoryStore: ledger.NewMemoryStore(),
		posts:       make(map[string]*types.Post),
		comments:    make(map[string][]*types.Comment),
		reasons:     make(map[string][]*types.VoteReason),
	}
}

// CreatePost stores a copy of the post and registers its tally with the ledger.
func (s *Store) CreatePost(_ context.Context, post *types.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := clonePost(post)
	if _, ok := s.posts[post.ID]; !ok {
		s.order = append(s.order, post.ID)
	}
	s.posts[post.ID] = stored
	s.MemoryStore.AddPost(post.ID, post.Tally())

	return nil
}

// GetPost returns a copy of the post with its committed tally.
func (s *Store) GetPost(_ context.Context, postID string) (*types.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	post, ok := s.posts[postID]
	if !ok {
		return nil, apperror.ErrPostNotFound
	}

	return s.withTally(post), nil
}

// ListPosts returns the newest posts matching the filter's category and topic constraints.
func (s *Store) ListPosts(_ context.Context, filter types.FeedFilter) ([]*types.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	posts := make([]*types.Post, 0, len(s.posts))
	for _, id := range s.order {
		post := s.posts[id]
		if len(filter.Categories) > 0 && !slices.Contains(filter.Categories, post.Category) {
			continue
		}
		if len(filter.Topics) > 0 && !overlaps(post.TopicTags, filter.Topics) {
			continue
		}
		posts = append(posts, s.withTally(post))
	}

	slices.SortStableFunc(posts, func(a, b *types.Post) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	if len(posts) > models.MaxFeedCandidates {
		posts = posts[:models.MaxFeedCandidates]
	}

	return posts, nil
}

// UpdateCommentSummary stores the latest AI summary of a post's comments.
func (s *Store) UpdateCommentSummary(_ context.Context, postID, summary string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, ok := s.posts[postID]
	if !ok {
		return apperror.ErrPostNotFound
	}
	post.AICommentSummary = summary

	return nil
}

// AddComment stores a comment on an existing post.
func (s *Store) AddComment(_ context.Context, comment *types.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[comment.PostID]; !ok {
		return apperror.ErrPostNotFound
	}

	stored := *comment
	s.comments[comment.PostID] = append(s.comments[comment.PostID], &stored)

	return nil
}

// ListComments returns a post's comments, newest first.
func (s *Store) ListComments(_ context.Context, postID string) ([]*types.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.comments[postID]
	comments := make([]*types.Comment, 0, len(stored))
	for i := len(stored) - 1; i >= 0; i-- {
		comment := *stored[i]
		comments = append(comments, &comment)
	}

	slices.SortStableFunc(comments, func(a, b *types.Comment) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	return comments, nil
}

// ListCommentTexts returns only the text of a post's comments, newest first.
func (s *Store) ListCommentTexts(ctx context.Context, postID string) ([]string, error) {
	comments, err := s.ListComments(ctx, postID)
	if err != nil {
		return nil, err
	}

	texts := make([]string, len(comments))
	for i, comment := range comments {
		texts[i] = comment.Text
	}

	return texts, nil
}

// PutReason inserts or replaces a voter's reason on a post.
func (s *Store) PutReason(_ context.Context, reason *types.VoteReason) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[reason.PostID]; !ok {
		return apperror.ErrPostNotFound
	}

	stored := *reason
	reasons := s.reasons[reason.PostID]
	for i, existing := range reasons {
		if existing.VoterID == reason.VoterID {
			reasons[i] = &stored
			return nil
		}
	}
	s.reasons[reason.PostID] = append(reasons, &stored)

	return nil
}

// ListReasons returns the reason tags recorded on a post in the order they were given.
func (s *Store) ListReasons(_ context.Context, postID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := slices.Clone(s.reasons[postID])
	slices.SortStableFunc(stored, func(a, b *types.VoteReason) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})

	reasons := make([]string, len(stored))
	for i, reason := range stored {
		reasons[i] = string(reason.Reason)
	}

	return reasons, nil
}

// withTally copies a post and overlays the ledger's committed tally.
func (s *Store) withTally(post *types.Post) *types.Post {
	result := clonePost(post)
	if tally, ok := s.MemoryStore.Tally(post.ID); ok {
		result.SetTally(tally)
	}
	return result
}

func clonePost(post *types.Post) *types.Post {
	result := *post
	result.TopicTags = slices.Clone(post.TopicTags)
	result.AISummary = slices.Clone(post.AISummary)
	return &result
}

func overlaps(a, b []string) bool {
	for _, item := range a {
		if slices.Contains(b, item) {
			return true
		}
	}
	return false
}
