package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ora-civic/ora/internal/apperror"
	"github.com/ora-civic/ora/internal/database/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"go.uber.org/zap"
)

// MaxFeedCandidates caps how many posts a feed query loads before in-memory filtering.
const MaxFeedCandidates = 500

// PostModel handles database operations for posts.
type PostModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewPost creates a new post model.
func NewPost(db *bun.DB, logger *zap.Logger) *PostModel {
	return &PostModel{
		db:     db,
		logger: logger.Named("db_post"),
	}
}

// CreatePost inserts a new post.
func (m *PostModel) CreatePost(ctx context.Context, post *types.Post) error {
	_, err := m.db.NewInsert().
		Model(post).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create post: %w", err)
	}

	m.logger.Debug("Created post",
		zap.String("postID", post.ID),
		zap.String("category", string(post.Category)))

	return nil
}

// GetPost retrieves a post by ID.
func (m *PostModel) GetPost(ctx context.Context, postID string) (*types.Post, error) {
	var post types.Post
	err := m.db.NewSelect().
		Model(&post).
		Where("id = ?", postID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrPostNotFound
		}
		return nil, fmt.Errorf("failed to get post: %w", err)
	}

	return &post, nil
}

// ListPosts retrieves the newest posts matching the filter's category and topic
// constraints. Text search and ordering are applied by the caller.
func (m *PostModel) ListPosts(ctx context.Context, filter types.FeedFilter) ([]*types.Post, error) {
	var posts []*types.Post
	err := m.listQuery(filter).Scan(ctx, &posts)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}

	return posts, nil
}

func (m *PostModel) listQuery(filter types.FeedFilter) *bun.SelectQuery {
	query := m.db.NewSelect().
		Model((*types.Post)(nil))

	if len(filter.Categories) > 0 {
		query = query.Where("category IN (?)", bun.In(filter.Categories))
	}

	if len(filter.Topics) > 0 {
		query = query.Where("topic_tags && ?", pgdialect.Array(filter.Topics))
	}

	return query.
		Order("created_at DESC").
		Limit(MaxFeedCandidates)
}

// UpdateCommentSummary stores the latest AI summary of a post's comments.
func (m *PostModel) UpdateCommentSummary(ctx context.Context, postID, summary string) error {
	result, err := m.db.NewUpdate().
		Model((*types.Post)(nil)).
		Set("ai_comment_summary = ?", summary).
		Where("id = ?", postID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update comment summary: %w", err)
	}

	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return apperror.ErrPostNotFound
	}

	return nil
}
