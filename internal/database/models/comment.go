package models

import (
	"context"
	"fmt"

	"github.com/ora-civic/ora/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// CommentModel handles database operations for post comments.
type CommentModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewComment creates a new comment model.
func NewComment(db *bun.DB, logger *zap.Logger) *CommentModel {
	return &CommentModel{
		db:     db,
		logger: logger.Named("db_comment"),
	}
}

// AddComment inserts a new comment.
func (m *CommentModel) AddComment(ctx context.Context, comment *types.Comment) error {
	_, err := m.db.NewInsert().
		Model(comment).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to add comment: %w", err)
	}
	return nil
}

// ListComments retrieves a post's comments, newest first.
func (m *CommentModel) ListComments(ctx context.Context, postID string) ([]*types.Comment, error) {
	var comments []*types.Comment
	err := m.db.NewSelect().
		Model(&comments).
		Where("post_id = ?", postID).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get comments: %w", err)
	}
	return comments, nil
}

// ListCommentTexts retrieves only the text of a post's comments, newest first.
func (m *CommentModel) ListCommentTexts(ctx context.Context, postID string) ([]string, error) {
	var texts []string
	err := m.db.NewSelect().
		Model((*types.Comment)(nil)).
		Column("text").
		Where("post_id = ?", postID).
		Order("created_at DESC").
		Scan(ctx, &texts)
	if err != nil {
		return nil, fmt.Errorf("failed to get comment texts: %w", err)
	}
	return texts, nil
}
