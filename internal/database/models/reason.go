package models

import (
	"context"
	"fmt"

	"github.com/ora-civic/ora/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// ReasonModel handles database operations for vote reasons.
type ReasonModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewReason creates a new vote reason model.
func NewReason(db *bun.DB, logger *zap.Logger) *ReasonModel {
	return &ReasonModel{
		db:     db,
		logger: logger.Named("db_reason"),
	}
}

// PutReason inserts or replaces a voter's reason on a post.
func (m *ReasonModel) PutReason(ctx context.Context, reason *types.VoteReason) error {
	_, err := m.db.NewInsert().
		Model(reason).
		On("CONFLICT (post_id, voter_id) DO UPDATE").
		Set("reason = EXCLUDED.reason").
		Set("created_at = EXCLUDED.created_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to save vote reason: %w", err)
	}
	return nil
}

// ListReasons retrieves the reason tags recorded on a post in the order they were given.
func (m *ReasonModel) ListReasons(ctx context.Context, postID string) ([]string, error) {
	var reasons []string
	err := m.db.NewSelect().
		Model((*types.VoteReason)(nil)).
		Column("reason").
		Where("post_id = ?", postID).
		Order("created_at ASC").
		Scan(ctx, &reasons)
	if err != nil {
		return nil, fmt.Errorf("failed to get vote reasons: %w", err)
	}
	return reasons, nil
}
