package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ora-civic/ora/internal/apperror"
	"github.com/ora-civic/ora/internal/database/dbretry"
	"github.com/ora-civic/ora/internal/database/types"
	"github.com/ora-civic/ora/internal/ledger"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// VoteModel handles database operations for votes and serves as the ledger store.
type VoteModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewVote creates a new vote model.
func NewVote(db *bun.DB, logger *zap.Logger) *VoteModel {
	return &VoteModel{
		db:     db,
		logger: logger.Named("db_vote"),
	}
}

// RunInTx runs fn inside a serializable transaction. Serialization failures and
// deadlocks retry the whole transaction with exponential backoff.
func (m *VoteModel) RunInTx(ctx context.Context, fn func(ctx context.Context, tx ledger.Tx) error) error {
	err := dbretry.Transaction(ctx, m.db, dbretry.Serializable, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, &voteTx{tx: tx})
	})
	if err != nil && dbretry.IsSerializationFailure(err) {
		return fmt.Errorf("%w: %w", ledger.ErrConflict, err)
	}
	return err
}

// GetVote retrieves a voter's current vote on a post, or nil when none exists.
func (m *VoteModel) GetVote(ctx context.Context, postID, voterID string) (*types.Vote, error) {
	return getVote(ctx, m.db, postID, voterID)
}

// voteTx is the ledger's view of an open database transaction.
type voteTx struct {
	tx bun.Tx
}

// GetTally locks the post row for the rest of the transaction.
func (t *voteTx) GetTally(ctx context.Context, postID string) (types.Tally, error) {
	var post types.Post
	err := t.tx.NewSelect().
		Model(&post).
		Column("id", "agree_count", "mixed_count", "disagree_count", "total_votes").
		Where("id = ?", postID).
		For("UPDATE").
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Tally{}, apperror.ErrPostNotFound
		}
		return types.Tally{}, fmt.Errorf("failed to get tally: %w", err)
	}

	return post.Tally(), nil
}

func (t *voteTx) GetVote(ctx context.Context, postID, voterID string) (*types.Vote, error) {
	return getVote(ctx, t.tx, postID, voterID)
}

func (t *voteTx) UpdateTally(ctx context.Context, postID string, tally types.Tally) error {
	_, err := t.tx.NewUpdate().
		Model((*types.Post)(nil)).
		Set("agree_count = ?", tally.Agree).
		Set("mixed_count = ?", tally.Mixed).
		Set("disagree_count = ?", tally.Disagree).
		Set("total_votes = ?", tally.Total).
		Where("id = ?", postID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update tally: %w", err)
	}
	return nil
}

func (t *voteTx) PutVote(ctx context.Context, vote *types.Vote) error {
	_, err := t.tx.NewInsert().
		Model(vote).
		On("CONFLICT (post_id, voter_id) DO UPDATE").
		Set("vote_type = EXCLUDED.vote_type").
		Set("created_at = EXCLUDED.created_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to save vote: %w", err)
	}
	return nil
}

func (t *voteTx) DeleteVote(ctx context.Context, postID, voterID string) error {
	_, err := t.tx.NewDelete().
		Model((*types.Vote)(nil)).
		Where("post_id = ?", postID).
		Where("voter_id = ?", voterID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete vote: %w", err)
	}
	return nil
}

func getVote(ctx context.Context, db bun.IDB, postID, voterID string) (*types.Vote, error) {
	var vote types.Vote
	err := db.NewSelect().
		Model(&vote).
		Where("post_id = ?", postID).
		Where("voter_id = ?", voterID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil //nolint:nilnil // no vote is not an error
		}
		return nil, fmt.Errorf("failed to get vote: %w", err)
	}

	return &vote, nil
}
