// Package ledger maintains per-post vote tallies and per-voter vote records.
//
// Every cast runs as a single read-modify-write transaction through a Store so the
// tally and the voter's record always change together. Isolation between concurrent
// casts is the Store's responsibility; the ledger holds no locks of its own.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ora-civic/ora/internal/apperror"
	"github.com/ora-civic/ora/internal/database/types"
	"go.uber.org/zap"
)

// ErrConflict is returned by a Store when a transaction lost a race with a
// concurrent writer and could not be retried.
var ErrConflict = errors.New("transaction conflict")

// Tx is the view of the store available inside a cast transaction.
type Tx interface {
	// GetTally returns the post's tally or apperror.ErrPostNotFound.
	GetTally(ctx context.Context, postID string) (types.Tally, error)
	// GetVote returns the voter's record on the post, or nil when none exists.
	GetVote(ctx context.Context, postID, voterID string) (*types.Vote, error)
	UpdateTally(ctx context.Context, postID string, tally types.Tally) error
	PutVote(ctx context.Context, vote *types.Vote) error
	DeleteVote(ctx context.Context, postID, voterID string) error
}

// Store runs a function inside an isolated transaction. All writes made through
// the Tx commit together or not at all. Stores retry their own conflicts.
type Store interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Publisher fans a committed tally out to live subscribers.
type Publisher interface {
	PublishTally(ctx context.Context, tally types.PostTally) error
}

// Outcome describes what a cast did to the voter's record.
type Outcome string

const (
	OutcomeCast     Outcome = "cast"
	OutcomeSwitched Outcome = "switched"
	OutcomeCleared  Outcome = "cleared"
)

// Ledger applies vote casts.
type Ledger struct {
	store     Store
	publisher Publisher
	logger    *zap.Logger
	now       func() time.Time
}

// New creates a Ledger. The publisher may be nil when no live channel is configured.
func New(store Store, publisher Publisher, logger *zap.Logger) *Ledger {
	return &Ledger{
		store:     store,
		publisher: publisher,
		logger:    logger.Named("ledger"),
		now:       time.Now,
	}
}

// CastVote records the voter's requested vote on a post.
//
// Casting the type already recorded clears it, casting a different type switches
// to it, and casting with no prior record creates one. The tally and the vote record
// are written in one transaction.
func (l *Ledger) CastVote(ctx context.Context, postID, voterID string, requested types.VoteType) error {
	_, _, err := l.Cast(ctx, postID, voterID, requested)
	return err
}

// Cast behaves like CastVote and also reports the outcome and the committed tally.
func (l *Ledger) Cast(
	ctx context.Context, postID, voterID string, requested types.VoteType,
) (Outcome, types.Tally, error) {
	if voterID == "" {
		return "", types.Tally{}, apperror.ErrAuthenticationRequired
	}
	if postID == "" {
		return "", types.Tally{}, fmt.Errorf("%w: post id is required", apperror.ErrInvalidInput)
	}
	if !requested.Valid() {
		return "", types.Tally{}, fmt.Errorf("%w: unknown vote type %q", apperror.ErrInvalidInput, requested)
	}

	var (
		outcome   Outcome
		committed types.Tally
	)

	err := l.store.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		tally, err := tx.GetTally(ctx, postID)
		if err != nil {
			return err
		}

		existing, err := tx.GetVote(ctx, postID, voterID)
		if err != nil {
			return err
		}

		switch {
		case existing == nil:
			tally.Add(requested)
			outcome = OutcomeCast

		case existing.VoteType == requested:
			l.remove(&tally, postID, existing.VoteType)
			outcome = OutcomeCleared

		default:
			l.remove(&tally, postID, existing.VoteType)
			tally.Add(requested)
			outcome = OutcomeSwitched
		}

		if err := tx.UpdateTally(ctx, postID, tally); err != nil {
			return err
		}

		if outcome == OutcomeCleared {
			err = tx.DeleteVote(ctx, postID, voterID)
		} else {
			err = tx.PutVote(ctx, &types.Vote{
				PostID:    postID,
				VoterID:   voterID,
				VoteType:  requested,
				CreatedAt: l.now(),
			})
		}
		if err != nil {
			return err
		}

		committed = tally
		return nil
	})
	if err != nil {
		if errors.Is(err, apperror.ErrPostNotFound) {
			return "", types.Tally{}, err
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", types.Tally{}, err
		}
		return "", types.Tally{}, fmt.Errorf("%w: failed to cast vote: %w", apperror.ErrRemote, err)
	}

	l.logger.Debug("Vote recorded",
		zap.String("postID", postID),
		zap.String("voterID", voterID),
		zap.String("voteType", requested.String()),
		zap.String("outcome", string(outcome)),
		zap.Int64("total", committed.Total))

	l.publish(ctx, postID, committed)

	return outcome, committed, nil
}

// remove decrements a counter and warns when the stored tally was already inconsistent.
func (l *Ledger) remove(tally *types.Tally, postID string, voteType types.VoteType) {
	if !tally.Remove(voteType) {
		l.logger.Warn("Vote counter floored at zero",
			zap.String("postID", postID),
			zap.String("voteType", voteType.String()))
	}
}

// publish sends the committed tally to live subscribers. Failures are logged only.
func (l *Ledger) publish(ctx context.Context, postID string, tally types.Tally) {
	if l.publisher == nil {
		return
	}

	if err := l.publisher.PublishTally(ctx, types.NewPostTally(postID, tally)); err != nil {
		l.logger.Warn("Failed to publish tally update",
			zap.String("postID", postID),
			zap.Error(err))
	}
}
