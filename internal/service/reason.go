package service

import (
	"context"
	"fmt"
	"time"

	"github.com/ora-civic/ora/internal/ai"
	"github.com/ora-civic/ora/internal/apperror"
	"github.com/ora-civic/ora/internal/database/types"
	"go.uber.org/zap"
)

// ReasonService records and aggregates the reasons behind votes.
type ReasonService struct {
	posts      PostStore
	reasons    ReasonStore
	aggregator ReasonAggregator
	logger     *zap.Logger
	now        func() time.Time
}

// NewReasonService creates a ReasonService.
func NewReasonService(
	posts PostStore, reasons ReasonStore, aggregator ReasonAggregator, logger *zap.Logger,
) *ReasonService {
	return &ReasonService{
		posts:      posts,
		reasons:    reasons,
		aggregator: aggregator,
		logger:     logger.Named("reason_service"),
		now:        time.Now,
	}
}

// Record stores the caller's reason on a post, replacing any earlier one.
func (s *ReasonService) Record(ctx context.Context, caller Caller, postID string, reason types.ReasonTag) error {
	if err := caller.require(); err != nil {
		return err
	}
	if !reason.Valid() {
		return fmt.Errorf("%w: unknown reason %q", apperror.ErrInvalidInput, reason)
	}
	if _, err := getPost(ctx, s.posts, postID); err != nil {
		return err
	}

	err := s.reasons.PutReason(ctx, &types.VoteReason{
		PostID:    postID,
		VoterID:   caller.ID,
		Reason:    reason,
		CreatedAt: s.now(),
	})
	if err != nil {
		return fmt.Errorf("%w: %w", apperror.ErrRemote, err)
	}

	return nil
}

// Aggregate counts the reasons given on a post, most common first.
func (s *ReasonService) Aggregate(ctx context.Context, postID string) (*ai.AggregateVotingReasonsOutput, error) {
	if _, err := getPost(ctx, s.posts, postID); err != nil {
		return nil, err
	}

	reasons, err := s.reasons.ListReasons(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperror.ErrRemote, err)
	}

	return s.aggregator.AggregateVotingReasons(ctx, &ai.AggregateVotingReasonsInput{
		PostID:  postID,
		Reasons: reasons,
	})
}
