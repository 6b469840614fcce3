package ai

import (
	"context"
	"slices"
	"time"

	"go.uber.org/zap"
)

// AggregateVotingReasonsInput holds the reasons voters gave on a post.
type AggregateVotingReasonsInput struct {
	PostID  string   `json:"postId"  validate:"required"`
	Reasons []string `json:"reasons" validate:"dive,required"`
}

// ReasonCount is one distinct reason and how often it was given.
type ReasonCount struct {
	Reason string `json:"reason" validate:"required"`
	Count  int    `json:"count"  validate:"gte=1"`
}

// AggregateVotingReasonsOutput lists distinct reasons, most common first.
type AggregateVotingReasonsOutput struct {
	AggregatedReasons []ReasonCount `json:"aggregatedReasons" validate:"dive"`
}

// AggregateVotingReasons counts identical reasons. It runs locally and never
// calls the model. Reasons with equal counts keep the order they first appeared in.
func (f *Flows) AggregateVotingReasons(
	ctx context.Context, input *AggregateVotingReasonsInput,
) (*AggregateVotingReasonsOutput, error) {
	_, span := f.tracer.Start(ctx, "ai."+string(FlowAggregateVotingReasons))
	defer span.End()

	if err := f.checkInput(input); err != nil {
		return nil, err
	}

	start := time.Now()

	counts := make(map[string]int, len(input.Reasons))
	aggregated := make([]ReasonCount, 0, len(input.Reasons))

	for _, reason := range input.Reasons {
		if _, seen := counts[reason]; !seen {
			aggregated = append(aggregated, ReasonCount{Reason: reason})
		}
		counts[reason]++
	}

	for i := range aggregated {
		aggregated[i].Count = counts[aggregated[i].Reason]
	}

	slices.SortStableFunc(aggregated, func(a, b ReasonCount) int {
		return b.Count - a.Count
	})

	f.logger.Debug("Flow completed",
		zap.String("flow", string(FlowAggregateVotingReasons)),
		zap.String("postID", input.PostID),
		zap.Int("distinctReasons", len(aggregated)),
		zap.Duration("duration", time.Since(start)))

	return &AggregateVotingReasonsOutput{AggregatedReasons: aggregated}, nil
}
