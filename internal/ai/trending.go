package ai

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
)

// RankCandidate is a post offered for trending ranking.
type RankCandidate struct {
	PostID        string   `json:"postId"        validate:"required"`
	Title         string   `json:"title"         validate:"required"`
	Description   string   `json:"description"`
	AgreeCount    int64    `json:"agreeCount"    validate:"gte=0"`
	MixedCount    int64    `json:"mixedCount"    validate:"gte=0"`
	DisagreeCount int64    `json:"disagreeCount" validate:"gte=0"`
	TopicTags     []string `json:"topicTags"`
	AISummary     string   `json:"aiSummary"`
}

// RankPostsInput is the batch of posts to rank.
type RankPostsInput struct {
	Posts []RankCandidate `json:"posts" validate:"dive"`
}

// RankedPost is the model's score for one post.
type RankedPost struct {
	PostID    string   `json:"postId"    validate:"required"`
	RankScore *float64 `json:"rankScore" validate:"required,gte=0,lte=1"`
	Reason    string   `json:"reason"    validate:"required"`
}

// Score returns the rank score, or 0 when absent.
func (r RankedPost) Score() float64 {
	if r.RankScore == nil {
		return 0
	}
	return *r.RankScore
}

// RankPostsOutput holds one score per ranked post.
type RankPostsOutput []RankedPost

// TrendingSchema is the response schema for trending ranking.
var TrendingSchema = &genai.Schema{
	Type: genai.TypeArray,
	Items: &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"postId": {
				Type:        genai.TypeString,
				Description: "The ID of the ranked post",
			},
			"rankScore": {
				Type:        genai.TypeNumber,
				Description: "Ranking score between 0.0 and 1.0",
			},
			"reason": {
				Type:        genai.TypeString,
				Description: "Brief reason for the ranking score",
			},
		},
		Required: []string{"postId", "rankScore", "reason"},
	},
}

var trendingFlow = remoteFlow[RankPostsInput, RankPostsOutput]{
	name:   FlowRankPostsForTrendingFeed,
	schema: TrendingSchema,
	prompt: func(f *Flows, in *RankPostsInput) (string, error) {
		posts, err := f.marshalMinified(in.Posts)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf(TrendingPrompt, posts), nil
	},
}

// RankPostsForTrendingFeed scores a batch of posts in a single model call.
// An empty batch yields an empty ranking without calling the model.
func (f *Flows) RankPostsForTrendingFeed(ctx context.Context, input *RankPostsInput) (*RankPostsOutput, error) {
	if input != nil && len(input.Posts) == 0 {
		return &RankPostsOutput{}, nil
	}
	return invoke(ctx, f, trendingFlow, input)
}
