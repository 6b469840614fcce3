package ai

import (
	"reflect"

	"github.com/google/generative-ai-go/genai"
)

// FlowSpec describes the contract of one flow.
type FlowSpec struct {
	Name FlowName
	// Schema is the model-side response schema; nil for flows that run locally.
	Schema *genai.Schema
	Input  reflect.Type
	Output reflect.Type
}

// Catalog lists every flow with its input, output and response schema.
func Catalog() []FlowSpec {
	return []FlowSpec{
		flowSpec[AggregateVotingReasonsInput, AggregateVotingReasonsOutput](FlowAggregateVotingReasons, nil),
		flowSpec[AnalyzeCitizenPostInput, AnalyzeCitizenPostOutput](FlowAnalyzeCitizenPost, CitizenPostSchema),
		flowSpec[AnalyzeCommentInput, AnalyzeCommentOutput](FlowAnalyzeComment, CommentSchema),
		flowSpec[DetectSentimentTrendsInput, DetectSentimentTrendsOutput](FlowDetectSentimentTrends, SentimentSchema),
		flowSpec[RankPostsInput, RankPostsOutput](FlowRankPostsForTrendingFeed, TrendingSchema),
		flowSpec[SummarizeCommentsInput, SummarizeCommentsOutput](FlowSummarizeComments, CommentSummarySchema),
		flowSpec[SummarizePostContentInput, SummarizePostContentOutput](FlowSummarizePostContent, PostSummarySchema),
		flowSpec[SummarizePublicOpinionInput, SummarizePublicOpinionOutput](FlowSummarizePublicOpinion, PublicOpinionSchema),
	}
}

func flowSpec[I, O any](name FlowName, schema *genai.Schema) FlowSpec {
	return FlowSpec{
		Name:   name,
		Schema: schema,
		Input:  reflect.TypeFor[I](),
		Output: reflect.TypeFor[O](),
	}
}
