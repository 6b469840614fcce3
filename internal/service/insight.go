package service

import (
	"context"

	"github.com/ora-civic/ora/internal/ai"
	"go.uber.org/zap"
)

// InsightService produces AI readings of public opinion.
type InsightService struct {
	posts    PostStore
	analyzer InsightAnalyzer
	logger   *zap.Logger
}

// NewInsightService creates an InsightService.
func NewInsightService(posts PostStore, analyzer InsightAnalyzer, logger *zap.Logger) *InsightService {
	return &InsightService{
		posts:    posts,
		analyzer: analyzer,
		logger:   logger.Named("insight_service"),
	}
}

// Opinion summarizes public opinion on a post from its vote split.
func (s *InsightService) Opinion(ctx context.Context, postID string) (*ai.SummarizePublicOpinionOutput, error) {
	post, err := getPost(ctx, s.posts, postID)
	if err != nil {
		return nil, err
	}

	return s.analyzer.SummarizePublicOpinion(ctx, &ai.SummarizePublicOpinionInput{
		Title:         post.Title,
		Description:   post.FullDescription,
		AgreeCount:    post.AgreeCount,
		DisagreeCount: post.DisagreeCount,
	})
}

// Sentiment classifies the overall sentiment of free text.
func (s *InsightService) Sentiment(ctx context.Context, text string) (*ai.DetectSentimentTrendsOutput, error) {
	return s.analyzer.DetectSentimentTrends(ctx, &ai.DetectSentimentTrendsInput{Text: text})
}
