// Package service implements the ORA application operations on top of the
// stores, the vote ledger and the AI flows.
package service

import (
	"context"
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"github.com/ora-civic/ora/internal/ai"
	"github.com/ora-civic/ora/internal/apperror"
	"github.com/ora-civic/ora/internal/database/types"
	"github.com/ora-civic/ora/pkg/utils"
)

// PostStore persists posts.
type PostStore interface {
	CreatePost(ctx context.Context, post *types.Post) error
	GetPost(ctx context.Context, postID string) (*types.Post, error)
	ListPosts(ctx context.Context, filter types.FeedFilter) ([]*types.Post, error)
	UpdateCommentSummary(ctx context.Context, postID, summary string) error
}

// CommentStore persists comments.
type CommentStore interface {
	AddComment(ctx context.Context, comment *types.Comment) error
	ListComments(ctx context.Context, postID string) ([]*types.Comment, error)
	ListCommentTexts(ctx context.Context, postID string) ([]string, error)
}

// ReasonStore persists vote reasons.
type ReasonStore interface {
	PutReason(ctx context.Context, reason *types.VoteReason) error
	ListReasons(ctx context.Context, postID string) ([]string, error)
}

// VoteReader looks up a voter's current vote.
type VoteReader interface {
	GetVote(ctx context.Context, postID, voterID string) (*types.Vote, error)
}

// PostAnalyzer screens and summarizes new posts.
type PostAnalyzer interface {
	AnalyzeCitizenPost(ctx context.Context, input *ai.AnalyzeCitizenPostInput) (*ai.AnalyzeCitizenPostOutput, error)
	SummarizePostContent(ctx context.Context, input *ai.SummarizePostContentInput) (*ai.SummarizePostContentOutput, error)
}

// CommentAnalyzer moderates and summarizes comments.
type CommentAnalyzer interface {
	AnalyzeComment(ctx context.Context, input *ai.AnalyzeCommentInput) (*ai.AnalyzeCommentOutput, error)
	SummarizeComments(ctx context.Context, input *ai.SummarizeCommentsInput) (*ai.SummarizeCommentsOutput, error)
}

// TrendRanker ranks posts for the trending feed.
type TrendRanker interface {
	RankPostsForTrendingFeed(ctx context.Context, input *ai.RankPostsInput) (*ai.RankPostsOutput, error)
}

// ReasonAggregator counts voting reasons.
type ReasonAggregator interface {
	AggregateVotingReasons(
		ctx context.Context, input *ai.AggregateVotingReasonsInput,
	) (*ai.AggregateVotingReasonsOutput, error)
}

// InsightAnalyzer produces opinion summaries and sentiment classifications.
type InsightAnalyzer interface {
	SummarizePublicOpinion(
		ctx context.Context, input *ai.SummarizePublicOpinionInput,
	) (*ai.SummarizePublicOpinionOutput, error)
	DetectSentimentTrends(
		ctx context.Context, input *ai.DetectSentimentTrendsInput,
	) (*ai.DetectSentimentTrendsOutput, error)
}

// Caller identifies the authenticated account making a request.
type Caller struct {
	ID   string
	Name string
}

// require returns ErrAuthenticationRequired for an anonymous caller.
func (c Caller) require() error {
	if c.ID == "" {
		return apperror.ErrAuthenticationRequired
	}
	return nil
}

// displayName falls back to the account ID when no name is known.
func (c Caller) displayName() string {
	if name := strings.TrimSpace(c.Name); name != "" {
		return name
	}
	return c.ID
}

// Sanitizer strips markup from user text.
type Sanitizer struct {
	policy *bluemonday.Policy
}

// NewSanitizer creates a sanitizer that removes every HTML element.
func NewSanitizer() *Sanitizer {
	return &Sanitizer{policy: bluemonday.StrictPolicy()}
}

// Text removes markup and collapses whitespace on a single line of text.
func (s *Sanitizer) Text(text string) string {
	return utils.CompressAllWhitespace(s.plain(text))
}

// Paragraphs removes markup and collapses whitespace while keeping line breaks.
func (s *Sanitizer) Paragraphs(text string) string {
	return utils.CompressWhitespacePreserveNewlines(s.plain(text))
}

// plain strips tags and undoes the entity escaping the policy applies.
func (s *Sanitizer) plain(text string) string {
	return html.UnescapeString(s.policy.Sanitize(text))
}

// checkLength bounds the rune length of a sanitized field.
func checkLength(field, value string, minRunes, maxRunes int) error {
	n := utf8.RuneCountInString(value)
	if n < minRunes || n > maxRunes {
		return &ai.ValidationError{Fields: []ai.FieldError{{
			Field:   field,
			Rule:    "length",
			Message: fmt.Sprintf("%s must be between %d and %d characters", field, minRunes, maxRunes),
		}}}
	}
	return nil
}
