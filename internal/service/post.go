package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/ora-civic/ora/internal/ai"
	"github.com/ora-civic/ora/internal/apperror"
	"github.com/ora-civic/ora/internal/database/types"
	"github.com/ora-civic/ora/pkg/utils"
	"go.uber.org/zap"
)

// ShortDescriptionLength is the rune length of a post's feed preview.
const ShortDescriptionLength = 150

// SubmitPostInput is a new proposal.
type SubmitPostInput struct {
	Category    types.Category `json:"category"           validate:"required,oneof='Central Government' 'State Government' Citizen"`
	Title       string         `json:"title"              validate:"required,max=200"`
	Description string         `json:"description"        validate:"required,max=10000"`
	TopicTags   []string       `json:"topicTags"          validate:"max=10,dive,required,max=50"`
	MediaURL    string         `json:"mediaUrl,omitempty" validate:"omitempty,url"`
}

// PostView is a post with its derived vote figures.
type PostView struct {
	*types.Post

	SentimentTrend types.SentimentTrend `json:"sentimentTrend"`
	Percentages    types.Percentages    `json:"percentages"`
}

// NewPostView derives the sentiment and agreement bar of a post.
func NewPostView(post *types.Post) *PostView {
	tally := post.Tally()
	return &PostView{
		Post:           post,
		SentimentTrend: tally.Sentiment(),
		Percentages:    tally.Percentages(),
	}
}

// PostService publishes and reads posts.
type PostService struct {
	posts     PostStore
	votes     VoteReader
	analyzer  PostAnalyzer
	sanitizer *Sanitizer
	validate  *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewPostService creates a PostService.
func NewPostService(posts PostStore, votes VoteReader, analyzer PostAnalyzer, logger *zap.Logger) *PostService {
	return &PostService{
		posts:     posts,
		votes:     votes,
		analyzer:  analyzer,
		sanitizer: NewSanitizer(),
		validate:  ai.NewValidator(),
		logger:    logger.Named("post_service"),
		now:       time.Now,
	}
}

// Submit publishes a new post. Citizen posts must pass the relevance and
// appropriateness screen first; government posts are published directly.
func (s *PostService) Submit(ctx context.Context, caller Caller, input *SubmitPostInput) (*types.Post, error) {
	if err := caller.require(); err != nil {
		return nil, err
	}
	if input == nil {
		return nil, fmt.Errorf("%w: post is required", apperror.ErrInvalidInput)
	}

	clean := SubmitPostInput{
		Category:    input.Category,
		Title:       s.sanitizer.Text(input.Title),
		Description: s.sanitizer.Paragraphs(input.Description),
		TopicTags:   s.cleanTags(input.TopicTags),
		MediaURL:    strings.TrimSpace(input.MediaURL),
	}
	if err := s.validate.Struct(&clean); err != nil {
		return nil, ai.NewValidationError(err)
	}

	if clean.Category == types.CategoryCitizen {
		verdict, err := s.analyzer.AnalyzeCitizenPost(ctx, &ai.AnalyzeCitizenPostInput{
			Title:       clean.Title,
			Description: clean.Description,
			TopicTags:   clean.TopicTags,
			MediaURL:    clean.MediaURL,
		})
		if err != nil {
			return nil, err
		}

		if !verdict.Accepted() {
			s.logger.Info("Citizen post rejected",
				zap.String("authorID", caller.ID),
				zap.String("title", clean.Title),
				zap.String("summary", verdict.Summary))
			return nil, apperror.NewRejection(apperror.ErrContentRejected, verdict.Summary)
		}
	}

	summary, err := s.analyzer.SummarizePostContent(ctx, &ai.SummarizePostContentInput{
		Title:       clean.Title,
		Description: clean.Description,
	})
	if err != nil {
		return nil, err
	}

	post := &types.Post{
		ID:               uuid.NewString(),
		AuthorID:         caller.ID,
		Author:           caller.displayName(),
		Category:         clean.Category,
		Title:            clean.Title,
		ShortDescription: utils.TruncateWithEllipsis(clean.Description, ShortDescriptionLength),
		FullDescription:  clean.Description,
		MediaURL:         clean.MediaURL,
		TopicTags:        clean.TopicTags,
		AISummary:        summary.Summary,
		CreatedAt:        s.now(),
	}

	if err := s.posts.CreatePost(ctx, post); err != nil {
		return nil, fmt.Errorf("%w: %w", apperror.ErrRemote, err)
	}

	s.logger.Info("Post published",
		zap.String("postID", post.ID),
		zap.String("category", string(post.Category)),
		zap.String("authorID", caller.ID))

	return post, nil
}

// Get returns a post with its derived vote figures.
func (s *PostService) Get(ctx context.Context, postID string) (*PostView, error) {
	post, err := getPost(ctx, s.posts, postID)
	if err != nil {
		return nil, err
	}
	return NewPostView(post), nil
}

// MyVote returns the caller's current vote on a post, or nil when they have not voted.
func (s *PostService) MyVote(ctx context.Context, caller Caller, postID string) (*types.Vote, error) {
	if err := caller.require(); err != nil {
		return nil, err
	}
	if _, err := getPost(ctx, s.posts, postID); err != nil {
		return nil, err
	}

	vote, err := s.votes.GetVote(ctx, postID, caller.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperror.ErrRemote, err)
	}
	return vote, nil
}

// cleanTags sanitizes topic tags and drops blanks and duplicates.
func (s *PostService) cleanTags(tags []string) []string {
	cleaned := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))

	for _, tag := range tags {
		tag = s.sanitizer.Text(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		cleaned = append(cleaned, tag)
	}

	return cleaned
}

// getPost loads a post, mapping store failures other than a missing post to ErrRemote.
func getPost(ctx context.Context, posts PostStore, postID string) (*types.Post, error) {
	if postID == "" {
		return nil, fmt.Errorf("%w: post id is required", apperror.ErrInvalidInput)
	}

	post, err := posts.GetPost(ctx, postID)
	if err != nil {
		if errors.Is(err, apperror.ErrPostNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", apperror.ErrRemote, err)
	}

	return post, nil
}
