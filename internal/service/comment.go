package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ora-civic/ora/internal/ai"
	"github.com/ora-civic/ora/internal/apperror"
	"github.com/ora-civic/ora/internal/database/types"
	"github.com/sourcegraph/conc"
	"go.uber.org/zap"
)

// DefaultFlaggedCommentMessage is shown when the moderator gives no reason.
const DefaultFlaggedCommentMessage = "Your comment was found to be inappropriate and was not posted."

// DefaultSummaryTimeout bounds one background comment summary recomputation.
const DefaultSummaryTimeout = 2 * time.Minute

// CommentService moderates, stores and summarizes comments.
type CommentService struct {
	posts          PostStore
	comments       CommentStore
	analyzer       CommentAnalyzer
	sanitizer      *Sanitizer
	summaries      conc.WaitGroup
	summaryTimeout time.Duration
	logger         *zap.Logger
	now            func() time.Time
}

// NewCommentService creates a CommentService. A non-positive summaryTimeout
// uses DefaultSummaryTimeout.
func NewCommentService(
	posts PostStore, comments CommentStore, analyzer CommentAnalyzer, summaryTimeout time.Duration, logger *zap.Logger,
) *CommentService {
	if summaryTimeout <= 0 {
		summaryTimeout = DefaultSummaryTimeout
	}

	return &CommentService{
		posts:          posts,
		comments:       comments,
		analyzer:       analyzer,
		sanitizer:      NewSanitizer(),
		summaryTimeout: summaryTimeout,
		logger:         logger.Named("comment_service"),
		now:            time.Now,
	}
}

// Add moderates and stores a comment, then refreshes the post's comment summary
// in the background. The summary refresh never affects the result.
func (s *CommentService) Add(ctx context.Context, caller Caller, postID, text string) (*types.Comment, error) {
	if err := caller.require(); err != nil {
		return nil, err
	}

	text = s.sanitizer.Paragraphs(text)
	if err := checkLength("text", text, 1, types.MaxCommentLength); err != nil {
		return nil, err
	}

	if _, err := getPost(ctx, s.posts, postID); err != nil {
		return nil, err
	}

	verdict, err := s.analyzer.AnalyzeComment(ctx, &ai.AnalyzeCommentInput{Comment: text})
	if err != nil {
		return nil, err
	}

	if !verdict.Appropriate() {
		reason := verdict.Reason
		if reason == "" {
			reason = DefaultFlaggedCommentMessage
		}

		s.logger.Info("Comment flagged",
			zap.String("postID", postID),
			zap.String("authorID", caller.ID),
			zap.String("reason", reason))

		return nil, apperror.NewRejection(apperror.ErrCommentFlagged, reason)
	}

	comment := &types.Comment{
		ID:        uuid.NewString(),
		PostID:    postID,
		AuthorID:  caller.ID,
		Author:    caller.displayName(),
		Text:      text,
		CreatedAt: s.now(),
	}

	if err := s.comments.AddComment(ctx, comment); err != nil {
		return nil, fmt.Errorf("%w: %w", apperror.ErrRemote, err)
	}

	s.refreshSummary(ctx, postID)

	return comment, nil
}

// List returns a post's comments, newest first.
func (s *CommentService) List(ctx context.Context, postID string) ([]*types.Comment, error) {
	if _, err := getPost(ctx, s.posts, postID); err != nil {
		return nil, err
	}

	comments, err := s.comments.ListComments(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperror.ErrRemote, err)
	}

	return comments, nil
}

// Close waits for in-flight summary refreshes.
func (s *CommentService) Close() {
	s.summaries.Wait()
}

// refreshSummary recomputes the comment summary detached from the request.
func (s *CommentService) refreshSummary(ctx context.Context, postID string) {
	ctx = context.WithoutCancel(ctx)

	s.summaries.Go(func() {
		ctx, cancel := context.WithTimeout(ctx, s.summaryTimeout)
		defer cancel()

		if err := s.summarize(ctx, postID); err != nil {
			s.logger.Warn("Failed to refresh comment summary",
				zap.String("postID", postID),
				zap.Error(err))
		}
	})
}

func (s *CommentService) summarize(ctx context.Context, postID string) error {
	texts, err := s.comments.ListCommentTexts(ctx, postID)
	if err != nil {
		return fmt.Errorf("failed to load comments: %w", err)
	}

	if len(texts) == 0 {
		return nil
	}

	result, err := s.analyzer.SummarizeComments(ctx, &ai.SummarizeCommentsInput{Comments: texts})
	if err != nil {
		return err
	}

	if err := s.posts.UpdateCommentSummary(ctx, postID, result.Summary); err != nil {
		return fmt.Errorf("failed to save comment summary: %w", err)
	}

	s.logger.Debug("Comment summary refreshed",
		zap.String("postID", postID),
		zap.Int("comments", len(texts)))

	return nil
}
