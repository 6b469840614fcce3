package handler

import (
	"net/http"

	"github.com/ora-civic/ora/internal/rest/middleware/auth"
	restTypes "github.com/ora-civic/ora/internal/rest/types"
	"github.com/ora-civic/ora/internal/service"
	"github.com/uptrace/bunrouter"
	"go.uber.org/zap"
)

// CommentHandler handles comment endpoints.
type CommentHandler struct {
	comments *service.CommentService
	logger   *zap.Logger
}

// NewCommentHandler creates a new comment handler.
func NewCommentHandler(comments *service.CommentService, logger *zap.Logger) *CommentHandler {
	return &CommentHandler{
		comments: comments,
		logger:   logger.Named("comment_handler"),
	}
}

// ListComments returns a post's comments, newest first.
func (h *CommentHandler) ListComments(w http.ResponseWriter, req bunrouter.Request) error {
	comments, err := h.comments.List(req.Context(), req.Param("id"))
	if err != nil {
		return writeError(w, h.logger, err)
	}

	return bunrouter.JSON(w, comments)
}

// AddComment moderates and stores a comment from the caller.
func (h *CommentHandler) AddComment(w http.ResponseWriter, req bunrouter.Request) error {
	var body restTypes.AddCommentRequest
	if err := decodeJSON(w, req.Request, &body); err != nil {
		return writeError(w, h.logger, err)
	}

	comment, err := h.comments.Add(req.Context(), auth.FromContext(req.Context()), req.Param("id"), body.Text)
	if err != nil {
		return writeError(w, h.logger, err)
	}

	return writeJSON(w, http.StatusCreated, comment)
}
