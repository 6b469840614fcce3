package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/ora-civic/ora/internal/apperror"
	"github.com/ora-civic/ora/internal/database/types"
	"github.com/ora-civic/ora/internal/rest/middleware/auth"
	"github.com/ora-civic/ora/internal/service"
	"github.com/uptrace/bunrouter"
	"go.uber.org/zap"
)

// PostHandler handles post and feed endpoints.
type PostHandler struct {
	posts  *service.PostService
	feed   *service.FeedService
	logger *zap.Logger
}

// NewPostHandler creates a new post handler.
func NewPostHandler(posts *service.PostService, feed *service.FeedService, logger *zap.Logger) *PostHandler {
	return &PostHandler{
		posts:  posts,
		feed:   feed,
		logger: logger.Named("post_handler"),
	}
}

// ListPosts returns the feed. Query parameters: category and topics (repeated or
// comma separated), q, sort and limit.
func (h *PostHandler) ListPosts(w http.ResponseWriter, req bunrouter.Request) error {
	filter, err := parseFeedFilter(req)
	if err != nil {
		return writeError(w, h.logger, err)
	}

	posts, err := h.feed.List(req.Context(), filter)
	if err != nil {
		return writeError(w, h.logger, err)
	}

	return bunrouter.JSON(w, posts)
}

// Trending returns recent posts ordered by the model's ranking.
func (h *PostHandler) Trending(w http.ResponseWriter, req bunrouter.Request) error {
	posts, err := h.feed.Trending(req.Context())
	if err != nil {
		return writeError(w, h.logger, err)
	}

	return bunrouter.JSON(w, posts)
}

// CreatePost publishes a new post for the caller.
func (h *PostHandler) CreatePost(w http.ResponseWriter, req bunrouter.Request) error {
	var body service.SubmitPostInput
	if err := decodeJSON(w, req.Request, &body); err != nil {
		return writeError(w, h.logger, err)
	}

	post, err := h.posts.Submit(req.Context(), auth.FromContext(req.Context()), &body)
	if err != nil {
		return writeError(w, h.logger, err)
	}

	return writeJSON(w, http.StatusCreated, service.NewPostView(post))
}

// GetPost returns one post with its derived vote figures.
func (h *PostHandler) GetPost(w http.ResponseWriter, req bunrouter.Request) error {
	post, err := h.posts.Get(req.Context(), req.Param("id"))
	if err != nil {
		return writeError(w, h.logger, err)
	}

	return bunrouter.JSON(w, post)
}

func parseFeedFilter(req bunrouter.Request) (types.FeedFilter, error) {
	query := req.URL.Query()

	filter := types.FeedFilter{
		Query:  query.Get("q"),
		Topics: splitList(query["topics"]),
		Sort:   types.FeedSort(query.Get("sort")),
	}

	for _, category := range splitList(query["category"]) {
		filter.Categories = append(filter.Categories, types.Category(category))
	}

	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return filter, apperror.ErrInvalidInput
		}
		filter.Limit = limit
	}

	return filter, nil
}

// splitList flattens repeated and comma separated query values.
func splitList(values []string) []string {
	var result []string
	for _, value := range values {
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				result = append(result, item)
			}
		}
	}
	return result
}
