// Package rest serves the ORA HTTP API.
package rest

import (
	"net/http"

	"github.com/klauspost/compress/gzhttp"
	"github.com/ora-civic/ora/internal/live"
	"github.com/ora-civic/ora/internal/rest/handler"
	"github.com/ora-civic/ora/internal/rest/middleware/access"
	"github.com/ora-civic/ora/internal/rest/middleware/auth"
	"github.com/ora-civic/ora/internal/rest/middleware/ratelimit"
	restTypes "github.com/ora-civic/ora/internal/rest/types"
	"github.com/ora-civic/ora/internal/service"
	"github.com/ora-civic/ora/internal/setup/config"
	"github.com/uptrace/bunrouter"
	"go.uber.org/zap"
)

// Dependencies are the services behind the API.
type Dependencies struct {
	Posts    *service.PostService
	Feed     *service.FeedService
	Comments *service.CommentService
	Reasons  *service.ReasonService
	Insights *service.InsightService
	Ledger   handler.VoteCaster
	Broker   live.Broker
}

// Server implements the REST API service.
type Server struct {
	handler     http.Handler
	rateLimiter *ratelimit.Middleware
}

// NewServer creates a new REST API server.
func NewServer(deps Dependencies, config *config.API, logger *zap.Logger) (*Server, error) {
	postHandler := handler.NewPostHandler(deps.Posts, deps.Feed, logger)
	voteHandler := handler.NewVoteHandler(deps.Ledger, deps.Posts, logger)
	commentHandler := handler.NewCommentHandler(deps.Comments, logger)
	reasonHandler := handler.NewReasonHandler(deps.Reasons, logger)
	insightHandler := handler.NewInsightHandler(deps.Insights, logger)
	streamHandler := handler.NewStreamHandler(deps.Posts, deps.Broker, logger)

	// Create middleware instances
	authMiddleware, err := auth.New(&config.Auth, logger)
	if err != nil {
		return nil, err
	}
	accessMiddleware := access.New(logger)
	rateLimiter := ratelimit.New(&config.RateLimit, logger)

	router := bunrouter.New()

	router.GET("/health", func(w http.ResponseWriter, _ bunrouter.Request) error {
		return bunrouter.JSON(w, restTypes.HealthResponse{Status: "ok"})
	})

	router.Use(
		accessMiddleware.AsRESTMiddleware,
		authMiddleware.AsRESTMiddleware,
		rateLimiter.AsRESTMiddleware,
	).WithGroup("/v1", func(g *bunrouter.Group) {
		g.GET("/posts", postHandler.ListPosts)
		g.POST("/posts", postHandler.CreatePost)
		g.GET("/posts/trending", postHandler.Trending)
		g.GET("/posts/:id", postHandler.GetPost)
		g.POST("/posts/:id/votes", voteHandler.CastVote)
		g.GET("/posts/:id/votes/me", voteHandler.MyVote)
		g.GET("/posts/:id/stream", streamHandler.StreamTally)
		g.GET("/posts/:id/comments", commentHandler.ListComments)
		g.POST("/posts/:id/comments", commentHandler.AddComment)
		g.PUT("/posts/:id/reasons", reasonHandler.RecordReason)
		g.GET("/posts/:id/reasons", reasonHandler.AggregateReasons)
		g.GET("/posts/:id/opinion", insightHandler.Opinion)
		g.POST("/sentiment", insightHandler.Sentiment)
	})

	// Event streams must reach the client unbuffered
	compress, err := gzhttp.NewWrapper(gzhttp.ExceptContentTypes([]string{"text/event-stream"}))
	if err != nil {
		return nil, err
	}

	return &Server{
		handler:     compress(router),
		rateLimiter: rateLimiter,
	}, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	s.handler.ServeHTTP(w, req)
}

// Close stops background cleanup of rate limit state.
func (s *Server) Close() {
	s.rateLimiter.Close()
}
