package handler

import (
	"context"
	"net/http"

	"github.com/ora-civic/ora/internal/database/types"
	"github.com/ora-civic/ora/internal/ledger"
	"github.com/ora-civic/ora/internal/rest/middleware/auth"
	restTypes "github.com/ora-civic/ora/internal/rest/types"
	"github.com/ora-civic/ora/internal/service"
	"github.com/uptrace/bunrouter"
	"go.uber.org/zap"
)

// VoteCaster applies vote casts.
type VoteCaster interface {
	Cast(ctx context.Context, postID, voterID string, requested types.VoteType) (ledger.Outcome, types.Tally, error)
}

// VoteHandler handles vote endpoints.
type VoteHandler struct {
	ledger VoteCaster
	posts  *service.PostService
	logger *zap.Logger
}

// NewVoteHandler creates a new vote handler.
func NewVoteHandler(ledger VoteCaster, posts *service.PostService, logger *zap.Logger) *VoteHandler {
	return &VoteHandler{
		ledger: ledger,
		posts:  posts,
		logger: logger.Named("vote_handler"),
	}
}

// CastVote records the caller's vote. Casting the current vote again clears it.
func (h *VoteHandler) CastVote(w http.ResponseWriter, req bunrouter.Request) error {
	var body restTypes.CastVoteRequest
	if err := decodeJSON(w, req.Request, &body); err != nil {
		return writeError(w, h.logger, err)
	}

	caller := auth.FromContext(req.Context())
	outcome, tally, err := h.ledger.Cast(req.Context(), req.Param("id"), caller.ID, body.VoteType)
	if err != nil {
		return writeError(w, h.logger, err)
	}

	return bunrouter.JSON(w, restTypes.CastVoteResponse{
		Outcome:        outcome,
		Tally:          tally,
		SentimentTrend: tally.Sentiment(),
		Percentages:    tally.Percentages(),
	})
}

// MyVote returns the caller's current vote on the post.
func (h *VoteHandler) MyVote(w http.ResponseWriter, req bunrouter.Request) error {
	vote, err := h.posts.MyVote(req.Context(), auth.FromContext(req.Context()), req.Param("id"))
	if err != nil {
		return writeError(w, h.logger, err)
	}

	var response restTypes.MyVoteResponse
	if vote != nil {
		response.VoteType = vote.VoteType
	}

	return bunrouter.JSON(w, response)
}
