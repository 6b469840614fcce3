package handler

import (
	"net/http"

	restTypes "github.com/ora-civic/ora/internal/rest/types"
	"github.com/ora-civic/ora/internal/service"
	"github.com/uptrace/bunrouter"
	"go.uber.org/zap"
)

// InsightHandler handles AI opinion endpoints.
type InsightHandler struct {
	insights *service.InsightService
	logger   *zap.Logger
}

// NewInsightHandler creates a new insight handler.
func NewInsightHandler(insights *service.InsightService, logger *zap.Logger) *InsightHandler {
	return &InsightHandler{
		insights: insights,
		logger:   logger.Named("insight_handler"),
	}
}

// Opinion summarizes public opinion on a post.
func (h *InsightHandler) Opinion(w http.ResponseWriter, req bunrouter.Request) error {
	out, err := h.insights.Opinion(req.Context(), req.Param("id"))
	if err != nil {
		return writeError(w, h.logger, err)
	}

	return bunrouter.JSON(w, out)
}

// Sentiment classifies free text.
func (h *InsightHandler) Sentiment(w http.ResponseWriter, req bunrouter.Request) error {
	var body restTypes.SentimentRequest
	if err := decodeJSON(w, req.Request, &body); err != nil {
		return writeError(w, h.logger, err)
	}

	out, err := h.insights.Sentiment(req.Context(), body.Text)
	if err != nil {
		return writeError(w, h.logger, err)
	}

	return bunrouter.JSON(w, out)
}
