package handler

import (
	"net/http"

	"github.com/ora-civic/ora/internal/rest/middleware/auth"
	restTypes "github.com/ora-civic/ora/internal/rest/types"
	"github.com/ora-civic/ora/internal/service"
	"github.com/uptrace/bunrouter"
	"go.uber.org/zap"
)

// ReasonHandler handles vote reason endpoints.
type ReasonHandler struct {
	reasons *service.ReasonService
	logger  *zap.Logger
}

// NewReasonHandler creates a new reason handler.
func NewReasonHandler(reasons *service.ReasonService, logger *zap.Logger) *ReasonHandler {
	return &ReasonHandler{
		reasons: reasons,
		logger:  logger.Named("reason_handler"),
	}
}

// RecordReason stores why the caller voted the way they did.
func (h *ReasonHandler) RecordReason(w http.ResponseWriter, req bunrouter.Request) error {
	var body restTypes.RecordReasonRequest
	if err := decodeJSON(w, req.Request, &body); err != nil {
		return writeError(w, h.logger, err)
	}

	err := h.reasons.Record(req.Context(), auth.FromContext(req.Context()), req.Param("id"), body.Reason)
	if err != nil {
		return writeError(w, h.logger, err)
	}

	w.WriteHeader(http.StatusNoContent)
	return nil
}

// AggregateReasons returns the reasons given on a post, most common first.
func (h *ReasonHandler) AggregateReasons(w http.ResponseWriter, req bunrouter.Request) error {
	out, err := h.reasons.Aggregate(req.Context(), req.Param("id"))
	if err != nil {
		return writeError(w, h.logger, err)
	}

	return bunrouter.JSON(w, out)
}
