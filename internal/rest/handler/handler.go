// Package handler implements the REST endpoints.
package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/ora-civic/ora/internal/ai"
	"github.com/ora-civic/ora/internal/apperror"
	restTypes "github.com/ora-civic/ora/internal/rest/types"
	"go.uber.org/zap"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 64 << 10

// strictJSON rejects request fields the endpoint does not declare.
var strictJSON = sonic.Config{DisallowUnknownFields: true}.Froze()

// decodeJSON reads a JSON request body into v.
func decodeJSON(w http.ResponseWriter, req *http.Request, v any) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, req.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%w: failed to read request body: %w", apperror.ErrInvalidInput, err)
	}

	if err := strictJSON.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: malformed request body: %w", apperror.ErrInvalidInput, err)
	}

	return nil
}

// writeJSON encodes v with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return sonic.ConfigDefault.NewEncoder(w).Encode(v)
}

// writeError renders err as an ErrorResponse. Unexpected errors are logged.
func writeError(w http.ResponseWriter, logger *zap.Logger, err error) error {
	desc := apperror.Describe(err)

	response := restTypes.ErrorResponse{
		Title:     desc.Title,
		Message:   desc.Message,
		Retryable: desc.Retryable,
	}

	var validationErr *ai.ValidationError
	if errors.As(err, &validationErr) {
		response.Fields = validationErr.Fields
	}

	switch {
	case desc.Status >= http.StatusInternalServerError:
		logger.Error("Request failed", zap.Int("status", desc.Status), zap.Error(err))
	case desc.Status == http.StatusBadRequest:
		logger.Debug("Invalid request", zap.Error(err))
	}

	return writeJSON(w, desc.Status, response)
}
