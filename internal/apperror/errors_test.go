package apperror_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/ora-civic/ora/internal/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescribe(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		err       error
		status    int
		retryable bool
	}{
		{"authentication", apperror.ErrAuthenticationRequired, http.StatusUnauthorized, false},
		{"post not found", fmt.Errorf("cast vote: %w", apperror.ErrPostNotFound), http.StatusNotFound, false},
		{"invalid input", apperror.ErrInvalidInput, http.StatusBadRequest, false},
		{"invalid model output", apperror.ErrInvalidModelOutput, http.StatusBadGateway, true},
		{"remote", fmt.Errorf("%w: dial tcp", apperror.ErrRemote), http.StatusServiceUnavailable, true},
		{"content rejected", apperror.ErrContentRejected, http.StatusUnprocessableEntity, false},
		{"comment flagged", apperror.ErrCommentFlagged, http.StatusUnprocessableEntity, false},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, false},
	}

	seen := make(map[string]string)

	for _, tt := range tests {
		desc := apperror.Describe(tt.err)
		assert.Equal(t, tt.status, desc.Status, tt.name)
		assert.Equal(t, tt.retryable, desc.Retryable, tt.name)
		require.NotEmpty(t, desc.Message, tt.name)

		// Every kind must render a distinct message
		if other, ok := seen[desc.Message]; ok {
			t.Fatalf("%s and %s share the message %q", tt.name, other, desc.Message)
		}
		seen[desc.Message] = tt.name
	}
}

func TestRejectionError(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("submit post: %w",
		apperror.NewRejection(apperror.ErrContentRejected, "The post is not about public policy."))

	require.ErrorIs(t, err, apperror.ErrContentRejected)

	desc := apperror.Describe(err)
	assert.Equal(t, "Submission Rejected", desc.Title)
	assert.Equal(t, "The post is not about public policy.", desc.Message)

	// Without a reason the default message is kept
	desc = apperror.Describe(apperror.NewRejection(apperror.ErrCommentFlagged, ""))
	assert.Equal(t, "Your comment was found to be inappropriate and was not posted.", desc.Message)
}
