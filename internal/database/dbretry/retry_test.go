package dbretry_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/ora-civic/ora/internal/database/dbretry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errPermanent = errors.New("constraint violated")

func TestIsRetryableError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "cancelled", err: context.Canceled, want: false},
		{name: "wrapped deadline", err: fmt.Errorf("query: %w", context.DeadlineExceeded), want: false},
		{name: "connection reset", err: errors.New("read tcp: connection reset by peer"), want: true},
		{name: "refused", err: errors.New("dial tcp: connection refused"), want: true},
		{name: "other", err: errPermanent, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, dbretry.IsRetryableError(tt.err))
		})
	}
}

func TestNoResult(t *testing.T) {
	t.Parallel()

	t.Run("retries transient errors", func(t *testing.T) {
		t.Parallel()

		calls := 0
		err := dbretry.NoResult(t.Context(), func(context.Context) error {
			calls++
			if calls < 3 {
				return errors.New("connection refused")
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("stops on permanent errors", func(t *testing.T) {
		t.Parallel()

		calls := 0
		err := dbretry.NoResult(t.Context(), func(context.Context) error {
			calls++
			return errPermanent
		})
		require.ErrorIs(t, err, errPermanent)
		assert.Equal(t, 1, calls)
	})
}
