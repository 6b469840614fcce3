package service_test

import (
	"testing"

	"github.com/ora-civic/ora/internal/ai"
	"github.com/ora-civic/ora/internal/apperror"
	"github.com/ora-civic/ora/internal/database/memory"
	"github.com/ora-civic/ora/internal/database/types"
	"github.com/ora-civic/ora/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newReasonService(t *testing.T) (*service.ReasonService, *memory.Store, *scriptedModel) {
	t.Helper()

	store := memory.New()
	model := newScriptedModel()
	svc := service.NewReasonService(store, store, newFlows(t, model), zaptest.NewLogger(t))

	return svc, store, model
}

func TestReasonAggregate(t *testing.T) {
	t.Parallel()

	svc, store, model := newReasonService(t)
	seedPost(t, store, types.Post{ID: "p1"})

	given := []struct {
		voter  string
		reason types.ReasonTag
	}{
		{"a", types.ReasonEconomic},
		{"b", types.ReasonEnvironment},
		{"c", types.ReasonEconomic},
		{"d", types.ReasonEnvironment},
		{"e", types.ReasonEconomic},
		{"f", types.ReasonCorruptionRisk},
	}
	for _, g := range given {
		require.NoError(t, svc.Record(t.Context(), service.Caller{ID: g.voter}, "p1", g.reason))
	}

	out, err := svc.Aggregate(t.Context(), "p1")
	require.NoError(t, err)
	assert.Equal(t, []ai.ReasonCount{
		{Reason: "Economic", Count: 3},
		{Reason: "Environment", Count: 2},
		{Reason: "Corruption Risk", Count: 1},
	}, out.AggregatedReasons)

	assert.Zero(t, model.totalCalls())
}

func TestReasonAggregateEmpty(t *testing.T) {
	t.Parallel()

	svc, store, _ := newReasonService(t)
	seedPost(t, store, types.Post{ID: "p1"})

	out, err := svc.Aggregate(t.Context(), "p1")
	require.NoError(t, err)
	assert.Empty(t, out.AggregatedReasons)
}

func TestReasonRecordPreconditions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		caller  service.Caller
		postID  string
		reason  types.ReasonTag
		wantErr error
	}{
		{name: "anonymous", caller: service.Caller{}, postID: "p1", reason: types.ReasonOther, wantErr: apperror.ErrAuthenticationRequired},
		{name: "unknown tag", caller: alice, postID: "p1", reason: "Vibes", wantErr: apperror.ErrInvalidInput},
		{name: "missing post", caller: alice, postID: "nope", reason: types.ReasonOther, wantErr: apperror.ErrPostNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			svc, store, _ := newReasonService(t)
			seedPost(t, store, types.Post{ID: "p1"})

			err := svc.Record(t.Context(), tt.caller, tt.postID, tt.reason)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}
