package client_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/ora-civic/ora/internal/ai/client"
	"github.com/ora-civic/ora/internal/apperror"
	"github.com/ora-civic/ora/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var errUnavailable = errors.New("service unavailable")

type fakeBackend struct {
	calls   atomic.Int32
	respond func(call int32) (*genai.GenerateContentResponse, error)
}

func (b *fakeBackend) GenerateContent(
	_ context.Context, _ string, _ *genai.Schema,
) (*genai.GenerateContentResponse, error) {
	return b.respond(b.calls.Add(1))
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content:      &genai.Content{Parts: []genai.Part{genai.Text(text)}},
			FinishReason: genai.FinishReasonStop,
		}},
	}
}

func testOptions() client.Options {
	return client.Options{
		MaxConcurrent:  2,
		RequestTimeout: time.Second,
		Retry: utils.RetryOptions{
			MaxElapsedTime:  time.Second,
			InitialInterval: time.Millisecond,
			MaxInterval:     5 * time.Millisecond,
			MaxRetries:      2,
		},
		BreakerMinRequests:  100,
		BreakerFailureRatio: 0.6,
		BreakerTimeout:      time.Minute,
	}
}

func TestGenerate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		respond       func(call int32) (*genai.GenerateContentResponse, error)
		want          string
		wantErr       error
		expectedCalls int32
	}{
		{
			name: "returns text",
			respond: func(int32) (*genai.GenerateContentResponse, error) {
				return textResponse(` {"summary":"ok"} `), nil
			},
			want:          `{"summary":"ok"}`,
			expectedCalls: 1,
		},
		{
			name: "retries transient failure",
			respond: func(call int32) (*genai.GenerateContentResponse, error) {
				if call == 1 {
					return nil, errUnavailable
				}
				return textResponse(`{}`), nil
			},
			want:          `{}`,
			expectedCalls: 2,
		},
		{
			name: "remote error after retries",
			respond: func(int32) (*genai.GenerateContentResponse, error) {
				return nil, errUnavailable
			},
			wantErr:       apperror.ErrRemote,
			expectedCalls: 3,
		},
		{
			name: "no candidates",
			respond: func(int32) (*genai.GenerateContentResponse, error) {
				return &genai.GenerateContentResponse{}, nil
			},
			wantErr:       apperror.ErrInvalidModelOutput,
			expectedCalls: 1,
		},
		{
			name: "safety finish reason",
			respond: func(int32) (*genai.GenerateContentResponse, error) {
				return &genai.GenerateContentResponse{
					Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonSafety}},
				}, nil
			},
			wantErr:       apperror.ErrInvalidModelOutput,
			expectedCalls: 1,
		},
		{
			name: "blank text",
			respond: func(int32) (*genai.GenerateContentResponse, error) {
				return textResponse("   "), nil
			},
			wantErr:       apperror.ErrInvalidModelOutput,
			expectedCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			backend := &fakeBackend{respond: tt.respond}
			c := client.NewClient(backend, testOptions(), zaptest.NewLogger(t))

			got, err := c.Generate(t.Context(), "prompt", &genai.Schema{Type: genai.TypeObject})
			assert.Equal(t, tt.expectedCalls, backend.calls.Load())

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestGenerateCircuitBreaker(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{respond: func(int32) (*genai.GenerateContentResponse, error) {
		return nil, errUnavailable
	}}

	opts := testOptions()
	opts.BreakerMinRequests = 3
	opts.Retry.MaxRetries = 0
	c := client.NewClient(backend, opts, zaptest.NewLogger(t))

	for range 3 {
		_, err := c.Generate(t.Context(), "prompt", nil)
		require.ErrorIs(t, err, apperror.ErrRemote)
	}

	// Breaker is open, so the backend is no longer called
	_, err := c.Generate(t.Context(), "prompt", nil)
	require.ErrorIs(t, err, apperror.ErrRemote)
	assert.Equal(t, int32(3), backend.calls.Load())
}

func TestGenerateBoundsConcurrency(t *testing.T) {
	t.Parallel()

	var (
		inFlight atomic.Int32
		peak     atomic.Int32
	)

	backend := &fakeBackend{respond: func(int32) (*genai.GenerateContentResponse, error) {
		current := inFlight.Add(1)
		defer inFlight.Add(-1)

		for {
			old := peak.Load()
			if current <= old || peak.CompareAndSwap(old, current) {
				break
			}
		}

		time.Sleep(10 * time.Millisecond)
		return textResponse(`{}`), nil
	}}

	c := client.NewClient(backend, testOptions(), zaptest.NewLogger(t))

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Generate(t.Context(), "prompt", nil)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestGenerateCancelledContext(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{respond: func(int32) (*genai.GenerateContentResponse, error) {
		return textResponse(`{}`), nil
	}}
	c := client.NewClient(backend, testOptions(), zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := c.Generate(ctx, "prompt", nil)
	require.ErrorIs(t, err, apperror.ErrRemote)
	assert.Zero(t, backend.calls.Load())
}
