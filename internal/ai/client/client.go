// Package client wraps the hosted language model behind a bounded, retrying,
// circuit-broken JSON generation call.
package client

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/generative-ai-go/genai"
	"github.com/ora-civic/ora/internal/apperror"
	"github.com/ora-civic/ora/internal/setup/config"
	"github.com/ora-civic/ora/pkg/utils"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"google.golang.org/api/option"
)

// ApplicationJSON is the MIME type requested from the model.
const ApplicationJSON = "application/json"

// ErrBlocked indicates the model refused to answer for safety reasons.
var ErrBlocked = errors.New("response blocked by safety filters")

// Backend performs a single structured generation request.
type Backend interface {
	GenerateContent(ctx context.Context, prompt string, schema *genai.Schema) (*genai.GenerateContentResponse, error)
}

// GeminiBackend sends requests to the Gemini API.
type GeminiBackend struct {
	client      *genai.Client
	model       string
	temperature float32
	maxTokens   int32
}

// NewGeminiBackend connects to the Gemini API with the configured key.
func NewGeminiBackend(ctx context.Context, cfg *config.Gemini) (*GeminiBackend, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiBackend{
		client:      client,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxOutputTokens,
	}, nil
}

// GenerateContent asks the model for a JSON document matching schema.
func (b *GeminiBackend) GenerateContent(
	ctx context.Context, prompt string, schema *genai.Schema,
) (*genai.GenerateContentResponse, error) {
	model := b.client.GenerativeModel(b.model)
	model.ResponseMIMEType = ApplicationJSON
	model.ResponseSchema = schema
	model.SetTemperature(b.temperature)
	if b.maxTokens > 0 {
		model.SetMaxOutputTokens(b.maxTokens)
	}

	return model.GenerateContent(ctx, genai.Text(prompt))
}

// Close releases the underlying connection.
func (b *GeminiBackend) Close() error {
	return b.client.Close()
}

// Client bounds concurrency, retries transient failures and trips a circuit
// breaker when the backend keeps failing.
type Client struct {
	backend   Backend
	breaker   *gobreaker.CircuitBreaker
	semaphore *semaphore.Weighted
	retry     utils.RetryOptions
	timeout   time.Duration
	logger    *zap.Logger
}

// Options tunes a Client.
type Options struct {
	MaxConcurrent  int64
	RequestTimeout time.Duration
	Retry          utils.RetryOptions
	// BreakerMinRequests and BreakerFailureRatio decide when the breaker opens.
	BreakerMinRequests  uint32
	BreakerFailureRatio float64
	BreakerTimeout      time.Duration
}

// OptionsFromConfig builds client options from the gemini config section.
func OptionsFromConfig(cfg *config.Gemini) Options {
	return Options{
		MaxConcurrent:       cfg.MaxConcurrent,
		RequestTimeout:      time.Duration(cfg.RequestTimeout) * time.Second,
		Retry:               utils.GetAIRetryOptions(),
		BreakerMinRequests:  10,
		BreakerFailureRatio: 0.6,
		BreakerTimeout:      60 * time.Second,
	}
}

// NewClient creates a client around a backend.
func NewClient(backend Backend, opts Options, logger *zap.Logger) *Client {
	logger = logger.Named("ai_client")

	settings := gobreaker.Settings{
		Name:        "gemini",
		MaxRequests: 1,
		Timeout:     opts.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= opts.BreakerMinRequests && failureRatio >= opts.BreakerFailureRatio
		},
		IsSuccessful: func(err error) bool {
			// Refusals and bad output are not availability problems
			return err == nil || errors.Is(err, ErrBlocked) || errors.Is(err, apperror.ErrInvalidModelOutput)
		},
		OnStateChange: func(_ string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}

	maxConcurrent := opts.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}

	return &Client{
		backend:   backend,
		breaker:   gobreaker.NewCircuitBreaker(settings),
		semaphore: semaphore.NewWeighted(maxConcurrent),
		retry:     opts.Retry,
		timeout:   opts.RequestTimeout,
		logger:    logger,
	}
}

// Generate returns the raw JSON text produced for prompt under schema.
//
// Transport and availability failures are reported as apperror.ErrRemote.
// Refusals and empty responses are reported as apperror.ErrInvalidModelOutput.
func (c *Client) Generate(ctx context.Context, prompt string, schema *genai.Schema) ([]byte, error) {
	if err := c.semaphore.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("%w: failed to acquire model slot: %w", apperror.ErrRemote, err)
	}
	defer c.semaphore.Release(1)

	var attempt int

	text, err := utils.WithRetry(ctx, func() (string, error) {
		if err := ctx.Err(); err != nil {
			return "", backoff.Permanent(err)
		}

		attempt++

		result, err := c.breaker.Execute(func() (any, error) {
			return c.generateOnce(ctx, prompt, schema)
		})
		if err != nil {
			switch {
			case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
				return "", backoff.Permanent(fmt.Errorf("%w: model circuit breaker is open: %w", apperror.ErrRemote, err))
			case errors.Is(err, ErrBlocked), errors.Is(err, apperror.ErrInvalidModelOutput):
				return "", backoff.Permanent(err)
			default:
				c.logger.Warn("Model request failed",
					zap.Int("attempt", attempt),
					zap.Error(err))
				return "", err
			}
		}

		return result.(string), nil
	}, c.retry)
	if err != nil {
		switch {
		case errors.Is(err, apperror.ErrRemote), errors.Is(err, apperror.ErrInvalidModelOutput):
			return nil, err
		case errors.Is(err, ErrBlocked):
			return nil, fmt.Errorf("%w: %w", apperror.ErrInvalidModelOutput, err)
		default:
			return nil, fmt.Errorf("%w: model request failed: %w", apperror.ErrRemote, err)
		}
	}

	return []byte(text), nil
}

// generateOnce performs one request and extracts the text of the first candidate.
func (c *Client) generateOnce(ctx context.Context, prompt string, schema *genai.Schema) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.backend.GenerateContent(ctx, prompt, schema)
	if err != nil {
		var blocked *genai.BlockedError
		if errors.As(err, &blocked) {
			return "", fmt.Errorf("%w: %s", ErrBlocked, blocked.Error())
		}
		return "", fmt.Errorf("gemini API error: %w", err)
	}

	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: no candidates in response", apperror.ErrInvalidModelOutput)
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return "", ErrBlocked
	}
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("%w: empty response content", apperror.ErrInvalidModelOutput)
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", fmt.Errorf("%w: response contains no text", apperror.ErrInvalidModelOutput)
	}

	return text, nil
}
