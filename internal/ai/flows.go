// Package ai defines the named, schema-typed operations backed by the language model.
//
// Every flow validates its input before any remote call, fills a fixed prompt
// template, asks the model for JSON matching the flow's response schema, and
// validates the decoded output against the Go struct before returning it.
package ai

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"
	"github.com/google/generative-ai-go/genai"
	"github.com/ora-civic/ora/internal/apperror"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/json"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ApplicationJSON is the MIME type used for minifying prompt payloads.
const ApplicationJSON = "application/json"

// FlowName identifies a flow.
type FlowName string

const (
	FlowAggregateVotingReasons   FlowName = "aggregateVotingReasons"
	FlowAnalyzeCitizenPost       FlowName = "analyzeCitizenPost"
	FlowAnalyzeComment           FlowName = "analyzeComment"
	FlowDetectSentimentTrends    FlowName = "detectSentimentTrends"
	FlowRankPostsForTrendingFeed FlowName = "rankPostsForTrendingFeed"
	FlowSummarizeComments        FlowName = "summarizeComments"
	FlowSummarizePostContent     FlowName = "summarizePostContent"
	FlowSummarizePublicOpinion   FlowName = "summarizePublicOpinion"
)

// Model produces a JSON document for a prompt under a response schema.
type Model interface {
	Generate(ctx context.Context, prompt string, schema *genai.Schema) ([]byte, error)
}

// strictJSON rejects fields the output struct does not declare.
var strictJSON = sonic.Config{DisallowUnknownFields: true}.Froze()

// Flows runs the AI flows. It is stateless and safe for concurrent use.
type Flows struct {
	model    Model
	validate *validator.Validate
	minify   *minify.M
	tracer   trace.Tracer
	logger   *zap.Logger
}

// NewFlows creates the flow runner on top of a model.
func NewFlows(model Model, logger *zap.Logger) *Flows {
	m := minify.New()
	m.AddFunc(ApplicationJSON, json.Minify)

	return &Flows{
		model:    model,
		validate: NewValidator(),
		minify:   m,
		tracer:   otel.Tracer("github.com/ora-civic/ora/internal/ai"),
		logger:   logger.Named("ai_flows"),
	}
}

// remoteFlow describes one model-backed invocation.
type remoteFlow[I, O any] struct {
	name   FlowName
	schema *genai.Schema
	prompt func(f *Flows, input *I) (string, error)
}

// invoke runs the common contract of a model-backed flow.
func invoke[I, O any](ctx context.Context, f *Flows, flow remoteFlow[I, O], input *I) (*O, error) {
	ctx, span := f.tracer.Start(ctx, "ai."+string(flow.name),
		trace.WithAttributes(attribute.String("ai.flow", string(flow.name))))
	defer span.End()

	start := time.Now()

	out, err := func() (*O, error) {
		if err := f.checkInput(input); err != nil {
			return nil, err
		}

		prompt, err := flow.prompt(f, input)
		if err != nil {
			return nil, fmt.Errorf("failed to build %s prompt: %w", flow.name, err)
		}

		raw, err := f.model.Generate(ctx, prompt, flow.schema)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", flow.name, err)
		}

		var out O
		if err := strictJSON.Unmarshal(raw, &out); err != nil {
			return nil, fmt.Errorf("%w: %s: malformed response: %w", apperror.ErrInvalidModelOutput, flow.name, err)
		}

		if err := f.checkOutput(out); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", apperror.ErrInvalidModelOutput, flow.name, err)
		}

		return &out, nil
	}()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		f.logger.Warn("Flow failed",
			zap.String("flow", string(flow.name)),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))

		return nil, err
	}

	f.logger.Debug("Flow completed",
		zap.String("flow", string(flow.name)),
		zap.Duration("duration", time.Since(start)))

	return out, nil
}

// checkInput validates a flow input and reports field problems as a ValidationError.
func (f *Flows) checkInput(input any) error {
	if input == nil || reflect.ValueOf(input).IsNil() {
		return fmt.Errorf("%w: input is required", apperror.ErrInvalidInput)
	}

	if err := f.validate.Struct(input); err != nil {
		return NewValidationError(err)
	}

	return nil
}

// checkOutput validates a decoded output. Top-level slices are checked per element.
func (f *Flows) checkOutput(out any) error {
	value := reflect.ValueOf(out)
	if value.Kind() != reflect.Slice {
		return f.validate.Struct(out)
	}

	for i := range value.Len() {
		if err := f.validate.Struct(value.Index(i).Interface()); err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
	}

	return nil
}

// marshalMinified encodes a prompt payload as compact JSON.
func (f *Flows) marshalMinified(v any) (string, error) {
	data, err := sonic.Marshal(v)
	if err != nil {
		return "", err
	}

	data, err = f.minify.Bytes(ApplicationJSON, data)
	if err != nil {
		return "", err
	}

	return string(data), nil
}

// Invoke runs a flow by name. The input must be the flow's input struct,
// as a value or a pointer; the result is a pointer to the flow's output.
func (f *Flows) Invoke(ctx context.Context, name FlowName, input any) (any, error) {
	switch name {
	case FlowAggregateVotingReasons:
		return dispatch(ctx, input, f.AggregateVotingReasons)
	case FlowAnalyzeCitizenPost:
		return dispatch(ctx, input, f.AnalyzeCitizenPost)
	case FlowAnalyzeComment:
		return dispatch(ctx, input, f.AnalyzeComment)
	case FlowDetectSentimentTrends:
		return dispatch(ctx, input, f.DetectSentimentTrends)
	case FlowRankPostsForTrendingFeed:
		return dispatch(ctx, input, f.RankPostsForTrendingFeed)
	case FlowSummarizeComments:
		return dispatch(ctx, input, f.SummarizeComments)
	case FlowSummarizePostContent:
		return dispatch(ctx, input, f.SummarizePostContent)
	case FlowSummarizePublicOpinion:
		return dispatch(ctx, input, f.SummarizePublicOpinion)
	default:
		return nil, fmt.Errorf("%w: unknown flow %q", apperror.ErrInvalidInput, name)
	}
}

func dispatch[I, O any](ctx context.Context, input any, run func(context.Context, *I) (*O, error)) (any, error) {
	var in *I

	switch v := input.(type) {
	case *I:
		in = v
	case I:
		in = &v
	default:
		var want I
		return nil, fmt.Errorf("%w: expected input of type %T, got %T", apperror.ErrInvalidInput, want, input)
	}

	out, err := run(ctx, in)
	if err != nil {
		return nil, err
	}

	return out, nil
}
