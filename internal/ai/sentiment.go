package ai

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"github.com/ora-civic/ora/internal/database/types"
)

// DetectSentimentTrendsInput is free text to classify.
type DetectSentimentTrendsInput struct {
	Text string `json:"text" validate:"required"`
}

// DetectSentimentTrendsOutput is the detected trend.
type DetectSentimentTrendsOutput struct {
	SentimentTrend types.SentimentTrend `json:"sentimentTrend" validate:"required,sentiment"`
}

// SentimentSchema is the response schema for sentiment detection.
var SentimentSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"sentimentTrend": {
			Type:        genai.TypeString,
			Format:      "enum",
			Enum:        sentimentEnum(),
			Description: "The sentiment trend detected in the text",
		},
	},
	Required: []string{"sentimentTrend"},
}

func sentimentEnum() []string {
	values := make([]string, len(types.SentimentTrends))
	for i, trend := range types.SentimentTrends {
		values[i] = string(trend)
	}
	return values
}

var sentimentFlow = remoteFlow[DetectSentimentTrendsInput, DetectSentimentTrendsOutput]{
	name:   FlowDetectSentimentTrends,
	schema: SentimentSchema,
	prompt: func(_ *Flows, in *DetectSentimentTrendsInput) (string, error) {
		return fmt.Sprintf(SentimentPrompt, in.Text), nil
	},
}

// DetectSentimentTrends classifies the overall sentiment of a text.
func (f *Flows) DetectSentimentTrends(
	ctx context.Context, input *DetectSentimentTrendsInput,
) (*DetectSentimentTrendsOutput, error) {
	return invoke(ctx, f, sentimentFlow, input)
}
