package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
)

// AnalyzeCitizenPostInput is a citizen submission awaiting screening.
type AnalyzeCitizenPostInput struct {
	Title       string   `json:"title"              validate:"required"`
	Description string   `json:"description"        validate:"required"`
	TopicTags   []string `json:"topicTags"          validate:"dive,required"`
	MediaURL    string   `json:"mediaUrl,omitempty" validate:"omitempty,url"`
}

// AnalyzeCitizenPostOutput is the screening verdict.
type AnalyzeCitizenPostOutput struct {
	IsRelevant    *bool  `json:"isRelevant"    validate:"required"`
	IsDuplicate   *bool  `json:"isDuplicate"   validate:"required"`
	IsAppropriate *bool  `json:"isAppropriate" validate:"required"`
	Summary       string `json:"summary"       validate:"required"`
}

// Accepted reports whether the post may be published.
func (o *AnalyzeCitizenPostOutput) Accepted() bool {
	return o.IsRelevant != nil && *o.IsRelevant && o.IsAppropriate != nil && *o.IsAppropriate
}

// CitizenPostSchema is the response schema for citizen post screening.
var CitizenPostSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"isRelevant": {
			Type:        genai.TypeBoolean,
			Description: "Whether the post is relevant to public policy",
		},
		"isDuplicate": {
			Type:        genai.TypeBoolean,
			Description: "Whether the post is a duplicate of an existing post",
		},
		"isAppropriate": {
			Type:        genai.TypeBoolean,
			Description: "Whether the post language is appropriate",
		},
		"summary": {
			Type:        genai.TypeString,
			Description: "A short summary of the analysis",
		},
	},
	Required: []string{"isRelevant", "isDuplicate", "isAppropriate", "summary"},
}

var citizenPostFlow = remoteFlow[AnalyzeCitizenPostInput, AnalyzeCitizenPostOutput]{
	name:   FlowAnalyzeCitizenPost,
	schema: CitizenPostSchema,
	prompt: func(_ *Flows, in *AnalyzeCitizenPostInput) (string, error) {
		mediaURL := in.MediaURL
		if mediaURL == "" {
			mediaURL = "none"
		}
		return fmt.Sprintf(CitizenPostPrompt,
			in.Title, in.Description, strings.Join(in.TopicTags, ", "), mediaURL), nil
	},
}

// AnalyzeCitizenPost screens a citizen post for relevance, duplication and language.
func (f *Flows) AnalyzeCitizenPost(
	ctx context.Context, input *AnalyzeCitizenPostInput,
) (*AnalyzeCitizenPostOutput, error) {
	return invoke(ctx, f, citizenPostFlow, input)
}
