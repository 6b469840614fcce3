package ai

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
)

// AnalyzeCommentInput is a comment awaiting moderation.
type AnalyzeCommentInput struct {
	Comment string `json:"comment" validate:"required"`
}

// AnalyzeCommentOutput is the moderation verdict.
type AnalyzeCommentOutput struct {
	IsAppropriate *bool  `json:"isAppropriate"    validate:"required"`
	Reason        string `json:"reason,omitempty"`
}

// Appropriate reports whether the comment may be posted.
func (o *AnalyzeCommentOutput) Appropriate() bool {
	return o.IsAppropriate != nil && *o.IsAppropriate
}

// CommentSchema is the response schema for comment moderation.
var CommentSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"isAppropriate": {
			Type:        genai.TypeBoolean,
			Description: "Whether the comment language is appropriate",
		},
		"reason": {
			Type:        genai.TypeString,
			Description: "Brief neutral reason the comment was flagged, omitted when appropriate",
		},
	},
	Required: []string{"isAppropriate"},
}

var commentFlow = remoteFlow[AnalyzeCommentInput, AnalyzeCommentOutput]{
	name:   FlowAnalyzeComment,
	schema: CommentSchema,
	prompt: func(_ *Flows, in *AnalyzeCommentInput) (string, error) {
		return fmt.Sprintf(CommentModerationPrompt, in.Comment), nil
	},
}

// AnalyzeComment checks a comment for inappropriate language.
func (f *Flows) AnalyzeComment(ctx context.Context, input *AnalyzeCommentInput) (*AnalyzeCommentOutput, error) {
	return invoke(ctx, f, commentFlow, input)
}
