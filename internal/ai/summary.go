package ai

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/generative-ai-go/genai"
)

// NoCommentsSummary is returned for posts without comments.
const NoCommentsSummary = "No comments have been posted yet."

// SummarizeCommentsInput lists the comment texts of a post.
type SummarizeCommentsInput struct {
	Comments []string `json:"comments" validate:"dive,required"`
}

// SummarizeCommentsOutput is the discussion summary.
type SummarizeCommentsOutput struct {
	Summary string `json:"summary" validate:"required"`
}

// SummarizePostContentInput is the post to summarize.
type SummarizePostContentInput struct {
	Title       string `json:"title"       validate:"required"`
	Description string `json:"description" validate:"required"`
}

// SummarizePostContentOutput holds two or three bullet points.
type SummarizePostContentOutput struct {
	Summary []string `json:"summary" validate:"required,min=2,max=3,dive,required"`
}

// SummarizePublicOpinionInput is a post and its vote split.
type SummarizePublicOpinionInput struct {
	Title         string `json:"title"         validate:"required"`
	Description   string `json:"description"   validate:"required"`
	AgreeCount    int64  `json:"agreeCount"    validate:"gte=0"`
	DisagreeCount int64  `json:"disagreeCount" validate:"gte=0"`
}

// SummarizePublicOpinionOutput is a one-sentence opinion summary.
type SummarizePublicOpinionOutput struct {
	Summary string `json:"summary" validate:"required"`
}

// CommentSummarySchema is the response schema for comment summaries.
var CommentSummarySchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"summary": {
			Type:        genai.TypeString,
			Description: "A summary of the key themes and overall sentiment of the comments",
		},
	},
	Required: []string{"summary"},
}

// PostSummarySchema is the response schema for post summaries.
var PostSummarySchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"summary": {
			Type:        genai.TypeArray,
			Description: "Two or three bullet points summarizing the post content",
			Items: &genai.Schema{
				Type:        genai.TypeString,
				Description: "A single bullet point summarizing the post",
			},
		},
	},
	Required: []string{"summary"},
}

// PublicOpinionSchema is the response schema for public opinion summaries.
var PublicOpinionSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"summary": {
			Type:        genai.TypeString,
			Description: "A short, neutral summary of the public opinion on the post",
		},
	},
	Required: []string{"summary"},
}

var commentSummaryFlow = remoteFlow[SummarizeCommentsInput, SummarizeCommentsOutput]{
	name:   FlowSummarizeComments,
	schema: CommentSummarySchema,
	prompt: func(_ *Flows, in *SummarizeCommentsInput) (string, error) {
		var b strings.Builder
		for i, comment := range in.Comments {
			if i > 0 {
				b.WriteByte('\n')
			}
			b.WriteString("- ")
			b.WriteString(strconv.Quote(comment))
		}
		return fmt.Sprintf(CommentSummaryPrompt, b.String()), nil
	},
}

var postSummaryFlow = remoteFlow[SummarizePostContentInput, SummarizePostContentOutput]{
	name:   FlowSummarizePostContent,
	schema: PostSummarySchema,
	prompt: func(_ *Flows, in *SummarizePostContentInput) (string, error) {
		return fmt.Sprintf(PostSummaryPrompt, in.Title, in.Description), nil
	},
}

var publicOpinionFlow = remoteFlow[SummarizePublicOpinionInput, SummarizePublicOpinionOutput]{
	name:   FlowSummarizePublicOpinion,
	schema: PublicOpinionSchema,
	prompt: func(_ *Flows, in *SummarizePublicOpinionInput) (string, error) {
		return fmt.Sprintf(PublicOpinionPrompt, in.Title, in.Description, in.AgreeCount, in.DisagreeCount), nil
	},
}

// SummarizeComments condenses the comments of a post into one paragraph.
// An empty list yields NoCommentsSummary without calling the model.
func (f *Flows) SummarizeComments(
	ctx context.Context, input *SummarizeCommentsInput,
) (*SummarizeCommentsOutput, error) {
	if input != nil && len(input.Comments) == 0 {
		return &SummarizeCommentsOutput{Summary: NoCommentsSummary}, nil
	}
	return invoke(ctx, f, commentSummaryFlow, input)
}

// SummarizePostContent turns a post into two or three bullet points.
func (f *Flows) SummarizePostContent(
	ctx context.Context, input *SummarizePostContentInput,
) (*SummarizePostContentOutput, error) {
	return invoke(ctx, f, postSummaryFlow, input)
}

// SummarizePublicOpinion describes the vote split of a post in one neutral sentence.
func (f *Flows) SummarizePublicOpinion(
	ctx context.Context, input *SummarizePublicOpinionInput,
) (*SummarizePublicOpinionOutput, error) {
	return invoke(ctx, f, publicOpinionFlow, input)
}
