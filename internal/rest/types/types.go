// Package types declares the request and response bodies of the REST API.
package types

import (
	"github.com/ora-civic/ora/internal/ai"
	"github.com/ora-civic/ora/internal/database/types"
	"github.com/ora-civic/ora/internal/ledger"
)

// ErrorResponse describes a failed request.
type ErrorResponse struct {
	Title     string          `json:"title"`
	Message   string          `json:"message"`
	Retryable bool            `json:"retryable"`
	Fields    []ai.FieldError `json:"fields,omitempty"`
}

// CastVoteRequest is the body of a vote cast.
type CastVoteRequest struct {
	VoteType types.VoteType `json:"voteType"`
}

// CastVoteResponse reports the committed state after a cast.
type CastVoteResponse struct {
	Outcome        ledger.Outcome       `json:"outcome"`
	Tally          types.Tally          `json:"tally"`
	SentimentTrend types.SentimentTrend `json:"sentimentTrend"`
	Percentages    types.Percentages    `json:"percentages"`
}

// MyVoteResponse is the caller's current vote. VoteType is empty when they have not voted.
type MyVoteResponse struct {
	VoteType types.VoteType `json:"voteType"`
}

// AddCommentRequest is the body of a new comment.
type AddCommentRequest struct {
	Text string `json:"text"`
}

// RecordReasonRequest is the body of a vote reason.
type RecordReasonRequest struct {
	Reason types.ReasonTag `json:"reason"`
}

// SentimentRequest is free text to classify.
type SentimentRequest struct {
	Text string `json:"text"`
}

// HealthResponse reports liveness.
type HealthResponse struct {
	Status string `json:"status"`
}
