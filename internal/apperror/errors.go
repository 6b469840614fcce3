package apperror

import (
	"errors"
	"net/http"
)

var (
	// ErrAuthenticationRequired is returned when an operation needs an identified caller.
	ErrAuthenticationRequired = errors.New("authentication required")
	// ErrPostNotFound is returned when the referenced post does not exist.
	ErrPostNotFound = errors.New("post not found")
	// ErrInvalidInput is returned when input fails its declared schema.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidModelOutput is returned when the model response fails its declared schema.
	ErrInvalidModelOutput = errors.New("invalid model output")
	// ErrRemote is returned when the model or the store is unavailable.
	ErrRemote = errors.New("remote service error")
	// ErrContentRejected is returned when a citizen post fails the relevance gate.
	ErrContentRejected = errors.New("content rejected")
	// ErrCommentFlagged is returned when a comment fails the appropriateness gate.
	ErrCommentFlagged = errors.New("comment flagged")
)

// RejectionError carries the model's explanation for a rejected submission.
type RejectionError struct {
	Kind   error
	Reason string
}

// NewRejection creates a rejection of the given kind.
func NewRejection(kind error, reason string) *RejectionError {
	return &RejectionError{Kind: kind, Reason: reason}
}

func (e *RejectionError) Error() string {
	if e.Reason == "" {
		return e.Kind.Error()
	}
	return e.Kind.Error() + ": " + e.Reason
}

func (e *RejectionError) Unwrap() error {
	return e.Kind
}

// Description is the user-facing rendering of an error.
type Description struct {
	Title   string `json:"title"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	// Retryable reports whether resubmitting the same input could succeed.
	Retryable bool `json:"retryable"`
}

// Describe maps an error to a distinct human-readable description.
func Describe(err error) Description {
	var rejection *RejectionError
	if errors.As(err, &rejection) && rejection.Reason != "" {
		desc := describeKind(rejection.Kind)
		desc.Message = rejection.Reason
		return desc
	}

	return describeKind(err)
}

func describeKind(err error) Description {
	switch {
	case errors.Is(err, ErrAuthenticationRequired):
		return Description{
			Title:   "Authentication Required",
			Message: "You must be logged in to do that.",
			Status:  http.StatusUnauthorized,
		}
	case errors.Is(err, ErrPostNotFound):
		return Description{
			Title:   "Post Not Found",
			Message: "The proposal you are looking for does not exist.",
			Status:  http.StatusNotFound,
		}
	case errors.Is(err, ErrInvalidInput):
		return Description{
			Title:   "Invalid Input",
			Message: "Some of the submitted fields are missing or invalid. Please correct them and try again.",
			Status:  http.StatusBadRequest,
		}
	case errors.Is(err, ErrContentRejected):
		return Description{
			Title:   "Submission Rejected",
			Message: "Your proposal was flagged as inappropriate or irrelevant.",
			Status:  http.StatusUnprocessableEntity,
		}
	case errors.Is(err, ErrCommentFlagged):
		return Description{
			Title:   "Comment Flagged",
			Message: "Your comment was found to be inappropriate and was not posted.",
			Status:  http.StatusUnprocessableEntity,
		}
	case errors.Is(err, ErrInvalidModelOutput):
		return Description{
			Title:     "Analysis Failed",
			Message:   "The AI service returned an unexpected response. Please try again.",
			Status:    http.StatusBadGateway,
			Retryable: true,
		}
	case errors.Is(err, ErrRemote):
		return Description{
			Title:     "Service Unavailable",
			Message:   "A required service is temporarily unavailable. Please try again.",
			Status:    http.StatusServiceUnavailable,
			Retryable: true,
		}
	default:
		return Description{
			Title:   "Uh oh! Something went wrong.",
			Message: "An unexpected error occurred. Please try again.",
			Status:  http.StatusInternalServerError,
		}
	}
}
