package ai

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/ora-civic/ora/internal/apperror"
	"github.com/ora-civic/ora/internal/database/types"
)

// FieldError describes one invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// ValidationError reports every invalid field of a flow input.
// It matches apperror.ErrInvalidInput with errors.Is.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	messages := make([]string, len(e.Fields))
	for i, field := range e.Fields {
		messages[i] = field.Message
	}
	return fmt.Sprintf("%s: %s", apperror.ErrInvalidInput, strings.Join(messages, "; "))
}

func (e *ValidationError) Unwrap() error {
	return apperror.ErrInvalidInput
}

// NewValidator creates a validator that reports JSON field names and knows
// the sentiment trend enum.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation("sentiment", func(fl validator.FieldLevel) bool {
		trend := types.SentimentTrend(fl.Field().String())
		for _, known := range types.SentimentTrends {
			if trend == known {
				return true
			}
		}
		return false
	})

	return v
}

// NewValidationError converts validator errors into field descriptions.
func NewValidationError(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return fmt.Errorf("%w: %w", apperror.ErrInvalidInput, err)
	}

	fields := make([]FieldError, 0, len(validationErrors))
	for _, fe := range validationErrors {
		fields = append(fields, FieldError{
			Field:   fieldPath(fe.Namespace()),
			Rule:    fe.Tag(),
			Message: describeField(fe),
		})
	}

	return &ValidationError{Fields: fields}
}

// fieldPath drops the struct name from a validator namespace.
func fieldPath(namespace string) string {
	if _, path, found := strings.Cut(namespace, "."); found {
		return path
	}
	return namespace
}

func describeField(fe validator.FieldError) string {
	field := fieldPath(fe.Namespace())

	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min":
		return fmt.Sprintf("%s must have at least %s %s", field, fe.Param(), unit(fe.Kind()))
	case "max":
		return fmt.Sprintf("%s must have at most %s %s", field, fe.Param(), unit(fe.Kind()))
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "url":
		return field + " must be a valid URL"
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", field, fe.Param())
	case "sentiment":
		return field + " must be one of Mostly Agree, Mixed, Mostly Disagree"
	default:
		return fmt.Sprintf("%s failed the %s rule", field, fe.Tag())
	}
}

func unit(kind reflect.Kind) string {
	if kind == reflect.String {
		return "characters"
	}
	return "items"
}
