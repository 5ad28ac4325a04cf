package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/alakara/harvest/internal/core/storage"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/schema"
)

// validate is the singleton validator instance used across all handlers.
var validate *validator.Validate

// queryDecoder decodes query strings into request structs.
var queryDecoder *schema.Decoder

func init() {
	validate = validator.New()
	queryDecoder = schema.NewDecoder()
	queryDecoder.IgnoreUnknownKeys(true)
}

var errInvalidBody = errors.New("invalid request body")

// ValidationError wraps validation errors with user-friendly messages.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors contains multiple validation errors.
type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	var msgs []string
	for _, e := range v.Errors {
		msgs = append(msgs, fmt.Sprintf("%s: %s", e.Field, e.Message))
	}
	return strings.Join(msgs, "; ")
}

// translateValidationError converts a validator.FieldError to a user-friendly message.
func translateValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "min":
		return fmt.Sprintf("Must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("Must be at most %s characters", fe.Param())
	case "len":
		return fmt.Sprintf("Must have exactly %s items", fe.Param())
	case "email":
		return "Must be a valid email address"
	case "gt":
		return fmt.Sprintf("Must be greater than %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("Must be one of: %s", fe.Param())
	default:
		return fmt.Sprintf("Failed validation: %s", fe.Tag())
	}
}

// formatValidationErrors converts validator errors to ValidationErrors.
// Field names are the JSON paths of the request, e.g. profile.location.county.
func formatValidationErrors(err error) ValidationErrors {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return ValidationErrors{
			Errors: []ValidationError{{Field: "unknown", Message: err.Error()}},
		}
	}

	var valErrors []ValidationError
	for _, fe := range ve {
		valErrors = append(valErrors, ValidationError{
			Field:   fieldPath(fe.Namespace()),
			Message: translateValidationError(fe),
		})
	}
	return ValidationErrors{Errors: valErrors}
}

// fieldPath drops the struct name from a namespace and lowercases the first
// letter of each segment.
func fieldPath(ns string) string {
	parts := strings.Split(ns, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToLower(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, ".")
}

// decodeAndValidate decodes a JSON request body and validates it.
func decodeAndValidate[T any](r *http.Request) (*T, error) {
	var req T
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", errInvalidBody, err)
	}
	if err := validate.Struct(&req); err != nil {
		return nil, formatValidationErrors(err)
	}
	return &req, nil
}

// pageQuery is the page/limit query string of listing endpoints.
type pageQuery struct {
	Page  *int `schema:"page"`
	Limit *int `schema:"limit"`
}

// decodePage reads page and limit, defaulting to page 1 and defaultLimit.
// Range checks are left to the paginator.
func decodePage(r *http.Request, defaultLimit int) (storage.PageRequest, error) {
	var q pageQuery
	if err := queryDecoder.Decode(&q, r.URL.Query()); err != nil {
		return storage.PageRequest{}, fmt.Errorf("%w: %w", storage.ErrInvalidPage, err)
	}
	page := storage.PageRequest{Page: 1, Limit: defaultLimit}
	if q.Page != nil {
		page.Page = *q.Page
	}
	if q.Limit != nil {
		page.Limit = *q.Limit
	}
	return page, nil
}
