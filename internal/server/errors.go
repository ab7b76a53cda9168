package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/cover-letter-agent/internal/agent"
	"github.com/jonathan/cover-letter-agent/internal/db"
)

// ErrValidation indicates a malformed request parameter
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// ErrNotFound indicates the requested resource does not exist
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrUnavailable indicates an optional backend was not configured
type ErrUnavailable struct {
	Component string
}

func (e *ErrUnavailable) Error() string {
	return fmt.Sprintf("%s is not configured", e.Component)
}

// HTTPStatus returns the appropriate HTTP status code for an error.
// Pipeline failures of any kind are server errors.
func HTTPStatus(err error) int {
	var validation *ErrValidation
	var notFound *ErrNotFound
	var unavailable *ErrUnavailable
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &notFound), errors.Is(err, db.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &unavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// termsStatus is HTTPStatus for the terminology endpoint, where a missing or empty
// job description or letter is the caller's fault.
func termsStatus(err error) int {
	if agent.IsKind(err, agent.KindInputNull) || agent.IsKind(err, agent.KindInputEmpty) {
		return http.StatusBadRequest
	}
	return HTTPStatus(err)
}

// extractValidationErrors extracts validation error messages from validator errors.
func extractValidationErrors(err error) string {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
		// First error only
		ve := validationErrors[0]
		return fmt.Sprintf("validation error: %s - %s", ve.Field(), ve.Tag())
	}
	return "validation error: invalid request"
}
