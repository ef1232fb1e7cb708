package errors

import (
	"net/http"

	"github.com/go-chi/render"
)

// FieldError describes a single failed constraint on one input field.
// Responses carry an ordered list of these, never a single scalar.
type FieldError struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// ErrorResponse is the wire shape for every login-path failure:
// { "errors": [ {field, message}, ... ] }.
type ErrorResponse struct {
	StatusCode int          `json:"-"`
	Errors     []FieldError `json:"errors"`
}

// Error implements the error interface
func (e *ErrorResponse) Error() string {
	if len(e.Errors) == 0 {
		return http.StatusText(e.StatusCode)
	}
	return e.Errors[0].Message
}

// Render implements the render.Renderer interface for chi/render
func (e *ErrorResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

// NewErrorResponse creates an error response with the given status
// and ordered field errors.
func NewErrorResponse(status int, errs ...FieldError) *ErrorResponse {
	return &ErrorResponse{StatusCode: status, Errors: errs}
}

// Predefined responses for the login contract.
var (
	// ErrEmailNotFound is returned when no user record matches the
	// supplied email.
	ErrEmailNotFound = NewErrorResponse(http.StatusNotFound,
		FieldError{Field: "email", Message: "Email not found"})

	// ErrIncorrectPassword is returned when the password does not
	// match the stored hash.
	ErrIncorrectPassword = NewErrorResponse(http.StatusUnauthorized,
		FieldError{Field: "password", Message: "Incorrect password"})

	// ErrInternal hides any unexpected failure behind a generic
	// message; the detail is logged server-side only.
	ErrInternal = NewErrorResponse(http.StatusInternalServerError,
		FieldError{Message: "Internal server error"})

	// ErrRateLimited is returned when a client exceeds the login
	// attempt budget.
	ErrRateLimited = NewErrorResponse(http.StatusTooManyRequests,
		FieldError{Message: "Too many requests"})
)

// ValidationFailed builds the 400 response from collected input
// violations, preserving their order.
func ValidationFailed(errs []FieldError) *ErrorResponse {
	return NewErrorResponse(http.StatusBadRequest, errs...)
}

// MalformedBody is returned when the request body is not valid JSON.
func MalformedBody() *ErrorResponse {
	return NewErrorResponse(http.StatusBadRequest,
		FieldError{Message: "Malformed request body"})
}
