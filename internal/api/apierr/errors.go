package apierr

import (
	"errors"
	"net/http"

	go_json "github.com/goccy/go-json"

	"github.com/mcoot/cfratings/internal/message"
	"github.com/mcoot/cfratings/internal/model"
	"github.com/mcoot/cfratings/internal/services/overlay"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Common error codes
const (
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeUnknownAction      = "UNKNOWN_ACTION"
	CodeNotAuthenticated   = "NOT_AUTHENTICATED"
	CodeNoGroupSelected    = "NO_GROUP_SELECTED"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeInvalidDisplayMode = "INVALID_DISPLAY_MODE"
	CodeForeignHost        = "FOREIGN_HOST"
	CodeNotFound           = "NOT_FOUND"
	CodeUpstreamError      = "UPSTREAM_ERROR"
	CodeInternalError      = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = go_json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

// Status returns the HTTP status WriteError would use for err
func Status(err error) int {
	return toHTTPError(err).status
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	// Check for specific error types
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	// Map model errors
	switch {
	case errors.Is(err, model.ErrNotAuthenticated):
		return &httpError{http.StatusUnauthorized, APIError{CodeNotAuthenticated, model.ErrNotAuthenticated.Error()}}
	case errors.Is(err, model.ErrNoGroupSelected):
		return &httpError{http.StatusConflict, APIError{CodeNoGroupSelected, model.ErrNoGroupSelected.Error()}}
	case errors.Is(err, model.ErrInvalidCredentials):
		return &httpError{http.StatusUnauthorized, APIError{CodeInvalidCredentials, "Invalid username or password"}}
	case errors.Is(err, model.ErrInvalidDisplayMode):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidDisplayMode, "Display mode must be transparent, star or plain"}}
	case errors.Is(err, model.ErrNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeNotFound, "Not found"}}

	// Map protocol and overlay errors
	case errors.Is(err, message.ErrUnknownAction):
		return &httpError{http.StatusBadRequest, APIError{CodeUnknownAction, err.Error()}}
	case errors.Is(err, overlay.ErrForeignHost):
		return &httpError{http.StatusBadRequest, APIError{CodeForeignHost, "Page is not on the target host"}}

	default:
		return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, message}}
}

// NewUpstreamError creates an error for a failed call to another server
func NewUpstreamError(message string) error {
	return &httpError{http.StatusBadGateway, APIError{CodeUpstreamError, message}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}
