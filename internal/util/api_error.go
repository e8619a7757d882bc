package util

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

// ErrorKind classifies failures independent of transport.
type ErrorKind int

const (
	KindValidation ErrorKind = iota + 1
	KindAuthentication
	KindNotFoundOrUnauthorized
	KindConflict
	KindInternal
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthentication:
		return "authentication"
	case KindNotFoundOrUnauthorized:
		return "not_found_or_unauthorized"
	case KindConflict:
		return "conflict"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// ApiError is the single structured error value surfaced by services.
// Message is safe to show to clients; cause never is.
type ApiError struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
	Errors     []string
	cause      error
}

func (e *ApiError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *ApiError) Unwrap() error {
	return e.cause
}

func NewValidationError(message string, details ...string) *ApiError {
	return &ApiError{Kind: KindValidation, StatusCode: http.StatusBadRequest, Message: message, Errors: details}
}

// NewInvalidIDError reports a malformed identifier. It is answered with 404 so a
// malformed id looks the same as a missing one.
func NewInvalidIDError(message string) *ApiError {
	return &ApiError{Kind: KindValidation, StatusCode: http.StatusNotFound, Message: message}
}

func NewAuthenticationError(message string) *ApiError {
	return &ApiError{Kind: KindAuthentication, StatusCode: http.StatusUnauthorized, Message: message}
}

// NewNotFoundOrUnauthorized must be used for both "does not exist" and "not yours".
func NewNotFoundOrUnauthorized(message string) *ApiError {
	return &ApiError{Kind: KindNotFoundOrUnauthorized, StatusCode: http.StatusNotFound, Message: message}
}

func NewConflictError(message string) *ApiError {
	return &ApiError{Kind: KindConflict, StatusCode: http.StatusConflict, Message: message}
}

func NewInternalError(cause error, message string) *ApiError {
	return &ApiError{Kind: KindInternal, StatusCode: http.StatusInternalServerError, Message: message, cause: cause}
}

// AsApiError extracts an ApiError from err's chain.
func AsApiError(err error) (*ApiError, bool) {
	var apiErr *ApiError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsKind reports whether err carries an ApiError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	apiErr, ok := AsApiError(err)
	return ok && apiErr.Kind == kind
}
