package platform

import (
	"errors"
	"fmt"
	"net/url"

	perrors "github.com/marikmarie/mtnvas/internal/errors"
)

// Kind classifies a failed exchange
type Kind string

const (
	// KindNetwork means no response was received
	KindNetwork Kind = "network"
	// KindApplication means the backend answered with a non-2xx status
	KindApplication Kind = "application"
	// KindUnauthorized means a 2xx response carried an embedded 401 status
	KindUnauthorized Kind = "unauthorized"
	// KindDecode means a 2xx response body could not be decoded
	KindDecode Kind = "decode"
)

// APIError is returned for every failed exchange with the backend
type APIError struct {
	Kind       Kind
	Method     string
	Path       string
	StatusCode int // transport status; 0 when no response was received
	Envelope   Envelope
	Message    Message
	Cause      error

	coded *perrors.PortalError
}

func newAPIError(kind Kind, method, path string, status int, env Envelope, msg Message, cause error) *APIError {
	e := &APIError{
		Kind:       kind,
		Method:     method,
		Path:       path,
		StatusCode: status,
		Envelope:   env,
		Message:    msg,
		Cause:      cause,
	}
	e.coded = perrors.Wrap(kind.code(), msg.Text, cause)
	switch kind {
	case KindUnauthorized:
		e.coded.WithSuggestion("Run 'wakanet auth login' to sign in again")
	case KindNetwork:
		e.coded.WithSuggestions(
			"Check your network connection",
			"Verify api.base_url with 'wakanet config get api.base_url'",
		)
	}
	return e
}

func (k Kind) code() perrors.ErrorCode {
	switch k {
	case KindNetwork:
		return perrors.ErrCodeAPINetwork
	case KindUnauthorized:
		return perrors.ErrCodeAPIUnauthorized
	case KindDecode:
		return perrors.ErrCodeAPIDecode
	default:
		return perrors.ErrCodeAPIApplication
	}
}

// Error implements the error interface
func (e *APIError) Error() string {
	text := e.Message.Text
	if text == "" {
		text = string(e.Kind) + " error"
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s (%d): %s", e.Method, e.Path, e.StatusCode, text)
	}
	return fmt.Sprintf("%s %s: %s", e.Method, e.Path, text)
}

// Unwrap exposes a coded PortalError wrapping the cause, so errors.As works
// for both *errors.PortalError and transport errors such as *url.Error.
func (e *APIError) Unwrap() error {
	return e.coded
}

// Code returns the portal error code for this failure
func (e *APIError) Code() perrors.ErrorCode {
	return e.Kind.code()
}

// Suggestions returns recovery hints for CLI output
func (e *APIError) Suggestions() []string {
	return e.coded.Suggestions
}

// AsAPIError returns the *APIError in err's chain, if any
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsUnauthorized reports whether err is an embedded-401 failure
func IsUnauthorized(err error) bool {
	apiErr, ok := AsAPIError(err)
	return ok && apiErr.Kind == KindUnauthorized
}

// transportMessage reduces a transport error to the message shown to users
func transportMessage(err error) string {
	if err == nil {
		return ""
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		return urlErr.Err.Error()
	}
	return err.Error()
}
