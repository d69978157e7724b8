package errors

import (
	"fmt"
	"strings"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

// Error categories
const (
	// Authentication errors (AUTH-001 to AUTH-099)
	ErrCodeAuthRequired           ErrorCode = "AUTH-001"
	ErrCodeAuthInvalidCredentials ErrorCode = "AUTH-002"
	ErrCodeAuthSignInRejected     ErrorCode = "AUTH-003"

	// Session errors (SESSION-001 to SESSION-099)
	ErrCodeSessionInvalid  ErrorCode = "SESSION-001"
	ErrCodeSessionExpired  ErrorCode = "SESSION-002"
	ErrCodeSessionPersist  ErrorCode = "SESSION-003"
	ErrCodeSessionRestore  ErrorCode = "SESSION-004"
	ErrCodeSessionIdle     ErrorCode = "SESSION-005"
	ErrCodeSessionNotReady ErrorCode = "SESSION-006"

	// Backend API errors (API-001 to API-099)
	ErrCodeAPINetwork      ErrorCode = "API-001"
	ErrCodeAPIApplication  ErrorCode = "API-002"
	ErrCodeAPIUnauthorized ErrorCode = "API-003"
	ErrCodeAPIDecode       ErrorCode = "API-004"
	ErrCodeAPIRequest      ErrorCode = "API-005"

	// Validation errors (VALIDATION-001 to VALIDATION-099)
	ErrCodeValidationFailed ErrorCode = "VALIDATION-001"
	ErrCodeInvalidPhone     ErrorCode = "VALIDATION-002"
	ErrCodeInvalidIMEI      ErrorCode = "VALIDATION-003"

	// Configuration errors (CONFIG-001 to CONFIG-099)
	ErrCodeConfigInvalid ErrorCode = "CONFIG-001"
	ErrCodeConfigKey     ErrorCode = "CONFIG-002"

	// File I/O errors (IO-001 to IO-099)
	ErrCodeFileNotFound    ErrorCode = "IO-001"
	ErrCodeFileReadFailed  ErrorCode = "IO-002"
	ErrCodeFileWriteFailed ErrorCode = "IO-003"
	ErrCodeDirectoryFailed ErrorCode = "IO-004"
	ErrCodeFileUnmarshal   ErrorCode = "IO-005"
	ErrCodeFileMarshal     ErrorCode = "IO-006"
	ErrCodeExportFailed    ErrorCode = "IO-007"
)

// PortalError represents an enhanced error with code, suggestions, and documentation
type PortalError struct {
	Code        ErrorCode
	Message     string
	Suggestions []string
	DocsURL     string
	Cause       error
}

// Error implements the error interface
func (e *PortalError) Error() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("[%s] %s", e.Code, e.Message))

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf(": %v", e.Cause))
	}

	if len(e.Suggestions) > 0 {
		b.WriteString("\n\nSuggestions:")
		for _, suggestion := range e.Suggestions {
			b.WriteString(fmt.Sprintf("\n  • %s", suggestion))
		}
	}

	if e.DocsURL != "" {
		b.WriteString(fmt.Sprintf("\n\nDocumentation: %s", e.DocsURL))
	}

	return b.String()
}

// Unwrap implements error unwrapping for errors.Is and errors.As
func (e *PortalError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a PortalError carrying the same code.
// This lets callers match sentinel-style values such as ErrSessionExpired.
func (e *PortalError) Is(target error) bool {
	t, ok := target.(*PortalError)
	if !ok {
		return false
	}
	return t.Code == e.Code && t.Message == ""
}

// New creates a new PortalError
func New(code ErrorCode, message string) *PortalError {
	return &PortalError{
		Code:    code,
		Message: message,
	}
}

// Wrap creates a new PortalError wrapping an existing error
func Wrap(code ErrorCode, message string, cause error) *PortalError {
	return &PortalError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WithSuggestion adds a suggestion to the error
func (e *PortalError) WithSuggestion(suggestion string) *PortalError {
	e.Suggestions = append(e.Suggestions, suggestion)
	return e
}

// WithSuggestions adds multiple suggestions to the error
func (e *PortalError) WithSuggestions(suggestions ...string) *PortalError {
	e.Suggestions = append(e.Suggestions, suggestions...)
	return e
}

// WithDocs adds a documentation URL to the error
func (e *PortalError) WithDocs(url string) *PortalError {
	e.DocsURL = url
	return e
}

// CodeOf returns the code of the first PortalError in err's chain.
func CodeOf(err error) (ErrorCode, bool) {
	for err != nil {
		if pe, ok := err.(*PortalError); ok {
			return pe.Code, true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return "", false
		}
		err = u.Unwrap()
	}
	return "", false
}

// Sentinels usable with errors.Is. They carry a code but no message.
var (
	ErrSessionExpired = &PortalError{Code: ErrCodeSessionExpired}
	ErrAuthRequired   = &PortalError{Code: ErrCodeAuthRequired}
	ErrValidation     = &PortalError{Code: ErrCodeValidationFailed}
)

// Common error constructors for frequently used errors

// NewAuthRequiredError is returned when a command needs a signed-in session
func NewAuthRequiredError() *PortalError {
	return New(ErrCodeAuthRequired, "you are not signed in").
		WithSuggestion("Run 'wakanet auth login' to sign in").
		WithDocs("https://github.com/marikmarie/mtnvas#signing-in")
}

// NewSessionExpiredError reports a session that was torn down
func NewSessionExpiredError(reason string) *PortalError {
	return New(ErrCodeSessionExpired, fmt.Sprintf("session ended: %s", reason)).
		WithSuggestion("Run 'wakanet auth login' to start a new session")
}

// NewSessionPersistError wraps a failure to write the session state file
func NewSessionPersistError(path string, cause error) *PortalError {
	return Wrap(ErrCodeSessionPersist, fmt.Sprintf("failed to persist session state: %s", path), cause).
		WithSuggestion("Check that the state directory is writable").
		WithSuggestion("Set session.state_dir in ~/.wakanet/config.yaml to another location")
}

// NewValidationError reports client-side field validation failures
func NewValidationError(details string) *PortalError {
	return New(ErrCodeValidationFailed, fmt.Sprintf("validation failed: %s", details)).
		WithSuggestion("Correct the highlighted fields and submit again")
}

// NewInvalidPhoneError reports a phone number that cannot be normalized
func NewInvalidPhoneError(raw string) *PortalError {
	return New(ErrCodeInvalidPhone, fmt.Sprintf("invalid phone number: %q", raw)).
		WithSuggestion("Use the local form (0772123456) or the international form (256772123456)")
}

// NewFileNotFoundError creates a file not found error
func NewFileNotFoundError(path string) *PortalError {
	return New(ErrCodeFileNotFound, fmt.Sprintf("file not found: %s", path)).
		WithSuggestion("Check if the file path is correct").
		WithSuggestion("Verify the file exists and you have read permissions")
}

// NewFileUnmarshalError creates an unmarshal error
func NewFileUnmarshalError(path string, format string, cause error) *PortalError {
	return Wrap(ErrCodeFileUnmarshal, fmt.Sprintf("failed to parse %s file: %s", format, path), cause).
		WithSuggestion("Check the file syntax and format").
		WithSuggestion(fmt.Sprintf("Ensure the file is valid %s", format))
}

// NewExportError wraps a CSV export failure
func NewExportError(dest string, cause error) *PortalError {
	return Wrap(ErrCodeExportFailed, fmt.Sprintf("export to %s failed", dest), cause).
		WithSuggestion("Check that the destination directory exists and is writable")
}
