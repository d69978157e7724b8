package exitcode

import (
	"os"
	"strings"

	perrors "github.com/marikmarie/mtnvas/internal/errors"
)

// Exit codes for consistent error handling across the CLI
const (
	// Success indicates successful execution
	Success = 0

	// GeneralError indicates a general error condition
	GeneralError = 1

	// UsageError indicates invalid command usage (bad flags, missing args, etc.)
	UsageError = 2

	// ValidationError indicates a form field failed client-side validation
	ValidationError = 3

	// ApplicationError indicates the backend rejected the request (non-2xx)
	ApplicationError = 4

	// AuthError indicates an authentication failure or an ended session
	AuthError = 5

	// NetworkError indicates a network connectivity issue
	NetworkError = 6

	// Interrupted indicates the user cancelled the operation
	Interrupted = 130
)

// Exit terminates the program with the given exit code
func Exit(code int) {
	os.Exit(code)
}

// ExitWithError exits with an appropriate code based on error type
func ExitWithError(err error) {
	if err == nil {
		Exit(Success)
		return
	}

	Exit(DetermineExitCode(err))
}

// DetermineExitCode analyzes an error and returns the appropriate exit code.
// Coded portal errors win; otherwise the message is inspected.
func DetermineExitCode(err error) int {
	if err == nil {
		return Success
	}

	if code, ok := perrors.CodeOf(err); ok {
		switch {
		case strings.HasPrefix(string(code), "AUTH-"), strings.HasPrefix(string(code), "SESSION-"),
			code == perrors.ErrCodeAPIUnauthorized:
			return AuthError
		case code == perrors.ErrCodeAPINetwork:
			return NetworkError
		case code == perrors.ErrCodeAPIApplication:
			return ApplicationError
		case strings.HasPrefix(string(code), "VALIDATION-"):
			return ValidationError
		case strings.HasPrefix(string(code), "CONFIG-"):
			return UsageError
		}
	}

	errMsg := strings.ToLower(err.Error())

	// Authentication errors
	if strings.Contains(errMsg, "authentication") || strings.Contains(errMsg, "unauthorized") {
		return AuthError
	}
	if strings.Contains(errMsg, "not signed in") || strings.Contains(errMsg, "session expired") {
		return AuthError
	}

	// Network errors
	if strings.Contains(errMsg, "network") || strings.Contains(errMsg, "connection") {
		return NetworkError
	}
	if strings.Contains(errMsg, "timeout") || strings.Contains(errMsg, "unreachable") || strings.Contains(errMsg, "no such host") {
		return NetworkError
	}

	// Validation errors
	if strings.Contains(errMsg, "validation failed") {
		return ValidationError
	}

	// Usage errors
	if strings.Contains(errMsg, "invalid flag") || strings.Contains(errMsg, "unknown command") {
		return UsageError
	}
	if strings.Contains(errMsg, "required flag") || strings.Contains(errMsg, "accepts") && strings.Contains(errMsg, "arg") {
		return UsageError
	}

	return GeneralError
}

// GetExitCodeDescription returns a human-readable description of an exit code
func GetExitCodeDescription(code int) string {
	switch code {
	case Success:
		return "Success"
	case GeneralError:
		return "General error"
	case UsageError:
		return "Usage error (invalid flags or arguments)"
	case ValidationError:
		return "Validation error"
	case ApplicationError:
		return "Request rejected by the backend"
	case AuthError:
		return "Authentication error"
	case NetworkError:
		return "Network error"
	case Interrupted:
		return "Interrupted"
	default:
		return "Unknown error"
	}
}
