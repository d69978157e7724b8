package ux

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	perrors "github.com/marikmarie/mtnvas/internal/errors"
	"github.com/marikmarie/mtnvas/internal/forms"
	"github.com/marikmarie/mtnvas/internal/platform"
)

// ErrorWithSuggestion wraps an error with helpful recovery suggestions
type ErrorWithSuggestion struct {
	Err        error
	Suggestion string
}

// Error implements the error interface
func (e *ErrorWithSuggestion) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%v\n\n💡 Suggestion: %s", e.Err, e.Suggestion)
	}
	return e.Err.Error()
}

// Unwrap provides access to the underlying error
func (e *ErrorWithSuggestion) Unwrap() error {
	return e.Err
}

// NewErrorWithSuggestion creates a new error with a suggestion
func NewErrorWithSuggestion(err error, suggestion string) error {
	if err == nil {
		return nil
	}
	return &ErrorWithSuggestion{
		Err:        err,
		Suggestion: suggestion,
	}
}

// Suggestions collects the recovery hints carried by err's chain
func Suggestions(err error) []string {
	var out []string
	if apiErr, ok := platform.AsAPIError(err); ok {
		out = append(out, apiErr.Suggestions()...)
	} else {
		var pe *perrors.PortalError
		if errors.As(err, &pe) {
			out = append(out, pe.Suggestions...)
		}
	}
	var ws *ErrorWithSuggestion
	if errors.As(err, &ws) && ws.Suggestion != "" {
		out = append(out, ws.Suggestion)
	}
	return out
}

// EnhanceError analyzes an error and adds contextual suggestions. Errors
// that already carry suggestions are returned unchanged.
func EnhanceError(err error) error {
	if err == nil {
		return nil
	}
	var fe forms.FieldErrors
	if errors.As(err, &fe) {
		return NewErrorWithSuggestion(err,
			fmt.Sprintf("Correct %s and try again", strings.Join(fe.Fields(), ", ")))
	}

	if len(Suggestions(err)) > 0 {
		return err
	}

	if apiErr, ok := platform.AsAPIError(err); ok {
		switch {
		case apiErr.StatusCode == 401 || apiErr.StatusCode == 403:
			return NewErrorWithSuggestion(err,
				"Your account may lack access. Run 'wakanet auth status' to check who is signed in")
		case apiErr.StatusCode == 404:
			return NewErrorWithSuggestion(err,
				"Check the ID, or list the resource to find it")
		case apiErr.StatusCode >= 500:
			return NewErrorWithSuggestion(err,
				"The portal backend is having trouble. Try again in a few minutes")
		}
		return err
	}

	errMsg := err.Error()

	if strings.Contains(errMsg, "no such file or directory") {
		if strings.Contains(errMsg, "config.yaml") {
			return NewErrorWithSuggestion(err,
				"Create a config with 'wakanet config set api.base_url <url>'")
		}
		return NewErrorWithSuggestion(err, "Check that the file path is correct")
	}

	if strings.Contains(errMsg, "permission denied") {
		return NewErrorWithSuggestion(err,
			"Check file permissions on the state directory (session.state_dir) and the export destination")
	}

	if strings.Contains(errMsg, "connection refused") || strings.Contains(errMsg, "no route to host") ||
		strings.Contains(errMsg, "no such host") {
		return NewErrorWithSuggestion(err,
			"Check your network connection and api.base_url")
	}

	if strings.Contains(errMsg, "deadline exceeded") || strings.Contains(errMsg, "timeout") {
		return NewErrorWithSuggestion(err,
			"The request timed out. Raise api.timeout or try again")
	}

	return err
}

// FormatError provides consistent error formatting with context
func FormatError(err error, context string) error {
	if err == nil {
		return nil
	}

	enhanced := EnhanceError(err)
	if context != "" {
		return fmt.Errorf("%s: %w", context, enhanced)
	}
	return enhanced
}

var (
	errorLabel      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	suggestionLabel = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

// PrintError writes err and its suggestions for a terminal
func PrintError(w io.Writer, err error, noColor bool) {
	if err == nil {
		return
	}

	headline := errorHeadline(err)
	suggestions := Suggestions(EnhanceError(err))

	label, hint := "Error:", "→"
	if !noColor {
		label = errorLabel.Render(label)
		hint = suggestionLabel.Render(hint)
	}

	fmt.Fprintf(w, "%s %s\n", label, headline)
	for _, s := range suggestions {
		fmt.Fprintf(w, "  %s %s\n", hint, s)
	}
}

// errorHeadline is the first line of err without the suggestion block
// PortalError and ErrorWithSuggestion append
func errorHeadline(err error) string {
	msg := err.Error()
	if i := strings.Index(msg, "\n\n"); i >= 0 {
		msg = msg[:i]
	}
	return msg
}
