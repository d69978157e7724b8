// Package notify surfaces transient success, warning and error messages
// ("toasts") to the user.
package notify

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Severity classifies a notification
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Notification is a single transient message
type Notification struct {
	Severity Severity
	Title    string
	Message  string
	// Color overrides the severity color. Named colors ("green", "red", ...),
	// ANSI numbers and hex values are accepted.
	Color     string
	AutoClose time.Duration
}

// Notifier displays notifications
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(Notification)

// Notify calls f(n)
func (f NotifierFunc) Notify(n Notification) { f(n) }

// Discard drops every notification
var Discard Notifier = NotifierFunc(func(Notification) {})

var namedColors = map[string]string{
	"black":   "0",
	"red":     "9",
	"green":   "10",
	"yellow":  "11",
	"blue":    "12",
	"magenta": "13",
	"purple":  "63",
	"cyan":    "14",
	"white":   "15",
	"gray":    "8",
	"grey":    "8",
}

// ResolveColor maps a configured color name to a lipgloss color
func ResolveColor(name string) lipgloss.Color {
	name = strings.TrimSpace(strings.ToLower(name))
	if c, ok := namedColors[name]; ok {
		return lipgloss.Color(c)
	}
	return lipgloss.Color(name)
}

// DefaultColor returns the color used for a severity when none is configured
func DefaultColor(s Severity) string {
	switch s {
	case SeveritySuccess:
		return "green"
	case SeverityWarning:
		return "yellow"
	case SeverityError:
		return "red"
	default:
		return "blue"
	}
}

// TerminalNotifier renders notifications as bordered boxes on a writer
type TerminalNotifier struct {
	mu      sync.Mutex
	w       io.Writer
	noColor bool
	width   int
}

// TerminalOption configures a TerminalNotifier
type TerminalOption func(*TerminalNotifier)

// WithoutColor renders plain text
func WithoutColor() TerminalOption {
	return func(t *TerminalNotifier) { t.noColor = true }
}

// WithWidth caps the box width
func WithWidth(width int) TerminalOption {
	return func(t *TerminalNotifier) { t.width = width }
}

// NewTerminalNotifier writes notifications to w (usually stderr)
func NewTerminalNotifier(w io.Writer, opts ...TerminalOption) *TerminalNotifier {
	t := &TerminalNotifier{w: w, width: 72}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Notify renders n
func (t *TerminalNotifier) Notify(n Notification) {
	t.mu.Lock()
	defer t.mu.Unlock()

	fmt.Fprintln(t.w, t.Render(n))
}

// Render returns the notification as it would be printed
func (t *TerminalNotifier) Render(n Notification) string {
	title := n.Title
	if title == "" {
		title = titleFor(n.Severity)
	}

	if t.noColor {
		return fmt.Sprintf("[%s] %s: %s", strings.ToUpper(string(severityOrInfo(n.Severity))), title, n.Message)
	}

	colorName := n.Color
	if colorName == "" {
		colorName = DefaultColor(n.Severity)
	}
	color := ResolveColor(colorName)

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(color)
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(color).
		Padding(0, 1).
		MaxWidth(t.width)

	body := titleStyle.Render(title)
	if n.Message != "" {
		body += "\n" + n.Message
	}
	return box.Render(body)
}

func severityOrInfo(s Severity) Severity {
	if s == "" {
		return SeverityInfo
	}
	return s
}

func titleFor(s Severity) string {
	switch s {
	case SeveritySuccess:
		return "Success"
	case SeverityWarning:
		return "Warning"
	case SeverityError:
		return "Error"
	default:
		return "Notice"
	}
}

// Recorder keeps every notification it receives
type Recorder struct {
	mu   sync.Mutex
	sent []Notification
}

// NewRecorder creates an empty recorder
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Notify records n
func (r *Recorder) Notify(n Notification) {
	r.mu.Lock()
	r.sent = append(r.sent, n)
	r.mu.Unlock()
}

// All returns a copy of the recorded notifications
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.sent))
	copy(out, r.sent)
	return out
}

// BySeverity returns the recorded notifications of one severity
func (r *Recorder) BySeverity(s Severity) []Notification {
	var out []Notification
	for _, n := range r.All() {
		if n.Severity == s {
			out = append(out, n)
		}
	}
	return out
}

// Reset forgets everything recorded so far
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.sent = nil
	r.mu.Unlock()
}

// Multi fans a notification out to several notifiers
func Multi(notifiers ...Notifier) Notifier {
	return NotifierFunc(func(n Notification) {
		for _, nt := range notifiers {
			if nt != nil {
				nt.Notify(n)
			}
		}
	})
}
