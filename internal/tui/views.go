package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/marikmarie/mtnvas/internal/notify"
	"github.com/marikmarie/mtnvas/internal/session"
)

// View renders the current view (required by Bubble Tea)
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var body string
	switch m.currentView {
	case ViewSignIn:
		body = m.renderSignIn()
	case ViewHelp:
		body = m.renderHelp()
	default:
		body = m.renderMain()
	}

	if toasts := m.renderToasts(); toasts != "" {
		return toasts + "\n" + body
	}
	return body
}

// renderMain renders the resource tabs
func (m Model) renderMain() string {
	var b strings.Builder

	b.WriteString(m.styles.Title.Render("WakaNet Dealer Portal"))
	b.WriteString("\n")

	if m.user != nil {
		who := m.user.Name
		if who == "" {
			who = m.user.Email
		}
		if m.user.Role != "" {
			who += " (" + m.user.Role + ")"
		}
		b.WriteString(m.styles.Muted.Render("Signed in as ") + m.styles.Subtitle.Render(who))
		b.WriteString("\n\n")
	}

	b.WriteString(m.renderTabBar())
	b.WriteString("\n\n")

	td := m.tabs[m.tab]
	switch {
	case td.err != "":
		b.WriteString(m.styles.Border.
			BorderForeground(lipgloss.Color("196")).
			Render(m.styles.Error.Render("Error: ") + td.err))
	case td.loading && !td.loaded:
		b.WriteString(m.styles.Muted.Render("Loading " + strings.ToLower(m.tab.String()) + "..."))
	case len(td.table.Rows()) == 0:
		b.WriteString(m.styles.Muted.Render("No results."))
	default:
		b.WriteString(td.table.View())
	}
	b.WriteString("\n")

	b.WriteString(m.renderHelpLine())
	return b.String()
}

func (m Model) renderTabBar() string {
	tabs := make([]string, 0, tabCount)
	for t := Tab(0); t < tabCount; t++ {
		label := t.String()
		if m.tabs[t].loading {
			label += " …"
		}
		if t == m.tab {
			tabs = append(tabs, m.styles.ActiveTab.Render(label))
		} else {
			tabs = append(tabs, m.styles.Tab.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

// renderSignIn renders the sign-in form
func (m Model) renderSignIn() string {
	var b strings.Builder

	b.WriteString(m.styles.Title.Render("Sign in to WakaNet"))
	b.WriteString("\n")

	if text := reasonText(m.lastReason); text != "" {
		b.WriteString(m.styles.Subtitle.Render(text))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	b.WriteString(m.email.View())
	b.WriteString("\n")
	b.WriteString(m.password.View())

	if m.signingIn {
		b.WriteString("\n\n")
		b.WriteString(m.styles.Muted.Render("Signing in..."))
	}
	if m.signInErr != "" {
		b.WriteString("\n\n")
		b.WriteString(m.styles.Error.Render(m.signInErr))
	}

	out := m.styles.Border.Render(b.String())
	help := []string{
		m.styles.Key.Render("tab") + " switch field",
		m.styles.Key.Render("enter") + " submit",
		m.styles.Key.Render("esc") + " quit",
	}
	return out + "\n" + m.styles.Help.Render(strings.Join(help, " • "))
}

// renderHelp renders the help view
func (m Model) renderHelp() string {
	var b strings.Builder

	b.WriteString(m.styles.Title.Render("Help"))
	b.WriteString("\n\n")

	hotkeys := []struct {
		key  string
		desc string
	}{
		{"tab / →", "Next tab"},
		{"⇧tab / ←", "Previous tab"},
		{"↑ / ↓", "Move selection"},
		{"r", "Refresh the current tab"},
		{"o", "Sign out"},
		{"?", "Toggle help"},
		{"q", "Quit"},
		{"Ctrl+C", "Force quit"},
		{"Esc", "Return to main view"},
	}

	for _, hk := range hotkeys {
		keyText := m.styles.Key.Render(fmt.Sprintf("%-10s", hk.key))
		descText := m.styles.KeyDesc.Render(hk.desc)
		b.WriteString(keyText + " " + descText)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.styles.Muted.Render(
		fmt.Sprintf("You are signed out after %s without activity.", formatDuration(m.idle.Timeout()))))
	b.WriteString("\n")
	b.WriteString(m.styles.Muted.Render("Press ? or Esc to return to main view"))

	return b.String()
}

// renderHelpLine renders the help line at the bottom
func (m Model) renderHelpLine() string {
	helpItems := []string{
		m.styles.Key.Render("tab") + " switch",
		m.styles.Key.Render("r") + " refresh",
		m.styles.Key.Render("o") + " sign out",
		m.styles.Key.Render("?") + " help",
		m.styles.Key.Render("q") + " quit",
	}

	helpLine := strings.Join(helpItems, " • ")
	return m.styles.Help.Render(helpLine)
}

func (m Model) renderToasts() string {
	if len(m.toasts) == 0 {
		return ""
	}
	lines := make([]string, 0, len(m.toasts))
	for _, t := range m.toasts {
		lines = append(lines, renderToast(t.n))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderToast(n notify.Notification) string {
	color := n.Color
	if color == "" {
		color = notify.DefaultColor(n.Severity)
	}
	title := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(color)).Render(n.Title)
	text := title
	if n.Message != "" {
		text += "  " + n.Message
	}
	return lipgloss.NewStyle().
		Border(lipgloss.NormalBorder(), false, false, false, true).
		BorderForeground(lipgloss.Color(color)).
		PaddingLeft(1).
		Render(text)
}

func reasonText(r session.Reason) string {
	switch r {
	case session.ReasonIdle:
		return "You were signed out after a period of inactivity."
	case session.ReasonUnauthorized:
		return "Your session has expired. Please sign in again."
	case session.ReasonTokenExpired:
		return "Your sign-in token has expired. Please sign in again."
	case session.ReasonSignOut:
		return "You have signed out."
	}
	return ""
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	if d < time.Hour {
		minutes := int(d.Minutes())
		seconds := int(d.Seconds()) % 60
		if seconds == 0 {
			return fmt.Sprintf("%dm", minutes)
		}
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh %dm", hours, minutes)
}
