package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/marikmarie/mtnvas/internal/notify"
	"github.com/marikmarie/mtnvas/internal/session"
)

// Bridge forwards events raised outside the console (interceptor teardowns,
// notifications, idle expiry) into the running program. Events raised before
// a program is attached are queued and delivered on Attach.
//
// Bridge implements session.Navigator and notify.Notifier. Its methods must
// not be called from a model's Update; use a tea.Cmd instead.
type Bridge struct {
	mu      sync.Mutex
	program *tea.Program
	pending []tea.Msg
}

// NewBridge creates an unattached bridge
func NewBridge() *Bridge {
	return &Bridge{}
}

// Attach starts delivering to p, flushing queued events first
func (b *Bridge) Attach(p *tea.Program) {
	b.mu.Lock()
	b.program = p
	pending := b.pending
	b.pending = nil
	b.mu.Unlock()

	for _, msg := range pending {
		p.Send(msg)
	}
}

// Detach stops delivery; later events are queued again
func (b *Bridge) Detach() {
	b.mu.Lock()
	b.program = nil
	b.mu.Unlock()
}

// Pending returns the queued events
func (b *Bridge) Pending() []tea.Msg {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]tea.Msg(nil), b.pending...)
}

// RedirectToSignIn implements session.Navigator
func (b *Bridge) RedirectToSignIn(reason session.Reason) {
	b.send(SignInRequiredMsg{Reason: reason})
}

// Notify implements notify.Notifier
func (b *Bridge) Notify(n notify.Notification) {
	b.send(ToastMsg{Notification: n})
}

func (b *Bridge) send(msg tea.Msg) {
	b.mu.Lock()
	p := b.program
	if p == nil {
		b.pending = append(b.pending, msg)
		b.mu.Unlock()
		return
	}
	b.mu.Unlock()
	p.Send(msg)
}

var (
	_ session.Navigator = (*Bridge)(nil)
	_ notify.Notifier   = (*Bridge)(nil)
)
