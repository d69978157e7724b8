package tui

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marikmarie/mtnvas/internal/notify"
	"github.com/marikmarie/mtnvas/internal/platform"
	"github.com/marikmarie/mtnvas/internal/query"
	"github.com/marikmarie/mtnvas/internal/session"
)

type backend struct {
	dealerHits atomic.Int32
	// dealers overrides the /dealers response body
	dealers string
}

func (b *backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case platform.LoginPath:
		_, _ = w.Write([]byte(`{"status": 200, "data": {"token": "jwt", "user": {"name": "Jane", "email": "jane@example.com", "role": "dealer_admin"}}}`))
	case platform.DealersPath:
		b.dealerHits.Add(1)
		body := b.dealers
		if body == "" {
			body = `{"data": [{"id": "d1", "dealerName": "Acme Phones", "region": "Central"}]}`
		}
		_, _ = w.Write([]byte(body))
	case platform.AgentsPath:
		_, _ = w.Write([]byte(`{"data": [{"id": "a1", "name": "Okello", "status": "pending"}]}`))
	default:
		_, _ = w.Write([]byte(`{"data": []}`))
	}
}

type fixture struct {
	backend *backend
	store   *session.Store
	bridge  *Bridge
	deps    Deps
}

func newFixture(t *testing.T, signedIn bool) *fixture {
	t.Helper()

	f := &fixture{backend: &backend{}, bridge: NewBridge()}
	srv := httptest.NewServer(f.backend)
	t.Cleanup(srv.Close)

	f.store = session.NewStore(session.NewMemoryPersister())
	require.NoError(t, f.store.Rehydrate(context.Background()))
	if signedIn {
		require.NoError(t, f.store.SignIn(&session.User{Name: "Jane", Email: "jane@example.com"}, "jwt"))
	}

	factory := platform.NewFactory(platform.FactoryConfig{
		BaseURL:   srv.URL,
		Session:   f.store,
		Navigator: f.bridge,
		Notifier:  f.bridge,
	})
	f.deps = Deps{
		Factory:     factory,
		Cache:       query.NewCache(time.Minute, time.Minute),
		Store:       f.store,
		Bridge:      f.bridge,
		IdleTimeout: time.Hour,
	}
	return f
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	require.True(t, ok)
	return nm, cmd
}

func keys(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestNewModelStartsOnSignInWhenSignedOut(t *testing.T) {
	f := newFixture(t, false)
	m := NewModel(context.Background(), f.deps)

	assert.Equal(t, ViewSignIn, m.currentView)
	assert.Contains(t, m.View(), "Sign in to WakaNet")
}

func TestNewModelStartsOnDataWhenSignedIn(t *testing.T) {
	f := newFixture(t, true)
	m := NewModel(context.Background(), f.deps)

	assert.Equal(t, ViewData, m.currentView)
	require.NotNil(t, m.user)
	assert.Equal(t, "Jane", m.user.Name)
	assert.Contains(t, m.View(), "Signed in as")
}

func TestSignInLoadsTables(t *testing.T) {
	f := newFixture(t, false)
	m := NewModel(context.Background(), f.deps)

	m, _ = update(t, m, keys("jane@example.com"))
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, 1, m.focus)
	m, _ = update(t, m, keys("s3cret"))

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.True(t, m.signingIn)

	msg := cmd()
	signed, ok := msg.(signedInMsg)
	require.True(t, ok)
	require.NoError(t, signed.err)
	assert.Equal(t, "jwt", f.store.Token())

	m, cmd = update(t, m, msg)
	assert.Equal(t, ViewData, m.currentView)
	assert.Empty(t, m.password.Value())
	require.NotNil(t, cmd)

	m, _ = update(t, m, cmd())
	view := m.View()
	assert.Contains(t, view, "Acme Phones")
	assert.Contains(t, view, "Dealers")

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, TabAgents, m.tab)
	assert.Contains(t, m.View(), "Okello")
}

func TestSignInValidatesForm(t *testing.T) {
	f := newFixture(t, false)
	m := NewModel(context.Background(), f.deps)

	m = m.setFocus(1)
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Nil(t, cmd)
	assert.False(t, m.signingIn)
	assert.Contains(t, m.signInErr, "email is required")
	assert.Contains(t, m.View(), "email is required")
}

func TestSignInRequiredMsgShowsReason(t *testing.T) {
	tests := []struct {
		reason session.Reason
		want   string
	}{
		{session.ReasonIdle, "inactivity"},
		{session.ReasonUnauthorized, "session has expired"},
		{session.ReasonSignOut, "signed out"},
	}

	for _, tt := range tests {
		t.Run(string(tt.reason), func(t *testing.T) {
			f := newFixture(t, true)
			m := NewModel(context.Background(), f.deps)

			m, _ = update(t, m, SignInRequiredMsg{Reason: tt.reason})

			assert.Equal(t, ViewSignIn, m.currentView)
			assert.Nil(t, m.user)
			assert.Contains(t, m.View(), tt.want)
		})
	}
}

func TestIdleExpiresSession(t *testing.T) {
	f := newFixture(t, true)
	m := NewModel(context.Background(), f.deps)

	m, cmd := update(t, m, idleMsg{})
	require.NotNil(t, cmd)

	msg := cmd()
	assert.Equal(t, SignInRequiredMsg{Reason: session.ReasonIdle}, msg)
	assert.False(t, f.store.Authenticated())
	assert.Empty(t, f.store.Token())

	m, _ = update(t, m, msg)
	assert.Equal(t, ViewSignIn, m.currentView)

	// a late idle tick on the sign-in view does nothing
	_, cmd = update(t, m, idleMsg{})
	assert.Nil(t, cmd)
}

func TestSignOutKey(t *testing.T) {
	f := newFixture(t, true)
	m := NewModel(context.Background(), f.deps)

	_, cmd := update(t, m, keys("o"))
	require.NotNil(t, cmd)
	assert.Equal(t, SignInRequiredMsg{Reason: session.ReasonSignOut}, cmd())
	assert.False(t, f.store.Authenticated())
}

func TestEmbeddedUnauthorizedRedirectsThroughBridge(t *testing.T) {
	f := newFixture(t, true)
	f.backend.dealers = `{"status": 401, "message": "Token expired"}`
	m := NewModel(context.Background(), f.deps)

	msg := m.loadAll()()
	m, _ = update(t, m, msg)

	assert.False(t, f.store.Authenticated())

	var redirected bool
	for _, p := range f.bridge.Pending() {
		if r, ok := p.(SignInRequiredMsg); ok {
			assert.Equal(t, session.ReasonUnauthorized, r.Reason)
			redirected = true
		}
	}
	assert.True(t, redirected)
	assert.Contains(t, m.tabs[TabDealers].err, "Token expired")
}

func TestRefreshInvalidatesCurrentTab(t *testing.T) {
	f := newFixture(t, true)
	m := NewModel(context.Background(), f.deps)

	m, _ = update(t, m, m.loadAll()())
	require.Equal(t, int32(1), f.backend.dealerHits.Load())

	m, cmd := update(t, m, keys("r"))
	require.NotNil(t, cmd)
	assert.True(t, m.tabs[TabDealers].loading)

	m, _ = update(t, m, cmd())
	assert.Equal(t, int32(2), f.backend.dealerHits.Load())
	assert.False(t, m.tabs[TabDealers].loading)
	assert.Contains(t, m.View(), "Acme Phones")
}

func TestToastLifecycle(t *testing.T) {
	f := newFixture(t, true)
	m := NewModel(context.Background(), f.deps)

	m, cmd := update(t, m, ToastMsg{Notification: notify.Notification{
		Severity: notify.SeverityError,
		Title:    "Request failed",
		Message:  "Dealer not found",
	}})
	require.NotNil(t, cmd)
	require.Len(t, m.toasts, 1)
	assert.Contains(t, m.View(), "Dealer not found")

	m, _ = update(t, m, toastExpiredMsg{id: m.toasts[0].id})
	assert.Empty(t, m.toasts)
	assert.NotContains(t, m.View(), "Dealer not found")
}

func TestTabNavigationWraps(t *testing.T) {
	f := newFixture(t, true)
	m := NewModel(context.Background(), f.deps)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, TabBundles, m.tab)
	m, _ = update(t, m, keys("l"))
	assert.Equal(t, TabDealers, m.tab)
}

func TestKeyActivityIsPersisted(t *testing.T) {
	f := newFixture(t, true)
	m := NewModel(context.Background(), f.deps)
	before := f.store.Snapshot().LastActive

	// Within the interval only the in-memory timer is reset
	m, cmd := update(t, m, keys("l"))
	assert.Nil(t, cmd)

	time.Sleep(5 * time.Millisecond)
	m.lastTouch = time.Now().Add(-2 * time.Minute)
	m, cmd = update(t, m, keys("l"))
	require.NotNil(t, cmd)
	assert.Nil(t, cmd())
	assert.True(t, f.store.Snapshot().LastActive.After(before))
	assert.Equal(t, TabStocks, m.tab)
}

func TestTouchInterval(t *testing.T) {
	assert.Equal(t, time.Minute, touchInterval(time.Hour))
	assert.Equal(t, 15*time.Second, touchInterval(time.Minute))
}

func TestHelpToggle(t *testing.T) {
	f := newFixture(t, true)
	m := NewModel(context.Background(), f.deps)

	m, _ = update(t, m, keys("?"))
	assert.Equal(t, ViewHelp, m.currentView)
	assert.Contains(t, m.View(), "signed out after 1h 0m")

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, ViewData, m.currentView)
}

func TestQuit(t *testing.T) {
	f := newFixture(t, true)
	m := NewModel(context.Background(), f.deps)

	m, cmd := update(t, m, keys("q"))
	require.NotNil(t, cmd)
	assert.True(t, m.quitting)
	assert.Empty(t, m.View())
}

func TestBridgeQueuesUntilAttached(t *testing.T) {
	b := NewBridge()
	b.Notify(notify.Notification{Title: "Saved"})
	b.RedirectToSignIn(session.ReasonIdle)

	pending := b.Pending()
	require.Len(t, pending, 2)
	assert.Equal(t, "Saved", pending[0].(ToastMsg).Notification.Title)
	assert.Equal(t, SignInRequiredMsg{Reason: session.ReasonIdle}, pending[1])
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{30 * time.Second, "30s"},
		{15 * time.Minute, "15m"},
		{90 * time.Second, "1m 30s"},
		{2*time.Hour + 5*time.Minute, "2h 5m"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatDuration(tt.d), tt.d.String())
	}
}

func TestReasonTextCoversReasons(t *testing.T) {
	for _, r := range []session.Reason{
		session.ReasonIdle, session.ReasonUnauthorized, session.ReasonTokenExpired, session.ReasonSignOut,
	} {
		assert.False(t, strings.TrimSpace(reasonText(r)) == "", string(r))
	}
	assert.Empty(t, reasonText(""))
}
