package platform

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/marikmarie/mtnvas/internal/notify"
	"github.com/marikmarie/mtnvas/internal/session"
)

// harness bundles a backend stub with a factory wired to it
type harness struct {
	server   *httptest.Server
	store    *session.Store
	notes    *notify.Recorder
	nav      *navRecorder
	factory  *Factory
	requests chan *http.Request
}

type navRecorder struct {
	mu      sync.Mutex
	reasons []session.Reason
}

func (n *navRecorder) RedirectToSignIn(r session.Reason) {
	n.mu.Lock()
	n.reasons = append(n.reasons, r)
	n.mu.Unlock()
}

func (n *navRecorder) Reasons() []session.Reason {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]session.Reason(nil), n.reasons...)
}

type harnessOption func(*FactoryConfig)

func withSuccessNotifications() harnessOption {
	return func(c *FactoryConfig) { c.SuccessNotifications = true }
}

func newHarness(t *testing.T, handler http.HandlerFunc, opts ...harnessOption) *harness {
	t.Helper()

	h := &harness{
		notes:    notify.NewRecorder(),
		nav:      &navRecorder{},
		requests: make(chan *http.Request, 16),
	}
	h.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case h.requests <- r.Clone(context.Background()):
		default:
		}
		handler(w, r)
	}))
	t.Cleanup(h.server.Close)

	h.store = session.NewStore(session.NewMemoryPersister())
	require.NoError(t, h.store.Rehydrate(context.Background()))

	cfg := FactoryConfig{
		BaseURL:   h.server.URL,
		Session:   h.store,
		Navigator: h.nav,
		Notifier:  h.notes,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	h.factory = NewFactory(cfg)
	return h
}

func (h *harness) signIn(t *testing.T, token string) {
	t.Helper()
	require.NoError(t, h.store.SignIn(&session.User{Name: "Jane", Email: "jane@example.com"}, token))
}

func (h *harness) lastRequest(t *testing.T) *http.Request {
	t.Helper()
	var last *http.Request
	for {
		select {
		case r := <-h.requests:
			last = r
		default:
			require.NotNil(t, last, "no request reached the server")
			return last
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
