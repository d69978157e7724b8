package platform

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perrors "github.com/marikmarie/mtnvas/internal/errors"
	"github.com/marikmarie/mtnvas/internal/notify"
	"github.com/marikmarie/mtnvas/internal/session"
)

func TestEmbeddedUnauthorizedTearsDownSession(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `{"status": 401, "message": "expired"}`)
	})
	h.signIn(t, "tok")

	client := h.factory.New(context.Background(), Authenticated())
	var out []Dealer
	err := client.Get(context.Background(), "/dealers", nil, &out)

	// not a success despite the 2xx transport status
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))
	assert.Nil(t, out)

	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, apiErr.StatusCode)
	assert.Equal(t, "expired", apiErr.Message.Text)

	// session cleared
	assert.False(t, h.store.Authenticated())
	assert.Nil(t, h.store.User())
	assert.Empty(t, h.store.Token())

	// navigated to sign-in
	assert.Equal(t, []session.Reason{session.ReasonUnauthorized}, h.nav.Reasons())

	// warning titled Authentication Error
	warnings := h.notes.BySeverity(notify.SeverityWarning)
	require.Len(t, warnings, 1)
	assert.Equal(t, AuthErrorTitle, warnings[0].Title)
	assert.Equal(t, "expired", warnings[0].Message)

	code, _ := perrors.CodeOf(err)
	assert.Equal(t, perrors.ErrCodeAPIUnauthorized, code)
}

func TestEmbeddedUnauthorizedIgnoresDescriptorFlags(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `{"status": 401}`)
	})
	h.signIn(t, "tok")

	client := h.factory.New(context.Background(), Authenticated().Quiet())
	err := client.Get(context.Background(), "/agents", nil, nil)

	require.Error(t, err)
	assert.False(t, h.store.Authenticated())
	assert.Len(t, h.nav.Reasons(), 1)
	assert.Empty(t, h.notes.All(), "no message, so no Authentication Error notification")
}

func TestEmbeddedStatusMustBeNumeric(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `{"status": "401", "message": "looks like an auth error"}`)
	})
	h.signIn(t, "tok")

	client := h.factory.New(context.Background(), Authenticated())
	require.NoError(t, client.Get(context.Background(), "/agents", nil, nil))
	assert.True(t, h.store.Authenticated())
	assert.Empty(t, h.nav.Reasons())
}

func TestHTTPUnauthorizedIsApplicationFailure(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusUnauthorized, `{"message": "token invalid"}`)
	})
	h.signIn(t, "tok")

	client := h.factory.New(context.Background(), Authenticated())
	err := client.Get(context.Background(), "/dealers", nil, nil)

	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, KindApplication, apiErr.Kind)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.True(t, h.store.Authenticated(), "only the embedded 401 ends the session")
}

// The status field wins over message, even on failures. This mirrors the
// portal's long-standing display behavior and is asserted on purpose.
func TestFailureMessagePriorityPrefersStatus(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusBadRequest, `{"status": 400, "message": "Bad input", "error": "ValidationError"}`)
	})

	client := h.factory.New(context.Background(), Public())
	err := client.Post(context.Background(), "/dealers", DealerInput{}, nil)

	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, "400", apiErr.Message.Text)
	assert.Equal(t, SourceStatus, apiErr.Message.Source)
	assert.Equal(t, "ValidationError", apiErr.Envelope.Error.String())

	errs := h.notes.BySeverity(notify.SeverityError)
	require.Len(t, errs, 1)
	assert.Equal(t, "400", errs[0].Message)
}

func TestFailureNotification(t *testing.T) {
	tests := []struct {
		name       string
		descriptor Descriptor
		wantNotes  int
	}{
		{"show error", Public(), 1},
		{"quiet", Public().Quiet(), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, http.StatusInternalServerError, `{"message": "database unavailable"}`)
			})

			client := h.factory.New(context.Background(), tt.descriptor)
			err := client.Get(context.Background(), "/stocks", nil, nil)

			// the failure always reaches the caller
			require.Error(t, err)
			assert.Len(t, h.notes.All(), tt.wantNotes)
		})
	}
}

func TestFailureNotificationUsesDescriptorStyle(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	})

	d := Public()
	d.Notify.Title = "Dealers"
	d.Notify.ErrorColor = "magenta"
	d.Notify.AutoClose = 5 * time.Second

	client := h.factory.New(context.Background(), d)
	err := client.Get(context.Background(), "/dealers", nil, nil)
	require.Error(t, err)

	notes := h.notes.All()
	require.Len(t, notes, 1)
	assert.Equal(t, "Dealers", notes[0].Title)
	assert.Equal(t, "magenta", notes[0].Color)
	assert.Equal(t, 5*time.Second, notes[0].AutoClose)
	assert.Equal(t, "upstream down", notes[0].Message)
}

func TestFailureFallsBackToTransportMessage(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	client := h.factory.New(context.Background(), Public())
	err := client.Get(context.Background(), "/missing", nil, nil)

	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, SourceTransport, apiErr.Message.Source)
	assert.Equal(t, "request failed with status code 404", apiErr.Message.Text)
}

func TestNetworkFailure(t *testing.T) {
	// reserve a port, then close it so nothing is listening
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	notes := notify.NewRecorder()
	factory := NewFactory(FactoryConfig{BaseURL: "http://" + addr, Notifier: notes})

	client := factory.New(context.Background(), Public())
	err = client.Get(context.Background(), "/dealers", nil, nil)

	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, KindNetwork, apiErr.Kind)
	assert.Zero(t, apiErr.StatusCode)
	assert.Equal(t, SourceTransport, apiErr.Message.Source)
	assert.NotEmpty(t, apiErr.Message.Text)

	var urlErr *url.Error
	assert.True(t, errors.As(err, &urlErr), "transport error stays reachable")

	code, _ := perrors.CodeOf(err)
	assert.Equal(t, perrors.ErrCodeAPINetwork, code)
	assert.Len(t, notes.BySeverity(notify.SeverityError), 1)
}

func TestCancelledRequestIsNotNotified(t *testing.T) {
	h := newHarness(t, okHandler)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := h.factory.New(context.Background(), Public())
	err := client.Get(ctx, "/dealers", nil, nil)

	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Empty(t, h.notes.All())
}

func TestSuccessNotificationGating(t *testing.T) {
	body := `{"status": 200, "message": "Dealer created"}`

	tests := []struct {
		name           string
		successEnabled bool
		descriptor     Descriptor
		wantNotes      int
	}{
		{"disabled globally", false, Authenticated().WithSuccess(""), 0},
		{"enabled but not requested", true, Authenticated(), 0},
		{"enabled and requested", true, Authenticated().WithSuccess("Dealers"), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var opts []harnessOption
			if tt.successEnabled {
				opts = append(opts, withSuccessNotifications())
			}
			h := newHarness(t, func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, http.StatusOK, body)
			}, opts...)

			client := h.factory.New(context.Background(), tt.descriptor)
			require.NoError(t, client.Post(context.Background(), "/dealers", DealerInput{}, nil))

			notes := h.notes.BySeverity(notify.SeveritySuccess)
			require.Len(t, notes, tt.wantNotes)
			if tt.wantNotes > 0 {
				// status wins over message here too
				assert.Equal(t, "200", notes[0].Message)
				assert.Equal(t, "Dealers", notes[0].Title)
				assert.Equal(t, "green", notes[0].Color)
			}
		})
	}
}

func TestSuccessWithoutMessageIsSilent(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}, withSuccessNotifications())

	client := h.factory.New(context.Background(), Authenticated().WithSuccess("Deleted"))
	require.NoError(t, client.Delete(context.Background(), "/dealers/1", nil))
	assert.Empty(t, h.notes.All())
}
