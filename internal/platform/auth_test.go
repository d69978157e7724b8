package platform

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perrors "github.com/marikmarie/mtnvas/internal/errors"
)

func TestSignIn(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, LoginPath, r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))

		var req LoginRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "jane@example.com", req.Email)
		assert.Equal(t, "s3cret", req.Password)

		writeJSON(w, http.StatusOK, `{"status": 200, "message": "Login successful",
			"data": {"token": "jwt-token", "user": {"id": "17", "name": "Jane", "email": "jane@example.com", "role": "admin"}}}`)
	})

	user, err := h.factory.SignIn(context.Background(), "jane@example.com", "s3cret")
	require.NoError(t, err)

	assert.Equal(t, "Jane", user.Name)
	assert.Equal(t, "admin", user.Role)
	assert.Equal(t, "jwt-token", h.store.Token())
	assert.True(t, h.store.Authenticated())
}

func TestSignInAccessTokenField(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `{"accessToken": "legacy", "user": {"name": "Jane"}}`)
	})

	user, err := h.factory.SignIn(context.Background(), "jane@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "legacy", h.store.Token())
	assert.Equal(t, "jane@example.com", user.Email, "email falls back to the one signed in with")
}

func TestSignInWithoutToken(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `{"user": {"name": "Jane"}}`)
	})

	_, err := h.factory.SignIn(context.Background(), "jane@example.com", "pw")
	require.Error(t, err)
	code, _ := perrors.CodeOf(err)
	assert.Equal(t, perrors.ErrCodeAuthSignInRejected, code)
	assert.False(t, h.store.Authenticated())
}

func TestSignInInvalidCredentials(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusUnauthorized, `{"message": "Invalid credentials"}`)
	})

	_, err := h.factory.SignIn(context.Background(), "jane@example.com", "wrong")
	require.Error(t, err)
	code, _ := perrors.CodeOf(err)
	assert.Equal(t, perrors.ErrCodeAuthInvalidCredentials, code)

	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, "Invalid credentials", apiErr.Message.Text)
}

func TestSignOut(t *testing.T) {
	h := newHarness(t, okHandler)
	h.signIn(t, "tok")

	require.NoError(t, h.factory.SignOut())
	require.NoError(t, h.factory.SignOut())
	assert.False(t, h.store.Authenticated())
}
