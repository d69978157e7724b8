package platform

import (
	"context"
	"net/http"

	perrors "github.com/marikmarie/mtnvas/internal/errors"
	"github.com/marikmarie/mtnvas/internal/session"
)

// LoginPath is the sign-in endpoint
const LoginPath = "/auth/login"

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse represents a login response. Older backend builds name the
// token accessToken.
type LoginResponse struct {
	Token       string       `json:"token"`
	AccessToken string       `json:"accessToken"`
	User        session.User `json:"user"`
}

// BearerToken returns whichever token field the backend filled
func (r *LoginResponse) BearerToken() string {
	if r.Token != "" {
		return r.Token
	}
	return r.AccessToken
}

// Login posts credentials to the sign-in endpoint
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	req := LoginRequest{
		Email:    email,
		Password: password,
	}

	var loginResp LoginResponse
	if err := c.Post(ctx, LoginPath, req, &loginResp); err != nil {
		return nil, err
	}

	return &loginResp, nil
}

// SignIn authenticates through an unauthenticated client and records the
// resulting session.
func (f *Factory) SignIn(ctx context.Context, email, password string) (*session.User, error) {
	if f.session == nil {
		return nil, perrors.New(perrors.ErrCodeSessionInvalid, "no session store configured")
	}

	client := f.New(ctx, Public())
	resp, err := client.Login(ctx, email, password)
	if err != nil {
		if apiErr, ok := AsAPIError(err); ok && apiErr.Kind == KindApplication &&
			(apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusBadRequest) {
			return nil, perrors.Wrap(perrors.ErrCodeAuthInvalidCredentials, "sign-in rejected", err).
				WithSuggestion("Check your email and password")
		}
		return nil, err
	}

	token := resp.BearerToken()
	if token == "" {
		return nil, perrors.New(perrors.ErrCodeAuthSignInRejected, "sign-in response did not include a token")
	}
	if resp.User.Email == "" {
		resp.User.Email = email
	}

	if err := f.session.SignIn(&resp.User, token); err != nil {
		return nil, err
	}
	f.icpt.metrics.SignedIn()

	return f.session.User(), nil
}

// SignOut ends the local session
func (f *Factory) SignOut() error {
	if f.session == nil {
		return nil
	}
	return f.session.SignOut()
}
