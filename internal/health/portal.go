package health

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/marikmarie/mtnvas/internal/config"
	"github.com/marikmarie/mtnvas/internal/platform"
	"github.com/marikmarie/mtnvas/internal/session"
)

// ConfigChecker verifies the configuration file loads and validates
type ConfigChecker struct {
	Path string
}

func (c ConfigChecker) Name() string { return "config" }

func (c ConfigChecker) Check(context.Context) *Result {
	cfg, err := config.Load(c.Path)
	if err != nil {
		return Unhealthy("configuration is invalid").
			WithDetail("path", c.Path).
			WithDetail("error", err.Error()).
			WithSuggestion("Run 'wakanet config view' and fix the reported key")
	}

	r := Healthy("configuration loaded").
		WithDetail("path", c.Path).
		WithDetail("api.base_url", cfg.API.BaseURL)
	if _, err := os.Stat(c.Path); errors.Is(err, os.ErrNotExist) {
		r.WithDetail("source", "defaults")
	}
	return r
}

// StateDirChecker verifies the session state directory is writable
type StateDirChecker struct {
	Dir string
}

func (c StateDirChecker) Name() string { return "state-dir" }

func (c StateDirChecker) Check(context.Context) *Result {
	if err := os.MkdirAll(c.Dir, 0o700); err != nil {
		return Unhealthy("state directory cannot be created").
			WithDetail("dir", c.Dir).
			WithDetail("error", err.Error()).
			WithSuggestion("Set session.state_dir to a writable directory")
	}
	f, err := os.CreateTemp(c.Dir, ".doctor-*")
	if err != nil {
		return Unhealthy("state directory is not writable").
			WithDetail("dir", c.Dir).
			WithDetail("error", err.Error()).
			WithSuggestion("Check permissions on session.state_dir")
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)

	return Healthy("state directory is writable").WithDetail("dir", c.Dir)
}

// SessionChecker reports whether someone is signed in and when their token
// expires
type SessionChecker struct {
	Store *session.Store
	Now   func() time.Time
}

func (c SessionChecker) Name() string { return "session" }

func (c SessionChecker) Check(context.Context) *Result {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	if c.Store == nil || !c.Store.Authenticated() {
		return Degraded("not signed in").
			WithSuggestion("Run 'wakanet auth login' to sign in")
	}

	user := c.Store.User()
	r := Healthy("signed in as " + user.Email).WithDetail("email", user.Email)
	if user.Role != "" {
		r.WithDetail("role", user.Role)
	}

	if exp, ok := session.TokenExpiry(c.Store.Token()); ok {
		r.WithDetail("token_expires", exp.UTC().Format(time.RFC3339))
		if !exp.After(now()) {
			return Degraded("session token has expired").
				WithDetail("email", user.Email).
				WithSuggestion("Run 'wakanet auth login' to sign in again")
		}
	}
	return r
}

// BackendChecker verifies the portal backend answers HTTP requests. Any HTTP
// response counts as reachable; server errors degrade the result.
type BackendChecker struct {
	Factory *platform.Factory
	Path    string
}

func (c BackendChecker) Name() string { return "backend" }

func (c BackendChecker) Check(ctx context.Context) *Result {
	path := c.Path
	if path == "" {
		path = "/"
	}

	client := c.Factory.New(ctx, platform.Public().Quiet())
	start := time.Now()
	err := client.Get(ctx, path, nil, nil)
	latency := time.Since(start)

	if err == nil {
		return Healthy("backend is reachable").WithLatency(latency)
	}

	apiErr, ok := platform.AsAPIError(err)
	switch {
	case !ok || apiErr.Kind == platform.KindNetwork:
		return Unhealthy("backend is unreachable").
			WithDetail("error", err.Error()).
			WithLatency(latency).
			WithSuggestion("Check your network connection and api.base_url")
	case apiErr.StatusCode >= http.StatusInternalServerError:
		return Degraded("backend is reachable but failing").
			WithDetail("status", apiErr.StatusCode).
			WithLatency(latency)
	default:
		return Healthy("backend is reachable").
			WithDetail("status", apiErr.StatusCode).
			WithLatency(latency)
	}
}
