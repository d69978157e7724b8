package platform

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/marikmarie/mtnvas/internal/log"
	"github.com/marikmarie/mtnvas/internal/metrics"
	"github.com/marikmarie/mtnvas/internal/notify"
	"github.com/marikmarie/mtnvas/internal/session"
)

// AuthErrorTitle is the title of the notification shown when the backend
// reports an embedded 401
const AuthErrorTitle = "Authentication Error"

// exchange describes one request as seen by the interceptor
type exchange struct {
	ctx    context.Context
	method string
	path   string
	desc   Descriptor
	binary bool
	start  time.Time
}

// interceptor inspects every response and failure. It only adds side
// effects (notifications, session teardown); errors are always returned.
type interceptor struct {
	session        *session.Store
	navigator      session.Navigator
	notifier       notify.Notifier
	successEnabled bool
	defaults       NotifyOptions
	logger         *log.Logger
	metrics        *metrics.Metrics
}

// onSuccess handles a 2xx response
func (i *interceptor) onSuccess(ex exchange, resp *http.Response, body []byte) error {
	env := DecodeEnvelope(body)
	if ex.binary && !env.IsObject {
		env.Raw = nil
	}

	if status, ok := env.EmbeddedStatus(); ok && status == http.StatusUnauthorized {
		return i.embeddedUnauthorized(ex, resp, env)
	}

	i.metrics.ObserveRequest(ex.method, "success", time.Since(ex.start))
	i.logger.DebugContext(ex.ctx, "request succeeded",
		"method", ex.method,
		"path", ex.path,
		"status", resp.StatusCode,
		"duration", time.Since(ex.start),
	)

	if !ex.desc.Notify.ShowSuccess || !i.successEnabled {
		return nil
	}

	msg := ExtractMessage(env, "")
	if msg.Empty() {
		return nil
	}

	i.notify(notify.Notification{
		Severity:  notify.SeveritySuccess,
		Title:     firstNonEmpty(ex.desc.Notify.Title, "Success"),
		Message:   msg.Text,
		Color:     firstNonEmpty(ex.desc.Notify.SuccessColor, i.defaults.SuccessColor),
		AutoClose: firstPositive(ex.desc.Notify.AutoClose, i.defaults.AutoClose),
	})
	return nil
}

// embeddedUnauthorized ends the session when a 2xx response carries
// status 401. Descriptor notification flags do not apply here.
func (i *interceptor) embeddedUnauthorized(ex exchange, resp *http.Response, env Envelope) error {
	i.metrics.ObserveRequest(ex.method, "unauthorized", time.Since(ex.start))
	i.logger.WarnContext(ex.ctx, "backend reported an authentication failure",
		"method", ex.method,
		"path", ex.path,
		"status", resp.StatusCode,
	)

	if i.session != nil {
		if err := session.Expire(i.session, i.navigator, session.ReasonUnauthorized); err != nil {
			i.logger.WithError(err).Warn("session teardown incomplete")
		}
	} else if i.navigator != nil {
		i.navigator.RedirectToSignIn(session.ReasonUnauthorized)
	}

	msg := ExtractMessage(env, "")
	if env.Message.Truthy() {
		msg = Message{Text: env.Message.String(), Source: SourceMessage}
		i.notify(notify.Notification{
			Severity:  notify.SeverityWarning,
			Title:     AuthErrorTitle,
			Message:   msg.Text,
			AutoClose: i.defaults.AutoClose,
		})
	}

	return newAPIError(KindUnauthorized, ex.method, ex.path, resp.StatusCode, env, msg, nil)
}

// onFailure handles a transport error (resp == nil) or a non-2xx response
func (i *interceptor) onFailure(ex exchange, resp *http.Response, body []byte, cause error) error {
	kind := KindNetwork
	status := 0
	var env Envelope
	if resp != nil {
		kind = KindApplication
		status = resp.StatusCode
		env = DecodeEnvelope(body)
	}

	msg := ExtractMessage(env, transportMessage(cause))
	apiErr := newAPIError(kind, ex.method, ex.path, status, env, msg, cause)

	i.metrics.ObserveRequest(ex.method, string(kind), time.Since(ex.start))
	i.logger.WithError(apiErr).WarnContext(ex.ctx, "request failed",
		"method", ex.method,
		"path", ex.path,
		"status", status,
		"kind", string(kind),
	)

	if !ex.desc.Notify.ShowError || errors.Is(cause, context.Canceled) {
		return apiErr
	}

	i.notify(notify.Notification{
		Severity:  notify.SeverityError,
		Title:     firstNonEmpty(ex.desc.Notify.Title, "Error"),
		Message:   msg.Text,
		Color:     firstNonEmpty(ex.desc.Notify.ErrorColor, i.defaults.ErrorColor),
		AutoClose: firstPositive(ex.desc.Notify.AutoClose, i.defaults.AutoClose),
	})
	return apiErr
}

func (i *interceptor) notify(n notify.Notification) {
	i.metrics.Notified(string(n.Severity))
	i.notifier.Notify(n)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstPositive(values ...time.Duration) time.Duration {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}
