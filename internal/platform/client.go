// Package platform talks to the WakaNet portal backend.
//
// Call sites obtain a Client from a Factory for each logical operation. The
// Factory decides whether the bearer token is attached and routes every
// response through the interceptor, which surfaces notifications and tears
// the session down on an embedded 401.
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	perrors "github.com/marikmarie/mtnvas/internal/errors"
	"github.com/marikmarie/mtnvas/internal/log"
	"github.com/marikmarie/mtnvas/internal/metrics"
	"github.com/marikmarie/mtnvas/internal/notify"
	"github.com/marikmarie/mtnvas/internal/session"
)

// NotifyOptions controls the notifications shown for one exchange
type NotifyOptions struct {
	ShowSuccess  bool
	ShowError    bool
	SuccessColor string
	ErrorColor   string
	AutoClose    time.Duration
	Title        string
}

// Descriptor is the per-call configuration used to build a Client
type Descriptor struct {
	RequiresAuth bool
	Notify       NotifyOptions
}

// Authenticated is the descriptor used by most screens: bearer token
// attached, failures notified.
func Authenticated() Descriptor {
	return Descriptor{RequiresAuth: true, Notify: NotifyOptions{ShowError: true}}
}

// Public sends no credentials and notifies failures
func Public() Descriptor {
	return Descriptor{Notify: NotifyOptions{ShowError: true}}
}

// Quiet returns a copy of d with notifications turned off
func (d Descriptor) Quiet() Descriptor {
	d.Notify.ShowSuccess = false
	d.Notify.ShowError = false
	return d
}

// WithSuccess returns a copy of d that asks for a success notification
func (d Descriptor) WithSuccess(title string) Descriptor {
	d.Notify.ShowSuccess = true
	if title != "" {
		d.Notify.Title = title
	}
	return d
}

// FactoryConfig wires a Factory
type FactoryConfig struct {
	BaseURL    string
	HTTPClient *http.Client
	Session    *session.Store
	Navigator  session.Navigator
	Notifier   notify.Notifier

	// SuccessNotifications gates every success notification. When false,
	// success notifications are suppressed whatever the descriptor asks for.
	SuccessNotifications bool

	// Defaults fills colors and auto-close when a descriptor leaves them empty
	Defaults NotifyOptions

	UserAgent string
	Logger    *log.Logger
	Metrics   *metrics.Metrics
}

// Factory builds Clients bound to the backend base URL
type Factory struct {
	baseURL   string
	http      *http.Client
	session   *session.Store
	userAgent string
	icpt      *interceptor
}

// NewFactory creates a Factory
func NewFactory(cfg FactoryConfig) *Factory {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	notifier := cfg.Notifier
	if notifier == nil {
		notifier = notify.Discard
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.DefaultLogger()
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "wakanet"
	}

	defaults := cfg.Defaults
	if defaults.SuccessColor == "" {
		defaults.SuccessColor = notify.DefaultColor(notify.SeveritySuccess)
	}
	if defaults.ErrorColor == "" {
		defaults.ErrorColor = notify.DefaultColor(notify.SeverityError)
	}
	if defaults.AutoClose == 0 {
		defaults.AutoClose = 3 * time.Second
	}

	platformLogger := logger.Named("platform")

	return &Factory{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		http:      httpClient,
		session:   cfg.Session,
		userAgent: userAgent,
		icpt: &interceptor{
			session:        cfg.Session,
			navigator:      cfg.Navigator,
			notifier:       notifier,
			successEnabled: cfg.SuccessNotifications,
			defaults:       defaults,
			logger:         platformLogger,
			metrics:        cfg.Metrics,
		},
	}
}

// Session returns the session store the factory reads tokens from
func (f *Factory) Session() *session.Store {
	return f.session
}

// New builds a Client for one logical operation. When d.RequiresAuth is set
// the token current at this moment is captured, after waiting for session
// rehydration; later sign-ins or sign-outs do not affect the returned Client.
func (f *Factory) New(ctx context.Context, d Descriptor) *Client {
	var token string
	if d.RequiresAuth && f.session != nil {
		token, _ = f.session.TokenForRequest(ctx)
	}
	return &Client{
		baseURL:   f.baseURL,
		http:      f.http,
		token:     token,
		desc:      d,
		userAgent: f.userAgent,
		icpt:      f.icpt,
	}
}

// Client sends requests for a single logical operation
type Client struct {
	baseURL   string
	http      *http.Client
	token     string
	desc      Descriptor
	userAgent string
	icpt      *interceptor
}

// Descriptor returns the descriptor the client was built with
func (c *Client) Descriptor() Descriptor {
	return c.desc
}

// HasToken reports whether the client will send an Authorization header
func (c *Client) HasToken() bool {
	return c.desc.RequiresAuth && c.token != ""
}

// Get sends a GET request and decodes the response payload into out
func (c *Client) Get(ctx context.Context, path string, query url.Values, out interface{}) error {
	return c.doJSON(ctx, http.MethodGet, withQuery(path, query), nil, out)
}

// Post sends a JSON POST request
func (c *Client) Post(ctx context.Context, path string, in, out interface{}) error {
	return c.doJSON(ctx, http.MethodPost, path, in, out)
}

// Put sends a JSON PUT request
func (c *Client) Put(ctx context.Context, path string, in, out interface{}) error {
	return c.doJSON(ctx, http.MethodPut, path, in, out)
}

// Patch sends a JSON PATCH request
func (c *Client) Patch(ctx context.Context, path string, in, out interface{}) error {
	return c.doJSON(ctx, http.MethodPatch, path, in, out)
}

// Delete sends a DELETE request
func (c *Client) Delete(ctx context.Context, path string, out interface{}) error {
	return c.doJSON(ctx, http.MethodDelete, path, nil, out)
}

// FilePart is a file sent in a multipart upload
type FilePart struct {
	FieldName string
	FileName  string
	Content   io.Reader
}

// Upload sends a multipart/form-data POST with the given fields and file
func (c *Client) Upload(ctx context.Context, path string, fields map[string]string, file FilePart, out interface{}) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	for name, value := range fields {
		if err := mw.WriteField(name, value); err != nil {
			return perrors.Wrap(perrors.ErrCodeAPIRequest, "failed to encode form field", err)
		}
	}

	fieldName := file.FieldName
	if fieldName == "" {
		fieldName = "file"
	}
	part, err := mw.CreateFormFile(fieldName, file.FileName)
	if err != nil {
		return perrors.Wrap(perrors.ErrCodeAPIRequest, "failed to create form file", err)
	}
	if _, err := io.Copy(part, file.Content); err != nil {
		return perrors.Wrap(perrors.ErrCodeFileReadFailed, fmt.Sprintf("failed to read %s", file.FileName), err)
	}
	if err := mw.Close(); err != nil {
		return perrors.Wrap(perrors.ErrCodeAPIRequest, "failed to finish multipart body", err)
	}

	data, err := c.send(ctx, request{
		method:      http.MethodPost,
		path:        path,
		body:        &buf,
		contentType: mw.FormDataContentType(),
		accept:      "application/json",
	})
	if err != nil {
		return err
	}
	return c.decode(http.MethodPost, path, data, out)
}

// Blob is a binary response body
type Blob struct {
	Data        []byte
	ContentType string
	// FileName is taken from Content-Disposition when the backend sets it
	FileName string
}

// Download fetches a CSV export
func (c *Client) Download(ctx context.Context, path string, query url.Values) (*Blob, error) {
	var blob Blob
	_, err := c.send(ctx, request{
		method: http.MethodGet,
		path:   withQuery(path, query),
		accept: "text/csv",
		binary: true,
		onResponse: func(resp *http.Response, body []byte) {
			blob.Data = body
			blob.ContentType = resp.Header.Get("Content-Type")
			blob.FileName = fileNameFrom(resp.Header.Get("Content-Disposition"))
		},
	})
	if err != nil {
		return nil, err
	}
	return &blob, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return perrors.Wrap(perrors.ErrCodeAPIRequest, "failed to marshal request body", err)
		}
		body = bytes.NewReader(payload)
		contentType = "application/json"
	}

	data, err := c.send(ctx, request{
		method:      method,
		path:        path,
		body:        body,
		contentType: contentType,
		accept:      "application/json",
	})
	if err != nil {
		return err
	}
	return c.decode(method, path, data, out)
}

type request struct {
	method      string
	path        string
	body        io.Reader
	contentType string
	accept      string
	binary      bool
	onResponse  func(*http.Response, []byte)
}

// send performs one exchange and hands the outcome to the interceptor
func (c *Client) send(ctx context.Context, r request) ([]byte, error) {
	requestID := uuid.NewString()
	ctx = log.ContextWithRequestID(ctx, requestID)

	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, r.body)
	if err != nil {
		return nil, perrors.Wrap(perrors.ErrCodeAPIRequest, "failed to create request", err)
	}

	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if r.accept != "" {
		req.Header.Set("Accept", r.accept)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-Id", requestID)
	if c.HasToken() {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	ex := exchange{
		ctx:    ctx,
		method: r.method,
		path:   r.path,
		desc:   c.desc,
		binary: r.binary,
		start:  time.Now(),
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, c.icpt.onFailure(ex, nil, nil, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.icpt.onFailure(ex, nil, nil, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		cause := fmt.Errorf("request failed with status code %d", resp.StatusCode)
		return nil, c.icpt.onFailure(ex, resp, data, cause)
	}

	if err := c.icpt.onSuccess(ex, resp, data); err != nil {
		return nil, err
	}

	if r.onResponse != nil {
		r.onResponse(resp, data)
	}
	return data, nil
}

// decode stores the response payload in out. Enveloped responses
// ({"data": ...}) are unwrapped; other bodies are decoded whole.
func (c *Client) decode(method, path string, data []byte, out interface{}) error {
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	payload := data
	if env := DecodeEnvelope(data); env.IsObject && len(env.Data) > 0 {
		payload = env.Data
	}

	if err := json.Unmarshal(payload, out); err != nil {
		return newAPIError(KindDecode, method, path, 0, Envelope{}, Message{Text: "unexpected response from server", Source: SourceTransport}, err)
	}
	return nil
}

func withQuery(path string, query url.Values) string {
	if len(query) == 0 {
		return path
	}
	if strings.Contains(path, "?") {
		return path + "&" + query.Encode()
	}
	return path + "?" + query.Encode()
}

func fileNameFrom(disposition string) string {
	if disposition == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(disposition)
	if err != nil {
		return ""
	}
	return params["filename"]
}
