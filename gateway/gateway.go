// Package gateway routes every outbound call to a protected endpoint through
// one pipeline: attach the current bearer token, issue the call, and on a
// single 401 drive exactly one refresh-and-replay before giving up. All other
// failures pass through to the caller unmodified. Navigation side effects are
// deliberately absent; callers react to the typed result instead.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/jrsteele09/go-lms-client/credentials"
	"github.com/jrsteele09/go-lms-client/session"
)

const defaultTimeout = 10 * time.Second

// Refresher obtains a fresh access token after a 401, collapsing concurrent
// callers onto a single attempt. Implemented by refresh.Coordinator.
type Refresher interface {
	Refresh(ctx context.Context) (string, error)
}

// Gateway is the request pipeline around the LMS API.
type Gateway struct {
	baseURL   string
	client    *http.Client
	store     credentials.Store
	session   *session.Session
	refresher Refresher
	logger    zerolog.Logger
}

// Option modifies a Gateway at construction time.
type Option func(*Gateway)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(g *Gateway) {
		g.client = client
	}
}

// WithLogger sets the gateway's logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(g *Gateway) {
		g.logger = logger
	}
}

// New creates a Gateway for the API rooted at baseURL.
func New(baseURL string, store credentials.Store, sess *session.Session, refresher Refresher, options ...Option) (*Gateway, error) {
	if baseURL == "" {
		return nil, errors.New("[gateway.New] baseURL is required")
	}
	if store == nil {
		return nil, errors.New("[gateway.New] store is required")
	}
	if sess == nil {
		return nil, errors.New("[gateway.New] session is required")
	}
	if refresher == nil {
		return nil, errors.New("[gateway.New] refresher is required")
	}

	gw := &Gateway{
		baseURL:   baseURL,
		client:    &http.Client{Timeout: defaultTimeout},
		store:     store,
		session:   sess,
		refresher: refresher,
		logger:    zerolog.Nop(),
	}
	for _, opt := range options {
		opt(gw)
	}
	return gw, nil
}

// Response is the outcome of a successful call.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Decode unmarshals the response body into v.
func (r *Response) Decode(v interface{}) error {
	if len(r.Body) == 0 {
		return nil
	}
	return errors.Wrap(json.Unmarshal(r.Body, v), "[Response.Decode] unmarshal body")
}

// Get issues a GET request through the pipeline.
func (g *Gateway) Get(ctx context.Context, path string) (*Response, error) {
	return g.Do(ctx, http.MethodGet, path, nil)
}

// Post issues a POST request with a JSON body through the pipeline.
func (g *Gateway) Post(ctx context.Context, path string, body interface{}) (*Response, error) {
	return g.Do(ctx, http.MethodPost, path, body)
}

// Put issues a PUT request with a JSON body through the pipeline.
func (g *Gateway) Put(ctx context.Context, path string, body interface{}) (*Response, error) {
	return g.Do(ctx, http.MethodPut, path, body)
}

// Patch issues a PATCH request with a JSON body through the pipeline.
func (g *Gateway) Patch(ctx context.Context, path string, body interface{}) (*Response, error) {
	return g.Do(ctx, http.MethodPatch, path, body)
}

// Delete issues a DELETE request through the pipeline.
func (g *Gateway) Delete(ctx context.Context, path string) (*Response, error) {
	return g.Do(ctx, http.MethodDelete, path, nil)
}

// Do runs one call through the full pipeline. The body, if non-nil, is
// marshalled to JSON once so the replay after a refresh resends identical
// bytes. A 401 triggers at most one refresh-and-replay; whatever the replay
// produces is the final result. On refresh failure the session is cleared and
// the caller receives KindSessionExpired.
func (g *Gateway) Do(ctx context.Context, method, path string, body interface{}) (*Response, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, "[Gateway.Do] marshal request body")
		}
	}

	requestID := uuid.New().String()
	logger := g.logger.With().
		Str("request_id", requestID).
		Str("method", method).
		Str("path", path).
		Logger()

	resp, attached, err := g.issue(ctx, method, path, payload, requestID)
	if err != nil {
		return nil, &Error{Kind: KindNetworkFailure, RequestID: requestID, cause: err}
	}

	if resp.StatusCode != http.StatusUnauthorized || !attached {
		return g.finish(logger, resp, requestID)
	}

	// The server rejected a token it previously accepted. Drain the rejected
	// response and drive a single coordinated refresh before replaying.
	drain(resp)
	logger.Debug().Msg("access token rejected, refreshing")

	if _, err := g.refresher.Refresh(ctx); err != nil {
		if clearErr := g.store.ClearAll(); clearErr != nil {
			logger.Warn().Err(clearErr).Msg("failed to clear credential store")
		}
		g.session.Reset()
		logger.Info().Msg("session expired")
		return nil, &Error{Kind: KindSessionExpired, RequestID: requestID, cause: err}
	}

	resp, _, err = g.issue(ctx, method, path, payload, requestID)
	if err != nil {
		return nil, &Error{Kind: KindNetworkFailure, RequestID: requestID, cause: err}
	}
	// No second retry regardless of outcome: a 401 here propagates as-is.
	return g.finish(logger, resp, requestID)
}

// issue sends the request once, attaching the stored access token when one
// exists. It reports whether a bearer token was attached so Do can tell a
// recoverable 401 from an anonymous one.
func (g *Gateway) issue(ctx context.Context, method, path string, payload []byte, requestID string) (*http.Response, bool, error) {
	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, bodyReader)
	if err != nil {
		return nil, false, errors.Wrap(err, "[Gateway.issue] build request")
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Request-ID", requestID)

	attached := false
	if token, err := g.store.Get(credentials.KindAccess); err == nil {
		req.Header.Set("Authorization", "Bearer "+token)
		attached = true
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, attached, errors.Wrap(err, "[Gateway.issue] round trip")
	}
	return resp, attached, nil
}

// finish reads the response and converts non-2xx statuses to typed errors.
func (g *Gateway) finish(logger zerolog.Logger, resp *http.Response, requestID string) (*Response, error) {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Kind: KindNetworkFailure, RequestID: requestID, cause: errors.Wrap(err, "[Gateway.finish] read body")}
	}

	logger.Debug().Int("status", resp.StatusCode).Msg("request completed")

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}, nil
	}
	return nil, &Error{
		Kind:       kindForStatus(resp.StatusCode),
		StatusCode: resp.StatusCode,
		Body:       body,
		RequestID:  requestID,
	}
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
