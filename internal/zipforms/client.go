// Package zipforms proxies the ZipForm e-signature API. Requests are passed
// through with the shared key injected; response bodies come back untouched.
package zipforms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var (
	ErrUnauthorized = errors.New("zipforms: authentication failed")
	ErrBadRequest   = errors.New("zipforms: rejected request")
	ErrUnavailable  = errors.New("zipforms: upstream unreachable")
)

const (
	headerContextID = "X-Auth-ContextId"
	headerSharedKey = "X-Auth-SharedKey"
)

// Client forwards calls to the ZipForm API.
type Client struct {
	baseURL   string
	sharedKey string
	http      *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// New constructs a Client for the given upstream URL and shared key.
func New(baseURL, sharedKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		sharedKey: sharedKey,
		http:      &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AuthParams carries the user credentials forwarded to the upstream auth call.
type AuthParams struct {
	Username string `json:"UserName"`
	Password string `json:"Password"`
}

// AuthenticateUser exchanges credentials for an upstream auth context. The
// shared key is injected server-side; callers never supply it.
func (c *Client) AuthenticateUser(ctx context.Context, p AuthParams) (json.RawMessage, error) {
	payload := map[string]any{
		"SharedKey": c.sharedKey,
		"UserName":  p.Username,
		"Password":  p.Password,
	}
	body, err := c.forward(ctx, http.MethodPost, c.baseURL+"/auth/user", payload, nil)
	if err != nil {
		if errors.Is(err, ErrBadRequest) {
			return nil, fmt.Errorf("%w: check your credentials", ErrUnauthorized)
		}
		return nil, err
	}
	return body, nil
}

// CreateTransaction forwards a transaction payload with the two upstream
// auth headers set from the caller's context id and our shared key.
func (c *Client) CreateTransaction(ctx context.Context, contextID string, transaction json.RawMessage) (json.RawMessage, error) {
	if strings.TrimSpace(contextID) == "" {
		return nil, fmt.Errorf("%w: context id is required", ErrBadRequest)
	}
	headers := map[string]string{
		headerContextID: contextID,
		headerSharedKey: c.sharedKey,
	}
	return c.forward(ctx, http.MethodPost, c.baseURL+"/transactions", transaction, headers)
}

// WebhookParams registers an upstream event callback.
type WebhookParams struct {
	EventID int    `json:"eventId"`
	URL     string `json:"url"`
}

// CreateWebhook registers a callback for the given scope. The callback URL
// must be https.
func (c *Client) CreateWebhook(ctx context.Context, scopeID string, p WebhookParams) (json.RawMessage, error) {
	if strings.TrimSpace(scopeID) == "" {
		return nil, fmt.Errorf("%w: scope id is required", ErrBadRequest)
	}
	if p.EventID == 0 || p.URL == "" {
		return nil, fmt.Errorf("%w: eventId and url are required", ErrBadRequest)
	}
	if !strings.HasPrefix(p.URL, "https://") {
		return nil, fmt.Errorf("%w: callback url must use https", ErrBadRequest)
	}
	headers := map[string]string{headerSharedKey: c.sharedKey}
	return c.forward(ctx, http.MethodPost, c.baseURL+"/hook/"+scopeID, p, headers)
}

func (c *Client) forward(ctx context.Context, method, url string, payload any, headers map[string]string) (json.RawMessage, error) {
	var body []byte
	switch v := payload.(type) {
	case json.RawMessage:
		body = v
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("zipforms: encode payload: %w", err)
		}
		body = data
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("zipforms: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("zipforms: read response: %w", err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode <= 299:
		return data, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: upstream status %d", ErrUnauthorized, resp.StatusCode)
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: upstream status %d", ErrUnavailable, resp.StatusCode)
	default:
		return nil, fmt.Errorf("%w: upstream status %d: %s", ErrBadRequest, resp.StatusCode, strings.TrimSpace(string(data)))
	}
}
