// Package push wraps the OneSignal REST API used for mobile push delivery.
package push

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

const defaultBaseURL = "https://onesignal.com/api/v1"

// Client talks to the push provider. It never retries; callers decide
// whether a failure matters.
type Client struct {
	baseURL string
	appID   string
	apiKey  string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the provider endpoint (tests point this at a local server).
func WithBaseURL(url string) Option {
	return func(c *Client) {
		if url != "" {
			c.baseURL = strings.TrimRight(url, "/")
		}
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// New constructs a Client from the provider app id and REST API key.
func New(appID, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: defaultBaseURL,
		appID:   appID,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type notificationPayload struct {
	AppID                  string            `json:"app_id"`
	IncludeExternalUserIDs []string          `json:"include_external_user_ids"`
	Contents               map[string]string `json:"contents"`
}

type externalIDPayload struct {
	AppID          string `json:"app_id"`
	ExternalUserID string `json:"external_user_id"`
}

// SendToUsers delivers one message to the given external user ids in a
// single batched provider call.
func (c *Client) SendToUsers(ctx context.Context, message string, externalUserIDs []string) error {
	valid := make([]string, 0, len(externalUserIDs))
	for _, id := range externalUserIDs {
		id = strings.TrimSpace(id)
		if id != "" {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return errors.New("push: no valid target user ids")
	}

	payload := notificationPayload{
		AppID:                  c.appID,
		IncludeExternalUserIDs: valid,
		Contents:               map[string]string{"en": message},
	}
	return c.post(ctx, http.MethodPost, c.baseURL+"/notifications", payload)
}

// SetExternalUserID links a provider device (player) id to our principal id.
func (c *Client) SetExternalUserID(ctx context.Context, playerID, externalID string) error {
	if strings.TrimSpace(playerID) == "" {
		return errors.New("push: player id is required")
	}
	payload := externalIDPayload{AppID: c.appID, ExternalUserID: externalID}
	return c.post(ctx, http.MethodPut, c.baseURL+"/players/"+playerID, payload)
}

func (c *Client) post(ctx context.Context, method, url string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("push: encode payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("push: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Basic "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("push: provider unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("push: provider returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return nil
}
