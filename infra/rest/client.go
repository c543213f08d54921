// Package rest is the request/response side of the backend boundary: it
// fetches channel tickets and persists drop outcomes. All mutating actions go
// through here, never through the push channel.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/haulplan/haulplan/core/drag"
	"github.com/haulplan/haulplan/core/events"
)

// Config defines the backend endpoint.
type Config struct {
	// BaseURL is the backend root, e.g. https://api.example.com.
	BaseURL string `json:"base_url"`
	// Token is an optional bearer token for the persistence API.
	Token string `json:"token"`
	// TimeoutSeconds bounds every request.
	TimeoutSeconds int `json:"timeout_seconds"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 10
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("backend base_url is required")
	}
	return nil
}

// Client talks to the scheduling backend.
type Client struct {
	base  string
	token string
	http  *http.Client
}

// New creates a Client from the configuration.
func New(cfg Config) *Client {
	cfg.SetDefaults()
	return &Client{
		base:  strings.TrimSuffix(cfg.BaseURL, "/"),
		token: cfg.Token,
		http:  &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
	}
}

// BaseURL returns the configured backend root.
func (c *Client) BaseURL() string { return c.base }

// FetchTicket obtains a short-lived, single-use channel credential. The
// ticket travels as a query parameter when the channel is opened, so the
// backend never sees a long-lived secret in its access logs.
func (c *Client) FetchTicket(ctx context.Context) (string, error) {
	var out struct {
		Ticket string `json:"ticket"`
	}
	if err := c.do(ctx, http.MethodPost, "/realtime/ticket", nil, &out); err != nil {
		return "", err
	}
	if out.Ticket == "" {
		return "", fmt.Errorf("backend returned an empty ticket")
	}
	return out.Ticket, nil
}

// BatchUpdate persists every changed member's new container and sequence in
// one call and returns the authoritative entities the backend applied.
func (c *Client) BatchUpdate(ctx context.Context, changes []drag.MemberChange) ([]events.Entity, error) {
	body := struct {
		Updates []drag.MemberChange `json:"updates"`
	}{Updates: changes}
	var out struct {
		Entities []events.Entity `json:"entities"`
	}
	if err := c.do(ctx, http.MethodPatch, "/schedule/items", body, &out); err != nil {
		return nil, err
	}
	return out.Entities, nil
}

// MergeIntoRun asks the backend to create or extend a run from the moving
// item and the merge target.
func (c *Client) MergeIntoRun(ctx context.Context, movingID, targetID string) ([]events.Entity, error) {
	body := struct {
		MovingID string `json:"moving_id"`
		TargetID string `json:"target_id"`
	}{MovingID: movingID, TargetID: targetID}
	var out struct {
		Entities []events.Entity `json:"entities"`
	}
	if err := c.do(ctx, http.MethodPost, "/runs/merge", body, &out); err != nil {
		return nil, err
	}
	return out.Entities, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rd = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d from %s: %s", resp.StatusCode, path, excerpt)
	}
	if out == nil {
		return nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
