// Package host talks to the record-management system that triggers embed
// invocations and receives the generated markup. The flow reads one field
// (the customer identifier) and writes one field (the embed markup slot).
package host

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"glanceboard.app/embedgate/common/logger"
	"glanceboard.app/embedgate/core/config"
)

const maxLoggedBody = 2048

var (
	ErrRecordNotFound = errors.New("host record not found")
	ErrFieldNotFound  = errors.New("host record field not found")
)

// Client is the host system HTTP client. One instance is shared across
// invocations.
type Client struct {
	httpClient *http.Client
	cfg        config.HostConfig
}

func NewClient(cfg config.HostConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		cfg:        cfg,
	}
}

// Record is a host record snapshot: its type plus the subset of fields the
// host exposes over the API, keyed by field id.
type Record struct {
	ID     string           `json:"id"`
	Type   string           `json:"type"`
	Fields map[string]Field `json:"fields"`
}

type Field struct {
	Value string `json:"value"`
}

// FieldWrite is the payload for updating a single record field.
type FieldWrite struct {
	Content string `json:"content"`
	Visible bool   `json:"visible"`
}

func (c *Client) GetRecord(ctx context.Context, recordID string) (*Record, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "embedgate.host.client"})

	endpoint := fmt.Sprintf("%s/api/v1/records/%s", c.cfg.APIBaseURL, recordID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building record request: %w", err)
	}
	c.authorize(req)

	status, body, err := c.do(req)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, recordID)
	}
	if status != http.StatusOK {
		c.logFailure(ctx, endpoint, status, body, "record fetch returned non-200")
		return nil, fmt.Errorf("fetching record %s: status %d", recordID, status)
	}

	var record Record
	if err := json.Unmarshal(body, &record); err != nil {
		c.logFailure(ctx, endpoint, status, body, "malformed record response")
		return nil, fmt.Errorf("parsing record %s: %w", recordID, err)
	}
	return &record, nil
}

func (c *Client) WriteField(ctx context.Context, recordID, fieldID string, write FieldWrite) error {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "embedgate.host.client"})

	endpoint := fmt.Sprintf("%s/api/v1/records/%s/fields/%s", c.cfg.APIBaseURL, recordID, fieldID)
	payload, err := json.Marshal(write)
	if err != nil {
		return fmt.Errorf("marshaling field write: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building field write request: %w", err)
	}
	c.authorize(req)
	req.Header.Set("Content-Type", "application/json")

	status, body, err := c.do(req)
	if err != nil {
		return err
	}
	if status == http.StatusNotFound {
		return fmt.Errorf("%w: %s on record %s", ErrFieldNotFound, fieldID, recordID)
	}
	if status != http.StatusOK && status != http.StatusNoContent {
		c.logFailure(ctx, endpoint, status, body, "field write returned non-200")
		return fmt.Errorf("writing field %s on record %s: status %d", fieldID, recordID, status)
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.cfg.APIToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIToken)
	}
	req.Header.Set("Accept", "application/json")
}

func (c *Client) do(req *http.Request) (int, []byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("calling %s: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("reading response from %s: %w", req.URL.Path, err)
	}
	return resp.StatusCode, body, nil
}

func (c *Client) logFailure(ctx context.Context, endpoint string, status int, body []byte, reason string) {
	slog.ErrorContext(ctx, "host api call failed",
		"endpoint", endpoint,
		"status", status,
		"body", logger.Truncate(string(body), maxLoggedBody),
		"reason", reason)
}
