// Package domo implements the two-step Domo token exchange: client
// credentials are traded for a short-lived service access token, which is
// then traded for a single-use embed token scoped to one customer.
// Tokens are never cached; each invocation fetches fresh ones.
package domo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"glanceboard.app/embedgate/common/logger"
	"glanceboard.app/embedgate/core/config"
)

const (
	dashboardAuthPath = "/v1/stories/embed/auth"
	cardAuthPath      = "/v1/cards/embed/auth"

	// Response bodies are logged for diagnostics on failure; cap them so a
	// misbehaving provider can't flood the log pipeline.
	maxLoggedBody = 2048
)

// Client talks to the Domo OAuth and embed endpoints. One instance is shared
// across invocations; it holds no per-invocation state.
type Client struct {
	httpClient *http.Client
	cfg        config.DomoConfig
	embed      config.EmbedConfig
}

func NewClient(cfg config.DomoConfig, embed config.EmbedConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		cfg:        cfg,
		embed:      embed,
	}
}

type serviceTokenResponse struct {
	AccessToken string `json:"access_token"`
}

// FetchServiceToken exchanges the configured client credentials for a service
// access token via the client_credentials grant. Single attempt, no retries;
// a diagnostic log entry (status and body, never credentials) is emitted on
// failure only.
func (c *Client) FetchServiceToken(ctx context.Context) (string, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "embedgate.domo.client"})

	authHeader, err := BasicAuthHeader(c.cfg.ClientID, c.cfg.ClientSecret)
	if err != nil {
		return "", err
	}

	endpoint := c.cfg.APIBaseURL + "/oauth/token?" + url.Values{
		"grant_type": {"client_credentials"},
		"scope":      {c.cfg.TokenScope},
	}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("building service token request: %w", err)
	}
	req.Header.Set("Authorization", authHeader)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	status, body, err := c.do(req)
	if err != nil {
		authErr := &AuthError{Endpoint: endpoint, Reason: err.Error()}
		c.logAuthFailure(ctx, authErr)
		return "", authErr
	}

	if status != http.StatusOK {
		authErr := &AuthError{
			Endpoint:   endpoint,
			StatusCode: status,
			Body:       string(body),
			Reason:     "token endpoint returned non-200",
		}
		c.logAuthFailure(ctx, authErr)
		return "", authErr
	}

	var parsed serviceTokenResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		authErr := &AuthError{
			Endpoint:   endpoint,
			StatusCode: status,
			Body:       string(body),
			Reason:     "malformed token response body",
		}
		c.logAuthFailure(ctx, authErr)
		return "", authErr
	}
	if parsed.AccessToken == "" {
		authErr := &AuthError{
			Endpoint:   endpoint,
			StatusCode: status,
			Body:       string(body),
			Reason:     "token response missing access_token",
		}
		c.logAuthFailure(ctx, authErr)
		return "", authErr
	}

	return parsed.AccessToken, nil
}

// ScopeRequest is the embed authorization payload sent to Domo. The filters
// list is non-empty iff a customer identifier is present: an empty list
// grants unrestricted access to the embed's rows, so the presence check in
// BuildScopeRequest is security-relevant.
type ScopeRequest struct {
	Authorizations []Authorization `json:"authorizations"`
	SessionLength  int             `json:"sessionLength"`
}

type Authorization struct {
	Token       string   `json:"token"`
	Permissions []string `json:"permissions"`
	Filters     []Filter `json:"filters"`
}

type Filter struct {
	Column   string   `json:"column"`
	Operator string   `json:"operator"`
	Values   []string `json:"values"`
}

// BuildScopeRequest assembles the embed authorization payload for one
// customer. An empty customerID yields an empty filters list (all-row
// access); a non-empty one yields exactly one clause binding the configured
// column and operator to [customerID].
func (c *Client) BuildScopeRequest(customerID string) ScopeRequest {
	filters := []Filter{}
	if customerID != "" {
		filters = append(filters, Filter{
			Column:   c.embed.FilterColumn,
			Operator: c.embed.FilterOperator,
			Values:   []string{customerID},
		})
	}

	return ScopeRequest{
		SessionLength: c.embed.SessionLengthMinutes,
		Authorizations: []Authorization{{
			Token:       c.embed.EmbedID,
			Permissions: c.embed.Permissions,
			Filters:     filters,
		}},
	}
}

type embedTokenResponse struct {
	Authentication string `json:"authentication"`
}

// FetchEmbedToken exchanges a service token plus the customer scope for a
// single-use embed token. The endpoint is selected by the configured embed
// type. Single attempt, no retries.
func (c *Client) FetchEmbedToken(ctx context.Context, serviceToken, customerID string) (string, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "embedgate.domo.client"})

	endpoint := c.embedAuthURL()

	payload, err := json.Marshal(c.BuildScopeRequest(customerID))
	if err != nil {
		return "", fmt.Errorf("marshaling embed scope request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("building embed token request: %w", err)
	}
	// Domo's embed endpoints expect the literal lowercase "bearer" scheme.
	req.Header.Set("Authorization", "bearer "+serviceToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	status, body, err := c.do(req)
	if err != nil {
		authErr := &AuthError{Endpoint: endpoint, Reason: err.Error()}
		c.logAuthFailure(ctx, authErr)
		return "", authErr
	}

	if status != http.StatusOK {
		authErr := &AuthError{
			Endpoint:   endpoint,
			StatusCode: status,
			Body:       string(body),
			Reason:     "embed auth endpoint returned non-200",
		}
		c.logAuthFailure(ctx, authErr)
		return "", authErr
	}

	var parsed embedTokenResponse
	if err := json.Unmarshal(body, &parsed); err != nil || parsed.Authentication == "" {
		protoErr := &ProtocolError{
			Endpoint: endpoint,
			Body:     string(body),
			Reason:   "embed auth response missing authentication field",
		}
		slog.ErrorContext(ctx, "embed token response violated provider contract",
			"endpoint", protoErr.Endpoint,
			"body", logger.Truncate(protoErr.Body, maxLoggedBody))
		return "", protoErr
	}

	return parsed.Authentication, nil
}

func (c *Client) embedAuthURL() string {
	if c.embed.EmbedType == config.EmbedTypeCard {
		return c.cfg.APIBaseURL + cardAuthPath
	}
	return c.cfg.APIBaseURL + dashboardAuthPath
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

func (c *Client) logAuthFailure(ctx context.Context, err *AuthError) {
	slog.ErrorContext(ctx, "token exchange failed",
		"endpoint", err.Endpoint,
		"status", err.StatusCode,
		"body", logger.Truncate(err.Body, maxLoggedBody),
		"reason", err.Reason)
}
