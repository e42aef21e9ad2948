// Package worldid verifies World ID proofs against the Worldcoin developer API.
package worldid

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

	"github.com/layer-3/trusttag/core"
)

const (
	DefaultBaseURL = "https://developer.worldcoin.org"

	requestTimeout = 10 * time.Second
	userAgent      = "trusttag/1.0"
)

var ErrMissingAppID = errors.New("world id app id is not configured")

// Client calls the v2 verify endpoint for a single app
type Client struct {
	appID   string
	baseURL string
	client  *http.Client
}

// Option configures a Client
type Option func(*Client)

// WithBaseURL points the client at another API host
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.client = h }
}

// NewClient creates a verifier for appID
func NewClient(appID string, opts ...Option) (*Client, error) {
	if appID == "" {
		return nil, ErrMissingAppID
	}

	c := &Client{
		appID:   appID,
		baseURL: DefaultBaseURL,
		client:  &http.Client{Timeout: requestTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type verifyError struct {
	Code   string `json:"code"`
	Detail string `json:"detail"`
}

// VerifyProof returns nil when the API accepts the proof
func (c *Client) VerifyProof(ctx context.Context, proof core.WorldIDProof) error {
	body, err := json.Marshal(proof)
	if err != nil {
		return fmt.Errorf("failed to marshal proof: %w", err)
	}

	url := fmt.Sprintf("%s/api/v2/verify/%s", c.baseURL, c.appID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("world id request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		return nil
	}

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("world id api returned status %d", resp.StatusCode)
	}

	var apiErr verifyError
	if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Code != "" {
		return fmt.Errorf("%w: %s: %s", core.ErrWorldIDRejected, apiErr.Code, apiErr.Detail)
	}
	return fmt.Errorf("%w: status %d", core.ErrWorldIDRejected, resp.StatusCode)
}
