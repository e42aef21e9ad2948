package trusttag

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/layer-3/trusttag/core"
)

const defaultTimeout = 30 * time.Second

// HTTPClient talks to a trusttag server. The nonce cookie lives in its jar,
// so Nonce and CompleteSiwe must be called on the same client.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// ClientOption configures an HTTPClient
type ClientOption func(*HTTPClient)

// WithHTTPClient replaces the underlying client. It must carry a cookie jar.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(h *HTTPClient) {
		h.client = c
	}
}

// NewHTTPClient creates a client for the server at baseURL, e.g.
// "http://localhost:8080/api"
func NewHTTPClient(baseURL string, opts ...ClientOption) (*HTTPClient, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	c := &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Jar:     jar,
			Timeout: defaultTimeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Nonce requests a fresh nonce
func (c *HTTPClient) Nonce(ctx context.Context) (string, error) {
	var resp struct {
		Nonce string `json:"nonce"`
	}
	if err := c.do(ctx, http.MethodGet, "/nonce", "", nil, &resp); err != nil {
		return "", err
	}
	if resp.Nonce == "" {
		return "", ErrEmptyNonce
	}
	return resp.Nonce, nil
}

// CompleteSiwe posts the signed payload
func (c *HTTPClient) CompleteSiwe(ctx context.Context, payload core.SiwePayload, nonce string) (*SignInResult, error) {
	req := core.CompletionRequest{Payload: payload, Nonce: nonce}

	var resp SignInResult
	if err := c.do(ctx, http.MethodPost, "/complete-siwe", "", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Me fetches the profile for token
func (c *HTTPClient) Me(ctx context.Context, token string) (*Profile, error) {
	var resp Profile
	if err := c.do(ctx, http.MethodGet, "/me", token, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Logout invalidates token on the server
func (c *HTTPClient) Logout(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodPost, "/logout", token, nil, nil)
}

func (c *HTTPClient) do(ctx context.Context, method, path, token string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	data, _ := io.ReadAll(resp.Body)

	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	apiErr := &APIError{StatusCode: resp.StatusCode}
	if err := json.Unmarshal(data, &body); err == nil {
		apiErr.Message = body.Message
		if apiErr.Message == "" {
			apiErr.Message = body.Error
		}
	} else {
		apiErr.Message = strings.TrimSpace(string(data))
	}
	return apiErr
}
