// Package client is a Go client for the page service HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/xiaot623/pagesmith/internal/domain"
	"github.com/xiaot623/pagesmith/internal/orchestrator"
)

// Client talks to a running page service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

var _ orchestrator.Backend = (*Client)(nil)

// New creates a client for the service at baseURL. A zero timeout leaves
// deadlines to the caller's context.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// BaseURL returns the service address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// EnhancePrompt calls POST /api/enhance-prompt.
func (c *Client) EnhancePrompt(ctx context.Context, req domain.EnhanceRequest) (*domain.EnhanceResponse, error) {
	var resp domain.EnhanceResponse
	if err := c.postJSON(ctx, "/api/enhance-prompt", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Generate calls POST /api/generate.
func (c *Client) Generate(ctx context.Context, req domain.GenerateRequest) (*domain.CodeResponse, error) {
	var resp domain.CodeResponse
	if err := c.postJSON(ctx, "/api/generate", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Modify calls POST /api/modify.
func (c *Client) Modify(ctx context.Context, req domain.ModifyRequest) (*domain.CodeResponse, error) {
	var resp domain.CodeResponse
	if err := c.postJSON(ctx, "/api/modify", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// History calls GET /api/history/:session_id.
func (c *Client) History(ctx context.Context, sessionID string) ([]domain.Message, error) {
	var resp domain.HistoryResponse
	if err := c.do(ctx, http.MethodGet, "/api/history/"+url.PathEscape(sessionID), nil, &resp); err != nil {
		return nil, err
	}
	return resp.ChatHistory, nil
}

// Deploy calls POST /api/deploy.
func (c *Client) Deploy(ctx context.Context, req domain.DeployRequest) (*domain.DeployResponse, error) {
	var resp domain.DeployResponse
	if err := c.postJSON(ctx, "/api/deploy", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Preview calls POST /api/preview.
func (c *Client) Preview(ctx context.Context, req domain.PreviewRequest) (*domain.PreviewResponse, error) {
	var resp domain.PreviewResponse
	if err := c.postJSON(ctx, "/api/preview", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Export calls POST /api/export-html and returns the file body.
func (c *Client) Export(ctx context.Context, req domain.ExportRequest) ([]byte, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	resp, err := c.send(ctx, http.MethodPost, "/api/export-html", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp.StatusCode, respBody)
	}
	return respBody, nil
}

// Health calls GET /health and returns the service version.
func (c *Client) Health(ctx context.Context) (string, error) {
	var resp struct {
		Status  string `json:"status"`
		Version string `json:"version"`
	}
	if err := c.do(ctx, http.MethodGet, "/health", nil, &resp); err != nil {
		return "", err
	}
	if resp.Status != "healthy" {
		return "", fmt.Errorf("service reported status %q", resp.Status)
	}
	return resp.Version, nil
}

func (c *Client) postJSON(ctx context.Context, path string, req, out interface{}) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, body, out)
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out interface{}) error {
	resp, err := c.send(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return decodeError(resp.StatusCode, respBody)
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	return resp, nil
}
