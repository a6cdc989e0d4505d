package suggest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultClientTimeout = 60 * time.Second

// Client calls a remote /api/llama3 endpoint.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

func NewClient(endpoint string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultClientTimeout}
	}
	return &Client{endpoint: endpoint, httpClient: httpClient}
}

func (c *Client) Name() string {
	return "remote"
}

// Suggest posts the request and expects exactly OptionCount options back.
func (c *Client) Suggest(ctx context.Context, req Request) (*Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode suggestion request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build suggestion request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("suggestion endpoint unreachable: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read suggestion response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("suggestion endpoint returned %d: %s", resp.StatusCode, bytes.TrimSpace(raw))
	}

	var out Response
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to decode suggestion response: %w", err)
	}
	if len(out.Options) != OptionCount {
		return nil, fmt.Errorf("expected %d options, got %d", OptionCount, len(out.Options))
	}
	return &out, nil
}
