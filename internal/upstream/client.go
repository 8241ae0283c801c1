package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"lorebridge/internal/httpclient"
	"lorebridge/internal/models"
	"lorebridge/internal/types"
	"lorebridge/internal/utils"
)

// Client performs chat-completion exchanges with the backend. The bearer
// credential is always the server-held key from configuration; caller
// credentials authenticate against this proxy only and are never forwarded.
type Client struct {
	requestClient *http.Client
	streamClient  *http.Client
	baseURL       string
	apiKey        string
}

func NewClient(configManager types.ConfigManager, clientManager *httpclient.Manager) *Client {
	upstreamConfig := configManager.GetUpstreamConfig()
	return &Client{
		requestClient: clientManager.GetClient(httpclient.RequestConfig(upstreamConfig)),
		streamClient:  clientManager.GetClient(httpclient.StreamConfig(upstreamConfig)),
		baseURL:       upstreamConfig.BaseURL,
		apiKey:        upstreamConfig.APIKey,
	}
}

// Stream sends a streaming chat completion and returns the open response.
// The caller owns resp.Body. A non-2xx status is returned alongside the
// response so the caller can relay the backend's error payload.
func (c *Client) Stream(ctx context.Context, backendReq *models.BackendRequest) (*http.Response, error) {
	req, err := c.newRequest(ctx, backendReq)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	return c.streamClient.Do(req)
}

// Complete sends a buffered chat completion and returns the backend status
// and decompressed body.
func (c *Client) Complete(ctx context.Context, backendReq *models.BackendRequest) (int, []byte, error) {
	req, err := c.newRequest(ctx, backendReq)
	if err != nil {
		return 0, nil, err
	}

	resp, err := c.requestClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read backend response: %w", err)
	}

	decompressed, err := utils.DecompressResponse(resp.Header.Get("Content-Encoding"), body)
	if err != nil {
		return resp.StatusCode, body, nil
	}
	return resp.StatusCode, decompressed, nil
}

func (c *Client) newRequest(ctx context.Context, backendReq *models.BackendRequest) (*http.Request, error) {
	body, err := json.Marshal(backendReq)
	if err != nil {
		return nil, fmt.Errorf("failed to encode backend request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	return req, nil
}
