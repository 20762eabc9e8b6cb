package tts

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

const (
	apiSynthesize = "/v1/synthesize"
	apiHealth     = "/health"

	contentTypeJSON = "application/json"
	contentTypeMP3  = "audio/mpeg"
)

// HTTPClient talks to a speech synthesis HTTP service that accepts a JSON
// request and answers with raw MP3 bytes.
type HTTPClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	name       string
}

type synthesizeRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice,omitempty"`
}

type errorResponse struct {
	Detail    string `json:"detail"`
	ErrorCode string `json:"error_code,omitempty"`
}

// NewHTTPClient configures a client for the service at baseURL. The API key
// is optional; keyless backends leave it empty.
func NewHTTPClient(name, baseURL, apiKey string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Name identifies the backend in logs and manifests.
func (c *HTTPClient) Name() string { return c.name }

// Synthesize sends one synthesis request and returns the MP3 payload.
func (c *HTTPClient) Synthesize(ctx context.Context, req Request) ([]byte, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, errors.New("text cannot be empty")
	}

	body, err := json.Marshal(synthesizeRequest{Text: req.Text, Voice: req.Voice})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+apiSynthesize, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentTypeJSON)
	httpReq.Header.Set("Accept", contentTypeMP3)
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send request to %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseErrorResponse(resp)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read audio data: %w", err)
	}
	if len(audio) == 0 {
		return nil, errors.New("received empty audio data")
	}
	return audio, nil
}

// HealthCheck verifies the backend is reachable and reporting healthy.
func (c *HTTPClient) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+apiHealth, http.NoBody)
	if err != nil {
		return fmt.Errorf("create health check request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check for %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed with status: %s", resp.Status)
	}
	return nil
}

func (c *HTTPClient) parseErrorResponse(resp *http.Response) error {
	var payload errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil && payload.Detail != "" {
		return fmt.Errorf("synthesis service error (%s): %s", resp.Status, payload.Detail)
	}
	body, _ := io.ReadAll(resp.Body)
	return fmt.Errorf("synthesis service returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
}
