package ml

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"ChannelAnalyst/internal/domain"
	"ChannelAnalyst/internal/ports"
)

// Client talks to a LibreTranslate-compatible machine translation service.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

var _ ports.Translator = (*Client)(nil)

// NewClient creates a reusable HTTP client.
func NewClient(endpoint, apiKey string) *Client {
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		apiKey:   apiKey,
		http:     &http.Client{Timeout: 15 * time.Second},
	}
}

// Configured reports whether an endpoint was provided.
func (c *Client) Configured() bool {
	return c != nil && c.endpoint != ""
}

// Translate sends text to the /translate endpoint.
func (c *Client) Translate(ctx context.Context, text, from, to string) (string, error) {
	if !c.Configured() {
		return "", fmt.Errorf("%w: translation endpoint is not configured", domain.ErrValidation)
	}

	payload := map[string]any{
		"q":      text,
		"source": from,
		"target": to,
		"format": "text",
	}
	if c.apiKey != "" {
		payload["api_key"] = c.apiKey
	}

	var resp struct {
		TranslatedText string `json:"translatedText"`
	}

	if err := c.post(ctx, "/translate", payload, &resp); err != nil {
		return "", err
	}
	if strings.TrimSpace(resp.TranslatedText) == "" {
		return "", fmt.Errorf("%w: empty translation", domain.ErrDependency)
	}

	return resp.TranslatedText, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, v any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: do request: %v", domain.ErrDependency, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: unexpected status %s", domain.ErrDependency, resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
